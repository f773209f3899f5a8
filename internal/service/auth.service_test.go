package service

import (
	"context"
	"testing"

	"digimart/internal/domain"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegister_CreatesCustomer(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.auth.Register(ctx, "Ayesha", "Ayesha@Example.com", "correct-horse")
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, res.User.Role)
	assert.Equal(t, "ayesha@example.com", res.User.Email)
	assert.NotEmpty(t, res.Session.Token)

	_, err = h.auth.Register(ctx, "Again", "ayesha@example.com", "correct-horse")
	assert.ErrorIs(t, err, domain.ErrConflict)

	_, err = h.auth.Register(ctx, "Short", "short@example.com", "abc")
	var verr *domain.ValidationError
	require.ErrorAs(t, err, &verr)
	assert.Equal(t, "password", verr.Field)
}

func TestAuthenticate(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	h.customer(t, "buyer@example.com")

	res, err := h.auth.Authenticate(ctx, Credentials{Email: " BUYER@example.com", Password: "correct-horse"})
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", res.User.Email)

	_, err = h.auth.Authenticate(ctx, Credentials{Email: "buyer@example.com", Password: "wrong-horse"})
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
	_, err = h.auth.Authenticate(ctx, Credentials{Email: "nobody@example.com", Password: "correct-horse"})
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestActorFromToken_ReloadsRole(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	res, err := h.auth.Authenticate(ctx, Credentials{Email: "admin@digimart.test", Password: "admin-password"})
	require.NoError(t, err)

	actor, err := h.auth.ActorFromToken(ctx, res.Session.Token)
	require.NoError(t, err)
	assert.True(t, actor.IsAdmin())
	assert.Equal(t, h.admin.UserID, actor.UserID)

	_, err = h.auth.ActorFromToken(ctx, res.Session.Token+"x")
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestAuthenticateIdentity(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	first, err := h.auth.AuthenticateIdentity(ctx, IdentityAssertion{Subject: "g-123", Name: "Bilal", Email: "bilal@example.com"})
	require.NoError(t, err)
	assert.Equal(t, domain.RoleUser, first.User.Role)

	again, err := h.auth.AuthenticateIdentity(ctx, IdentityAssertion{Subject: "g-123", Name: "Bilal", Email: "bilal@example.com"})
	require.NoError(t, err)
	assert.Equal(t, first.User.ID, again.User.ID)

	// password account with the same email gets linked, not duplicated
	customer := h.customer(t, "sana@example.com")
	linked, err := h.auth.AuthenticateIdentity(ctx, IdentityAssertion{Subject: "g-456", Name: "Sana", Email: "sana@example.com"})
	require.NoError(t, err)
	assert.Equal(t, customer.UserID, linked.User.ID)

	_, err = h.auth.AuthenticateIdentity(ctx, IdentityAssertion{Subject: "g-789", Name: "Admin", Email: "admin@digimart.test"})
	assert.ErrorIs(t, err, domain.ErrAuthFailed)

	_, err = h.auth.AuthenticateIdentity(ctx, IdentityAssertion{Name: "No Subject", Email: "x@example.com"})
	assert.ErrorIs(t, err, domain.ErrValidation)

	// identity accounts have no password
	_, err = h.auth.Authenticate(ctx, Credentials{Email: "bilal@example.com", Password: ""})
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}

func TestEnsureAdmin(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)

	again, err := h.auth.EnsureAdmin(ctx, "Admin", "admin@digimart.test", "admin-password")
	require.NoError(t, err)
	assert.Equal(t, h.admin.UserID, again.ID)

	h.customer(t, "taken@example.com")
	_, err = h.auth.EnsureAdmin(ctx, "Admin", "taken@example.com", "admin-password")
	assert.ErrorIs(t, err, domain.ErrConflict)
}

func TestListUsersAndMe(t *testing.T) {
	ctx := context.Background()
	h := newHarness(t)
	customer := h.customer(t, "buyer@example.com")

	_, err := h.auth.ListUsers(ctx, customer)
	assert.ErrorIs(t, err, domain.ErrUnauthorized)

	users, err := h.auth.ListUsers(ctx, h.admin)
	require.NoError(t, err)
	assert.Len(t, users, 2)

	me, err := h.auth.Me(ctx, customer)
	require.NoError(t, err)
	assert.Equal(t, "buyer@example.com", me.Email)

	_, err = h.auth.Me(ctx, domain.Anonymous)
	assert.ErrorIs(t, err, domain.ErrAuthFailed)
}
