package repo

import (
	"context"
	"errors"
	"testing"
	"time"

	"digimart/internal/domain"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newProduct(t *testing.T, title string) *domain.Product {
	t.Helper()
	p, err := domain.NewProduct(domain.ProductSpec{Title: title, Price: 10, Category: domain.CategorySoftware}, time.Now())
	require.NoError(t, err)
	return p
}

func newOrder(t *testing.T, number string, p *domain.Product, contact string, created time.Time) *domain.Order {
	t.Helper()
	o, err := domain.NewOrder(number, *p, contact, uuid.NullUUID{}, created)
	require.NoError(t, err)
	return o
}

func TestMemoryStore_ProductCRUD(t *testing.T) {
	ctx := context.Background()
	products := NewMemoryStore().Products()

	a, b := newProduct(t, "A"), newProduct(t, "B")
	require.NoError(t, products.Create(ctx, a))
	require.NoError(t, products.Create(ctx, b))

	got, err := products.FindByID(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, "A", got.Title)

	got.Title = "A+"
	require.NoError(t, products.Update(ctx, got))
	assert.Equal(t, int64(2), got.Version)

	list, err := products.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "A+", list[0].Title)
	assert.Equal(t, "B", list[1].Title)

	require.NoError(t, products.Delete(ctx, a.ID))
	_, err = products.FindByID(ctx, a.ID)
	assert.ErrorIs(t, err, domain.ErrNotFound)
	assert.ErrorIs(t, products.Delete(ctx, a.ID), domain.ErrNotFound)

	list, err = products.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
}

func TestMemoryStore_ProductStaleVersion(t *testing.T) {
	ctx := context.Background()
	products := NewMemoryStore().Products()
	p := newProduct(t, "A")
	require.NoError(t, products.Create(ctx, p))

	first, _ := products.FindByID(ctx, p.ID)
	second, _ := products.FindByID(ctx, p.ID)

	first.Title = "first"
	require.NoError(t, products.Update(ctx, first))

	second.Title = "second"
	assert.ErrorIs(t, products.Update(ctx, second), domain.ErrConflict)

	got, _ := products.FindByID(ctx, p.ID)
	assert.Equal(t, "first", got.Title)
}

func TestMemoryStore_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	products := NewMemoryStore().Products()
	p := newProduct(t, "A")
	p.Tags = []string{"x"}
	require.NoError(t, products.Create(ctx, p))

	p.Tags[0] = "mutated"
	got, _ := products.FindByID(ctx, p.ID)
	assert.Equal(t, []string{"x"}, got.Tags)
}

func TestMemoryStore_OrderNumberUnique(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryStore().Orders()
	p := newProduct(t, "A")

	require.NoError(t, orders.Create(ctx, newOrder(t, "DIGI-1", p, "+10000000000", time.Now())))
	err := orders.Create(ctx, newOrder(t, "DIGI-1", p, "+10000000001", time.Now()))
	assert.ErrorIs(t, err, domain.ErrConflict)

	exists, err := orders.OrderNumberExists(ctx, "DIGI-1")
	require.NoError(t, err)
	assert.True(t, exists)

	list, _ := orders.List(ctx, OrderFilter{})
	assert.Len(t, list, 1)
}

func TestMemoryStore_OrderStatusCompareAndSwap(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryStore().Orders()
	o := newOrder(t, "DIGI-1", newProduct(t, "A"), "+10000000000", time.Now())
	require.NoError(t, orders.Create(ctx, o))

	require.NoError(t, orders.UpdateStatus(ctx, o.ID, domain.OrderPending, domain.OrderPaid, time.Now()))
	err := orders.UpdateStatus(ctx, o.ID, domain.OrderPending, domain.OrderCancelled, time.Now())
	assert.ErrorIs(t, err, domain.ErrConflict)
	assert.ErrorIs(t, orders.UpdateStatus(ctx, uuid.New(), domain.OrderPending, domain.OrderPaid, time.Now()), domain.ErrNotFound)

	got, err := orders.FindByOrderNumber(ctx, "DIGI-1")
	require.NoError(t, err)
	assert.Equal(t, domain.OrderPaid, got.Status)
}

func TestMemoryStore_OrderFilters(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryStore().Orders()
	p := newProduct(t, "A")
	user := uuid.New()
	old := time.Now().Add(-time.Hour)

	o1 := newOrder(t, "N1", p, "+10000000000", old)
	o2 := newOrder(t, "N2", p, "+10000000001", old)
	o2.UserID = uuid.NullUUID{UUID: user, Valid: true}
	o3 := newOrder(t, "N3", p, "+10000000000", time.Now())
	for _, o := range []*domain.Order{o1, o2, o3} {
		require.NoError(t, orders.Create(ctx, o))
	}
	require.NoError(t, orders.UpdateStatus(ctx, o1.ID, domain.OrderPending, domain.OrderPaid, time.Now()))

	byContact, _ := orders.List(ctx, OrderFilter{Contact: "+10000000000"})
	assert.Equal(t, []string{"N1", "N3"}, numbers(byContact))

	byUser, _ := orders.List(ctx, OrderFilter{UserID: uuid.NullUUID{UUID: user, Valid: true}})
	assert.Equal(t, []string{"N2"}, numbers(byUser))

	paid, _ := orders.List(ctx, OrderFilter{Status: domain.OrderPaid})
	assert.Equal(t, []string{"N1"}, numbers(paid))

	stale, _ := orders.FindPendingBefore(ctx, time.Now().Add(-time.Minute), uuid.Nil, 10)
	assert.Equal(t, []string{"N2"}, numbers(stale))
}

func TestMemoryStore_FindPendingBeforePages(t *testing.T) {
	ctx := context.Background()
	orders := NewMemoryStore().Orders()
	p := newProduct(t, "Kit")
	old := time.Now().Add(-time.Hour)
	for _, n := range []string{"N1", "N2", "N3", "N4", "N5"} {
		require.NoError(t, orders.Create(ctx, newOrder(t, n, p, "+10000000000", old)))
	}

	first, err := orders.FindPendingBefore(ctx, time.Now(), uuid.Nil, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"N1", "N2"}, numbers(first))

	second, err := orders.FindPendingBefore(ctx, time.Now(), first[1].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"N3", "N4"}, numbers(second))

	last, err := orders.FindPendingBefore(ctx, time.Now(), second[1].ID, 2)
	require.NoError(t, err)
	assert.Equal(t, []string{"N5"}, numbers(last))
}

func TestMemoryStore_Users(t *testing.T) {
	ctx := context.Background()
	users := NewMemoryStore().Users()
	u, err := domain.NewUser("Buyer", "buyer@example.com", time.Now())
	require.NoError(t, err)
	require.NoError(t, users.Create(ctx, u))

	dup, _ := domain.NewUser("Other", "buyer@example.com", time.Now())
	assert.ErrorIs(t, users.Create(ctx, dup), domain.ErrConflict)

	require.NoError(t, users.LinkIdentity(ctx, u.ID, "google-123"))
	got, err := users.FindByIdentitySubject(ctx, "google-123")
	require.NoError(t, err)
	assert.Equal(t, u.ID, got.ID)

	_, err = users.FindByEmail(ctx, "nobody@example.com")
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestMemoryTx_NestedCallsDoNotDeadlock(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	p := newProduct(t, "A")

	sentinel := errors.New("boom")
	err := store.Tx().WithTransaction(ctx, func(ctx context.Context) error {
		// nested repository calls must not deadlock on the held lock
		if err := store.Products().Create(ctx, p); err != nil {
			return err
		}
		if _, err := store.Products().FindByID(ctx, p.ID); err != nil {
			return err
		}
		return sentinel
	})
	assert.ErrorIs(t, err, sentinel)
}

func numbers(orders []domain.Order) []string {
	out := make([]string, 0, len(orders))
	for _, o := range orders {
		out = append(out, o.OrderNumber)
	}
	return out
}
