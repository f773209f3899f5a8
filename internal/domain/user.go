package domain

import (
	"net/mail"
	"strings"
	"time"

	"github.com/google/uuid"
)

type Role string

const (
	RoleAdmin Role = "ADMIN"
	RoleUser  Role = "USER"
)

type User struct {
	ID              uuid.UUID `json:"id"`
	Name            string    `json:"name"`
	Email           string    `json:"email"`
	Role            Role      `json:"role"`
	PasswordHash    string    `json:"-"`
	IdentitySubject string    `json:"-"`
	CreatedAt       time.Time `json:"createdAt"`
}

// NewUser builds a USER account. Elevated roles are only granted by the admin
// bootstrap, never through this constructor's callers on behalf of the user.
func NewUser(name, email string, now time.Time) (*User, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, invalid("name", "is required")
	}
	addr, err := mail.ParseAddress(strings.TrimSpace(email))
	if err != nil {
		return nil, invalid("email", "is not a valid email address")
	}
	return &User{
		ID:        uuid.New(),
		Name:      name,
		Email:     strings.ToLower(addr.Address),
		Role:      RoleUser,
		CreatedAt: now,
	}, nil
}

// Actor is the per-request caller identity. The zero value is anonymous.
type Actor struct {
	UserID uuid.UUID
	Role   Role
}

var Anonymous = Actor{}

func ActorFor(u User) Actor {
	return Actor{UserID: u.ID, Role: u.Role}
}

func (a Actor) IsAdmin() bool { return a.Role == RoleAdmin }

func (a Actor) IsAuthenticated() bool { return a.UserID != uuid.Nil }
