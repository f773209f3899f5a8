package repo

import (
	"context"
	"database/sql"
	"digimart/internal/domain"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"
)

type ProductRepo interface {
	Create(ctx context.Context, p *domain.Product) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error)
	// Update writes p if the stored version still equals p.Version, then
	// bumps p.Version. A stale version yields domain.ErrConflict.
	Update(ctx context.Context, p *domain.Product) error
	Delete(ctx context.Context, id uuid.UUID) error
	// List returns every product in insertion order.
	List(ctx context.Context) ([]domain.Product, error)
}

type OrderFilter struct {
	UserID  uuid.NullUUID
	Contact string
	Status  domain.OrderStatus
}

func (f OrderFilter) match(o domain.Order) bool {
	if f.UserID.Valid && (!o.UserID.Valid || o.UserID.UUID != f.UserID.UUID) {
		return false
	}
	if f.Contact != "" && o.Contact != f.Contact {
		return false
	}
	if f.Status != "" && o.Status != f.Status {
		return false
	}
	return true
}

type OrderRepo interface {
	// Create fails with domain.ErrConflict when the order number is taken.
	Create(ctx context.Context, o *domain.Order) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error)
	FindByOrderNumber(ctx context.Context, number string) (*domain.Order, error)
	OrderNumberExists(ctx context.Context, number string) (bool, error)
	// UpdateStatus moves the order from -> to only if it still holds from.
	UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error
	List(ctx context.Context, f OrderFilter) ([]domain.Order, error)
	// FindPendingBefore pages through PENDING orders created before the given
	// time, oldest first. after is the id of the last order of the previous
	// page, or uuid.Nil for the first page.
	FindPendingBefore(ctx context.Context, before time.Time, after uuid.UUID, limit int) ([]domain.Order, error)
}

type UserRepo interface {
	// Create fails with domain.ErrConflict on a duplicate email or identity subject.
	Create(ctx context.Context, u *domain.User) error
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email string) (*domain.User, error)
	FindByIdentitySubject(ctx context.Context, subject string) (*domain.User, error)
	// LinkIdentity attaches an identity-provider subject to an existing account.
	LinkIdentity(ctx context.Context, id uuid.UUID, subject string) error
	List(ctx context.Context) ([]domain.User, error)
}

// TxManager runs fn inside one transaction. Repositories called with the ctx
// handed to fn take part in it.
type TxManager interface {
	WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error
}

type txKey struct{}

type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// conn returns the transaction carried by ctx, or db when there is none.
func conn(ctx context.Context, db *sql.DB) execer {
	if tx, ok := ctx.Value(txKey{}).(*sql.Tx); ok && tx != nil {
		return tx
	}
	return db
}

type sqlTxManager struct {
	db *sql.DB
}

func NewTxManager(db *sql.DB) TxManager {
	return &sqlTxManager{db: db}
}

func (m *sqlTxManager) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if _, ok := ctx.Value(txKey{}).(*sql.Tx); ok {
		return fn(ctx)
	}
	tx, err := m.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	if err := fn(context.WithValue(ctx, txKey{}, tx)); err != nil {
		return err
	}
	return tx.Commit()
}

const pgUniqueViolation = "23505"

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == pgUniqueViolation
}
