package repo

import (
	"context"
	"database/sql"
	"digimart/internal/domain"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/google/uuid"
)

type orderRepo struct {
	db *sql.DB
}

func NewOrderRepo(db *sql.DB) OrderRepo {
	return &orderRepo{db: db}
}

const orderColumns = `id, order_number, user_id, product_id, product_name, amount, contact,
	payment_method, status, created_at, updated_at`

func (r *orderRepo) Create(ctx context.Context, o *domain.Order) error {
	query := `INSERT INTO orders (` + orderColumns + `) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)`
	_, err := conn(ctx, r.db).ExecContext(ctx, query,
		o.ID, o.OrderNumber, o.UserID, o.ProductID, o.ProductName, o.Amount, o.Contact,
		o.PaymentMethod, string(o.Status), o.CreatedAt, o.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("order number %s: %w", o.OrderNumber, domain.ErrConflict)
	}
	return err
}

func (r *orderRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *orderRepo) FindByOrderNumber(ctx context.Context, number string) (*domain.Order, error) {
	return r.findOne(ctx, `WHERE order_number = $1`, number)
}

func (r *orderRepo) findOne(ctx context.Context, where string, arg any) (*domain.Order, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+orderColumns+` FROM orders `+where, arg)
	o, err := scanOrder(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("order %v: %w", arg, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return o, nil
}

func (r *orderRepo) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	var exists bool
	err := conn(ctx, r.db).QueryRowContext(ctx,
		`SELECT EXISTS (SELECT 1 FROM orders WHERE order_number = $1)`, number,
	).Scan(&exists)
	return exists, err
}

func (r *orderRepo) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error {
	res, err := conn(ctx, r.db).ExecContext(ctx,
		`UPDATE orders SET status = $1, updated_at = $2 WHERE id = $3 AND status = $4`,
		string(to), at, id, string(from),
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.FindByID(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("order %s no longer %s: %w", id, from, domain.ErrConflict)
	}
	return nil
}

func (r *orderRepo) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	var (
		conds []string
		args  []any
	)
	add := func(cond string, v any) {
		args = append(args, v)
		conds = append(conds, cond+" = $"+strconv.Itoa(len(args)))
	}
	if f.UserID.Valid {
		add("user_id", f.UserID.UUID)
	}
	if f.Contact != "" {
		add("contact", f.Contact)
	}
	if f.Status != "" {
		add("status", string(f.Status))
	}
	query := `SELECT ` + orderColumns + ` FROM orders`
	if len(conds) > 0 {
		query += ` WHERE ` + strings.Join(conds, " AND ")
	}
	return r.query(ctx, query+` ORDER BY seq`, args...)
}

func (r *orderRepo) FindPendingBefore(ctx context.Context, before time.Time, after uuid.UUID, limit int) ([]domain.Order, error) {
	return r.query(ctx,
		`SELECT `+orderColumns+` FROM orders
		WHERE status = $1 AND created_at < $2
		  AND seq > COALESCE((SELECT seq FROM orders WHERE id = $3), 0)
		ORDER BY seq LIMIT $4`,
		string(domain.OrderPending), before, after, limit,
	)
}

func (r *orderRepo) query(ctx context.Context, query string, args ...any) ([]domain.Order, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	orders := []domain.Order{}
	for rows.Next() {
		o, err := scanOrder(rows)
		if err != nil {
			return nil, err
		}
		orders = append(orders, *o)
	}
	return orders, rows.Err()
}

func scanOrder(s scanner) (*domain.Order, error) {
	var o domain.Order
	err := s.Scan(
		&o.ID,
		&o.OrderNumber,
		&o.UserID,
		&o.ProductID,
		&o.ProductName,
		&o.Amount,
		&o.Contact,
		&o.PaymentMethod,
		&o.Status,
		&o.CreatedAt,
		&o.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &o, nil
}
