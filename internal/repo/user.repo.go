package repo

import (
	"context"
	"database/sql"
	"digimart/internal/domain"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type userRepo struct {
	db *sql.DB
}

func NewUserRepo(db *sql.DB) UserRepo {
	return &userRepo{db: db}
}

const userColumns = `id, name, email, role, password_hash, identity_subject, created_at`

func (r *userRepo) Create(ctx context.Context, u *domain.User) error {
	_, err := conn(ctx, r.db).ExecContext(ctx,
		`INSERT INTO users (`+userColumns+`) VALUES ($1, $2, $3, $4, $5, $6, $7)`,
		u.ID, u.Name, u.Email, string(u.Role), u.PasswordHash, nullString(u.IdentitySubject), u.CreatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("user %s: %w", u.Email, domain.ErrConflict)
	}
	return err
}

func (r *userRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, `WHERE id = $1`, id)
}

func (r *userRepo) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	return r.findOne(ctx, `WHERE email = $1`, email)
}

func (r *userRepo) FindByIdentitySubject(ctx context.Context, subject string) (*domain.User, error) {
	return r.findOne(ctx, `WHERE identity_subject = $1`, subject)
}

func (r *userRepo) LinkIdentity(ctx context.Context, id uuid.UUID, subject string) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `UPDATE users SET identity_subject = $1 WHERE id = $2`, subject, id)
	if isUniqueViolation(err) {
		return fmt.Errorf("identity %s: %w", subject, domain.ErrConflict)
	}
	if err != nil {
		return err
	}
	if n, err := res.RowsAffected(); err != nil {
		return err
	} else if n == 0 {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *userRepo) List(ctx context.Context) ([]domain.User, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+userColumns+` FROM users ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	users := []domain.User{}
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		users = append(users, *u)
	}
	return users, rows.Err()
}

func (r *userRepo) findOne(ctx context.Context, where string, arg any) (*domain.User, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+userColumns+` FROM users `+where, arg)
	u, err := scanUser(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("user %v: %w", arg, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return u, nil
}

func scanUser(s scanner) (*domain.User, error) {
	var (
		u       domain.User
		subject sql.NullString
	)
	if err := s.Scan(&u.ID, &u.Name, &u.Email, &u.Role, &u.PasswordHash, &subject, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.IdentitySubject = subject.String
	return &u, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
