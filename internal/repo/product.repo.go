package repo

import (
	"context"
	"database/sql"
	"digimart/internal/domain"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/google/uuid"
)

type productRepo struct {
	db *sql.DB
}

func NewProductRepo(db *sql.DB) ProductRepo {
	return &productRepo{db: db}
}

const productColumns = `id, title, description, images, video_url, price, discount_price, category,
	file_url, source_code, tags, demo_link, rating, reviews_count, status, version, created_at, updated_at`

func (r *productRepo) Create(ctx context.Context, p *domain.Product) error {
	images, files, tags, err := encodeProductJSON(p)
	if err != nil {
		return err
	}
	query := `INSERT INTO products (` + productColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18)`
	_, err = conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.Title, p.Description, images, p.VideoURL, p.Price, nullPrice(p.DiscountPrice), string(p.Category),
		p.FileURL, files, tags, p.DemoLink, p.Rating, p.ReviewsCount, string(p.Status), p.Version, p.CreatedAt, p.UpdatedAt,
	)
	if isUniqueViolation(err) {
		return fmt.Errorf("product %s: %w", p.ID, domain.ErrConflict)
	}
	return err
}

func (r *productRepo) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	row := conn(ctx, r.db).QueryRowContext(ctx, `SELECT `+productColumns+` FROM products WHERE id = $1`, id)
	p, err := scanProduct(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	if err != nil {
		return nil, err
	}
	return p, nil
}

func (r *productRepo) Update(ctx context.Context, p *domain.Product) error {
	images, files, tags, err := encodeProductJSON(p)
	if err != nil {
		return err
	}
	query := `
		UPDATE products
		SET title = $3, description = $4, images = $5, video_url = $6, price = $7, discount_price = $8,
		    category = $9, file_url = $10, source_code = $11, tags = $12, demo_link = $13,
		    rating = $14, reviews_count = $15, status = $16, updated_at = $17, version = version + 1
		WHERE id = $1 AND version = $2
	`
	res, err := conn(ctx, r.db).ExecContext(ctx, query,
		p.ID, p.Version, p.Title, p.Description, images, p.VideoURL, p.Price, nullPrice(p.DiscountPrice),
		string(p.Category), p.FileURL, files, tags, p.DemoLink, p.Rating, p.ReviewsCount, string(p.Status), p.UpdatedAt,
	)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.FindByID(ctx, p.ID); err != nil {
			return err
		}
		return fmt.Errorf("product %s version %d: %w", p.ID, p.Version, domain.ErrConflict)
	}
	p.Version++
	return nil
}

func (r *productRepo) Delete(ctx context.Context, id uuid.UUID) error {
	res, err := conn(ctx, r.db).ExecContext(ctx, `DELETE FROM products WHERE id = $1`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	return nil
}

func (r *productRepo) List(ctx context.Context) ([]domain.Product, error) {
	rows, err := conn(ctx, r.db).QueryContext(ctx, `SELECT `+productColumns+` FROM products ORDER BY seq`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	products := []domain.Product{}
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, err
		}
		products = append(products, *p)
	}
	return products, rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanProduct(s scanner) (*domain.Product, error) {
	var (
		p                   domain.Product
		discount            sql.NullFloat64
		images, files, tags []byte
	)
	err := s.Scan(
		&p.ID, &p.Title, &p.Description, &images, &p.VideoURL, &p.Price, &discount, &p.Category,
		&p.FileURL, &files, &tags, &p.DemoLink, &p.Rating, &p.ReviewsCount, &p.Status, &p.Version,
		&p.CreatedAt, &p.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	if discount.Valid {
		d := discount.Float64
		p.DiscountPrice = &d
	}
	if err := json.Unmarshal(images, &p.Images); err != nil {
		return nil, fmt.Errorf("decode images: %w", err)
	}
	if err := json.Unmarshal(files, &p.SourceCode); err != nil {
		return nil, fmt.Errorf("decode source code: %w", err)
	}
	if err := json.Unmarshal(tags, &p.Tags); err != nil {
		return nil, fmt.Errorf("decode tags: %w", err)
	}
	return &p, nil
}

func encodeProductJSON(p *domain.Product) (images, files, tags string, err error) {
	enc := func(v any) string {
		if err != nil {
			return ""
		}
		var b []byte
		b, err = json.Marshal(v)
		return string(b)
	}
	c := p.Clone()
	images, files, tags = enc(c.Images), enc(c.SourceCode), enc(c.Tags)
	return images, files, tags, err
}

func nullPrice(v *float64) sql.NullFloat64 {
	if v == nil {
		return sql.NullFloat64{}
	}
	return sql.NullFloat64{Float64: *v, Valid: true}
}
