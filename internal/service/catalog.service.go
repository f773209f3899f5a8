package service

import (
	"context"
	"digimart/internal/domain"
	"digimart/internal/entitlement"
	"digimart/internal/repo"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

// ProductQuery narrows the public catalog. Zero fields match everything.
type ProductQuery struct {
	Category domain.Category
	Search   string
}

type CatalogService interface {
	AddProduct(ctx context.Context, actor domain.Actor, spec domain.ProductSpec) (*domain.Product, error)
	UpdateProduct(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error)
	DeleteProduct(ctx context.Context, actor domain.Actor, id uuid.UUID) error
	// ListProducts and GetProduct return full records, protected content
	// included, and are admin-only. ListProducts keeps insertion order.
	ListProducts(ctx context.Context, actor domain.Actor) ([]domain.Product, error)
	GetProduct(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Product, error)
	// BrowseProducts and GetListing expose Active products only, as public listings.
	BrowseProducts(ctx context.Context, q ProductQuery) ([]entitlement.Listing, error)
	GetListing(ctx context.Context, id uuid.UUID) (*entitlement.Listing, error)
}

// Concurrent edits retry the read-merge-write this many times.
const maxUpdateAttempts = 3

type catalogService struct {
	tx       repo.TxManager
	products repo.ProductRepo
	logger   *zap.Logger
	now      func() time.Time
}

func NewCatalogService(tx repo.TxManager, products repo.ProductRepo, logger *zap.Logger) CatalogService {
	return &catalogService{tx: tx, products: products, logger: logger, now: time.Now}
}

func (s *catalogService) AddProduct(ctx context.Context, actor domain.Actor, spec domain.ProductSpec) (*domain.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	p, err := domain.NewProduct(spec, s.now().UTC())
	if err != nil {
		return nil, err
	}
	if err := s.products.Create(ctx, p); err != nil {
		return nil, fmt.Errorf("create product: %w", err)
	}
	s.logger.Info("product added", zap.Stringer("product_id", p.ID), zap.String("title", p.Title))
	return p, nil
}

func (s *catalogService) UpdateProduct(ctx context.Context, actor domain.Actor, id uuid.UUID, patch domain.ProductPatch) (*domain.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var updated *domain.Product
	var err error
	for attempt := 0; attempt < maxUpdateAttempts; attempt++ {
		err = s.tx.WithTransaction(ctx, func(ctx context.Context) error {
			p, err := s.products.FindByID(ctx, id)
			if err != nil {
				return err
			}
			if err := p.Apply(patch, s.now().UTC()); err != nil {
				return err
			}
			if err := s.products.Update(ctx, p); err != nil {
				return err
			}
			updated = p
			return nil
		})
		if !errors.Is(err, domain.ErrConflict) {
			break
		}
		s.logger.Debug("product update lost a race, retrying", zap.Stringer("product_id", id), zap.Int("attempt", attempt+1))
	}
	if err != nil {
		return nil, err
	}
	s.logger.Info("product updated", zap.Stringer("product_id", id))
	return updated, nil
}

func (s *catalogService) DeleteProduct(ctx context.Context, actor domain.Actor, id uuid.UUID) error {
	if err := requireAdmin(actor); err != nil {
		return err
	}
	if err := s.products.Delete(ctx, id); err != nil {
		return err
	}
	s.logger.Info("product deleted", zap.Stringer("product_id", id))
	return nil
}

func (s *catalogService) ListProducts(ctx context.Context, actor domain.Actor) ([]domain.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.products.List(ctx)
}

func (s *catalogService) GetProduct(ctx context.Context, actor domain.Actor, id uuid.UUID) (*domain.Product, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.products.FindByID(ctx, id)
}

func (s *catalogService) BrowseProducts(ctx context.Context, q ProductQuery) ([]entitlement.Listing, error) {
	products, err := s.products.List(ctx)
	if err != nil {
		return nil, err
	}
	search := strings.ToLower(strings.TrimSpace(q.Search))
	out := make([]domain.Product, 0, len(products))
	for _, p := range products {
		if p.Status != domain.ProductActive {
			continue
		}
		if q.Category != "" && p.Category != q.Category {
			continue
		}
		if search != "" && !matches(p, search) {
			continue
		}
		out = append(out, p)
	}
	return entitlement.PublicListings(out), nil
}

func (s *catalogService) GetListing(ctx context.Context, id uuid.UUID) (*entitlement.Listing, error) {
	p, err := s.products.FindByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if p.Status != domain.ProductActive {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	l := entitlement.PublicListing(*p)
	return &l, nil
}

func matches(p domain.Product, needle string) bool {
	if strings.Contains(strings.ToLower(p.Title), needle) || strings.Contains(strings.ToLower(p.Description), needle) {
		return true
	}
	for _, t := range p.Tags {
		if strings.Contains(strings.ToLower(t), needle) {
			return true
		}
	}
	return false
}
