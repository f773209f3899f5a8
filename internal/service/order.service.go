package service

import (
	"context"
	"digimart/internal/domain"
	"digimart/internal/entitlement"
	"digimart/internal/infrastructure/messaging"
	"digimart/internal/repo"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

type OrderService interface {
	CreateOrder(ctx context.Context, actor domain.Actor, productID uuid.UUID, contact string) (*domain.Order, error)
	UpdateOrderStatus(ctx context.Context, actor domain.Actor, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error)
	ListOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error)
	ListOrdersFor(ctx context.Context, actor domain.Actor, f repo.OrderFilter) ([]domain.Order, error)
	// TrackOrder and Access need no authentication: the order number is the key.
	TrackOrder(ctx context.Context, orderNumber string) (*entitlement.Tracking, error)
	Access(ctx context.Context, orderNumber string) (*entitlement.View, error)
}

// Notifier bundles what the ledger needs to alert people outside the system.
type Notifier struct {
	Dispatcher   messaging.Dispatcher
	Composer     messaging.Composer
	AdminContact string
}

type orderService struct {
	tx       repo.TxManager
	orders   repo.OrderRepo
	products repo.ProductRepo
	numbers  *OrderNumberGenerator
	notifier Notifier
	logger   *zap.Logger
	now      func() time.Time
}

func NewOrderService(
	tx repo.TxManager,
	orders repo.OrderRepo,
	products repo.ProductRepo,
	numbers *OrderNumberGenerator,
	notifier Notifier,
	logger *zap.Logger,
) OrderService {
	return &orderService{
		tx:       tx,
		orders:   orders,
		products: products,
		numbers:  numbers,
		notifier: notifier,
		logger:   logger,
		now:      time.Now,
	}
}

func (s *orderService) CreateOrder(ctx context.Context, actor domain.Actor, productID uuid.UUID, contact string) (*domain.Order, error) {
	if _, err := domain.NormalizeContact(contact); err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, productID)
	if err != nil {
		return nil, err
	}
	if product.Status != domain.ProductActive {
		return nil, domain.Invalid("productId", "is not available for purchase")
	}

	var userID uuid.NullUUID
	if actor.IsAuthenticated() {
		userID = uuid.NullUUID{UUID: actor.UserID, Valid: true}
	}

	now := s.now().UTC()
	for attempt := 1; attempt <= s.numbers.MaxAttempts(); attempt++ {
		number := s.numbers.Candidate(now)
		taken, err := s.orders.OrderNumberExists(ctx, number)
		if err != nil {
			return nil, err
		}
		if taken {
			s.logger.Debug("order number collision", zap.String("order_number", number), zap.Int("attempt", attempt))
			continue
		}

		order, err := domain.NewOrder(number, *product, contact, userID, now)
		if err != nil {
			return nil, err
		}
		// A racing writer can still claim the number; the unique key rejects it.
		err = s.orders.Create(ctx, order)
		if errors.Is(err, domain.ErrConflict) {
			s.logger.Debug("order number claimed concurrently", zap.String("order_number", number), zap.Int("attempt", attempt))
			continue
		}
		if err != nil {
			return nil, fmt.Errorf("create order: %w", err)
		}

		s.logger.Info("order created",
			zap.String("order_number", order.OrderNumber),
			zap.Stringer("product_id", order.ProductID),
			zap.Float64("amount", order.Amount),
		)
		s.notify(ctx, s.notifier.AdminContact, messaging.AdminPurchaseRequest, *order)
		return order, nil
	}
	return nil, fmt.Errorf("order number after %d attempts: %w", s.numbers.MaxAttempts(), domain.ErrExhaustedRetries)
}

func (s *orderService) UpdateOrderStatus(ctx context.Context, actor domain.Actor, orderID uuid.UUID, status domain.OrderStatus) (*domain.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}

	var (
		order   *domain.Order
		changed bool
	)
	err := s.tx.WithTransaction(ctx, func(ctx context.Context) error {
		o, err := s.orders.FindByID(ctx, orderID)
		if err != nil {
			return err
		}
		from := o.Status
		changed, err = o.Transition(status, s.now().UTC())
		if err != nil {
			return err
		}
		if changed {
			if err := s.orders.UpdateStatus(ctx, o.ID, from, o.Status, o.UpdatedAt); err != nil {
				return err
			}
		}
		order = o
		return nil
	})
	if errors.Is(err, domain.ErrConflict) {
		// someone else moved the order first; report against its current state
		current, ferr := s.orders.FindByID(ctx, orderID)
		if ferr != nil {
			return nil, ferr
		}
		if current.Status == status {
			return current, nil
		}
		return nil, &domain.TransitionError{From: current.Status, To: status}
	}
	if err != nil {
		return nil, err
	}

	if changed {
		s.logger.Info("order status changed", zap.String("order_number", order.OrderNumber), zap.String("status", string(order.Status)))
		if order.Status == domain.OrderPaid {
			s.notify(ctx, order.Contact, messaging.CustomerPaymentVerified, *order)
		}
	}
	return order, nil
}

func (s *orderService) ListOrders(ctx context.Context, actor domain.Actor) ([]domain.Order, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.orders.List(ctx, repo.OrderFilter{})
}

func (s *orderService) ListOrdersFor(ctx context.Context, actor domain.Actor, f repo.OrderFilter) ([]domain.Order, error) {
	if !actor.IsAdmin() {
		// customers may only see their own account's orders
		if !actor.IsAuthenticated() {
			return nil, fmt.Errorf("%w: sign in to list orders", domain.ErrUnauthorized)
		}
		if f.Contact != "" || (f.UserID.Valid && f.UserID.UUID != actor.UserID) {
			return nil, fmt.Errorf("%w: cannot list other customers' orders", domain.ErrUnauthorized)
		}
		f.UserID = uuid.NullUUID{UUID: actor.UserID, Valid: true}
	}
	if f.Contact != "" {
		c, err := domain.NormalizeContact(f.Contact)
		if err != nil {
			return nil, err
		}
		f.Contact = c
	}
	if f.Status != "" && !f.Status.Valid() {
		return nil, domain.Invalid("status", "must be PENDING, PAID or CANCELLED")
	}
	return s.orders.List(ctx, f)
}

func (s *orderService) TrackOrder(ctx context.Context, orderNumber string) (*entitlement.Tracking, error) {
	order, err := s.findByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	t := entitlement.Track(*order)
	return &t, nil
}

func (s *orderService) findByNumber(ctx context.Context, orderNumber string) (*domain.Order, error) {
	number := NormalizeOrderNumber(orderNumber)
	if number == "" {
		return nil, domain.Invalid("orderNumber", "is required")
	}
	return s.orders.FindByOrderNumber(ctx, number)
}

func (s *orderService) Access(ctx context.Context, orderNumber string) (*entitlement.View, error) {
	order, err := s.findByNumber(ctx, orderNumber)
	if err != nil {
		return nil, err
	}
	product, err := s.products.FindByID(ctx, order.ProductID)
	if errors.Is(err, domain.ErrNotFound) {
		product = nil
	} else if err != nil {
		return nil, err
	}
	view := entitlement.Resolve(*order, product, s.notifier.AdminContact)
	return &view, nil
}

// notify hands off without waiting; the request context may end before the
// message leaves the process.
func (s *orderService) notify(ctx context.Context, contact string, t messaging.Template, o domain.Order) {
	if s.notifier.Dispatcher == nil || contact == "" {
		return
	}
	s.notifier.Dispatcher.Dispatch(context.WithoutCancel(ctx), contact, s.notifier.Composer.Compose(t, o))
}
