package domain

import (
	"time"

	"github.com/google/uuid"
)

type OrderStatus string

const (
	OrderPending   OrderStatus = "PENDING"
	OrderPaid      OrderStatus = "PAID"
	OrderCancelled OrderStatus = "CANCELLED"
)

const PaymentMethodWhatsApp = "WhatsApp"

// transitions lists the legal edges out of each status. Terminal statuses
// have no entry.
var transitions = map[OrderStatus][]OrderStatus{
	OrderPending: {OrderPaid, OrderCancelled},
}

func (s OrderStatus) Valid() bool {
	return s == OrderPending || s == OrderPaid || s == OrderCancelled
}

func (s OrderStatus) IsTerminal() bool {
	return s.Valid() && len(transitions[s]) == 0
}

// CanTransition reports whether from -> to is a legal edge. Same-status
// requests are not edges; callers treat them as no-ops.
func CanTransition(from, to OrderStatus) bool {
	for _, next := range transitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type Order struct {
	ID            uuid.UUID     `json:"id"`
	OrderNumber   string        `json:"orderNumber"`
	UserID        uuid.NullUUID `json:"userId"`
	ProductID     uuid.UUID     `json:"productId"`
	ProductName   string        `json:"productName"`
	Amount        float64       `json:"amount"`
	Contact       string        `json:"contact"`
	PaymentMethod string        `json:"paymentMethod"`
	Status        OrderStatus   `json:"status"`
	CreatedAt     time.Time     `json:"createdAt"`
	UpdatedAt     time.Time     `json:"updatedAt"`
}

// NewOrder snapshots the product's title and effective price into a PENDING
// order. The snapshot is never refreshed from later catalog edits.
func NewOrder(number string, product Product, contact string, userID uuid.NullUUID, now time.Time) (*Order, error) {
	if number == "" {
		return nil, invalid("orderNumber", "is required")
	}
	normalized, err := NormalizeContact(contact)
	if err != nil {
		return nil, err
	}
	return &Order{
		ID:            uuid.New(),
		OrderNumber:   number,
		UserID:        userID,
		ProductID:     product.ID,
		ProductName:   product.Title,
		Amount:        product.EffectivePrice(),
		Contact:       normalized,
		PaymentMethod: PaymentMethodWhatsApp,
		Status:        OrderPending,
		CreatedAt:     now,
		UpdatedAt:     now,
	}, nil
}

// Transition moves the order to status to. It reports changed=false when the
// order already holds that status.
func (o *Order) Transition(to OrderStatus, now time.Time) (changed bool, err error) {
	if !to.Valid() {
		return false, invalid("status", "must be PENDING, PAID or CANCELLED")
	}
	if o.Status == to {
		return false, nil
	}
	if !CanTransition(o.Status, to) {
		return false, &TransitionError{From: o.Status, To: to}
	}
	o.Status = to
	o.UpdatedAt = now
	return true, nil
}

type TransitionError struct {
	From, To OrderStatus
}

func (e *TransitionError) Error() string {
	return ErrInvalidTransition.Error() + ": " + string(e.From) + " -> " + string(e.To)
}

func (e *TransitionError) Unwrap() error { return ErrInvalidTransition }
