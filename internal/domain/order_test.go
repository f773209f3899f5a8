package domain

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testProduct(t *testing.T) *Product {
	t.Helper()
	p, err := NewProduct(ProductSpec{Title: "Starter Kit", Price: 49.99, DiscountPrice: price(29.99), Category: CategoryTemplates}, time.Now())
	require.NoError(t, err)
	return p
}

func TestNewOrder_Snapshot(t *testing.T) {
	p := testProduct(t)
	o, err := NewOrder("DIGI-0001-000001", *p, " +1 000-000-0000 ", uuid.NullUUID{}, time.Now())
	require.NoError(t, err)

	assert.Equal(t, OrderPending, o.Status)
	assert.Equal(t, 29.99, o.Amount)
	assert.Equal(t, "Starter Kit", o.ProductName)
	assert.Equal(t, p.ID, o.ProductID)
	assert.Equal(t, "+10000000000", o.Contact)
	assert.Equal(t, PaymentMethodWhatsApp, o.PaymentMethod)

	p.Title = "Renamed"
	p.Price = 10
	p.DiscountPrice = nil
	assert.Equal(t, 29.99, o.Amount)
	assert.Equal(t, "Starter Kit", o.ProductName)
}

func TestNewOrder_RequiresContact(t *testing.T) {
	_, err := NewOrder("DIGI-1", *testProduct(t), "   ", uuid.NullUUID{}, time.Now())
	require.ErrorIs(t, err, ErrValidation)
}

func TestTransitions(t *testing.T) {
	tests := []struct {
		from, to OrderStatus
		changed  bool
		err      error
	}{
		{OrderPending, OrderPaid, true, nil},
		{OrderPending, OrderCancelled, true, nil},
		{OrderPending, OrderPending, false, nil},
		{OrderPaid, OrderPaid, false, nil},
		{OrderCancelled, OrderCancelled, false, nil},
		{OrderPaid, OrderPending, false, ErrInvalidTransition},
		{OrderPaid, OrderCancelled, false, ErrInvalidTransition},
		{OrderCancelled, OrderPaid, false, ErrInvalidTransition},
		{OrderCancelled, OrderPending, false, ErrInvalidTransition},
		{OrderPending, "REFUNDED", false, ErrValidation},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			o := &Order{Status: tt.from}
			changed, err := o.Transition(tt.to, time.Now())
			if tt.err != nil {
				require.ErrorIs(t, err, tt.err)
				assert.Equal(t, tt.from, o.Status)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.changed, changed)
			assert.Equal(t, tt.to, o.Status)
		})
	}
}

func TestIsTerminal(t *testing.T) {
	assert.False(t, OrderPending.IsTerminal())
	assert.True(t, OrderPaid.IsTerminal())
	assert.True(t, OrderCancelled.IsTerminal())
}

func TestNormalizeContact(t *testing.T) {
	tests := []struct {
		in, want string
		ok       bool
	}{
		{"+10000000000", "+10000000000", true},
		{"0300 123-4567", "03001234567", true},
		{"Buyer@Example.com", "buyer@example.com", true},
		{"", "", false},
		{"12345", "", false},
		{"call me", "", false},
		{"1+2345678", "", false},
		{"not@an@email", "", false},
	}
	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := NormalizeContact(tt.in)
			if !tt.ok {
				require.ErrorIs(t, err, ErrValidation)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
	assert.Equal(t, "923264236393", ContactDigits("+92 326 4236393"))
}
