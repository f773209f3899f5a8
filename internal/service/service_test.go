package service

import (
	"context"
	"sync"
	"testing"
	"time"

	"digimart/internal/auth"
	"digimart/internal/domain"
	"digimart/internal/infrastructure/messaging"
	"digimart/internal/repo"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"golang.org/x/crypto/bcrypt"
)

const adminContact = "923264236393"

type sent struct {
	contact string
	text    string
}

// recordingDispatcher keeps every hand-off so tests can inspect them.
type recordingDispatcher struct {
	mu   sync.Mutex
	sent []sent
}

func (d *recordingDispatcher) Dispatch(_ context.Context, contact, text string) {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.sent = append(d.sent, sent{contact: contact, text: text})
}

func (d *recordingDispatcher) messages() []sent {
	d.mu.Lock()
	defer d.mu.Unlock()
	return append([]sent(nil), d.sent...)
}

type harness struct {
	store      *repo.MemoryStore
	catalog    CatalogService
	orders     OrderService
	auth       AuthService
	numbers    *OrderNumberGenerator
	dispatcher *recordingDispatcher
	admin      domain.Actor
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	store := repo.NewMemoryStore()
	logger := zap.NewNop()
	h := &harness{
		store:      store,
		numbers:    NewOrderNumberGenerator("DIGI", DefaultOrderNumberAttempts),
		dispatcher: &recordingDispatcher{},
	}
	h.catalog = NewCatalogService(store.Tx(), store.Products(), logger)
	h.orders = NewOrderService(store.Tx(), store.Orders(), store.Products(), h.numbers, Notifier{
		Dispatcher:   h.dispatcher,
		Composer:     messaging.Composer{BaseURL: "https://shop.test"},
		AdminContact: adminContact,
	}, logger)
	h.auth = NewAuthService(store.Users(), auth.NewPasswordHasher(bcrypt.MinCost), auth.NewTokenManager("test-secret", time.Hour), logger)

	admin, err := h.auth.EnsureAdmin(context.Background(), "Admin", "admin@digimart.test", "admin-password")
	require.NoError(t, err)
	h.admin = domain.ActorFor(*admin)
	return h
}

func (h *harness) addProduct(t *testing.T, spec domain.ProductSpec) *domain.Product {
	t.Helper()
	if spec.Category == "" {
		spec.Category = domain.CategorySoftware
	}
	p, err := h.catalog.AddProduct(context.Background(), h.admin, spec)
	require.NoError(t, err)
	return p
}

func (h *harness) customer(t *testing.T, email string) domain.Actor {
	t.Helper()
	res, err := h.auth.Register(context.Background(), "Customer", email, "correct-horse")
	require.NoError(t, err)
	return domain.ActorFor(*res.User)
}

func price(v float64) *float64 { return &v }
