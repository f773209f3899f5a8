package repo

import (
	"context"
	"digimart/internal/domain"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
)

// MemoryStore keeps all three collections in process. Ordered id slices
// preserve insertion order for listing; maps give O(1) keyed access.
type MemoryStore struct {
	mu sync.RWMutex

	products     map[uuid.UUID]domain.Product
	productOrder []uuid.UUID

	orders       map[uuid.UUID]domain.Order
	orderOrder   []uuid.UUID
	orderNumbers map[string]uuid.UUID

	users     map[uuid.UUID]domain.User
	userOrder []uuid.UUID
	emails    map[string]uuid.UUID
	subjects  map[string]uuid.UUID
}

func NewMemoryStore() *MemoryStore {
	return &MemoryStore{
		products:     make(map[uuid.UUID]domain.Product),
		orders:       make(map[uuid.UUID]domain.Order),
		orderNumbers: make(map[string]uuid.UUID),
		users:        make(map[uuid.UUID]domain.User),
		emails:       make(map[string]uuid.UUID),
		subjects:     make(map[string]uuid.UUID),
	}
}

func (m *MemoryStore) Products() ProductRepo { return &memoryProducts{m} }
func (m *MemoryStore) Orders() OrderRepo     { return &memoryOrders{m} }
func (m *MemoryStore) Users() UserRepo       { return &memoryUsers{m} }
func (m *MemoryStore) Tx() TxManager         { return &memoryTx{m} }

// A transaction holds the write lock for its whole duration; repositories
// called with its ctx skip their own locking.
type memoryTxKey struct{}

func (m *MemoryStore) inTx(ctx context.Context) bool {
	s, ok := ctx.Value(memoryTxKey{}).(*MemoryStore)
	return ok && s == m
}

func (m *MemoryStore) rlock(ctx context.Context) func() {
	if m.inTx(ctx) {
		return func() {}
	}
	m.mu.RLock()
	return m.mu.RUnlock
}

func (m *MemoryStore) wlock(ctx context.Context) func() {
	if m.inTx(ctx) {
		return func() {}
	}
	m.mu.Lock()
	return m.mu.Unlock
}

type memoryTx struct{ store *MemoryStore }

func (tx *memoryTx) WithTransaction(ctx context.Context, fn func(ctx context.Context) error) error {
	if tx.store.inTx(ctx) {
		return fn(ctx)
	}
	tx.store.mu.Lock()
	defer tx.store.mu.Unlock()
	return fn(context.WithValue(ctx, memoryTxKey{}, tx.store))
}

// products

type memoryProducts struct{ store *MemoryStore }

var _ ProductRepo = (*memoryProducts)(nil)

func (r *memoryProducts) Create(ctx context.Context, p *domain.Product) error {
	defer r.store.wlock(ctx)()
	if _, ok := r.store.products[p.ID]; ok {
		return fmt.Errorf("product %s: %w", p.ID, domain.ErrConflict)
	}
	r.store.products[p.ID] = p.Clone()
	r.store.productOrder = append(r.store.productOrder, p.ID)
	return nil
}

func (r *memoryProducts) FindByID(ctx context.Context, id uuid.UUID) (*domain.Product, error) {
	defer r.store.rlock(ctx)()
	p, ok := r.store.products[id]
	if !ok {
		return nil, fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	cp := p.Clone()
	return &cp, nil
}

func (r *memoryProducts) Update(ctx context.Context, p *domain.Product) error {
	defer r.store.wlock(ctx)()
	cur, ok := r.store.products[p.ID]
	if !ok {
		return fmt.Errorf("product %s: %w", p.ID, domain.ErrNotFound)
	}
	if cur.Version != p.Version {
		return fmt.Errorf("product %s version %d: %w", p.ID, p.Version, domain.ErrConflict)
	}
	p.Version++
	r.store.products[p.ID] = p.Clone()
	return nil
}

func (r *memoryProducts) Delete(ctx context.Context, id uuid.UUID) error {
	defer r.store.wlock(ctx)()
	if _, ok := r.store.products[id]; !ok {
		return fmt.Errorf("product %s: %w", id, domain.ErrNotFound)
	}
	delete(r.store.products, id)
	r.store.productOrder = slices.DeleteFunc(r.store.productOrder, func(x uuid.UUID) bool { return x == id })
	return nil
}

func (r *memoryProducts) List(ctx context.Context) ([]domain.Product, error) {
	defer r.store.rlock(ctx)()
	out := make([]domain.Product, 0, len(r.store.productOrder))
	for _, id := range r.store.productOrder {
		out = append(out, r.store.products[id].Clone())
	}
	return out, nil
}

// orders

type memoryOrders struct{ store *MemoryStore }

var _ OrderRepo = (*memoryOrders)(nil)

func (r *memoryOrders) Create(ctx context.Context, o *domain.Order) error {
	defer r.store.wlock(ctx)()
	if _, ok := r.store.orderNumbers[o.OrderNumber]; ok {
		return fmt.Errorf("order number %s: %w", o.OrderNumber, domain.ErrConflict)
	}
	if _, ok := r.store.orders[o.ID]; ok {
		return fmt.Errorf("order %s: %w", o.ID, domain.ErrConflict)
	}
	r.store.orders[o.ID] = *o
	r.store.orderOrder = append(r.store.orderOrder, o.ID)
	r.store.orderNumbers[o.OrderNumber] = o.ID
	return nil
}

func (r *memoryOrders) FindByID(ctx context.Context, id uuid.UUID) (*domain.Order, error) {
	defer r.store.rlock(ctx)()
	o, ok := r.store.orders[id]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	return &o, nil
}

func (r *memoryOrders) FindByOrderNumber(ctx context.Context, number string) (*domain.Order, error) {
	defer r.store.rlock(ctx)()
	id, ok := r.store.orderNumbers[number]
	if !ok {
		return nil, fmt.Errorf("order %s: %w", number, domain.ErrNotFound)
	}
	o := r.store.orders[id]
	return &o, nil
}

func (r *memoryOrders) OrderNumberExists(ctx context.Context, number string) (bool, error) {
	defer r.store.rlock(ctx)()
	_, ok := r.store.orderNumbers[number]
	return ok, nil
}

func (r *memoryOrders) UpdateStatus(ctx context.Context, id uuid.UUID, from, to domain.OrderStatus, at time.Time) error {
	defer r.store.wlock(ctx)()
	o, ok := r.store.orders[id]
	if !ok {
		return fmt.Errorf("order %s: %w", id, domain.ErrNotFound)
	}
	if o.Status != from {
		return fmt.Errorf("order %s no longer %s: %w", id, from, domain.ErrConflict)
	}
	o.Status = to
	o.UpdatedAt = at
	r.store.orders[id] = o
	return nil
}

func (r *memoryOrders) List(ctx context.Context, f OrderFilter) ([]domain.Order, error) {
	defer r.store.rlock(ctx)()
	out := []domain.Order{}
	for _, id := range r.store.orderOrder {
		if o := r.store.orders[id]; f.match(o) {
			out = append(out, o)
		}
	}
	return out, nil
}

func (r *memoryOrders) FindPendingBefore(ctx context.Context, before time.Time, after uuid.UUID, limit int) ([]domain.Order, error) {
	defer r.store.rlock(ctx)()
	ids := r.store.orderOrder
	if after != uuid.Nil {
		if i := slices.Index(ids, after); i >= 0 {
			ids = ids[i+1:]
		}
	}
	out := []domain.Order{}
	for _, id := range ids {
		if len(out) >= limit {
			break
		}
		o := r.store.orders[id]
		if o.Status == domain.OrderPending && o.CreatedAt.Before(before) {
			out = append(out, o)
		}
	}
	return out, nil
}

// users

type memoryUsers struct{ store *MemoryStore }

var _ UserRepo = (*memoryUsers)(nil)

func (r *memoryUsers) Create(ctx context.Context, u *domain.User) error {
	defer r.store.wlock(ctx)()
	if _, ok := r.store.emails[u.Email]; ok {
		return fmt.Errorf("user %s: %w", u.Email, domain.ErrConflict)
	}
	if u.IdentitySubject != "" {
		if _, ok := r.store.subjects[u.IdentitySubject]; ok {
			return fmt.Errorf("identity %s: %w", u.IdentitySubject, domain.ErrConflict)
		}
		r.store.subjects[u.IdentitySubject] = u.ID
	}
	r.store.users[u.ID] = *u
	r.store.userOrder = append(r.store.userOrder, u.ID)
	r.store.emails[u.Email] = u.ID
	return nil
}

func (r *memoryUsers) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	defer r.store.rlock(ctx)()
	u, ok := r.store.users[id]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	return &u, nil
}

func (r *memoryUsers) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	defer r.store.rlock(ctx)()
	return r.byKey(r.store.emails, email)
}

func (r *memoryUsers) FindByIdentitySubject(ctx context.Context, subject string) (*domain.User, error) {
	defer r.store.rlock(ctx)()
	return r.byKey(r.store.subjects, subject)
}

func (r *memoryUsers) byKey(index map[string]uuid.UUID, key string) (*domain.User, error) {
	id, ok := index[key]
	if !ok {
		return nil, fmt.Errorf("user %s: %w", key, domain.ErrNotFound)
	}
	u := r.store.users[id]
	return &u, nil
}

func (r *memoryUsers) LinkIdentity(ctx context.Context, id uuid.UUID, subject string) error {
	defer r.store.wlock(ctx)()
	u, ok := r.store.users[id]
	if !ok {
		return fmt.Errorf("user %s: %w", id, domain.ErrNotFound)
	}
	if owner, ok := r.store.subjects[subject]; ok && owner != id {
		return fmt.Errorf("identity %s: %w", subject, domain.ErrConflict)
	}
	if u.IdentitySubject != "" {
		delete(r.store.subjects, u.IdentitySubject)
	}
	u.IdentitySubject = subject
	r.store.users[id] = u
	r.store.subjects[subject] = id
	return nil
}

func (r *memoryUsers) List(ctx context.Context) ([]domain.User, error) {
	defer r.store.rlock(ctx)()
	out := make([]domain.User, 0, len(r.store.userOrder))
	for _, id := range r.store.userOrder {
		out = append(out, r.store.users[id])
	}
	return out, nil
}
