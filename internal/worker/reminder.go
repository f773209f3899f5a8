package worker

import (
	"context"
	"digimart/internal/infrastructure/messaging"
	"digimart/internal/repo"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
)

const reminderBatch = 100

// ReminderWorker nudges the administrator about orders left PENDING longer
// than olderThan. Each order is reminded once per process lifetime and its
// status is never touched.
type ReminderWorker struct {
	orders       repo.OrderRepo
	dispatcher   messaging.Dispatcher
	composer     messaging.Composer
	adminContact string
	interval     time.Duration
	olderThan    time.Duration
	logger       *zap.Logger
	now          func() time.Time

	mu       sync.Mutex
	reminded map[string]struct{}
}

func NewReminderWorker(
	orders repo.OrderRepo,
	dispatcher messaging.Dispatcher,
	composer messaging.Composer,
	adminContact string,
	interval time.Duration,
	olderThan time.Duration,
	logger *zap.Logger,
) *ReminderWorker {
	return &ReminderWorker{
		orders:       orders,
		dispatcher:   dispatcher,
		composer:     composer,
		adminContact: adminContact,
		interval:     interval,
		olderThan:    olderThan,
		logger:       logger,
		now:          time.Now,
		reminded:     make(map[string]struct{}),
	}
}

func (w *ReminderWorker) Run(ctx context.Context) {
	ticker := time.NewTicker(w.interval)
	defer ticker.Stop()

	w.logger.Info("reminder worker started", zap.Duration("interval", w.interval), zap.Duration("older_than", w.olderThan))

	for {
		select {
		case <-ctx.Done():
			w.logger.Info("reminder worker stopped")
			return
		case <-ticker.C:
			if _, err := w.process(ctx); err != nil {
				w.logger.Error("pending reminder sweep failed", zap.Error(err))
			}
		}
	}
}

// process sends reminders for stale pending orders and reports how many went
// out. It walks the whole backlog a page at a time.
func (w *ReminderWorker) process(ctx context.Context) (int, error) {
	before := w.now().Add(-w.olderThan)

	w.mu.Lock()
	defer w.mu.Unlock()

	still := make(map[string]struct{})
	sent := 0
	after := uuid.Nil
	for {
		page, err := w.orders.FindPendingBefore(ctx, before, after, reminderBatch)
		if err != nil {
			return sent, err
		}
		for _, o := range page {
			still[o.OrderNumber] = struct{}{}
			if _, ok := w.reminded[o.OrderNumber]; ok {
				continue
			}
			w.dispatcher.Dispatch(ctx, w.adminContact, w.composer.Compose(messaging.AdminPendingReminder, o))
			w.reminded[o.OrderNumber] = struct{}{}
			sent++
		}
		if len(page) < reminderBatch {
			break
		}
		if err := ctx.Err(); err != nil {
			return sent, err
		}
		after = page[len(page)-1].ID
	}

	if sent > 0 {
		w.logger.Info("pending orders reminded", zap.Int("count", sent))
	}
	// orders no longer pending leave the set so it stays bounded by the backlog
	for n := range w.reminded {
		if _, ok := still[n]; !ok {
			delete(w.reminded, n)
		}
	}
	return sent, nil
}
