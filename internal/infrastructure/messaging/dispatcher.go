package messaging

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Dispatcher hands a message to an external channel. It never reports
// delivery and never blocks the caller.
type Dispatcher interface {
	Dispatch(ctx context.Context, contact, text string)
}

// Channel is the transport behind a dispatcher.
type Channel interface {
	Send(ctx context.Context, contact, text string) error
}

type message struct {
	contact string
	text    string
}

// AsyncDispatcher queues messages on a buffered channel drained by one
// background goroutine. A full queue drops the message.
type AsyncDispatcher struct {
	channel Channel
	logger  *zap.Logger
	queue   chan message
	done    chan struct{}
	once    sync.Once
	mu      sync.RWMutex
	closed  bool
}

func NewAsyncDispatcher(channel Channel, buffer int, logger *zap.Logger) *AsyncDispatcher {
	if buffer < 1 {
		buffer = 1
	}
	d := &AsyncDispatcher{
		channel: channel,
		logger:  logger,
		queue:   make(chan message, buffer),
		done:    make(chan struct{}),
	}
	go d.run()
	return d
}

func (d *AsyncDispatcher) Dispatch(_ context.Context, contact, text string) {
	d.mu.RLock()
	defer d.mu.RUnlock()
	if d.closed {
		d.logger.Warn("dispatcher closed, dropping message", zap.String("contact", contact))
		return
	}
	select {
	case d.queue <- message{contact: contact, text: text}:
	default:
		d.logger.Warn("dispatch queue full, dropping message", zap.String("contact", contact))
	}
}

func (d *AsyncDispatcher) run() {
	defer close(d.done)
	for m := range d.queue {
		if err := d.channel.Send(context.Background(), m.contact, m.text); err != nil {
			d.logger.Warn("message hand-off failed", zap.String("contact", m.contact), zap.Error(err))
		}
	}
}

// Close stops accepting messages and waits for queued ones to be handed off
// or for ctx to end.
func (d *AsyncDispatcher) Close(ctx context.Context) error {
	d.once.Do(func() {
		d.mu.Lock()
		d.closed = true
		close(d.queue)
		d.mu.Unlock()
	})
	select {
	case <-d.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// LogChannel only records messages in the log.
type LogChannel struct {
	Logger *zap.Logger
}

func (c LogChannel) Send(_ context.Context, contact, text string) error {
	c.Logger.Info("message", zap.String("contact", contact), zap.String("text", text))
	return nil
}
