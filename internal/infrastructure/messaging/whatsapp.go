package messaging

import (
	"context"
	"digimart/internal/domain"
	"errors"
	"net/url"
	"strings"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	ErrNoDigits = errors.New("contact has no digits")
	ErrNotPhone = errors.New("contact is not a phone number")
)

// ChatLink builds a WhatsApp click-to-chat link with the text prefilled.
// Email contacts are refused; their digits are not a phone number.
func ChatLink(contact, text string) (string, error) {
	if strings.Contains(contact, "@") {
		return "", ErrNotPhone
	}
	digits := domain.ContactDigits(contact)
	if digits == "" {
		return "", ErrNoDigits
	}
	link := "https://wa.me/" + digits
	if text != "" {
		link += "?text=" + url.QueryEscape(text)
	}
	return link, nil
}

type OutboxEntry struct {
	Contact   string    `json:"contact"`
	Text      string    `json:"text"`
	Link      string    `json:"link"`
	CreatedAt time.Time `json:"createdAt"`
}

// WhatsAppChannel turns each message into a click-to-chat link and keeps the
// most recent ones in a bounded outbox for an operator to open.
type WhatsAppChannel struct {
	mu      sync.Mutex
	entries []OutboxEntry
	limit   int
	logger  *zap.Logger
	now     func() time.Time
}

func NewWhatsAppChannel(limit int, logger *zap.Logger) *WhatsAppChannel {
	if limit < 1 {
		limit = 100
	}
	return &WhatsAppChannel{limit: limit, logger: logger, now: time.Now}
}

func (c *WhatsAppChannel) Send(_ context.Context, contact, text string) error {
	link, err := ChatLink(contact, text)
	if err != nil {
		return err
	}
	c.mu.Lock()
	c.entries = append(c.entries, OutboxEntry{Contact: contact, Text: text, Link: link, CreatedAt: c.now()})
	if over := len(c.entries) - c.limit; over > 0 {
		c.entries = append(c.entries[:0:0], c.entries[over:]...)
	}
	c.mu.Unlock()

	c.logger.Info("whatsapp hand-off ready", zap.String("contact", contact), zap.String("link", link))
	return nil
}

// Outbox returns the retained entries, newest last.
func (c *WhatsAppChannel) Outbox() []OutboxEntry {
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]OutboxEntry, len(c.entries))
	copy(out, c.entries)
	return out
}
