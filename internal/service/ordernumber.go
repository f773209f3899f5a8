package service

import (
	"fmt"
	"math/rand/v2"
	"strings"
	"time"
)

const DefaultOrderNumberAttempts = 10

// OrderNumberGenerator proposes human-shareable order numbers of the form
// PREFIX-TTTT-RRRRRR: four digits of the clock and six random digits.
// Candidates are not unique on their own; the ledger checks and retries.
type OrderNumberGenerator struct {
	prefix      string
	maxAttempts int
	source      func(now time.Time) string
}

func NewOrderNumberGenerator(prefix string, maxAttempts int) *OrderNumberGenerator {
	if maxAttempts < 1 {
		maxAttempts = DefaultOrderNumberAttempts
	}
	prefix = strings.ToUpper(strings.TrimSpace(prefix))
	g := &OrderNumberGenerator{prefix: prefix, maxAttempts: maxAttempts}
	g.source = g.random
	return g
}

// WithSource replaces the candidate source, e.g. to force collisions.
func (g *OrderNumberGenerator) WithSource(source func(now time.Time) string) *OrderNumberGenerator {
	g.source = source
	return g
}

func (g *OrderNumberGenerator) Candidate(now time.Time) string {
	return g.source(now)
}

func (g *OrderNumberGenerator) MaxAttempts() int { return g.maxAttempts }

func (g *OrderNumberGenerator) random(now time.Time) string {
	return fmt.Sprintf("%s-%04d-%06d", g.prefix, now.UnixMilli()%10000, rand.IntN(1000000))
}

// NormalizeOrderNumber makes customer-typed numbers comparable to stored ones.
func NormalizeOrderNumber(number string) string {
	return strings.ToUpper(strings.TrimSpace(number))
}
