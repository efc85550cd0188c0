// Package rollhistory keeps the recent rolls of a play session. Entries
// expire on their own; nothing here outlives the session.
package rollhistory

import (
	"context"
	"time"

	"github.com/KirkDiggler/grimoire/internal/clock"
	gerr "github.com/KirkDiggler/grimoire/internal/errors"
	"github.com/KirkDiggler/grimoire/internal/resolver"
	"github.com/KirkDiggler/grimoire/internal/uuid"
)

const (
	DefaultTTL        = 12 * time.Hour
	DefaultMaxEntries = 50

	idPrefix = "roll_"
)

// Entry is one stored roll
type Entry struct {
	ID       string `json:"id"`
	Label    string `json:"label"`
	Notation string `json:"notation"`
	Total    int    `json:"total"`
	Rolls    []int  `json:"rolls"`
	Critical bool   `json:"critical,omitempty"`
	// Rebounds counts the chained rolls folded into Total.
	Rebounds  int       `json:"rebounds,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// FromResult builds an entry for a single resolver result
func FromResult(label string, r *resolver.RollResult) *Entry {
	if r == nil {
		return &Entry{Label: label}
	}
	return &Entry{
		Label:    label,
		Notation: r.Notation,
		Total:    r.Total,
		Rolls:    append([]int(nil), r.Rolls...),
		Critical: r.Critical,
	}
}

// Repository stores recent rolls, newest first
type Repository interface {
	// Append stores an entry, filling in its ID and CreatedAt
	Append(ctx context.Context, entry *Entry) error
	// Recent returns up to limit live entries, newest first
	Recent(ctx context.Context, limit int) ([]*Entry, error)
	// Clear drops every entry
	Clear(ctx context.Context) error
}

// Config holds the dependencies shared by the repositories
type Config struct {
	Clock clock.Clock
	IDs   uuid.Generator
	// TTL defaults to DefaultTTL.
	TTL time.Duration
	// MaxEntries defaults to DefaultMaxEntries.
	MaxEntries int
}

func (c *Config) withDefaults() Config {
	out := Config{}
	if c != nil {
		out = *c
	}
	if out.Clock == nil {
		out.Clock = clock.New()
	}
	if out.IDs == nil {
		out.IDs = uuid.NewGoogleUUIDGenerator(idPrefix)
	}
	if out.TTL <= 0 {
		out.TTL = DefaultTTL
	}
	if out.MaxEntries <= 0 {
		out.MaxEntries = DefaultMaxEntries
	}
	return out
}

func (c *Config) stamp(entry *Entry) error {
	if entry == nil {
		return gerr.InvalidArgument("entry cannot be nil")
	}
	if entry.ID == "" {
		entry.ID = c.IDs.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = c.Clock.Now()
	}
	return nil
}

func checkLimit(limit int) error {
	if limit <= 0 {
		return gerr.InvalidArgumentf("limit must be positive, got %d", limit)
	}
	return nil
}
