package rollhistory

import (
	"context"
	"sync"
	"time"
)

type inMemoryRepo struct {
	mu      sync.RWMutex
	cfg     Config
	entries []*Entry
}

// NewInMemory creates a repository that lives in the process
func NewInMemory(cfg *Config) Repository {
	return &inMemoryRepo{cfg: cfg.withDefaults()}
}

func (r *inMemoryRepo) Append(_ context.Context, entry *Entry) error {
	if err := r.cfg.stamp(entry); err != nil {
		return err
	}

	stored := *entry
	stored.Rolls = append([]int(nil), entry.Rolls...)

	r.mu.Lock()
	defer r.mu.Unlock()

	r.entries = append([]*Entry{&stored}, r.entries...)
	if len(r.entries) > r.cfg.MaxEntries {
		r.entries = r.entries[:r.cfg.MaxEntries]
	}
	return nil
}

func (r *inMemoryRepo) Recent(_ context.Context, limit int) ([]*Entry, error) {
	if err := checkLimit(limit); err != nil {
		return nil, err
	}

	cutoff := r.cfg.Clock.Now().Add(-r.cfg.TTL)

	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]*Entry, 0, min(limit, len(r.entries)))
	for _, e := range r.entries {
		if len(out) == limit {
			break
		}
		if expired(e, cutoff) {
			continue
		}
		cp := *e
		cp.Rolls = append([]int(nil), e.Rolls...)
		out = append(out, &cp)
	}
	return out, nil
}

func (r *inMemoryRepo) Clear(_ context.Context) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.entries = nil
	return nil
}

func expired(e *Entry, cutoff time.Time) bool {
	return !e.CreatedAt.After(cutoff)
}
