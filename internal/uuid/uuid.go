// Package uuid generates the ids attached to stored rolls
package uuid

import (
	"strings"

	"github.com/google/uuid"
)

//go:generate mockgen -destination=mock/mock_generator.go -package=mockuuid -source=uuid.go

// Generator hands out unique ids
type Generator interface {
	New() string
}

// GoogleUUIDGenerator issues random v4 UUIDs, optionally behind a prefix
// such as "roll_".
type GoogleUUIDGenerator struct {
	prefix string
}

// New generates a new id
func (g *GoogleUUIDGenerator) New() string {
	return g.prefix + uuid.NewString()
}

// NewGoogleUUIDGenerator creates a generator that prefixes every id
func NewGoogleUUIDGenerator(prefix string) *GoogleUUIDGenerator {
	return &GoogleUUIDGenerator{prefix: prefix}
}

// Valid reports whether id is a UUID once prefix is removed
func Valid(id, prefix string) bool {
	rest, ok := strings.CutPrefix(id, prefix)
	if !ok {
		return false
	}
	return uuid.Validate(rest) == nil
}
