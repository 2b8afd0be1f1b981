package composer

import (
	"fmt"
	"sync/atomic"

	"github.com/google/uuid"
)

// IDGenerator issues unique ids for variant actions and views.
type IDGenerator interface {
	NewID() string
}

// UUIDGenerator issues random v4 UUIDs.
type UUIDGenerator struct{}

func (UUIDGenerator) NewID() string {
	return uuid.NewString()
}

// SequenceGenerator issues prefix-1, prefix-2, ... and is safe for concurrent use.
type SequenceGenerator struct {
	prefix string
	n      atomic.Uint64
}

func NewSequenceGenerator(prefix string) *SequenceGenerator {
	return &SequenceGenerator{prefix: prefix}
}

func (g *SequenceGenerator) NewID() string {
	return fmt.Sprintf("%s-%d", g.prefix, g.n.Add(1))
}
