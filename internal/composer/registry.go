package composer

import (
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"
)

// Registry tracks open report views. When full, the least recently used view
// is closed and dropped.
type Registry struct {
	views *lru.Cache[string, *Composer]
	ids   IDGenerator
}

func NewRegistry(size int, ids IDGenerator) (*Registry, error) {
	if ids == nil {
		ids = UUIDGenerator{}
	}
	views, err := lru.NewWithEvict[string, *Composer](size, func(_ string, c *Composer) {
		c.Close()
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create view registry: %w", err)
	}
	return &Registry{views: views, ids: ids}, nil
}

// Open registers c and returns its view id.
func (r *Registry) Open(c *Composer) string {
	id := r.ids.NewID()
	r.views.Add(id, c)
	return id
}

func (r *Registry) Get(viewID string) (*Composer, bool) {
	return r.views.Get(viewID)
}

// Close closes and forgets a view. It reports whether the view existed.
func (r *Registry) Close(viewID string) bool {
	c, ok := r.views.Peek(viewID)
	if !ok {
		return false
	}
	r.views.Remove(viewID)
	c.Close()
	return true
}

func (r *Registry) Len() int {
	return r.views.Len()
}
