package plan

import (
	"context"
	"sync"

	"github.com/agentplane/agentplane/definition"
)

// Cache memoizes resolved plans keyed by root definition id. A cached plan is
// only served after revalidating every definition revision it was resolved
// against, so an updated definition anywhere in the tree invalidates the
// entry. Lookup returns a deep copy; cached nodes are never shared with
// executions.
type Cache struct {
	mu      sync.RWMutex
	entries map[string]*Plan
}

// NewCache creates an empty plan cache.
func NewCache() *Cache {
	return &Cache{entries: map[string]*Plan{}}
}

// Lookup returns a private copy of the cached plan for root, after verifying
// against store that every dependency still carries the recorded version. A
// stale or missing dependency evicts the entry and misses.
func (c *Cache) Lookup(ctx context.Context, store definition.Store, root string) (*Plan, bool) {
	c.mu.RLock()
	p, ok := c.entries[root]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}

	for _, dep := range p.Deps {
		def, err := store.Get(ctx, dep.ID)
		if err != nil || def.Version != dep.Version {
			c.Invalidate(root)
			return nil, false
		}
	}
	return p.Clone(), true
}

// Store records a resolved plan under root, keeping a private copy.
func (c *Cache) Store(root string, p *Plan) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[root] = p.Clone()
}

// Invalidate drops the entry for root, if any.
func (c *Cache) Invalidate(root string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.entries, root)
}

// InvalidateDependents drops every entry whose dependency set contains id.
func (c *Cache) InvalidateDependents(id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	for root, p := range c.entries {
		for _, dep := range p.Deps {
			if dep.ID == id {
				delete(c.entries, root)
				break
			}
		}
	}
}

// Len reports the number of cached plans.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}
