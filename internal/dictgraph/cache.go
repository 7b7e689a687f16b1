package dictgraph

import (
	"sync"

	"github.com/google/uuid"

	"github.com/heartmarshall/submission-backend/internal/domain"
)

// Cache memoises graphs by dictionary id. Dictionaries are immutable once
// registered, so entries never go stale.
type Cache struct {
	mu     sync.RWMutex
	graphs map[uuid.UUID]*Graph
}

// NewCache creates an empty Cache.
func NewCache() *Cache {
	return &Cache{graphs: make(map[uuid.UUID]*Graph)}
}

// Get returns the graph of dict, building it on first use.
func (c *Cache) Get(dict *domain.Dictionary) *Graph {
	c.mu.RLock()
	g, ok := c.graphs[dict.ID]
	c.mu.RUnlock()
	if ok {
		return g
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if g, ok := c.graphs[dict.ID]; ok {
		return g
	}
	g = Build(dict)
	c.graphs[dict.ID] = g
	return g
}

// Len returns the number of cached graphs.
func (c *Cache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.graphs)
}
