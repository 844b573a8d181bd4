package engine

import (
	"sort"
	"sync"
)

// ExecutionContext is the key/value accumulator threaded through one run.
// Keys are added or overwritten, never deleted.
type ExecutionContext struct {
	mu   sync.RWMutex
	data map[string]any
}

// NewExecutionContext seeds a context with a copy of seed.
func NewExecutionContext(seed map[string]any) *ExecutionContext {
	c := &ExecutionContext{data: make(map[string]any, len(seed))}
	for k, v := range seed {
		c.data[k] = cloneValue(v)
	}
	return c
}

// Get returns the value stored under key.
func (c *ExecutionContext) Get(key string) (any, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	v, ok := c.data[key]
	return v, ok
}

// Set stores one value, overwriting any previous one.
func (c *ExecutionContext) Set(key string, value any) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.data[key] = cloneValue(value)
}

// Merge shallow-overwrites the context with data: top-level keys in data
// replace existing ones wholesale, nested objects are not merged.
func (c *ExecutionContext) Merge(data map[string]any) {
	if len(data) == 0 {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	for k, v := range data {
		c.data[k] = cloneValue(v)
	}
}

// Snapshot returns a deep copy that callers may mutate freely.
func (c *ExecutionContext) Snapshot() map[string]any {
	c.mu.RLock()
	defer c.mu.RUnlock()
	out := make(map[string]any, len(c.data))
	for k, v := range c.data {
		out[k] = cloneValue(v)
	}
	return out
}

// Keys returns the sorted key set.
func (c *ExecutionContext) Keys() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	keys := make([]string, 0, len(c.data))
	for k := range c.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// cloneValue deep-copies the JSON-shaped containers a context can hold.
// Scalars and other types are shared.
func cloneValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = cloneValue(inner)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = cloneValue(inner)
		}
		return out
	case []string:
		return append([]string(nil), t...)
	default:
		return v
	}
}
