package behaviors

import (
	"sort"
	"sync"

	"github.com/voundbrand/vc83-com-sub014/pkg/schema"
)

// Registry maps behavior types to implementations. It is built once at start
// and injected into the engine. Safe for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	behaviors map[string]Behavior
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{
		behaviors: make(map[string]Behavior),
	}
}

// Register adds a behavior. Returns CONFLICT on a duplicate type.
func (r *Registry) Register(b Behavior) error {
	if b == nil {
		return schema.NewError(schema.ErrCodeValidation, "behavior is nil")
	}
	typ := b.Type()
	if typ == "" {
		return schema.NewError(schema.ErrCodeValidation, "behavior type is empty")
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.behaviors[typ]; exists {
		return schema.NewErrorf(schema.ErrCodeConflict, "behavior %q already registered", typ)
	}
	r.behaviors[typ] = b
	return nil
}

// Get retrieves a behavior by type.
func (r *Registry) Get(typ string) (Behavior, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.behaviors[typ]
	if !ok {
		return nil, schema.NewErrorf(schema.ErrCodeBehaviorUnavailable, "behavior %q not registered", typ)
	}
	return b, nil
}

// Contract returns the declared contract of a behavior type.
func (r *Registry) Contract(typ string) (schema.Contract, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.behaviors[typ]
	if !ok {
		return schema.Contract{}, false
	}
	return b.Contract(), true
}

// List returns info for all registered behaviors, sorted by type.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.behaviors))
	for _, b := range r.behaviors {
		infos = append(infos, Info{
			Type:        b.Type(),
			Description: b.Description(),
			Contract:    b.Contract(),
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Type < infos[j].Type
	})
	return infos
}

// Count returns the number of registered behaviors.
func (r *Registry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.behaviors)
}
