package workflow

import (
	"fmt"
	"sort"
	"sync"
)

// UnregisteredWorkflowError reports a lookup for a workflow name that was
// never registered.
type UnregisteredWorkflowError struct {
	Name string
}

func (e *UnregisteredWorkflowError) Error() string {
	return fmt.Sprintf("workflow %q is not registered", e.Name)
}

// Descriptor carries the selection metadata for one registered workflow plus
// its factory. Settings holds the workflow's declared settings surface with
// default initial values.
type Descriptor struct {
	Name        string          `json:"name"`
	Description string          `json:"description"`
	Settings    []Setting       `json:"settings,omitempty"`
	New         func() Workflow `json:"-"`
}

// Registry maps workflow names to factories. Registration happens once at
// process start, before any session begins; afterwards the registry is
// read-mostly shared state. Registering a name twice overwrites the earlier
// entry.
type Registry struct {
	mu    sync.RWMutex
	items map[string]Descriptor
}

// NewRegistry creates an empty workflow registry.
func NewRegistry() *Registry {
	return &Registry{
		items: make(map[string]Descriptor),
	}
}

// Register stores the factory under the workflow's own name, overwriting any
// prior registration with the same name. The factory is invoked once to read
// the selection metadata.
func (r *Registry) Register(fn func() Workflow) {
	w := fn()

	r.mu.Lock()
	defer r.mu.Unlock()

	r.items[w.Name()] = Descriptor{
		Name:        w.Name(),
		Description: w.Description(),
		Settings:    w.Settings(),
		New:         fn,
	}
}

// Create instantiates a fresh workflow by name.
func (r *Registry) Create(name string) (Workflow, error) {
	r.mu.RLock()
	desc, ok := r.items[name]
	r.mu.RUnlock()

	if !ok {
		return nil, &UnregisteredWorkflowError{Name: name}
	}

	return desc.New(), nil
}

// Names returns the registered workflow names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()

	names := make([]string, 0, len(r.items))
	for name := range r.items {
		names = append(names, name)
	}
	sort.Strings(names)

	return names
}

// Descriptors returns the registered descriptors sorted by name, for
// client-facing selection menus.
func (r *Registry) Descriptors() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	descs := make([]Descriptor, 0, len(r.items))
	for _, desc := range r.items {
		descs = append(descs, desc)
	}
	sort.Slice(descs, func(i, j int) bool { return descs[i].Name < descs[j].Name })

	return descs
}

// RegisterBuiltins registers every workflow shipped with chatflow.
func RegisterBuiltins(r *Registry) {
	r.Register(func() Workflow { return NewSimpleChat() })
}
