package job

import (
	"fmt"
	"sort"
	"sync"
)

// Info pairs a registered kind name with its description for API responses.
type Info struct {
	Name        string `json:"name"`
	Description string `json:"description"`
}

type registration struct {
	body        Body
	description string
}

// Registry holds the named job kinds a server accepts submissions for.
// It is safe for concurrent use.
type Registry struct {
	mu    sync.RWMutex
	kinds map[string]registration
}

// NewRegistry creates an empty job kind registry.
func NewRegistry() *Registry {
	return &Registry{
		kinds: make(map[string]registration),
	}
}

// Register adds a job kind to the registry under the given name.
// Registering the same name twice replaces the earlier body.
func (r *Registry) Register(name, description string, b Body) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.kinds[name] = registration{body: b, description: description}
}

// Resolve returns the body registered for the given kind.
func (r *Registry) Resolve(name string) (Body, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	reg, ok := r.kinds[name]
	if !ok {
		return nil, fmt.Errorf("job kind %q is not registered", name)
	}
	return reg.body, nil
}

// List returns information about all registered kinds, sorted by name for a
// stable API response.
func (r *Registry) List() []Info {
	r.mu.RLock()
	defer r.mu.RUnlock()

	infos := make([]Info, 0, len(r.kinds))
	for name, reg := range r.kinds {
		infos = append(infos, Info{
			Name:        name,
			Description: reg.description,
		})
	}
	sort.Slice(infos, func(i, j int) bool {
		return infos[i].Name < infos[j].Name
	})
	return infos
}
