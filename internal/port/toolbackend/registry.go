package toolbackend

import (
	"fmt"
	"sync"

	"github.com/Strob0t/taskgate/internal/domain/toolcall"
)

// Registry maps tools to their back-ends.
type Registry struct {
	mu       sync.RWMutex
	backends map[toolcall.Tool]Backend
}

// NewRegistry creates a registry holding the given back-ends.
func NewRegistry(backends ...Backend) *Registry {
	r := &Registry{backends: make(map[toolcall.Tool]Backend, len(backends))}
	for _, b := range backends {
		r.Register(b)
	}
	return r
}

// Register adds a back-end. Registering a tool twice panics.
func (r *Registry) Register(b Backend) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.backends[b.Tool()]; exists {
		panic(fmt.Sprintf("toolbackend: duplicate registration for %q", b.Tool()))
	}
	r.backends[b.Tool()] = b
}

// Get returns the back-end serving tool.
func (r *Registry) Get(tool toolcall.Tool) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	b, ok := r.backends[tool]
	return b, ok
}

// Available returns the registered tools in registration-independent order.
func (r *Registry) Available() []toolcall.Tool {
	r.mu.RLock()
	defer r.mu.RUnlock()

	tools := make([]toolcall.Tool, 0, len(r.backends))
	for _, t := range toolcall.Tools {
		if _, ok := r.backends[t]; ok {
			tools = append(tools, t)
		}
	}
	return tools
}
