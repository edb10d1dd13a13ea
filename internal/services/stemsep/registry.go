package stemsep

import (
	"sync"
)

// Registry lazily builds and caches one Client per model identifier.
// Construction of a model handle is idempotent but not cheap, so handles are
// reused across requests; the mutex keeps concurrent first-use for the same
// model from racing.
type Registry struct {
	binary string
	opts   []Option

	mu      sync.Mutex
	clients map[string]*Client
}

// NewRegistry constructs a registry that builds clients for binary.
func NewRegistry(binary string, opts ...Option) *Registry {
	return &Registry{
		binary:  binary,
		opts:    opts,
		clients: make(map[string]*Client),
	}
}

// Resolve returns the cached client for model, building it on first use.
func (r *Registry) Resolve(model string) (*Client, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if client, ok := r.clients[model]; ok {
		return client, nil
	}
	client, err := NewClient(r.binary, model, r.opts...)
	if err != nil {
		return nil, err
	}
	r.clients[model] = client
	return client, nil
}
