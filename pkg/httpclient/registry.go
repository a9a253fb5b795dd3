package httpclient

import (
	"log/slog"
	"sync"
)

// Registry holds one CircuitBreakerClient per named downstream dependency,
// so that the failure of one dependency never trips the breaker of another.
// Lookups by the same name always return the same breaker instance.
type Registry struct {
	mu      sync.RWMutex
	clients map[string]*CircuitBreakerClient
	client  *Client
	cfgFor  func(name string) CircuitBreakerConfig
	logger  *slog.Logger
}

// NewRegistry creates a registry that wraps the given retrying client with a
// per-dependency circuit breaker. cfgFor supplies the breaker configuration
// for a dependency name; if nil, DefaultCircuitBreakerConfig is used.
func NewRegistry(client *Client, cfgFor func(name string) CircuitBreakerConfig, logger *slog.Logger) *Registry {
	if cfgFor == nil {
		cfgFor = DefaultCircuitBreakerConfig
	}
	return &Registry{
		clients: make(map[string]*CircuitBreakerClient),
		client:  client,
		cfgFor:  cfgFor,
		logger:  logger,
	}
}

// Get returns the circuit breaker client for the named dependency, creating
// it on first use.
func (r *Registry) Get(name string) *CircuitBreakerClient {
	r.mu.RLock()
	cbc, ok := r.clients[name]
	r.mu.RUnlock()
	if ok {
		return cbc
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cbc, ok := r.clients[name]; ok {
		return cbc
	}
	cbc = NewCircuitBreakerClient(r.client, r.cfgFor(name), r.logger)
	r.clients[name] = cbc
	return cbc
}

// Names returns the names of all registered breakers.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.clients))
	for name := range r.clients {
		names = append(names, name)
	}
	return names
}

// States reports the current breaker state of every registered dependency,
// keyed by name.
func (r *Registry) States() map[string]string {
	names := r.Names()
	states := make(map[string]string, len(names))
	for _, name := range names {
		states[name] = r.Get(name).State().String()
	}
	return states
}
