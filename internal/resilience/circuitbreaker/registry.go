package circuitbreaker

import (
	"fmt"
	"log/slog"
	"sort"
	"sync"
)

// Registry owns one breaker per dependency name.
// The host application creates it at startup and passes it to the components that need it.
type Registry struct {
	mu       sync.RWMutex
	breakers map[string]*CircuitBreaker
	defaults func(name string) Config
	logger   *slog.Logger
}

// NewRegistry returns an empty registry. Breakers created lazily by Get use
// defaults(name); a nil defaults means DefaultConfig.
func NewRegistry(defaults func(name string) Config, logger *slog.Logger) *Registry {
	if defaults == nil {
		defaults = DefaultConfig
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Registry{
		breakers: make(map[string]*CircuitBreaker),
		defaults: defaults,
		logger:   logger,
	}
}

// Register creates the breaker for cfg.Name. An existing breaker is returned unchanged.
func (r *Registry) Register(cfg Config) (*CircuitBreaker, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	if cb, ok := r.breakers[cfg.Name]; ok {
		return cb, nil
	}
	cb := New(cfg, r.logger)
	r.breakers[cfg.Name] = cb
	return cb, nil
}

// Get returns the breaker for name, creating it from the defaults on first use.
func (r *Registry) Get(name string) *CircuitBreaker {
	r.mu.RLock()
	cb, ok := r.breakers[name]
	r.mu.RUnlock()
	if ok {
		return cb
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if cb, ok := r.breakers[name]; ok {
		return cb
	}
	cfg := r.defaults(name)
	cfg.Name = name
	cb = New(cfg, r.logger)
	r.breakers[name] = cb
	return cb
}

// Lookup returns the breaker for name without creating it.
func (r *Registry) Lookup(name string) (*CircuitBreaker, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	cb, ok := r.breakers[name]
	return cb, ok
}

// Names returns the registered breaker names in sorted order.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.breakers))
	for name := range r.breakers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Status returns a snapshot of every registered breaker keyed by name.
func (r *Registry) Status() map[string]BreakerStatus {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make(map[string]BreakerStatus, len(r.breakers))
	for name, cb := range r.breakers {
		out[name] = cb.Status()
	}
	return out
}

// Trip forces the named breaker open. Unknown names are an error; breakers are
// never created by Trip.
func (r *Registry) Trip(name string) error {
	cb, ok := r.Lookup(name)
	if !ok {
		return fmt.Errorf("trip %q: no circuit breaker registered", name)
	}
	if !cb.Trip() {
		return fmt.Errorf("trip %q: circuit is %s", name, cb.State())
	}
	r.logger.Warn("circuit breaker opened manually", slog.String("circuit", name))
	return nil
}
