package auth

import (
	"fmt"
	"sort"
)

// Registry holds the providers configured at startup and resolves them by
// name. It replaces ambient provider construction with an explicit,
// passed-in dependency.
type Registry struct {
	providers map[string]Provider
}

// NewRegistry builds a registry from the given providers, keyed by Name.
func NewRegistry(providers ...Provider) *Registry {
	m := make(map[string]Provider, len(providers))
	for _, p := range providers {
		m[p.Name()] = p
	}
	return &Registry{providers: m}
}

// Get resolves a provider by name. Unknown names fail deterministically with
// ErrUnknownProvider and never trigger network calls.
func (r *Registry) Get(name string) (Provider, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownProvider, name)
	}
	return p, nil
}

// Names returns the configured provider names in stable order.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.providers))
	for name := range r.providers {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
