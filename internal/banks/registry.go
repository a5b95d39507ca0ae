package banks

import (
	"fmt"
	"sort"
)

// Registry holds the registered bank clients. It is populated once at
// startup and read-only afterwards, so concurrent verification requests
// share it without locking.
type Registry struct {
	clients map[string]Client
}

// NewRegistry creates an empty bank registry.
func NewRegistry() *Registry {
	return &Registry{
		clients: make(map[string]Client),
	}
}

// Register adds a bank client. Registering two clients under the same
// code is a startup configuration error.
func (r *Registry) Register(c Client) error {
	code := c.Descriptor().Code
	if _, exists := r.clients[code]; exists {
		return fmt.Errorf("bank client already registered for code %q", code)
	}
	r.clients[code] = c
	return nil
}

// Get resolves a bank code to its client. Resolution is an exact,
// case-sensitive match against the code each client declares.
func (r *Registry) Get(code string) (Client, bool) {
	c, ok := r.clients[code]
	return c, ok
}

// List returns the descriptors of all registered banks, sorted by code
// for stable presentation.
func (r *Registry) List() []Descriptor {
	out := make([]Descriptor, 0, len(r.clients))
	for _, c := range r.clients {
		out = append(out, c.Descriptor())
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Code < out[j].Code })
	return out
}
