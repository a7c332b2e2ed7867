package parser

import "fmt"

// Registry keys Parser implementations by name so a deployment can pick
// one by string configuration instead of wiring a concrete type.
type Registry struct {
	byName map[string]Parser
}

// NewRegistry constructs a Registry pre-populated with the three
// required variants: Null, Echo, and ITCH.
func NewRegistry() *Registry {
	r := &Registry{byName: make(map[string]Parser, 3)}
	r.Register(Null{})
	r.Register(Echo{})
	r.Register(NewITCH())
	return r
}

// Register adds (or replaces) a named Parser.
func (r *Registry) Register(p Parser) {
	r.byName[p.Name()] = p
}

// Get returns the named Parser, or an error if it is not registered.
func (r *Registry) Get(name string) (Parser, error) {
	p, ok := r.byName[name]
	if !ok {
		return nil, fmt.Errorf("parser: no parser registered with name %q", name)
	}
	return p, nil
}

// Names returns every registered parser name.
func (r *Registry) Names() []string {
	names := make([]string, 0, len(r.byName))
	for name := range r.byName {
		names = append(names, name)
	}
	return names
}
