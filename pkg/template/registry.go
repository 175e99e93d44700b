package template

import "github.com/matzehuels/templatestudio/pkg/errors"

// Registry is an ordered, read-only set of definitions.
type Registry struct {
	defs []*Definition
}

// NewRegistry validates defs and returns a registry holding them in order.
// It fails on duplicate IDs or any definition whose fields lack defaults.
func NewRegistry(defs ...*Definition) (*Registry, error) {
	seen := make(map[string]bool, len(defs))
	for _, d := range defs {
		if d == nil {
			return nil, errors.New(errors.ErrCodeInvalidTemplate, "nil template definition")
		}
		if err := d.validate(); err != nil {
			return nil, err
		}
		if seen[d.ID] {
			return nil, errors.New(errors.ErrCodeInvalidTemplate, "duplicate template id %q", d.ID)
		}
		seen[d.ID] = true
	}
	own := make([]*Definition, len(defs))
	for i, d := range defs {
		own[i] = d.clone()
	}
	return &Registry{defs: own}, nil
}

// MustRegistry is like [NewRegistry] but panics on invalid definitions.
func MustRegistry(defs ...*Definition) *Registry {
	r, err := NewRegistry(defs...)
	if err != nil {
		panic(err)
	}
	return r
}

// Lookup returns a copy of the definition with id. Changing the copy does
// not affect the registry.
func (r *Registry) Lookup(id string) (*Definition, bool) {
	for _, d := range r.defs {
		if d.ID == id {
			return d.clone(), true
		}
	}
	return nil, false
}

// Get is like Lookup but returns a TEMPLATE_NOT_FOUND error.
func (r *Registry) Get(id string) (*Definition, error) {
	if d, ok := r.Lookup(id); ok {
		return d, nil
	}
	return nil, errors.New(errors.ErrCodeTemplateNotFound, "unknown template %q", id)
}

// List returns copies of every definition in registration order.
func (r *Registry) List() []*Definition {
	out := make([]*Definition, len(r.defs))
	for i, d := range r.defs {
		out[i] = d.clone()
	}
	return out
}

// IDs returns every template id in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.defs))
	for i, d := range r.defs {
		ids[i] = d.ID
	}
	return ids
}

// Len returns the number of templates.
func (r *Registry) Len() int { return len(r.defs) }
