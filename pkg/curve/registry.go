package curve

import (
	"errors"
	"fmt"
)

var (
	// ErrDuplicateName is returned when adding a curve whose name is taken.
	ErrDuplicateName = errors.New("curve name already registered")
	// ErrUnknownReference is returned when a formula names a curve that
	// does not exist.
	ErrUnknownReference = errors.New("reference to unknown curve")
	// ErrCyclicReference is returned when a formula would depend on itself,
	// directly or through other formulas.
	ErrCyclicReference = errors.New("cyclic curve reference")
	// ErrInUse is returned when removing a curve another formula depends on.
	ErrInUse = errors.New("curve is referenced by a formula")
	// ErrNotFound is returned when looking up a curve that does not exist.
	ErrNotFound = errors.New("curve not found")
)

// Lookup resolves curve names to sources. Formula curves hold one of
// these instead of direct pointers so dependencies resolve at evaluation
// time.
type Lookup interface {
	Lookup(name string) (Source, bool)
}

// Registry holds the curves of a plot in insertion order. Insertion order
// is also evaluation order, so a formula must be added after everything
// it references.
type Registry struct {
	sources map[string]Source
	order   []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{sources: make(map[string]Source)}
}

// Add registers a curve. Formula dependencies must already be registered,
// and the new curve must not close a reference cycle.
func (r *Registry) Add(s Source) error {
	name := s.Name()
	if _, exists := r.sources[name]; exists {
		return fmt.Errorf("%w: %q", ErrDuplicateName, name)
	}
	for _, ref := range s.Refs() {
		if _, ok := r.sources[ref]; !ok && ref != name {
			return fmt.Errorf("%w: %q", ErrUnknownReference, ref)
		}
	}
	if r.closesCycle(s) {
		return fmt.Errorf("%w: %q", ErrCyclicReference, name)
	}

	r.sources[name] = s
	r.order = append(r.order, name)
	return nil
}

// closesCycle reports whether adding s would create a dependency cycle.
// Existing entries are acyclic, so only paths through s need checking.
func (r *Registry) closesCycle(s Source) bool {
	target := s.Name()
	var visit func(name string) bool
	visit = func(name string) bool {
		if name == target {
			return true
		}
		src, ok := r.sources[name]
		if !ok {
			return false
		}
		for _, ref := range src.Refs() {
			if visit(ref) {
				return true
			}
		}
		return false
	}
	for _, ref := range s.Refs() {
		if visit(ref) {
			return true
		}
	}
	return false
}

// Lookup returns the curve with the given name.
func (r *Registry) Lookup(name string) (Source, bool) {
	s, ok := r.sources[name]
	return s, ok
}

// Remove unregisters a curve. A curve still referenced by a registered
// formula cannot be removed.
func (r *Registry) Remove(name string) error {
	if _, ok := r.sources[name]; !ok {
		return fmt.Errorf("%w: %q", ErrNotFound, name)
	}
	for _, other := range r.sources {
		for _, ref := range other.Refs() {
			if ref == name {
				return fmt.Errorf("%w: %q referenced by %q", ErrInUse, name, other.Name())
			}
		}
	}

	delete(r.sources, name)
	for i, n := range r.order {
		if n == name {
			r.order = append(r.order[:i], r.order[i+1:]...)
			break
		}
	}
	return nil
}

// Sources returns all curves in insertion order.
func (r *Registry) Sources() []Source {
	out := make([]Source, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.sources[name])
	}
	return out
}

// Len returns the number of registered curves.
func (r *Registry) Len() int { return len(r.order) }
