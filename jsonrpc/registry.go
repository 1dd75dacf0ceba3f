package jsonrpc

import (
	"maps"
	"slices"
	"strings"
	"sync"
	"sync/atomic"
)

// Registry maps fully-qualified method names to descriptors.
//
// Methods are registered during startup. Freeze publishes an immutable
// snapshot; from then on Lookup takes no locks and Register fails.
type Registry struct {
	mu      sync.Mutex
	methods map[string]*Method
	frozen  atomic.Pointer[map[string]*Method]
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{methods: make(map[string]*Method)}
}

// Register validates m and adds it under m.Name.
func (r *Registry) Register(m *Method) error {
	if m == nil {
		return &InvalidMethodError{Reason: "nil descriptor"}
	}
	if err := prepare(m); err != nil {
		return err
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() != nil {
		return ErrRegistryFrozen
	}
	if _, exists := r.methods[m.Name]; exists {
		return &DuplicateMethodError{Name: m.Name}
	}
	r.methods[m.Name] = m
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(methods ...*Method) {
	for _, m := range methods {
		if err := r.Register(m); err != nil {
			panic(err)
		}
	}
}

// RegisterService discovers the eligible methods of receiver and registers
// them under namespace. Nothing is registered if any of them fails.
func (r *Registry) RegisterService(namespace string, receiver any) error {
	methods, err := Discover(namespace, receiver)
	if err != nil {
		return err
	}
	for _, m := range methods {
		if err := prepare(m); err != nil {
			return err
		}
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() != nil {
		return ErrRegistryFrozen
	}
	batch := make(map[string]bool, len(methods))
	for _, m := range methods {
		if _, exists := r.methods[m.Name]; exists || batch[m.Name] {
			return &DuplicateMethodError{Name: m.Name}
		}
		batch[m.Name] = true
	}
	for _, m := range methods {
		r.methods[m.Name] = m
	}
	return nil
}

// Freeze ends registration. It is safe to call more than once.
func (r *Registry) Freeze() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.frozen.Load() != nil {
		return
	}
	snapshot := maps.Clone(r.methods)
	r.frozen.Store(&snapshot)
}

// Frozen reports whether Freeze has been called.
func (r *Registry) Frozen() bool {
	return r.frozen.Load() != nil
}

// Lookup returns the descriptor registered under name.
func (r *Registry) Lookup(name string) (*Method, bool) {
	if snap := r.frozen.Load(); snap != nil {
		m, ok := (*snap)[name]
		return m, ok
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	m, ok := r.methods[name]
	return m, ok
}

// Methods returns the registered names, sorted.
func (r *Registry) Methods() []string {
	if snap := r.frozen.Load(); snap != nil {
		return slices.Sorted(maps.Keys(*snap))
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	return slices.Sorted(maps.Keys(r.methods))
}

// resolve finds the descriptor for a request method and returns the
// trailing path to bind path parameters from.
func (r *Registry) resolve(method string) (*Method, string, bool) {
	if m, ok := r.Lookup(method); ok {
		return m, "", true
	}
	name, tail := splitMethod(method)
	if tail == "" {
		return nil, "", false
	}
	m, ok := r.Lookup(name)
	if !ok || m.route == nil {
		return nil, "", false
	}
	return m, tail, true
}

// prepare validates m and compiles its route.
func prepare(m *Method) error {
	invalid := func(reason string) error {
		return &InvalidMethodError{Name: m.Name, Reason: reason}
	}
	if strings.TrimSpace(m.Name) == "" {
		return invalid("blank name")
	}
	if strings.Contains(m.Name, "/") {
		return invalid("name must not contain '/'")
	}
	if m.Handler == nil {
		return invalid("nil handler")
	}

	body := false
	seen := make(map[string]bool)
	for _, p := range m.Params {
		if !validParamType(p) {
			return invalid("unsupported type for " + p.Kind.String() + " param " + p.Name)
		}
		switch p.Kind {
		case BodyParam:
			if body {
				return invalid("more than one body param")
			}
			body = true
		case PathParam:
			if p.Name == "" {
				return invalid("unnamed path param")
			}
			if seen[p.Name] {
				return invalid("duplicate path param " + p.Name)
			}
			seen[p.Name] = true
		default:
			return invalid("unknown param kind")
		}
	}

	tmpl, err := compileRoute(m)
	if err != nil {
		return invalid(err.Error())
	}
	m.route = tmpl
	return nil
}
