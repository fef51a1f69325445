// Package accessor turns a validated dependency graph into lifetime-aware
// factories the resolution engine can invoke.
package accessor

import (
	"errors"
	"fmt"
	"runtime/debug"
	"strings"

	"github.com/junioryono/dicore/internal/diagnostic"
	"github.com/junioryono/dicore/internal/graph"
	"github.com/junioryono/dicore/internal/registry"
)

var (
	// ErrValidationFailed is returned when building from a graph with fatal diagnostics.
	ErrValidationFailed = errors.New("validation failed")

	// ErrNoInvoker is returned when a constructor has no invoker.
	ErrNoInvoker = errors.New("constructor has no invoker")
)

// ConstructorInvocationError wraps an error returned by a constructor or factory.
type ConstructorInvocationError struct {
	Constructor string
	Parameters  []registry.TypeRef
	Cause       error
}

func (e ConstructorInvocationError) Error() string {
	params := make([]string, len(e.Parameters))
	for i, p := range e.Parameters {
		params[i] = p.String()
	}

	return fmt.Sprintf("failed to invoke %s with parameters [%s]: %v",
		e.Constructor, strings.Join(params, ", "), e.Cause)
}

func (e ConstructorInvocationError) Unwrap() error {
	return e.Cause
}

// ConstructorPanicError indicates a constructor panicked during invocation.
// It captures the panic value and stack trace for debugging.
type ConstructorPanicError struct {
	Constructor string
	Panic       any
	Stack       []byte
}

func (e ConstructorPanicError) Error() string {
	var b strings.Builder
	b.WriteString(fmt.Sprintf("constructor %s panicked: %v\n", e.Constructor, e.Panic))

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Check for nil pointer dereferences in your constructor\n")
	b.WriteString("  • Move panic-prone initialization to a separate Init() method\n")
	b.WriteString("  • Add nil checks for dependencies before using them\n")

	if len(e.Stack) > 0 {
		b.WriteString("\nStack trace:\n")
		b.Write(e.Stack)
	}

	return b.String()
}

// Unwrap exposes the panic value when it is an error.
func (e ConstructorPanicError) Unwrap() error {
	err, _ := e.Panic.(error)
	return err
}

// Accessor is the build-time factory of one service. It captures the chosen
// constructor and its dependency types, never instances.
type Accessor struct {
	// Type is the service type and cache key.
	Type registry.TypeRef

	// Impl is the implementation type constructed.
	Impl registry.TypeRef

	Lifetime registry.Lifetime

	// Dependencies are resolved in order before invoking the constructor.
	Dependencies []registry.TypeRef

	ctor    *registry.Constructor
	factory registry.Factory
}

func newAccessor(n *graph.Node) *Accessor {
	return &Accessor{
		Type:         n.Service,
		Impl:         n.Type,
		Lifetime:     n.Lifetime,
		Dependencies: append([]registry.TypeRef(nil), n.Dependencies...),
		ctor:         n.Constructor,
		factory:      n.Factory,
	}
}

// Name returns the display name of the constructor or factory.
func (a *Accessor) Name() string {
	switch {
	case a.factory != nil:
		return fmt.Sprintf("factory(%s)", a.Impl)
	case a.ctor != nil:
		return a.ctor.Signature()
	default:
		return a.Impl.String()
	}
}

// Create builds a new instance, fetching each dependency through r.
// Errors returned by r are passed through unchanged.
func (a *Accessor) Create(r registry.Resolver) (instance any, err error) {
	defer func() {
		if p := recover(); p != nil {
			instance = nil
			err = ConstructorPanicError{Constructor: a.Name(), Panic: p, Stack: debug.Stack()}
		}
	}()

	if a.factory != nil {
		instance, err = a.factory(r)
		if err != nil {
			return nil, ConstructorInvocationError{Constructor: a.Name(), Cause: err}
		}
		return instance, nil
	}

	if a.ctor == nil || a.ctor.Invoke == nil {
		return nil, ConstructorInvocationError{Constructor: a.Name(), Parameters: a.Dependencies, Cause: ErrNoInvoker}
	}

	args := make([]any, len(a.Dependencies))
	for i, dep := range a.Dependencies {
		v, err := r.Resolve(dep)
		if err != nil {
			return nil, err
		}
		args[i] = v
	}

	instance, err = a.ctor.Invoke(args)
	if err != nil {
		return nil, ConstructorInvocationError{Constructor: a.Name(), Parameters: a.Dependencies, Cause: err}
	}

	return instance, nil
}

// Registry maps types to accessors. It is immutable after Build and safe to
// share between goroutines without locking.
type Registry struct {
	provider  registry.ProviderID
	accessors map[registry.TypeRef]*Accessor

	// types lists service types in registration order
	types []registry.TypeRef
}

// Build wraps every node of a validated graph into an accessor. It refuses
// to build when diags contains fatal diagnostics.
func Build(g *graph.Graph, diags diagnostic.List) (*Registry, error) {
	if diags.HasFatal() {
		return nil, fmt.Errorf("%w: %w", ErrValidationFailed, diags.Err())
	}

	if g == nil {
		return nil, fmt.Errorf("%w: no graph", ErrValidationFailed)
	}

	table := g.Table()
	r := &Registry{
		provider:  table.Provider(),
		accessors: make(map[registry.TypeRef]*Accessor, table.Len()),
	}

	regs := table.Registrations()
	for _, reg := range regs {
		service := reg.ServiceType()
		n, ok := g.Node(service)
		if !ok {
			return nil, fmt.Errorf("%w: %s has no node in the dependency graph", ErrValidationFailed, service)
		}

		r.accessors[service] = newAccessor(n)
		r.types = append(r.types, service)
	}

	// Implementation types share their service's accessor and cache key.
	for _, reg := range regs {
		if _, ok := r.accessors[reg.Impl]; ok {
			continue
		}
		r.accessors[reg.Impl] = r.accessors[reg.ServiceType()]
	}

	return r, nil
}

// Provider returns the provider the registry was built for.
func (r *Registry) Provider() registry.ProviderID {
	return r.provider
}

// Lookup returns the accessor for t, which may be a service type or an
// implementation type.
func (r *Registry) Lookup(t registry.TypeRef) (*Accessor, bool) {
	a, ok := r.accessors[t]
	return a, ok
}

// Types returns the service types in registration order.
func (r *Registry) Types() []registry.TypeRef {
	return append([]registry.TypeRef(nil), r.types...)
}

// Len returns the number of service accessors.
func (r *Registry) Len() int {
	return len(r.types)
}
