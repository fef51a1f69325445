package registry

import "strings"

// ProviderID identifies the provider definition a registration belongs to.
type ProviderID string

// Location is an opaque source location token supplied by the front end.
type Location string

// Resolver fetches instances of dependency types.
type Resolver interface {
	Resolve(t TypeRef) (any, error)
}

// Invoker constructs an instance from already resolved constructor arguments.
// Arguments arrive in parameter order.
type Invoker func(args []any) (any, error)

// Factory is a user supplied factory method. It takes precedence over
// constructor selection and fetches its own dependencies from the resolver.
type Factory func(r Resolver) (any, error)

// Registration maps a service type to an implementation type with a lifetime.
type Registration struct {
	// Service is the contract type. Zero means self-registration.
	Service TypeRef

	// Impl is the concrete implementation type.
	Impl TypeRef

	// Lifetime determines instance caching behavior.
	Lifetime Lifetime

	// Provider is the provider definition that declared this registration.
	Provider ProviderID

	// Location is where the registration was declared.
	Location Location

	// Factory, when set, replaces constructor selection for Impl.
	Factory Factory
}

// ServiceType returns the type the registration is resolved by.
func (r Registration) ServiceType() TypeRef {
	if r.Service.IsZero() {
		return r.Impl
	}

	return r.Service
}

// IsSelf reports whether the registration has no distinct contract type.
func (r Registration) IsSelf() bool {
	return r.Service.IsZero() || r.Service == r.Impl
}

// Constructor describes one candidate injection point of a type.
type Constructor struct {
	// Owner is the type the constructor produces.
	Owner TypeRef

	// Name is a display name used in diagnostics.
	Name string

	// Parameters are the dependency types in declaration order.
	Parameters []TypeRef

	// Marked is set when the constructor is explicitly designated for injection.
	Marked bool

	// Public is set when the constructor is accessible to the engine.
	Public bool

	// Invoke builds an instance from resolved arguments.
	Invoke Invoker

	// Location is where the constructor was declared.
	Location Location
}

// Signature renders the constructor as Name(P1, P2).
func (c *Constructor) Signature() string {
	var b strings.Builder

	name := c.Name
	if name == "" {
		name = c.Owner.String()
	}

	b.WriteString(name)
	b.WriteByte('(')
	for i, p := range c.Parameters {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(p.String())
	}
	b.WriteByte(')')

	return b.String()
}

// IsParameterless reports whether the constructor takes no arguments.
func (c *Constructor) IsParameterless() bool {
	return len(c.Parameters) == 0
}

// DependsOn reports whether t is one of the constructor's parameters.
func (c *Constructor) DependsOn(t TypeRef) bool {
	for _, p := range c.Parameters {
		if p == t {
			return true
		}
	}

	return false
}
