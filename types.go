package dicore

import (
	"reflect"

	"github.com/junioryono/dicore/internal/diagnostic"
	"github.com/junioryono/dicore/internal/graph"
	"github.com/junioryono/dicore/internal/reflection"
	"github.com/junioryono/dicore/internal/registry"
)

// Core data model, shared with every front end.
type (
	// TypeRef is an opaque, comparable identity for a type.
	TypeRef = registry.TypeRef

	// TypeKind classifies a type for registration validity checks.
	TypeKind = registry.TypeKind

	// Registration maps a service type to the implementation that provides it.
	Registration = registry.Registration

	// Constructor is a candidate way of building an implementation type.
	Constructor = registry.Constructor

	// Catalog enumerates the kinds and constructors of known types.
	Catalog = registry.Catalog

	// MapCatalog is an in-memory Catalog.
	MapCatalog = registry.MapCatalog

	// Resolver is anything that can resolve a TypeRef.
	Resolver = registry.Resolver

	// Invoker calls a constructor with resolved arguments.
	Invoker = registry.Invoker

	// Factory builds an instance using a resolver.
	Factory = registry.Factory

	// ProviderID identifies the provider a registration belongs to.
	ProviderID = registry.ProviderID

	// Location is an opaque source location token.
	Location = registry.Location

	// Graph is the validated dependency graph.
	Graph = graph.Graph

	// Node is one service in the dependency graph.
	Node = graph.Node

	// Diagnostic is one validation finding.
	Diagnostic = diagnostic.Diagnostic

	// Diagnostics is the ordered result of a validation pass.
	Diagnostics = diagnostic.List

	// DiagnosticKind identifies the rule a diagnostic reports.
	DiagnosticKind = diagnostic.Kind

	// LifetimePolicy decides how a singleton depending on a scoped service is reported.
	LifetimePolicy = graph.Policy
)

const (
	KindUnknown   = registry.KindUnknown
	KindClass     = registry.KindClass
	KindAbstract  = registry.KindAbstract
	KindInterface = registry.KindInterface
	KindValue     = registry.KindValue
)

const (
	// PolicyStrict reports singleton to scoped dependencies as fatal.
	PolicyStrict = graph.PolicyStrict

	// PolicyWarn reports them as warnings; the singleton captures the root scope's instance.
	PolicyWarn = graph.PolicyWarn
)

// Diagnostic kinds.
const (
	InvalidServiceType         = diagnostic.InvalidServiceType
	InvalidImplementationType  = diagnostic.InvalidImplementationType
	NoPublicConstructor        = diagnostic.NoPublicConstructor
	AmbiguousMarkedConstructor = diagnostic.AmbiguousMarkedConstructor
	NoMatchedConstructor       = diagnostic.NoMatchedConstructor
	AmbiguousConstructor       = diagnostic.AmbiguousConstructor
	MissingDependency          = diagnostic.MissingDependency
	CircularDependency         = diagnostic.CircularDependency
	LifetimeMismatch           = diagnostic.LifetimeMismatch
	DuplicateRegistration      = diagnostic.DuplicateRegistration
	NonPublicMarkedConstructor = diagnostic.NonPublicMarkedConstructor
)

// NewTypeRef creates a TypeRef from a comparable key and a display name.
func NewTypeRef(key any, name string) TypeRef {
	return registry.NewTypeRef(key, name)
}

// Named creates a TypeRef identified by name only.
func Named(name string) TypeRef {
	return registry.Named(name)
}

// ParseTypeKind parses "class", "abstract", "interface" or "value".
// The empty string is a class.
func ParseTypeKind(s string) (TypeKind, error) {
	return registry.ParseTypeKind(s)
}

// NewMapCatalog creates an empty catalog.
func NewMapCatalog() *MapCatalog {
	return registry.NewMapCatalog()
}

// TypeOf returns the TypeRef of the Go type T.
//
// Example:
//
//	svc, err := provider.Resolve(dicore.TypeOf[*UserService]())
func TypeOf[T any]() TypeRef {
	return reflection.TypeRef(reflect.TypeFor[T]())
}
