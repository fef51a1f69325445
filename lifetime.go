package dicore

import "github.com/junioryono/dicore/internal/registry"

// Lifetime specifies the lifetime of a service in a Collection.
// The lifetime determines when instances are created and how they are cached.
type Lifetime = registry.Lifetime

const (
	// Singleton specifies that a single instance of the service will be created.
	// The instance is created on first request and cached by the root scope.
	// Singleton services must not depend on Scoped services.
	Singleton = registry.Singleton

	// Scoped specifies that a new instance of the service will be created for each scope.
	// In web applications, this typically means one instance per HTTP request.
	// Scoped services are disposed when their scope is disposed.
	Scoped = registry.Scoped

	// Transient specifies that a new instance is created on every resolution.
	// Disposable transients are disposed with the scope that resolved them.
	Transient = registry.Transient
)
