package testutil

import (
	"testing"

	"github.com/junioryono/dicore/internal/registry"
)

// ABScenario registers A (parameterless) with the given lifetime and B(A)
// as a transient.
func ABScenario(t testing.TB, aLifetime registry.Lifetime) *CatalogBuilder {
	b := NewCatalogBuilder(t)
	b.Ctor("A")
	b.Ctor("B", "A")
	b.Register("", "A", aLifetime)
	b.Transient("B")
	return b
}

// MissingScenario registers only B, which depends on the unregistered C.
func MissingScenario(t testing.TB) *CatalogBuilder {
	b := NewCatalogBuilder(t)
	b.Ctor("C")
	b.Ctor("B", "C")
	b.Transient("B")
	return b
}

// LayeredScenario builds a typical application graph:
//
//	IRepo => Repo(Config)        singleton
//	Config                       singleton
//	Service(IRepo, Clock)        scoped
//	Clock                        transient
//	Handler(Service)             transient
func LayeredScenario(t testing.TB) *CatalogBuilder {
	b := NewCatalogBuilder(t)
	b.Interface("IRepo")
	b.DisposableCtor("Config")
	b.DisposableCtor("Repo", "Config")
	b.Ctor("Clock")
	b.DisposableCtor("Service", "IRepo", "Clock")
	b.Ctor("Handler", "Service")

	b.Singleton("Config")
	b.Register("IRepo", "Repo", registry.Singleton)
	b.Scoped("Service")
	b.Transient("Clock")
	b.Transient("Handler")
	return b
}
