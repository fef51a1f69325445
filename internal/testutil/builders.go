package testutil

import (
	"sync"
	"sync/atomic"
	"testing"

	"github.com/junioryono/dicore/internal/registry"
	"github.com/stretchr/testify/require"
)

// T returns the named TypeRef used throughout the tests.
func T(name string) registry.TypeRef {
	return registry.Named(name)
}

// CatalogBuilder provides a fluent interface for building test catalogs
// and registrations over named types.
type CatalogBuilder struct {
	t       testing.TB
	catalog *registry.MapCatalog
	regs    []registry.Registration

	mu       sync.Mutex
	counters map[registry.TypeRef]*atomic.Int64
	closed   []string
	seq      atomic.Int64
}

// NewCatalogBuilder creates a new CatalogBuilder
func NewCatalogBuilder(t testing.TB) *CatalogBuilder {
	return &CatalogBuilder{
		t:        t,
		catalog:  registry.NewMapCatalog(),
		counters: make(map[registry.TypeRef]*atomic.Int64),
	}
}

// Interface declares an interface type
func (b *CatalogBuilder) Interface(names ...string) *CatalogBuilder {
	for _, name := range names {
		b.catalog.Declare(T(name), registry.KindInterface)
	}
	return b
}

// Abstract declares an abstract class type
func (b *CatalogBuilder) Abstract(name string) *CatalogBuilder {
	b.catalog.Declare(T(name), registry.KindAbstract)
	return b
}

// Value declares a value type
func (b *CatalogBuilder) Value(name string) *CatalogBuilder {
	b.catalog.Declare(T(name), registry.KindValue)
	return b
}

// Class declares a class with a public parameterless constructor
func (b *CatalogBuilder) Class(names ...string) *CatalogBuilder {
	for _, name := range names {
		b.Ctor(name)
	}
	return b
}

// Ctor adds a public constructor for owner. The returned constructor can be
// adjusted before the catalog is used.
func (b *CatalogBuilder) Ctor(owner string, params ...string) *registry.Constructor {
	return b.addCtor(owner, false, params...)
}

// DisposableCtor adds a public constructor producing *DisposableInstance values
func (b *CatalogBuilder) DisposableCtor(owner string, params ...string) *registry.Constructor {
	return b.addCtor(owner, true, params...)
}

// FailingCtor adds a public constructor whose invoker returns err
func (b *CatalogBuilder) FailingCtor(owner string, err error, params ...string) *registry.Constructor {
	c := b.Ctor(owner, params...)
	c.Invoke = func(args []any) (any, error) {
		b.counter(c.Owner).Add(1)
		return nil, err
	}
	return c
}

func (b *CatalogBuilder) addCtor(owner string, disposable bool, params ...string) *registry.Constructor {
	ownerRef := T(owner)
	refs := make([]registry.TypeRef, len(params))
	for i, p := range params {
		refs[i] = T(p)
	}

	counter := b.counter(ownerRef)
	c := &registry.Constructor{
		Owner:      ownerRef,
		Name:       "New" + owner,
		Parameters: refs,
		Public:     true,
		Location:   registry.Location("test:" + owner),
	}
	c.Invoke = func(args []any) (any, error) {
		counter.Add(1)
		inst := &Instance{
			Type: ownerRef,
			Args: append([]any(nil), args...),
			Seq:  b.seq.Add(1),
		}
		if disposable {
			return &DisposableInstance{Instance: inst, onClose: b.recordClose}, nil
		}
		return inst, nil
	}

	b.catalog.AddConstructor(c)
	return c
}

// Register adds a registration; an empty service registers impl as itself
func (b *CatalogBuilder) Register(service, impl string, lifetime registry.Lifetime) *CatalogBuilder {
	reg := registry.Registration{Impl: T(impl), Lifetime: lifetime, Location: registry.Location("test:" + impl)}
	if service != "" {
		reg.Service = T(service)
	}
	b.regs = append(b.regs, reg)
	return b
}

// Singleton registers impl as a singleton of itself
func (b *CatalogBuilder) Singleton(impl string) *CatalogBuilder {
	return b.Register("", impl, registry.Singleton)
}

// Scoped registers impl as a scoped service of itself
func (b *CatalogBuilder) Scoped(impl string) *CatalogBuilder {
	return b.Register("", impl, registry.Scoped)
}

// Transient registers impl as a transient service of itself
func (b *CatalogBuilder) Transient(impl string) *CatalogBuilder {
	return b.Register("", impl, registry.Transient)
}

// Factory registers impl with a factory method
func (b *CatalogBuilder) Factory(service, impl string, lifetime registry.Lifetime, factory registry.Factory) *CatalogBuilder {
	reg := registry.Registration{Impl: T(impl), Lifetime: lifetime, Factory: factory}
	if service != "" {
		reg.Service = T(service)
	}
	b.regs = append(b.regs, reg)
	return b
}

// Catalog returns the built catalog
func (b *CatalogBuilder) Catalog() *registry.MapCatalog {
	return b.catalog
}

// Registrations returns the registrations in declaration order
func (b *CatalogBuilder) Registrations() []registry.Registration {
	return append([]registry.Registration(nil), b.regs...)
}

// Table loads the registrations into a table and fails the test on error
func (b *CatalogBuilder) Table() *registry.Table {
	table := registry.NewTable("test")
	for _, reg := range b.regs {
		require.NoError(b.t, table.Add(reg))
	}
	return table
}

// Constructed returns how many times the constructors of name were invoked
func (b *CatalogBuilder) Constructed(name string) int64 {
	return b.counter(T(name)).Load()
}

// Closed returns the owners of closed disposable instances in close order
func (b *CatalogBuilder) Closed() []string {
	b.mu.Lock()
	defer b.mu.Unlock()

	return append([]string(nil), b.closed...)
}

func (b *CatalogBuilder) counter(t registry.TypeRef) *atomic.Int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	c, ok := b.counters[t]
	if !ok {
		c = new(atomic.Int64)
		b.counters[t] = c
	}
	return c
}

func (b *CatalogBuilder) recordClose(name string) {
	b.mu.Lock()
	b.closed = append(b.closed, name)
	b.mu.Unlock()
}
