package dicore

import (
	"fmt"
	"reflect"
	"sync"

	"github.com/junioryono/dicore/internal/reflection"
	"github.com/junioryono/dicore/internal/registry"
)

// Collection gathers registrations and the constructors of their
// implementations, then builds them into a Provider.
//
// Collection follows a builder pattern where services are registered
// with their lifetimes, then validated as a whole by Build.
//
// Example:
//
//	collection := dicore.NewCollection()
//	collection.AddSingleton(NewLogger)
//	collection.AddScoped(NewDatabase, dicore.As[Database]())
//
//	provider, err := collection.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
type Collection interface {
	// Build creates a Provider from the registered services
	// using default options.
	Build() (Provider, error)

	// BuildWithOptions creates a Provider with custom options.
	BuildWithOptions(options *ProviderOptions) (Provider, error)

	// AddModules applies one or more module configurations to the service collection.
	AddModules(modules ...ModuleOption) error

	// AddSingleton registers a service with singleton lifetime.
	// Only one instance is created and shared across all resolutions.
	AddSingleton(constructor any, opts ...AddOption) error

	// AddScoped registers a service with scoped lifetime.
	// One instance is created per scope and shared within that scope.
	AddScoped(constructor any, opts ...AddOption) error

	// AddTransient registers a service with transient lifetime.
	// A new instance is created every time the service is resolved.
	AddTransient(constructor any, opts ...AddOption) error

	// AddFactory registers a factory for service. The factory fetches its
	// own dependencies from the resolver it is given.
	AddFactory(service TypeRef, lifetime Lifetime, factory Factory) error

	// Contains checks if a service type is registered.
	Contains(service TypeRef) bool

	// Remove removes the registration of a service type.
	Remove(service TypeRef)

	// Registrations returns a copy of the registrations in declaration order.
	Registrations() []Registration

	// Catalog returns the catalog of reflected types and constructors.
	Catalog() Catalog

	// Count returns the number of registered services.
	Count() int
}

// collection is the reflection backed Collection.
type collection struct {
	mu sync.RWMutex

	builder *reflection.Builder
	catalog *registry.MapCatalog

	regs []Registration

	// impls holds implementation types whose constructors are in the catalog
	impls map[TypeRef]bool

	// factories numbers synthetic factory implementations
	factories int
}

// factoryImpl identifies the hidden implementation behind a factory registration.
type factoryImpl struct {
	service TypeRef
	n       int
}

// NewCollection creates a new empty Collection instance.
//
// Example:
//
//	collection := dicore.NewCollection()
//	collection.AddSingleton(NewLogger)
//	provider, err := collection.Build()
func NewCollection() Collection {
	return &collection{
		builder: reflection.NewBuilder(nil),
		catalog: registry.NewMapCatalog(),
		impls:   make(map[TypeRef]bool),
	}
}

// Build creates a Provider from the registered services using default options.
func (sc *collection) Build() (Provider, error) {
	return sc.BuildWithOptions(nil)
}

// BuildWithOptions creates a Provider with custom options.
func (sc *collection) BuildWithOptions(options *ProviderOptions) (Provider, error) {
	return BuildProvider(sc.Registrations(), sc.catalog, options)
}

// AddModules applies one or more module configurations to the service collection.
func (sc *collection) AddModules(modules ...ModuleOption) error {
	for _, module := range modules {
		if module == nil {
			continue
		}

		if err := module(sc); err != nil {
			return err
		}
	}

	return nil
}

// AddSingleton adds a singleton service to the collection.
func (sc *collection) AddSingleton(constructor any, opts ...AddOption) error {
	return sc.addService(constructor, Singleton, opts...)
}

// AddScoped adds a scoped service to the collection.
func (sc *collection) AddScoped(constructor any, opts ...AddOption) error {
	return sc.addService(constructor, Scoped, opts...)
}

// AddTransient adds a transient service to the collection.
func (sc *collection) AddTransient(constructor any, opts ...AddOption) error {
	return sc.addService(constructor, Transient, opts...)
}

// AddFactory adds a factory registration to the collection.
func (sc *collection) AddFactory(service TypeRef, lifetime Lifetime, factory Factory) error {
	if service.IsZero() {
		return RegistrationError{Cause: registry.ErrImplTypeZero}
	}
	if factory == nil {
		return RegistrationError{ServiceType: service, Cause: ErrConstructorNil}
	}
	if !lifetime.IsValid() {
		return RegistrationError{ServiceType: service, Cause: LifetimeError{Value: int(lifetime)}}
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	if t, ok := service.Key().(reflect.Type); ok {
		reflection.Declare(sc.catalog, t)
	}

	sc.factories++
	impl := registry.NewTypeRef(factoryImpl{service: service, n: sc.factories}, fmt.Sprintf("factory(%s)", service))

	sc.regs = append(sc.regs, Registration{
		Service:  service,
		Impl:     impl,
		Lifetime: lifetime,
		Factory:  factory,
	})

	return nil
}

func (sc *collection) addService(constructor any, lifetime Lifetime, opts ...AddOption) error {
	if constructor == nil {
		return ErrConstructorNil
	}
	if !lifetime.IsValid() {
		return LifetimeError{Value: int(lifetime)}
	}

	options := &addOptions{}
	for _, opt := range opts {
		if opt != nil {
			opt.applyAddOption(options)
		}
	}
	if err := options.Validate(); err != nil {
		return err
	}

	primary, info, err := sc.builder.Build(constructor, reflection.ConstructorOptions{})
	if err != nil {
		return fmt.Errorf("invalid constructor %T: %w", constructor, err)
	}
	impl := primary.Owner

	ctors := []*registry.Constructor{primary}
	infos := []*reflection.ConstructorInfo{info}

	type extra struct {
		fns  []any
		opts reflection.ConstructorOptions
	}
	for _, group := range []extra{
		{options.Also, reflection.ConstructorOptions{Owner: impl}},
		{options.Marked, reflection.ConstructorOptions{Owner: impl, Marked: true}},
		{options.Internal, reflection.ConstructorOptions{Owner: impl, Internal: true}},
	} {
		for _, fn := range group.fns {
			ctor, extraInfo, err := sc.builder.Build(fn, group.opts)
			if err != nil {
				return fmt.Errorf("invalid constructor %T: %w", fn, err)
			}
			if extraInfo.Result != info.Result {
				return TypeMismatchError{
					Expected: info.Result,
					Actual:   extraInfo.Result,
					Context:  "alternative constructor of " + impl.String(),
				}
			}
			ctors = append(ctors, ctor)
			infos = append(infos, extraInfo)
		}
	}

	services, err := serviceTypes(info, impl, options.As)
	if err != nil {
		return err
	}

	sc.mu.Lock()
	defer sc.mu.Unlock()

	for _, ci := range infos {
		reflection.Declare(sc.catalog, ci.Result)
		reflection.Declare(sc.catalog, ci.Parameters...)
	}
	for _, t := range options.As {
		reflection.Declare(sc.catalog, t)
	}

	if !sc.impls[impl] {
		sc.impls[impl] = true
		for _, ctor := range ctors {
			sc.catalog.AddConstructor(ctor)
		}
	}

	for _, service := range services {
		sc.regs = append(sc.regs, Registration{
			Service:  service,
			Impl:     impl,
			Lifetime: lifetime,
			Location: registry.Location(info.Location),
		})
	}

	return nil
}

// serviceTypes returns the types a constructor is registered under.
// A zero TypeRef means self-registration.
func serviceTypes(info *reflection.ConstructorInfo, impl TypeRef, as []reflect.Type) ([]TypeRef, error) {
	if len(as) == 0 {
		if info.Result.Kind() == reflect.Interface && info.IsFunc {
			return []TypeRef{reflection.TypeRef(info.Result)}, nil
		}
		return []TypeRef{{}}, nil
	}

	services := make([]TypeRef, 0, len(as))
	for _, t := range as {
		if !info.Result.AssignableTo(t) {
			return nil, TypeMismatchError{
				Expected: t,
				Actual:   info.Result,
				Context:  "interface implementation",
			}
		}
		services = append(services, reflection.TypeRef(t))
	}

	return services, nil
}

// Contains checks if a service type is registered in the collection.
func (sc *collection) Contains(service TypeRef) bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	for _, reg := range sc.regs {
		if reg.ServiceType() == service {
			return true
		}
	}

	return false
}

// Remove removes every registration of a service type. Constructors stay in
// the catalog.
func (sc *collection) Remove(service TypeRef) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	kept := sc.regs[:0]
	for _, reg := range sc.regs {
		if reg.ServiceType() != service {
			kept = append(kept, reg)
		}
	}
	clear(sc.regs[len(kept):])
	sc.regs = kept
}

// Registrations returns a copy of all registrations.
func (sc *collection) Registrations() []Registration {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	return append([]Registration(nil), sc.regs...)
}

// Catalog returns the collection's catalog.
func (sc *collection) Catalog() Catalog {
	return sc.catalog
}

// Count returns the number of registrations.
func (sc *collection) Count() int {
	sc.mu.RLock()
	defer sc.mu.RUnlock()

	return len(sc.regs)
}
