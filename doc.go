// Package dicore provides a dependency injection engine for Go applications.
// Registrations are validated as a whole before anything is built, so a
// missing dependency, a cycle or a lifetime violation is reported once, at
// startup, with every problem listed.
//
// # Overview
//
// dicore is organized as a small pipeline:
//   - A registration table maps service types to implementation types with a lifetime
//   - A constructor selector picks one constructor per implementation type
//   - A validator walks the dependency graph and reports diagnostics
//   - An accessor registry precomputes one construction recipe per service
//   - A resolution engine builds instances per lifetime and disposes them in reverse order
//
// # Basic Usage
//
// Create a collection, register your services, build a provider, and resolve:
//
//	services := dicore.NewCollection()
//	services.AddSingleton(NewLogger)
//	services.AddScoped(NewUserService)
//
//	provider, err := services.Build()
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer provider.Close()
//
//	scope, err := provider.CreateScope(ctx)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	defer scope.Close()
//
//	userService, err := dicore.Resolve[*UserService](scope)
//
// # Service Lifetimes
//
//   - Singleton: One instance per provider, owned by the root scope
//   - Scoped: One instance per scope
//   - Transient: New instance every time the service is requested
//
// By default a singleton may not depend on a scoped service, directly or
// through transients. Set ProviderOptions.LifetimePolicy to PolicyWarn to
// downgrade the violation to a warning.
//
// # Constructor Selection
//
// An implementation may have several constructors:
//
//	services.AddSingleton(NewClient,
//	    dicore.Also(NewClientWithConfig),
//	    dicore.Marked(NewClientForTests),
//	)
//
// A marked constructor always wins. Otherwise a parameterless constructor is
// used, then the one with the fewest parameters whose dependencies are all
// registered. Equal counts keep the first declared constructor and produce
// a warning.
//
// # Interfaces
//
// Use As to register an implementation under an interface:
//
//	services.AddSingleton(NewFileStore, dicore.As[Store]())
//
// A constructor that returns an interface is registered under that interface.
//
// # Factories
//
// A factory replaces constructor selection and fetches its own dependencies:
//
//	services.AddModules(dicore.AddFactory(dicore.Scoped, func(r dicore.Resolver) (*Session, error) {
//	    db, err := dicore.Resolve[*Database](r)
//	    if err != nil {
//	        return nil, err
//	    }
//	    return NewSession(db), nil
//	}))
//
// Factories must use the resolver they are given. Resolving through a
// captured scope bypasses cycle detection.
//
// # Disposal
//
// Instances implementing Disposable or DisposableWithContext are closed when
// their owning scope closes, in reverse creation order. Errors are collected
// into a DisposalError.
//
// # Diagnostics
//
// Build returns a *BuildError when validation finds a fatal problem:
//
//	provider, err := services.Build()
//	var buildErr *dicore.BuildError
//	if errors.As(err, &buildErr) {
//	    for _, d := range buildErr.Diagnostics {
//	        fmt.Println(d)
//	    }
//	}
//
// Warnings do not stop the build; they are logged and available from
// Provider.Diagnostics.
package dicore
