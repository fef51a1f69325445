package dicore

import (
	"bytes"
	"fmt"
	"reflect"
)

// ModuleOption represents a registration action within a module.
type ModuleOption func(Collection) error

// NewModule creates a new module with the given name and builders.
// Modules are a way to group related service registrations together.
//
// Example:
//
//	var DatabaseModule = dicore.NewModule("database",
//	    dicore.AddSingleton(NewDatabaseConnection),
//	    dicore.AddScoped(NewUserRepository, dicore.As[UserRepository]()),
//	)
//
//	var AppModule = dicore.NewModule("app",
//	    DatabaseModule,
//	    dicore.AddScoped(NewUserService),
//	)
func NewModule(name string, builders ...ModuleOption) ModuleOption {
	return func(s Collection) error {
		for _, builder := range builders {
			if builder == nil {
				continue
			}

			if err := builder(s); err != nil {
				return ModuleError{Module: name, Cause: err}
			}
		}

		return nil
	}
}

// AddSingleton creates a ModuleOption for adding a singleton service.
func AddSingleton(constructor any, opts ...AddOption) ModuleOption {
	return func(s Collection) error {
		return s.AddSingleton(constructor, opts...)
	}
}

// AddScoped creates a ModuleOption for adding a scoped service.
func AddScoped(constructor any, opts ...AddOption) ModuleOption {
	return func(s Collection) error {
		return s.AddScoped(constructor, opts...)
	}
}

// AddTransient creates a ModuleOption for adding a transient service.
func AddTransient(constructor any, opts ...AddOption) ModuleOption {
	return func(s Collection) error {
		return s.AddTransient(constructor, opts...)
	}
}

// AddFactory creates a ModuleOption registering a typed factory for T.
func AddFactory[T any](lifetime Lifetime, factory func(Resolver) (T, error)) ModuleOption {
	return func(s Collection) error {
		return s.AddFactory(TypeOf[T](), lifetime, func(r Resolver) (any, error) {
			return factory(r)
		})
	}
}

// An AddOption modifies the default behavior of AddSingleton, AddScoped, and AddTransient.
type AddOption interface {
	applyAddOption(*addOptions)
}

type addOptions struct {
	As       []reflect.Type
	Also     []any
	Marked   []any
	Internal []any
}

func (o *addOptions) Validate() error {
	for _, t := range o.As {
		if t == nil || t.Kind() != reflect.Interface {
			return fmt.Errorf("invalid dicore.As[%v]: type argument must be an interface", t)
		}
	}

	for _, group := range [][]any{o.Also, o.Marked, o.Internal} {
		for _, fn := range group {
			if fn == nil {
				return ErrConstructorNil
			}
			if reflect.TypeOf(fn).Kind() != reflect.Func {
				return fmt.Errorf("alternative constructor must be a function, got %T", fn)
			}
		}
	}

	return nil
}

// As is an AddOption that provides the constructed value as the interface
// T instead of as the value itself. It may be given more than once; each
// interface is a separate registration.
//
// For example, the following will make io.Reader available in the container,
// but not *bytes.Buffer.
//
//	c.AddSingleton(newBuffer, dicore.As[io.Reader]())
func As[T any]() AddOption {
	return addAsOption{reflect.TypeFor[T]()}
}

type addAsOption []reflect.Type

func (o addAsOption) String() string {
	buf := bytes.NewBufferString("As(")
	for i, iface := range o {
		if i > 0 {
			buf.WriteString(", ")
		}
		buf.WriteString(formatType(iface))
	}
	buf.WriteString(")")
	return buf.String()
}

func (o addAsOption) applyAddOption(opts *addOptions) {
	opts.As = append(opts.As, o...)
}

// Also adds alternative public constructors of the same implementation.
// At build time a parameterless constructor is preferred, then the one with
// the fewest parameters whose dependencies are all registered.
//
//	c.AddSingleton(NewClient, dicore.Also(NewClientWithConfig))
func Also(constructors ...any) AddOption {
	return addAlsoOption(constructors)
}

type addAlsoOption []any

func (o addAlsoOption) String() string {
	return fmt.Sprintf("Also(%d constructors)", len(o))
}

func (o addAlsoOption) applyAddOption(opts *addOptions) {
	opts.Also = append(opts.Also, o...)
}

// Marked adds a constructor that is always preferred over the others of
// the same implementation, regardless of parameter count.
func Marked(constructor any) AddOption {
	return addMarkedOption{constructor}
}

type addMarkedOption []any

func (o addMarkedOption) String() string {
	return fmt.Sprintf("Marked(%T)", o[0])
}

func (o addMarkedOption) applyAddOption(opts *addOptions) {
	opts.Marked = append(opts.Marked, o...)
}

// Internal adds a constructor that is never selected. It is reported when
// combined with marking, and otherwise documents the constructor's existence.
func Internal(constructor any) AddOption {
	return addInternalOption{constructor}
}

type addInternalOption []any

func (o addInternalOption) String() string {
	return fmt.Sprintf("Internal(%T)", o[0])
}

func (o addInternalOption) applyAddOption(opts *addOptions) {
	opts.Internal = append(opts.Internal, o...)
}
