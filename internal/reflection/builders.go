package reflection

import (
	"fmt"
	"reflect"

	"github.com/junioryono/dicore/internal/registry"
)

// TypeRef returns the registry reference of a Go type.
func TypeRef(t reflect.Type) registry.TypeRef {
	if t == nil {
		return registry.TypeRef{}
	}
	return registry.NewTypeRef(t, t.String())
}

// Kind classifies a Go type for validation.
func Kind(t reflect.Type) registry.TypeKind {
	if t == nil {
		return registry.KindUnknown
	}

	switch t.Kind() {
	case reflect.Interface:
		return registry.KindInterface
	case reflect.Bool, reflect.String,
		reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64, reflect.Uintptr,
		reflect.Float32, reflect.Float64, reflect.Complex64, reflect.Complex128:
		return registry.KindValue
	case reflect.Invalid, reflect.UnsafePointer:
		return registry.KindUnknown
	default:
		return registry.KindClass
	}
}

// ConstructorOptions adjusts the constructor produced by Build.
type ConstructorOptions struct {
	// Owner overrides the implementation type; defaults to ImplType.
	Owner registry.TypeRef

	// Marked prefers this constructor over all others of the same owner.
	Marked bool

	// Internal hides the constructor from selection.
	Internal bool
}

// Builder builds registry constructors from analyzed functions.
type Builder struct {
	analyzer *Analyzer
}

// NewBuilder creates a new constructor builder.
func NewBuilder(analyzer *Analyzer) *Builder {
	if analyzer == nil {
		analyzer = New()
	}
	return &Builder{analyzer: analyzer}
}

// Analyzer returns the analyzer used by the builder.
func (b *Builder) Analyzer() *Analyzer {
	return b.analyzer
}

// Build analyzes fn and returns the registry constructor describing it.
func (b *Builder) Build(fn any, opts ConstructorOptions) (*registry.Constructor, *ConstructorInfo, error) {
	info, err := b.analyzer.Analyze(fn)
	if err != nil {
		return nil, nil, err
	}

	owner := opts.Owner
	if owner.IsZero() {
		owner = info.ImplType()
	}

	params := make([]registry.TypeRef, len(info.Parameters))
	for i, p := range info.Parameters {
		params[i] = TypeRef(p)
	}

	return &registry.Constructor{
		Owner:      owner,
		Name:       info.Name,
		Parameters: params,
		Marked:     opts.Marked,
		Public:     !opts.Internal,
		Invoke:     NewInvoker(info),
		Location:   registry.Location(info.Location),
	}, info, nil
}

// Declare records types in the catalog with their reflected kinds. Types
// already declared keep their kind.
func Declare(catalog *registry.MapCatalog, types ...reflect.Type) {
	for _, t := range types {
		ref := TypeRef(t)
		if catalog.Kind(ref) != registry.KindUnknown {
			continue
		}
		catalog.Declare(ref, Kind(t))
	}
}

// NewInvoker returns an invoker that calls the analyzed function with
// positional arguments. Nil arguments become zero values.
func NewInvoker(info *ConstructorInfo) registry.Invoker {
	if !info.IsFunc {
		instance := info.Value.Interface()
		return func([]any) (any, error) {
			return instance, nil
		}
	}

	return func(args []any) (any, error) {
		if len(args) != len(info.Parameters) {
			return nil, fmt.Errorf("%s expects %d arguments, got %d", info.Name, len(info.Parameters), len(args))
		}

		in := make([]reflect.Value, len(args))
		for i, arg := range args {
			v, err := argValue(arg, info.Parameters[i])
			if err != nil {
				return nil, fmt.Errorf("argument %d of %s: %w", i, info.Name, err)
			}
			in[i] = v
		}

		results := info.Value.Call(in)

		if info.HasErrorReturn {
			if errVal := results[1]; !errVal.IsNil() {
				return nil, errVal.Interface().(error)
			}
		}

		return results[0].Interface(), nil
	}
}

func argValue(arg any, want reflect.Type) (reflect.Value, error) {
	if arg == nil {
		return reflect.Zero(want), nil
	}

	v := reflect.ValueOf(arg)
	if !v.Type().AssignableTo(want) {
		return reflect.Value{}, fmt.Errorf("%s is not assignable to %s", v.Type(), want)
	}
	return v, nil
}
