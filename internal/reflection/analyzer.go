// Package reflection turns Go constructor functions into registry
// constructors with reflect-based invokers.
package reflection

import (
	"errors"
	"fmt"
	"reflect"
	"runtime"
	"strings"
	"sync"

	"github.com/junioryono/dicore/internal/registry"
)

var errType = reflect.TypeOf((*error)(nil)).Elem()

var (
	// ErrConstructorNil is returned when analyzing a nil constructor.
	ErrConstructorNil = errors.New("constructor cannot be nil")

	// ErrNoReturn is returned for functions without a result.
	ErrNoReturn = errors.New("constructor must return a value")

	// ErrBadReturn is returned when the results are not (T) or (T, error).
	ErrBadReturn = errors.New("constructor must return (T) or (T, error)")

	// ErrVariadic is returned for variadic functions.
	ErrVariadic = errors.New("variadic constructors are not supported")
)

// Analyzer performs reflection-based analysis of constructors.
// It caches analysis results per function.
type Analyzer struct {
	mu    sync.RWMutex
	cache map[uintptr]*ConstructorInfo
}

// ConstructorInfo contains analyzed information about a constructor function or instance.
type ConstructorInfo struct {
	Type       reflect.Type
	Value      reflect.Value
	Parameters []reflect.Type

	// Result is the produced type; for instances, the instance's type.
	Result reflect.Type

	IsFunc         bool // True if this is a function constructor
	HasErrorReturn bool // Returns error as last value

	// Name is the short function name, e.g. "NewUserService".
	Name string

	// Location is file:line of the function, when known.
	Location string
}

// New creates a new Analyzer.
func New() *Analyzer {
	return &Analyzer{
		cache: make(map[uintptr]*ConstructorInfo),
	}
}

// Analyze analyzes a constructor function, or an instance value which is
// treated as a parameterless constructor returning itself.
func (a *Analyzer) Analyze(constructor any) (*ConstructorInfo, error) {
	if constructor == nil {
		return nil, ErrConstructorNil
	}

	val := reflect.ValueOf(constructor)
	typ := val.Type()

	if typ.Kind() != reflect.Func {
		return &ConstructorInfo{
			Type:   typ,
			Value:  val,
			Result: typ,
			Name:   "value[" + typ.String() + "]",
		}, nil
	}

	// Typed nil functions
	if val.IsNil() {
		return nil, ErrConstructorNil
	}

	// Different functions with the same signature are cached separately.
	cacheKey := val.Pointer()

	a.mu.RLock()
	if cached, ok := a.cache[cacheKey]; ok {
		a.mu.RUnlock()
		return cached, nil
	}
	a.mu.RUnlock()

	info := &ConstructorInfo{
		Type:   typ,
		Value:  val,
		IsFunc: true,
	}

	if typ.IsVariadic() {
		return nil, fmt.Errorf("%w: %s", ErrVariadic, typ)
	}

	if err := a.analyzeReturns(info); err != nil {
		return nil, err
	}

	info.Parameters = make([]reflect.Type, typ.NumIn())
	for i := range info.Parameters {
		info.Parameters[i] = typ.In(i)
	}

	info.Name, info.Location = funcName(val)

	a.mu.Lock()
	a.cache[cacheKey] = info
	a.mu.Unlock()

	return info, nil
}

// analyzeReturns accepts (T) and (T, error).
func (a *Analyzer) analyzeReturns(info *ConstructorInfo) error {
	fnType := info.Type

	switch fnType.NumOut() {
	case 0:
		return fmt.Errorf("%w: %s", ErrNoReturn, fnType)
	case 1:
		if fnType.Out(0) == errType {
			return fmt.Errorf("%w: %s only returns error", ErrBadReturn, fnType)
		}
	case 2:
		if fnType.Out(1) != errType {
			return fmt.Errorf("%w: second result of %s is not error", ErrBadReturn, fnType)
		}
		info.HasErrorReturn = true
	default:
		return fmt.Errorf("%w: %s", ErrBadReturn, fnType)
	}

	info.Result = fnType.Out(0)
	return nil
}

// Clear clears the analysis cache.
func (a *Analyzer) Clear() {
	a.mu.Lock()
	a.cache = make(map[uintptr]*ConstructorInfo)
	a.mu.Unlock()
}

// CacheSize returns the number of cached analyses.
func (a *Analyzer) CacheSize() int {
	a.mu.RLock()
	defer a.mu.RUnlock()
	return len(a.cache)
}

// implKey identifies the hidden implementation behind a constructor that
// returns an interface.
type implKey struct {
	iface reflect.Type
	fn    uintptr
}

// ImplType returns the TypeRef the constructor builds. A constructor
// returning an interface builds a synthetic implementation type unique to
// that function, so the interface remains usable as a service contract.
func (info *ConstructorInfo) ImplType() registry.TypeRef {
	if info.IsFunc && info.Result.Kind() == reflect.Interface {
		return registry.NewTypeRef(
			implKey{iface: info.Result, fn: info.Value.Pointer()},
			fmt.Sprintf("%s(%s)", info.Result, info.Name),
		)
	}
	return TypeRef(info.Result)
}

// Signature renders the constructor like "func(*Database, Logger) *UserService".
func (info *ConstructorInfo) Signature() string {
	if !info.IsFunc {
		return info.Name
	}

	params := make([]string, len(info.Parameters))
	for i, p := range info.Parameters {
		params[i] = p.String()
	}

	result := info.Result.String()
	if info.HasErrorReturn {
		result = "(" + result + ", error)"
	}

	return fmt.Sprintf("func(%s) %s", strings.Join(params, ", "), result)
}

// funcName returns the short name and file:line of a function value.
func funcName(fn reflect.Value) (string, string) {
	f := runtime.FuncForPC(fn.Pointer())
	if f == nil {
		return fn.Type().String(), ""
	}

	name := f.Name()
	if i := strings.LastIndex(name, "/"); i >= 0 {
		name = name[i+1:]
	}
	if i := strings.Index(name, "."); i >= 0 {
		name = name[i+1:]
	}

	file, line := f.FileLine(fn.Pointer())
	return name, fmt.Sprintf("%s:%d", file, line)
}
