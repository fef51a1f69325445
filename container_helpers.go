package dicore

import (
	"fmt"
	"reflect"
)

// Resolve is a generic helper function that resolves a service as type T.
// r is typically a Provider or a Scope.
//
// Example:
//
//	service, err := dicore.Resolve[*UserService](scope)
func Resolve[T any](r Resolver) (T, error) {
	var zero T

	if r == nil {
		return zero, ErrProviderNil
	}

	instance, err := r.Resolve(TypeOf[T]())
	if err != nil {
		return zero, err
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(instance),
			Context:  "type assertion",
		}
	}

	return result, nil
}

// MustResolve resolves a service and panics on error.
func MustResolve[T any](r Resolver) T {
	result, err := Resolve[T](r)
	if err != nil {
		panic(fmt.Sprintf("failed to resolve %s: %v", reflect.TypeFor[T](), err))
	}
	return result
}

// TryResolve resolves a service, reporting any failure as false.
func TryResolve[T any](r Resolver) (T, bool) {
	result, err := Resolve[T](r)
	return result, err == nil
}

// ResolveAs resolves t and asserts the instance to T. Use it for services
// registered under a TypeRef that is not a Go type, like manifest types.
func ResolveAs[T any](r Resolver, t TypeRef) (T, error) {
	var zero T

	if r == nil {
		return zero, ErrProviderNil
	}

	instance, err := r.Resolve(t)
	if err != nil {
		return zero, err
	}

	result, ok := instance.(T)
	if !ok {
		return zero, TypeMismatchError{
			Expected: reflect.TypeFor[T](),
			Actual:   reflect.TypeOf(instance),
			Context:  "type assertion for " + t.String(),
		}
	}

	return result, nil
}
