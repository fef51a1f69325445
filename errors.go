package dicore

import (
	"errors"
	"fmt"
	"reflect"
	"strings"

	"github.com/junioryono/dicore/internal/accessor"
	"github.com/junioryono/dicore/internal/graph"
	"github.com/junioryono/dicore/internal/lifetime"
	"github.com/junioryono/dicore/internal/reflection"
	"github.com/junioryono/dicore/internal/registry"
)

// ========================================
// Core Error Values (Sentinel Errors)
// ========================================
// These are base errors wrapped in typed errors when returned.

var (
	// Service resolution errors.
	ErrServiceNotFound = lifetime.ErrServiceNotFound

	// Lifecycle errors.
	ErrProviderNil      = errors.New("service provider cannot be nil")
	ErrProviderDisposed = errors.New("service provider has been disposed")
	ErrScopeDisposed    = lifetime.ErrScopeDisposed

	// Validation errors.
	ErrValidationFailed = accessor.ErrValidationFailed
	ErrConstructorNil   = reflection.ErrConstructorNil
	ErrTableSealed      = registry.ErrTableSealed
)

var (
	_ error = LifetimeError{}
	_ error = AlreadyRegisteredError{}
	_ error = ResolutionError{}
	_ error = RegistrationError{}
	_ error = ModuleError{}
	_ error = TypeMismatchError{}
	_ error = ConstructorInvocationError{}
	_ error = ConstructorPanicError{}
	_ error = (*BuildError)(nil)
	_ error = DisposalError{}
	_ error = CircularDependencyError{}
)

// ========================================
// Typed Errors for Rich Context
// ========================================

type (
	// LifetimeError indicates an invalid service lifetime value.
	LifetimeError = registry.LifetimeError

	// AlreadyRegisteredError indicates a service type is already registered.
	AlreadyRegisteredError = registry.AlreadyRegisteredError

	// RegistrationError wraps errors that occur while registering a service.
	RegistrationError = registry.RegistrationError

	// ResolutionError wraps errors that occur during service resolution.
	ResolutionError = lifetime.ResolutionError

	// CircularDependencyError represents a circular dependency, found either
	// by validation or at resolution time.
	CircularDependencyError = graph.CircularDependencyError

	// ConstructorInvocationError wraps an error returned by a constructor or factory.
	ConstructorInvocationError = accessor.ConstructorInvocationError

	// ConstructorPanicError indicates a constructor panicked during invocation.
	ConstructorPanicError = accessor.ConstructorPanicError

	// DisposalError aggregates disposal errors.
	DisposalError = lifetime.DisposalError
)

// BuildError is returned when validation reports fatal diagnostics. No
// provider is built.
type BuildError struct {
	Diagnostics Diagnostics
}

func (e *BuildError) Error() string {
	fatal := e.Diagnostics.Fatal()

	var b strings.Builder
	b.WriteString(fmt.Sprintf("build failed with %d error(s)", len(fatal)))
	if warnings := len(e.Diagnostics.Warnings()); warnings > 0 {
		b.WriteString(fmt.Sprintf(" and %d warning(s)", warnings))
	}
	b.WriteString(":")

	for _, d := range fatal {
		b.WriteString("\n  ")
		b.WriteString(d.Error())
	}

	return b.String()
}

// Unwrap exposes the fatal diagnostics and ErrValidationFailed.
func (e *BuildError) Unwrap() []error {
	fatal := e.Diagnostics.Fatal()
	errs := make([]error, 0, len(fatal)+1)
	errs = append(errs, ErrValidationFailed)
	for _, d := range fatal {
		errs = append(errs, d)
	}
	return errs
}

// ModuleError wraps errors from module configuration.
type ModuleError struct {
	Module string
	Cause  error
}

func (e ModuleError) Error() string {
	return fmt.Sprintf("module %q: %v", e.Module, e.Cause)
}

func (e ModuleError) Unwrap() error {
	return e.Cause
}

// TypeMismatchError indicates a type assertion or conversion failed.
type TypeMismatchError struct {
	Expected reflect.Type
	Actual   reflect.Type
	Context  string // "interface implementation", "type assertion", etc.
}

func (e TypeMismatchError) Error() string {
	return fmt.Sprintf("%s: expected %s, got %s", e.Context, formatType(e.Expected), formatType(e.Actual))
}

// ========================================
// Error Helper Functions
// ========================================

// IsNotFound checks if an error indicates a service was not found.
func IsNotFound(err error) bool {
	return errors.Is(err, ErrServiceNotFound)
}

// IsCircularDependency checks if an error is due to circular dependencies.
func IsCircularDependency(err error) bool {
	var circErr CircularDependencyError
	return errors.As(err, &circErr)
}

// IsDisposed checks if an error is due to a disposed provider or scope.
func IsDisposed(err error) bool {
	return errors.Is(err, ErrScopeDisposed) || errors.Is(err, ErrProviderDisposed)
}

func formatType(t reflect.Type) string {
	if t == nil {
		return "<nil>"
	}
	return t.String()
}
