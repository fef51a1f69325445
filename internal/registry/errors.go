package registry

import (
	"errors"
	"fmt"
)

var (
	// ErrTableSealed is returned when registering into a validated table.
	ErrTableSealed = errors.New("registration table is sealed")

	// ErrImplTypeZero is returned for a registration without implementation type.
	ErrImplTypeZero = errors.New("implementation type cannot be empty")
)

// LifetimeError indicates an invalid lifetime value.
type LifetimeError struct {
	Value any
}

func (e LifetimeError) Error() string {
	return fmt.Sprintf("invalid service lifetime: %v", e.Value)
}

// AlreadyRegisteredError indicates a service type is already registered.
type AlreadyRegisteredError struct {
	ServiceType TypeRef
	Existing    Registration
}

func (e AlreadyRegisteredError) Error() string {
	return fmt.Sprintf("service %s already registered (implementation %s)", e.ServiceType, e.Existing.Impl)
}

// RegistrationError wraps errors raised while adding a registration.
type RegistrationError struct {
	ServiceType TypeRef
	Location    Location
	Cause       error
}

func (e RegistrationError) Error() string {
	if e.Location != "" {
		return fmt.Sprintf("failed to register %s at %s: %v", e.ServiceType, e.Location, e.Cause)
	}

	return fmt.Sprintf("failed to register %s: %v", e.ServiceType, e.Cause)
}

func (e RegistrationError) Unwrap() error {
	return e.Cause
}
