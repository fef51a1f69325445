package registry

import (
	"sync"
)

// Table stores the registrations of one provider definition.
//
// The table is append-only: registrations can be added until Seal is called,
// after which it is read-only and safe to share between goroutines.
type Table struct {
	mu       sync.RWMutex
	provider ProviderID
	sealed   bool

	// regs keeps declaration order
	regs []Registration

	// services indexes regs by service type
	services map[TypeRef]int

	// impls maps an implementation type to the first registration using it
	impls map[TypeRef]int
}

// NewTable creates an empty table for the given provider.
func NewTable(provider ProviderID) *Table {
	return &Table{
		provider: provider,
		services: make(map[TypeRef]int),
		impls:    make(map[TypeRef]int),
	}
}

// Provider returns the provider the table belongs to.
func (t *Table) Provider() ProviderID {
	return t.provider
}

// Add appends a registration.
func (t *Table) Add(reg Registration) error {
	if reg.Impl.IsZero() {
		return RegistrationError{ServiceType: reg.Service, Location: reg.Location, Cause: ErrImplTypeZero}
	}

	if !reg.Lifetime.IsValid() {
		return RegistrationError{ServiceType: reg.ServiceType(), Location: reg.Location, Cause: LifetimeError{Value: int(reg.Lifetime)}}
	}

	if reg.Service == reg.Impl {
		reg.Service = TypeRef{}
	}

	if reg.Provider == "" {
		reg.Provider = t.provider
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if t.sealed {
		return ErrTableSealed
	}

	service := reg.ServiceType()
	if idx, ok := t.services[service]; ok {
		return AlreadyRegisteredError{ServiceType: service, Existing: t.regs[idx]}
	}

	t.regs = append(t.regs, reg)
	idx := len(t.regs) - 1
	t.services[service] = idx
	if _, ok := t.impls[reg.Impl]; !ok {
		t.impls[reg.Impl] = idx
	}

	return nil
}

// Seal makes the table read-only.
func (t *Table) Seal() {
	t.mu.Lock()
	t.sealed = true
	t.mu.Unlock()
}

// IsSealed reports whether Seal has been called.
func (t *Table) IsSealed() bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return t.sealed
}

// Registrations returns a copy of all registrations in declaration order.
func (t *Table) Registrations() []Registration {
	t.mu.RLock()
	defer t.mu.RUnlock()

	out := make([]Registration, len(t.regs))
	copy(out, t.regs)
	return out
}

// Lookup returns the registration for a service type.
func (t *Table) Lookup(service TypeRef) (Registration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	idx, ok := t.services[service]
	if !ok {
		return Registration{}, false
	}

	return t.regs[idx], true
}

// ImplOf returns the registration that satisfies t. A service type maps to
// its own registration; an implementation type that is not a service type
// maps to the first registration declaring it.
func (t *Table) ImplOf(typ TypeRef) (Registration, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if idx, ok := t.services[typ]; ok {
		return t.regs[idx], true
	}

	if idx, ok := t.impls[typ]; ok {
		return t.regs[idx], true
	}

	return Registration{}, false
}

// IsRegistered reports whether typ is in the registered closure: a service
// type or an implementation type of some registration.
func (t *Table) IsRegistered(typ TypeRef) bool {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if _, ok := t.services[typ]; ok {
		return true
	}

	_, ok := t.impls[typ]
	return ok
}

// Len returns the number of registrations.
func (t *Table) Len() int {
	t.mu.RLock()
	defer t.mu.RUnlock()

	return len(t.regs)
}
