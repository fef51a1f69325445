// Package diagnostic defines the findings produced by the validation pass.
package diagnostic

import (
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/junioryono/dicore/internal/registry"
)

// Kind identifies the category of a diagnostic.
type Kind int

const (
	// InvalidServiceType: the contract type is neither interface nor class.
	InvalidServiceType Kind = iota + 1

	// InvalidImplementationType: the implementation is abstract or not a class.
	InvalidImplementationType

	// NoPublicConstructor: the type has no accessible constructor.
	NoPublicConstructor

	// AmbiguousMarkedConstructor: more than one constructor is marked for injection.
	AmbiguousMarkedConstructor

	// NoMatchedConstructor: no constructor has all of its parameters registered.
	NoMatchedConstructor

	// AmbiguousConstructor: several constructors tied and the first was used.
	AmbiguousConstructor

	// MissingDependency: a required parameter type is not registered.
	MissingDependency

	// CircularDependency: the chosen constructors form a cycle.
	CircularDependency

	// LifetimeMismatch: a singleton captures a scoped service.
	LifetimeMismatch

	// DuplicateRegistration: a service type is registered more than once.
	DuplicateRegistration

	// NonPublicMarkedConstructor: a constructor marked for injection is not public.
	NonPublicMarkedConstructor
)

var kindNames = map[Kind]string{
	InvalidServiceType:         "InvalidServiceType",
	InvalidImplementationType:  "InvalidImplementationType",
	NoPublicConstructor:        "NoPublicConstructor",
	AmbiguousMarkedConstructor: "AmbiguousMarkedConstructor",
	NoMatchedConstructor:       "NoMatchedConstructor",
	AmbiguousConstructor:       "AmbiguousConstructor",
	MissingDependency:          "MissingDependency",
	CircularDependency:         "CircularDependency",
	LifetimeMismatch:           "LifetimeMismatch",
	DuplicateRegistration:      "DuplicateRegistration",
	NonPublicMarkedConstructor: "NonPublicMarkedConstructor",
}

func (k Kind) String() string {
	if name, ok := kindNames[k]; ok {
		return name
	}

	return fmt.Sprintf("Kind(%d)", int(k))
}

// Code returns the stable diagnostic code, e.g. DI0007.
func (k Kind) Code() string {
	return fmt.Sprintf("DI%04d", int(k))
}

// Severity returns the default severity of the kind.
func (k Kind) Severity() Severity {
	switch k {
	case AmbiguousConstructor:
		return Warning
	default:
		return Error
	}
}

// Severity tells whether a diagnostic blocks the build pass.
type Severity int

const (
	// Error diagnostics are fatal.
	Error Severity = iota

	// Warning diagnostics are collected but never block.
	Warning
)

func (s Severity) String() string {
	switch s {
	case Error:
		return "error"
	case Warning:
		return "warning"
	default:
		return fmt.Sprintf("Severity(%d)", int(s))
	}
}

// Diagnostic is a single validation finding.
type Diagnostic struct {
	Kind     Kind
	Severity Severity

	// Type is the offending type.
	Type registry.TypeRef

	// Related is the second type involved, e.g. the type requiring a
	// missing dependency or the scoped service captured by a singleton.
	Related registry.TypeRef

	// Path holds the cycle or capture chain when relevant.
	Path []registry.TypeRef

	// Location is the front end's source token for Type, if any.
	Location registry.Location

	Message string
}

// New creates a diagnostic with the kind's default severity.
func New(kind Kind, t registry.TypeRef, format string, args ...any) Diagnostic {
	return Diagnostic{
		Kind:     kind,
		Severity: kind.Severity(),
		Type:     t,
		Message:  fmt.Sprintf(format, args...),
	}
}

// IsFatal reports whether the diagnostic blocks the build pass.
func (d Diagnostic) IsFatal() bool {
	return d.Severity == Error
}

func (d Diagnostic) Error() string {
	var b strings.Builder
	fmt.Fprintf(&b, "%s %s %s: %s", d.Kind.Code(), d.Severity, d.Kind, d.Message)
	if d.Location != "" {
		fmt.Fprintf(&b, " (at %s)", d.Location)
	}

	return b.String()
}

// PathString renders Path as A -> B -> A.
func (d Diagnostic) PathString() string {
	parts := make([]string, len(d.Path))
	for i, t := range d.Path {
		parts[i] = t.String()
	}

	return strings.Join(parts, " -> ")
}

// List is an ordered sequence of diagnostics.
type List []Diagnostic

// HasFatal reports whether any diagnostic is fatal.
func (l List) HasFatal() bool {
	for _, d := range l {
		if d.IsFatal() {
			return true
		}
	}

	return false
}

// Fatal returns the fatal diagnostics.
func (l List) Fatal() List {
	return l.where(func(d Diagnostic) bool { return d.IsFatal() })
}

// Warnings returns the non-fatal diagnostics.
func (l List) Warnings() List {
	return l.where(func(d Diagnostic) bool { return !d.IsFatal() })
}

// Filter returns the diagnostics of the given kind.
func (l List) Filter(kind Kind) List {
	return l.where(func(d Diagnostic) bool { return d.Kind == kind })
}

// Count returns how many diagnostics have the given kind.
func (l List) Count(kind Kind) int {
	n := 0
	for _, d := range l {
		if d.Kind == kind {
			n++
		}
	}

	return n
}

// Err joins the fatal diagnostics into one error, or returns nil.
func (l List) Err() error {
	fatal := l.Fatal()
	if len(fatal) == 0 {
		return nil
	}

	errs := make([]error, len(fatal))
	for i, d := range fatal {
		errs[i] = d
	}

	return errors.Join(errs...)
}

// Sort orders errors before warnings, keeping discovery order otherwise.
func (l List) Sort() {
	sort.SliceStable(l, func(i, j int) bool {
		return l[i].Severity < l[j].Severity
	})
}

func (l List) where(keep func(Diagnostic) bool) List {
	var out List
	for _, d := range l {
		if keep(d) {
			out = append(out, d)
		}
	}

	return out
}
