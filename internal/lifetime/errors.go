package lifetime

import (
	"errors"
	"fmt"
	"strings"

	"github.com/junioryono/dicore/internal/registry"
)

var (
	// ErrServiceNotFound is the cause of a ResolutionError for unregistered types.
	ErrServiceNotFound = errors.New("service not found")

	// ErrScopeDisposed is returned when using a closed scope.
	ErrScopeDisposed = errors.New("scope has been disposed")
)

// ResolutionError wraps errors that occur during service resolution.
type ResolutionError struct {
	ServiceType registry.TypeRef
	Cause       error

	// Available lists registered types, used for suggestions.
	Available []registry.TypeRef
}

func (e ResolutionError) Error() string {
	var b strings.Builder

	if !errors.Is(e.Cause, ErrServiceNotFound) {
		b.WriteString(fmt.Sprintf("cannot resolve %s: %v", e.ServiceType, e.Cause))
		return b.String()
	}

	b.WriteString(fmt.Sprintf("service not found: %s", e.ServiceType))

	if similar := findSimilarTypes(e.ServiceType, e.Available); len(similar) > 0 {
		b.WriteString("\n\nDid you mean one of these?\n")
		for _, t := range similar {
			b.WriteString(fmt.Sprintf("  • %s\n", t))
		}
	}

	b.WriteString("\nMake sure the service is registered with the correct lifetime and type.")

	return b.String()
}

func (e ResolutionError) Unwrap() error {
	return e.Cause
}

// DisposalError aggregates the failures of closing a scope.
type DisposalError struct {
	Context string // "scope", "root"
	Errors  []error
}

func (e DisposalError) Error() string {
	if len(e.Errors) == 1 {
		return fmt.Sprintf("%s disposal failed: %v", e.Context, e.Errors[0])
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s disposal failed with %d errors:", e.Context, len(e.Errors)))
	for i, err := range e.Errors {
		sb.WriteString(fmt.Sprintf("\n  %d. %v", i+1, err))
	}
	return sb.String()
}

// Unwrap exposes the individual failures to errors.Is and errors.As.
func (e DisposalError) Unwrap() []error {
	return e.Errors
}

// findSimilarTypes finds types with similar names using a simple substring match
func findSimilarTypes(target registry.TypeRef, available []registry.TypeRef) []registry.TypeRef {
	if target.IsZero() || len(available) == 0 {
		return nil
	}

	name := strings.ToLower(shortName(target.Name()))

	var similar []registry.TypeRef
	for _, t := range available {
		if t == target {
			continue
		}

		other := strings.ToLower(shortName(t.Name()))
		if other == name || strings.Contains(other, name) || strings.Contains(name, other) {
			similar = append(similar, t)
		}

		if len(similar) >= 5 {
			break
		}
	}

	return similar
}

func shortName(s string) string {
	if i := strings.LastIndexAny(s, "./"); i >= 0 {
		return s[i+1:]
	}
	return s
}
