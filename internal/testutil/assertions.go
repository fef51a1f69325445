package testutil

import (
	"testing"

	"github.com/junioryono/dicore/internal/diagnostic"
	"github.com/junioryono/dicore/internal/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// RequireNoFatal fails the test when diags contains fatal diagnostics
func RequireNoFatal(t testing.TB, diags diagnostic.List) {
	t.Helper()
	require.False(t, diags.HasFatal(), "unexpected fatal diagnostics: %v", diags.Err())
}

// AssertDiagnostic checks that diags holds exactly one diagnostic of kind for typ
// and returns it
func AssertDiagnostic(t testing.TB, diags diagnostic.List, kind diagnostic.Kind, typ registry.TypeRef) diagnostic.Diagnostic {
	t.Helper()

	var found []diagnostic.Diagnostic
	for _, d := range diags.Filter(kind) {
		if d.Type == typ {
			found = append(found, d)
		}
	}

	require.Len(t, found, 1, "expected one %s for %s in %v", kind, typ, diags)
	return found[0]
}

// AssertNoDiagnostic checks that diags holds no diagnostic of kind
func AssertNoDiagnostic(t testing.TB, diags diagnostic.List, kind diagnostic.Kind) {
	t.Helper()
	assert.Zero(t, diags.Count(kind), "unexpected %s in %v", kind, diags)
}

// AssertInstanceOf checks that v is an *Instance or *DisposableInstance of typ
// and returns the underlying *Instance
func AssertInstanceOf(t testing.TB, v any, typ string) *Instance {
	t.Helper()

	var inst *Instance
	switch x := v.(type) {
	case *Instance:
		inst = x
	case *DisposableInstance:
		inst = x.Instance
	default:
		require.Failf(t, "unexpected value", "got %T", v)
	}

	require.Equal(t, T(typ), inst.Type)
	return inst
}

// AssertSameInstance verifies two services are the same instance
func AssertSameInstance(t testing.TB, expected, actual any, msgAndArgs ...any) {
	t.Helper()
	assert.Same(t, expected, actual, msgAndArgs...)
}

// AssertDifferentInstances verifies two services are different instances
func AssertDifferentInstances(t testing.TB, first, second any, msgAndArgs ...any) {
	t.Helper()
	assert.NotSame(t, first, second, msgAndArgs...)
}

// AssertErrorType checks if an error is of a specific type
func AssertErrorType[E error](t testing.TB, err error, msgAndArgs ...any) E {
	t.Helper()
	var target E
	require.ErrorAs(t, err, &target, msgAndArgs...)
	return target
}
