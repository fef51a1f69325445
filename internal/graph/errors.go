package graph

import (
	"fmt"
	"strings"

	"github.com/junioryono/dicore/internal/registry"
)

// CircularDependencyError represents a cycle among the selected constructors.
// Path is closed: its last element repeats the first.
type CircularDependencyError struct {
	Path []registry.TypeRef
}

func (e CircularDependencyError) Error() string {
	var b strings.Builder
	b.WriteString("circular dependency detected:\n\n")

	for i, node := range e.Path {
		if i == len(e.Path)-1 && len(e.Path) > 1 {
			b.WriteString(fmt.Sprintf("    %s (cycle)\n", node))
			break
		}

		b.WriteString(fmt.Sprintf("    %s\n", node))
		b.WriteString("      ↓\n")
	}

	b.WriteString("\nTo resolve this:\n")
	b.WriteString("  • Depend on an interface registered with a different implementation\n")
	b.WriteString("  • Use a factory method to defer one of the resolutions\n")
	b.WriteString("  • Restructure to remove the circular relationship\n")

	return b.String()
}
