// Package selector chooses the injection constructor of a type.
package selector

import (
	"github.com/junioryono/dicore/internal/registry"
)

// Failure describes why no constructor could be selected.
type Failure int

const (
	// None means selection succeeded.
	None Failure = iota

	// NoPublicConstructor means the type has no accessible constructor.
	NoPublicConstructor

	// AmbiguousMarkedConstructor means several accessible constructors are marked.
	AmbiguousMarkedConstructor

	// NoMatchedConstructor means no accessible constructor can be satisfied.
	NoMatchedConstructor
)

func (f Failure) String() string {
	switch f {
	case None:
		return "None"
	case NoPublicConstructor:
		return "NoPublicConstructor"
	case AmbiguousMarkedConstructor:
		return "AmbiguousMarkedConstructor"
	case NoMatchedConstructor:
		return "NoMatchedConstructor"
	default:
		return "Unknown"
	}
}

// Result is the outcome of Select.
type Result struct {
	// Constructor is the chosen injection point, nil on failure.
	Constructor *registry.Constructor

	Failure Failure

	// Tied holds the constructors that shared the minimal parameter count
	// when the tie-break picked the first one.
	Tied []*registry.Constructor

	// Marked holds the accessible marked constructors.
	Marked []*registry.Constructor
}

// OK reports whether a constructor was chosen.
func (r Result) OK() bool {
	return r.Failure == None && r.Constructor != nil
}

// Ambiguous reports whether the choice came from the declaration order tie-break.
func (r Result) Ambiguous() bool {
	return len(r.Tied) > 1
}

// Select picks the injection constructor of owner among ctors, which must be
// in declaration order. registered reports membership in the registered
// closure. Select is pure: it never panics, logs or mutates its inputs.
func Select(owner registry.TypeRef, ctors []*registry.Constructor, registered func(registry.TypeRef) bool) Result {
	public := make([]*registry.Constructor, 0, len(ctors))
	var marked []*registry.Constructor
	for _, c := range ctors {
		if c == nil || !c.Public {
			continue
		}
		public = append(public, c)
		if c.Marked {
			marked = append(marked, c)
		}
	}

	if len(public) == 0 {
		return Result{Failure: NoPublicConstructor}
	}

	switch len(marked) {
	case 0:
	case 1:
		return Result{Constructor: marked[0], Marked: marked}
	default:
		return Result{Failure: AmbiguousMarkedConstructor, Marked: marked}
	}

	if len(public) == 1 {
		return Result{Constructor: public[0]}
	}

	for _, c := range public {
		if c.IsParameterless() {
			return Result{Constructor: c}
		}
	}

	var candidates []*registry.Constructor
	for _, c := range public {
		if satisfiable(owner, c, registered) {
			candidates = append(candidates, c)
		}
	}

	if len(candidates) == 0 {
		return Result{Failure: NoMatchedConstructor}
	}

	if len(candidates) == 1 {
		return Result{Constructor: candidates[0]}
	}

	fewest := len(candidates[0].Parameters)
	for _, c := range candidates[1:] {
		if n := len(c.Parameters); n < fewest {
			fewest = n
		}
	}

	var tied []*registry.Constructor
	for _, c := range candidates {
		if len(c.Parameters) == fewest {
			tied = append(tied, c)
		}
	}

	res := Result{Constructor: tied[0]}
	if len(tied) > 1 {
		res.Tied = tied
	}

	return res
}

// HiddenMarked returns the marked constructors that are not accessible.
// Select ignores them.
func HiddenMarked(ctors []*registry.Constructor) []*registry.Constructor {
	var out []*registry.Constructor
	for _, c := range ctors {
		if c != nil && c.Marked && !c.Public {
			out = append(out, c)
		}
	}

	return out
}

func satisfiable(owner registry.TypeRef, c *registry.Constructor, registered func(registry.TypeRef) bool) bool {
	if c.DependsOn(owner) {
		return false
	}

	for _, p := range c.Parameters {
		if registered == nil || !registered(p) {
			return false
		}
	}

	return true
}
