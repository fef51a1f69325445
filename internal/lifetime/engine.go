// Package lifetime implements the resolution engine: per-scope instance
// caches, single construction under concurrency and ordered disposal.
package lifetime

import (
	"context"
	"sync"
	"time"

	"github.com/junioryono/dicore/internal/accessor"
	"github.com/junioryono/dicore/internal/graph"
	"github.com/junioryono/dicore/internal/registry"
)

// Disposable is implemented by instances that release resources on Close.
type Disposable interface {
	Close() error
}

// DisposableWithContext is implemented by instances whose cleanup honors a context.
type DisposableWithContext interface {
	Close(ctx context.Context) error
}

// Hooks observe the engine. Nil fields are skipped. Hooks run on the
// resolving goroutine and must not resolve services themselves.
type Hooks struct {
	// OnResolved runs after every successful resolution.
	OnResolved func(t registry.TypeRef, lifetime registry.Lifetime, cached bool, d time.Duration)

	// OnCreated runs after a constructor or factory produced a new instance.
	OnCreated func(t registry.TypeRef, lifetime registry.Lifetime, d time.Duration)

	// OnError runs when a top-level resolution fails.
	OnError func(t registry.TypeRef, err error)

	OnScopeCreated func(id string)
	OnScopeClosed  func(id string, err error)
}

// Engine resolves services from an accessor registry.
type Engine struct {
	reg   *accessor.Registry
	hooks Hooks
	root  *Scope

	// waitMu guards resolution.waitingOn across all goroutines.
	waitMu sync.Mutex
}

// NewEngine creates an engine and its root scope.
func NewEngine(reg *accessor.Registry, hooks Hooks) *Engine {
	e := &Engine{reg: reg, hooks: hooks}
	e.root = newScope(e, nil, context.Background())
	return e
}

// Root returns the root scope. It owns singletons.
func (e *Engine) Root() *Scope {
	return e.root
}

// Registry returns the accessor registry the engine resolves from.
func (e *Engine) Registry() *accessor.Registry {
	return e.reg
}

// resolution is one logical top-level Resolve call. It follows the call
// through nested dependencies, including those built in the root scope.
type resolution struct {
	stack   []registry.TypeRef
	onStack map[registry.TypeRef]int

	// waitingOn is the in-flight entry this call is blocked on.
	waitingOn *entry
}

func newResolution() *resolution {
	return &resolution{onStack: make(map[registry.TypeRef]int)}
}

func (r *resolution) push(t registry.TypeRef) error {
	if i, ok := r.onStack[t]; ok {
		path := append(append([]registry.TypeRef(nil), r.stack[i:]...), t)
		return graph.CircularDependencyError{Path: path}
	}

	r.onStack[t] = len(r.stack)
	r.stack = append(r.stack, t)
	return nil
}

func (r *resolution) pop() {
	last := r.stack[len(r.stack)-1]
	r.stack = r.stack[:len(r.stack)-1]
	delete(r.onStack, last)
}

// beginWait records that r waits for e. It fails when the owner of e is,
// directly or transitively, waiting on something r is building.
func (e *Engine) beginWait(r *resolution, target *entry) error {
	e.waitMu.Lock()
	defer e.waitMu.Unlock()

	if target.published() {
		return nil
	}

	chain := []registry.TypeRef{target.key}
	for owner := target.owner; owner != nil; {
		if owner == r {
			return graph.CircularDependencyError{Path: append(chain, chain[0])}
		}

		// A published entry releases its waiter even before endWait runs.
		next := owner.waitingOn
		if next == nil || next.published() {
			break
		}
		chain = append(chain, next.key)
		owner = next.owner
	}

	r.waitingOn = target
	return nil
}

func (e *Engine) endWait(r *resolution) {
	e.waitMu.Lock()
	r.waitingOn = nil
	e.waitMu.Unlock()
}

// boundResolver resolves dependencies in one scope on behalf of one call.
type boundResolver struct {
	scope *Scope
	res   *resolution
}

func (b boundResolver) Resolve(t registry.TypeRef) (any, error) {
	return b.scope.resolve(b.res, t)
}
