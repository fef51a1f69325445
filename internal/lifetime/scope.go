package lifetime

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"
	"github.com/junioryono/dicore/internal/accessor"
	"github.com/junioryono/dicore/internal/registry"
)

// Scope is a resolution context owning a cache of scoped instances. The root
// scope additionally caches singletons.
type Scope struct {
	id      string
	ctx     context.Context
	engine  *Engine
	parent  *Scope

	mu          sync.Mutex
	entries     map[registry.TypeRef]*entry
	children    []*Scope
	disposables []tracked

	disposed atomic.Bool
}

// entry is a cache slot. It is claimed by the first resolution to need the
// type and published by closing done.
type entry struct {
	key   registry.TypeRef
	done  chan struct{}
	value any
	err   error

	// owner is the resolution building the value; immutable.
	owner *resolution
}

// published reports whether done is closed.
func (e *entry) published() bool {
	select {
	case <-e.done:
		return true
	default:
		return false
	}
}

type tracked struct {
	t        registry.TypeRef
	instance any
}

func newScope(e *Engine, parent *Scope, ctx context.Context) *Scope {
	if ctx == nil {
		ctx = context.Background()
	}

	s := &Scope{
		id:      uuid.NewString(),
		ctx:     ctx,
		engine:  e,
		parent:  parent,
		entries: make(map[registry.TypeRef]*entry),
	}

	if e.hooks.OnScopeCreated != nil {
		e.hooks.OnScopeCreated(s.id)
	}

	return s
}

// ID returns the unique scope identifier.
func (s *Scope) ID() string {
	return s.id
}

// Context returns the context the scope was created with, carrying the scope.
func (s *Scope) Context() context.Context {
	return s.ctx
}

// Parent returns the parent scope, or nil for the root.
func (s *Scope) Parent() *Scope {
	return s.parent
}

// IsRoot reports whether s is the root scope.
func (s *Scope) IsRoot() bool {
	return s.parent == nil
}

// IsDisposed reports whether Close has been called.
func (s *Scope) IsDisposed() bool {
	return s.disposed.Load()
}

// CreateScope creates a child scope. Children are closed with their parent.
func (s *Scope) CreateScope(ctx context.Context) (*Scope, error) {
	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}

	if ctx == nil {
		ctx = s.ctx
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}

	child := newScope(s.engine, s, ctx)
	s.children = append(s.children, child)

	return child, nil
}

// Resolve returns the instance of t for this scope, constructing it if the
// lifetime requires.
func (s *Scope) Resolve(t registry.TypeRef) (any, error) {
	v, err := s.resolve(newResolution(), t)
	if err != nil && s.engine.hooks.OnError != nil {
		s.engine.hooks.OnError(t, err)
	}
	return v, err
}

// TryResolve is Resolve without the error.
func (s *Scope) TryResolve(t registry.TypeRef) (any, bool) {
	v, err := s.Resolve(t)
	return v, err == nil
}

func (s *Scope) resolve(res *resolution, t registry.TypeRef) (any, error) {
	if s.IsDisposed() {
		return nil, ResolutionError{ServiceType: t, Cause: ErrScopeDisposed}
	}

	acc, ok := s.engine.reg.Lookup(t)
	if !ok {
		return nil, ResolutionError{ServiceType: t, Cause: ErrServiceNotFound, Available: s.engine.reg.Types()}
	}

	if err := res.push(acc.Type); err != nil {
		return nil, err
	}
	defer res.pop()

	start := time.Now()

	switch acc.Lifetime {
	case registry.Singleton:
		return s.engine.root.cached(res, acc, start)
	case registry.Scoped:
		return s.cached(res, acc, start)
	default:
		return s.transient(res, acc, start)
	}
}

// transient builds a fresh instance and tracks it for disposal by s.
func (s *Scope) transient(res *resolution, acc *accessor.Accessor, start time.Time) (any, error) {
	v, err := acc.Create(boundResolver{scope: s, res: res})
	if err != nil {
		return nil, err
	}

	if err := s.track(acc.Type, v); err != nil {
		return nil, err
	}

	s.notifyCreated(acc, start)
	s.notifyResolved(acc, false, start)
	return v, nil
}

// cached returns the instance of acc held by s, building it at most once.
func (s *Scope) cached(res *resolution, acc *accessor.Accessor, start time.Time) (any, error) {
	key := acc.Type

	s.mu.Lock()
	if s.IsDisposed() {
		s.mu.Unlock()
		return nil, ResolutionError{ServiceType: key, Cause: ErrScopeDisposed}
	}

	if e, ok := s.entries[key]; ok {
		s.mu.Unlock()
		return s.await(res, acc, e, start)
	}

	e := &entry{key: key, done: make(chan struct{}), owner: res}
	s.entries[key] = e
	s.mu.Unlock()

	v, err := acc.Create(boundResolver{scope: s, res: res})

	s.mu.Lock()
	// Close may have run while building; nothing would dispose v later.
	closedMeanwhile := err == nil && s.IsDisposed()
	switch {
	case err != nil:
		delete(s.entries, key)
	case closedMeanwhile:
		err = ResolutionError{ServiceType: key, Cause: ErrScopeDisposed}
	default:
		e.value = v
		if isDisposable(v) {
			s.disposables = append(s.disposables, tracked{t: key, instance: v})
		}
	}
	e.err = err
	close(e.done)
	s.mu.Unlock()

	if closedMeanwhile {
		if disposeErr := dispose(v); disposeErr != nil {
			err = fmt.Errorf("%w (dispose: %v)", err, disposeErr)
		}
	}

	if err != nil {
		return nil, err
	}

	s.notifyCreated(acc, start)
	s.notifyResolved(acc, false, start)
	return v, nil
}

// await waits for an entry claimed by this or another resolution.
func (s *Scope) await(res *resolution, acc *accessor.Accessor, e *entry, start time.Time) (any, error) {
	select {
	case <-e.done:
	default:
		if err := s.engine.beginWait(res, e); err != nil {
			return nil, err
		}
		<-e.done
		s.engine.endWait(res)
	}

	if e.err != nil {
		return nil, e.err
	}

	s.notifyResolved(acc, true, start)
	return e.value, nil
}

func (s *Scope) track(t registry.TypeRef, v any) error {
	if !isDisposable(v) {
		return nil
	}

	s.mu.Lock()
	if s.IsDisposed() {
		s.mu.Unlock()
		if err := dispose(v); err != nil {
			return fmt.Errorf("%w (dispose: %v)", ResolutionError{ServiceType: t, Cause: ErrScopeDisposed}, err)
		}
		return ResolutionError{ServiceType: t, Cause: ErrScopeDisposed}
	}
	s.disposables = append(s.disposables, tracked{t: t, instance: v})
	s.mu.Unlock()

	return nil
}

func (s *Scope) notifyCreated(acc *accessor.Accessor, start time.Time) {
	if h := s.engine.hooks.OnCreated; h != nil {
		h(acc.Type, acc.Lifetime, time.Since(start))
	}
}

func (s *Scope) notifyResolved(acc *accessor.Accessor, cached bool, start time.Time) {
	if h := s.engine.hooks.OnResolved; h != nil {
		h(acc.Type, acc.Lifetime, cached, time.Since(start))
	}
}

// Close closes child scopes, then disposes every tracked instance in
// reverse creation order. Errors are collected into a DisposalError.
// Calling Close more than once is a no-op.
func (s *Scope) Close() error {
	s.mu.Lock()
	if !s.disposed.CompareAndSwap(false, true) {
		s.mu.Unlock()
		return nil
	}
	children := s.children
	disposables := s.disposables
	s.children = nil
	s.disposables = nil
	s.entries = make(map[registry.TypeRef]*entry)
	s.mu.Unlock()

	var errs []error

	for i := len(children) - 1; i >= 0; i-- {
		if err := children[i].Close(); err != nil {
			errs = append(errs, err)
		}
	}

	for i := len(disposables) - 1; i >= 0; i-- {
		d := disposables[i]
		if err := dispose(d.instance); err != nil {
			errs = append(errs, fmt.Errorf("failed to dispose %s: %w", d.t, err))
		}
	}

	if s.parent != nil {
		s.parent.detach(s)
	}

	var err error
	if len(errs) > 0 {
		kind := "scope"
		if s.IsRoot() {
			kind = "root"
		}
		err = DisposalError{Context: kind, Errors: errs}
	}

	if h := s.engine.hooks.OnScopeClosed; h != nil {
		h(s.id, err)
	}

	return err
}

func (s *Scope) detach(child *Scope) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for i, c := range s.children {
		if c == child {
			s.children = append(s.children[:i], s.children[i+1:]...)
			return
		}
	}
}

func isDisposable(v any) bool {
	switch v.(type) {
	case Disposable, DisposableWithContext:
		return true
	default:
		return false
	}
}

func dispose(v any) error {
	switch d := v.(type) {
	case Disposable:
		return d.Close()
	case DisposableWithContext:
		return d.Close(context.Background())
	default:
		return nil
	}
}
