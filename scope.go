package dicore

import (
	"context"
	"errors"

	"github.com/junioryono/dicore/internal/lifetime"
)

// ErrScopeNotInContext is returned by ScopeFromContext when ctx carries no scope.
var ErrScopeNotInContext = errors.New("no scope in context")

// Scope defines a disposable service scope.
// Scopes are used to control the lifetime of scoped services.
//
// In web applications, a scope is typically created for each HTTP request,
// ensuring that services like database connections are properly managed
// and disposed at the end of the request.
//
// Example:
//
//	scope, err := provider.CreateScope(ctx)
//	if err != nil {
//	    return err
//	}
//	defer scope.Close()
//
//	service, err := dicore.Resolve[*UserService](scope)
type Scope interface {
	Disposable

	// ID returns the unique ID of this scope.
	ID() string

	// Context returns the context associated with this scope.
	// The scope can be recovered from it with ScopeFromContext.
	Context() context.Context

	// IsRootScope returns true if this is the provider's root scope.
	IsRootScope() bool

	// Parent returns the parent scope, or nil for the root scope.
	Parent() Scope

	// Provider returns the provider that created this scope.
	Provider() Provider

	// CreateScope creates a child scope, closed together with this one.
	CreateScope(ctx context.Context) (Scope, error)

	// Resolve returns the instance of t for this scope.
	Resolve(t TypeRef) (any, error)

	// TryResolve is Resolve reporting failure as false.
	TryResolve(t TypeRef) (any, bool)

	// IsDisposed reports whether Close has been called.
	IsDisposed() bool
}

// scope adapts an engine scope to Scope.
type scope struct {
	inner    *lifetime.Scope
	provider *provider
	parent   *scope
	ctx      context.Context
}

func newScope(inner *lifetime.Scope, p *provider, parent *scope) *scope {
	s := &scope{inner: inner, provider: p, parent: parent}
	s.ctx = contextWithScope(inner.Context(), s)
	return s
}

func (s *scope) ID() string {
	return s.inner.ID()
}

func (s *scope) Context() context.Context {
	return s.ctx
}

func (s *scope) IsRootScope() bool {
	return s.inner.IsRoot()
}

func (s *scope) Parent() Scope {
	if s.parent == nil {
		return nil
	}
	return s.parent
}

func (s *scope) Provider() Provider {
	return s.provider
}

func (s *scope) CreateScope(ctx context.Context) (Scope, error) {
	if s.provider.IsDisposed() {
		return nil, ErrProviderDisposed
	}

	child, err := s.inner.CreateScope(ctx)
	if err != nil {
		return nil, err
	}

	return newScope(child, s.provider, s), nil
}

func (s *scope) Resolve(t TypeRef) (any, error) {
	return s.inner.Resolve(t)
}

func (s *scope) TryResolve(t TypeRef) (any, bool) {
	return s.inner.TryResolve(t)
}

func (s *scope) IsDisposed() bool {
	return s.inner.IsDisposed()
}

// Close closes child scopes, then disposes the instances this scope owns in
// reverse creation order. Closing the root scope is the same as closing the
// provider.
func (s *scope) Close() error {
	if s.inner.IsRoot() {
		return s.provider.Close()
	}
	return s.inner.Close()
}

// scopeContextKey is the key for storing the current scope in context.
type scopeContextKey struct{}

// contextWithScope returns a context with the current scope.
func contextWithScope(ctx context.Context, s Scope) context.Context {
	return context.WithValue(ctx, scopeContextKey{}, s)
}

// WithScope returns a copy of ctx carrying s.
func WithScope(ctx context.Context, s Scope) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return contextWithScope(ctx, s)
}

// ScopeFromContext gets the current scope from context.
func ScopeFromContext(ctx context.Context) (Scope, error) {
	if ctx == nil {
		return nil, ErrScopeNotInContext
	}

	s, ok := ctx.Value(scopeContextKey{}).(Scope)
	if !ok || s == nil {
		return nil, ErrScopeNotInContext
	}

	if s.IsDisposed() {
		return nil, ErrScopeDisposed
	}

	return s, nil
}
