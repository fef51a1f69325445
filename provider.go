package dicore

import (
	"context"
	"sync/atomic"

	"github.com/google/uuid"
	"github.com/junioryono/dicore/internal/accessor"
	"github.com/junioryono/dicore/internal/diagnostic"
	"github.com/junioryono/dicore/internal/graph"
	"github.com/junioryono/dicore/internal/lifetime"
	"go.uber.org/zap"
)

// Provider is the built, immutable dependency injection container.
// It is safe for concurrent use.
type Provider interface {
	Disposable

	// ID returns the unique identifier for this provider instance.
	ID() string

	// Root returns the root scope, which owns singletons.
	Root() Scope

	// CreateScope creates a child of the root scope.
	CreateScope(ctx context.Context) (Scope, error)

	// Resolve resolves a service from the root scope.
	Resolve(t TypeRef) (any, error)

	// TryResolve resolves a service from the root scope, reporting failure as false.
	TryResolve(t TypeRef) (any, bool)

	// Diagnostics returns the warnings found while building.
	Diagnostics() Diagnostics

	// Graph returns the validated dependency graph.
	Graph() *Graph

	// IsDisposed reports whether Close has been called.
	IsDisposed() bool
}

// provider is the concrete implementation of Provider
type provider struct {
	id     string
	engine *lifetime.Engine
	graph  *graph.Graph
	diags  diagnostic.List
	logger *zap.Logger
	root   *scope

	disposed atomic.Bool
}

// BuildProvider validates regs against catalog and builds a provider.
// When validation reports a fatal diagnostic, no provider is built and the
// returned error is a *BuildError carrying every diagnostic.
//
// Example:
//
//	provider, err := dicore.BuildProvider(regs, catalog, nil)
//	if err != nil {
//	    var buildErr *dicore.BuildError
//	    if errors.As(err, &buildErr) {
//	        for _, d := range buildErr.Diagnostics {
//	            log.Println(d)
//	        }
//	    }
//	    return err
//	}
//	defer provider.Close()
func BuildProvider(regs []Registration, catalog Catalog, opts *ProviderOptions) (Provider, error) {
	if opts == nil {
		opts = &ProviderOptions{}
	}

	id := opts.ID
	if id == "" {
		id = ProviderID(uuid.NewString())
	}

	logger := opts.logger().With(zap.String("provider", string(id)))

	g, diags, err := validate(id, regs, catalog, opts)
	if err != nil {
		return nil, err
	}

	for _, d := range diags {
		logDiagnostic(logger, d)
	}

	if diags.HasFatal() {
		return nil, &BuildError{Diagnostics: diags}
	}

	reg, err := accessor.Build(g, diags)
	if err != nil {
		return nil, err
	}

	hooks := opts.Hooks
	if opts.Registerer != nil {
		m, err := newMetrics(opts.namespace(), opts.Registerer)
		if err != nil {
			return nil, err
		}
		hooks = m.hooks(hooks)
	}
	hooks = logClose(logger, hooks)

	p := &provider{
		id:     string(id),
		graph:  g,
		diags:  diags,
		logger: logger,
	}
	p.engine = lifetime.NewEngine(reg, hooks)
	p.root = newScope(p.engine.Root(), p, nil)

	logger.Debug("provider built",
		zap.Int("services", reg.Len()),
		zap.Int("warnings", len(diags)),
	)

	return p, nil
}

// Validate runs the validation pass only and returns every diagnostic,
// errors first. Registration errors are reported as a returned error.
func Validate(regs []Registration, catalog Catalog, opts *ProviderOptions) (Diagnostics, error) {
	if opts == nil {
		opts = &ProviderOptions{}
	}

	_, diags, err := validate(opts.ID, regs, catalog, opts)
	return diags, err
}

func validate(id ProviderID, regs []Registration, catalog Catalog, opts *ProviderOptions) (*graph.Graph, diagnostic.List, error) {
	table, diags, err := graph.NewTable(id, regs)
	if err != nil {
		return nil, nil, err
	}

	g, more := graph.Validate(table, catalog, graph.Options{LifetimePolicy: opts.LifetimePolicy})
	diags = append(diags, more...)
	diags.Sort()

	return g, diags, nil
}

func logDiagnostic(logger *zap.Logger, d Diagnostic) {
	fields := []zap.Field{
		zap.String("code", d.Kind.Code()),
		zap.Stringer("kind", d.Kind),
		zap.Stringer("type", d.Type),
	}
	if d.Location != "" {
		fields = append(fields, zap.String("location", string(d.Location)))
	}

	if d.IsFatal() {
		logger.Error(d.Message, fields...)
		return
	}
	logger.Warn(d.Message, fields...)
}

func logClose(logger *zap.Logger, next Hooks) Hooks {
	closed := next.OnScopeClosed
	next.OnScopeClosed = func(id string, err error) {
		if err != nil {
			logger.Error("scope disposal failed", zap.String("scope", id), zap.Error(err))
		}
		if closed != nil {
			closed(id, err)
		}
	}
	return next
}

// ID returns the unique identifier for the provider.
func (p *provider) ID() string {
	return p.id
}

func (p *provider) Root() Scope {
	return p.root
}

func (p *provider) CreateScope(ctx context.Context) (Scope, error) {
	if p.IsDisposed() {
		return nil, ErrProviderDisposed
	}
	return p.root.CreateScope(ctx)
}

func (p *provider) Resolve(t TypeRef) (any, error) {
	if p.IsDisposed() {
		return nil, ErrProviderDisposed
	}
	return p.root.Resolve(t)
}

func (p *provider) TryResolve(t TypeRef) (any, bool) {
	v, err := p.Resolve(t)
	return v, err == nil
}

func (p *provider) Diagnostics() Diagnostics {
	return append(Diagnostics(nil), p.diags...)
}

func (p *provider) Graph() *Graph {
	return p.graph
}

func (p *provider) IsDisposed() bool {
	return p.disposed.Load()
}

// Close closes every scope and disposes singletons in reverse creation order.
func (p *provider) Close() error {
	if !p.disposed.CompareAndSwap(false, true) {
		return nil
	}

	err := p.root.inner.Close()
	_ = p.logger.Sync()
	return err
}
