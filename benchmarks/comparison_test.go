// Package benchmarks compares dicore with go.uber.org/dig and samber/do, and
// measures the parts of dicore the others do not have: constructor selection,
// ahead-of-time validation and claim/publish under contention.
//
// Run with: go test -bench=. -benchmem ./benchmarks/
package benchmarks

import (
	"context"
	"strings"
	"sync"
	"testing"

	"github.com/junioryono/dicore"
	"github.com/junioryono/dicore/manifest"
	"github.com/samber/do/v2"
	"go.uber.org/dig"
)

// A request pipeline: Handler -> Mailer, Store -> Pool -> Settings, Clock.

type Settings struct{ DSN string }

type Clock struct{}

type Pool struct {
	Settings *Settings
}

type Store struct {
	Pool  *Pool
	Clock *Clock
}

type Mailer struct {
	Settings *Settings
	Clock    *Clock
}

type Handler struct {
	Store  *Store
	Mailer *Mailer
}

func NewSettings() *Settings { return &Settings{DSN: "memory"} }
func NewClock() *Clock { return &Clock{} }
func NewPool(s *Settings) *Pool { return &Pool{Settings: s} }
func NewStore(p *Pool, c *Clock) *Store { return &Store{Pool: p, Clock: c} }
func NewMailer(s *Settings, c *Clock) *Mailer { return &Mailer{Settings: s, Clock: c} }
func NewHandler(s *Store, m *Mailer) *Handler { return &Handler{Store: s, Mailer: m} }
func NewStoreWithoutClock(p *Pool) *Store { return &Store{Pool: p} }
func NewStoreForTests(*Settings, *Pool, *Clock) *Store { return &Store{} }

// contender builds a container holding the pipeline and returns a function
// resolving the Handler from it.
type contender struct {
	name  string
	setup func(b *testing.B, handler lifetime) func() *Handler
}

type lifetime int

const (
	singleton lifetime = iota
	transient
)

var contenders = []contender{
	{name: "dicore", setup: setupDicore},
	{name: "dig", setup: setupDig},
	{name: "do", setup: setupDo},
}

func newCollection(handler lifetime) dicore.Collection {
	c := dicore.NewCollection()
	c.AddSingleton(NewSettings)
	c.AddSingleton(NewClock)
	c.AddSingleton(NewPool)
	c.AddSingleton(NewStore)
	c.AddSingleton(NewMailer)
	if handler == transient {
		c.AddTransient(NewHandler)
	} else {
		c.AddSingleton(NewHandler)
	}
	return c
}

func setupDicore(b *testing.B, handler lifetime) func() *Handler {
	p, err := newCollection(handler).Build()
	if err != nil {
		b.Fatal(err)
	}
	b.Cleanup(func() { p.Close() })

	return func() *Handler { return dicore.MustResolve[*Handler](p) }
}

// setupDig has no transient lifetime; handler is always shared.
func setupDig(b *testing.B, handler lifetime) func() *Handler {
	if handler == transient {
		b.Skip("dig has no transient lifetime")
	}

	c := dig.New()
	for _, ctor := range []any{NewSettings, NewClock, NewPool, NewStore, NewMailer, NewHandler} {
		if err := c.Provide(ctor); err != nil {
			b.Fatal(err)
		}
	}

	return func() *Handler {
		var h *Handler
		if err := c.Invoke(func(v *Handler) { h = v }); err != nil {
			b.Fatal(err)
		}
		return h
	}
}

// doProvider adapts a plain constructor to a samber/do provider.
func doProvider[T any](build func(do.Injector) T) do.Provider[T] {
	return func(i do.Injector) (T, error) { return build(i), nil }
}

func setupDo(b *testing.B, handler lifetime) func() *Handler {
	injector := do.New()
	b.Cleanup(func() { injector.Shutdown() })

	do.Provide(injector, doProvider(func(do.Injector) *Settings { return NewSettings() }))
	do.Provide(injector, doProvider(func(do.Injector) *Clock { return NewClock() }))
	do.Provide(injector, doProvider(func(i do.Injector) *Pool {
		return NewPool(do.MustInvoke[*Settings](i))
	}))
	do.Provide(injector, doProvider(func(i do.Injector) *Store {
		return NewStore(do.MustInvoke[*Pool](i), do.MustInvoke[*Clock](i))
	}))
	do.Provide(injector, doProvider(func(i do.Injector) *Mailer {
		return NewMailer(do.MustInvoke[*Settings](i), do.MustInvoke[*Clock](i))
	}))

	newHandler := doProvider(func(i do.Injector) *Handler {
		return NewHandler(do.MustInvoke[*Store](i), do.MustInvoke[*Mailer](i))
	})
	if handler == transient {
		do.ProvideTransient(injector, newHandler)
	} else {
		do.Provide(injector, newHandler)
	}

	return func() *Handler { return do.MustInvoke[*Handler](injector) }
}

func BenchmarkColdStart(b *testing.B) {
	for _, c := range contenders {
		b.Run(c.name, func(b *testing.B) {
			b.ReportAllocs()
			for b.Loop() {
				_ = c.setup(b, singleton)()
			}
		})
	}
}

func BenchmarkResolve(b *testing.B) {
	for _, lt := range []struct {
		name     string
		lifetime lifetime
	}{
		{"singleton", singleton},
		{"transient", transient},
	} {
		for _, c := range contenders {
			b.Run(lt.name+"/"+c.name, func(b *testing.B) {
				resolve := c.setup(b, lt.lifetime)
				_ = resolve()

				b.ReportAllocs()
				for b.Loop() {
					_ = resolve()
				}
			})
		}
	}
}

func BenchmarkResolve_Parallel(b *testing.B) {
	for _, c := range contenders {
		b.Run(c.name, func(b *testing.B) {
			resolve := c.setup(b, singleton)
			_ = resolve()

			b.ResetTimer()
			b.RunParallel(func(pb *testing.PB) {
				for pb.Next() {
					_ = resolve()
				}
			})
		})
	}
}

// BenchmarkSelect measures validation when implementations carry several
// candidate constructors.
func BenchmarkSelect(b *testing.B) {
	c := dicore.NewCollection()
	c.AddSingleton(NewSettings)
	c.AddSingleton(NewClock)
	c.AddSingleton(NewPool)
	c.AddSingleton(NewStoreForTests, dicore.Also(NewStore, NewStoreWithoutClock))
	c.AddSingleton(NewMailer)
	c.AddScoped(NewHandler)
	regs, catalog := c.Registrations(), c.Catalog()

	b.ReportAllocs()
	for b.Loop() {
		if _, err := dicore.Validate(regs, catalog, nil); err != nil {
			b.Fatal(err)
		}
	}
}

const pipeline = `
types:
  - name: Settings
    constructors: [{}]
  - name: Clock
    constructors: [{}]
  - name: Pool
    constructors: [{parameters: [Settings]}]
  - name: IStore
    kind: interface
  - name: Store
    constructors:
      - parameters: [Pool, Clock]
      - parameters: [Pool]
  - name: Mailer
    constructors: [{parameters: [Settings, Clock]}]
  - name: Handler
    constructors: [{parameters: [IStore, Mailer]}]
registrations:
  - impl: Settings
  - impl: Clock
  - impl: Pool
  - service: IStore
    impl: Store
    lifetime: scoped
  - impl: Mailer
  - impl: Handler
    lifetime: transient
`

// BenchmarkValidate_Manifest measures the validation pass over a catalog of
// named types.
func BenchmarkValidate_Manifest(b *testing.B) {
	m, err := manifest.Parse(strings.NewReader(pipeline), "pipeline.yaml")
	if err != nil {
		b.Fatal(err)
	}
	regs, catalog, err := m.Build()
	if err != nil {
		b.Fatal(err)
	}

	b.ReportAllocs()
	for b.Loop() {
		diags, err := dicore.Validate(regs, catalog, nil)
		if err != nil || diags.HasFatal() {
			b.Fatal(err, diags)
		}
	}
}

// BenchmarkScope_Contended resolves one scoped service from several
// goroutines per fresh scope, so every iteration claims the entry once and
// the other callers wait for it to be published.
func BenchmarkScope_Contended(b *testing.B) {
	c := dicore.NewCollection()
	c.AddSingleton(NewSettings)
	c.AddSingleton(NewClock)
	c.AddScoped(NewPool)
	c.AddScoped(NewStore)
	p, err := c.Build()
	if err != nil {
		b.Fatal(err)
	}
	defer p.Close()

	const callers = 8

	b.ReportAllocs()
	for b.Loop() {
		scope, err := p.CreateScope(context.Background())
		if err != nil {
			b.Fatal(err)
		}

		var wg sync.WaitGroup
		for range callers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_ = dicore.MustResolve[*Store](scope)
			}()
		}
		wg.Wait()
		scope.Close()
	}
}
