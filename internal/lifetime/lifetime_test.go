package lifetime_test

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/junioryono/dicore/internal/accessor"
	"github.com/junioryono/dicore/internal/graph"
	"github.com/junioryono/dicore/internal/lifetime"
	"github.com/junioryono/dicore/internal/registry"
	"github.com/junioryono/dicore/internal/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var T = testutil.T

func newEngine(t *testing.T, b *testutil.CatalogBuilder, hooks lifetime.Hooks) *lifetime.Engine {
	t.Helper()

	g, diags := graph.Validate(b.Table(), b.Catalog(), graph.Options{LifetimePolicy: graph.PolicyWarn})
	reg, err := accessor.Build(g, diags)
	require.NoError(t, err)

	e := lifetime.NewEngine(reg, hooks)
	t.Cleanup(func() { _ = e.Root().Close() })
	return e
}

func newScope(t *testing.T, parent *lifetime.Scope) *lifetime.Scope {
	t.Helper()

	s, err := parent.CreateScope(context.Background())
	require.NoError(t, err)
	return s
}

func resolve(t *testing.T, s *lifetime.Scope, name string) any {
	t.Helper()

	v, err := s.Resolve(T(name))
	require.NoError(t, err)
	return v
}

func TestResolve_Lifetimes(t *testing.T) {
	t.Run("singleton is shared by every scope", func(t *testing.T) {
		t.Parallel()

		b := testutil.NewCatalogBuilder(t)
		b.Ctor("A")
		b.Singleton("A")
		root := newEngine(t, b, lifetime.Hooks{}).Root()

		s1 := newScope(t, root)
		s2 := newScope(t, root)
		child := newScope(t, s1)

		first := resolve(t, root, "A")
		testutil.AssertSameInstance(t, first, resolve(t, s1, "A"))
		testutil.AssertSameInstance(t, first, resolve(t, s2, "A"))
		testutil.AssertSameInstance(t, first, resolve(t, child, "A"))
		assert.EqualValues(t, 1, b.Constructed("A"))
	})

	t.Run("scoped is shared within a scope only", func(t *testing.T) {
		t.Parallel()

		b := testutil.NewCatalogBuilder(t)
		b.Ctor("S")
		b.Scoped("S")
		root := newEngine(t, b, lifetime.Hooks{}).Root()

		s1 := newScope(t, root)
		s2 := newScope(t, root)
		child := newScope(t, s1)

		a := resolve(t, s1, "S")
		testutil.AssertSameInstance(t, a, resolve(t, s1, "S"))
		testutil.AssertDifferentInstances(t, a, resolve(t, s2, "S"), "sibling scopes are isolated")
		testutil.AssertDifferentInstances(t, a, resolve(t, child, "S"), "child scopes have their own cache")
		assert.EqualValues(t, 3, b.Constructed("S"))
	})

	t.Run("scoped resolved from root is cached by root", func(t *testing.T) {
		t.Parallel()

		b := testutil.NewCatalogBuilder(t)
		b.Ctor("S")
		b.Scoped("S")
		root := newEngine(t, b, lifetime.Hooks{}).Root()

		testutil.AssertSameInstance(t, resolve(t, root, "S"), resolve(t, root, "S"))
	})

	t.Run("transient is new every time", func(t *testing.T) {
		t.Parallel()

		b := testutil.NewCatalogBuilder(t)
		b.Ctor("X")
		b.Transient("X")
		s := newScope(t, newEngine(t, b, lifetime.Hooks{}).Root())

		testutil.AssertDifferentInstances(t, resolve(t, s, "X"), resolve(t, s, "X"))
		assert.EqualValues(t, 2, b.Constructed("X"))
	})
}

func TestResolve_ABScenario(t *testing.T) {
	t.Run("singleton A is shared by transient Bs", func(t *testing.T) {
		t.Parallel()

		b := testutil.ABScenario(t, registry.Singleton)
		root := newEngine(t, b, lifetime.Hooks{}).Root()

		b1 := testutil.AssertInstanceOf(t, resolve(t, root, "B"), "B")
		b2 := testutil.AssertInstanceOf(t, resolve(t, root, "B"), "B")

		assert.NotSame(t, b1, b2)
		assert.Same(t, b1.Arg(0), b2.Arg(0))
		assert.Same(t, resolve(t, root, "A"), b1.Arg(0))
	})

	t.Run("transient A is rebuilt for each B", func(t *testing.T) {
		t.Parallel()

		b := testutil.ABScenario(t, registry.Transient)
		root := newEngine(t, b, lifetime.Hooks{}).Root()

		b1 := testutil.AssertInstanceOf(t, resolve(t, root, "B"), "B")
		b2 := testutil.AssertInstanceOf(t, resolve(t, root, "B"), "B")

		assert.NotSame(t, b1.Arg(0), b2.Arg(0))
		assert.EqualValues(t, 2, b.Constructed("A"))
	})
}

func TestResolve_Layered(t *testing.T) {
	t.Parallel()

	b := testutil.LayeredScenario(t)
	root := newEngine(t, b, lifetime.Hooks{}).Root()
	s := newScope(t, root)

	handler := testutil.AssertInstanceOf(t, resolve(t, s, "Handler"), "Handler")
	service := testutil.AssertInstanceOf(t, resolve(t, s, "Service"), "Service")
	assert.Same(t, service, handler.Arg(0))

	repo := testutil.AssertInstanceOf(t, resolve(t, root, "IRepo"), "Repo")
	assert.Same(t, repo, service.Arg(0))
	assert.Same(t, repo, testutil.AssertInstanceOf(t, resolve(t, s, "Repo"), "Repo"), "implementation type aliases the service")
	assert.EqualValues(t, 1, b.Constructed("Repo"))
	assert.EqualValues(t, 1, b.Constructed("Config"))
}

func TestResolve_NotFound(t *testing.T) {
	t.Parallel()

	root := newEngine(t, testutil.LayeredScenario(t), lifetime.Hooks{}).Root()

	v, err := root.Resolve(T("Services"))
	assert.Nil(t, v)
	assert.ErrorIs(t, err, lifetime.ErrServiceNotFound)

	rerr := testutil.AssertErrorType[lifetime.ResolutionError](t, err)
	assert.Equal(t, T("Services"), rerr.ServiceType)
	assert.Contains(t, err.Error(), "Did you mean one of these?")
	assert.Contains(t, err.Error(), "Service")

	_, ok := root.TryResolve(T("Services"))
	assert.False(t, ok)
}

func TestResolve_Cycles(t *testing.T) {
	t.Run("factories resolving each other", func(t *testing.T) {
		t.Parallel()

		b := testutil.NewCatalogBuilder(t)
		b.Factory("", "A", registry.Transient, func(r registry.Resolver) (any, error) {
			return r.Resolve(T("B"))
		})
		b.Factory("", "B", registry.Scoped, func(r registry.Resolver) (any, error) {
			return r.Resolve(T("A"))
		})
		s := newScope(t, newEngine(t, b, lifetime.Hooks{}).Root())

		_, err := s.Resolve(T("A"))
		cerr := testutil.AssertErrorType[graph.CircularDependencyError](t, err)
		assert.Equal(t, []registry.TypeRef{T("A"), T("B"), T("A")}, cerr.Path)

		_, err = s.Resolve(T("B"))
		assert.ErrorAs(t, err, &cerr, "failed entries are not cached")
	})

	t.Run("self dependency through a singleton", func(t *testing.T) {
		t.Parallel()

		b := testutil.NewCatalogBuilder(t)
		b.Factory("", "A", registry.Singleton, func(r registry.Resolver) (any, error) {
			return r.Resolve(T("A"))
		})
		root := newEngine(t, b, lifetime.Hooks{}).Root()

		_, err := root.Resolve(T("A"))
		cerr := testutil.AssertErrorType[graph.CircularDependencyError](t, err)
		assert.Equal(t, []registry.TypeRef{T("A"), T("A")}, cerr.Path)
	})

	t.Run("across goroutines fails instead of deadlocking", func(t *testing.T) {
		t.Parallel()

		aStarted := make(chan struct{})
		bStarted := make(chan struct{})

		b := testutil.NewCatalogBuilder(t)
		b.Factory("", "A", registry.Singleton, func(r registry.Resolver) (any, error) {
			close(aStarted)
			<-bStarted
			return r.Resolve(T("B"))
		})
		b.Factory("", "B", registry.Singleton, func(r registry.Resolver) (any, error) {
			close(bStarted)
			<-aStarted
			return r.Resolve(T("A"))
		})
		root := newEngine(t, b, lifetime.Hooks{}).Root()

		errs := make(chan error, 2)
		go func() { _, err := root.Resolve(T("A")); errs <- err }()
		go func() { _, err := root.Resolve(T("B")); errs <- err }()

		for range 2 {
			select {
			case err := <-errs:
				var cerr graph.CircularDependencyError
				assert.ErrorAs(t, err, &cerr)
			case <-time.After(5 * time.Second):
				t.Fatal("resolution deadlocked")
			}
		}
	})
}

func TestResolve_Concurrency(t *testing.T) {
	t.Run("singleton is constructed once", func(t *testing.T) {
		t.Parallel()

		b := testutil.NewCatalogBuilder(t)
		c := b.Ctor("Slow")
		invoke := c.Invoke
		c.Invoke = func(args []any) (any, error) {
			time.Sleep(10 * time.Millisecond)
			return invoke(args)
		}
		b.Singleton("Slow")
		root := newEngine(t, b, lifetime.Hooks{}).Root()

		const workers = 64
		var (
			wg      sync.WaitGroup
			start   = make(chan struct{})
			results = make([]any, workers)
		)
		for i := range workers {
			wg.Add(1)
			go func() {
				defer wg.Done()
				<-start
				scope, err := root.CreateScope(context.Background())
				if !assert.NoError(t, err) {
					return
				}
				results[i], err = scope.Resolve(T("Slow"))
				assert.NoError(t, err)
			}()
		}
		close(start)
		wg.Wait()

		assert.EqualValues(t, 1, b.Constructed("Slow"))
		for _, r := range results {
			assert.Same(t, results[0], r)
		}
	})

	t.Run("scoped is constructed once per scope", func(t *testing.T) {
		t.Parallel()

		b := testutil.NewCatalogBuilder(t)
		b.Ctor("S")
		b.Scoped("S")
		s := newScope(t, newEngine(t, b, lifetime.Hooks{}).Root())

		var wg sync.WaitGroup
		for range 32 {
			wg.Add(1)
			go func() {
				defer wg.Done()
				_, err := s.Resolve(T("S"))
				assert.NoError(t, err)
			}()
		}
		wg.Wait()

		assert.EqualValues(t, 1, b.Constructed("S"))
	})

	t.Run("crossing waits on an acyclic graph are not cycles", func(t *testing.T) {
		t.Parallel()

		// P needs E then F; F needs E. One goroutine builds E while the
		// other owns F and waits for E.
		for i := range 2000 {
			fStarted := make(chan struct{})

			b := testutil.NewCatalogBuilder(t)
			b.Factory("", "E", registry.Singleton, func(registry.Resolver) (any, error) {
				<-fStarted
				return &testutil.Instance{Type: T("E")}, nil
			})
			b.Factory("", "F", registry.Singleton, func(r registry.Resolver) (any, error) {
				close(fStarted)
				return r.Resolve(T("E"))
			})
			b.Factory("", "P", registry.Transient, func(r registry.Resolver) (any, error) {
				if _, err := r.Resolve(T("E")); err != nil {
					return nil, err
				}
				return r.Resolve(T("F"))
			})

			g, diags := graph.Validate(b.Table(), b.Catalog(), graph.Options{})
			reg, err := accessor.Build(g, diags)
			require.NoError(t, err)
			root := lifetime.NewEngine(reg, lifetime.Hooks{}).Root()

			var wg sync.WaitGroup
			errs := make([]error, 2)
			for j, name := range []string{"P", "F"} {
				wg.Add(1)
				go func() {
					defer wg.Done()
					_, errs[j] = root.Resolve(T(name))
				}()
			}
			wg.Wait()
			require.NoError(t, root.Close())

			require.NoError(t, errs[0], "iteration %d", i)
			require.NoError(t, errs[1], "iteration %d", i)
		}
	})
}

func TestResolve_RetryAfterFailure(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	b := testutil.NewCatalogBuilder(t)
	b.Factory("", "Flaky", registry.Singleton, func(registry.Resolver) (any, error) {
		if calls.Add(1) == 1 {
			return nil, testutil.ErrTest
		}
		return &testutil.Instance{Type: T("Flaky")}, nil
	})
	root := newEngine(t, b, lifetime.Hooks{}).Root()

	_, err := root.Resolve(T("Flaky"))
	assert.ErrorIs(t, err, testutil.ErrTest)
	testutil.AssertErrorType[accessor.ConstructorInvocationError](t, err)

	first := resolve(t, root, "Flaky")
	assert.Same(t, first, resolve(t, root, "Flaky"))
	assert.EqualValues(t, 2, calls.Load())
}

func TestScope_Close(t *testing.T) {
	t.Run("disposes in reverse creation order", func(t *testing.T) {
		t.Parallel()

		b := testutil.LayeredScenario(t)
		root := newEngine(t, b, lifetime.Hooks{}).Root()
		s := newScope(t, root)

		resolve(t, s, "Handler")

		require.NoError(t, s.Close())
		assert.Equal(t, []string{"Service"}, b.Closed())

		require.NoError(t, root.Close())
		assert.Equal(t, []string{"Service", "Repo", "Config"}, b.Closed())
	})

	t.Run("closes children first", func(t *testing.T) {
		t.Parallel()

		b := testutil.LayeredScenario(t)
		root := newEngine(t, b, lifetime.Hooks{}).Root()
		s := newScope(t, root)
		child := newScope(t, s)

		resolve(t, child, "Service")
		resolve(t, s, "Service")

		require.NoError(t, root.Close())
		assert.True(t, s.IsDisposed())
		assert.True(t, child.IsDisposed())
		assert.Equal(t, []string{"Service", "Service", "Repo", "Config"}, b.Closed())
	})

	t.Run("transients are owned by the resolving scope", func(t *testing.T) {
		t.Parallel()

		b := testutil.NewCatalogBuilder(t)
		b.DisposableCtor("Tmp")
		b.Transient("Tmp")
		root := newEngine(t, b, lifetime.Hooks{}).Root()
		s := newScope(t, root)

		v := resolve(t, s, "Tmp").(*testutil.DisposableInstance)
		require.NoError(t, s.Close())
		assert.True(t, v.IsClosed())
		assert.Equal(t, []string{"Tmp"}, b.Closed())
	})

	t.Run("aggregates disposal errors", func(t *testing.T) {
		t.Parallel()

		b := testutil.LayeredScenario(t)
		root := newEngine(t, b, lifetime.Hooks{}).Root()

		resolve(t, root, "IRepo").(*testutil.DisposableInstance).FailClose(testutil.ErrDisposal)
		resolve(t, root, "Config").(*testutil.DisposableInstance).FailClose(testutil.ErrTest)

		err := root.Close()
		derr := testutil.AssertErrorType[lifetime.DisposalError](t, err)
		assert.Equal(t, "root", derr.Context)
		assert.Len(t, derr.Errors, 2)
		assert.ErrorIs(t, err, testutil.ErrDisposal)
		assert.ErrorIs(t, err, testutil.ErrTest)
		assert.Equal(t, []string{"Repo", "Config"}, b.Closed(), "every instance is closed despite failures")
	})

	t.Run("is idempotent", func(t *testing.T) {
		t.Parallel()

		b := testutil.LayeredScenario(t)
		root := newEngine(t, b, lifetime.Hooks{}).Root()
		resolve(t, root, "Config")

		require.NoError(t, root.Close())
		require.NoError(t, root.Close())
		assert.Equal(t, []string{"Config"}, b.Closed())
	})

	t.Run("disposed scope refuses work", func(t *testing.T) {
		t.Parallel()

		b := testutil.LayeredScenario(t)
		root := newEngine(t, b, lifetime.Hooks{}).Root()
		s := newScope(t, root)
		require.NoError(t, s.Close())

		_, err := s.Resolve(T("Service"))
		assert.ErrorIs(t, err, lifetime.ErrScopeDisposed)

		_, ok := s.TryResolve(T("Clock"))
		assert.False(t, ok)

		_, err = s.CreateScope(context.Background())
		assert.ErrorIs(t, err, lifetime.ErrScopeDisposed)

		resolve(t, root, "Config")
	})
}

func TestScope_Identity(t *testing.T) {
	t.Parallel()

	root := newEngine(t, testutil.LayeredScenario(t), lifetime.Hooks{}).Root()
	type key struct{}
	ctx := context.WithValue(context.Background(), key{}, "value")

	s, err := root.CreateScope(ctx)
	require.NoError(t, err)
	child := newScope(t, s)

	assert.True(t, root.IsRoot())
	assert.False(t, s.IsRoot())
	assert.Nil(t, root.Parent())
	assert.Same(t, s, child.Parent())
	assert.NotEmpty(t, s.ID())
	assert.NotEqual(t, s.ID(), child.ID())
	assert.NotEqual(t, root.ID(), s.ID())

	assert.Equal(t, "value", s.Context().Value(key{}))
}

func TestHooks(t *testing.T) {
	t.Parallel()

	var (
		mu       sync.Mutex
		created  []string
		cached   int
		fresh    int
		failures []error
		opened   int
		closed   []string
	)
	hooks := lifetime.Hooks{
		OnResolved: func(t registry.TypeRef, _ registry.Lifetime, hit bool, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			if hit {
				cached++
			} else {
				fresh++
			}
		},
		OnCreated: func(t registry.TypeRef, _ registry.Lifetime, _ time.Duration) {
			mu.Lock()
			defer mu.Unlock()
			created = append(created, t.Name())
		},
		OnError: func(_ registry.TypeRef, err error) {
			mu.Lock()
			defer mu.Unlock()
			failures = append(failures, err)
		},
		OnScopeCreated: func(string) {
			mu.Lock()
			defer mu.Unlock()
			opened++
		},
		OnScopeClosed: func(id string, _ error) {
			mu.Lock()
			defer mu.Unlock()
			closed = append(closed, id)
		},
	}

	b := testutil.ABScenario(t, registry.Singleton)
	e := newEngine(t, b, hooks)
	s := newScope(t, e.Root())

	resolve(t, s, "B")
	resolve(t, s, "B")
	_, err := s.Resolve(T("Missing"))
	require.Error(t, err)
	require.NoError(t, s.Close())

	mu.Lock()
	defer mu.Unlock()

	assert.Equal(t, []string{"A", "B", "B"}, created)
	assert.Equal(t, 3, fresh)
	assert.Equal(t, 1, cached)
	require.Len(t, failures, 1)
	assert.True(t, errors.Is(failures[0], lifetime.ErrServiceNotFound))
	assert.Equal(t, 2, opened, "root and child")
	assert.Equal(t, []string{s.ID()}, closed)
}
