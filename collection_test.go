package dicore

import (
	"io"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCollection_AddService(t *testing.T) {
	t.Run("self registration", func(t *testing.T) {
		c := NewCollection()
		require.NoError(t, c.AddSingleton(newSvcA))

		assert.True(t, c.Contains(TypeOf[*svcA]()))
		assert.Equal(t, 1, c.Count())

		regs := c.Registrations()
		require.Len(t, regs, 1)
		assert.True(t, regs[0].IsSelf())
		assert.Equal(t, Singleton, regs[0].Lifetime)
		assert.NotEmpty(t, regs[0].Location)
		assert.Equal(t, KindClass, c.Catalog().Kind(TypeOf[*svcA]()))
	})

	t.Run("interface result registers the interface", func(t *testing.T) {
		c := NewCollection()
		require.NoError(t, c.AddTransient(NewLogger))

		assert.True(t, c.Contains(TypeOf[Logger]()))
		regs := c.Registrations()
		require.Len(t, regs, 1)
		assert.False(t, regs[0].IsSelf())
		assert.Equal(t, KindInterface, c.Catalog().Kind(TypeOf[Logger]()))
	})

	t.Run("As registers under each interface", func(t *testing.T) {
		c := NewCollection()
		require.NoError(t, c.AddScoped(newUserRepository, As[UserRepository]()))

		assert.True(t, c.Contains(TypeOf[UserRepository]()))
		assert.False(t, c.Contains(TypeOf[*userRepository]()))
		assert.Len(t, c.Catalog().Constructors(TypeOf[*userRepository]()), 1)
	})

	t.Run("As with unimplemented interface", func(t *testing.T) {
		c := NewCollection()
		err := c.AddSingleton(newSvcA, As[io.Reader]())

		var mismatch TypeMismatchError
		require.ErrorAs(t, err, &mismatch)
		assert.Equal(t, 0, c.Count())
	})

	t.Run("As with non-interface type", func(t *testing.T) {
		c := NewCollection()
		assert.Error(t, c.AddSingleton(newSvcA, As[*svcA]()))
	})

	t.Run("nil constructor", func(t *testing.T) {
		c := NewCollection()
		assert.ErrorIs(t, c.AddSingleton(nil), ErrConstructorNil)
	})

	t.Run("function without results", func(t *testing.T) {
		c := NewCollection()
		assert.Error(t, c.AddSingleton(func() {}))
	})

	t.Run("alternative constructor of another type", func(t *testing.T) {
		c := NewCollection()
		err := c.AddSingleton(newClient, Also(newSvcA))

		var mismatch TypeMismatchError
		assert.ErrorAs(t, err, &mismatch)
	})

	t.Run("constructors are added once per implementation", func(t *testing.T) {
		c := NewCollection()
		require.NoError(t, c.AddSingleton(newClient, Also(newClientWithConfig)))
		require.NoError(t, c.AddSingleton(newClient, Also(newClientWithConfig)))

		assert.Len(t, c.Catalog().Constructors(TypeOf[*client]()), 2)
		assert.Equal(t, 2, c.Count())
	})
}

func TestCollection_Remove(t *testing.T) {
	c := NewCollection()
	require.NoError(t, c.AddSingleton(newSvcA))
	require.NoError(t, c.AddTransient(newSvcB))

	c.Remove(TypeOf[*svcA]())

	assert.False(t, c.Contains(TypeOf[*svcA]()))
	assert.True(t, c.Contains(TypeOf[*svcB]()))
	assert.Equal(t, 1, c.Count())
}

func TestCollection_AddFactory(t *testing.T) {
	c := NewCollection()

	assert.ErrorIs(t, c.AddFactory(TypeOf[*svcA](), Singleton, nil), ErrConstructorNil)

	var lifetimeErr LifetimeError
	assert.ErrorAs(t, c.AddFactory(TypeOf[*svcA](), Lifetime(42), func(Resolver) (any, error) { return nil, nil }), &lifetimeErr)

	require.NoError(t, c.AddModules(AddFactory(Singleton, func(Resolver) (*svcA, error) {
		return &svcA{}, nil
	})))

	assert.True(t, c.Contains(TypeOf[*svcA]()))
	regs := c.Registrations()
	require.Len(t, regs, 1)
	assert.NotNil(t, regs[0].Factory)
	assert.Equal(t, KindClass, c.Catalog().Kind(TypeOf[*svcA]()))
}

func TestModule(t *testing.T) {
	t.Run("nested modules", func(t *testing.T) {
		c, _ := newAppCollection(t)
		assert.Equal(t, 6, c.Count())
	})

	t.Run("error is wrapped with the module name", func(t *testing.T) {
		c := NewCollection()
		err := c.AddModules(NewModule("outer",
			AddSingleton(newSvcA),
			nil,
			NewModule("inner", AddSingleton(nil)),
		))

		var modErr ModuleError
		require.ErrorAs(t, err, &modErr)
		assert.Equal(t, "outer", modErr.Module)
		assert.ErrorIs(t, err, ErrConstructorNil)
		assert.Contains(t, err.Error(), `module "inner"`)
	})

	t.Run("option strings", func(t *testing.T) {
		assert.Equal(t, "As(io.Reader)", As[io.Reader]().(addAsOption).String())
		assert.Equal(t, "Also(2 constructors)", Also(newClient, newClientMarked).(addAlsoOption).String())
		assert.Equal(t, "Marked(func() *dicore.client)", Marked(newClientMarked).(addMarkedOption).String())
	})
}

func TestConstructorSelection(t *testing.T) {
	withDeps := func(c Collection) error {
		return c.AddModules(
			AddSingleton(newConfig),
			AddSingleton(&recorder{}),
			AddSingleton(newDatabase),
		)
	}

	tests := []struct {
		name  string
		setup func(c Collection) error
		want  string
	}{
		{
			name: "single constructor",
			setup: func(c Collection) error {
				return c.AddSingleton(newClient)
			},
			want: "default",
		},
		{
			name: "parameterless constructor wins",
			setup: func(c Collection) error {
				if err := withDeps(c); err != nil {
					return err
				}
				return c.AddSingleton(newClientWithConfig, Also(newClient))
			},
			want: "default",
		},
		{
			name: "fewest satisfiable parameters win",
			setup: func(c Collection) error {
				if err := withDeps(c); err != nil {
					return err
				}
				return c.AddSingleton(newClientWithBoth, Also(newClientWithConfig))
			},
			want: "config",
		},
		{
			name: "unsatisfiable constructor is skipped",
			setup: func(c Collection) error {
				if err := c.AddSingleton(newConfig); err != nil {
					return err
				}
				return c.AddSingleton(newClientWithDatabase, Also(newClientWithConfig))
			},
			want: "config",
		},
		{
			name: "marked constructor wins",
			setup: func(c Collection) error {
				if err := withDeps(c); err != nil {
					return err
				}
				return c.AddSingleton(newClient, Also(newClientWithBoth), Marked(newClientWithConfig))
			},
			want: "config",
		},
		{
			name: "internal constructor is never selected",
			setup: func(c Collection) error {
				if err := withDeps(c); err != nil {
					return err
				}
				return c.AddSingleton(newClientWithConfig, Internal(newClient))
			},
			want: "config",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := NewCollection()
			require.NoError(t, tt.setup(c))

			p, err := c.Build()
			require.NoError(t, err)
			defer p.Close()

			got, err := Resolve[*client](p)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got.via)
		})
	}
}

func TestConstructorSelection_Ambiguous(t *testing.T) {
	c := NewCollection()
	require.NoError(t, c.AddSingleton(newConfig))
	require.NoError(t, c.AddSingleton(&recorder{}))
	require.NoError(t, c.AddSingleton(newDatabase))
	require.NoError(t, c.AddSingleton(newClientWithConfig, Also(newClientWithDatabase)))

	p, err := c.Build()
	require.NoError(t, err)
	defer p.Close()

	assert.Equal(t, 1, p.Diagnostics().Count(AmbiguousConstructor))

	got, err := Resolve[*client](p)
	require.NoError(t, err)
	assert.Equal(t, "config", got.via)
}
