// Package manifest declares types, constructors and registrations in YAML and
// turns them into dicore registrations. Constructed values are *Instance
// trees, which makes a manifest a dry run of a real application's graph.
//
// Example document:
//
//	types:
//	  - name: IRepo
//	    kind: interface
//	  - name: Config
//	    constructors:
//	      - {}
//	  - name: Repo
//	    constructors:
//	      - parameters: [Config]
//	        disposable: true
//
//	registrations:
//	  - impl: Config
//	    lifetime: singleton
//	  - service: IRepo
//	    impl: Repo
//	    lifetime: scoped
package manifest

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"sync/atomic"

	"github.com/junioryono/dicore"
	"gopkg.in/yaml.v3"
)

var (
	// ErrDuplicateType is returned when a type name is declared twice.
	ErrDuplicateType = errors.New("type declared more than once")

	// ErrEmptyName is returned for a type or implementation without name.
	ErrEmptyName = errors.New("type name cannot be empty")
)

// Manifest is a parsed document.
type Manifest struct {
	// Source names the document in locations, usually its file path.
	Source string `yaml:"-"`

	Types         []TypeSpec         `yaml:"types"`
	Registrations []RegistrationSpec `yaml:"registrations"`
}

// TypeSpec declares one type and its constructors.
type TypeSpec struct {
	Name         string            `yaml:"name"`
	Kind         string            `yaml:"kind"`
	Constructors []ConstructorSpec `yaml:"constructors"`

	Line int `yaml:"-"`
}

// ConstructorSpec declares one constructor. Public defaults to true.
type ConstructorSpec struct {
	Name       string   `yaml:"name"`
	Parameters []string `yaml:"parameters"`
	Marked     bool     `yaml:"marked"`
	Public     *bool    `yaml:"public"`

	// Disposable makes the constructor build a *DisposableInstance.
	Disposable bool `yaml:"disposable"`

	// Fail makes the constructor return an error with this message.
	Fail string `yaml:"fail"`

	Line int `yaml:"-"`
}

// RegistrationSpec maps a service to an implementation. An empty Service is
// a self-registration.
type RegistrationSpec struct {
	Service  string          `yaml:"service"`
	Impl     string          `yaml:"impl"`
	Lifetime dicore.Lifetime `yaml:"lifetime"`

	Line int `yaml:"-"`
}

func (t *TypeSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain TypeSpec
	if err := node.Decode((*plain)(t)); err != nil {
		return err
	}
	t.Line = node.Line
	return nil
}

func (c *ConstructorSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain ConstructorSpec
	if err := node.Decode((*plain)(c)); err != nil {
		return err
	}
	c.Line = node.Line
	return nil
}

func (r *RegistrationSpec) UnmarshalYAML(node *yaml.Node) error {
	type plain RegistrationSpec
	if err := node.Decode((*plain)(r)); err != nil {
		return err
	}
	r.Line = node.Line
	return nil
}

// Parse decodes a manifest. source is used in diagnostic locations.
func Parse(r io.Reader, source string) (*Manifest, error) {
	m := &Manifest{}

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(m); err != nil && !errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("failed to parse manifest %s: %w", source, err)
	}

	m.Source = source
	return m, nil
}

// Load reads and parses the manifest at path.
func Load(path string) (*Manifest, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	return Parse(f, path)
}

// Type returns the TypeRef of a manifest type name.
func Type(name string) dicore.TypeRef {
	return dicore.Named(name)
}

// Build returns the registrations and catalog declared by the manifest.
// Parameters naming undeclared types are kept; validation reports them.
func (m *Manifest) Build() ([]dicore.Registration, *dicore.MapCatalog, error) {
	catalog := dicore.NewMapCatalog()
	seen := make(map[string]bool, len(m.Types))

	for _, ts := range m.Types {
		name := strings.TrimSpace(ts.Name)
		if name == "" {
			return nil, nil, fmt.Errorf("%s: %w", m.location(ts.Line), ErrEmptyName)
		}
		if seen[name] {
			return nil, nil, fmt.Errorf("%s: %s: %w", m.location(ts.Line), name, ErrDuplicateType)
		}
		seen[name] = true

		kind, err := dicore.ParseTypeKind(ts.Kind)
		if err != nil {
			return nil, nil, fmt.Errorf("%s: %w", m.location(ts.Line), err)
		}

		owner := Type(name)
		catalog.Declare(owner, kind)

		for i, cs := range ts.Constructors {
			catalog.AddConstructor(m.constructor(owner, i, cs))
		}
	}

	regs := make([]dicore.Registration, 0, len(m.Registrations))
	for _, rs := range m.Registrations {
		if strings.TrimSpace(rs.Impl) == "" {
			return nil, nil, fmt.Errorf("%s: registration of %q: %w", m.location(rs.Line), rs.Service, ErrEmptyName)
		}

		reg := dicore.Registration{
			Impl:     Type(rs.Impl),
			Lifetime: rs.Lifetime,
			Location: dicore.Location(m.location(rs.Line)),
		}
		if rs.Service != "" {
			reg.Service = Type(rs.Service)
		}
		regs = append(regs, reg)
	}

	return regs, catalog, nil
}

func (m *Manifest) constructor(owner dicore.TypeRef, i int, cs ConstructorSpec) *dicore.Constructor {
	params := make([]dicore.TypeRef, len(cs.Parameters))
	for j, p := range cs.Parameters {
		params[j] = Type(p)
	}

	name := cs.Name
	if name == "" {
		name = fmt.Sprintf("%s#%d", owner, i)
	}

	public := cs.Public == nil || *cs.Public

	return &dicore.Constructor{
		Owner:      owner,
		Name:       name,
		Parameters: params,
		Marked:     cs.Marked,
		Public:     public,
		Invoke:     newInvoker(owner, cs),
		Location:   dicore.Location(m.location(cs.Line)),
	}
}

func (m *Manifest) location(line int) string {
	source := m.Source
	if source == "" {
		source = "manifest"
	}
	return fmt.Sprintf("%s:%d", source, line)
}

var seq atomic.Int64

func newInvoker(owner dicore.TypeRef, cs ConstructorSpec) dicore.Invoker {
	return func(args []any) (any, error) {
		if cs.Fail != "" {
			return nil, errors.New(cs.Fail)
		}

		inst := &Instance{
			Type: owner,
			Args: append([]any(nil), args...),
			Seq:  seq.Add(1),
		}
		if cs.Disposable {
			return &DisposableInstance{Instance: inst}, nil
		}
		return inst, nil
	}
}
