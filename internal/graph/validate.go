package graph

import (
	"errors"
	"fmt"
	"strings"

	"github.com/junioryono/dicore/internal/diagnostic"
	"github.com/junioryono/dicore/internal/registry"
	"github.com/junioryono/dicore/internal/selector"
)

// Policy decides how a singleton capturing a scoped service is reported.
type Policy int

const (
	// PolicyStrict reports the capture as a fatal LifetimeMismatch.
	PolicyStrict Policy = iota

	// PolicyWarn reports the capture as a warning.
	PolicyWarn
)

func (p Policy) String() string {
	switch p {
	case PolicyStrict:
		return "strict"
	case PolicyWarn:
		return "warn"
	default:
		return fmt.Sprintf("Policy(%d)", int(p))
	}
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (p *Policy) UnmarshalText(text []byte) error {
	switch strings.ToLower(string(text)) {
	case "", "strict":
		*p = PolicyStrict
	case "warn", "warning":
		*p = PolicyWarn
	default:
		return fmt.Errorf("unknown lifetime policy %q", string(text))
	}

	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (p Policy) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Options configures Validate.
type Options struct {
	LifetimePolicy Policy
}

// NewTable loads registrations into a table. Duplicate service types are
// reported as DuplicateRegistration diagnostics and skipped; any other
// invalid registration is returned as an error.
func NewTable(provider registry.ProviderID, regs []registry.Registration) (*registry.Table, diagnostic.List, error) {
	table := registry.NewTable(provider)
	var diags diagnostic.List

	for _, reg := range regs {
		err := table.Add(reg)
		if err == nil {
			continue
		}

		var dup registry.AlreadyRegisteredError
		if !errors.As(err, &dup) {
			return nil, nil, err
		}

		d := diagnostic.New(diagnostic.DuplicateRegistration, dup.ServiceType,
			"service %s is registered more than once (implementations %s and %s)",
			dup.ServiceType, dup.Existing.Impl, reg.Impl)
		d.Related = reg.Impl
		d.Location = reg.Location
		diags = append(diags, d)
	}

	return table, diags, nil
}

// Validate checks that every registration can be constructed and builds the
// dependency graph. The table is sealed. The graph is authoritative only
// when the returned list has no fatal diagnostics.
func Validate(table *registry.Table, catalog registry.Catalog, opts Options) (*Graph, diagnostic.List) {
	table.Seal()

	v := &validator{
		table:    table,
		catalog:  catalog,
		graph:    newGraph(table),
		visited:  make(map[registry.TypeRef]bool),
		analyzed: make(map[registry.TypeRef]*analysis),
		missing:  make(map[[2]registry.TypeRef]bool),
		excluded: make(map[registry.TypeRef]bool),
	}

	var work []registry.TypeRef
	for _, reg := range table.Registrations() {
		if v.checkEdge(reg) {
			work = append(work, reg.ServiceType())
		} else {
			v.excluded[reg.ServiceType()] = true
		}
	}

	// Worklist is popped from the end; reverse so registration order is kept.
	for i, j := 0, len(work)-1; i < j; i, j = i+1, j-1 {
		work[i], work[j] = work[j], work[i]
	}

	for len(work) > 0 {
		service := work[len(work)-1]
		work = work[:len(work)-1]

		if v.visited[service] {
			continue
		}
		v.visited[service] = true

		work = append(work, v.expand(service)...)
	}

	v.graph.order = v.registrationOrder()
	v.graph.link()
	v.reportCycles()
	v.checkLifetimes(opts.LifetimePolicy)

	return v.graph, v.diags
}

type validator struct {
	table   *registry.Table
	catalog registry.Catalog
	graph   *Graph
	diags   diagnostic.List

	// visited holds service types already expanded
	visited map[registry.TypeRef]bool

	// analyzed caches constructor selection per implementation type
	analyzed map[registry.TypeRef]*analysis

	// missing dedupes MissingDependency per (dependency, requiredBy) pair
	missing map[[2]registry.TypeRef]bool

	// excluded holds service types whose registration failed edge checks
	excluded map[registry.TypeRef]bool
}

type analysis struct {
	ctor *registry.Constructor
	ok   bool
}

// checkEdge validates the kinds of a registration's types.
func (v *validator) checkEdge(reg registry.Registration) bool {
	ok := true

	if !reg.IsSelf() {
		switch v.catalog.Kind(reg.Service) {
		case registry.KindInterface, registry.KindClass, registry.KindAbstract:
		default:
			d := diagnostic.New(diagnostic.InvalidServiceType, reg.Service,
				"service type %s must be an interface or a class, got %s", reg.Service, v.catalog.Kind(reg.Service))
			d.Related = reg.Impl
			d.Location = reg.Location
			v.diags = append(v.diags, d)
			ok = false
		}
	}

	kind := v.catalog.Kind(reg.Impl)
	if kind == registry.KindUnknown && reg.Factory != nil {
		kind = registry.KindClass
	}

	if kind != registry.KindClass {
		d := diagnostic.New(diagnostic.InvalidImplementationType, reg.Impl,
			"implementation type %s must be a non-abstract class, got %s", reg.Impl, kind)
		d.Related = reg.ServiceType()
		d.Location = reg.Location
		v.diags = append(v.diags, d)
		ok = false
	}

	return ok
}

// expand analyzes one service and returns the services it depends on.
func (v *validator) expand(service registry.TypeRef) []registry.TypeRef {
	reg, ok := v.table.Lookup(service)
	if !ok {
		return nil
	}

	node := &Node{
		Type:     reg.Impl,
		Service:  service,
		Lifetime: reg.Lifetime,
		Factory:  reg.Factory,
		Location: reg.Location,
	}

	if reg.Factory != nil {
		v.graph.addNode(node)
		return nil
	}

	a := v.analyze(reg)
	if !a.ok {
		return nil
	}

	node.Constructor = a.ctor
	node.Dependencies = append([]registry.TypeRef(nil), a.ctor.Parameters...)
	if node.Location == "" {
		node.Location = a.ctor.Location
	}
	v.graph.addNode(node)

	var next []registry.TypeRef
	for _, dep := range a.ctor.Parameters {
		if !v.table.IsRegistered(dep) {
			v.reportMissing(dep, reg.Impl, a.ctor.Location)
			continue
		}

		target, _ := v.table.ImplOf(dep)
		key := target.ServiceType()
		if v.excluded[key] || v.visited[key] {
			continue
		}
		next = append(next, key)
	}

	// Keep parameter order when popped.
	for i, j := 0, len(next)-1; i < j; i, j = i+1, j-1 {
		next[i], next[j] = next[j], next[i]
	}

	return next
}

// analyze runs constructor selection for an implementation type once.
func (v *validator) analyze(reg registry.Registration) *analysis {
	if a, ok := v.analyzed[reg.Impl]; ok {
		return a
	}

	impl := reg.Impl
	ctors := v.catalog.Constructors(impl)

	for _, hidden := range selector.HiddenMarked(ctors) {
		d := diagnostic.New(diagnostic.NonPublicMarkedConstructor, impl,
			"constructor %s is marked for injection but is not public", hidden.Signature())
		d.Location = hidden.Location
		v.diags = append(v.diags, d)
	}

	res := selector.Select(impl, ctors, v.table.IsRegistered)
	a := &analysis{ctor: res.Constructor, ok: res.OK()}
	v.analyzed[impl] = a

	location := reg.Location
	switch res.Failure {
	case selector.NoPublicConstructor:
		v.diags = append(v.diags, withLocation(diagnostic.New(diagnostic.NoPublicConstructor, impl,
			"%s has no public constructor", impl), location))
	case selector.AmbiguousMarkedConstructor:
		v.diags = append(v.diags, withLocation(diagnostic.New(diagnostic.AmbiguousMarkedConstructor, impl,
			"%s has %d constructors marked for injection: %s", impl, len(res.Marked), signatures(res.Marked)), location))
	case selector.NoMatchedConstructor:
		v.diags = append(v.diags, withLocation(diagnostic.New(diagnostic.NoMatchedConstructor, impl,
			"no constructor of %s has all of its parameters registered", impl), location))
	}

	if res.Ambiguous() {
		d := diagnostic.New(diagnostic.AmbiguousConstructor, impl,
			"%s has several equally good constructors (%s); using %s",
			impl, signatures(res.Tied), res.Constructor.Signature())
		d.Location = res.Constructor.Location
		v.diags = append(v.diags, d)
	}

	return a
}

func (v *validator) reportMissing(dep, requiredBy registry.TypeRef, location registry.Location) {
	pair := [2]registry.TypeRef{dep, requiredBy}
	if v.missing[pair] {
		return
	}
	v.missing[pair] = true

	d := diagnostic.New(diagnostic.MissingDependency, dep,
		"%s requires %s, which is not registered", requiredBy, dep)
	d.Related = requiredBy
	d.Location = location
	v.diags = append(v.diags, d)
}

// registrationOrder lists the analyzed services in registration order.
func (v *validator) registrationOrder() []registry.TypeRef {
	order := make([]registry.TypeRef, 0, len(v.graph.nodes))
	for _, reg := range v.table.Registrations() {
		if _, ok := v.graph.nodes[reg.ServiceType()]; ok {
			order = append(order, reg.ServiceType())
		}
	}

	return order
}

func (v *validator) reportCycles() {
	for _, path := range v.graph.findCycles() {
		d := diagnostic.New(diagnostic.CircularDependency, path[0],
			"circular dependency: %s", joinTypes(path, " -> "))
		d.Path = path
		if n, ok := v.graph.nodes[path[0]]; ok {
			d.Location = n.Location
		}
		v.diags = append(v.diags, d)
	}
}

// checkLifetimes reports singletons that reach a scoped service directly or
// through transient services.
func (v *validator) checkLifetimes(policy Policy) {
	for _, service := range v.graph.order {
		root := v.graph.nodes[service]
		if root.Lifetime != registry.Singleton {
			continue
		}

		type step struct {
			key  registry.TypeRef
			path []registry.TypeRef
		}

		seen := map[registry.TypeRef]bool{service: true}
		reported := make(map[registry.TypeRef]bool)
		stack := []step{{key: service, path: []registry.TypeRef{service}}}

		for len(stack) > 0 {
			cur := stack[len(stack)-1]
			stack = stack[:len(stack)-1]

			for _, dep := range v.graph.edges[cur.key] {
				n := v.graph.nodes[dep]
				path := append(append([]registry.TypeRef(nil), cur.path...), dep)

				switch n.Lifetime {
				case registry.Scoped:
					if !reported[dep] {
						reported[dep] = true
						v.reportCapture(root, n, path, policy)
					}
				case registry.Transient:
					if !seen[dep] {
						seen[dep] = true
						stack = append(stack, step{key: dep, path: path})
					}
				}
			}
		}
	}
}

func (v *validator) reportCapture(singleton, scoped *Node, path []registry.TypeRef, policy Policy) {
	d := diagnostic.New(diagnostic.LifetimeMismatch, singleton.Service,
		"singleton %s depends on scoped %s (%s)", singleton.Service, scoped.Service, joinTypes(path, " -> "))
	d.Related = scoped.Service
	d.Path = path
	d.Location = singleton.Location
	if policy == PolicyWarn {
		d.Severity = diagnostic.Warning
	}

	v.diags = append(v.diags, d)
}

func withLocation(d diagnostic.Diagnostic, loc registry.Location) diagnostic.Diagnostic {
	d.Location = loc
	return d
}

func signatures(ctors []*registry.Constructor) string {
	parts := make([]string, len(ctors))
	for i, c := range ctors {
		parts[i] = c.Signature()
	}

	return strings.Join(parts, ", ")
}

func joinTypes(types []registry.TypeRef, sep string) string {
	parts := make([]string, len(types))
	for i, t := range types {
		parts[i] = t.String()
	}

	return strings.Join(parts, sep)
}
