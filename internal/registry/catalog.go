package registry

import "sync"

// Catalog is the seam to whatever front end enumerates real types and their
// constructors. Implementations must be safe for concurrent reads.
type Catalog interface {
	// Kind reports what kind of type t is.
	Kind(t TypeRef) TypeKind

	// Constructors returns the candidate constructors of t in declaration order.
	Constructors(t TypeRef) []*Constructor
}

// MapCatalog is an in-memory Catalog.
type MapCatalog struct {
	mu    sync.RWMutex
	kinds map[TypeRef]TypeKind
	ctors map[TypeRef][]*Constructor
}

// NewMapCatalog creates an empty catalog.
func NewMapCatalog() *MapCatalog {
	return &MapCatalog{
		kinds: make(map[TypeRef]TypeKind),
		ctors: make(map[TypeRef][]*Constructor),
	}
}

// Declare records the kind of t. Redeclaring overwrites the previous kind.
func (c *MapCatalog) Declare(t TypeRef, kind TypeKind) *MapCatalog {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.kinds[t] = kind
	return c
}

// AddConstructor appends a constructor to its owner's candidate list.
// An undeclared owner is declared as a class.
func (c *MapCatalog) AddConstructor(ctor *Constructor) *MapCatalog {
	if ctor == nil || ctor.Owner.IsZero() {
		return c
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	if _, ok := c.kinds[ctor.Owner]; !ok {
		c.kinds[ctor.Owner] = KindClass
	}
	c.ctors[ctor.Owner] = append(c.ctors[ctor.Owner], ctor)
	return c
}

// Kind implements Catalog.
func (c *MapCatalog) Kind(t TypeRef) TypeKind {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.kinds[t]
}

// Constructors implements Catalog. The returned slice must not be modified.
func (c *MapCatalog) Constructors(t TypeRef) []*Constructor {
	c.mu.RLock()
	defer c.mu.RUnlock()

	return c.ctors[t]
}

// Types returns every declared type.
func (c *MapCatalog) Types() []TypeRef {
	c.mu.RLock()
	defer c.mu.RUnlock()

	out := make([]TypeRef, 0, len(c.kinds))
	for t := range c.kinds {
		out = append(out, t)
	}

	return out
}
