package registry

import (
	"fmt"
	"reflect"
	"strings"
)

// TypeRef is an opaque, comparable identity for a type.
// Two TypeRefs are equal iff they carry the same key and name. The key must be
// a comparable value: a reflect.Type, a string, or a struct of comparable fields.
type TypeRef struct {
	key  any
	name string
}

// NewTypeRef creates a TypeRef from a comparable key and a display name.
// It panics if key is not comparable, since such a TypeRef could not be used
// as a map key.
func NewTypeRef(key any, name string) TypeRef {
	if key == nil {
		return TypeRef{}
	}

	if !reflect.TypeOf(key).Comparable() {
		panic(fmt.Sprintf("registry: type key %T is not comparable", key))
	}

	if name == "" {
		name = fmt.Sprint(key)
	}

	return TypeRef{key: key, name: name}
}

// Named creates a TypeRef identified by name only.
func Named(name string) TypeRef {
	if name == "" {
		return TypeRef{}
	}

	return TypeRef{key: name, name: name}
}

// Key returns the identity key of the type.
func (t TypeRef) Key() any {
	return t.key
}

// Name returns the display name of the type.
func (t TypeRef) Name() string {
	return t.name
}

// IsZero reports whether t is the zero TypeRef.
func (t TypeRef) IsZero() bool {
	return t.key == nil
}

func (t TypeRef) String() string {
	if t.key == nil {
		return "<nil>"
	}

	return t.name
}

// TypeKind classifies a type for registration validity checks.
type TypeKind uint8

const (
	// KindUnknown is reported for types the catalog knows nothing about.
	KindUnknown TypeKind = iota

	// KindClass is a concrete constructible type.
	KindClass

	// KindAbstract is a class-like type that cannot be constructed directly.
	KindAbstract

	// KindInterface is a contract type.
	KindInterface

	// KindValue is a primitive or value kind (numbers, strings, booleans).
	KindValue
)

func (k TypeKind) String() string {
	switch k {
	case KindClass:
		return "class"
	case KindAbstract:
		return "abstract"
	case KindInterface:
		return "interface"
	case KindValue:
		return "value"
	default:
		return "unknown"
	}
}

// ParseTypeKind parses the textual form produced by String.
// Case and surrounding spaces are ignored; the empty string is a class.
func ParseTypeKind(s string) (TypeKind, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "class", "":
		return KindClass, nil
	case "abstract":
		return KindAbstract, nil
	case "interface":
		return KindInterface, nil
	case "value":
		return KindValue, nil
	default:
		return KindUnknown, fmt.Errorf("unknown type kind %q", s)
	}
}
