package manifest

import (
	"fmt"
	"strings"
	"sync/atomic"

	"github.com/junioryono/dicore"
)

// Instance is the value built by manifest constructors.
type Instance struct {
	Type dicore.TypeRef
	Args []any

	// Seq orders instances by creation.
	Seq int64
}

// Arg returns the n-th constructor argument as an *Instance.
func (i *Instance) Arg(n int) *Instance {
	if n < 0 || n >= len(i.Args) {
		return nil
	}
	return asInstance(i.Args[n])
}

func (i *Instance) String() string {
	return fmt.Sprintf("%s#%d", i.Type, i.Seq)
}

// Tree renders the instance and its arguments, one per line.
func (i *Instance) Tree() string {
	var b strings.Builder
	i.tree(&b, "")
	return b.String()
}

func (i *Instance) tree(b *strings.Builder, indent string) {
	b.WriteString(indent)
	b.WriteString(i.String())
	b.WriteByte('\n')

	for n := range i.Args {
		if arg := i.Arg(n); arg != nil {
			arg.tree(b, indent+"  ")
		}
	}
}

// DisposableInstance is an Instance with a Close method.
type DisposableInstance struct {
	*Instance

	closed atomic.Bool
}

func (d *DisposableInstance) Close() error {
	d.closed.Store(true)
	return nil
}

// IsClosed reports whether Close was called.
func (d *DisposableInstance) IsClosed() bool {
	return d.closed.Load()
}

// AsInstance returns the *Instance behind a resolved manifest value.
func AsInstance(v any) (*Instance, bool) {
	inst := asInstance(v)
	return inst, inst != nil
}

func asInstance(v any) *Instance {
	switch v := v.(type) {
	case *Instance:
		return v
	case *DisposableInstance:
		return v.Instance
	default:
		return nil
	}
}
