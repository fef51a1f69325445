package testutil

import (
	"errors"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/junioryono/dicore/internal/registry"
)

// Common test errors
var (
	ErrTest        = errors.New("test error")
	ErrConstructor = errors.New("constructor error")
	ErrDisposal    = errors.New("disposal error")
)

// Instance is the value built by CatalogBuilder constructors
type Instance struct {
	Type registry.TypeRef
	Args []any

	// Seq orders instances by creation
	Seq int64
}

// Arg returns the i-th constructor argument as an *Instance
func (i *Instance) Arg(n int) *Instance {
	if n >= len(i.Args) {
		return nil
	}

	switch v := i.Args[n].(type) {
	case *Instance:
		return v
	case *DisposableInstance:
		return v.Instance
	default:
		return nil
	}
}

func (i *Instance) String() string {
	return fmt.Sprintf("%s#%d", i.Type, i.Seq)
}

// DisposableInstance is an Instance that records its own Close
type DisposableInstance struct {
	*Instance

	closed  atomic.Bool
	onClose func(name string)
	err     error
}

// FailClose makes Close return err
func (d *DisposableInstance) FailClose(err error) {
	d.err = err
}

// Close implements io.Closer
func (d *DisposableInstance) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return errors.New("already closed")
	}
	if d.onClose != nil {
		d.onClose(d.Type.Name())
	}
	return d.err
}

// IsClosed reports whether Close was called
func (d *DisposableInstance) IsClosed() bool {
	return d.closed.Load()
}

// Go types used by the reflection based front end tests.

// TestLogger is a test logger interface
type TestLogger interface {
	Log(msg string)
	Logs() []string
}

// TestLoggerImpl implements TestLogger
type TestLoggerImpl struct {
	mu   sync.Mutex
	logs []string
}

// NewTestLogger creates a TestLogger
func NewTestLogger() TestLogger {
	return &TestLoggerImpl{}
}

func (l *TestLoggerImpl) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.logs = append(l.logs, msg)
}

func (l *TestLoggerImpl) Logs() []string {
	l.mu.Lock()
	defer l.mu.Unlock()
	return append([]string(nil), l.logs...)
}

// TestDatabase is a disposable test dependency
type TestDatabase struct {
	Name   string
	closed atomic.Bool
}

// NewTestDatabase creates a TestDatabase
func NewTestDatabase() *TestDatabase {
	return &TestDatabase{Name: "testdb"}
}

// Close implements io.Closer
func (d *TestDatabase) Close() error {
	if !d.closed.CompareAndSwap(false, true) {
		return errors.New("already closed")
	}
	return nil
}

// IsClosed reports whether Close was called
func (d *TestDatabase) IsClosed() bool {
	return d.closed.Load()
}

// TestService depends on a logger and a database
type TestService struct {
	Logger TestLogger
	DB     *TestDatabase
}

// NewTestService creates a TestService
func NewTestService(logger TestLogger, db *TestDatabase) *TestService {
	return &TestService{Logger: logger, DB: db}
}

// TestHandler is a request scoped consumer of TestService
type TestHandler struct {
	Service *TestService
}

// NewTestHandler creates a TestHandler
func NewTestHandler(svc *TestService) *TestHandler {
	return &TestHandler{Service: svc}
}
