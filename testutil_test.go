package dicore

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"
)

var errBoom = errors.New("boom")

// recorder collects Close calls in order
type recorder struct {
	mu     sync.Mutex
	closed []string
}

func (r *recorder) close(name string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.closed = append(r.closed, name)
	return nil
}

func (r *recorder) Closed() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]string(nil), r.closed...)
}

type Logger interface {
	Log(msg string)
}

type memLogger struct {
	mu    sync.Mutex
	lines []string
}

func NewLogger() Logger {
	return &memLogger{}
}

func (l *memLogger) Log(msg string) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.lines = append(l.lines, msg)
}

type dbConfig struct {
	DSN string
}

func newConfig() *dbConfig {
	return &dbConfig{DSN: "memory"}
}

type Database struct {
	rec *recorder
	cfg *dbConfig
}

func newDatabase(rec *recorder, cfg *dbConfig) *Database {
	return &Database{rec: rec, cfg: cfg}
}

func (d *Database) Close() error {
	return d.rec.close("Database")
}

type UserRepository interface {
	Find(id int) string
}

type userRepository struct {
	db *Database
}

func newUserRepository(db *Database) *userRepository {
	return &userRepository{db: db}
}

func (r *userRepository) Find(int) string {
	return r.db.cfg.DSN
}

type UserService struct {
	Repo   UserRepository
	Logger Logger
	rec    *recorder
}

func newUserService(repo UserRepository, logger Logger, rec *recorder) *UserService {
	return &UserService{Repo: repo, Logger: logger, rec: rec}
}

func (s *UserService) Close() error {
	return s.rec.close("UserService")
}

// A and B of the basic scenario
type svcA struct{}
type svcB struct{ A *svcA }
type svcC struct{}

func newSvcA() *svcA           { return &svcA{} }
func newSvcB(a *svcA) *svcB    { return &svcB{A: a} }
func newSvcBFromC(*svcC) *svcB { return &svcB{} }

type cycleA struct{}
type cycleB struct{}

func newCycleA(*cycleB) *cycleA { return &cycleA{} }
func newCycleB(*cycleA) *cycleB { return &cycleB{} }

// client has several constructors; via names the one used
type client struct {
	via string
}

func newClient() *client                      { return &client{via: "default"} }
func newClientWithConfig(*dbConfig) *client   { return &client{via: "config"} }
func newClientWithDatabase(*Database) *client { return &client{via: "database"} }
func newClientMarked() *client                { return &client{via: "marked"} }

func newClientWithBoth(*dbConfig, *Database) *client {
	return &client{via: "both"}
}

// newAppCollection registers the layered application services.
func newAppCollection(t testing.TB) (Collection, *recorder) {
	t.Helper()

	rec := &recorder{}
	c := NewCollection()
	require.NoError(t, c.AddModules(
		NewModule("infra",
			AddSingleton(rec),
			AddSingleton(newConfig),
			AddSingleton(newDatabase),
			AddSingleton(NewLogger),
		),
		NewModule("users",
			AddSingleton(newUserRepository, As[UserRepository]()),
			AddScoped(newUserService),
		),
	))

	return c, rec
}

// buildApp builds the application collection and closes it with the test.
func buildApp(t testing.TB, opts *ProviderOptions) (Provider, *recorder) {
	t.Helper()

	c, rec := newAppCollection(t)
	p, err := c.BuildWithOptions(opts)
	require.NoError(t, err)
	t.Cleanup(func() { _ = p.Close() })

	return p, rec
}

func observedLogger(level zapcore.Level) (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(level)
	return zap.New(core), logs
}
