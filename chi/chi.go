// Package chi provides dicore integration for the Chi router.
//
// This package provides middleware for creating request scopes and
// type-safe handler wrappers for resolving controllers.
//
// Example usage:
//
//	provider, _ := collection.Build()
//
//	r := chi.NewRouter()
//	dicorechi.Use(r, provider, dicorechi.WithLogger(logger))
//
//	r.Post("/login", dicorechi.Handle(AuthController.Login))
//	r.Get("/users/{id}", dicorechi.Handle(UserController.GetByID))
package chi

import (
	"net/http"

	gochi "github.com/go-chi/chi/v5"
	"github.com/junioryono/dicore"
	"go.uber.org/zap"
)

// Config holds the configuration for the scope middleware.
type Config struct {
	// Logger receives scope close failures and default handler errors.
	// Defaults to zap.NewNop().
	Logger *zap.Logger

	// ErrorHandler is called when scope creation fails.
	// If nil, a default handler returning 500 Internal Server Error is used.
	ErrorHandler func(http.ResponseWriter, *http.Request, error)

	// CloseErrorHandler is called when scope closing fails.
	// If nil, errors are logged.
	CloseErrorHandler func(error)

	// Middlewares are functions that run after scope creation.
	// They can be used to initialize request context, set user data, etc.
	Middlewares []func(dicore.Scope, *http.Request) error
}

// Option configures the scope middleware.
type Option func(*Config)

// WithLogger sets the logger used by the default handlers.
func WithLogger(logger *zap.Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithErrorHandler sets the error handler for scope creation failures.
func WithErrorHandler(h func(http.ResponseWriter, *http.Request, error)) Option {
	return func(c *Config) {
		c.ErrorHandler = h
	}
}

// WithCloseErrorHandler sets the error handler for scope close failures.
func WithCloseErrorHandler(h func(error)) Option {
	return func(c *Config) {
		c.CloseErrorHandler = h
	}
}

// WithMiddleware adds a middleware function that runs after scope creation.
// Multiple middlewares are executed in the order they are added.
func WithMiddleware(mw func(dicore.Scope, *http.Request) error) Option {
	return func(c *Config) {
		c.Middlewares = append(c.Middlewares, mw)
	}
}

func newConfig(opts []Option) *Config {
	cfg := &Config{Logger: zap.NewNop()}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	logger := cfg.Logger
	if cfg.ErrorHandler == nil {
		cfg.ErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to create request scope", zap.String("path", r.URL.Path), zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
	if cfg.CloseErrorHandler == nil {
		cfg.CloseErrorHandler = func(err error) {
			logger.Error("failed to close request scope", zap.Error(err))
		}
	}

	return cfg
}

// ScopeMiddleware creates a Chi middleware that creates a request scope for
// each request. The scope is attached to the request context and can be
// retrieved using dicore.ScopeFromContext.
//
// The scope is closed when the request completes.
//
// Example:
//
//	r := chi.NewRouter()
//	r.Use(dicorechi.ScopeMiddleware(provider))
func ScopeMiddleware(provider dicore.Provider, opts ...Option) func(http.Handler) http.Handler {
	cfg := newConfig(opts)

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			scope, err := provider.CreateScope(r.Context())
			if err != nil {
				cfg.ErrorHandler(w, r, err)
				return
			}

			defer func() {
				if err := scope.Close(); err != nil {
					cfg.CloseErrorHandler(err)
				}
			}()

			r = r.WithContext(scope.Context())

			for _, mw := range cfg.Middlewares {
				if err := mw(scope, r); err != nil {
					cfg.ErrorHandler(w, r, err)
					return
				}
			}

			next.ServeHTTP(w, r)
		})
	}
}

// Use installs ScopeMiddleware on router.
func Use(router gochi.Router, provider dicore.Provider, opts ...Option) {
	router.Use(ScopeMiddleware(provider, opts...))
}

// HandlerConfig holds configuration for the Handle wrapper.
type HandlerConfig struct {
	// Logger receives errors reported by the default handlers.
	Logger *zap.Logger

	// PanicRecovery enables panic recovery in the handler.
	PanicRecovery bool

	// PanicHandler is called when a panic occurs (if PanicRecovery is true).
	PanicHandler func(http.ResponseWriter, *http.Request, any)

	// ScopeErrorHandler is called when scope retrieval fails.
	ScopeErrorHandler func(http.ResponseWriter, *http.Request, error)

	// ResolutionErrorHandler is called when service resolution fails.
	ResolutionErrorHandler func(http.ResponseWriter, *http.Request, error)
}

// HandlerOption configures the Handle wrapper.
type HandlerOption func(*HandlerConfig)

// WithHandlerLogger sets the logger used by the default handlers.
func WithHandlerLogger(logger *zap.Logger) HandlerOption {
	return func(c *HandlerConfig) {
		c.Logger = logger
	}
}

// WithPanicRecovery enables or disables panic recovery in the handler.
func WithPanicRecovery(enabled bool) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicRecovery = enabled
	}
}

// WithPanicHandler sets the handler for panics.
func WithPanicHandler(h func(http.ResponseWriter, *http.Request, any)) HandlerOption {
	return func(c *HandlerConfig) {
		c.PanicHandler = h
	}
}

// WithScopeErrorHandler sets the error handler for scope retrieval failures.
func WithScopeErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ScopeErrorHandler = h
	}
}

// WithResolutionErrorHandler sets the error handler for service resolution failures.
func WithResolutionErrorHandler(h func(http.ResponseWriter, *http.Request, error)) HandlerOption {
	return func(c *HandlerConfig) {
		c.ResolutionErrorHandler = h
	}
}

func newHandlerConfig(opts []HandlerOption) *HandlerConfig {
	cfg := &HandlerConfig{}
	for _, opt := range opts {
		opt(cfg)
	}

	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}

	logger := cfg.Logger
	if cfg.PanicHandler == nil {
		cfg.PanicHandler = func(w http.ResponseWriter, r *http.Request, v any) {
			logger.Error("panic in handler", zap.Any("panic", v), zap.String("path", r.URL.Path))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
	if cfg.ScopeErrorHandler == nil {
		cfg.ScopeErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to get scope from context", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}
	if cfg.ResolutionErrorHandler == nil {
		cfg.ResolutionErrorHandler = func(w http.ResponseWriter, r *http.Request, err error) {
			logger.Error("failed to resolve controller", zap.Error(err))
			http.Error(w, "Internal Server Error", http.StatusInternalServerError)
		}
	}

	return cfg
}

// Handle wraps a controller method for type-safe resolution from the request scope.
// The controller type T is resolved from the scope attached to the request context.
//
// The method signature should be: func(T, http.ResponseWriter, *http.Request)
//
// Example:
//
//	type UserController interface {
//	    GetByID(http.ResponseWriter, *http.Request)
//	}
//
//	r.Get("/users/{id}", dicorechi.Handle(UserController.GetByID))
func Handle[T any](method func(T, http.ResponseWriter, *http.Request), opts ...HandlerOption) http.HandlerFunc {
	cfg := newHandlerConfig(opts)

	return func(w http.ResponseWriter, r *http.Request) {
		if cfg.PanicRecovery {
			defer func() {
				if v := recover(); v != nil {
					cfg.PanicHandler(w, r, v)
				}
			}()
		}

		scope, err := dicore.ScopeFromContext(r.Context())
		if err != nil {
			cfg.ScopeErrorHandler(w, r, err)
			return
		}

		controller, err := dicore.Resolve[T](scope)
		if err != nil {
			cfg.ResolutionErrorHandler(w, r, err)
			return
		}

		method(controller, w, r)
	}
}
