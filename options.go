package dicore

import (
	"github.com/junioryono/dicore/internal/lifetime"
	"github.com/prometheus/client_golang/prometheus"
	"go.uber.org/zap"
)

// Hooks observe resolutions, constructions and scope lifecycles.
// Nil fields are skipped.
type Hooks = lifetime.Hooks

// DefaultMetricsNamespace prefixes every metric name.
const DefaultMetricsNamespace = "dicore"

// ProviderOptions configures how a provider is built.
type ProviderOptions struct {
	// ID identifies the provider. A UUID is generated when empty.
	ID ProviderID

	// LifetimePolicy decides whether a singleton depending on a scoped
	// service fails the build (PolicyStrict, the default) or only warns.
	LifetimePolicy LifetimePolicy

	// Logger receives build warnings and disposal failures.
	// Defaults to zap.NewNop().
	Logger *zap.Logger

	// Registerer enables Prometheus metrics when set.
	Registerer prometheus.Registerer

	// MetricsNamespace overrides DefaultMetricsNamespace.
	MetricsNamespace string

	// Hooks are called in addition to the built-in metrics hooks.
	Hooks Hooks
}

func (o *ProviderOptions) logger() *zap.Logger {
	if o == nil || o.Logger == nil {
		return zap.NewNop()
	}
	return o.Logger
}

func (o *ProviderOptions) namespace() string {
	if o == nil || o.MetricsNamespace == "" {
		return DefaultMetricsNamespace
	}
	return o.MetricsNamespace
}
