package dicore

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// metrics exports engine activity to Prometheus.
type metrics struct {
	resolutions         *prometheus.CounterVec
	constructions       *prometheus.CounterVec
	resolutionErrors    prometheus.Counter
	constructionSeconds prometheus.Histogram
	activeScopes        prometheus.Gauge
}

func newMetrics(namespace string, reg prometheus.Registerer) (*metrics, error) {
	m := &metrics{
		resolutions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolutions_total",
			Help:      "Number of successful service resolutions.",
		}, []string{"lifetime", "cached"}),
		constructions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "constructions_total",
			Help:      "Number of service instances constructed.",
		}, []string{"lifetime"}),
		resolutionErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "resolution_errors_total",
			Help:      "Number of failed top-level resolutions.",
		}),
		constructionSeconds: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "construction_seconds",
			Help:      "Time spent constructing service instances, dependencies included.",
			Buckets:   prometheus.DefBuckets,
		}),
		activeScopes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "active_scopes",
			Help:      "Number of open scopes, the root scope included.",
		}),
	}

	var err error
	m.resolutions = register(reg, m.resolutions, &err)
	m.constructions = register(reg, m.constructions, &err)
	m.resolutionErrors = register(reg, m.resolutionErrors, &err)
	m.constructionSeconds = register(reg, m.constructionSeconds, &err)
	m.activeScopes = register(reg, m.activeScopes, &err)
	if err != nil {
		return nil, err
	}

	return m, nil
}

// register adds c to reg, reusing an identical collector registered by an
// earlier provider.
func register[C prometheus.Collector](reg prometheus.Registerer, c C, errp *error) C {
	if *errp != nil {
		return c
	}

	if err := reg.Register(c); err != nil {
		var are prometheus.AlreadyRegisteredError
		if errors.As(err, &are) {
			if existing, ok := are.ExistingCollector.(C); ok {
				return existing
			}
		}
		*errp = err
	}

	return c
}

// hooks returns engine hooks recording into m, then calling next.
func (m *metrics) hooks(next Hooks) Hooks {
	return Hooks{
		OnResolved: func(t TypeRef, lt Lifetime, cached bool, d time.Duration) {
			m.resolutions.WithLabelValues(lt.String(), strconv.FormatBool(cached)).Inc()
			if next.OnResolved != nil {
				next.OnResolved(t, lt, cached, d)
			}
		},
		OnCreated: func(t TypeRef, lt Lifetime, d time.Duration) {
			m.constructions.WithLabelValues(lt.String()).Inc()
			m.constructionSeconds.Observe(d.Seconds())
			if next.OnCreated != nil {
				next.OnCreated(t, lt, d)
			}
		},
		OnError: func(t TypeRef, err error) {
			m.resolutionErrors.Inc()
			if next.OnError != nil {
				next.OnError(t, err)
			}
		},
		OnScopeCreated: func(id string) {
			m.activeScopes.Inc()
			if next.OnScopeCreated != nil {
				next.OnScopeCreated(id)
			}
		},
		OnScopeClosed: func(id string, err error) {
			m.activeScopes.Dec()
			if next.OnScopeClosed != nil {
				next.OnScopeClosed(id, err)
			}
		},
	}
}
