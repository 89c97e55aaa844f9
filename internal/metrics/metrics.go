// Package metrics exposes Prometheus counters for authentication activity.
// A private registry is used instead of the global default so tests can
// build independent instances.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const namespace = "studentrecords"

// Login outcomes.
const (
	LoginSuccess         = "success"
	LoginUserNotFound    = "user_not_found"
	LoginInvalidPassword = "invalid_password"
	LoginError           = "error"
)

// Registration outcomes.
const (
	RegisterSuccess    = "success"
	RegisterValidation = "validation"
	RegisterConflict   = "conflict"
	RegisterError      = "error"
)

// Metrics holds the collectors. All methods are safe on a nil receiver so
// services can run without metrics wired (tests, CLI commands).
type Metrics struct {
	registry      *prometheus.Registry
	loginAttempts *prometheus.CounterVec
	registrations *prometheus.CounterVec
	logouts       prometheus.Counter
}

// New creates a registry with the auth counters plus Go runtime and
// process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()

	m := &Metrics{
		registry: reg,
		loginAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "login_attempts_total",
			Help:      "Login attempts by outcome.",
		}, []string{"outcome"}),
		registrations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "registrations_total",
			Help:      "Registration attempts by outcome.",
		}, []string{"outcome"}),
		logouts: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "logouts_total",
			Help:      "Sessions destroyed by logout.",
		}),
	}

	reg.MustRegister(
		m.loginAttempts,
		m.registrations,
		m.logouts,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)

	return m
}

// ObserveLogin counts one login attempt.
func (m *Metrics) ObserveLogin(outcome string) {
	if m == nil {
		return
	}
	m.loginAttempts.WithLabelValues(outcome).Inc()
}

// ObserveRegistration counts one registration attempt.
func (m *Metrics) ObserveRegistration(outcome string) {
	if m == nil {
		return
	}
	m.registrations.WithLabelValues(outcome).Inc()
}

// ObserveLogout counts one destroyed session.
func (m *Metrics) ObserveLogout() {
	if m == nil {
		return
	}
	m.logouts.Inc()
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}

// LoginAttemptsCounter returns the counter for one login outcome.
func (m *Metrics) LoginAttemptsCounter(outcome string) prometheus.Counter {
	return m.loginAttempts.WithLabelValues(outcome)
}

// RegistrationsCounter returns the counter for one registration outcome.
func (m *Metrics) RegistrationsCounter(outcome string) prometheus.Counter {
	return m.registrations.WithLabelValues(outcome)
}

// LogoutsCounter returns the logout counter.
func (m *Metrics) LogoutsCounter() prometheus.Counter {
	return m.logouts
}
