package observability

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds all Prometheus metrics for configuration resolution
type Metrics struct {
	// Resolution metrics
	ResolutionsTotal       *prometheus.CounterVec
	ValidationFailures     *prometheus.CounterVec
	PopulateErrorsTotal    *prometheus.CounterVec
	SecretResolutionsTotal *prometheus.CounterVec
	RulesReloadsTotal      *prometheus.CounterVec

	// Environment state
	ConfigValid *prometheus.GaugeVec

	registry *prometheus.Registry
}

// NewMetrics creates and registers all Prometheus metrics
func NewMetrics(registry *prometheus.Registry) *Metrics {
	m := &Metrics{
		ResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netra_config_resolutions_total",
				Help: "Total number of configuration resolutions",
			},
			[]string{"property", "status"},
		),
		ValidationFailures: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netra_config_validation_failures_total",
				Help: "Total number of configuration validation failures",
			},
			[]string{"property", "reason"},
		),
		PopulateErrorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netra_config_populate_errors_total",
				Help: "Errors swallowed during aggregate config population",
			},
			[]string{"component"},
		),
		SecretResolutionsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netra_config_secret_resolutions_total",
				Help: "Total number of JWT secret resolutions",
			},
			[]string{"source", "status"},
		),
		RulesReloadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "netra_config_rules_reloads_total",
				Help: "Total number of policy rules file reloads",
			},
			[]string{"status"},
		),
		ConfigValid: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "netra_config_valid",
				Help: "Whether the last validation of a property succeeded (1) or failed (0)",
			},
			[]string{"property"},
		),
		registry: registry,
	}

	registry.MustRegister(
		m.ResolutionsTotal,
		m.ValidationFailures,
		m.PopulateErrorsTotal,
		m.SecretResolutionsTotal,
		m.RulesReloadsTotal,
		m.ConfigValid,
	)

	return m
}

// RecordResolution records a resolution attempt outcome.
// Safe to call on a nil receiver so callers can skip metrics wiring.
func (m *Metrics) RecordResolution(property, status string) {
	if m == nil {
		return
	}
	m.ResolutionsTotal.WithLabelValues(property, status).Inc()
}

// RecordValidationFailure records a failed validation with its reason.
func (m *Metrics) RecordValidationFailure(property, reason string) {
	if m == nil {
		return
	}
	m.ValidationFailures.WithLabelValues(property, reason).Inc()
}

// RecordPopulateError records an error swallowed by aggregate population.
func (m *Metrics) RecordPopulateError(component string) {
	if m == nil {
		return
	}
	m.PopulateErrorsTotal.WithLabelValues(component).Inc()
}

// RecordSecretResolution records a JWT secret resolution outcome.
func (m *Metrics) RecordSecretResolution(source, status string) {
	if m == nil {
		return
	}
	m.SecretResolutionsTotal.WithLabelValues(source, status).Inc()
}

// RecordRulesReload records a policy rules reload outcome.
func (m *Metrics) RecordRulesReload(status string) {
	if m == nil {
		return
	}
	m.RulesReloadsTotal.WithLabelValues(status).Inc()
}

// SetConfigValid sets the validity gauge for a property.
func (m *Metrics) SetConfigValid(property string, valid bool) {
	if m == nil {
		return
	}
	value := 0.0
	if valid {
		value = 1.0
	}
	m.ConfigValid.WithLabelValues(property).Set(value)
}

// Handler returns an HTTP handler serving the metrics registry
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
