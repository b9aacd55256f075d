// Package metrics holds the Prometheus instruments for the RISC pipeline.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

type Metrics struct {
	TokensReceived       prometheus.Counter
	TokensVerified       prometheus.Counter
	VerificationFailures *prometheus.CounterVec
	EventOutcomes        *prometheus.CounterVec
	KeyCacheRefreshes    prometheus.Counter
	KeyFetchFailures     prometheus.Counter
}

// New registers all pipeline metrics on the default registry.
func New() *Metrics {
	return NewWith(prometheus.DefaultRegisterer)
}

// NewWith registers on an explicit registerer so tests can use a private
// registry without duplicate-registration panics.
func NewWith(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		TokensReceived: factory.NewCounter(prometheus.CounterOpts{
			Name: "riscguard_risc_tokens_received_total",
			Help: "Total number of security event tokens received on the webhook",
		}),
		TokensVerified: factory.NewCounter(prometheus.CounterOpts{
			Name: "riscguard_risc_tokens_verified_total",
			Help: "Total number of security event tokens that passed verification",
		}),
		VerificationFailures: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riscguard_risc_verification_failures_total",
			Help: "Total number of rejected tokens by failure reason",
		}, []string{"reason"}),
		EventOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "riscguard_risc_event_outcomes_total",
			Help: "Total number of processed security events by outcome action",
		}, []string{"action"}),
		KeyCacheRefreshes: factory.NewCounter(prometheus.CounterOpts{
			Name: "riscguard_risc_key_cache_refreshes_total",
			Help: "Total number of provider key set fetches",
		}),
		KeyFetchFailures: factory.NewCounter(prometheus.CounterOpts{
			Name: "riscguard_risc_key_fetch_failures_total",
			Help: "Total number of failed provider key set fetches",
		}),
	}
}

func (m *Metrics) IncrementTokensReceived() {
	m.TokensReceived.Inc()
}

func (m *Metrics) IncrementTokensVerified() {
	m.TokensVerified.Inc()
}

func (m *Metrics) IncrementVerificationFailure(reason string) {
	m.VerificationFailures.WithLabelValues(reason).Inc()
}

func (m *Metrics) IncrementEventOutcome(action string) {
	m.EventOutcomes.WithLabelValues(action).Inc()
}

func (m *Metrics) IncrementKeyCacheRefreshes() {
	m.KeyCacheRefreshes.Inc()
}

func (m *Metrics) IncrementKeyFetchFailures() {
	m.KeyFetchFailures.Inc()
}
