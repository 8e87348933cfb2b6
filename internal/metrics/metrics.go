// Package metrics exposes the Prometheus collectors shared by the auth
// service and the gateway. A nil *Metrics is safe to call, so tests can pass
// nothing.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

type Metrics struct {
	registry *prometheus.Registry

	tokensIssued  *prometheus.CounterVec
	verifications *prometheus.CounterVec
	blacklistHits prometheus.Counter
	rotations     *prometheus.CounterVec
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		tokensIssued: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_tokens_issued_total",
			Help: "Token pairs issued, by grant (login, register, refresh).",
		}, []string{"grant"}),
		verifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_token_verifications_total",
			Help: "Access token verification outcomes.",
		}, []string{"outcome"}),
		blacklistHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "auth_blacklist_hits_total",
			Help: "Verifications rejected because the token was blacklisted.",
		}),
		rotations: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "auth_refresh_rotations_total",
			Help: "Refresh rotation outcomes (ok, expired, revoked, unknown).",
		}, []string{"outcome"}),
	}

	m.registry.MustRegister(
		m.tokensIssued,
		m.verifications,
		m.blacklistHits,
		m.rotations,
	)
	return m
}

func (m *Metrics) TokenIssued(grant string) {
	if m == nil {
		return
	}
	m.tokensIssued.WithLabelValues(grant).Inc()
}

func (m *Metrics) Verification(outcome string) {
	if m == nil {
		return
	}
	m.verifications.WithLabelValues(outcome).Inc()
}

func (m *Metrics) BlacklistHit() {
	if m == nil {
		return
	}
	m.blacklistHits.Inc()
}

func (m *Metrics) Rotation(outcome string) {
	if m == nil {
		return
	}
	m.rotations.WithLabelValues(outcome).Inc()
}

// Handler serves the /metrics endpoint for this registry.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return promhttp.Handler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
