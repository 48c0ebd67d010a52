package gateway

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/anam145/go-credential-sdk/credential/verifier"
)

// Metrics counts gateway outcomes.
type Metrics struct {
	Verifications   *prometheus.CounterVec
	Issued          *prometheus.CounterVec
	SigningDuration prometheus.Histogram
}

// NewMetrics registers the gateway collectors with reg. A nil reg keeps
// the collectors unregistered.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		Verifications: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credential_verifications_total",
			Help: "Verifications by document kind and reason",
		}, []string{"kind", "reason"}),
		Issued: factory.NewCounterVec(prometheus.CounterOpts{
			Name: "credentials_issued_total",
			Help: "Credentials issued by credential type",
		}, []string{"type"}),
		SigningDuration: factory.NewHistogram(prometheus.HistogramOpts{
			Name:    "credential_signing_duration_seconds",
			Help:    "Duration of credential and presentation signing",
			Buckets: []float64{0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025, 0.05, 0.1},
		}),
	}
}

func (m *Metrics) observeVerification(res *verifier.Result) {
	m.Verifications.WithLabelValues(res.Kind.String(), string(res.Reason)).Inc()
}

func (m *Metrics) incIssued(credentialType string) {
	m.Issued.WithLabelValues(credentialType).Inc()
}

func (m *Metrics) observeSigning(start time.Time) {
	m.SigningDuration.Observe(time.Since(start).Seconds())
}
