package handlers

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
)

// AuthMetrics counts login outcomes by kind.
type AuthMetrics struct {
	Outcomes *prometheus.CounterVec
}

// NewAuthMetrics constructs the login outcome counter and registers it with
// the provided registerer.
func NewAuthMetrics(reg prometheus.Registerer) (*AuthMetrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}

	outcomes := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "leanx",
		Subsystem: "auth",
		Name:      "login_outcomes_total",
		Help:      "Total number of login attempts partitioned by outcome.",
	}, []string{"outcome"})

	if err := reg.Register(outcomes); err != nil {
		if already, ok := err.(prometheus.AlreadyRegisteredError); ok {
			if existing, ok := already.ExistingCollector.(*prometheus.CounterVec); ok {
				outcomes = existing
			} else {
				return nil, fmt.Errorf("existing outcomes collector has unexpected type %T", already.ExistingCollector)
			}
		} else {
			return nil, fmt.Errorf("register outcomes collector: %w", err)
		}
	}

	return &AuthMetrics{Outcomes: outcomes}, nil
}

// Observe records one login attempt with the given outcome label.
func (m *AuthMetrics) Observe(outcome string) {
	if m == nil || m.Outcomes == nil {
		return
	}
	m.Outcomes.WithLabelValues(outcome).Inc()
}
