package preview

import (
	"github.com/prometheus/client_golang/prometheus"

	"docvault/internal/format"
)

const (
	outcomeGenerated   = "generated"
	outcomeCached      = "cached"
	outcomeAbsent      = "absent"
	outcomeFailed      = "failed"
	outcomeTimeout     = "timeout"
	outcomeSkipped     = "skipped"
	outcomeUnsupported = "unsupported"
)

// Metrics counts extraction outcomes per strategy.
type Metrics struct {
	extractions *prometheus.CounterVec
}

// NewMetrics registers the preview collectors on reg.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	m := &Metrics{
		extractions: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "docvault_preview_extractions_total",
				Help: "Preview extractions by strategy and outcome.",
			},
			[]string{"strategy", "outcome"},
		),
	}
	if err := reg.Register(m.extractions); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observe(s format.Strategy, outcome string) {
	if m == nil {
		return
	}
	m.extractions.WithLabelValues(s.String(), outcome).Inc()
}
