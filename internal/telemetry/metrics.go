package telemetry

import (
	"context"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/event"
)

// Metrics counts engine outcomes from the event bus.
type Metrics struct {
	Submissions *prometheus.CounterVec
	Rejections  *prometheus.CounterVec
	Progress    *prometheus.CounterVec
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Submissions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alkian",
			Name:      "attempt_submissions_total",
			Help:      "Stored quiz attempts.",
		}, []string{"kind"}),
		Rejections: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alkian",
			Name:      "attempt_rejections_total",
			Help:      "Refused quiz submissions by reason.",
		}, []string{"reason"}),
		Progress: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "alkian",
			Name:      "progress_updates_total",
			Help:      "Chapter completion changes by source and state.",
		}, []string{"source", "completed"}),
	}

	reg.MustRegister(m.Submissions, m.Rejections, m.Progress)
	return m
}

// Subscribe feeds the counters from bus events.
func (m *Metrics) Subscribe(eb *event.Bus) {
	eb.Subscribe(domain.EventNameAttemptSubmitted, func(ctx context.Context, e event.Event) error {
		kind := "course"
		if e.(domain.EventAttemptSubmitted).Standalone {
			kind = "standalone"
		}
		m.Submissions.WithLabelValues(kind).Inc()
		return nil
	})

	eb.Subscribe(domain.EventNameAttemptRejected, func(ctx context.Context, e event.Event) error {
		m.Rejections.WithLabelValues(e.(domain.EventAttemptRejected).Reason).Inc()
		return nil
	})

	eb.Subscribe(domain.EventNameProgressUpdated, func(ctx context.Context, e event.Event) error {
		u := e.(domain.EventProgressUpdated)
		completed := "false"
		if u.Progress.IsCompleted {
			completed = "true"
		}
		m.Progress.WithLabelValues(string(u.Source), completed).Inc()
		return nil
	})
}
