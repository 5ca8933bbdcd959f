package telemetry

import (
	"context"
	"log/slog"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"github.com/ahmednader515/alkian/internal/domain"
	"github.com/ahmednader515/alkian/internal/event"
)

func TestMetrics_Subscribe(t *testing.T) {
	eb := event.NewBus()
	m := NewMetrics(prometheus.NewRegistry())
	m.Subscribe(eb)

	ctx := context.Background()
	eb.Publish(ctx, domain.EventAttemptSubmitted{CourseOwnerID: "teacher-1"})
	// Course quiz whose owner could not be resolved.
	eb.Publish(ctx, domain.EventAttemptSubmitted{})
	eb.Publish(ctx, domain.EventAttemptSubmitted{Standalone: true})
	eb.Publish(ctx, domain.EventAttemptRejected{Reason: "ATTEMPTS_EXHAUSTED"})
	eb.Publish(ctx, domain.EventProgressUpdated{Progress: domain.Progress{IsCompleted: true}, Source: domain.SourcePlayback})
	eb.Stop()

	assert.Equal(t, 2.0, testutil.ToFloat64(m.Submissions.WithLabelValues("course")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Submissions.WithLabelValues("standalone")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Rejections.WithLabelValues("ATTEMPTS_EXHAUSTED")))
	assert.Equal(t, 1.0, testutil.ToFloat64(m.Progress.WithLabelValues("playback", "true")))
}

func TestParseLevel(t *testing.T) {
	tests := map[string]slog.Level{
		"debug": slog.LevelDebug,
		"WARN":  slog.LevelWarn,
		"":      slog.LevelInfo,
		"loud":  slog.LevelInfo,
	}

	for in, want := range tests {
		t.Run(in, func(t *testing.T) {
			assert.Equal(t, want, parseLevel(in))
		})
	}
}
