package metrics

import (
	"time"

	"github.com/povarna/generative-ai-agents/uni-guard/internal/models"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "uni_guard"

// Recorder exports pipeline metrics to prometheus. Labels are reason codes
// and dispositions only.
type Recorder struct {
	responses     *prometheus.CounterVec
	reasons       *prometheus.CounterVec
	stageDuration *prometheus.HistogramVec
	duration      prometheus.Histogram
}

// NewRecorder registers the pipeline metrics with reg.
func NewRecorder(reg prometheus.Registerer) *Recorder {
	factory := promauto.With(reg)

	return &Recorder{
		// Labels: disposition (allowed, redacted, blocked, unavailable)
		responses: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "responses_total",
			Help:      "Final responses by disposition",
		}, []string{"disposition"}),

		// Labels: reason (reason code)
		reasons: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "reasons_total",
			Help:      "Reason codes attached to final responses",
		}, []string{"reason"}),

		// Labels: stage (input_guardrail, retrieval, generation, output_guardrail)
		stageDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "stage_duration_seconds",
			Help:      "Duration of completed pipeline stages",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30},
		}, []string{"stage"}),

		duration: factory.NewHistogram(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "pipeline",
			Name:      "request_duration_seconds",
			Help:      "End-to-end request duration",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		}),
	}
}

func (r *Recorder) ObserveStage(stage string, duration time.Duration) {
	r.stageDuration.WithLabelValues(stage).Observe(duration.Seconds())
}

func (r *Recorder) ObserveResponse(response models.FinalResponse) {
	r.responses.WithLabelValues(string(response.Disposition)).Inc()
	for _, reason := range response.Reasons {
		r.reasons.WithLabelValues(string(reason)).Inc()
	}
	r.duration.Observe(response.Duration.Seconds())
}
