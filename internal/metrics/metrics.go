package metrics

import (
	"errors"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"unifac/internal/activity"
)

var (
	EvaluationsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unifac_evaluations_total",
			Help: "Total number of activity-coefficient evaluations",
		},
		[]string{"status"},
	)

	EvaluationRows = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "unifac_evaluation_rows_total",
			Help: "Total number of mixture states evaluated",
		},
	)

	EvaluationDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "unifac_evaluation_duration_seconds",
			Help:    "Evaluation duration in seconds",
			Buckets: []float64{0.00001, 0.0001, 0.001, 0.01, 0.1, 1},
		},
	)

	EvaluationErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "unifac_evaluation_errors_total",
			Help: "Failed evaluations by error kind",
		},
		[]string{"kind"},
	)
)

// ObserveEvaluation records one evaluation of rows states.
func ObserveEvaluation(rows int, elapsed time.Duration, err error) {
	EvaluationDuration.Observe(elapsed.Seconds())
	if err != nil {
		EvaluationsTotal.WithLabelValues("error").Inc()
		EvaluationErrors.WithLabelValues(ErrorKind(err)).Inc()
		return
	}
	EvaluationsTotal.WithLabelValues("ok").Inc()
	EvaluationRows.Add(float64(rows))
}

// ErrorKind maps an evaluation error onto a bounded label value.
func ErrorKind(err error) string {
	switch {
	case errors.Is(err, activity.ErrShapeMismatch):
		return "shape_mismatch"
	case errors.Is(err, activity.ErrDegenerateComponent):
		return "degenerate_component"
	case errors.Is(err, activity.ErrInvalidComposition):
		return "invalid_composition"
	case errors.Is(err, activity.ErrDegenerateInteraction):
		return "degenerate_interaction"
	case errors.Is(err, activity.ErrInvalidTemperature):
		return "invalid_temperature"
	default:
		return "other"
	}
}
