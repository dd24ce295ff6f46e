package metrics

import (
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"

	"unifac/internal/activity"
)

func TestErrorKind(t *testing.T) {
	cases := map[error]string{
		fmt.Errorf("row 1: %w", activity.ErrInvalidComposition): "invalid_composition",
		activity.ErrShapeMismatch:                               "shape_mismatch",
		activity.ErrDegenerateComponent:                         "degenerate_component",
		activity.ErrDegenerateInteraction:                       "degenerate_interaction",
		activity.ErrInvalidTemperature:                          "invalid_temperature",
		errors.New("boom"):                                      "other",
	}
	for err, want := range cases {
		assert.Equal(t, want, ErrorKind(err), err.Error())
	}
}

func TestObserveEvaluation(t *testing.T) {
	okBefore := testutil.ToFloat64(EvaluationsTotal.WithLabelValues("ok"))
	rowsBefore := testutil.ToFloat64(EvaluationRows)
	errBefore := testutil.ToFloat64(EvaluationErrors.WithLabelValues("invalid_temperature"))

	ObserveEvaluation(3, time.Millisecond, nil)
	ObserveEvaluation(2, time.Millisecond, activity.ErrInvalidTemperature)

	assert.Equal(t, okBefore+1, testutil.ToFloat64(EvaluationsTotal.WithLabelValues("ok")))
	assert.Equal(t, rowsBefore+3, testutil.ToFloat64(EvaluationRows))
	assert.Equal(t, errBefore+1, testutil.ToFloat64(EvaluationErrors.WithLabelValues("invalid_temperature")))
}
