package activity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/floats"
)

// CompositionTolerance bounds |Σx - 1| for a valid mole-fraction row.
const CompositionTolerance = 1e-6

// State is one mixture state: mole fractions per component and an absolute
// temperature in Kelvin.
type State struct {
	X []float64
	T float64
}

// NewBatch pairs mole-fraction rows with either one shared temperature or one
// temperature per row.
func NewBatch(x [][]float64, temperatures ...float64) ([]State, error) {
	switch len(temperatures) {
	case 1, len(x):
	default:
		return nil, fmt.Errorf("%d temperatures for %d rows: %w", len(temperatures), len(x), ErrShapeMismatch)
	}
	states := make([]State, len(x))
	for i, row := range x {
		t := temperatures[0]
		if len(temperatures) > 1 {
			t = temperatures[i]
		}
		states[i] = State{X: append([]float64(nil), row...), T: t}
	}
	return states, nil
}

func (m *Model) resolveStates(states []State) ([]State, error) {
	if len(states) == 0 {
		states = m.states
	}
	if len(states) == 0 {
		return nil, fmt.Errorf("no states to evaluate: %w", ErrInvalidComposition)
	}
	for i, st := range states {
		if err := m.checkState(i, st); err != nil {
			return nil, err
		}
	}
	return states, nil
}

func (m *Model) checkState(row int, st State) error {
	if len(st.X) != m.components {
		return fmt.Errorf("row %d: %d mole fractions for %d components: %w", row, len(st.X), m.components, ErrShapeMismatch)
	}
	if !positiveFinite(st.T) {
		return fmt.Errorf("row %d: temperature %g: %w", row, st.T, ErrInvalidTemperature)
	}
	for c, x := range st.X {
		if math.IsNaN(x) || math.IsInf(x, 0) {
			return fmt.Errorf("row %d component %d: mole fraction %g is not finite: %w", row, c, x, ErrInvalidComposition)
		}
		if x < 0 {
			return fmt.Errorf("row %d component %d: negative mole fraction %g: %w", row, c, x, ErrInvalidComposition)
		}
	}
	if sum := floats.Sum(st.X); math.Abs(sum-1) > CompositionTolerance {
		return fmt.Errorf("row %d: mole fractions sum to %g: %w", row, sum, ErrInvalidComposition)
	}
	return nil
}

func cloneStates(states []State) []State {
	if states == nil {
		return nil
	}
	out := make([]State, len(states))
	for i, st := range states {
		out[i] = State{X: append([]float64(nil), st.X...), T: st.T}
	}
	return out
}
