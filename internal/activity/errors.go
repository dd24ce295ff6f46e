package activity

import "errors"

var (
	// ErrShapeMismatch reports inconsistent dimensions among R, Q, nu, a or a state row.
	ErrShapeMismatch = errors.New("activity: shape mismatch")

	// ErrDegenerateComponent reports a component with zero total volume or area.
	ErrDegenerateComponent = errors.New("activity: degenerate component")

	// ErrInvalidComposition reports a negative mole fraction, a row that does not sum
	// to one within CompositionTolerance, or an empty batch.
	ErrInvalidComposition = errors.New("activity: invalid composition")

	// ErrDegenerateInteraction reports a zero or non-finite denominator in the
	// residual-term aggregation.
	ErrDegenerateInteraction = errors.New("activity: degenerate interaction")

	// ErrInvalidTemperature reports a non-positive or non-finite temperature.
	ErrInvalidTemperature = errors.New("activity: invalid temperature")
)
