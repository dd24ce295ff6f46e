package activity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// halfCoordination is z/2 for the lattice coordination number z = 10.
const halfCoordination = 5.0

// CombinatorialCoefficients returns γC, shaped rows x components. Without states
// the construction batch is evaluated.
func (m *Model) CombinatorialCoefficients(states ...State) (*mat.Dense, error) {
	rows, err := m.resolveStates(states)
	if err != nil {
		return nil, err
	}
	return m.combinatorial(rows)
}

func (m *Model) combinatorial(states []State) (*mat.Dense, error) {
	out := mat.NewDense(len(states), m.components, nil)
	j := mat.NewVecDense(m.components, nil)
	l := mat.NewVecDense(m.components, nil)

	for i, st := range states {
		x := mat.NewVecDense(m.components, st.X)
		xr := mat.Dot(x, m.r)
		xq := mat.Dot(x, m.q)
		if !positiveFinite(xr) || !positiveFinite(xq) {
			return nil, fmt.Errorf("row %d: x·r=%g x·q=%g: %w", i, xr, xq, ErrInvalidComposition)
		}
		j.ScaleVec(1/xr, m.r)
		l.ScaleVec(1/xq, m.q)

		for c := 0; c < m.components; c++ {
			jc := j.AtVec(c)
			ratio := jc / l.AtVec(c)
			lnGamma := 1 - jc + math.Log(jc) - halfCoordination*m.q.AtVec(c)*(1-ratio+math.Log(ratio))
			gamma := math.Exp(lnGamma)
			if !positiveFinite(gamma) {
				return nil, fmt.Errorf("row %d component %d: combinatorial coefficient %g: %w", i, c, gamma, ErrInvalidComposition)
			}
			out.Set(i, c, gamma)
		}
	}
	return out, nil
}
