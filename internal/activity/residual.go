package activity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// interaction holds the temperature-dependent matrices shared by every row
// evaluated at the same temperature.
type interaction struct {
	tau  *mat.Dense // subgroups x subgroups
	beta *mat.Dense // components x subgroups
}

// ResidualCoefficients returns γR, shaped rows x components. Without states the
// construction batch is evaluated.
func (m *Model) ResidualCoefficients(states ...State) (*mat.Dense, error) {
	rows, err := m.resolveStates(states)
	if err != nil {
		return nil, err
	}
	return m.residual(rows)
}

// Transmittance returns tau = exp(-a/T) for temperature t.
func (m *Model) Transmittance(t float64) (*mat.Dense, error) {
	if !positiveFinite(t) {
		return nil, fmt.Errorf("temperature %g: %w", t, ErrInvalidTemperature)
	}
	return m.transmittance(t), nil
}

func (m *Model) transmittance(t float64) *mat.Dense {
	var tau mat.Dense
	tau.Apply(func(_, _ int, v float64) float64 {
		return math.Exp(-v / t)
	}, m.a)
	return &tau
}

func (m *Model) interactionAt(t float64, cache map[float64]interaction) interaction {
	if it, ok := cache[t]; ok {
		return it
	}
	tau := m.transmittance(t)
	var beta mat.Dense
	beta.Mul(m.e.T(), tau)
	it := interaction{tau: tau, beta: &beta}
	cache[t] = it
	return it
}

func (m *Model) residual(states []State) (*mat.Dense, error) {
	out := mat.NewDense(len(states), m.components, nil)
	cache := make(map[float64]interaction)
	weights := mat.NewVecDense(m.components, nil)
	theta := mat.NewVecDense(m.subgroups, nil)
	sSum := mat.NewVecDense(m.subgroups, nil)

	for i, st := range states {
		it := m.interactionAt(st.T, cache)
		x := mat.NewVecDense(m.components, st.X)
		xq := mat.Dot(x, m.q)
		if !positiveFinite(xq) {
			return nil, fmt.Errorf("row %d: x·q=%g: %w", i, xq, ErrDegenerateInteraction)
		}

		// theta[s] = Σ_c x[c]·q[c]·e[s][c] / (x·q)
		weights.MulElemVec(x, m.q)
		theta.MulVec(m.e, weights)
		theta.ScaleVec(1/xq, theta)
		// s_sum[k] = Σ_s theta[s]·tau[s][k]
		sSum.MulVec(it.tau.T(), theta)

		for k := 0; k < m.subgroups; k++ {
			if s := sSum.AtVec(k); !positiveFinite(s) {
				return nil, fmt.Errorf("row %d subgroup %d: interaction sum %g: %w", i, k, s, ErrDegenerateInteraction)
			}
		}

		for c := 0; c < m.components; c++ {
			var acc float64
			for k := 0; k < m.subgroups; k++ {
				ratio := it.beta.At(c, k) / sSum.AtVec(k)
				if !positiveFinite(ratio) {
					return nil, fmt.Errorf("row %d component %d subgroup %d: beta/s_sum=%g: %w", i, c, k, ratio, ErrDegenerateInteraction)
				}
				acc += theta.AtVec(k)*ratio - math.Log(ratio)*m.e.At(k, c)
			}
			gamma := math.Exp(m.q.AtVec(c) * (1 - acc))
			if !positiveFinite(gamma) {
				return nil, fmt.Errorf("row %d component %d: residual coefficient %g: %w", i, c, gamma, ErrDegenerateInteraction)
			}
			out.Set(i, c, gamma)
		}
	}
	return out, nil
}
