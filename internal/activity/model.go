// Package activity computes liquid-phase activity coefficients with the UNIFAC
// group-contribution model.
//
// Interaction parameters are indexed per subgroup: rows and columns of A map one to
// one onto subgroups and are never collapsed by main group.
package activity

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
)

// Parameters is the problem definition consumed by New.
type Parameters struct {
	// R and Q are the van der Waals volume and surface parameters per subgroup.
	R []float64
	Q []float64
	// Nu[s][c] counts occurrences of subgroup s in component c.
	Nu [][]int
	// A[s1][s2] is the interaction energy between subgroups, in Kelvin.
	A [][]float64
	// States is an optional default batch used when evaluation is called without states.
	States []State
}

// Model is an immutable UNIFAC evaluator for a fixed subgroup catalog and component
// structure. It is safe for concurrent use.
type Model struct {
	subgroups  int
	components int

	a *mat.Dense

	r *mat.VecDense
	q *mat.VecDense
	e *mat.Dense

	states []State
}

// New validates p and derives the per-component aggregates r, q and the area
// fractions e.
func New(p Parameters) (*Model, error) {
	subgroups, components, err := checkShapes(p)
	if err != nil {
		return nil, err
	}

	bigR := mat.NewVecDense(subgroups, append([]float64(nil), p.R...))
	bigQ := mat.NewVecDense(subgroups, append([]float64(nil), p.Q...))
	nu := mat.NewDense(subgroups, components, nil)
	for s, row := range p.Nu {
		for c, count := range row {
			nu.Set(s, c, float64(count))
		}
	}
	a := mat.NewDense(subgroups, subgroups, nil)
	for s, row := range p.A {
		a.SetRow(s, row)
	}

	r := mat.NewVecDense(components, nil)
	r.MulVec(nu.T(), bigR)
	q := mat.NewVecDense(components, nil)
	q.MulVec(nu.T(), bigQ)

	for c := 0; c < components; c++ {
		if mat.Sum(nu.ColView(c)) == 0 {
			return nil, fmt.Errorf("component %d has no subgroup occurrences: %w", c, ErrDegenerateComponent)
		}
		if r.AtVec(c) <= 0 || q.AtVec(c) <= 0 {
			return nil, fmt.Errorf("component %d: r=%g q=%g: %w", c, r.AtVec(c), q.AtVec(c), ErrDegenerateComponent)
		}
	}

	e := mat.NewDense(subgroups, components, nil)
	e.Apply(func(s, c int, v float64) float64 {
		return v * bigQ.AtVec(s) / q.AtVec(c)
	}, nu)

	m := &Model{
		subgroups:  subgroups,
		components: components,
		a:          a,
		r:          r,
		q:          q,
		e:          e,
	}
	for i, st := range p.States {
		if err := m.checkState(i, st); err != nil {
			return nil, err
		}
	}
	m.states = cloneStates(p.States)
	return m, nil
}

func checkShapes(p Parameters) (int, int, error) {
	subgroups := len(p.R)
	if subgroups == 0 {
		return 0, 0, fmt.Errorf("empty subgroup catalog: %w", ErrShapeMismatch)
	}
	if len(p.Q) != subgroups {
		return 0, 0, fmt.Errorf("len(Q)=%d, len(R)=%d: %w", len(p.Q), subgroups, ErrShapeMismatch)
	}
	if len(p.Nu) != subgroups {
		return 0, 0, fmt.Errorf("nu has %d rows for %d subgroups: %w", len(p.Nu), subgroups, ErrShapeMismatch)
	}
	components := len(p.Nu[0])
	if components == 0 {
		return 0, 0, fmt.Errorf("nu has no component columns: %w", ErrShapeMismatch)
	}
	for s := 0; s < subgroups; s++ {
		if !nonNegativeFinite(p.R[s]) || !nonNegativeFinite(p.Q[s]) {
			return 0, 0, fmt.Errorf("subgroup %d: R=%g Q=%g: %w", s, p.R[s], p.Q[s], ErrShapeMismatch)
		}
		if len(p.Nu[s]) != components {
			return 0, 0, fmt.Errorf("nu row %d has %d columns, want %d: %w", s, len(p.Nu[s]), components, ErrShapeMismatch)
		}
		for c, count := range p.Nu[s] {
			if count < 0 {
				return 0, 0, fmt.Errorf("nu[%d][%d]=%d is negative: %w", s, c, count, ErrShapeMismatch)
			}
		}
	}
	if len(p.A) != subgroups {
		return 0, 0, fmt.Errorf("interaction table has %d rows for %d subgroups: %w", len(p.A), subgroups, ErrShapeMismatch)
	}
	for s, row := range p.A {
		if len(row) != subgroups {
			return 0, 0, fmt.Errorf("interaction row %d has %d columns, want %d: %w", s, len(row), subgroups, ErrShapeMismatch)
		}
		for n, v := range row {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				return 0, 0, fmt.Errorf("a[%d][%d]=%g is not finite: %w", s, n, v, ErrShapeMismatch)
			}
		}
	}
	return subgroups, components, nil
}

// Components returns the number of components.
func (m *Model) Components() int { return m.components }

// Subgroups returns the number of subgroups.
func (m *Model) Subgroups() int { return m.subgroups }

// VolumeParameters returns r, the molecular volume parameter per component.
func (m *Model) VolumeParameters() []float64 {
	return append([]float64(nil), m.r.RawVector().Data...)
}

// SurfaceParameters returns q, the molecular surface parameter per component.
func (m *Model) SurfaceParameters() []float64 {
	return append([]float64(nil), m.q.RawVector().Data...)
}

// AreaFractions returns a copy of e, shaped subgroups x components.
func (m *Model) AreaFractions() *mat.Dense {
	return mat.DenseCopyOf(m.e)
}

// States returns a copy of the default batch supplied at construction.
func (m *Model) States() []State {
	return cloneStates(m.states)
}

func nonNegativeFinite(v float64) bool {
	return v >= 0 && !math.IsInf(v, 1)
}

func positiveFinite(v float64) bool {
	return v > 0 && !math.IsInf(v, 1)
}
