package activity

import "gonum.org/v1/gonum/mat"

// Result carries the three coefficient matrices of one evaluation, each shaped
// rows x components.
type Result struct {
	Combinatorial *mat.Dense
	Residual      *mat.Dense
	Activity      *mat.Dense
}

// ActivityCoefficients returns γ = γC ∘ γR. Without states the construction batch
// is evaluated.
func (m *Model) ActivityCoefficients(states ...State) (*mat.Dense, error) {
	res, err := m.Evaluate(states...)
	if err != nil {
		return nil, err
	}
	return res.Activity, nil
}

// Evaluate validates the batch once and returns γC, γR and γ.
func (m *Model) Evaluate(states ...State) (Result, error) {
	rows, err := m.resolveStates(states)
	if err != nil {
		return Result{}, err
	}
	gc, err := m.combinatorial(rows)
	if err != nil {
		return Result{}, err
	}
	gr, err := m.residual(rows)
	if err != nil {
		return Result{}, err
	}
	var gamma mat.Dense
	gamma.MulElem(gc, gr)
	return Result{Combinatorial: gc, Residual: gr, Activity: &gamma}, nil
}

// Rows copies a dense matrix into row slices.
func Rows(d *mat.Dense) [][]float64 {
	if d == nil {
		return nil
	}
	r, c := d.Dims()
	out := make([][]float64, r)
	for i := range out {
		out[i] = make([]float64, c)
		mat.Row(out[i], i, d)
	}
	return out
}
