package activity

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewDerivesAggregates(t *testing.T) {
	m, err := New(binaryParameters())
	require.NoError(t, err)

	assert.Equal(t, 2, m.Components())
	assert.Equal(t, 4, m.Subgroups())

	r := m.VolumeParameters()
	q := m.SurfaceParameters()
	assert.InDelta(t, 2*0.9011+2*0.6744+1.6764, r[0], 1e-12)
	assert.InDelta(t, 3.1680, r[1], 1e-12)
	assert.InDelta(t, 2*0.8480+2*0.5400+1.4200, q[0], 1e-12)
	assert.InDelta(t, 2.4840, q[1], 1e-12)

	e := m.AreaFractions()
	rows, cols := e.Dims()
	require.Equal(t, 4, rows)
	require.Equal(t, 2, cols)
	for c := 0; c < cols; c++ {
		sum := 0.0
		for s := 0; s < rows; s++ {
			sum += e.At(s, c)
		}
		assert.InDelta(t, 1.0, sum, 1e-12, "area fractions of component %d", c)
	}
	assert.InDelta(t, 2*0.8480/q[0], e.At(0, 0), 1e-12)
	assert.Zero(t, e.At(3, 0))
}

func TestNewAccessorsReturnCopies(t *testing.T) {
	m, err := New(binaryParameters())
	require.NoError(t, err)

	m.VolumeParameters()[0] = -1
	m.AreaFractions().Set(0, 0, -1)
	assert.Greater(t, m.VolumeParameters()[0], 0.0)
	assert.Greater(t, m.AreaFractions().At(0, 0), 0.0)
}

func TestNewDoesNotAliasInputs(t *testing.T) {
	p := binaryParameters()
	m, err := New(p)
	require.NoError(t, err)
	before, err := m.ActivityCoefficients(State{X: []float64{0.2, 0.8}, T: 330})
	require.NoError(t, err)

	p.R[0] = 100
	p.Nu[0][0] = 9
	p.A[0][2] = 0

	after, err := m.ActivityCoefficients(State{X: []float64{0.2, 0.8}, T: 330})
	require.NoError(t, err)
	assert.Equal(t, before.RawMatrix().Data, after.RawMatrix().Data)
}

func TestNewRejectsShapeMismatch(t *testing.T) {
	cases := map[string]func(p *Parameters){
		"empty catalog":  func(p *Parameters) { p.R, p.Q, p.Nu, p.A = nil, nil, nil, nil },
		"short Q":        func(p *Parameters) { p.Q = p.Q[:3] },
		"short nu":       func(p *Parameters) { p.Nu = p.Nu[:3] },
		"ragged nu":      func(p *Parameters) { p.Nu[2] = []int{1} },
		"no components":  func(p *Parameters) { p.Nu = [][]int{{}, {}, {}, {}} },
		"negative count": func(p *Parameters) { p.Nu[0][0] = -1 },
		"short a":        func(p *Parameters) { p.A = p.A[:2] },
		"ragged a":       func(p *Parameters) { p.A[1] = []float64{0, 0} },
		"non-finite a":   func(p *Parameters) { p.A[1][2] = math.Inf(1) },
		"negative R":     func(p *Parameters) { p.R[0] = -0.5 },
		"NaN Q":          func(p *Parameters) { p.Q[1] = math.NaN() },
		"state width":    func(p *Parameters) { p.States = []State{{X: []float64{1}, T: 300}} },
	}
	for name, mutate := range cases {
		t.Run(name, func(t *testing.T) {
			p := binaryParameters()
			mutate(&p)
			_, err := New(p)
			require.ErrorIs(t, err, ErrShapeMismatch)
		})
	}
}

func TestNewRejectsDegenerateComponent(t *testing.T) {
	p := binaryParameters()
	for s := range p.Nu {
		p.Nu[s][1] = 0
	}
	_, err := New(p)
	require.ErrorIs(t, err, ErrDegenerateComponent)
	assert.Contains(t, err.Error(), "component 1")
}

func TestNewRejectsZeroAreaComponent(t *testing.T) {
	p := binaryParameters()
	p.Q[3] = 0
	_, err := New(p)
	require.ErrorIs(t, err, ErrDegenerateComponent)
}

func TestNewValidatesDefaultStates(t *testing.T) {
	p := binaryParameters()
	p.States = []State{{X: []float64{-0.1, 1.1}, T: 330}}
	_, err := New(p)
	require.ErrorIs(t, err, ErrInvalidComposition)
}
