package paramtable

import (
	"bytes"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unifac/internal/activity"
	"unifac/internal/model"
)

func loadFixture(t *testing.T, name string) model.ParameterTable {
	t.Helper()
	table, err := LoadFile(filepath.Join("..", "..", "testdata", "fixtures", name))
	require.NoError(t, err)
	return table
}

func TestLoadBinaryTable(t *testing.T) {
	table := loadFixture(t, "binary.yaml")

	assert.Equal(t, "binary-reference", table.Name)
	assert.Equal(t, []string{"first", "second"}, ComponentNames(table))
	require.Len(t, table.Subgroups, 4)
	assert.Equal(t, 3.1680, table.Subgroups[3].R)

	p, err := Resolve(table)
	require.NoError(t, err)
	assert.Equal(t, [][]int{{2, 0}, {2, 0}, {1, 0}, {0, 1}}, p.Nu)
	assert.Equal(t, []float64{0.8480, 0.5400, 1.4200, 2.4840}, p.Q)
	assert.Equal(t, -146.3, p.A[3][2])
}

func TestMainGroupExpansionReproducesDenseTable(t *testing.T) {
	table := loadFixture(t, "ternary.yaml")

	a, err := InteractionMatrix(table)
	require.NoError(t, err)
	want := [][]float64{
		{0, 0, 232.1, 663.5, 1318},
		{0, 0, 232.1, 663.5, 1318},
		{114.8, 114.8, 0, 660.2, 200.8},
		{315.3, 315.3, -256.3, 0, -66.17},
		{300, 300, 72.87, -14.09, 0},
	}
	assert.Equal(t, want, a)
}

func TestBuildEvaluatesTernaryTable(t *testing.T) {
	table := loadFixture(t, "ternary.yaml")

	m, err := Build(table, activity.State{X: []float64{0.2, 0.3, 0.5}, T: 330})
	require.NoError(t, err)

	gamma, err := m.ActivityCoefficients()
	require.NoError(t, err)
	want := []float64{3.532715697018768, 0.9717117085861802, 1.3556042075073582}
	for c := range want {
		assert.InEpsilon(t, want[c], gamma.At(0, c), 1e-9)
	}
}

func TestBuildMatchesBinaryReference(t *testing.T) {
	table := loadFixture(t, "binary.yaml")

	m, err := Build(table)
	require.NoError(t, err)
	gamma, err := m.ActivityCoefficients(activity.State{X: []float64{0.2, 0.8}, T: 330})
	require.NoError(t, err)
	assert.InEpsilon(t, 1.6216396079, gamma.At(0, 0), 1e-9)
	assert.InEpsilon(t, 1.0323274969, gamma.At(0, 1), 1e-9)
}

func TestBuildSurfacesDegenerateComponent(t *testing.T) {
	table := loadFixture(t, "binary.yaml")
	table.Components[1].Groups = map[string]int{"G4": 0}

	_, err := Build(table)
	require.ErrorIs(t, err, activity.ErrDegenerateComponent)
}

func TestEncodeDecodeRoundTrip(t *testing.T) {
	table := loadFixture(t, "ternary.yaml")

	var buf bytes.Buffer
	require.NoError(t, Encode(&buf, table))
	assert.NotContains(t, buf.String(), "schema")

	decoded, err := Decode(&buf)
	require.NoError(t, err)
	assert.Equal(t, table, decoded)
}

func TestDecodeRejectsUnknownKeys(t *testing.T) {
	_, err := Decode(strings.NewReader("name: x\nbogus: 1\n"))
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	cases := map[string]struct {
		mutate func(*model.ParameterTable)
		want   error
	}{
		"missing name": {
			mutate: func(tb *model.ParameterTable) { tb.Name = "" },
			want:   ErrInvalidTable,
		},
		"no subgroups": {
			mutate: func(tb *model.ParameterTable) { tb.Subgroups = nil },
			want:   ErrInvalidTable,
		},
		"no components": {
			mutate: func(tb *model.ParameterTable) { tb.Components = nil },
			want:   ErrInvalidTable,
		},
		"duplicate subgroup": {
			mutate: func(tb *model.ParameterTable) { tb.Subgroups[1].Name = "CH3" },
			want:   ErrInvalidTable,
		},
		"negative Q": {
			mutate: func(tb *model.ParameterTable) { tb.Subgroups[0].Q = -1 },
			want:   ErrInvalidTable,
		},
		"duplicate component": {
			mutate: func(tb *model.ParameterTable) { tb.Components[1].Name = "first" },
			want:   ErrInvalidTable,
		},
		"unknown subgroup": {
			mutate: func(tb *model.ParameterTable) { tb.Components[0].Groups["OH"] = 1 },
			want:   ErrUnknownSubgroup,
		},
		"negative count": {
			mutate: func(tb *model.ParameterTable) { tb.Components[0].Groups["CH3"] = -2 },
			want:   ErrInvalidTable,
		},
		"both interaction forms": {
			mutate: func(tb *model.ParameterTable) {
				tb.MainGroupInteractions = []model.MainGroupInteraction{{From: 1, To: 2, A: 1}}
			},
			want: ErrInvalidTable,
		},
		"no interactions": {
			mutate: func(tb *model.ParameterTable) { tb.Interactions = nil },
			want:   ErrInvalidTable,
		},
		"ragged interactions": {
			mutate: func(tb *model.ParameterTable) { tb.Interactions[2] = []float64{0} },
			want:   ErrInvalidTable,
		},
	}
	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			table := loadFixture(t, "binary.yaml")
			tc.mutate(&table)
			require.ErrorIs(t, Validate(table), tc.want)
		})
	}
}

func TestExpandMissingInteraction(t *testing.T) {
	subgroups := []model.Subgroup{
		{Name: "CH3", MainGroup: 1},
		{Name: "OH", MainGroup: 5},
	}
	_, err := ExpandMainGroupInteractions(subgroups, []model.MainGroupInteraction{{From: 1, To: 5, A: 986.5}})
	require.ErrorIs(t, err, ErrMissingInteraction)
	assert.Contains(t, err.Error(), "OH (main group 5)")

	_, err = ExpandMainGroupInteractions(subgroups, []model.MainGroupInteraction{
		{From: 1, To: 5, A: 986.5},
		{From: 1, To: 5, A: 1},
	})
	require.ErrorIs(t, err, ErrInvalidTable)

	a, err := ExpandMainGroupInteractions(subgroups, []model.MainGroupInteraction{
		{From: 1, To: 5, A: 986.5},
		{From: 5, To: 1, A: 156.4},
	})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{0, 986.5}, {156.4, 0}}, a)
}
