package storage

import (
	"context"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"unifac/internal/model"
)

func sampleTable(name string) model.ParameterTable {
	return model.ParameterTable{
		VersionedRecord: Versioned(),
		Name:            name,
		Subgroups: []model.Subgroup{
			{Name: "CH3", MainGroup: 1, R: 0.9011, Q: 0.848},
			{Name: "H2O", MainGroup: 7, R: 0.92, Q: 1.4},
		},
		Components: []model.Component{
			{Name: "a", Groups: map[string]int{"CH3": 2}},
			{Name: "b", Groups: map[string]int{"H2O": 1}},
		},
		Interactions: [][]float64{{0, 1318}, {300, 0}},
	}
}

func TestMemoryStoreTableRoundTrip(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	input := sampleTable("water-ethane")
	require.NoError(t, store.SaveTable(ctx, input))
	input.Components[0].Groups["CH3"] = 9

	output, ok, err := store.GetTable(ctx, "water-ethane")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 2, output.Components[0].Groups["CH3"], "stored table aliases caller data")

	require.NoError(t, store.SaveTable(ctx, sampleTable("another")))
	names, err := store.ListTables(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"another", "water-ethane"}, names)

	require.NoError(t, store.DeleteTable(ctx, "another"))
	_, ok, err = store.GetTable(ctx, "another")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreEvaluationsNewestFirst(t *testing.T) {
	ctx := context.Background()
	store := NewMemoryStore()
	require.NoError(t, store.Init(ctx))

	for i := 0; i < 3; i++ {
		record := model.EvaluationRecord{
			VersionedRecord: Versioned(),
			ID:              fmt.Sprintf("run-%d", i),
			TableName:       "water-ethane",
			Gamma:           [][]float64{{float64(i)}},
		}
		require.NoError(t, store.SaveEvaluation(ctx, record), "save evaluation %d", i)
	}

	records, err := store.ListEvaluations(ctx, 2)
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "run-2", records[0].ID)
	assert.Equal(t, "run-1", records[1].ID)

	all, err := store.ListEvaluations(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, all, 3)

	record, ok, err := store.GetEvaluation(ctx, "run-0")
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0.0, record.Gamma[0][0])

	_, ok, err = store.GetEvaluation(ctx, "missing")
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestMemoryStoreRequiresInit(t *testing.T) {
	store := NewMemoryStore()
	require.Error(t, store.SaveTable(context.Background(), sampleTable("x")))
}
