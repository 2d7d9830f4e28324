package storage

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/scenario"
)

func newTestStore(t *testing.T) *ScenarioStore {
	t.Helper()
	s, err := NewScenarioStore(filepath.Join(t.TempDir(), "scenarios.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	return s
}

func snapshot(t *testing.T, name string, at time.Time, diet map[string]float64) scenario.Snapshot {
	t.Helper()
	s, err := scenario.NewSnapshot(name, v1alpha1.FormulationRequest{
		Ingredients: []v1alpha1.Ingredient{
			{Name: "Corn", Price: 0.2, Nutrients: map[string]float64{"protein": 8}},
			{Name: "Soy meal", Price: 0.5, Nutrients: map[string]float64{"protein": 45}},
		},
		Requirements: []v1alpha1.NutrientRequirement{{Name: "protein", Unit: "%"}},
	}, &v1alpha1.FormulationResult{
		Success:   true,
		Status:    v1alpha1.StatusOptimal,
		Diet:      diet,
		TotalCost: 29,
		BatchSize: 100,
	}, at)
	require.NoError(t, err)
	return s
}

func TestScenarioStore_SaveAndGet(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	at := time.Date(2025, 3, 1, 8, 0, 0, 0, time.UTC)
	snap := snapshot(t, "baseline", at, map[string]float64{"Corn": 70, "Soy meal": 30})

	require.NoError(t, store.Save(ctx, snap))

	byID, err := store.Get(ctx, snap.ID)
	require.NoError(t, err)
	assert.Equal(t, snap, byID)

	byName, err := store.Get(ctx, "baseline")
	require.NoError(t, err)
	assert.Equal(t, snap.ID, byName.ID)

	_, err = store.Get(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestScenarioStore_SaveReplaces(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	snap := snapshot(t, "baseline", time.Now(), map[string]float64{"Corn": 70, "Soy meal": 30})
	require.NoError(t, store.Save(ctx, snap))

	snap.Diet = map[string]float64{"Corn": 100}
	snap.TotalCost = 20
	require.NoError(t, store.Save(ctx, snap))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, 1, list[0].Ingredients)
	assert.Equal(t, 20.0, list[0].TotalCost)
}

func TestScenarioStore_ListAndDelete(t *testing.T) {
	ctx := context.Background()
	store := newTestStore(t)
	first := snapshot(t, "first", time.Date(2025, 1, 1, 0, 0, 0, 0, time.UTC), map[string]float64{"Corn": 100})
	second := snapshot(t, "second", time.Date(2025, 2, 1, 0, 0, 0, 0, time.UTC), map[string]float64{"Corn": 60, "Soy meal": 40})
	require.NoError(t, store.Save(ctx, second))
	require.NoError(t, store.Save(ctx, first))

	list, err := store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 2)
	assert.Equal(t, "first", list[0].Name)
	assert.Equal(t, "second", list[1].Name)
	assert.Equal(t, 2, list[1].Ingredients)
	assert.Equal(t, v1alpha1.StatusOptimal, list[1].Status)
	assert.True(t, list[1].Success)

	require.NoError(t, store.Delete(ctx, first.ID))
	assert.ErrorIs(t, store.Delete(ctx, first.ID), ErrNotFound)

	list, err = store.List(ctx)
	require.NoError(t, err)
	require.Len(t, list, 1)
	assert.Equal(t, second.ID, list[0].ID)
}
