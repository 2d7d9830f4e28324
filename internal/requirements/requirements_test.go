package requirements

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"k8s.io/utils/ptr"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
)

func TestRER(t *testing.T) {
	tests := []struct {
		name    string
		weight  float64
		formula RERFormula
		want    float64
		wantErr error
	}{
		{name: "auto uses linear inside range", weight: 12, formula: FormulaAuto, want: 430},
		{name: "empty formula means auto", weight: 10, want: 370},
		{name: "auto uses exponential above range", weight: 50, formula: FormulaAuto, want: 70 * math.Pow(50, 0.75)},
		{name: "range bounds are exclusive", weight: 2, formula: FormulaAuto, want: 70 * math.Pow(2, 0.75)},
		{name: "forced exponential", weight: 12, formula: FormulaExponential, want: 70 * math.Pow(12, 0.75)},
		{name: "forced linear", weight: 60, formula: FormulaLinear, want: 1870},
		{name: "zero weight", weight: 0, formula: FormulaAuto, wantErr: ErrInvalidWeight},
		{name: "NaN weight", weight: math.NaN(), formula: FormulaAuto, wantErr: ErrInvalidWeight},
		{name: "unknown formula", weight: 10, formula: "cubic", wantErr: ErrUnknownFormula},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := RER(tt.weight, tt.formula)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.InDelta(t, tt.want, got, 1e-9)
		})
	}
}

func TestMERFactor(t *testing.T) {
	tests := []struct {
		species   Species
		condition Condition
		want      float64
	}{
		{SpeciesDog, ConditionAdultIntact, 1.8},
		{SpeciesDog, ConditionAdultNeutered, 1.6},
		{SpeciesDog, ConditionObeseProne, 1.4},
		{SpeciesDog, ConditionPuppyUnder4M, 3.0},
		{SpeciesDog, ConditionPuppyOver4M, 2.0},
		{SpeciesCat, ConditionAdultIntact, 1.4},
		{SpeciesCat, ConditionAdultNeutered, 1.2},
		{SpeciesCat, ConditionObeseProne, 1.0},
		{SpeciesCat, ConditionKitten, 2.5},
	}
	for _, tt := range tests {
		t.Run(string(tt.species)+"/"+string(tt.condition), func(t *testing.T) {
			got, err := MERFactor(tt.species, tt.condition)
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}

	_, err := MERFactor(SpeciesCat, ConditionPuppyUnder4M)
	assert.ErrorIs(t, err, ErrUnknownCondition)
	_, err = MERFactor("horse", ConditionAdultIntact)
	assert.ErrorIs(t, err, ErrUnknownSpecies)
}

func TestEnergy(t *testing.T) {
	e, err := Energy(SpeciesDog, ConditionAdultNeutered, 12, "")
	require.NoError(t, err)
	assert.Equal(t, FormulaAuto, e.Formula)
	assert.InDelta(t, 430, e.RER, 1e-9)
	assert.InDelta(t, 688, e.MER, 1e-9)

	_, err = Energy(SpeciesDog, ConditionKitten, 12, "")
	assert.ErrorIs(t, err, ErrUnknownCondition)
}

func TestConditionsAndPuppyCondition(t *testing.T) {
	assert.Equal(t, []Condition{ConditionAdultIntact, ConditionAdultNeutered, ConditionKitten, ConditionObeseProne}, Conditions(SpeciesCat))
	assert.Empty(t, Conditions("horse"))
	assert.Equal(t, ConditionPuppyUnder4M, PuppyCondition(3))
	assert.Equal(t, ConditionPuppyOver4M, PuppyCondition(4))
}

func TestToPercent(t *testing.T) {
	tests := []struct {
		value float64
		unit  string
		want  float64
	}{
		{25, "%", 25},
		{25, "g/100g", 25},
		{250, "g/kg", 25},
		{250, " G/KG ", 25},
		{50000, "g/ton", 5},
		{1200, "mg/kg", 0.12},
		{7, "IU/kg", 7},
	}
	for _, tt := range tests {
		t.Run(tt.unit, func(t *testing.T) {
			assert.InDelta(t, tt.want, ToPercent(tt.value, tt.unit), 1e-12)
		})
	}
}

func TestRequirementToPercent(t *testing.T) {
	got := RequirementToPercent(v1alpha1.NutrientRequirement{
		Name: "lysine", Min: ptr.To(8.456), Max: ptr.To(12.0), Unit: "g/kg",
	})
	assert.Equal(t, v1alpha1.NutrientRequirement{
		Name: "lysine", Min: ptr.To(0.85), Max: ptr.To(1.2), Unit: UnitPercent,
	}, got)

	unknown := v1alpha1.NutrientRequirement{Name: "vitamin A", Min: ptr.To(5000.0), Unit: "IU/kg"}
	assert.Equal(t, unknown, RequirementToPercent(unknown))
}

func TestScaleToEnergy(t *testing.T) {
	reqs := []v1alpha1.NutrientRequirement{
		{Name: "protein", Min: ptr.To(50.0), Max: ptr.To(80.0), Unit: "g/kg"},
		{Name: "fat", Min: ptr.To(5.0), Unit: "%"},
	}
	got := ScaleToEnergy(reqs, 1000, 4000)
	assert.Equal(t, 200.0, *got[0].Min)
	assert.Equal(t, 320.0, *got[0].Max)
	assert.Equal(t, 5.0, *got[1].Min)
	assert.Equal(t, 50.0, *reqs[0].Min, "input must not be modified")

	same := ScaleToEnergy(reqs, 1000, 0)
	assert.Equal(t, reqs, same)
}

func TestForDiet(t *testing.T) {
	got, err := ForDiet(SpeciesDog, 3500)
	require.NoError(t, err)
	require.Len(t, got, 3)
	assert.Equal(t, "protein", got[0].Name)
	assert.Equal(t, 17.5, *got[0].Min)
	assert.Equal(t, 0.35, *got[1].Min)
	assert.Equal(t, 0.28, *got[2].Min)
	assert.Equal(t, UnitPercent, got[0].Unit)

	_, err = ForDiet("horse", 3500)
	assert.ErrorIs(t, err, ErrUnknownSpecies)
}
