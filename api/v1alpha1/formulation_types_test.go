package v1alpha1

import (
	"encoding/json"
	"testing"

	"github.com/google/go-cmp/cmp"
	"k8s.io/utils/ptr"
)

// helper: build a valid request
func makeValidRequest() FormulationRequest {
	return FormulationRequest{
		Ingredients: []Ingredient{
			{Name: "corn", Category: CategoryCarbohydrates, Price: 0.25, Nutrients: map[string]float64{"protein": 8.5}},
			{Name: "soy meal", Category: CategoryProteins, Price: 0.45, Nutrients: map[string]float64{"protein": 46}},
		},
		Requirements: []NutrientRequirement{
			{Name: "protein", Min: ptr.To(18.0), Max: ptr.To(24.0), Unit: "%"},
		},
		Limits: map[string]InclusionLimit{
			"soy meal": {Max: ptr.To(0.4)},
		},
		Ratios: []RatioConstraint{
			{Numerator: "calcium", Denominator: "phosphorus", Comparator: ComparatorGreaterEqual, Target: 1.2},
		},
		CategoryRanges: map[Category]CategoryRange{
			CategoryProteins: {Min: 0.1, Max: 0.5},
		},
	}
}

func TestNutrientRequirementValidate(t *testing.T) {
	tests := []struct {
		name    string
		req     NutrientRequirement
		wantErr bool
	}{
		{name: "no bounds", req: NutrientRequirement{Name: "fat"}},
		{name: "min only", req: NutrientRequirement{Name: "fat", Min: ptr.To(5.0)}},
		{name: "min equals max", req: NutrientRequirement{Name: "fat", Min: ptr.To(5.0), Max: ptr.To(5.0)}},
		{name: "min above max", req: NutrientRequirement{Name: "fat", Min: ptr.To(8.0), Max: ptr.To(5.0)}, wantErr: true},
		{name: "zero max is unbounded", req: NutrientRequirement{Name: "fat", Min: ptr.To(8.0), Max: ptr.To(0.0)}},
		{name: "empty name", req: NutrientRequirement{Min: ptr.To(1.0)}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.req.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestNutrientRequirementActivity(t *testing.T) {
	if (NutrientRequirement{Name: "x"}).IsActive() {
		t.Error("requirement without bounds should be inactive")
	}
	if (NutrientRequirement{Name: "x", Min: ptr.To(0.0), Max: ptr.To(0.0)}).IsActive() {
		t.Error("zero bounds should be inactive")
	}
	if !(NutrientRequirement{Name: "x", Max: ptr.To(3.0)}).IsActive() {
		t.Error("positive max should be active")
	}
}

func TestRatioConstraintValidate(t *testing.T) {
	tests := []struct {
		name    string
		ratio   RatioConstraint
		wantErr bool
	}{
		{name: "valid", ratio: RatioConstraint{Numerator: "ca", Denominator: "p", Comparator: ComparatorEqual, Target: 1.3}},
		{name: "same nutrient", ratio: RatioConstraint{Numerator: "ca", Denominator: "ca", Comparator: ComparatorEqual, Target: 1}, wantErr: true},
		{name: "bad comparator", ratio: RatioConstraint{Numerator: "ca", Denominator: "p", Comparator: "!=", Target: 1}, wantErr: true},
		{name: "negative target", ratio: RatioConstraint{Numerator: "ca", Denominator: "p", Comparator: ComparatorLess, Target: -1}, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.ratio.Validate()
			if (err != nil) != tt.wantErr {
				t.Errorf("Validate() error = %v, wantErr %v", err, tt.wantErr)
			}
		})
	}
}

func TestParseCategory(t *testing.T) {
	got, ok := ParseCategory("  proteins ")
	if !ok || got != CategoryProteins {
		t.Errorf("ParseCategory() = %v, %v", got, ok)
	}
	got, ok = ParseCategory("minerals")
	if ok || got != CategoryOther {
		t.Errorf("ParseCategory(unknown) = %v, %v", got, ok)
	}
}

func TestIngredientNutrientMissingIsZero(t *testing.T) {
	ing := Ingredient{Name: "corn", Nutrients: map[string]float64{"protein": 8.5}}
	if ing.Nutrient("fat") != 0 {
		t.Errorf("missing nutrient should read as zero")
	}
	if ing.EffectiveCategory() != CategoryOther {
		t.Errorf("empty category should default to Other")
	}
}

func TestWithFixedInclusionsDoesNotAlias(t *testing.T) {
	orig := makeValidRequest()
	orig.FixedInclusions = map[string]float64{"corn": 0.5}

	next := orig.WithFixedInclusions(map[string]float64{"soy meal": 0.3})

	want := map[string]float64{"corn": 0.5, "soy meal": 0.3}
	if diff := cmp.Diff(want, next.FixedInclusions); diff != "" {
		t.Errorf("WithFixedInclusions() mismatch (-want +got):\n%s", diff)
	}
	if _, leaked := orig.FixedInclusions["soy meal"]; leaked {
		t.Errorf("WithFixedInclusions mutated the original request")
	}
}

func TestJSONRoundTrip(t *testing.T) {
	orig := makeValidRequest()

	b, err := json.Marshal(orig)
	if err != nil {
		t.Fatalf("json.Marshal failed: %v", err)
	}

	var back FormulationRequest
	if err := json.Unmarshal(b, &back); err != nil {
		t.Fatalf("json.Unmarshal failed: %v", err)
	}
	if diff := cmp.Diff(orig, back); diff != "" {
		t.Errorf("round trip mismatch (-want +got):\n%s", diff)
	}
}
