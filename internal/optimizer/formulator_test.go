package optimizer

import (
	"context"
	"errors"
	"math"
	"math/rand"
	"time"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/utils/ptr"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
	"github.com/llm-d/diet-formulator/internal/config"
	"github.com/llm-d/diet-formulator/pkg/core"
)

var _ = Describe("NewFormulator", func() {
	It("should build the default solver and limiter", func() {
		f, err := NewFormulator(config.Default())
		Expect(err).NotTo(HaveOccurred())
		Expect(f.solver.Name()).To(Equal("simplex"))
		Expect(f.limiter).NotTo(BeNil())
		Expect(f.Config()).To(Equal(config.Default()))
	})

	It("should reject an invalid configuration", func() {
		cfg := config.Default()
		cfg.BatchSize = 0
		_, err := NewFormulator(cfg)
		Expect(err).To(MatchError(config.ErrInvalidConfig))
	})

	It("should reject an unknown solver kind", func() {
		cfg := config.Default()
		cfg.Solver = "highs"
		_, err := NewFormulator(cfg)
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("Formulator.Formulate", func() {
	var (
		ctx      context.Context
		cs       *countingSolver
		recorder *fakeRecorder
		f        *Formulator
	)

	BeforeEach(func() {
		ctx = context.Background()
		cs = newCountingSolver()
		recorder = &fakeRecorder{}
		var err error
		f, err = NewFormulator(config.Default(), WithSolver(cs), WithRecorder(recorder))
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with the reference scenarios", func() {
		It("should put a lone ingredient at 100%", func() {
			res := f.Formulate(ctx, v1alpha1.FormulationRequest{
				Ingredients: []v1alpha1.Ingredient{ingredient("A", v1alpha1.CategoryProteins, 10, nil)},
			})

			Expect(res.Success).To(BeTrue(), res.Message)
			Expect(res.Status).To(Equal(v1alpha1.StatusOptimal))
			Expect(res.Diet).To(Equal(map[string]float64{"A": 100}))
			Expect(res.TotalCost).To(Equal(1000.0))
			Expect(res.BatchSize).To(Equal(100.0))
		})

		It("should pick the cheaper of two ingredients when nothing is required", func() {
			res := f.Formulate(ctx, v1alpha1.FormulationRequest{
				Ingredients: []v1alpha1.Ingredient{
					ingredient("A", v1alpha1.CategoryProteins, 10, nil),
					ingredient("B", v1alpha1.CategoryProteins, 20, nil),
				},
			})

			Expect(res.Success).To(BeTrue(), res.Message)
			Expect(res.Status).To(Equal(v1alpha1.StatusOptimal))
			Expect(res.Diet).To(Equal(map[string]float64{"A": 100}))
			Expect(res.TotalCost).To(Equal(1000.0))
		})

		It("should blend two ingredients to meet a protein minimum at least cost", func() {
			res := f.Formulate(ctx, v1alpha1.FormulationRequest{
				Ingredients: []v1alpha1.Ingredient{
					ingredient("A", v1alpha1.CategoryCarbohydrates, 5, map[string]float64{"protein": 10}),
					ingredient("B", v1alpha1.CategoryProteins, 8, map[string]float64{"protein": 50}),
				},
				Requirements: []v1alpha1.NutrientRequirement{{Name: "protein", Min: ptr.To(20.0), Unit: "%"}},
			})

			Expect(res.Success).To(BeTrue(), res.Message)
			Expect(res.Diet).To(Equal(map[string]float64{"A": 75, "B": 25}))
			Expect(res.TotalCost).To(Equal(575.0))
			Expect(res.NutrientValues).To(HaveKeyWithValue("protein", 20.0))
			Expect(res.Composition[0].Ingredient).To(Equal("A"))

			c, ok := res.NutrientStatus("protein")
			Expect(ok).To(BeTrue())
			Expect(c.Status).To(Equal(v1alpha1.ComplianceMeets))
			Expect(c.Compliant).To(BeTrue())
			Expect(c.Unit).To(Equal("%"))
			Expect(res.Violations).To(BeEmpty())
		})

		It("should favor an ingredient whose price was coerced to zero", func() {
			res := f.Formulate(ctx, v1alpha1.FormulationRequest{
				Ingredients: []v1alpha1.Ingredient{
					ingredient("Unpriced", v1alpha1.CategoryOther, 0, map[string]float64{"protein": 10}),
					ingredient("Priced", v1alpha1.CategoryOther, 5, map[string]float64{"protein": 10}),
				},
				Requirements: []v1alpha1.NutrientRequirement{{Name: "protein", Min: ptr.To(5.0)}},
			})

			Expect(res.Success).To(BeTrue(), res.Message)
			Expect(res.Diet).To(Equal(map[string]float64{"Unpriced": 100}))
			Expect(res.TotalCost).To(Equal(0.0))
		})

		It("should report an unreachable category minimum as a fallback", func() {
			res := f.Formulate(ctx, v1alpha1.FormulationRequest{
				Ingredients: []v1alpha1.Ingredient{
					ingredient("Chicken", v1alpha1.CategoryProteins, 6, nil),
					ingredient("Fish", v1alpha1.CategoryProteins, 7, nil),
					ingredient("Rice", v1alpha1.CategoryCarbohydrates, 1, nil),
				},
				Limits: map[string]v1alpha1.InclusionLimit{
					"Chicken": {Max: ptr.To(0.15)},
					"Fish":    {Max: ptr.To(0.15)},
				},
				CategoryRanges: map[v1alpha1.Category]v1alpha1.CategoryRange{
					v1alpha1.CategoryProteins: {Min: 0.5, Max: 1},
				},
			})

			Expect(res.Success).To(BeFalse())
			Expect(res.Fallback).To(BeTrue())
			Expect(res.Status).To(Equal(v1alpha1.StatusOptimal))
			Expect(res.Diet).To(Equal(map[string]float64{"Chicken": 15, "Fish": 15, "Rice": 70}))
			Expect(res.Message).To(ContainSubstring("category Proteins under target"))

			c, ok := res.CategoryStatus(v1alpha1.CategoryProteins)
			Expect(ok).To(BeTrue())
			Expect(c.Status).To(Equal(v1alpha1.ComplianceDeficient))
			Expect(c.Achieved).To(BeNumerically("~", 0.3, 1e-6))

			Expect(res.Violations).To(ContainElement(v1alpha1.SlackViolation{
				Constraint: "Proteins min",
				Kind:       v1alpha1.ViolationCategory,
				Side:       v1alpha1.SideDeficit,
				Amount:     0.2,
			}))
			Expect(res.Diagnostics).To(ContainElement(ContainSubstring("category Proteins can reach at most")))
		})
	})

	Context("with forced minimums", func() {
		It("should short-circuit when they exceed 100%", func() {
			res := f.Formulate(ctx, v1alpha1.FormulationRequest{
				Ingredients: []v1alpha1.Ingredient{
					ingredient("A", "", 1, nil),
					ingredient("B", "", 2, nil),
				},
				ForcedMinimums: map[string]float64{"A": 0.6, "B": 0.5},
			})

			Expect(res.Success).To(BeFalse())
			Expect(res.Status).To(Equal(v1alpha1.StatusInvalidInput))
			Expect(res.Message).To(ContainSubstring("exceeds 100%"))
			Expect(cs.calls).To(BeZero())
			Expect(res.Diet).To(Equal(map[string]float64{"A": 100}))
		})

		It("should report a single forced minimum above 100% as exceeding 100%", func() {
			res := f.Formulate(ctx, v1alpha1.FormulationRequest{
				Ingredients: []v1alpha1.Ingredient{
					ingredient("A", "", 1, nil),
					ingredient("B", "", 2, nil),
				},
				ForcedMinimums: map[string]float64{"A": 1.2},
			})

			Expect(res.Status).To(Equal(v1alpha1.StatusInvalidInput))
			Expect(res.Message).To(ContainSubstring("120.00%, which exceeds 100%"))
			Expect(cs.calls).To(BeZero())
		})

		It("should honor a forced minimum on an expensive ingredient", func() {
			res := f.Formulate(ctx, v1alpha1.FormulationRequest{
				Ingredients: []v1alpha1.Ingredient{
					ingredient("Cheap", "", 1, nil),
					ingredient("Premium", "", 9, nil),
				},
				ForcedMinimums: map[string]float64{"Premium": 0.2},
			})

			Expect(res.Success).To(BeTrue(), res.Message)
			Expect(res.Diet).To(Equal(map[string]float64{"Cheap": 80, "Premium": 20}))
			Expect(res.MinInclusionStatus).To(Equal([]v1alpha1.MinInclusionStatus{{
				Ingredient:      "Premium",
				IncludedPercent: 20,
				RequiredPercent: 20,
				Compliant:       true,
			}}))
		})
	})

	It("should pin fixed inclusions", func() {
		res := f.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients: []v1alpha1.Ingredient{
				ingredient("Cheap", "", 1, nil),
				ingredient("Premium", "", 9, nil),
			},
			FixedInclusions: map[string]float64{"Premium": 0.35},
		})

		Expect(res.Success).To(BeTrue(), res.Message)
		Expect(res.Diet).To(HaveKeyWithValue("Premium", 35.0))
	})

	It("should be idempotent", func() {
		req := v1alpha1.FormulationRequest{
			Ingredients: []v1alpha1.Ingredient{
				ingredient("A", "", 5, map[string]float64{"protein": 10, "fat": 4}),
				ingredient("B", "", 8, map[string]float64{"protein": 50, "fat": 2}),
				ingredient("C", "", 3, map[string]float64{"protein": 2, "fat": 12}),
			},
			Requirements: []v1alpha1.NutrientRequirement{
				{Name: "protein", Min: ptr.To(18.0)},
				{Name: "fat", Min: ptr.To(5.0), Max: ptr.To(8.0)},
			},
		}

		first := f.Formulate(ctx, req)
		second := f.Formulate(ctx, req)
		Expect(second).To(Equal(first))
	})

	It("should satisfy an equality ratio on the final mix", func() {
		res := f.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients: []v1alpha1.Ingredient{
				ingredient("Bone meal", "", 1, map[string]float64{"calcium": 2, "phosphorus": 1}),
				ingredient("Meat", "", 2, map[string]float64{"calcium": 0.5, "phosphorus": 1}),
			},
			Ratios: []v1alpha1.RatioConstraint{{
				Numerator:   "calcium",
				Denominator: "phosphorus",
				Comparator:  v1alpha1.ComparatorEqual,
				Target:      1.5,
			}},
		})

		Expect(res.Success).To(BeTrue(), res.Message)
		Expect(res.Composition[0].Fraction).To(BeNumerically("~", 2.0/3, 1e-6))
		Expect(res.RatioCompliance).To(HaveLen(1))

		rc := res.RatioCompliance[0]
		Expect(rc.Status).To(Equal(v1alpha1.ComplianceMeets))
		Expect(rc.Numerator).To(BeNumerically("~", 1.5*rc.Denominator, 1e-3))
		Expect(*rc.Value).To(BeNumerically("~", 1.5, 1e-4))
	})

	It("should solve a ratio listed twice", func() {
		ratio := v1alpha1.RatioConstraint{
			Numerator:   "calcium",
			Denominator: "phosphorus",
			Comparator:  v1alpha1.ComparatorEqual,
			Target:      1.5,
		}
		res := f.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients: []v1alpha1.Ingredient{
				ingredient("Bone", "", 1, map[string]float64{"calcium": 2, "phosphorus": 1}),
				ingredient("Meat", "", 2, map[string]float64{"calcium": 0.5, "phosphorus": 1}),
			},
			Ratios: []v1alpha1.RatioConstraint{ratio, ratio},
		})

		Expect(res.Success).To(BeTrue(), res.Message)
		Expect(res.Status).To(Equal(v1alpha1.StatusOptimal))
		Expect(res.Diet["Bone"]).To(BeNumerically("~", 66.67, 0.01))
		Expect(res.RatioCompliance).To(HaveLen(2))
		for _, rc := range res.RatioCompliance {
			Expect(rc.Compliant).To(BeTrue())
		}
	})

	It("should relax a hard ratio the ingredients cannot reach", func() {
		res := f.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients: []v1alpha1.Ingredient{
				ingredient("A", "", 1, map[string]float64{"calcium": 1, "phosphorus": 1}),
				ingredient("B", "", 2, map[string]float64{"calcium": 1, "phosphorus": 1}),
			},
			Ratios: []v1alpha1.RatioConstraint{{
				Numerator:   "calcium",
				Denominator: "phosphorus",
				Comparator:  v1alpha1.ComparatorEqual,
				Target:      2,
			}},
		})

		Expect(res.Success).To(BeFalse())
		Expect(res.Fallback).To(BeTrue())
		Expect(res.Status).To(Equal(v1alpha1.StatusInfeasible))
		Expect(res.Message).To(ContainSubstring("cannot satisfy requirements"))
		Expect(res.Message).NotTo(ContainSubstring("singular"))
		Expect(cs.calls).To(Equal(2))
		Expect(res.Violations).To(ContainElement(HaveField("Kind", v1alpha1.ViolationRatio)))
		Expect(res.RatioCompliance[0].Compliant).To(BeFalse())
	})

	It("should enforce a strict ratio with the configured margin", func() {
		res := f.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients: []v1alpha1.Ingredient{
				ingredient("Bone meal", "", 3, map[string]float64{"calcium": 2, "phosphorus": 1}),
				ingredient("Meat", "", 1, map[string]float64{"calcium": 0.5, "phosphorus": 1}),
			},
			Ratios: []v1alpha1.RatioConstraint{{
				Numerator:   "calcium",
				Denominator: "phosphorus",
				Comparator:  v1alpha1.ComparatorGreater,
				Target:      1,
			}},
		})

		Expect(res.Success).To(BeTrue(), res.Message)
		Expect(res.RatioCompliance[0].Compliant).To(BeTrue())
	})

	It("should include at least the minimum number of ingredients", func() {
		res := f.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients: []v1alpha1.Ingredient{
				ingredient("A", "", 1, nil),
				ingredient("B", "", 10, nil),
				ingredient("C", "", 10, nil),
			},
			MinIngredients: 2,
		})

		Expect(res.Success).To(BeTrue(), res.Message)
		Expect(len(res.Composition)).To(BeNumerically(">=", 2))
		Expect(res.Diet).To(HaveKeyWithValue("A", 99.9))
		Expect(res.TotalCost).To(BeNumerically("~", 100.9, 0.01))
	})

	It("should reject a minimum ingredient count above the eligible ingredients", func() {
		res := f.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients:    []v1alpha1.Ingredient{ingredient("A", "", 1, nil)},
			MinIngredients: 3,
		})

		Expect(res.Status).To(Equal(v1alpha1.StatusInvalidInput))
		Expect(res.Message).To(ContainSubstring("at least 3 ingredients"))
		Expect(cs.calls).To(BeZero())
	})

	It("should flag a ratio whose denominator vanishes", func() {
		res := f.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients: []v1alpha1.Ingredient{
				ingredient("A", "", 1, map[string]float64{"calcium": 1}),
			},
			Ratios: []v1alpha1.RatioConstraint{{
				Numerator:   "calcium",
				Denominator: "phosphorus",
				Comparator:  v1alpha1.ComparatorGreaterEqual,
				Target:      1,
				Soft:        true,
			}},
		})

		Expect(res.Success).To(BeFalse())
		Expect(res.Fallback).To(BeTrue())
		rc := res.RatioCompliance[0]
		Expect(rc.Status).To(Equal(v1alpha1.ComplianceDivisionByZero))
		Expect(rc.Compliant).To(BeFalse())
		Expect(rc.Value).To(BeNil())
		Expect(rc.Detail).To(ContainSubstring("phosphorus is zero"))
	})

	It("should report requirements without bounds as unconstrained", func() {
		res := f.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients:  []v1alpha1.Ingredient{ingredient("A", "", 1, map[string]float64{"fiber": 3})},
			Requirements: []v1alpha1.NutrientRequirement{{Name: "fiber"}},
		})

		Expect(res.Success).To(BeTrue(), res.Message)
		c, _ := res.NutrientStatus("fiber")
		Expect(c.Status).To(Equal(v1alpha1.ComplianceUnconstrained))
		Expect(c.Compliant).To(BeFalse())
		Expect(res.Diagnostics).To(ContainElement(ContainSubstring("no nutrient requirement")))
	})

	It("should reject min greater than max without correcting it", func() {
		res := f.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients:  []v1alpha1.Ingredient{ingredient("A", "", 1, nil)},
			Requirements: []v1alpha1.NutrientRequirement{{Name: "protein", Min: ptr.To(30.0), Max: ptr.To(20.0)}},
		})

		Expect(res.Status).To(Equal(v1alpha1.StatusInvalidInput))
		Expect(res.Message).To(ContainSubstring("greater than max"))
	})

	Context("when hard nutrients cannot be met", func() {
		It("should return the closest mix from a relaxed solve", func() {
			res := f.Formulate(ctx, v1alpha1.FormulationRequest{
				Ingredients: []v1alpha1.Ingredient{
					ingredient("A", "", 1, map[string]float64{"protein": 10}),
					ingredient("B", "", 2, map[string]float64{"protein": 20}),
				},
				Requirements:  []v1alpha1.NutrientRequirement{{Name: "protein", Min: ptr.To(30.0)}},
				HardNutrients: []string{"protein"},
			})

			Expect(res.Success).To(BeFalse())
			Expect(res.Fallback).To(BeTrue())
			Expect(res.Status).To(Equal(v1alpha1.StatusInfeasible))
			Expect(res.Message).To(ContainSubstring("cannot satisfy requirements"))
			Expect(res.Diet).To(Equal(map[string]float64{"B": 100}))
			Expect(res.Violations).To(ConsistOf(v1alpha1.SlackViolation{
				Constraint: "protein min",
				Kind:       v1alpha1.ViolationNutrient,
				Side:       v1alpha1.SideDeficit,
				Amount:     10,
			}))
			Expect(cs.calls).To(Equal(2))
		})
	})

	Context("with solver failures", func() {
		newWith := func(s *stubSolver) *Formulator {
			out, err := NewFormulator(config.Default(), WithSolver(s), WithRecorder(recorder))
			Expect(err).NotTo(HaveOccurred())
			return out
		}
		req := v1alpha1.FormulationRequest{
			Ingredients: []v1alpha1.Ingredient{
				ingredient("Expensive", "", 4, nil),
				ingredient("Cheap", "", 2, nil),
			},
		}

		It("should report a timeout distinctly from infeasibility", func() {
			res := newWith(&stubSolver{sol: &core.Solution{Status: core.StatusTimedOut}}).Formulate(ctx, req)
			Expect(res.Status).To(Equal(v1alpha1.StatusTimedOut))
			Expect(res.Message).To(ContainSubstring("timed out"))
			Expect(res.Fallback).To(BeTrue())
			Expect(res.Diet).To(Equal(map[string]float64{"Cheap": 100}))
		})

		It("should time out on an expired deadline with the real solver", func() {
			expired, cancel := context.WithDeadline(ctx, time.Now().Add(-time.Second))
			defer cancel()
			res := f.Formulate(expired, req)
			Expect(res.Status).To(Equal(v1alpha1.StatusTimedOut))
		})

		It("should interpret a partial solution as a fallback", func() {
			res := newWith(&stubSolver{sol: &core.Solution{
				Status:  core.StatusNotSolved,
				Values:  []float64{0.5, 0.5},
				Message: "iteration limit",
			}}).Formulate(ctx, req)
			Expect(res.Status).To(Equal(v1alpha1.StatusNotSolved))
			Expect(res.Fallback).To(BeTrue())
			Expect(res.Success).To(BeFalse())
			Expect(res.Diet).To(Equal(map[string]float64{"Expensive": 50, "Cheap": 50}))
			Expect(res.Message).To(ContainSubstring("iteration limit"))
		})

		It("should surface unboundedness", func() {
			res := newWith(&stubSolver{sol: &core.Solution{Status: core.StatusUnbounded}}).Formulate(ctx, req)
			Expect(res.Status).To(Equal(v1alpha1.StatusUnbounded))
			Expect(res.Message).To(ContainSubstring("unbounded"))
		})

		It("should turn a solver error into a fallback", func() {
			res := newWith(&stubSolver{err: errors.New("bad model")}).Formulate(ctx, req)
			Expect(res.Status).To(Equal(v1alpha1.StatusNotSolved))
			Expect(res.Message).To(ContainSubstring("bad model"))
		})

		It("should recover from a solver panic", func() {
			res := newWith(&stubSolver{panicWith: "boom"}).Formulate(ctx, req)
			Expect(res).NotTo(BeNil())
			Expect(res.Status).To(Equal(v1alpha1.StatusNotSolved))
			Expect(res.Message).To(ContainSubstring("boom"))
			Expect(res.Diet).To(Equal(map[string]float64{"Cheap": 100}))
			Expect(recorder.runs).To(HaveLen(1))
		})
	})

	It("should record every run", func() {
		f.Formulate(ctx, v1alpha1.FormulationRequest{Ingredients: []v1alpha1.Ingredient{ingredient("A", "", 1, nil)}})
		f.Formulate(ctx, v1alpha1.FormulationRequest{})
		Expect(recorder.runs).To(HaveLen(2))
		Expect(recorder.runs[0].status).To(Equal(v1alpha1.StatusOptimal))
		Expect(recorder.runs[1].status).To(Equal(v1alpha1.StatusInvalidInput))
	})

	It("should raise a penalty weight that cannot dominate prices", func() {
		cfg := config.Default()
		cfg.PenaltyWeight = 1
		low, err := NewFormulator(cfg, WithSolver(cs))
		Expect(err).NotTo(HaveOccurred())

		res := low.Formulate(ctx, v1alpha1.FormulationRequest{
			Ingredients: []v1alpha1.Ingredient{
				ingredient("A", "", 50, map[string]float64{"protein": 10}),
				ingredient("B", "", 80, map[string]float64{"protein": 50}),
			},
			Requirements: []v1alpha1.NutrientRequirement{{Name: "protein", Min: ptr.To(20.0)}},
		})

		Expect(res.Success).To(BeTrue(), res.Message)
		Expect(res.PenaltyWeight).To(BeNumerically("~", 80, 1e-9))
		Expect(res.Diagnostics).To(ContainElement(ContainSubstring("penalty weight raised")))
	})

	It("should only declare success when every minimum is met", func() {
		rng := rand.New(rand.NewSource(7))
		nutrients := []string{"protein", "fat", "fiber"}
		for run := 0; run < 25; run++ {
			var req v1alpha1.FormulationRequest
			for i := 0; i < 5; i++ {
				content := map[string]float64{}
				for _, n := range nutrients {
					content[n] = math.Round(rng.Float64()*400) / 10
				}
				req.Ingredients = append(req.Ingredients, ingredient(
					string(rune('A'+i)), "", 1+math.Round(rng.Float64()*90)/10, content))
			}
			for _, n := range nutrients {
				req.Requirements = append(req.Requirements, v1alpha1.NutrientRequirement{
					Name: n, Min: ptr.To(math.Round(rng.Float64()*300) / 10),
				})
			}

			res := f.Formulate(ctx, req)
			Expect(res.Diet).NotTo(BeEmpty())
			Expect(sumPercent(res.Diet)).To(BeNumerically("~", 100, 0.05))
			if !res.Success {
				Expect(res.Fallback).To(BeTrue())
				continue
			}
			for _, r := range req.Requirements {
				Expect(res.NutrientValues[r.Name]).To(BeNumerically(">=", *r.Min-1e-3), "run %d nutrient %s", run, r.Name)
			}
		}
	})
})
