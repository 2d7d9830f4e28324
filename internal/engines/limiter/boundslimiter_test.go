package limiter

import (
	"context"

	. "github.com/onsi/ginkgo/v2"
	. "github.com/onsi/gomega"
	"k8s.io/utils/ptr"

	"github.com/llm-d/diet-formulator/api/v1alpha1"
)

func makeRequest(names ...string) *v1alpha1.FormulationRequest {
	req := &v1alpha1.FormulationRequest{}
	for _, n := range names {
		req.Ingredients = append(req.Ingredients, v1alpha1.Ingredient{Name: n, Price: 1})
	}
	return req
}

var _ = Describe("NewLimiter", func() {
	It("should create a bounds limiter with defaults filled in", func() {
		l, err := NewLimiter(BoundsStrategy, &LimiterConfig{})
		Expect(err).NotTo(HaveOccurred())
		bl, ok := l.(*BoundsLimiter)
		Expect(ok).To(BeTrue())
		Expect(bl.config.DefaultMaxInclusion).To(Equal(DefaultMaxInclusion))
		Expect(bl.config.Tolerance).To(Equal(DefaultTolerance))
	})

	It("should reject a nil config", func() {
		_, err := NewLimiter(BoundsStrategy, nil)
		Expect(err).To(HaveOccurred())
	})

	It("should reject unknown strategies", func() {
		_, err := NewLimiter(LimiterStrategy(42), &LimiterConfig{})
		Expect(err).To(HaveOccurred())
	})

	It("should reject an out-of-range ceiling", func() {
		_, err := NewBoundsLimiter(&LimiterConfig{DefaultMaxInclusion: 1.5})
		Expect(err).To(HaveOccurred())
	})
})

var _ = Describe("BoundsLimiter.Resolve", func() {
	var (
		ctx context.Context
		l   *BoundsLimiter
	)

	BeforeEach(func() {
		ctx = context.Background()
		var err error
		l, err = NewBoundsLimiter(&LimiterConfig{})
		Expect(err).NotTo(HaveOccurred())
	})

	Context("with input errors", func() {
		It("should reject an empty ingredient list", func() {
			_, err := l.Resolve(ctx, makeRequest())
			Expect(err).To(MatchError(ErrNoIngredients))
		})

		It("should reject duplicate names", func() {
			_, err := l.Resolve(ctx, makeRequest("A", "A"))
			Expect(err).To(MatchError(ErrInvalidIngredient))
		})

		It("should reject empty names", func() {
			_, err := l.Resolve(ctx, makeRequest("A", " "))
			Expect(err).To(MatchError(ErrInvalidIngredient))
		})

		It("should reject limits for unknown ingredients", func() {
			req := makeRequest("A")
			req.Limits = map[string]v1alpha1.InclusionLimit{"B": {Max: ptr.To(0.5)}}
			_, err := l.Resolve(ctx, req)
			Expect(err).To(MatchError(ErrUnknownIngredient))
		})

		It("should reject forced minimums for unknown ingredients", func() {
			req := makeRequest("A")
			req.ForcedMinimums = map[string]float64{"B": 0.1}
			_, err := l.Resolve(ctx, req)
			Expect(err).To(MatchError(ErrUnknownIngredient))
		})

		It("should reject min greater than max", func() {
			req := makeRequest("A", "B")
			req.Limits = map[string]v1alpha1.InclusionLimit{"A": {Min: 0.6, Max: ptr.To(0.4)}}
			_, err := l.Resolve(ctx, req)
			Expect(err).To(MatchError(ErrInvalidLimit))
		})

		It("should reject limits outside [0, 1]", func() {
			req := makeRequest("A", "B")
			req.Limits = map[string]v1alpha1.InclusionLimit{"A": {Max: ptr.To(1.5)}}
			_, err := l.Resolve(ctx, req)
			Expect(err).To(MatchError(ErrInvalidLimit))
		})

		It("should reject a forced minimum above the ingredient max", func() {
			req := makeRequest("A", "B")
			req.Limits = map[string]v1alpha1.InclusionLimit{"A": {Max: ptr.To(0.2)}}
			req.ForcedMinimums = map[string]float64{"A": 0.3}
			_, err := l.Resolve(ctx, req)
			Expect(err).To(MatchError(ErrInvalidLimit))
		})

		It("should reject a fixed inclusion outside its limit", func() {
			req := makeRequest("A", "B")
			req.Limits = map[string]v1alpha1.InclusionLimit{"A": {Max: ptr.To(0.2)}}
			req.FixedInclusions = map[string]float64{"A": 0.5}
			_, err := l.Resolve(ctx, req)
			Expect(err).To(MatchError(ErrInvalidLimit))
		})
	})

	Context("with mass balance checks", func() {
		It("should short-circuit forced minimums above 100%", func() {
			req := makeRequest("A", "B", "C")
			req.ForcedMinimums = map[string]float64{"A": 0.6, "B": 0.5}
			_, err := l.Resolve(ctx, req)
			Expect(err).To(MatchError(ErrForcedMinimumsExceed))
			Expect(err.Error()).To(ContainSubstring("forced minimum inclusions sum to 110.00%, which exceeds 100%"))
		})

		It("should report a single forced minimum above 100% as a sum overflow", func() {
			req := makeRequest("A", "B")
			req.ForcedMinimums = map[string]float64{"A": 1.2}
			_, err := l.Resolve(ctx, req)
			Expect(err).To(MatchError(ErrForcedMinimumsExceed))
			Expect(err.Error()).To(ContainSubstring("sum to 120.00%, which exceeds 100%"))
		})

		It("should attribute an overflow from limit minimums to minimum inclusions", func() {
			req := makeRequest("A", "B")
			req.Limits = map[string]v1alpha1.InclusionLimit{"A": {Min: 0.7}, "B": {Min: 0.4}}
			_, err := l.Resolve(ctx, req)
			Expect(err).To(MatchError(ErrMinimumsExceed))
			Expect(err.Error()).NotTo(ContainSubstring("forced"))
			Expect(err.Error()).To(ContainSubstring("minimum inclusions sum to 110.00%"))
		})

		It("should accept forced minimums summing to exactly 100%", func() {
			req := makeRequest("A", "B")
			req.ForcedMinimums = map[string]float64{"A": 0.7, "B": 0.3}
			plan, err := l.Resolve(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.MinSum()).To(BeNumerically("~", 1.0, 1e-12))
		})

		It("should reject maximums that cannot reach 100%", func() {
			req := makeRequest("A", "B")
			req.Limits = map[string]v1alpha1.InclusionLimit{
				"A": {Max: ptr.To(0.3)},
				"B": {Max: ptr.To(0.3)},
			}
			_, err := l.Resolve(ctx, req)
			Expect(err).To(MatchError(ErrMaximumsBelowTotal))
			Expect(err.Error()).To(ContainSubstring("60.00%"))
		})
	})

	Context("with valid bounds", func() {
		It("should combine limits, forced minimums, and fixed inclusions", func() {
			req := makeRequest("A", "B", "C", "D")
			req.Limits = map[string]v1alpha1.InclusionLimit{
				"A": {Min: 0.05, Max: ptr.To(0.5)},
				"B": {Min: 0.2},
				"C": {Max: ptr.To(0.4)},
			}
			req.ForcedMinimums = map[string]float64{"A": 0.1, "B": 0.1}
			req.FixedInclusions = map[string]float64{"C": 0.25}

			plan, err := l.Resolve(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Bounds).To(Equal([]Bound{
				{Ingredient: "A", Min: 0.1, Max: 0.5, Forced: 0.1},
				{Ingredient: "B", Min: 0.2, Max: 1, Forced: 0.1},
				{Ingredient: "C", Min: 0.25, Max: 0.25, Fixed: true},
				{Ingredient: "D", Min: 0, Max: 1},
			}))
			Expect(plan.Eligible()).To(Equal(4))
			Expect(AvailableInclusion(plan)).To(BeNumerically("~", 0.45, 1e-12))

			b, ok := plan.Bound("C")
			Expect(ok).To(BeTrue())
			Expect(b.Fixed).To(BeTrue())
		})

		It("should apply the configured ceiling to unlimited ingredients", func() {
			capped, err := NewBoundsLimiter(&LimiterConfig{DefaultMaxInclusion: 0.6})
			Expect(err).NotTo(HaveOccurred())
			plan, err := capped.Resolve(ctx, makeRequest("A", "B"))
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Bounds[0].Max).To(Equal(0.6))
			Expect(plan.MaxSum()).To(BeNumerically("~", 1.2, 1e-12))
		})
	})

	Context("with category ranges", func() {
		It("should report unreachable categories as diagnostics", func() {
			req := makeRequest("A", "B")
			req.Ingredients[0].Category = v1alpha1.CategoryProteins
			req.Ingredients[1].Category = v1alpha1.CategoryFats
			req.Limits = map[string]v1alpha1.InclusionLimit{
				"A": {Max: ptr.To(0.3)},
				"B": {Min: 0.5},
			}
			req.CategoryRanges = map[v1alpha1.Category]v1alpha1.CategoryRange{
				v1alpha1.CategoryProteins: {Min: 0.4, Max: 0.8},
				v1alpha1.CategoryFats:     {Min: 0, Max: 0.2},
			}

			plan, err := l.Resolve(ctx, req)
			Expect(err).NotTo(HaveOccurred())
			Expect(plan.Diagnostics).To(HaveLen(2))
			Expect(plan.Diagnostics[0]).To(ContainSubstring("Proteins can reach at most 30.00%"))
			Expect(plan.Diagnostics[1]).To(ContainSubstring("Fats is forced to at least 50.00%"))
		})
	})
})
