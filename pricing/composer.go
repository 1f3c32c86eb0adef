package pricing

import "github.com/shopspring/decimal"

var oneHundred = decimal.NewFromInt(100)

// Compose applies an ordered list of adjustments to a base price and
// returns the final price with a step-by-step audit trail.
//
// Adjustments compound: each one is computed against the running price
// left by the previous rule, not the original base, so two +10% rules on
// 100 yield 121, not 120. Every step clamps at zero (flagged on the trail
// entry) and the final price is rounded half-up to two decimal places
// exactly once, so intermediate rounding error never accumulates.
func Compose(basePrice decimal.Decimal, orderedRules []*Rule) (decimal.Decimal, []TrailStep) {
	price := basePrice
	trail := make([]TrailStep, 0, len(orderedRules))

	for _, r := range orderedRules {
		before := price

		switch r.Adjustment.Kind {
		case AdjustmentPercentage:
			price = price.Mul(oneHundred.Add(r.Adjustment.Value)).Div(oneHundred)
		case AdjustmentFixed:
			price = price.Add(r.Adjustment.Value)
		default:
			// Unrecognized kinds leave the price untouched; the step is
			// still recorded so the trail accounts for every resolved rule.
		}

		clamped := false
		if price.IsNegative() {
			price = decimal.Zero
			clamped = true
		}

		trail = append(trail, TrailStep{
			RuleID:      r.ID,
			PriceBefore: before,
			PriceAfter:  price,
			Clamped:     clamped,
		})
	}

	return price.Round(2), trail
}
