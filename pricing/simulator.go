package pricing

import "github.com/shopspring/decimal"

// Simulate runs the full resolve-and-compose pipeline over a catalog and
// returns a per-item preview: original price, adjusted price, percentage
// change and the audit trail. It has no side effects and touches no
// store, so callers can invoke it per preview request (the admin UI does
// this for "what if I activate this draft right now").
//
// Previews come back in catalog order, so identical inputs always produce
// identical output.
func Simulate(rules []*Rule, catalog []PricedItem, ctx ContextSnapshot) []ItemPreview {
	resolved := Resolve(rules, ctx, catalog)

	previews := make([]ItemPreview, 0, len(catalog))
	for _, item := range catalog {
		final, trail := Compose(item.BasePrice, resolved[item.ID])

		changePct := decimal.Zero
		if !item.BasePrice.IsZero() {
			changePct = final.Sub(item.BasePrice).Div(item.BasePrice).Mul(oneHundred).Round(2)
		}

		previews = append(previews, ItemPreview{
			ItemID:        item.ID,
			OriginalPrice: item.BasePrice,
			AdjustedPrice: final,
			ChangePct:     changePct,
			Trail:         trail,
		})
	}

	return previews
}

// FiredRuleIDs collects the distinct rule IDs that affected at least one
// item, in first-seen order. Callers use it to persist trigger
// bookkeeping after a live (non-simulated) evaluation.
func FiredRuleIDs(previews []ItemPreview) []string {
	seen := make(map[string]bool)
	var ids []string
	for _, p := range previews {
		for _, step := range p.Trail {
			if !seen[step.RuleID] {
				seen[step.RuleID] = true
				ids = append(ids, step.RuleID)
			}
		}
	}
	return ids
}
