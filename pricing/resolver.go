package pricing

import "sort"

// Resolve determines, for every catalog item, the ordered list of rules
// that apply under the given context. Only active rules whose trigger
// matches participate; applicability is then checked per item. The
// returned lists are sorted by priority ascending (lower value = applied
// first) with ties broken by rule ID ascending, which is the ordering
// contract the composer and every trail consumer rely on.
//
// Resolution never fails: an item with no matching rules maps to an empty
// list, meaning its price passes through unchanged.
func Resolve(rules []*Rule, ctx ContextSnapshot, catalog []PricedItem) map[string][]*Rule {
	matched := make([]*Rule, 0, len(rules))
	for _, r := range rules {
		if r.Status != StatusActive {
			continue
		}
		if !Evaluate(r.Trigger, ctx) {
			continue
		}
		matched = append(matched, r)
	}

	resolved := make(map[string][]*Rule, len(catalog))
	for _, item := range catalog {
		applicable := make([]*Rule, 0, len(matched))
		for _, r := range matched {
			if r.AppliesToItem(item) {
				applicable = append(applicable, r)
			}
		}

		sort.Slice(applicable, func(i, j int) bool {
			if applicable[i].Priority != applicable[j].Priority {
				return applicable[i].Priority < applicable[j].Priority
			}
			return applicable[i].ID < applicable[j].ID
		})

		resolved[item.ID] = applicable
	}

	return resolved
}
