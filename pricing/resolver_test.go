package pricing

import (
	"reflect"
	"testing"
	"time"
)

// matchAll is a demand trigger satisfied by any non-negative occupancy.
func matchAll() Condition {
	return DemandBasedCondition{OccupancyMin: fptr(0)}
}

func activeRule(id string, priority int, appliesTo ...string) *Rule {
	return &Rule{
		ID:         id,
		Name:       "rule " + id,
		Trigger:    matchAll(),
		Adjustment: Adjustment{Kind: AdjustmentPercentage, Value: dec("10")},
		AppliesTo:  appliesTo,
		Priority:   priority,
		Status:     StatusActive,
	}
}

// TestResolveFiltersByStatus verifies only active rules participate;
// inactive and draft rules never resolve even when their triggers match.
func TestResolveFiltersByStatus(t *testing.T) {
	inactive := activeRule("r-inactive", 1)
	inactive.Status = StatusInactive
	draft := activeRule("r-draft", 1)
	draft.Status = StatusDraft

	resolved := Resolve(
		[]*Rule{activeRule("r-active", 1), inactive, draft},
		ContextSnapshot{OccupancyPct: 50},
		[]PricedItem{{ID: "burger", BasePrice: dec("10")}},
	)

	got := resolved["burger"]
	if len(got) != 1 || got[0].ID != "r-active" {
		t.Errorf("resolved rules = %v, want only r-active", ruleIDs(got))
	}
}

// TestResolveFiltersByTrigger verifies non-matching triggers are discarded.
func TestResolveFiltersByTrigger(t *testing.T) {
	hot := activeRule("r-hot", 1)
	hot.Trigger = WeatherBasedCondition{TempMin: fptr(90)}

	resolved := Resolve(
		[]*Rule{activeRule("r-always", 1), hot},
		ContextSnapshot{OccupancyPct: 50, TemperatureF: fptr(70)},
		[]PricedItem{{ID: "lemonade", BasePrice: dec("3")}},
	)

	got := resolved["lemonade"]
	if len(got) != 1 || got[0].ID != "r-always" {
		t.Errorf("resolved rules = %v, want only r-always", ruleIDs(got))
	}
}

// TestResolveApplicability verifies appliesTo matching: empty set covers
// all items, otherwise the set must contain the item ID or a category tag.
func TestResolveApplicability(t *testing.T) {
	rules := []*Rule{
		activeRule("r-all", 1),
		activeRule("r-by-id", 2, "burger"),
		activeRule("r-by-tag", 3, "drinks"),
		activeRule("r-other", 4, "salads", "soup-of-the-day"),
	}
	catalog := []PricedItem{
		{ID: "burger", CategoryTags: []string{"mains"}, BasePrice: dec("10")},
		{ID: "cola", CategoryTags: []string{"drinks"}, BasePrice: dec("3")},
	}

	resolved := Resolve(rules, ContextSnapshot{OccupancyPct: 50}, catalog)

	if got, want := ruleIDs(resolved["burger"]), []string{"r-all", "r-by-id"}; !reflect.DeepEqual(got, want) {
		t.Errorf("burger rules = %v, want %v", got, want)
	}
	if got, want := ruleIDs(resolved["cola"]), []string{"r-all", "r-by-tag"}; !reflect.DeepEqual(got, want) {
		t.Errorf("cola rules = %v, want %v", got, want)
	}
}

// TestResolveOrdering verifies the per-item ordering contract: priority
// ascending with ties broken by rule ID ascending.
func TestResolveOrdering(t *testing.T) {
	rules := []*Rule{
		activeRule("r-b", 2),
		activeRule("r-c", 1),
		activeRule("r-a", 2),
		activeRule("r-d", 3),
	}

	resolved := Resolve(rules, ContextSnapshot{OccupancyPct: 50},
		[]PricedItem{{ID: "item", BasePrice: dec("10")}})

	want := []string{"r-c", "r-a", "r-b", "r-d"}
	if got := ruleIDs(resolved["item"]); !reflect.DeepEqual(got, want) {
		t.Errorf("resolved order = %v, want %v", got, want)
	}
}

// TestResolveNoMatchYieldsEmptyList verifies resolution never fails: an
// item nothing applies to maps to an empty list.
func TestResolveNoMatchYieldsEmptyList(t *testing.T) {
	rules := []*Rule{activeRule("r-tagged", 1, "desserts")}

	resolved := Resolve(rules, ContextSnapshot{OccupancyPct: 50},
		[]PricedItem{{ID: "burger", CategoryTags: []string{"mains"}, BasePrice: dec("10")}})

	got, ok := resolved["burger"]
	if !ok {
		t.Fatal("catalog item missing from resolution result")
	}
	if len(got) != 0 {
		t.Errorf("resolved rules = %v, want empty", ruleIDs(got))
	}
}

// TestResolveDeterministic verifies repeated calls over identical inputs
// produce identical output regardless of input slice order.
func TestResolveDeterministic(t *testing.T) {
	rules := []*Rule{
		activeRule("r-2", 5),
		activeRule("r-1", 5),
		activeRule("r-3", 1),
	}
	shuffled := []*Rule{rules[2], rules[0], rules[1]}
	ctx := ContextSnapshot{Now: time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC), OccupancyPct: 50}
	catalog := []PricedItem{
		{ID: "a", BasePrice: dec("1")},
		{ID: "b", BasePrice: dec("2")},
	}

	first := Resolve(rules, ctx, catalog)
	for i := 0; i < 10; i++ {
		again := Resolve(shuffled, ctx, catalog)
		if !reflect.DeepEqual(first, again) {
			t.Fatalf("resolution not deterministic: %v vs %v", first, again)
		}
	}
}

func ruleIDs(rules []*Rule) []string {
	ids := make([]string, 0, len(rules))
	for _, r := range rules {
		ids = append(ids, r.ID)
	}
	return ids
}
