package pricing

import (
	"bytes"
	"encoding/json"
	"testing"
	"time"
)

// TestSimulateLunchRushScenario runs the canonical two-rule scenario: a
// weekday lunch surcharge (priority 1, +15%) and a high-occupancy
// surcharge (priority 2, +10%) both firing on a Tuesday noon with 85%
// occupancy. The lunch rule applies first against the base price and the
// demand rule compounds on its output: 20.00 -> 23.00 -> 25.30.
func TestSimulateLunchRushScenario(t *testing.T) {
	lunchSurge := &Rule{
		ID:   "rule-1",
		Name: "Weekday lunch surge",
		Trigger: TimeBasedCondition{
			DaysOfWeek: []int{1, 2, 3, 4, 5},
			StartTime:  "11:00",
			EndTime:    "14:00",
		},
		Adjustment: Adjustment{Kind: AdjustmentPercentage, Value: dec("15")},
		Priority:   1,
		Status:     StatusActive,
	}
	busySurge := &Rule{
		ID:         "rule-2",
		Name:       "High occupancy surge",
		Trigger:    DemandBasedCondition{OccupancyMin: fptr(80)},
		Adjustment: Adjustment{Kind: AdjustmentPercentage, Value: dec("10")},
		Priority:   2,
		Status:     StatusActive,
	}

	// 2026-01-06 is a Tuesday.
	ctx := ContextSnapshot{
		Now:          time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC),
		OccupancyPct: 85,
	}
	catalog := []PricedItem{{ID: "burger", BasePrice: dec("20.00")}}

	previews := Simulate([]*Rule{busySurge, lunchSurge}, catalog, ctx)

	if len(previews) != 1 {
		t.Fatalf("got %d previews, want 1", len(previews))
	}
	p := previews[0]

	if !p.AdjustedPrice.Equal(dec("25.30")) {
		t.Errorf("adjusted price = %s, want 25.30", p.AdjustedPrice)
	}
	if len(p.Trail) != 2 {
		t.Fatalf("trail has %d steps, want 2", len(p.Trail))
	}
	if p.Trail[0].RuleID != "rule-1" || !p.Trail[0].PriceAfter.Equal(dec("23.00")) {
		t.Errorf("step 1 = %s after %s, want rule-1 -> 23.00", p.Trail[0].RuleID, p.Trail[0].PriceAfter)
	}
	if p.Trail[1].RuleID != "rule-2" || !p.Trail[1].PriceAfter.Equal(dec("25.30")) {
		t.Errorf("step 2 = %s after %s, want rule-2 -> 25.30", p.Trail[1].RuleID, p.Trail[1].PriceAfter)
	}
	if !p.ChangePct.Equal(dec("26.50")) {
		t.Errorf("changePct = %s, want 26.50", p.ChangePct)
	}
}

// TestSimulateNoMatchPassthrough verifies an item matching zero rules
// keeps its original price with an empty trail and zero change.
func TestSimulateNoMatchPassthrough(t *testing.T) {
	offHours := &Rule{
		ID:         "r1",
		Trigger:    DemandBasedCondition{OccupancyMin: fptr(95)},
		Adjustment: Adjustment{Kind: AdjustmentPercentage, Value: dec("20")},
		Status:     StatusActive,
	}

	previews := Simulate([]*Rule{offHours},
		[]PricedItem{{ID: "salad", BasePrice: dec("9.50")}},
		ContextSnapshot{OccupancyPct: 40})

	p := previews[0]
	if !p.AdjustedPrice.Equal(p.OriginalPrice) {
		t.Errorf("adjusted = %s, want original %s", p.AdjustedPrice, p.OriginalPrice)
	}
	if len(p.Trail) != 0 {
		t.Errorf("trail should be empty, got %+v", p.Trail)
	}
	if !p.ChangePct.IsZero() {
		t.Errorf("changePct = %s, want 0", p.ChangePct)
	}
}

// TestSimulateZeroBasePrice verifies a free item never divides by zero.
func TestSimulateZeroBasePrice(t *testing.T) {
	surge := activeRule("r1", 1)

	previews := Simulate([]*Rule{surge},
		[]PricedItem{{ID: "water", BasePrice: dec("0")}},
		ContextSnapshot{OccupancyPct: 50})

	if !previews[0].ChangePct.IsZero() {
		t.Errorf("changePct for zero base = %s, want 0", previews[0].ChangePct)
	}
}

// TestSimulateDeterministic verifies repeated simulation over identical
// inputs produces byte-identical output, trail ordering included.
func TestSimulateDeterministic(t *testing.T) {
	rules := []*Rule{
		activeRule("r-b", 1),
		activeRule("r-a", 1),
		activeRule("r-z", 2, "drinks"),
	}
	catalog := []PricedItem{
		{ID: "cola", CategoryTags: []string{"drinks"}, BasePrice: dec("3.00")},
		{ID: "burger", CategoryTags: []string{"mains"}, BasePrice: dec("12.00")},
	}
	ctx := ContextSnapshot{Now: time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC), OccupancyPct: 60}

	first, err := json.Marshal(Simulate(rules, catalog, ctx))
	if err != nil {
		t.Fatalf("marshal failed: %v", err)
	}
	for i := 0; i < 10; i++ {
		again, err := json.Marshal(Simulate(rules, catalog, ctx))
		if err != nil {
			t.Fatalf("marshal failed: %v", err)
		}
		if !bytes.Equal(first, again) {
			t.Fatalf("simulation not byte-identical:\n%s\nvs\n%s", first, again)
		}
	}
}

// TestFiredRuleIDs verifies distinct fired rules come back in first-seen
// order across items.
func TestFiredRuleIDs(t *testing.T) {
	previews := []ItemPreview{
		{ItemID: "a", Trail: []TrailStep{{RuleID: "r1"}, {RuleID: "r2"}}},
		{ItemID: "b", Trail: []TrailStep{{RuleID: "r2"}, {RuleID: "r3"}}},
		{ItemID: "c"},
	}

	got := FiredRuleIDs(previews)
	want := []string{"r1", "r2", "r3"}
	if len(got) != len(want) {
		t.Fatalf("fired = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("fired[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
