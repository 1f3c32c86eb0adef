package pricing

import (
	"time"

	"github.com/shopspring/decimal"
)

// AdjustmentKind identifies how a rule's adjustment value is applied to a price.
type AdjustmentKind string

const (
	AdjustmentPercentage AdjustmentKind = "percentage"
	AdjustmentFixed      AdjustmentKind = "fixed"
)

// Status controls whether a rule participates in evaluation.
// Only active rules are ever applied.
type Status string

const (
	StatusActive   Status = "active"
	StatusInactive Status = "inactive"
	StatusDraft    Status = "draft"
)

// Adjustment is the price effect a rule has when its trigger matches.
// Percentage values are in percent (10 means +10%), fixed values are in
// currency units. Both may be negative.
type Adjustment struct {
	Kind  AdjustmentKind  `json:"kind"`
	Value decimal.Decimal `json:"value"`
}

// Rule is a single admin-authored pricing rule.
type Rule struct {
	ID          string     `json:"id"`
	Name        string     `json:"name"`
	Description string     `json:"description,omitempty"`
	Trigger     Condition  `json:"-"`
	Adjustment  Adjustment `json:"adjustment"`

	// AppliesTo holds item IDs and/or category tags. Empty means the rule
	// applies to every item in the catalog.
	AppliesTo []string `json:"appliesTo,omitempty"`

	// Priority orders rule application: lower values are applied first.
	// Ties are broken by ID ascending so resolution stays deterministic.
	Priority int    `json:"priority"`
	Status   Status `json:"status"`

	CreatedAt       time.Time  `json:"createdAt"`
	LastTriggeredAt *time.Time `json:"lastTriggeredAt,omitempty"`
	TimesTriggered  int64      `json:"timesTriggered"`
}

// AppliesToItem reports whether the rule covers the given item, either
// because its applicability set is empty (all items) or because the set
// contains the item's ID or one of its category tags.
func (r *Rule) AppliesToItem(item PricedItem) bool {
	if len(r.AppliesTo) == 0 {
		return true
	}
	for _, target := range r.AppliesTo {
		if target == item.ID {
			return true
		}
		for _, tag := range item.CategoryTags {
			if target == tag {
				return true
			}
		}
	}
	return false
}

// ContextSnapshot is the ambient state one evaluation call runs against.
// It is assembled by the caller from occupancy/weather feeds; this package
// only reads it.
type ContextSnapshot struct {
	// Now carries the timezone offset used for time-based triggers.
	Now          time.Time `json:"now"`
	OccupancyPct float64   `json:"occupancyPct"`
	OrderVolume  int       `json:"orderVolume"`

	// WeatherCondition is empty when no weather feed is available.
	WeatherCondition string `json:"weatherCondition,omitempty"`

	// TemperatureF is nil when no reading is available; weather rules with
	// temperature bounds fail closed in that case.
	TemperatureF *float64 `json:"temperatureF,omitempty"`
}

// PricedItem is one catalog entry with its current base price.
type PricedItem struct {
	ID           string          `json:"id"`
	CategoryTags []string        `json:"categoryTags,omitempty"`
	BasePrice    decimal.Decimal `json:"basePrice"`
}

// TrailStep records the effect of a single rule during composition.
// Prices are the unrounded running values; rounding happens once at the end.
type TrailStep struct {
	RuleID      string          `json:"ruleId"`
	PriceBefore decimal.Decimal `json:"priceBefore"`
	PriceAfter  decimal.Decimal `json:"priceAfter"`
	Clamped     bool            `json:"clamped,omitempty"`
}

// ItemPreview is the per-item result of a simulation run.
type ItemPreview struct {
	ItemID        string          `json:"itemId"`
	OriginalPrice decimal.Decimal `json:"originalPrice"`
	AdjustedPrice decimal.Decimal `json:"adjustedPrice"`
	ChangePct     decimal.Decimal `json:"changePct"`
	Trail         []TrailStep     `json:"trail"`
}
