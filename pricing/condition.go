package pricing

import (
	"encoding/json"
	"fmt"
	"time"
)

// ConditionKind discriminates the trigger variants on the wire.
type ConditionKind string

const (
	ConditionTimeBased    ConditionKind = "time_based"
	ConditionDemandBased  ConditionKind = "demand_based"
	ConditionWeatherBased ConditionKind = "weather_based"
	ConditionExpression   ConditionKind = "expression"
)

// Condition is a rule trigger. Exactly one variant backs each rule; the
// evaluator switches on the concrete type, so callers never inspect
// optional fields to guess which kind they hold.
type Condition interface {
	Kind() ConditionKind
}

// TimeBasedCondition matches when the evaluation clock falls on one of the
// listed days inside [StartTime, EndTime). Times are "HH:MM" local-clock
// strings; a window with EndTime before StartTime wraps past midnight.
type TimeBasedCondition struct {
	// DaysOfWeek uses 0=Sunday through 6=Saturday. Empty never matches.
	DaysOfWeek []int  `json:"daysOfWeek"`
	StartTime  string `json:"startTime"`
	EndTime    string `json:"endTime"`
}

func (TimeBasedCondition) Kind() ConditionKind { return ConditionTimeBased }

// DemandBasedCondition matches when every present bound holds. Nil bounds
// are unconstrained; a condition with no bounds at all never matches.
type DemandBasedCondition struct {
	OccupancyMin         *float64 `json:"occupancyMin,omitempty"`
	OccupancyMax         *float64 `json:"occupancyMax,omitempty"`
	OrderVolumeThreshold *int     `json:"orderVolumeThreshold,omitempty"`
}

func (DemandBasedCondition) Kind() ConditionKind { return ConditionDemandBased }

// WeatherBasedCondition matches when every present bound holds. The
// condition string compares case-insensitively; temperature bounds are
// inclusive and fail closed when the snapshot has no reading.
type WeatherBasedCondition struct {
	Condition string   `json:"condition,omitempty"`
	TempMin   *float64 `json:"tempMin,omitempty"`
	TempMax   *float64 `json:"tempMax,omitempty"`
}

func (WeatherBasedCondition) Kind() ConditionKind { return ConditionWeatherBased }

// ExpressionCondition matches when its CEL expression evaluates to true
// against the context snapshot. The expression sees `occupancy`,
// `orderVolume`, `weather`, `temperature`, `hasTemperature` and `now`.
// Anything that fails to compile, errors at runtime, or yields a non-bool
// never matches.
type ExpressionCondition struct {
	Expr string `json:"expr"`
}

func (ExpressionCondition) Kind() ConditionKind { return ConditionExpression }

// conditionEnvelope is the wire form: the variant's own fields plus a
// "kind" discriminator.
type conditionEnvelope struct {
	Kind ConditionKind `json:"kind"`
}

// MarshalCondition encodes a condition with its kind discriminator.
func MarshalCondition(c Condition) ([]byte, error) {
	if c == nil {
		return []byte("null"), nil
	}

	body, err := json.Marshal(c)
	if err != nil {
		return nil, err
	}

	// Splice the discriminator into the variant's own object.
	var fields map[string]json.RawMessage
	if err := json.Unmarshal(body, &fields); err != nil {
		return nil, err
	}
	fields["kind"], err = json.Marshal(c.Kind())
	if err != nil {
		return nil, err
	}
	return json.Marshal(fields)
}

// UnmarshalCondition decodes a condition from its tagged wire form.
func UnmarshalCondition(data []byte) (Condition, error) {
	var env conditionEnvelope
	if err := json.Unmarshal(data, &env); err != nil {
		return nil, fmt.Errorf("invalid condition: %w", err)
	}

	switch env.Kind {
	case ConditionTimeBased:
		var c TimeBasedCondition
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("invalid time_based condition: %w", err)
		}
		return c, nil
	case ConditionDemandBased:
		var c DemandBasedCondition
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("invalid demand_based condition: %w", err)
		}
		return c, nil
	case ConditionWeatherBased:
		var c WeatherBasedCondition
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("invalid weather_based condition: %w", err)
		}
		return c, nil
	case ConditionExpression:
		var c ExpressionCondition
		if err := json.Unmarshal(data, &c); err != nil {
			return nil, fmt.Errorf("invalid expression condition: %w", err)
		}
		return c, nil
	default:
		return nil, fmt.Errorf("unknown condition kind %q", env.Kind)
	}
}

// ruleJSON mirrors Rule with the trigger held as raw JSON so the tagged
// union can round-trip through the standard encoder.
type ruleJSON struct {
	ID              string          `json:"id"`
	Name            string          `json:"name"`
	Description     string          `json:"description,omitempty"`
	Trigger         json.RawMessage `json:"trigger"`
	Adjustment      Adjustment      `json:"adjustment"`
	AppliesTo       []string        `json:"appliesTo,omitempty"`
	Priority        int             `json:"priority"`
	Status          Status          `json:"status"`
	CreatedAt       time.Time       `json:"createdAt"`
	LastTriggeredAt *time.Time      `json:"lastTriggeredAt,omitempty"`
	TimesTriggered  int64           `json:"timesTriggered"`
}

// MarshalJSON encodes the rule including its tagged trigger.
func (r Rule) MarshalJSON() ([]byte, error) {
	trigger, err := MarshalCondition(r.Trigger)
	if err != nil {
		return nil, fmt.Errorf("marshal trigger for rule %s: %w", r.ID, err)
	}

	out := ruleJSON{
		ID:              r.ID,
		Name:            r.Name,
		Description:     r.Description,
		Trigger:         trigger,
		Adjustment:      r.Adjustment,
		AppliesTo:       r.AppliesTo,
		Priority:        r.Priority,
		Status:          r.Status,
		CreatedAt:       r.CreatedAt,
		LastTriggeredAt: r.LastTriggeredAt,
		TimesTriggered:  r.TimesTriggered,
	}
	return json.Marshal(out)
}

// UnmarshalJSON decodes the rule, dispatching the trigger by kind.
func (r *Rule) UnmarshalJSON(data []byte) error {
	var in ruleJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return err
	}

	var trigger Condition
	if len(in.Trigger) > 0 && string(in.Trigger) != "null" {
		var err error
		trigger, err = UnmarshalCondition(in.Trigger)
		if err != nil {
			return err
		}
	}

	r.ID = in.ID
	r.Name = in.Name
	r.Description = in.Description
	r.Trigger = trigger
	r.Adjustment = in.Adjustment
	r.AppliesTo = in.AppliesTo
	r.Priority = in.Priority
	r.Status = in.Status
	r.CreatedAt = in.CreatedAt
	r.LastTriggeredAt = in.LastTriggeredAt
	r.TimesTriggered = in.TimesTriggered
	return nil
}
