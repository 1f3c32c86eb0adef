package pricing

import (
	"fmt"
	"strings"
)

// ValidateRule checks a rule at creation/update time. The evaluation core
// itself is total and silently skips malformed rules, so this is where
// admins get actionable errors instead of rules that mysteriously never
// fire.
func ValidateRule(r *Rule) error {
	if strings.TrimSpace(r.Name) == "" {
		return fmt.Errorf("rule name cannot be empty")
	}

	switch r.Status {
	case StatusActive, StatusInactive, StatusDraft:
	default:
		return fmt.Errorf("invalid status %q (must be one of: active, inactive, draft)", r.Status)
	}

	switch r.Adjustment.Kind {
	case AdjustmentPercentage:
		// A percentage at or below -100 would discount past free.
		if r.Adjustment.Value.LessThanOrEqual(oneHundred.Neg()) {
			return fmt.Errorf("percentage adjustment %s must be greater than -100", r.Adjustment.Value)
		}
	case AdjustmentFixed:
	default:
		return fmt.Errorf("invalid adjustment kind %q (must be one of: percentage, fixed)", r.Adjustment.Kind)
	}

	if r.Trigger == nil {
		return fmt.Errorf("rule must have a trigger condition")
	}
	if err := validateCondition(r.Trigger); err != nil {
		return fmt.Errorf("invalid trigger: %w", err)
	}

	return nil
}

func validateCondition(cond Condition) error {
	switch c := cond.(type) {
	case TimeBasedCondition:
		if len(c.DaysOfWeek) == 0 {
			return fmt.Errorf("time_based condition must list at least one day of week")
		}
		for _, d := range c.DaysOfWeek {
			if d < 0 || d > 6 {
				return fmt.Errorf("day of week %d out of range 0-6 (0=Sunday)", d)
			}
		}
		if _, ok := parseClock(c.StartTime); !ok {
			return fmt.Errorf("invalid startTime %q (expected HH:MM)", c.StartTime)
		}
		if _, ok := parseClock(c.EndTime); !ok {
			return fmt.Errorf("invalid endTime %q (expected HH:MM)", c.EndTime)
		}
		return nil

	case DemandBasedCondition:
		if c.OccupancyMin == nil && c.OccupancyMax == nil && c.OrderVolumeThreshold == nil {
			return fmt.Errorf("demand_based condition must set at least one bound")
		}
		if c.OccupancyMin != nil && (*c.OccupancyMin < 0 || *c.OccupancyMin > 100) {
			return fmt.Errorf("occupancyMin %g out of range 0-100", *c.OccupancyMin)
		}
		if c.OccupancyMax != nil && (*c.OccupancyMax < 0 || *c.OccupancyMax > 100) {
			return fmt.Errorf("occupancyMax %g out of range 0-100", *c.OccupancyMax)
		}
		if c.OccupancyMin != nil && c.OccupancyMax != nil && *c.OccupancyMin > *c.OccupancyMax {
			return fmt.Errorf("occupancyMin %g exceeds occupancyMax %g", *c.OccupancyMin, *c.OccupancyMax)
		}
		if c.OrderVolumeThreshold != nil && *c.OrderVolumeThreshold < 0 {
			return fmt.Errorf("orderVolumeThreshold %d cannot be negative", *c.OrderVolumeThreshold)
		}
		return nil

	case WeatherBasedCondition:
		if c.Condition == "" && c.TempMin == nil && c.TempMax == nil {
			return fmt.Errorf("weather_based condition must set a condition or a temperature bound")
		}
		if c.TempMin != nil && c.TempMax != nil && *c.TempMin > *c.TempMax {
			return fmt.Errorf("tempMin %g exceeds tempMax %g", *c.TempMin, *c.TempMax)
		}
		return nil

	case ExpressionCondition:
		if strings.TrimSpace(c.Expr) == "" {
			return fmt.Errorf("expression condition cannot be empty")
		}
		if err := CompileExpression(c.Expr); err != nil {
			return fmt.Errorf("expression does not compile: %w", err)
		}
		return nil

	default:
		return fmt.Errorf("unknown condition kind %q", cond.Kind())
	}
}
