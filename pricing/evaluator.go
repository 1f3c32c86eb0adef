package pricing

import (
	"strconv"
	"strings"
)

// Evaluate reports whether a condition matches the given context snapshot.
// It is pure and total: malformed or degenerate conditions and unknown
// variants simply never match, they do not error.
func Evaluate(cond Condition, ctx ContextSnapshot) bool {
	switch c := cond.(type) {
	case TimeBasedCondition:
		return evaluateTimeBased(c, ctx)
	case DemandBasedCondition:
		return evaluateDemandBased(c, ctx)
	case WeatherBasedCondition:
		return evaluateWeatherBased(c, ctx)
	case ExpressionCondition:
		return evaluateExpression(c, ctx)
	default:
		// Unrecognized variants are treated as disabled rather than erroring.
		return false
	}
}

func evaluateTimeBased(c TimeBasedCondition, ctx ContextSnapshot) bool {
	// An empty day set means the rule is effectively disabled, not "always on".
	if len(c.DaysOfWeek) == 0 {
		return false
	}

	start, ok := parseClock(c.StartTime)
	if !ok {
		return false
	}
	end, ok := parseClock(c.EndTime)
	if !ok {
		return false
	}
	if start == end {
		// Zero-width window.
		return false
	}

	day := int(ctx.Now.Weekday())
	dayMatched := false
	for _, d := range c.DaysOfWeek {
		if d == day {
			dayMatched = true
			break
		}
	}
	if !dayMatched {
		return false
	}

	minute := ctx.Now.Hour()*60 + ctx.Now.Minute()
	if end < start {
		// Window wraps past midnight, e.g. 22:00-02:00.
		return minute >= start || minute < end
	}
	return minute >= start && minute < end
}

func evaluateDemandBased(c DemandBasedCondition, ctx ContextSnapshot) bool {
	if c.OccupancyMin == nil && c.OccupancyMax == nil && c.OrderVolumeThreshold == nil {
		return false
	}
	if c.OccupancyMin != nil && ctx.OccupancyPct < *c.OccupancyMin {
		return false
	}
	if c.OccupancyMax != nil && ctx.OccupancyPct > *c.OccupancyMax {
		return false
	}
	if c.OrderVolumeThreshold != nil && ctx.OrderVolume < *c.OrderVolumeThreshold {
		return false
	}
	return true
}

func evaluateWeatherBased(c WeatherBasedCondition, ctx ContextSnapshot) bool {
	if c.Condition == "" && c.TempMin == nil && c.TempMax == nil {
		return false
	}
	if c.Condition != "" && !strings.EqualFold(c.Condition, ctx.WeatherCondition) {
		return false
	}
	if c.TempMin != nil || c.TempMax != nil {
		// No temperature reading: fail closed.
		if ctx.TemperatureF == nil {
			return false
		}
		if c.TempMin != nil && *ctx.TemperatureF < *c.TempMin {
			return false
		}
		if c.TempMax != nil && *ctx.TemperatureF > *c.TempMax {
			return false
		}
	}
	return true
}

// parseClock converts an "HH:MM" local-clock string to a minute-of-day.
func parseClock(s string) (int, bool) {
	hh, mm, ok := strings.Cut(s, ":")
	if !ok {
		return 0, false
	}
	h, err := strconv.Atoi(hh)
	if err != nil || h < 0 || h > 23 {
		return 0, false
	}
	m, err := strconv.Atoi(mm)
	if err != nil || m < 0 || m > 59 {
		return 0, false
	}
	return h*60 + m, true
}
