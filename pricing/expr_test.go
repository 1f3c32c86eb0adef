package pricing

import (
	"fmt"
	"testing"
	"time"
)

// TestEvaluateExpression verifies CEL triggers see the snapshot fields
// and match only on a true boolean result.
func TestEvaluateExpression(t *testing.T) {
	ctx := ContextSnapshot{
		Now:              time.Date(2026, 1, 6, 12, 0, 0, 0, time.UTC),
		OccupancyPct:     85,
		OrderVolume:      40,
		WeatherCondition: "rainy",
		TemperatureF:     fptr(45),
	}

	testCases := []struct {
		name string
		expr string
		want bool
	}{
		{"Occupancy comparison", `occupancy > 80.0`, true},
		{"Occupancy comparison false", `occupancy > 90.0`, false},
		{"Order volume", `orderVolume >= 40`, true},
		{"Weather equality", `weather == "rainy"`, true},
		{"Temperature with guard", `hasTemperature && temperature < 50.0`, true},
		{"Combined rainy rush", `occupancy > 80.0 && weather == "rainy" && orderVolume > 30`, true},
		{"Timestamp access", `now.getHours() >= 0`, true},
		{"Non-boolean result never matches", `occupancy`, false},
		{"Empty expression never matches", ``, false},
		{"Whitespace expression never matches", `   `, false},
		{"Syntax error never matches", `occupancy >=`, false},
		{"Unknown variable never matches", `tableCount > 5`, false},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			got := Evaluate(ExpressionCondition{Expr: tc.expr}, ctx)
			if got != tc.want {
				t.Errorf("Evaluate(%q) = %v, want %v", tc.expr, got, tc.want)
			}
		})
	}
}

// TestEvaluateExpressionMissingTemperature verifies the hasTemperature
// guard lets expressions fail closed like the structured weather variant.
func TestEvaluateExpressionMissingTemperature(t *testing.T) {
	ctx := ContextSnapshot{OccupancyPct: 85}

	if Evaluate(ExpressionCondition{Expr: `hasTemperature && temperature > 0.0`}, ctx) {
		t.Error("temperature-guarded expression should not match without a reading")
	}
}

// TestCompileExpression verifies validation-time compilation errors.
func TestCompileExpression(t *testing.T) {
	if err := CompileExpression(`occupancy > 80.0`); err != nil {
		t.Errorf("valid expression failed to compile: %v", err)
	}
	if err := CompileExpression(`occupancy >=`); err == nil {
		t.Error("syntax error should fail compilation")
	}
	if err := CompileExpression(`noSuchVar == 1`); err == nil {
		t.Error("undeclared variable should fail compilation")
	}
}

// TestExpressionProgramCache verifies recompilation is skipped for a
// previously seen expression.
func TestExpressionProgramCache(t *testing.T) {
	expr := `occupancy > 42.0`
	if err := CompileExpression(expr); err != nil {
		t.Fatalf("compile failed: %v", err)
	}

	exprMu.RLock()
	_, cached := exprPrograms[expr]
	exprMu.RUnlock()

	if !cached {
		t.Error("compiled program should be cached")
	}
}

// TestExpressionProgramCacheBounded verifies the cache never exceeds its
// cap no matter how many distinct expressions get compiled, so repeated
// draft validation cannot grow it for the life of the process.
func TestExpressionProgramCacheBounded(t *testing.T) {
	for i := 0; i < maxCachedPrograms+50; i++ {
		if err := CompileExpression(fmt.Sprintf("occupancy > %d.0", i)); err != nil {
			t.Fatalf("compile failed: %v", err)
		}
	}

	exprMu.RLock()
	size := len(exprPrograms)
	exprMu.RUnlock()

	if size > maxCachedPrograms {
		t.Errorf("cache holds %d programs, want at most %d", size, maxCachedPrograms)
	}
	if size == 0 {
		t.Error("cache should still hold recently compiled programs")
	}
}
