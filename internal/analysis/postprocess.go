package analysis

import (
	"math"
	"strconv"
	"strings"

	"github.com/planvector/drawing-cli/internal/estimate"
)

// isSentinel reports whether a leaf value means "missing". Only exact
// matches count; a legitimate string containing "null" is data.
func isSentinel(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	if !ok {
		return false
	}
	switch s {
	case "", "N/A", "undefined", "null":
		return true
	}
	return false
}

// ReplaceNAValues returns a deep copy of the analysis with every missing
// leaf replaced by a key-appropriate estimate. Estimates are concrete
// values, never sentinels, so a second pass over the output is a no-op.
func ReplaceNAValues(result map[string]any, est estimate.Estimator) map[string]any {
	out := make(map[string]any, len(result))
	for k, v := range result {
		out[k] = replaceLeaf(k, v, est)
	}
	return out
}

// replaceLeaf walks the value tree. Elements of an array inherit the
// array's key for estimation purposes.
func replaceLeaf(key string, v any, est estimate.Estimator) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = replaceLeaf(k, inner, est)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = replaceLeaf(key, inner, est)
		}
		return out
	default:
		if isSentinel(v) {
			return estimateFor(key, est)
		}
		return v
	}
}

// estimateFor picks a replacement by key name. Dimension keys are checked
// before area so that a key like "length_of_area_boundary" reads as a
// dimension.
func estimateFor(key string, est estimate.Estimator) any {
	k := strings.ToLower(key)
	switch {
	case strings.Contains(k, "length"), strings.Contains(k, "width"), strings.Contains(k, "height"):
		return est.Dimension()
	case strings.Contains(k, "area"):
		return est.Area()
	case strings.Contains(k, "thickness"):
		return est.Thickness()
	case strings.Contains(k, "quantity"):
		return est.Quantity()
	default:
		return "Estimated Value"
	}
}

// ReplaceZeroMaterialValues returns a copy of the materials map with zero,
// empty, or non-numeric quantities recomputed as floor area times the
// material's rate. Keys with no rates entry are left untouched.
func ReplaceZeroMaterialValues(materials, result map[string]any, rates *estimate.Rates) map[string]any {
	area := rates.ParseArea(internalFloorArea(result))
	out := make(map[string]any, len(materials))
	for k, v := range materials {
		out[k] = replaceZero(k, v, area, rates)
	}
	return out
}

func replaceZero(key string, v any, area float64, rates *estimate.Rates) any {
	switch t := v.(type) {
	case map[string]any:
		out := make(map[string]any, len(t))
		for k, inner := range t {
			out[k] = replaceZero(k, inner, area, rates)
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i, inner := range t {
			out[i] = replaceZero(key, inner, area, rates)
		}
		return out
	default:
		if !isZeroQuantity(v) {
			return v
		}
		mul, ok := rates.MultiplierFor(key)
		if !ok {
			return v
		}
		return math.Round(area*mul*100) / 100
	}
}

// isZeroQuantity reports whether a leaf fails as a usable quantity: zero,
// nil, a sentinel, or a string without a leading positive number. Strings
// like "70 bags" keep their value.
func isZeroQuantity(v any) bool {
	switch t := v.(type) {
	case nil:
		return true
	case float64:
		return t == 0
	case int:
		return t == 0
	case string:
		if isSentinel(t) {
			return true
		}
		n, ok := leadingNumber(strings.TrimSpace(t))
		return !ok || n == 0
	default:
		return false
	}
}

// leadingNumber parses the number an area or quantity string starts with.
func leadingNumber(s string) (float64, bool) {
	end := 0
	seenDot := false
	for end < len(s) {
		c := s[end]
		if c >= '0' && c <= '9' {
			end++
			continue
		}
		if c == '.' && !seenDot && end > 0 {
			seenDot = true
			end++
			continue
		}
		break
	}
	if end == 0 {
		return 0, false
	}
	v, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return v, true
}

// internalFloorArea digs out building_analysis.total_floor_area.internal,
// the figure material quantities scale from.
func internalFloorArea(result map[string]any) string {
	ba, ok := result["building_analysis"].(map[string]any)
	if !ok {
		return ""
	}
	tfa, ok := ba["total_floor_area"].(map[string]any)
	if !ok {
		return ""
	}
	switch v := tfa["internal"].(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	}
	return ""
}
