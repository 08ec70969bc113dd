package tree

import (
	"encoding/json"
	"math"
	"sort"
	"strings"

	"github.com/spf13/cast"
)

// numericFields are props that must hold numbers even when the editor sends
// them as text.
var numericFields = map[string]struct{}{
	"minItems":          {},
	"maxItems":          {},
	"desktopItems":      {},
	"tabletItems":       {},
	"mobileItems":       {},
	"columns":           {},
	"gap":               {},
	"animationDuration": {},
	"animationDelay":    {},
	"parallax":          {},
	"hoverScale":        {},
	"hoverOpacity":      {},
	"staggerChildren":   {},
	"zIndex":            {},
}

// IsNumericField reports whether key is coerced to a number on update.
func IsNumericField(key string) bool {
	_, ok := numericFields[key]
	return ok
}

// NormalizePatch returns a copy of patch with numeric fields coerced to
// float64, plus the sorted keys whose values could not be coerced. Dropped
// keys are absent from the returned patch.
func NormalizePatch(patch map[string]any) (map[string]any, []string) {
	out := make(map[string]any, len(patch))
	var dropped []string
	for k, v := range patch {
		if !IsNumericField(k) || v == nil {
			out[k] = v
			continue
		}
		n, ok := coerceNumber(v)
		if !ok {
			dropped = append(dropped, k)
			continue
		}
		out[k] = n
	}
	sort.Strings(dropped)
	return out, dropped
}

func coerceNumber(v any) (float64, bool) {
	switch val := v.(type) {
	case bool:
		return 0, false
	case string:
		s := strings.TrimSpace(val)
		if s == "" {
			return 0, false
		}
		v = s
	case json.Number:
		v = val.String()
	}
	n, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(n) || math.IsInf(n, 0) {
		return 0, false
	}
	return n, true
}
