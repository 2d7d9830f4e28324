/*
Copyright 2025 The llm-d Authors

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

	http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package collector

import (
	"math"
	"strings"

	"github.com/spf13/cast"

	"github.com/llm-d/diet-formulator/internal/logging"
)

// ToFloat converts a table cell to a number. Strings may use a decimal comma
// or thousands separators ("1,234.56", "1.234,56", "1,234,567").
// Anything that is not a finite number becomes 0.
func ToFloat(v any) float64 {
	if s, ok := v.(string); ok {
		v = normalizeNumber(s)
	}
	f, err := cast.ToFloat64E(v)
	if err != nil || math.IsNaN(f) || math.IsInf(f, 0) {
		if v != nil && v != "" {
			logging.Logger().V(logging.DEBUG).Info("Coerced non-numeric cell to zero", "value", v)
		}
		return 0
	}
	return f
}

// normalizeNumber rewrites s with a '.' decimal point and no grouping. When
// both separators appear, the last one is the decimal point. A lone comma is
// a decimal comma; repeated commas are grouping.
func normalizeNumber(s string) string {
	s = strings.TrimSpace(s)
	comma, dot := strings.LastIndex(s, ","), strings.LastIndex(s, ".")
	switch {
	case comma < 0:
		return s
	case dot > comma:
		return strings.ReplaceAll(s, ",", "")
	case dot >= 0:
		return strings.Replace(strings.ReplaceAll(s, ".", ""), ",", ".", 1)
	case strings.Count(s, ",") > 1:
		return strings.ReplaceAll(s, ",", "")
	default:
		return strings.Replace(s, ",", ".", 1)
	}
}

// ToName converts a table cell to a trimmed ingredient name.
func ToName(v any) string {
	if v == nil {
		return ""
	}
	return strings.TrimSpace(cast.ToString(v))
}
