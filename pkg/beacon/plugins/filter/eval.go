package filter

import (
	"encoding/json"
	"fmt"
	"strings"
)

// eval evaluates a boolean expression against the variable map.
//
// Grammar, loosest binding first: "or", "and", "not"/"!" prefix, then
// a single comparison or a bare term checked for truthiness. No
// parentheses; and/or split on the first occurrence, so chains
// associate to the right.
func eval(expr string, vars map[string]any) bool {
	expr = strings.TrimSpace(expr)
	if expr == "" {
		return false
	}

	if parts := strings.SplitN(expr, " or ", 2); len(parts) == 2 {
		return eval(parts[0], vars) || eval(parts[1], vars)
	}
	if parts := strings.SplitN(expr, " and ", 2); len(parts) == 2 {
		return eval(parts[0], vars) && eval(parts[1], vars)
	}
	if rest, ok := strings.CutPrefix(expr, "not "); ok {
		return !eval(rest, vars)
	}
	if rest, ok := strings.CutPrefix(expr, "!"); ok {
		return !eval(rest, vars)
	}

	// longer operators first so ">=" is not split as ">"
	for _, op := range []string{"==", "!=", ">=", "<=", ">", "<", " contains "} {
		parts := strings.SplitN(expr, op, 2)
		if len(parts) != 2 {
			continue
		}
		left := resolveTerm(parts[0], vars)
		right := resolveTerm(parts[1], vars)
		return compare(op, left, right)
	}

	// bare term: a variable's value, or a literal. An identifier with
	// no matching variable is false, so `vip` cannot match events that
	// never set the property.
	if val, ok := vars[expr]; ok {
		return truthy(val)
	}
	val := resolveTerm(expr, vars)
	if s, ok := val.(string); ok && s == expr {
		return false
	}
	return truthy(val)
}

// compare applies a binary operator. Equality compares formatted
// values; ordering compares numerically.
func compare(op string, left, right any) bool {
	switch op {
	case "==":
		return format(left) == format(right)
	case "!=":
		return format(left) != format(right)
	case ">=":
		return asFloat(left) >= asFloat(right)
	case "<=":
		return asFloat(left) <= asFloat(right)
	case ">":
		return asFloat(left) > asFloat(right)
	case "<":
		return asFloat(left) < asFloat(right)
	case " contains ":
		return strings.Contains(format(left), format(right))
	}
	return false
}

// resolveTerm turns one side of a comparison into a value: a quoted
// string, a bool/null/number literal, a variable reference, or the
// bare text itself.
func resolveTerm(s string, vars map[string]any) any {
	s = strings.TrimSpace(s)
	if s == "" {
		return ""
	}

	if len(s) >= 2 {
		if (s[0] == '\'' && s[len(s)-1] == '\'') || (s[0] == '"' && s[len(s)-1] == '"') {
			return s[1 : len(s)-1]
		}
	}

	switch strings.ToLower(s) {
	case "true":
		return true
	case "false":
		return false
	case "null", "nil":
		return nil
	}

	var num json.Number
	if err := json.Unmarshal([]byte(s), &num); err == nil {
		if i, err := num.Int64(); err == nil {
			return i
		}
		if f, err := num.Float64(); err == nil {
			return f
		}
	}

	if val, ok := vars[s]; ok {
		return val
	}
	return s
}

// truthy reports whether a value counts as true on its own: nil,
// false, empty strings, and zero numbers do not.
func truthy(v any) bool {
	switch val := v.(type) {
	case nil:
		return false
	case bool:
		return val
	case string:
		return val != ""
	case int:
		return val != 0
	case int64:
		return val != 0
	case float64:
		return val != 0
	default:
		return true
	}
}

// format renders a value for string comparison.
func format(v any) string {
	return fmt.Sprintf("%v", v)
}

// asFloat coerces a value for numeric comparison; non-numeric values
// compare as zero.
func asFloat(v any) float64 {
	switch val := v.(type) {
	case float64:
		return val
	case float32:
		return float64(val)
	case int:
		return float64(val)
	case int64:
		return float64(val)
	case string:
		var f float64
		_, _ = fmt.Sscanf(val, "%f", &f)
		return f
	default:
		return 0
	}
}
