package webhook

import (
	"fmt"
	"regexp"
)

// propPattern matches ${name} placeholders; names are alphanumeric
// plus underscore, starting with a letter or underscore.
var propPattern = regexp.MustCompile(`\$\{([a-zA-Z_][a-zA-Z0-9_]*)\}`)

// expand replaces ${name} placeholders in s with values from vars.
// Unknown names are kept as-is, so a typo shows up verbatim in the
// delivered request instead of vanishing silently.
func expand(s string, vars map[string]any) string {
	if s == "" {
		return s
	}
	return propPattern.ReplaceAllStringFunc(s, func(match string) string {
		name := match[2 : len(match)-1]
		if val, ok := vars[name]; ok {
			return fmt.Sprintf("%v", val)
		}
		return match
	})
}
