// Package params extracts editable dimension parameters from the preamble
// of a CadQuery script and injects updated values back without disturbing
// the rest of the code.
package params

import (
	"fmt"
	"regexp"
	"sort"
	"strconv"
	"strings"
)

// Parameter is one numeric assignment from the script preamble.
type Parameter struct {
	Name  string  `json:"name"`
	Value float64 `json:"value"`
	Unit  string  `json:"unit"`
	Line  int     `json:"line"` // 1-based
}

// Variable names that carry dimensions in generated scripts.
var dimensionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)^(length|width|height|depth|thickness|diameter|radius)$`),
	regexp.MustCompile(`(?i)^(x|y|z)_?(size|dim|length|width)?$`),
	regexp.MustCompile(`(?i)^(hole|slot|groove)_?(diameter|radius|width|depth|size)?$`),
	regexp.MustCompile(`(?i)^(wall|edge|corner|fillet|chamfer|bevel)_?(thickness|radius|size)?$`),
	regexp.MustCompile(`(?i)^(margin|offset|spacing|gap|clearance)$`),
	regexp.MustCompile(`(?i)^(inner|outer)_?(diameter|radius|width|height)?$`),
	regexp.MustCompile(`(?i)^.*(length|width|height|depth|thickness|diameter|radius|size|mm|cm)$`),
	regexp.MustCompile(`(?i)^(min|max|total|base|top|bottom|left|right|front|back)_`),
}

// Names that are never dimensions even when assigned numbers.
var skipNames = map[string]bool{
	"result": true, "cq": true, "workplane": true, "shape": true,
	"model": true, "part": true, "i": true, "j": true, "n": true, "count": true,
}

var (
	numericAssignPattern = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=\s*(-?\d+(?:\.\d+)?)\s*(#.*)?$`)
	anyAssignPattern     = regexp.MustCompile(`^([A-Za-z_][A-Za-z0-9_]*)\s*=`)
	importPattern        = regexp.MustCompile(`^(import\s|from\s)`)
	valueInLinePattern   = `^(\s*%s\s*=\s*)[\d.\-]+`
)

// Extract returns the numeric dimension parameters assigned at the top of
// the script. Scanning stops at the first statement that is neither an
// assignment, an import, nor a docstring, which is normally the start of
// the CadQuery chain.
func Extract(code string) []Parameter {
	var parameters []Parameter

	scanPreamble(code, func(lineno int, name, literal string) {
		if !isDimensionName(name) {
			return
		}
		value, err := strconv.ParseFloat(literal, 64)
		if err != nil {
			return
		}
		parameters = append(parameters, Parameter{
			Name:  name,
			Value: value,
			Unit:  "mm",
			Line:  lineno,
		})
	})

	return parameters
}

// scanPreamble walks top-level lines until the preamble ends, calling fn
// for every simple numeric assignment.
func scanPreamble(code string, fn func(lineno int, name, literal string)) {
	lines := strings.Split(code, "\n")
	inDocstring := false
	var docDelim string

	for idx, raw := range lines {
		line := strings.TrimRight(raw, " \t")
		trimmed := strings.TrimSpace(line)

		if inDocstring {
			if strings.Contains(trimmed, docDelim) {
				inDocstring = false
			}
			continue
		}

		if trimmed == "" || strings.HasPrefix(trimmed, "#") {
			continue
		}
		if importPattern.MatchString(trimmed) {
			continue
		}
		if strings.HasPrefix(trimmed, `"""`) || strings.HasPrefix(trimmed, "'''") {
			docDelim = trimmed[:3]
			if !strings.Contains(trimmed[3:], docDelim) {
				inDocstring = true
			}
			continue
		}

		if m := numericAssignPattern.FindStringSubmatch(trimmed); m != nil {
			fn(idx+1, m[1], m[2])
			continue
		}
		if anyAssignPattern.MatchString(trimmed) {
			// Non-numeric assignment, keep scanning.
			continue
		}

		// First real statement: the preamble is over.
		break
	}
}

func isDimensionName(name string) bool {
	lower := strings.ToLower(name)
	if skipNames[lower] {
		return false
	}
	for _, p := range dimensionPatterns {
		if p.MatchString(lower) {
			return true
		}
	}
	// Short alphabetic names assigned numbers are usually dimensions too.
	if len(lower) <= 20 && isAlpha(lower) {
		return true
	}
	return false
}

func isAlpha(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < 'a' || r > 'z' {
			return false
		}
	}
	return true
}

// Validate checks new parameter values against the accepted range.
func Validate(values map[string]float64) error {
	names := make([]string, 0, len(values))
	for name := range values {
		names = append(names, name)
	}
	sort.Strings(names)

	for _, name := range names {
		value := values[name]
		switch {
		case value <= 0:
			return fmt.Errorf("parameter '%s' must be greater than 0 (current value: %v)", name, value)
		case value < 0.01:
			return fmt.Errorf("parameter '%s' is too small (minimum 0.01mm)", name)
		case value > 10000:
			return fmt.Errorf("parameter '%s' is too large (maximum 10000mm)", name)
		}
	}
	return nil
}

// Inject rewrites preamble assignments with new values, preserving line
// layout and trailing comments. Unknown names are ignored. Whole numbers
// render without a decimal point.
func Inject(code string, newValues map[string]float64) string {
	lines := strings.Split(code, "\n")

	scanPreamble(code, func(lineno int, name, _ string) {
		value, ok := newValues[name]
		if !ok {
			return
		}
		valueStr := FormatValue(value)
		pattern := regexp.MustCompile(fmt.Sprintf(valueInLinePattern, regexp.QuoteMeta(name)))
		lines[lineno-1] = pattern.ReplaceAllString(lines[lineno-1], "${1}"+valueStr)
	})

	return strings.Join(lines, "\n")
}

// FormatValue renders a parameter value the way the scripts write numbers:
// integers without a decimal point, floats in shortest form.
func FormatValue(value float64) string {
	if value == float64(int64(value)) {
		return strconv.FormatInt(int64(value), 10)
	}
	return strconv.FormatFloat(value, 'g', -1, 64)
}
