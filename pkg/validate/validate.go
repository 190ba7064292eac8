// Package validate performs static validation and auto-correction of
// CadQuery scripts before they are handed to the executor. It catches
// hallucinated methods, common typos, and geometry patterns known to fail.
package validate

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"cadforge/pkg/logx"
)

// Result is the outcome of one validation pass. Errors block execution;
// warnings ride along as advice. CorrectedCode is empty when no
// auto-correction was applied.
type Result struct {
	Valid         bool     `json:"is_valid"`
	Errors        []string `json:"errors"`
	Warnings      []string `json:"warnings"`
	CorrectedCode string   `json:"corrected_code,omitempty"`
}

type correction struct {
	pattern     *regexp.Regexp
	replacement string
	display     string
}

// Known bad spellings and their fixes, applied in order.
var corrections = []correction{
	{regexp.MustCompile(`\.add\(`), ".union(", ".add("},
	{regexp.MustCompile(`\.subtract\(`), ".cut(", ".subtract("},
	{regexp.MustCompile(`\.fillett\(`), ".fillet(", ".fillett("},
	{regexp.MustCompile(`\.champher\(`), ".chamfer(", ".champher("},
	{regexp.MustCompile(`\.exturde\(`), ".extrude(", ".exturde("},
	{regexp.MustCompile(`from cadquery import \*`), "import cadquery as cq", "from cadquery import *"},
	{regexp.MustCompile(`import CadQuery`), "import cadquery as cq", "import CadQuery"},
}

// Method names models hallucinate that do not exist in CadQuery.
var invalidMethods = []string{
	"addSolid", "createBox", "makeBox", "createCylinder", "makeCyl",
	"addShape", "appendShape", "combineWith", "subtractFrom",
	"moveBy", "scaleBy", "rotateBy", "mirrorBy",
}

var (
	resultVarPattern     = regexp.MustCompile(`(?m)^result\s*=`)
	filletRadiusPattern  = regexp.MustCompile(`\.fillet\((\d+(?:\.\d+)?)\)`)
	shellAtEOLPattern    = regexp.MustCompile(`(?m)\.shell\([^)]+\)[ \t]*$`)
	cylinderEdgesPattern = regexp.MustCompile(`\.edges\("\|Z"\)\s*\.(?:fillet|chamfer)\(`)
)

// Validator validates and corrects CadQuery code before execution.
type Validator struct {
	logger *logx.Logger
}

// New creates a validator.
func New() *Validator {
	return &Validator{logger: logx.NewLogger("validate")}
}

// Validate runs all checks over the script and returns errors, warnings,
// and the auto-corrected code when any correction fired.
func (v *Validator) Validate(code string) Result {
	var errors, warnings []string
	corrected := code

	if !strings.Contains(code, "import cadquery") && !strings.Contains(code, "from cadquery") {
		errors = append(errors, "Missing CadQuery import statement")
		corrected = "import cadquery as cq\n\n" + corrected
	}

	if !resultVarPattern.MatchString(code) {
		errors = append(errors, "Code does not define 'result' variable")
	}

	if syntaxErr := checkSyntax(code); syntaxErr != "" {
		errors = append(errors, "Syntax error: "+syntaxErr)
	}

	for _, method := range invalidMethods {
		if strings.Contains(code, "."+method+"(") {
			errors = append(errors, fmt.Sprintf("Invalid method '%s' - this does not exist in CadQuery", method))
		}
	}

	for _, c := range corrections {
		if c.pattern.MatchString(corrected) {
			warnings = append(warnings, fmt.Sprintf("Auto-corrected: %s -> %s", c.display, c.replacement))
			corrected = c.pattern.ReplaceAllString(corrected, c.replacement)
		}
	}

	warnings = append(warnings, checkAntipatterns(code)...)
	errors = append(errors, checkCylinderFillet(code)...)
	if w := checkFilletShellOrder(code); w != "" {
		warnings = append(warnings, w)
	}

	res := Result{
		Valid:    len(errors) == 0,
		Errors:   errors,
		Warnings: warnings,
	}
	if corrected != code {
		res.CorrectedCode = corrected
	}

	if !res.Valid {
		v.logger.Debug("validation failed: %s", strings.Join(errors, "; "))
	}
	return res
}

// checkAntipatterns flags geometry constructs that frequently fail at
// execution time without being outright invalid.
func checkAntipatterns(code string) []string {
	var warnings []string

	if m := filletRadiusPattern.FindStringSubmatch(code); m != nil {
		if radius, err := strconv.ParseFloat(m[1], 64); err == nil && radius > 10 {
			warnings = append(warnings, fmt.Sprintf("Large fillet radius (%vmm) may cause errors - consider reducing", radius))
		}
	}

	if strings.Contains(code, ".loft(") {
		warnings = append(warnings, "loft() can be unreliable - ensure sections are compatible")
	}
	if strings.Contains(code, ".sweep(") {
		warnings = append(warnings, "sweep() can fail on complex paths - test carefully")
	}

	if shellAtEOLPattern.MatchString(code) {
		if idx := strings.Index(code, ".shell("); idx != -1 && !strings.Contains(code[:idx], ".faces(") {
			warnings = append(warnings, "shell() without face selection may give unexpected results")
		}
	}

	return warnings
}

// checkCylinderFillet catches the classic selector mistake: cylinders have
// no vertical edges, so |Z selections followed by fillet or chamfer always
// fail at execution time.
func checkCylinderFillet(code string) []string {
	var errors []string
	if strings.Contains(code, ".cylinder(") && strings.Contains(code, `.edges("|Z")`) {
		if cylinderEdgesPattern.MatchString(code) {
			errors = append(errors,
				`Cannot use .edges("|Z") on cylinders - they have no vertical edges. `+
					`Use .edges(">Z") or .edges("<Z") for top/bottom edges instead.`)
		}
	}
	return errors
}

func checkFilletShellOrder(code string) string {
	shellPos := strings.Index(code, ".shell(")
	filletPos := strings.LastIndex(code, ".fillet(")
	if shellPos != -1 && filletPos != -1 && filletPos > shellPos {
		return "fillet() applied after shell() - this often fails. Consider applying fillet before shell."
	}
	return ""
}

// FixSuggestions returns remediation advice for an execution error message.
func (v *Validator) FixSuggestions(errorMessage string) []string {
	lower := strings.ToLower(errorMessage)

	switch {
	case strings.Contains(lower, "brep_api: command not done"):
		return []string{
			"Simplify the geometry - avoid complex loft/sweep operations",
			"Build shapes separately and combine with .union()",
			"Check that boolean operations (cut/union) involve intersecting shapes",
			"Reduce fillet/chamfer radii",
			"For organic shapes, use simple primitives (spheres, cylinders, boxes) combined",
		}
	case strings.Contains(lower, "no suitable edges") || strings.Contains(lower, "fillet"):
		return []string{
			`Check edge selector - .edges("|Z") doesn't work on cylinders`,
			"Reduce fillet radius - must be smaller than wall thickness",
			"Apply fillet BEFORE shell, not after",
			`Try .edges(">Z or <Z") for top/bottom edges`,
			"Consider removing fillet entirely for reliability",
		}
	case strings.Contains(lower, "shell"):
		return []string{
			"Reduce shell thickness - must be less than smallest dimension / 2",
			`Select a face to remove: .faces(">Z").shell(-thickness)`,
			"Apply fillets BEFORE shell operation",
			"Simplify the base shape first",
		}
	case strings.Contains(lower, "syntax"):
		return []string{
			"Check parentheses matching",
			"Verify method chaining syntax",
			"Check for missing commas in function arguments",
		}
	case strings.Contains(lower, "attribute"):
		return []string{
			"Verify the method name exists in CadQuery",
			"Check CadQuery documentation for correct method",
			"Ensure you're calling methods on the right object type",
		}
	}
	return nil
}
