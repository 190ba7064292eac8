package agent

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"cadforge/pkg/agent/llm"
	"cadforge/pkg/agent/llmerrors"
	"cadforge/pkg/cadexec"
	"cadforge/pkg/config"
	"cadforge/pkg/logx"
	"cadforge/pkg/metrics"
	"cadforge/pkg/prompts"
	"cadforge/pkg/validate"
)

// ErrInvalidInput is returned when a request carries nothing to design
// from: no prompt, no images, no existing code.
var ErrInvalidInput = errors.New("invalid input: empty prompt with no images or existing code")

// Pipeline stage roles, used for model routing and metrics labels.
const (
	RoleDesign           = "design"
	RoleValidationReview = "validation_review"
	RoleOptimization     = "optimization"
	RoleReview           = "review"
)

// ContextPart references a sibling artifact the generated part must fit
// with.
type ContextPart struct {
	Name string
	Code string
}

// PipelineRequest carries everything one pipeline run needs.
type PipelineRequest struct {
	Prompt       string
	Provider     string
	Model        string // optional; overrides the best model for the design stage
	SessionID    string // optional; labels token metrics
	Images       []llm.Image
	ExistingCode string
	ContextParts []ContextPart
	Optimize     bool
	Review       bool
}

// TraceEntry is one per-stage record of a pipeline run.
type TraceEntry struct {
	Stage   string `json:"stage"`
	Content string `json:"content"`
}

// ReviewResult is the parsed verdict of the review agent.
type ReviewResult struct {
	Score       int      `json:"score"`
	Matches     bool     `json:"matches"`
	Differences []string `json:"differences"`
	Suggestions []string `json:"suggestions"`
}

// PipelineResult is the outcome of a full pipeline run.
type PipelineResult struct {
	Success     bool
	Code        string
	BoundingBox *cadexec.BoundingBox
	Errors      []string
	Warnings    []string
	Suggestions []string
	Iterations  int
	Trace       []TraceEntry
	Review      *ReviewResult
}

// Pipeline orchestrates design, validation, execution, optimization, and
// review stages into one generation run.
type Pipeline struct {
	gateway   *Gateway
	validator *validate.Validator
	executor  cadexec.Executor
	cfg       *config.Config
	recorder  *metrics.Recorder
	logger    *logx.Logger
}

// NewPipeline assembles a pipeline over the gateway and executor.
func NewPipeline(cfg *config.Config, gateway *Gateway, executor cadexec.Executor) *Pipeline {
	return &Pipeline{
		gateway:   gateway,
		validator: validate.New(),
		executor:  executor,
		cfg:       cfg,
		recorder:  metrics.NewRecorder(),
		logger:    logx.NewLogger("pipeline"),
	}
}

// Run executes the full design pipeline. Transient LLM failures during
// the design stage consume an iteration and retry like execution
// failures; only permanent errors abort the run. Exhaustion of the retry
// budget with a still-failing script yields Success=false; optimization
// and review stages degrade to trace notes on failure.
func (p *Pipeline) Run(ctx context.Context, req PipelineRequest) (*PipelineResult, error) {
	if strings.TrimSpace(req.Prompt) == "" && len(req.Images) == 0 && req.ExistingCode == "" {
		return nil, ErrInvalidInput
	}

	res := &PipelineResult{}

	designModel := req.Model
	if designModel == "" {
		designModel = p.cfg.BestModel(req.Provider)
	}
	fastModel := p.cfg.FastModel(req.Provider)

	// Iterations counts design+validate cycles, the first included.
	var pendingErrors []string
	for {
		res.Iterations++
		code, err := p.design(ctx, req, designModel, pendingErrors)
		if err != nil {
			if !llmerrors.IsTransient(err) {
				p.recorder.ObservePipelineRun(false, res.Iterations)
				return nil, fmt.Errorf("design stage failed: %w", err)
			}
			pendingErrors = []string{err.Error()}
			res.addTrace("design", fmt.Sprintf("design call failed: %v", err))
		} else {
			res.Code = code
			res.addTrace("design", fmt.Sprintf("generated %d chars of code", len(code)))

			pendingErrors = p.validateAndExecute(ctx, res)
			if len(pendingErrors) == 0 {
				break
			}
		}
		if res.Iterations >= p.cfg.MaxPipelineIterations {
			res.Errors = pendingErrors
			res.addTrace("retry", fmt.Sprintf("retry budget exhausted after %d iterations", res.Iterations))
			p.recorder.ObservePipelineRun(false, res.Iterations)
			return res, nil
		}
		res.addTrace("retry", fmt.Sprintf("iteration %d failed: %s", res.Iterations, strings.Join(pendingErrors, "; ")))
	}

	p.reviewCode(ctx, req, fastModel, res)

	if req.Optimize {
		p.optimize(ctx, req, fastModel, res)
	}
	if req.Review && len(req.Images) > 0 {
		p.reviewIntent(ctx, req, fastModel, res)
	}

	res.Success = true
	p.recorder.ObservePipelineRun(true, res.Iterations)
	return res, nil
}

// Execute runs a script through the executor without any LLM stages.
// Parameter edits use this to re-check the geometry.
func (p *Pipeline) Execute(ctx context.Context, code string) (cadexec.Result, error) {
	return p.executor.Execute(ctx, code)
}

// design calls the design agent and extracts the script. On retries the
// prompt carries the accumulated error list plus fix suggestions.
func (p *Pipeline) design(ctx context.Context, req PipelineRequest, model string, fixErrors []string) (string, error) {
	system, user := p.buildDesignPrompt(req, fixErrors)

	content, err := p.gateway.Generate(ctx, req.Provider, model, RoleDesign, llm.Request{
		System:      system,
		User:        user,
		SessionID:   req.SessionID,
		Images:      req.Images,
		Temperature: llm.TemperatureCode,
	})
	if err != nil {
		return "", err
	}
	return llm.ExtractCodeBlock(content), nil
}

func (p *Pipeline) buildDesignPrompt(req PipelineRequest, fixErrors []string) (system, user string) {
	switch {
	case req.ExistingCode != "":
		system = prompts.CadQueryEdit
	case len(req.ContextParts) > 0:
		system = prompts.CadQueryContext
	case len(req.Images) > 0:
		system = prompts.DesignWithImage
	default:
		system = prompts.Design
	}
	if patterns := prompts.RelevantPatterns(req.Prompt); patterns != "" {
		system += "\n" + patterns
	}

	var b strings.Builder
	b.WriteString(req.Prompt)

	if req.ExistingCode != "" {
		fmt.Fprintf(&b, "\n\nExisting code to modify:\n```python\n%s\n```", req.ExistingCode)
	}
	for _, part := range req.ContextParts {
		fmt.Fprintf(&b, "\n\nExisting part %q:\n```python\n%s\n```", part.Name, part.Code)
	}
	if len(fixErrors) > 0 {
		b.WriteString("\n\nThe previous attempt failed. Errors to fix:\n")
		for _, e := range fixErrors {
			fmt.Fprintf(&b, "- %s\n", e)
		}
		for _, e := range fixErrors {
			for _, s := range p.validator.FixSuggestions(e) {
				fmt.Fprintf(&b, "- Hint: %s\n", s)
			}
		}
	}
	return system, b.String()
}

// validateAndExecute runs static validation then execution on res.Code.
// Returns the error list that should drive a retry, or nil when the
// script produced valid geometry.
func (p *Pipeline) validateAndExecute(ctx context.Context, res *PipelineResult) []string {
	v := p.validator.Validate(res.Code)
	res.Warnings = append(res.Warnings, v.Warnings...)
	if v.CorrectedCode != "" {
		res.Code = v.CorrectedCode
		if !v.Valid {
			// corrections may have cleared the errors
			revalidated := p.validator.Validate(res.Code)
			v.Valid = revalidated.Valid
			v.Errors = revalidated.Errors
		}
	}
	if !v.Valid {
		res.addTrace("validation", fmt.Sprintf("static validation failed: %s", strings.Join(v.Errors, "; ")))
		return v.Errors
	}

	exec, err := p.executor.Execute(ctx, res.Code)
	if err != nil {
		res.addTrace("execution", fmt.Sprintf("executor error: %v", err))
		return []string{err.Error()}
	}
	if !exec.Success {
		res.addTrace("execution", fmt.Sprintf("execution failed: %s", exec.Error))
		return []string{exec.Error}
	}

	res.BoundingBox = exec.BoundingBox
	res.addTrace("execution", fmt.Sprintf("geometry built: %.1f x %.1f x %.1f mm",
		exec.BoundingBox.X, exec.BoundingBox.Y, exec.BoundingBox.Z))

	p.checkPrintability(res)
	return nil
}

// checkPrintability warns when the bounding box overflows the configured
// build volume on any axis.
func (p *Pipeline) checkPrintability(res *PipelineResult) {
	if res.BoundingBox == nil {
		return
	}
	build := p.cfg.Printer.BuildVolume
	axes := []struct {
		name        string
		part, build float64
	}{
		{"X", res.BoundingBox.X, build.X},
		{"Y", res.BoundingBox.Y, build.Y},
		{"Z", res.BoundingBox.Z, build.Z},
	}
	for _, a := range axes {
		if overflow := a.part - a.build; overflow > 0 {
			res.Warnings = append(res.Warnings, fmt.Sprintf(
				"Part exceeds build volume on %s by %.1fmm (%.1fmm > %.1fmm)",
				a.name, overflow, a.part, a.build))
		}
	}
}

// reviewCode asks a fast model to inspect the validated script. Issues
// become warnings and suggestions accumulate; unparseable output is
// skipped.
func (p *Pipeline) reviewCode(ctx context.Context, req PipelineRequest, model string, res *PipelineResult) {
	content, err := p.gateway.Generate(ctx, req.Provider, model, RoleValidationReview, llm.Request{
		System:    prompts.Validation,
		User:      fmt.Sprintf("Analyze this CadQuery code:\n```python\n%s\n```", res.Code),
		SessionID: req.SessionID,
	})
	if err != nil {
		res.addTrace("validation_review", fmt.Sprintf("review call failed: %v", err))
		return
	}

	var parsed struct {
		Issues      []string `json:"issues"`
		Suggestions []string `json:"suggestions"`
	}
	if err := json.Unmarshal([]byte(llm.ExtractJSONObject(content)), &parsed); err != nil {
		res.addTrace("validation_review", "review output not parseable, skipped")
		return
	}
	res.Warnings = append(res.Warnings, parsed.Issues...)
	res.Suggestions = append(res.Suggestions, parsed.Suggestions...)
	res.addTrace("validation_review", fmt.Sprintf("%d issues, %d suggestions", len(parsed.Issues), len(parsed.Suggestions)))
}

// optimize asks a fast model for an improved script and keeps it only if
// it still executes. Any failure discards the optimization.
func (p *Pipeline) optimize(ctx context.Context, req PipelineRequest, model string, res *PipelineResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "Optimize this CadQuery code for 3D printing:\n```python\n%s\n```\n", res.Code)
	build := p.cfg.Printer.BuildVolume
	fmt.Fprintf(&b, "\nPrinter constraints: build volume %.0fx%.0fx%.0fmm, layer height %.2fmm, min wall %.1fmm\n",
		build.X, build.Y, build.Z, p.cfg.Printer.LayerHeight, p.cfg.Printer.MinWallThickness)
	if len(res.Suggestions) > 0 {
		b.WriteString("\nSuggestions from the validation stage:\n")
		for _, s := range res.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
	}

	content, err := p.gateway.Generate(ctx, req.Provider, model, RoleOptimization, llm.Request{
		System:      prompts.Optimization,
		User:        b.String(),
		SessionID:   req.SessionID,
		Temperature: llm.TemperatureCode,
	})
	if err != nil {
		res.addTrace("optimization", fmt.Sprintf("optimization skipped: %v", err))
		return
	}

	optimized := llm.ExtractCodeBlock(content)
	if v := p.validator.Validate(optimized); !v.Valid {
		res.addTrace("optimization", "optimization skipped: optimized code failed validation")
		return
	}
	exec, err := p.executor.Execute(ctx, optimized)
	if err != nil || !exec.Success {
		res.addTrace("optimization", "optimization skipped: optimized code failed execution")
		return
	}

	res.Code = optimized
	res.BoundingBox = exec.BoundingBox
	res.addTrace("optimization", "optimized code adopted")
}

// reviewIntent compares the generated part against the original request
// and reference images. Parse failures are non-fatal.
func (p *Pipeline) reviewIntent(ctx context.Context, req PipelineRequest, model string, res *PipelineResult) {
	var b strings.Builder
	fmt.Fprintf(&b, "Original request: %s\n\nGenerated code:\n```python\n%s\n```\n", req.Prompt, res.Code)
	if res.BoundingBox != nil {
		fmt.Fprintf(&b, "\nResulting bounding box: %.1f x %.1f x %.1f mm\n",
			res.BoundingBox.X, res.BoundingBox.Y, res.BoundingBox.Z)
	}
	b.WriteString("\nCompare the result to the request and the attached reference image.")

	content, err := p.gateway.Generate(ctx, req.Provider, model, RoleReview, llm.Request{
		System:    prompts.Review,
		User:      b.String(),
		SessionID: req.SessionID,
		Images:    req.Images,
	})
	if err != nil {
		res.addTrace("review", fmt.Sprintf("review skipped: %v", err))
		return
	}

	var verdict ReviewResult
	if err := json.Unmarshal([]byte(llm.ExtractJSONObject(content)), &verdict); err != nil {
		res.addTrace("review", "review output not parseable, skipped")
		return
	}
	res.Review = &verdict
	res.Suggestions = append(res.Suggestions, verdict.Suggestions...)
	res.addTrace("review", fmt.Sprintf("score %d/10, matches=%v", verdict.Score, verdict.Matches))
}

func (r *PipelineResult) addTrace(stage, content string) {
	r.Trace = append(r.Trace, TraceEntry{Stage: stage, Content: content})
}
