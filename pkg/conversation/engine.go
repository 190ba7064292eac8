package conversation

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"cadforge/pkg/agent"
	"cadforge/pkg/agent/llm"
	"cadforge/pkg/cadexec"
	"cadforge/pkg/config"
	"cadforge/pkg/contextmgr"
	"cadforge/pkg/eventlog"
	"cadforge/pkg/logx"
	"cadforge/pkg/params"
	"cadforge/pkg/persistence"
	"cadforge/pkg/prompts"
)

// ErrEmptyMessage is returned when a user turn carries no text.
var ErrEmptyMessage = errors.New("message is empty")

// Reply is the engine's answer to one user turn.
type Reply struct {
	Session       *Session
	NeedsResponse bool
	Complete      bool
}

// Engine drives the phased design conversation: it routes each user turn
// to the current phase handler, fans out to specialist agents during
// analysis, and delegates code generation to the pipeline.
type Engine struct {
	cfg      *config.Config
	gateway  *agent.Gateway
	pipeline *agent.Pipeline
	store    *Store
	history  *contextmgr.Manager
	journal  *eventlog.Writer   // optional
	persist  *persistence.Store // optional
	logger   *logx.Logger
}

// NewEngine assembles an engine. journal and persist may be nil to
// disable session journaling and part persistence.
func NewEngine(cfg *config.Config, gateway *agent.Gateway, pipeline *agent.Pipeline, store *Store, journal *eventlog.Writer, persist *persistence.Store) *Engine {
	return &Engine{
		cfg:      cfg,
		gateway:  gateway,
		pipeline: pipeline,
		store:    store,
		history:  contextmgr.NewManager(cfg.HistoryMessages, cfg.HistoryTokenBudget),
		journal:  journal,
		persist:  persist,
		logger:   logx.NewLogger("conversation"),
	}
}

// Store exposes the session store for external boundaries.
func (e *Engine) Store() *Store {
	return e.store
}

// Start opens the conversation: the coordinator greets the user and the
// requirements agent asks the first questions.
func (e *Engine) Start(ctx context.Context, sessionID, provider string) (*Reply, error) {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}

	session.handlerMu.Lock()
	defer session.handlerMu.Unlock()

	greeting, question := e.coordinatorIntro(ctx, session, provider)
	e.appendMessage(session, KindAgent, RoleCoordinator, greeting, nil)
	if question.Content != "" {
		e.appendMessage(session, KindQuestion, RoleRequirements, question.Content,
			map[string]any{"options": question.Options})
	}

	return &Reply{Session: session, NeedsResponse: true}, nil
}

// ProcessMessage appends the user's message and advances the phase
// machine. The session's handler lock is held for the whole turn so
// concurrent sends on one session process strictly one at a time.
func (e *Engine) ProcessMessage(ctx context.Context, sessionID, message, provider, model string) (*Reply, error) {
	if strings.TrimSpace(message) == "" {
		return nil, ErrEmptyMessage
	}
	session, ok := e.store.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}

	session.handlerMu.Lock()
	defer session.handlerMu.Unlock()

	e.appendMessage(session, KindUser, "", message, nil)

	switch session.CurrentPhase() {
	case PhaseGathering:
		return e.handleGathering(ctx, session, provider)
	case PhaseAnalyzing:
		return e.runAnalysis(ctx, session, provider, model)
	case PhaseDesigning:
		return e.runDesign(ctx, session, provider, model)
	case PhaseReviewing:
		return e.handleReviewing(ctx, session, provider, model)
	case PhaseFinalizing:
		return e.handleFinalizing(ctx, session, provider, model)
	}
	return &Reply{Session: session, NeedsResponse: false}, nil
}

type nextQuestion struct {
	Content string   `json:"content"`
	Options []string `json:"options"`
	Agent   string   `json:"agent"`
}

type gatherResponse struct {
	UpdatedRequirements *RequirementsUpdate `json:"updated_requirements"`
	ConfidenceScores    map[string]float64  `json:"confidence_scores"`
	ReadyToDesign       bool                `json:"ready_to_design"`
	NextQuestion        *nextQuestion       `json:"next_question"`
	Summary             string              `json:"summary"`
}

func (e *Engine) handleGathering(ctx context.Context, session *Session, provider string) (*Reply, error) {
	reqJSON, _ := json.MarshalIndent(session.RequirementsSnapshot(), "", "  ")

	user := fmt.Sprintf(`Conversation history:
%s

Current requirements:
%s

Analyze the user's latest answer and:
1. Update the requirements with the new information
2. Score your confidence for each section (0.0 to 1.0)
3. Ask a follow-up question if needed, OR
4. Signal that you have enough information to move to the design phase

Answer in JSON:
{
  "updated_requirements": { ... },
  "confidence_scores": { "dimensions": 0.8, "purpose": 0.9, ... },
  "ready_to_design": true/false,
  "next_question": {
    "content": "Question to ask",
    "options": ["Option 1", "Option 2"],
    "agent": "requirements/designer/physics/manufacturing"
  },
  "summary": "Summary of what I understood"
}`, e.historyText(session), reqJSON)

	content, err := e.gateway.Generate(ctx, provider, e.cfg.FastModel(provider), string(RoleRequirements), llm.Request{
		System:    prompts.Requirements,
		User:      user,
		SessionID: session.ID,
		MaxTokens: 2000,
	})
	if err != nil {
		e.appendMessage(session, KindSystem, "", fmt.Sprintf("Analysis error: %v", err), nil)
		return &Reply{Session: session, NeedsResponse: true}, nil
	}

	var data gatherResponse
	if err := json.Unmarshal([]byte(llm.ExtractJSONObject(content)), &data); err != nil {
		e.appendMessage(session, KindSystem, "", fmt.Sprintf("Analysis error: %v", err), nil)
		return &Reply{Session: session, NeedsResponse: true}, nil
	}

	session.mu.Lock()
	session.Requirements.Merge(data.UpdatedRequirements)
	session.Requirements.UpdateConfidence(data.ConfidenceScores)
	ready := data.ReadyToDesign || session.Requirements.ReadyToDesign()
	session.mu.Unlock()

	if data.Summary != "" {
		e.appendMessage(session, KindAgent, RoleRequirements, data.Summary, nil)
	}

	if ready {
		e.transition(session, PhaseAnalyzing)
		return e.runAnalysis(ctx, session, provider, "")
	}

	if q := data.NextQuestion; q != nil && q.Content != "" {
		e.appendMessage(session, KindQuestion, RoleFromName(q.Agent), q.Content,
			map[string]any{"options": q.Options})
	}
	return &Reply{Session: session, NeedsResponse: true}, nil
}

// specialist analysis slots; fixed order keeps summaries deterministic.
const (
	slotDesigner = iota
	slotPhysics
	slotManufacturing
	slotCount
)

type analysis struct {
	agent Role
	data  map[string]any
}

func (e *Engine) runAnalysis(ctx context.Context, session *Session, provider, model string) (*Reply, error) {
	e.appendMessage(session, KindAgent, RoleCoordinator,
		"Perfect, I have enough information now. Let me consult our specialists...", nil)

	req := session.RequirementsSnapshot()
	reqJSON, _ := json.MarshalIndent(req, "", "  ")
	fastModel := e.cfg.FastModel(provider)

	type job struct {
		slot   int
		role   Role
		system string
		user   string
	}
	jobs := []job{
		{slotDesigner, RoleDesigner, prompts.Designer, fmt.Sprintf(`Project requirements:
%s

As the designer, analyze these requirements and provide:
1. Shape and proportion recommendations
2. Aesthetic suggestions
3. Ergonomic considerations if applicable
4. Questions or concerns

Answer in JSON:
{
  "recommendations": ["..."],
  "aesthetic_notes": "...",
  "ergonomic_notes": "...",
  "concerns": ["..."],
  "design_approach": "..."
}`, reqJSON)},
		{slotManufacturing, RoleManufacturing, prompts.Manufacturing, fmt.Sprintf(`Project requirements:
%s

As the additive manufacturing expert, analyze:
1. Printability of the part
2. Required supports
3. Optimal orientation
4. Recommended print settings
5. Potential issues (overhangs, bridges, ...)

Answer in JSON:
{
  "printability_score": 8,
  "support_assessment": "...",
  "optimal_orientation": "...",
  "print_settings": {"layer_height": 0.2, "infill": 20},
  "potential_issues": ["..."],
  "recommendations": ["..."]
}`, reqJSON)},
	}
	if req.Physical.NeedsStructuralAnalysis || req.Physical.ExpectedLoad != nil {
		jobs = append(jobs, job{slotPhysics, RolePhysics, prompts.Physics, fmt.Sprintf(`Project requirements:
%s

As the mechanical engineer, analyze:
1. Required structural strength
2. Potential stress points
3. Recommended wall thickness
4. Optimal print orientation for strength

Answer in JSON:
{
  "structural_assessment": "...",
  "stress_points": ["..."],
  "recommended_wall_thickness": 2.5,
  "reinforcement_suggestions": ["..."],
  "print_orientation": "..."
}`, reqJSON)})
	}

	results := make([]*analysis, slotCount)
	var wg sync.WaitGroup
	for _, j := range jobs {
		wg.Add(1)
		go func(j job) {
			defer wg.Done()
			content, err := e.gateway.Generate(ctx, provider, fastModel, string(j.role), llm.Request{
				System:    j.system,
				User:      j.user,
				SessionID: session.ID,
				MaxTokens: 1500,
			})
			if err != nil {
				e.logger.Warn("%s analysis failed: %v", j.role, err)
				return
			}
			var data map[string]any
			if err := json.Unmarshal([]byte(llm.ExtractJSONObject(content)), &data); err != nil {
				e.logger.Warn("%s analysis not parseable: %v", j.role, err)
				return
			}
			results[j.slot] = &analysis{agent: j.role, data: data}
		}(j)
	}
	wg.Wait()

	var analyses []analysis
	analysesData := map[string]any{}
	for _, r := range results {
		if r != nil {
			analyses = append(analyses, *r)
			analysesData[string(r.agent)] = r.data
		}
	}

	e.appendMessage(session, KindAgent, RoleCoordinator, compileAnalysisSummary(analyses),
		map[string]any{"analyses": analysesData})

	concerns := extractConcerns(analyses)
	if len(concerns) > 0 {
		var b strings.Builder
		b.WriteString("Our specialists have a few questions before we continue:\n\n")
		for _, c := range concerns {
			fmt.Fprintf(&b, "- %s\n", c)
		}
		b.WriteString("\nWould you like to adjust anything, or shall I launch the design?")
		e.appendMessage(session, KindQuestion, RoleCoordinator, b.String(),
			map[string]any{"options": []string{"Launch the design", "I have changes"}})
		e.transition(session, PhaseReviewing)
		return &Reply{Session: session, NeedsResponse: true}, nil
	}

	e.transition(session, PhaseDesigning)
	return e.runDesign(ctx, session, provider, model)
}

func (e *Engine) handleReviewing(ctx context.Context, session *Session, provider, model string) (*Reply, error) {
	last := strings.ToLower(session.LastUserMessage())

	if matchesKeyword(last, e.cfg.Keywords.Approve) {
		e.transition(session, PhaseDesigning)
		return e.runDesign(ctx, session, provider, model)
	}

	e.transition(session, PhaseGathering)
	e.appendMessage(session, KindQuestion, RoleRequirements,
		"Alright, what changes would you like to make?", nil)
	return &Reply{Session: session, NeedsResponse: true}, nil
}

func (e *Engine) runDesign(ctx context.Context, session *Session, provider, model string) (*Reply, error) {
	e.appendMessage(session, KindAgent, RoleEngineer,
		"Starting the design with our best model. This may take a moment...", nil)

	req := session.RequirementsSnapshot()
	images := session.Images()

	result, err := e.pipeline.Run(ctx, agent.PipelineRequest{
		Prompt:       req.DesignPrompt(),
		Provider:     provider,
		Model:        model,
		SessionID:    session.ID,
		Images:       images,
		ContextParts: session.ContextParts,
		Optimize:     true,
		Review:       len(images) > 0,
	})
	if err != nil || !result.Success {
		reason := "Unknown error"
		if err != nil {
			reason = err.Error()
		} else if len(result.Errors) > 0 {
			reason = strings.Join(result.Errors, "; ")
		}
		e.appendMessage(session, KindAgent, RoleEngineer,
			fmt.Sprintf("Sorry, I ran into a problem: %s. Would you like to retry with different parameters?", reason), nil)
		e.transition(session, PhaseReviewing)
		e.journalEvent(session, eventlog.KindPipeline, map[string]any{"success": false, "error": reason})
		return &Reply{Session: session, NeedsResponse: true}, nil
	}

	session.SetGeneratedCode(result.Code, result.BoundingBox)
	e.journalEvent(session, eventlog.KindPipeline, map[string]any{
		"success":    true,
		"iterations": result.Iterations,
	})
	e.savePart(session, result)

	codeData := map[string]any{"code": result.Code}
	if result.BoundingBox != nil {
		codeData["bounding_box"] = result.BoundingBox
	}
	e.appendMessage(session, KindCode, RoleEngineer, "Here is the generated code:", codeData)

	if len(result.Warnings) > 0 {
		var b strings.Builder
		b.WriteString("A few notes:\n")
		for _, w := range result.Warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
		e.appendMessage(session, KindValidation, RoleValidator, b.String(), nil)
	}
	if len(result.Suggestions) > 0 {
		var b strings.Builder
		b.WriteString("Improvement suggestions:\n")
		for _, s := range result.Suggestions {
			fmt.Fprintf(&b, "- %s\n", s)
		}
		e.appendMessage(session, KindSuggestion, RoleCoordinator, b.String(), nil)
	}

	e.appendMessage(session, KindQuestion, RoleCoordinator,
		"The design is ready! Would you like changes, or shall I finalize it?",
		map[string]any{"options": []string{"Finalize", "Modify", "Restart"}})
	e.transition(session, PhaseFinalizing)
	return &Reply{Session: session, NeedsResponse: true}, nil
}

func (e *Engine) handleFinalizing(ctx context.Context, session *Session, provider, model string) (*Reply, error) {
	raw := session.LastUserMessage()
	last := strings.ToLower(raw)

	switch {
	case matchesKeyword(last, e.cfg.Keywords.Finalize):
		e.transition(session, PhaseComplete)
		e.appendMessage(session, KindAgent, RoleCoordinator,
			"Excellent! The design is finalized. You can now execute and export it.", nil)
		return &Reply{Session: session, NeedsResponse: false, Complete: true}, nil

	case matchesKeyword(last, e.cfg.Keywords.Modify):
		e.appendMessage(session, KindQuestion, RoleEngineer,
			"What changes would you like?", nil)
		return &Reply{Session: session, NeedsResponse: true}, nil

	case matchesKeyword(last, e.cfg.Keywords.Restart):
		session.mu.Lock()
		session.Requirements.Reset()
		session.GeneratedCode = ""
		session.BoundingBox = nil
		session.mu.Unlock()
		e.transition(session, PhaseGathering)
		e.appendMessage(session, KindQuestion, RoleRequirements,
			"Alright, let's start over. Can you describe again what you would like to create?", nil)
		return &Reply{Session: session, NeedsResponse: true}, nil

	default:
		// free text is treated as a modification request
		session.mu.Lock()
		session.Requirements.Description += fmt.Sprintf("\n\nRequested modification: %s", raw)
		session.mu.Unlock()
		e.transition(session, PhaseDesigning)
		return e.runDesign(ctx, session, provider, model)
	}
}

// Parameters lists the editable dimension parameters of the session's
// generated script.
func (e *Engine) Parameters(sessionID string) ([]params.Parameter, error) {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}
	code := session.Code()
	if code == "" {
		return nil, fmt.Errorf("session %s has no generated code yet", sessionID)
	}
	return params.Extract(code), nil
}

// UpdateParameters injects new dimension values into the generated script,
// re-executes it, and persists the result as a parameter_update version.
// The session's code is only replaced when the new geometry builds.
func (e *Engine) UpdateParameters(ctx context.Context, sessionID string, values map[string]float64) ([]params.Parameter, error) {
	session, ok := e.store.Get(sessionID)
	if !ok {
		return nil, fmt.Errorf("session not found: %s", sessionID)
	}

	session.handlerMu.Lock()
	defer session.handlerMu.Unlock()

	code := session.Code()
	if code == "" {
		return nil, fmt.Errorf("session %s has no generated code yet", sessionID)
	}
	if err := params.Validate(values); err != nil {
		return nil, err
	}

	updated := params.Inject(code, values)
	exec, err := e.pipeline.Execute(ctx, updated)
	if err != nil {
		return nil, fmt.Errorf("execution failed after parameter update: %w", err)
	}
	if !exec.Success {
		return nil, fmt.Errorf("updated parameters produce invalid geometry: %s", exec.Error)
	}

	session.SetGeneratedCode(updated, exec.BoundingBox)
	e.journalEvent(session, eventlog.KindPipeline, map[string]any{
		"parameter_update": true,
		"values":           values,
	})
	e.persistParameterUpdate(session, updated, exec.BoundingBox)
	return params.Extract(updated), nil
}

func (e *Engine) persistParameterUpdate(session *Session, code string, bbox *cadexec.BoundingBox) {
	if e.persist == nil || session.PartID == "" {
		return
	}
	part, err := e.persist.GetPart(session.PartID)
	if err != nil {
		e.logger.Warn("failed to load part %s for parameter update: %v", session.PartID, err)
		return
	}
	part.Code = code
	part.BoundingBox = bbox
	part.Parameters = parameterMap(code)
	if err := e.persist.SavePart(part); err != nil {
		e.logger.Warn("failed to persist parameter update for part %s: %v", part.ID, err)
		return
	}
	if err := e.persist.SnapshotPart(part, persistence.SourceParameterUpdate); err != nil {
		e.logger.Warn("failed to snapshot part %s: %v", part.ID, err)
	}
}

func parameterMap(code string) map[string]float64 {
	extracted := params.Extract(code)
	if len(extracted) == 0 {
		return nil
	}
	out := make(map[string]float64, len(extracted))
	for _, p := range extracted {
		out[p.Name] = p.Value
	}
	return out
}

type coordinatorIntroResponse struct {
	Greeting         string        `json:"greeting"`
	InitialQuestions *nextQuestion `json:"initial_questions"`
}

func (e *Engine) coordinatorIntro(ctx context.Context, session *Session, provider string) (string, nextQuestion) {
	var background string
	if desc := session.RequirementsSnapshot().Description; desc != "" {
		background = fmt.Sprintf("\n\nThe user already said: %q", desc)
	}
	if session.HasVisualReference() {
		background += "\n\nThe user supplied a reference image."
	}

	user := fmt.Sprintf(`You coordinate a team of AI agents for 3D design.%s

Generate:
1. A short, engaging welcome message
2. The first relevant questions to ask

Answer in JSON:
{
  "greeting": "Welcome message...",
  "initial_questions": {
    "content": "Questions to ask...",
    "options": ["Option 1", "Option 2"]
  }
}`, background)

	content, err := e.gateway.Generate(ctx, provider, e.cfg.FastModel(provider), string(RoleCoordinator), llm.Request{
		System:    prompts.Coordinator,
		User:      user,
		SessionID: session.ID,
		MaxTokens: 1000,
	})
	if err == nil {
		var data coordinatorIntroResponse
		if json.Unmarshal([]byte(llm.ExtractJSONObject(content)), &data) == nil && data.Greeting != "" {
			q := nextQuestion{}
			if data.InitialQuestions != nil {
				q = *data.InitialQuestions
			}
			return data.Greeting, q
		}
	}

	initial := prompts.StandardQuestions["initial"][0]
	return "Hello! I am your 3D design assistant. I will coordinate a team of experts to help you create your part.",
		nextQuestion{Content: initial.Text, Options: initial.Options, Agent: initial.Agent}
}

// historyText renders the recent transcript within the history budget.
func (e *Engine) historyText(session *Session) string {
	messages := session.Transcript()
	entries := make([]contextmgr.Entry, 0, len(messages))
	for _, m := range messages {
		role := "user"
		if m.Role != "" {
			role = string(m.Role)
		}
		entries = append(entries, contextmgr.Entry{Role: role, Content: m.Content})
	}

	var b strings.Builder
	for _, entry := range e.history.Window(entries) {
		fmt.Fprintf(&b, "[%s]: %s\n", entry.Role, entry.Content)
	}
	return strings.TrimRight(b.String(), "\n")
}

func (e *Engine) appendMessage(session *Session, kind MessageKind, role Role, content string, data map[string]any) {
	session.AddMessage(kind, role, content, data)
	e.journalEvent(session, eventlog.KindMessage, map[string]any{
		"kind":    string(kind),
		"role":    string(role),
		"content": content,
	})
}

func (e *Engine) transition(session *Session, to Phase) {
	from := session.CurrentPhase()
	session.setPhase(to)
	e.logger.Info("session %s: %s -> %s", session.ID, from, to)
	e.journalEvent(session, eventlog.KindTransition, map[string]any{
		"from": string(from),
		"to":   string(to),
	})
}

func (e *Engine) journalEvent(session *Session, kind string, fields map[string]any) {
	if e.journal == nil {
		return
	}
	if err := e.journal.Write(eventlog.NewEvent(kind, session.ID, fields)); err != nil {
		e.logger.Warn("journal write failed: %v", err)
	}
}

// savePart persists the accepted script as a Part with a version
// snapshot. Persistence failures are logged, not surfaced.
func (e *Engine) savePart(session *Session, result *agent.PipelineResult) {
	if e.persist == nil {
		return
	}

	req := session.RequirementsSnapshot()
	name := req.Description
	if len(name) > 60 {
		name = name[:60]
	}
	if name == "" {
		name = "Untitled part"
	}

	part := &persistence.Part{
		ID:          session.PartID,
		SessionID:   session.ID,
		Name:        name,
		Code:        result.Code,
		Prompt:      req.DesignPrompt(),
		Parameters:  parameterMap(result.Code),
		BoundingBox: result.BoundingBox,
		Status:      persistence.PartStatusGenerated,
	}
	if err := e.persist.SavePart(part); err != nil {
		e.logger.Warn("failed to persist part for session %s: %v", session.ID, err)
		return
	}
	session.mu.Lock()
	session.PartID = part.ID
	session.mu.Unlock()

	if err := e.persist.SnapshotPart(part, persistence.SourceAIGenerate); err != nil {
		e.logger.Warn("failed to snapshot part %s: %v", part.ID, err)
	}
}

func matchesKeyword(message string, words []string) bool {
	for _, w := range words {
		if strings.Contains(message, w) {
			return true
		}
	}
	return false
}

func compileAnalysisSummary(analyses []analysis) string {
	parts := []string{"Here is our team's analysis:\n"}

	for _, a := range analyses {
		switch a.agent {
		case RoleDesigner:
			parts = append(parts, "**Designer:**")
			if v := getString(a.data, "design_approach"); v != "" {
				parts = append(parts, fmt.Sprintf("  Approach: %s", v))
			}
			if recs := getStrings(a.data, "recommendations"); len(recs) > 0 {
				parts = append(parts, "  Recommendations: "+strings.Join(truncateList(recs, 3), ", "))
			}
		case RolePhysics:
			parts = append(parts, "**Mechanical Engineer:**")
			if v := getString(a.data, "structural_assessment"); v != "" {
				parts = append(parts, fmt.Sprintf("  Assessment: %s", v))
			}
			if v, ok := getFloat(a.data, "recommended_wall_thickness"); ok {
				parts = append(parts, fmt.Sprintf("  Recommended wall thickness: %gmm", v))
			}
		case RoleManufacturing:
			parts = append(parts, "**Manufacturing Expert:**")
			if v, ok := getFloat(a.data, "printability_score"); ok {
				parts = append(parts, fmt.Sprintf("  Printability score: %g/10", v))
			}
			if v := getString(a.data, "optimal_orientation"); v != "" {
				parts = append(parts, fmt.Sprintf("  Orientation: %s", v))
			}
			if issues := getStrings(a.data, "potential_issues"); len(issues) > 0 {
				parts = append(parts, "  Points of attention: "+strings.Join(truncateList(issues, 2), ", "))
			}
		}
	}
	return strings.Join(parts, "\n")
}

// extractConcerns gathers blocking questions from the analyses: at most
// two per source list, five overall.
func extractConcerns(analyses []analysis) []string {
	var concerns []string
	for _, a := range analyses {
		concerns = append(concerns, truncateList(getStrings(a.data, "concerns"), 2)...)
		concerns = append(concerns, truncateList(getStrings(a.data, "potential_issues"), 2)...)
	}
	return truncateList(concerns, 5)
}

func truncateList(items []string, n int) []string {
	if len(items) > n {
		return items[:n]
	}
	return items
}

func getString(data map[string]any, key string) string {
	if v, ok := data[key].(string); ok {
		return v
	}
	return ""
}

func getStrings(data map[string]any, key string) []string {
	raw, ok := data[key].([]any)
	if !ok {
		return nil
	}
	var out []string
	for _, v := range raw {
		if s, ok := v.(string); ok {
			out = append(out, s)
		}
	}
	return out
}

func getFloat(data map[string]any, key string) (float64, bool) {
	v, ok := data[key].(float64)
	return v, ok
}
