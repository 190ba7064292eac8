package conversation

import (
	"context"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadforge/pkg/agent"
	"cadforge/pkg/agent/llm"
	"cadforge/pkg/agent/llmerrors"
	"cadforge/pkg/cadexec"
	"cadforge/pkg/config"
	"cadforge/pkg/persistence"
)

const generatedScript = "```python\nimport cadquery as cq\nresult = cq.Workplane(\"XY\").cylinder(50, 50)\n```"

func engineFixture(t *testing.T, mock *agent.MockClient, exec cadexec.Executor) (*Engine, *Store) {
	t.Helper()
	cfg := config.Default()
	gw := agent.NewGatewayWithClients(cfg, map[string]llm.Client{"anthropic": mock})
	pipeline := agent.NewPipeline(cfg, gw, exec)
	store := NewStore(0)
	engine := NewEngine(cfg, gw, pipeline, store, nil, nil)
	return engine, store
}

func readyGatherResponse(summary string) agent.MockResponse {
	return agent.MockResponse{
		Match: "collecting needs",
		Content: `{
  "updated_requirements": {"purpose": "hold a phone"},
  "confidence_scores": {"dimensions": 0.9, "purpose": 0.9, "features": 0.8, "manufacturing": 0.8},
  "ready_to_design": true,
  "summary": "` + summary + `"
}`,
	}
}

func noConcernAnalyses() []agent.MockResponse {
	return []agent.MockResponse{
		{Match: "industrial design", Content: `{"recommendations": ["keep the base wide"], "concerns": [], "design_approach": "simple cylinder"}`},
		{Match: "additive manufacturing", Content: `{"printability_score": 9, "optimal_orientation": "flat", "potential_issues": [], "recommendations": []}`},
	}
}

func pipelineResponses() []agent.MockResponse {
	return []agent.MockResponse{
		{Match: "designing 3D parts", Content: generatedScript},
		{Match: "validating CadQuery code", Content: `{"issues": [], "suggestions": []}`},
		{Match: "optimizing 3D parts", Content: generatedScript},
	}
}

func TestCleanPathTextOnly(t *testing.T) {
	mock := agent.NewMockClient("anthropic", readyGatherResponse("A speaker dock, understood."))
	for _, r := range noConcernAnalyses() {
		mock.Add(r)
	}
	for _, r := range pipelineResponses() {
		mock.Add(r)
	}
	exec := cadexec.NewFakeExecutor(cadexec.Result{
		Success:     true,
		BoundingBox: &cadexec.BoundingBox{X: 100, Y: 100, Z: 50},
	})
	engine, store := engineFixture(t, mock, exec)

	session := store.Create(CreateOptions{
		InitialPrompt: "cylindrical speaker dock, 100mm diameter, 50mm tall, 3mm wall",
	})
	assert.Equal(t, PhaseGathering, session.CurrentPhase())

	reply, err := engine.ProcessMessage(context.Background(), session.ID, "no extra features", "anthropic", "")
	require.NoError(t, err)
	assert.True(t, reply.NeedsResponse)
	assert.Equal(t, PhaseFinalizing, session.CurrentPhase())
	assert.NotEmpty(t, session.Code())
	require.NotNil(t, session.BoundingBox)
	assert.InDelta(t, 100, session.BoundingBox.X, 0.1)
	assert.InDelta(t, 50, session.BoundingBox.Z, 0.1)

	reply, err = engine.ProcessMessage(context.Background(), session.ID, "finalize", "anthropic", "")
	require.NoError(t, err)
	assert.True(t, reply.Complete)
	assert.False(t, reply.NeedsResponse)
	assert.Equal(t, PhaseComplete, session.CurrentPhase())
}

func TestStartAppendsGreetingAndQuestion(t *testing.T) {
	mock := agent.NewMockClient("anthropic", agent.MockResponse{
		Match:   "Coordinator",
		Content: `{"greeting": "Welcome!", "initial_questions": {"content": "What do you want to build?", "options": []}}`,
	})
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{InitialPrompt: "a hinge"})
	reply, err := engine.Start(context.Background(), session.ID, "anthropic")
	require.NoError(t, err)
	assert.True(t, reply.NeedsResponse)

	messages := session.Transcript()
	require.GreaterOrEqual(t, len(messages), 3)
	greeting := messages[len(messages)-2]
	question := messages[len(messages)-1]
	assert.Equal(t, KindAgent, greeting.Kind)
	assert.Equal(t, RoleCoordinator, greeting.Role)
	assert.Equal(t, KindQuestion, question.Kind)
	assert.Equal(t, RoleRequirements, question.Role)
}

func TestStartFallsBackWhenCoordinatorFails(t *testing.T) {
	mock := agent.NewMockClient("anthropic") // every call errors
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{})
	reply, err := engine.Start(context.Background(), session.ID, "anthropic")
	require.NoError(t, err)
	assert.True(t, reply.NeedsResponse)

	messages := session.Transcript()
	require.Len(t, messages, 2)
	assert.Contains(t, messages[0].Content, "3D design assistant")
}

func TestGatheringAsksFollowUpQuestion(t *testing.T) {
	mock := agent.NewMockClient("anthropic", agent.MockResponse{
		Match: "collecting needs",
		Content: `{
  "updated_requirements": {"dimensions": {"specified": true, "length": 100}},
  "confidence_scores": {"dimensions": 0.5, "purpose": 0.3, "features": 0.1, "manufacturing": 0.2},
  "ready_to_design": false,
  "next_question": {"content": "What will the part be used for?", "options": ["Decoration", "Mechanical"], "agent": "requirements"},
  "summary": "Got the length."
}`,
	})
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{InitialPrompt: "a bracket 100mm long"})
	reply, err := engine.ProcessMessage(context.Background(), session.ID, "it should be 100mm", "anthropic", "")
	require.NoError(t, err)
	assert.True(t, reply.NeedsResponse)
	assert.Equal(t, PhaseGathering, session.CurrentPhase())

	require.NotNil(t, session.Requirements.Dimensions.Length)
	assert.Equal(t, 100.0, *session.Requirements.Dimensions.Length)
	assert.Equal(t, 0.5, session.Requirements.Confidence[SectionDimensions])

	messages := session.Transcript()
	last := messages[len(messages)-1]
	assert.Equal(t, KindQuestion, last.Kind)
	assert.Contains(t, last.Content, "used for")
}

func TestGatheringSurvivesLLMError(t *testing.T) {
	mock := agent.NewMockClient("anthropic", agent.MockResponse{
		Match: "collecting needs",
		Err:   llmerrors.New(llmerrors.ErrorTypeTransient, "rate limited"),
	})
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{InitialPrompt: "a box"})
	reply, err := engine.ProcessMessage(context.Background(), session.ID, "40x25x10", "anthropic", "")
	require.NoError(t, err)
	assert.True(t, reply.NeedsResponse)
	assert.Equal(t, PhaseGathering, session.CurrentPhase())

	messages := session.Transcript()
	last := messages[len(messages)-1]
	assert.Equal(t, KindSystem, last.Kind)
	assert.Contains(t, last.Content, "Analysis error")
}

func TestAnalyzingFanOutPartialFailure(t *testing.T) {
	mock := agent.NewMockClient("anthropic",
		agent.MockResponse{
			Match: "collecting needs",
			Content: `{
  "updated_requirements": {"physical": {"needs_structural_analysis": true}},
  "confidence_scores": {"dimensions": 0.9, "purpose": 0.9, "features": 0.8, "manufacturing": 0.8},
  "ready_to_design": true,
  "summary": "Load-bearing bracket."
}`,
		},
		agent.MockResponse{
			Match:   "industrial design",
			Content: `{"recommendations": ["round the corners"], "concerns": ["is the hook width fixed?"], "design_approach": "L bracket"}`,
		},
		agent.MockResponse{
			Match: "structural analysis",
			Err:   llmerrors.New(llmerrors.ErrorTypeTransient, "deadline exceeded"),
		},
		agent.MockResponse{
			Match:   "additive manufacturing",
			Content: `{"printability_score": 7, "optimal_orientation": "upright", "potential_issues": ["overhang at the lip"], "recommendations": []}`,
		},
	)
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{InitialPrompt: "a load-bearing bracket"})
	reply, err := engine.ProcessMessage(context.Background(), session.ID, "it must hold 5kg", "anthropic", "")
	require.NoError(t, err)
	assert.True(t, reply.NeedsResponse)

	// concerns from designer and manufacturing push the session to review
	assert.Equal(t, PhaseReviewing, session.CurrentPhase())

	var summary, concernQuestion string
	for _, m := range session.Transcript() {
		if m.Kind == KindAgent && m.Role == RoleCoordinator && strings.Contains(m.Content, "team's analysis") {
			summary = m.Content
		}
		if m.Kind == KindQuestion && m.Role == RoleCoordinator {
			concernQuestion = m.Content
		}
	}
	require.NotEmpty(t, summary)
	assert.Contains(t, summary, "**Designer:**")
	assert.Contains(t, summary, "**Manufacturing Expert:**")
	assert.NotContains(t, summary, "**Mechanical Engineer:**")

	require.NotEmpty(t, concernQuestion)
	assert.Contains(t, concernQuestion, "hook width")
	assert.Contains(t, concernQuestion, "overhang at the lip")
}

func TestReviewingApprovalLaunchesDesign(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	for _, r := range pipelineResponses() {
		mock.Add(r)
	}
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{InitialPrompt: "a bracket"})
	session.setPhase(PhaseReviewing)

	_, err := engine.ProcessMessage(context.Background(), session.ID, "ok, launch the design", "anthropic", "")
	require.NoError(t, err)
	assert.Equal(t, PhaseFinalizing, session.CurrentPhase())
	assert.NotEmpty(t, session.Code())
}

func TestReviewingRejectionReturnsToGathering(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{InitialPrompt: "a bracket"})
	session.setPhase(PhaseReviewing)

	reply, err := engine.ProcessMessage(context.Background(), session.ID, "I want it thinner", "anthropic", "")
	require.NoError(t, err)
	assert.True(t, reply.NeedsResponse)
	assert.Equal(t, PhaseGathering, session.CurrentPhase())
}

func TestDesignFailureReturnsToReviewing(t *testing.T) {
	mock := agent.NewMockClient("anthropic",
		agent.MockResponse{Match: "designing 3D parts", Content: generatedScript, Sticky: true},
	)
	exec := cadexec.NewFakeExecutor(cadexec.Result{Success: false, Error: "BRep_API: command not done"})
	engine, store := engineFixture(t, mock, exec)

	session := store.Create(CreateOptions{InitialPrompt: "an impossible shape"})
	session.setPhase(PhaseDesigning)

	reply, err := engine.ProcessMessage(context.Background(), session.ID, "go", "anthropic", "")
	require.NoError(t, err)
	assert.True(t, reply.NeedsResponse)
	assert.Equal(t, PhaseReviewing, session.CurrentPhase())
	assert.Empty(t, session.Code())

	messages := session.Transcript()
	var sawApology bool
	for _, m := range messages {
		if m.Kind == KindAgent && strings.Contains(m.Content, "ran into a problem") {
			sawApology = true
		}
	}
	assert.True(t, sawApology)
}

func TestFinalizingRestartKeepsDescription(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{InitialPrompt: "a gear with 20 teeth"})
	session.setPhase(PhaseFinalizing)
	session.SetGeneratedCode("import cadquery as cq\nresult = cq.Workplane(\"XY\").box(1, 1, 1)", nil)
	length := 40.0
	session.Requirements.Dimensions = Dimensions{Specified: true, Length: &length}

	reply, err := engine.ProcessMessage(context.Background(), session.ID, "restart", "anthropic", "")
	require.NoError(t, err)
	assert.True(t, reply.NeedsResponse)
	assert.Equal(t, PhaseGathering, session.CurrentPhase())
	assert.Empty(t, session.Code())
	assert.Equal(t, "a gear with 20 teeth", session.Requirements.Description)
	assert.False(t, session.Requirements.Dimensions.Specified)
}

func TestFinalizingFreeTextTriggersRedesign(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	for _, r := range pipelineResponses() {
		mock.Add(r)
	}
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{InitialPrompt: "a bracket"})
	session.setPhase(PhaseFinalizing)

	_, err := engine.ProcessMessage(context.Background(), session.ID, "make the base twice as wide", "anthropic", "")
	require.NoError(t, err)
	assert.Equal(t, PhaseFinalizing, session.CurrentPhase())
	assert.Contains(t, session.Requirements.Description, "Requested modification: make the base twice as wide")
}

func TestUpdateParametersRewritesScript(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	exec := cadexec.NewFakeExecutor(cadexec.Result{
		Success:     true,
		BoundingBox: &cadexec.BoundingBox{X: 20, Y: 20, Z: 20},
	})
	engine, store := engineFixture(t, mock, exec)

	session := store.Create(CreateOptions{InitialPrompt: "a cube"})
	session.SetGeneratedCode("import cadquery as cq\nwidth = 10\nresult = cq.Workplane(\"XY\").box(width, width, width)", nil)

	updated, err := engine.UpdateParameters(context.Background(), session.ID, map[string]float64{"width": 20})
	require.NoError(t, err)
	require.Len(t, updated, 1)
	assert.Equal(t, 20.0, updated[0].Value)
	assert.Contains(t, session.Code(), "width = 20")
	require.NotNil(t, session.BoundingBox)
	assert.Equal(t, 20.0, session.BoundingBox.X)
	assert.Equal(t, 1, exec.RunCount())
}

func TestUpdateParametersRejectsOutOfRange(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	exec := cadexec.NewFakeExecutor()
	engine, store := engineFixture(t, mock, exec)

	session := store.Create(CreateOptions{})
	session.SetGeneratedCode("width = 10\nresult = None", nil)

	_, err := engine.UpdateParameters(context.Background(), session.ID, map[string]float64{"width": -5})
	assert.Error(t, err)
	assert.Contains(t, session.Code(), "width = 10")
	assert.Equal(t, 0, exec.RunCount())
}

func TestUpdateParametersKeepsCodeOnFailedExecution(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	exec := cadexec.NewFakeExecutor(cadexec.Result{Success: false, Error: "BRep_API: command not done"})
	engine, store := engineFixture(t, mock, exec)

	session := store.Create(CreateOptions{})
	session.SetGeneratedCode("width = 10\nresult = None", nil)

	_, err := engine.UpdateParameters(context.Background(), session.ID, map[string]float64{"width": 5000})
	assert.Error(t, err)
	assert.Contains(t, session.Code(), "width = 10")
}

func TestParameterUpdatePersistsVersion(t *testing.T) {
	persist, err := persistence.Open(filepath.Join(t.TempDir(), "cadforge.db"))
	require.NoError(t, err)
	defer persist.Close()

	cfg := config.Default()
	mock := agent.NewMockClient("anthropic")
	gw := agent.NewGatewayWithClients(cfg, map[string]llm.Client{"anthropic": mock})
	pipeline := agent.NewPipeline(cfg, gw, cadexec.NewFakeExecutor())
	store := NewStore(0)
	engine := NewEngine(cfg, gw, pipeline, store, nil, persist)

	session := store.Create(CreateOptions{})
	code := "import cadquery as cq\nwidth = 10\nresult = cq.Workplane(\"XY\").box(width, width, width)"
	session.SetGeneratedCode(code, nil)

	part := &persistence.Part{
		SessionID: session.ID,
		Name:      "cube",
		Code:      code,
		Status:    persistence.PartStatusGenerated,
	}
	require.NoError(t, persist.SavePart(part))
	session.mu.Lock()
	session.PartID = part.ID
	session.mu.Unlock()

	_, err = engine.UpdateParameters(context.Background(), session.ID, map[string]float64{"width": 25})
	require.NoError(t, err)

	stored, err := persist.GetPart(part.ID)
	require.NoError(t, err)
	assert.Contains(t, stored.Code, "width = 25")
	assert.Equal(t, 25.0, stored.Parameters["width"])

	versions, err := persist.ListVersions(part.ID)
	require.NoError(t, err)
	require.NotEmpty(t, versions)
	assert.Equal(t, persistence.SourceParameterUpdate, versions[0].Source)
}

func TestParametersRequireGeneratedCode(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{})
	_, err := engine.Parameters(session.ID)
	assert.Error(t, err)
}

func TestProcessMessageRejectsEmptyMessage(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{InitialPrompt: "a bracket"})
	before := session.MessageCount()

	_, err := engine.ProcessMessage(context.Background(), session.ID, "   ", "anthropic", "")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Equal(t, before, session.MessageCount())
	assert.Equal(t, 0, mock.CallCount())
}

func TestProcessMessageSerializesPerSession(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	engine, store := engineFixture(t, mock, cadexec.NewFakeExecutor())

	session := store.Create(CreateOptions{InitialPrompt: "a bracket"})
	session.setPhase(PhaseFinalizing)
	before := session.MessageCount()

	// a held handler lock must keep the whole turn out, including the
	// user message append
	session.handlerMu.Lock()
	done := make(chan struct{})
	go func() {
		defer close(done)
		_, err := engine.ProcessMessage(context.Background(), session.ID, "modify", "anthropic", "")
		assert.NoError(t, err)
	}()

	time.Sleep(50 * time.Millisecond)
	assert.Equal(t, before, session.MessageCount())

	session.handlerMu.Unlock()
	<-done
	// user message plus the follow-up question landed after release
	assert.Equal(t, before+2, session.MessageCount())
}

func TestMessageTimestampsMonotonic(t *testing.T) {
	session := newSession()
	for i := 0; i < 50; i++ {
		session.AddMessage(KindUser, "", "tick", nil)
	}
	messages := session.Transcript()
	for i := 1; i < len(messages); i++ {
		assert.True(t, messages[i].Timestamp.After(messages[i-1].Timestamp),
			"timestamp %d not after its predecessor", i)
	}
}

func TestUnknownSessionErrors(t *testing.T) {
	mock := agent.NewMockClient("anthropic")
	engine, _ := engineFixture(t, mock, cadexec.NewFakeExecutor())

	_, err := engine.ProcessMessage(context.Background(), "missing", "hello", "anthropic", "")
	assert.Error(t, err)
	_, err = engine.Start(context.Background(), "missing", "anthropic")
	assert.Error(t, err)
}

func TestStoreAttachmentCap(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	session := store.Create(CreateOptions{})
	for i := 0; i < MaxAttachments; i++ {
		_, err := store.AddAttachment(session.ID, Attachment{
			Data: []byte{0x89, 0x50}, Mime: "image/png",
		})
		require.NoError(t, err)
	}

	_, err := store.AddAttachment(session.ID, Attachment{Data: []byte{0x89}, Mime: "image/png"})
	assert.Error(t, err)
	assert.Len(t, session.Attachments, MaxAttachments)
}

func TestStoreAttachmentSizeLimit(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	session := store.Create(CreateOptions{})
	_, err := store.AddAttachment(session.ID, Attachment{
		Data: make([]byte, MaxAttachmentSize+1), Mime: "image/png",
	})
	assert.Error(t, err)
	assert.Empty(t, session.Attachments)
}

func TestStoreDelete(t *testing.T) {
	store := NewStore(0)
	defer store.Close()

	session := store.Create(CreateOptions{})
	assert.True(t, store.Delete(session.ID))
	assert.False(t, store.Delete(session.ID))
	_, ok := store.Get(session.ID)
	assert.False(t, ok)
}

func TestStoreEviction(t *testing.T) {
	store := NewStore(time.Hour)
	defer store.Close()

	session := store.Create(CreateOptions{})
	session.mu.Lock()
	session.UpdatedAt = time.Now().UTC().Add(-2 * time.Hour)
	session.mu.Unlock()

	store.evictExpired()
	_, ok := store.Get(session.ID)
	assert.False(t, ok)
}

func TestDesignPromptFieldOrder(t *testing.T) {
	req := NewRequirements()
	req.Description = "phone stand"
	req.Purpose = "hold a phone at 60 degrees"
	length, width, height := 80.0, 70.0, 100.0
	req.Dimensions = Dimensions{Specified: true, Length: &length, Width: &width, Height: &height}
	wall := 3.0
	req.Physical.WallThickness = &wall
	req.Features = []string{"cable slot", "anti-slip base"}
	req.Aesthetics.Style = "minimal"
	req.Physical.Material = "PETG"
	load := 0.5
	req.Physical.ExpectedLoad = &load

	prompt := req.DesignPrompt()
	lines := strings.Split(prompt, "\n")
	require.Len(t, lines, 8)
	assert.Equal(t, "Create a 3D part: phone stand", lines[0])
	assert.Equal(t, "Purpose: hold a phone at 60 degrees", lines[1])
	assert.Equal(t, "Dimensions: length=80mm, width=70mm, height=100mm", lines[2])
	assert.Equal(t, "Wall thickness: 3mm", lines[3])
	assert.Equal(t, "Features: cable slot, anti-slip base", lines[4])
	assert.Equal(t, "Style: minimal", lines[5])
	assert.Equal(t, "Material: PETG", lines[6])
	assert.Equal(t, "Expected load: 0.5kg", lines[7])
}

func TestRequirementsMergePreservesMissingFields(t *testing.T) {
	req := NewRequirements()
	req.Purpose = "existing purpose"
	length := 50.0
	req.Dimensions = Dimensions{Specified: true, Length: &length}

	desc := "updated description"
	width := 30.0
	update := &RequirementsUpdate{Description: &desc}
	update.Dimensions = &struct {
		Specified *bool    `json:"specified"`
		Length    *float64 `json:"length"`
		Width     *float64 `json:"width"`
		Height    *float64 `json:"height"`
	}{Width: &width}

	req.Merge(update)
	assert.Equal(t, "updated description", req.Description)
	assert.Equal(t, "existing purpose", req.Purpose)
	assert.True(t, req.Dimensions.Specified)
	assert.Equal(t, 50.0, *req.Dimensions.Length)
	assert.Equal(t, 30.0, *req.Dimensions.Width)
}

func TestConfidenceClamped(t *testing.T) {
	req := NewRequirements()
	req.UpdateConfidence(map[string]float64{
		SectionDimensions: 1.7,
		SectionPurpose:    -0.3,
	})
	assert.Equal(t, 1.0, req.Confidence[SectionDimensions])
	assert.Equal(t, 0.0, req.Confidence[SectionPurpose])
}
