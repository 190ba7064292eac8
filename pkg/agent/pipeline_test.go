package agent

import (
	"context"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"cadforge/pkg/agent/llm"
	"cadforge/pkg/agent/llmerrors"
	"cadforge/pkg/cadexec"
	"cadforge/pkg/config"
)

const goodScript = "```python\nimport cadquery as cq\nresult = cq.Workplane(\"XY\").box(40, 25, 10)\n```"

const reviewJSON = "{\"issues\": [], \"suggestions\": []}"

func pipelineFixture(t *testing.T, mock *MockClient, exec cadexec.Executor) *Pipeline {
	t.Helper()
	cfg := config.Default()
	gw := NewGatewayWithClients(cfg, map[string]llm.Client{"anthropic": mock})
	return NewPipeline(cfg, gw, exec)
}

func TestPipelineHappyPath(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Content: goodScript},
		MockResponse{Match: "validating CadQuery code", Content: "{\"issues\": [\"thin wall near base\"], \"suggestions\": [\"thicken the base\"]}"},
	)
	exec := cadexec.NewFakeExecutor(cadexec.Result{
		Success:     true,
		BoundingBox: &cadexec.BoundingBox{X: 40, Y: 25, Z: 10},
	})
	p := pipelineFixture(t, mock, exec)

	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a mounting bracket 40x25x10",
		Provider: "anthropic",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Code, "cq.Workplane")
	assert.Equal(t, 1, res.Iterations)
	require.NotNil(t, res.BoundingBox)
	assert.Equal(t, 40.0, res.BoundingBox.X)
	assert.Contains(t, res.Warnings, "thin wall near base")
	assert.Contains(t, res.Suggestions, "thicken the base")
}

func TestPipelineRetriesOnExecutionFailure(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Content: goodScript},
		// retry prompt carries the execution error
		MockResponse{Match: "BRep_API: command not done", Content: goodScript},
		MockResponse{Match: "validating CadQuery code", Content: reviewJSON},
	)
	exec := cadexec.NewFakeExecutor(
		cadexec.Result{Success: false, Error: "BRep_API: command not done"},
		cadexec.Result{Success: true, BoundingBox: &cadexec.BoundingBox{X: 40, Y: 25, Z: 10}},
	)
	p := pipelineFixture(t, mock, exec)

	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a bracket",
		Provider: "anthropic",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Iterations)
	assert.Equal(t, 2, exec.RunCount())
}

func TestPipelineFailsAfterRetryExhaustion(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Content: goodScript, Sticky: true},
	)
	exec := cadexec.NewFakeExecutor(
		cadexec.Result{Success: false, Error: "BRep_API: command not done"},
	)
	p := pipelineFixture(t, mock, exec)

	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "an impossible shape",
		Provider: "anthropic",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Iterations)
	assert.Contains(t, res.Errors, "BRep_API: command not done")
	assert.Equal(t, 3, exec.RunCount())
}

func TestPipelineRetriesTransientDesignError(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Err: llmerrors.New(llmerrors.ErrorTypeTransient, "deadline exceeded")},
		MockResponse{Match: "designing 3D parts", Content: goodScript},
		MockResponse{Match: "validating CadQuery code", Content: reviewJSON},
	)
	exec := cadexec.NewFakeExecutor(cadexec.Result{
		Success:     true,
		BoundingBox: &cadexec.BoundingBox{X: 40, Y: 25, Z: 10},
	})
	p := pipelineFixture(t, mock, exec)

	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a bracket",
		Provider: "anthropic",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 2, res.Iterations)
	// only the second design call reached the executor
	assert.Equal(t, 1, exec.RunCount())
}

func TestPipelinePermanentDesignErrorAborts(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Err: llmerrors.New(llmerrors.ErrorTypePermanent, "invalid API key")},
	)
	p := pipelineFixture(t, mock, cadexec.NewFakeExecutor())

	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a bracket",
		Provider: "anthropic",
	})
	require.Error(t, err)
	assert.Nil(t, res)
	assert.True(t, llmerrors.IsPermanent(err))
	assert.Equal(t, 1, mock.CallCount())
}

func TestPipelineTransientDesignErrorsExhaustBudget(t *testing.T) {
	// no scripted responses: every design call fails with an
	// empty-response error, which counts as transient
	mock := NewMockClient("anthropic")
	exec := cadexec.NewFakeExecutor()
	p := pipelineFixture(t, mock, exec)

	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a bracket",
		Provider: "anthropic",
	})
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Equal(t, 3, res.Iterations)
	assert.Equal(t, 3, mock.CallCount())
	assert.NotEmpty(t, res.Errors)
	assert.Equal(t, 0, exec.RunCount())
}

func TestPipelineRejectsEmptyInput(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "Existing code to modify", Content: goodScript},
		MockResponse{Match: "validating CadQuery code", Content: reviewJSON},
	)
	exec := cadexec.NewFakeExecutor(cadexec.Result{
		Success:     true,
		BoundingBox: &cadexec.BoundingBox{X: 40, Y: 25, Z: 10},
	})
	p := pipelineFixture(t, mock, exec)

	_, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "   ",
		Provider: "anthropic",
	})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidInput))
	assert.Equal(t, 0, mock.CallCount())

	// existing code alone is enough to design from
	res, err := p.Run(context.Background(), PipelineRequest{
		Provider:     "anthropic",
		ExistingCode: "import cadquery as cq\nresult = cq.Workplane(\"XY\").box(10, 10, 10)",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
}

func TestPipelineStaticValidationTriggersRetry(t *testing.T) {
	broken := "```python\nresult = cq.Workplane(\"XY\").box(10, 10, 10)\n```"
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Content: broken},
		MockResponse{Match: "validating CadQuery code", Content: reviewJSON},
	)
	exec := cadexec.NewFakeExecutor()
	p := pipelineFixture(t, mock, exec)

	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a cube",
		Provider: "anthropic",
	})
	require.NoError(t, err)
	// missing import is auto-corrected, so the first validation pass fixes
	// the script rather than failing it
	assert.True(t, res.Success)
	assert.Contains(t, res.Code, "import cadquery as cq")
}

func TestPipelinePrintabilityWarning(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Content: goodScript},
		MockResponse{Match: "validating CadQuery code", Content: reviewJSON},
	)
	exec := cadexec.NewFakeExecutor(cadexec.Result{
		Success:     true,
		BoundingBox: &cadexec.BoundingBox{X: 300, Y: 25, Z: 10},
	})
	p := pipelineFixture(t, mock, exec)

	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a very long rail",
		Provider: "anthropic",
	})
	require.NoError(t, err)
	assert.True(t, res.Success)

	found := false
	for _, w := range res.Warnings {
		if strings.Contains(w, "exceeds build volume on X") {
			found = true
		}
	}
	assert.True(t, found, "expected a build volume overflow warning, got %v", res.Warnings)
}

func TestPipelineOptimizationAdoptedOnSuccess(t *testing.T) {
	optimized := "```python\nimport cadquery as cq\nresult = cq.Workplane(\"XY\").box(40, 25, 10).edges(\"|Z\").fillet(2)\n```"
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Content: goodScript},
		MockResponse{Match: "validating CadQuery code", Content: reviewJSON},
		MockResponse{Match: "optimizing 3D parts", Content: optimized},
	)
	exec := cadexec.NewFakeExecutor(
		cadexec.Result{Success: true, BoundingBox: &cadexec.BoundingBox{X: 40, Y: 25, Z: 10}},
		cadexec.Result{Success: true, BoundingBox: &cadexec.BoundingBox{X: 40, Y: 25, Z: 10}},
	)
	p := pipelineFixture(t, mock, exec)

	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a bracket",
		Provider: "anthropic",
		Optimize: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Contains(t, res.Code, ".fillet(2)")
}

func TestPipelineOptimizationDiscardedOnFailure(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Content: goodScript},
		MockResponse{Match: "validating CadQuery code", Content: reviewJSON},
		MockResponse{Match: "optimizing 3D parts", Content: goodScript},
	)
	exec := cadexec.NewFakeExecutor(
		cadexec.Result{Success: true, BoundingBox: &cadexec.BoundingBox{X: 40, Y: 25, Z: 10}},
		cadexec.Result{Success: false, Error: "BRep_API: command not done"},
	)
	p := pipelineFixture(t, mock, exec)

	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a bracket",
		Provider: "anthropic",
		Optimize: true,
	})
	require.NoError(t, err)
	assert.True(t, res.Success)
	// original bbox survives the discarded optimization
	assert.Equal(t, 40.0, res.BoundingBox.X)

	skipped := false
	for _, entry := range res.Trace {
		if entry.Stage == "optimization" && strings.Contains(entry.Content, "skipped") {
			skipped = true
		}
	}
	assert.True(t, skipped, "expected an optimization skipped trace note")
}

func TestPipelineReviewRequiresImage(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Content: goodScript, Sticky: true},
		MockResponse{Match: "validating CadQuery code", Content: reviewJSON, Sticky: true},
		MockResponse{Match: "judging how well", Content: "{\"score\": 8, \"matches\": true, \"differences\": [], \"suggestions\": [\"add a chamfer\"]}", Sticky: true},
	)

	// no image: review stage never runs
	p := pipelineFixture(t, mock, cadexec.NewFakeExecutor())
	res, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a bracket",
		Provider: "anthropic",
		Review:   true,
	})
	require.NoError(t, err)
	assert.Nil(t, res.Review)

	// with an image the verdict lands on the result
	res, err = p.Run(context.Background(), PipelineRequest{
		Prompt:   "a bracket",
		Provider: "anthropic",
		Review:   true,
		Images:   []llm.Image{{Data: []byte{0xFF, 0xD8}, Mime: "image/jpeg"}},
	})
	require.NoError(t, err)
	require.NotNil(t, res.Review)
	assert.Equal(t, 8, res.Review.Score)
	assert.True(t, res.Review.Matches)
	assert.Contains(t, res.Suggestions, "add a chamfer")
}

func TestPipelineModelRouting(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Content: goodScript},
		MockResponse{Match: "validating CadQuery code", Content: reviewJSON},
	)
	p := pipelineFixture(t, mock, cadexec.NewFakeExecutor())

	_, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a bracket",
		Provider: "anthropic",
	})
	require.NoError(t, err)

	calls := mock.Calls()
	require.Len(t, calls, 2)
	assert.Equal(t, config.BestAnthropicModel, calls[0].Model)
	assert.Equal(t, config.FastAnthropicModel, calls[1].Model)
}

func TestPipelineModelOverride(t *testing.T) {
	mock := NewMockClient("anthropic",
		MockResponse{Match: "designing 3D parts", Content: goodScript},
		MockResponse{Match: "validating CadQuery code", Content: reviewJSON},
	)
	p := pipelineFixture(t, mock, cadexec.NewFakeExecutor())

	_, err := p.Run(context.Background(), PipelineRequest{
		Prompt:   "a bracket",
		Provider: "anthropic",
		Model:    "claude-sonnet-4-5-20250929",
	})
	require.NoError(t, err)
	assert.Equal(t, "claude-sonnet-4-5-20250929", mock.Calls()[0].Model)
}
