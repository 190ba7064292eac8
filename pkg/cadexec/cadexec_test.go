package cadexec

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIndent(t *testing.T) {
	out := indent("a\nb", 4)
	assert.Equal(t, "    a\n    b", out)
}

func TestExecuteHarnessEmbedsUserCode(t *testing.T) {
	script := "import cadquery as cq\nresult = cq.Workplane(\"XY\").box(1, 1, 1)"
	harness := strings.Count(executeHarness, "%s")
	assert.Equal(t, 1, harness)

	rendered := strings.Replace(executeHarness, "%s", indent(script, 4), 1)
	assert.Contains(t, rendered, "    result = cq.Workplane")
	assert.Contains(t, rendered, "json.dumps(output)")
}

func TestHarnessOutputDecoding(t *testing.T) {
	fe := NewFakeExecutor(
		Result{Success: true, BoundingBox: &BoundingBox{X: 40, Y: 25, Z: 10}},
		Result{Success: false, Error: "BRep_API: command not done"},
	)

	res, err := fe.Execute(context.Background(), "code-1")
	require.NoError(t, err)
	assert.True(t, res.Success)
	assert.Equal(t, 40.0, res.BoundingBox.X)

	res, err = fe.Execute(context.Background(), "code-2")
	require.NoError(t, err)
	assert.False(t, res.Success)
	assert.Contains(t, res.Error, "BRep_API")

	// Exhausted queue repeats the last result.
	res, _ = fe.Execute(context.Background(), "code-3")
	assert.False(t, res.Success)
	assert.Equal(t, 3, fe.RunCount())
}

func TestExportHarnessEmbedsTargetPath(t *testing.T) {
	rendered := renderExportScript("result = cq.Workplane(\"XY\").box(1, 1, 1)", "/tmp/part-1.stl")
	assert.Contains(t, rendered, `exporters.export(export_shape, "/tmp/part-1.stl")`)
	assert.Contains(t, rendered, "    result = cq.Workplane")
}

func TestFakeExportSTL(t *testing.T) {
	fe := NewFakeExecutor()
	path, err := fe.ExportSTL(context.Background(), "code", "part-7")
	require.NoError(t, err)
	assert.True(t, strings.HasSuffix(path, "part-7.stl"))
	assert.Equal(t, 1, fe.RunCount())
}

// Uses /bin/sh as a stand-in interpreter so the subprocess plumbing is
// exercised without a CadQuery install.
func TestRunSandboxedParsesJSON(t *testing.T) {
	e := NewPythonExecutor("/bin/sh", t.TempDir(), 5*time.Second)

	out, err := e.runSandboxed(context.Background(), `echo '{"success": true, "bounding_box": {"x": 1.5, "y": 2, "z": 3}}'`)
	require.NoError(t, err)
	assert.True(t, out.Success)
	require.NotNil(t, out.BoundingBox)
	assert.Equal(t, 1.5, out.BoundingBox.X)
}

func TestRunSandboxedInvalidOutput(t *testing.T) {
	e := NewPythonExecutor("/bin/sh", t.TempDir(), 5*time.Second)

	out, err := e.runSandboxed(context.Background(), `echo not-json`)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "Invalid output")
}

func TestRunSandboxedTimeout(t *testing.T) {
	e := NewPythonExecutor("/bin/sh", t.TempDir(), 300*time.Millisecond)

	out, err := e.runSandboxed(context.Background(), `sleep 5`)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "timed out")
}

func TestRunSandboxedNonZeroExit(t *testing.T) {
	e := NewPythonExecutor("/bin/sh", t.TempDir(), 5*time.Second)

	out, err := e.runSandboxed(context.Background(), `echo boom >&2; exit 1`)
	require.NoError(t, err)
	assert.False(t, out.Success)
	assert.Contains(t, out.Error, "boom")
}
