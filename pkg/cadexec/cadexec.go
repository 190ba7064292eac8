// Package cadexec runs CadQuery scripts in a sandboxed Python subprocess
// and reports geometry results over a JSON protocol on stdout.
package cadexec

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"strings"
	"time"

	"cadforge/pkg/logx"
)

// BoundingBox is the model extent in mm along each axis.
type BoundingBox struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
	Z float64 `json:"z"`
}

// Result is the outcome of one execution. A failed run carries the Python
// error message; Error stays empty on success.
type Result struct {
	Success     bool         `json:"success"`
	BoundingBox *BoundingBox `json:"bounding_box,omitempty"`
	Error       string       `json:"error,omitempty"`
}

// Executor executes CadQuery scripts. The pipeline depends on this
// interface so tests can substitute a fake.
type Executor interface {
	// Execute runs the script and returns its bounding box. Execution
	// failures come back inside the Result; the error return is for
	// infrastructure problems only.
	Execute(ctx context.Context, code string) (Result, error)

	// ExportSTL runs the script and exports the result as an STL file,
	// returning the file path.
	ExportSTL(ctx context.Context, code, partID string) (string, error)
}

// PythonExecutor runs scripts through a Python interpreter with CadQuery
// installed.
type PythonExecutor struct {
	pythonBin string
	tempDir   string
	timeout   time.Duration
	logger    *logx.Logger
}

// NewPythonExecutor creates an executor. timeout bounds each subprocess run.
func NewPythonExecutor(pythonBin, tempDir string, timeout time.Duration) *PythonExecutor {
	if pythonBin == "" {
		pythonBin = "python3"
	}
	if tempDir == "" {
		tempDir = os.TempDir()
	}
	return &PythonExecutor{
		pythonBin: pythonBin,
		tempDir:   tempDir,
		timeout:   timeout,
		logger:    logx.NewLogger("cadexec"),
	}
}

// wire format emitted by the harness scripts
type harnessOutput struct {
	Success     bool         `json:"success"`
	BoundingBox *BoundingBox `json:"bounding_box"`
	Error       string       `json:"error"`
	Traceback   string       `json:"traceback"`
	Path        string       `json:"path"`
}

const executeHarness = `import sys
import json

try:
    import cadquery as cq
    import math

    # User code
%s

    # Bounding box works for both Workplane and Shape objects
    if hasattr(result, 'val'):
        shape = result.val()
    elif hasattr(result, 'wrapped'):
        shape = result.wrapped
    elif hasattr(result, 'BoundingBox'):
        shape = result
    else:
        if hasattr(result, 'build'):
            built = result.build()
            shape = built.val() if hasattr(built, 'val') else built
        else:
            shape = result

    bbox = shape.BoundingBox()
    output = {
        "success": True,
        "bounding_box": {
            "x": round(bbox.xlen, 3),
            "y": round(bbox.ylen, 3),
            "z": round(bbox.zlen, 3)
        }
    }
    print(json.dumps(output))
except Exception as e:
    import traceback
    output = {"success": False, "error": str(e), "traceback": traceback.format_exc()}
    print(json.dumps(output))
`

const exportHarness = `import sys
import json

try:
    import cadquery as cq
    from cadquery import exporters
    import math

    # User code
%s

    # Library objects like gears need build() before export
    export_shape = result
    if hasattr(result, 'build'):
        export_shape = result.build()

    exporters.export(export_shape, %q)
    output = {"success": True, "path": %q}
    print(json.dumps(output))
except Exception as e:
    import traceback
    output = {"success": False, "error": str(e), "traceback": traceback.format_exc()}
    print(json.dumps(output))
`

// Execute implements Executor.
func (e *PythonExecutor) Execute(ctx context.Context, code string) (Result, error) {
	script := fmt.Sprintf(executeHarness, indent(code, 4))
	out, err := e.runSandboxed(ctx, script)
	if err != nil {
		return Result{}, err
	}
	if !out.Success {
		e.logger.Debug("execution failed: %s", out.Error)
		return Result{Success: false, Error: out.Error}, nil
	}
	return Result{Success: true, BoundingBox: out.BoundingBox}, nil
}

// ExportSTL implements Executor.
func (e *PythonExecutor) ExportSTL(ctx context.Context, code, partID string) (string, error) {
	if err := os.MkdirAll(e.tempDir, 0o755); err != nil {
		return "", fmt.Errorf("failed to create temp dir: %w", err)
	}
	stlPath := filepath.Join(e.tempDir, partID+".stl")

	out, err := e.runSandboxed(ctx, renderExportScript(code, stlPath))
	if err != nil {
		return "", err
	}
	if !out.Success {
		if out.Error == "" {
			return "", errors.New("failed to generate STL")
		}
		return "", fmt.Errorf("failed to generate STL: %s", out.Error)
	}
	return stlPath, nil
}

func renderExportScript(code, stlPath string) string {
	return fmt.Sprintf(exportHarness, indent(code, 4), stlPath, stlPath)
}

// runSandboxed writes the harness to a temp file and runs it under the
// configured timeout. Timeouts and crashes come back as failed outputs,
// not errors.
func (e *PythonExecutor) runSandboxed(ctx context.Context, script string) (harnessOutput, error) {
	f, err := os.CreateTemp("", "cadforge-*.py")
	if err != nil {
		return harnessOutput{}, fmt.Errorf("failed to create script file: %w", err)
	}
	scriptPath := f.Name()
	defer os.Remove(scriptPath)

	if _, err := f.WriteString(script); err != nil {
		f.Close()
		return harnessOutput{}, fmt.Errorf("failed to write script file: %w", err)
	}
	if err := f.Close(); err != nil {
		return harnessOutput{}, fmt.Errorf("failed to close script file: %w", err)
	}

	ctx, cancel := context.WithTimeout(ctx, e.timeout)
	defer cancel()

	cmd := exec.CommandContext(ctx, e.pythonBin, scriptPath)
	var stdout, stderr strings.Builder
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	start := time.Now()
	runErr := cmd.Run()
	e.logger.Debug("subprocess finished in %.1fs", time.Since(start).Seconds())

	if ctx.Err() == context.DeadlineExceeded {
		return harnessOutput{
			Success: false,
			Error:   fmt.Sprintf("Execution timed out after %d seconds", int(e.timeout.Seconds())),
		}, nil
	}
	if runErr != nil {
		msg := strings.TrimSpace(stderr.String())
		if msg == "" {
			msg = runErr.Error()
		}
		return harnessOutput{Success: false, Error: msg}, nil
	}

	var out harnessOutput
	if err := json.Unmarshal([]byte(stdout.String()), &out); err != nil {
		return harnessOutput{
			Success: false,
			Error:   "Invalid output: " + strings.TrimSpace(stdout.String()),
		}, nil
	}
	if !out.Success && out.Error == "" {
		out.Error = "Unknown error"
	}
	return out, nil
}

func indent(code string, spaces int) string {
	pad := strings.Repeat(" ", spaces)
	lines := strings.Split(code, "\n")
	for i, line := range lines {
		lines[i] = pad + line
	}
	return strings.Join(lines, "\n")
}
