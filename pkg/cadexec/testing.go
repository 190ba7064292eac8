package cadexec

import (
	"context"
	"path/filepath"
	"sync"
)

// FakeExecutor is a scripted Executor for tests. Results are returned in
// order; when the queue is exhausted the last result repeats. The zero
// value succeeds every run with a 10x10x10 box.
type FakeExecutor struct {
	mu      sync.Mutex
	results []Result
	next    int
	Runs    []string // executed scripts, in order
}

// NewFakeExecutor creates a fake returning the given results in order.
func NewFakeExecutor(results ...Result) *FakeExecutor {
	return &FakeExecutor{results: results}
}

// Execute implements Executor.
func (f *FakeExecutor) Execute(_ context.Context, code string) (Result, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Runs = append(f.Runs, code)
	if len(f.results) == 0 {
		return Result{Success: true, BoundingBox: &BoundingBox{X: 10, Y: 10, Z: 10}}, nil
	}
	r := f.results[f.next]
	if f.next < len(f.results)-1 {
		f.next++
	}
	return r, nil
}

// ExportSTL implements Executor. It fabricates a path without running
// anything.
func (f *FakeExecutor) ExportSTL(_ context.Context, code, partID string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.Runs = append(f.Runs, code)
	return filepath.Join("/tmp", partID+".stl"), nil
}

// RunCount returns the number of executions seen.
func (f *FakeExecutor) RunCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Runs)
}
