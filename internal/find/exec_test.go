package find

import (
	"errors"
	"fmt"
	"strings"
	"testing"
)

// recordingBatch captures every batched invocation through the run seam.
type recordingBatch struct {
	runs []string
	err  error
}

func (r *recordingBatch) run(dir string, argv []string) error {
	r.runs = append(r.runs, fmt.Sprintf("%s: %s", dir, strings.Join(argv, " ")))
	return r.err
}

// TestExecBatcherGroupsByDirectory tests that one invocation covers one
// directory's worth of matches and a directory change forces a flush.
func TestExecBatcherGroupsByDirectory(t *testing.T) {
	rec := &recordingBatch{}
	b := &ExecBatcher{Argv: []string{"cmd", "-v"}}
	b.runBatch = rec.run

	b.Add("d1", "a")
	b.Add("d1", "b")
	b.Add("d2", "c")
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	want := []string{
		"d1: cmd -v ./a ./b",
		"d2: cmd -v ./c",
	}
	if len(rec.runs) != len(want) {
		t.Fatalf("Expected %d invocations, got %d: %v", len(want), len(rec.runs), rec.runs)
	}
	for i := range want {
		if rec.runs[i] != want[i] {
			t.Errorf("Invocation %d: expected %q, got %q", i, want[i], rec.runs[i])
		}
	}
}

// TestExecBatcherLimit tests that a full batch rolls over automatically.
func TestExecBatcherLimit(t *testing.T) {
	rec := &recordingBatch{}
	b := &ExecBatcher{Argv: []string{"cmd"}, Limit: 2}
	b.runBatch = rec.run

	b.Add("d", "a")
	if len(rec.runs) != 0 {
		t.Fatalf("Batch ran before the limit was reached: %v", rec.runs)
	}
	b.Add("d", "b")
	if len(rec.runs) != 1 {
		t.Fatalf("Expected the full batch to run, got %v", rec.runs)
	}
	b.Add("d", "c")
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	want := []string{
		"d: cmd ./a ./b",
		"d: cmd ./c",
	}
	for i := range want {
		if rec.runs[i] != want[i] {
			t.Errorf("Invocation %d: expected %q, got %q", i, want[i], rec.runs[i])
		}
	}
}

// TestExecBatcherSavedError tests that a rollover failure surfaces at the
// next explicit flush instead of being lost.
func TestExecBatcherSavedError(t *testing.T) {
	boom := errors.New("boom")
	rec := &recordingBatch{err: boom}
	b := &ExecBatcher{Argv: []string{"cmd"}, Limit: 1}
	b.runBatch = rec.run

	b.Add("d", "a") // rolls over and fails silently
	if !b.Outstanding() {
		t.Fatalf("Expected the saved failure to count as outstanding work")
	}
	err := b.Flush()
	if err == nil || !errors.Is(err, boom) {
		t.Errorf("Expected the rollover failure from Flush, got %v", err)
	}
	if b.Outstanding() {
		t.Errorf("Expected no outstanding work after Flush")
	}
}

// TestExecBatcherEmptyFlush tests that flushing with nothing queued is a
// no-op.
func TestExecBatcherEmptyFlush(t *testing.T) {
	rec := &recordingBatch{}
	b := &ExecBatcher{Argv: []string{"cmd"}}
	b.runBatch = rec.run

	if b.Outstanding() {
		t.Errorf("Expected no outstanding work on a fresh batcher")
	}
	if err := b.Flush(); err != nil {
		t.Errorf("Flush failed: %v", err)
	}
	if len(rec.runs) != 0 {
		t.Errorf("Expected no invocations, got %v", rec.runs)
	}
}
