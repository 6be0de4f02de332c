package find

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"golang.org/x/sys/unix"

	"github.com/TFMV/trawl/internal/fts"
)

// TestPrintEvaluatorPlain tests that without filters every path is printed.
func TestPrintEvaluatorPlain(t *testing.T) {
	var out bytes.Buffer
	e := &PrintEvaluator{Out: &out}

	e.Evaluate(Visit{Path: "./a"})
	e.Evaluate(Visit{Path: "./b.txt"})

	if got := out.String(); got != "./a\n./b.txt\n" {
		t.Errorf("Expected both paths printed, got %q", got)
	}
}

// TestPrintEvaluatorName tests base-name glob filtering.
func TestPrintEvaluatorName(t *testing.T) {
	var out bytes.Buffer
	e := &PrintEvaluator{Name: "*.go", Out: &out}

	e.Evaluate(Visit{Path: "./src/main.go"})
	e.Evaluate(Visit{Path: "./src/README.md"})
	e.Evaluate(Visit{Path: "./go"}) // no extension, no match

	if got := out.String(); got != "./src/main.go\n" {
		t.Errorf("Expected only the Go file printed, got %q", got)
	}
}

// TestPrintEvaluatorType tests type-letter filtering against stat data.
func TestPrintEvaluatorType(t *testing.T) {
	var out bytes.Buffer
	e := &PrintEvaluator{Type: 'f', Out: &out}

	reg := &unix.Stat_t{Mode: unix.S_IFREG | 0644}
	dir := &unix.Stat_t{Mode: unix.S_IFDIR | 0755}

	e.Evaluate(Visit{Path: "./file", Stat: reg})
	e.Evaluate(Visit{Path: "./dir", Stat: dir})

	if got := out.String(); got != "./file\n" {
		t.Errorf("Expected only the regular file printed, got %q", got)
	}
}

// TestPrintEvaluatorTypeStatsOnDemand tests that an entry delivered without
// stat data is stat-ed through its access path before type matching.
func TestPrintEvaluatorTypeStatsOnDemand(t *testing.T) {
	root := t.TempDir()
	name := filepath.Join(root, "f.txt")
	if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
		t.Fatalf("Failed to create test file: %v", err)
	}

	var out bytes.Buffer
	e := &PrintEvaluator{Type: 'f', Out: &out}

	e.Evaluate(Visit{Path: name, AccessPath: name, DirFD: fts.CWDFD})
	e.Evaluate(Visit{Path: root, AccessPath: root, DirFD: fts.CWDFD})
	e.Evaluate(Visit{Path: "./gone", AccessPath: filepath.Join(root, "gone"), DirFD: fts.CWDFD})

	if got := out.String(); got != name+"\n" {
		t.Errorf("Expected only the regular file printed, got %q", got)
	}
}

// TestPrintEvaluatorBatch tests that matches are routed to the batcher
// instead of being printed.
func TestPrintEvaluatorBatch(t *testing.T) {
	var out bytes.Buffer
	rec := &recordingBatch{}
	b := &ExecBatcher{Argv: []string{"cmd"}}
	b.runBatch = rec.run
	e := &PrintEvaluator{Name: "*.txt", Out: &out, Batch: b}

	e.Evaluate(Visit{Path: "./d/one.txt"})
	e.Evaluate(Visit{Path: "./d/two.txt"})
	e.Evaluate(Visit{Path: "./d/skip.md"})
	if err := b.Flush(); err != nil {
		t.Fatalf("Flush failed: %v", err)
	}

	if out.Len() != 0 {
		t.Errorf("Expected nothing printed, got %q", out.String())
	}
	if len(rec.runs) != 1 || rec.runs[0] != "./d: cmd ./one.txt ./two.txt" {
		t.Errorf("Expected one batched invocation, got %v", rec.runs)
	}
}
