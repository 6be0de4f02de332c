package find

import (
	"bufio"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"
)

// recordEvaluator collects the paths the driver hands out, in order.
type recordEvaluator struct {
	paths []string
	stop  map[string]bool
}

func (e *recordEvaluator) Evaluate(v Visit) Decision {
	e.paths = append(e.paths, v.Path)
	return Decision{StopDescent: e.stop[v.Path]}
}

// makeTree creates root/a/x.txt and root/b.txt and returns root.
func makeTree(t *testing.T) string {
	t.Helper()
	root := t.TempDir()
	if err := os.MkdirAll(filepath.Join(root, "a"), 0755); err != nil {
		t.Fatalf("Failed to create directory: %v", err)
	}
	for _, f := range []string{"a/x.txt", "b.txt"} {
		if err := os.WriteFile(filepath.Join(root, f), []byte("test"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
	return root
}

func expectPaths(t *testing.T, got, want []string) {
	t.Helper()
	if len(got) != len(want) {
		t.Fatalf("Expected paths %v, got %v", want, got)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("Path %d: expected %q, got %q", i, want[i], got[i])
		}
	}
}

// TestLooksLikeExpression tests the default starting-point classifier.
func TestLooksLikeExpression(t *testing.T) {
	cases := []struct {
		token   string
		leading bool
		want    bool
	}{
		{"-name", true, true},
		{"-name", false, true},
		{"-", true, false},
		{"(", true, true},
		{"(", false, false},
		{"!", true, true},
		{"!", false, false},
		{"path", true, false},
		{"./-x", true, false},
	}
	for _, c := range cases {
		if got := LooksLikeExpression(c.token, c.leading); got != c.want {
			t.Errorf("LooksLikeExpression(%q, %v): expected %v, got %v", c.token, c.leading, c.want, got)
		}
	}
}

// TestScannerStopsAtExpression tests that scanning ends at the first
// expression-looking token.
func TestScannerStopsAtExpression(t *testing.T) {
	s := &argScanner{
		args:     []string{"a", "b", "-name", "x"},
		stdin:    bufio.NewReader(strings.NewReader("")),
		classify: LooksLikeExpression,
	}
	batch := s.take(true)
	expectPaths(t, batch, []string{"a", "b"})
	if s.i != 2 {
		t.Errorf("Expected scanner position 2, got %d", s.i)
	}
	if next := s.take(true); len(next) != 0 {
		t.Errorf("Expected no further starting points, got %v", next)
	}
}

// TestScannerBatchCap tests that batches are capped and consumed in order.
func TestScannerBatchCap(t *testing.T) {
	args := make([]string, 250)
	for i := range args {
		args[i] = fmt.Sprintf("p%03d", i)
	}
	s := &argScanner{
		args:     args,
		stdin:    bufio.NewReader(strings.NewReader("")),
		classify: LooksLikeExpression,
	}
	sizes := []int{}
	var all []string
	for {
		batch := s.take(true)
		if len(batch) == 0 {
			break
		}
		sizes = append(sizes, len(batch))
		all = append(all, batch...)
	}
	if len(sizes) != 3 || sizes[0] != 100 || sizes[1] != 100 || sizes[2] != 50 {
		t.Errorf("Expected batch sizes [100 100 50], got %v", sizes)
	}
	expectPaths(t, all, args)
}

// TestScannerStdin tests that a bare "-" splices standard input into the
// starting-point list, CR/LF stripped, and scanning resumes afterwards.
func TestScannerStdin(t *testing.T) {
	s := &argScanner{
		args:     []string{"x", "-", "y"},
		stdin:    bufio.NewReader(strings.NewReader("s1\ns2\r\n")),
		classify: LooksLikeExpression,
	}
	batch := s.take(true)
	expectPaths(t, batch, []string{"x", "s1", "s2", "y"})
	if s.i != 3 {
		t.Errorf("Expected scanner position 3, got %d", s.i)
	}
}

// TestRunImplicitDot tests that a run without starting points walks the
// current directory.
func TestRunImplicitDot(t *testing.T) {
	root := makeTree(t)
	t.Chdir(root)

	rec := &recordEvaluator{}
	opts := DefaultOptions()
	opts.Evaluator = rec
	opts.Stdin = strings.NewReader("")

	if status := NewRunner(opts).Run(nil); status != 0 {
		t.Fatalf("Run failed with status %d", status)
	}
	expectPaths(t, rec.paths, []string{".", "./a", "./a/x.txt", "./b.txt"})
}

// TestRunExpressionOnly tests that a leading expression token still gets the
// implicit current-directory starting point.
func TestRunExpressionOnly(t *testing.T) {
	root := makeTree(t)
	t.Chdir(root)

	rec := &recordEvaluator{}
	opts := DefaultOptions()
	opts.Evaluator = rec
	opts.Stdin = strings.NewReader("")

	if status := NewRunner(opts).Run([]string{"-name"}); status != 0 {
		t.Fatalf("Run failed with status %d", status)
	}
	expectPaths(t, rec.paths, []string{".", "./a", "./a/x.txt", "./b.txt"})
}

// TestRunStopsAtExpression tests that only the tokens before the expression
// are walked.
func TestRunStopsAtExpression(t *testing.T) {
	root := makeTree(t)
	t.Chdir(root)

	rec := &recordEvaluator{}
	opts := DefaultOptions()
	opts.Evaluator = rec
	opts.Stdin = strings.NewReader("")

	if status := NewRunner(opts).Run([]string{"a", "-type", "f"}); status != 0 {
		t.Fatalf("Run failed with status %d", status)
	}
	expectPaths(t, rec.paths, []string{"a", "a/x.txt"})
}

// TestRunStdinRoots tests reading starting points from standard input via a
// bare "-". An exhausted "-" must not trigger the implicit current-directory
// fallback.
func TestRunStdinRoots(t *testing.T) {
	root := t.TempDir()
	for _, d := range []string{"foo", "bar"} {
		if err := os.Mkdir(filepath.Join(root, d), 0755); err != nil {
			t.Fatalf("Failed to create directory: %v", err)
		}
	}
	t.Chdir(root)

	rec := &recordEvaluator{}
	opts := DefaultOptions()
	opts.Evaluator = rec
	opts.Stdin = strings.NewReader("foo\nbar\r\n")

	if status := NewRunner(opts).Run([]string{"-"}); status != 0 {
		t.Fatalf("Run failed with status %d", status)
	}
	expectPaths(t, rec.paths, []string{"foo", "bar"})
}

// TestRunStdinEmpty tests that "-" with empty standard input walks nothing
// at all.
func TestRunStdinEmpty(t *testing.T) {
	root := makeTree(t)
	t.Chdir(root)

	rec := &recordEvaluator{}
	opts := DefaultOptions()
	opts.Evaluator = rec
	opts.Stdin = strings.NewReader("")

	if status := NewRunner(opts).Run([]string{"-"}); status != 0 {
		t.Fatalf("Run failed with status %d", status)
	}
	if len(rec.paths) != 0 {
		t.Errorf("Expected no paths, got %v", rec.paths)
	}
}

// TestRunManyRoots tests that a starting-point list longer than one batch is
// fully processed, in order.
func TestRunManyRoots(t *testing.T) {
	root := t.TempDir()
	args := make([]string, 150)
	for i := range args {
		args[i] = fmt.Sprintf("f%03d", i)
		name := filepath.Join(root, args[i])
		if err := os.WriteFile(name, []byte("x"), 0644); err != nil {
			t.Fatalf("Failed to create test file: %v", err)
		}
	}
	t.Chdir(root)

	rec := &recordEvaluator{}
	opts := DefaultOptions()
	opts.Evaluator = rec
	opts.Stdin = strings.NewReader("")

	r := NewRunner(opts)
	if status := r.Run(args); status != 0 {
		t.Fatalf("Run failed with status %d", status)
	}
	expectPaths(t, rec.paths, args)
	if r.Stats().Evaluated != 150 {
		t.Errorf("Expected 150 evaluated entries, got %d", r.Stats().Evaluated)
	}
}

// TestRunMissingRoot tests that a nonexistent starting point is diagnosed
// and fails the run without stopping later roots.
func TestRunMissingRoot(t *testing.T) {
	root := makeTree(t)
	t.Chdir(root)

	rec := &recordEvaluator{}
	opts := DefaultOptions()
	opts.Evaluator = rec
	opts.Stdin = strings.NewReader("")

	r := NewRunner(opts)
	if status := r.Run([]string{"nope", "a"}); status != 1 {
		t.Fatalf("Expected exit status 1, got %d", status)
	}
	expectPaths(t, rec.paths, []string{"a", "a/x.txt"})
	if r.Stats().Errors != 1 {
		t.Errorf("Expected 1 error, got %d", r.Stats().Errors)
	}
}
