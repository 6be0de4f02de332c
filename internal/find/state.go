// Package find drives a cycle-safe traversal over a forest of starting
// points: it sequences root batches, applies depth and ordering policy to
// each reported entry, tracks the current-directory descriptor across
// entries, and triggers deferred batched actions at level changes.
package find

import (
	"io"
	"math"

	"go.uber.org/zap"

	"github.com/TFMV/trawl/internal/fts"
)

// Options configures one run of the driver. Immutable once Run starts.
type Options struct {
	// MinDepth is the inclusive lower bound on evaluated depth.
	MinDepth int

	// MaxDepth is the inclusive upper bound on evaluated depth;
	// -1 means unbounded. Descent stops at MaxDepth.
	MaxDepth int

	// PreOrder evaluates directories before their contents; false gives
	// post-order ("-depth") semantics.
	PreOrder bool

	OneFilesystem bool
	Symlinks      fts.SymlinkPolicy

	// NoStat lets the walker skip stat calls where the entry type is
	// already known; the driver re-stats directories as needed.
	NoStat bool

	// DirFDs enables fd-relative traversal.
	DirFDs bool

	// TightCycles widens cycle detection beyond the ancestor chain.
	TightCycles bool

	// Evaluator receives every eligible entry. Defaults to a
	// PrintEvaluator writing to standard output.
	Evaluator Evaluator

	// Batcher, when set, is flushed whenever the walk changes level and
	// once more at clean end of run.
	Batcher PendingBatcher

	// Classifier decides where the starting-point list ends. Defaults to
	// LooksLikeExpression.
	Classifier ClassifierFunc

	// Stdin supplies additional starting points when a bare "-" appears
	// in the argument list. Defaults to os.Stdin.
	Stdin io.Reader

	Logger *zap.Logger
}

// DefaultOptions returns the options a bare invocation runs with.
func DefaultOptions() Options {
	return Options{
		MinDepth:    0,
		MaxDepth:    -1,
		PreOrder:    true,
		DirFDs:      true,
		TightCycles: true,
	}
}

// state is the single mutable traversal context for one run. It is written
// only by the driver and read by the evaluator within one synchronous call
// chain.
type state struct {
	// prevDepth is the depth of the previously processed entry,
	// initialized below any real depth so the first entry always looks
	// like a level change.
	prevDepth int

	// stopAtCurrentLevel latches an evaluator's prune request until the
	// owning directory's post-order visit consumes it.
	stopAtCurrentLevel bool

	// severity is the worst exit status seen so far.
	severity int
}

func newState() state {
	return state{prevDepth: math.MinInt}
}

func (s *state) escalate(status int) {
	if status > s.severity {
		s.severity = status
	}
}
