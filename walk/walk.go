package walk

import (
	"github.com/TFMV/trawl/internal/find"
	"github.com/TFMV/trawl/internal/fts"
)

// Re-export the traversal types from the internal packages
type (
	// Entry is one event in the traversal stream.
	Entry = fts.Entry

	// VisitKind classifies an Entry.
	VisitKind = fts.VisitKind

	// CycleRef identifies the ancestor that closes a directory loop.
	CycleRef = fts.CycleRef

	// Walker produces the entry stream for a set of starting points.
	Walker = fts.Walker

	// WalkerOptions configures a Walker.
	WalkerOptions = fts.Options

	// SymlinkPolicy controls symbolic link dereferencing.
	SymlinkPolicy = fts.SymlinkPolicy

	// Options configures a Runner.
	Options = find.Options

	// Runner drives a search over one or more starting points.
	Runner = find.Runner

	// Visit carries one eligible entry to the evaluator.
	Visit = find.Visit

	// Decision is the evaluator's verdict on one entry.
	Decision = find.Decision

	// Evaluator is the external predicate engine.
	Evaluator = find.Evaluator

	// EvaluatorFunc adapts a function to the Evaluator interface.
	EvaluatorFunc = find.EvaluatorFunc

	// PrintEvaluator prints each eligible path, optionally filtered by a
	// base-name glob and a type letter.
	PrintEvaluator = find.PrintEvaluator

	// PendingBatcher accumulates work that must be flushed when the walk
	// changes directory level.
	PendingBatcher = find.PendingBatcher

	// ExecBatcher groups matched names by directory and runs a command per
	// batch.
	ExecBatcher = find.ExecBatcher

	// ClassifierFunc reports whether a leading argument is part of the
	// expression rather than a starting point.
	ClassifierFunc = find.ClassifierFunc

	// Stats holds traversal counters.
	Stats = find.Stats

	// LogLevel defines the verbosity of logging.
	LogLevel = find.LogLevel
)

// Re-export the constants
const (
	// Entry kinds
	KindDirPre        = fts.KindDirPre
	KindDirPost       = fts.KindDirPost
	KindDirCycle      = fts.KindDirCycle
	KindDirUnreadable = fts.KindDirUnreadable
	KindFile          = fts.KindFile
	KindDefault       = fts.KindDefault
	KindSymlink       = fts.KindSymlink
	KindSymlinkBroken = fts.KindSymlinkBroken
	KindNoStat        = fts.KindNoStat
	KindNoStatOk      = fts.KindNoStatOk
	KindError         = fts.KindError

	// Symlink policies
	NeverFollow = fts.NeverFollow
	FollowRoots = fts.FollowRoots
	FollowAll   = fts.FollowAll

	// Log levels
	LogLevelError = find.LogLevelError
	LogLevelWarn  = find.LogLevelWarn
	LogLevelInfo  = find.LogLevelInfo
	LogLevelDebug = find.LogLevelDebug

	// MaxBatchRoots caps the number of starting points consumed per batch.
	MaxBatchRoots = find.MaxBatchRoots

	// DefaultExecBatchSize is the per-directory command batch limit.
	DefaultExecBatchSize = find.DefaultExecBatchSize
)

// Open starts a traversal of the given starting points.
func Open(roots []string, opts WalkerOptions) (*Walker, error) {
	return fts.Open(roots, opts)
}

// DefaultOptions returns the Runner configuration used by the trawl command
// when no flags are given.
func DefaultOptions() Options {
	return find.DefaultOptions()
}

// NewRunner builds a Runner. Zero-value fields in opts are filled with
// defaults.
func NewRunner(opts Options) *Runner {
	return find.NewRunner(opts)
}

// LooksLikeExpression is the default starting-point classifier: it treats
// "-name"-style tokens, "(" and "!" as expression syntax.
func LooksLikeExpression(token string, leading bool) bool {
	return find.LooksLikeExpression(token, leading)
}
