package find

import (
	"bufio"
	"math"
	"os"
	"strings"

	"go.uber.org/zap"

	"github.com/TFMV/trawl/internal/fts"
)

// MaxBatchRoots caps how many starting points one walker invocation handles.
const MaxBatchRoots = 100

// ClassifierFunc reports whether token looks like the start of an expression
// rather than a path. leading is true when the token is in a position where
// the expression part of the command line may begin.
type ClassifierFunc func(token string, leading bool) bool

// LooksLikeExpression is the default classifier: an option-like token
// ("-name", "-type", ...) always starts the expression; "(" and "!" do so
// only in leading position. A bare "-" is not an expression, it switches the
// scanner to standard input.
func LooksLikeExpression(token string, leading bool) bool {
	if len(token) > 1 && token[0] == '-' {
		return true
	}
	if leading && (token == "(" || token == "!") {
		return true
	}
	return false
}

// argScanner partitions the argument list into batches of starting points.
type argScanner struct {
	args      []string
	i         int
	stdinMode bool
	stdin     *bufio.Reader
	classify  ClassifierFunc
}

// take collects the next batch of at most MaxBatchRoots starting points.
// Each returned string is a fresh copy: downstream batched actions may
// rewrite path buffers in place, so nothing aliases the argument list.
func (s *argScanner) take(leading bool) []string {
	var batch []string
	for len(batch) < MaxBatchRoots && (s.stdinMode || s.i < len(s.args)) {
		if s.stdinMode {
			line, ok := s.readLine()
			if !ok {
				// Standard input is exhausted; step past the "-"
				// and resume scanning the argument list.
				s.stdinMode = false
				s.i++
				continue
			}
			batch = append(batch, line)
			continue
		}

		arg := s.args[s.i]
		if arg == "-" {
			s.stdinMode = true
			continue
		}
		if s.classify(arg, leading) {
			break
		}
		batch = append(batch, strings.Clone(arg))
		s.i++
	}
	return batch
}

// readLine returns the next newline-terminated starting point from standard
// input with its trailing CR/LF stripped.
func (s *argScanner) readLine() (string, bool) {
	line, err := s.stdin.ReadString('\n')
	if line == "" && err != nil {
		return "", false
	}
	line = strings.TrimSuffix(line, "\n")
	line = strings.TrimSuffix(line, "\r")
	return line, true
}

// Runner is the multi-root sequencer: it expands the starting-point list
// into bounded batches and drives one walker invocation per batch,
// aggregating severity across them.
type Runner struct {
	opts   Options
	log    *zap.Logger
	eval   Evaluator
	stdin  *bufio.Reader
	st     state
	dirCtx dirContext
	stats  Stats
}

// NewRunner prepares a run with opts. Zero-value evaluator, classifier,
// stdin and logger fields get working defaults.
func NewRunner(opts Options) *Runner {
	if opts.Logger == nil {
		opts.Logger = zap.NewNop()
	}
	if opts.Evaluator == nil {
		opts.Evaluator = &PrintEvaluator{}
	}
	if opts.Classifier == nil {
		opts.Classifier = LooksLikeExpression
	}
	if opts.Stdin == nil {
		opts.Stdin = os.Stdin
	}
	return &Runner{
		opts:   opts,
		log:    opts.Logger,
		eval:   opts.Evaluator,
		stdin:  bufio.NewReader(opts.Stdin),
		st:     newState(),
		dirCtx: newDirContext(opts.DirFDs),
	}
}

// Stats returns the counters accumulated so far.
func (r *Runner) Stats() Stats { return r.stats }

// ExitStatus returns the worst severity seen so far.
func (r *Runner) ExitStatus() int { return r.st.severity }

// Run processes every starting point in args (plus standard input where a
// bare "-" appears) and returns the process exit status. If no starting
// point is found at all, a single implicit "." is walked. Pending batched
// actions are flushed at clean end of run; they are deliberately NOT flushed
// after a context-integrity failure, since they could execute in the wrong
// directory.
func (r *Runner) Run(args []string) int {
	defer r.dirCtx.Close()

	scan := &argScanner{
		args:     args,
		stdin:    r.stdin,
		classify: r.opts.Classifier,
	}

	ok := true
	for {
		batch := scan.take(true)
		if len(batch) == 0 {
			break
		}
		if !r.find(batch) {
			ok = false
			break
		}
	}

	if ok && scan.i == 0 {
		// No starting point anywhere: walk the current directory. The
		// path is a fresh allocation because downstream actions may
		// rewrite it in place.
		if !r.find([]string{strings.Clone(".")}) {
			ok = false
		}
	}

	if ok {
		r.flushRemaining()
		r.logStats()
	}
	return r.st.severity
}

// find walks one batch of starting points. It returns false when the
// traversal context can no longer be trusted; the caller must then abandon
// the remaining batches.
func (r *Runner) find(paths []string) bool {
	if err := r.dirCtx.Enter(fts.CWDFD); err != nil {
		r.log.Error("traversal context lost", zap.Error(err))
		r.st.escalate(1)
		return false
	}

	w, err := fts.Open(paths, fts.Options{
		Symlinks:      r.opts.Symlinks,
		OneFilesystem: r.opts.OneFilesystem,
		NoStat:        r.opts.NoStat,
		DirFDs:        r.opts.DirFDs,
		TightCycles:   r.opts.TightCycles,
		Logger:        r.log,
	})
	if err != nil {
		// This batch fails; later batches still get their chance.
		r.log.Error("cannot search", zap.String("path", paths[0]), zap.Error(err))
		r.st.escalate(1)
		return true
	}

	level := math.MinInt
	for {
		ent, nerr := w.Next()
		if nerr != nil {
			r.log.Error("failed to read file names from file system",
				zap.String("path", paths[0]), zap.Error(nerr))
			r.st.escalate(1)
			w.Close()
			return false
		}
		if ent == nil {
			break
		}

		if r.opts.Batcher != nil && r.opts.Batcher.Outstanding() && ent.Depth != level {
			// The walk moved to a different level: entries queued for
			// batched actions can no longer rely on the directory
			// context they were queued under.
			if err := r.opts.Batcher.Flush(); err != nil {
				r.log.Error("flush pending batched actions", zap.Error(err))
				r.st.escalate(1)
			}
		}
		level = ent.Depth

		if err := r.considerVisiting(w, ent); err != nil {
			r.log.Error("traversal context lost", zap.Error(err))
			r.st.escalate(1)
			w.Close()
			return false
		}
	}

	if err := w.Close(); err != nil {
		// Without a restored context, batched actions further down
		// could run in the wrong directory; stop the whole run.
		r.log.Error("failed to restore working directory after searching",
			zap.String("path", paths[0]), zap.Error(err))
		r.st.escalate(1)
		return false
	}
	return true
}

// flushRemaining executes any partially built batched actions left over at
// clean end of run.
func (r *Runner) flushRemaining() {
	if r.opts.Batcher != nil && r.opts.Batcher.Outstanding() {
		if err := r.opts.Batcher.Flush(); err != nil {
			r.log.Error("flush pending batched actions", zap.Error(err))
			r.st.escalate(1)
		}
	}
}
