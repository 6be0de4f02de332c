package find

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
	"golang.org/x/text/unicode/norm"
)

// Visit carries one eligible entry to the evaluator. AccessPath resolves
// relative to DirFD and neither may be retained beyond the call.
type Visit struct {
	Path       string
	AccessPath string
	Stat       *unix.Stat_t // nil when the walker could not or did not stat
	Depth      int
	DirFD      int
}

// Decision is the evaluator's verdict on one entry.
type Decision struct {
	// StopDescent requests that no entries below the current entry's
	// level be evaluated; it is consumed when the walk leaves the
	// current directory.
	StopDescent bool
}

// Evaluator is the external predicate engine. Implementations must not
// retain Visit.AccessPath or Visit.DirFD beyond the call.
type Evaluator interface {
	Evaluate(v Visit) Decision
}

// EvaluatorFunc adapts a function to the Evaluator interface.
type EvaluatorFunc func(v Visit) Decision

func (f EvaluatorFunc) Evaluate(v Visit) Decision { return f(v) }

// PrintEvaluator is the default evaluator: it prints each eligible path,
// optionally filtered by a base-name glob and a type letter. When Batch is
// set, matches are handed to the batcher instead of printed.
type PrintEvaluator struct {
	// Name, when non-empty, is a glob matched against the NFC-normalized
	// base name.
	Name string

	// Type, when non-zero, is a find-style type letter: 'f', 'd', 'l',
	// 'b', 'c', 'p' or 's'. An entry delivered without stat data is
	// stat-ed on demand; if that also fails it never matches.
	Type byte

	// Out defaults to standard output.
	Out io.Writer

	Batch *ExecBatcher
}

func (e *PrintEvaluator) Evaluate(v Visit) Decision {
	if e.Name != "" {
		base := norm.NFC.String(filepath.Base(v.Path))
		if ok, err := filepath.Match(e.Name, base); err != nil || !ok {
			return Decision{}
		}
	}
	if e.Type != 0 {
		st := v.Stat
		if st == nil {
			// The walker skipped the stat call; a type filter needs
			// the data after all.
			st = statVisit(v)
		}
		if !matchType(e.Type, st) {
			return Decision{}
		}
	}
	if e.Batch != nil {
		e.Batch.Add(filepath.Dir(v.Path), filepath.Base(v.Path))
		return Decision{}
	}
	out := e.Out
	if out == nil {
		out = os.Stdout
	}
	fmt.Fprintln(out, v.Path)
	return Decision{}
}

// statVisit stats a visit's node through its access path. Stat skipping is
// only active where symbolic links are not dereferenced, so this lookup
// does not dereference either.
func statVisit(v Visit) *unix.Stat_t {
	var st unix.Stat_t
	for {
		err := unix.Fstatat(v.DirFD, v.AccessPath, &st, unix.AT_SYMLINK_NOFOLLOW)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil
		}
		return &st
	}
}

func matchType(t byte, st *unix.Stat_t) bool {
	if st == nil {
		return false
	}
	fmtBits := uint32(st.Mode) & unix.S_IFMT
	switch t {
	case 'f':
		return fmtBits == unix.S_IFREG
	case 'd':
		return fmtBits == unix.S_IFDIR
	case 'l':
		return fmtBits == unix.S_IFLNK
	case 'b':
		return fmtBits == unix.S_IFBLK
	case 'c':
		return fmtBits == unix.S_IFCHR
	case 'p':
		return fmtBits == unix.S_IFIFO
	case 's':
		return fmtBits == unix.S_IFSOCK
	}
	return false
}
