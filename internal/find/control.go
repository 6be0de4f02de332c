package find

import (
	"os"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/TFMV/trawl/internal/fts"
)

// considerVisiting applies depth, ordering and error policy to one entry and
// decides whether the evaluator sees it. It returns an error only when the
// directory-context tracker can no longer say which directory is current;
// that is fatal to the whole run, because batched actions flushed afterwards
// could execute in the wrong directory.
func (r *Runner) considerVisiting(w *fts.Walker, ent *fts.Entry) error {
	st := &r.st

	// Leaving must be resolved against the previous entry's context
	// before any bookkeeping for the new one: a post-order visit, a jump
	// back up the tree, and a fresh root all mean the previously tracked
	// directory is gone.
	if ent.Kind == fts.KindDirPost {
		r.dirCtx.Leave()
	} else if ent.Depth > st.prevDepth || ent.Depth == 0 {
		r.dirCtx.Leave()
	}
	if err := r.dirCtx.Enter(ent.DirFD); err != nil {
		return err
	}
	st.prevDepth = ent.Depth

	switch ent.Kind {
	case fts.KindError, fts.KindDirUnreadable:
		r.nonfatalTargetError(ent.Err, ent.Path)
		return nil
	case fts.KindDirCycle:
		r.issueLoopWarning(ent)
		return nil
	case fts.KindSymlinkBroken:
		// A broken link may be one arc of a symlink loop the walker
		// never opened; a re-probe tells the two apart.
		if r.symlinkLoop(ent) {
			r.nonfatalTargetError(unix.ELOOP, ent.Path)
			return nil
		}
	case fts.KindNoStat:
		if ent.Depth == 0 {
			// e.g. a nonexistent starting point.
			r.nonfatalTargetError(ent.Err, ent.Path)
			return nil
		}
		if r.symlinkLoop(ent) {
			r.nonfatalTargetError(unix.ELOOP, ent.Path)
			return nil
		}
		// Continue despite the error: a name without stat data still
		// beats silently dropping it, even though predicates needing
		// stat information will fail later.
		r.nonfatalTargetError(ent.Err, ent.Path)
	}

	var mode os.FileMode
	if ent.Kind == fts.KindNoStatOk || ent.Kind == fts.KindNoStat {
		mode = ent.Type
	} else if ent.Stat != nil {
		mode = ent.Type
		if uint32(ent.Stat.Mode) == 0 {
			r.log.Warn("file appears to have mode 0000", zap.String("path", ent.Path))
		}
	}

	isDir := mode.IsDir() ||
		ent.Kind == fts.KindDirPre || ent.Kind == fts.KindDirPost

	if isDir && ent.Kind == fts.KindNoStatOk {
		// A directory the walker did not stat would not be descended
		// into. Force a re-delivery with stat data so its children are
		// not silently skipped.
		w.Restat()
		return nil
	}

	r.countEntry(ent)

	ignore := false
	if r.opts.MaxDepth >= 0 && ent.Depth >= r.opts.MaxDepth {
		w.Prune() // descend no further
		if ent.Depth > r.opts.MaxDepth {
			ignore = true // do not even look at this one
		}
	}
	switch {
	case ent.Kind == fts.KindDirPre && !r.opts.PreOrder:
		// Pre-order visit under post-order semantics.
		ignore = true
	case ent.Kind == fts.KindDirPost && r.opts.PreOrder:
		// Post-order visit under pre-order semantics.
		ignore = true
	case ent.Depth < r.opts.MinDepth:
		ignore = true
	}

	if !ignore {
		r.visit(w, ent)
	}
	if ent.Kind == fts.KindDirPost {
		// Leaving the directory consumes any latched prune request.
		st.stopAtCurrentLevel = false
	}
	return nil
}

// visit hands one eligible entry to the evaluator and applies its side
// effects.
func (r *Runner) visit(w *fts.Walker, ent *fts.Entry) {
	r.stats.Evaluated++
	dec := r.eval.Evaluate(Visit{
		Path:       ent.Path,
		AccessPath: ent.AccessPath,
		Stat:       ent.Stat,
		Depth:      ent.Depth,
		DirFD:      r.dirCtx.FD(),
	})
	if dec.StopDescent {
		r.st.stopAtCurrentLevel = true
	}
	if r.st.stopAtCurrentLevel {
		w.Prune()
	}
}

// symlinkLoop re-probes an entry the walker could not resolve and reports
// whether the failure is a symbolic-link loop, as produced by
//
//	ln -s a b; ln -s b a
//
// The probe is fd-relative so it examines the same node the walker did.
func (r *Runner) symlinkLoop(ent *fts.Entry) bool {
	flags := unix.AT_SYMLINK_NOFOLLOW
	if r.followsAt(ent.Depth) {
		flags = 0
	}
	var st unix.Stat_t
	for {
		err := unix.Fstatat(r.dirCtx.FD(), ent.AccessPath, &st, flags)
		if err == unix.EINTR {
			continue
		}
		return err == unix.ELOOP
	}
}

func (r *Runner) followsAt(depth int) bool {
	switch r.opts.Symlinks {
	case fts.FollowAll:
		return true
	case fts.FollowRoots:
		return depth == 0
	}
	return false
}

func (r *Runner) countEntry(ent *fts.Entry) {
	switch ent.Kind {
	case fts.KindDirPre:
		r.stats.Dirs++
	case fts.KindFile:
		r.stats.Files++
	case fts.KindSymlink, fts.KindSymlinkBroken:
		r.stats.Symlinks++
	}
}
