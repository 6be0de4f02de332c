// Package fts produces a linear, cycle-safe stream of filesystem entries
// for a set of starting points.
//
// The walker descends iteratively (no recursion), reports each directory
// twice (pre-order and post-order), detects hierarchy loops by comparing
// (device, inode) identities against the open ancestor chain, and can
// resolve every access fd-relative to an open directory descriptor so that
// concurrent renames cannot redirect the walk.
package fts

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// SymlinkPolicy controls whether symbolic links are dereferenced.
type SymlinkPolicy int

const (
	// NeverFollow reports symbolic links as themselves.
	NeverFollow SymlinkPolicy = iota
	// FollowRoots dereferences symbolic links given as starting points
	// but none encountered below them.
	FollowRoots
	// FollowAll dereferences every symbolic link.
	FollowAll
)

// Options configures a walk.
type Options struct {
	Symlinks SymlinkPolicy

	// OneFilesystem reports directories on a different device than their
	// starting point but does not descend into them.
	OneFilesystem bool

	// NoStat delivers entries whose type is known from the directory
	// entry as KindNoStatOk, without stat information. Only honored where
	// the symlink policy does not dereference.
	NoStat bool

	// DirFDs enables fd-relative traversal: every access resolves
	// against an open directory descriptor instead of the ambient
	// working directory.
	DirFDs bool

	// TightCycles additionally checks descent candidates against every
	// directory entered during the current starting point's walk, not
	// just the open ancestor chain. Only effective when symbolic links
	// are being followed; ancestors alone cannot see link-induced
	// revisits.
	TightCycles bool

	// Logger receives debug traces of emitted entries. Optional.
	Logger *zap.Logger
}

// ErrClosed is returned by Next after Close.
var ErrClosed = errors.New("fts: walker is closed")

// errDirChanged reports that a directory changed identity between being
// stat-ed and being opened (rename or mount race).
var errDirChanged = errors.New("directory changed identity during traversal")

type devino struct{ dev, ino uint64 }

// frame is one open directory on the descent stack.
type frame struct {
	ent      *Entry // the directory's pre-order entry
	fd       int    // open descriptor in fd-relative mode, else -1
	dev, ino uint64
	children []os.DirEntry
	next     int
}

// Walker produces the entry stream. Not safe for concurrent use.
type Walker struct {
	opts    Options
	log     *zap.Logger
	roots   []string
	rootIdx int
	rootDev uint64
	stack   []*frame
	visited map[devino]CycleRef
	last    *Entry
	prune   bool
	restat  bool
	closed  bool
}

// Open prepares a walk over roots in order. It fails only on setup errors;
// per-entry problems (missing roots included) surface as entries from Next.
func Open(roots []string, opts Options) (*Walker, error) {
	if len(roots) == 0 {
		return nil, errors.New("fts: no starting points")
	}
	log := opts.Logger
	if log == nil {
		log = zap.NewNop()
	}
	w := &Walker{
		opts:  opts,
		log:   log,
		roots: append([]string(nil), roots...),
	}
	if opts.TightCycles && opts.Symlinks != NeverFollow {
		w.visited = make(map[devino]CycleRef)
	}
	return w, nil
}

// Prune requests that the directory entry most recently returned by Next not
// be descended into. Its post-order visit is still delivered. The request is
// consumed when the next entry is produced and is a no-op for entries that
// would not descend anyway.
func (w *Walker) Prune() { w.prune = true }

// Restat requests that the stat-skipped entry most recently returned by Next
// be re-delivered once with full stat information, resolved per the active
// symlink policy. Only meaningful after a KindNoStatOk entry.
func (w *Walker) Restat() { w.restat = true }

// Next returns the next entry of the stream, or (nil, nil) at end of stream.
// Per-entry failures are delivered as entries, not as errors.
func (w *Walker) Next() (*Entry, error) {
	if w.closed {
		return nil, ErrClosed
	}
	for {
		// Resolve the consequences of the entry handed out last.
		if e := w.last; e != nil {
			w.last = nil
			prune, restat := w.prune, w.restat
			w.prune, w.restat = false, false
			switch e.Kind {
			case KindDirPre:
				if prune || e.noDescend {
					return w.emit(w.postEntry(e))
				}
				if errEnt := w.enterDir(e); errEnt != nil {
					return w.emit(errEnt)
				}
			case KindNoStatOk:
				if restat {
					return w.emit(w.restatEntry(e))
				}
			}
		}

		if n := len(w.stack); n > 0 {
			fr := w.stack[n-1]
			if fr.next < len(fr.children) {
				c := fr.children[fr.next]
				fr.next++
				return w.emit(w.childEntry(fr, c))
			}
			// All descendants reported: release the descriptor and
			// deliver the post-order visit.
			w.pop(fr)
			return w.emit(w.postEntry(fr.ent))
		}

		if w.rootIdx < len(w.roots) {
			root := w.roots[w.rootIdx]
			w.rootIdx++
			return w.emit(w.rootEntry(root))
		}
		return nil, nil
	}
}

// Close releases every directory descriptor still held by the walk. A
// failure here means the traversal context could not be cleanly restored and
// callers must treat the whole run as compromised.
func (w *Walker) Close() error {
	if w.closed {
		return nil
	}
	w.closed = true
	w.last = nil
	var firstErr error
	for i := len(w.stack) - 1; i >= 0; i-- {
		fr := w.stack[i]
		if fr.fd >= 0 {
			if err := unix.Close(fr.fd); err != nil && firstErr == nil {
				firstErr = err
			}
			fr.fd = -1
		}
	}
	w.stack = nil
	if firstErr != nil {
		return fmt.Errorf("restore traversal context: %w", firstErr)
	}
	return nil
}

// follows reports whether the symlink policy dereferences at depth.
func (w *Walker) follows(depth int) bool {
	switch w.opts.Symlinks {
	case FollowAll:
		return true
	case FollowRoots:
		return depth == 0
	}
	return false
}

func (w *Walker) emit(e *Entry) (*Entry, error) {
	w.last = e
	if ce := w.log.Check(zap.DebugLevel, "visit"); ce != nil {
		ce.Write(
			zap.String("path", e.Path),
			zap.Stringer("kind", e.Kind),
			zap.Int("depth", e.Depth),
		)
	}
	return e, nil
}

// rootEntry builds the depth-0 entry for the next starting point.
func (w *Walker) rootEntry(root string) *Entry {
	if w.visited != nil {
		// Tight-cycle state is scoped to one starting point; the same
		// directory may legitimately be reached from several roots.
		w.visited = make(map[devino]CycleRef)
	}
	e := &Entry{
		Path:       root,
		AccessPath: root,
		Name:       filepath.Base(root),
		DirFD:      CWDFD,
	}
	w.classify(e)
	if e.Kind == KindDirPre && e.Stat != nil {
		w.rootDev, _ = devIno(e.Stat)
	}
	return e
}

// childEntry builds the entry for the next child of the top frame.
func (w *Walker) childEntry(fr *frame, c os.DirEntry) *Entry {
	name := c.Name()
	e := &Entry{
		Path:  joinPath(fr.ent.Path, name),
		Name:  name,
		Depth: fr.ent.Depth + 1,
	}
	if w.opts.DirFDs {
		e.AccessPath = name
		e.DirFD = fr.fd
	} else {
		e.AccessPath = e.Path
		e.DirFD = CWDFD
	}
	if w.opts.NoStat && !w.follows(e.Depth) {
		e.Kind = KindNoStatOk
		e.Type = c.Type()
		return e
	}
	w.classify(e)
	return e
}

// classify stats the node behind e and fills in Kind, Stat, Type and the
// cycle reference. e must already carry Path, AccessPath, Name, Depth and
// DirFD.
func (w *Walker) classify(e *Entry) {
	lst, err := statAt(e.DirFD, e.AccessPath, false)
	if err != nil {
		e.Kind, e.Err = KindNoStat, err
		return
	}
	st := lst
	if typeMode(lst) == os.ModeSymlink && w.follows(e.Depth) {
		tst, terr := statAt(e.DirFD, e.AccessPath, true)
		if terr != nil {
			e.Kind, e.Err = KindSymlinkBroken, terr
			e.Stat = lst
			e.Type = typeMode(lst) | permMode(lst)
			return
		}
		st = tst
		e.ViaSymlink = true
	}
	e.Stat = st
	e.Type = typeMode(st) | permMode(st)
	switch {
	case e.Type.IsDir():
		dev, ino := devIno(st)
		if ref := w.findCycle(dev, ino); ref != nil {
			e.Kind, e.Cycle = KindDirCycle, ref
			return
		}
		e.Kind = KindDirPre
		if w.opts.OneFilesystem && e.Depth > 0 && dev != w.rootDev {
			e.noDescend = true
		}
	case e.Type&os.ModeSymlink != 0:
		e.Kind = KindSymlink
	case e.Type&os.ModeType == 0:
		e.Kind = KindFile
	default:
		e.Kind = KindDefault
	}
}

// restatEntry re-delivers a stat-skipped entry with full stat information.
func (w *Walker) restatEntry(e *Entry) *Entry {
	ne := &Entry{
		Path:       e.Path,
		AccessPath: e.AccessPath,
		Name:       e.Name,
		Depth:      e.Depth,
		DirFD:      e.DirFD,
	}
	w.classify(ne)
	return ne
}

// enterDir opens the directory behind a pre-order entry and pushes it onto
// the descent stack. On failure it returns the error entry to deliver in
// place of the directory's contents; no post-order visit follows it.
func (w *Walker) enterDir(e *Entry) *Entry {
	fr := &frame{ent: e, fd: -1}
	fr.dev, fr.ino = devIno(e.Stat)

	if w.opts.DirFDs {
		fd, err := openDirAt(e.DirFD, e.AccessPath, !w.follows(e.Depth))
		if err != nil {
			return w.errEntry(e, KindDirUnreadable, err)
		}
		st, err := fstat(fd)
		if err != nil {
			unix.Close(fd)
			return w.errEntry(e, KindDirUnreadable, err)
		}
		if dev, ino := devIno(st); dev != fr.dev || ino != fr.ino {
			unix.Close(fd)
			return w.errEntry(e, KindError, errDirChanged)
		}
		fr.fd = fd
		children, err := readChildren(fd, e.Path)
		if err != nil {
			unix.Close(fd)
			return w.errEntry(e, KindDirUnreadable, err)
		}
		fr.children = children
	} else {
		children, err := os.ReadDir(e.Path)
		if err != nil {
			return w.errEntry(e, KindDirUnreadable, err)
		}
		fr.children = children
	}

	w.stack = append(w.stack, fr)
	if w.visited != nil {
		w.visited[devino{fr.dev, fr.ino}] = CycleRef{Path: e.Path, Depth: e.Depth}
	}
	return nil
}

func (w *Walker) pop(fr *frame) {
	w.stack = w.stack[:len(w.stack)-1]
	if fr.fd >= 0 {
		if err := unix.Close(fr.fd); err != nil {
			w.log.Debug("close directory", zap.String("path", fr.ent.Path), zap.Error(err))
		}
		fr.fd = -1
	}
}

// findCycle reports the ancestor (or, under tight checking, any previously
// entered directory) that shares the candidate's identity.
func (w *Walker) findCycle(dev, ino uint64) *CycleRef {
	for _, fr := range w.stack {
		if fr.dev == dev && fr.ino == ino {
			return &CycleRef{Path: fr.ent.Path, Depth: fr.ent.Depth}
		}
	}
	if w.visited != nil {
		if ref, ok := w.visited[devino{dev, ino}]; ok {
			return &ref
		}
	}
	return nil
}

func (w *Walker) errEntry(e *Entry, kind VisitKind, err error) *Entry {
	ne := *e
	ne.Kind = kind
	ne.Err = err
	return &ne
}

// postEntry derives the post-order visit from a directory's pre-order entry.
func (w *Walker) postEntry(pre *Entry) *Entry {
	post := *pre
	post.Kind = KindDirPost
	post.noDescend = false
	return &post
}

// joinPath concatenates verbatim: full paths keep exactly the starting point
// as their prefix, "." included.
func joinPath(dir, name string) string {
	if strings.HasSuffix(dir, "/") {
		return dir + name
	}
	return dir + "/" + name
}
