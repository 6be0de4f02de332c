package fts

import (
	"fmt"
	"os"

	"golang.org/x/sys/unix"
)

// VisitKind classifies one reported node in the hierarchy. Directories are
// reported twice per walk, once pre-order (KindDirPre) and once post-order
// (KindDirPost); every other kind is reported exactly once.
type VisitKind int

const (
	// KindInitial is the zero value; the walker never emits it.
	KindInitial VisitKind = iota

	// KindDirPre is a directory about to be descended into.
	KindDirPre

	// KindDirPost is a directory all of whose descendants have been
	// reported.
	KindDirPost

	// KindDirCycle is a directory that would close a loop in the
	// hierarchy. It is reported instead of KindDirPre and is never
	// descended into; Cycle identifies the ancestor it collides with.
	KindDirCycle

	// KindDirUnreadable is a directory that could not be opened for
	// reading. It follows that directory's KindDirPre report; no
	// KindDirPost is delivered for it.
	KindDirUnreadable

	// KindFile is a regular file.
	KindFile

	// KindDefault is a non-regular, non-directory node (FIFO, socket,
	// device).
	KindDefault

	// KindSymlink is a symbolic link that the active policy does not
	// dereference.
	KindSymlink

	// KindSymlinkBroken is a symbolic link whose target could not be
	// resolved under a dereferencing policy. Err carries the resolution
	// error.
	KindSymlinkBroken

	// KindNoStat is a node that could not be stat-ed. Err carries the
	// stat error.
	KindNoStat

	// KindNoStatOk is a node whose stat was deliberately skipped under
	// Options.NoStat. Type still carries the type bits learned from the
	// directory entry. A directory reported KindNoStatOk is not descended
	// into unless the caller requests a restat.
	KindNoStatOk

	// KindError is a read failure attributable to a single directory,
	// reported in place of that directory's contents.
	KindError
)

func (k VisitKind) String() string {
	switch k {
	case KindInitial:
		return "initial"
	case KindDirPre:
		return "dir-pre"
	case KindDirPost:
		return "dir-post"
	case KindDirCycle:
		return "dir-cycle"
	case KindDirUnreadable:
		return "dir-unreadable"
	case KindFile:
		return "file"
	case KindDefault:
		return "default"
	case KindSymlink:
		return "symlink"
	case KindSymlinkBroken:
		return "symlink-broken"
	case KindNoStat:
		return "no-stat"
	case KindNoStatOk:
		return "no-stat-ok"
	case KindError:
		return "error"
	}
	return fmt.Sprintf("kind(%d)", int(k))
}

// CycleRef identifies the ancestor directory that closes a detected loop.
type CycleRef struct {
	Path  string
	Depth int
}

// Entry is one reported filesystem node.
//
// AccessPath and DirFD are valid only until the next call to Next or Close:
// AccessPath resolves relative to DirFD, which the walker owns and may close
// or reuse once the entry has been consumed.
type Entry struct {
	Kind VisitKind

	// Path is the full path of the node, rooted at the starting point it
	// was reached from, kept verbatim (no cleaning).
	Path string

	// AccessPath is a path usable for I/O on the node: the bare entry
	// name relative to DirFD under fd-relative traversal, the full path
	// otherwise.
	AccessPath string

	// Name is the final path component.
	Name string

	// Depth of the node; starting points are at depth 0.
	Depth int

	// Stat is the node's stat information, nil exactly when Kind explains
	// why none is available (KindNoStat, KindNoStatOk, KindError,
	// KindDirUnreadable on open failure paths).
	Stat *unix.Stat_t

	// Type holds the node's file mode for stat-ed entries, or the
	// dirent-derived type bits for KindNoStatOk entries (where zero means
	// a regular file). Unset for entries that carry neither.
	Type os.FileMode

	// Err is set for KindNoStat, KindSymlinkBroken, KindDirUnreadable and
	// KindError entries.
	Err error

	// Cycle is set only for KindDirCycle.
	Cycle *CycleRef

	// ViaSymlink reports that the node itself is a symbolic link that was
	// dereferenced to produce Stat.
	ViaSymlink bool

	// DirFD is the descriptor of the directory AccessPath resolves
	// against, or CWDFD when AccessPath is relative to the ambient
	// working directory. Borrowed from the walker; never close it.
	DirFD int

	noDescend bool // set for directories crossing a device boundary
}

// IsDir reports whether the entry is known to be a directory.
func (e *Entry) IsDir() bool {
	switch e.Kind {
	case KindDirPre, KindDirPost, KindDirCycle, KindDirUnreadable:
		return true
	}
	return e.Type.IsDir()
}

// IsSymlink reports whether the entry itself is a symbolic link.
func (e *Entry) IsSymlink() bool {
	return e.Type&os.ModeSymlink != 0 || e.ViaSymlink
}
