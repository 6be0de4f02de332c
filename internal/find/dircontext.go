package find

import (
	"errors"
	"fmt"

	"golang.org/x/sys/unix"

	"github.com/TFMV/trawl/internal/fts"
)

// noFD marks that the tracker holds nothing. Distinct from fts.CWDFD, which
// is a usable sentinel descriptor.
const noFD = -1

// dirContext owns the single "current directory" descriptor implied by the
// most recently entered, not yet left, directory. It is only meaningful
// under fd-relative traversal; otherwise Enter and Leave are no-ops because
// the ambient working directory matches the walk by construction.
//
// At most one descriptor is owned at any time; ownership is taken by Enter
// and released exactly once by Leave or Close.
type dirContext struct {
	enabled bool
	curr    int // noFD, fts.CWDFD, or an owned close-on-exec duplicate
}

func newDirContext(enabled bool) dirContext {
	return dirContext{enabled: enabled, curr: noFD}
}

// Enter records dirFD as the current directory. The caller cannot tell
// whether this is the first entry into that directory, so Enter duplicates
// at most once: it is idempotent while a descriptor is held.
func (c *dirContext) Enter(dirFD int) error {
	if !c.enabled {
		return nil
	}
	if c.curr != noFD {
		return nil
	}
	switch {
	case dirFD == fts.CWDFD:
		c.curr = fts.CWDFD
	case dirFD >= 0:
		d, err := fts.DupCloexec(dirFD)
		if err != nil {
			return fmt.Errorf("duplicate current directory descriptor: %w", err)
		}
		c.curr = d
	default:
		// Neither a held descriptor nor a usable new one: the driver
		// can no longer say which directory is current.
		return errors.New("no usable current directory descriptor")
	}
	return nil
}

// Leave releases the held descriptor, if any. Calling Leave with nothing
// held is a no-op, not an error.
func (c *dirContext) Leave() {
	if !c.enabled {
		return
	}
	if c.curr >= 0 {
		unix.Close(c.curr)
	}
	c.curr = noFD
}

// FD returns the descriptor relative access paths currently resolve
// against; fts.CWDFD when nothing more specific is held.
func (c *dirContext) FD() int {
	if !c.enabled || c.curr == noFD {
		return fts.CWDFD
	}
	return c.curr
}

// Close releases any held descriptor at end of run.
func (c *dirContext) Close() {
	c.Leave()
}
