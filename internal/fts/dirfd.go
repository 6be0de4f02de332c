package fts

import (
	"os"
	"sort"

	"golang.org/x/sys/unix"
)

// CWDFD is the sentinel directory descriptor meaning "the ambient working
// directory" (AT_FDCWD). Entries at the root level resolve against it.
const CWDFD = unix.AT_FDCWD

// statAt stats path relative to dirfd (CWDFD for the ambient working
// directory), dereferencing a final symlink only when follow is set.
// Retries on EINTR without an upper bound, matching the standard library.
func statAt(dirfd int, path string, follow bool) (*unix.Stat_t, error) {
	flags := unix.AT_SYMLINK_NOFOLLOW
	if follow {
		flags = 0
	}
	var st unix.Stat_t
	for {
		err := unix.Fstatat(dirfd, path, &st, flags)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &st, nil
	}
}

// openDirAt opens the directory at path relative to dirfd for reading.
// nofollow refuses to traverse a final symlink, defending against the
// directory being swapped for a link between stat and open.
func openDirAt(dirfd int, path string, nofollow bool) (int, error) {
	flags := unix.O_RDONLY | unix.O_DIRECTORY | unix.O_CLOEXEC
	if nofollow {
		flags |= unix.O_NOFOLLOW
	}
	for {
		fd, err := unix.Openat(dirfd, path, flags, 0)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return -1, err
		}
		return fd, nil
	}
}

// DupCloexec duplicates fd with close-on-exec set on the copy.
func DupCloexec(fd int) (int, error) {
	return unix.FcntlInt(uintptr(fd), unix.F_DUPFD_CLOEXEC, 0)
}

// fstat stats an open descriptor.
func fstat(fd int) (*unix.Stat_t, error) {
	var st unix.Stat_t
	for {
		err := unix.Fstat(fd, &st)
		if err == unix.EINTR {
			continue
		}
		if err != nil {
			return nil, err
		}
		return &st, nil
	}
}

// readChildren lists the entries of an open directory descriptor without
// disturbing it: the descriptor is duplicated and the copy consumed. Entries
// are returned sorted byte-lexicographically by name so traversal order is
// well defined. On a partial read failure the entries read so far are
// returned alongside the error.
func readChildren(fd int, path string) ([]os.DirEntry, error) {
	nfd, err := DupCloexec(fd)
	if err != nil {
		return nil, err
	}
	f := os.NewFile(uintptr(nfd), path)
	ents, err := f.ReadDir(-1)
	cerr := f.Close()
	sort.Slice(ents, func(i, j int) bool { return ents[i].Name() < ents[j].Name() })
	if err != nil {
		return ents, err
	}
	return ents, cerr
}

// devIno extracts the (device, inode) identity pair from a stat record.
func devIno(st *unix.Stat_t) (uint64, uint64) {
	return uint64(st.Dev), uint64(st.Ino)
}

// typeMode maps the S_IFMT bits of a stat record onto os.FileMode type bits.
func typeMode(st *unix.Stat_t) os.FileMode {
	switch uint32(st.Mode) & unix.S_IFMT {
	case unix.S_IFDIR:
		return os.ModeDir
	case unix.S_IFREG:
		return 0
	case unix.S_IFLNK:
		return os.ModeSymlink
	case unix.S_IFIFO:
		return os.ModeNamedPipe
	case unix.S_IFSOCK:
		return os.ModeSocket
	case unix.S_IFBLK:
		return os.ModeDevice
	case unix.S_IFCHR:
		return os.ModeDevice | os.ModeCharDevice
	}
	return os.ModeIrregular
}

// permMode extracts the permission bits of a stat record.
func permMode(st *unix.Stat_t) os.FileMode {
	return os.FileMode(uint32(st.Mode) & 0o7777)
}
