package find

import (
	"errors"
	"fmt"
	"os"
	"os/exec"
)

// DefaultExecBatchSize caps how many names one batched invocation receives.
const DefaultExecBatchSize = 1024

// ExecBatcher accumulates matched names per directory and, on flush, runs a
// command once from that directory with "./name" arguments appended. It
// implements PendingBatcher.
//
// A batch belongs to exactly one directory: adding a match from a different
// directory flushes the pending batch first.
type ExecBatcher struct {
	// Argv is the command and its fixed leading arguments.
	Argv []string

	// Limit caps names per invocation; DefaultExecBatchSize when zero.
	Limit int

	dir      string
	names    []string
	saved    error
	runBatch func(dir string, argv []string) error // test seam
}

// Add queues one matched name, owned by dir. Flush failures triggered by an
// automatic batch rollover are reported by the next Flush call.
func (b *ExecBatcher) Add(dir, name string) {
	if b.dir != "" && dir != b.dir {
		b.saved = errors.Join(b.saved, b.flushNow())
	}
	b.dir = dir
	b.names = append(b.names, "./"+name)
	limit := b.Limit
	if limit <= 0 {
		limit = DefaultExecBatchSize
	}
	if len(b.names) >= limit {
		b.saved = errors.Join(b.saved, b.flushNow())
	}
}

// Outstanding reports whether a flush would do work or surface an error.
func (b *ExecBatcher) Outstanding() bool {
	return len(b.names) > 0 || b.saved != nil
}

// Flush runs the pending batch, if any, and surfaces any failure saved from
// automatic rollovers.
func (b *ExecBatcher) Flush() error {
	err := errors.Join(b.saved, b.flushNow())
	b.saved = nil
	return err
}

func (b *ExecBatcher) flushNow() error {
	if len(b.names) == 0 {
		return nil
	}
	dir, names := b.dir, b.names
	b.dir, b.names = "", nil

	argv := append(append([]string(nil), b.Argv...), names...)
	run := b.runBatch
	if run == nil {
		run = runCommand
	}
	if err := run(dir, argv); err != nil {
		return fmt.Errorf("batched command in %s: %w", dir, err)
	}
	return nil
}

func runCommand(dir string, argv []string) error {
	if len(argv) == 0 {
		return errors.New("empty batched command")
	}
	cmd := exec.Command(argv[0], argv[1:]...)
	cmd.Dir = dir
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}
