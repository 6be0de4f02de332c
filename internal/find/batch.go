package find

// PendingBatcher is implemented by the batched-action collaborator
// (conceptually, "run this command once per directory's worth of accumulated
// matches"). The driver only observes whether work is outstanding and
// requests flushes; it never mutates the set directly.
//
// Batched actions must execute while the current-directory context still
// corresponds to the directory that accumulated them; once the walk changes
// level that guarantee lapses, so the driver forces a flush on every level
// change and once more at clean end of run.
type PendingBatcher interface {
	Outstanding() bool
	Flush() error
}
