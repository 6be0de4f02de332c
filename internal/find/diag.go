package find

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"github.com/TFMV/trawl/internal/fts"
)

// Stats aggregates counters across one run.
type Stats struct {
	Files     int64
	Dirs      int64
	Symlinks  int64
	Evaluated int64
	Errors    int64
	Loops     int64
}

// nonfatalTargetError reports a per-entry failure: one diagnostic line with
// the offending path, severity escalated, traversal continues.
func (r *Runner) nonfatalTargetError(err error, path string) {
	r.stats.Errors++
	r.st.escalate(1)
	r.log.Error("cannot access", zap.String("path", path), zap.Error(err))
}

// issueLoopWarning diagnoses a detected filesystem loop. A symbolic link
// pointing back into an ancestor is harmless (the link is simply not
// traversed); a genuine hierarchy loop additionally fails the run.
func (r *Runner) issueLoopWarning(ent *fts.Entry) {
	r.stats.Loops++
	if ent.IsSymlink() {
		r.log.Warn("symbolic link is part of a loop in the directory hierarchy; the directory it points to has already been visited",
			zap.String("path", ent.Path))
		return
	}
	fields := []zap.Field{zap.String("path", ent.Path)}
	if ent.Cycle != nil {
		fields = append(fields, zap.String("ancestor", ent.Cycle.Path))
	}
	r.log.Error("file system loop detected", fields...)
	r.st.escalate(1)
}

func (r *Runner) logStats() {
	if ce := r.log.Check(zap.DebugLevel, "traversal finished"); ce != nil {
		ce.Write(
			zap.Int64("files", r.stats.Files),
			zap.Int64("dirs", r.stats.Dirs),
			zap.Int64("symlinks", r.stats.Symlinks),
			zap.Int64("evaluated", r.stats.Evaluated),
			zap.Int64("errors", r.stats.Errors),
			zap.Int64("loops", r.stats.Loops),
		)
	}
}

// LogLevel defines the verbosity of logging.
type LogLevel int

const (
	LogLevelError LogLevel = iota
	LogLevelWarn
	LogLevelInfo
	LogLevelDebug
)

// NewLogger creates a zap logger with the specified log level. Diagnostics
// go to stderr so matched paths on stdout stay clean.
func NewLogger(level LogLevel) *zap.Logger {
	config := zap.NewProductionConfig()
	config.OutputPaths = []string{"stderr"}
	switch level {
	case LogLevelError:
		config.Level = zap.NewAtomicLevelAt(zap.ErrorLevel)
	case LogLevelWarn:
		config.Level = zap.NewAtomicLevelAt(zap.WarnLevel)
	case LogLevelInfo:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	case LogLevelDebug:
		config = zap.NewDevelopmentConfig()
		config.Level = zap.NewAtomicLevelAt(zap.DebugLevel)
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	default:
		config.Level = zap.NewAtomicLevelAt(zap.InfoLevel)
	}
	logger, _ := config.Build()
	return logger
}
