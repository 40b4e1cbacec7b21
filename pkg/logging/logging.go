// Package logging owns the d4q process logger.
//
// Queries log at two points only: when a file is opened (Debug) and when a
// histogram or mean batch completes (Info). Each event carries a "phase"
// field naming the step that produced it. Per-position decoding never logs.
package logging

import (
	"io"
	"os"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/eunmann/d4query/internal/logctx"
)

// Phases name the steps that emit completion events.
const (
	PhaseOpen      = "open"
	PhaseFetch     = "fetch"
	PhaseHistogram = "histogram"
	PhaseMean      = "mean"
)

var (
	logger *zerolog.Logger
	pretty atomic.Bool
)

func init() {
	// Default to JSON logging at info level
	l := zerolog.New(os.Stderr).With().Timestamp().Logger()
	logger = &l
	zerolog.SetGlobalLevel(zerolog.InfoLevel)
}

// Init configures the process logger to write to stderr.
func Init(debug bool, human bool) {
	InitWriter(os.Stderr, debug, human)
}

// InitWriter configures the process logger to write to w. Debug enables
// open and fetch events. Human switches to console output and adds
// human-readable companions ("_h" fields) to completion events.
//
// The logger also becomes the logctx default, so library code reached
// without a context logger writes to the same place.
func InitWriter(w io.Writer, debug bool, human bool) {
	level := zerolog.InfoLevel
	if debug {
		level = zerolog.DebugLevel
	}
	zerolog.SetGlobalLevel(level)
	pretty.Store(human)

	if human {
		w = zerolog.ConsoleWriter{Out: w, TimeFormat: time.RFC3339}
	}
	l := zerolog.New(w).With().Timestamp().Logger()
	logger = &l
	logctx.SetDefaultLogger(l)
}

// IsPrettyMode reports whether human-friendly output was requested.
func IsPrettyMode() bool {
	return pretty.Load()
}

// L returns the base logger.
func L() *zerolog.Logger {
	return logger
}

// WithPhase returns a logger with the phase field set.
func WithPhase(phase string) zerolog.Logger {
	return logger.With().Str("phase", phase).Logger()
}

// SetLogger allows overriding the global logger (useful for testing).
func SetLogger(l zerolog.Logger) {
	logger = &l
}
