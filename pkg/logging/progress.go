package logging

import (
	"sync"
	"sync/atomic"
	"time"

	"github.com/eunmann/d4query/pkg/humanfmt"
	"github.com/rs/zerolog"
)

// ProgressTracker tracks progress for a set of partition tasks with ETA
// calculation. It is safe for concurrent use.
type ProgressTracker struct {
	total     int64
	completed atomic.Int64
	startTime time.Time
	log       zerolog.Logger
	phase     string

	// For moving average of task durations
	mu              sync.Mutex
	recentDurations []time.Duration
	maxRecent       int
}

// NewProgressTracker creates a new progress tracker.
func NewProgressTracker(phase string, total int64, log zerolog.Logger) *ProgressTracker {
	return &ProgressTracker{
		total:           total,
		startTime:       time.Now(),
		log:             log,
		phase:           phase,
		recentDurations: make([]time.Duration, 0, 16),
		maxRecent:       16,
	}
}

// RecordCompletion records that a task completed with the given duration
// and emits a debug line.
func (pt *ProgressTracker) RecordCompletion(d time.Duration) {
	done := pt.completed.Add(1)

	pt.mu.Lock()
	if len(pt.recentDurations) >= pt.maxRecent {
		pt.recentDurations = pt.recentDurations[1:]
	}
	pt.recentDurations = append(pt.recentDurations, d)
	pt.mu.Unlock()

	if e := pt.log.Debug(); e.Enabled() {
		e.Str("phase", pt.phase).
			Int64("done", done).
			Int64("total", pt.total).
			Dur("task_duration", d).
			Dur("eta", pt.ETA()).
			Msg("task completed")
	}
}

// Progress returns current progress stats.
func (pt *ProgressTracker) Progress() (completed, total int64) {
	return pt.completed.Load(), pt.total
}

// ProgressPct returns the progress percentage (0-100).
func (pt *ProgressTracker) ProgressPct() float64 {
	if pt.total == 0 {
		return 100.0
	}
	return float64(pt.completed.Load()) * 100.0 / float64(pt.total)
}

// ETA returns the estimated time remaining based on recent task durations.
// Tasks run concurrently, so this is an upper bound.
func (pt *ProgressTracker) ETA() time.Duration {
	completed := pt.completed.Load()
	if completed == 0 {
		return 0
	}

	remaining := pt.total - completed
	if remaining <= 0 {
		return 0
	}

	pt.mu.Lock()
	var avg time.Duration
	if len(pt.recentDurations) > 0 {
		var sum time.Duration
		for _, d := range pt.recentDurations {
			sum += d
		}
		avg = sum / time.Duration(len(pt.recentDurations))
	} else {
		avg = time.Since(pt.startTime) / time.Duration(completed)
	}
	pt.mu.Unlock()

	return avg * time.Duration(remaining)
}

// Elapsed returns time since tracking started.
func (pt *ProgressTracker) Elapsed() time.Duration {
	return time.Since(pt.startTime)
}

// Remaining returns how many tasks are remaining.
func (pt *ProgressTracker) Remaining() int64 {
	return pt.total - pt.completed.Load()
}

// CompletionEvent helps build consistent completion log events.
type CompletionEvent struct {
	log     zerolog.Logger
	event   string
	phase   string
	elapsed time.Duration
	fields  map[string]interface{}
}

// NewCompletionEvent creates a new completion event builder.
func NewCompletionEvent(log zerolog.Logger, event, phase string, elapsed time.Duration) *CompletionEvent {
	return &CompletionEvent{
		log:     log,
		event:   event,
		phase:   phase,
		elapsed: elapsed,
		fields:  make(map[string]interface{}),
	}
}

// Str adds a string field.
func (ce *CompletionEvent) Str(key, val string) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Int adds an int field.
func (ce *CompletionEvent) Int(key string, val int) *CompletionEvent {
	ce.fields[key] = val
	return ce
}

// Count adds a count with an optional human-readable companion.
func (ce *CompletionEvent) Count(key string, n int64) *CompletionEvent {
	ce.fields[key] = n
	if IsPrettyMode() {
		ce.fields[key+"_h"] = humanfmt.Count(n)
	}
	return ce
}

// Bases adds a number of decoded positions plus the decode rate.
func (ce *CompletionEvent) Bases(key string, n uint64) *CompletionEvent {
	ce.fields[key] = n
	if ce.elapsed > 0 {
		ce.fields["bases_per_sec"] = float64(n) / ce.elapsed.Seconds()
	}
	if IsPrettyMode() {
		ce.fields[key+"_h"] = humanfmt.Bases(n)
		ce.fields["rate_h"] = humanfmt.BaseRate(n, ce.elapsed)
	}
	return ce
}

// Log emits the completion event at info level.
func (ce *CompletionEvent) Log(msg string) {
	ce.emit(ce.log.Info(), msg)
}

// LogDebug emits the completion event at debug level.
func (ce *CompletionEvent) LogDebug(msg string) {
	ce.emit(ce.log.Debug(), msg)
}

func (ce *CompletionEvent) emit(e *zerolog.Event, msg string) {
	e = e.Str("event", ce.event).
		Str("phase", ce.phase).
		Int64("duration_ms", ce.elapsed.Milliseconds())

	if IsPrettyMode() {
		e = e.Str("duration_h", humanfmt.Duration(ce.elapsed))
	}

	for k, v := range ce.fields {
		e = e.Interface(k, v)
	}

	e.Msg(msg)
}

// QueryComplete starts a completion event for a finished query batch.
func QueryComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "query_completed", phase, elapsed)
}

// FileOpened starts a completion event for an opened depth file.
func FileOpened(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "file_opened", phase, elapsed)
}

// DownloadComplete starts a completion event for a fetched remote file.
func DownloadComplete(log zerolog.Logger, phase string, elapsed time.Duration) *CompletionEvent {
	return NewCompletionEvent(log, "download_completed", phase, elapsed)
}
