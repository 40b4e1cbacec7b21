package d4

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/eunmann/d4query/internal/logctx"
	"github.com/eunmann/d4query/pkg/logging"
)

// QueryOptions controls how aggregate queries spread work over partitions.
type QueryOptions struct {
	// Workers is the number of partitions processed concurrently.
	// Default: min(runtime.NumCPU(), 16).
	Workers int

	// SplitHint is the target partition count passed to Split.
	// Default: 4 * Workers.
	SplitHint int
}

// DefaultQueryOptions returns sensible defaults for the current machine.
func DefaultQueryOptions() QueryOptions {
	workers := runtime.NumCPU()
	if workers > 16 {
		workers = 16
	}
	return QueryOptions{
		Workers:   workers,
		SplitHint: 4 * workers,
	}
}

// Validate sets defaults for zero or negative values.
func (o *QueryOptions) Validate() {
	if o.Workers <= 0 {
		o.Workers = DefaultQueryOptions().Workers
	}
	if o.SplitHint <= 0 {
		o.SplitHint = 4 * o.Workers
	}
}

// QueryOption adjusts QueryOptions.
type QueryOption func(*QueryOptions)

// WithWorkers sets the number of concurrent partition workers. One worker
// processes partitions sequentially.
func WithWorkers(n int) QueryOption {
	return func(o *QueryOptions) { o.Workers = n }
}

// WithSplitHint sets the target partition count.
func WithSplitHint(n int) QueryOption {
	return func(o *QueryOptions) { o.SplitHint = n }
}

func buildOptions(opts []QueryOption) QueryOptions {
	var o QueryOptions
	for _, fn := range opts {
		fn(&o)
	}
	o.Validate()
	return o
}

// span is the part of one region that falls inside one partition.
type span struct {
	region int
	begin  uint32
	end    uint32
}

// job groups every span of one partition so the partition's decoder and
// reader are only ever touched by a single goroutine.
type job struct {
	part  *Partition
	spans []span
}

// positions returns the number of positions the job decodes.
func (j job) positions() uint64 {
	var n uint64
	for _, s := range j.spans {
		n += uint64(s.end - s.begin)
	}
	return n
}

// planJobs intersects every region with every partition, keeping only
// partitions that overlap at least one region.
func planJobs(parts []*Partition, regions []ResolvedRegion) []job {
	var jobs []job
	for _, p := range parts {
		var spans []span
		for i, r := range regions {
			if lo, hi, ok := p.Clip(r.Chrom, r.Begin, r.End); ok {
				spans = append(spans, span{region: i, begin: lo, end: hi})
			}
		}
		if len(spans) > 0 {
			jobs = append(jobs, job{part: p, spans: spans})
		}
	}
	return jobs
}

// cancelCheckInterval is how many positions are decoded between context checks.
const cancelCheckInterval = 1 << 16

// runJobs calls visit for every position of every job, running up to
// o.Workers jobs at once. visit receives the job index so each job can
// write to its own accumulator slot without locking.
func runJobs(ctx context.Context, phase string, jobs []job, o QueryOptions, visit func(jobIdx, region int, v int32)) error {
	log := logctx.FromContext(ctx)
	start := time.Now()
	progress := logging.NewProgressTracker(phase, int64(len(jobs)), log)

	var total uint64
	for _, j := range jobs {
		total += j.positions()
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(o.Workers)

	for idx, j := range jobs {
		g.Go(func() (err error) {
			jobStart := time.Now()
			defer func() {
				r := recover()
				if r == nil {
					return
				}
				if e, ok := r.(error); ok {
					err = fmt.Errorf("partition %s:%d-%d: %w", j.part.Chrom, j.part.Begin, j.part.End, e)
				} else {
					err = fmt.Errorf("partition %s:%d-%d: %v", j.part.Chrom, j.part.Begin, j.part.End, r)
				}
				jctx := logctx.WithRegion(gctx, j.part.Chrom, j.part.Begin, j.part.End)
				jctx = logctx.WithInt(jctx, "job", idx)
				jlog := logctx.FromContext(jctx)
				jlog.Debug().Err(err).Msg("partition decode failed")
			}()

			var n int
			for _, s := range j.spans {
				for pos := s.begin; pos < s.end; pos++ {
					if n++; n%cancelCheckInterval == 0 {
						if err := gctx.Err(); err != nil {
							return err
						}
					}
					visit(idx, s.region, j.part.Value(pos))
				}
			}
			progress.RecordCompletion(time.Since(jobStart))
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return fmt.Errorf("%s: %w", phase, err)
	}
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("%s: %w", phase, err)
	}

	logging.QueryComplete(log, phase, time.Since(start)).
		Int("jobs", len(jobs)).
		Int("workers", o.Workers).
		Bases("positions", total).
		Log(phase + " complete")
	return nil
}
