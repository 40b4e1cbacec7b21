package d4

import (
	"context"
	"fmt"

	"github.com/eunmann/d4query/pkg/logging"
)

// Bin is one histogram bucket: the number of positions whose value is
// exactly Value.
type Bin struct {
	Value int32  `json:"value"`
	Count uint64 `json:"count"`
}

// HistogramResult is the histogram of one region. Bins holds one entry per
// value in [min, max), in ascending order, zero counts included.
type HistogramResult struct {
	Region ResolvedRegion
	Bins   []Bin
	Below  uint64 // values < min
	Above  uint64 // values >= max
}

// Total returns the number of positions counted, in range or not.
func (h HistogramResult) Total() uint64 {
	n := h.Below + h.Above
	for _, b := range h.Bins {
		n += b.Count
	}
	return n
}

// Mean returns the mean value over the in-range bins, or 0 when they are
// all empty.
func (h HistogramResult) Mean() float64 {
	var sum float64
	var n uint64
	for _, b := range h.Bins {
		sum += float64(b.Value) * float64(b.Count)
		n += b.Count
	}
	if n == 0 {
		return 0
	}
	return sum / float64(n)
}

type histAcc struct {
	bins  []uint64
	below uint64
	above uint64
}

func (a *histAcc) add(v, lo, hi int32) {
	switch {
	case v < lo:
		a.below++
	case v >= hi:
		a.above++
	default:
		a.bins[v-lo]++
	}
}

// Histogram computes a histogram of values in [min, max) for each spec.
// Every spec is resolved before any data is read; an unknown chromosome or a
// bad range fails the whole batch. Results are returned in spec order and are
// independent of each other, even when regions overlap.
//
// max == min yields results with no bins, every value counted in Below or
// Above. max < min is ErrMalformedInput.
func (f *File) Histogram(ctx context.Context, specs []RegionSpec, min, max int32, opts ...QueryOption) ([]HistogramResult, error) {
	if max < min {
		return nil, fmt.Errorf("%w: histogram max %d below min %d", ErrMalformedInput, max, min)
	}
	regions, err := f.catalog.ResolveAll(specs)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	width := int(int64(max) - int64(min))

	jobs := planJobs(f.Split(o.SplitHint), regions)

	// One accumulator row per job; rows are merged once every job is done.
	partials := make([][]*histAcc, len(jobs))
	for i, j := range jobs {
		row := make([]*histAcc, len(regions))
		for _, s := range j.spans {
			if row[s.region] == nil {
				row[s.region] = &histAcc{bins: make([]uint64, width)}
			}
		}
		partials[i] = row
	}

	err = runJobs(ctx, logging.PhaseHistogram, jobs, o, func(jobIdx, region int, v int32) {
		partials[jobIdx][region].add(v, min, max)
	})
	if err != nil {
		return nil, err
	}

	results := make([]HistogramResult, len(regions))
	for i, r := range regions {
		bins := make([]Bin, width)
		for k := range bins {
			bins[k].Value = min + int32(k)
		}
		results[i] = HistogramResult{Region: r, Bins: bins}
	}
	for _, row := range partials {
		for region, acc := range row {
			if acc == nil {
				continue
			}
			res := &results[region]
			res.Below += acc.below
			res.Above += acc.above
			for k, c := range acc.bins {
				res.Bins[k].Count += c
			}
		}
	}
	return results, nil
}
