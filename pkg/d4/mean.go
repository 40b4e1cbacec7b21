package d4

import (
	"context"

	"github.com/eunmann/d4query/pkg/logging"
)

// MeanResult is the sum and position count of one region.
type MeanResult struct {
	Region ResolvedRegion
	Sum    int64
	Count  uint64
}

// Mean returns Sum/Count, or 0 for an empty region.
func (m MeanResult) Mean() float64 {
	if m.Count == 0 {
		return 0
	}
	return float64(m.Sum) / float64(m.Count)
}

type meanAcc struct {
	sum   int64
	count uint64
}

// Mean computes the mean value of each region. Resolution follows the same
// fail-fast rules as Histogram.
func (f *File) Mean(ctx context.Context, specs []RegionSpec, opts ...QueryOption) ([]MeanResult, error) {
	regions, err := f.catalog.ResolveAll(specs)
	if err != nil {
		return nil, err
	}
	o := buildOptions(opts)
	jobs := planJobs(f.Split(o.SplitHint), regions)

	partials := make([][]meanAcc, len(jobs))
	for i := range partials {
		partials[i] = make([]meanAcc, len(regions))
	}

	err = runJobs(ctx, logging.PhaseMean, jobs, o, func(jobIdx, region int, v int32) {
		acc := &partials[jobIdx][region]
		acc.sum += int64(v)
		acc.count++
	})
	if err != nil {
		return nil, err
	}

	results := make([]MeanResult, len(regions))
	for i, r := range regions {
		results[i].Region = r
	}
	for _, row := range partials {
		for region, acc := range row {
			results[region].Sum += acc.sum
			results[region].Count += acc.count
		}
	}
	return results, nil
}
