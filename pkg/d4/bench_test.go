package d4_test

import (
	"context"
	"fmt"
	"sort"
	"testing"

	"github.com/eunmann/d4query/internal/d4test"
	"github.com/eunmann/d4query/pkg/benchutil"
	"github.com/eunmann/d4query/pkg/d4"
)

/*
Query Benchmarks

Run quick comparison:
  go test -bench='BenchmarkHistogram' -benchtime=3x ./pkg/d4/...

Run scaling tests:
  D4Q_LONG_BENCH=1 go test -bench='BenchmarkHistogram_Scaling' -benchtime=1x ./pkg/d4/...
*/

func openBench(b *testing.B, positions int, opts d4test.Options) (*d4.File, []d4test.Chrom) {
	b.Helper()
	path, chroms := benchutil.WriteFixture(b, positions, opts)
	f, err := d4.Open(path)
	if err != nil {
		b.Fatalf("Open: %v", err)
	}
	b.Cleanup(func() { f.Close() })
	return f, chroms
}

func encodingNames() []string {
	names := make([]string, 0, len(benchutil.Encodings))
	for name := range benchutil.Encodings {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// BenchmarkValueIter measures sequential decode throughput of a single chromosome.
func BenchmarkValueIter(b *testing.B) {
	for _, enc := range encodingNames() {
		for _, size := range benchutil.BenchmarkSizes {
			b.Run(fmt.Sprintf("%s/positions=%d", enc, size), func(b *testing.B) {
				f, chroms := openBench(b, size, benchutil.Encodings[enc])
				c := chroms[0]
				b.ReportAllocs()
				b.SetBytes(int64(len(c.Values)) * 4)

				for range b.N {
					var sum int64
					for v := range f.ValueIter(c.Name, 0, uint32(len(c.Values))).All() {
						sum += int64(v)
					}
					if sum < 0 {
						b.Fatal("negative sum")
					}
				}
			})
		}
	}
}

// BenchmarkHistogram measures whole-file histograms across worker counts.
func BenchmarkHistogram(b *testing.B) {
	for _, workers := range []int{1, 4, 8} {
		b.Run(fmt.Sprintf("workers=%d", workers), func(b *testing.B) {
			benchmarkHistogram(b, 1_000_000, workers)
		})
	}
}

// BenchmarkHistogram_Scaling runs larger scale tests (gated).
func BenchmarkHistogram_Scaling(b *testing.B) {
	benchutil.SkipIfNoLongBench(b)

	for _, size := range benchutil.ScalingSizes {
		b.Run(fmt.Sprintf("positions=%d", size), func(b *testing.B) {
			benchmarkHistogram(b, size, 0)
		})
	}
}

func benchmarkHistogram(b *testing.B, positions, workers int) {
	b.Helper()
	f, chroms := openBench(b, positions, benchutil.Encodings["width8"])

	specs := make([]d4.RegionSpec, len(chroms))
	for i, c := range chroms {
		specs[i] = d4.WholeChrom(c.Name)
	}
	var opts []d4.QueryOption
	if workers > 0 {
		opts = append(opts, d4.WithWorkers(workers))
	}

	b.ReportAllocs()
	b.SetBytes(int64(benchutil.TotalPositions(chroms)) * 4)
	for range b.N {
		if _, err := f.Histogram(context.Background(), specs, 0, 1000, opts...); err != nil {
			b.Fatalf("Histogram: %v", err)
		}
	}
}
