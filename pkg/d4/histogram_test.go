package d4

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"reflect"
	"testing"

	"github.com/eunmann/d4query/internal/d4test"
	"github.com/eunmann/d4query/pkg/format"
)

func TestHistogramSmall(t *testing.T) {
	chroms := []d4test.Chrom{{Name: "chr1", Values: []int32{0, 1, 1, 4, 7}}}
	wantBins := []Bin{{0, 1}, {1, 2}, {2, 0}, {3, 0}, {4, 1}}

	for _, fo := range fixtureOptions {
		for _, workers := range []int{1, 4} {
			f := openFixture(t, chroms, fo.opts)
			results, err := f.Histogram(context.Background(), []RegionSpec{WholeChrom("chr1")}, 0, 5, WithWorkers(workers))
			if err != nil {
				t.Fatalf("%s/workers=%d: Histogram: %v", fo.name, workers, err)
			}
			if len(results) != 1 {
				t.Fatalf("%s/workers=%d: got %d results, want 1", fo.name, workers, len(results))
			}
			res := results[0]
			if !reflect.DeepEqual(res.Bins, wantBins) {
				t.Errorf("%s/workers=%d: Bins = %v, want %v", fo.name, workers, res.Bins, wantBins)
			}
			if res.Below != 0 || res.Above != 1 {
				t.Errorf("%s/workers=%d: Below, Above = %d, %d, want 0, 1", fo.name, workers, res.Below, res.Above)
			}
			if res.Region != (ResolvedRegion{Chrom: "chr1", Begin: 0, End: 5}) {
				t.Errorf("%s/workers=%d: Region = %v", fo.name, workers, res.Region)
			}
		}
	}
}

// bruteHistogram computes the expected result directly from the values.
func bruteHistogram(values []int32, begin, end uint32, min, max int32) (bins []uint64, below, above uint64) {
	bins = make([]uint64, max-min)
	for pos := begin; pos < end && int(pos) < len(values); pos++ {
		switch v := values[pos]; {
		case v < min:
			below++
		case v >= max:
			above++
		default:
			bins[v-min]++
		}
	}
	return bins, below, above
}

func TestHistogramMatchesBruteForce(t *testing.T) {
	chroms := testChroms()
	specs := []RegionSpec{
		WholeChrom("chr1"),
		ChromRange("chr1", 100, 200),
		ChromRange("chr1", 150, 650), // overlaps the previous region
		ChromFrom("chr2", 17),
		ChromRange("chrX", 0, 120),
		ChromRange("chr2", 40, 40),
	}
	const lo, hi = 2, 15

	for _, fo := range fixtureOptions {
		t.Run(fo.name, func(t *testing.T) {
			f := openFixture(t, chroms, fo.opts)
			for _, opts := range [][]QueryOption{
				{WithWorkers(1)},
				{WithWorkers(8), WithSplitHint(50)},
			} {
				results, err := f.Histogram(context.Background(), specs, lo, hi, opts...)
				if err != nil {
					t.Fatalf("Histogram: %v", err)
				}
				if len(results) != len(specs) {
					t.Fatalf("got %d results, want %d", len(results), len(specs))
				}
				for i, res := range results {
					r := res.Region
					var values []int32
					for _, c := range chroms {
						if c.Name == r.Chrom {
							values = c.Values
						}
					}
					bins, below, above := bruteHistogram(values, r.Begin, r.End, lo, hi)
					for k, b := range res.Bins {
						if b.Value != lo+int32(k) || b.Count != bins[k] {
							t.Errorf("region %d (%s): bin %d = %+v, want {%d %d}", i, r, k, b, lo+int32(k), bins[k])
						}
					}
					if res.Below != below || res.Above != above {
						t.Errorf("region %d (%s): Below, Above = %d, %d, want %d, %d", i, r, res.Below, res.Above, below, above)
					}
				}
			}
		})
	}
}

func TestHistogramRegionsIndependent(t *testing.T) {
	chroms := []d4test.Chrom{{Name: "chr1", Values: []int32{-1, -1, 10, 3, 20, 20, 20, -5}}}
	f := openFixture(t, chroms, d4test.Options{BitWidth: 2, PartitionSize: 3})

	specs := []RegionSpec{ChromRange("chr1", 0, 3), ChromRange("chr1", 3, 8)}
	results, err := f.Histogram(context.Background(), specs, 0, 5)
	if err != nil {
		t.Fatalf("Histogram: %v", err)
	}

	if results[0].Below != 2 || results[0].Above != 1 {
		t.Errorf("region 0: Below, Above = %d, %d, want 2, 1", results[0].Below, results[0].Above)
	}
	if results[1].Below != 1 || results[1].Above != 3 {
		t.Errorf("region 1: Below, Above = %d, %d, want 1, 3", results[1].Below, results[1].Above)
	}
	if results[0].Bins[3].Count != 0 || results[1].Bins[3].Count != 1 {
		t.Errorf("bin 3 counts = %d, %d, want 0, 1", results[0].Bins[3].Count, results[1].Bins[3].Count)
	}
	for i, res := range results {
		if got, want := res.Total(), uint64(specs[i].End-specs[i].Begin); got != want {
			t.Errorf("region %d: Total() = %d, want %d", i, got, want)
		}
	}
}

func TestHistogramUnknownChromFailsBatch(t *testing.T) {
	f := openFixture(t, testChroms(), d4test.Options{BitWidth: 4})

	specs := []RegionSpec{WholeChrom("chr1"), WholeChrom("chrZ"), WholeChrom("chr2")}
	results, err := f.Histogram(context.Background(), specs, 0, 10)
	if results != nil {
		t.Errorf("Histogram returned %d results alongside an error", len(results))
	}
	if !errors.Is(err, ErrNotFound) {
		t.Fatalf("Histogram error = %v, want ErrNotFound", err)
	}
	var nf *ChromNotFoundError
	if !errors.As(err, &nf) || nf.Name != "chrZ" {
		t.Errorf("error = %v, want ChromNotFoundError for chrZ", err)
	}
	if err.Error() != "chrom chrZ doesn't exist" {
		t.Errorf("error text = %q", err.Error())
	}
}

func TestHistogramBounds(t *testing.T) {
	chroms := []d4test.Chrom{{Name: "chr1", Values: []int32{0, 1, 2, 3, 4}}}
	f := openFixture(t, chroms, d4test.Options{BitWidth: 2})
	ctx := context.Background()

	t.Run("max below min", func(t *testing.T) {
		if _, err := f.Histogram(ctx, []RegionSpec{WholeChrom("chr1")}, 5, 4); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("Histogram(5, 4) = %v, want ErrMalformedInput", err)
		}
	})

	t.Run("empty range", func(t *testing.T) {
		results, err := f.Histogram(ctx, []RegionSpec{WholeChrom("chr1")}, 2, 2)
		if err != nil {
			t.Fatalf("Histogram(2, 2): %v", err)
		}
		res := results[0]
		if len(res.Bins) != 0 || res.Below != 2 || res.Above != 3 {
			t.Errorf("Histogram(2, 2) = %+v, want no bins, Below 2, Above 3", res)
		}
	})

	t.Run("inverted region", func(t *testing.T) {
		if _, err := f.Histogram(ctx, []RegionSpec{ChromRange("chr1", 4, 2)}, 0, 5); !errors.Is(err, ErrMalformedInput) {
			t.Errorf("Histogram(inverted) = %v, want ErrMalformedInput", err)
		}
	})

	t.Run("end past chromosome", func(t *testing.T) {
		results, err := f.Histogram(ctx, []RegionSpec{ChromRange("chr1", 3, 1000)}, 0, 5)
		if err != nil {
			t.Fatalf("Histogram: %v", err)
		}
		if got := results[0].Total(); got != 2 {
			t.Errorf("Total() = %d, want 2", got)
		}
	})

	t.Run("no regions", func(t *testing.T) {
		results, err := f.Histogram(ctx, nil, 0, 5)
		if err != nil || len(results) != 0 {
			t.Errorf("Histogram(nil) = (%v, %v), want empty", results, err)
		}
	})
}

func TestHistogramCanceled(t *testing.T) {
	f := openFixture(t, testChroms(), d4test.Options{BitWidth: 4})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	results, err := f.Histogram(ctx, []RegionSpec{WholeChrom("chr1")}, 0, 10)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("Histogram error = %v, want context.Canceled", err)
	}
	if results != nil {
		t.Errorf("Histogram returned results after cancellation")
	}
}

func TestHistogramCorruptSecondary(t *testing.T) {
	chroms := []d4test.Chrom{{Name: "chr1", Values: []int32{0, 500, 1, 600, 2}}}
	buf, err := d4test.Build(chroms, d4test.Options{BitWidth: 2, Compress: true})
	if err != nil {
		t.Fatalf("Build: %v", err)
	}
	layout, err := format.ParseLayout(buf)
	if err != nil {
		t.Fatalf("ParseLayout: %v", err)
	}
	e := layout.Partitions[0]
	for i := e.StabOffset; i < e.StabOffset+e.StabLen; i++ {
		buf[i] = 0xff
	}
	path := filepath.Join(t.TempDir(), "corrupt.d4")
	if err := os.WriteFile(path, buf, 0o644); err != nil {
		t.Fatal(err)
	}

	f, err := Open(path)
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer f.Close()

	_, err = f.Histogram(context.Background(), []RegionSpec{WholeChrom("chr1")}, 0, 10)
	if !errors.Is(err, format.ErrCorrupt) {
		t.Errorf("Histogram error = %v, want ErrCorrupt", err)
	}
}

func TestHistogramResultMean(t *testing.T) {
	res := HistogramResult{
		Bins:  []Bin{{0, 1}, {1, 2}, {2, 0}, {3, 0}, {4, 1}},
		Above: 1,
	}
	if got := res.Mean(); got != 1.5 {
		t.Errorf("Mean() = %v, want 1.5", got)
	}
	if got := (HistogramResult{Bins: []Bin{{0, 0}}}).Mean(); got != 0 {
		t.Errorf("Mean() of empty histogram = %v, want 0", got)
	}
}

func TestQueryOptions(t *testing.T) {
	def := DefaultQueryOptions()
	if def.Workers < 1 || def.Workers > 16 {
		t.Errorf("DefaultQueryOptions().Workers = %d, want 1..16", def.Workers)
	}
	if def.SplitHint != 4*def.Workers {
		t.Errorf("DefaultQueryOptions().SplitHint = %d, want %d", def.SplitHint, 4*def.Workers)
	}

	o := buildOptions([]QueryOption{WithWorkers(3)})
	if o.Workers != 3 || o.SplitHint != 12 {
		t.Errorf("buildOptions(WithWorkers(3)) = %+v, want {3 12}", o)
	}
	o = buildOptions([]QueryOption{WithWorkers(-2), WithSplitHint(9)})
	if o.Workers != def.Workers || o.SplitHint != 9 {
		t.Errorf("buildOptions(-2, 9) = %+v, want {%d 9}", o, def.Workers)
	}
}

func TestPlanJobs(t *testing.T) {
	parts := []*Partition{
		NewPartition("chr1", 0, 100, fakePrimary{}, &fakeSecondary{}),
		NewPartition("chr1", 100, 200, fakePrimary{}, &fakeSecondary{}),
		NewPartition("chr2", 0, 50, fakePrimary{}, &fakeSecondary{}),
	}
	regions := []ResolvedRegion{
		{Chrom: "chr1", Begin: 50, End: 150},
		{Chrom: "chr1", Begin: 120, End: 130},
		{Chrom: "chr3", Begin: 0, End: 10},
	}

	jobs := planJobs(parts, regions)
	if len(jobs) != 2 {
		t.Fatalf("planJobs returned %d jobs, want 2", len(jobs))
	}
	if want := []span{{0, 50, 100}}; !reflect.DeepEqual(jobs[0].spans, want) {
		t.Errorf("jobs[0].spans = %+v, want %+v", jobs[0].spans, want)
	}
	if want := []span{{0, 100, 150}, {1, 120, 130}}; !reflect.DeepEqual(jobs[1].spans, want) {
		t.Errorf("jobs[1].spans = %+v, want %+v", jobs[1].spans, want)
	}
	if got := jobs[1].positions(); got != 60 {
		t.Errorf("jobs[1].positions() = %d, want 60", got)
	}
}
