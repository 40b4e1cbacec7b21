package d4

import (
	"math/rand/v2"
	"testing"

	"github.com/eunmann/d4query/internal/d4test"
)

// depthValues returns n depth-like values: mostly small, with runs and the
// occasional large outlier that ends up in the secondary table.
func depthValues(seed uint64, n int) []int32 {
	rng := rand.New(rand.NewPCG(seed, seed+1))
	out := make([]int32, n)
	cur := int32(0)
	for i := range out {
		switch r := rng.IntN(100); {
		case r < 60:
			// keep the run going
		case r < 95:
			cur = int32(rng.IntN(20))
		default:
			cur = int32(1000 + rng.IntN(5000))
		}
		out[i] = cur
	}
	return out
}

func testChroms() []d4test.Chrom {
	return []d4test.Chrom{
		{Name: "chr1", Values: depthValues(1, 1000)},
		{Name: "chr2", Values: depthValues(2, 333)},
		{Name: "chrX", Size: 120, Values: depthValues(3, 100)},
	}
}

// truth returns the expected value at pos, 0 past the encoded values.
func truth(chroms []d4test.Chrom, name string, pos uint32) int32 {
	for _, c := range chroms {
		if c.Name == name && int(pos) < len(c.Values) {
			return c.Values[pos]
		}
	}
	return 0
}

var fixtureOptions = []struct {
	name string
	opts d4test.Options
}{
	{"width0", d4test.Options{BitWidth: 0}},
	{"width2", d4test.Options{BitWidth: 2, PartitionSize: 128}},
	{"width4 zstd", d4test.Options{BitWidth: 4, PartitionSize: 77, Compress: true}},
	{"width8 base", d4test.Options{BitWidth: 8, DictBase: 3, PartitionSize: 500}},
	{"width16", d4test.Options{BitWidth: 16, PartitionSize: 1000}},
}

func openFixture(t *testing.T, chroms []d4test.Chrom, opts d4test.Options) *File {
	t.Helper()
	f, err := Open(d4test.WriteTemp(t, chroms, opts))
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	t.Cleanup(func() { f.Close() })
	return f
}

func collect(it *ValueIter) []int32 {
	var out []int32
	for v := range it.All() {
		out = append(out, v)
	}
	return out
}
