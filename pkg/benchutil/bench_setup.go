package benchutil

import (
	"os"
	"testing"

	"github.com/eunmann/d4query/internal/d4test"
)

// SkipIfNoLongBench skips the benchmark if D4Q_LONG_BENCH is not set.
// Use this to gate long-running benchmarks that shouldn't run by default.
func SkipIfNoLongBench(b *testing.B) {
	if os.Getenv("D4Q_LONG_BENCH") == "" {
		b.Skip("set D4Q_LONG_BENCH=1 to run scaling benchmark")
	}
}

// WriteFixture generates a profile of the given total size and writes it to
// a temp file encoded with opts. Timer is stopped while writing.
func WriteFixture(b *testing.B, positions int, opts d4test.Options) (string, []d4test.Chrom) {
	b.Helper()
	b.StopTimer()
	defer b.StartTimer()

	chroms := NewGenerator(DefaultConfig(positions)).Generate()
	return d4test.WriteTemp(b, chroms, opts), chroms
}

// TotalPositions sums the stored positions across chroms.
func TotalPositions(chroms []d4test.Chrom) int {
	n := 0
	for _, c := range chroms {
		n += len(c.Values)
	}
	return n
}
