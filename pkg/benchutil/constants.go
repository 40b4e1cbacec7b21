package benchutil

import "github.com/eunmann/d4query/internal/d4test"

// Shared constants for benchmarks across packages.

// BenchmarkSeed is the default seed for reproducible benchmark data generation.
const BenchmarkSeed = 42

// Standard benchmark sizes (total positions) for quick runs.
var BenchmarkSizes = []int{10_000, 100_000, 1_000_000}

// ScalingSizes are larger sizes for comprehensive scaling tests.
// Used with D4Q_LONG_BENCH=1 environment variable.
var ScalingSizes = []int{5_000_000, 20_000_000, 50_000_000}

// Encodings are the file layouts benchmarks run against. 8-bit primaries with
// a dict base below typical depth keep most positions out of the secondary
// table; width 0 pushes every position through it.
var Encodings = map[string]d4test.Options{
	"width8":      {BitWidth: 8, PartitionSize: 65536},
	"width4_zstd": {BitWidth: 4, DictBase: 20, PartitionSize: 65536, Compress: true},
	"width0":      {BitWidth: 0, PartitionSize: 65536},
}
