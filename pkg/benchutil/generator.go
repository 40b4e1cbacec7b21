// Package benchutil provides synthetic depth profiles for benchmarks and testing.
package benchutil

import (
	"fmt"
	"math/rand"

	"github.com/eunmann/d4query/internal/d4test"
)

// GeneratorConfig configures synthetic depth generation.
type GeneratorConfig struct {
	// ChromCount is the number of chromosomes to generate.
	ChromCount int
	// ChromLen is the number of positions per chromosome.
	ChromLen int
	// MeanDepth is the typical coverage value. Runs hover around it.
	MeanDepth int32
	// OutlierRate is the probability (0.0-1.0) that a position carries a
	// value far above MeanDepth, forcing it into the secondary table.
	OutlierRate float64
	// RunLength is the average number of positions sharing one depth.
	RunLength int
	// Seed for reproducible generation. 0 = use default seed.
	Seed int64
}

// DefaultConfig returns a reasonable default configuration.
func DefaultConfig(positions int) GeneratorConfig {
	return GeneratorConfig{
		ChromCount:  4,
		ChromLen:    max(positions/4, 1),
		MeanDepth:   30,
		OutlierRate: 0.001,
		RunLength:   50,
		Seed:        BenchmarkSeed,
	}
}

// ExomeConfig returns a config with long zero-coverage stretches broken by
// short covered islands, the usual shape of targeted sequencing.
func ExomeConfig(positions int) GeneratorConfig {
	cfg := DefaultConfig(positions)
	cfg.MeanDepth = 80
	cfg.OutlierRate = 0.0001
	cfg.RunLength = 400
	return cfg
}

// Generator generates synthetic depth profiles.
type Generator struct {
	cfg GeneratorConfig
	rng *rand.Rand
}

// NewGenerator creates a new data generator.
func NewGenerator(cfg GeneratorConfig) *Generator {
	seed := cfg.Seed
	if seed == 0 {
		seed = BenchmarkSeed
	}
	if cfg.RunLength < 1 {
		cfg.RunLength = 1
	}
	return &Generator{
		cfg: cfg,
		rng: rand.New(rand.NewSource(seed)),
	}
}

// Generate returns one chromosome per configured ChromCount, named chr1..chrN.
func (g *Generator) Generate() []d4test.Chrom {
	chroms := make([]d4test.Chrom, g.cfg.ChromCount)
	for i := range chroms {
		chroms[i] = d4test.Chrom{
			Name:   fmt.Sprintf("chr%d", i+1),
			Values: g.generateValues(g.cfg.ChromLen),
		}
	}
	return chroms
}

func (g *Generator) generateValues(n int) []int32 {
	values := make([]int32, n)
	depth := g.nextDepth()
	left := g.nextRun()

	for i := range values {
		if left == 0 {
			depth = g.nextDepth()
			left = g.nextRun()
		}
		left--

		if g.cfg.OutlierRate > 0 && g.rng.Float64() < g.cfg.OutlierRate {
			values[i] = g.cfg.MeanDepth*100 + g.rng.Int31n(10000)
			continue
		}
		values[i] = depth
	}
	return values
}

// nextDepth picks the depth of the next run: 20% uncovered, the rest spread
// around MeanDepth.
func (g *Generator) nextDepth() int32 {
	if g.rng.Intn(5) == 0 || g.cfg.MeanDepth <= 0 {
		return 0
	}
	spread := g.cfg.MeanDepth/2 + 1
	return g.cfg.MeanDepth - spread/2 + g.rng.Int31n(spread)
}

func (g *Generator) nextRun() int {
	return 1 + g.rng.Intn(2*g.cfg.RunLength)
}
