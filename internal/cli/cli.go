// Package cli implements the command-line interface for d4q.
package cli

import (
	"bufio"
	"context"
	"errors"
	"flag"
	"fmt"
	"io"
	"math"
	"os"

	"github.com/eunmann/d4query/internal/logctx"
	"github.com/eunmann/d4query/pkg/d4"
	"github.com/eunmann/d4query/pkg/histout"
	"github.com/eunmann/d4query/pkg/logging"
	"github.com/eunmann/d4query/pkg/s3fetch"
)

const usage = "usage: d4q <command> [options] <file> [region...]\ncommands: chroms, values, hist, mean"

// Run executes the CLI with the given arguments, writing results to stdout.
func Run(args []string) error {
	return RunContext(context.Background(), args, os.Stdout)
}

// RunContext is Run with a caller-supplied context and output writer.
func RunContext(ctx context.Context, args []string, stdout io.Writer) error {
	if len(args) == 0 {
		return errors.New(usage)
	}

	switch args[0] {
	case "chroms":
		return runChroms(ctx, args[1:], stdout)
	case "values":
		return runValues(ctx, args[1:], stdout)
	case "hist":
		return runHist(ctx, args[1:], stdout)
	case "mean":
		return runMean(ctx, args[1:], stdout)
	case "-h", "--help", "help":
		return errors.New(usage)
	default:
		return fmt.Errorf("unknown command: %s", args[0])
	}
}

// common holds the flags every command accepts.
type common struct {
	debug    *bool
	human    *bool
	cacheDir *string
	tempDir  *string
}

func addCommon(fs *flag.FlagSet) common {
	return common{
		debug:    fs.Bool("debug", false, "enable debug logging"),
		human:    fs.Bool("human", false, "human-friendly log output"),
		cacheDir: fs.String("cache-dir", "", "keep files fetched from s3:// URIs in this directory"),
		tempDir:  fs.String("tmp", "", "directory for temporary downloads"),
	}
}

// open configures logging and opens the file named by the first positional
// argument.
func (c common) open(ctx context.Context, fs *flag.FlagSet) (context.Context, *d4.File, error) {
	logging.Init(*c.debug, *c.human)
	ctx = logctx.WithLogger(ctx, *logging.L())

	if fs.NArg() == 0 {
		return ctx, nil, errors.New("a depth file path or s3:// URI is required")
	}
	path := fs.Arg(0)
	ctx = logctx.WithStr(ctx, "file", path)

	cfg := s3fetch.DownloaderConfig{CacheDir: *c.cacheDir, TempDir: *c.tempDir}
	f, err := d4.OpenURI(ctx, path, cfg)
	if err != nil {
		return ctx, nil, fmt.Errorf("open %s: %w", path, err)
	}
	return ctx, f, nil
}

func runChroms(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("chroms", flag.ContinueOnError)
	c := addCommon(fs)
	asJSON := fs.Bool("json", false, "print JSON instead of tab-separated text")

	if err := fs.Parse(args); err != nil {
		return err
	}

	_, f, err := c.open(ctx, fs)
	if err != nil {
		return err
	}
	defer f.Close()

	if *asJSON {
		return histout.WriteChromsJSON(stdout, f.Chroms())
	}

	w := bufio.NewWriter(stdout)
	for _, chrom := range f.Chroms() {
		fmt.Fprintf(w, "%s\t%d\n", chrom.Name, chrom.Size)
	}
	return w.Flush()
}

func runValues(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("values", flag.ContinueOnError)
	c := addCommon(fs)
	region := fs.String("region", "", "region as chr, chr:begin or chr:begin-end")

	if err := fs.Parse(args); err != nil {
		return err
	}
	if *region == "" {
		return errors.New("--region is required")
	}
	spec, err := d4.ParseRegionString(*region)
	if err != nil {
		return err
	}

	_, f, err := c.open(ctx, fs)
	if err != nil {
		return err
	}
	defer f.Close()

	// Resolving first reports unknown chromosomes, which the iterator
	// would silently treat as empty.
	r, err := f.Catalog().Resolve(spec)
	if err != nil {
		return err
	}

	w := bufio.NewWriter(stdout)
	var n int
	for v := range f.ValueIter(r.Chrom, r.Begin, r.End).All() {
		if n++; n%(1<<20) == 0 {
			if err := ctx.Err(); err != nil {
				return err
			}
		}
		fmt.Fprintln(w, v)
	}
	return w.Flush()
}

func runHist(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("hist", flag.ContinueOnError)
	c := addCommon(fs)
	minVal := fs.Int("min", 0, "lowest binned value (inclusive)")
	maxVal := fs.Int("max", 1000, "highest binned value (exclusive)")
	workers := fs.Int("workers", 0, "concurrent partition workers (default: NumCPU, max 16)")
	out := fs.String("out", "", "write results to a .parquet or .json file instead of stdout")

	if err := fs.Parse(args); err != nil {
		return err
	}
	lo, err := toInt32("--min", *minVal)
	if err != nil {
		return err
	}
	hi, err := toInt32("--max", *maxVal)
	if err != nil {
		return err
	}

	ctx, f, err := c.open(ctx, fs)
	if err != nil {
		return err
	}
	defer f.Close()

	specs, err := regionArgs(f, fs.Args()[1:])
	if err != nil {
		return err
	}

	results, err := f.Histogram(ctx, specs, lo, hi, d4.WithWorkers(*workers))
	if err != nil {
		return err
	}

	if *out != "" {
		if err := histout.WriteFile(*out, results, lo, hi); err != nil {
			return err
		}
		logger := logctx.FromContext(ctx)
		logger.Info().Str("out", *out).Int("regions", len(results)).Msg("wrote histogram")
		return nil
	}

	w := bufio.NewWriter(stdout)
	for _, res := range results {
		region := res.Region.String()
		fmt.Fprintf(w, "%s\t<%d\t%d\n", region, lo, res.Below)
		for _, b := range res.Bins {
			fmt.Fprintf(w, "%s\t%d\t%d\n", region, b.Value, b.Count)
		}
		fmt.Fprintf(w, "%s\t>=%d\t%d\n", region, hi, res.Above)
	}
	return w.Flush()
}

func runMean(ctx context.Context, args []string, stdout io.Writer) error {
	fs := flag.NewFlagSet("mean", flag.ContinueOnError)
	c := addCommon(fs)
	workers := fs.Int("workers", 0, "concurrent partition workers (default: NumCPU, max 16)")
	asJSON := fs.Bool("json", false, "print JSON instead of tab-separated text")

	if err := fs.Parse(args); err != nil {
		return err
	}

	ctx, f, err := c.open(ctx, fs)
	if err != nil {
		return err
	}
	defer f.Close()

	specs, err := regionArgs(f, fs.Args()[1:])
	if err != nil {
		return err
	}

	results, err := f.Mean(ctx, specs, d4.WithWorkers(*workers))
	if err != nil {
		return err
	}

	if *asJSON {
		return histout.WriteMeansJSON(stdout, results)
	}
	w := bufio.NewWriter(stdout)
	for _, res := range results {
		fmt.Fprintf(w, "%s\t%g\n", res.Region, res.Mean())
	}
	return w.Flush()
}

// regionArgs parses region arguments; none means every chromosome.
func regionArgs(f *d4.File, args []string) ([]d4.RegionSpec, error) {
	if len(args) == 0 {
		chroms := f.Chroms()
		specs := make([]d4.RegionSpec, len(chroms))
		for i, c := range chroms {
			specs[i] = d4.WholeChrom(c.Name)
		}
		return specs, nil
	}

	specs := make([]d4.RegionSpec, len(args))
	for i, a := range args {
		s, err := d4.ParseRegionString(a)
		if err != nil {
			return nil, err
		}
		specs[i] = s
	}
	return specs, nil
}

func toInt32(name string, v int) (int32, error) {
	if v < math.MinInt32 || v > math.MaxInt32 {
		return 0, fmt.Errorf("%s %d out of range", name, v)
	}
	return int32(v), nil
}
