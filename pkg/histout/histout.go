// Package histout exports histogram and mean results as Parquet or JSON.
package histout

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	gojson "github.com/goccy/go-json"
	"github.com/parquet-go/parquet-go"

	"github.com/eunmann/d4query/pkg/d4"
	"github.com/eunmann/d4query/pkg/fileutil"
)

// ErrUnknownFormat is returned for output paths with an unsupported extension.
var ErrUnknownFormat = errors.New("unknown output format")

// Row kinds.
const (
	KindBin   = "bin"
	KindBelow = "below"
	KindAbove = "above"
)

// HistogramRow is one Parquet row. Every region contributes one row per bin
// plus one "below" and one "above" row.
type HistogramRow struct {
	Region string `parquet:"region"`
	Chrom  string `parquet:"chrom"`
	Begin  int64  `parquet:"begin"`
	End    int64  `parquet:"end"`
	Kind   string `parquet:"kind"`
	Value  int32  `parquet:"value"`
	Count  int64  `parquet:"count"`
}

// Rows flattens results into Parquet rows in region order. The below row
// carries min as Value and the above row carries max.
func Rows(results []d4.HistogramResult, min, max int32) []HistogramRow {
	var rows []HistogramRow
	for _, res := range results {
		base := HistogramRow{
			Region: res.Region.String(),
			Chrom:  res.Region.Chrom,
			Begin:  int64(res.Region.Begin),
			End:    int64(res.Region.End),
		}

		below := base
		below.Kind, below.Value, below.Count = KindBelow, min, int64(res.Below)
		rows = append(rows, below)

		for _, b := range res.Bins {
			r := base
			r.Kind, r.Value, r.Count = KindBin, b.Value, int64(b.Count)
			rows = append(rows, r)
		}

		above := base
		above.Kind, above.Value, above.Count = KindAbove, max, int64(res.Above)
		rows = append(rows, above)
	}
	return rows
}

// WriteParquet writes results to a Parquet file at path.
func WriteParquet(path string, results []d4.HistogramResult, min, max int32) error {
	rows := Rows(results, min, max)
	return fileutil.WriteTmpThenMove(filepath.Dir(path), path, func(tmpPath string) error {
		if err := parquet.WriteFile(tmpPath, rows); err != nil {
			return fmt.Errorf("write parquet: %w", err)
		}
		return nil
	})
}

// ReadParquet reads rows written by WriteParquet.
func ReadParquet(path string) ([]HistogramRow, error) {
	rows, err := parquet.ReadFile[HistogramRow](path)
	if err != nil {
		return nil, fmt.Errorf("read parquet %s: %w", path, err)
	}
	return rows, nil
}

// HistogramJSON is the JSON document for one region.
type HistogramJSON struct {
	Region string   `json:"region"`
	Chrom  string   `json:"chrom"`
	Begin  uint32   `json:"begin"`
	End    uint32   `json:"end"`
	Bins   []d4.Bin `json:"bins"`
	Below  uint64   `json:"below"`
	Above  uint64   `json:"above"`
	Mean   float64  `json:"mean"`
}

// MeanJSON is the JSON document for one mean result.
type MeanJSON struct {
	Region string  `json:"region"`
	Sum    int64   `json:"sum"`
	Count  uint64  `json:"count"`
	Mean   float64 `json:"mean"`
}

// WriteJSON writes results as an indented JSON array.
func WriteJSON(w io.Writer, results []d4.HistogramResult) error {
	docs := make([]HistogramJSON, len(results))
	for i, res := range results {
		docs[i] = HistogramJSON{
			Region: res.Region.String(),
			Chrom:  res.Region.Chrom,
			Begin:  res.Region.Begin,
			End:    res.Region.End,
			Bins:   res.Bins,
			Below:  res.Below,
			Above:  res.Above,
			Mean:   res.Mean(),
		}
	}
	return encode(w, docs)
}

// WriteMeansJSON writes mean results as an indented JSON array.
func WriteMeansJSON(w io.Writer, results []d4.MeanResult) error {
	docs := make([]MeanJSON, len(results))
	for i, res := range results {
		docs[i] = MeanJSON{
			Region: res.Region.String(),
			Sum:    res.Sum,
			Count:  res.Count,
			Mean:   res.Mean(),
		}
	}
	return encode(w, docs)
}

// WriteChromsJSON writes the chromosome list as a JSON array.
func WriteChromsJSON(w io.Writer, chroms []d4.ChromEntry) error {
	type chromJSON struct {
		Name string `json:"name"`
		Size uint32 `json:"size"`
	}
	docs := make([]chromJSON, len(chroms))
	for i, c := range chroms {
		docs[i] = chromJSON{Name: c.Name, Size: c.Size}
	}
	return encode(w, docs)
}

// WriteFile writes results to path, choosing the format by extension:
// .parquet or .json.
func WriteFile(path string, results []d4.HistogramResult, min, max int32) error {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet":
		return WriteParquet(path, results, min, max)
	case ".json":
		return fileutil.WriteTmpThenMove(filepath.Dir(path), path, func(tmpPath string) error {
			f, err := os.Create(tmpPath)
			if err != nil {
				return fmt.Errorf("create %s: %w", tmpPath, err)
			}
			if err := WriteJSON(f, results); err != nil {
				f.Close()
				return err
			}
			return f.Close()
		})
	default:
		return fmt.Errorf("%w: %q", ErrUnknownFormat, path)
	}
}

func encode(w io.Writer, v any) error {
	enc := gojson.NewEncoder(w)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("encode json: %w", err)
	}
	return nil
}
