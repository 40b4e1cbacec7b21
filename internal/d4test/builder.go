// Package d4test writes small depth files for tests.
package d4test

import (
	"encoding/binary"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/klauspost/compress/zstd"

	"github.com/eunmann/d4query/pkg/fileutil"
	"github.com/eunmann/d4query/pkg/format"
)

// Chrom is a chromosome with its true per-position values. Size defaults to
// len(Values); a larger Size leaves the tail without partitions.
type Chrom struct {
	Name   string
	Size   uint32
	Values []int32
}

// Options controls the encoding of a fixture file.
type Options struct {
	// BitWidth is the primary code width. Default: 0 (everything secondary).
	BitWidth uint32
	// DictBase is the value of primary code 0.
	DictBase int32
	// PartitionSize splits each chromosome into partitions of at most this
	// many positions. Default: one partition per chromosome.
	PartitionSize uint32
	// Compress stores secondary tables as zstd frames.
	Compress bool
}

// Build encodes chroms into the file format.
func Build(chroms []Chrom, opts Options) ([]byte, error) {
	if opts.BitWidth > format.MaxBitWidth {
		return nil, fmt.Errorf("bit width %d exceeds %d", opts.BitWidth, format.MaxBitWidth)
	}

	var enc *zstd.Encoder
	if opts.Compress {
		var err error
		enc, err = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest))
		if err != nil {
			return nil, fmt.Errorf("create zstd encoder: %w", err)
		}
		defer enc.Close()
	}

	header := format.Header{
		Magic:      format.Magic,
		Version:    format.Version,
		DictBase:   opts.DictBase,
		BitWidth:   opts.BitWidth,
		ChromCount: uint32(len(chroms)),
	}
	if opts.Compress {
		header.Flags |= format.FlagCompressedSecondary
	}

	meta := format.EncodeHeader(header)
	for _, c := range chroms {
		meta = format.EncodeChrom(meta, format.Chrom{Name: c.Name, Size: chromSize(c)})
	}

	type blob struct {
		entry format.PartitionEntry
		ptab  []byte
		stab  []byte
	}
	var blobs []blob
	for ci, c := range chroms {
		n := uint32(len(c.Values))
		step := opts.PartitionSize
		if step == 0 {
			step = n
		}
		for begin := uint32(0); begin < n; begin += step {
			end := min(begin+step, n)
			ptab, recs := encodePartition(c.Values[begin:end], begin, opts)
			var stab []byte
			for _, r := range recs {
				stab = format.EncodeSecondaryRecord(stab, r)
			}
			if enc != nil {
				stab = enc.EncodeAll(stab, nil)
			}
			blobs = append(blobs, blob{
				entry: format.PartitionEntry{
					ChromIdx:  uint32(ci),
					Begin:     begin,
					End:       end,
					StabCount: uint32(len(recs)),
				},
				ptab: ptab,
				stab: stab,
			})
		}
	}

	dataOff := uint64(len(meta)) + 4 + uint64(len(blobs))*format.PartitionEntrySize
	var data []byte
	meta = binary.LittleEndian.AppendUint32(meta, uint32(len(blobs)))
	for _, b := range blobs {
		e := b.entry
		e.PtabOffset = dataOff + uint64(len(data))
		e.PtabLen = uint64(len(b.ptab))
		data = append(data, b.ptab...)
		e.StabOffset = dataOff + uint64(len(data))
		e.StabLen = uint64(len(b.stab))
		data = append(data, b.stab...)
		meta = format.EncodePartitionEntry(meta, e)
	}
	return append(meta, data...), nil
}

// Write encodes chroms and writes them to path.
func Write(path string, chroms []Chrom, opts Options) error {
	buf, err := Build(chroms, opts)
	if err != nil {
		return err
	}
	return fileutil.WriteTmpThenMove(filepath.Dir(path), path, func(tmpPath string) error {
		return os.WriteFile(tmpPath, buf, 0o644)
	})
}

// WriteTemp writes a fixture into a test temp directory and returns its path.
func WriteTemp(tb testing.TB, chroms []Chrom, opts Options) string {
	tb.Helper()
	path := filepath.Join(tb.TempDir(), "fixture.d4")
	if err := Write(path, chroms, opts); err != nil {
		tb.Fatalf("write fixture: %v", err)
	}
	return path
}

func chromSize(c Chrom) uint32 {
	if c.Size > uint32(len(c.Values)) {
		return c.Size
	}
	return uint32(len(c.Values))
}

// encodePartition returns the packed primary codes and the secondary records
// for values starting at position begin.
func encodePartition(values []int32, begin uint32, opts Options) ([]byte, []format.SecondaryRecord) {
	mask := int64(1)<<opts.BitWidth - 1
	tentative := int64(opts.DictBase) + mask

	codes := make([]uint32, len(values))
	var recs []format.SecondaryRecord
	for i, v := range values {
		code := int64(v) - int64(opts.DictBase)
		if code >= 0 && code < mask {
			codes[i] = uint32(code)
			continue
		}
		codes[i] = uint32(mask)
		if int64(v) == tentative {
			continue
		}
		pos := begin + uint32(i)
		if last := len(recs) - 1; last >= 0 && recs[last].End == pos && recs[last].Value == v {
			recs[last].End++
			continue
		}
		recs = append(recs, format.SecondaryRecord{Begin: pos, End: pos + 1, Value: v})
	}
	return format.PackCodes(codes, opts.BitWidth), recs
}
