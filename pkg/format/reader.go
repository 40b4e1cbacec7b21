package format

import (
	"encoding/binary"
	"fmt"
	"slices"
)

// minChromEntrySize is the size of a chromosome entry with a one-byte name.
const minChromEntrySize = 2 + 1 + 4

// Layout is the parsed metadata of a depth file: header, chromosome list,
// and partition directory.
type Layout struct {
	Header     Header
	Chroms     []Chrom
	Partitions []PartitionEntry
	dataSize   uint64
}

// ParseLayout parses and validates the metadata in data, which holds the
// whole file.
func ParseLayout(data []byte) (*Layout, error) {
	header, err := DecodeHeader(data)
	if err != nil {
		return nil, err
	}
	if err := header.Validate(); err != nil {
		return nil, err
	}

	l := &Layout{Header: header, dataSize: uint64(len(data))}
	off := HeaderSize

	// Each entry takes at least minChromEntrySize bytes, so the file bounds
	// how many chromosomes can really follow.
	l.Chroms = make([]Chrom, 0, min(int(header.ChromCount), (len(data)-HeaderSize)/minChromEntrySize))
	for i := uint32(0); i < header.ChromCount; i++ {
		if off+2 > len(data) {
			return nil, fmt.Errorf("%w: chromosome list truncated at entry %d", ErrInvalidHeader, i)
		}
		n := int(binary.LittleEndian.Uint16(data[off:]))
		off += 2
		if off+n+4 > len(data) {
			return nil, fmt.Errorf("%w: chromosome list truncated at entry %d", ErrInvalidHeader, i)
		}
		name := string(data[off : off+n])
		off += n
		size := binary.LittleEndian.Uint32(data[off:])
		off += 4
		if name == "" {
			return nil, fmt.Errorf("%w: empty chromosome name at entry %d", ErrInvalidHeader, i)
		}
		l.Chroms = append(l.Chroms, Chrom{Name: name, Size: size})
	}

	if off+4 > len(data) {
		return nil, fmt.Errorf("%w: partition directory missing", ErrInvalidHeader)
	}
	partCount := int(binary.LittleEndian.Uint32(data[off:]))
	off += 4
	if off+partCount*PartitionEntrySize > len(data) {
		return nil, fmt.Errorf("%w: partition directory truncated", ErrInvalidHeader)
	}

	l.Partitions = make([]PartitionEntry, partCount)
	for i := range l.Partitions {
		l.Partitions[i] = decodePartitionEntry(data[off : off+PartitionEntrySize])
		off += PartitionEntrySize
	}

	if err := l.validatePartitions(); err != nil {
		return nil, err
	}
	return l, nil
}

func (l *Layout) validatePartitions() error {
	compressed := l.Header.Flags&FlagCompressedSecondary != 0
	for i, p := range l.Partitions {
		if int(p.ChromIdx) >= len(l.Chroms) {
			return fmt.Errorf("%w: partition %d references chromosome %d of %d", ErrCorrupt, i, p.ChromIdx, len(l.Chroms))
		}
		chrom := l.Chroms[p.ChromIdx]
		if p.Begin > p.End || p.End > chrom.Size {
			return fmt.Errorf("%w: partition %d range [%d,%d) outside %s:0-%d", ErrCorrupt, i, p.Begin, p.End, chrom.Name, chrom.Size)
		}
		if !l.inBounds(p.PtabOffset, p.PtabLen) || !l.inBounds(p.StabOffset, p.StabLen) {
			return fmt.Errorf("%w: partition %d tables outside file", ErrCorrupt, i)
		}
		if p.PtabLen < PrimaryTableLen(p.End-p.Begin, l.Header.BitWidth) {
			return fmt.Errorf("%w: partition %d primary table too short", ErrCorrupt, i)
		}
		if p.StabCount > p.End-p.Begin {
			return fmt.Errorf("%w: partition %d has %d secondary records for %d positions", ErrCorrupt, i, p.StabCount, p.End-p.Begin)
		}
		if !compressed && p.StabLen != uint64(p.StabCount)*SecondaryRecordSize {
			return fmt.Errorf("%w: partition %d secondary table length %d, want %d", ErrCorrupt, i, p.StabLen, uint64(p.StabCount)*SecondaryRecordSize)
		}
	}

	// Partitions of one chromosome must not overlap.
	sorted := slices.Clone(l.Partitions)
	slices.SortFunc(sorted, func(a, b PartitionEntry) int {
		if a.ChromIdx != b.ChromIdx {
			return int(a.ChromIdx) - int(b.ChromIdx)
		}
		return int(int64(a.Begin) - int64(b.Begin))
	})
	for i := 1; i < len(sorted); i++ {
		prev, cur := sorted[i-1], sorted[i]
		if prev.ChromIdx == cur.ChromIdx && cur.Begin < prev.End {
			return fmt.Errorf("%w: overlapping partitions on %s", ErrCorrupt, l.Chroms[cur.ChromIdx].Name)
		}
	}
	return nil
}

func (l *Layout) inBounds(off, n uint64) bool {
	return off <= l.dataSize && n <= l.dataSize-off
}

// Reader provides read access to a depth file via mmap.
//
// Thread Safety: Reader is safe for concurrent read access from multiple
// goroutines. The tables it hands out are not; each belongs to the caller
// that requested it. Close should only be called once, after all tables
// derived from the Reader are no longer used.
type Reader struct {
	mmap   *MmapFile
	layout *Layout
	index  *ChromIndex
}

// Open maps the file at path and parses its metadata.
func Open(path string) (*Reader, error) {
	mmap, err := OpenMmap(path)
	if err != nil {
		return nil, fmt.Errorf("mmap file: %w", err)
	}

	layout, err := ParseLayout(mmap.Data())
	if err != nil {
		mmap.Close()
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}

	names := make([]string, len(layout.Chroms))
	for i, c := range layout.Chroms {
		names[i] = c.Name
	}
	index, err := NewChromIndex(names)
	if err != nil {
		mmap.Close()
		return nil, fmt.Errorf("index chromosomes of %s: %w", path, err)
	}

	return &Reader{mmap: mmap, layout: layout, index: index}, nil
}

// Close releases the memory mapping.
func (r *Reader) Close() error {
	return r.mmap.Close()
}

// Header returns the file header.
func (r *Reader) Header() Header {
	return r.layout.Header
}

// Chroms returns the chromosome list. The slice must not be modified.
func (r *Reader) Chroms() []Chrom {
	return r.layout.Chroms
}

// ChromIndex returns the chromosome name index.
func (r *Reader) ChromIndex() *ChromIndex {
	return r.index
}

// Partitions returns the partition directory in file order. The slice must
// not be modified.
func (r *Reader) Partitions() []PartitionEntry {
	return r.layout.Partitions
}

// Size returns the file size in bytes.
func (r *Reader) Size() int64 {
	return r.mmap.Size()
}

// Primary returns a fresh primary-table decoder for the partition.
func (r *Reader) Primary(e PartitionEntry) *PrimaryTable {
	data := r.mmap.Data()[e.PtabOffset : e.PtabOffset+e.PtabLen]
	h := r.layout.Header
	return NewPrimaryTable(data, e.Begin, e.Begin, e.End, h.DictBase, h.BitWidth)
}

// Secondary returns a fresh secondary-table reader for the partition.
func (r *Reader) Secondary(e PartitionEntry) *SecondaryTable {
	data := r.mmap.Data()[e.StabOffset : e.StabOffset+e.StabLen]
	compressed := r.layout.Header.Flags&FlagCompressedSecondary != 0
	return NewSecondaryTable(data, e.StabCount, compressed)
}
