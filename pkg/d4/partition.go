package d4

import (
	"fmt"
	"slices"

	"github.com/eunmann/d4query/pkg/format"
)

// PrimaryDecoder decodes the primary table of one partition.
type PrimaryDecoder interface {
	Decode(pos uint32) format.DecodeOutcome
}

// SecondaryReader looks up exception values of one partition.
type SecondaryReader interface {
	Lookup(pos uint32) (int32, bool)
}

// Partition is a contiguous range [Begin, End) of one chromosome together
// with the decoder and reader that serve it. A Partition is not safe for
// concurrent use; distinct partitions share no mutable state.
type Partition struct {
	Chrom string
	Begin uint32
	End   uint32

	primary   PrimaryDecoder
	secondary SecondaryReader
}

// NewPartition assembles a partition from its decoder/reader pair. The
// partition takes ownership of both.
func NewPartition(chrom string, begin, end uint32, primary PrimaryDecoder, secondary SecondaryReader) *Partition {
	return &Partition{
		Chrom:     chrom,
		Begin:     begin,
		End:       end,
		primary:   primary,
		secondary: secondary,
	}
}

// Len returns the number of positions covered.
func (p *Partition) Len() uint32 {
	return p.End - p.Begin
}

// Value returns the true value at pos. A definite primary value is returned
// as is; a tentative one is replaced by the secondary value recorded at
// exactly pos, if any.
//
// pos outside [Begin, End) is a caller bug and panics.
func (p *Partition) Value(pos uint32) int32 {
	if pos < p.Begin || pos >= p.End {
		panic(fmt.Sprintf("d4: position %d outside partition %s:%d-%d", pos, p.Chrom, p.Begin, p.End))
	}

	out := p.primary.Decode(pos)
	switch out.Kind {
	case format.OutcomeDefinite:
		return out.Value
	case format.OutcomeTentative:
		if v, ok := p.secondary.Lookup(pos); ok {
			return v
		}
		return out.Value
	default:
		panic(fmt.Sprintf("d4: invalid decode outcome %v at %s:%d", out.Kind, p.Chrom, pos))
	}
}

// Clip intersects [begin, end) on chrom with the partition. ok is false when
// the chromosome differs or the intersection is empty.
func (p *Partition) Clip(chrom string, begin, end uint32) (lo, hi uint32, ok bool) {
	if p.Chrom != chrom {
		return 0, 0, false
	}
	lo, hi = max(begin, p.Begin), min(end, p.End)
	if lo >= hi {
		return 0, 0, false
	}
	return lo, hi, true
}

// Split returns fresh partitions covering the file, ordered by chromosome
// (file order) then position. hint is a target partition count; stored
// partitions are cut into smaller pieces until roughly hint partitions
// exist. hint <= 0 returns the stored partitions. Each call hands out new
// decoder/reader instances owned by the returned partitions.
func (f *File) Split(hint int) []*Partition {
	entries := slices.Clone(f.reader.Partitions())
	slices.SortStableFunc(entries, func(a, b format.PartitionEntry) int {
		if a.ChromIdx != b.ChromIdx {
			return int(a.ChromIdx) - int(b.ChromIdx)
		}
		return int(int64(a.Begin) - int64(b.Begin))
	})

	pieceLen := pieceLength(entries, hint)
	chroms := f.reader.Chroms()

	parts := make([]*Partition, 0, max(len(entries), hint))
	for _, e := range entries {
		name := chroms[e.ChromIdx].Name
		primary := f.reader.Primary(e)
		secondary := f.reader.Secondary(e)

		if pieceLen == 0 || e.End-e.Begin <= pieceLen {
			parts = append(parts, NewPartition(name, e.Begin, e.End, primary, secondary))
			continue
		}
		for begin := e.Begin; begin < e.End; {
			end := e.End
			if e.End-begin > pieceLen {
				end = begin + pieceLen
			}
			parts = append(parts, NewPartition(name, begin, end, primary.Slice(begin, end), secondary.Clone()))
			begin = end
		}
	}
	return parts
}

// pieceLength returns the piece size that cuts the covered positions into
// about hint pieces, or 0 when no sub-splitting is needed.
func pieceLength(entries []format.PartitionEntry, hint int) uint32 {
	if hint <= len(entries) {
		return 0
	}
	var total uint64
	for _, e := range entries {
		total += uint64(e.End - e.Begin)
	}
	if total == 0 {
		return 0
	}
	n := (total + uint64(hint) - 1) / uint64(hint)
	return uint32(max(n, 1))
}
