package d4

import (
	"testing"

	"github.com/eunmann/d4query/internal/d4test"
	"github.com/eunmann/d4query/pkg/format"
)

// fakePrimary returns a fixed outcome per position.
type fakePrimary map[uint32]format.DecodeOutcome

func (f fakePrimary) Decode(pos uint32) format.DecodeOutcome {
	return f[pos]
}

// fakeSecondary records every lookup it serves.
type fakeSecondary struct {
	values  map[uint32]int32
	lookups int
}

func (f *fakeSecondary) Lookup(pos uint32) (int32, bool) {
	f.lookups++
	v, ok := f.values[pos]
	return v, ok
}

func TestPartitionValue(t *testing.T) {
	primary := fakePrimary{
		10: format.Definite(4),
		11: format.Definite(7),
		12: format.Tentative(15),
		13: format.Tentative(15),
	}
	// The secondary table has entries for every position, including the
	// definite ones; those must never be consulted.
	secondary := &fakeSecondary{values: map[uint32]int32{10: 99, 11: 99, 12: 1234}}
	p := NewPartition("chr1", 10, 14, primary, secondary)

	tests := []struct {
		pos  uint32
		want int32
	}{
		{10, 4},
		{11, 7},
		{12, 1234},
		{13, 15},
	}
	for _, tt := range tests {
		if got := p.Value(tt.pos); got != tt.want {
			t.Errorf("Value(%d) = %d, want %d", tt.pos, got, tt.want)
		}
	}
	if secondary.lookups != 2 {
		t.Errorf("secondary lookups = %d, want 2 (tentative positions only)", secondary.lookups)
	}
}

func TestPartitionValueOutOfRange(t *testing.T) {
	p := NewPartition("chr1", 10, 14, fakePrimary{}, &fakeSecondary{})
	for _, pos := range []uint32{9, 14, 1000} {
		func() {
			defer func() {
				if recover() == nil {
					t.Errorf("Value(%d) did not panic", pos)
				}
			}()
			p.Value(pos)
		}()
	}
}

func TestPartitionClip(t *testing.T) {
	p := NewPartition("chr1", 100, 200, fakePrimary{}, &fakeSecondary{})

	tests := []struct {
		name       string
		chrom      string
		begin, end uint32
		lo, hi     uint32
		ok         bool
	}{
		{"inside", "chr1", 120, 150, 120, 150, true},
		{"covers", "chr1", 0, 1000, 100, 200, true},
		{"left overlap", "chr1", 50, 101, 100, 101, true},
		{"right overlap", "chr1", 199, 300, 199, 200, true},
		{"touching left", "chr1", 0, 100, 0, 0, false},
		{"touching right", "chr1", 200, 300, 0, 0, false},
		{"empty", "chr1", 150, 150, 0, 0, false},
		{"other chrom", "chr2", 0, 1000, 0, 0, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			lo, hi, ok := p.Clip(tt.chrom, tt.begin, tt.end)
			if lo != tt.lo || hi != tt.hi || ok != tt.ok {
				t.Errorf("Clip(%s, %d, %d) = (%d, %d, %v), want (%d, %d, %v)",
					tt.chrom, tt.begin, tt.end, lo, hi, ok, tt.lo, tt.hi, tt.ok)
			}
		})
	}
}

func TestSplit(t *testing.T) {
	chroms := testChroms()
	f := openFixture(t, chroms, d4test.Options{BitWidth: 4, PartitionSize: 300, Compress: true})

	for _, hint := range []int{0, 1, 4, 7, 64, 5000} {
		parts := f.Split(hint)
		if hint > 7 && len(parts) < 7 {
			t.Errorf("Split(%d) returned %d partitions, want more than the 7 stored", hint, len(parts))
		}

		// Partitions must tile the stored ranges in chromosome then position order.
		covered := map[string]uint32{}
		order := map[string]int{"chr1": 0, "chr2": 1, "chrX": 2}
		lastChrom := -1
		for _, p := range parts {
			if order[p.Chrom] < lastChrom {
				t.Fatalf("Split(%d): %s after a later chromosome", hint, p.Chrom)
			}
			lastChrom = order[p.Chrom]
			if p.Begin != covered[p.Chrom] {
				t.Fatalf("Split(%d): %s partition starts at %d, want %d", hint, p.Chrom, p.Begin, covered[p.Chrom])
			}
			if p.Len() == 0 {
				t.Fatalf("Split(%d): empty partition %s:%d", hint, p.Chrom, p.Begin)
			}
			covered[p.Chrom] = p.End

			for pos := p.Begin; pos < p.End; pos++ {
				if got, want := p.Value(pos), truth(chroms, p.Chrom, pos); got != want {
					t.Fatalf("Split(%d): %s:%d = %d, want %d", hint, p.Chrom, pos, got, want)
				}
			}
		}
		for _, c := range chroms {
			if covered[c.Name] != uint32(len(c.Values)) {
				t.Errorf("Split(%d): %s covered to %d, want %d", hint, c.Name, covered[c.Name], len(c.Values))
			}
		}
	}
}

func TestPieceLength(t *testing.T) {
	entries := []format.PartitionEntry{
		{Begin: 0, End: 1000},
		{Begin: 0, End: 500},
	}
	tests := []struct {
		hint int
		want uint32
	}{
		{0, 0},
		{2, 0},
		{3, 500},
		{10, 150},
		{10000, 1},
	}
	for _, tt := range tests {
		if got := pieceLength(entries, tt.hint); got != tt.want {
			t.Errorf("pieceLength(hint=%d) = %d, want %d", tt.hint, got, tt.want)
		}
	}
}
