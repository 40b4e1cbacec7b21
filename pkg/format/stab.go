package format

import (
	"fmt"
	"sync"

	"github.com/klauspost/compress/zstd"
)

var (
	zstdDecoder     *zstd.Decoder
	zstdDecoderErr  error
	zstdDecoderOnce sync.Once
)

// sharedDecoder returns a process-wide zstd decoder. DecodeAll is safe for
// concurrent use.
func sharedDecoder() (*zstd.Decoder, error) {
	zstdDecoderOnce.Do(func() {
		zstdDecoder, zstdDecoderErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	return zstdDecoder, zstdDecoderErr
}

// secondaryBlob is the stored form of one partition's records, decoded at
// most once and then shared read-only by every table cloned from it.
type secondaryBlob struct {
	raw        []byte
	count      uint32
	compressed bool

	once    sync.Once
	records []byte // count*SecondaryRecordSize bytes once loaded
	err     error
}

// SecondaryTable looks up exception records of one partition.
//
// Thread Safety: a SecondaryTable is owned by a single partition and is not
// safe for concurrent use; clones may be used from different goroutines.
// Compressed tables are inflated on the first lookup and a cursor
// remembers the last hit for sequential scans.
type SecondaryTable struct {
	blob   *secondaryBlob
	cursor int
}

// NewSecondaryTable returns a reader over count records stored in raw.
func NewSecondaryTable(raw []byte, count uint32, compressed bool) *SecondaryTable {
	return &SecondaryTable{blob: &secondaryBlob{raw: raw, count: count, compressed: compressed}}
}

// Clone returns an independent reader over the same records. The decoded
// records are shared, so a partition split into pieces inflates once.
func (s *SecondaryTable) Clone() *SecondaryTable {
	return &SecondaryTable{blob: s.blob}
}

// Count returns the number of records.
func (s *SecondaryTable) Count() uint32 {
	return s.blob.count
}

// Load decodes and checks the records if needed. Lookup calls it implicitly.
func (s *SecondaryTable) Load() error {
	b := s.blob
	b.once.Do(func() {
		b.records, b.err = b.decode()
	})
	return b.err
}

func (b *secondaryBlob) decode() ([]byte, error) {
	want := int(b.count) * SecondaryRecordSize
	records := b.raw
	if b.compressed {
		dec, err := sharedDecoder()
		if err != nil {
			return nil, fmt.Errorf("create zstd decoder: %w", err)
		}
		records, err = dec.DecodeAll(b.raw, nil)
		if err != nil {
			return nil, fmt.Errorf("%w: inflate secondary table: %v", ErrCorrupt, err)
		}
	}
	if len(records) != want {
		return nil, fmt.Errorf("%w: secondary table has %d bytes, want %d", ErrCorrupt, len(records), want)
	}

	// Lookup binary-searches, so records must be sorted, non-empty and
	// non-overlapping.
	var prevEnd uint32
	for i := 0; i < int(b.count); i++ {
		off := i * SecondaryRecordSize
		r := decodeSecondaryRecord(records[off : off+SecondaryRecordSize])
		if r.Begin >= r.End {
			return nil, fmt.Errorf("%w: secondary record %d has empty range [%d,%d)", ErrCorrupt, i, r.Begin, r.End)
		}
		if i > 0 && r.Begin < prevEnd {
			return nil, fmt.Errorf("%w: secondary record %d at %d starts before previous end %d", ErrCorrupt, i, r.Begin, prevEnd)
		}
		prevEnd = r.End
	}
	return records, nil
}

// Record returns the i-th record. Load must have succeeded.
func (s *SecondaryTable) Record(i int) SecondaryRecord {
	off := i * SecondaryRecordSize
	return decodeSecondaryRecord(s.blob.records[off : off+SecondaryRecordSize])
}

// Lookup returns the override value at pos, if a record covers it.
//
// A table that fails to load is a corrupt file; Lookup panics with an error
// wrapping ErrCorrupt.
func (s *SecondaryTable) Lookup(pos uint32) (int32, bool) {
	if s.blob.count == 0 {
		return 0, false
	}
	if err := s.Load(); err != nil {
		panic(err)
	}

	n := int(s.blob.count)
	if s.cursor < n {
		r := s.Record(s.cursor)
		if pos >= r.Begin && pos < r.End {
			return r.Value, true
		}
		if pos >= r.End && s.cursor+1 < n {
			next := s.Record(s.cursor + 1)
			if pos < next.Begin {
				return 0, false
			}
			if pos < next.End {
				s.cursor++
				return next.Value, true
			}
		}
	}

	// First record whose End is past pos.
	lo, hi := 0, n
	for lo < hi {
		mid := int(uint(lo+hi) >> 1)
		if s.Record(mid).End <= pos {
			lo = mid + 1
		} else {
			hi = mid
		}
	}
	if lo == n {
		return 0, false
	}
	s.cursor = lo
	r := s.Record(lo)
	if pos < r.Begin {
		return 0, false
	}
	return r.Value, true
}
