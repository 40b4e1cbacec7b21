package format

import "fmt"

// OutcomeKind tells whether a primary decode is authoritative.
type OutcomeKind uint8

const (
	// OutcomeDefinite means the primary table value is the true value.
	OutcomeDefinite OutcomeKind = iota + 1
	// OutcomeTentative means the secondary table may override the value.
	OutcomeTentative
)

func (k OutcomeKind) String() string {
	switch k {
	case OutcomeDefinite:
		return "definite"
	case OutcomeTentative:
		return "tentative"
	default:
		return fmt.Sprintf("OutcomeKind(%d)", uint8(k))
	}
}

// DecodeOutcome is the result of decoding one position of a primary table.
// The zero value is invalid; build outcomes with Definite or Tentative.
type DecodeOutcome struct {
	Value int32
	Kind  OutcomeKind
}

// Definite returns an authoritative outcome.
func Definite(v int32) DecodeOutcome {
	return DecodeOutcome{Value: v, Kind: OutcomeDefinite}
}

// Tentative returns an outcome that must be checked against the secondary table.
func Tentative(v int32) DecodeOutcome {
	return DecodeOutcome{Value: v, Kind: OutcomeTentative}
}

// PrimaryTable decodes the bit-packed primary codes of one partition.
//
// A code c below the all-ones code decodes to Definite(base+c). The all-ones
// code decodes to Tentative(base+c). With a bit width of zero every position
// is Tentative(base).
//
// Thread Safety: PrimaryTable is immutable and safe for concurrent reads.
type PrimaryTable struct {
	data   []byte
	origin uint32 // position of code 0 in data
	begin  uint32
	end    uint32
	base   int32
	width  uint32
	mask   uint32
}

// NewPrimaryTable returns a decoder for data holding codes for positions
// starting at origin, restricted to [begin, end).
func NewPrimaryTable(data []byte, origin, begin, end uint32, base int32, width uint32) *PrimaryTable {
	return &PrimaryTable{
		data:   data,
		origin: origin,
		begin:  begin,
		end:    end,
		base:   base,
		width:  width,
		mask:   uint32(1)<<width - 1,
	}
}

// Range returns the half-open position range covered by the table.
func (t *PrimaryTable) Range() (begin, end uint32) {
	return t.begin, t.end
}

// Slice returns a new decoder over the same codes restricted to [begin, end).
// The range must lie inside the current range.
func (t *PrimaryTable) Slice(begin, end uint32) *PrimaryTable {
	if begin < t.begin || end > t.end || begin > end {
		panic(fmt.Sprintf("format: primary slice [%d,%d) outside [%d,%d)", begin, end, t.begin, t.end))
	}
	return NewPrimaryTable(t.data, t.origin, begin, end, t.base, t.width)
}

// Decode returns the outcome for pos. pos must lie inside Range; the check
// is the caller's job.
func (t *PrimaryTable) Decode(pos uint32) DecodeOutcome {
	if t.width == 0 {
		return Tentative(t.base)
	}

	bit := uint64(pos-t.origin) * uint64(t.width)
	off := bit >> 3
	shift := bit & 7

	// width <= 16 and shift <= 7, so three bytes always hold the code.
	var word uint32
	for i := uint64(0); i < 3 && off+i < uint64(len(t.data)); i++ {
		word |= uint32(t.data[off+i]) << (8 * i)
	}
	code := (word >> shift) & t.mask

	if code == t.mask {
		return Tentative(t.base + int32(code))
	}
	return Definite(t.base + int32(code))
}

// PackCodes bit-packs codes of the given width, LSB first.
func PackCodes(codes []uint32, width uint32) []byte {
	out := make([]byte, PrimaryTableLen(uint32(len(codes)), width))
	if width == 0 {
		return out
	}
	mask := uint32(1)<<width - 1
	for i, c := range codes {
		bit := uint64(i) * uint64(width)
		v := (c & mask) << (bit & 7)
		for off := bit >> 3; v != 0; off++ {
			out[off] |= byte(v)
			v >>= 8
		}
	}
	return out
}
