// Package format implements the on-disk layout of per-base depth files:
// a fixed header, the chromosome list, a partition directory, and the
// primary/secondary table blobs each partition points at.
package format

import (
	"encoding/binary"
	"fmt"
)

// Magic identifies depth files ("d4\xdd\xdd").
var Magic = [4]byte{'d', '4', 0xdd, 0xdd}

const (
	// Version is the current format version.
	Version uint32 = 1

	// MaxBitWidth is the widest primary code supported.
	MaxBitWidth = 16
)

// Header flags.
const (
	// FlagCompressedSecondary marks secondary tables as zstd frames.
	FlagCompressedSecondary uint32 = 1 << 0
)

// Header is the fixed-size file header.
type Header struct {
	Magic      [4]byte
	Version    uint32
	Flags      uint32
	DictBase   int32  // value of primary code 0
	BitWidth   uint32 // bits per position in the primary table
	ChromCount uint32
}

// HeaderSize is the size of the header in bytes.
const HeaderSize = 4 + 4 + 4 + 4 + 4 + 4 // 24 bytes

// PartitionEntrySize is the size of one partition directory entry.
const PartitionEntrySize = 4*4 + 4*8 // 48 bytes

// SecondaryRecordSize is the size of one uncompressed secondary record.
const SecondaryRecordSize = 4 + 4 + 4

// EncodeHeader writes a header to a byte slice.
func EncodeHeader(h Header) []byte {
	buf := make([]byte, HeaderSize)
	copy(buf[0:4], h.Magic[:])
	binary.LittleEndian.PutUint32(buf[4:8], h.Version)
	binary.LittleEndian.PutUint32(buf[8:12], h.Flags)
	binary.LittleEndian.PutUint32(buf[12:16], uint32(h.DictBase))
	binary.LittleEndian.PutUint32(buf[16:20], h.BitWidth)
	binary.LittleEndian.PutUint32(buf[20:24], h.ChromCount)
	return buf
}

// DecodeHeader reads a header from a byte slice.
func DecodeHeader(buf []byte) (Header, error) {
	if len(buf) < HeaderSize {
		return Header{}, ErrInvalidHeader
	}
	var h Header
	copy(h.Magic[:], buf[0:4])
	h.Version = binary.LittleEndian.Uint32(buf[4:8])
	h.Flags = binary.LittleEndian.Uint32(buf[8:12])
	h.DictBase = int32(binary.LittleEndian.Uint32(buf[12:16]))
	h.BitWidth = binary.LittleEndian.Uint32(buf[16:20])
	h.ChromCount = binary.LittleEndian.Uint32(buf[20:24])
	return h, nil
}

// Validate checks magic, version, and bit width.
func (h Header) Validate() error {
	if h.Magic != Magic {
		return ErrMagicMismatch
	}
	if h.Version != Version {
		return ErrVersionMismatch
	}
	if h.BitWidth > MaxBitWidth {
		return fmt.Errorf("%w: bit width %d exceeds %d", ErrInvalidHeader, h.BitWidth, MaxBitWidth)
	}
	return nil
}

// Chrom is one entry of the chromosome list.
type Chrom struct {
	Name string
	Size uint32
}

// EncodeChrom appends the encoded chromosome entry to buf.
func EncodeChrom(buf []byte, c Chrom) []byte {
	buf = binary.LittleEndian.AppendUint16(buf, uint16(len(c.Name)))
	buf = append(buf, c.Name...)
	return binary.LittleEndian.AppendUint32(buf, c.Size)
}

// PartitionEntry is one entry of the partition directory. A partition covers
// [Begin, End) of a single chromosome.
type PartitionEntry struct {
	ChromIdx   uint32
	Begin      uint32
	End        uint32
	StabCount  uint32 // number of secondary records
	PtabOffset uint64
	PtabLen    uint64
	StabOffset uint64
	StabLen    uint64
}

// EncodePartitionEntry appends the encoded directory entry to buf.
func EncodePartitionEntry(buf []byte, e PartitionEntry) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, e.ChromIdx)
	buf = binary.LittleEndian.AppendUint32(buf, e.Begin)
	buf = binary.LittleEndian.AppendUint32(buf, e.End)
	buf = binary.LittleEndian.AppendUint32(buf, e.StabCount)
	buf = binary.LittleEndian.AppendUint64(buf, e.PtabOffset)
	buf = binary.LittleEndian.AppendUint64(buf, e.PtabLen)
	buf = binary.LittleEndian.AppendUint64(buf, e.StabOffset)
	return binary.LittleEndian.AppendUint64(buf, e.StabLen)
}

func decodePartitionEntry(buf []byte) PartitionEntry {
	return PartitionEntry{
		ChromIdx:   binary.LittleEndian.Uint32(buf[0:4]),
		Begin:      binary.LittleEndian.Uint32(buf[4:8]),
		End:        binary.LittleEndian.Uint32(buf[8:12]),
		StabCount:  binary.LittleEndian.Uint32(buf[12:16]),
		PtabOffset: binary.LittleEndian.Uint64(buf[16:24]),
		PtabLen:    binary.LittleEndian.Uint64(buf[24:32]),
		StabOffset: binary.LittleEndian.Uint64(buf[32:40]),
		StabLen:    binary.LittleEndian.Uint64(buf[40:48]),
	}
}

// SecondaryRecord overrides the primary value for [Begin, End).
type SecondaryRecord struct {
	Begin uint32
	End   uint32
	Value int32
}

// EncodeSecondaryRecord appends the encoded record to buf.
func EncodeSecondaryRecord(buf []byte, r SecondaryRecord) []byte {
	buf = binary.LittleEndian.AppendUint32(buf, r.Begin)
	buf = binary.LittleEndian.AppendUint32(buf, r.End)
	return binary.LittleEndian.AppendUint32(buf, uint32(r.Value))
}

func decodeSecondaryRecord(buf []byte) SecondaryRecord {
	return SecondaryRecord{
		Begin: binary.LittleEndian.Uint32(buf[0:4]),
		End:   binary.LittleEndian.Uint32(buf[4:8]),
		Value: int32(binary.LittleEndian.Uint32(buf[8:12])),
	}
}

// PrimaryTableLen returns the number of bytes needed to pack n codes of
// the given bit width.
func PrimaryTableLen(n uint32, bitWidth uint32) uint64 {
	return (uint64(n)*uint64(bitWidth) + 7) / 8
}
