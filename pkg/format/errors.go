package format

import "errors"

var (
	// ErrInvalidHeader indicates an invalid or corrupted file header.
	ErrInvalidHeader = errors.New("invalid file header")
	// ErrMagicMismatch indicates the magic number doesn't match.
	ErrMagicMismatch = errors.New("magic number mismatch")
	// ErrVersionMismatch indicates an unsupported format version.
	ErrVersionMismatch = errors.New("unsupported format version")
	// ErrCorrupt indicates the chromosome list, partition directory, or a
	// table blob points outside the file or disagrees with the header.
	ErrCorrupt = errors.New("corrupt file layout")
	// ErrDuplicateChrom indicates the chromosome list names a chromosome twice.
	ErrDuplicateChrom = errors.New("duplicate chromosome name")
)
