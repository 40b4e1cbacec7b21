package d4

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound indicates a region names a chromosome absent from the file.
	ErrNotFound = errors.New("chromosome not found")
	// ErrMalformedInput indicates a region spec of the wrong shape or with a
	// field of the wrong type, or inverted bounds.
	ErrMalformedInput = errors.New("malformed input")
	// ErrIO indicates the file could not be opened or its header parsed.
	ErrIO = errors.New("cannot read depth file")
)

// ChromNotFoundError names the missing chromosome.
type ChromNotFoundError struct {
	Name string
}

func (e *ChromNotFoundError) Error() string {
	return fmt.Sprintf("chrom %s doesn't exist", e.Name)
}

// Unwrap makes errors.Is(err, ErrNotFound) hold.
func (e *ChromNotFoundError) Unwrap() error {
	return ErrNotFound
}
