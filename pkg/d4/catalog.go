package d4

import (
	"slices"

	"github.com/eunmann/d4query/pkg/format"
)

// ChromEntry is one chromosome of the file header.
type ChromEntry struct {
	Name string
	Size uint32
}

// Catalog is the ordered chromosome list of an open file. It is loaded once
// at open time and never changes.
//
// Thread Safety: Catalog is immutable and safe for concurrent use.
type Catalog struct {
	entries []ChromEntry
	index   *format.ChromIndex
}

func newCatalog(chroms []format.Chrom, index *format.ChromIndex) *Catalog {
	entries := make([]ChromEntry, len(chroms))
	for i, c := range chroms {
		entries[i] = ChromEntry{Name: c.Name, Size: c.Size}
	}
	return &Catalog{entries: entries, index: index}
}

// List returns a copy of the chromosome list in file order.
func (c *Catalog) List() []ChromEntry {
	return slices.Clone(c.entries)
}

// Len returns the number of chromosomes.
func (c *Catalog) Len() int {
	return len(c.entries)
}

// Find returns the entry for name.
func (c *Catalog) Find(name string) (ChromEntry, bool) {
	i, ok := c.index.Lookup(name)
	if !ok {
		return ChromEntry{}, false
	}
	return c.entries[i], true
}

// TotalSize returns the summed length of all chromosomes.
func (c *Catalog) TotalSize() uint64 {
	var n uint64
	for _, e := range c.entries {
		n += uint64(e.Size)
	}
	return n
}
