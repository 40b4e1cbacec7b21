package format

import (
	"fmt"
	"hash/fnv"

	"github.com/relab/bbhash"
)

// ChromIndex maps chromosome names to their position in the chromosome list
// using a minimal perfect hash function.
//
// Thread Safety: ChromIndex is immutable after construction and safe for
// concurrent lookups.
type ChromIndex struct {
	mph   interface{ Find(uint64) uint64 }
	names []string // names in MPHF slot order
	slots []int    // slot -> index in the chromosome list
}

// NewChromIndex builds an index over names. Names must be unique.
func NewChromIndex(names []string) (*ChromIndex, error) {
	if len(names) == 0 {
		return &ChromIndex{}, nil
	}

	seen := make(map[string]struct{}, len(names))
	keys := make([]uint64, len(names))
	for i, name := range names {
		if _, dup := seen[name]; dup {
			return nil, fmt.Errorf("%w: %q", ErrDuplicateChrom, name)
		}
		seen[name] = struct{}{}
		keys[i] = hashName(name)
	}

	mph, err := bbhash.New(keys, bbhash.Gamma(2.0))
	if err != nil {
		return nil, fmt.Errorf("build chromosome MPHF: %w", err)
	}

	// BBHash returns 1-indexed values; slot = value-1.
	idx := &ChromIndex{
		mph:   mph,
		names: make([]string, len(names)),
		slots: make([]int, len(names)),
	}
	for i, name := range names {
		v := mph.Find(keys[i])
		if v == 0 || v > uint64(len(names)) {
			return nil, fmt.Errorf("MPHF lookup failed for %q", name)
		}
		idx.names[v-1] = name
		idx.slots[v-1] = i
	}
	return idx, nil
}

// Lookup returns the list index of name, or ok=false if absent.
func (x *ChromIndex) Lookup(name string) (int, bool) {
	if x.mph == nil {
		return 0, false
	}
	v := x.mph.Find(hashName(name))
	if v == 0 || v > uint64(len(x.names)) {
		return 0, false
	}
	// The MPHF maps unknown keys to arbitrary slots; confirm the name.
	if x.names[v-1] != name {
		return 0, false
	}
	return x.slots[v-1], true
}

// Len returns the number of indexed names.
func (x *ChromIndex) Len() int {
	return len(x.names)
}

func hashName(s string) uint64 {
	h := fnv.New64a()
	h.Write([]byte(s))
	return h.Sum64()
}
