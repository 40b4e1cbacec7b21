package format

import (
	"errors"
	"fmt"
	"testing"
)

func TestChromIndexLookup(t *testing.T) {
	names := []string{"chr1", "chr2", "chrX", "chrY", "chrM", "chr1_KI270706v1_random"}
	idx, err := NewChromIndex(names)
	if err != nil {
		t.Fatalf("NewChromIndex: %v", err)
	}
	if idx.Len() != len(names) {
		t.Errorf("Len() = %d, want %d", idx.Len(), len(names))
	}

	for i, name := range names {
		got, ok := idx.Lookup(name)
		if !ok || got != i {
			t.Errorf("Lookup(%q) = (%d, %v), want (%d, true)", name, got, ok, i)
		}
	}

	for _, name := range []string{"chr3", "", "CHR1", "chr1 "} {
		if _, ok := idx.Lookup(name); ok {
			t.Errorf("Lookup(%q) found an entry", name)
		}
	}
}

func TestChromIndexMany(t *testing.T) {
	names := make([]string, 3000)
	for i := range names {
		names[i] = fmt.Sprintf("scaffold_%d", i)
	}
	idx, err := NewChromIndex(names)
	if err != nil {
		t.Fatalf("NewChromIndex: %v", err)
	}
	for i, name := range names {
		if got, ok := idx.Lookup(name); !ok || got != i {
			t.Fatalf("Lookup(%q) = (%d, %v), want (%d, true)", name, got, ok, i)
		}
	}
	for i := 3000; i < 3100; i++ {
		if _, ok := idx.Lookup(fmt.Sprintf("scaffold_%d", i)); ok {
			t.Errorf("Lookup(scaffold_%d) found an entry", i)
		}
	}
}

func TestChromIndexEmpty(t *testing.T) {
	idx, err := NewChromIndex(nil)
	if err != nil {
		t.Fatalf("NewChromIndex(nil): %v", err)
	}
	if idx.Len() != 0 {
		t.Errorf("Len() = %d, want 0", idx.Len())
	}
	if _, ok := idx.Lookup("chr1"); ok {
		t.Error("Lookup on empty index found an entry")
	}
}

func TestChromIndexDuplicate(t *testing.T) {
	_, err := NewChromIndex([]string{"chr1", "chr2", "chr1"})
	if !errors.Is(err, ErrDuplicateChrom) {
		t.Errorf("NewChromIndex(dup) = %v, want ErrDuplicateChrom", err)
	}
}
