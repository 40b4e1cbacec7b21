package d4

import "iter"

// ValueIter lazily yields the value of every position in [left, right) of
// one chromosome, in position order. Each Next decodes exactly one
// position. The iterator is single-pass; once exhausted it stays exhausted.
//
// The File must stay open while the iterator is in use. Abandoning an
// iterator early needs no cleanup.
type ValueIter struct {
	parts []*Partition
	chrom string
	left  uint32
	right uint32

	next int // index of the next partition to visit
	cur  *Partition
	pos  uint32
	end  uint32
}

// ValueIter returns an iterator over [left, right) of chrom. An unknown
// chromosome is not an error; the iterator is simply empty.
func (f *File) ValueIter(chrom string, left, right uint32) *ValueIter {
	return &ValueIter{
		parts: f.Split(0),
		chrom: chrom,
		left:  left,
		right: right,
	}
}

// Next returns the next value, or ok=false when the range is exhausted.
func (it *ValueIter) Next() (v int32, ok bool) {
	for it.cur == nil || it.pos >= it.end {
		if it.next >= len(it.parts) {
			it.parts, it.cur = nil, nil
			it.next = 0
			return 0, false
		}
		p := it.parts[it.next]
		it.next++
		lo, hi, ok := p.Clip(it.chrom, it.left, it.right)
		if !ok {
			continue
		}
		it.cur, it.pos, it.end = p, lo, hi
	}

	v = it.cur.Value(it.pos)
	it.pos++
	return v, true
}

// All adapts the iterator to a range-over-func sequence. Stopping the loop
// early leaves the iterator positioned after the last yielded value.
func (it *ValueIter) All() iter.Seq[int32] {
	return func(yield func(int32) bool) {
		for {
			v, ok := it.Next()
			if !ok || !yield(v) {
				return
			}
		}
	}
}
