package d4

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// RegionSpec is a caller-supplied region. Begin and End are optional; a
// missing Begin means 0 and a missing End means the chromosome length.
type RegionSpec struct {
	Chrom    string
	Begin    uint32
	End      uint32
	HasBegin bool
	HasEnd   bool
}

// WholeChrom returns a spec covering all of chrom.
func WholeChrom(chrom string) RegionSpec {
	return RegionSpec{Chrom: chrom}
}

// ChromFrom returns a spec from begin to the end of chrom.
func ChromFrom(chrom string, begin uint32) RegionSpec {
	return RegionSpec{Chrom: chrom, Begin: begin, HasBegin: true}
}

// ChromRange returns a spec covering [begin, end) of chrom.
func ChromRange(chrom string, begin, end uint32) RegionSpec {
	return RegionSpec{Chrom: chrom, Begin: begin, End: end, HasBegin: true, HasEnd: true}
}

func (s RegionSpec) String() string {
	switch {
	case s.HasBegin && s.HasEnd:
		return fmt.Sprintf("%s:%d-%d", s.Chrom, s.Begin, s.End)
	case s.HasBegin:
		return fmt.Sprintf("%s:%d", s.Chrom, s.Begin)
	case s.HasEnd:
		return fmt.Sprintf("%s:-%d", s.Chrom, s.End)
	default:
		return s.Chrom
	}
}

// ResolvedRegion is a RegionSpec with defaults applied. End may exceed the
// chromosome length; partition clipping bounds it.
type ResolvedRegion struct {
	Chrom string
	Begin uint32
	End   uint32
}

// Len returns End-Begin.
func (r ResolvedRegion) Len() uint32 {
	return r.End - r.Begin
}

func (r ResolvedRegion) String() string {
	return fmt.Sprintf("%s:%d-%d", r.Chrom, r.Begin, r.End)
}

// ParseRegionSpec normalizes the accepted literal shapes into a RegionSpec:
//
//	"chr1"                      whole chromosome
//	[]any{"chr1"}               whole chromosome
//	[]any{"chr1", 100}          100 to chromosome end
//	[]any{"chr1", 100, 200}     [100, 200)
//	RegionSpec{...}             as is
//
// A nil bound inside a tuple counts as absent. Bounds may be any Go integer
// type that fits in uint32.
func ParseRegionSpec(v any) (RegionSpec, error) {
	switch v := v.(type) {
	case string:
		return WholeChrom(v), nil
	case RegionSpec:
		return v, nil
	case []any:
		if len(v) < 1 || len(v) > 3 {
			return RegionSpec{}, fmt.Errorf("%w: invalid range spec: tuple of length %d", ErrMalformedInput, len(v))
		}
		name, ok := v[0].(string)
		if !ok {
			return RegionSpec{}, fmt.Errorf("%w: chromosome name must be a string, got %T", ErrMalformedInput, v[0])
		}
		spec := WholeChrom(name)
		if len(v) > 1 && v[1] != nil {
			b, err := toPosition(v[1])
			if err != nil {
				return RegionSpec{}, fmt.Errorf("%w: begin of %s: %v", ErrMalformedInput, name, err)
			}
			spec.Begin, spec.HasBegin = b, true
		}
		if len(v) > 2 && v[2] != nil {
			e, err := toPosition(v[2])
			if err != nil {
				return RegionSpec{}, fmt.Errorf("%w: end of %s: %v", ErrMalformedInput, name, err)
			}
			spec.End, spec.HasEnd = e, true
		}
		return spec, nil
	default:
		return RegionSpec{}, fmt.Errorf("%w: invalid range spec of type %T", ErrMalformedInput, v)
	}
}

// ParseRegionSpecs parses every element, failing on the first bad one.
func ParseRegionSpecs(vs []any) ([]RegionSpec, error) {
	specs := make([]RegionSpec, len(vs))
	for i, v := range vs {
		s, err := ParseRegionSpec(v)
		if err != nil {
			return nil, fmt.Errorf("region %d: %w", i, err)
		}
		specs[i] = s
	}
	return specs, nil
}

// ParseRegionString parses "chr", "chr:begin" or "chr:begin-end". Commas in
// numbers are ignored. When the text after the last ':' is not a position,
// the whole string is taken as the chromosome name.
func ParseRegionString(s string) (RegionSpec, error) {
	if s == "" {
		return RegionSpec{}, fmt.Errorf("%w: empty region", ErrMalformedInput)
	}
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return WholeChrom(s), nil
	}
	name, rest := s[:i], strings.ReplaceAll(s[i+1:], ",", "")

	beginText, endText, hasEnd := strings.Cut(rest, "-")
	begin, err := strconv.ParseUint(beginText, 10, 32)
	if err != nil {
		return WholeChrom(s), nil
	}
	if !hasEnd {
		return ChromFrom(name, uint32(begin)), nil
	}
	end, err := strconv.ParseUint(endText, 10, 32)
	if err != nil {
		return RegionSpec{}, fmt.Errorf("%w: region %q: bad end %q", ErrMalformedInput, s, endText)
	}
	return ChromRange(name, uint32(begin), uint32(end)), nil
}

// Resolve applies the defaulting rules against the catalog.
func (c *Catalog) Resolve(spec RegionSpec) (ResolvedRegion, error) {
	chrom, ok := c.Find(spec.Chrom)
	if !ok {
		return ResolvedRegion{}, &ChromNotFoundError{Name: spec.Chrom}
	}
	r := ResolvedRegion{Chrom: chrom.Name, Begin: 0, End: chrom.Size}
	if spec.HasBegin {
		r.Begin = spec.Begin
	}
	if spec.HasEnd {
		r.End = spec.End
	}
	if r.Begin > r.End {
		return ResolvedRegion{}, fmt.Errorf("%w: region %s: begin %d past end %d", ErrMalformedInput, spec, r.Begin, r.End)
	}
	return r, nil
}

// ResolveAll resolves every spec, failing on the first error so that no
// partial batch is ever processed.
func (c *Catalog) ResolveAll(specs []RegionSpec) ([]ResolvedRegion, error) {
	out := make([]ResolvedRegion, len(specs))
	for i, s := range specs {
		r, err := c.Resolve(s)
		if err != nil {
			return nil, err
		}
		out[i] = r
	}
	return out, nil
}

func toPosition(v any) (uint32, error) {
	var n int64
	switch v := v.(type) {
	case int:
		n = int64(v)
	case int8:
		n = int64(v)
	case int16:
		n = int64(v)
	case int32:
		n = int64(v)
	case int64:
		n = v
	case uint:
		if uint64(v) > math.MaxUint32 {
			return 0, fmt.Errorf("%d exceeds %d", v, uint32(math.MaxUint32))
		}
		return uint32(v), nil
	case uint8:
		return uint32(v), nil
	case uint16:
		return uint32(v), nil
	case uint32:
		return v, nil
	case uint64:
		if v > math.MaxUint32 {
			return 0, fmt.Errorf("%d exceeds %d", v, uint32(math.MaxUint32))
		}
		return uint32(v), nil
	default:
		return 0, fmt.Errorf("expected integer, got %T", v)
	}
	if n < 0 || n > math.MaxUint32 {
		return 0, fmt.Errorf("%d is not a valid position", n)
	}
	return uint32(n), nil
}
