package genotype

import (
	"context"
	"sort"

	itree "github.com/biogo/store/interval"
	"github.com/grailbio/sv/interval"
	"github.com/grailbio/sv/variant"
)

// Sample is one sample's call set and homozygous-reference regions, indexed
// for genotype resolution.
type Sample struct {
	// Name is the sample identifier from the manifest.
	Name string

	exact   map[exactKey][]*variant.Variant
	near    map[string][]midVariant
	regions map[string]*itree.IntTree
}

// exactKey identifies calls that genotype as the same event: identical
// chromosome, widened interval, type, and length.
type exactKey struct {
	chrom     string
	wideStart int
	wideEnd   int
	typ       variant.Type
	length    int
}

type midVariant struct {
	mid int
	v   *variant.Variant
}

// region is one homozygous-reference interval, 1-based inclusive.
type region struct {
	start, end int
	id         uintptr
}

func (r region) Range() itree.IntRange { return itree.IntRange{Start: r.start, End: r.end} }
func (r region) ID() uintptr           { return r.id }
func (r region) Overlap(b itree.IntRange) bool {
	return r.end >= b.Start && r.start <= b.End
}

// NewSample indexes a sample's calls and hom-ref regions. Non-comparable
// calls never enter the indices. Region entries carry BED coordinates.
func NewSample(name string, calls []*variant.Variant, regions []interval.Entry) (*Sample, error) {
	s := &Sample{
		Name:    name,
		exact:   map[exactKey][]*variant.Variant{},
		near:    map[string][]midVariant{},
		regions: map[string]*itree.IntTree{},
	}
	for _, v := range calls {
		if !v.Comparable() {
			continue
		}
		k := exactKey{v.Chrom, v.Wide.Start, v.Wide.End, v.Type, v.Len}
		s.exact[k] = append(s.exact[k], v)
		s.near[v.Chrom] = append(s.near[v.Chrom], midVariant{mid: v.Wide.Mid(), v: v})
	}
	for _, mv := range s.near {
		sort.SliceStable(mv, func(i, j int) bool { return mv[i].mid < mv[j].mid })
	}
	var id uintptr
	for _, e := range regions {
		if e.End <= e.Start {
			continue
		}
		t := s.regions[e.RefName]
		if t == nil {
			t = &itree.IntTree{}
			s.regions[e.RefName] = t
		}
		// BED coordinates are 0-based half-open; the indexed intervals are
		// 1-based inclusive.
		if err := t.Insert(region{start: int(e.Start) + 1, end: int(e.End), id: id}, true); err != nil {
			return nil, err
		}
		id++
	}
	for _, t := range s.regions {
		t.AdjustRanges()
	}
	return s, nil
}

// Load reads and indexes one manifest entry.
func Load(ctx context.Context, info SampleInfo, opts variant.Opts) (*Sample, error) {
	calls, _, err := variant.ReadAll(ctx, info.VariantsPath, opts)
	if err != nil {
		return nil, err
	}
	var regions []interval.Entry
	if info.RegionsPath != "" {
		if regions, err = interval.ReadBED(ctx, info.RegionsPath); err != nil {
			return nil, err
		}
	}
	return NewSample(info.Name, calls, regions)
}

// Exact returns the sample's calls identical to v in chromosome, widened
// interval, type, and length.
func (s *Sample) Exact(v *variant.Variant) []*variant.Variant {
	return s.exact[exactKey{v.Chrom, v.Wide.Start, v.Wide.End, v.Type, v.Len}]
}

// Near returns the sample's calls on chrom whose widened-interval midpoint
// lies within maxDist of mid, in ascending midpoint order.
func (s *Sample) Near(chrom string, mid, maxDist int) []*variant.Variant {
	mv := s.near[chrom]
	lo := sort.Search(len(mv), func(i int) bool { return mv[i].mid >= mid-maxDist })
	var out []*variant.Variant
	for i := lo; i < len(mv) && mv[i].mid <= mid+maxDist; i++ {
		out = append(out, mv[i].v)
	}
	return out
}

// CoversWide reports whether one of the sample's hom-ref regions strictly
// contains the 1-based inclusive span [start, end]: the region must begin
// before start and end after end.
func (s *Sample) CoversWide(chrom string, start, end int) bool {
	t := s.regions[chrom]
	if t == nil {
		return false
	}
	found := false
	t.DoMatching(func(iv itree.IntInterface) (done bool) {
		if r := iv.Range(); r.Start < start && r.End > end {
			found = true
			return true
		}
		return false
	}, region{start: start, end: end})
	return found
}
