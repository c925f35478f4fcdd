package svdist

import (
	"context"
	"time"

	"github.com/grailbio/bio/encoding/fasta"
	"github.com/grailbio/sv/variant"
)

// Opts configures distance computation.
type Opts struct {
	// MaxDist is the largest start-position difference at which two variants
	// are worth comparing. It bounds both the sweep window and the cheap
	// compatibility test.
	MaxDist int
	// Timeout bounds one pairwise comparison. Zero means no bound.
	Timeout time.Duration
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{
	MaxDist: 100000, // default proximity window of the merging tool
	Timeout: 0,      // unbounded
}

// Comparator measures the distance between two nearby variants.
//
// PotentialMatch must be cheap; it runs for every pair the window offers.
// Distance is called at most once per unordered pair, with the
// lexicographically lesser identifier first, and only for pairs that passed
// PotentialMatch.
type Comparator interface {
	PotentialMatch(a, b *variant.Variant) bool
	Distance(ctx context.Context, a, b *variant.Variant) (Raw, error)
}

// BatchMatcher reports the 1-based position of the first candidate matching
// target, or 0 when none does. The genotyper uses it to resolve fuzzy
// matches against one sample's candidate set.
type BatchMatcher interface {
	BatchMatch(ctx context.Context, target *variant.Variant, candidates []*variant.Variant) (int, error)
}

// nearby is the position part of the compatibility test shared by the
// comparators.
func nearby(a, b *variant.Variant, maxDist int) bool {
	return a.Comparable() && b.Comparable() &&
		a.Chrom == b.Chrom && abs(a.Pos-b.Pos) <= maxDist
}

func withBudget(ctx context.Context, d time.Duration) (context.Context, context.CancelFunc) {
	if d <= 0 {
		return ctx, func() {}
	}
	return context.WithTimeout(ctx, d)
}

// baseMeasures fills the coordinate- and length-derived fields of Raw, which
// both comparators share.
func baseMeasures(a, b *variant.Variant) Raw {
	s1, s2 := a.AbsSize(), b.AbsSize()
	denom := s1
	if s2 < denom {
		denom = s2
	}
	if denom < 1 {
		denom = 1
	}
	shift := abs(a.Pos - b.Pos)
	if es := abs(a.End - b.End); es > shift {
		shift = es
	}
	return Raw{
		MaxShift:    shift,
		AltLenDiff:  len(a.Alt) - len(b.Alt),
		AltLenAvg:   float64(len(a.Alt)+len(b.Alt)) / 2,
		SizeDiff:    s1 - s2,
		SizeAvg:     float64(s1+s2) / 2,
		SharedDenom: denom,
	}
}

// NewBreakpointComparator returns a Comparator that measures pairs from
// record coordinates and alleles alone, with no reference sequence. Only
// variants of the same type are candidates. When either allele is symbolic
// the edit distance degrades to the size difference.
func NewBreakpointComparator(opts Opts) Comparator {
	return &breakpointComparator{opts: opts}
}

type breakpointComparator struct {
	opts Opts
	al   aligner
}

func (c *breakpointComparator) PotentialMatch(a, b *variant.Variant) bool {
	return a.Type == b.Type && nearby(a, b, c.opts.MaxDist)
}

func (c *breakpointComparator) Distance(ctx context.Context, a, b *variant.Variant) (Raw, error) {
	ctx, cancel := withBudget(ctx, c.opts.Timeout)
	defer cancel()
	raw := baseMeasures(a, b)
	if variant.IsSequence(a.Alt) && variant.IsSequence(b.Alt) {
		var err error
		if raw.EditDist, err = c.al.editDistance(ctx, a.Alt, b.Alt); err != nil {
			return Raw{}, err
		}
	} else {
		raw.EditDist = abs(raw.SizeDiff)
	}
	return raw, nil
}

// NewHaplotypeComparator returns a Comparator that aligns the alternate
// haplotypes implied by each variant over the union of the pair's widened
// intervals on the reference. Variants of different types remain candidates;
// two representations of the same event match through their haplotypes even
// when their breakpoints disagree. Pairs without plain sequence alleles fall
// back to the breakpoint measures.
func NewHaplotypeComparator(fa fasta.Fasta, opts Opts) Comparator {
	return &haplotypeComparator{fa: fa, opts: opts}
}

type haplotypeComparator struct {
	fa   fasta.Fasta
	opts Opts
	al   aligner
}

func (c *haplotypeComparator) PotentialMatch(a, b *variant.Variant) bool {
	return nearby(a, b, c.opts.MaxDist)
}

func (c *haplotypeComparator) Distance(ctx context.Context, a, b *variant.Variant) (Raw, error) {
	ctx, cancel := withBudget(ctx, c.opts.Timeout)
	defer cancel()
	raw := baseMeasures(a, b)
	if !sequenceRecord(a) || !sequenceRecord(b) {
		raw.EditDist = abs(raw.SizeDiff)
		return raw, nil
	}
	start := a.Wide.Start
	if b.Wide.Start < start {
		start = b.Wide.Start
	}
	end := a.Wide.End
	for _, e := range []int{b.Wide.End, a.End, b.End} {
		if e > end {
			end = e
		}
	}
	h1, err := c.haplotype(a, start, end)
	if err != nil {
		return Raw{}, err
	}
	h2, err := c.haplotype(b, start, end)
	if err != nil {
		return Raw{}, err
	}
	if raw.EditDist, err = c.al.editDistance(ctx, h1, h2); err != nil {
		return Raw{}, err
	}
	return raw, nil
}

func sequenceRecord(v *variant.Variant) bool {
	return variant.IsSequence(v.Ref) && variant.IsSequence(v.Alt)
}

// haplotype returns the sequence of the reference window [start, end] (both
// 1-based, inclusive) with v's alternate allele substituted for its
// reference allele. fasta queries are 0-based half-open.
func (c *haplotypeComparator) haplotype(v *variant.Variant, start, end int) (string, error) {
	left := ""
	if v.Pos > start {
		var err error
		if left, err = c.fa.Get(v.Chrom, uint64(start-1), uint64(v.Pos-1)); err != nil {
			return "", err
		}
	}
	refEnd := v.Pos - 1 + len(v.Ref)
	if refEnd > end {
		refEnd = end
	}
	right := ""
	if refEnd < end {
		var err error
		if right, err = c.fa.Get(v.Chrom, uint64(refEnd), uint64(end)); err != nil {
			return "", err
		}
	}
	return left + v.Alt + right, nil
}

// NewBatchMatcher adapts comp into a BatchMatcher: the first candidate whose
// derived tuple passes th wins.
func NewBatchMatcher(comp Comparator, th Thresholds) BatchMatcher {
	return &batchMatcher{comp: comp, th: th}
}

type batchMatcher struct {
	comp Comparator
	th   Thresholds
}

func (m *batchMatcher) BatchMatch(ctx context.Context, target *variant.Variant, candidates []*variant.Variant) (int, error) {
	for i, c := range candidates {
		if !m.comp.PotentialMatch(target, c) {
			continue
		}
		raw, err := m.comp.Distance(ctx, target, c)
		if err != nil {
			return 0, err
		}
		if m.th.Pass(Derive(target.Pos-c.Pos, raw)) {
			return i + 1, nil
		}
	}
	return 0, nil
}
