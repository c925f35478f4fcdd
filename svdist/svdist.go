// Package svdist measures and stores pairwise distances between nearby
// structural variants.
//
// A Comparator reports raw measures for one unordered pair of variants. The
// engine scales them by the pair's shared denominator (the smaller of the two
// variant sizes) into a relative distance tuple, which is what thresholds and
// clustering operate on. The Store interns variant identifiers into dense
// node indices and keeps one entry per pair, canonically keyed with the
// lexicographically lesser identifier first. A store can be saved to and
// reloaded from a flat tab-separated table so that an expensive sweep runs
// once per variant set.
package svdist

// Raw holds the measures reported by a Comparator for one pair. Sizes are
// magnitudes; the signed difference fields are oriented by the pair's
// canonical identifier order.
type Raw struct {
	EditDist    int     // edit distance between the pair's alternate haplotypes
	MaxShift    int     // largest breakpoint displacement between the records
	AltLenDiff  int     // difference of alternate allele lengths
	AltLenAvg   float64 // mean alternate allele length
	SizeDiff    int     // difference of variant size magnitudes
	SizeAvg     float64 // mean variant size magnitude
	SharedDenom int     // smaller of the two size magnitudes, never below 1
}

// Tuple is the derived distance vector compared against thresholds. Every
// component is non-negative; an all-zero tuple marks an exact match.
type Tuple struct {
	PosDiff     int     // absolute start-position difference
	RelShift    float64 // |MaxShift| / SharedDenom
	RelSizeDiff float64 // |SizeDiff| / SharedDenom
	RelDist     float64 // |EditDist| / SharedDenom
}

// Zero reports whether every component is exactly zero.
func (t Tuple) Zero() bool {
	return t.PosDiff == 0 && t.RelShift == 0 && t.RelSizeDiff == 0 && t.RelDist == 0
}

// Derive scales the raw measures into the comparable tuple for a pair whose
// start positions are posDiff apart.
func Derive(posDiff int, r Raw) Tuple {
	denom := float64(r.SharedDenom)
	if denom < 1 {
		denom = 1
	}
	return Tuple{
		PosDiff:     abs(posDiff),
		RelShift:    float64(abs(r.MaxShift)) / denom,
		RelSizeDiff: float64(abs(r.SizeDiff)) / denom,
		RelDist:     float64(abs(r.EditDist)) / denom,
	}
}

// Thresholds bounds the tuple components. A pair whose tuple passes every
// bound becomes an edge in the cluster graph.
type Thresholds struct {
	MaxDist        int     // largest start-position difference
	MaxRelShift    float64 // largest relative breakpoint shift
	MaxRelSizeDiff float64 // largest relative size difference
	MaxRelDist     float64 // largest relative edit distance
}

// DefaultThresholds matches the merging tool's defaults.
var DefaultThresholds = Thresholds{
	MaxDist:        100000,
	MaxRelShift:    1.0,
	MaxRelSizeDiff: 1.0,
	MaxRelDist:     1.0,
}

// Pass reports whether t qualifies under every bound.
func (th Thresholds) Pass(t Tuple) bool {
	return t.PosDiff <= th.MaxDist &&
		t.RelShift <= th.MaxRelShift &&
		t.RelSizeDiff <= th.MaxRelSizeDiff &&
		t.RelDist <= th.MaxRelDist
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
