// Package svbench classifies a test call set against a truth call set and
// summarizes the agreement as recall, precision, and F1.
//
// Scoring runs over a distance store populated by a cross-set sweep: pairs
// within one set are never measured, so every stored partner of a test
// variant is a truth variant. A test variant with at least one qualifying
// partner is a true positive; a truth variant claimed by at least one test
// variant is detected. Multiple qualifying partners are ambiguous and all
// count, with a warning.
package svbench

import (
	"context"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
	"github.com/grailbio/sv/svdist"
	"github.com/grailbio/sv/variant"
)

// Opts bounds which stored pairs count as matches. Relative edit distance is
// deliberately not consulted: benchmark matching is coordinate-based.
type Opts struct {
	MaxDist        int
	MaxRelShift    float64
	MaxRelSizeDiff float64
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{
	MaxDist:        100000,
	MaxRelShift:    1.0,
	MaxRelSizeDiff: 1.0,
}

func (o Opts) pass(t svdist.Tuple) bool {
	return t.PosDiff <= o.MaxDist &&
		t.RelShift <= o.MaxRelShift &&
		t.RelSizeDiff <= o.MaxRelSizeDiff
}

// Counts are the classification totals.
type Counts struct {
	TP  int // test variants with at least one qualifying truth match
	FP  int // test variants with none
	DTP int // truth variants matched by at least one test variant
	FN  int // truth variants matched by none
}

// Result is the classification of one benchmark run.
type Result struct {
	Counts         Counts
	FalsePositives []string // ids of unmatched test variants, stream order
	FalseNegatives []string // ids of undetected truth variants, stream order
}

// Metrics holds the summary rates.
type Metrics struct {
	Recall    float64
	Precision float64
	F1        float64
}

// Metrics computes the rates from the counts. A zero denominator is a
// degenerate input and yields a descriptive error instead of a number.
func (c Counts) Metrics() (Metrics, error) {
	if c.DTP+c.FN == 0 {
		return Metrics{}, errors.E("no truth variants were scored")
	}
	if c.TP+c.FP == 0 {
		return Metrics{}, errors.E("no test variants were scored")
	}
	m := Metrics{
		Recall:    float64(c.DTP) / float64(c.DTP+c.FN),
		Precision: float64(c.TP) / float64(c.TP+c.FP),
	}
	if m.Recall+m.Precision == 0 {
		return Metrics{}, errors.E("recall and precision are both zero")
	}
	m.F1 = 2 * m.Recall * m.Precision / (m.Recall + m.Precision)
	return m, nil
}

// Score classifies every comparable test variant as a true or false positive
// and every comparable truth variant as detected or missed. store must hold
// the cross-set measures. Breakends and unrecognized types never score.
func Score(tests, truths []*variant.Variant, store *svdist.Store, opts Opts) *Result {
	r := &Result{}
	links := map[svdist.NodeID]int{}
	for _, v := range tests {
		if !v.Comparable() {
			continue
		}
		var survivors []svdist.NodeID
		if n := store.Node(v.ID); n != svdist.InvalidNodeID {
			for _, p := range store.Partners(n) {
				e, _ := store.Lookup(n, p)
				if opts.pass(e.Tuple) {
					survivors = append(survivors, p)
				}
			}
		}
		if len(survivors) == 0 {
			r.Counts.FP++
			r.FalsePositives = append(r.FalsePositives, v.ID)
			continue
		}
		r.Counts.TP++
		if len(survivors) > 1 {
			log.Error.Printf("benchmark: test variant %s matches %d truth variants", v.ID, len(survivors))
		}
		for _, p := range survivors {
			links[p]++
		}
	}
	for _, v := range truths {
		if !v.Comparable() {
			continue
		}
		claims := 0
		if n := store.Node(v.ID); n != svdist.InvalidNodeID {
			claims = links[n]
		}
		if claims == 0 {
			r.Counts.FN++
			r.FalseNegatives = append(r.FalseNegatives, v.ID)
			continue
		}
		r.Counts.DTP++
		if claims > 1 {
			log.Error.Printf("benchmark: truth variant %s matched by %d test variants", v.ID, claims)
		}
	}
	return r
}

// TruthIDs collects the truth-set identifiers and verifies that none of them
// collides with a test identifier; a collision would make the pair keys of a
// shared store ambiguous.
func TruthIDs(tests, truths []*variant.Variant) (map[string]bool, error) {
	inTest := map[string]bool{}
	for _, v := range tests {
		inTest[v.ID] = true
	}
	out := make(map[string]bool, len(truths))
	for _, v := range truths {
		if inTest[v.ID] {
			return nil, errors.E("id", v.ID, "appears in both the test and truth sets")
		}
		out[v.ID] = true
	}
	return out, nil
}

// NewCrossSetComparator wraps comp so that only pairs spanning the two sets
// are candidates; pairs within one set are never measured.
func NewCrossSetComparator(comp svdist.Comparator, truthIDs map[string]bool) svdist.Comparator {
	return &crossSet{comp: comp, truth: truthIDs}
}

type crossSet struct {
	comp  svdist.Comparator
	truth map[string]bool
}

func (c *crossSet) PotentialMatch(a, b *variant.Variant) bool {
	if c.truth[a.ID] == c.truth[b.ID] {
		return false
	}
	return c.comp.PotentialMatch(a, b)
}

func (c *crossSet) Distance(ctx context.Context, a, b *variant.Variant) (svdist.Raw, error) {
	return c.comp.Distance(ctx, a, b)
}
