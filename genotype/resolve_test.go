package genotype_test

import (
	"context"
	"testing"

	"github.com/grailbio/sv/genotype"
	"github.com/grailbio/sv/interval"
	"github.com/grailbio/sv/svdist"
	"github.com/grailbio/sv/variant"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func matcher() svdist.BatchMatcher {
	return svdist.NewBatchMatcher(svdist.NewBreakpointComparator(svdist.DefaultOpts), svdist.DefaultThresholds)
}

func sample(t *testing.T, name string, calls []*variant.Variant, regions []interval.Entry) *genotype.Sample {
	t.Helper()
	s, err := genotype.NewSample(name, calls, regions)
	require.NoError(t, err)
	return s
}

func TestGenotypeScenario(t *testing.T) {
	// Target call in sample S; X carries an identical call, Y covers the
	// locus with a hom-ref region, Z knows nothing about it.
	target := mkcall("s1", "chr1", 1010, 1089, variant.TypeDel, -80, 1000, 1100)
	cohort := []*genotype.Sample{
		sample(t, "S", []*variant.Variant{target}, nil),
		sample(t, "X", []*variant.Variant{
			mkcall("x1", "chr1", 1012, 1091, variant.TypeDel, -80, 1000, 1100),
		}, nil),
		sample(t, "Y", nil, []interval.Entry{{RefName: "chr1", Start: 899, End: 1200}}),
		sample(t, "Z", nil, nil),
	}

	r, err := genotype.NewResolver("S", cohort, matcher(), genotype.DefaultOpts)
	require.NoError(t, err)
	assert.Equal(t, []string{"X", "Y", "Z"}, r.Samples())

	calls, err := r.Genotype(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, []genotype.Call{
		{Sample: "X", Genotype: "1", Confidence: "high"},
		{Sample: "Y", Genotype: "0", Confidence: "high"},
		{Sample: "Z", Genotype: ".", Confidence: "."},
	}, calls)
}

func TestFuzzyMatch(t *testing.T) {
	target := mkcall("t1", "chr1", 1000, 1099, variant.TypeDel, -100, 995, 1105)
	cohort := []*genotype.Sample{
		sample(t, "T", []*variant.Variant{target}, nil),
		// W's call is shifted but small relative to the event size.
		sample(t, "W", []*variant.Variant{
			mkcall("w1", "chr1", 1010, 1109, variant.TypeDel, -100, 1005, 1115),
		}, nil),
		// V's call is nearby but of a wildly different size.
		sample(t, "V", []*variant.Variant{
			mkcall("v1", "chr1", 1300, 1300, variant.TypeDel, -1, 1295, 1305),
		}, nil),
	}

	r, err := genotype.NewResolver("T", cohort, matcher(), genotype.DefaultOpts)
	require.NoError(t, err)
	calls, err := r.Genotype(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, []genotype.Call{
		{Sample: "W", Genotype: "1", Confidence: "low"},
		{Sample: "V", Genotype: ".", Confidence: "."},
	}, calls)
}

func TestFuzzySkippedWhenExact(t *testing.T) {
	// E carries both an identical call and a near candidate that would pass
	// the fuzzy check; only the identical call may contribute.
	target := mkcall("t1", "chr1", 1000, 1099, variant.TypeDel, -100, 995, 1105)
	cohort := []*genotype.Sample{
		sample(t, "T", []*variant.Variant{target}, nil),
		sample(t, "E", []*variant.Variant{
			mkcall("e1", "chr1", 1000, 1099, variant.TypeDel, -100, 995, 1105),
			mkcall("e2", "chr1", 1010, 1109, variant.TypeDel, -100, 1005, 1115),
		}, nil),
	}

	r, err := genotype.NewResolver("T", cohort, matcher(), genotype.DefaultOpts)
	require.NoError(t, err)
	calls, err := r.Genotype(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, []genotype.Call{
		{Sample: "E", Genotype: "1", Confidence: "high"},
	}, calls)
}

func TestHomRefPlusExact(t *testing.T) {
	// Contradictory evidence is reported as-is, coverage first.
	target := mkcall("t1", "chr1", 1010, 1089, variant.TypeDel, -80, 1000, 1100)
	cohort := []*genotype.Sample{
		sample(t, "T", []*variant.Variant{target}, nil),
		sample(t, "H", []*variant.Variant{
			mkcall("h1", "chr1", 1010, 1089, variant.TypeDel, -80, 1000, 1100),
			mkcall("h2", "chr1", 1011, 1090, variant.TypeDel, -80, 1000, 1100),
		}, []interval.Entry{{RefName: "chr1", Start: 899, End: 1200}}),
	}

	r, err := genotype.NewResolver("T", cohort, matcher(), genotype.DefaultOpts)
	require.NoError(t, err)
	calls, err := r.Genotype(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, []genotype.Call{
		{Sample: "H", Genotype: "0/1/1", Confidence: "high,high,high"},
	}, calls)
}

func TestNonComparableTarget(t *testing.T) {
	target := &variant.Variant{Chrom: "chr1", Pos: 5, ID: "bnd1", Type: variant.TypeBreakend}
	cohort := []*genotype.Sample{
		sample(t, "T", nil, nil),
		sample(t, "X", nil, []interval.Entry{{RefName: "chr1", Start: 0, End: 100}}),
	}

	r, err := genotype.NewResolver("T", cohort, matcher(), genotype.DefaultOpts)
	require.NoError(t, err)
	calls, err := r.Genotype(context.Background(), target)
	require.NoError(t, err)
	assert.Equal(t, []genotype.Call{
		{Sample: "X", Genotype: ".", Confidence: "."},
	}, calls)
}

func TestResolverTargetMissing(t *testing.T) {
	cohort := []*genotype.Sample{sample(t, "S", nil, nil)}
	_, err := genotype.NewResolver("Q", cohort, matcher(), genotype.DefaultOpts)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "Q")
}
