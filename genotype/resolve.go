// Package genotype resolves one sample's structural-variant calls against
// the call sets of the other samples in a cohort.
//
// For each target call and each other sample, three checks run in order: a
// homozygous-reference region strictly containing the target's widened
// interval contributes allele "0" with high confidence; calls identical in
// chromosome, widened interval, type, and length each contribute allele "1"
// with high confidence; and, only when no identical call exists, a fuzzy
// match among the sample's calls with a nearby widened-interval midpoint
// contributes allele "1" with low confidence. A sample with no finding at
// all reports ".".
package genotype

import (
	"context"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/sv/svdist"
	"github.com/grailbio/sv/variant"
)

// Opts configures resolution.
type Opts struct {
	// MaxDist bounds the midpoint distance between a target and its fuzzy
	// candidates.
	MaxDist int
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{MaxDist: 1000}

// Call is one sample's resolved genotype for one target.
type Call struct {
	Sample     string
	Genotype   string // "/"-joined alleles, "." when nothing was found
	Confidence string // ","-joined codes aligned with the alleles
}

// Resolver genotypes target calls against every non-target sample.
type Resolver struct {
	target  string
	samples []*Sample
	matcher svdist.BatchMatcher
	opts    Opts
}

// NewResolver returns a Resolver for the named target sample. samples is the
// whole cohort in output order and must include the target.
func NewResolver(target string, samples []*Sample, matcher svdist.BatchMatcher, opts Opts) (*Resolver, error) {
	found := false
	for _, s := range samples {
		if s.Name == target {
			found = true
			break
		}
	}
	if !found {
		return nil, errors.E("sample", target, "is not in the manifest")
	}
	return &Resolver{target: target, samples: samples, matcher: matcher, opts: opts}, nil
}

// Samples returns the non-target sample names in output order.
func (r *Resolver) Samples() []string {
	var out []string
	for _, s := range r.samples {
		if s.Name != r.target {
			out = append(out, s.Name)
		}
	}
	return out
}

// Genotype resolves one target call against every other sample, in manifest
// order. Non-comparable targets resolve to "." for every sample.
func (r *Resolver) Genotype(ctx context.Context, target *variant.Variant) ([]Call, error) {
	calls := make([]Call, 0, len(r.samples)-1)
	for _, s := range r.samples {
		if s.Name == r.target {
			continue
		}
		call, err := r.resolve(ctx, s, target)
		if err != nil {
			return nil, err
		}
		calls = append(calls, call)
	}
	return calls, nil
}

func (r *Resolver) resolve(ctx context.Context, s *Sample, target *variant.Variant) (Call, error) {
	call := Call{Sample: s.Name, Genotype: ".", Confidence: "."}
	if !target.Comparable() {
		return call, nil
	}
	var alleles, confs []string
	if s.CoversWide(target.Chrom, target.Wide.Start, target.Wide.End) {
		alleles = append(alleles, "0")
		confs = append(confs, "high")
	}
	exact := s.Exact(target)
	for range exact {
		alleles = append(alleles, "1")
		confs = append(confs, "high")
	}
	if len(exact) == 0 {
		if cands := s.Near(target.Chrom, target.Wide.Mid(), r.opts.MaxDist); len(cands) > 0 {
			ord, err := r.matcher.BatchMatch(ctx, target, cands)
			if err != nil {
				return Call{}, err
			}
			if ord > 0 {
				alleles = append(alleles, "1")
				confs = append(confs, "low")
			}
		}
	}
	if len(alleles) > 0 {
		call.Genotype = strings.Join(alleles, "/")
		call.Confidence = strings.Join(confs, ",")
	}
	return call, nil
}
