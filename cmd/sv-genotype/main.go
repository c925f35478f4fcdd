package main

// sv-genotype resolves every call of one sample across the rest of a cohort.
// Each target call is scored against each other sample in three steps: a
// homozygous-reference region strictly containing the call's widened
// interval yields allele 0, exact widened-coordinate matches yield allele 1
// with high confidence, and fuzzy midpoint matches within --max-dist yield
// allele 1 with low confidence when no exact match exists.
//
// Example:
//
//    sv-genotype --manifest=cohort.tsv --sample=NA24385 --output=genotypes.vcf targets.vcf
//
// The manifest is a TSV with columns SAMPLE, VARIANTS, and HOMREFBED; the
// last may be empty for samples without a homozygous-reference BED.

import (
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bio/encoding/fasta"
	"github.com/grailbio/sv/genotype"
	"github.com/grailbio/sv/svdist"
	"github.com/grailbio/sv/variant"
)

// Collection of options set via cmdline flags.
type genotypeFlags struct {
	manifestPath    string
	sample          string
	output          string
	refPath         string
	refIndexPath    string
	allowMissingEnd bool
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] targets.vcf\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flags := genotypeFlags{}
	gopts := genotype.DefaultOpts
	th := svdist.DefaultThresholds
	flag.StringVar(&flags.manifestPath, "manifest", "", "TSV manifest naming every sample, its call set, and optionally its homozygous-reference BED.")
	flag.StringVar(&flags.sample, "sample", "", "Sample whose calls are genotyped. Must appear in the manifest.")
	flag.StringVar(&flags.output, "output", "genotypes.vcf", "File to write the annotated targets to. A .gz suffix selects bgzip compression.")
	flag.StringVar(&flags.refPath, "ref", "", `Reference FASTA. When set, fuzzy matches are scored by alt-substituted
haplotype alignment instead of breakpoint geometry.`)
	flag.StringVar(&flags.refIndexPath, "ref-index", "", "FASTA index for --ref. When set, sequences are fetched on demand instead of read up front.")
	flag.BoolVar(&flags.allowMissingEnd, "allow-missing-end", false, "Skip records with a symbolic alternate allele and no END tag instead of failing the run.")
	flag.IntVar(&gopts.MaxDist, "max-dist", genotype.DefaultOpts.MaxDist, "Largest midpoint distance between a target and a fuzzy candidate.")
	flag.Float64Var(&th.MaxRelShift, "rel-shift", svdist.DefaultThresholds.MaxRelShift, "Largest relative breakpoint shift for a fuzzy match.")
	flag.Float64Var(&th.MaxRelSizeDiff, "rel-size-diff", svdist.DefaultThresholds.MaxRelSizeDiff, "Largest relative size difference for a fuzzy match.")
	flag.Float64Var(&th.MaxRelDist, "rel-dist", svdist.DefaultThresholds.MaxRelDist, "Largest relative edit distance for a fuzzy match.")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if flag.NArg() != 1 {
		log.Fatal("exactly one targets file is required")
	}
	if flags.manifestPath == "" || flags.sample == "" {
		log.Fatal("--manifest and --sample are required")
	}
	run(ctx, flag.Arg(0), flags, gopts, th)
	log.Printf("All done")
}

func run(ctx context.Context, targetsPath string, flags genotypeFlags, gopts genotype.Opts, th svdist.Thresholds) {
	infos, err := genotype.LoadManifest(ctx, flags.manifestPath)
	if err != nil {
		log.Fatalf("%s: %v", flags.manifestPath, err)
	}
	found := false
	for _, info := range infos {
		if info.Name == flags.sample {
			found = true
			break
		}
	}
	if !found {
		log.Fatalf("sample %s is not in manifest %s", flags.sample, flags.manifestPath)
	}

	vopts := variant.Opts{AllowMissingEnd: flags.allowMissingEnd}
	samples := make([]*genotype.Sample, 0, len(infos))
	for _, info := range infos {
		s, err := genotype.Load(ctx, info, vopts)
		if err != nil {
			log.Fatalf("sample %s: %v", info.Name, err)
		}
		samples = append(samples, s)
	}
	log.Printf("Stats: loaded %d samples from %s", len(samples), flags.manifestPath)

	targets, header, err := variant.ReadAll(ctx, targetsPath, vopts)
	if err != nil {
		log.Fatalf("%s: %v", targetsPath, err)
	}
	variant.Sort(targets)
	log.Printf("Stats: %d targets read from %s", len(targets), targetsPath)

	comp, done := newComparator(ctx, flags.refPath, flags.refIndexPath, svdist.DefaultOpts)
	defer done()
	resolver, err := genotype.NewResolver(flags.sample, samples, svdist.NewBatchMatcher(comp, th), gopts)
	if err != nil {
		log.Fatalf("%v", err)
	}

	w, err := variant.NewWriter(ctx, flags.output)
	if err != nil {
		log.Fatalf("create %s: %v", flags.output, err)
	}
	if err := writeGenotypeHeader(w, header, resolver.Samples()); err != nil {
		log.Fatalf("write %s: %v", flags.output, err)
	}
	for _, v := range targets {
		calls, err := resolver.Genotype(ctx, v)
		if err != nil {
			log.Fatalf("genotype %s: %v", v.ID, err)
		}
		cols := make([]string, 0, len(calls)+1)
		cols = append(cols, "GT:CF")
		for _, c := range calls {
			cols = append(cols, c.Genotype+":"+c.Confidence)
		}
		if err := w.Write(v, nil, cols); err != nil {
			log.Fatalf("write %s: %v", flags.output, err)
		}
	}
	if err := w.Close(ctx); err != nil {
		log.Fatalf("close %s: %v", flags.output, err)
	}
	log.Printf("Stats: genotyped %d targets across %d samples", len(targets), len(resolver.Samples()))
}

// formatLines describes the two per-sample fields appended to each record.
var formatLines = []string{
	`##FORMAT=<ID=GT,Number=1,Type=String,Description="Alleles resolved for this sample">`,
	`##FORMAT=<ID=CF,Number=.,Type=String,Description="Confidence codes aligned with the alleles">`,
}

// writeGenotypeHeader replays the target header with the per-sample field
// descriptions spliced in and the sample columns added to the column line.
func writeGenotypeHeader(w *variant.Writer, header []string, samples []string) error {
	columns := "#CHROM\tPOS\tID\tREF\tALT\tQUAL\tFILTER\tINFO"
	n := len(header)
	if n > 0 && strings.HasPrefix(header[n-1], "#CHROM") {
		columns = header[n-1]
		header = header[:n-1]
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	if err := w.WriteHeader(formatLines); err != nil {
		return err
	}
	columns += "\tFORMAT\t" + strings.Join(samples, "\t")
	return w.WriteHeader([]string{columns})
}

// newComparator picks the distance backend: haplotype alignment when a
// reference is available, breakpoint geometry otherwise. The returned
// function releases the reference files once comparisons are finished.
func newComparator(ctx context.Context, refPath, refIndexPath string, opts svdist.Opts) (svdist.Comparator, func()) {
	if refPath == "" {
		return svdist.NewBreakpointComparator(opts), func() {}
	}
	in, err := file.Open(ctx, refPath)
	if err != nil {
		log.Panicf("open %s: %v", refPath, err)
	}
	if refIndexPath == "" {
		fa, err := fasta.New(in.Reader(ctx))
		if err != nil {
			log.Panicf("read %s: %v", refPath, err)
		}
		if err := in.Close(ctx); err != nil {
			log.Panicf("close %s: %v", refPath, err)
		}
		return svdist.NewHaplotypeComparator(fa, opts), func() {}
	}
	idxIn, err := file.Open(ctx, refIndexPath)
	if err != nil {
		log.Panicf("open %s: %v", refIndexPath, err)
	}
	fa, err := fasta.NewIndexed(in.Reader(ctx), idxIn.Reader(ctx))
	if err != nil {
		log.Panicf("fasta.NewIndexed %s,%s: %v", refPath, refIndexPath, err)
	}
	return svdist.NewHaplotypeComparator(fa, opts), func() {
		if err := in.Close(ctx); err != nil {
			log.Panicf("close %s: %v", refPath, err)
		}
		if err := idxIn.Close(ctx); err != nil {
			log.Panicf("close %s: %v", refIndexPath, err)
		}
	}
}
