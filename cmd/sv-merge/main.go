package main

// sv-merge reconciles structural-variant calls that describe the same event.
// It reads one or more position-sorted call sets, measures the distance
// between nearby calls, links every pair that passes the configured
// thresholds, and writes one record per connected component: the cluster
// representative, annotated with the full membership.
//
// Example 1: merge two call sets using breakpoint distances.
//
//    sv-merge --output=merged.vcf caller1.vcf caller2.vcf
//
// Example 2: align alt haplotypes against the reference and save the
// distance table for later runs.
//
//    sv-merge --ref=hg38.fa --distances-output=dist.tsv --output=merged.vcf calls.vcf
//
// Example 3: recluster under tighter thresholds without recomputing.
//
//    sv-merge --distances-input=dist.tsv --rel-shift=0.2 --output=merged.vcf calls.vcf

import (
	"context"
	"flag"
	"fmt"
	"os"

	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bio/encoding/fasta"
	"github.com/grailbio/sv/cluster"
	"github.com/grailbio/sv/interval"
	"github.com/grailbio/sv/svdist"
	"github.com/grailbio/sv/variant"
)

// Collection of options set via cmdline flags.
type mergeFlags struct {
	output          string
	refPath         string
	refIndexPath    string
	strictLengths   bool
	regionsPath     string
	distancesOutput string
	distancesInput  string
	allowMissingEnd bool
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s [flags] input.vcf...\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flags := mergeFlags{}
	opts := svdist.DefaultOpts
	copts := cluster.DefaultOpts
	flag.StringVar(&flags.output, "output", "merged.vcf", "File to write the clustered records to. A .gz suffix selects bgzip compression.")
	flag.StringVar(&flags.refPath, "ref", "", `Reference FASTA. When set, pair distances come from alt-substituted
haplotype alignment instead of breakpoint geometry.`)
	flag.StringVar(&flags.refIndexPath, "ref-index", "", "FASTA index for --ref. When set, sequences are fetched on demand instead of read up front.")
	flag.BoolVar(&flags.strictLengths, "strict-lengths", false, `Check record coordinates against the reference lengths in the FASTA
index; a record on an unknown chromosome or extending past its end fails the run. Requires --ref or --ref-index.`)
	flag.StringVar(&flags.regionsPath, "regions", "", "BED file of regions. Only variants whose widened interval overlaps them are clustered.")
	flag.StringVar(&flags.distancesOutput, "distances-output", "", "File to save the computed distance table to.")
	flag.StringVar(&flags.distancesInput, "distances-input", "", "Distance table saved by an earlier run over the same inputs. Skips the pairwise sweep.")
	flag.BoolVar(&flags.allowMissingEnd, "allow-missing-end", false, "Skip records with a symbolic alternate allele and no END tag instead of failing the run.")
	flag.IntVar(&opts.MaxDist, "max-dist", svdist.DefaultOpts.MaxDist, "Largest start-position difference at which two variants are compared.")
	flag.DurationVar(&opts.Timeout, "compare-timeout", svdist.DefaultOpts.Timeout, "Bound on a single pairwise comparison. Zero means no bound.")
	flag.Float64Var(&copts.Thresholds.MaxRelShift, "rel-shift", svdist.DefaultThresholds.MaxRelShift, "Largest relative breakpoint shift for two variants to cluster.")
	flag.Float64Var(&copts.Thresholds.MaxRelSizeDiff, "rel-size-diff", svdist.DefaultThresholds.MaxRelSizeDiff, "Largest relative size difference for two variants to cluster.")
	flag.Float64Var(&copts.Thresholds.MaxRelDist, "rel-dist", svdist.DefaultThresholds.MaxRelDist, "Largest relative edit distance for two variants to cluster.")
	flag.Int64Var(&copts.Seed, "seed", cluster.DefaultOpts.Seed, "Seed for the representative tie-break.")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if flag.NArg() == 0 {
		log.Fatal("at least one input call set is required")
	}
	if flags.distancesInput != "" && flags.distancesOutput != "" {
		log.Fatal("--distances-input and --distances-output cannot be combined: a run either reuses a table or produces one")
	}
	if flags.strictLengths && flags.refPath == "" && flags.refIndexPath == "" {
		log.Fatal("--strict-lengths requires --ref or --ref-index")
	}
	copts.Thresholds.MaxDist = opts.MaxDist
	merge(ctx, flag.Args(), flags, opts, copts)
	log.Printf("All done")
}

func merge(ctx context.Context, paths []string, flags mergeFlags, opts svdist.Opts, copts cluster.Opts) {
	vopts := variant.Opts{AllowMissingEnd: flags.allowMissingEnd}
	if flags.strictLengths {
		vopts.RefLengths = readRefLengths(ctx, refIndexPath(flags))
	}
	if flags.regionsPath != "" {
		vopts.Filter = regionFilter(ctx, flags.regionsPath)
	}

	r, err := variant.NewMergeReader(ctx, paths, vopts)
	if err != nil {
		log.Fatalf("%v", err)
	}
	var vs []*variant.Variant
	for r.Scan() {
		vs = append(vs, r.Variant())
	}
	if err := r.Err(); err != nil {
		log.Fatalf("%v", err)
	}
	header := r.Header()
	rstats := r.Stats()
	if err := r.Close(ctx); err != nil {
		log.Fatalf("close inputs: %v", err)
	}
	log.Printf("Stats: read %d records: %d kept, %d skipped, %d outside regions, %d duplicates",
		rstats.Records, rstats.Variants, rstats.Skipped, rstats.Filtered, rstats.Dups)

	store := svdist.NewStore()
	fingerprint := svdist.Fingerprint(vs)
	if flags.distancesInput != "" {
		n, err := svdist.ReadTable(ctx, flags.distancesInput, fingerprint, store)
		if err != nil {
			log.Fatalf("%s: %v", flags.distancesInput, err)
		}
		log.Printf("Stats: loaded %d distances from %s", n, flags.distancesInput)
	} else {
		comp, done := newComparator(ctx, flags.refPath, flags.refIndexPath, opts)
		sstats, err := svdist.Sweep(ctx, vs, comp, opts, store)
		if err != nil {
			log.Fatalf("sweep: %v", err)
		}
		done()
		log.Printf("Stats: swept %d variants: %d candidate pairs, %d compared",
			sstats.Variants, sstats.Candidates, sstats.Compared)
		if flags.distancesOutput != "" {
			if err := svdist.WriteTable(ctx, flags.distancesOutput, store, fingerprint); err != nil {
				log.Fatalf("%s: %v", flags.distancesOutput, err)
			}
			log.Printf("Wrote %d distances to %s", store.NumPairs(), flags.distancesOutput)
		}
	}

	result, err := cluster.Build(store, copts)
	if err != nil {
		log.Fatalf("cluster: %v", err)
	}
	nOut := writeClustered(ctx, flags.output, header, vs, store, result)
	log.Printf("Stats: wrote %d records for %d variants (%d in the pair graph, %d clusters)",
		nOut, len(vs), store.NumNodes(), len(result.Clusters))
}

// refIndexPath returns the FASTA index to read reference lengths from.
func refIndexPath(flags mergeFlags) string {
	if flags.refIndexPath != "" {
		return flags.refIndexPath
	}
	return flags.refPath + ".fai"
}

func readRefLengths(ctx context.Context, path string) map[string]uint64 {
	in, err := file.Open(ctx, path)
	if err != nil {
		log.Panicf("open %s: %v", path, err)
	}
	lengths, err := fasta.FaiToReferenceLengths(in.Reader(ctx))
	if err != nil {
		log.Panicf("read %s: %v", path, err)
	}
	if err := in.Close(ctx); err != nil {
		log.Panicf("close %s: %v", path, err)
	}
	return lengths
}

// regionFilter builds the stream filter from a BED file. BED entries are
// 0-based half-open while variant coordinates are 1-based closed.
func regionFilter(ctx context.Context, path string) func(chrom string, start, end int) bool {
	entries, err := interval.ReadBED(ctx, path)
	if err != nil {
		log.Panicf("%v", err)
	}
	u, err := interval.NewUnion(entries)
	if err != nil {
		log.Panicf("%s: %v", path, err)
	}
	log.Printf("Restricting to %d regions from %s", len(entries), path)
	return func(chrom string, start, end int) bool {
		return u.Overlaps(chrom, interval.PosType(start-1), interval.PosType(end))
	}
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
