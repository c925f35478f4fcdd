package main

// sv-benchmark scores a test call set against a truth call set. The two
// streams are merged, nearby cross-set pairs are measured, and each test
// variant is classified by whether any truth variant matches it under the
// position, shift, and size thresholds. Relative edit distance is never
// consulted: benchmark matching is coordinate-based.
//
// Example:
//
//    sv-benchmark --test=caller.vcf --truth=giab.vcf --fn-output=missed.txt

import (
	"bufio"
	"context"
	"flag"
	"fmt"
	"os"
	"strings"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/grail"
	"github.com/grailbio/base/log"
	"github.com/grailbio/base/vcontext"
	"github.com/grailbio/bio/encoding/fasta"
	"github.com/grailbio/sv/svbench"
	"github.com/grailbio/sv/svdist"
	"github.com/grailbio/sv/variant"
)

// Collection of options set via cmdline flags.
type benchmarkFlags struct {
	testPath        string
	truthPath       string
	refPath         string
	refIndexPath    string
	fpOutput        string
	fnOutput        string
	distancesOutput string
	distancesInput  string
	allowMissingEnd bool
}

func usage() {
	fmt.Fprintf(os.Stderr, "Usage: %s --test=calls.vcf --truth=truth.vcf [flags]\n", os.Args[0])
	fmt.Fprintln(os.Stderr, "Flags:")
	flag.PrintDefaults()
}

func main() {
	flag.Usage = usage
	flags := benchmarkFlags{}
	opts := svdist.DefaultOpts
	bopts := svbench.DefaultOpts
	flag.StringVar(&flags.testPath, "test", "", "Call set being scored.")
	flag.StringVar(&flags.truthPath, "truth", "", "Call set treated as ground truth.")
	flag.StringVar(&flags.refPath, "ref", "", `Reference FASTA. When set, pair distances come from alt-substituted
haplotype alignment instead of breakpoint geometry.`)
	flag.StringVar(&flags.refIndexPath, "ref-index", "", "FASTA index for --ref. When set, sequences are fetched on demand instead of read up front.")
	flag.StringVar(&flags.fpOutput, "fp-output", "", "File to write the ids of unmatched test variants to.")
	flag.StringVar(&flags.fnOutput, "fn-output", "", "File to write the ids of undetected truth variants to.")
	flag.StringVar(&flags.distancesOutput, "distances-output", "", "File to save the computed distance table to.")
	flag.StringVar(&flags.distancesInput, "distances-input", "", "Distance table saved by an earlier run over the same inputs. Skips the pairwise sweep.")
	flag.BoolVar(&flags.allowMissingEnd, "allow-missing-end", false, "Skip records with a symbolic alternate allele and no END tag instead of failing the run.")
	flag.IntVar(&bopts.MaxDist, "max-dist", svbench.DefaultOpts.MaxDist, "Largest start-position difference for a test/truth match.")
	flag.Float64Var(&bopts.MaxRelShift, "rel-shift", svbench.DefaultOpts.MaxRelShift, "Largest relative breakpoint shift for a test/truth match.")
	flag.Float64Var(&bopts.MaxRelSizeDiff, "rel-size-diff", svbench.DefaultOpts.MaxRelSizeDiff, "Largest relative size difference for a test/truth match.")

	cleanup := grail.Init()
	defer cleanup()
	ctx := vcontext.Background()

	if flag.NArg() != 0 {
		log.Fatalf("unexpected positional arguments; please check flag syntax: '%s'", strings.Join(flag.Args(), " "))
	}
	if flags.testPath == "" || flags.truthPath == "" {
		log.Fatal("--test and --truth are required")
	}
	if flags.distancesInput != "" && flags.distancesOutput != "" {
		log.Fatal("--distances-input and --distances-output cannot be combined: a run either reuses a table or produces one")
	}
	opts.MaxDist = bopts.MaxDist
	run(ctx, flags, opts, bopts)
	log.Printf("All done")
}

func run(ctx context.Context, flags benchmarkFlags, opts svdist.Opts, bopts svbench.Opts) {
	vopts := variant.Opts{AllowMissingEnd: flags.allowMissingEnd}
	tests, _, err := variant.ReadAll(ctx, flags.testPath, vopts)
	if err != nil {
		log.Fatalf("%s: %v", flags.testPath, err)
	}
	truths, _, err := variant.ReadAll(ctx, flags.truthPath, vopts)
	if err != nil {
		log.Fatalf("%s: %v", flags.truthPath, err)
	}
	log.Printf("Stats: %d test and %d truth variants", len(tests), len(truths))

	truthIDs, err := svbench.TruthIDs(tests, truths)
	if err != nil {
		log.Fatalf("%v", err)
	}
	merged, err := variant.MergeSorted(tests, truths)
	if err != nil {
		log.Fatalf("%v", err)
	}

	store := svdist.NewStore()
	fingerprint := svdist.Fingerprint(merged)
	if flags.distancesInput != "" {
		n, err := svdist.ReadTable(ctx, flags.distancesInput, fingerprint, store)
		if err != nil {
			log.Fatalf("%s: %v", flags.distancesInput, err)
		}
		log.Printf("Stats: loaded %d distances from %s", n, flags.distancesInput)
	} else {
		base, done := newComparator(ctx, flags.refPath, flags.refIndexPath, opts)
		sstats, err := svdist.Sweep(ctx, merged, svbench.NewCrossSetComparator(base, truthIDs), opts, store)
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

	result := svbench.Score(tests, truths, store, bopts)
	report(result)
	if flags.fpOutput != "" {
		writeIDs(ctx, flags.fpOutput, result.FalsePositives)
	}
	if flags.fnOutput != "" {
		writeIDs(ctx, flags.fnOutput, result.FalseNegatives)
	}
}

// report prints the classification summary on stdout.
func report(result *svbench.Result) {
	c := result.Counts
	fmt.Printf("Test variants:  %d matched, %d unmatched\n", c.TP, c.FP)
	fmt.Printf("Truth variants: %d detected, %d missed\n", c.DTP, c.FN)
	m, err := c.Metrics()
	if err != nil {
		fmt.Printf("Metrics undefined: %v\n", err)
		return
	}
	fmt.Printf("Recall:    %.2f%%\n", m.Recall*100)
	fmt.Printf("Precision: %.2f%%\n", m.Precision*100)
	fmt.Printf("F1:        %.4f\n", m.F1)
}

// writeIDs dumps ids one per line, in stream order.
func writeIDs(ctx context.Context, path string, ids []string) {
	out, err := file.Create(ctx, path)
	if err != nil {
		log.Panic(err)
	}
	w := bufio.NewWriter(out.Writer(ctx))
	er := errors.Once{}
	for _, id := range ids {
		_, err := w.WriteString(id)
		er.Set(err)
		er.Set(w.WriteByte('\n'))
	}
	er.Set(w.Flush())
	er.Set(out.Close(ctx))
	if er.Err() != nil {
		log.Panic(er.Err())
	}
	log.Printf("Wrote %d ids to %s", len(ids), path)
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
