package main

// This file renders the clustering result. One record is emitted per
// cluster, carried by the representative; the other members appear only in
// the representative's attributes. Variants that never linked to a neighbor
// are emitted as clusters of one, so every input variant is accounted for.

import (
	"context"
	"strconv"
	"strings"

	"github.com/grailbio/base/log"
	"github.com/grailbio/sv/cluster"
	"github.com/grailbio/sv/svdist"
	"github.com/grailbio/sv/variant"
)

// infoLines describes the attributes added to each emitted record.
var infoLines = []string{
	`##INFO=<ID=ClusterIDs,Number=1,Type=String,Description="IDs of the variants in this record's cluster">`,
	`##INFO=<ID=NumClusterSVs,Number=1,Type=Integer,Description="Number of variants in this record's cluster">`,
	`##INFO=<ID=ExactMatchIDs,Number=1,Type=String,Description="IDs of the cluster variants at zero distance from this record">`,
	`##INFO=<ID=NumExactMatchSVs,Number=1,Type=Integer,Description="Number of cluster variants at zero distance from this record">`,
	`##INFO=<ID=ClusterMaxShiftDist,Number=1,Type=Float,Description="Largest relative breakpoint shift between cluster variants">`,
	`##INFO=<ID=ClusterMaxSizeDiff,Number=1,Type=Float,Description="Largest relative size difference between cluster variants">`,
	`##INFO=<ID=ClusterMaxEditDist,Number=1,Type=Float,Description="Largest relative edit distance between cluster variants">`,
}

// writeClusterHeader replays the input header with the annotation
// descriptions spliced in ahead of the column line.
func writeClusterHeader(w *variant.Writer, header []string) error {
	n := len(header)
	if n > 0 && strings.HasPrefix(header[n-1], "#CHROM") {
		if err := w.WriteHeader(header[:n-1]); err != nil {
			return err
		}
		if err := w.WriteHeader(infoLines); err != nil {
			return err
		}
		return w.WriteHeader(header[n-1:])
	}
	if err := w.WriteHeader(header); err != nil {
		return err
	}
	return w.WriteHeader(infoLines)
}

// clusterInfo renders the annotation attributes for one cluster.
func clusterInfo(store *svdist.Store, c *cluster.Cluster) []string {
	ids := make([]string, len(c.Nodes))
	for i, n := range c.Nodes {
		ids[i] = store.Name(n)
	}
	exact := make([]string, len(c.Exact))
	for i, n := range c.Exact {
		exact[i] = store.Name(n)
	}
	return []string{
		"ClusterIDs=" + strings.Join(ids, ","),
		"NumClusterSVs=" + strconv.Itoa(len(c.Nodes)),
		"ExactMatchIDs=" + strings.Join(exact, ","),
		"NumExactMatchSVs=" + strconv.Itoa(len(c.Exact)),
		"ClusterMaxShiftDist=" + formatFloat(c.MaxShift),
		"ClusterMaxSizeDiff=" + formatFloat(c.MaxSizeDiff),
		"ClusterMaxEditDist=" + formatFloat(c.MaxEditDist),
	}
}

// singletonInfo renders the same attributes for a variant with no qualifying
// neighbor.
func singletonInfo(id string) []string {
	return []string{
		"ClusterIDs=" + id,
		"NumClusterSVs=1",
		"ExactMatchIDs=" + id,
		"NumExactMatchSVs=1",
		"ClusterMaxShiftDist=0",
		"ClusterMaxSizeDiff=0",
		"ClusterMaxEditDist=0",
	}
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}

// writeClustered walks the variants in stream order and writes the
// representative record of each cluster as it comes by, so the output stays
// position-sorted. It returns the number of records written.
func writeClustered(ctx context.Context, path string, header []string, vs []*variant.Variant, store *svdist.Store, result *cluster.Result) int {
	w, err := variant.NewWriter(ctx, path)
	if err != nil {
		log.Panicf("create %s: %v", path, err)
	}
	if err := writeClusterHeader(w, header); err != nil {
		log.Panicf("write %s: %v", path, err)
	}
	n := 0
	for _, v := range vs {
		node := store.Node(v.ID)
		ci := -1
		if node != svdist.InvalidNodeID {
			ci = result.ClusterOf(node)
		}
		var info []string
		if ci < 0 {
			info = singletonInfo(v.ID)
		} else {
			c := &result.Clusters[ci]
			if c.Rep != node {
				continue
			}
			info = clusterInfo(store, c)
		}
		if err := w.Write(v, info, nil); err != nil {
			log.Panicf("write %s: %v", path, err)
		}
		n++
	}
	if err := w.Close(ctx); err != nil {
		log.Panicf("close %s: %v", path, err)
	}
	return n
}
