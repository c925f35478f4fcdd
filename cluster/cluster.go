// Package cluster partitions threshold-passing variant pairs into connected
// components and picks a representative record for each.
//
// Within a component, pairs at distance zero in every dimension chain
// together into exact-match subclusters; the largest subcluster supplies the
// representative. Both the subcluster choice among ties and the
// representative choice within the winner are uniform draws from a seeded
// source, so runs are reproducible.
package cluster

import (
	"math/rand"

	"github.com/grailbio/base/log"
	"github.com/grailbio/sv/svdist"
)

// Opts configures graph construction and tie-breaking.
type Opts struct {
	// Thresholds decides which stored pairs become graph edges.
	Thresholds svdist.Thresholds
	// Seed feeds the tie-breaking random source.
	Seed int64
}

// DefaultOpts is the default value of Opts.
var DefaultOpts = Opts{
	Thresholds: svdist.DefaultThresholds,
	Seed:       1,
}

// Cluster is one connected component of the threshold graph.
type Cluster struct {
	// Nodes lists the members in discovery order.
	Nodes []svdist.NodeID
	// Exact is the winning exact-match subcluster.
	Exact []svdist.NodeID
	// Rep is the representative, drawn from Exact.
	Rep svdist.NodeID

	// Maxima of the relative measures over every measured pair in the
	// component, whether or not the pair passed the thresholds. Pairs the
	// sweep never measured are skipped.
	MaxShift    float64
	MaxSizeDiff float64
	MaxEditDist float64
}

// Result holds the clusters and the node-to-cluster mapping.
type Result struct {
	Clusters []Cluster
	byNode   []int32
}

// ClusterOf returns the index into Clusters of the cluster containing n, or
// -1 when n has no qualifying edge.
func (r *Result) ClusterOf(n svdist.NodeID) int {
	if int(n) < 0 || int(n) >= len(r.byNode) {
		return -1
	}
	return int(r.byNode[n])
}

// Build partitions the store's threshold-passing pairs into connected
// components. Nodes without a single passing edge belong to no cluster.
func Build(store *svdist.Store, opts Opts) (*Result, error) {
	n := store.NumNodes()
	adj := make([][]svdist.NodeID, n)
	err := store.VisitPairs(func(n1, n2 svdist.NodeID, e svdist.Entry) error {
		if opts.Thresholds.Pass(e.Tuple) {
			adj[n1] = append(adj[n1], n2)
			adj[n2] = append(adj[n2], n1)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	r := &Result{byNode: make([]int32, n)}
	for i := range r.byNode {
		r.byNode[i] = -1
	}
	rng := rand.New(rand.NewSource(opts.Seed))
	visited := make([]bool, n)
	var stack []svdist.NodeID
	for root := 0; root < n; root++ {
		if visited[root] || len(adj[root]) == 0 {
			continue
		}
		var comp []svdist.NodeID
		stack = append(stack[:0], svdist.NodeID(root))
		visited[root] = true
		for len(stack) > 0 {
			x := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			comp = append(comp, x)
			for _, y := range adj[x] {
				if !visited[y] {
					visited[y] = true
					stack = append(stack, y)
				}
			}
		}
		c := analyze(store, comp, rng)
		for _, m := range comp {
			r.byNode[m] = int32(len(r.Clusters))
		}
		r.Clusters = append(r.Clusters, c)
	}
	return r, nil
}

// analyze examines every unordered pair of the component: exact matches
// merge subcluster labels transitively, and the relative measures feed the
// component maxima.
func analyze(store *svdist.Store, comp []svdist.NodeID, rng *rand.Rand) Cluster {
	c := Cluster{Nodes: comp}
	if len(comp) == 1 {
		c.Exact = comp
		c.Rep = comp[0]
		return c
	}
	label := make([]int, len(comp))
	for i := range label {
		label[i] = i
	}
	for i := 0; i < len(comp); i++ {
		for j := i + 1; j < len(comp); j++ {
			e, ok := store.Lookup(comp[i], comp[j])
			if !ok {
				// The pair sat further apart than the sweep window; there is
				// nothing to measure it by.
				log.Printf("cluster: no distance for pair %s/%s; skipping it",
					store.Name(comp[i]), store.Name(comp[j]))
				continue
			}
			if e.Tuple.RelShift > c.MaxShift {
				c.MaxShift = e.Tuple.RelShift
			}
			if e.Tuple.RelSizeDiff > c.MaxSizeDiff {
				c.MaxSizeDiff = e.Tuple.RelSizeDiff
			}
			if e.Tuple.RelDist > c.MaxEditDist {
				c.MaxEditDist = e.Tuple.RelDist
			}
			if e.Tuple.Zero() {
				if la, lb := label[i], label[j]; la != lb {
					for k := range label {
						if label[k] == lb {
							label[k] = la
						}
					}
				}
			}
		}
	}

	// Group members by final label, keeping first-appearance order so the
	// draw below is reproducible.
	groups := map[int][]svdist.NodeID{}
	var order []int
	for i, l := range label {
		if _, ok := groups[l]; !ok {
			order = append(order, l)
		}
		groups[l] = append(groups[l], comp[i])
	}
	largest := 0
	for _, l := range order {
		if len(groups[l]) > largest {
			largest = len(groups[l])
		}
	}
	var tied []int
	for _, l := range order {
		if len(groups[l]) == largest {
			tied = append(tied, l)
		}
	}
	c.Exact = groups[tied[rng.Intn(len(tied))]]
	c.Rep = c.Exact[rng.Intn(len(c.Exact))]
	return c
}
