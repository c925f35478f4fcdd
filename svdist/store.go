package svdist

import (
	"sort"

	"github.com/grailbio/base/errors"
	"github.com/grailbio/base/log"
)

// NodeID is a dense index assigned to a variant identifier on first use.
// Cluster analysis runs on NodeIDs; names are kept once in the store.
type NodeID int32

// InvalidNodeID is returned for identifiers the store has never seen.
const InvalidNodeID = NodeID(-1)

// Entry is the stored measurement for one pair.
type Entry struct {
	Raw   Raw
	Tuple Tuple
}

// Store interns variant identifiers and holds one Entry per unordered pair.
// Pairs are keyed canonically, lexicographically lesser identifier first,
// with the signed raw measures oriented the same way.
//
// A store is either populated by one sweep and then read, or rebuilt from a
// saved table; it is not safe for concurrent use.
type Store struct {
	ids   map[string]NodeID
	names []string
	pairs map[uint64]Entry
	adj   [][]NodeID
}

// NewStore returns an empty store.
func NewStore() *Store {
	return &Store{ids: map[string]NodeID{}, pairs: map[uint64]Entry{}}
}

// Intern returns the node for name, assigning the next dense index on first
// use.
func (s *Store) Intern(name string) NodeID {
	if id, ok := s.ids[name]; ok {
		return id
	}
	id := NodeID(len(s.names))
	s.names = append(s.names, name)
	s.adj = append(s.adj, nil)
	s.ids[name] = id
	return id
}

// Node returns the node for name, or InvalidNodeID if name was never
// interned.
func (s *Store) Node(name string) NodeID {
	if id, ok := s.ids[name]; ok {
		return id
	}
	return InvalidNodeID
}

// Name returns the identifier interned as n.
func (s *Store) Name(n NodeID) string { return s.names[n] }

// NumNodes returns the number of interned identifiers.
func (s *Store) NumNodes() int { return len(s.names) }

// NumPairs returns the number of recorded pairs.
func (s *Store) NumPairs() int { return len(s.pairs) }

func pairKey(a, b NodeID) uint64 {
	if a > b {
		a, b = b, a
	}
	return uint64(uint32(a))<<32 | uint64(uint32(b))
}

// Record stores the measures for the pair (id1, id2), deriving its tuple
// from posDiff. id1 must be the lexicographically lesser identifier, and a
// pair may be recorded only once; violating either is a bug in the caller.
func (s *Store) Record(id1, id2 string, raw Raw, posDiff int) {
	if err := s.add(id1, id2, Entry{Raw: raw, Tuple: Derive(posDiff, raw)}); err != nil {
		log.Panicf("record %s/%s: %v", id1, id2, err)
	}
}

func (s *Store) add(id1, id2 string, e Entry) error {
	if id2 <= id1 {
		return errors.E("pair identifiers out of canonical order")
	}
	n1, n2 := s.Intern(id1), s.Intern(id2)
	key := pairKey(n1, n2)
	if _, ok := s.pairs[key]; ok {
		return errors.E("pair recorded twice")
	}
	s.pairs[key] = e
	s.adj[n1] = append(s.adj[n1], n2)
	s.adj[n2] = append(s.adj[n2], n1)
	return nil
}

// Lookup returns the entry for the unordered node pair, if recorded.
func (s *Store) Lookup(n1, n2 NodeID) (Entry, bool) {
	e, ok := s.pairs[pairKey(n1, n2)]
	return e, ok
}

// LookupNames returns the entry for the unordered identifier pair, if both
// identifiers are interned and the pair was recorded.
func (s *Store) LookupNames(id1, id2 string) (Entry, bool) {
	n1, n2 := s.Node(id1), s.Node(id2)
	if n1 == InvalidNodeID || n2 == InvalidNodeID {
		return Entry{}, false
	}
	return s.Lookup(n1, n2)
}

// Partners returns the nodes paired with n, in recording order. The returned
// slice is owned by the store.
func (s *Store) Partners(n NodeID) []NodeID { return s.adj[n] }

// VisitPairs calls f for every recorded pair in deterministic order:
// ascending by the first node, then by the second.
func (s *Store) VisitPairs(f func(n1, n2 NodeID, e Entry) error) error {
	var partners []NodeID
	for n1 := NodeID(0); int(n1) < len(s.adj); n1++ {
		partners = append(partners[:0], s.adj[n1]...)
		sort.Slice(partners, func(i, j int) bool { return partners[i] < partners[j] })
		for _, n2 := range partners {
			if n2 <= n1 {
				continue
			}
			if err := f(n1, n2, s.pairs[pairKey(n1, n2)]); err != nil {
				return err
			}
		}
	}
	return nil
}
