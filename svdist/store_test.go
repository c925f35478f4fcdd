package svdist

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestStoreIntern(t *testing.T) {
	s := NewStore()
	a := s.Intern("a")
	b := s.Intern("b")
	assert.Equal(t, NodeID(0), a)
	assert.Equal(t, NodeID(1), b)
	assert.Equal(t, a, s.Intern("a"))
	assert.Equal(t, 2, s.NumNodes())
	assert.Equal(t, "a", s.Name(a))
	assert.Equal(t, b, s.Node("b"))
	assert.Equal(t, InvalidNodeID, s.Node("zzz"))
}

func TestStoreRecordLookup(t *testing.T) {
	s := NewStore()
	raw := Raw{EditDist: 4, MaxShift: 2, SizeDiff: -1, SharedDenom: 10}
	s.Record("a", "b", raw, -3)

	e, ok := s.Lookup(s.Node("a"), s.Node("b"))
	require.True(t, ok)
	assert.Equal(t, raw, e.Raw)
	assert.Equal(t, Tuple{PosDiff: 3, RelShift: 0.2, RelSizeDiff: 0.1, RelDist: 0.4}, e.Tuple)

	// Lookup is unordered.
	rev, ok := s.Lookup(s.Node("b"), s.Node("a"))
	require.True(t, ok)
	assert.Equal(t, e, rev)

	e2, ok := s.LookupNames("b", "a")
	require.True(t, ok)
	assert.Equal(t, e, e2)

	_, ok = s.LookupNames("a", "zzz")
	assert.False(t, ok)
	_, ok = s.Lookup(s.Node("a"), s.Intern("c"))
	assert.False(t, ok)
}

func TestStoreRecordInvariants(t *testing.T) {
	s := NewStore()
	s.Record("a", "b", Raw{SharedDenom: 1}, 0)
	// Same pair twice is a caller bug.
	assert.Panics(t, func() { s.Record("a", "b", Raw{SharedDenom: 1}, 0) })
	// So is a non-canonical identifier order.
	assert.Panics(t, func() { s.Record("d", "c", Raw{SharedDenom: 1}, 0) })
}

func TestStoreVisitPairs(t *testing.T) {
	s := NewStore()
	// Interning order differs from name order: node 0 is "b".
	s.Record("b", "c", Raw{SharedDenom: 1}, 1)
	s.Record("a", "b", Raw{SharedDenom: 1}, 2)
	s.Record("a", "d", Raw{SharedDenom: 1}, 3)
	assert.Equal(t, 3, s.NumPairs())

	var got [][2]string
	err := s.VisitPairs(func(n1, n2 NodeID, e Entry) error {
		got = append(got, [2]string{s.Name(n1), s.Name(n2)})
		return nil
	})
	require.NoError(t, err)
	// Deterministic: ascending node pairs; names follow interning order.
	assert.Equal(t, [][2]string{{"b", "c"}, {"b", "a"}, {"a", "d"}}, got)

	// Partner lists see every neighbor.
	assert.ElementsMatch(t, []NodeID{s.Node("c"), s.Node("a")}, s.Partners(s.Node("b")))
}
