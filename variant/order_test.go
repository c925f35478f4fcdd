package variant

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestCompareChroms(t *testing.T) {
	tests := []struct {
		a, b string
		want int
	}{
		{"1", "2", -1},
		{"2", "10", -1}, // numeric, not lexical
		{"10", "10", 0},
		{"2", "X", -1}, // numeric sorts before non-numeric
		{"X", "2", 1},
		{"X", "Y", -1},
		{"chr2", "chr10", 1}, // non-numeric pairs stay lexical
		{"MT", "MT", 0},
	}
	for _, test := range tests {
		assert.Equal(t, test.want, CompareChroms(test.a, test.b), "%s vs %s", test.a, test.b)
	}
}

func mkv(chrom string, pos int, id string) *Variant {
	return &Variant{Chrom: chrom, Pos: pos, End: pos, ID: id}
}

func ids(vs []*Variant) []string {
	r := make([]string, len(vs))
	for i, v := range vs {
		r[i] = v.ID
	}
	return r
}

func TestSort(t *testing.T) {
	vs := []*Variant{mkv("X", 5, "d"), mkv("10", 9, "c"), mkv("2", 30, "b"), mkv("2", 7, "a")}
	Sort(vs)
	assert.Equal(t, []string{"a", "b", "c", "d"}, ids(vs))
}

func TestMergeSorted(t *testing.T) {
	a := []*Variant{mkv("1", 100, "a1"), mkv("1", 300, "a2"), mkv("2", 50, "a3")}
	b := []*Variant{mkv("1", 200, "b1"), mkv("2", 40, "b2")}
	out, err := MergeSorted(a, b)
	require.NoError(t, err)
	assert.Equal(t, []string{"a1", "b1", "a2", "b2", "a3"}, ids(out))
}

func TestMergeSortedChromOrderConflict(t *testing.T) {
	// Each input is internally consistent, but they order their chromosomes
	// differently, so the merged stream would revisit chromosome 1.
	a := []*Variant{mkv("1", 100, "a1"), mkv("2", 200, "a2")}
	b := []*Variant{mkv("2", 50, "b1"), mkv("1", 300, "b2")}
	_, err := MergeSorted(a, b)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "chromosome order")
}
