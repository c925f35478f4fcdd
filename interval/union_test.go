package interval

import (
	"math/rand"
	"reflect"
	"testing"

	"github.com/grailbio/testutil/expect"
)

func TestNewUnionMerges(t *testing.T) {
	entries := []Entry{
		{"chr1", 100, 200},
		{"chr1", 150, 300}, // overlaps the previous interval
		{"chr1", 300, 400}, // touches the previous interval
		{"chr1", 500, 600},
		{"chr1", 650, 650}, // empty, dropped
		{"chr2", 10, 20},
	}
	u, err := NewUnion(entries)
	expect.NoError(t, err)
	want := map[string][]PosType{
		"chr1": {100, 400, 500, 600},
		"chr2": {10, 20},
	}
	if !reflect.DeepEqual(u.refMap, want) {
		t.Errorf("got %v, want %v", u.refMap, want)
	}
}

func TestNewUnionEmptyMention(t *testing.T) {
	u, err := NewUnion([]Entry{{"chr1", 5, 5}})
	expect.NoError(t, err)
	want := map[string][]PosType{"chr1": {}}
	if !reflect.DeepEqual(u.refMap, want) {
		t.Errorf("got %v, want %v", u.refMap, want)
	}
	expect.EQ(t, u.Contains("chr1", 5), false)
}

func TestNewUnionUnsorted(t *testing.T) {
	if _, err := NewUnion([]Entry{
		{"chr1", 100, 200},
		{"chr2", 0, 50},
		{"chr1", 300, 400},
	}); err == nil {
		t.Error("want error for split reference")
	}
	if _, err := NewUnion([]Entry{
		{"chr1", 100, 200},
		{"chr1", 50, 80},
	}); err == nil {
		t.Error("want error for backwards start")
	}
}

func TestContains(t *testing.T) {
	u, err := NewUnion([]Entry{
		{"chr1", 100, 200},
		{"chr1", 500, 600},
		{"chr2", 10, 20},
	})
	expect.NoError(t, err)
	for _, tt := range []struct {
		ref  string
		pos  PosType
		want bool
	}{
		{"chr1", 99, false},
		{"chr1", 100, true},
		{"chr1", 199, true},
		{"chr1", 200, false},
		{"chr1", 550, true},
		{"chr1", 120, true}, // descending position drops the sequential path
		{"chr1", 600, false},
		{"chr2", 10, true},
		{"chr3", 10, false},
		{"chr1", 150, true}, // back to a previously queried reference
	} {
		if got := u.Contains(tt.ref, tt.pos); got != tt.want {
			t.Errorf("Contains(%s, %d) = %v, want %v", tt.ref, tt.pos, got, tt.want)
		}
	}
}

func TestOverlaps(t *testing.T) {
	u, err := NewUnion([]Entry{
		{"chr1", 100, 200},
		{"chr1", 500, 600},
	})
	expect.NoError(t, err)
	for _, tt := range []struct {
		ref          string
		start, limit PosType
		want         bool
	}{
		{"chr1", 0, 100, false}, // touches the first interval's start
		{"chr1", 0, 101, true},
		{"chr1", 150, 160, true},
		{"chr1", 190, 510, true}, // spans the gap
		{"chr1", 200, 500, false},
		{"chr1", 250, 400, false},
		{"chr1", 600, 700, false},
		{"chr3", 0, 1000, false},
	} {
		if got := u.Overlaps(tt.ref, tt.start, tt.limit); got != tt.want {
			t.Errorf("Overlaps(%s, %d, %d) = %v, want %v", tt.ref, tt.start, tt.limit, got, tt.want)
		}
	}
}

func TestUnionRandom(t *testing.T) {
	rng := rand.New(rand.NewSource(1))
	for iter := 0; iter < 20; iter++ {
		var entries []Entry
		pos := PosType(0)
		for i := 0; i < 30; i++ {
			pos += PosType(rng.Intn(20))
			entries = append(entries, Entry{"chr1", pos, pos + PosType(rng.Intn(20))})
		}
		u, err := NewUnion(entries)
		expect.NoError(t, err)
		naive := func(p PosType) bool {
			for _, e := range entries {
				if p >= e.Start && p < e.End {
					return true
				}
			}
			return false
		}
		// Ascending queries exercise the sequential path; the random probes
		// below exercise the binary fallback.
		for p := PosType(0); p < 700; p++ {
			if got := u.Contains("chr1", p); got != naive(p) {
				t.Fatalf("iter %d: Contains(chr1, %d) = %v", iter, p, got)
			}
		}
		for i := 0; i < 200; i++ {
			p := PosType(rng.Intn(700))
			if got := u.Contains("chr1", p); got != naive(p) {
				t.Fatalf("iter %d: Contains(chr1, %d) = %v", iter, p, got)
			}
		}
		for i := 0; i < 200; i++ {
			s := PosType(rng.Intn(700))
			limit := s + 1 + PosType(rng.Intn(30))
			want := false
			for _, e := range entries {
				if e.Start < e.End && e.Start < limit && e.End > s {
					want = true
					break
				}
			}
			if got := u.Overlaps("chr1", s, limit); got != want {
				t.Fatalf("iter %d: Overlaps(chr1, %d, %d) = %v, want %v", iter, s, limit, got, want)
			}
		}
	}
}
