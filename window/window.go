package window

import (
	"math/bits"

	"github.com/grailbio/sv/variant"
)

// NextExp2 returns the next power of 2 strictly greater than x.  (Useful when
// setting circular buffer size.)
func NextExp2(x int) int {
	log2 := 63 - bits.LeadingZeros64(uint64(x))
	return 2 << uint32(log2)
}

// Window holds the variants on the current chromosome whose positions are
// within maxDist of the stream cursor. Members are kept in arrival order in a
// circular buffer that grows on demand.
//
// The caller must feed variants in sorted order; eviction assumes the cursor
// never moves backwards.
type Window struct {
	maxDist int
	buf     []*variant.Variant
	mask    int
	head    int // index of the oldest member
	n       int
}

// New returns a Window admitting pairs at most maxDist apart.
func New(maxDist int) *Window {
	w := &Window{maxDist: maxDist, buf: make([]*variant.Variant, 16)}
	w.mask = len(w.buf) - 1
	return w
}

// Slide advances the cursor to v: members on another chromosome or more than
// maxDist behind v are evicted, visit is called for each member that remains
// (oldest first), and v then joins the window. An error from visit aborts the
// slide; v is not added.
func (w *Window) Slide(v *variant.Variant, visit func(member *variant.Variant) error) error {
	for w.n > 0 {
		m := w.buf[w.head]
		if m.Chrom == v.Chrom && v.Pos-m.Pos <= w.maxDist {
			break
		}
		w.buf[w.head] = nil
		w.head = (w.head + 1) & w.mask
		w.n--
	}
	for i := 0; i < w.n; i++ {
		if err := visit(w.buf[(w.head+i)&w.mask]); err != nil {
			return err
		}
	}
	if w.n == len(w.buf) {
		w.grow()
	}
	w.buf[(w.head+w.n)&w.mask] = v
	w.n++
	return nil
}

func (w *Window) grow() {
	next := make([]*variant.Variant, NextExp2(len(w.buf)))
	for i := 0; i < w.n; i++ {
		next[i] = w.buf[(w.head+i)&w.mask]
	}
	w.buf = next
	w.mask = len(next) - 1
	w.head = 0
}

// Len returns the number of members currently held.
func (w *Window) Len() int { return w.n }

// Reset empties the window.
func (w *Window) Reset() {
	for i := 0; i < w.n; i++ {
		w.buf[(w.head+i)&w.mask] = nil
	}
	w.head = 0
	w.n = 0
}
