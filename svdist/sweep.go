package svdist

import (
	"context"
	"encoding/binary"

	"blainsmith.com/go/seahash"
	"github.com/grailbio/base/errors"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/grailbio/sv/variant"
	"github.com/grailbio/sv/window"
)

// SweepStats summarizes one pairwise sweep.
type SweepStats struct {
	Variants   int // comparable variants offered to the window
	Candidates int // pairs the window produced
	Compared   int // pairs measured by the comparator
}

// Sweep slides the proximity window over vs, which must be sorted, measures
// every potential match with comp, and records the results in store.
// Non-comparable variants never enter the window.
func Sweep(ctx context.Context, vs []*variant.Variant, comp Comparator, opts Opts, store *Store) (SweepStats, error) {
	var stats SweepStats
	win := window.New(opts.MaxDist)
	for _, v := range vs {
		if !v.Comparable() {
			continue
		}
		stats.Variants++
		v := v
		err := win.Slide(v, func(m *variant.Variant) error {
			stats.Candidates++
			if !comp.PotentialMatch(m, v) {
				return nil
			}
			stats.Compared++
			a, b := m, v
			if b.ID < a.ID {
				a, b = b, a
			}
			raw, err := comp.Distance(ctx, a, b)
			if err != nil {
				return errors.E(err, "comparing", a.ID, "and", b.ID)
			}
			store.Record(a.ID, b.ID, raw, a.Pos-b.Pos)
			return nil
		})
		if err != nil {
			return stats, err
		}
	}
	return stats, nil
}

// Fingerprint digests the identity and placement of every comparable variant
// in vs, in order. A distance table carries the fingerprint of the variant
// set it was swept from and refuses to load against another.
func Fingerprint(vs []*variant.Variant) uint64 {
	h := seahash.New()
	var buf [8]byte
	for _, v := range vs {
		if !v.Comparable() {
			continue
		}
		_, _ = h.Write(gunsafe.StringToBytes(v.ID))
		_, _ = h.Write([]byte{0})
		_, _ = h.Write(gunsafe.StringToBytes(v.Chrom))
		binary.LittleEndian.PutUint64(buf[:], uint64(v.Pos))
		_, _ = h.Write(buf[:])
	}
	return h.Sum64()
}
