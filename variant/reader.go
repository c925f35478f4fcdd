package variant

import (
	"bufio"
	"context"
	"io"

	"github.com/grailbio/base/compress"
	"github.com/grailbio/base/file"
	"github.com/grailbio/base/log"
	gunsafe "github.com/grailbio/base/unsafe"
	"github.com/minio/highwayhash"
	"github.com/pkg/errors"
)

// Call-set lines carrying full alternate allele sequences can run to
// megabytes for large insertions.
const maxLineBytes = 1 << 28

var zeroKey [32]byte

// dupLedger tracks a content hash per record identifier so that an exact
// duplicate record can be dropped while a reused identifier with different
// content fails the run.
type dupLedger struct {
	hashes map[string]uint64
}

func newDupLedger() *dupLedger {
	return &dupLedger{hashes: map[string]uint64{}}
}

// note registers the source line for id. It reports whether the record
// duplicates one already seen.
func (l *dupLedger) note(id, line string) (bool, error) {
	h := highwayhash.Sum64(gunsafe.StringToBytes(line), zeroKey[:])
	if prev, ok := l.hashes[id]; ok {
		if prev == h {
			return true, nil
		}
		return false, errors.Errorf("id %s appears twice with differing records", id)
	}
	l.hashes[id] = h
	return false, nil
}

// ReaderStats counts the dispositions of scanned records.
type ReaderStats struct {
	Records  int // data lines parsed
	Variants int // records delivered to the caller
	Skipped  int // recoverable skips
	Filtered int // dropped by the region filter
	Dups     int // duplicate records dropped
}

// Reader streams one position-sorted call-set file. Use it like
// bufio.Scanner: Scan, Variant, then Err after the loop.
//
// The stream enforces sort order as it goes: within a chromosome positions
// must be non-decreasing, and a chromosome may not reappear once another has
// started. Either violation is fatal.
type Reader struct {
	path   string
	in     file.File
	closer io.Closer
	sc     *bufio.Scanner
	opts   Opts

	ledger     *dupLedger
	header     []string
	prevChrom  string
	prevPos    int
	doneChroms map[string]bool

	v     *Variant
	err   error
	stats ReaderStats
}

// NewReader opens path, transparently decompressing it if compressed.
func NewReader(ctx context.Context, path string, opts Opts) (*Reader, error) {
	in, err := file.Open(ctx, path)
	if err != nil {
		return nil, err
	}
	r := &Reader{
		path:       path,
		in:         in,
		opts:       opts,
		ledger:     newDupLedger(),
		doneChroms: map[string]bool{},
	}
	src, _ := compress.NewReader(in.Reader(ctx))
	r.closer = src
	r.sc = bufio.NewScanner(src)
	r.sc.Buffer(make([]byte, 0, 1<<20), maxLineBytes)
	return r, nil
}

// Scan advances to the next variant. It returns false at end of stream or on
// error; check Err afterwards.
func (r *Reader) Scan() bool {
	if r.err != nil {
		return false
	}
	for r.sc.Scan() {
		line := r.sc.Text()
		if line == "" {
			continue
		}
		if line[0] == '#' {
			r.header = append(r.header, line)
			continue
		}
		r.stats.Records++
		v, err := ParseRecord(line, r.opts)
		if err != nil {
			if _, ok := err.(*SkipError); ok {
				r.stats.Skipped++
				log.Error.Printf("%s: %v", r.path, err)
				continue
			}
			r.err = errors.Wrap(err, r.path)
			return false
		}
		if err := r.checkOrder(v); err != nil {
			r.err = err
			return false
		}
		if r.opts.RefLengths != nil && v.Comparable() {
			if err := checkLengths(v, r.opts.RefLengths); err != nil {
				r.err = errors.Wrap(err, r.path)
				return false
			}
		}
		dup, err := r.ledger.note(v.ID, line)
		if err != nil {
			r.err = errors.Wrap(err, r.path)
			return false
		}
		if dup {
			r.stats.Dups++
			log.Error.Printf("%s: dropping duplicate record %s", r.path, v.ID)
			continue
		}
		if r.opts.Filter != nil && !r.inRegions(v) {
			r.stats.Filtered++
			continue
		}
		r.stats.Variants++
		r.v = v
		return true
	}
	r.err = r.sc.Err()
	return false
}

func (r *Reader) checkOrder(v *Variant) error {
	if v.Chrom == r.prevChrom {
		if v.Pos < r.prevPos {
			return errors.Errorf("%s: input not position-sorted: %s:%d follows %s:%d",
				r.path, v.Chrom, v.Pos, r.prevChrom, r.prevPos)
		}
	} else {
		if r.doneChroms[v.Chrom] {
			return errors.Errorf("%s: input not position-sorted: chromosome %s seen again after %s",
				r.path, v.Chrom, r.prevChrom)
		}
		if r.prevChrom != "" {
			r.doneChroms[r.prevChrom] = true
		}
		r.prevChrom = v.Chrom
	}
	r.prevPos = v.Pos
	return nil
}

func (r *Reader) inRegions(v *Variant) bool {
	start, end := v.Pos, v.End
	if v.Comparable() {
		start, end = v.Wide.Start, v.Wide.End
	}
	if end < start {
		end = start
	}
	return r.opts.Filter(v.Chrom, start, end)
}

// Variant returns the record produced by the last successful Scan.
func (r *Reader) Variant() *Variant { return r.v }

// Err returns the first error encountered by the stream.
func (r *Reader) Err() error { return r.err }

// Header returns the '#'-prefixed lines seen so far, in order.
func (r *Reader) Header() []string { return r.header }

// Stats returns the stream's record counters.
func (r *Reader) Stats() ReaderStats { return r.stats }

// Close releases the underlying file.
func (r *Reader) Close(ctx context.Context) (err error) {
	if r.closer != nil {
		if e := r.closer.Close(); e != nil {
			err = e
		}
	}
	if e := r.in.Close(ctx); e != nil && err == nil {
		err = e
	}
	return err
}

// MergeReader merges several position-sorted call-set files into one sorted
// stream. Identifiers must be unique across all inputs; an identical record
// appearing twice is dropped with a diagnostic, while a reused identifier
// with different content is fatal. Inputs that disagree on chromosome order
// are detected when the merged stream revisits a finished chromosome.
type MergeReader struct {
	rs    []*Reader
	heads []*Variant

	prevChrom  string
	doneChroms map[string]bool

	v   *Variant
	err error
}

// NewMergeReader opens every path and primes the merge. All inputs share one
// duplicate ledger.
func NewMergeReader(ctx context.Context, paths []string, opts Opts) (*MergeReader, error) {
	m := &MergeReader{
		rs:         make([]*Reader, 0, len(paths)),
		heads:      make([]*Variant, len(paths)),
		doneChroms: map[string]bool{},
	}
	ledger := newDupLedger()
	for _, path := range paths {
		r, err := NewReader(ctx, path, opts)
		if err != nil {
			m.Close(ctx) // nolint: errcheck
			return nil, err
		}
		r.ledger = ledger
		m.rs = append(m.rs, r)
	}
	for i, r := range m.rs {
		if r.Scan() {
			m.heads[i] = r.Variant()
		} else if err := r.Err(); err != nil {
			m.Close(ctx) // nolint: errcheck
			return nil, err
		}
	}
	return m, nil
}

// Scan advances to the next variant in merged order.
func (m *MergeReader) Scan() bool {
	if m.err != nil {
		return false
	}
	best := -1
	for i, h := range m.heads {
		if h == nil {
			continue
		}
		if best < 0 || Compare(h, m.heads[best]) < 0 {
			best = i
		}
	}
	if best < 0 {
		return false
	}
	v := m.heads[best]
	if v.Chrom != m.prevChrom {
		if m.doneChroms[v.Chrom] {
			m.err = errors.Errorf("%s: inputs disagree on chromosome order: %s seen again after %s",
				v.ID, v.Chrom, m.prevChrom)
			return false
		}
		if m.prevChrom != "" {
			m.doneChroms[m.prevChrom] = true
		}
		m.prevChrom = v.Chrom
	}
	if m.rs[best].Scan() {
		m.heads[best] = m.rs[best].Variant()
	} else {
		m.heads[best] = nil
		if err := m.rs[best].Err(); err != nil {
			m.err = err
			return false
		}
	}
	m.v = v
	return true
}

// Variant returns the record produced by the last successful Scan.
func (m *MergeReader) Variant() *Variant { return m.v }

// Err returns the first error encountered by any input.
func (m *MergeReader) Err() error { return m.err }

// Header returns the header lines of the first input.
func (m *MergeReader) Header() []string {
	if len(m.rs) == 0 {
		return nil
	}
	return m.rs[0].Header()
}

// Stats returns counters summed over all inputs.
func (m *MergeReader) Stats() ReaderStats {
	var total ReaderStats
	for _, r := range m.rs {
		s := r.Stats()
		total.Records += s.Records
		total.Variants += s.Variants
		total.Skipped += s.Skipped
		total.Filtered += s.Filtered
		total.Dups += s.Dups
	}
	return total
}

// Close releases all inputs.
func (m *MergeReader) Close(ctx context.Context) (err error) {
	for _, r := range m.rs {
		if r == nil {
			continue
		}
		if e := r.Close(ctx); e != nil && err == nil {
			err = e
		}
	}
	return err
}

// ReadAll reads every variant in path into memory and returns them along with
// the file's header lines.
func ReadAll(ctx context.Context, path string, opts Opts) ([]*Variant, []string, error) {
	r, err := NewReader(ctx, path, opts)
	if err != nil {
		return nil, nil, err
	}
	var vs []*Variant
	for r.Scan() {
		vs = append(vs, r.Variant())
	}
	err = r.Err()
	if e := r.Close(ctx); e != nil && err == nil {
		err = e
	}
	if err != nil {
		return nil, nil, err
	}
	return vs, r.Header(), nil
}
