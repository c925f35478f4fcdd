package variant

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Opts controls parsing and streaming of call-set records.
type Opts struct {
	// AllowMissingEnd skips records with a symbolic alternate allele and no
	// END tag instead of failing the run.
	AllowMissingEnd bool
	// RefLengths, when non-nil, holds per-chromosome reference lengths and
	// enables strict coordinate checking: a record on an unknown chromosome
	// or extending past its end is a fatal error.
	RefLengths map[string]uint64
	// Filter, when non-nil, restricts the stream to variants whose widened
	// interval overlaps the configured regions.
	Filter func(chrom string, start, end int) bool
}

// SkipError reports a record that cannot participate in comparisons but
// should not abort the run. The stream logs the reason and moves on.
type SkipError struct {
	ID     string
	Reason string
}

func (e *SkipError) Error() string {
	return "skipping " + e.ID + ": " + e.Reason
}

func skip(id, reason string) error {
	return &SkipError{ID: id, Reason: reason}
}

// parseAttrs splits a semicolon-delimited attribute column into a key-value
// map. Valueless flags map to the empty string. Parsing happens once per
// record; lookups afterwards hit the map.
func parseAttrs(info string) map[string]string {
	attrs := make(map[string]string, 8)
	for len(info) > 0 {
		field := info
		if i := strings.IndexByte(info, ';'); i >= 0 {
			field, info = info[:i], info[i+1:]
		} else {
			info = ""
		}
		if field == "" {
			continue
		}
		if i := strings.IndexByte(field, '='); i >= 0 {
			attrs[field[:i]] = field[i+1:]
		} else {
			attrs[field] = ""
		}
	}
	return attrs
}

// IsSequence reports whether allele consists solely of nucleotide codes.
// Symbolic alleles (<DEL>, breakend notation) and empty alleles are not
// sequences.
func IsSequence(allele string) bool {
	if allele == "" {
		return false
	}
	for i := 0; i < len(allele); i++ {
		switch allele[i] {
		case 'A', 'C', 'G', 'T', 'N', 'a', 'c', 'g', 't', 'n':
		default:
			return false
		}
	}
	return true
}

// ParseRecord parses one tab-separated call-set line into a Variant.
//
// A malformed column shape or position is a fatal error, as is a symbolic
// alternate allele with no END tag unless opts.AllowMissingEnd is set.
// Breakend and unknown SV types return a non-comparable Variant with no
// error. Records missing the SVLEN or REFWIDENED tags, or carrying ones that
// do not parse, return a *SkipError.
func ParseRecord(line string, opts Opts) (*Variant, error) {
	cols := strings.SplitN(line, "\t", 9)
	if len(cols) < 8 {
		return nil, errors.Errorf("malformed record: %d columns, want at least 8: %.80q", len(cols), line)
	}
	pos, err := strconv.Atoi(cols[1])
	if err != nil || pos < 1 {
		return nil, errors.Errorf("%s: malformed position %q", cols[2], cols[1])
	}
	v := &Variant{
		Chrom:  cols[0],
		Pos:    pos,
		ID:     cols[2],
		Ref:    cols[3],
		Alt:    cols[4],
		Qual:   cols[5],
		Filter: cols[6],
		Info:   cols[7],
	}
	attrs := parseAttrs(v.Info)
	st, ok := attrs["SVTYPE"]
	if !ok {
		return nil, skip(v.ID, "no SVTYPE tag")
	}
	v.Type = ParseType(st)
	if !v.Type.Comparable() {
		// Breakends and unknown types pass through without further
		// requirements; they never enter a comparison.
		return v, nil
	}
	ls, ok := attrs["SVLEN"]
	if !ok {
		return nil, skip(v.ID, "no SVLEN tag")
	}
	if v.Len, err = strconv.Atoi(ls); err != nil {
		return nil, skip(v.ID, "malformed SVLEN "+strconv.Quote(ls))
	}
	if es, ok := attrs["END"]; ok {
		if v.End, err = strconv.Atoi(es); err != nil || v.End < v.Pos {
			return nil, skip(v.ID, "malformed END "+strconv.Quote(es))
		}
	} else if IsSequence(v.Alt) {
		v.End = v.Pos + len(v.Ref) - 1
	} else if opts.AllowMissingEnd {
		return nil, skip(v.ID, "symbolic allele with no END tag")
	} else {
		return nil, errors.Errorf("%s: symbolic allele %q with no END tag", v.ID, v.Alt)
	}
	ws, ok := attrs["REFWIDENED"]
	if !ok {
		return nil, skip(v.ID, "no REFWIDENED tag")
	}
	wide, err := ParseSpan(ws)
	if err != nil {
		return nil, skip(v.ID, "malformed REFWIDENED: "+err.Error())
	}
	if wide.Chrom != v.Chrom {
		return nil, skip(v.ID, "REFWIDENED names chromosome "+wide.Chrom+", record is on "+v.Chrom)
	}
	v.Wide = wide
	if cs, ok := attrs["CONTIGWIDENED"]; ok {
		contig, err := ParseContigSpan(cs)
		if err != nil {
			return nil, skip(v.ID, "malformed CONTIGWIDENED: "+err.Error())
		}
		v.Contig = contig
		v.HasContig = true
	}
	return v, nil
}

// checkLengths validates a comparable variant's coordinates against the
// reference lengths table.
func checkLengths(v *Variant, lengths map[string]uint64) error {
	n, ok := lengths[v.Chrom]
	if !ok {
		return errors.Errorf("%s: chromosome %s not present in the reference index", v.ID, v.Chrom)
	}
	max := v.End
	if v.Wide.End > max {
		max = v.Wide.End
	}
	if uint64(max) > n {
		return errors.Errorf("%s: interval end %d past the end of %s (length %d)", v.ID, max, v.Chrom, n)
	}
	return nil
}
