// Package variant defines the structural-variant record model used by the
// merging, genotyping, and benchmarking tools, along with sorted streams for
// reading VCF-shaped call sets and writers for annotated output.
//
// A record becomes a comparable variant only when its attribute column
// carries the SVTYPE, SVLEN, and REFWIDENED tags; records missing any of them
// are skipped with a diagnostic. Breakend and unrecognized SV types parse
// successfully but are excluded from all comparisons.
package variant

import (
	"strconv"
	"strings"

	"github.com/pkg/errors"
)

// Type classifies a structural variant by the kind of sequence change it
// describes.
type Type int8

const (
	// TypeUnknown marks records whose SVTYPE tag value is unrecognized.
	TypeUnknown Type = iota
	// TypeIns is a sequence insertion.
	TypeIns
	// TypeDel is a sequence deletion.
	TypeDel
	// TypeDup is a duplication.
	TypeDup
	// TypeInv is an inversion.
	TypeInv
	// TypeBreakend marks breakend (BND) records, which describe single
	// junctions rather than fully resolved variants.
	TypeBreakend
)

// ParseType maps an SVTYPE tag value to a Type.
func ParseType(s string) Type {
	switch s {
	case "INS":
		return TypeIns
	case "DEL":
		return TypeDel
	case "DUP":
		return TypeDup
	case "INV":
		return TypeInv
	case "BND":
		return TypeBreakend
	}
	return TypeUnknown
}

// String returns the SVTYPE tag spelling of t.
func (t Type) String() string {
	switch t {
	case TypeIns:
		return "INS"
	case TypeDel:
		return "DEL"
	case TypeDup:
		return "DUP"
	case TypeInv:
		return "INV"
	case TypeBreakend:
		return "BND"
	}
	return "UNK"
}

// Comparable reports whether variants of this type participate in distance
// comparisons. Breakends and unrecognized types never do.
func (t Type) Comparable() bool {
	switch t {
	case TypeIns, TypeDel, TypeDup, TypeInv:
		return true
	}
	return false
}

// Span is a 1-based, closed interval on a named sequence.
type Span struct {
	Chrom string
	Start int
	End   int
}

// ParseSpan parses a "chrom:start-end" string. The chromosome name may itself
// contain colons; the coordinate pair follows the last one.
func ParseSpan(s string) (Span, error) {
	i := strings.LastIndexByte(s, ':')
	if i <= 0 {
		return Span{}, errors.Errorf("span %q: missing chrom:start-end separator", s)
	}
	sp := Span{Chrom: s[:i]}
	coords := s[i+1:]
	j := strings.IndexByte(coords, '-')
	if j < 0 {
		return Span{}, errors.Errorf("span %q: missing start-end separator", s)
	}
	var err error
	if sp.Start, err = strconv.Atoi(coords[:j]); err != nil {
		return Span{}, errors.Errorf("span %q: bad start coordinate", s)
	}
	if sp.End, err = strconv.Atoi(coords[j+1:]); err != nil {
		return Span{}, errors.Errorf("span %q: bad end coordinate", s)
	}
	if sp.Start < 1 || sp.End < sp.Start {
		return Span{}, errors.Errorf("span %q: empty or inverted interval", s)
	}
	return sp, nil
}

// String returns the span in chrom:start-end form.
func (s Span) String() string {
	return s.Chrom + ":" + strconv.Itoa(s.Start) + "-" + strconv.Itoa(s.End)
}

// Mid returns the midpoint of the span, rounded down.
func (s Span) Mid() int { return (s.Start + s.End) / 2 }

// ContigSpan locates a variant's widened interval on an assembled contig. The
// orientation suffix, when present, records the contig strand relative to the
// reference.
type ContigSpan struct {
	Span
	Orient string
}

// ParseContigSpan parses a "contig:start-end" string with an optional
// "_orientation" suffix after the end coordinate.
func ParseContigSpan(s string) (ContigSpan, error) {
	coords := s
	orient := ""
	if i := strings.LastIndexByte(s, ':'); i > 0 {
		if j := strings.IndexByte(s[i+1:], '_'); j >= 0 {
			orient = s[i+1+j+1:]
			coords = s[:i+1+j]
		}
	}
	sp, err := ParseSpan(coords)
	if err != nil {
		return ContigSpan{}, err
	}
	return ContigSpan{Span: sp, Orient: orient}, nil
}

// Variant is one parsed call-set record. Fields are set once during parsing
// and never mutated afterwards; all downstream stages share pointers to the
// same records.
type Variant struct {
	Chrom  string
	Pos    int // 1-based start position
	ID     string
	Ref    string
	Alt    string
	Qual   string
	Filter string
	Info   string // raw attribute column, semicolon-delimited

	Type Type
	Len  int  // signed size from the SVLEN tag (negative for deletions)
	End  int  // 1-based end position, from the END tag or the reference allele
	Wide Span // widened reference interval from the REFWIDENED tag

	// Contig is the CONTIGWIDENED placement, when present.
	Contig    ContigSpan
	HasContig bool
}

// Comparable reports whether v participates in distance comparisons.
// Comparable variants always carry Len, End, and Wide.
func (v *Variant) Comparable() bool { return v.Type.Comparable() }

// Size returns the signed variant size.
func (v *Variant) Size() int { return v.Len }

// AbsSize returns the magnitude of the variant size.
func (v *Variant) AbsSize() int {
	if v.Len < 0 {
		return -v.Len
	}
	return v.Len
}

// Mid returns the midpoint of the variant's own coordinates, rounded down.
func (v *Variant) Mid() int { return (v.Pos + v.End) / 2 }

// String returns a short description for diagnostics.
func (v *Variant) String() string {
	return v.ID + "(" + v.Chrom + ":" + strconv.Itoa(v.Pos) + " " + v.Type.String() + ")"
}
