package variant

import (
	"sort"
	"strconv"

	"github.com/pkg/errors"
)

// CompareChroms orders two chromosome names. Names that are purely numeric
// compare numerically and sort before non-numeric names; all other pairs
// compare lexically. The result is -1, 0, or 1.
func CompareChroms(a, b string) int {
	an, aok := chromNum(a)
	bn, bok := chromNum(b)
	switch {
	case aok && bok:
		switch {
		case an < bn:
			return -1
		case an > bn:
			return 1
		}
		return 0
	case aok:
		return -1
	case bok:
		return 1
	}
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	}
	return 0
}

func chromNum(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	for i := 0; i < len(s); i++ {
		if s[i] < '0' || s[i] > '9' {
			return 0, false
		}
	}
	n, err := strconv.Atoi(s)
	if err != nil {
		return 0, false
	}
	return n, true
}

// Compare orders two variants by (chromosome, start, end), using the numeric-
// aware chromosome order.
func Compare(a, b *Variant) int {
	if c := CompareChroms(a.Chrom, b.Chrom); c != 0 {
		return c
	}
	switch {
	case a.Pos < b.Pos:
		return -1
	case a.Pos > b.Pos:
		return 1
	case a.End < b.End:
		return -1
	case a.End > b.End:
		return 1
	}
	return 0
}

// Sort orders vs in place by Compare.
func Sort(vs []*Variant) {
	sort.SliceStable(vs, func(i, j int) bool { return Compare(vs[i], vs[j]) < 0 })
}

// MergeSorted merges two position-sorted variant slices into one stream
// ordered by Compare. Each input must already satisfy the per-chromosome
// ordering rules enforced by Reader; if the inputs order their chromosomes
// inconsistently the merge revisits a finished chromosome, which is an error.
func MergeSorted(a, b []*Variant) ([]*Variant, error) {
	out := make([]*Variant, 0, len(a)+len(b))
	var (
		prevChrom string
		done      = map[string]bool{}
	)
	emit := func(v *Variant) error {
		if v.Chrom != prevChrom {
			if done[v.Chrom] {
				return errors.Errorf("%s: inputs disagree on chromosome order: %s seen again after %s",
					v.ID, v.Chrom, prevChrom)
			}
			if prevChrom != "" {
				done[prevChrom] = true
			}
			prevChrom = v.Chrom
		}
		out = append(out, v)
		return nil
	}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		if Compare(a[i], b[j]) <= 0 {
			if err := emit(a[i]); err != nil {
				return nil, err
			}
			i++
		} else {
			if err := emit(b[j]); err != nil {
				return nil, err
			}
			j++
		}
	}
	for ; i < len(a); i++ {
		if err := emit(a[i]); err != nil {
			return nil, err
		}
	}
	for ; j < len(b); j++ {
		if err := emit(b[j]); err != nil {
			return nil, err
		}
	}
	return out, nil
}
