package svdist

import "context"

// Rows between context checks during long alignments.
const alignCheckRows = 256

// aligner computes Levenshtein edit distances. The scratch rows are reused
// across calls, so an aligner is cheap to call in a tight pair loop but must
// not be shared between goroutines.
type aligner struct {
	prev, cur []int
}

// editDistance returns the number of single-character insertions, deletions,
// and substitutions needed to transform s1 into s2. It honors cancellation
// of ctx, which bounds the cost of comparing pathological allele pairs.
func (a *aligner) editDistance(ctx context.Context, s1, s2 string) (int, error) {
	if s1 == s2 {
		return 0, nil
	}
	// Roll along the shorter string to keep the scratch rows small.
	if len(s1) < len(s2) {
		s1, s2 = s2, s1
	}
	n := len(s2)
	if n == 0 {
		return len(s1), nil
	}
	if cap(a.prev) < n+1 {
		a.prev = make([]int, n+1)
		a.cur = make([]int, n+1)
	}
	prev, cur := a.prev[:n+1], a.cur[:n+1]
	for j := 0; j <= n; j++ {
		prev[j] = j
	}
	for i := 1; i <= len(s1); i++ {
		if i%alignCheckRows == 0 {
			if err := ctx.Err(); err != nil {
				return 0, err
			}
		}
		cur[0] = i
		c1 := s1[i-1]
		for j := 1; j <= n; j++ {
			if c1 == s2[j-1] {
				cur[j] = prev[j-1]
				continue
			}
			d := prev[j-1]
			if prev[j] < d {
				d = prev[j]
			}
			if cur[j-1] < d {
				d = cur[j-1]
			}
			cur[j] = d + 1
		}
		prev, cur = cur, prev
	}
	a.prev, a.cur = prev, cur
	return prev[n], nil
}
