package interval

import (
	"fmt"
	"math"
	"sort"
)

// PosType is the coordinate type.  int32 is as wide as BED coordinates get in
// practice.
type PosType int32

// PosTypeMax is the maximum value representable by a PosType.
const PosTypeMax = math.MaxInt32

// searchPosTypes returns the index of x in a[], or the position where x would
// be inserted if x isn't in a (this could be len(a)).  It's exactly the same
// as sort.SearchInts(), except for PosType.
func searchPosTypes(a []PosType, x PosType) int {
	return sort.Search(len(a), func(i int) bool { return a[i] >= x })
}

// fwdsearchPosTypes checks a[idx], then a[idx + 1], then a[idx + 3], then
// a[idx + 7], etc., and then uses binary search to finish the job.  It's
// usually a better choice than searchPosTypes when iterating.
func fwdsearchPosTypes(a []PosType, x PosType, idx int) int {
	nextIncr := 1
	startIdx := idx
	endIdx := len(a)
	for idx < endIdx {
		if a[idx] >= x {
			endIdx = idx
			break
		}
		startIdx = idx + 1
		idx += nextIncr
		nextIncr *= 2
	}
	// Inlined sort.Search; startIdx is usually already equal to endIdx.
	for startIdx < endIdx {
		midIdx := int(uint(startIdx+endIdx) >> 1)
		if a[midIdx] >= x {
			endIdx = midIdx
		} else {
			startIdx = midIdx + 1
		}
	}
	return startIdx
}

// Union is a set of disjoint intervals, stored per reference as a length-2N
// ascending sequence of endpoints: interval #k (numbering from zero) starts
// at element [2k] and ends at element [2k+1].  The flat representation keeps
// binary search simple, and the parity of a search result indicates
// containment directly.
type Union struct {
	// refMap is a reference-name-keyed map with disjoint-interval-set values.
	refMap map[string][]PosType
	// lastRefIntervals points to the interval set of the most recently queried
	// reference; lastRefName must stay in sync with it.
	lastRefIntervals []PosType
	lastRefName      string
	// lastPosPlus1 and lastIdx cache the previous search so that queries in
	// nondecreasing position order continue forward from where they left off.
	lastPosPlus1 PosType
	lastIdx      int
	isSequential bool
}

// NewUnion builds a Union from entries sorted by (reference, start), merging
// touching and overlapping intervals and dropping empty ones.  An empty entry
// still marks its reference as mentioned.
func NewUnion(entries []Entry) (Union, error) {
	u := Union{refMap: map[string][]PosType{}}
	prevRef := ""
	var prevStart, prevEnd PosType
	var refIntervals []PosType
	for _, entry := range entries {
		if entry.Start < 0 {
			return Union{}, fmt.Errorf("interval.NewUnion: negative start coordinate")
		}
		if entry.End < entry.Start || entry.End >= PosTypeMax {
			return Union{}, fmt.Errorf("interval.NewUnion: invalid coordinate pair [%d, %d)", entry.Start, entry.End)
		}
		if entry.RefName != prevRef {
			if prevRef != "" {
				if prevEnd != -1 {
					refIntervals = append(refIntervals, prevStart, prevEnd)
				}
				u.refMap[prevRef] = refIntervals
			}
			prevRef = entry.RefName
			if _, found := u.refMap[prevRef]; found {
				return Union{}, fmt.Errorf("interval.NewUnion: unsorted input (split reference %v)", prevRef)
			}
			refIntervals = []PosType{}
			if entry.End == entry.Start {
				prevStart = -1
				prevEnd = -1
				continue
			}
			prevStart = entry.Start
			prevEnd = entry.End
			continue
		}
		if entry.End == entry.Start {
			continue
		}
		if entry.Start > prevEnd {
			// No overlap with the previous interval, so the previous one is
			// final.
			if prevEnd != -1 {
				refIntervals = append(refIntervals, prevStart, prevEnd)
			}
			prevStart = entry.Start
			prevEnd = entry.End
		} else {
			if entry.Start < prevStart {
				return Union{}, fmt.Errorf("interval.NewUnion: unsorted input")
			}
			// Intervals touch or overlap, merge them.
			if entry.End > prevEnd {
				prevEnd = entry.End
			}
		}
	}
	if prevRef != "" {
		if prevEnd != -1 {
			refIntervals = append(refIntervals, prevStart, prevEnd)
		}
		u.refMap[prevRef] = refIntervals
	}
	return u, nil
}

// lookup returns refName's interval set along with
// searchPosTypes(intervals, pos+1), maintaining the sequential-query cache.
func (u *Union) lookup(refName string, pos PosType) ([]PosType, int) {
	posPlus1 := pos + 1
	if refName != u.lastRefName {
		u.lastRefName = refName
		u.lastRefIntervals = u.refMap[refName]
		if u.lastRefIntervals == nil {
			return nil, 0
		}
		u.lastIdx = searchPosTypes(u.lastRefIntervals, posPlus1)
		u.lastPosPlus1 = posPlus1
		u.isSequential = true
		return u.lastRefIntervals, u.lastIdx
	}
	if u.lastRefIntervals == nil {
		return nil, 0
	}
	if u.isSequential {
		if posPlus1 >= u.lastPosPlus1 {
			u.lastIdx = fwdsearchPosTypes(u.lastRefIntervals, posPlus1, u.lastIdx)
			u.lastPosPlus1 = posPlus1
			return u.lastRefIntervals, u.lastIdx
		}
		u.isSequential = false
	}
	return u.lastRefIntervals, searchPosTypes(u.lastRefIntervals, posPlus1)
}

// Contains checks whether the (0-based) interval [pos, pos+1) on refName is
// covered by the union.
func (u *Union) Contains(refName string, pos PosType) bool {
	_, idx := u.lookup(refName, pos)
	return idx&1 == 1
}

// Overlaps checks whether the 0-based half-open span [start, limit) on
// refName overlaps the union.  limit must exceed start.
func (u *Union) Overlaps(refName string, start, limit PosType) bool {
	intervals, idx := u.lookup(refName, start)
	if intervals == nil {
		return false
	}
	if idx&1 == 1 {
		return true
	}
	// start falls in a gap; the span overlaps iff the next interval begins
	// before limit.
	return idx != len(intervals) && intervals[idx] < limit
}
