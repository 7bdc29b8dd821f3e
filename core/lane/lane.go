// Package lane packs inclusive integer intervals into horizontal lanes so that
// overlapping intervals never share a lane.
//
// Intervals are sorted by (Start, End) and swept greedily: each interval takes the
// lowest lane whose last occupant ends strictly before the interval starts.
// Touching intervals ([0,2] and [2,4]) overlap on slot 2 and never share a lane.
package lane

import "sort"

// Interval is an inclusive range of slots, Start <= End.
type Interval struct {
	ID    string `json:"id"`
	Start int    `json:"start_slot"`
	End   int    `json:"end_slot"`
}

// Placement is an Interval with the lane it was assigned to.
type Placement struct {
	Interval
	Lane int `json:"lane"`
}

// Span returns the Interval covering slots a and b, whichever order they come in.
func Span(id string, a, b int) Interval {
	if a > b {
		a, b = b, a
	}
	return Interval{ID: id, Start: a, End: b}
}

// Clamp keeps n within [min, max].
func Clamp(n, min, max int) int {
	if n < min {
		return min
	}
	if n > max {
		return max
	}
	return n
}

// Overlaps reports whether a and b share at least one slot.
func Overlaps(a, b Interval) bool {
	return a.Start <= b.End && b.Start <= a.End
}

// Assign places every interval on a lane and returns the placements in sweep order.
// It does not modify intervals. Callers must normalize each interval (see Span).
func Assign(intervals []Interval) []Placement {
	if len(intervals) == 0 {
		return []Placement{}
	}

	sorted := make([]Interval, len(intervals))
	copy(sorted, intervals)
	sort.SliceStable(sorted, func(i, j int) bool {
		if sorted[i].Start != sorted[j].Start {
			return sorted[i].Start < sorted[j].Start
		}
		return sorted[i].End < sorted[j].End
	})

	placements := make([]Placement, 0, len(sorted))
	var laneEnds []int // end slot of the last interval placed on each lane
	for _, iv := range sorted {
		lane := -1
		for l, end := range laneEnds {
			if end < iv.Start {
				lane = l
				break
			}
		}
		if lane == -1 {
			lane = len(laneEnds)
			laneEnds = append(laneEnds, iv.End)
		} else {
			laneEnds[lane] = iv.End
		}
		placements = append(placements, Placement{Interval: iv, Lane: lane})
	}
	return placements
}

// Count returns the number of lanes used by placements.
func Count(placements []Placement) int {
	count := 0
	for _, p := range placements {
		if p.Lane+1 > count {
			count = p.Lane + 1
		}
	}
	return count
}
