// Package interval implements half-open interval arithmetic over epoch
// millisecond timestamps.
package interval

import (
	"sort"
	"time"
)

// Interval is the half-open range [Start, End) in epoch milliseconds.
type Interval struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Duration returns the covered length of the interval.
func (iv Interval) Duration() time.Duration {
	return time.Duration(iv.End-iv.Start) * time.Millisecond
}

// List is an ordered sequence of intervals. A merged list is sorted by Start,
// pairwise disjoint and contains no zero-length entries.
type List []Interval

// Merge sorts a copy of list by start and coalesces every interval whose start
// falls at or before the end of the interval currently being built.
func Merge(list List) List {
	sorted := make(List, 0, len(list))
	for _, iv := range list {
		if iv.End > iv.Start {
			sorted = append(sorted, iv)
		}
	}
	if len(sorted) == 0 {
		return List{}
	}

	sort.Slice(sorted, func(i, j int) bool {
		if sorted[i].Start == sorted[j].Start {
			return sorted[i].End < sorted[j].End
		}
		return sorted[i].Start < sorted[j].Start
	})

	out := make(List, 0, len(sorted))
	cur := sorted[0]
	for _, next := range sorted[1:] {
		if next.Start <= cur.End {
			if next.End > cur.End {
				cur.End = next.End
			}
			continue
		}
		out = append(out, cur)
		cur = next
	}
	return append(out, cur)
}

// IsMerged reports whether list is already in canonical merged form.
func IsMerged(list List) bool {
	for i, iv := range list {
		if iv.End <= iv.Start {
			return false
		}
		if i > 0 && iv.Start <= list[i-1].End {
			return false
		}
	}
	return true
}

// IntersectMerged returns the intersection of two merged lists with a single
// two-pointer sweep. Inputs that are not merged are normalised first, so the
// result is always canonical.
func IntersectMerged(a, b List) List {
	if !IsMerged(a) {
		a = Merge(a)
	}
	if !IsMerged(b) {
		b = Merge(b)
	}

	out := List{}
	i, j := 0, 0
	for i < len(a) && j < len(b) {
		s := max(a[i].Start, b[j].Start)
		e := min(a[i].End, b[j].End)
		if e > s {
			out = append(out, Interval{Start: s, End: e})
		}
		if a[i].End < b[j].End {
			i++
		} else {
			j++
		}
	}
	return out
}

// Sum returns the total covered milliseconds of list.
func Sum(list List) int64 {
	var total int64
	for _, iv := range list {
		total += iv.End - iv.Start
	}
	return total
}

// ClipAndCollect clamps [start, end) into [lo, hi) and appends the result to
// out when it still has positive length.
func ClipAndCollect(out List, start, end, lo, hi int64) List {
	s := max(start, lo)
	e := min(end, hi)
	if e > s {
		out = append(out, Interval{Start: s, End: e})
	}
	return out
}

// Whole returns the single-interval list covering [lo, hi), or an empty list
// when the range is empty.
func Whole(lo, hi int64) List {
	return ClipAndCollect(List{}, lo, hi, lo, hi)
}
