// Package interval implements half-open integer intervals, used by block
// slicing and gap/allele range restriction. Interval is a small value
// type: cheap to copy, compared by value, never a pointer.
package interval

// Interval is the half-open range [Start, End). An Interval with
// Start >= End is empty.
type Interval struct {
	Start, End int
}

// Len returns the number of integers the interval covers.
func (iv Interval) Len() int {
	if iv.End <= iv.Start {
		return 0
	}
	return iv.End - iv.Start
}

// Empty reports whether the interval covers no integers.
func (iv Interval) Empty() bool { return iv.End <= iv.Start }

// Contains reports whether x falls within [Start, End).
func (iv Interval) Contains(x int) bool { return x >= iv.Start && x < iv.End }

// Overlaps reports whether iv and other share any integer.
func (iv Interval) Overlaps(other Interval) bool {
	return iv.Start < other.End && other.Start < iv.End
}

// Shift translates the interval by delta.
func (iv Interval) Shift(delta int) Interval {
	return Interval{iv.Start + delta, iv.End + delta}
}

// Intersect returns the overlap of iv and other, which is empty if they
// don't overlap.
func (iv Interval) Intersect(other Interval) Interval {
	start := max(iv.Start, other.Start)
	end := min(iv.End, other.End)
	if end < start {
		end = start
	}
	return Interval{start, end}
}
