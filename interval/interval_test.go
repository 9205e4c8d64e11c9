package interval_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/jemmacfen/pangraph/interval"
)

func TestIntervalBasics(t *testing.T) {
	iv := interval.Interval{Start: 3, End: 8}
	qt.Assert(t, qt.Equals(iv.Len(), 5))
	qt.Assert(t, qt.IsTrue(iv.Contains(3)))
	qt.Assert(t, qt.IsFalse(iv.Contains(8)))
	qt.Assert(t, qt.IsFalse(interval.Interval{Start: 5, End: 5}.Contains(5)))
}

func TestIntervalIntersect(t *testing.T) {
	a := interval.Interval{Start: 0, End: 10}
	b := interval.Interval{Start: 4, End: 16}
	qt.Assert(t, qt.DeepEquals(a.Intersect(b), interval.Interval{Start: 4, End: 10}))

	c := interval.Interval{Start: 20, End: 30}
	qt.Assert(t, qt.IsTrue(a.Intersect(c).Empty()))
}

func TestIntervalShiftOverlaps(t *testing.T) {
	a := interval.Interval{Start: 0, End: 5}
	qt.Assert(t, qt.DeepEquals(a.Shift(3), interval.Interval{Start: 3, End: 8}))
	qt.Assert(t, qt.IsTrue(a.Overlaps(interval.Interval{Start: 4, End: 9})))
	qt.Assert(t, qt.IsFalse(a.Overlaps(interval.Interval{Start: 5, End: 9})))
}
