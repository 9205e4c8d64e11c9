// Package merge implements the pairwise-merge core: partitioning two
// block consensi along a CIGAR alignment, re-referencing the query's
// variants onto the reference, and producing the new blocks a
// graph-level driver installs in place of the originals.
package merge

import (
	"github.com/jemmacfen/pangraph/align"
	"github.com/jemmacfen/pangraph/interval"
	"github.com/jemmacfen/pangraph/internal/pgerr"
)

// DefaultMinBlock is the minimum length (on either the query or
// reference side) an indel must reach before it splits a matched range
// rather than staying inside it as a local gap.
const DefaultMinBlock = 500

// SegmentKind distinguishes the three partition outcomes.
type SegmentKind int

const (
	SegQryOnly SegmentKind = iota
	SegRefOnly
	SegMatched
)

// Segment is one entry of the ordered partition of a pairwise alignment.
// QRange and RRange are consensus-index ranges on the (possibly
// revcomp'd) query and reference blocks respectively; only the range(s)
// relevant to Kind are populated. Interior holds the CIGAR ops spanning
// a SegMatched range (M runs and short I/D runs that stayed local).
type Segment struct {
	Kind     SegmentKind
	QRange   interval.Interval
	RRange   interval.Interval
	Interior align.CIGAR
}

// Partition partitions a pairwise alignment between a query consensus of
// length qLen and a reference consensus of length rLen into an ordered
// list of qry-only / ref-only / matched segments. Coordinates
// in a.Qry/a.Ref are on the original (forward-strand) query and
// reference; if a.Strand is Minus, qry coordinates are first mapped onto
// the reverse-complemented query consensus the caller is expected to
// merge against (see graph.Graph.Merge, which revcomps the query block
// before calling Partition).
func Partition(qLen, rLen int, a align.Alignment, minblock int) ([]Segment, error) {
	const op = "merge.Partition"
	if minblock <= 0 {
		minblock = DefaultMinBlock
	}
	qStart, qStop := a.Qry.Start, a.Qry.Stop
	if a.Strand == align.Minus {
		qStart, qStop = qLen-a.Qry.Stop, qLen-a.Qry.Start
	}
	rStart, rStop := a.Ref.Start, a.Ref.Stop

	var segs []Segment
	if qStart > 0 {
		segs = append(segs, Segment{Kind: SegQryOnly, QRange: interval.Interval{Start: 0, End: qStart}})
	}
	if rStart > 0 {
		segs = append(segs, Segment{Kind: SegRefOnly, RRange: interval.Interval{Start: 0, End: rStart}})
	}

	xq, xr := qStart, rStart
	spanQ, spanR := xq, xr
	var interior align.CIGAR
	flush := func() {
		if xq > spanQ || xr > spanR {
			segs = append(segs, Segment{
				Kind:     SegMatched,
				QRange:   interval.Interval{Start: spanQ, End: xq},
				RRange:   interval.Interval{Start: spanR, End: xr},
				Interior: interior,
			})
		}
		interior = nil
		spanQ, spanR = xq, xr
	}

	for _, c := range a.Cigar {
		switch c.Op {
		case align.OpMatch:
			xq += c.N
			xr += c.N
			interior = append(interior, c)
		case align.OpInsert:
			if c.N >= minblock {
				flush()
				segs = append(segs, Segment{Kind: SegQryOnly, QRange: interval.Interval{Start: xq, End: xq + c.N}})
				xq += c.N
				spanQ, spanR = xq, xr
			} else {
				xq += c.N
				interior = append(interior, c)
			}
		case align.OpDelete:
			if c.N >= minblock {
				flush()
				segs = append(segs, Segment{Kind: SegRefOnly, RRange: interval.Interval{Start: xr, End: xr + c.N}})
				xr += c.N
				spanQ, spanR = xq, xr
			} else {
				xr += c.N
				interior = append(interior, c)
			}
		default:
			return nil, pgerr.Unsupportedf(op, "cigar op %q not in {M,I,D}", byte(c.Op))
		}
	}
	flush()

	if xq != qStop {
		return nil, pgerr.Invalidf(op, "cigar consumed %d query bases, expected %d", xq-qStart, qStop-qStart)
	}
	if xr != rStop {
		return nil, pgerr.Invalidf(op, "cigar consumed %d reference bases, expected %d", xr-rStart, rStop-rStart)
	}

	if qStop < qLen {
		segs = append(segs, Segment{Kind: SegQryOnly, QRange: interval.Interval{Start: qStop, End: qLen}})
	}
	if rStop < rLen {
		segs = append(segs, Segment{Kind: SegRefOnly, RRange: interval.Interval{Start: rStop, End: rLen}})
	}
	return segs, nil
}
