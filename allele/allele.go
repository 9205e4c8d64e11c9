// Package allele holds the three sparse per-node variant maps that
// together with a block's consensus describe every genome materialized
// through that block: substitutions (SNPMap), insertions (InsertMap), and
// deletions (DeleteMap). This package provides the map types and the
// locus-ordering logic materialization and reconsensus both need, leaving
// Block (in package block) to own the maps and enforce their joint
// invariants.
//
// N is the node-identity type; it is left generic here rather than
// importing package block's NodeID, so this package has no dependency on
// block.
package allele

import (
	"sort"

	"github.com/jemmacfen/pangraph/interval"
)

// Locus is a 0-based position on a block's consensus sequence.
type Locus int

// GapKey identifies a sub-column within the gap reserved immediately
// after Pos: Offset is the byte offset within that gap's reserved width.
type GapKey struct {
	Pos    Locus
	Offset int
}

// SNPMap records, for each node, the consensus loci it substitutes and
// the replacement base.
type SNPMap[N comparable] map[N]map[Locus]byte

// InsertMap records, for each node, the insertions it carries, keyed by
// the gap sub-column where they start.
type InsertMap[N comparable] map[N]map[GapKey][]byte

// DeleteMap records, for each node, the deletions it carries: consensus
// locus to deletion length (the deletion removes
// consensus[locus:locus+length]).
type DeleteMap[N comparable] map[N]map[Locus]int

// LocusKind distinguishes the three locus kinds for ordering purposes.
type LocusKind int

const (
	KindSub LocusKind = iota
	KindDel
	KindIns
)

// Event is one entry in the merged, ordered walk over a node's variants:
// see Walk.
type Event struct {
	Pos  Locus
	Kind LocusKind
	// GapOffset is meaningful only when Kind == KindIns.
	GapOffset int
}

// Walk returns, in materialization order, every substitution/deletion/
// insertion locus for node n across the three maps. At equal consensus
// positions a deletion sorts before an insertion: a deletion starting at
// p removes the consensus base at p, whereas an insertion keyed at p
// denotes "after p". A substitution and a deletion can never coexist at
// the same locus for the same node, so their relative order at equal
// positions is never observed.
func Walk[N comparable](subs SNPMap[N], ins InsertMap[N], dels DeleteMap[N], n N) []Event {
	var events []Event
	for p := range subs[n] {
		events = append(events, Event{Pos: p, Kind: KindSub})
	}
	for p := range dels[n] {
		events = append(events, Event{Pos: p, Kind: KindDel})
	}
	for k := range ins[n] {
		events = append(events, Event{Pos: k.Pos, Kind: KindIns, GapOffset: k.Offset})
	}
	sort.Slice(events, func(i, j int) bool {
		if events[i].Pos != events[j].Pos {
			return events[i].Pos < events[j].Pos
		}
		if events[i].Kind != events[j].Kind {
			// KindSub(0) and KindDel(1) never coexist at the same Pos for
			// the same node, so only the Del-before-Ins ordering is ever
			// exercised here.
			return events[i].Kind < events[j].Kind
		}
		return events[i].GapOffset < events[j].GapOffset
	})
	return events
}

// Nodes returns the node-identity key set shared by all three maps. It
// does not itself verify that the three maps agree (that's checked by
// block.Block.CheckInvariants); it simply enumerates subs' keys, which
// must equal the other two maps' key sets.
func Nodes[N comparable](subs SNPMap[N]) []N {
	ns := make([]N, 0, len(subs))
	for n := range subs {
		ns = append(ns, n)
	}
	return ns
}

// Shift translates every locus in all three maps by delta, returning new
// maps. Used by slice (negative delta) and concatenate (positive delta).
func Shift[N comparable](subs SNPMap[N], ins InsertMap[N], dels DeleteMap[N], delta int) (SNPMap[N], InsertMap[N], DeleteMap[N]) {
	outSubs := make(SNPMap[N], len(subs))
	for n, m := range subs {
		nm := make(map[Locus]byte, len(m))
		for p, b := range m {
			nm[p+Locus(delta)] = b
		}
		outSubs[n] = nm
	}
	outIns := make(InsertMap[N], len(ins))
	for n, m := range ins {
		nm := make(map[GapKey][]byte, len(m))
		for k, v := range m {
			nm[GapKey{k.Pos + Locus(delta), k.Offset}] = v
		}
		outIns[n] = nm
	}
	outDels := make(DeleteMap[N], len(dels))
	for n, m := range dels {
		nm := make(map[Locus]int, len(m))
		for p, l := range m {
			nm[p+Locus(delta)] = l
		}
		outDels[n] = nm
	}
	return outSubs, outIns, outDels
}

// Restrict returns new maps holding only the loci that fall within
// [lo, hi), translated so lo maps to 0. Deletions that extend past hi
// are clipped to end at hi-1. Insertions whose Pos falls outside [lo,hi)
// are dropped
// entirely (an insertion "belongs" to the locus it follows), except the
// Pos == -1 sentinel (anchored before the first base): that one has no
// other slice it could belong to, so it survives whenever lo == 0.
func Restrict[N comparable](subs SNPMap[N], ins InsertMap[N], dels DeleteMap[N], lo, hi Locus) (SNPMap[N], InsertMap[N], DeleteMap[N]) {
	span := interval.Interval{Start: int(lo), End: int(hi)}
	outSubs := make(SNPMap[N], len(subs))
	for n, m := range subs {
		nm := map[Locus]byte{}
		for p, b := range m {
			if span.Contains(int(p)) {
				nm[p-lo] = b
			}
		}
		outSubs[n] = nm
	}
	outIns := make(InsertMap[N], len(ins))
	for n, m := range ins {
		nm := map[GapKey][]byte{}
		for k, v := range m {
			if k.Pos == -1 && lo == 0 {
				nm[GapKey{-1, k.Offset}] = v
				continue
			}
			if span.Contains(int(k.Pos)) {
				nm[GapKey{k.Pos - lo, k.Offset}] = v
			}
		}
		outIns[n] = nm
	}
	outDels := make(DeleteMap[N], len(dels))
	for n, m := range dels {
		nm := map[Locus]int{}
		for p, l := range m {
			clipped := interval.Interval{Start: int(p), End: int(p) + l}.Intersect(span)
			if clipped.Empty() {
				continue
			}
			nm[Locus(clipped.Start)-lo] = clipped.Len()
		}
		outDels[n] = nm
	}
	return outSubs, outIns, outDels
}
