package merge

import (
	"github.com/jemmacfen/pangraph/align"
	"github.com/jemmacfen/pangraph/allele"
	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/internal/pgerr"
)

// NodeMap associates an original node identity with the fresh node
// identity minted for it in a newly instantiated segment block.
type NodeMap map[block.NodeID]block.NodeID

// Fused is the result of instantiating one partition segment.
type Fused struct {
	Segment  Segment
	Block    *block.Block
	QryNodes NodeMap
	RefNodes NodeMap
}

// GapPacking selects how re-reference places query insertion bytes into
// an existing reference-side gap.
type GapPacking int

const (
	// GapPackLeft Hamming-aligns the insertion against whatever the gap
	// already holds and otherwise packs it flush left. It is the only
	// implemented strategy; aligning consensus sequences within
	// overlapping gaps is a known extension and fails fast until built.
	GapPackLeft GapPacking = iota
)

// Options configures the merge: MinBlock is the indel-splitting
// threshold Partition applies (zero means DefaultMinBlock), Packing the
// gap-placement strategy for re-reference.
type Options struct {
	MinBlock int
	Packing  GapPacking
}

// remintNodes slices src over [lo,hi) and mints a fresh node identity
// for every node the slice carries, returning the new block (keyed on
// the fresh identities) and the old->new mapping.
func remintNodes(src *block.Block, lo, hi int) (*block.Block, NodeMap, error) {
	sl, err := src.Slice(lo, hi)
	if err != nil {
		return nil, nil, err
	}
	mapping := NodeMap{}
	out := block.New(sl.Sequence)
	out.Gaps = sl.Gaps
	out.Mutate = allele.SNPMap[block.NodeID]{}
	out.Insert = allele.InsertMap[block.NodeID]{}
	out.Delete = allele.DeleteMap[block.NodeID]{}
	for _, old := range sl.Nodes() {
		fresh := block.NewNodeID()
		mapping[old] = fresh
		out.Mutate[fresh] = sl.Mutate[old]
		out.Insert[fresh] = sl.Insert[old]
		out.Delete[fresh] = sl.Delete[old]
	}
	if err := out.CheckInvariants(); err != nil {
		return nil, nil, err
	}
	return out, mapping, nil
}

// Instantiate turns every partition segment into a Fused block. For
// SegMatched segments it runs re-reference fusion; for
// SegQryOnly/SegRefOnly it's a plain re-minted slice.
func Instantiate(qBlock, rBlock *block.Block, segs []Segment, opts Options) ([]Fused, error) {
	const op = "merge.Instantiate"
	out := make([]Fused, 0, len(segs))
	for _, seg := range segs {
		switch seg.Kind {
		case SegQryOnly:
			b, m, err := remintNodes(qBlock, seg.QRange.Start, seg.QRange.End)
			if err != nil {
				return nil, err
			}
			out = append(out, Fused{Segment: seg, Block: b, QryNodes: m})
		case SegRefOnly:
			b, m, err := remintNodes(rBlock, seg.RRange.Start, seg.RRange.End)
			if err != nil {
				return nil, err
			}
			out = append(out, Fused{Segment: seg, Block: b, RefNodes: m})
		case SegMatched:
			b, qm, rm, err := fuseMatched(qBlock, rBlock, seg, opts)
			if err != nil {
				return nil, err
			}
			out = append(out, Fused{Segment: seg, Block: b, QryNodes: qm, RefNodes: rm})
		default:
			return nil, pgerr.Invariantf(op, "unknown segment kind %d", seg.Kind)
		}
	}
	return out, nil
}

// fuseMatched is the re-reference step: the query slice q and reference
// slice r are fused into one output block whose consensus is r's,
// walking the segment's interior CIGAR with two cursors (x_q, x_r)
// relative to the slices' own coordinate frames.
func fuseMatched(qBlock, rBlock *block.Block, seg Segment, opts Options) (*block.Block, NodeMap, NodeMap, error) {
	const op = "merge.fuseMatched"
	if opts.Packing != GapPackLeft {
		return nil, nil, nil, pgerr.Unsupportedf(op, "gap packing strategy %d not implemented", opts.Packing)
	}
	qSlice, err := qBlock.Slice(seg.QRange.Start, seg.QRange.End)
	if err != nil {
		return nil, nil, nil, err
	}
	rSlice, err := rBlock.Slice(seg.RRange.Start, seg.RRange.End)
	if err != nil {
		return nil, nil, nil, err
	}

	out := block.New(rSlice.Sequence)
	out.Mutate = allele.SNPMap[block.NodeID]{}
	out.Insert = allele.InsertMap[block.NodeID]{}
	out.Delete = allele.DeleteMap[block.NodeID]{}
	out.Gaps = map[int]int{}
	for p, w := range rSlice.Gaps {
		out.Gaps[p] = w
	}

	rm := NodeMap{}
	for _, old := range rSlice.Nodes() {
		fresh := block.NewNodeID()
		rm[old] = fresh
		out.Mutate[fresh] = rSlice.Mutate[old]
		out.Insert[fresh] = rSlice.Insert[old]
		out.Delete[fresh] = rSlice.Delete[old]
	}
	qm := NodeMap{}
	for _, old := range qSlice.Nodes() {
		fresh := block.NewNodeID()
		qm[old] = fresh
		out.Mutate[fresh] = map[allele.Locus]byte{}
		out.Insert[fresh] = map[allele.GapKey][]byte{}
		out.Delete[fresh] = map[allele.Locus]int{}
	}

	mergeGap := func(pos, width int) {
		if width <= 0 {
			return
		}
		if existing, ok := out.Gaps[pos]; !ok || width > existing {
			out.Gaps[pos] = width
		}
	}

	xq, xr := 0, 0
	for _, c := range seg.Interior {
		switch c.Op {
		case align.OpMatch:
			for k := 0; k < c.N; k++ {
				qpos, rpos := allele.Locus(xq+k), allele.Locus(xr+k)
				rbase := rSlice.Sequence[rpos]
				qbase := qSlice.Sequence[qpos]
				for oldQ, freshQ := range qm {
					if v, ok := qSlice.Mutate[oldQ][qpos]; ok {
						out.Mutate[freshQ][rpos] = v
					} else if qbase != rbase {
						out.Mutate[freshQ][rpos] = qbase
					}
				}
				if gw, ok := qSlice.Gaps[int(qpos)]; ok {
					mergeGap(int(rpos), gw)
					for oldQ, freshQ := range qm {
						for k2, v := range qSlice.Insert[oldQ] {
							if k2.Pos == qpos {
								out.Insert[freshQ][allele.GapKey{Pos: rpos, Offset: k2.Offset}] = v
							}
						}
					}
				}
			}
			for oldQ, freshQ := range qm {
				for p, l := range qSlice.Delete[oldQ] {
					if int(p) >= xq && int(p) < xq+c.N {
						rpos := xr + (int(p) - xq)
						out.Delete[freshQ][allele.Locus(rpos)] = l
					}
				}
			}
			xq += c.N
			xr += c.N
		case align.OpDelete:
			for _, freshQ := range qm {
				out.Delete[freshQ][allele.Locus(xr)] = c.N
			}
			resolveOverhang(out, qm, rSlice, xr, c.N)
			xr += c.N
		case align.OpInsert:
			for oldQ, freshQ := range qm {
				sub, err := qSlice.Slice(xq, xq+c.N)
				if err != nil {
					return nil, nil, nil, err
				}
				bs, err := sub.Materialize(oldQ)
				if err != nil {
					return nil, nil, nil, err
				}
				if len(bs) == 0 {
					continue
				}
				gapPos := xr - 1
				existing := existingInsertBytes(out, freshQ, gapPos)
				delta := hammingOffset(bs, existing)
				if delta < 0 {
					return nil, nil, nil, pgerr.Unsupportedf(op, "negative hamming offset placing insertion at gap %d", gapPos)
				}
				out.Insert[freshQ][allele.GapKey{Pos: allele.Locus(gapPos), Offset: delta}] = bs
				mergeGap(gapPos, delta+len(bs))
			}
			xq += c.N
		default:
			return nil, nil, nil, pgerr.Unsupportedf(op, "cigar op %q not in {M,I,D}", byte(c.Op))
		}
	}

	if err := out.CheckInvariants(); err != nil {
		return nil, nil, nil, err
	}
	if err := out.Reconsensus(); err != nil {
		return nil, nil, nil, err
	}
	return out, qm, rm, nil
}

// resolveOverhang handles an insertion that abuts a reference-only
// deletion: if a node carries an insertion ending immediately before the
// deleted range, a prefix of those bytes may really be the about-to-be-
// deleted reference bases, so the deletion shrinks by the matching
// prefix and any unmatched suffix re-anchors as a right-overhang
// insertion. Only left-packing is attempted; aligning within
// overlapping gaps is a known extension.
func resolveOverhang(out *block.Block, qm NodeMap, rSlice *block.Block, xr, delLen int) {
	gapPos := xr - 1
	if gapPos < 0 {
		return
	}
	for _, freshQ := range qm {
		var foundKey allele.GapKey
		var bs []byte
		found := false
		for k, v := range out.Insert[freshQ] {
			if int(k.Pos) == gapPos {
				foundKey, bs, found = k, v, true
				break
			}
		}
		if !found || len(bs) == 0 {
			continue
		}
		overlap := len(bs)
		if overlap > delLen {
			overlap = delLen
		}
		matched := 0
		for matched < overlap && bs[matched] == rSlice.Sequence[xr+matched] {
			matched++
		}
		if matched == 0 {
			continue
		}
		delete(out.Insert[freshQ], foundKey)
		if !anyInsertAtGap(out, gapPos) {
			delete(out.Gaps, gapPos)
		}
		delete(out.Delete[freshQ], allele.Locus(xr))
		if matched < delLen {
			out.Delete[freshQ][allele.Locus(xr+matched)] = delLen - matched
		}
		if rem := bs[matched:]; len(rem) > 0 {
			newAnchor := xr + matched - 1
			out.Insert[freshQ][allele.GapKey{Pos: allele.Locus(newAnchor), Offset: 0}] = rem
			if w := out.Gaps[newAnchor]; len(rem) > w {
				out.Gaps[newAnchor] = len(rem)
			}
		}
	}
}

// anyInsertAtGap reports whether any node still carries an insertion
// anchored at gap position pos, across the whole fused block -- used to
// tell whether a gap column resolveOverhang just emptied still has a
// backing insertion elsewhere.
func anyInsertAtGap(b *block.Block, pos int) bool {
	for _, m := range b.Insert {
		for k := range m {
			if int(k.Pos) == pos {
				return true
			}
		}
	}
	return false
}

// existingInsertBytes returns whatever bytes are already recorded for
// node n at gap position pos (from an earlier column in the same
// matched walk), used as the Hamming-alignment target for a later
// insertion sharing that gap.
func existingInsertBytes(b *block.Block, n block.NodeID, pos int) []byte {
	var best []byte
	for k, v := range b.Insert[n] {
		if int(k.Pos) == pos && len(v) > len(best) {
			best = v
		}
	}
	return best
}

// hammingOffset returns the offset at which ins should be placed
// relative to existing so the overlapping region minimizes mismatches,
// defaulting to 0 when existing is empty. Never returns a negative
// offset; placements left of the gap's start are unsupported.
func hammingOffset(ins, existing []byte) int {
	if len(existing) == 0 {
		return 0
	}
	best, bestMismatches := 0, -1
	maxOffset := len(existing)
	for off := 0; off <= maxOffset; off++ {
		mismatches := 0
		for i := 0; i < len(ins) && off+i < len(existing); i++ {
			if ins[i] != existing[off+i] {
				mismatches++
			}
		}
		if bestMismatches < 0 || mismatches < bestMismatches {
			best, bestMismatches = off, mismatches
		}
	}
	return best
}
