package block

import (
	"github.com/jemmacfen/pangraph/allele"
	"github.com/jemmacfen/pangraph/internal/pgerr"
	"github.com/jemmacfen/pangraph/interval"
)

// Slice returns a new block covering consensus positions [i, j), with
// the same node set as b. Gaps at position j-1 (the last
// included position) are preserved; the rest are restricted to the
// range and translated by -i.
func (b *Block) Slice(i, j int) (*Block, error) {
	const op = "block.Slice"
	if i < 0 || j > b.Len() || i > j {
		return nil, pgerr.Invalidf(op, "slice [%d,%d) out of bounds for block of length %d", i, j, b.Len())
	}
	out := New(b.Sequence[i:j])
	subs, ins, dels := allele.Restrict(b.Mutate, b.Insert, b.Delete, allele.Locus(i), allele.Locus(j))
	out.Mutate, out.Insert, out.Delete = subs, ins, dels
	span := interval.Interval{Start: i, End: j}
	for p, w := range b.Gaps {
		if p == -1 && i == 0 {
			out.Gaps[-1] = w
			continue
		}
		if span.Contains(p) {
			out.Gaps[p-i] = w
		}
	}
	if err := out.CheckInvariants(); err != nil {
		return nil, err
	}
	return out, nil
}

// Concat concatenates blocks in order into a new block. All blocks must
// share the same node set.
func Concat(blocks ...*Block) (*Block, error) {
	const op = "block.Concat"
	if len(blocks) == 0 {
		return nil, pgerr.Invalidf(op, "no blocks to concatenate")
	}
	want := blocks[0].Nodes()
	wantSet := map[NodeID]bool{}
	for _, n := range want {
		wantSet[n] = true
	}
	var seq []byte
	out := &Block{
		ID:     NewBlockID(),
		Gaps:   map[int]int{},
		Mutate: allele.SNPMap[NodeID]{},
		Insert: allele.InsertMap[NodeID]{},
		Delete: allele.DeleteMap[NodeID]{},
	}
	for n := range wantSet {
		out.Mutate[n] = map[allele.Locus]byte{}
		out.Insert[n] = map[allele.GapKey][]byte{}
		out.Delete[n] = map[allele.Locus]int{}
	}
	delta := 0
	for _, bi := range blocks {
		if len(bi.Nodes()) != len(wantSet) {
			return nil, pgerr.Invalidf(op, "block %d has a different node set", bi.ID)
		}
		for n := range wantSet {
			if !bi.HasNode(n) {
				return nil, pgerr.Invalidf(op, "block %d missing node %d present in block %d", bi.ID, n, blocks[0].ID)
			}
		}
		subs, ins, dels := allele.Shift(bi.Mutate, bi.Insert, bi.Delete, delta)
		for n, m := range subs {
			for p, v := range m {
				out.Mutate[n][p] = v
			}
		}
		for n, m := range ins {
			for k, v := range m {
				out.Insert[n][k] = v
			}
		}
		for n, m := range dels {
			for p, l := range m {
				out.Delete[n][p] = l
			}
		}
		for p, w := range bi.Gaps {
			// a leading gap (Pos == -1) of bi and a trailing gap of the
			// previous block land on the same key; the reserved width must
			// cover both sides' insertions.
			if w > out.Gaps[p+delta] {
				out.Gaps[p+delta] = w
			}
		}
		seq = append(seq, bi.Sequence...)
		delta += bi.Len()
	}
	out.Sequence = seq
	if err := out.CheckInvariants(); err != nil {
		return nil, err
	}
	return out, nil
}

// RevComp returns the reverse complement of b: consensus is complemented
// and reversed, and every allele locus is remapped so the block
// materializes, for each node, the reverse complement of what it
// materialized before.
func (b *Block) RevComp() (*Block, error) {
	const op = "block.RevComp"
	n := b.Len()
	out := New(revcompBytes(b.Sequence))
	out.Mutate = allele.SNPMap[NodeID]{}
	out.Insert = allele.InsertMap[NodeID]{}
	out.Delete = allele.DeleteMap[NodeID]{}

	for node, m := range b.Mutate {
		nm := map[allele.Locus]byte{}
		for p, v := range m {
			nm[allele.Locus(n-1)-p] = complementBase(v)
		}
		out.Mutate[node] = nm
	}
	for node, m := range b.Delete {
		nm := map[allele.Locus]int{}
		for p, l := range m {
			// deletion [p, p+l) -> [n-p-l, n-p)
			nm[allele.Locus(n)-p-allele.Locus(l)] = l
		}
		out.Delete[node] = nm
	}
	for node, m := range b.Insert {
		nm := map[allele.GapKey][]byte{}
		for k, v := range m {
			gw := b.Gaps[int(k.Pos)]
			// a gap anchored after p holds bytes that read, forward, as
			// "whatever comes right before p+1"; reverse-complementing
			// the block flips that to "right after" the mirrored
			// position, one before where a plain position flip (n-1-p)
			// would land -- including the p == n-1 (trailing insert)
			// case mapping to the -1 sentinel (insert before position 0).
			newPos := allele.Locus(n) - k.Pos - 2
			newOffset := gw - k.Offset - len(v)
			if newOffset < 0 {
				return nil, pgerr.Invariantf(op, "node %d gap offset underflow during revcomp at pos %d", node, k.Pos)
			}
			nm[allele.GapKey{Pos: newPos, Offset: newOffset}] = revcompBytes(v)
		}
		out.Insert[node] = nm
	}
	for p, w := range b.Gaps {
		out.Gaps[n-p-2] = w
	}
	if err := out.CheckInvariants(); err != nil {
		return nil, err
	}
	return out, nil
}

var complement = map[byte]byte{
	'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A', 'N': 'N',
	'a': 't', 'c': 'g', 'g': 'c', 't': 'a', 'n': 'n',
	'-': '-',
}

func complementBase(b byte) byte {
	if c, ok := complement[b]; ok {
		return c
	}
	return 'N'
}

func revcompBytes(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = complementBase(b)
	}
	return out
}
