package block

import (
	"github.com/jemmacfen/pangraph/allele"
	"github.com/jemmacfen/pangraph/internal/pgerr"
)

// Materialize reconstructs node n's original genomic bytes by walking
// the consensus and n's variants in locus order. The returned slice is
// a fresh copy.
func (b *Block) Materialize(n NodeID) ([]byte, error) {
	const op = "block.Materialize"
	if !b.HasNode(n) {
		return nil, pgerr.Invalidf(op, "block %d has no node %d", b.ID, n)
	}
	events := allele.Walk(b.Mutate, b.Insert, b.Delete, n)
	out := make([]byte, 0, b.Len())
	r := 0
	for _, ev := range events {
		p := int(ev.Pos)
		switch ev.Kind {
		case allele.KindSub:
			out = append(out, b.Sequence[r:p]...)
			out = append(out, b.Mutate[n][ev.Pos])
			r = p + 1
		case allele.KindDel:
			out = append(out, b.Sequence[r:p]...)
			l := b.Delete[n][ev.Pos]
			r = p + l
		case allele.KindIns:
			// r can already sit past p+1 when a deletion covering p
			// precedes an insertion anchored after p (legal: they occupy
			// disjoint alignment columns).
			if p+1 > r {
				out = append(out, b.Sequence[r:p+1]...)
				r = p + 1
			}
			out = append(out, b.Insert[n][allele.GapKey{Pos: ev.Pos, Offset: ev.GapOffset}]...)
		}
	}
	out = append(out, b.Sequence[r:]...)
	return out, nil
}

// MaterializeAligned reconstructs node n's aligned row: consensus length
// plus every reserved gap column, '-' filling reserved columns the node
// doesn't use.
func (b *Block) MaterializeAligned(n NodeID) ([]byte, error) {
	const op = "block.MaterializeAligned"
	if !b.HasNode(n) {
		return nil, pgerr.Invalidf(op, "block %d has no node %d", b.ID, n)
	}
	width := b.Len()
	for _, w := range b.Gaps {
		width += w
	}
	out := make([]byte, 0, width)
	subs := b.Mutate[n]
	dels := b.Delete[n]
	ins := b.Insert[n]

	// gapColumn renders the reserved gap column after position p (or the
	// one before the first consensus base, for p == -1), '-' filling any
	// byte this node's insertion doesn't write.
	gapColumn := func(p int) []byte {
		gw, ok := b.Gaps[p]
		if !ok {
			return nil
		}
		col := make([]byte, gw)
		for i := range col {
			col[i] = '-'
		}
		for k, v := range ins {
			if int(k.Pos) != p {
				continue
			}
			copy(col[k.Offset:], v)
		}
		return col
	}

	// consolidate deletion ranges into a lookup of deleted positions.
	deleted := map[int]bool{}
	for p, l := range dels {
		for i := 0; i < l; i++ {
			deleted[int(p)+i] = true
		}
	}
	out = append(out, gapColumn(-1)...)
	for p := 0; p < b.Len(); p++ {
		if deleted[p] {
			out = append(out, '-')
		} else if base, ok := subs[allele.Locus(p)]; ok {
			out = append(out, base)
		} else {
			out = append(out, b.Sequence[p])
		}
		out = append(out, gapColumn(p)...)
	}
	return out, nil
}
