package graph

import (
	"sort"

	"github.com/jemmacfen/pangraph/allele"
	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/graph/topo"
	"github.com/jemmacfen/pangraph/internal/pgerr"
)

// Detransitive finds every maximal chain of blocks always traversed
// together across every genome that uses any of them, and fuses each
// into one block. Runs to a fixed point so no transitive junction
// remains regardless of how many chains interact, except a block's
// transitive junction with itself (a tandem repeat), which is left
// unfused.
func (g *Graph) Detransitive() error {
	for {
		idx := topo.NewIndex(g.pathEnds())
		chains, err := topo.ThreadChains(idx)
		if err != nil {
			return err
		}
		if len(chains) == 0 {
			break
		}
		fusedAny := false
		for _, chain := range chains {
			did, err := g.fuseChain(chain)
			if err != nil {
				return err
			}
			fusedAny = fusedAny || did
		}
		if !fusedAny {
			break
		}
	}
	return g.RecomputeAllPositions()
}

func (g *Graph) pathEnds() map[string][]topo.End {
	out := make(map[string][]topo.End, len(g.Paths))
	for name, p := range g.Paths {
		ends := make([]topo.End, len(p.Nodes))
		for i, n := range p.Nodes {
			ends[i] = topo.End{Block: n.Block, Strand: n.Strand}
		}
		out[name] = ends
	}
	return out
}

type chainOccurrence struct {
	pathName string
	start    int
	reversed bool
	nodeIDs  []block.NodeID
	fresh    block.NodeID
}

// fuseChain concatenates one maximal chain's blocks into a single new
// block and replaces every matching run in every path with one new
// node. It matches both the chain's own orientation and its reverse,
// reusing block.RevComp's tested coordinate remap for reversed
// occurrences rather than re-deriving the same math here.
func (g *Graph) fuseChain(chain []topo.End) (bool, error) {
	const op = "graph.fuseChain"
	n := len(chain)
	eff := make([]*block.Block, n)
	effOpp := make([]*block.Block, n)
	for i, e := range chain {
		b, ok := g.Blocks[e.Block]
		if !ok {
			return false, pgerr.Invariantf(op, "chain references unknown block %d", e.Block)
		}
		rc, err := b.RevComp()
		if err != nil {
			return false, err
		}
		if e.Strand == block.Reverse {
			eff[i], effOpp[i] = rc, b
		} else {
			eff[i], effOpp[i] = b, rc
		}
	}

	reversedChain := make([]topo.End, n)
	for i, e := range chain {
		reversedChain[n-1-i] = topo.End{Block: e.Block, Strand: e.Strand.Opposite()}
	}

	var occs []chainOccurrence
	for _, name := range g.sortedPathNames() {
		p := g.Paths[name]
		for i := 0; i+n <= len(p.Nodes); {
			switch {
			case endsMatch(p.Nodes, i, chain):
				occs = append(occs, chainOccurrence{pathName: name, start: i, nodeIDs: nodeIDsOf(p.Nodes, i, n)})
				i += n
			case endsMatch(p.Nodes, i, reversedChain):
				occs = append(occs, chainOccurrence{pathName: name, start: i, reversed: true, nodeIDs: nodeIDsOf(p.Nodes, i, n)})
				i += n
			default:
				i++
			}
		}
	}
	if len(occs) == 0 {
		return false, nil
	}

	newSeq := make([]byte, 0)
	newGaps := map[int]int{}
	offsets := make([]int, n)
	delta := 0
	for i, b := range eff {
		offsets[i] = delta
		newSeq = append(newSeq, b.Sequence...)
		for p, w := range b.Gaps {
			// a leading gap of b shares its slot with the previous
			// block's trailing gap; keep the wider reservation.
			if w > newGaps[p+delta] {
				newGaps[p+delta] = w
			}
		}
		delta += b.Len()
	}

	revSeq := make([]byte, 0)
	revGaps := map[int]int{}
	revOffsets := make([]int, n)
	rdelta := 0
	for i := 0; i < n; i++ {
		b := effOpp[n-1-i]
		revOffsets[i] = rdelta
		revSeq = append(revSeq, b.Sequence...)
		for p, w := range b.Gaps {
			if w > revGaps[p+rdelta] {
				revGaps[p+rdelta] = w
			}
		}
		rdelta += b.Len()
	}
	revTemplate := block.New(revSeq)
	revTemplate.Gaps = revGaps
	revTemplate.Mutate = allele.SNPMap[block.NodeID]{}
	revTemplate.Insert = allele.InsertMap[block.NodeID]{}
	revTemplate.Delete = allele.DeleteMap[block.NodeID]{}

	newMutate := allele.SNPMap[block.NodeID]{}
	newInsert := allele.InsertMap[block.NodeID]{}
	newDelete := allele.DeleteMap[block.NodeID]{}

	for oi := range occs {
		occ := &occs[oi]
		occ.fresh = block.NewNodeID()
		subs, ins, dels := map[allele.Locus]byte{}, map[allele.GapKey][]byte{}, map[allele.Locus]int{}
		if !occ.reversed {
			for i, b := range eff {
				nid, d := occ.nodeIDs[i], offsets[i]
				for p, v := range b.Mutate[nid] {
					subs[allele.Locus(int(p)+d)] = v
				}
				for k, v := range b.Insert[nid] {
					ins[allele.GapKey{Pos: allele.Locus(int(k.Pos) + d), Offset: k.Offset}] = v
				}
				for p, l := range b.Delete[nid] {
					dels[allele.Locus(int(p)+d)] = l
				}
			}
			newMutate[occ.fresh], newInsert[occ.fresh], newDelete[occ.fresh] = subs, ins, dels
			continue
		}
		for i := 0; i < n; i++ {
			b, nid, d := effOpp[n-1-i], occ.nodeIDs[i], revOffsets[i]
			for p, v := range b.Mutate[nid] {
				subs[allele.Locus(int(p)+d)] = v
			}
			for k, v := range b.Insert[nid] {
				ins[allele.GapKey{Pos: allele.Locus(int(k.Pos) + d), Offset: k.Offset}] = v
			}
			for p, l := range b.Delete[nid] {
				dels[allele.Locus(int(p)+d)] = l
			}
		}
		revTemplate.Mutate[occ.fresh], revTemplate.Insert[occ.fresh], revTemplate.Delete[occ.fresh] = subs, ins, dels
	}

	if len(revTemplate.Mutate) > 0 {
		// the template inherits every chain gap, but only the reversed
		// occurrences' insertions; drop slots none of them back so every
		// template gap keeps a backing insertion (the fused block still
		// carries the full gap table).
		backed := map[int]bool{}
		for _, m := range revTemplate.Insert {
			for k := range m {
				backed[int(k.Pos)] = true
			}
		}
		for p := range revTemplate.Gaps {
			if !backed[p] {
				delete(revTemplate.Gaps, p)
			}
		}
		flipped, err := revTemplate.RevComp()
		if err != nil {
			return false, err
		}
		for nid, m := range flipped.Mutate {
			newMutate[nid] = m
			newInsert[nid] = flipped.Insert[nid]
			newDelete[nid] = flipped.Delete[nid]
		}
	}

	fused := block.New(newSeq)
	fused.Gaps = newGaps
	fused.Mutate, fused.Insert, fused.Delete = newMutate, newInsert, newDelete
	if err := fused.CheckInvariants(); err != nil {
		return false, err
	}
	if err := fused.Reconsensus(); err != nil {
		return false, err
	}

	byPath := map[string][]chainOccurrence{}
	for _, occ := range occs {
		byPath[occ.pathName] = append(byPath[occ.pathName], occ)
	}
	for name, list := range byPath {
		sort.Slice(list, func(i, j int) bool { return list[i].start > list[j].start })
		p := g.Paths[name]
		for _, occ := range list {
			strand := block.Forward
			if occ.reversed {
				strand = block.Reverse
			}
			p.Replace(occ.start, []block.Node{{ID: occ.fresh, Block: fused.ID, Strand: strand}})
		}
	}

	g.Blocks[fused.ID] = fused
	for _, e := range chain {
		if !g.blockStillUsed(e.Block) {
			delete(g.Blocks, e.Block)
		}
	}
	return true, nil
}

func endsMatch(nodes []block.Node, start int, pattern []topo.End) bool {
	for i, e := range pattern {
		n := nodes[start+i]
		if n.Block != e.Block || n.Strand != e.Strand {
			return false
		}
	}
	return true
}

func nodeIDsOf(nodes []block.Node, start, n int) []block.NodeID {
	ids := make([]block.NodeID, n)
	for i := 0; i < n; i++ {
		ids[i] = nodes[start+i].ID
	}
	return ids
}

func (g *Graph) blockStillUsed(id block.BlockID) bool {
	for _, p := range g.Paths {
		for _, n := range p.Nodes {
			if n.Block == id {
				return true
			}
		}
	}
	return false
}
