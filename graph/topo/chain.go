package topo

import (
	"sort"

	"github.com/jemmacfen/pangraph/internal/pgerr"
)

// ThreadChains threads every transitive junction in idx into maximal
// oriented chains of block ends. Because
// transitivity requires every isolate of either endpoint block to cross
// the junction, a block end can participate in at most one outgoing and
// one incoming transitive junction -- branching would mean some isolate
// of the shared block skipped the junction, which contradicts
// transitivity. That per-end uniqueness is what makes the forward/
// backward maps below well-defined and is also why chains never cross.
func ThreadChains(idx *Index) ([][]End, error) {
	const op = "topo.ThreadChains"
	tj := idx.TransitiveJunctions()

	forward := map[End]End{}
	backward := map[End]End{}
	allEnds := map[End]bool{}
	for _, j := range tj {
		if existing, ok := forward[j.Left]; ok && existing != j.Right {
			return nil, pgerr.Invariantf(op, "block %d strand %v has incompatible transitive junctions to blocks %d and %d", j.Left.Block, j.Left.Strand, existing.Block, j.Right.Block)
		}
		forward[j.Left] = j.Right
		if existing, ok := backward[j.Right]; ok && existing != j.Left {
			return nil, pgerr.Invariantf(op, "block %d strand %v is reached by incompatible transitive junctions from blocks %d and %d", j.Right.Block, j.Right.Strand, existing.Block, j.Left.Block)
		}
		backward[j.Right] = j.Left
		allEnds[j.Left] = true
		allEnds[j.Right] = true
	}

	ends := sortedEnds(allEnds)
	visited := map[End]bool{}
	var chains [][]End

	// Linear chains: start from every end with no transitive predecessor
	// and walk forward until the chain runs out.
	for _, e := range ends {
		if visited[e] {
			continue
		}
		if _, hasBack := backward[e]; hasBack {
			continue
		}
		chain := []End{e}
		visited[e] = true
		cur := e
		for {
			next, ok := forward[cur]
			if !ok || visited[next] {
				break
			}
			chain = append(chain, next)
			visited[next] = true
			cur = next
		}
		if len(chain) > 1 {
			chains = append(chains, chain)
		}
	}

	// Whatever's left forms pure cycles (every end has both a
	// predecessor and a successor): walk each starting at its smallest
	// end for determinism. A tandem repeat -- a block adjacent to itself
	// in the same orientation on every path using it -- shows up here as
	// a self-cycle of one end; fusing it would rebuild the same topology
	// under a fresh block and never converge, so single-end chains are
	// skipped just as in the linear walk above.
	for _, e := range ends {
		if visited[e] {
			continue
		}
		chain := []End{e}
		visited[e] = true
		for cur := e; ; {
			next := forward[cur]
			if next == e {
				break
			}
			chain = append(chain, next)
			visited[next] = true
			cur = next
		}
		if len(chain) > 1 {
			chains = append(chains, chain)
		}
	}
	return chains, nil
}

func sortedEnds(set map[End]bool) []End {
	out := make([]End, 0, len(set))
	for e := range set {
		out = append(out, e)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Block != out[j].Block {
			return out[i].Block < out[j].Block
		}
		return out[i].Strand < out[j].Strand
	})
	return out
}
