package graph

import "github.com/jemmacfen/pangraph/block"

// Prune drops every block no path references.
func (g *Graph) Prune() {
	used := map[block.BlockID]bool{}
	for _, p := range g.Paths {
		for _, n := range p.Nodes {
			used[n.Block] = true
		}
	}
	for id := range g.Blocks {
		if !used[id] {
			delete(g.Blocks, id)
		}
	}
}

// Purge drops, from every path, any node whose materialized length is
// 0, also removing that node from its block's allele maps. Prune is
// then run since a block can end up with no remaining nodes.
func (g *Graph) Purge() error {
	for _, name := range g.sortedPathNames() {
		p := g.Paths[name]
		kept := p.Nodes[:0:0]
		for _, n := range p.Nodes {
			l, err := g.NodeLength(n)
			if err != nil {
				return err
			}
			if l == 0 {
				b := g.Blocks[n.Block]
				b.RemoveNode(n.ID)
				continue
			}
			kept = append(kept, n)
		}
		p.Nodes = kept
	}
	g.Prune()
	return g.RecomputeAllPositions()
}

// Keeponly drops every path not named in names, then prunes blocks that
// are no longer referenced.
func (g *Graph) Keeponly(names map[string]bool) error {
	for name := range g.Paths {
		if !names[name] {
			delete(g.Paths, name)
		}
	}
	g.Prune()
	return g.RecomputeAllPositions()
}
