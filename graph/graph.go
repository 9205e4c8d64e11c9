// Package graph owns the Block/Path arena: the single source of truth
// that resolves Node handles against Blocks and keeps paths in sync
// across merge, detransitive, prune, and polish. Paths and allele maps
// store opaque handles (BlockID, NodeID) rather than pointers, which
// breaks the path -> node -> block -> allele-map ownership cycle.
package graph

import (
	"sort"

	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/gpath"
	"github.com/jemmacfen/pangraph/internal/pgerr"
)

// Graph owns every block and path. It is a single-writer structure:
// all mutation happens on the controlling goroutine between parallel
// phases.
type Graph struct {
	Blocks map[block.BlockID]*block.Block
	Paths  map[string]*gpath.Path
}

// New returns an empty graph.
func New() *Graph {
	return &Graph{
		Blocks: map[block.BlockID]*block.Block{},
		Paths:  map[string]*gpath.Path{},
	}
}

// Record describes one input genome to seed a graph with.
type Record struct {
	Name     string
	Sequence []byte
	Circular bool
	Offset   int
}

// FromRecords builds a graph of singleton blocks, one per record, each
// wrapped in a one-node path.
func FromRecords(records []Record) (*Graph, error) {
	const op = "graph.FromRecords"
	g := New()
	seen := map[string]bool{}
	for _, rec := range records {
		if seen[rec.Name] {
			return nil, pgerr.Invalidf(op, "duplicate record name %q", rec.Name)
		}
		seen[rec.Name] = true
		b, n := block.NewSingleton(rec.Sequence)
		g.Blocks[b.ID] = b
		p := gpath.New(rec.Name, rec.Circular, rec.Offset)
		p.Append(n)
		g.Paths[rec.Name] = p
	}
	if err := g.RecomputeAllPositions(); err != nil {
		return nil, err
	}
	return g, nil
}

// MaterializeNode implements gpath.Materializer by dispatching to the
// owning block.
func (g *Graph) MaterializeNode(n block.Node) ([]byte, error) {
	const op = "graph.MaterializeNode"
	b, ok := g.Blocks[n.Block]
	if !ok {
		return nil, pgerr.Invariantf(op, "node %d references unknown block %d", n.ID, n.Block)
	}
	seq, err := b.Materialize(n.ID)
	if err != nil {
		return nil, err
	}
	if n.Strand == block.Reverse {
		seq = revcomp(seq)
	}
	return seq, nil
}

// NodeLength implements gpath.Lengther.
func (g *Graph) NodeLength(n block.Node) (int, error) {
	seq, err := g.MaterializeNode(n)
	if err != nil {
		return 0, err
	}
	return len(seq), nil
}

// RecomputeAllPositions refreshes every path's position table (used
// after any structural change: merge, detransitive, prune, purge).
func (g *Graph) RecomputeAllPositions() error {
	for _, name := range g.sortedPathNames() {
		if err := g.Paths[name].RecomputePositions(g); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) sortedPathNames() []string {
	names := make([]string, 0, len(g.Paths))
	for name := range g.Paths {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckInvariants validates that every node on every path resolves to a
// block that keys it, and that every retained block is used by at least
// one path.
func (g *Graph) CheckInvariants() error {
	const op = "graph.CheckInvariants"
	used := map[block.BlockID]bool{}
	for _, name := range g.sortedPathNames() {
		p := g.Paths[name]
		for _, n := range p.Nodes {
			b, ok := g.Blocks[n.Block]
			if !ok {
				return pgerr.Invariantf(op, "path %q node %d references unknown block %d", p.Name, n.ID, n.Block)
			}
			if !b.HasNode(n.ID) {
				return pgerr.Invariantf(op, "path %q node %d not keyed into block %d's allele maps", p.Name, n.ID, n.Block)
			}
			used[n.Block] = true
		}
	}
	for id := range g.Blocks {
		if !used[id] {
			return pgerr.Invariantf(op, "block %d retained with no referencing path", id)
		}
	}
	return nil
}

func revcomp(seq []byte) []byte {
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = complementBase(b)
	}
	return out
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
