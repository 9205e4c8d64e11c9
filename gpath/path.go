// Package gpath implements Path: the ordered list of nodes representing
// one genome, with support for circular rotation and a position table
// recomputed after finalization. Named gpath (not path) to avoid
// colliding with the stdlib path package.
package gpath

import (
	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/internal/pgerr"
)

// Path is one genome: an ordered, optionally circular, list of nodes.
type Path struct {
	Name     string
	Nodes    []block.Node
	Offset   int // rotation origin in nucleotides on the original input, for circular paths
	Circular bool

	// Position holds, after a call to RecomputePositions, the start
	// offset of each node on the reconstructed genome.
	Position []int
}

// New creates an empty path.
func New(name string, circular bool, offset int) *Path {
	return &Path{Name: name, Circular: circular, Offset: offset}
}

// Append adds nodes to the end of the path.
func (p *Path) Append(nodes ...block.Node) {
	p.Nodes = append(p.Nodes, nodes...)
}

// Replace substitutes the node at index i with the given ordered
// replacement nodes, preserving path order. Used by merge and
// detransitive to rewire a path after a node is split or fused.
func (p *Path) Replace(i int, with []block.Node) {
	tail := append([]block.Node(nil), p.Nodes[i+1:]...)
	p.Nodes = append(p.Nodes[:i], with...)
	p.Nodes = append(p.Nodes, tail...)
}

// ReplaceNode finds every occurrence of old (by NodeID) and replaces it
// with the given ordered replacement nodes. Used when a node is split by
// a merge: old may legitimately occur more than once (paralogs).
func (p *Path) ReplaceNode(old block.NodeID, with []block.Node) {
	for i := 0; i < len(p.Nodes); i++ {
		if p.Nodes[i].ID != old {
			continue
		}
		p.Replace(i, with)
		i += len(with) - 1
	}
}

// Len returns the number of nodes on the path.
func (p *Path) Len() int { return len(p.Nodes) }

// Materializer is satisfied by the graph's block lookup: given a node,
// materialize its genomic bytes (possibly reverse-complemented per
// strand). Kept as an interface so gpath has no dependency on the graph
// arena.
type Materializer interface {
	MaterializeNode(n block.Node) ([]byte, error)
}

// Sequence reconstructs the path's full genome by materializing and
// concatenating every node in order, reverse-complementing nodes with
// Strand == block.Reverse. For circular paths the result is
// rotated by -Offset so index 0 corresponds to the original input's
// first base; callers that want the "as materialized" order without
// undoing the rotation should use SequenceUnrotated.
func (p *Path) Sequence(m Materializer) ([]byte, error) {
	seq, err := p.SequenceUnrotated(m)
	if err != nil {
		return nil, err
	}
	if !p.Circular || p.Offset == 0 || len(seq) == 0 {
		return seq, nil
	}
	off := ((p.Offset % len(seq)) + len(seq)) % len(seq)
	rotated := make([]byte, len(seq))
	copy(rotated, seq[off:])
	copy(rotated[len(seq)-off:], seq[:off])
	return rotated, nil
}

// SequenceUnrotated reconstructs the genome in path-traversal order,
// without undoing the circular rotation offset.
func (p *Path) SequenceUnrotated(m Materializer) ([]byte, error) {
	const op = "gpath.Path.Sequence"
	var out []byte
	for _, n := range p.Nodes {
		seq, err := m.MaterializeNode(n)
		if err != nil {
			return nil, pgerr.Invalid(op, err)
		}
		out = append(out, seq...)
	}
	return out, nil
}

// Lengther reports each node's materialized length; RecomputePositions
// uses it to fill Position.
type Lengther interface {
	NodeLength(n block.Node) (int, error)
}

// RecomputePositions recomputes the Position table after a finalization
// step (merge, detransitive, prune): Position[i] is the start offset of
// Nodes[i] on the path's reconstructed, unrotated genome.
func (p *Path) RecomputePositions(m Lengther) error {
	const op = "gpath.Path.RecomputePositions"
	positions := make([]int, len(p.Nodes))
	offset := 0
	for i, n := range p.Nodes {
		positions[i] = offset
		l, err := m.NodeLength(n)
		if err != nil {
			return pgerr.Invalid(op, err)
		}
		offset += l
	}
	p.Position = positions
	return nil
}
