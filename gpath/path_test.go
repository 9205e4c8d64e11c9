package gpath_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/gpath"
)

// fakeMaterializer materializes each node as a fixed byte sequence keyed
// by block ID, reverse-complementing on Strand == block.Reverse, letting
// path tests run without a full graph.
type fakeMaterializer map[block.BlockID][]byte

func (m fakeMaterializer) MaterializeNode(n block.Node) ([]byte, error) {
	seq := m[n.Block]
	if n.Strand == block.Reverse {
		seq = revcomp(seq)
	}
	return seq, nil
}

func (m fakeMaterializer) NodeLength(n block.Node) (int, error) {
	seq, err := m.MaterializeNode(n)
	return len(seq), err
}

func revcomp(seq []byte) []byte {
	comp := map[byte]byte{'A': 'T', 'C': 'G', 'G': 'C', 'T': 'A'}
	out := make([]byte, len(seq))
	for i, b := range seq {
		out[len(seq)-1-i] = comp[b]
	}
	return out
}

func TestSequenceConcatenatesNodesInOrder(t *testing.T) {
	m := fakeMaterializer{1: []byte("ACGT"), 2: []byte("TTTT")}
	p := gpath.New("g1", false, 0)
	p.Append(block.Node{ID: 1, Block: 1, Strand: block.Forward})
	p.Append(block.Node{ID: 2, Block: 2, Strand: block.Forward})

	seq, err := p.Sequence(m)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(seq), "ACGTTTTT"))
}

func TestSequenceReverseComplementsReverseNodes(t *testing.T) {
	m := fakeMaterializer{1: []byte("ACGT")}
	p := gpath.New("g1", false, 0)
	p.Append(block.Node{ID: 1, Block: 1, Strand: block.Reverse})

	seq, err := p.Sequence(m)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(seq), "ACGT")) // ACGT revcomp is ACGT
}

func TestSequenceRotatesCircularPathByOffset(t *testing.T) {
	m := fakeMaterializer{1: []byte("ABCDEFGH")}
	p := gpath.New("g1", true, 3)
	p.Append(block.Node{ID: 1, Block: 1, Strand: block.Forward})

	seq, err := p.Sequence(m)
	qt.Assert(t, qt.IsNil(err))
	// rotate "ABCDEFGH" by -3 back to original input frame: offset 3
	// means the original genome's first base sits at index 3 of the
	// materialized traversal, so undoing it shifts the first 3 bytes to
	// the tail.
	qt.Assert(t, qt.Equals(string(seq), "DEFGHABC"))
}

func TestReplaceNodeSplitsEveryOccurrence(t *testing.T) {
	p := gpath.New("g1", false, 0)
	old := block.Node{ID: 5, Block: 1, Strand: block.Forward}
	p.Append(old, block.Node{ID: 6, Block: 2, Strand: block.Forward}, old)

	repl := []block.Node{
		{ID: 10, Block: 3, Strand: block.Forward},
		{ID: 11, Block: 4, Strand: block.Forward},
	}
	p.ReplaceNode(5, repl)

	qt.Assert(t, qt.Equals(p.Len(), 5))
	qt.Assert(t, qt.Equals(p.Nodes[0].ID, block.NodeID(10)))
	qt.Assert(t, qt.Equals(p.Nodes[1].ID, block.NodeID(11)))
	qt.Assert(t, qt.Equals(p.Nodes[2].ID, block.NodeID(6)))
	qt.Assert(t, qt.Equals(p.Nodes[3].ID, block.NodeID(10)))
	qt.Assert(t, qt.Equals(p.Nodes[4].ID, block.NodeID(11)))
}

func TestRecomputePositionsTracksCumulativeOffsets(t *testing.T) {
	m := fakeMaterializer{1: []byte("ACGT"), 2: []byte("TTT")}
	p := gpath.New("g1", false, 0)
	p.Append(block.Node{ID: 1, Block: 1, Strand: block.Forward})
	p.Append(block.Node{ID: 2, Block: 2, Strand: block.Forward})

	qt.Assert(t, qt.IsNil(p.RecomputePositions(m)))
	qt.Assert(t, qt.DeepEquals(p.Position, []int{0, 4}))
}
