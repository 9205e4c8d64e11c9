package block_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/jemmacfen/pangraph/allele"
	"github.com/jemmacfen/pangraph/block"
)

// TestReconsensusBelowDepthThreshold: two genomes differing by one
// substitution; a depth-2 block is left untouched by reconsensus, so the
// substitution stays on the second genome's node.
func TestReconsensusBelowDepthThreshold(t *testing.T) {
	b, n1 := block.NewSingleton([]byte("ACGTACGT"))
	n2 := block.Node{ID: block.NewNodeID(), Block: b.ID, Strand: block.Forward}
	b.AddNode(n2.ID)
	b.Mutate[n2.ID][5] = 'G' // "ACGTACGT" -> "ACGTAGGT"

	// depth 2 is below the reconsensus threshold (depth >= 3): no change.
	qt.Assert(t, qt.IsNil(b.Reconsensus()))
	qt.Assert(t, qt.Equals(string(b.Sequence), "ACGTACGT"))
	qt.Assert(t, qt.Equals(b.Mutate[n2.ID][5], byte('G')))

	for _, n := range []block.NodeID{n1.ID, n2.ID} {
		_, err := b.Materialize(n)
		qt.Assert(t, qt.IsNil(err))
	}
}

func TestReconsensusIdempotent(t *testing.T) {
	// reconsensus; reconsensus === reconsensus, and materialized
	// sequences are preserved across the call.
	b, n1 := block.NewSingleton([]byte("ACGTACGTACGT"))
	n2 := block.Node{ID: block.NewNodeID(), Block: b.ID, Strand: block.Forward}
	n3 := block.Node{ID: block.NewNodeID(), Block: b.ID, Strand: block.Forward}
	b.AddNode(n2.ID)
	b.AddNode(n3.ID)
	// make the "A" at position 0 a minority: two of three nodes carry a
	// substitution there, so the new plurality differs from the stored
	// consensus and reconsensus should actually do work.
	b.Mutate[n2.ID][0] = 'T'
	b.Mutate[n3.ID][0] = 'T'

	before := map[block.NodeID][]byte{}
	for _, n := range []block.NodeID{n1.ID, n2.ID, n3.ID} {
		seq, err := b.Materialize(n)
		qt.Assert(t, qt.IsNil(err))
		before[n] = seq
	}

	qt.Assert(t, qt.IsNil(b.Reconsensus()))
	qt.Assert(t, qt.Equals(b.Sequence[0], byte('T')))

	for _, n := range []block.NodeID{n1.ID, n2.ID, n3.ID} {
		seq, err := b.Materialize(n)
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(string(seq), string(before[n])))
	}

	firstPassSeq := string(b.Sequence)
	firstPassGaps := len(b.Gaps)
	qt.Assert(t, qt.IsNil(b.Reconsensus()))
	qt.Assert(t, qt.Equals(string(b.Sequence), firstPassSeq))
	qt.Assert(t, qt.Equals(len(b.Gaps), firstPassGaps))

	for _, n := range []block.NodeID{n1.ID, n2.ID, n3.ID} {
		seq, err := b.Materialize(n)
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(string(seq), string(before[n])))
	}
}

// TestReconsensusMinorityKeepsLeadingLocus covers the plurality vote
// dropping locus 0 of the stored consensus: two of three
// nodes delete it, the third keeps it, so the new consensus shrinks by
// one base and the third node's byte must be recorded as an insertion
// anchored before the new consensus's first position.
func TestReconsensusMinorityKeepsLeadingLocus(t *testing.T) {
	b, n1 := block.NewSingleton([]byte("ACGT"))
	n2 := block.Node{ID: block.NewNodeID(), Block: b.ID, Strand: block.Forward}
	n3 := block.Node{ID: block.NewNodeID(), Block: b.ID, Strand: block.Forward}
	b.AddNode(n2.ID)
	b.AddNode(n3.ID)
	b.Delete[n2.ID][0] = 1
	b.Delete[n3.ID][0] = 1

	before := map[block.NodeID][]byte{}
	for _, n := range []block.NodeID{n1.ID, n2.ID, n3.ID} {
		seq, err := b.Materialize(n)
		qt.Assert(t, qt.IsNil(err))
		before[n] = seq
	}

	qt.Assert(t, qt.IsNil(b.Reconsensus()))
	qt.Assert(t, qt.Equals(string(b.Sequence), "CGT"))
	qt.Assert(t, qt.Equals(b.Gaps[-1], 1))
	qt.Assert(t, qt.IsNil(b.CheckInvariants()))

	for _, n := range []block.NodeID{n1.ID, n2.ID, n3.ID} {
		seq, err := b.Materialize(n)
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(string(seq), string(before[n])))
	}

	// a second pass must be idempotent, including the leading gap.
	firstGaps := len(b.Gaps)
	qt.Assert(t, qt.IsNil(b.Reconsensus()))
	qt.Assert(t, qt.Equals(len(b.Gaps), firstGaps))
	qt.Assert(t, qt.Equals(string(b.Sequence), "CGT"))
}

func TestReconsensusPromotesInsertionMajorityToConsensus(t *testing.T) {
	// Three nodes where two of three carry the same insertion after
	// position 1: reconsensus should fold that insertion into the
	// consensus sequence itself, leaving the minority node with a
	// deletion-shaped gap instead.
	b, n1 := block.NewSingleton([]byte("AAAA"))
	n2 := block.Node{ID: block.NewNodeID(), Block: b.ID, Strand: block.Forward}
	n3 := block.Node{ID: block.NewNodeID(), Block: b.ID, Strand: block.Forward}
	b.AddNode(n2.ID)
	b.AddNode(n3.ID)
	b.Gaps[1] = 2
	b.Insert[n2.ID][allele.GapKey{Pos: 1, Offset: 0}] = []byte("CC")
	b.Insert[n3.ID][allele.GapKey{Pos: 1, Offset: 0}] = []byte("CC")

	before := map[block.NodeID][]byte{}
	for _, n := range []block.NodeID{n1.ID, n2.ID, n3.ID} {
		seq, err := b.Materialize(n)
		qt.Assert(t, qt.IsNil(err))
		before[n] = seq
	}

	qt.Assert(t, qt.IsNil(b.Reconsensus()))

	for _, n := range []block.NodeID{n1.ID, n2.ID, n3.ID} {
		seq, err := b.Materialize(n)
		qt.Assert(t, qt.IsNil(err))
		qt.Assert(t, qt.Equals(string(seq), string(before[n])))
	}
}
