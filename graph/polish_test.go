package graph_test

import (
	"context"
	"errors"
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/graph"
)

// prependMSA "realigns" by prepending a base to every sequence, so an
// applied result is observable on the block's consensus; it fails
// outright on the poison sequence.
type prependMSA struct {
	poison string
}

func (m prependMSA) Align(_ context.Context, seqs map[block.NodeID][]byte) (map[block.NodeID][]byte, error) {
	out := map[block.NodeID][]byte{}
	for n, s := range seqs {
		if string(s) == m.poison {
			return nil, errors.New("tool crashed")
		}
		out[n] = append([]byte("A"), s...)
	}
	return out, nil
}

// TestPolishPreservesCompletedBlocksOnToolFailure: a tool failure on one
// block surfaces as an error, but blocks whose realignment already
// completed keep their rebuilt consensus.
func TestPolishPreservesCompletedBlocksOnToolFailure(t *testing.T) {
	g, err := graph.FromRecords([]graph.Record{
		{Name: "good", Sequence: []byte("ACGT")},
		{Name: "bad", Sequence: []byte("TTTT")},
	})
	qt.Assert(t, qt.IsNil(err))

	accept := func(*block.Block) bool { return true }
	polishErr := g.Polish(context.Background(), accept, prependMSA{poison: "TTTT"}, 2)
	qt.Assert(t, qt.IsNotNil(polishErr))

	goodID := g.Paths["good"].Nodes[0].Block
	qt.Assert(t, qt.Equals(string(g.Blocks[goodID].Sequence), "AACGT"))

	badID := g.Paths["bad"].Nodes[0].Block
	qt.Assert(t, qt.Equals(string(g.Blocks[badID].Sequence), "TTTT"))
}
