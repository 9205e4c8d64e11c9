package graph

import (
	"context"

	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/internal/pgerr"
	"github.com/jemmacfen/pangraph/internal/pworker"
)

// MSATool is the external multiple-sequence aligner Polish drives (e.g.
// mafft), an out-of-process collaborator like the pairwise aligner.
// seqs is keyed by node so implementations don't need to invent their
// own node naming scheme.
type MSATool interface {
	Align(ctx context.Context, seqs map[block.NodeID][]byte) (map[block.NodeID][]byte, error)
}

// Polish re-derives every accepted block's consensus and allele maps
// from an external MSA tool's realignment of its nodes' materialized
// sequences. Blocks are realigned independently and concurrently (the
// second of the core's two parallel phases); a tool failure on one
// block is an ExternalTool error that aborts the remaining realigns,
// but blocks whose realignment already completed keep their rebuilt
// state -- the error is surfaced after those results are applied.
func (g *Graph) Polish(ctx context.Context, accept func(*block.Block) bool, tool MSATool, concurrency int) error {
	const op = "graph.Polish"
	var ids []block.BlockID
	for id, b := range g.Blocks {
		if accept(b) {
			ids = append(ids, id)
		}
	}

	type indexedID struct {
		i  int
		id block.BlockID
	}
	items := make([]indexedID, len(ids))
	for i, id := range ids {
		items[i] = indexedID{i: i, id: id}
	}

	type result struct {
		id   block.BlockID
		rows map[block.NodeID][]byte
	}
	results := make([]result, len(ids))
	runErr := pworker.Run(ctx, pworker.Options{Concurrency: concurrency}, items, func(ctx context.Context, it indexedID) error {
		b := g.Blocks[it.id]
		seqs := map[block.NodeID][]byte{}
		for _, n := range b.Nodes() {
			seq, err := b.Materialize(n)
			if err != nil {
				return err
			}
			seqs[n] = seq
		}
		rows, err := tool.Align(ctx, seqs)
		if err != nil {
			return pgerr.External(op, err)
		}
		results[it.i] = result{id: it.id, rows: rows}
		return nil
	})

	// Apply every block whose realignment finished before any failure;
	// aborted or never-started blocks have nil rows and keep their old
	// state.
	for _, r := range results {
		if r.rows == nil {
			continue
		}
		b := g.Blocks[r.id]
		if err := b.RebuildFromAlignment(r.rows); err != nil {
			return err
		}
	}
	if err := g.RecomputeAllPositions(); err != nil {
		return err
	}
	return runErr
}
