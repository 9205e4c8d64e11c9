package graph

import (
	"context"

	"github.com/jemmacfen/pangraph/align"
	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/internal/pgerr"
	"github.com/jemmacfen/pangraph/internal/pqueue"
	"github.com/jemmacfen/pangraph/internal/pworker"
	"github.com/jemmacfen/pangraph/merge"
)

// Merge partitions the alignment between two blocks, instantiates the
// resulting segments, rewires every path that referenced either block's
// nodes, and replaces the two originals with the new segment blocks.
func (g *Graph) Merge(qID, rID block.BlockID, a align.Alignment, opts merge.Options) error {
	const op = "graph.Merge"
	if qID == rID {
		return pgerr.Invalidf(op, "cannot merge block %d with itself", qID)
	}
	qBlock, ok := g.Blocks[qID]
	if !ok {
		return pgerr.Invariantf(op, "unknown query block %d", qID)
	}
	rBlock, ok := g.Blocks[rID]
	if !ok {
		return pgerr.Invariantf(op, "unknown reference block %d", rID)
	}

	nodeStrand := g.nodeStrands()

	effQBlock := qBlock
	flipQuery := a.Strand == align.Minus
	if flipQuery {
		rc, err := qBlock.RevComp()
		if err != nil {
			return err
		}
		effQBlock = rc
	}

	segs, err := merge.Partition(effQBlock.Len(), rBlock.Len(), a, opts.MinBlock)
	if err != nil {
		return err
	}
	fused, err := merge.Instantiate(effQBlock, rBlock, segs, opts)
	if err != nil {
		return err
	}

	qReplacement := map[block.NodeID][]block.Node{}
	rReplacement := map[block.NodeID][]block.Node{}
	for _, f := range fused {
		for oldID, freshID := range f.QryNodes {
			strand := nodeStrand[oldID]
			if flipQuery {
				strand = strand.Opposite()
			}
			qReplacement[oldID] = append(qReplacement[oldID], block.Node{ID: freshID, Block: f.Block.ID, Strand: strand})
		}
		for oldID, freshID := range f.RefNodes {
			rReplacement[oldID] = append(rReplacement[oldID], block.Node{ID: freshID, Block: f.Block.ID, Strand: nodeStrand[oldID]})
		}
	}

	// A node traversing the fused segments on the reverse strand walks
	// them in descending coordinate order, so its replacement run must be
	// reversed. The deciding strand is the replacement nodes' own (for
	// query nodes this is the path strand flipped when the alignment was
	// minus-strand, since segments are laid out on the revcomp'd query).
	for oldID, repl := range qReplacement {
		if repl[0].Strand == block.Reverse {
			reverseNodes(repl)
		}
		g.replaceEverywhere(oldID, repl)
	}
	for oldID, repl := range rReplacement {
		if repl[0].Strand == block.Reverse {
			reverseNodes(repl)
		}
		g.replaceEverywhere(oldID, repl)
	}

	delete(g.Blocks, qID)
	delete(g.Blocks, rID)
	for _, f := range fused {
		g.Blocks[f.Block.ID] = f.Block
	}
	return g.RecomputeAllPositions()
}

// indexedPair pairs one alignment request with its position, so
// pworker's per-item task can write its result into a pre-sized slice
// without the callers racing on a shared index.
type indexedPair struct {
	i int
	p align.Pair
}

// MergeAll aligns every pair independently with bounded concurrency
// (one of the core's two parallel phases; internal/pworker is the
// shared primitive both this and Graph.Polish use) and then applies
// every accepted alignment's Merge sequentially on the controlling
// goroutine, since the graph is a single-writer structure.
func MergeAll(ctx context.Context, g *Graph, aligner align.Aligner, pairs []align.Pair, blockOf func(align.Pair) (qID, rID block.BlockID), opts merge.Options, concurrency int) error {
	const op = "graph.MergeAll"
	items := make([]indexedPair, len(pairs))
	for i, p := range pairs {
		items[i] = indexedPair{i: i, p: p}
	}
	results := make([]align.Result, len(pairs))
	runErr := pworker.Run(ctx, pworker.Options{Concurrency: concurrency}, items, func(ctx context.Context, it indexedPair) error {
		rs, err := aligner.Align(ctx, []align.Pair{it.p})
		if err != nil {
			return pgerr.External(op, err)
		}
		if len(rs) != 1 {
			return pgerr.Invariantf(op, "aligner returned %d results for 1 pair", len(rs))
		}
		results[it.i] = rs[0]
		return nil
	})
	if runErr != nil {
		return runErr
	}

	var accepted []align.Result
	for _, r := range results {
		if r.Err != nil {
			return pgerr.External(op, r.Err)
		}
		if align.Accept(r.Alignment) {
			accepted = append(accepted, r)
		}
	}

	// Apply the strongest (lowest-Energy) alignments first: once a pair's
	// blocks are consumed by a merge, a weaker alignment touching the same
	// blocks no longer applies to the post-merge graph and is skipped.
	// Ordering by energy, rather than by input order, makes that a
	// consistent bias rather than an accident of pair enumeration order.
	h := pqueue.New(accepted, func(a, b align.Result) bool {
		return align.Energy(a.Alignment) < align.Energy(b.Alignment)
	})
	for h.Len() > 0 {
		r := h.Pop()
		qID, rID := blockOf(r.Pair)
		if _, ok := g.Blocks[qID]; !ok {
			continue
		}
		if _, ok := g.Blocks[rID]; !ok {
			continue
		}
		if err := g.Merge(qID, rID, r.Alignment, opts); err != nil {
			return err
		}
	}
	return nil
}

func (g *Graph) nodeStrands() map[block.NodeID]block.Strand {
	out := map[block.NodeID]block.Strand{}
	for _, name := range g.sortedPathNames() {
		for _, n := range g.Paths[name].Nodes {
			out[n.ID] = n.Strand
		}
	}
	return out
}

func (g *Graph) replaceEverywhere(old block.NodeID, with []block.Node) {
	for _, name := range g.sortedPathNames() {
		g.Paths[name].ReplaceNode(old, with)
	}
}

func reverseNodes(s []block.Node) {
	for i, j := 0, len(s)-1; i < j; i, j = i+1, j-1 {
		s[i], s[j] = s[j], s[i]
	}
}
