package merge_test

import (
	"testing"

	"github.com/go-quicktest/qt"

	"github.com/jemmacfen/pangraph/align"
	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/merge"
)

// TestInstantiateSingleSubstitution: two full-length genomes differing
// by one substitution, merged via an "8M" alignment. The fused block's
// consensus is the reference's, and the query's differing base at
// position 5 becomes a substitution on its remapped node.
func TestInstantiateSingleSubstitution(t *testing.T) {
	qBlock, qNode := block.NewSingleton([]byte("ACGTAGGT")) // differs from ref at position 5
	rBlock, rNode := block.NewSingleton([]byte("ACGTACGT"))

	a := align.Alignment{
		Qry:    align.Hit{Len: 8, Start: 0, Stop: 8},
		Ref:    align.Hit{Len: 8, Start: 0, Stop: 8},
		Strand: align.Plus,
		Cigar:  mustCigar(t, "8M"),
	}
	segs, err := merge.Partition(qBlock.Len(), rBlock.Len(), a, 500)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(segs), 1))

	fused, err := merge.Instantiate(qBlock, rBlock, segs, merge.Options{})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(fused), 1))

	out := fused[0].Block
	qt.Assert(t, qt.Equals(out.Len(), 8))
	qt.Assert(t, qt.Equals(out.Depth(), 2))

	freshQ := fused[0].QryNodes[qNode.ID]
	freshR := fused[0].RefNodes[rNode.ID]

	gotQ, err := out.Materialize(freshQ)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(gotQ), "ACGTAGGT"))

	gotR, err := out.Materialize(freshR)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(gotR), "ACGTACGT"))
}

// TestInstantiateLeadingInsertionAnchorsBeforeFirstBase covers a matched
// segment whose interior CIGAR *opens* with an insertion ("3I10M"),
// which places the fused gap at x_r == 0, i.e. anchored immediately
// before the reference's first base rather than after some interior
// locus. The fused block must still round-trip both genomes.
func TestInstantiateLeadingInsertionAnchorsBeforeFirstBase(t *testing.T) {
	qBlock, qNode := block.NewSingleton([]byte("TTTACGTACGTAC")) // "TTT" + ref
	rBlock, rNode := block.NewSingleton([]byte("ACGTACGTAC"))

	a := align.Alignment{
		Qry:    align.Hit{Len: 13, Start: 0, Stop: 13},
		Ref:    align.Hit{Len: 10, Start: 0, Stop: 10},
		Strand: align.Plus,
		Cigar:  mustCigar(t, "3I10M"),
	}
	segs, err := merge.Partition(qBlock.Len(), rBlock.Len(), a, 500)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(segs), 1))
	qt.Assert(t, qt.Equals(segs[0].Kind, merge.SegMatched))

	fused, err := merge.Instantiate(qBlock, rBlock, segs, merge.Options{})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(fused), 1))

	out := fused[0].Block
	qt.Assert(t, qt.IsNil(out.CheckInvariants()))
	qt.Assert(t, qt.Equals(out.Gaps[-1], 3))

	freshQ := fused[0].QryNodes[qNode.ID]
	freshR := fused[0].RefNodes[rNode.ID]

	gotQ, err := out.Materialize(freshQ)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(gotQ), "TTTACGTACGTAC"))

	gotR, err := out.Materialize(freshR)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(gotR), "ACGTACGTAC"))
}

// TestInstantiateOverhangPartialMatchShrinksDeletion covers resolveOverhang's
// partial-match branch: an insertion immediately before a ref-only deletion
// matches only a prefix of the deleted reference bases. The deletion must
// shrink to the unmatched suffix rather than leaving two overlapping
// deletion entries, and the insertion's old gap column must not survive
// unbacked once its bytes move to the new anchor.
func TestInstantiateOverhangPartialMatchShrinksDeletion(t *testing.T) {
	qBlock, qNode := block.NewSingleton([]byte("ACGTGATTT")) // "ACGT" + "GA" + "TTT"
	rBlock, rNode := block.NewSingleton([]byte("ACGTGGGTTT"))

	a := align.Alignment{
		Qry:    align.Hit{Len: 9, Start: 0, Stop: 9},
		Ref:    align.Hit{Len: 10, Start: 0, Stop: 10},
		Strand: align.Plus,
		Cigar:  mustCigar(t, "4M2I3D3M"),
	}
	segs, err := merge.Partition(qBlock.Len(), rBlock.Len(), a, 500)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(segs), 1))
	qt.Assert(t, qt.Equals(segs[0].Kind, merge.SegMatched))

	fused, err := merge.Instantiate(qBlock, rBlock, segs, merge.Options{})
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(fused), 1))

	out := fused[0].Block
	qt.Assert(t, qt.IsNil(out.CheckInvariants()))

	freshQ := fused[0].QryNodes[qNode.ID]
	freshR := fused[0].RefNodes[rNode.ID]

	gotQ, err := out.Materialize(freshQ)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(gotQ), "ACGTGATTT"))

	gotR, err := out.Materialize(freshR)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(gotR), "ACGTGGGTTT"))
}

// TestInstantiateShortDeletionStaysLocal: a 5nt deletion under minblock
// stays local to the fused block, recorded as a deletion on the query's
// remapped node.
func TestInstantiateShortDeletionStaysLocal(t *testing.T) {
	qBlock, qNode := block.NewSingleton([]byte("ACGTCGT"))     // 7nt: shorter genome
	rBlock, rNode := block.NewSingleton([]byte("ACGTAAAAACGT")) // 12nt: longer genome

	a := align.Alignment{
		Qry:    align.Hit{Len: 7, Start: 0, Stop: 7},
		Ref:    align.Hit{Len: 12, Start: 0, Stop: 12},
		Strand: align.Plus,
		Cigar:  mustCigar(t, "4M5D3M"),
	}
	segs, err := merge.Partition(7, 12, a, 500)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(len(segs), 1))

	fused, err := merge.Instantiate(qBlock, rBlock, segs, merge.Options{})
	qt.Assert(t, qt.IsNil(err))
	out := fused[0].Block
	qt.Assert(t, qt.Equals(out.Len(), 12))
	qt.Assert(t, qt.Equals(out.Depth(), 2))

	freshQ := fused[0].QryNodes[qNode.ID]
	freshR := fused[0].RefNodes[rNode.ID]

	gotQ, err := out.Materialize(freshQ)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(gotQ), "ACGTCGT"))

	gotR, err := out.Materialize(freshR)
	qt.Assert(t, qt.IsNil(err))
	qt.Assert(t, qt.Equals(string(gotR), "ACGTAAAAACGT"))
}
