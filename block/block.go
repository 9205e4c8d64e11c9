// Package block implements the unit of homology in a pangenome graph: a
// consensus sequence plus, per occurring node, sparse substitution/
// insertion/deletion variants. See graph.Graph for the arena that owns
// Blocks and resolves Nodes against them.
package block

import (
	"sync/atomic"

	"github.com/jemmacfen/pangraph/allele"
	"github.com/jemmacfen/pangraph/internal/pgerr"
)

// Strand is the orientation a Node traverses its Block in.
type Strand int8

const (
	Forward Strand = 1
	Reverse Strand = -1
)

func (s Strand) Opposite() Strand {
	if s == Forward {
		return Reverse
	}
	return Forward
}

func (s Strand) String() string {
	if s == Forward {
		return "+"
	}
	return "-"
}

// BlockID is a block's stable, opaque identifier, assigned at creation
// and never reused.
type BlockID uint64

// NodeID is a node's stable, opaque identity: nodes are compared and
// hashed by identity, not by field equality, since two structurally
// identical nodes at different path positions must stay distinct. It is
// minted once, at node creation, from a process-wide counter.
type NodeID uint64

var nodeCounter atomic.Uint64

// NewNodeID mints a fresh, process-unique node identity.
func NewNodeID() NodeID {
	return NodeID(nodeCounter.Add(1))
}

var blockCounter atomic.Uint64

// NewBlockID mints a fresh, process-unique block identity.
func NewBlockID() BlockID {
	return BlockID(blockCounter.Add(1))
}

// Node is a directed occurrence of a Block on a Path: the unique
// identity of one occurrence of a block on one genome. ID alone carries
// that identity; Block and Strand are cached for convenience and must
// always match the block whose allele maps key on this Node's ID.
type Node struct {
	ID     NodeID
	Block  BlockID
	Strand Strand
}

// Block is the unit of homology: a consensus sequence, a gap table
// describing reserved insertion-column width, and three per-node sparse
// variant maps. CheckInvariants states what the fields must jointly
// satisfy.
type Block struct {
	ID       BlockID
	Sequence []byte
	// Gaps maps a consensus position p to the width reserved for
	// insertions immediately after p. Only positions that carry at
	// least one insertion across any node appear here.
	Gaps map[int]int

	Mutate allele.SNPMap[NodeID]
	Insert allele.InsertMap[NodeID]
	Delete allele.DeleteMap[NodeID]
}

// New builds an empty block with the given consensus and no nodes.
func New(sequence []byte) *Block {
	return &Block{
		ID:       NewBlockID(),
		Sequence: append([]byte(nil), sequence...),
		Gaps:     map[int]int{},
		Mutate:   allele.SNPMap[NodeID]{},
		Insert:   allele.InsertMap[NodeID]{},
		Delete:   allele.DeleteMap[NodeID]{},
	}
}

// NewSingleton builds a block wrapping exactly one input genome: the
// block's consensus is the genome itself and its sole node carries no
// variants.
func NewSingleton(sequence []byte) (*Block, Node) {
	b := New(sequence)
	n := Node{ID: NewNodeID(), Block: b.ID, Strand: Forward}
	b.Mutate[n.ID] = map[allele.Locus]byte{}
	b.Insert[n.ID] = map[allele.GapKey][]byte{}
	b.Delete[n.ID] = map[allele.Locus]int{}
	return b, n
}

// Len returns the consensus length.
func (b *Block) Len() int { return len(b.Sequence) }

// Depth returns the number of distinct nodes keyed into this block's
// allele maps.
func (b *Block) Depth() int { return len(b.Mutate) }

// Nodes returns the block's node-identity key set in no particular
// order.
func (b *Block) Nodes() []NodeID {
	return allele.Nodes(b.Mutate)
}

// HasNode reports whether id is one of this block's nodes.
func (b *Block) HasNode(id NodeID) bool {
	_, ok := b.Mutate[id]
	return ok
}

// AddNode registers a new, variant-free node in this block's allele
// maps. Used when a block gains an occurrence (e.g. during detransitive
// fusion, before alleles are copied in).
func (b *Block) AddNode(id NodeID) {
	b.Mutate[id] = map[allele.Locus]byte{}
	b.Insert[id] = map[allele.GapKey][]byte{}
	b.Delete[id] = map[allele.Locus]int{}
}

// RemoveNode drops a node from this block's allele maps entirely (used
// by purge).
func (b *Block) RemoveNode(id NodeID) {
	delete(b.Mutate, id)
	delete(b.Insert, id)
	delete(b.Delete, id)
}

// GapWidth returns the reserved gap width after position p (0 if none).
func (b *Block) GapWidth(p int) int { return b.Gaps[p] }

// CheckInvariants validates the block's structural invariants: the three
// allele maps share one node key set, the gap table and insertions agree
// exactly, every locus is in bounds, and no node's deletions overlap
// each other or its substitutions (a deletion and an insertion at the
// same locus are allowed).
// Full materialization round-tripping is checked by callers that hold an
// external reference sequence to compare against. It returns an
// *pgerr.Error of kind InvariantViolation describing the first violation
// found, or nil.
func (b *Block) CheckInvariants() error {
	const op = "block.CheckInvariants"
	for n := range b.Mutate {
		if _, ok := b.Insert[n]; !ok {
			return pgerr.Invariantf(op, "node %d present in mutate but not insert", n)
		}
		if _, ok := b.Delete[n]; !ok {
			return pgerr.Invariantf(op, "node %d present in mutate but not delete", n)
		}
	}
	for n := range b.Insert {
		if _, ok := b.Mutate[n]; !ok {
			return pgerr.Invariantf(op, "node %d present in insert but not mutate", n)
		}
	}
	for n := range b.Delete {
		if _, ok := b.Mutate[n]; !ok {
			return pgerr.Invariantf(op, "node %d present in delete but not mutate", n)
		}
	}
	// keys(gaps) must equal the set of positions carrying at least one
	// insertion, and no insertion may exceed its reserved width.
	wantGapPos := map[int]bool{}
	for n, m := range b.Insert {
		for k := range m {
			wantGapPos[int(k.Pos)] = true
			if k.Offset+len(m[k]) > b.Gaps[int(k.Pos)] {
				return pgerr.Invariantf(op, "node %d insertion at %v exceeds reserved gap width", n, k)
			}
		}
	}
	for p := range b.Gaps {
		if !wantGapPos[p] {
			return pgerr.Invariantf(op, "gap at %d has no backing insertion", p)
		}
	}
	for p := range wantGapPos {
		if _, ok := b.Gaps[p]; !ok {
			return pgerr.Invariantf(op, "insertion at %d has no gap entry", p)
		}
	}
	// every locus must fall within [0, len(sequence)).
	n := b.Len()
	for node, m := range b.Mutate {
		for p := range m {
			if int(p) < 0 || int(p) >= n {
				return pgerr.Invariantf(op, "node %d substitution at %d out of bounds [0,%d)", node, p, n)
			}
		}
	}
	for node, m := range b.Delete {
		for p, l := range m {
			if int(p) < 0 || int(p)+l > n {
				return pgerr.Invariantf(op, "node %d deletion at %d+%d out of bounds [0,%d)", node, p, l, n)
			}
		}
	}
	for node, m := range b.Insert {
		for k := range m {
			// -1 is the sentinel anchor for an insertion before the
			// first consensus base (reconsensus can drop locus 0 from
			// the consensus while a minority node still carries a base
			// there); every other position must be a real locus.
			if int(k.Pos) < -1 || int(k.Pos) >= n {
				return pgerr.Invariantf(op, "node %d insertion at %d out of bounds [-1,%d)", node, k.Pos, n)
			}
		}
	}
	// deletions and substitutions must not overlap for a node.
	for node := range b.Mutate {
		occupied := map[int]bool{}
		for p, l := range b.Delete[node] {
			for i := 0; i < l; i++ {
				pos := int(p) + i
				if occupied[pos] {
					return pgerr.Invariantf(op, "node %d has overlapping deletions at %d", node, pos)
				}
				occupied[pos] = true
			}
		}
		for p := range b.Mutate[node] {
			if occupied[int(p)] {
				return pgerr.Invariantf(op, "node %d substitution at %d overlaps a deletion", node, p)
			}
		}
	}
	return nil
}
