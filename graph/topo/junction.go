// Package topo implements the junction index and the chain threading
// behind detransitive compaction: a deterministic, stably-ordered walk
// that groups transitive junctions into maximal oriented chains. It
// operates on concrete (block, strand) entries rather than a generic
// comparable node type, since the orientation-flipping logic doesn't
// generalize cleanly to arbitrary graphs.
package topo

import (
	"sort"

	"github.com/jemmacfen/pangraph/block"
)

// End is one oriented endpoint of a block: which block, and which
// strand it is entered/left on.
type End struct {
	Block  block.BlockID
	Strand block.Strand
}

// Junction is a directed pair of adjacent block ends on some path,
// keyed by owning block rather than node, since transitivity is a
// block-level (not node-level) property.
type Junction struct {
	Left, Right End
}

// Less gives junctions a stable total order -- (left block, left
// strand, right block, right strand) -- so threading is deterministic
// regardless of map iteration order.
func (j Junction) Less(o Junction) bool {
	if j.Left.Block != o.Left.Block {
		return j.Left.Block < o.Left.Block
	}
	if j.Left.Strand != o.Left.Strand {
		return j.Left.Strand < o.Left.Strand
	}
	if j.Right.Block != o.Right.Block {
		return j.Right.Block < o.Right.Block
	}
	return j.Right.Strand < o.Right.Strand
}

// Index counts, per block, the set of isolates (genomes) using it, and
// per junction, the set of isolates crossing it in that orientation.
type Index struct {
	BlockIsolates    map[block.BlockID]map[string]bool
	JunctionIsolates map[Junction]map[string]bool
}

// NewIndex builds the junction index from an ordered list of per-path
// (name, ends) traversals, where ends[i] is the oriented block entry at
// path position i.
func NewIndex(pathEnds map[string][]End) *Index {
	idx := &Index{
		BlockIsolates:    map[block.BlockID]map[string]bool{},
		JunctionIsolates: map[Junction]map[string]bool{},
	}
	names := make([]string, 0, len(pathEnds))
	for name := range pathEnds {
		names = append(names, name)
	}
	sort.Strings(names)
	for _, name := range names {
		ends := pathEnds[name]
		for i, e := range ends {
			if idx.BlockIsolates[e.Block] == nil {
				idx.BlockIsolates[e.Block] = map[string]bool{}
			}
			idx.BlockIsolates[e.Block][name] = true
			if i == 0 {
				continue
			}
			j := Junction{Left: ends[i-1], Right: e}
			if idx.JunctionIsolates[j] == nil {
				idx.JunctionIsolates[j] = map[string]bool{}
			}
			idx.JunctionIsolates[j][name] = true
		}
	}
	return idx
}

// Transitive reports whether j is transitive: every isolate using
// either endpoint block traverses j in this orientation, so the two
// blocks are never seen apart.
func (idx *Index) Transitive(j Junction) bool {
	ji := idx.JunctionIsolates[j]
	la := idx.BlockIsolates[j.Left.Block]
	ra := idx.BlockIsolates[j.Right.Block]
	if len(ji) != len(la) || len(ji) != len(ra) {
		return false
	}
	for name := range la {
		if !ji[name] {
			return false
		}
	}
	for name := range ra {
		if !ji[name] {
			return false
		}
	}
	return true
}

// TransitiveJunctions returns every transitive junction in the index,
// in stable order.
func (idx *Index) TransitiveJunctions() []Junction {
	var out []Junction
	for j := range idx.JunctionIsolates {
		if idx.Transitive(j) {
			out = append(out, j)
		}
	}
	sort.Slice(out, func(i, k int) bool { return out[i].Less(out[k]) })
	return out
}
