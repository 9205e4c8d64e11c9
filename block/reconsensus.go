package block

import (
	"bytes"
	"sort"

	"github.com/jemmacfen/pangraph/allele"
	"github.com/jemmacfen/pangraph/internal/pgerr"
)

// segment is a run of aligned columns: either a single kept (consensus)
// column, or a maximal run of dropped (all-'-') columns belonging to one
// gap.
type segment struct {
	kept bool
	cols []int
}

// Reconsensus recomputes the block's consensus as the column-wise
// plurality across its nodes' aligned materializations, and rebuilds
// every allele map against the new consensus. It is a no-op below depth
// 3, and a no-op if the plurality already equals the stored consensus --
// this is what makes a second call idempotent.
func (b *Block) Reconsensus() error {
	if b.Depth() < 3 {
		return nil
	}
	nodes := b.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })

	rows := make(map[NodeID][]byte, len(nodes))
	for _, n := range nodes {
		row, err := b.MaterializeAligned(n)
		if err != nil {
			return err
		}
		rows[n] = row
	}
	if len(nodes) == 0 {
		return nil
	}
	width := len(rows[nodes[0]])

	oldRow := make([]byte, 0, width)
	if gw, ok := b.Gaps[-1]; ok {
		for i := 0; i < gw; i++ {
			oldRow = append(oldRow, '-')
		}
	}
	for p := 0; p < b.Len(); p++ {
		oldRow = append(oldRow, b.Sequence[p])
		if gw, ok := b.Gaps[p]; ok {
			for i := 0; i < gw; i++ {
				oldRow = append(oldRow, '-')
			}
		}
	}

	newRow := make([]byte, width)
	for c := 0; c < width; c++ {
		counts := map[byte]int{}
		for _, n := range nodes {
			counts[rows[n][c]]++
		}
		best := oldRow[c]
		bestCount := counts[oldRow[c]]
		for val, cnt := range counts {
			if cnt > bestCount {
				best, bestCount = val, cnt
			}
		}
		newRow[c] = best
	}
	if bytes.Equal(newRow, oldRow) {
		return nil
	}
	return b.rebuildFromColumns(nodes, rows, newRow)
}

// RebuildFromAlignment re-derives the block's consensus and allele maps
// from an externally produced multiple alignment, reusing the same
// column logic Reconsensus applies to its own modal rows.
// rows must carry exactly this block's node set,
// each row the same length, '-' denoting a gap column. The modal byte
// per column becomes the new consensus; unlike Reconsensus, which keeps
// the old consensus byte on a tie, ties go to the smallest byte value.
func (b *Block) RebuildFromAlignment(rows map[NodeID][]byte) error {
	const op = "block.RebuildFromAlignment"
	nodes := b.Nodes()
	sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
	if len(nodes) == 0 {
		return nil
	}
	width := -1
	for _, n := range nodes {
		row, ok := rows[n]
		if !ok {
			return pgerr.Invalidf(op, "alignment missing node %d", n)
		}
		if width < 0 {
			width = len(row)
		} else if len(row) != width {
			return pgerr.Invalidf(op, "alignment rows have inconsistent width")
		}
	}
	newRow := make([]byte, width)
	for c := 0; c < width; c++ {
		counts := map[byte]int{}
		for _, n := range nodes {
			counts[rows[n][c]]++
		}
		var best byte
		bestCount := -1
		for val, cnt := range counts {
			if cnt > bestCount || (cnt == bestCount && val < best) {
				best, bestCount = val, cnt
			}
		}
		newRow[c] = best
	}
	return b.rebuildFromColumns(nodes, rows, newRow)
}

// rebuildFromColumns is the shared tail of Reconsensus and
// RebuildFromAlignment: given the aligned rows and the chosen new
// consensus row, rebuild sequence/gaps/mutate/insert/delete.
func (b *Block) rebuildFromColumns(nodes []NodeID, rows map[NodeID][]byte, newRow []byte) error {
	width := len(newRow)
	// Build segments: runs of dropped ('-') columns vs. single kept columns.
	var segments []segment
	for c := 0; c < width; {
		if newRow[c] != '-' {
			segments = append(segments, segment{kept: true, cols: []int{c}})
			c++
			continue
		}
		start := c
		for c < width && newRow[c] == '-' {
			c++
		}
		cols := make([]int, c-start)
		for i := range cols {
			cols[i] = start + i
		}
		segments = append(segments, segment{kept: false, cols: cols})
	}

	newSeq := make([]byte, 0, b.Len())
	newGaps := map[int]int{}
	newSubs := allele.SNPMap[NodeID]{}
	newIns := allele.InsertMap[NodeID]{}
	newDels := allele.DeleteMap[NodeID]{}
	for _, n := range nodes {
		newSubs[n] = map[allele.Locus]byte{}
		newIns[n] = map[allele.GapKey][]byte{}
		newDels[n] = map[allele.Locus]int{}
	}

	type delRun struct {
		start, length int
	}
	open := map[NodeID]*delRun{}
	flush := func(n NodeID) {
		if r, ok := open[n]; ok {
			newDels[n][allele.Locus(r.start)] = r.length
			delete(open, n)
		}
	}

	newPos := 0
	for _, seg := range segments {
		if seg.kept {
			col := seg.cols[0]
			for _, n := range nodes {
				rb := rows[n][col]
				switch {
				case rb == '-':
					if r, ok := open[n]; ok {
						r.length++
					} else {
						open[n] = &delRun{start: newPos, length: 1}
					}
				default:
					flush(n)
					if rb != newRow[col] {
						newSubs[n][allele.Locus(newPos)] = rb
					}
				}
			}
			newSeq = append(newSeq, newRow[col])
			newPos++
			continue
		}
		for _, n := range nodes {
			flush(n)
		}
		anchor := newPos - 1
		runLen := len(seg.cols)
		anyIns := false
		for _, n := range nodes {
			curStart := -1
			var curBytes []byte
			flushIns := func() {
				if curStart >= 0 && len(curBytes) > 0 {
					newIns[n][allele.GapKey{Pos: allele.Locus(anchor), Offset: curStart}] = append([]byte(nil), curBytes...)
					anyIns = true
				}
				curStart = -1
				curBytes = nil
			}
			for i, col := range seg.cols {
				rb := rows[n][col]
				if rb != '-' {
					if curStart < 0 {
						curStart = i
					}
					curBytes = append(curBytes, rb)
				} else {
					flushIns()
				}
			}
			flushIns()
		}
		// a run every node agrees to drop (unanimous deletion, not a
		// minority retaining a byte) needs no reserved gap column: every
		// Gaps entry must have a backing insertion.
		if anyIns {
			newGaps[anchor] = runLen
		}
	}
	for _, n := range nodes {
		flush(n)
	}

	b.Sequence = newSeq
	b.Gaps = newGaps
	b.Mutate = newSubs
	b.Insert = newIns
	b.Delete = newDels
	return b.CheckInvariants()
}
