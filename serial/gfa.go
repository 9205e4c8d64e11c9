package serial

import (
	"bytes"
	"fmt"
	"sort"
	"strings"

	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/graph"
)

// gfaEnd is one oriented block end of a traversal link, analogous to
// topo.End but scoped to this package so serial has no dependency on
// graph/topo.
type gfaEnd struct {
	Block  block.BlockID
	Strand block.Strand
}

func (e gfaEnd) gfaSign() string {
	if e.Strand == block.Forward {
		return "+"
	}
	return "-"
}

// linkKey canonicalizes a link so A+ -> B+ and its reverse complement
// B- -> A- (the same adjacency, walked the other way) dedup to one
// L-line, the way a GFA string graph represents an edge once per
// unordered pair of oriented ends.
type linkKey struct {
	from, to gfaEnd
}

func canonicalLink(from, to gfaEnd) linkKey {
	rev := linkKey{
		from: gfaEnd{Block: to.Block, Strand: to.Strand.Opposite()},
		to:   gfaEnd{Block: from.Block, Strand: from.Strand.Opposite()},
	}
	fwd := linkKey{from: from, to: to}
	if rev.less(fwd) {
		return rev
	}
	return fwd
}

func (a linkKey) less(b linkKey) bool {
	if a.from.Block != b.from.Block {
		return a.from.Block < b.from.Block
	}
	if a.from.Strand != b.from.Strand {
		return a.from.Strand < b.from.Strand
	}
	if a.to.Block != b.to.Block {
		return a.to.Block < b.to.Block
	}
	return a.to.Strand < b.to.Strand
}

// WriteGFA renders the graph as a GFA 1.0 string graph: one S-line per
// block carrying its consensus and an RC depth-of-coverage tag, one
// L-line per distinct oriented adjacency any path walks (deduplicated
// by unordered end pair, zero overlap since blocks never share
// sequence), and one P-line per path listing its block traversal,
// tagged TP:Z:circular when the path is circular.
func WriteGFA(g *graph.Graph) ([]byte, error) {
	var buf bytes.Buffer
	buf.WriteString("H\tVN:Z:1.0\n")

	ids := make([]block.BlockID, 0, len(g.Blocks))
	for id := range g.Blocks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	for _, id := range ids {
		b := g.Blocks[id]
		fmt.Fprintf(&buf, "S\t%d\t%s\tRC:i:%d\n", id, b.Sequence, b.Depth())
	}

	names := make([]string, 0, len(g.Paths))
	for name := range g.Paths {
		names = append(names, name)
	}
	sort.Strings(names)

	links := map[linkKey]bool{}
	for _, name := range names {
		p := g.Paths[name]
		ends := make([]gfaEnd, len(p.Nodes))
		for i, n := range p.Nodes {
			ends[i] = gfaEnd{Block: n.Block, Strand: n.Strand}
		}
		for i := 0; i+1 < len(ends); i++ {
			links[canonicalLink(ends[i], ends[i+1])] = true
		}
		if p.Circular && len(ends) > 1 {
			links[canonicalLink(ends[len(ends)-1], ends[0])] = true
		}
	}
	sortedLinks := make([]linkKey, 0, len(links))
	for k := range links {
		sortedLinks = append(sortedLinks, k)
	}
	sort.Slice(sortedLinks, func(i, j int) bool { return sortedLinks[i].less(sortedLinks[j]) })
	for _, l := range sortedLinks {
		fmt.Fprintf(&buf, "L\t%d\t%s\t%d\t%s\t0M\n", l.from.Block, l.from.gfaSign(), l.to.Block, l.to.gfaSign())
	}

	for _, name := range names {
		p := g.Paths[name]
		steps := make([]string, len(p.Nodes))
		for i, n := range p.Nodes {
			sign := "+"
			if n.Strand == block.Reverse {
				sign = "-"
			}
			steps[i] = fmt.Sprintf("%d%s", n.Block, sign)
		}
		overlaps := make([]string, len(p.Nodes))
		for i := range overlaps {
			overlaps[i] = "*"
		}
		line := fmt.Sprintf("P\t%s\t%s\t%s", name, strings.Join(steps, ","), strings.Join(overlaps, ","))
		if p.Circular {
			line += "\tTP:Z:circular"
		}
		buf.WriteString(line)
		buf.WriteByte('\n')
	}

	return buf.Bytes(), nil
}
