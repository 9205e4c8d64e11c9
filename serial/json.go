// Package serial implements the graph's external interfaces: the
// canonical JSON graph format, FASTA consensus I/O, and GFA 1.0 export.
package serial

import (
	"encoding/json"
	"sort"
	"strconv"

	"github.com/jemmacfen/pangraph/allele"
	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/gpath"
	"github.com/jemmacfen/pangraph/graph"
	"github.com/jemmacfen/pangraph/internal/pgerr"
)

type nodeRefJSON struct {
	Name   string `json:"name"`
	Number int    `json:"number"`
	Strand string `json:"strand"`
}

func strandJSON(s block.Strand) string {
	if s == block.Forward {
		return "+"
	}
	return "-"
}

func parseStrand(s string) block.Strand {
	if s == "-" {
		return block.Reverse
	}
	return block.Forward
}

type pathBlockJSON struct {
	ID     uint64 `json:"id"`
	Name   string `json:"name"`
	Number int    `json:"number"`
	Strand string `json:"strand"`
}

type pathJSON struct {
	Name     string          `json:"name"`
	Offset   int             `json:"offset"`
	Circular bool            `json:"circular"`
	Position []int           `json:"position,omitempty"`
	Blocks   []pathBlockJSON `json:"blocks"`
}

type subPairJSON struct {
	Locus int
	Base  string
}

func (p subPairJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{p.Locus, p.Base})
}

func (p *subPairJSON) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &p.Locus); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &p.Base)
}

type delPairJSON struct {
	Locus  int
	Length int
}

func (p delPairJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]int{p.Locus, p.Length})
}

func (p *delPairJSON) UnmarshalJSON(data []byte) error {
	var raw [2]int
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	p.Locus, p.Length = raw[0], raw[1]
	return nil
}

type insPairJSON struct {
	Locus  int
	Offset int
	Seq    string
}

func (p insPairJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{[2]int{p.Locus, p.Offset}, p.Seq})
}

func (p *insPairJSON) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	var key [2]int
	if err := json.Unmarshal(raw[0], &key); err != nil {
		return err
	}
	p.Locus, p.Offset = key[0], key[1]
	return json.Unmarshal(raw[1], &p.Seq)
}

type mutateEntryJSON struct {
	Node  nodeRefJSON
	Pairs []subPairJSON
}

func (e mutateEntryJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Node, e.Pairs})
}

func (e *mutateEntryJSON) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &e.Node); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &e.Pairs)
}

type insertEntryJSON struct {
	Node  nodeRefJSON
	Pairs []insPairJSON
}

func (e insertEntryJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Node, e.Pairs})
}

func (e *insertEntryJSON) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &e.Node); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &e.Pairs)
}

type deleteEntryJSON struct {
	Node  nodeRefJSON
	Pairs []delPairJSON
}

func (e deleteEntryJSON) MarshalJSON() ([]byte, error) {
	return json.Marshal([2]interface{}{e.Node, e.Pairs})
}

func (e *deleteEntryJSON) UnmarshalJSON(data []byte) error {
	var raw [2]json.RawMessage
	if err := json.Unmarshal(data, &raw); err != nil {
		return err
	}
	if err := json.Unmarshal(raw[0], &e.Node); err != nil {
		return err
	}
	return json.Unmarshal(raw[1], &e.Pairs)
}

type blockJSON struct {
	ID       uint64            `json:"id"`
	Sequence string            `json:"sequence"`
	Gaps     map[string]int    `json:"gaps"`
	Mutate   []mutateEntryJSON `json:"mutate"`
	Insert   []insertEntryJSON `json:"insert"`
	Delete   []deleteEntryJSON `json:"delete"`
}

type graphJSON struct {
	Paths  []pathJSON  `json:"paths"`
	Blocks []blockJSON `json:"blocks"`
}

// occKey scopes an occurrence number to (block, path name): "number" is
// the 1-based count of prior occurrences of that block on that path,
// disambiguating paralogs without exposing the internal opaque NodeID
// externally.
type occKey struct {
	block block.BlockID
	name  string
}

// Marshal serializes g to the canonical JSON graph format.
func Marshal(g *graph.Graph) ([]byte, error) {
	names := make([]string, 0, len(g.Paths))
	for name := range g.Paths {
		names = append(names, name)
	}
	sort.Strings(names)

	occurrence := map[occKey]int{}
	nodeRef := map[block.NodeID]nodeRefJSON{}

	out := graphJSON{}
	for _, name := range names {
		p := g.Paths[name]
		pj := pathJSON{Name: p.Name, Offset: p.Offset, Circular: p.Circular, Position: p.Position}
		for _, n := range p.Nodes {
			k := occKey{n.Block, name}
			occurrence[k]++
			num := occurrence[k]
			nodeRef[n.ID] = nodeRefJSON{Name: name, Number: num, Strand: strandJSON(n.Strand)}
			pj.Blocks = append(pj.Blocks, pathBlockJSON{ID: uint64(n.Block), Name: name, Number: num, Strand: strandJSON(n.Strand)})
		}
		out.Paths = append(out.Paths, pj)
	}

	blockIDs := make([]block.BlockID, 0, len(g.Blocks))
	for id := range g.Blocks {
		blockIDs = append(blockIDs, id)
	}
	sort.Slice(blockIDs, func(i, j int) bool { return blockIDs[i] < blockIDs[j] })
	for _, id := range blockIDs {
		b := g.Blocks[id]
		bj := blockJSON{ID: uint64(id), Sequence: string(b.Sequence), Gaps: map[string]int{}}
		for p, w := range b.Gaps {
			bj.Gaps[strconv.Itoa(p)] = w
		}
		nodes := b.Nodes()
		sort.Slice(nodes, func(i, j int) bool { return nodes[i] < nodes[j] })
		for _, n := range nodes {
			ref := nodeRef[n]

			var subs []subPairJSON
			var subLoci []allele.Locus
			for p := range b.Mutate[n] {
				subLoci = append(subLoci, p)
			}
			sort.Slice(subLoci, func(i, j int) bool { return subLoci[i] < subLoci[j] })
			for _, p := range subLoci {
				subs = append(subs, subPairJSON{Locus: int(p), Base: string(b.Mutate[n][p])})
			}
			bj.Mutate = append(bj.Mutate, mutateEntryJSON{Node: ref, Pairs: subs})

			var dels []delPairJSON
			var delLoci []allele.Locus
			for p := range b.Delete[n] {
				delLoci = append(delLoci, p)
			}
			sort.Slice(delLoci, func(i, j int) bool { return delLoci[i] < delLoci[j] })
			for _, p := range delLoci {
				dels = append(dels, delPairJSON{Locus: int(p), Length: b.Delete[n][p]})
			}
			bj.Delete = append(bj.Delete, deleteEntryJSON{Node: ref, Pairs: dels})

			var ins []insPairJSON
			var insKeys []allele.GapKey
			for k := range b.Insert[n] {
				insKeys = append(insKeys, k)
			}
			sort.Slice(insKeys, func(i, j int) bool {
				if insKeys[i].Pos != insKeys[j].Pos {
					return insKeys[i].Pos < insKeys[j].Pos
				}
				return insKeys[i].Offset < insKeys[j].Offset
			})
			for _, k := range insKeys {
				ins = append(ins, insPairJSON{Locus: int(k.Pos), Offset: k.Offset, Seq: string(b.Insert[n][k])})
			}
			bj.Insert = append(bj.Insert, insertEntryJSON{Node: ref, Pairs: ins})
		}
		out.Blocks = append(out.Blocks, bj)
	}
	return json.Marshal(out)
}

// Unmarshal parses the canonical JSON graph format back into a Graph,
// minting a fresh NodeID per path-block entry (the round trip holds up
// to internal NodeID relabeling and the optional positions field,
// neither of which is observable state).
func Unmarshal(data []byte) (*graph.Graph, error) {
	const op = "serial.Unmarshal"
	var in graphJSON
	if err := json.Unmarshal(data, &in); err != nil {
		return nil, pgerr.Invalid(op, err)
	}

	g := graph.New()
	type resolveKey struct {
		block  block.BlockID
		name   string
		number int
	}
	nodeByKey := map[resolveKey]block.NodeID{}

	for _, pj := range in.Paths {
		p := gpath.New(pj.Name, pj.Circular, pj.Offset)
		p.Position = pj.Position
		for _, entry := range pj.Blocks {
			nid := block.NewNodeID()
			bid := block.BlockID(entry.ID)
			nodeByKey[resolveKey{bid, entry.Name, entry.Number}] = nid
			p.Append(block.Node{ID: nid, Block: bid, Strand: parseStrand(entry.Strand)})
		}
		g.Paths[pj.Name] = p
	}

	resolve := func(bid block.BlockID, ref nodeRefJSON) (block.NodeID, error) {
		nid, ok := nodeByKey[resolveKey{bid, ref.Name, ref.Number}]
		if !ok {
			return 0, pgerr.Invalidf(op, "block %d: no node for path %q occurrence %d", bid, ref.Name, ref.Number)
		}
		return nid, nil
	}

	for _, bj := range in.Blocks {
		bid := block.BlockID(bj.ID)
		b := &block.Block{
			ID:       bid,
			Sequence: []byte(bj.Sequence),
			Gaps:     map[int]int{},
			Mutate:   allele.SNPMap[block.NodeID]{},
			Insert:   allele.InsertMap[block.NodeID]{},
			Delete:   allele.DeleteMap[block.NodeID]{},
		}
		for s, w := range bj.Gaps {
			pos, err := strconv.Atoi(s)
			if err != nil {
				return nil, pgerr.Invalidf(op, "block %d: bad gap key %q", bid, s)
			}
			b.Gaps[pos] = w
		}

		for _, e := range bj.Mutate {
			nid, err := resolve(bid, e.Node)
			if err != nil {
				return nil, err
			}
			m := map[allele.Locus]byte{}
			for _, pair := range e.Pairs {
				if len(pair.Base) != 1 {
					return nil, pgerr.Invalidf(op, "block %d: substitution base %q is not one byte", bid, pair.Base)
				}
				m[allele.Locus(pair.Locus)] = pair.Base[0]
			}
			b.Mutate[nid] = m
		}
		for _, e := range bj.Insert {
			nid, err := resolve(bid, e.Node)
			if err != nil {
				return nil, err
			}
			m := map[allele.GapKey][]byte{}
			for _, pair := range e.Pairs {
				m[allele.GapKey{Pos: allele.Locus(pair.Locus), Offset: pair.Offset}] = []byte(pair.Seq)
			}
			b.Insert[nid] = m
		}
		for _, e := range bj.Delete {
			nid, err := resolve(bid, e.Node)
			if err != nil {
				return nil, err
			}
			m := map[allele.Locus]int{}
			for _, pair := range e.Pairs {
				m[allele.Locus(pair.Locus)] = pair.Length
			}
			b.Delete[nid] = m
		}
		g.Blocks[bid] = b
	}

	if err := g.CheckInvariants(); err != nil {
		return nil, err
	}
	if err := g.RecomputeAllPositions(); err != nil {
		return nil, err
	}
	return g, nil
}
