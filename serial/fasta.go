package serial

import (
	"bufio"
	"bytes"
	"compress/gzip"
	"fmt"
	"io"
	"sort"
	"strings"

	"github.com/jemmacfen/pangraph/block"
	"github.com/jemmacfen/pangraph/graph"
	"github.com/jemmacfen/pangraph/internal/pgerr"
)

// Record is one FASTA entry: a sequence name plus its bytes.
type Record struct {
	Name     string
	Sequence []byte
}

// ReadFasta parses a (possibly gzip-compressed, detected by magic
// number rather than file extension since input may be a pipe) FASTA
// stream into Records, in file order. Two records sharing a name is an
// InputValidation error.
func ReadFasta(r io.Reader) ([]Record, error) {
	const op = "serial.ReadFasta"
	br := bufio.NewReader(r)
	peek, err := br.Peek(2)
	if err == nil && len(peek) == 2 && peek[0] == 0x1f && peek[1] == 0x8b {
		gz, err := gzip.NewReader(br)
		if err != nil {
			return nil, pgerr.Invalid(op, err)
		}
		defer gz.Close()
		br = bufio.NewReader(gz)
	}

	var records []Record
	seen := map[string]bool{}
	var cur *Record
	var buf bytes.Buffer
	flush := func() {
		if cur != nil {
			cur.Sequence = append([]byte(nil), buf.Bytes()...)
			records = append(records, *cur)
		}
		buf.Reset()
	}

	scanner := bufio.NewScanner(br)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<30)
	for scanner.Scan() {
		line := scanner.Text()
		if strings.HasPrefix(line, ">") {
			flush()
			name := strings.TrimSpace(strings.TrimPrefix(line, ">"))
			if fields := strings.Fields(name); len(fields) > 0 {
				name = fields[0]
			}
			if seen[name] {
				return nil, pgerr.Invalidf(op, "duplicate record name %q", name)
			}
			seen[name] = true
			cur = &Record{Name: name}
			continue
		}
		if cur == nil {
			continue
		}
		buf.WriteString(strings.TrimSpace(line))
	}
	if err := scanner.Err(); err != nil {
		return nil, pgerr.Invalid(op, err)
	}
	flush()
	return records, nil
}

// WriteFasta writes the graph's per-block consensus sequences as one
// FASTA record per block, keyed by block ID so the output is stable
// across runs, optionally gzip-compressed. Sequence lines wrap at 80
// columns.
func WriteFasta(w io.Writer, g *graph.Graph, gzipOut bool) error {
	const op = "serial.WriteFasta"
	out := w
	var gz *gzip.Writer
	if gzipOut {
		gz = gzip.NewWriter(w)
		out = gz
	}

	ids := make([]block.BlockID, 0, len(g.Blocks))
	for id := range g.Blocks {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })

	bw := bufio.NewWriter(out)
	for _, id := range ids {
		b := g.Blocks[id]
		if _, err := fmt.Fprintf(bw, ">%d\n", id); err != nil {
			return pgerr.External(op, err)
		}
		seq := b.Sequence
		for len(seq) > 0 {
			n := 80
			if n > len(seq) {
				n = len(seq)
			}
			if _, err := bw.Write(seq[:n]); err != nil {
				return pgerr.External(op, err)
			}
			if _, err := bw.Write([]byte{'\n'}); err != nil {
				return pgerr.External(op, err)
			}
			seq = seq[n:]
		}
	}
	if err := bw.Flush(); err != nil {
		return pgerr.External(op, err)
	}
	if gz != nil {
		if err := gz.Close(); err != nil {
			return pgerr.External(op, err)
		}
	}
	return nil
}
