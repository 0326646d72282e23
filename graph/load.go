package graph

import (
	"bufio"
	"encoding/json"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gsa/sequtil"
)

// LoadFromTxt reads the plain-text graph format: the first line holds the
// vertex count, then one line per vertex with its sequence followed by the
// ids of its out-neighbors.
func LoadFromTxt(fn string) *CSRChar {
	fp, err := os.Open(fn)
	if err != nil {
		log.Fatalf("[LoadFromTxt] open graph file: %v error: %v\n", fn, err)
	}
	defer fp.Close()

	scanner := bufio.NewScanner(fp)
	scanner.Buffer(make([]byte, 1024*1024), 64*1024*1024)

	if !scanner.Scan() {
		log.Fatalf("[LoadFromTxt] graph file: %v is empty\n", fn)
	}
	numVertices, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
	if err != nil || numVertices <= 0 {
		log.Fatalf("[LoadFromTxt] graph file: %v bad vertex count line: %q\n", fn, scanner.Text())
	}

	seqs := make([][]byte, 0, numVertices)
	var edges [][2]int32
	for id := 0; id < numVertices; id++ {
		if !scanner.Scan() {
			log.Fatalf("[LoadFromTxt] graph file: %v truncated at vertex %d of %d\n", fn, id, numVertices)
		}
		fields := strings.Fields(scanner.Text())
		if len(fields) == 0 {
			log.Fatalf("[LoadFromTxt] graph file: %v vertex %d has no sequence\n", fn, id)
		}
		seq := []byte(fields[0])
		sequtil.MakeUpperCase(seq)
		seqs = append(seqs, seq)
		for _, f := range fields[1:] {
			to, err := strconv.Atoi(f)
			if err != nil || to < 0 || to >= numVertices {
				log.Fatalf("[LoadFromTxt] graph file: %v vertex %d bad neighbor %q\n", fn, id, f)
			}
			edges = append(edges, [2]int32{int32(id), int32(to)})
		}
	}
	if err := scanner.Err(); err != nil {
		log.Fatalf("[LoadFromTxt] graph file: %v read error: %v\n", fn, err)
	}

	return buildCharGraph(fn, seqs, identityIDs(numVertices), edges)
}

type vgNode struct {
	ID       int64  `json:"id"`
	Sequence string `json:"sequence"`
}

type vgEdge struct {
	From int64 `json:"from"`
	To   int64 `json:"to"`
}

type vgGraph struct {
	Node []vgNode `json:"node"`
	Edge []vgEdge `json:"edge"`
}

// LoadFromVG reads a variation graph in the JSON form emitted by
// `vg view -j`.
func LoadFromVG(fn string) *CSRChar {
	data, err := os.ReadFile(fn)
	if err != nil {
		log.Fatalf("[LoadFromVG] open graph file: %v error: %v\n", fn, err)
	}

	var vg vgGraph
	if err := json.Unmarshal(data, &vg); err != nil {
		log.Fatalf("[LoadFromVG] graph file: %v parse error: %v\n", fn, err)
	}
	if len(vg.Node) == 0 {
		log.Fatalf("[LoadFromVG] graph file: %v has no nodes\n", fn)
	}

	idx := make(map[int64]int32, len(vg.Node))
	seqs := make([][]byte, 0, len(vg.Node))
	ids := make([]int32, 0, len(vg.Node))
	for i, n := range vg.Node {
		if _, dup := idx[n.ID]; dup {
			log.Fatalf("[LoadFromVG] graph file: %v duplicate node id %d\n", fn, n.ID)
		}
		idx[n.ID] = int32(i)
		seq := []byte(n.Sequence)
		sequtil.MakeUpperCase(seq)
		seqs = append(seqs, seq)
		ids = append(ids, int32(n.ID))
	}

	edges := make([][2]int32, 0, len(vg.Edge))
	for _, e := range vg.Edge {
		from, ok := idx[e.From]
		if !ok {
			log.Fatalf("[LoadFromVG] graph file: %v edge references unknown node %d\n", fn, e.From)
		}
		to, ok := idx[e.To]
		if !ok {
			log.Fatalf("[LoadFromVG] graph file: %v edge references unknown node %d\n", fn, e.To)
		}
		edges = append(edges, [2]int32{from, to})
	}

	return buildCharGraph(fn, seqs, ids, edges)
}

func identityIDs(n int) []int32 {
	ids := make([]int32, n)
	for i := range ids {
		ids[i] = int32(i)
	}
	return ids
}

// buildCharGraph expands multi-character vertices into chains of
// single-character vertices joined by serial edges, keeping the
// (original id, offset) coordinate of every character. The result is
// relabeled if the incoming numbering is not topological, then verified.
func buildCharGraph(fn string, seqs [][]byte, ids []int32, edges [][2]int32) *CSRChar {
	first := make([]int32, len(seqs))
	last := make([]int32, len(seqs))
	var total int32
	for i, s := range seqs {
		if len(s) == 0 {
			log.Fatalf("[buildCharGraph] graph file: %v vertex %d has empty sequence\n", fn, ids[i])
		}
		first[i] = total
		total += int32(len(s))
		last[i] = total - 1
	}

	labels := make([]byte, 0, total)
	orig := make([]OrigCoord, 0, total)
	var charEdges [][2]int32
	for i, s := range seqs {
		for off, c := range s {
			labels = append(labels, c)
			orig = append(orig, OrigCoord{ID: ids[i], Off: int32(off)})
			if off > 0 {
				charEdges = append(charEdges, [2]int32{first[i] + int32(off) - 1, first[i] + int32(off)})
			}
		}
	}
	for _, e := range edges {
		charEdges = append(charEdges, [2]int32{last[e[0]], first[e[1]]})
	}

	g, err := NewCSRChar(labels, charEdges, orig)
	if err != nil {
		log.Fatalf("[buildCharGraph] graph file: %v invalid graph: %v\n", fn, err)
	}

	if !g.IsTopological() {
		fmt.Printf("[buildCharGraph] input numbering is not topological, relabeling\n")
		g.Sort()
	}
	if err := g.Verify(); err != nil {
		log.Fatalf("[buildCharGraph] graph file: %v verification failed: %v\n", fn, err)
	}

	fmt.Printf("[buildCharGraph] loaded %v, %d vertices, %d edges, checksum %#x\n",
		fn, g.NumVertices, g.NumEdges, g.Checksum())

	return g
}
