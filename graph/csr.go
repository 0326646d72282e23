// Package graph stores the reference DAG in CSR format at single-character
// resolution. Vertex numbering is topological: every edge (u,v) has u < v.
// Both outgoing and incoming edges are kept, redundant but convenient for
// the alignment phases which walk predecessors forward and successors
// backward.
package graph

import (
	"encoding/binary"
	"fmt"
	"log"
	"math"
	"math/rand"
	"sort"

	"github.com/cespare/xxhash"
)

// OrigCoord maps a character vertex back to the loader's vertex space as
// (original vertex id, character offset inside it).
type OrigCoord struct {
	ID  int32
	Off int32
}

func (oc OrigCoord) String() string {
	return fmt.Sprintf("(%d,%d)", oc.ID, oc.Off)
}

type CSRChar struct {
	NumVertices int32
	NumEdges    int32

	// one reference character per vertex
	Label []byte

	// contiguous adjacency lists of all vertices, size = NumEdges
	AdjcnyIn  []int32
	AdjcnyOut []int32

	// offsets in adjacency lists for each vertex, size = NumVertices + 1
	OffsetsIn  []int32
	OffsetsOut []int32

	// loader-provided mapping to pre-expansion vertices, opaque here
	Orig []OrigCoord
}

// NewCSRChar builds both adjacency representations from vertex labels and a
// directed edge list. Edges are sorted by (from,to) so the layout is
// deterministic; parallel edges are deduplicated, self-loops rejected.
func NewCSRChar(labels []byte, edges [][2]int32, orig []OrigCoord) (*CSRChar, error) {
	n := int32(len(labels))
	if orig != nil && int32(len(orig)) != n {
		return nil, fmt.Errorf("orig mapping size %d != vertex count %d", len(orig), n)
	}
	for _, e := range edges {
		if e[0] < 0 || e[0] >= n || e[1] < 0 || e[1] >= n {
			return nil, fmt.Errorf("edge (%d,%d) out of vertex range [0,%d)", e[0], e[1], n)
		}
		if e[0] == e[1] {
			return nil, fmt.Errorf("self-loop at vertex %d", e[0])
		}
	}

	g := &CSRChar{
		NumVertices: n,
		Label:       labels,
		Orig:        orig,
	}

	sorted := make([][2]int32, len(edges))
	copy(sorted, edges)
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a][0] != sorted[b][0] {
			return sorted[a][0] < sorted[b][0]
		}
		return sorted[a][1] < sorted[b][1]
	})
	sorted = dedupEdges(sorted)
	g.NumEdges = int32(len(sorted))

	g.OffsetsOut, g.AdjcnyOut = fillCSR(n, sorted)

	// reverse the edge vector: <from,to> -> <to,from>
	for i := range sorted {
		sorted[i][0], sorted[i][1] = sorted[i][1], sorted[i][0]
	}
	sort.SliceStable(sorted, func(a, b int) bool {
		if sorted[a][0] != sorted[b][0] {
			return sorted[a][0] < sorted[b][0]
		}
		return sorted[a][1] < sorted[b][1]
	})
	g.OffsetsIn, g.AdjcnyIn = fillCSR(n, sorted)

	return g, nil
}

func dedupEdges(sorted [][2]int32) [][2]int32 {
	out := sorted[:0]
	for i, e := range sorted {
		if i > 0 && e == sorted[i-1] {
			continue
		}
		out = append(out, e)
	}
	return out
}

func fillCSR(n int32, sorted [][2]int32) (offsets, adjcny []int32) {
	offsets = make([]int32, n+1)
	adjcny = make([]int32, 0, len(sorted))
	pos := 0
	for i := int32(0); i < n; i++ {
		for pos < len(sorted) && sorted[pos][0] == i {
			adjcny = append(adjcny, sorted[pos][1])
			pos++
		}
		offsets[i+1] = int32(pos)
	}
	return offsets, adjcny
}

// OutNeighbors returns the successors of vertex j as a shared slice.
func (g *CSRChar) OutNeighbors(j int32) []int32 {
	return g.AdjcnyOut[g.OffsetsOut[j]:g.OffsetsOut[j+1]]
}

// InNeighbors returns the predecessors of vertex j as a shared slice.
func (g *CSRChar) InNeighbors(j int32) []int32 {
	return g.AdjcnyIn[g.OffsetsIn[j]:g.OffsetsIn[j+1]]
}

// EdgeExists checks for an edge from u to v.
func (g *CSRChar) EdgeExists(u, v int32) bool {
	for _, w := range g.OutNeighbors(u) {
		if w == v {
			return true
		}
	}
	return false
}

// Verify sanity-checks the CSR storage and the topological numbering.
func (g *CSRChar) Verify() error {
	if int32(len(g.Label)) != g.NumVertices {
		return fmt.Errorf("label count %d != vertex count %d", len(g.Label), g.NumVertices)
	}
	for j, c := range g.Label {
		if c == 0 {
			return fmt.Errorf("vertex %d has empty label", j)
		}
	}
	if int32(len(g.AdjcnyIn)) != g.NumEdges || int32(len(g.AdjcnyOut)) != g.NumEdges {
		return fmt.Errorf("adjacency sizes (%d,%d) != edge count %d",
			len(g.AdjcnyIn), len(g.AdjcnyOut), g.NumEdges)
	}
	if int32(len(g.OffsetsIn)) != g.NumVertices+1 || int32(len(g.OffsetsOut)) != g.NumVertices+1 {
		return fmt.Errorf("offset sizes (%d,%d) != vertex count %d + 1",
			len(g.OffsetsIn), len(g.OffsetsOut), g.NumVertices)
	}
	for _, offsets := range [][]int32{g.OffsetsIn, g.OffsetsOut} {
		for i, off := range offsets {
			if off < 0 || off > g.NumEdges {
				return fmt.Errorf("offset %d out of range at %d", off, i)
			}
			if i > 0 && offsets[i-1] > off {
				return fmt.Errorf("offsets decrease at %d", i)
			}
		}
		if offsets[g.NumVertices] != g.NumEdges {
			return fmt.Errorf("final offset %d != edge count %d", offsets[g.NumVertices], g.NumEdges)
		}
	}
	for _, adj := range [][]int32{g.AdjcnyIn, g.AdjcnyOut} {
		for _, v := range adj {
			if v < 0 || v >= g.NumVertices {
				return fmt.Errorf("neighbor id %d out of range", v)
			}
		}
	}
	if !g.IsTopological() {
		return fmt.Errorf("vertex numbering is not topological")
	}
	return nil
}

// IsTopological reports whether every edge goes from a lower to a higher id.
func (g *CSRChar) IsTopological() bool {
	for i := int32(0); i < g.NumVertices; i++ {
		for _, w := range g.OutNeighbors(i) {
			if w <= i {
				return false
			}
		}
	}
	return true
}

// Sort relabels graph vertices into a topologically sorted order, chosen
// among several randomized Kahn runs as the one with the least directed
// bandwidth.
func (g *CSRChar) Sort() {
	const runs = 5

	order := make([]int32, g.NumVertices)
	g.topologicalSort(runs, order)

	fmt.Printf("[CSRChar.Sort] topological sort [rand%d] computed, bandwidth = %d\n", runs, g.directedBandwidth(order))
	fmt.Printf("[CSRChar.Sort] a loose lower bound on bandwidth = %d\n", g.LowerBoundBandwidth())
	fmt.Printf("[CSRChar.Sort] relabeling graph based on the computed order\n")

	// sorted position to vertex mapping (reverse order)
	rOrder := make([]int32, g.NumVertices)
	for i := int32(0); i < g.NumVertices; i++ {
		rOrder[order[i]] = i
	}

	labelNew := make([]byte, g.NumVertices)
	for i := int32(0); i < g.NumVertices; i++ {
		labelNew[i] = g.Label[rOrder[i]]
	}
	g.Label = labelNew

	if g.Orig != nil {
		origNew := make([]OrigCoord, g.NumVertices)
		for i := int32(0); i < g.NumVertices; i++ {
			origNew[i] = g.Orig[rOrder[i]]
		}
		g.Orig = origNew
	}

	adjInNew := make([]int32, 0, g.NumEdges)
	adjOutNew := make([]int32, 0, g.NumEdges)
	for i := int32(0); i < g.NumVertices; i++ {
		for _, p := range g.InNeighbors(rOrder[i]) {
			adjInNew = append(adjInNew, order[p])
		}
	}
	for i := int32(0); i < g.NumVertices; i++ {
		for _, w := range g.OutNeighbors(rOrder[i]) {
			adjOutNew = append(adjOutNew, order[w])
		}
	}

	offInNew := make([]int32, g.NumVertices+1)
	offOutNew := make([]int32, g.NumVertices+1)
	for i := int32(0); i < g.NumVertices; i++ {
		offInNew[i+1] = offInNew[i] + (g.OffsetsIn[rOrder[i]+1] - g.OffsetsIn[rOrder[i]])
		offOutNew[i+1] = offOutNew[i] + (g.OffsetsOut[rOrder[i]+1] - g.OffsetsOut[rOrder[i]])
	}

	g.AdjcnyIn, g.AdjcnyOut = adjInNew, adjOutNew
	g.OffsetsIn, g.OffsetsOut = offInNew, offOutNew
}

// topologicalSort runs Kahn's algorithm `runs` times with random tie
// breaking and keeps the ordering with the least directed bandwidth.
// finalOrder[v] is the position vertex v should move to.
func (g *CSRChar) topologicalSort(runs int, finalOrder []int32) {
	inDegree := make([]int32, g.NumVertices)
	for i := int32(0); i < g.NumVertices; i++ {
		inDegree[i] = g.OffsetsIn[i+1] - g.OffsetsIn[i]
	}

	rng := rand.New(rand.NewSource(int64(g.NumVertices)*31 + int64(g.NumEdges)))
	minBandwidth := int32(math.MaxInt32)

	for r := 0; r < runs; r++ {
		tmpOrder := make([]int32, g.NumVertices)
		currentOrder := int32(0)

		deg := make([]int32, g.NumVertices)
		copy(deg, inDegree)

		var queue []int32
		for i := int32(0); i < g.NumVertices; i++ {
			if deg[i] == 0 {
				queue = append(queue, i)
			}
		}

		for len(queue) > 0 {
			k := rng.Intn(len(queue))
			v := queue[k]
			queue[k] = queue[len(queue)-1]
			queue = queue[:len(queue)-1]

			tmpOrder[v] = currentOrder
			currentOrder++

			for _, w := range g.OutNeighbors(v) {
				deg[w]--
				if deg[w] == 0 {
					queue = append(queue, w)
				}
			}
		}

		if currentOrder != g.NumVertices {
			log.Fatalf("[topologicalSort] graph has a cycle, ordered %d of %d vertices\n", currentOrder, g.NumVertices)
		}

		if bw := g.directedBandwidth(tmpOrder); bw < minBandwidth {
			minBandwidth = bw
			copy(finalOrder, tmpOrder)
		}
	}
}

// directedBandwidth computes the maximum span between connected vertices
// under the candidate ordering. Every vertex is one character wide, so the
// span of an edge is just the position difference.
func (g *CSRChar) directedBandwidth(order []int32) int32 {
	var bandwidth int32
	for i := int32(0); i < g.NumVertices; i++ {
		for _, w := range g.OutNeighbors(i) {
			if span := order[w] - order[i]; span > bandwidth {
				bandwidth = span
			}
		}
	}
	return bandwidth
}

// DirectedBandwidth computes the bandwidth of the current numbering. Its
// value bounds how many prior columns a DP row has to reach back to.
func (g *CSRChar) DirectedBandwidth() int32 {
	var bandwidth int32
	for i := int32(0); i < g.NumVertices; i++ {
		for _, w := range g.OutNeighbors(i) {
			if span := w - i; span > bandwidth {
				bandwidth = span
			}
		}
	}
	return bandwidth
}

// LowerBoundBandwidth computes a loose lower bound on the achievable
// directed bandwidth by looking at vertex neighborhoods.
func (g *CSRChar) LowerBoundBandwidth() int32 {
	var lbound int32

	// out-neighbors of one vertex must occupy distinct later positions
	for i := int32(0); i < g.NumVertices; i++ {
		if d := g.OffsetsOut[i+1] - g.OffsetsOut[i]; d > lbound {
			lbound = d
		}
	}

	// symmetric for in-neighbors
	for i := int32(0); i < g.NumVertices; i++ {
		if d := g.OffsetsIn[i+1] - g.OffsetsIn[i]; d > lbound {
			lbound = d
		}
	}

	// single-base insertion variation: both neighbors connected to each
	// other force a span of two
	for i := int32(0); i < g.NumVertices; i++ {
		if g.OffsetsOut[i+1]-g.OffsetsOut[i] == 2 {
			u := g.AdjcnyOut[g.OffsetsOut[i]]
			v := g.AdjcnyOut[g.OffsetsOut[i]+1]
			if (g.EdgeExists(u, v) || g.EdgeExists(v, u)) && lbound < 2 {
				lbound = 2
			}
		}
	}

	return lbound
}

// Checksum digests labels and out-edges; identical graphs hash identically
// regardless of how the loader ordered its input.
func (g *CSRChar) Checksum() uint64 {
	h := xxhash.New()
	h.Write(g.Label)
	var buf [8]byte
	for i := int32(0); i < g.NumVertices; i++ {
		for _, w := range g.OutNeighbors(i) {
			binary.LittleEndian.PutUint32(buf[0:4], uint32(i))
			binary.LittleEndian.PutUint32(buf[4:8], uint32(w))
			h.Write(buf[:])
		}
	}
	return h.Sum64()
}
