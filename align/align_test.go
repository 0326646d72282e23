package align

import (
	"math/rand"
	"testing"

	"github.com/stretchr/testify/require"

	"gsa/graph"
	"gsa/sequtil"
)

func testParams(threads int) Parameters {
	return Parameters{Match: 1, Mismatch: 1, Ins: 1, Del: 1, Threads: threads}
}

func mkGraph(t *testing.T, labels string, edges [][2]int32) *graph.CSRChar {
	t.Helper()
	orig := make([]graph.OrigCoord, len(labels))
	for i := range orig {
		orig[i] = graph.OrigCoord{ID: int32(i)}
	}
	g, err := graph.NewCSRChar([]byte(labels), edges, orig)
	require.NoError(t, err)
	require.NoError(t, g.Verify())
	return g
}

func chainGraph(t *testing.T, labels string) *graph.CSRChar {
	t.Helper()
	var edges [][2]int32
	for i := 0; i+1 < len(labels); i++ {
		edges = append(edges, [2]int32{int32(i), int32(i + 1)})
	}
	return mkGraph(t, labels, edges)
}

func alignOne(t *testing.T, g *graph.CSRChar, read string) BestScoreInfo {
	t.Helper()
	prm := testParams(2)
	out := AlignToDAGLocal([][]byte{[]byte(read)}, g, &prm)
	require.Len(t, out, 1)
	return out[0]
}

func TestExactMatchOnChain(t *testing.T) {
	g := chainGraph(t, "ACGT")
	b := alignOne(t, g, "ACGT")

	require.Equal(t, int32(4), b.Score)
	require.Equal(t, int32(0), b.QryRowStart)
	require.Equal(t, int32(3), b.QryRowEnd)
	require.Equal(t, int32(0), b.RefColStart)
	require.Equal(t, int32(3), b.RefColEnd)
	require.Equal(t, "4=", b.Cigar.String())
	require.Equal(t, []int32{0, 1, 2, 3}, b.RefColumns)
	require.Equal(t, byte('+'), b.Strand)
	require.Equal(t, 0, b.QryID)
}

func TestSingleMismatch(t *testing.T) {
	g := chainGraph(t, "ACGT")
	b := alignOne(t, g, "ACCT")

	require.Equal(t, int32(2), b.Score)
	require.Equal(t, "2=1X1=", b.Cigar.String())
}

func TestInsertionInRead(t *testing.T) {
	g := chainGraph(t, "ACGT")
	b := alignOne(t, g, "ACAGT")

	require.Equal(t, int32(3), b.Score)
	require.Equal(t, "2=1I2=", b.Cigar.String())
}

func TestDeletionFromRead(t *testing.T) {
	g := chainGraph(t, "ACGT")
	b := alignOne(t, g, "AGT")

	require.Equal(t, int32(2), b.Score)
	require.Equal(t, "1=1D2=", b.Cigar.String())
}

func TestBranchingGraph(t *testing.T) {
	edges := [][2]int32{{0, 1}, {0, 2}, {1, 3}, {2, 3}}
	g := mkGraph(t, "ACGT", edges)

	b := alignOne(t, g, "AGT")
	require.Equal(t, int32(3), b.Score)
	require.Equal(t, "3=", b.Cigar.String())
	require.Equal(t, []int32{0, 2, 3}, b.RefColumns)

	b = alignOne(t, g, "ACT")
	require.Equal(t, int32(3), b.Score)
	require.Equal(t, "3=", b.Cigar.String())
	require.Equal(t, []int32{0, 1, 3}, b.RefColumns)
}

func TestLocalTrimming(t *testing.T) {
	g := chainGraph(t, "NNACGTNN")
	b := alignOne(t, g, "ACGT")

	require.Equal(t, int32(4), b.Score)
	require.Equal(t, "4=", b.Cigar.String())
	require.Equal(t, int32(2), b.RefColStart)
	require.Equal(t, int32(5), b.RefColEnd)
	require.Equal(t, int32(0), b.QryRowStart)
	require.Equal(t, int32(3), b.QryRowEnd)
}

// On equal score the later cell in scan order wins the end position.
func TestEndTieBreakPrefersLaterCell(t *testing.T) {
	g := chainGraph(t, "ACAC")
	b := alignOne(t, g, "AC")

	require.Equal(t, int32(2), b.Score)
	require.Equal(t, int32(3), b.RefColEnd)
	require.Equal(t, int32(2), b.RefColStart)
	require.Equal(t, int32(1), b.QryRowEnd)
	require.Equal(t, int32(0), b.QryRowStart)
	require.Equal(t, "2=", b.Cigar.String())
}

// When two predecessors tie during the backward walk, the first one in
// in-CSR order wins.
func TestTracebackTieBreakPrefersCSROrder(t *testing.T) {
	edges := [][2]int32{{0, 1}, {0, 2}, {1, 3}, {2, 3}}
	g := mkGraph(t, "GAAT", edges)

	b := alignOne(t, g, "GAT")
	require.Equal(t, int32(3), b.Score)
	require.Equal(t, "3=", b.Cigar.String())
	require.Equal(t, []int32{0, 1, 3}, b.RefColumns)
}

func TestSingleBaseAlignment(t *testing.T) {
	g := chainGraph(t, "ACGT")
	b := alignOne(t, g, "T")

	require.Equal(t, int32(1), b.Score)
	require.Equal(t, "1=", b.Cigar.String())
	require.Equal(t, int32(3), b.RefColStart)
	require.Equal(t, int32(3), b.RefColEnd)
	require.Equal(t, []int32{3}, b.RefColumns)
}

func TestEmptyRead(t *testing.T) {
	g := chainGraph(t, "ACGT")
	b := alignOne(t, g, "")

	require.Equal(t, int32(0), b.Score)
	require.Empty(t, b.Cigar)
	require.Empty(t, b.RefColumns)
}

func TestUnalignableRead(t *testing.T) {
	g := chainGraph(t, "AAAA")
	b := alignOne(t, g, "T")

	require.Equal(t, int32(0), b.Score)
	require.Empty(t, b.Cigar)
}

func TestEmptyReadSet(t *testing.T) {
	g := chainGraph(t, "ACGT")
	prm := testParams(2)
	require.Nil(t, AlignToDAGLocal(nil, g, &prm))
}

func TestScoreBits(t *testing.T) {
	require.Equal(t, 8, scoreBits(100, 1, 0))
	require.Equal(t, 8, scoreBits(127, 1, 0))
	require.Equal(t, 16, scoreBits(127, 1, 1))
	require.Equal(t, 8, scoreBits(126, 1, 1))
	require.Equal(t, 16, scoreBits(128, 1, 0))
	require.Equal(t, 16, scoreBits(32767, 1, 0))
	require.Equal(t, 32, scoreBits(32767, 1, 1))
	require.Equal(t, 32, scoreBits(20000, 2, 0))
}

// The scores produced must be identical across matrix cell widths.
func TestPrecisionEquivalence(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	g := randomDAG(t, rng, 24)
	prm := testParams(2)

	readSet := make([][]byte, 10)
	for i := range readSet {
		readSet[i] = randomRead(rng, 12)
	}

	narrow := make([]BestScoreInfo, len(readSet))
	wide := make([]BestScoreInfo, len(readSet))
	phase1Run[int8](readSet, g, &prm, narrow)
	phase1Run[int32](readSet, g, &prm, wide)
	require.Equal(t, wide, narrow)
}

func TestThreadCountDoesNotChangeResults(t *testing.T) {
	rng := rand.New(rand.NewSource(3))
	g := randomDAG(t, rng, 20)

	readSet := make([][]byte, 16)
	for i := range readSet {
		readSet[i] = randomRead(rng, 10)
	}

	prm1 := testParams(1)
	prm4 := testParams(4)
	require.Equal(t,
		AlignToDAGLocal(readSet, g, &prm1),
		AlignToDAGLocal(readSet, g, &prm4))
}

func randomDAG(t *testing.T, rng *rand.Rand, n int) *graph.CSRChar {
	t.Helper()
	const bases = "ACGT"
	labels := make([]byte, n)
	for i := range labels {
		labels[i] = bases[rng.Intn(4)]
	}
	var edges [][2]int32
	for i := 0; i < n; i++ {
		for j := i + 1; j < n; j++ {
			if j == i+1 || rng.Float64() < 0.15 {
				edges = append(edges, [2]int32{int32(i), int32(j)})
			}
		}
	}
	return mkGraph(t, string(labels), edges)
}

func randomRead(rng *rand.Rand, maxLen int) []byte {
	const bases = "ACGTN"
	read := make([]byte, 1+rng.Intn(maxLen))
	for i := range read {
		read[i] = bases[rng.Intn(5)]
	}
	return read
}

// full-matrix reference recurrence, scores only
func naiveLocalScore(read []byte, g *graph.CSRChar, prm *Parameters) int32 {
	h := make([][]int32, len(read))
	for i := range h {
		h[i] = make([]int32, g.NumVertices)
	}
	var best int32
	for i := 0; i < len(read); i++ {
		for j := int32(0); j < g.NumVertices; j++ {
			ms := -prm.Mismatch
			if g.Label[j] == read[i] {
				ms = prm.Match
			}
			cur := ms
			if cur < 0 {
				cur = 0
			}
			for _, p := range g.InNeighbors(j) {
				if i > 0 {
					if v := h[i-1][p] + ms; v > cur {
						cur = v
					}
				}
				if v := h[i][p] - prm.Del; v > cur {
					cur = v
				}
			}
			if i > 0 {
				if v := h[i-1][j] - prm.Ins; v > cur {
					cur = v
				}
			}
			h[i][j] = cur
			if cur > best {
				best = cur
			}
		}
	}
	return best
}

func TestAgainstReferenceRecurrence(t *testing.T) {
	rng := rand.New(rand.NewSource(42))
	prm := testParams(3)
	prm.Match, prm.Mismatch, prm.Ins, prm.Del = 2, 1, 1, 1

	for round := 0; round < 5; round++ {
		g := randomDAG(t, rng, 10+rng.Intn(12))

		readSet := make([][]byte, 12)
		for i := range readSet {
			readSet[i] = randomRead(rng, 10)
		}

		out := AlignToDAGLocal(readSet, g, &prm)
		require.Len(t, out, len(readSet))

		for k, b := range out {
			want := naiveLocalScore(readSet[k], g, &prm)
			require.Equal(t, want, b.Score, "round %d read %d %q", round, k, readSet[k])
			checkAlignmentInvariants(t, g, &prm, readSet[k], b)
		}
	}
}

func checkAlignmentInvariants(t *testing.T, g *graph.CSRChar, prm *Parameters, read []byte, b BestScoreInfo) {
	t.Helper()

	if b.Score == 0 {
		require.Empty(t, b.Cigar)
		require.Empty(t, b.RefColumns)
		return
	}

	require.LessOrEqual(t, b.RefColStart, b.RefColEnd)
	require.LessOrEqual(t, b.QryRowStart, b.QryRowEnd)

	require.Equal(t, b.Score,
		sequtil.CigarScore(b.Cigar, prm.Match, prm.Mismatch, prm.Ins, prm.Del))

	// query-consuming operators cover exactly the aligned read span
	var qryLen int32
	for _, co := range b.Cigar {
		if c := co.Type().Consumes(); c.Query > 0 {
			qryLen += int32(co.Len())
		}
	}
	require.Equal(t, b.QryRowEnd-b.QryRowStart+1, qryLen)

	// visited columns form a walk through the graph
	for i := 1; i < len(b.RefColumns); i++ {
		a, c := b.RefColumns[i-1], b.RefColumns[i]
		if a != c {
			require.True(t, g.EdgeExists(a, c), "no edge %d->%d", a, c)
		}
	}
}

func Benchmark_Phase1Chain(b *testing.B) {
	labels := make([]byte, 512)
	edges := make([][2]int32, 0, 511)
	const bases = "ACGT"
	rng := rand.New(rand.NewSource(1))
	for i := range labels {
		labels[i] = bases[rng.Intn(4)]
		if i > 0 {
			edges = append(edges, [2]int32{int32(i - 1), int32(i)})
		}
	}
	g, err := graph.NewCSRChar(labels, edges, nil)
	if err != nil {
		b.Fatal(err)
	}
	read := randomRead(rng, 100)
	prm := testParams(1)
	var matrix [2][]int16
	matrix[0] = make([]int16, g.NumVertices)
	matrix[1] = make([]int16, g.NumVertices)

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		phase1Read(read, g, &prm, matrix)
	}
}
