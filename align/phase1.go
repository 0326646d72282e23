package align

import (
	"log"
	"math"
	"sync"

	"gsa/graph"
)

// score is the cell type of the DP matrices. The width is picked per batch
// from the highest score any read can reach, so short reads run in narrow
// integers; the scores produced are identical across widths.
type score interface {
	~int8 | ~int16 | ~int32
}

// scoreBits picks the narrowest cell width whose range covers
// maxReadLen*match plus the requested headroom.
func scoreBits(maxReadLen int, match int32, headroom int32) int {
	upper := int64(maxReadLen) * int64(match)
	switch {
	case upper <= int64(math.MaxInt8)-int64(headroom):
		return 8
	case upper <= int64(math.MaxInt16)-int64(headroom):
		return 16
	default:
		return 32
	}
}

func maxReadLength(readSet [][]byte) int {
	maxLen := 0
	for _, r := range readSet {
		if len(r) > maxLen {
			maxLen = len(r)
		}
	}
	return maxLen
}

// Phase1Scalar computes, for every read of the set, the best local
// alignment score and the graph column and query row where it ends.
func Phase1Scalar(readSet [][]byte, g *graph.CSRChar, prm *Parameters, bestVec []BestScoreInfo) {
	if len(bestVec) != len(readSet) {
		log.Fatalf("[Phase1Scalar] result vector size %d != read count %d\n", len(bestVec), len(readSet))
	}

	switch bits := scoreBits(maxReadLength(readSet), prm.Match, 0); bits {
	case 8:
		phase1Run[int8](readSet, g, prm, bestVec)
	case 16:
		phase1Run[int16](readSet, g, prm, bestVec)
	default:
		phase1Run[int32](readSet, g, prm, bestVec)
	}
}

func phase1Run[S score](readSet [][]byte, g *graph.CSRChar, prm *Parameters, bestVec []BestScoreInfo) {
	rc := make(chan int, prm.Threads)
	var wg sync.WaitGroup
	for w := 0; w < prm.Threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			// matrix of size 2 x numVertices, rows re-used across reads
			// to keep memory usage low
			var matrix [2][]S
			matrix[0] = make([]S, g.NumVertices)
			matrix[1] = make([]S, g.NumVertices)

			for readno := range rc {
				best, bestRow, bestCol := phase1Read(readSet[readno], g, prm, matrix)
				bestVec[readno].Score = best
				bestVec[readno].RefColEnd = bestCol
				bestVec[readno].QryRowEnd = bestRow
			}
		}()
	}

	for readno := range readSet {
		rc <- readno
	}
	close(rc)
	wg.Wait()
}

func phase1Read[S score](read []byte, g *graph.CSRChar, prm *Parameters, matrix [2][]S) (int32, int32, int32) {
	// only the row read as "previous" by row 0 needs resetting; every
	// other cell is overwritten before it is read
	for j := range matrix[1] {
		matrix[1][j] = 0
	}

	match, mismatch := S(prm.Match), S(prm.Mismatch)
	ins, del := S(prm.Ins), S(prm.Del)

	var bestScore S
	var bestRow, bestCol int32

	for i := 0; i < len(read); i++ {
		cur := matrix[i&1]
		prev := matrix[(i-1)&1]

		for j := int32(0); j < g.NumVertices; j++ {
			matchScore := -mismatch
			if g.Label[j] == read[i] {
				matchScore = match
			}

			// local alignment can also start with a match at this char
			currentMax := matchScore
			if currentMax < 0 {
				currentMax = 0
			}

			for _, p := range g.InNeighbors(j) {
				// paths with match-mismatch edit
				if v := prev[p] + matchScore; v > currentMax {
					currentMax = v
				}
				// paths with deletion edit
				if v := cur[p] - del; v > currentMax {
					currentMax = v
				}
			}

			// insertion edit
			if v := prev[j] - ins; v > currentMax {
				currentMax = v
			}

			cur[j] = currentMax

			// on equal score the later cell in scan order wins
			if currentMax >= bestScore {
				bestScore = currentMax
				bestRow, bestCol = int32(i), j
			}
		}
	}

	return int32(bestScore), bestRow, bestCol
}

// Phase1RevScalar runs the DP right-to-left on reversed queries to locate
// the start coordinates of the alignments found by Phase1Scalar. The cell
// where the forward alignment ended is bumped by one so the reverse
// optimum, the start of the alignment, is unique.
//
// Reads whose forward score is zero (including empty reads) have no
// alignment to locate and are left with zero start coordinates.
func Phase1RevScalar(readSet [][]byte, g *graph.CSRChar, prm *Parameters, bestVec []BestScoreInfo) {
	if len(bestVec) != len(readSet) {
		log.Fatalf("[Phase1RevScalar] result vector size %d != read count %d\n", len(bestVec), len(readSet))
	}

	// one extra unit of headroom for the end-cell bump
	switch bits := scoreBits(maxReadLength(readSet), prm.Match, 1); bits {
	case 8:
		phase1RevRun[int8](readSet, g, prm, bestVec)
	case 16:
		phase1RevRun[int16](readSet, g, prm, bestVec)
	default:
		phase1RevRun[int32](readSet, g, prm, bestVec)
	}
}

func phase1RevRun[S score](readSet [][]byte, g *graph.CSRChar, prm *Parameters, bestVec []BestScoreInfo) {
	rc := make(chan int, prm.Threads)
	var wg sync.WaitGroup
	for w := 0; w < prm.Threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()

			var matrix [2][]S
			matrix[0] = make([]S, g.NumVertices)
			matrix[1] = make([]S, g.NumVertices)

			for readno := range rc {
				if bestVec[readno].Score == 0 {
					continue
				}
				best, bestRow, bestCol := phase1RevRead(readSet[readno], g, prm, matrix,
					bestVec[readno].RefColEnd, bestVec[readno].QryRowEnd)
				if best != bestVec[readno].Score+1 {
					log.Fatalf("[phase1RevRun] read %d: reverse score %d != forward score %d + 1\n",
						readno, best, bestVec[readno].Score)
				}
				bestVec[readno].RefColStart = bestCol
				bestVec[readno].QryRowStart = bestRow
			}
		}()
	}

	for readno := range readSet {
		rc <- readno
	}
	close(rc)
	wg.Wait()
}

func phase1RevRead[S score](read []byte, g *graph.CSRChar, prm *Parameters, matrix [2][]S, refColEnd, qryRowEnd int32) (int32, int32, int32) {
	for j := range matrix[1] {
		matrix[1][j] = 0
	}

	match, mismatch := S(prm.Match), S(prm.Mismatch)
	ins, del := S(prm.Ins), S(prm.Del)

	readLength := int32(len(read))

	var bestScore S
	var bestRow, bestCol int32

	for i := int32(0); i < readLength; i++ {
		cur := matrix[i&1]
		prev := matrix[(i-1)&1]

		// edges are walked backward, so successors act as predecessors
		for j := g.NumVertices - 1; j >= 0; j-- {
			matchScore := -mismatch
			if g.Label[j] == read[i] {
				matchScore = match
			}

			currentMax := matchScore
			if currentMax < 0 {
				currentMax = 0
			}

			for _, w := range g.OutNeighbors(j) {
				if v := prev[w] + matchScore; v > currentMax {
					currentMax = v
				}
				if v := cur[w] - del; v > currentMax {
					currentMax = v
				}
			}

			if v := prev[j] - ins; v > currentMax {
				currentMax = v
			}

			cur[j] = currentMax

			// the cell where the forward alignment ended: a local
			// alignment ends with a match, and the stored value is bumped
			// so the far end can be located without ambiguity. The bumped
			// value takes part in best tracking, otherwise an alignment
			// that starts and ends in the same cell never records its own
			// augmented optimum.
			if j == refColEnd && readLength-1-i == qryRowEnd {
				if int32(currentMax) != prm.Match {
					log.Fatalf("[phase1RevRead] end cell (%d,%d) scored %d, want %d\n",
						qryRowEnd, refColEnd, currentMax, prm.Match)
				}
				cur[j] = match + 1
				currentMax = match + 1
			}

			if currentMax >= bestScore {
				bestScore = currentMax
				bestRow, bestCol = readLength-1-i, j
			}
		}
	}

	return int32(bestScore), bestRow, bestCol
}
