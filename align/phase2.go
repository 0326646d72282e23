package align

import (
	"log"
	"sync"

	"gsa/graph"
	"gsa/sequtil"
)

// Phase2 recomputes the DP inside the bounding box found by the first two
// passes and walks it backward to recover the edit transcript and the graph
// columns it traverses. Only the vertical score differences are kept, one
// signed byte per cell, instead of a full traceback matrix.
func Phase2(readSet [][]byte, g *graph.CSRChar, prm *Parameters, bestVec []BestScoreInfo) {
	if len(bestVec) != len(readSet) {
		log.Fatalf("[Phase2] result vector size %d != read count %d\n", len(bestVec), len(readSet))
	}

	rc := make(chan int, prm.Threads)
	var wg sync.WaitGroup
	for w := 0; w < prm.Threads; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for readno := range rc {
				if bestVec[readno].Score == 0 {
					// nothing aligned, leave the transcript empty
					continue
				}
				phase2Read(readSet[readno], g, prm, &bestVec[readno])
			}
		}()
	}

	for readno := range readSet {
		rc <- readno
	}
	close(rc)
	wg.Wait()
}

func phase2Read(read []byte, g *graph.CSRChar, prm *Parameters, best *BestScoreInfo) {
	// bounding box of the optimal alignment
	j0 := best.RefColStart
	i0 := best.QryRowStart
	reducedWidth := best.RefColEnd - best.RefColStart + 1
	reducedHeight := best.QryRowEnd - best.QryRowStart + 1

	finalRow := make([]int32, reducedWidth)

	// vertical score differences of every cell, enough to reconstruct any
	// row from the one below it during the backward walk
	matrixLog := make([][]int8, reducedHeight)
	for i := range matrixLog {
		matrixLog[i] = make([]int8, reducedWidth)
	}

	//
	// 2.1: recompute the DP restricted to the box
	//
	{
		var matrix [2][]int32
		matrix[0] = make([]int32, reducedWidth)
		matrix[1] = make([]int32, reducedWidth)

		for i := int32(0); i < reducedHeight; i++ {
			cur := matrix[i&1]
			prev := matrix[(i-1)&1]

			for j := int32(0); j < reducedWidth; j++ {
				fromInsertion := prev[j] - prm.Ins

				matchScore := -prm.Mismatch
				if g.Label[j+j0] == read[i+i0] {
					matchScore = prm.Match
				}
				// also handles the case when in-degree is zero
				fromMatch := matchScore

				fromDeletion := int32(-1)

				for _, p := range g.InNeighbors(j + j0) {
					// the alignment is known to start no earlier than j0
					if p >= j0 {
						if v := prev[p-j0] + matchScore; v > fromMatch {
							fromMatch = v
						}
						if v := cur[p-j0] - prm.Del; v > fromDeletion {
							fromDeletion = v
						}
					}
				}

				currentMax := fromMatch
				if fromInsertion > currentMax {
					currentMax = fromInsertion
				}
				if fromDeletion > currentMax {
					currentMax = fromDeletion
				}
				if currentMax < 0 {
					currentMax = 0
				}
				cur[j] = currentMax

				matrixLog[i][j] = int8(currentMax - prev[j])
			}

			if i == reducedHeight-1 {
				copy(finalRow, cur)
			}
		}

		recomputed := finalRow[0]
		for _, v := range finalRow[1:] {
			if v > recomputed {
				recomputed = v
			}
		}
		if recomputed != best.Score {
			log.Fatalf("[phase2Read] recomputed score %d != phase 1 score %d\n", recomputed, best.Score)
		}
		if finalRow[best.RefColEnd-j0] != best.Score {
			log.Fatalf("[phase2Read] final row at column %d holds %d, want %d\n",
				best.RefColEnd, finalRow[best.RefColEnd-j0], best.Score)
		}
	}

	//
	// 2.2: walk backward from the known end cell
	//
	var rawCigar []byte
	var usedCols []int32

	currentRow := finalRow
	aboveRow := make([]int32, reducedWidth)

	col := reducedWidth - 1
	row := reducedHeight - 1

walk:
	for col >= 0 && row >= 0 {
		usedCols = append(usedCols, col+j0)
		if currentRow[col] <= 0 {
			break
		}

		// reconstruct the row above from the logged differences
		for c := int32(0); c < reducedWidth; c++ {
			aboveRow[c] = currentRow[c] - int32(matrixLog[row][c])
		}

		fromInsertion := aboveRow[col] - prm.Ins

		matchScore := -prm.Mismatch
		if g.Label[col+j0] == read[row+i0] {
			matchScore = prm.Match
		}
		fromMatch := matchScore
		fromMatchPos := col

		fromDeletion := int32(-1)
		var fromDeletionPos int32

		// on ties the first predecessor in CSR order wins
		for _, p := range g.InNeighbors(col + j0) {
			if p >= j0 {
				fromCol := p - j0
				if fromMatch < aboveRow[fromCol]+matchScore {
					fromMatch = aboveRow[fromCol] + matchScore
					fromMatchPos = fromCol
				}
				if fromDeletion < currentRow[fromCol]-prm.Del {
					fromDeletion = currentRow[fromCol] - prm.Del
					fromDeletionPos = fromCol
				}
			}
		}

		switch {
		case currentRow[col] == fromMatch:
			if matchScore == prm.Match {
				rawCigar = append(rawCigar, '=')
			} else {
				rawCigar = append(rawCigar, 'X')
			}

			// the alignment starts in this column
			if fromMatchPos == col {
				break walk
			}

			col = fromMatchPos
			row--
			currentRow, aboveRow = aboveRow, currentRow

		case currentRow[col] == fromDeletion:
			rawCigar = append(rawCigar, 'D')
			col = fromDeletionPos

		default:
			if currentRow[col] != fromInsertion {
				log.Fatalf("[phase2Read] cell (%d,%d) value %d matches no incoming edit\n",
					row, col, currentRow[col])
			}
			rawCigar = append(rawCigar, 'I')
			row--
			currentRow, aboveRow = aboveRow, currentRow
		}
	}

	for l, r := 0, len(rawCigar)-1; l < r; l, r = l+1, r-1 {
		rawCigar[l], rawCigar[r] = rawCigar[r], rawCigar[l]
	}
	for l, r := 0, len(usedCols)-1; l < r; l, r = l+1, r-1 {
		usedCols[l], usedCols[r] = usedCols[r], usedCols[l]
	}

	cigar := sequtil.CigarCompact(rawCigar)
	if s := sequtil.CigarScore(cigar, prm.Match, prm.Mismatch, prm.Ins, prm.Del); s != best.Score {
		log.Fatalf("[phase2Read] cigar %v re-scores to %d, want %d\n", cigar, s, best.Score)
	}

	best.Cigar = cigar
	best.RefColumns = usedCols
}
