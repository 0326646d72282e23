package align

import (
	"fmt"
	"time"

	"gsa/graph"
	"gsa/sequtil"
)

// AlignToDAGLocal aligns every read of the set to the graph and returns one
// result record per read.
//
// Phase 1 scores a doubled read vector, two orientation slots per read, and
// the better-scoring slot goes on to the remaining passes. Both slots
// currently hold the read as-is and everything is reported on the '+'
// strand.
// TODO: fill slot 2k+1 with sequtil.ReverseComplement(read) and report the
// second slot on the '-' strand.
func AlignToDAGLocal(readSet [][]byte, g *graph.CSRChar, prm *Parameters) []BestScoreInfo {
	if len(readSet) == 0 {
		fmt.Printf("[AlignToDAGLocal] empty read set, nothing to align\n")
		return nil
	}

	//
	// Phase 1: best score values and end locations, both orientations
	//
	readSetP1 := make([][]byte, 0, 2*len(readSet))
	for _, r := range readSet {
		readSetP1 = append(readSetP1, r)
		readSetP1 = append(readSetP1, r)
	}
	bestVecP1 := make([]BestScoreInfo, len(readSetP1))

	tick := time.Now()
	Phase1Scalar(readSetP1, g, prm, bestVecP1)
	fmt.Printf("[AlignToDAGLocal] time spent in phase 1 = %v\n", time.Since(tick))

	//
	// Phase 1 reverse: begin locations of the chosen orientation
	//
	tick = time.Now()

	out := make([]BestScoreInfo, 0, len(readSet))
	readSetP1R := make([][]byte, 0, len(readSet))
	readSetP2 := make([][]byte, 0, len(readSet))

	for k := range readSet {
		// orientation with the larger score wins, the first slot on a tie
		sel := 2 * k
		if bestVecP1[2*k+1].Score > bestVecP1[2*k].Score {
			sel = 2*k + 1
		}

		b := bestVecP1[sel]
		b.Strand = '+'
		b.QryID = k
		out = append(out, b)

		readSetP1R = append(readSetP1R, sequtil.Reverse(readSetP1[sel]))
		readSetP2 = append(readSetP2, readSetP1[sel])
	}

	Phase1RevScalar(readSetP1R, g, prm, out)
	fmt.Printf("[AlignToDAGLocal] time spent in phase 1-R = %v\n", time.Since(tick))

	//
	// Phase 2: transcripts
	//
	tick = time.Now()
	Phase2(readSetP2, g, prm, out)
	fmt.Printf("[AlignToDAGLocal] time spent in phase 2 = %v\n", time.Since(tick))

	return out
}
