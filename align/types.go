// Package align implements local alignment of query sequences to a
// topologically numbered character DAG. The work is split into three
// passes: a forward DP over the whole graph locates the best score and its
// end coordinates, a reverse DP over the reversed query locates the start
// coordinates, and a bounded recomputation between the two recovers the
// edit transcript.
package align

import (
	"github.com/biogo/hts/sam"
)

type Parameters struct {
	Match    int32
	Mismatch int32
	Ins      int32
	Del      int32

	Threads int

	Mode  string
	Rfile string
	Qfile string
	Ofile string
}

// BestScoreInfo accumulates the result of the three passes for one read.
// Phase 1 fills Score and the end coordinates, the orientation selection
// fills Strand and QryID, the reverse pass fills the start coordinates, and
// the traceback fills Cigar and RefColumns.
type BestScoreInfo struct {
	Score int32

	RefColStart int32
	RefColEnd   int32
	QryRowStart int32
	QryRowEnd   int32

	Strand byte
	QryID  int

	Cigar      sam.Cigar
	RefColumns []int32
}
