package align

import (
	"bufio"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"gsa/graph"
	"gsa/seqio"
)

// WriteResults writes one tab-separated line per read: name, length, query
// start and end rows, strand, original start and end vertices, score,
// cigar, and the path of original vertex ids the alignment walks.
func WriteResults(prm *Parameters, qmetadata []seqio.ReadInfo, g *graph.CSRChar, bestVec []BestScoreInfo) {
	if len(qmetadata) != len(bestVec) {
		log.Fatalf("[WriteResults] metadata size %d != result size %d\n", len(qmetadata), len(bestVec))
	}

	fp, err := os.Create(prm.Ofile)
	if err != nil {
		log.Fatalf("[WriteResults] create output file: %v error: %v\n", prm.Ofile, err)
	}
	defer fp.Close()
	buffp := bufio.NewWriter(fp)

	for _, e := range bestVec {
		var path strings.Builder
		last := g.Orig[e.RefColStart].ID
		path.WriteString(strconv.Itoa(int(last)))
		for _, c := range e.RefColumns {
			if c >= e.RefColStart && c <= e.RefColEnd {
				if n := g.Orig[c].ID; n != last {
					last = n
					path.WriteByte('-')
					path.WriteString(strconv.Itoa(int(n)))
				}
			}
		}

		var cigar string
		if len(e.Cigar) > 0 {
			cigar = e.Cigar.String()
		}

		fmt.Fprintf(buffp, "%s\t%d\t%d\t%d\t%c\t%v\t%v\t%d\t%s\t%s\n",
			qmetadata[e.QryID].Name,
			qmetadata[e.QryID].Length,
			e.QryRowStart,
			e.QryRowEnd,
			e.Strand,
			g.Orig[e.RefColStart],
			g.Orig[e.RefColEnd],
			e.Score,
			cigar,
			path.String())
	}

	if err := buffp.Flush(); err != nil {
		log.Fatalf("[WriteResults] write output file: %v error: %v\n", prm.Ofile, err)
	}
	fmt.Printf("[WriteResults] wrote %d alignment records to %v\n", len(bestVec), prm.Ofile)
}
