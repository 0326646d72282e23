package graph

import (
	"fmt"
	"log"
	"os"
	"strconv"

	"github.com/awalterschulze/gographviz"
)

// WriteDot dumps the character graph in Graphviz DOT form, one node per
// character labeled with its original coordinate.
func WriteDot(g *CSRChar, fn string) {
	gv := gographviz.NewGraph()
	gv.SetName("G")
	gv.SetDir(true)
	gv.SetStrict(false)

	for i := int32(0); i < g.NumVertices; i++ {
		label := fmt.Sprintf("%c", g.Label[i])
		if g.Orig != nil {
			label = fmt.Sprintf("%c %v", g.Label[i], g.Orig[i])
		}
		attrs := map[string]string{
			"label": strconv.Quote(label),
			"shape": "record",
		}
		if err := gv.AddNode("G", strconv.Itoa(int(i)), attrs); err != nil {
			log.Fatalf("[WriteDot] add node %d error: %v\n", i, err)
		}
	}
	for i := int32(0); i < g.NumVertices; i++ {
		for _, w := range g.OutNeighbors(i) {
			if err := gv.AddEdge(strconv.Itoa(int(i)), strconv.Itoa(int(w)), true, nil); err != nil {
				log.Fatalf("[WriteDot] add edge %d->%d error: %v\n", i, w, err)
			}
		}
	}

	if err := os.WriteFile(fn, []byte(gv.String()), 0644); err != nil {
		log.Fatalf("[WriteDot] write %v error: %v\n", fn, err)
	}
	fmt.Printf("[WriteDot] wrote %d vertices, %d edges to %v\n", g.NumVertices, g.NumEdges, fn)
}
