package main

import (
	"fmt"
	"log"
	"net/http"
	_ "net/http/pprof"
	"os"
	"runtime"
	"runtime/pprof"
	"time"

	"github.com/jwaldrip/odin/cli"

	"gsa/align"
	"gsa/graph"
	"gsa/seqio"
	"gsa/utils"
)

var app = cli.New("0.1.0", "Local alignment of sequence reads to a reference DAG", Align)

func init() {
	go func() {
		log.Println(http.ListenAndServe("localhost:6092", nil))
	}()
	app.DefineStringFlag("m", "", "reference graph format [vg or txt]")
	app.DefineStringFlag("r", "", "reference graph file")
	app.DefineStringFlag("q", "", "query file (fasta/fastq)[.gz|.zst]")
	app.DefineStringFlag("o", "gsa.out.tsv", "output file of alignment records")
	app.DefineStringFlag("dot", "", "dump the character graph in DOT form to this file")
	app.DefineIntFlag("match", 1, "score of a matching base")
	app.DefineIntFlag("mismatch", 1, "penalty of a mismatching base")
	app.DefineIntFlag("ins", 1, "penalty of a base inserted in the query")
	app.DefineIntFlag("del", 1, "penalty of a base deleted from the query")
	app.DefineIntFlag("t", runtime.NumCPU(), "number of CPU used")
	app.DefineStringFlag("cpuprofile", "", "write cpu profile to file")
}

func checkArgs(c cli.Command, opt utils.ArgsOpt) (prm align.Parameters) {
	prm.Mode = c.Flag("m").String()
	if prm.Mode != "vg" && prm.Mode != "txt" {
		log.Fatalf("[checkArgs] args 'm': %v must be one of [vg txt]\n", prm.Mode)
	}
	prm.Rfile = c.Flag("r").String()
	if prm.Rfile == "" {
		log.Fatalf("[checkArgs] args 'r' not set\n")
	}
	prm.Qfile = c.Flag("q").String()
	if prm.Qfile == "" {
		log.Fatalf("[checkArgs] args 'q' not set\n")
	}
	prm.Ofile = c.Flag("o").String()
	if prm.Ofile == "" {
		log.Fatalf("[checkArgs] args 'o' not set\n")
	}

	weights := [4]string{"match", "mismatch", "ins", "del"}
	dst := [4]*int32{&prm.Match, &prm.Mismatch, &prm.Ins, &prm.Del}
	for i, name := range weights {
		v, ok := c.Flag(name).Get().(int)
		if !ok {
			log.Fatalf("[checkArgs] args '%v': %v set error\n", name, c.Flag(name).String())
		}
		*dst[i] = int32(v)
	}
	if prm.Match < 1 {
		log.Fatalf("[checkArgs] args 'match': %v must be >= 1\n", prm.Match)
	}
	if prm.Mismatch < 0 || prm.Ins < 0 || prm.Del < 0 {
		log.Fatalf("[checkArgs] penalties must be >= 0\n")
	}

	prm.Threads = opt.NumCPU
	return prm
}

func Align(c cli.Command) {
	opt, _ := utils.CheckGlobalArgs(c)
	prm := checkArgs(c, opt)

	runtime.GOMAXPROCS(prm.Threads)

	if opt.Cpuprofile != "" {
		fp, err := os.Create(opt.Cpuprofile)
		if err != nil {
			log.Fatalf("[Align] create cpu profile file: %v error: %v\n", opt.Cpuprofile, err)
		}
		defer fp.Close()
		pprof.StartCPUProfile(fp)
		defer pprof.StopCPUProfile()
	}

	fmt.Printf("[Align] reference file = %v (in %v format)\n", prm.Rfile, prm.Mode)
	fmt.Printf("[Align] query file = %v\n", prm.Qfile)

	var g *graph.CSRChar
	switch prm.Mode {
	case "vg":
		g = graph.LoadFromVG(prm.Rfile)
	case "txt":
		g = graph.LoadFromTxt(prm.Rfile)
	}

	if dotfn := c.Flag("dot").String(); dotfn != "" {
		graph.WriteDot(g, dotfn)
	}

	reads := seqio.LoadReads(prm.Qfile)
	readSet := make([][]byte, len(reads))
	for i, r := range reads {
		readSet[i] = r.Seq
	}

	tick := time.Now()
	bestVec := align.AlignToDAGLocal(readSet, g, &prm)
	fmt.Printf("[Align] total alignment time = %v\n", time.Since(tick))

	align.WriteResults(&prm, reads, g, bestVec)
}

func main() {
	app.Start()
}
