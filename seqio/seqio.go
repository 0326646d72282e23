// Package seqio loads query sequences from FASTA or FASTQ files, optionally
// gzip- or zstd-compressed.
package seqio

import (
	"bufio"
	"fmt"
	"io"
	"log"
	"os"
	"strings"

	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/io/seqio/fasta"
	"github.com/biogo/biogo/io/seqio/fastq"
	"github.com/biogo/biogo/seq/linear"
	"github.com/klauspost/compress/gzip"
	"github.com/klauspost/compress/zstd"

	"gsa/sequtil"
)

type ReadInfo struct {
	Name   string
	Length int
	Seq    []byte
}

// LoadReads parses all records of a query file. Sequences are upper-cased;
// characters outside ACGT are kept as they are.
func LoadReads(fn string) []ReadInfo {
	fp, err := os.Open(fn)
	if err != nil {
		log.Fatalf("[LoadReads] open query file: %v error: %v\n", fn, err)
	}
	defer fp.Close()

	var reader io.Reader = fp
	switch {
	case strings.HasSuffix(fn, ".gz"):
		gzfp, err := gzip.NewReader(fp)
		if err != nil {
			log.Fatalf("[LoadReads] query file: %v gzip open error: %v\n", fn, err)
		}
		defer gzfp.Close()
		reader = gzfp
	case strings.HasSuffix(fn, ".zst"):
		zfp, err := zstd.NewReader(fp)
		if err != nil {
			log.Fatalf("[LoadReads] query file: %v zstd open error: %v\n", fn, err)
		}
		defer zfp.Close()
		reader = zfp
	}

	buffp := bufio.NewReader(reader)
	lead, err := buffp.Peek(1)
	if err != nil {
		log.Fatalf("[LoadReads] query file: %v is empty or unreadable: %v\n", fn, err)
	}

	var reads []ReadInfo
	switch lead[0] {
	case '>':
		reads = readFasta(fn, buffp)
	case '@':
		reads = readFastq(fn, buffp)
	default:
		log.Fatalf("[LoadReads] query file: %v is neither fasta nor fastq (leading %q)\n", fn, lead[0])
	}

	fmt.Printf("[LoadReads] total count of reads = %d\n", len(reads))
	return reads
}

func readFasta(fn string, r io.Reader) (reads []ReadInfo) {
	fafp := fasta.NewReader(r, linear.NewSeq("", nil, alphabet.DNA))
	for {
		s, err := fafp.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Fatalf("[readFasta] read file: %v error: %v\n", fn, err)
		}
		l := s.(*linear.Seq)
		seq := make([]byte, len(l.Seq))
		for j, v := range l.Seq {
			seq[j] = byte(v)
		}
		sequtil.MakeUpperCase(seq)
		reads = append(reads, ReadInfo{Name: l.Name(), Length: len(seq), Seq: seq})
	}
	return reads
}

func readFastq(fn string, r io.Reader) (reads []ReadInfo) {
	fqfp := fastq.NewReader(r, linear.NewQSeq("", nil, alphabet.DNA, alphabet.Sanger))
	for {
		s, err := fqfp.Read()
		if err != nil {
			if err == io.EOF {
				break
			}
			log.Fatalf("[readFastq] read file: %v error: %v\n", fn, err)
		}
		l := s.(*linear.QSeq)
		seq := make([]byte, len(l.Seq))
		for j, v := range l.Seq {
			seq[j] = byte(v.L)
		}
		sequtil.MakeUpperCase(seq)
		reads = append(reads, ReadInfo{Name: l.Name(), Length: len(seq), Seq: seq})
	}
	return reads
}
