// Package sequtil holds small sequence and CIGAR helpers shared by the
// graph loaders and the alignment phases.
package sequtil

import (
	"log"

	"github.com/biogo/hts/sam"
)

var comp [256]byte

func init() {
	for i := 0; i < 256; i++ {
		comp[i] = byte(i)
	}
	comp['A'] = 'T'
	comp['T'] = 'A'
	comp['C'] = 'G'
	comp['G'] = 'C'
}

// Reverse returns a new slice holding s in reverse order.
func Reverse(s []byte) []byte {
	r := make([]byte, len(s))
	for i, c := range s {
		r[len(s)-1-i] = c
	}
	return r
}

// Complement returns the DNA complement of s, A<->T and C<->G.
// Characters outside ACGT pass through unchanged.
func Complement(s []byte) []byte {
	r := make([]byte, len(s))
	for i, c := range s {
		r[i] = comp[c]
	}
	return r
}

func ReverseComplement(s []byte) []byte {
	return Reverse(Complement(s))
}

// MakeUpperCase upper-cases s in place.
func MakeUpperCase(s []byte) {
	for i, c := range s {
		if c >= 'a' && c <= 'z' {
			s[i] = c - ('a' - 'A')
		}
	}
}

// CigarCompact collapses a raw per-base edit transcript over {=, X, I, D}
// into run-length form.
func CigarCompact(raw []byte) sam.Cigar {
	var cg sam.Cigar
	for i := 0; i < len(raw); {
		j := i
		for j < len(raw) && raw[j] == raw[i] {
			j++
		}
		cg = append(cg, sam.NewCigarOp(cigarOpType(raw[i]), j-i))
		i = j
	}
	return cg
}

func cigarOpType(sym byte) sam.CigarOpType {
	switch sym {
	case '=':
		return sam.CigarEqual
	case 'X':
		return sam.CigarMismatch
	case 'I':
		return sam.CigarInsertion
	case 'D':
		return sam.CigarDeletion
	default:
		log.Fatalf("[cigarOpType] unknown edit symbol %q\n", sym)
	}
	return 0
}

// CigarScore evaluates a compacted transcript against the scoring weights,
// +match per '=', -mismatch per 'X', -ins per 'I', -del per 'D'.
func CigarScore(cg sam.Cigar, match, mismatch, ins, del int32) int32 {
	var score int32
	for _, co := range cg {
		n := int32(co.Len())
		switch co.Type() {
		case sam.CigarEqual:
			score += n * match
		case sam.CigarMismatch:
			score -= n * mismatch
		case sam.CigarInsertion:
			score -= n * ins
		case sam.CigarDeletion:
			score -= n * del
		default:
			log.Fatalf("[CigarScore] unexpected op %v in %v\n", co, cg)
		}
	}
	return score
}
