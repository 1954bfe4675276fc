// Package homology decides whether two peptide sequences are homologous using
// affine-gap Smith-Waterman local alignment over BLOSUM62.
package homology

import (
	"github.com/biogo/biogo/align"
	"github.com/biogo/biogo/align/matrix"
	"github.com/biogo/biogo/alphabet"
	"github.com/biogo/biogo/seq/linear"
)

// Default alignment parameters, in BLOSUM62 units.
const (
	DefaultGapOpen   = 10.0
	DefaultGapExtend = 0.5
	DefaultThreshold = 60.0
)

// scale converts BLOSUM62 units to the integer scores the aligner works in,
// keeping the half-point extend penalty exact.
const scale = 2

// residues is the BLOSUM62 alphabet. Any other byte aligns as X.
const residues = "ARNDCQEGHILKMFPSTWYVBZX*"

var isResidue = func() (ok [256]bool) {
	for i := 0; i < len(residues); i++ {
		ok[residues[i]] = true
	}
	return ok
}()

// Aligner scores local alignments with affine gap penalties. A gap of length
// k costs GapOpen + (k-1)*GapExtend. An Aligner holds no mutable state and is
// safe for concurrent use.
type Aligner struct {
	sw align.SWAffine
}

// NewAligner returns an aligner using BLOSUM62 and the default gap penalties.
func NewAligner() Aligner {
	return newAligner(DefaultGapOpen, DefaultGapExtend)
}

func newAligner(open, extend float64) Aligner {
	ext := int(extend * scale)

	// Row and column 0 of a biogo matrix hold the per-residue gap cost.
	m := make(align.Linear, len(matrix.BLOSUM62))
	for i, row := range matrix.BLOSUM62 {
		m[i] = make([]int, len(row))
		for j, v := range row {
			switch {
			case i == 0 && j == 0:
			case i == 0 || j == 0:
				m[i][j] = -ext
			default:
				m[i][j] = v * scale
			}
		}
	}
	// The first residue of a gap pays GapOpen on top of the gap cost.
	return Aligner{sw: align.SWAffine{Matrix: m, GapOpen: ext - int(open*scale)}}
}

// Score returns the best local alignment score of a against b in BLOSUM62
// units.
func (al Aligner) Score(a, b string) (float32, error) {
	if len(a) == 0 || len(b) == 0 {
		return 0, nil
	}
	pairs, err := al.sw.Align(peptide(a), peptide(b))
	if err != nil {
		return 0, err
	}
	var total int
	for _, p := range pairs {
		if s, ok := p.(interface{ Score() int }); ok {
			total += s.Score()
		}
	}
	return float32(total) / scale, nil
}

// peptide converts s to a protein sequence, upper-casing residues and mapping
// anything outside BLOSUM62 to X.
func peptide(s string) *linear.Seq {
	letters := make([]alphabet.Letter, len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		if !isResidue[c] {
			c = 'X'
		}
		letters[i] = alphabet.Letter(c)
	}
	return linear.NewSeq("", letters, alphabet.Protein)
}
