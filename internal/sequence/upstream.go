package sequence

import (
	"strings"

	"github.com/biogo/biogo/alphabet"
)

// UpstreamDistance is the nominal length of the region extracted before a gene.
const UpstreamDistance = 250

// complement maps each base of biogo's redundant DNA alphabet to its
// complement, preserving case. Any other byte maps to N.
var complement = func() (table [256]byte) {
	for i := range table {
		table[i] = 'N'
	}
	const bases = "acmgrsvtwyhkdbn"
	for _, b := range []byte(bases + strings.ToUpper(bases)) {
		c, _ := alphabet.DNAredundant.Complement(alphabet.Letter(b))
		table[b] = byte(c)
	}
	return table
}()

// Complement returns the complement of a single base, preserving case.
// IUPAC ambiguity codes are complemented; any other byte becomes N.
func Complement(base byte) byte {
	return complement[base]
}

// ReverseComplement returns a new slice holding the reverse complement of seq.
func ReverseComplement(seq []byte) []byte {
	n := len(seq)
	out := make([]byte, n)
	for i := 0; i < n; i++ {
		out[i] = complement[seq[n-1-i]]
	}
	return out
}

// Upstream returns the region of up to UpstreamDistance bases immediately
// upstream of the gene start, read in the gene's own direction.
//
// The distance is capped at Location-1, so a gene near the start of its strand
// yields a shorter region. For reverse-strand genes the bases following the
// gene end in sequence coordinates are reverse complemented. The result never
// aliases dna.
func Upstream(dna Nucleotides, g *Gene) Nucleotides {
	loc := g.Location
	if loc > len(dna)+1 {
		loc = len(dna) + 1
	}
	if loc <= 1 {
		return Nucleotides{}
	}

	d := UpstreamDistance
	if loc <= d {
		d = loc - 1
	}

	if g.IsForwardStrand() {
		end := loc - 1
		out := make(Nucleotides, d)
		copy(out, dna[end-d:end])
		return out
	}

	// Reverse strand: Location counts from the sequence end, so the gene end
	// in sequence coordinates is at 0-based index len-loc, and its upstream
	// bases are the d bases that follow it.
	start := len(dna) - loc + 1
	return Nucleotides(ReverseComplement(dna[start : start+d]))
}
