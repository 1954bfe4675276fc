// Package sequence provides the immutable gene, nucleotide and record types
// shared by the scanning engine.
package sequence

// Strand is the DNA strand a gene is encoded on.
type Strand int8

const (
	Forward Strand = 1
	Reverse Strand = -1
)

// String returns "+" or "-".
func (s Strand) String() string {
	if s == Reverse {
		return "-"
	}
	return "+"
}

// Gene is a named coding region. Reference genes carry only a name and an
// amino-acid sequence; genes parsed from a record also carry a location.
type Gene struct {
	Name     string // Gene symbol or locus tag
	Location int    // 1-based start of the gene, counted along its own strand
	Strand   Strand // Forward or Reverse
	Sequence string // Amino-acid translation
}

// IsForwardStrand returns true if the gene is on the forward strand.
func (g *Gene) IsForwardStrand() bool {
	return g.Strand != Reverse
}

// IsReverseStrand returns true if the gene is on the reverse strand.
func (g *Gene) IsReverseStrand() bool {
	return g.Strand == Reverse
}

// Nucleotides is an ordered sequence of DNA bases. Values are shared
// read-only between goroutines and must never be written after parsing.
type Nucleotides []byte

// String returns the bases as text.
func (n Nucleotides) String() string {
	return string(n)
}

// Len returns the number of bases.
func (n Nucleotides) Len() int {
	return len(n)
}

// Record is one parsed sequence record: the nucleotide sequence and the genes
// annotated on it, in file order.
type Record struct {
	ID          string
	Path        string
	Nucleotides Nucleotides
	Genes       []*Gene
}
