package sequence

import (
	"bytes"
	"strings"
	"testing"

	"github.com/leanovate/gopter"
	"github.com/leanovate/gopter/gen"
	"github.com/leanovate/gopter/prop"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComplement(t *testing.T) {
	tests := []struct {
		in, want byte
	}{
		{'A', 'T'}, {'T', 'A'}, {'C', 'G'}, {'G', 'C'},
		{'a', 't'}, {'t', 'a'}, {'c', 'g'}, {'g', 'c'},
		{'N', 'N'}, {'R', 'Y'}, {'y', 'r'},
		{'M', 'K'}, {'k', 'm'}, {'B', 'V'}, {'h', 'd'}, {'S', 'S'}, {'w', 'w'},
		{'-', 'N'}, {'Z', 'N'}, {'X', 'N'},
	}
	for _, tt := range tests {
		assert.Equal(t, string(tt.want), string(Complement(tt.in)), "complement of %q", tt.in)
	}
}

func TestReverseComplement(t *testing.T) {
	assert.Equal(t, "ACGT", string(ReverseComplement([]byte("ACGT"))))
	assert.Equal(t, "CAAT", string(ReverseComplement([]byte("ATTG"))))
	assert.Equal(t, "nCgT", string(ReverseComplement([]byte("AcGn"))))
	assert.Empty(t, ReverseComplement(nil))
}

func TestUpstream_Forward(t *testing.T) {
	dna := Nucleotides(strings.Repeat("A", 300) + "CCCGGG" + strings.Repeat("T", 10))

	// Gene starts right after the 300 A's.
	g := &Gene{Name: "g", Location: 301, Strand: Forward}
	up := Upstream(dna, g)
	require.Len(t, up, UpstreamDistance)
	assert.Equal(t, strings.Repeat("A", UpstreamDistance), up.String())

	// Region ends immediately before the gene start.
	g = &Gene{Name: "g", Location: 304, Strand: Forward}
	up = Upstream(dna, g)
	require.Len(t, up, UpstreamDistance)
	assert.Equal(t, "AAACCC", up.String()[UpstreamDistance-6:])
}

func TestUpstream_ForwardNearStart(t *testing.T) {
	dna := Nucleotides("ACGTACGTAC")

	g := &Gene{Name: "g", Location: 5, Strand: Forward}
	up := Upstream(dna, g)
	assert.Len(t, up, 4)
	assert.Equal(t, "ACGT", up.String())

	g = &Gene{Name: "g", Location: 1, Strand: Forward}
	assert.Empty(t, Upstream(dna, g))
}

func TestUpstream_ReverseComplement(t *testing.T) {
	dna := Nucleotides("AACGT")

	// Location 5 on the reverse strand is the first base of the sequence;
	// its upstream bases are ACGT, read backwards and complemented.
	g := &Gene{Name: "g", Location: 5, Strand: Reverse}
	up := Upstream(dna, g)
	assert.Equal(t, "ACGT", up.String())

	g = &Gene{Name: "g", Location: 3, Strand: Reverse}
	// Gene end is index 2 (C); upstream bases are G,T -> reversed T,G -> A,C.
	assert.Equal(t, "AC", Upstream(dna, g).String())
}

func TestUpstream_ReverseCasePreserved(t *testing.T) {
	dna := Nucleotides("aaCGtt")
	g := &Gene{Name: "g", Location: 6, Strand: Reverse}
	assert.Equal(t, "aaCGt", Upstream(dna, g).String())
}

func TestUpstream_ReverseFullDistance(t *testing.T) {
	dna := Nucleotides("GGG" + strings.Repeat("C", 260))
	g := &Gene{Name: "g", Location: len(dna) - 2, Strand: Reverse}
	up := Upstream(dna, g)
	require.Len(t, up, UpstreamDistance)
	assert.Equal(t, strings.Repeat("G", UpstreamDistance), up.String())
}

func TestUpstream_OutOfRangeClamped(t *testing.T) {
	dna := Nucleotides("ACGTACGT")

	assert.NotPanics(t, func() {
		Upstream(dna, &Gene{Location: 1000, Strand: Forward})
		Upstream(dna, &Gene{Location: 1000, Strand: Reverse})
		Upstream(dna, &Gene{Location: -4, Strand: Forward})
		Upstream(dna, &Gene{Location: 0, Strand: Reverse})
		Upstream(Nucleotides{}, &Gene{Location: 3, Strand: Forward})
	})
	assert.Equal(t, "ACGTACGT", Upstream(dna, &Gene{Location: 1000, Strand: Forward}).String())
}

func TestUpstream_DoesNotAlias(t *testing.T) {
	dna := Nucleotides("ACGTACGTAC")
	up := Upstream(dna, &Gene{Location: 6, Strand: Forward})
	up[0] = 'X'
	assert.Equal(t, "ACGTACGTAC", dna.String())
}

func TestUpstream_PureProperty(t *testing.T) {
	parameters := gopter.DefaultTestParameters()
	parameters.MinSuccessfulTests = 200
	properties := gopter.NewProperties(parameters)

	properties.Property("extraction is deterministic and bounded", prop.ForAll(
		func(raw string, loc int, reverse bool) bool {
			dna := Nucleotides(raw)
			g := &Gene{Location: loc, Strand: Forward}
			if reverse {
				g.Strand = Reverse
			}
			first := Upstream(dna, g)
			second := Upstream(dna, g)
			if !bytes.Equal(first, second) {
				return false
			}
			return len(first) <= UpstreamDistance && len(first) <= len(dna)
		},
		gen.RegexMatch("[ACGTacgn]{0,320}"),
		gen.IntRange(-5, 400),
		gen.Bool(),
	))

	properties.TestingRun(t)
}
