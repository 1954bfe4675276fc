package engine

import (
	"fmt"
	"math/rand"
	"strings"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/inodb/promoscan/internal/consensus"
	"github.com/inodb/promoscan/internal/promoter"
	"github.com/inodb/promoscan/internal/sequence"
)

const (
	proteinA   = "MKRISTTITTTITITTGNGAG"
	proteinB   = "WWHHYYCCWWHHYYCC"
	proteinP   = "PPPPPPPPPPPPPPPP"
	proteinDE  = "DDDDEEEEDDDDEEEE"
	geneBody   = "ATGAAAAAAAAAAAAAAAAAAAAAAAATAA"
	perfectBox = promoter.Box35 + "GGGGGGGGGGGGGGGGG" + promoter.Box10
)

func references() []*sequence.Gene {
	return []*sequence.Gene{
		{Name: "geneA", Sequence: proteinA},
		{Name: "geneB", Sequence: proteinB},
	}
}

// recordBuilder lays out genes left to right. Forward genes are preceded by
// their upstream region; reverse genes are followed by the reverse complement
// of theirs. Upstream returns that region, extended into the neighbouring
// genes when it is shorter than the extraction distance.
type recordBuilder struct {
	id      string
	dna     []byte
	genes   []*sequence.Gene
	reverse map[*sequence.Gene]int // gene -> 1-based end in sequence coordinates
}

func newRecord(id string) *recordBuilder {
	return &recordBuilder{id: id, reverse: make(map[*sequence.Gene]int)}
}

func (b *recordBuilder) forward(name, protein, upstream string) *recordBuilder {
	b.dna = append(b.dna, upstream...)
	g := &sequence.Gene{Name: name, Location: len(b.dna) + 1, Strand: sequence.Forward, Sequence: protein}
	b.dna = append(b.dna, geneBody...)
	b.genes = append(b.genes, g)
	return b
}

func (b *recordBuilder) reverseGene(name, protein, upstream string) *recordBuilder {
	b.dna = append(b.dna, geneBody...)
	g := &sequence.Gene{Name: name, Strand: sequence.Reverse, Sequence: protein}
	b.reverse[g] = len(b.dna)
	b.dna = append(b.dna, sequence.ReverseComplement([]byte(upstream))...)
	b.genes = append(b.genes, g)
	return b
}

func (b *recordBuilder) build() *sequence.Record {
	for g, end := range b.reverse {
		g.Location = len(b.dna) - end + 1
	}
	return &sequence.Record{ID: b.id, Nucleotides: sequence.Nucleotides(b.dna), Genes: b.genes}
}

// scenarioRecord holds three genes: one homologous to geneA with a perfect
// promoter upstream, and two homologous to nothing.
func scenarioRecord() *sequence.Record {
	return newRecord("R1").
		forward("g1", proteinA, strings.Repeat("C", 50)+perfectBox+strings.Repeat("C", 50)).
		forward("g2", proteinP, strings.Repeat("C", 80)).
		reverseGene("g3", proteinDE, perfectBox).
		build()
}

// randomUniverse builds records with a mix of homologous and unrelated genes
// on both strands, with noisy promoters in some upstream regions.
func randomUniverse(seed int64, records int) []*sequence.Record {
	rng := rand.New(rand.NewSource(seed))
	proteins := []string{proteinA, proteinB, proteinP, proteinDE}

	randomBases := func(n int) string {
		buf := make([]byte, n)
		for i := range buf {
			buf[i] = "ACGT"[rng.Intn(4)]
		}
		return string(buf)
	}
	mutate := func(box string) string {
		b := []byte(box)
		for range rng.Intn(3) {
			b[rng.Intn(len(b))] = "ACGT"[rng.Intn(4)]
		}
		return string(b)
	}
	upstream := func() string {
		region := randomBases(20 + rng.Intn(260))
		if rng.Intn(3) == 0 {
			return region
		}
		p := mutate(promoter.Box35) + randomBases(promoter.MinSpacer+rng.Intn(5)) + mutate(promoter.Box10)
		at := rng.Intn(len(region) + 1)
		return region[:at] + p + region[at:]
	}

	out := make([]*sequence.Record, records)
	for i := range out {
		b := newRecord(fmt.Sprintf("REC%03d", i))
		for j := range 2 + rng.Intn(4) {
			name := fmt.Sprintf("g%d", j)
			protein := proteins[rng.Intn(len(proteins))]
			if rng.Intn(2) == 0 {
				b.forward(name, protein, upstream())
			} else {
				b.reverseGene(name, protein, upstream())
			}
		}
		out[i] = b.build()
	}
	return out
}

func canonical(t *testing.T, agg *consensus.Aggregate) string {
	t.Helper()
	b, err := consensus.MarshalCanonical(agg)
	require.NoError(t, err)
	return string(b)
}

func newAggregate(t *testing.T, refs []*sequence.Gene) *consensus.Aggregate {
	t.Helper()
	names := make([]string, len(refs))
	for i, r := range refs {
		names[i] = r.Name
	}
	agg, err := consensus.NewAggregate(names)
	require.NoError(t, err)
	return agg
}

func allStrategies() []Strategy {
	return append([]Strategy{Sequential{}}, AllStrategies(3, 2)...)
}
