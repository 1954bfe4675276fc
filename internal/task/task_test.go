package task

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/promoscan/internal/sequence"
)

func TestGenerate(t *testing.T) {
	refA := &sequence.Gene{Name: "refA"}
	refB := &sequence.Gene{Name: "refB"}
	g1 := &sequence.Gene{Name: "g1"}
	g2 := &sequence.Gene{Name: "g2"}
	g3 := &sequence.Gene{Name: "g3"}
	r1 := &sequence.Record{ID: "R1", Nucleotides: sequence.Nucleotides("ACGT"), Genes: []*sequence.Gene{g1, g2}}
	r2 := &sequence.Record{ID: "R2", Nucleotides: sequence.Nucleotides("GG"), Genes: []*sequence.Gene{g3}}

	tasks := Generate([]*sequence.Record{r1, r2}, []*sequence.Gene{refA, refB})
	require.Len(t, tasks, 6)

	var got []string
	for _, tk := range tasks {
		got = append(got, tk.RecordID+"/"+tk.Reference.Name+"/"+tk.Candidate.Name)
	}
	assert.Equal(t, []string{
		"R1/refA/g1", "R1/refA/g2", "R1/refB/g1", "R1/refB/g2",
		"R2/refA/g3", "R2/refB/g3",
	}, got)

	// source shared, not copied
	assert.Same(t, &r1.Nucleotides[0], &tasks[0].Source[0])
	assert.Same(t, g3, tasks[5].Candidate)
}

func TestGenerate_Empty(t *testing.T) {
	assert.Empty(t, Generate(nil, []*sequence.Gene{{Name: "x"}}))
	r := &sequence.Record{ID: "R", Genes: []*sequence.Gene{{Name: "g"}}}
	assert.Empty(t, Generate([]*sequence.Record{r}, nil))
}

func TestNames(t *testing.T) {
	assert.Equal(t, []string{"a", "b"}, Names([]*sequence.Gene{{Name: "a"}, {Name: "b"}}))
}
