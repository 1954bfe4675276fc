// Package task builds the comparison universe: one task per
// (record, reference gene, record gene) triple.
package task

import "github.com/inodb/promoscan/internal/sequence"

// Task compares one record gene with one reference gene. Tasks are values;
// the nucleotides and genes they point to are shared read-only.
type Task struct {
	RecordID  string
	Source    sequence.Nucleotides
	Reference *sequence.Gene
	Candidate *sequence.Gene
}

// Generate returns the cross product of records × references × record genes
// in input order.
func Generate(records []*sequence.Record, references []*sequence.Gene) []Task {
	n := 0
	for _, r := range records {
		n += len(r.Genes)
	}
	tasks := make([]Task, 0, n*len(references))
	for _, r := range records {
		for _, ref := range references {
			for _, g := range r.Genes {
				tasks = append(tasks, Task{
					RecordID:  r.ID,
					Source:    r.Nucleotides,
					Reference: ref,
					Candidate: g,
				})
			}
		}
	}
	return tasks
}

// Names returns the reference gene names in order.
func Names(references []*sequence.Gene) []string {
	names := make([]string, len(references))
	for i, g := range references {
		names[i] = g.Name
	}
	return names
}
