// Package consensus accumulates promoter predictions into per-position base
// frequency models and checks two aggregates for equivalence.
package consensus

import (
	"strconv"
	"strings"

	"github.com/inodb/promoscan/internal/promoter"
)

// Bases in count order. Anything else is counted as N.
const Bases = "ACGTN"

// BaseCounts holds per-base observation counts at one box position.
type BaseCounts [len(Bases)]int

func baseIndex(b byte) int {
	switch b {
	case 'A', 'a':
		return 0
	case 'C', 'c':
		return 1
	case 'G', 'g':
		return 2
	case 'T', 't':
		return 3
	}
	return 4
}

// Total returns the number of observations.
func (c BaseCounts) Total() int {
	n := 0
	for _, v := range c {
		n += v
	}
	return n
}

// Mode returns the most frequent base; ties go to the earlier base in Bases.
// An empty position reports '-'.
func (c BaseCounts) Mode() byte {
	best := -1
	for i, v := range c {
		if v > 0 && (best < 0 || v > c[best]) {
			best = i
		}
	}
	if best < 0 {
		return '-'
	}
	return Bases[best]
}

const spacerSlots = promoter.MaxSpacer - promoter.MinSpacer + 1

// Consensus is the frequency model of every prediction folded into it.
// The zero value is an empty model. Consensus holds only integer counts, so
// folding is exact and independent of order.
type Consensus struct {
	Count   int
	Box35   [promoter.BoxLen]BaseCounts
	Box10   [promoter.BoxLen]BaseCounts
	Spacers [spacerSlots]int
}

// Add folds one prediction into the model.
func (c *Consensus) Add(m promoter.Match) {
	c.Count++
	addBox(&c.Box35, m.Box35)
	addBox(&c.Box10, m.Box10)
	if i := m.Spacer - promoter.MinSpacer; i >= 0 && i < spacerSlots {
		c.Spacers[i]++
	}
}

func addBox(box *[promoter.BoxLen]BaseCounts, bases string) {
	for i := 0; i < promoter.BoxLen && i < len(bases); i++ {
		box[i][baseIndex(bases[i])]++
	}
}

// Combine adds every count of other into c.
func (c *Consensus) Combine(other Consensus) {
	c.Count += other.Count
	for i := range c.Box35 {
		for b := range c.Box35[i] {
			c.Box35[i][b] += other.Box35[i][b]
			c.Box10[i][b] += other.Box10[i][b]
		}
	}
	for i := range c.Spacers {
		c.Spacers[i] += other.Spacers[i]
	}
}

// Spacer returns the most frequent spacer length, or 0 for an empty model.
func (c Consensus) Spacer() int {
	best := -1
	for i, v := range c.Spacers {
		if v > 0 && (best < 0 || v > c.Spacers[best]) {
			best = i
		}
	}
	if best < 0 {
		return 0
	}
	return best + promoter.MinSpacer
}

// Box35Consensus returns the modal -35 box.
func (c Consensus) Box35Consensus() string { return boxMode(c.Box35) }

// Box10Consensus returns the modal -10 box.
func (c Consensus) Box10Consensus() string { return boxMode(c.Box10) }

func boxMode(box [promoter.BoxLen]BaseCounts) string {
	var sb strings.Builder
	for _, p := range box {
		sb.WriteByte(p.Mode())
	}
	return sb.String()
}

// String renders the modal promoter, e.g. "TTGACA-17-TATAAT (n=3)".
func (c Consensus) String() string {
	if c.Count == 0 {
		return "- (n=0)"
	}
	return c.Box35Consensus() + "-" + strconv.Itoa(c.Spacer()) + "-" + c.Box10Consensus() +
		" (n=" + strconv.Itoa(c.Count) + ")"
}
