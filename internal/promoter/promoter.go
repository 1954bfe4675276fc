// Package promoter predicts sigma-70 promoters in upstream regions.
//
// A sigma-70 promoter is modelled as a -35 box (TTGACA) and a -10 box (TATAAT)
// separated by a spacer of 15 to 19 bases, with 17 optimal. The score of a
// candidate is the fraction of box bases matching the consensus, minus a small
// penalty for each base the spacer deviates from 17.
package promoter

import "fmt"

// Sigma-70 model constants.
const (
	Box35          = "TTGACA"
	Box10          = "TATAAT"
	BoxLen         = 6
	MinSpacer      = 15
	MaxSpacer      = 19
	OptimalSpacer  = 17
	SpacerPenalty  = 0.02
	DefaultCutoff  = 0.7
	boxBases       = 2 * BoxLen
	minMatchLength = 2*BoxLen + MinSpacer
)

// Match is the best promoter found in one upstream region.
type Match struct {
	Start  int     // offset of the -35 box in the region
	Spacer int     // bases between the -35 and -10 boxes
	Box35  string  // observed -35 box, upper case
	Box10  string  // observed -10 box, upper case
	Score  float64 // in [0, 1]
}

// End returns the offset just past the -10 box.
func (m Match) End() int {
	return m.Start + 2*BoxLen + m.Spacer
}

func (m Match) String() string {
	return fmt.Sprintf("%s-%d-%s@%d (%.3f)", m.Box35, m.Spacer, m.Box10, m.Start, m.Score)
}

// Predictor finds the best promoter in a region.
//
// Implementations may keep scratch state between calls and are not required
// to be safe for concurrent use; each worker obtains its own from a Factory.
type Predictor interface {
	Predict(region []byte) (Match, bool, error)
}

// Factory creates a Predictor for one worker.
type Factory func() Predictor

// Sigma70 is the default Predictor. It reuses an internal buffer and must not
// be shared between goroutines.
type Sigma70 struct {
	cutoff  float64
	scratch []byte
}

// NewSigma70 creates a predictor reporting matches scoring at least cutoff.
// A cutoff <= 0 selects DefaultCutoff.
func NewSigma70(cutoff float64) *Sigma70 {
	if cutoff <= 0 {
		cutoff = DefaultCutoff
	}
	return &Sigma70{cutoff: cutoff}
}

// NewFactory returns a Factory producing Sigma70 predictors with cutoff.
func NewFactory(cutoff float64) Factory {
	return func() Predictor { return NewSigma70(cutoff) }
}

// Cutoff returns the minimum reported score.
func (p *Sigma70) Cutoff() float64 {
	return p.cutoff
}

// Predict scans every start offset and spacer length and returns the highest
// scoring candidate. Ties go to the lower start offset, then the shorter spacer.
// Matching is case-insensitive.
func (p *Sigma70) Predict(region []byte) (Match, bool, error) {
	if len(region) < minMatchLength {
		return Match{}, false, nil
	}

	p.scratch = upper(p.scratch[:0], region)
	seq := p.scratch

	best := Match{Score: -1}
	for start := 0; start+minMatchLength <= len(seq); start++ {
		m35 := matches(seq[start:start+BoxLen], Box35)
		for sp := MinSpacer; sp <= MaxSpacer; sp++ {
			at10 := start + BoxLen + sp
			if at10+BoxLen > len(seq) {
				break
			}
			m10 := matches(seq[at10:at10+BoxLen], Box10)
			score := float64(m35+m10)/boxBases - SpacerPenalty*float64(abs(sp-OptimalSpacer))
			if score > best.Score {
				best = Match{Start: start, Spacer: sp, Score: score}
			}
		}
	}

	if best.Score < p.cutoff {
		return Match{}, false, nil
	}
	at10 := best.Start + BoxLen + best.Spacer
	best.Box35 = string(seq[best.Start : best.Start+BoxLen])
	best.Box10 = string(seq[at10 : at10+BoxLen])
	return best, true, nil
}

func matches(window []byte, consensus string) int {
	n := 0
	for i := 0; i < BoxLen; i++ {
		if window[i] == consensus[i] {
			n++
		}
	}
	return n
}

func upper(dst, src []byte) []byte {
	for _, c := range src {
		if c >= 'a' && c <= 'z' {
			c -= 'a' - 'A'
		}
		dst = append(dst, c)
	}
	return dst
}

func abs(x int) int {
	if x < 0 {
		return -x
	}
	return x
}
