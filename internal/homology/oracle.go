package homology

// Oracle decides whether a candidate gene is homologous to a reference gene.
// Implementations must be safe for concurrent use.
type Oracle interface {
	Homologous(candidate, reference string) (bool, error)
}

// ScoreOracle reports homology when the local alignment score reaches a
// fixed threshold.
type ScoreOracle struct {
	aligner   Aligner
	threshold float32
}

// NewOracle creates a BLOSUM62 oracle with the given score threshold.
// A threshold <= 0 selects DefaultThreshold.
func NewOracle(threshold float64) *ScoreOracle {
	if threshold <= 0 {
		threshold = DefaultThreshold
	}
	return &ScoreOracle{aligner: NewAligner(), threshold: float32(threshold)}
}

// Homologous aligns candidate against reference and compares the score to
// the threshold.
func (o *ScoreOracle) Homologous(candidate, reference string) (bool, error) {
	score, err := o.aligner.Score(candidate, reference)
	if err != nil {
		return false, err
	}
	return score >= o.threshold, nil
}

// Threshold returns the score threshold.
func (o *ScoreOracle) Threshold() float64 {
	return float64(o.threshold)
}

// OracleFunc adapts a function to the Oracle interface.
type OracleFunc func(candidate, reference string) (bool, error)

// Homologous calls f.
func (f OracleFunc) Homologous(candidate, reference string) (bool, error) {
	return f(candidate, reference)
}
