package output

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"github.com/inodb/promoscan/internal/consensus"
	"github.com/inodb/promoscan/internal/engine"
)

// CompareWriter writes a strategy comparison table: the baseline first, then
// each strategy with its mean and fastest durations, speedup and equivalence
// verdict.
type CompareWriter struct {
	w io.Writer
}

// NewCompareWriter creates a comparison writer.
func NewCompareWriter(w io.Writer) *CompareWriter {
	return &CompareWriter{w: w}
}

var compareColumns = []string{
	"#Strategy", "Tasks", "Homologous", "Predictions", "Failures", "Runs", "Mean", "Min", "Speedup", "Equivalent",
}

// Write writes the table for c.
func (cw *CompareWriter) Write(c *engine.Comparison) error {
	if _, err := fmt.Fprintln(cw.w, strings.Join(compareColumns, "\t")); err != nil {
		return err
	}
	if err := cw.row(c.Baseline, c.BaselineTiming, "1.00", "baseline"); err != nil {
		return err
	}
	for _, en := range c.Entries {
		verdict := "yes"
		switch {
		case en.Equivalent:
		case en.Timing.Runs > 1:
			verdict = fmt.Sprintf("NO (%d/%d)", en.Verified, en.Timing.Runs)
		default:
			verdict = "NO"
		}
		if err := cw.row(en.Result, en.Timing, strconv.FormatFloat(en.Speedup, 'f', 2, 64), verdict); err != nil {
			return err
		}
	}
	return nil
}

func (cw *CompareWriter) row(r *engine.Result, t engine.Timing, speedup, verdict string) error {
	s := r.Stats
	values := []string{
		r.Strategy,
		strconv.Itoa(s.Tasks),
		strconv.Itoa(s.Homologous),
		strconv.Itoa(s.Predictions),
		strconv.Itoa(len(s.Failures)),
		strconv.Itoa(t.Runs),
		t.Mean.Round(time.Microsecond).String(),
		t.Min.Round(time.Microsecond).String(),
		speedup,
		verdict,
	}
	_, err := fmt.Fprintln(cw.w, strings.Join(values, "\t"))
	return err
}

// WriteSummary writes the overall verdict.
func (cw *CompareWriter) WriteSummary(c *engine.Comparison) {
	if c.Equivalent() {
		fmt.Fprintf(cw.w, "\nAll %d strategies are equivalent to %s.\n", len(c.Entries), c.Baseline.Strategy)
		return
	}
	fmt.Fprintf(cw.w, "\nMISMATCH: %s diverged from %s.\n", strings.Join(c.Mismatches(), ", "), c.Baseline.Strategy)
}

// WriteVerification reports the result of checking a run against a stored
// baseline.
func WriteVerification(w io.Writer, source string, v consensus.Verification) {
	if v.Equal {
		fmt.Fprintf(w, "Verification against %s: equal\n", source)
		return
	}
	fmt.Fprintf(w, "Verification against %s: MISMATCH\n", source)
	for _, part := range []struct {
		label string
		keys  []string
	}{
		{"differ", v.Differ},
		{"missing from run", v.MissingInCandidate},
		{"missing from baseline", v.MissingInBaseline},
	} {
		if len(part.keys) > 0 {
			fmt.Fprintf(w, "  %-23s%s\n", part.label+":", strings.Join(part.keys, ", "))
		}
	}
}
