package output

import (
	"bytes"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/inodb/promoscan/internal/baseline"
	"github.com/inodb/promoscan/internal/consensus"
	"github.com/inodb/promoscan/internal/engine"
)

func result(name string, d time.Duration, failures int) *engine.Result {
	return &engine.Result{
		Strategy: name,
		Stats: engine.Stats{
			Tasks: 10, Homologous: 4, Predictions: 3,
			Failures: make([]engine.TaskError, failures),
			Duration: d,
		},
	}
}

func TestCompareWriter(t *testing.T) {
	c := &engine.Comparison{
		Baseline:       result("sequential", 40*time.Millisecond, 0),
		BaselineTiming: engine.Timing{Runs: 3, Mean: 40 * time.Millisecond, Min: 38 * time.Millisecond},
		Entries: []engine.Entry{
			{
				Result:     result("pool/compute", 10*time.Millisecond, 0),
				Timing:     engine.Timing{Runs: 3, Mean: 10 * time.Millisecond, Min: 9 * time.Millisecond},
				Verified:   3,
				Speedup:    4,
				Equivalent: true,
			},
			{
				Result:   result("pipeline/merge", 20*time.Millisecond, 1),
				Timing:   engine.Timing{Runs: 3, Mean: 20 * time.Millisecond, Min: 15 * time.Millisecond},
				Verified: 2,
				Speedup:  2,
			},
		},
	}

	var buf bytes.Buffer
	cw := NewCompareWriter(&buf)
	require.NoError(t, cw.Write(c))
	cw.WriteSummary(c)

	out := buf.String()
	lines := strings.Split(out, "\n")
	assert.Equal(t, "#Strategy\tTasks\tHomologous\tPredictions\tFailures\tRuns\tMean\tMin\tSpeedup\tEquivalent", lines[0])
	assert.Equal(t, "sequential\t10\t4\t3\t0\t3\t40ms\t38ms\t1.00\tbaseline", lines[1])
	assert.Equal(t, "pool/compute\t10\t4\t3\t0\t3\t10ms\t9ms\t4.00\tyes", lines[2])
	assert.Equal(t, "pipeline/merge\t10\t4\t3\t1\t3\t20ms\t15ms\t2.00\tNO (2/3)", lines[3])
	assert.Contains(t, out, "MISMATCH: pipeline/merge diverged from sequential.")

	buf.Reset()
	c.Entries = c.Entries[:1]
	NewCompareWriter(&buf).WriteSummary(c)
	assert.Contains(t, buf.String(), "All 1 strategies are equivalent to sequential.")
}

func TestWriteVerification(t *testing.T) {
	var buf bytes.Buffer
	WriteVerification(&buf, "consensus.json", consensus.Verification{Equal: true})
	assert.Equal(t, "Verification against consensus.json: equal\n", buf.String())

	buf.Reset()
	WriteVerification(&buf, "run 1234", consensus.Verification{
		Differ:            []string{"all", "geneA"},
		MissingInBaseline: []string{"geneC"},
	})
	out := buf.String()
	assert.Contains(t, out, "MISMATCH")
	assert.Contains(t, out, "differ:                all, geneA")
	assert.Contains(t, out, "missing from baseline: geneC")
	assert.NotContains(t, out, "missing from run")
}

func TestWriteRuns(t *testing.T) {
	var buf bytes.Buffer
	created := time.Date(2026, 3, 4, 5, 6, 7, 0, time.UTC)
	err := WriteRuns(&buf, []baseline.Run{
		{ID: "abc", Strategy: "sequential", CreatedAt: created, Tasks: 6, Predictions: 1, Duration: 1500 * time.Millisecond},
	})
	require.NoError(t, err)
	assert.Equal(t, "#ID\tStrategy\tCreated\tTasks\tPredictions\tDuration\nabc\tsequential\t2026-03-04T05:06:07Z\t6\t1\t1.5s\n", buf.String())
}

type failingWriter struct{}

func (failingWriter) Write([]byte) (int, error) { return 0, errors.New("disk full") }

func TestWriters_PropagateErrors(t *testing.T) {
	assert.Error(t, NewTabWriter(failingWriter{}).WriteAggregate(sampleAggregate(t)))
	assert.Error(t, NewCompareWriter(failingWriter{}).Write(&engine.Comparison{Baseline: result("s", 0, 0)}))
	assert.Error(t, WriteRuns(failingWriter{}, nil))
}
