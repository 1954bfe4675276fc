// Package output provides tab-delimited formatters for consensus models,
// strategy comparisons and stored runs.
package output

import (
	"bufio"
	"io"
	"strconv"
	"strings"

	"github.com/inodb/promoscan/internal/consensus"
)

// TabWriter writes one consensus model per line.
type TabWriter struct {
	w       *bufio.Writer
	columns []string
}

// NewTabWriter creates a new tab-delimited writer.
func NewTabWriter(w io.Writer) *TabWriter {
	return &TabWriter{
		w: bufio.NewWriter(w),
		columns: []string{
			"#Key",
			"Count",
			"Box35",
			"Spacer",
			"Box10",
			"Consensus",
		},
	}
}

// WriteHeader writes the header line.
func (tw *TabWriter) WriteHeader() error {
	_, err := tw.w.WriteString(strings.Join(tw.columns, "\t") + "\n")
	return err
}

// Write writes the model stored under key.
func (tw *TabWriter) Write(key string, c consensus.Consensus) error {
	box35, spacer, box10 := "-", "-", "-"
	if c.Count > 0 {
		box35 = c.Box35Consensus()
		spacer = strconv.Itoa(c.Spacer())
		box10 = c.Box10Consensus()
	}
	values := []string{key, strconv.Itoa(c.Count), box35, spacer, box10, c.String()}
	_, err := tw.w.WriteString(strings.Join(values, "\t") + "\n")
	return err
}

// WriteAggregate writes the header and every key of agg in key order.
func (tw *TabWriter) WriteAggregate(agg *consensus.Aggregate) error {
	if err := tw.WriteHeader(); err != nil {
		return err
	}
	for _, key := range agg.Keys() {
		c, _ := agg.Get(key)
		if err := tw.Write(key, c); err != nil {
			return err
		}
	}
	return tw.Flush()
}

// Flush flushes any buffered data to the underlying writer.
func (tw *TabWriter) Flush() error {
	return tw.w.Flush()
}

// ProfileWriter writes the per-position base counts of each model.
type ProfileWriter struct {
	w *bufio.Writer
}

// NewProfileWriter creates a profile writer.
func NewProfileWriter(w io.Writer) *ProfileWriter {
	return &ProfileWriter{w: bufio.NewWriter(w)}
}

// WriteAggregate writes one line per key, box and position.
func (pw *ProfileWriter) WriteAggregate(agg *consensus.Aggregate) error {
	header := []string{"#Key", "Box", "Position"}
	for _, b := range consensus.Bases {
		header = append(header, string(b))
	}
	if _, err := pw.w.WriteString(strings.Join(header, "\t") + "\n"); err != nil {
		return err
	}
	for _, key := range agg.Keys() {
		c, _ := agg.Get(key)
		if c.Count == 0 {
			continue
		}
		if err := pw.writeBox(key, "-35", c.Box35); err != nil {
			return err
		}
		if err := pw.writeBox(key, "-10", c.Box10); err != nil {
			return err
		}
	}
	return pw.w.Flush()
}

func (pw *ProfileWriter) writeBox(key, box string, counts [6]consensus.BaseCounts) error {
	for pos, bc := range counts {
		values := []string{key, box, strconv.Itoa(pos + 1)}
		for _, n := range bc {
			values = append(values, strconv.Itoa(n))
		}
		if _, err := pw.w.WriteString(strings.Join(values, "\t") + "\n"); err != nil {
			return err
		}
	}
	return nil
}
