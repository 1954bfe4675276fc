package genbank

import (
	"bufio"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/inodb/promoscan/internal/sequence"
)

// LoadReferences reads a reference gene list: a gene name line followed by
// its amino-acid sequence line, repeated. Only trailing blank lines are
// allowed.
func LoadReferences(path string) ([]*sequence.Gene, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open reference list: %w", err)
	}
	defer f.Close()

	genes, err := ParseReferences(f)
	if err != nil {
		return nil, fmt.Errorf("parse reference list %s: %w", path, err)
	}
	return genes, nil
}

// ParseReferences parses reference genes from r, preserving their order.
func ParseReferences(r io.Reader) ([]*sequence.Gene, error) {
	scanner := bufio.NewScanner(r)
	// Peptide lines can be long
	buf := make([]byte, 0, 64*1024)
	scanner.Buffer(buf, 1024*1024)

	var (
		genes      []*sequence.Gene
		name       string
		nameLine   int
		lineNumber int
		blankLine  int // first blank line since the last non-blank one
	)

	for scanner.Scan() {
		lineNumber++
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			if blankLine == 0 {
				blankLine = lineNumber
			}
			continue
		}
		// Lines pair by position, so an inner blank line would shift every
		// following name onto a sequence.
		if blankLine != 0 {
			if name != "" {
				return nil, &ParseError{Line: blankLine, Message: fmt.Sprintf("reference gene %q has an empty sequence", name)}
			}
			return nil, &ParseError{Line: blankLine, Message: "blank line where a gene name was expected"}
		}
		if name == "" {
			name = line
			nameLine = lineNumber
			continue
		}
		genes = append(genes, &sequence.Gene{
			Name:     name,
			Strand:   sequence.Forward,
			Sequence: line,
		})
		name = ""
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("scan reference list: %w", err)
	}
	if name != "" {
		return nil, &ParseError{Line: nameLine, Message: fmt.Sprintf("reference gene %q has no sequence", name)}
	}

	return genes, nil
}
