// Package genbank reads GenBank flat-file records and reference gene lists.
package genbank

import (
	"bufio"
	"compress/gzip"
	"fmt"
	"io"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/inodb/promoscan/internal/sequence"
)

// qualifierColumn is the column where feature qualifiers start.
const qualifierColumn = 21

var locationNumbers = regexp.MustCompile(`\d+`)

// Parser reads records from a GenBank file.
type Parser struct {
	reader     *bufio.Reader
	file       *os.File
	gzipReader *gzip.Reader
	path       string
	lineNumber int
}

// NewParser creates a new GenBank parser for the given file.
// Supports both plain and gzipped (.gb.gz) files.
func NewParser(path string) (*Parser, error) {
	file, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open genbank file: %w", err)
	}

	p := &Parser{file: file, path: path}

	buf := make([]byte, 2)
	n, err := file.Read(buf)
	if err != nil && err != io.EOF {
		file.Close()
		return nil, fmt.Errorf("read genbank header: %w", err)
	}

	if _, err := file.Seek(0, io.SeekStart); err != nil {
		file.Close()
		return nil, fmt.Errorf("seek genbank file: %w", err)
	}

	// Check for gzip magic number (0x1f, 0x8b)
	if n == 2 && buf[0] == 0x1f && buf[1] == 0x8b {
		p.gzipReader, err = gzip.NewReader(file)
		if err != nil {
			file.Close()
			return nil, fmt.Errorf("create gzip reader: %w", err)
		}
		p.reader = bufio.NewReader(p.gzipReader)
	} else {
		p.reader = bufio.NewReader(file)
	}

	return p, nil
}

// NewParserFromReader creates a parser from an io.Reader.
func NewParserFromReader(r io.Reader) *Parser {
	return &Parser{reader: bufio.NewReader(r)}
}

// Close closes the parser and releases resources.
func (p *Parser) Close() error {
	if p.gzipReader != nil {
		p.gzipReader.Close()
	}
	if p.file != nil {
		return p.file.Close()
	}
	return nil
}

// LineNumber returns the current line number being processed.
func (p *Parser) LineNumber() int {
	return p.lineNumber
}

type section int

const (
	sectionHeader section = iota
	sectionFeatures
	sectionOrigin
)

type feature struct {
	key        string
	location   string
	qualifiers map[string]string
	line       int
	open       string // qualifier whose quoted value continues on the next line
}

func (f *feature) appendValue(text string) {
	if f.open == "translation" {
		f.qualifiers[f.open] += strings.ReplaceAll(text, " ", "")
	} else {
		f.qualifiers[f.open] += " " + text
	}
	if strings.HasSuffix(text, `"`) {
		f.qualifiers[f.open] = strings.TrimSuffix(f.qualifiers[f.open], `"`)
		f.open = ""
	}
}

// Next reads the next record from the file.
// Returns nil, nil when there are no more records.
func (p *Parser) Next() (*sequence.Record, error) {
	var (
		id       string
		started  bool
		sec      = sectionHeader
		features []*feature
		cur      *feature
		seq      []byte
	)

	for {
		line, readErr := p.reader.ReadString('\n')
		if readErr != nil && readErr != io.EOF {
			return nil, fmt.Errorf("read genbank line: %w", readErr)
		}
		if readErr == io.EOF && line == "" {
			if !started {
				return nil, nil
			}
			// Tolerate a missing "//" terminator at the end of the file.
			return p.build(id, features, seq)
		}
		p.lineNumber++
		line = strings.TrimRight(line, "\r\n")

		if !started {
			if strings.TrimSpace(line) == "" {
				continue
			}
			if !strings.HasPrefix(line, "LOCUS") {
				return nil, p.errorf("expected LOCUS line")
			}
			fields := strings.Fields(line)
			if len(fields) < 2 {
				return nil, p.errorf("LOCUS line has no name")
			}
			id = fields[1]
			started = true
			continue
		}

		if strings.HasPrefix(line, "//") {
			return p.build(id, features, seq)
		}

		switch {
		case strings.HasPrefix(line, "FEATURES"):
			sec = sectionFeatures
			continue
		case strings.HasPrefix(line, "ORIGIN"):
			sec = sectionOrigin
			continue
		case line != "" && line[0] != ' ':
			// Any other top-level keyword ends the feature table.
			if sec == sectionFeatures {
				sec = sectionHeader
			}
			continue
		}

		switch sec {
		case sectionFeatures:
			var err error
			cur, features, err = p.featureLine(line, cur, features)
			if err != nil {
				return nil, err
			}
		case sectionOrigin:
			for i := 0; i < len(line); i++ {
				c := line[i]
				if (c >= 'A' && c <= 'Z') || (c >= 'a' && c <= 'z') {
					seq = append(seq, c)
				}
			}
		}

		if readErr == io.EOF {
			return p.build(id, features, seq)
		}
	}
}

// featureLine consumes one line of the feature table.
func (p *Parser) featureLine(line string, cur *feature, features []*feature) (*feature, []*feature, error) {
	if len(line) > 5 && line[5] != ' ' {
		fields := strings.Fields(line)
		if len(fields) < 2 {
			return nil, nil, p.errorf("feature %q has no location", fields[0])
		}
		f := &feature{
			key:        fields[0],
			location:   strings.Join(fields[1:], ""),
			qualifiers: make(map[string]string),
			line:       p.lineNumber,
		}
		return f, append(features, f), nil
	}

	if cur == nil {
		return nil, nil, p.errorf("qualifier outside of a feature")
	}
	text := strings.TrimSpace(line)
	if len(line) < qualifierColumn || text == "" {
		return cur, features, nil
	}

	if cur.open != "" {
		cur.appendValue(text)
		return cur, features, nil
	}

	if !strings.HasPrefix(text, "/") {
		// Location continued over several lines.
		cur.location += text
		return cur, features, nil
	}

	key, value, hasValue := strings.Cut(text[1:], "=")
	if !hasValue {
		cur.qualifiers[key] = ""
		return cur, features, nil
	}
	if strings.HasPrefix(value, `"`) {
		value = value[1:]
		if len(value) > 0 && strings.HasSuffix(value, `"`) {
			cur.qualifiers[key] = strings.TrimSuffix(value, `"`)
			return cur, features, nil
		}
		cur.qualifiers[key] = value
		cur.open = key
		return cur, features, nil
	}
	cur.qualifiers[key] = value
	return cur, features, nil
}

// build turns the collected feature table and sequence into a record.
func (p *Parser) build(id string, features []*feature, seq []byte) (*sequence.Record, error) {
	rec := &sequence.Record{
		ID:          id,
		Path:        p.path,
		Nucleotides: sequence.Nucleotides(seq),
	}

	for i, f := range features {
		if f.key != "CDS" {
			continue
		}
		if f.open != "" {
			return nil, &ParseError{Path: p.path, Line: f.line, Message: fmt.Sprintf("unterminated qualifier /%s", f.open)}
		}
		translation, ok := f.qualifiers["translation"]
		if !ok || translation == "" {
			continue
		}
		start, end, strand, ok, err := parseLocation(f.location)
		if err != nil {
			return nil, &ParseError{Path: p.path, Line: f.line, Message: err.Error()}
		}
		if !ok {
			continue
		}
		if end > len(seq) {
			return nil, &ParseError{Path: p.path, Line: f.line,
				Message: fmt.Sprintf("location %s beyond sequence length %d", f.location, len(seq))}
		}

		g := &sequence.Gene{
			Name:     featureName(f, i),
			Location: start,
			Strand:   strand,
			Sequence: translation,
		}
		if strand == sequence.Reverse {
			g.Location = len(seq) - end + 1
		}
		rec.Genes = append(rec.Genes, g)
	}

	return rec, nil
}

func featureName(f *feature, idx int) string {
	if name := f.qualifiers["gene"]; name != "" {
		return name
	}
	if name := f.qualifiers["locus_tag"]; name != "" {
		return name
	}
	return "cds_" + strconv.Itoa(idx+1)
}

// parseLocation extracts the outer span and strand of a feature location such
// as "190..255", "complement(<5683..6459)" or "join(1..10,20..>30)".
// Features referring to other entries ("J00194.1:100..202") are skipped.
func parseLocation(loc string) (start, end int, strand sequence.Strand, ok bool, err error) {
	if strings.Contains(loc, ":") {
		return 0, 0, 0, false, nil
	}
	nums := locationNumbers.FindAllString(loc, -1)
	if len(nums) == 0 {
		return 0, 0, 0, false, fmt.Errorf("invalid location %q", loc)
	}
	start, end = -1, -1
	for _, s := range nums {
		v, convErr := strconv.Atoi(s)
		if convErr != nil {
			return 0, 0, 0, false, fmt.Errorf("invalid location %q", loc)
		}
		if start == -1 || v < start {
			start = v
		}
		if v > end {
			end = v
		}
	}
	if start < 1 {
		return 0, 0, 0, false, fmt.Errorf("invalid location %q", loc)
	}
	strand = sequence.Forward
	if strings.Contains(loc, "complement(") {
		strand = sequence.Reverse
	}
	return start, end, strand, true, nil
}

func (p *Parser) errorf(format string, args ...any) error {
	return &ParseError{Path: p.path, Line: p.lineNumber, Message: fmt.Sprintf(format, args...)}
}

// ParseError represents an error during GenBank parsing with line context.
type ParseError struct {
	Path    string
	Line    int
	Message string
}

func (e *ParseError) Error() string {
	if e.Path != "" {
		return fmt.Sprintf("genbank parse error in %s at line %d: %s", e.Path, e.Line, e.Message)
	}
	return fmt.Sprintf("genbank parse error at line %d: %s", e.Line, e.Message)
}
