package genbank

import (
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadReferences(t *testing.T) {
	genes, err := LoadReferences(filepath.Join("testdata", "refs.list"))
	require.NoError(t, err)
	require.Len(t, genes, 2)
	assert.Equal(t, "geneA", genes[0].Name)
	assert.Equal(t, "MKRISTTITTTITITTGNGAG", genes[0].Sequence)
	assert.Equal(t, "geneB", genes[1].Name)
	assert.True(t, strings.HasPrefix(genes[1].Sequence, "MSHHWGYGKH"))
}

func TestParseReferences_CRLF(t *testing.T) {
	genes, err := ParseReferences(strings.NewReader("g1\r\nMKV\r\ng2\r\nMAL\r\n"))
	require.NoError(t, err)
	require.Len(t, genes, 2)
	assert.Equal(t, "g2", genes[1].Name)
	assert.Equal(t, "MAL", genes[1].Sequence)
}

func TestParseReferences_MissingSequence(t *testing.T) {
	_, err := ParseReferences(strings.NewReader("g1\nMKV\ng2\n"))
	var perr *ParseError
	require.ErrorAs(t, err, &perr)
	assert.Equal(t, 3, perr.Line)
}

func TestParseReferences_BlankLines(t *testing.T) {
	genes, err := ParseReferences(strings.NewReader("g1\nMKV\ng2\nMAL\n\n\n"))
	require.NoError(t, err, "trailing blank lines are allowed")
	require.Len(t, genes, 2)

	tests := []struct {
		name  string
		input string
		line  int
		want  string
	}{
		{"empty sequence", "geneA\n\ngeneB\nMKVLA\n", 2, `reference gene "geneA" has an empty sequence`},
		{"empty sequence before a pair", "geneA\n\ngeneB\nMKVLA\ngeneC\n", 2, `reference gene "geneA" has an empty sequence`},
		{"blank between genes", "g1\nMKV\n\n\ng2\nMAL\n", 3, "blank line where a gene name was expected"},
		{"leading blank", "\ng1\nMKV\n", 1, "blank line where a gene name was expected"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := ParseReferences(strings.NewReader(tt.input))
			var perr *ParseError
			require.ErrorAs(t, err, &perr)
			assert.Equal(t, tt.line, perr.Line)
			assert.Contains(t, perr.Message, tt.want)
		})
	}
}

func TestLoadReferences_MissingFile(t *testing.T) {
	_, err := LoadReferences(filepath.Join("testdata", "nope.list"))
	assert.Error(t, err)
}
