package promoter

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func promoterWithSpacer(spacer int) string {
	return Box35 + strings.Repeat("G", spacer) + Box10
}

func TestPredict_PerfectPromoter(t *testing.T) {
	p := NewSigma70(0)
	m, ok, err := p.Predict([]byte("CCCC" + promoterWithSpacer(17) + "CCCC"))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 4, m.Start)
	assert.Equal(t, 17, m.Spacer)
	assert.Equal(t, Box35, m.Box35)
	assert.Equal(t, Box10, m.Box10)
	assert.InDelta(t, 1.0, m.Score, 1e-9)
	assert.Equal(t, 4+29, m.End())
}

func TestPredict_SpacerPenalty(t *testing.T) {
	p := NewSigma70(0)
	m, ok, err := p.Predict([]byte(promoterWithSpacer(15)))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, m.Start)
	assert.Equal(t, 15, m.Spacer)
	assert.InDelta(t, 0.96, m.Score, 1e-9)
}

func TestPredict_CaseInsensitive(t *testing.T) {
	p := NewSigma70(0)
	m, ok, err := p.Predict([]byte(strings.ToLower(promoterWithSpacer(17))))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, Box35, m.Box35)
	assert.Equal(t, Box10, m.Box10)
}

func TestPredict_TieGoesToLowerStart(t *testing.T) {
	p := NewSigma70(0)
	region := promoterWithSpacer(17) + "GGG" + promoterWithSpacer(17)
	m, ok, err := p.Predict([]byte(region))
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, m.Start)
}

func TestPredict_NoMatch(t *testing.T) {
	p := NewSigma70(0)

	tests := []struct {
		name   string
		region string
	}{
		{"empty", ""},
		{"too short", Box35 + "GG" + Box10},
		{"low scoring", strings.Repeat("G", 250)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, ok, err := p.Predict([]byte(tt.region))
			require.NoError(t, err)
			assert.False(t, ok)
		})
	}
}

func TestPredict_Cutoff(t *testing.T) {
	// 10 of 12 box bases match: score 10/12.
	region := "TTGAGG" + strings.Repeat("C", 17) + Box10

	_, ok, err := NewSigma70(0.9).Predict([]byte(region))
	require.NoError(t, err)
	assert.False(t, ok)

	m, ok, err := NewSigma70(0.8).Predict([]byte(region))
	require.NoError(t, err)
	require.True(t, ok)
	assert.InDelta(t, 10.0/12.0, m.Score, 1e-9)
}

func TestPredict_ScratchReuse(t *testing.T) {
	p := NewSigma70(0)
	long := []byte(strings.Repeat("A", 100) + promoterWithSpacer(17))
	short := []byte(promoterWithSpacer(15))

	m1, ok, err := p.Predict(long)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 100, m1.Start)

	m2, ok, err := p.Predict(short)
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, 0, m2.Start)
	assert.Equal(t, 15, m2.Spacer)

	// input untouched
	assert.Equal(t, strings.Repeat("A", 100)+promoterWithSpacer(17), string(long))
}

func TestNewFactory(t *testing.T) {
	f := NewFactory(0.75)
	a, b := f(), f()
	require.NotSame(t, a, b)
	assert.Equal(t, 0.75, a.(*Sigma70).Cutoff())
	assert.Equal(t, DefaultCutoff, NewSigma70(-1).Cutoff())
}
