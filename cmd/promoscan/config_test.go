package main

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConfigSetGet(t *testing.T) {
	home := isolate(t)
	path := filepath.Join(home, ".promoscan.yaml")

	r := promoscan(t, "config", "set", "workers", "4")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "Set workers = 4 in "+path+"\n", r.stdout)

	r = promoscan(t, "config", "set", "homology.threshold", "75.5")
	require.Equal(t, ExitSuccess, r.code, r.stderr)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "workers: 4\n")
	assert.Contains(t, string(b), "threshold: 75.5\n")
	assert.NotContains(t, string(b), "log-level", "defaults are not written")

	r = promoscan(t, "config", "get", "workers")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "4\n", r.stdout)

	r = promoscan(t, "config", "get", "homology.threshold")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Equal(t, "75.5\n", r.stdout)

	r = promoscan(t, "config")
	require.Equal(t, ExitSuccess, r.code, r.stderr)
	assert.Contains(t, r.stdout, "# Config file: "+path+"\n")
	assert.Contains(t, r.stdout, "workers: 4\n")
}

func TestConfigSet_ExplicitFile(t *testing.T) {
	isolate(t)
	path := filepath.Join(t.TempDir(), "promoscan.yaml")
	require.NoError(t, os.WriteFile(path, []byte("strategy: pool\n"), 0644))

	r := promoscan(t, "config", "set", "stage", "reduce", "--config", path)
	require.Equal(t, ExitSuccess, r.code, r.stderr)

	b, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(b), "strategy: pool\n")
	assert.Contains(t, string(b), "stage: reduce\n")
}

func TestConfigSet_Rejected(t *testing.T) {
	home := isolate(t)
	tests := []struct {
		name  string
		key   string
		value string
		want  string
	}{
		{"unknown key", "verbose", "true", "invalid verbose: unknown key"},
		{"bad strategy", "strategy", "fastest", "invalid strategy"},
		{"bad stage", "stage", "sideways", "invalid stage"},
		{"non-numeric workers", "workers", "many", "invalid workers"},
		{"promoter threshold above one", "promoter.threshold", "1.5", "invalid promoter.threshold"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := promoscan(t, "config", "set", tt.key, tt.value)
			assert.Equal(t, ExitUsage, r.code)
			assert.Contains(t, r.stderr, tt.want)
		})
	}
	assert.NoFileExists(t, filepath.Join(home, ".promoscan.yaml"))
}

func TestConfigGet_Unset(t *testing.T) {
	isolate(t)
	r := promoscan(t, "config", "get", "no.such.key")
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.stderr, `key "no.such.key" is not set`)
}

func TestConfig_MissingExplicitFile(t *testing.T) {
	isolate(t)
	r := promoscan(t, "config", "--config", filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Equal(t, ExitError, r.code)
	assert.Contains(t, r.stderr, "read config")
}

func TestParseValue(t *testing.T) {
	assert.Equal(t, 4, parseValue("4"))
	assert.Equal(t, 0.7, parseValue("0.7"))
	assert.Equal(t, true, parseValue("true"))
	assert.Equal(t, "pool", parseValue("pool"))
	assert.Equal(t, "", parseValue(""))
	assert.Equal(t, "[1, 2]", parseValue("[1, 2]"))
}
