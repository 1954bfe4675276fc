// Package config loads promoscan settings from ~/.promoscan.yaml, PROMOSCAN_
// environment variables and command-line flags, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cast"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/inodb/promoscan/internal/engine"
)

// Configuration keys.
const (
	KeyReferences        = "references"
	KeyRecords           = "records"
	KeyStrategy          = "strategy"
	KeyWorkers           = "workers"
	KeyChunk             = "chunk"
	KeyStage             = "stage"
	KeyRuns              = "runs"
	KeyHomologyThreshold = "homology.threshold"
	KeyPromoterThreshold = "promoter.threshold"
	KeyBaselineFile      = "baseline.file"
	KeyBaselineDB        = "baseline.db"
	KeyCacheDir          = "cache.dir"
	KeyLogLevel          = "log-level"
	KeyMetricsAddr       = "metrics-addr"
)

// Keys lists every recognised configuration key.
var Keys = []string{
	KeyReferences, KeyRecords, KeyStrategy, KeyWorkers, KeyChunk, KeyStage,
	KeyRuns, KeyHomologyThreshold, KeyPromoterThreshold, KeyBaselineFile, KeyBaselineDB,
	KeyCacheDir, KeyLogLevel, KeyMetricsAddr,
}

// IsKey reports whether key is a recognised configuration key.
func IsKey(key string) bool {
	for _, k := range Keys {
		if k == key {
			return true
		}
	}
	return false
}

const (
	// EnvPrefix prefixes environment overrides, e.g. PROMOSCAN_WORKERS.
	EnvPrefix = "PROMOSCAN"
	// FileName is the config file name in the home directory.
	FileName = ".promoscan.yaml"
)

// Config is the resolved configuration.
type Config struct {
	References        string
	Records           string
	Strategy          string
	Workers           int
	Chunk             int
	Stage             engine.Stage
	Runs              int
	HomologyThreshold float64
	PromoterThreshold float64
	BaselineFile      string
	BaselineDB        string
	CacheDir          string
	LogLevel          zap.AtomicLevel
	MetricsAddr       string
}

// ValidationError reports an invalid configuration value.
type ValidationError struct {
	Key     string
	Message string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Key, e.Message)
}

// Invalid returns a ValidationError for key.
func Invalid(key, format string, args ...any) error {
	return &ValidationError{Key: key, Message: fmt.Sprintf(format, args...)}
}

// SetDefaults registers the default value of every key.
func SetDefaults(v *viper.Viper) {
	v.SetDefault(KeyStrategy, engine.NamePipeline)
	v.SetDefault(KeyWorkers, 0)
	v.SetDefault(KeyChunk, 0)
	v.SetDefault(KeyStage, "")
	v.SetDefault(KeyRuns, 1)
	v.SetDefault(KeyHomologyThreshold, 60.0)
	v.SetDefault(KeyPromoterThreshold, 0.7)
	v.SetDefault(KeyBaselineFile, "")
	v.SetDefault(KeyBaselineDB, "")
	v.SetDefault(KeyCacheDir, "")
	v.SetDefault(KeyLogLevel, "info")
	v.SetDefault(KeyMetricsAddr, "")
}

// DefaultPath returns ~/.promoscan.yaml.
func DefaultPath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("cannot determine home directory: %w", err)
	}
	return filepath.Join(home, FileName), nil
}

// Init wires defaults and environment overrides into v and reads cfgFile, or
// the default file when cfgFile is empty. A missing default file is not an
// error.
func Init(v *viper.Viper, cfgFile string) error {
	SetDefaults(v)
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	explicit := cfgFile != ""
	if !explicit {
		path, err := DefaultPath()
		if err != nil {
			return nil
		}
		cfgFile = path
	}
	v.SetConfigFile(cfgFile)
	v.SetConfigType("yaml")

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !explicit && (errors.As(err, &notFound) || errors.Is(err, os.ErrNotExist)) {
			return nil
		}
		return fmt.Errorf("read config %s: %w", cfgFile, err)
	}
	return nil
}

// Load resolves and validates every key.
func Load(v *viper.Viper) (Config, error) {
	c := Config{
		References:   v.GetString(KeyReferences),
		Records:      v.GetString(KeyRecords),
		Strategy:     v.GetString(KeyStrategy),
		BaselineFile: v.GetString(KeyBaselineFile),
		BaselineDB:   v.GetString(KeyBaselineDB),
		CacheDir:     v.GetString(KeyCacheDir),
		MetricsAddr:  v.GetString(KeyMetricsAddr),
	}

	var err error
	if c.Workers, err = intValue(v, KeyWorkers); err != nil {
		return c, err
	}
	if c.Chunk, err = intValue(v, KeyChunk); err != nil {
		return c, err
	}
	if c.Runs, err = intValue(v, KeyRuns); err != nil {
		return c, err
	}
	if c.HomologyThreshold, err = floatValue(v, KeyHomologyThreshold); err != nil {
		return c, err
	}
	if c.PromoterThreshold, err = floatValue(v, KeyPromoterThreshold); err != nil {
		return c, err
	}

	switch c.Strategy {
	case engine.NameSequential, engine.NamePool, engine.NamePipeline:
	default:
		return c, Invalid(KeyStrategy, "%q is not one of sequential, pool, pipeline", c.Strategy)
	}
	stage, err := engine.ParseStage(v.GetString(KeyStage))
	if err != nil {
		return c, Invalid(KeyStage, "%v", err)
	}
	c.Stage = stage
	if c.Workers < 0 {
		return c, Invalid(KeyWorkers, "must not be negative, got %d", c.Workers)
	}
	if c.Chunk < 0 {
		return c, Invalid(KeyChunk, "must not be negative, got %d", c.Chunk)
	}
	if c.Runs < 1 {
		return c, Invalid(KeyRuns, "must be at least 1, got %d", c.Runs)
	}
	if c.HomologyThreshold < 0 {
		return c, Invalid(KeyHomologyThreshold, "must not be negative, got %g", c.HomologyThreshold)
	}
	if c.PromoterThreshold < 0 || c.PromoterThreshold > 1 {
		return c, Invalid(KeyPromoterThreshold, "must be within [0, 1], got %g", c.PromoterThreshold)
	}
	level, err := zap.ParseAtomicLevel(v.GetString(KeyLogLevel))
	if err != nil {
		return c, Invalid(KeyLogLevel, "%v", err)
	}
	c.LogLevel = level
	return c, nil
}

func intValue(v *viper.Viper, key string) (int, error) {
	n, err := cast.ToIntE(v.Get(key))
	if err != nil {
		return 0, Invalid(key, "%q is not an integer", v.GetString(key))
	}
	return n, nil
}

func floatValue(v *viper.Viper, key string) (float64, error) {
	f, err := cast.ToFloat64E(v.Get(key))
	if err != nil {
		return 0, Invalid(key, "%q is not a number", v.GetString(key))
	}
	return f, nil
}

// RequireInputs checks that the reference list and record directory are set.
func (c Config) RequireInputs() error {
	if c.References == "" {
		return Invalid(KeyReferences, "a reference gene list is required")
	}
	if c.Records == "" {
		return Invalid(KeyRecords, "a record directory is required")
	}
	return nil
}
