// Package baseline persists consensus aggregates so later runs can be
// verified against them: as a canonical JSON file, or as run history in
// DuckDB.
package baseline

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/inodb/promoscan/internal/consensus"
)

// WriteFile writes the canonical JSON form of agg to path.
func WriteFile(path string, agg *consensus.Aggregate) error {
	b, err := consensus.MarshalCanonical(agg)
	if err != nil {
		return err
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("create baseline directory: %w", err)
		}
	}
	if err := os.WriteFile(path, append(b, '\n'), 0644); err != nil {
		return fmt.Errorf("write baseline: %w", err)
	}
	return nil
}

// ReadFile reads a baseline file and returns it in canonical form.
func ReadFile(path string) ([]byte, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read baseline: %w", err)
	}
	canon, err := consensus.Canonicalize(b)
	if err != nil {
		return nil, fmt.Errorf("baseline %s: %w", path, err)
	}
	return canon, nil
}
