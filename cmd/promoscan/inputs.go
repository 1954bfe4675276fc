package main

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/inodb/promoscan/internal/config"
	"github.com/inodb/promoscan/internal/genbank"
	"github.com/inodb/promoscan/internal/sequence"
)

// loadInputs reads the reference list and every record below the record
// directory, going through the record cache when one is configured.
func (a *app) loadInputs(ctx context.Context, cfg config.Config) ([]*sequence.Gene, []*sequence.Record, error) {
	if err := cfg.RequireInputs(); err != nil {
		return nil, nil, err
	}

	refs, err := genbank.LoadReferences(cfg.References)
	if err != nil {
		return nil, nil, err
	}
	if len(refs) == 0 {
		return nil, nil, fmt.Errorf("no reference genes in %s", cfg.References)
	}

	paths, err := genbank.ListFiles(cfg.Records)
	if err != nil {
		return nil, nil, err
	}

	var (
		rc    *genbank.RecordCache
		files []genbank.FileFingerprint
	)
	if cfg.CacheDir != "" {
		rc = genbank.NewRecordCache(cfg.CacheDir)
		files, err = genbank.StatFiles(paths)
		if err != nil {
			return nil, nil, err
		}
		if rc.Valid(files) {
			recs, err := rc.Load()
			if err == nil {
				a.logger.Info("loaded records from cache",
					zap.String("dir", cfg.CacheDir),
					zap.Int("records", len(recs)))
				return refs, recs, nil
			}
			a.logger.Warn("record cache unreadable, reparsing", zap.Error(err))
			rc.Clear()
		}
	}

	loader := genbank.NewLoader(cfg.Workers)
	loader.SetLogger(a.logger)
	res, err := loader.Load(ctx, paths)
	if err != nil {
		return nil, nil, fmt.Errorf("load records: %w", err)
	}
	a.logger.Info("loaded records",
		zap.Int("files", len(paths)),
		zap.Int("records", len(res.Records)),
		zap.Int("excluded", len(res.Failures)))

	if len(res.Records) == 0 {
		return nil, nil, fmt.Errorf("no records loaded from %s", cfg.Records)
	}

	// A partial load is not cached so the failing files are retried next time.
	if rc != nil && len(res.Failures) == 0 {
		if err := rc.Write(res.Records, files); err != nil {
			a.logger.Warn("could not write record cache", zap.Error(err))
		}
	}
	return refs, res.Records, nil
}
