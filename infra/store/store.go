// Package store implements result persistence on SQLite and JSONL files.
package store

import (
	"context"
	"fmt"

	"github.com/kilianp07/usdplan/core/factory"
	"github.com/kilianp07/usdplan/core/model"
	corestore "github.com/kilianp07/usdplan/core/store"
)

var backends = factory.NewRegistry[corestore.ResultStore]()

func init() {
	_ = backends.Register("sqlite", func(conf map[string]any) (corestore.ResultStore, error) {
		var c corestore.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewSQLiteStore(c.Path)
	})
	_ = backends.Register("jsonl", func(conf map[string]any) (corestore.ResultStore, error) {
		var c corestore.Config
		if err := factory.Decode(conf, &c); err != nil {
			return nil, err
		}
		return NewJSONLStore(c.Path, c.MaxSizeMB, c.MaxBackups, c.MaxAgeDays)
	})
	_ = backends.Register("none", func(map[string]any) (corestore.ResultStore, error) {
		return NopStore{}, nil
	})
}

// New opens the backend selected by cfg. An empty backend discards results.
func New(cfg corestore.Config) (corestore.ResultStore, error) {
	kind := cfg.Backend
	if kind == "" {
		kind = "none"
	}
	return backends.Create(factory.ModuleConfig{Type: kind, Conf: map[string]any{
		"path":         cfg.Path,
		"max_size_mb":  cfg.MaxSizeMB,
		"max_backups":  cfg.MaxBackups,
		"max_age_days": cfg.MaxAgeDays,
	}})
}

// NopStore discards results.
type NopStore struct{}

func (NopStore) Save(context.Context, model.Result) error { return nil }

func (NopStore) Get(_ context.Context, p model.Period) (model.Result, error) {
	return model.Result{}, fmt.Errorf("%s: %w", p, corestore.ErrNotFound)
}

func (NopStore) List(context.Context, corestore.Query) ([]corestore.Summary, error) {
	return nil, nil
}

func (NopStore) Close() error { return nil }
