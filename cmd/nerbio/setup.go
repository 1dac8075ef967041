package main

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/revelaction/nerbio/config"
	"github.com/revelaction/nerbio/engine"
	"github.com/revelaction/nerbio/engine/perceptron"
	"github.com/revelaction/nerbio/engine/remote"
	"github.com/revelaction/nerbio/storage"
	"github.com/revelaction/nerbio/storage/filesystem"
	"github.com/revelaction/nerbio/storage/sqlite/zombiezen"
)

// NewRepository opens the store at path. A directory is a filesystem store,
// anything else a SQLite file, created when missing.
func NewRepository(p *Pool, path string) (storage.Repository, error) {
	if path == "" {
		return nil, errors.New("no store given: use --store or store.path")
	}

	info, err := os.Stat(path)
	if err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("repository not accessible: %s: %w", path, err)
	}

	if err == nil && info.IsDir() {
		return filesystem.NewStore(path)
	}

	pool, err := p.Open(path)
	if err != nil {
		return nil, err
	}
	return zombiezen.NewStore(pool), nil
}

// NewEngine creates the engine of the config. A non empty model path is
// loaded into it.
func NewEngine(ctx context.Context, cfg config.EngineConfig, seed int64, model string) (engine.Engine, error) {
	var eng engine.Engine

	switch cfg.Kind {
	case config.EnginePerceptron, "":
		eng = perceptron.New(perceptron.Options{Seed: seed})
	case config.EngineRemote:
		c, err := remote.New(ctx, remote.Options{
			URL:      cfg.URL,
			Model:    cfg.Model,
			RetryMax: cfg.RetryMax,
			Timeout:  cfg.Timeout,
		})
		if err != nil {
			return nil, fmt.Errorf("failed to connect to engine at %s: %w", cfg.URL, err)
		}
		eng = c
	default:
		return nil, fmt.Errorf("unknown engine kind %q (perceptron or remote)", cfg.Kind)
	}

	if model != "" {
		if err := eng.Load(model); err != nil {
			return nil, fmt.Errorf("failed to load model %s: %w", model, err)
		}
	}

	return eng, nil
}
