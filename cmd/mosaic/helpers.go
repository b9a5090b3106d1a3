package main

import (
	"context"
	"fmt"

	"github.com/Veraticus/mosaic-money/internal/config"
	"github.com/Veraticus/mosaic-money/internal/engine"
	"github.com/Veraticus/mosaic-money/internal/fallback"
	"github.com/Veraticus/mosaic-money/internal/semantic"
	"github.com/Veraticus/mosaic-money/internal/specialist"
	"github.com/Veraticus/mosaic-money/internal/storage"
	"github.com/spf13/viper"
)

// loadConfig reads the pipeline configuration from the global viper.
func loadConfig() (*config.PipelineConfig, error) {
	return config.LoadPipeline(viper.GetViper())
}

// initStorage opens the configured database and brings its schema up to date.
func initStorage(ctx context.Context, cfg *config.PipelineConfig) (*storage.SQLiteStorage, error) {
	store, err := storage.NewSQLiteStorage(cfg.DatabasePath)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// loadRegistry returns the configured lane registry, or the built-in one.
func loadRegistry(cfg *config.PipelineConfig) (*specialist.Registry, error) {
	if cfg.LaneRegistryPath == "" {
		return specialist.DefaultRegistry(), nil
	}
	registry, err := specialist.LoadRegistry(cfg.LaneRegistryPath)
	if err != nil {
		return nil, fmt.Errorf("failed to load lane registry: %w", err)
	}
	return registry, nil
}

// buildPipeline wires every configured stage around store.
func buildPipeline(cfg *config.PipelineConfig, store *storage.SQLiteStorage) (*engine.Pipeline, error) {
	registry, err := loadRegistry(cfg)
	if err != nil {
		return nil, err
	}
	detector, err := specialist.NewDetector(specialist.DefaultPatterns())
	if err != nil {
		return nil, fmt.Errorf("failed to compile lane keywords: %w", err)
	}

	opts := []engine.Option{
		engine.WithRetriever(semantic.NewRetriever(store, cfg.Semantic())),
		engine.WithRouter(specialist.NewRouter(registry, detector, cfg.RoutingEnabled)),
	}

	if cfg.FallbackEnabled {
		runtime, err := fallback.NewCommandRuntime(cfg.AgentCommand, cfg.AgentArgs...)
		if err != nil {
			return nil, err
		}
		opts = append(opts, engine.WithFallback(fallback.NewService(runtime, cfg.Fallback())))
	}

	if cfg.ReadinessEnabled {
		opts = append(opts, engine.WithReadinessGate(
			engine.NewReadinessGate(store, cfg.ReadinessMinSubcategories, cfg.ReadinessMinFillRate)))
	}

	return engine.NewPipeline(store, opts...), nil
}

// subcategoryNamer looks names up lazily and caches them for one command.
func subcategoryNamer(ctx context.Context, store *storage.SQLiteStorage) func(int64) string {
	cache := make(map[int64]string)
	return func(id int64) string {
		if name, ok := cache[id]; ok {
			return name
		}
		sub, err := store.GetSubcategory(ctx, id)
		if err != nil {
			cache[id] = ""
			return ""
		}
		cache[id] = sub.Name
		return sub.Name
	}
}
