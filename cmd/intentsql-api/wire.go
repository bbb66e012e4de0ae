package main

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/intentsql/intentsql/internal/api"
	"github.com/intentsql/intentsql/internal/config"
	"github.com/intentsql/intentsql/internal/engine"
	"github.com/intentsql/intentsql/internal/extractor"
	duckdbengine "github.com/intentsql/intentsql/internal/query/duckdb"
	"github.com/intentsql/intentsql/internal/schema"
	schemaparquet "github.com/intentsql/intentsql/internal/schema/parquet"
	schemapostgres "github.com/intentsql/intentsql/internal/schema/postgres"
	"github.com/intentsql/intentsql/internal/schema/static"
	s3store "github.com/intentsql/intentsql/internal/storage/s3"
)

type wiring struct {
	service   *engine.Service
	readiness []api.ReadinessCheck
	db        *sql.DB
}

func (w *wiring) close() {
	if w.db != nil {
		_ = w.db.Close()
	}
}

// wire builds the resolution service from configuration. The object store is
// only opened when the schema is read from parquet footers or queries run.
func wire(ctx context.Context, cfg config.Config, logger *slog.Logger) (*wiring, error) {
	w := &wiring{service: &engine.Service{
		Logger:       logger,
		RowLimit:     cfg.Query.RowLimit,
		Orchestrator: engine.NewOrchestrator(engine.Options{RefuseSemanticFallback: cfg.Resolver.RefuseSemanticFallback}),
	}}

	var store *s3store.Store
	if cfg.Schema.Source == config.SchemaSourceObjectStore || cfg.Query.ExecuteEnabled {
		var err error
		store, err = s3store.New(ctx, s3store.Config{
			Endpoint:        cfg.ObjectStore.Endpoint,
			Region:          cfg.ObjectStore.Region,
			Bucket:          cfg.ObjectStore.Bucket,
			AccessKeyID:     cfg.ObjectStore.AccessKeyID,
			SecretAccessKey: cfg.ObjectStore.SecretAccessKey,
			UseSSL:          cfg.ObjectStore.UseSSL,
			Prefix:          cfg.ObjectStore.Prefix,
		})
		if err != nil {
			return nil, fmt.Errorf("initialize object store: %w", err)
		}
		w.readiness = append(w.readiness, api.CheckObjectStoreConfig(cfg), api.CheckHealth(store))
	}

	var provider schema.Provider
	switch cfg.Schema.Source {
	case config.SchemaSourcePostgres:
		db, err := schemapostgres.Open(ctx, schemapostgres.DBConfig{
			DSN:             cfg.Catalog.DSN,
			MaxOpenConns:    cfg.Catalog.MaxOpenConns,
			MaxIdleConns:    cfg.Catalog.MaxIdleConns,
			ConnMaxIdleTime: cfg.Catalog.ConnMaxIdleTime,
			ConnMaxLifetime: cfg.Catalog.ConnMaxLifetime,
		})
		if err != nil {
			return nil, fmt.Errorf("open catalog db: %w", err)
		}
		w.db = db
		pg := schemapostgres.NewProvider(db, cfg.Schema.PGSchema)
		provider = pg
		w.readiness = append(w.readiness, api.CheckCatalogDSN(cfg), api.CheckHealth(pg))
	case config.SchemaSourceObjectStore:
		provider = schemaparquet.NewProvider(store)
	case config.SchemaSourceFile:
		fileProvider, err := static.LoadFile(cfg.Schema.File)
		if err != nil {
			return nil, fmt.Errorf("load schema file: %w", err)
		}
		provider = fileProvider
	default:
		return nil, fmt.Errorf("unsupported schema source %q", cfg.Schema.Source)
	}
	w.service.Schema = provider

	if cfg.AI.ExtractEnabled {
		ext, err := extractor.NewOpenAIExtractor(extractor.OpenAIConfig{
			BaseURL:     cfg.AI.BaseURL,
			APIKey:      cfg.AI.APIKey,
			Model:       cfg.AI.Model,
			Temperature: cfg.AI.Temperature,
			Timeout:     cfg.AI.Timeout,
		})
		if err != nil {
			w.close()
			return nil, fmt.Errorf("initialize intent extractor: %w", err)
		}
		w.service.Extractor = ext
	}
	if cfg.Query.ExecuteEnabled {
		w.service.Executor = duckdbengine.NewEngine(store)
	}
	return w, nil
}
