package pipeline

import (
	"context"
	"fmt"

	"github.com/ohmyjons/simple-elt/internal/objectstore"
	"github.com/ohmyjons/simple-elt/internal/warehouse"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// Build wires the configured object store and warehouse into the
// extract -> load -> transform pipeline. The returned cleanup closes both clients.
func Build(ctx context.Context, cfg *elt.PipelineConfig, logger elt.Logger, opts ...Option) (*Pipeline, func(), error) {
	if err := cfg.Validate(); err != nil {
		return nil, nil, err
	}

	store, err := objectstore.New(ctx, cfg)
	if err != nil {
		return nil, nil, err
	}

	wh, err := warehouse.New(ctx, cfg, store, logger)
	if err != nil {
		store.Close()
		return nil, nil, err
	}

	cleanup := func() {
		if err := wh.Close(); err != nil {
			logger.Verbose("close warehouse: %v", err)
		}
		if err := store.Close(); err != nil {
			logger.Verbose("close object store: %v", err)
		}
	}

	opts = append([]Option{WithRetryPolicy(cfg.Retries, cfg.RetryDelay)}, opts...)
	p, err := New(Stages(cfg, store, wh, logger), logger, opts...)
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return p, cleanup, nil
}

// Stages returns the extract, load and transform stages for cfg.
func Stages(cfg *elt.PipelineConfig, store objectstore.Store, wh warehouse.Warehouse, logger elt.Logger) []Stage {
	table := warehouse.TableRef{Project: cfg.GCPProjectID, Dataset: cfg.BQDataset, Table: cfg.BQTable}
	view := warehouse.TableRef{Project: cfg.GCPProjectID, Dataset: cfg.BQDataset, Table: cfg.ViewName}

	return []Stage{
		&ExtractStage{
			Source:         cfg.Source,
			Schema:         cfg.PGSchema,
			Table:          cfg.PGTable,
			Store:          store,
			Bucket:         cfg.GCSBucket,
			Object:         cfg.CSVFilename,
			FieldDelimiter: cfg.FieldDelimiter,
			Gzip:           cfg.Gzip,
			Logger:         logger,
		},
		&LoadStage{
			Warehouse: wh,
			Job: warehouse.LoadJob{
				Bucket:            cfg.GCSBucket,
				Objects:           []string{cfg.CSVFilename},
				Destination:       table,
				Schema:            cfg.Schema,
				CreateDisposition: warehouse.CreateIfNeeded,
				WriteDisposition:  warehouse.WriteTruncate,
				FieldDelimiter:    cfg.FieldDelimiter,
				Gzip:              cfg.Gzip,
			},
			Logger: logger,
		},
		&TransformStage{
			Warehouse:    wh,
			Source:       table,
			View:         view,
			UseLegacySQL: cfg.UseLegacySQL,
			Disposition:  cfg.ViewDisposition,
			Logger:       logger,
		},
	}
}

// Describe lists what each stage of cfg reads and writes, for dry runs.
func Describe(cfg *elt.PipelineConfig) []string {
	return []string{
		fmt.Sprintf("extract: %s.%s -> %s %s/%s", cfg.PGSchema, cfg.PGTable, cfg.StorageBackend, cfg.GCSBucket, cfg.CSVFilename),
		fmt.Sprintf("load: %s/%s -> %s %s.%s.%s (truncate)", cfg.GCSBucket, cfg.CSVFilename, cfg.WarehouseBackend, cfg.GCPProjectID, cfg.BQDataset, cfg.BQTable),
		fmt.Sprintf("transform: view %s.%s (%s)", cfg.BQDataset, cfg.ViewName, cfg.ViewDisposition),
	}
}
