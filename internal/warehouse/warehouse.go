// Package warehouse loads staged delimited files into an analytical warehouse
// and defines views over the loaded tables. Backends are BigQuery and DuckDB.
package warehouse

import (
	"context"
	"fmt"

	"github.com/ohmyjons/simple-elt/internal/objectstore"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// TableRef names a table or view. Project is ignored by backends without projects.
type TableRef struct {
	Project string
	Dataset string
	Table   string
}

func (r TableRef) String() string {
	if r.Project == "" {
		return r.Dataset + "." + r.Table
	}
	return r.Project + "." + r.Dataset + "." + r.Table
}

// CreateDisposition decides what happens when the destination table is missing.
type CreateDisposition string

const (
	CreateIfNeeded CreateDisposition = "CREATE_IF_NEEDED"
	CreateNever    CreateDisposition = "CREATE_NEVER"
)

// WriteDisposition decides what happens to rows already in the destination.
type WriteDisposition string

const (
	WriteTruncate WriteDisposition = "WRITE_TRUNCATE"
	WriteAppend   WriteDisposition = "WRITE_APPEND"
	WriteEmpty    WriteDisposition = "WRITE_EMPTY"
)

// LoadJob describes one all-or-nothing load of staged objects into a table.
type LoadJob struct {
	Bucket            string
	Objects           []string
	Destination       TableRef
	Schema            elt.Schema
	CreateDisposition CreateDisposition
	WriteDisposition  WriteDisposition
	FieldDelimiter    string
	Gzip              bool
	SkipLeadingRows   int
}

// LoadResult reports a completed load.
type LoadResult struct {
	Table TableRef
	Rows  int64
}

// ViewDefinition describes a view to create.
type ViewDefinition struct {
	View         TableRef
	Query        string
	UseLegacySQL bool
	Disposition  elt.ViewDisposition
}

// ViewAction is what CreateView did.
type ViewAction string

const (
	ViewCreated   ViewAction = "created"
	ViewReplaced  ViewAction = "replaced"
	ViewUnchanged ViewAction = "unchanged"
)

// ViewResult reports a CreateView call.
type ViewResult struct {
	View   TableRef
	Action ViewAction
}

// Dialect renders identifiers for a warehouse's SQL.
type Dialect interface {
	QuoteIdent(name string) string
	TableName(ref TableRef) string
}

// Warehouse is a load and view-definition target.
type Warehouse interface {
	// Load replaces or appends the destination's rows with the staged objects.
	// Parse failures return elt.ErrTypeMismatch; other failures elt.ErrLoad.
	Load(ctx context.Context, job LoadJob) (LoadResult, error)

	// CreateView applies def.Disposition. Failures return elt.ErrViewDefinition.
	CreateView(ctx context.Context, def ViewDefinition) (ViewResult, error)

	Dialect(useLegacySQL bool) Dialect

	Close() error
}

// New creates the Warehouse selected by cfg.WarehouseBackend. The DuckDB backend
// reads staged objects through store.
func New(ctx context.Context, cfg *elt.PipelineConfig, store objectstore.Store, logger elt.Logger) (Warehouse, error) {
	switch cfg.WarehouseBackend {
	case elt.WarehouseBigQuery:
		return NewBigQueryWarehouse(ctx, cfg.GCPProjectID, cfg.GCPCredentialsFile, logger)
	case elt.WarehouseDuckDB:
		return NewDuckDBWarehouse(cfg.DuckDBPath, store, logger)
	default:
		return nil, fmt.Errorf("unknown warehouse backend %q: %w", cfg.WarehouseBackend, elt.ErrConfiguration)
	}
}

func validateJob(job LoadJob) error {
	if len(job.Objects) == 0 {
		return fmt.Errorf("load %s: no source objects: %w", job.Destination, elt.ErrLoad)
	}
	if len(job.FieldDelimiter) != 1 {
		return fmt.Errorf("load %s: delimiter must be one byte: %w", job.Destination, elt.ErrConfiguration)
	}
	if err := job.Schema.Validate(); err != nil {
		return err
	}
	switch job.CreateDisposition {
	case CreateIfNeeded, CreateNever:
	default:
		return fmt.Errorf("unknown create disposition %q: %w", job.CreateDisposition, elt.ErrConfiguration)
	}
	switch job.WriteDisposition {
	case WriteTruncate, WriteAppend, WriteEmpty:
	default:
		return fmt.Errorf("unknown write disposition %q: %w", job.WriteDisposition, elt.ErrConfiguration)
	}
	return nil
}
