package seed

import (
	"context"
	"fmt"
	"os"
	"strings"

	"github.com/ohmyjons/simple-elt/internal/db"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// Result summarises a completed seed.
type Result struct {
	Table   string
	Rows    int64
	Columns []Column
}

// Seeder loads CSV files into PostgreSQL.
type Seeder struct {
	logger elt.Logger
}

// NewSeeder creates a Seeder that reports progress to logger.
func NewSeeder(logger elt.Logger) *Seeder {
	return &Seeder{logger: logger}
}

// Seed validates cfg, parses the CSV and replaces the target table.
// The file is fully parsed before any connection is opened.
func (s *Seeder) Seed(ctx context.Context, cfg elt.SeedConfig) (*Result, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	f, err := os.Open(cfg.CSVFile)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w: %w", cfg.CSVFile, elt.ErrConfiguration, err)
	}
	defer f.Close()

	table, err := ReadCSV(f)
	if err != nil {
		return nil, fmt.Errorf("%s: %w", cfg.CSVFile, err)
	}
	s.logger.Verbose("parsed %d rows, %d columns from %s", len(table.Rows), len(table.Columns), cfg.CSVFile)
	for _, c := range table.Columns {
		s.logger.Verbose("  %s %s", c.Name, c.Type)
	}

	pool, release, err := db.Open(ctx, &cfg.Connection, s.logger)
	if err != nil {
		return nil, err
	}
	defer release()

	rows, err := WriteTable(ctx, pool, cfg.TableName, table)
	if err != nil {
		return nil, fmt.Errorf("seed %s: %w", cfg.TableName, err)
	}

	result := &Result{Table: cfg.TableName, Rows: rows, Columns: table.Columns}
	s.logger.Info("seeded %s with %d rows (%s)", cfg.TableName, rows, describeColumns(table.Columns))
	return result, nil
}

func describeColumns(columns []Column) string {
	parts := make([]string, len(columns))
	for i, c := range columns {
		parts[i] = c.Name + " " + c.Type.SQL()
	}
	return strings.Join(parts, ", ")
}
