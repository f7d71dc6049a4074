package seed

import (
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"math"
	"strconv"
	"strings"
	"time"
	"unicode"

	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// ColumnType is an inferred PostgreSQL column type, ordered narrowest first.
type ColumnType int

const (
	TypeBigInt ColumnType = iota
	TypeDouble
	TypeBoolean
	TypeDate
	TypeText
)

// SQL returns the PostgreSQL type name.
func (t ColumnType) SQL() string {
	switch t {
	case TypeBigInt:
		return "BIGINT"
	case TypeDouble:
		return "DOUBLE PRECISION"
	case TypeBoolean:
		return "BOOLEAN"
	case TypeDate:
		return "DATE"
	default:
		return "TEXT"
	}
}

func (t ColumnType) String() string {
	return t.SQL()
}

// dateLayouts are tried in order when recognising DATE cells.
var dateLayouts = []string{"2006-01-02", "01/02/2006", "1/2/2006"}

// Column is one inferred column.
type Column struct {
	Name string
	Type ColumnType
}

// Table is a fully parsed CSV: inferred columns and typed rows ready for COPY.
// A nil row value is SQL NULL.
type Table struct {
	Columns []Column
	Rows    [][]any
}

// ColumnNames returns the column names in file order.
func (t *Table) ColumnNames() []string {
	names := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		names[i] = c.Name
	}
	return names
}

// ReadCSV parses the whole CSV, infers a type per column and converts every cell.
// The first record is the header.
func ReadCSV(r io.Reader) (*Table, error) {
	reader := csv.NewReader(r)
	reader.ReuseRecord = false

	header, err := reader.Read()
	if errors.Is(err, io.EOF) {
		return nil, fmt.Errorf("csv has no header row: %w", elt.ErrSchemaInference)
	}
	if err != nil {
		return nil, fmt.Errorf("read csv header: %w: %w", elt.ErrSchemaInference, err)
	}

	names, err := normalizeHeader(header)
	if err != nil {
		return nil, err
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("read csv: %w: %w", elt.ErrSchemaInference, err)
	}

	columns := make([]Column, len(names))
	for i, name := range names {
		columns[i] = Column{Name: name, Type: inferColumn(records, i)}
	}

	rows := make([][]any, len(records))
	for r, record := range records {
		row := make([]any, len(columns))
		for c, col := range columns {
			v, err := convert(record[c], col.Type)
			if err != nil {
				// Unreachable unless inference and conversion disagree.
				return nil, fmt.Errorf("row %d column %q: %w: %w", r+2, col.Name, elt.ErrSchemaInference, err)
			}
			row[c] = v
		}
		rows[r] = row
	}

	return &Table{Columns: columns, Rows: rows}, nil
}

// NormalizeName lower-cases a header cell and collapses runs of
// non-alphanumeric characters into a single underscore.
func NormalizeName(s string) string {
	var b strings.Builder
	pendingSep := false
	for _, r := range strings.TrimSpace(s) {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			if pendingSep && b.Len() > 0 {
				b.WriteByte('_')
			}
			pendingSep = false
			b.WriteRune(unicode.ToLower(r))
			continue
		}
		pendingSep = true
	}
	return b.String()
}

func normalizeHeader(header []string) ([]string, error) {
	names := make([]string, len(header))
	seen := make(map[string]int, len(header))
	var errs []error
	for i, h := range header {
		// A UTF-8 BOM on the first cell is common in spreadsheet exports.
		if i == 0 {
			h = strings.TrimPrefix(h, "\ufeff")
		}
		name := NormalizeName(h)
		switch {
		case name == "":
			errs = append(errs, fmt.Errorf("header column %d is empty: %w", i+1, elt.ErrSchemaInference))
		case seen[name] > 0:
			errs = append(errs, fmt.Errorf("header columns %d and %d both normalise to %q: %w", seen[name], i+1, name, elt.ErrSchemaInference))
		default:
			seen[name] = i + 1
		}
		names[i] = name
	}
	if err := errors.Join(errs...); err != nil {
		return nil, err
	}
	return names, nil
}

func inferColumn(records [][]string, col int) ColumnType {
	var cells []string
	for _, record := range records {
		if cell := strings.TrimSpace(record[col]); cell != "" {
			cells = append(cells, cell)
		}
	}
	if len(cells) == 0 {
		return TypeText
	}

	for t := TypeBigInt; t < TypeText; t++ {
		if allFit(cells, t) {
			return t
		}
	}
	return TypeText
}

func allFit(cells []string, t ColumnType) bool {
	for _, cell := range cells {
		if !fits(cell, t) {
			return false
		}
	}
	return true
}

// fits reports whether cell parses as t. TEXT fits anything.
func fits(cell string, t ColumnType) bool {
	switch t {
	case TypeBigInt:
		_, err := strconv.ParseInt(cell, 10, 64)
		return err == nil
	case TypeDouble:
		f, err := strconv.ParseFloat(cell, 64)
		return err == nil && !math.IsNaN(f) && !math.IsInf(f, 0)
	case TypeBoolean:
		_, ok := parseBool(cell)
		return ok
	case TypeDate:
		_, ok := parseDate(cell)
		return ok
	default:
		return true
	}
}

func parseBool(cell string) (bool, bool) {
	switch strings.ToLower(cell) {
	case "true":
		return true, true
	case "false":
		return false, true
	}
	return false, false
}

func parseDate(cell string) (time.Time, bool) {
	for _, layout := range dateLayouts {
		if d, err := time.Parse(layout, cell); err == nil {
			return d, true
		}
	}
	return time.Time{}, false
}

func convert(raw string, t ColumnType) (any, error) {
	cell := strings.TrimSpace(raw)
	if cell == "" {
		return nil, nil
	}
	switch t {
	case TypeBigInt:
		return strconv.ParseInt(cell, 10, 64)
	case TypeDouble:
		return strconv.ParseFloat(cell, 64)
	case TypeBoolean:
		if b, ok := parseBool(cell); ok {
			return b, nil
		}
		return nil, fmt.Errorf("%q is not a boolean", cell)
	case TypeDate:
		if d, ok := parseDate(cell); ok {
			return d, nil
		}
		return nil, fmt.Errorf("%q is not a date", cell)
	default:
		return raw, nil
	}
}
