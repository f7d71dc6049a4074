package elt

import (
	"errors"
	"fmt"
)

// FieldType is a warehouse scalar type name.
type FieldType string

const (
	TypeString    FieldType = "STRING"
	TypeInt64     FieldType = "INT64"
	TypeFloat64   FieldType = "FLOAT64"
	TypeNumeric   FieldType = "NUMERIC"
	TypeBool      FieldType = "BOOL"
	TypeDate      FieldType = "DATE"
	TypeTimestamp FieldType = "TIMESTAMP"
)

// IsValid reports whether t is a supported field type.
func (t FieldType) IsValid() bool {
	switch t {
	case TypeString, TypeInt64, TypeFloat64, TypeNumeric, TypeBool, TypeDate, TypeTimestamp:
		return true
	}
	return false
}

// Mode is a column's nullability.
type Mode string

const (
	ModeNullable Mode = "NULLABLE"
	ModeRequired Mode = "REQUIRED"
)

// Column is one destination column. Position in the Schema is its position in the staged file.
type Column struct {
	Name string    `yaml:"name"`
	Type FieldType `yaml:"type"`
	Mode Mode      `yaml:"mode,omitempty"`
}

// Required reports whether the column rejects NULL.
func (c Column) Required() bool {
	return c.Mode == ModeRequired
}

// Schema is the ordered destination column list.
type Schema []Column

// Names returns the column names in load order.
func (s Schema) Names() []string {
	names := make([]string, len(s))
	for i, c := range s {
		names[i] = c.Name
	}
	return names
}

// Validate rejects empty schemas, unnamed or duplicate columns and unknown types or modes.
func (s Schema) Validate() error {
	if len(s) == 0 {
		return fmt.Errorf("schema has no columns: %w", ErrConfiguration)
	}

	var errs []error
	seen := make(map[string]bool, len(s))
	for i, c := range s {
		if c.Name == "" {
			errs = append(errs, fmt.Errorf("column %d has no name: %w", i, ErrConfiguration))
			continue
		}
		if seen[c.Name] {
			errs = append(errs, fmt.Errorf("duplicate column %q: %w", c.Name, ErrConfiguration))
		}
		seen[c.Name] = true
		if !c.Type.IsValid() {
			errs = append(errs, fmt.Errorf("column %q has unknown type %q: %w", c.Name, c.Type, ErrConfiguration))
		}
		if c.Mode != "" && c.Mode != ModeNullable && c.Mode != ModeRequired {
			errs = append(errs, fmt.Errorf("column %q has unknown mode %q: %w", c.Name, c.Mode, ErrConfiguration))
		}
	}
	return errors.Join(errs...)
}

// SalesSchema is the analytics table layout of the sales source table.
var SalesSchema = Schema{
	{Name: "segment", Type: TypeString, Mode: ModeNullable},
	{Name: "country", Type: TypeString, Mode: ModeNullable},
	{Name: "product", Type: TypeString, Mode: ModeNullable},
	{Name: "discount_band", Type: TypeString, Mode: ModeNullable},
	{Name: "units_sold", Type: TypeFloat64, Mode: ModeNullable},
	{Name: "manufacturing_price", Type: TypeInt64, Mode: ModeNullable},
	{Name: "sale_price", Type: TypeInt64, Mode: ModeNullable},
	{Name: "date", Type: TypeDate, Mode: ModeNullable},
	{Name: "discount_percentage", Type: TypeFloat64, Mode: ModeNullable},
}
