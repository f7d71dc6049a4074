package warehouse

import "strings"

// BigQueryDialect quotes with backticks for GoogleSQL and brackets for legacy SQL.
type BigQueryDialect struct {
	Legacy bool
}

func (d BigQueryDialect) QuoteIdent(name string) string {
	if d.Legacy {
		return "[" + name + "]"
	}
	return "`" + strings.ReplaceAll(name, "`", "\\`") + "`"
}

func (d BigQueryDialect) TableName(ref TableRef) string {
	if d.Legacy {
		if ref.Project == "" {
			return "[" + ref.Dataset + "." + ref.Table + "]"
		}
		return "[" + ref.Project + ":" + ref.Dataset + "." + ref.Table + "]"
	}
	if ref.Project == "" {
		return d.QuoteIdent(ref.Dataset) + "." + d.QuoteIdent(ref.Table)
	}
	return d.QuoteIdent(ref.Project) + "." + d.QuoteIdent(ref.Dataset) + "." + d.QuoteIdent(ref.Table)
}

// DuckDBDialect uses standard double-quoted identifiers; datasets are schemas.
type DuckDBDialect struct{}

func (DuckDBDialect) QuoteIdent(name string) string {
	return `"` + strings.ReplaceAll(name, `"`, `""`) + `"`
}

func (d DuckDBDialect) TableName(ref TableRef) string {
	return d.QuoteIdent(ref.Dataset) + "." + d.QuoteIdent(ref.Table)
}
