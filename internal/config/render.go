package config

import (
	"github.com/ohmyjons/simple-elt/internal/db"
	"github.com/ohmyjons/simple-elt/pkg/elt"
	"gopkg.in/yaml.v3"
)

// view is the printable form of a PipelineConfig.
type view struct {
	Source struct {
		ConnID     string `yaml:"conn_id"`
		URI        string `yaml:"uri,omitempty"`
		AuthMethod string `yaml:"auth_method,omitempty"`
		Schema     string `yaml:"schema"`
		Table      string `yaml:"table"`
	} `yaml:"source"`
	Staging struct {
		Backend   string `yaml:"backend"`
		Bucket    string `yaml:"bucket"`
		Object    string `yaml:"object"`
		Root      string `yaml:"root,omitempty"`
		Endpoint  string `yaml:"endpoint,omitempty"`
		Region    string `yaml:"region,omitempty"`
		Delimiter string `yaml:"delimiter"`
		Gzip      bool   `yaml:"gzip"`
	} `yaml:"staging"`
	Warehouse struct {
		Backend     string `yaml:"backend"`
		ConnID      string `yaml:"conn_id"`
		Credentials string `yaml:"credentials"`
		Project     string `yaml:"project"`
		Dataset     string `yaml:"dataset"`
		Table       string `yaml:"table"`
		DuckDBPath  string `yaml:"duckdb_path,omitempty"`
	} `yaml:"warehouse"`
	View struct {
		Name         string `yaml:"name"`
		Disposition  string `yaml:"disposition"`
		UseLegacySQL bool   `yaml:"use_legacy_sql"`
	} `yaml:"view"`
	Run struct {
		Retries     int    `yaml:"retries"`
		RetryDelay  string `yaml:"retry_delay"`
		Timeout     string `yaml:"timeout"`
		Pushgateway string `yaml:"pushgateway,omitempty"`
	} `yaml:"run"`
	Schema elt.Schema `yaml:"schema"`
}

// Render returns cfg as YAML with credentials masked.
func Render(cfg *elt.PipelineConfig) ([]byte, error) {
	var v view

	v.Source.ConnID = cfg.PGConnID
	if cfg.Source != nil {
		v.Source.URI = db.Redact(cfg.Source)
		v.Source.AuthMethod = cfg.Source.AuthMethod.String()
	}
	v.Source.Schema = cfg.PGSchema
	v.Source.Table = cfg.PGTable

	v.Staging.Backend = cfg.StorageBackend
	v.Staging.Bucket = cfg.GCSBucket
	v.Staging.Object = cfg.CSVFilename
	v.Staging.Delimiter = cfg.FieldDelimiter
	v.Staging.Gzip = cfg.Gzip
	switch cfg.StorageBackend {
	case elt.StorageFile:
		v.Staging.Root = cfg.StorageRoot
	case elt.StorageS3:
		v.Staging.Endpoint = cfg.S3Endpoint
		v.Staging.Region = cfg.S3Region
	}

	v.Warehouse.Backend = cfg.WarehouseBackend
	v.Warehouse.ConnID = cfg.GCPConnID
	v.Warehouse.Credentials = "application default"
	if cfg.GCPCredentialsFile != "" {
		v.Warehouse.Credentials = cfg.GCPCredentialsFile
	}
	v.Warehouse.Project = cfg.GCPProjectID
	v.Warehouse.Dataset = cfg.BQDataset
	v.Warehouse.Table = cfg.BQTable
	if cfg.WarehouseBackend == elt.WarehouseDuckDB {
		v.Warehouse.DuckDBPath = cfg.DuckDBPath
	}

	v.View.Name = cfg.ViewName
	v.View.Disposition = string(cfg.ViewDisposition)
	v.View.UseLegacySQL = cfg.UseLegacySQL

	v.Run.Retries = cfg.Retries
	v.Run.RetryDelay = cfg.RetryDelay.String()
	v.Run.Timeout = cfg.Timeout.String()
	v.Run.Pushgateway = cfg.PushgatewayURL

	v.Schema = cfg.Schema

	return yaml.Marshal(&v)
}
