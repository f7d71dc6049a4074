package elt

import (
	"errors"
	"fmt"
	"time"
)

// ConnectionConfig represents parsed PostgreSQL connection parameters.
type ConnectionConfig struct {
	Host     string
	Port     int
	Database string
	Username string
	Password string
	SSLMode  string

	// AuthMethod indicates the authentication mechanism to use
	AuthMethod AuthMethod

	// Cloud IAM parameters (used by AuthMethodAWSIAM / AuthMethodGoogleIAM)
	AWSRegion      string
	GoogleInstance string // project:region:instance

	// Additional connection parameters
	AppName          string
	ConnectTimeout   time.Duration
	AdditionalParams map[string]string
}

// Validate checks that the connection has enough information to dial.
func (c *ConnectionConfig) Validate() error {
	var errs []error

	if c.AuthMethod != AuthMethodGoogleIAM && c.Host == "" {
		errs = append(errs, fmt.Errorf("host is required: %w", ErrConfiguration))
	}
	if c.AuthMethod != AuthMethodGoogleIAM && (c.Port <= 0 || c.Port > 65535) {
		errs = append(errs, fmt.Errorf("port %d out of range: %w", c.Port, ErrConfiguration))
	}
	if c.Database == "" {
		errs = append(errs, fmt.Errorf("database is required: %w", ErrConfiguration))
	}
	if c.Username == "" {
		errs = append(errs, fmt.Errorf("user is required: %w", ErrConfiguration))
	}
	if !c.AuthMethod.IsValid() {
		errs = append(errs, fmt.Errorf("auth method %v: %w", c.AuthMethod, ErrUnsupportedAuthMethod))
	}
	if c.AuthMethod == AuthMethodGoogleIAM && c.GoogleInstance == "" {
		errs = append(errs, fmt.Errorf("google auth requires instance=project:region:instance: %w", ErrConfiguration))
	}
	if c.AuthMethod == AuthMethodAWSIAM && c.AWSRegion == "" {
		errs = append(errs, fmt.Errorf("aws auth requires aws_region: %w", ErrConfiguration))
	}

	return errors.Join(errs...)
}

// AuthMethod represents the type of authentication to use.
type AuthMethod int

const (
	AuthMethodStandard  AuthMethod = iota // Username/Password
	AuthMethodAWSIAM                      // AWS IAM Database Authentication
	AuthMethodGoogleIAM                   // Google Cloud SQL IAM
)

// String returns a human-readable string representation of the AuthMethod.
func (a AuthMethod) String() string {
	switch a {
	case AuthMethodStandard:
		return "Standard"
	case AuthMethodAWSIAM:
		return "AWS IAM"
	case AuthMethodGoogleIAM:
		return "Google IAM"
	default:
		return fmt.Sprintf("Unknown(%d)", a)
	}
}

// IsValid returns true if the AuthMethod is a valid, defined value.
func (a AuthMethod) IsValid() bool {
	return a >= AuthMethodStandard && a <= AuthMethodGoogleIAM
}

// ViewDisposition decides what the transform stage does when the view already exists.
type ViewDisposition string

const (
	// ViewIfAbsent creates the view when missing and leaves an existing one untouched.
	ViewIfAbsent ViewDisposition = "if_absent"
	// ViewReplace creates the view or redefines an existing one.
	ViewReplace ViewDisposition = "replace"
)

// IsValid reports whether d is a known disposition.
func (d ViewDisposition) IsValid() bool {
	return d == ViewIfAbsent || d == ViewReplace
}

// SeedConfig contains all parameters of a seed run. Every field is mandatory.
type SeedConfig struct {
	Connection ConnectionConfig
	TableName  string
	CSVFile    string
}

// Validate checks if the SeedConfig has all required fields and valid values.
func (c *SeedConfig) Validate() error {
	var errs []error

	if err := c.Connection.Validate(); err != nil {
		errs = append(errs, err)
	}
	if c.Connection.Password == "" && c.Connection.AuthMethod == AuthMethodStandard {
		errs = append(errs, fmt.Errorf("password is required: %w", ErrConfiguration))
	}
	if c.TableName == "" {
		errs = append(errs, fmt.Errorf("table_name is required: %w", ErrConfiguration))
	}
	if c.CSVFile == "" {
		errs = append(errs, fmt.Errorf("csv_file is required: %w", ErrConfiguration))
	}

	return errors.Join(errs...)
}

// PipelineConfig is the single configuration value of a pipeline run.
// It is resolved once at startup, validated, and passed explicitly to every stage.
type PipelineConfig struct {
	// GCP / warehouse side
	GCPConnID    string
	GCPProjectID string
	BQDataset    string
	BQTable      string
	GCSBucket    string

	// Source side
	PGConnID    string
	PGSchema    string
	PGTable     string
	CSVFilename string

	// Transform
	ViewName        string
	UseLegacySQL    bool
	ViewDisposition ViewDisposition

	// Extract
	FieldDelimiter string
	Gzip           bool

	// Orchestration
	Retries    int
	RetryDelay time.Duration
	Timeout    time.Duration

	// Backends
	StorageBackend   string
	WarehouseBackend string
	StorageRoot      string
	DuckDBPath       string
	S3Endpoint       string
	S3Region         string

	// Resolved connections
	Source             *ConnectionConfig
	GCPCredentialsFile string

	Schema Schema

	PushgatewayURL string
}

// Validate checks every required field and cross-field constraint.
// It returns a multi-error if multiple validation failures occur.
func (c *PipelineConfig) Validate() error {
	var errs []error

	required := []struct {
		key, value string
	}{
		{"GCP_CONN_ID", c.GCPConnID},
		{"GCP_PROJECT_ID", c.GCPProjectID},
		{"BQ_DATASET", c.BQDataset},
		{"BQ_TABLE", c.BQTable},
		{"GCS_BUCKET", c.GCSBucket},
		{"PG_CONN_ID", c.PGConnID},
		{"PG_SCHEMA", c.PGSchema},
		{"PG_TABLE", c.PGTable},
		{"CSV_FILENAME", c.CSVFilename},
	}
	for _, r := range required {
		if r.value == "" {
			errs = append(errs, fmt.Errorf("%s is required: %w", r.key, ErrConfiguration))
		}
	}

	if c.ViewName == "" {
		errs = append(errs, fmt.Errorf("view name is required: %w", ErrConfiguration))
	}
	if !c.ViewDisposition.IsValid() {
		errs = append(errs, fmt.Errorf("unknown view disposition %q: %w", c.ViewDisposition, ErrConfiguration))
	}
	if len(c.FieldDelimiter) != 1 {
		errs = append(errs, fmt.Errorf("field delimiter must be a single byte, got %q: %w", c.FieldDelimiter, ErrConfiguration))
	}
	if c.Retries < 0 {
		errs = append(errs, fmt.Errorf("retries cannot be negative: %w", ErrConfiguration))
	}
	if c.RetryDelay < 0 {
		errs = append(errs, fmt.Errorf("retry delay cannot be negative: %w", ErrConfiguration))
	}
	if c.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout cannot be negative: %w", ErrConfiguration))
	}

	switch c.StorageBackend {
	case StorageGCS, StorageS3:
	case StorageFile:
		if c.StorageRoot == "" {
			errs = append(errs, fmt.Errorf("file storage requires a root directory: %w", ErrConfiguration))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown storage backend %q: %w", c.StorageBackend, ErrConfiguration))
	}

	switch c.WarehouseBackend {
	case WarehouseBigQuery:
		if c.StorageBackend != StorageGCS {
			errs = append(errs, fmt.Errorf("bigquery loads only from gcs, storage backend is %q: %w", c.StorageBackend, ErrConfiguration))
		}
	case WarehouseDuckDB:
		if c.UseLegacySQL {
			errs = append(errs, fmt.Errorf("duckdb does not support legacy SQL views: %w", ErrConfiguration))
		}
		if c.DuckDBPath == "" {
			errs = append(errs, fmt.Errorf("duckdb requires a database path: %w", ErrConfiguration))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown warehouse backend %q: %w", c.WarehouseBackend, ErrConfiguration))
	}

	if c.Source == nil {
		if c.PGConnID != "" {
			errs = append(errs, fmt.Errorf("connection %q is not defined (set %s%s): %w",
				c.PGConnID, ConnEnvPrefix, ConnEnvKey(c.PGConnID), ErrConfiguration))
		}
	} else if err := c.Source.Validate(); err != nil {
		errs = append(errs, fmt.Errorf("connection %q: %w", c.PGConnID, err))
	}

	if err := c.Schema.Validate(); err != nil {
		errs = append(errs, err)
	}

	return errors.Join(errs...)
}

// ConnEnvKey upper-cases a connection id into the suffix of its environment variable.
func ConnEnvKey(connID string) string {
	out := make([]byte, 0, len(connID))
	for i := 0; i < len(connID); i++ {
		ch := connID[i]
		switch {
		case ch >= 'a' && ch <= 'z':
			out = append(out, ch-'a'+'A')
		case ch >= 'A' && ch <= 'Z', ch >= '0' && ch <= '9':
			out = append(out, ch)
		default:
			out = append(out, '_')
		}
	}
	return string(out)
}
