package elt

import "time"

// Exit codes for semantic error classification.
// These follow Unix/GNU conventions:
//   - 0: Success
//   - 1: General error
//   - 2: CLI usage error (misuse of command line)
//   - 3+: Application-specific errors
const (
	ExitSuccess              = 0  // Seed or pipeline run completed successfully
	ExitGeneralError         = 1  // Unknown or unclassified error
	ExitUsageError           = 2  // CLI usage error (missing args, invalid flags)
	ExitPanic                = 3  // Internal panic (unexpected crash)
	ExitConfigError          = 10 // Invalid configuration or parameters
	ExitConnectionError      = 11 // Source or destination unreachable
	ExitQueryError           = 12 // Source query failed
	ExitWriteError           = 13 // Table or staged object write failed
	ExitSchemaInferenceError = 14 // Seed CSV could not be typed
	ExitTypeMismatch         = 15 // Staged row did not fit the destination schema
	ExitLoadError            = 16 // Warehouse load failed
	ExitViewDefinitionError  = 17 // Derived view could not be created
)

const (
	// DefaultRetryInitialDelay is the initial delay before the first connection retry attempt.
	DefaultRetryInitialDelay = 100 * time.Millisecond

	// DefaultRetryMaxDelay is the maximum delay between connection retry attempts.
	DefaultRetryMaxDelay = 1 * time.Minute

	// DefaultRetryMaxAttempts is the maximum number of connection retry attempts.
	DefaultRetryMaxAttempts = 3

	// DefaultStageRetries is the number of times a failed stage is retried.
	DefaultStageRetries = 1

	// DefaultStageRetryDelay is the fixed wait between stage attempts.
	DefaultStageRetryDelay = 1 * time.Minute

	// DefaultViewName is the name of the derived metrics view.
	DefaultViewName = "calculate_view"

	// DefaultFieldDelimiter separates fields in the staged file.
	DefaultFieldDelimiter = ","

	// DefaultAppName is reported to PostgreSQL as application_name.
	DefaultAppName = "simple-elt"

	// DefaultSSLMode is used when no sslmode is given.
	DefaultSSLMode = "prefer"

	// DefaultPort is the PostgreSQL port used when a connection URI omits it.
	DefaultPort = 5432

	// ConnEnvPrefix prefixes the environment variable a connection id resolves to:
	// PG_CONN_ID=pg_default is looked up as ELT_CONN_PG_DEFAULT.
	ConnEnvPrefix = "ELT_CONN_"

	// DefaultConfigFile is the optional YAML pipeline configuration file.
	DefaultConfigFile = "elt.yaml"

	// DefaultEnvFile is loaded when present and no --env-file flag is given.
	DefaultEnvFile = ".env"
)

// Storage backends.
const (
	StorageGCS  = "gcs"
	StorageS3   = "s3"
	StorageFile = "file"
)

// Warehouse backends.
const (
	WarehouseBigQuery = "bigquery"
	WarehouseDuckDB   = "duckdb"
)
