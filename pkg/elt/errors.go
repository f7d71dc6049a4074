package elt

import (
	"errors"
	"strings"
)

// Sentinel errors for the failure kinds of a seed or pipeline run.
// Callers distinguish them with errors.Is(); stage errors wrap exactly one of them.
//
// Example usage:
//
//	report, err := p.Run(ctx)
//	if errors.Is(err, elt.ErrTypeMismatch) {
//	    // a staged row did not fit the declared schema
//	}
var (
	// ErrConfiguration indicates a missing or invalid required parameter, detected at startup.
	ErrConfiguration = errors.New("invalid configuration")

	// ErrConnection indicates the source or destination could not be reached.
	ErrConnection = errors.New("connection failed")

	// ErrQuery indicates a malformed or failing SQL statement against the source.
	ErrQuery = errors.New("query failed")

	// ErrWrite indicates a write to a table or staged object did not complete.
	ErrWrite = errors.New("write failed")

	// ErrSchemaInference indicates the seed CSV could not be parsed into a typed table.
	ErrSchemaInference = errors.New("schema inference failed")

	// ErrTypeMismatch indicates a staged field could not be cast to its declared column type.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrLoad indicates a warehouse-side load failure (unavailable, quota, rejected job).
	ErrLoad = errors.New("load failed")

	// ErrViewDefinition indicates the derived view could not be created.
	ErrViewDefinition = errors.New("view definition failed")

	// ErrUnsupportedAuthMethod indicates the requested authentication method is not supported.
	ErrUnsupportedAuthMethod = errors.New("unsupported authentication method")
)

// ExitCodeForError returns the appropriate exit code for an error.
// Returns ExitSuccess (0) for nil errors, semantic codes for known errors,
// and ExitGeneralError (1) for unclassified errors.
func ExitCodeForError(err error) int {
	if err == nil {
		return ExitSuccess
	}

	switch {
	case errors.Is(err, ErrConfiguration), errors.Is(err, ErrUnsupportedAuthMethod):
		return ExitConfigError
	case errors.Is(err, ErrConnection):
		return ExitConnectionError
	case errors.Is(err, ErrQuery):
		return ExitQueryError
	case errors.Is(err, ErrWrite):
		return ExitWriteError
	case errors.Is(err, ErrSchemaInference):
		return ExitSchemaInferenceError
	case errors.Is(err, ErrTypeMismatch):
		return ExitTypeMismatch
	case errors.Is(err, ErrLoad):
		return ExitLoadError
	case errors.Is(err, ErrViewDefinition):
		return ExitViewDefinitionError
	}

	// Cobra reports flag problems as plain errors.
	errStr := err.Error()
	if strings.Contains(errStr, "required flag") ||
		strings.Contains(errStr, "unknown flag") ||
		strings.Contains(errStr, "unknown shorthand flag") ||
		strings.Contains(errStr, "invalid argument") ||
		strings.Contains(errStr, "unknown command") ||
		strings.Contains(errStr, "accepts ") {
		return ExitUsageError
	}

	if strings.Contains(errStr, "failed to connect") ||
		strings.Contains(errStr, "connection refused") ||
		strings.Contains(errStr, "no such host") {
		return ExitConnectionError
	}

	return ExitGeneralError
}
