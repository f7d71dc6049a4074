package db

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ohmyjons/simple-elt/internal/retry"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// Connection pool configuration constants
const (
	// DefaultMaxConns bounds the pool; a run uses one connection per stage.
	DefaultMaxConns = 2

	DefaultMinConns = 0

	DefaultMaxConnIdleTime = 5 * time.Minute
)

func configurePool(poolConfig *pgxpool.Config, logger elt.Logger) {
	poolConfig.MaxConns = DefaultMaxConns
	poolConfig.MinConns = DefaultMinConns
	poolConfig.MaxConnIdleTime = DefaultMaxConnIdleTime
	poolConfig.ConnConfig.OnNotice = func(_ *pgconn.PgConn, notice *pgconn.Notice) {
		logger.Verbose("postgres %s: %s", strings.ToLower(notice.Severity), notice.Message)
	}
}

func newConnectRetryExecutor(logger elt.Logger) *retry.Executor {
	strategy := retry.NewExponentialBackoff(elt.DefaultRetryMaxAttempts,
		retry.WithInitialDelay(elt.DefaultRetryInitialDelay),
		retry.WithMaxDelay(elt.DefaultRetryMaxDelay),
	)
	return retry.NewExecutor(retry.NewPostgreSQLErrorClassifier(), strategy, nil).
		WithOnRetry(func(attempt int, err error, delay time.Duration) {
			logger.Verbose("connect attempt %d failed, retrying in %v: %v", attempt+1, delay, err)
		})
}

// StandardConnector connects with username/password authentication and retries
// transient connection failures.
type StandardConnector struct {
	config        *elt.ConnectionConfig
	logger        elt.Logger
	retryExecutor *retry.Executor
}

// NewStandardConnector creates a new StandardConnector with the given configuration.
// Retry behavior uses DefaultRetryMaxAttempts attempts with exponential backoff
// from DefaultRetryInitialDelay up to DefaultRetryMaxDelay.
func NewStandardConnector(config *elt.ConnectionConfig, logger elt.Logger) *StandardConnector {
	return &StandardConnector{
		config:        config,
		logger:        logger,
		retryExecutor: newConnectRetryExecutor(logger),
	}
}

// Connect establishes a connection pool and verifies it with a ping.
func (c *StandardConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	return connectPool(ctx, c.retryExecutor, c.config, c.logger)
}

func connectPool(ctx context.Context, executor *retry.Executor, config *elt.ConnectionConfig, logger elt.Logger) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool
	connStr := BuildConnectionString(config)

	err := executor.Execute(ctx, func(ctx context.Context) error {
		poolConfig, err := pgxpool.ParseConfig(connStr)
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w", elt.ErrConfiguration)
		}

		configurePool(poolConfig, logger)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, config.Host, config.Port, config.Database)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return wrapConnectionError(err, config.Host, config.Port, config.Database)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}

// NewConnector creates the Connector matching the configuration's AuthMethod.
func NewConnector(config *elt.ConnectionConfig, logger elt.Logger) (elt.Connector, error) {
	switch config.AuthMethod {
	case elt.AuthMethodStandard:
		return NewStandardConnector(config, logger), nil
	case elt.AuthMethodAWSIAM:
		return newAWSConnector(config, logger)
	case elt.AuthMethodGoogleIAM:
		return newGoogleConnector(config, logger)
	default:
		return nil, fmt.Errorf("unsupported auth method %v: %w", config.AuthMethod, elt.ErrUnsupportedAuthMethod)
	}
}

// Open resolves a connector for config, connects, and returns the pool together
// with a release function that closes the pool and any connector resources.
func Open(ctx context.Context, config *elt.ConnectionConfig, logger elt.Logger) (*pgxpool.Pool, func(), error) {
	connector, err := NewConnector(config, logger)
	if err != nil {
		return nil, nil, err
	}

	pool, err := connector.Connect(ctx)
	if err != nil {
		if closer, ok := connector.(io.Closer); ok {
			_ = closer.Close()
		}
		return nil, nil, err
	}

	release := func() {
		pool.Close()
		if closer, ok := connector.(io.Closer); ok {
			_ = closer.Close()
		}
	}
	return pool, release, nil
}

// wrapConnectionError adds actionable guidance to raw pgx connection errors.
// The result matches both elt.ErrConnection and the original error.
func wrapConnectionError(err error, host string, port int, database string) error {
	errStr := strings.ToLower(err.Error())
	addr := fmt.Sprintf("%s:%d", host, port)

	switch {
	case strings.Contains(errStr, "connection refused") || strings.Contains(errStr, "actively refused"):
		return fmt.Errorf(`%w: connection refused to %s

Possible causes:
  - PostgreSQL is not running (check: pg_isready -h %s -p %d)
  - Wrong host or port in the connection URI
  - Firewall blocking the connection

Original error: %w`, elt.ErrConnection, addr, host, port, err)

	case strings.Contains(errStr, "no such host"):
		return fmt.Errorf(`%w: cannot resolve host "%s"

Possible causes:
  - Hostname is misspelled
  - DNS is not configured or reachable

Original error: %w`, elt.ErrConnection, host, err)

	case strings.Contains(errStr, "password authentication failed"):
		return fmt.Errorf(`%w: password authentication failed for database "%s"

Possible causes:
  - Wrong password in the connection URI
  - Wrong username
  - User does not have access to the database

Original error: %w`, elt.ErrConnection, database, err)

	case strings.Contains(errStr, "does not exist"):
		return fmt.Errorf(`%w: database "%s" does not exist

Original error: %w`, elt.ErrConnection, database, err)

	case strings.Contains(errStr, "timeout") || strings.Contains(errStr, "timed out"):
		return fmt.Errorf(`%w: connection timed out to %s

Possible causes:
  - Server is overloaded or unresponsive
  - Firewall silently dropping packets
  - Wrong host/port (server not listening)

Original error: %w`, elt.ErrConnection, addr, err)

	case strings.Contains(errStr, "ssl") || strings.Contains(errStr, "tls"):
		return fmt.Errorf(`%w: SSL/TLS connection error

Possible causes:
  - Server requires SSL but sslmode in the URI disables it
  - Certificate verification failed

Original error: %w`, elt.ErrConnection, err)

	case strings.Contains(errStr, "too many connections"):
		return fmt.Errorf(`%w: too many connections to database "%s"

Possible causes:
  - max_connections limit reached in postgresql.conf
  - Stale connections from previous runs

Original error: %w`, elt.ErrConnection, database, err)

	default:
		return fmt.Errorf("%w: failed to connect to database: %w", elt.ErrConnection, err)
	}
}

func newAWSConnector(config *elt.ConnectionConfig, logger elt.Logger) (elt.Connector, error) {
	endpoint := fmt.Sprintf("%s:%d", config.Host, config.Port)

	tokenProvider, err := NewAWSIAMTokenProvider(endpoint, config.AWSRegion, config.Username)
	if err != nil {
		return nil, fmt.Errorf("failed to create AWS IAM token provider: %w", err)
	}

	return NewTokenBasedConnector(config, tokenProvider, "AWS IAM", logger), nil
}

func newGoogleConnector(config *elt.ConnectionConfig, logger elt.Logger) (elt.Connector, error) {
	if config.GoogleInstance == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires instance=project:region:instance: %w", elt.ErrConfiguration)
	}
	if config.Username == "" {
		return nil, fmt.Errorf("Google Cloud SQL IAM auth requires a username: %w", elt.ErrConfiguration)
	}

	return NewGoogleCloudSQLConnector(config, config.GoogleInstance, logger), nil
}
