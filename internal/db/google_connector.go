package db

import (
	"context"
	"fmt"
	"net"

	"cloud.google.com/go/cloudsqlconn"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ohmyjons/simple-elt/internal/retry"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// GoogleCloudSQLConnector connects to a Cloud SQL instance with IAM database
// authentication through the Cloud SQL Go Connector.
//
// Close must be called after the pool is closed to release the dialer.
type GoogleCloudSQLConnector struct {
	config        *elt.ConnectionConfig
	instance      string
	logger        elt.Logger
	retryExecutor *retry.Executor
	dialer        *cloudsqlconn.Dialer
}

// NewGoogleCloudSQLConnector creates a connector for the instance connection
// name project:region:instance.
func NewGoogleCloudSQLConnector(config *elt.ConnectionConfig, instance string, logger elt.Logger) *GoogleCloudSQLConnector {
	return &GoogleCloudSQLConnector{
		config:        config,
		instance:      instance,
		logger:        logger,
		retryExecutor: newConnectRetryExecutor(logger),
	}
}

// Connect establishes a connection pool dialled through the Cloud SQL connector.
func (c *GoogleCloudSQLConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	dialer, err := cloudsqlconn.NewDialer(ctx, cloudsqlconn.WithIAMAuthN())
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create Cloud SQL dialer: %w", elt.ErrConnection, err)
	}

	dsn := fmt.Sprintf(
		"host=%s user=%s dbname=%s sslmode=disable application_name=%s",
		c.instance,
		c.config.Username,
		c.config.Database,
		c.config.AppName,
	)

	var pool *pgxpool.Pool
	err = c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		poolConfig, err := pgxpool.ParseConfig(dsn)
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w", elt.ErrConfiguration)
		}

		poolConfig.ConnConfig.DialFunc = func(ctx context.Context, _, _ string) (net.Conn, error) {
			return dialer.Dial(ctx, c.instance)
		}
		configurePool(poolConfig, c.logger)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, c.instance, elt.DefaultPort, c.config.Database)
		}
		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return wrapConnectionError(err, c.instance, elt.DefaultPort, c.config.Database)
		}
		return nil
	})
	if err != nil {
		dialer.Close()
		return nil, err
	}

	c.dialer = dialer
	return pool, nil
}

// Close releases the Cloud SQL dialer resources.
func (c *GoogleCloudSQLConnector) Close() error {
	if c.dialer != nil {
		c.dialer.Close()
		c.dialer = nil
	}
	return nil
}
