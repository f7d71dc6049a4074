package db

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/ohmyjons/simple-elt/internal/retry"
	"github.com/ohmyjons/simple-elt/pkg/elt"
)

// TokenBasedConnector authenticates with a short-lived token used as the
// PostgreSQL password. A fresh token is acquired for every connect attempt.
type TokenBasedConnector struct {
	config        *elt.ConnectionConfig
	tokenProvider TokenProvider
	retryExecutor *retry.Executor
	providerName  string
	logger        elt.Logger
}

// NewTokenBasedConnector creates a connector that uses a TokenProvider for authentication.
// providerName appears in log and error messages (e.g. "AWS IAM").
func NewTokenBasedConnector(config *elt.ConnectionConfig, tokenProvider TokenProvider, providerName string, logger elt.Logger) *TokenBasedConnector {
	return &TokenBasedConnector{
		config:        config,
		tokenProvider: tokenProvider,
		retryExecutor: newConnectRetryExecutor(logger),
		providerName:  providerName,
		logger:        logger,
	}
}

func (c *TokenBasedConnector) Connect(ctx context.Context) (*pgxpool.Pool, error) {
	var pool *pgxpool.Pool

	err := c.retryExecutor.Execute(ctx, func(ctx context.Context) error {
		token, expiresOn, err := c.tokenProvider.GetToken(ctx)
		if err != nil {
			return fmt.Errorf("%w: failed to acquire %s token: %w", elt.ErrConnection, c.providerName, err)
		}

		if remaining := time.Until(expiresOn); remaining < 5*time.Minute {
			c.logger.Info("%s token expires in %v", c.providerName, remaining.Round(time.Second))
		}
		c.logger.Verbose("acquired token from %s", c.tokenProvider)

		configWithToken := *c.config
		configWithToken.Password = token

		poolConfig, err := pgxpool.ParseConfig(BuildConnectionString(&configWithToken))
		if err != nil {
			return fmt.Errorf("failed to parse connection config: %w", elt.ErrConfiguration)
		}

		configurePool(poolConfig, c.logger)

		pool, err = pgxpool.NewWithConfig(ctx, poolConfig)
		if err != nil {
			return wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database)
		}

		if err := pool.Ping(ctx); err != nil {
			pool.Close()
			return wrapConnectionError(err, c.config.Host, c.config.Port, c.config.Database)
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return pool, nil
}
