package testinfra

import (
	"context"
	"os"
	"sync"
	"testing"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ConnEnvVar overrides the container with an existing database.
const ConnEnvVar = "ELT_TEST_PG_CONN"

var (
	containerOnce sync.Once
	containerConn string
	containerErr  error
)

func sharedContainer() (string, error) {
	containerOnce.Do(func() {
		ctr, err := StartPostgres(context.Background())
		if err != nil {
			containerErr = err
			return
		}
		containerConn = ctr.ConnString
	})
	return containerConn, containerErr
}

// RequireDatabase returns a PostgreSQL URI for integration tests.
// Priority: ELT_TEST_PG_CONN > shared testcontainer > skip.
// Tests are skipped under -short.
func RequireDatabase(t *testing.T) string {
	t.Helper()

	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	if connString := os.Getenv(ConnEnvVar); connString != "" {
		return connString
	}

	connString, err := sharedContainer()
	if err != nil {
		t.Skipf("%s not set and Docker unavailable: %v", ConnEnvVar, err)
	}
	return connString
}

// NewPool opens a pool against connString and closes it when the test ends.
func NewPool(t *testing.T, connString string) *pgxpool.Pool {
	t.Helper()

	pool, err := pgxpool.New(context.Background(), connString)
	if err != nil {
		t.Fatalf("open pool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}
