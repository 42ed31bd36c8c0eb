package testutils

import (
	"context"
	"fmt"
	"path/filepath"
	"runtime"
	"testing"
	"time"

	"github.com/golang-migrate/migrate/v4"
	_ "github.com/golang-migrate/migrate/v4/database/postgres"
	_ "github.com/golang-migrate/migrate/v4/source/file"
	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresSuite runs a throwaway Postgres container with the repository migrations applied
type PostgresSuite struct {
	T  *testing.T
	DB *sqlx.DB

	container *postgres.PostgresContainer
}

// NewPostgresSuite starts the container and migrates it. Skipped in -short mode.
func NewPostgresSuite(t *testing.T) *PostgresSuite {
	t.Helper()
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	s := &PostgresSuite{T: t}
	s.setup()
	t.Cleanup(s.teardown)
	return s
}

func (s *PostgresSuite) setup() {
	ctx := context.Background()

	pgContainer, err := postgres.Run(ctx,
		"postgres:16-alpine",
		postgres.WithDatabase("property_test"),
		postgres.WithUsername("test"),
		postgres.WithPassword("test"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second)),
	)
	require.NoError(s.T, err)
	s.container = pgContainer

	connStr, err := pgContainer.ConnectionString(ctx, "sslmode=disable")
	require.NoError(s.T, err)

	s.DB, err = sqlx.Connect("postgres", connStr)
	require.NoError(s.T, err)

	_, b, _, _ := runtime.Caller(0)
	basepath := filepath.Dir(b)
	migrationPath := fmt.Sprintf("file://%s/../../migrations", basepath)

	m, err := migrate.New(migrationPath, connStr)
	require.NoError(s.T, err)
	require.NoError(s.T, m.Up())
}

// Reset empties every table between test cases
func (s *PostgresSuite) Reset() {
	_, err := s.DB.Exec(`TRUNCATE jobs, failed_jobs, properties`)
	require.NoError(s.T, err)
}

func (s *PostgresSuite) teardown() {
	if s.DB != nil {
		s.DB.Close()
	}
	if s.container != nil {
		s.container.Terminate(context.Background())
	}
}
