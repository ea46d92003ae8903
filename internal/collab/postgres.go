package collab

import (
	"context"
	"database/sql"
	"fmt"

	_ "github.com/lib/pq"
)

// PostgresProvider implements Provider for the primary database.
// It holds its own database/sql connection so the readiness probe stays
// independent of the repository's pgx pool.
type PostgresProvider struct {
	BaseProvider
	db *sql.DB
}

// NewPostgresProvider creates a new postgres collaborator provider
func NewPostgresProvider(dsn string) (*PostgresProvider, error) {
	db, err := sql.Open("postgres", dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open postgres connection: %w", err)
	}

	db.SetMaxOpenConns(2)
	db.SetMaxIdleConns(1)

	if err := db.Ping(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	return &PostgresProvider{
		BaseProvider: BaseProvider{providerType: "postgres"},
		db:           db,
	}, nil
}

// HealthCheck verifies database connectivity
func (p *PostgresProvider) HealthCheck(ctx context.Context) error {
	return p.db.PingContext(ctx)
}

// Close closes the database connection
func (p *PostgresProvider) Close() error {
	return p.db.Close()
}
