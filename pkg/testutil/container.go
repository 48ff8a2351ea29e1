// Package testutil provides testing utilities for the registry service:
// testcontainers for PostgreSQL, sqlmock helpers, actor fixtures and the
// test schema.
package testutil

import (
	"context"
	"fmt"
	"time"

	"github.com/jmoiron/sqlx"
	_ "github.com/lib/pq"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
)

// PostgresContainer wraps a testcontainers PostgreSQL instance
type PostgresContainer struct {
	*postgres.PostgresContainer
	DSN string
}

// PostgresContainerConfig configures the test PostgreSQL container
type PostgresContainerConfig struct {
	Database string
	Username string
	Password string
	Image    string // Optional: defaults to postgres:15-alpine
}

// DefaultPostgresConfig returns sensible defaults for test containers
func DefaultPostgresConfig() PostgresContainerConfig {
	return PostgresContainerConfig{
		Database: "certportal_test",
		Username: "test",
		Password: "test",
		Image:    "postgres:15-alpine",
	}
}

// NewPostgresContainer creates a new PostgreSQL test container.
//
// Usage:
//
//	func TestMain(m *testing.M) {
//	    ctx := context.Background()
//	    container, err := testutil.NewPostgresContainer(ctx, testutil.DefaultPostgresConfig())
//	    if err != nil {
//	        log.Fatal(err)
//	    }
//	    defer container.Terminate(ctx)
//
//	    code := m.Run()
//	    os.Exit(code)
//	}
func NewPostgresContainer(ctx context.Context, cfg PostgresContainerConfig) (*PostgresContainer, error) {
	if cfg.Image == "" {
		cfg.Image = "postgres:15-alpine"
	}
	if cfg.Database == "" {
		cfg.Database = "certportal_test"
	}
	if cfg.Username == "" {
		cfg.Username = "test"
	}
	if cfg.Password == "" {
		cfg.Password = "test"
	}

	container, err := postgres.RunContainer(ctx,
		testcontainers.WithImage(cfg.Image),
		postgres.WithDatabase(cfg.Database),
		postgres.WithUsername(cfg.Username),
		postgres.WithPassword(cfg.Password),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to start postgres container: %w", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		container.Terminate(ctx)
		return nil, fmt.Errorf("failed to get connection string: %w", err)
	}

	return &PostgresContainer{
		PostgresContainer: container,
		DSN:               dsn,
	}, nil
}

// Connect returns a sqlx.DB connection to the container
func (c *PostgresContainer) Connect(ctx context.Context) (*sqlx.DB, error) {
	db, err := sqlx.ConnectContext(ctx, "postgres", c.DSN)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to test database: %w", err)
	}
	return db, nil
}

// Terminate stops and removes the container
func (c *PostgresContainer) Terminate(ctx context.Context) error {
	return c.PostgresContainer.Terminate(ctx)
}

// CreateRegistrySchema creates the registry tables used by the repositories.
func (c *PostgresContainer) CreateRegistrySchema(ctx context.Context, db *sqlx.DB) error {
	schema := `
		CREATE TABLE IF NOT EXISTS applications (
			id UUID PRIMARY KEY,
			applicant_id UUID NOT NULL,
			profile JSONB NOT NULL DEFAULT '{}',
			status VARCHAR(50) NOT NULL DEFAULT 'draft',
			score DOUBLE PRECISION NOT NULL DEFAULT 0,
			determined_level VARCHAR(100) NOT NULL DEFAULT '',
			submitted_at TIMESTAMPTZ,
			reviewer_id UUID,
			claimed_at TIMESTAMPTZ,
			decided_at TIMESTAMPTZ,
			rejection_reason TEXT,
			activated_at TIMESTAMPTZ,
			expires_at TIMESTAMPTZ,
			version INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT status_valid CHECK (status IN (
				'draft','submitted','under_review','approved','rejected','active',
				'expiring_soon','expired','renewal_pending','suspended','revoked'))
		);
		CREATE INDEX IF NOT EXISTS idx_applications_status ON applications(status);
		CREATE INDEX IF NOT EXISTS idx_applications_applicant ON applications(applicant_id);
		CREATE INDEX IF NOT EXISTS idx_applications_expires ON applications(expires_at);

		CREATE TABLE IF NOT EXISTS audit_entries (
			id UUID PRIMARY KEY,
			application_id UUID NOT NULL REFERENCES applications(id),
			editor_id UUID NOT NULL,
			editor_role VARCHAR(50) NOT NULL,
			action VARCHAR(100) NOT NULL,
			reason TEXT NOT NULL DEFAULT '',
			diff JSONB NOT NULL DEFAULT '{}',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_audit_entries_application ON audit_entries(application_id);

		CREATE TABLE IF NOT EXISTS criteria (
			id UUID PRIMARY KEY,
			name VARCHAR(255) NOT NULL,
			category VARCHAR(50) NOT NULL,
			weight DOUBLE PRECISION NOT NULL,
			description TEXT NOT NULL DEFAULT '',
			active BOOLEAN NOT NULL DEFAULT TRUE,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT criteria_name UNIQUE (name),
			CONSTRAINT weight_range CHECK (weight >= 0 AND weight <= 100)
		);

		CREATE TABLE IF NOT EXISTS level_bands (
			id UUID PRIMARY KEY,
			name VARCHAR(100) NOT NULL,
			min_years INT NOT NULL,
			max_years INT,
			description TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			CONSTRAINT years_non_negative CHECK (min_years >= 0)
		);

		CREATE TABLE IF NOT EXISTS documents (
			id UUID PRIMARY KEY,
			application_id UUID NOT NULL REFERENCES applications(id),
			doc_type VARCHAR(50) NOT NULL,
			name VARCHAR(255) NOT NULL,
			version INT NOT NULL DEFAULT 1,
			supersedes_id UUID,
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			required BOOLEAN NOT NULL DEFAULT FALSE,
			upload_date TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			verifier_id UUID,
			verified_at TIMESTAMPTZ,
			rejection_reason TEXT,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_documents_application ON documents(application_id);

		CREATE TABLE IF NOT EXISTS invoices (
			id UUID PRIMARY KEY,
			application_id UUID NOT NULL REFERENCES applications(id),
			kind VARCHAR(50) NOT NULL,
			items JSONB NOT NULL DEFAULT '[]',
			amount DOUBLE PRECISION NOT NULL,
			tax DOUBLE PRECISION NOT NULL,
			total DOUBLE PRECISION NOT NULL,
			currency VARCHAR(10) NOT NULL,
			status VARCHAR(50) NOT NULL DEFAULT 'pending',
			issue_date TIMESTAMPTZ NOT NULL,
			due_date TIMESTAMPTZ NOT NULL,
			paid_date TIMESTAMPTZ,
			payment_method VARCHAR(100),
			version INT NOT NULL DEFAULT 1,
			created_at TIMESTAMPTZ NOT NULL DEFAULT NOW(),
			updated_at TIMESTAMPTZ NOT NULL DEFAULT NOW()
		);
		CREATE INDEX IF NOT EXISTS idx_invoices_application ON invoices(application_id);
		CREATE INDEX IF NOT EXISTS idx_invoices_status ON invoices(status);
	`

	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create registry schema: %w", err)
	}
	return nil
}
