//go:build integration

package containers

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"log/slog"
	"testing"
	"time"

	"github.com/google/uuid"
	_ "github.com/jackc/pgx/v5/stdlib"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"

	actormodels "filegov/internal/actor/models"
	"filegov/internal/platform/database"
	id "filegov/pkg/domain"
)

// PostgresContainer wraps a testcontainers Postgres instance.
type PostgresContainer struct {
	Container testcontainers.Container
	DSN       string
	DB        *sql.DB
}

// NewPostgresContainer starts a new Postgres container with migrations applied.
func NewPostgresContainer(t *testing.T) *PostgresContainer {
	t.Helper()

	ctx := context.Background()

	container, err := postgres.Run(ctx,
		"postgres:18-alpine",
		postgres.WithDatabase("filegov_test"),
		postgres.WithUsername("filegov"),
		postgres.WithPassword("filegov_test_password"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(60*time.Second),
		),
	)
	if err != nil {
		t.Fatalf("failed to start postgres container: %v", err)
	}

	dsn, err := container.ConnectionString(ctx, "sslmode=disable")
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to get postgres connection string: %v", err)
	}

	db, err := sql.Open("pgx", dsn)
	if err != nil {
		_ = container.Terminate(ctx)
		t.Fatalf("failed to connect to postgres: %v", err)
	}

	pc := &PostgresContainer{
		Container: container,
		DSN:       dsn,
		DB:        db,
	}

	if err := pc.runMigrations(ctx); err != nil {
		_ = db.Close()
		_ = container.Terminate(ctx)
		t.Fatalf("failed to run migrations: %v", err)
	}

	// Note: We don't register t.Cleanup here because the container is managed
	// by the singleton Manager and shared across test suites. Ryuk (testcontainers'
	// cleanup sidecar) handles container cleanup when the test process exits.

	return pc
}

// runMigrations applies the embedded migrations the same way `filegov migrate` does.
func (p *PostgresContainer) runMigrations(_ context.Context) error {
	return database.Migrate(p.DSN, false, slog.New(slog.NewTextHandler(io.Discard, nil)))
}

// TruncateTables clears the given tables. CASCADE follows foreign keys.
func (p *PostgresContainer) TruncateTables(ctx context.Context, tables ...string) error {
	for _, table := range tables {
		if _, err := p.DB.ExecContext(ctx, "TRUNCATE TABLE "+table+" CASCADE"); err != nil {
			return fmt.Errorf("truncate %s: %w", table, err)
		}
	}
	return nil
}

// TruncateAll clears every module table between tests.
func (p *PostgresContainer) TruncateAll(ctx context.Context) error {
	return p.TruncateTables(ctx,
		"notifications",
		"governance_request_files",
		"governance_requests",
		"trash_tombstones",
		"trash_records",
		"managed_files",
		"actors",
		"departments",
	)
}

func (p *PostgresContainer) Exec(ctx context.Context, query string, args ...any) (sql.Result, error) {
	return p.DB.ExecContext(ctx, query, args...)
}

func (p *PostgresContainer) QueryRow(ctx context.Context, query string, args ...any) *sql.Row {
	return p.DB.QueryRowContext(ctx, query, args...)
}

// CreateTestDepartment inserts a department and returns its id.
func (p *PostgresContainer) CreateTestDepartment(ctx context.Context, t testing.TB, name string) id.DepartmentID {
	t.Helper()
	deptID := id.DepartmentID(uuid.New())
	_, err := p.Exec(ctx, `INSERT INTO departments (id, name) VALUES ($1, $2)`,
		uuid.UUID(deptID), name+" "+uuid.NewString()[:8])
	if err != nil {
		t.Fatalf("CreateTestDepartment: %v", err)
	}
	return deptID
}

// CreateTestActor inserts an active actor. dept may be nil for administrative roles.
func (p *PostgresContainer) CreateTestActor(ctx context.Context, t testing.TB, handle string, role actormodels.Role, dept *id.DepartmentID) id.ActorID {
	t.Helper()
	actorID := id.ActorID(uuid.New())
	var deptArg uuid.NullUUID
	if dept != nil {
		deptArg = uuid.NullUUID{UUID: uuid.UUID(*dept), Valid: true}
	}
	_, err := p.Exec(ctx, `
		INSERT INTO actors (id, handle, display_name, role, department_id, active)
		VALUES ($1, $2, $3, $4, $5, TRUE)
	`, uuid.UUID(actorID), handle, handle, string(role), deptArg)
	if err != nil {
		t.Fatalf("CreateTestActor: %v", err)
	}
	return actorID
}
