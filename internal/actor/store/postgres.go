package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"filegov/internal/actor/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
)

// PostgresStore reads and writes the actor directory in PostgreSQL.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const actorColumns = `id, handle, display_name, role, department_id, active, created_at`

func (s *PostgresStore) CreateDepartment(ctx context.Context, dept *models.Department) error {
	if dept == nil {
		return fmt.Errorf("department is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO departments (id, name, created_at) VALUES ($1, $2, $3)
	`, uuid.UUID(dept.ID), dept.Name, dept.CreatedAt)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("department must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create department: %w", err)
	}
	return nil
}

func (s *PostgresStore) Create(ctx context.Context, actor *models.Actor) error {
	if actor == nil {
		return fmt.Errorf("actor is required")
	}
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO actors (`+actorColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`,
		uuid.UUID(actor.ID),
		models.NormalizeHandle(actor.Handle),
		actor.DisplayName,
		string(actor.Role),
		nullableDepartment(actor.DepartmentID),
		actor.Active,
		actor.CreatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("actor handle must be unique: %w", sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create actor: %w", err)
	}
	return nil
}

func (s *PostgresStore) Update(ctx context.Context, actor *models.Actor) error {
	if actor == nil {
		return fmt.Errorf("actor is required")
	}
	res, err := s.db.ExecContext(ctx, `
		UPDATE actors
		SET display_name = $2, role = $3, department_id = $4, active = $5
		WHERE id = $1
	`,
		uuid.UUID(actor.ID),
		actor.DisplayName,
		string(actor.Role),
		nullableDepartment(actor.DepartmentID),
		actor.Active,
	)
	if err != nil {
		return fmt.Errorf("update actor: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update actor rows: %w", err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, actorID id.ActorID) (*models.Actor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actorColumns+` FROM actors WHERE id = $1`, uuid.UUID(actorID))
	actor, err := scanActor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find actor by id: %w", err)
	}
	return actor, nil
}

func (s *PostgresStore) FindByHandle(ctx context.Context, handle string) (*models.Actor, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+actorColumns+` FROM actors WHERE handle = $1`, models.NormalizeHandle(handle))
	actor, err := scanActor(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find actor by handle: %w", err)
	}
	return actor, nil
}

func (s *PostgresStore) FindByRoles(ctx context.Context, roles []models.Role) ([]*models.Actor, error) {
	names := make([]string, len(roles))
	for i, r := range roles {
		names[i] = string(r)
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+actorColumns+` FROM actors
		WHERE role = ANY($1)
		ORDER BY handle
	`, names)
	if err != nil {
		return nil, fmt.Errorf("find actors by roles: %w", err)
	}
	return collectActors(rows)
}

func (s *PostgresStore) FindByRoleAndDepartment(ctx context.Context, role models.Role, departmentID id.DepartmentID) ([]*models.Actor, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+actorColumns+` FROM actors
		WHERE role = $1 AND department_id = $2
		ORDER BY handle
	`, string(role), uuid.UUID(departmentID))
	if err != nil {
		return nil, fmt.Errorf("find actors by role and department: %w", err)
	}
	return collectActors(rows)
}

func (s *PostgresStore) DepartmentName(ctx context.Context, departmentID id.DepartmentID) (string, error) {
	var name string
	err := s.db.QueryRowContext(ctx, `SELECT name FROM departments WHERE id = $1`, uuid.UUID(departmentID)).Scan(&name)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", sentinel.ErrNotFound
		}
		return "", fmt.Errorf("find department name: %w", err)
	}
	return name, nil
}

type actorRow interface {
	Scan(dest ...any) error
}

func scanActor(row actorRow) (*models.Actor, error) {
	var (
		actor   models.Actor
		actorID uuid.UUID
		role    string
		dept    uuid.NullUUID
	)
	if err := row.Scan(&actorID, &actor.Handle, &actor.DisplayName, &role, &dept, &actor.Active, &actor.CreatedAt); err != nil {
		return nil, err
	}
	actor.ID = id.ActorID(actorID)
	actor.Role = models.Role(role)
	if dept.Valid {
		d := id.DepartmentID(dept.UUID)
		actor.DepartmentID = &d
	}
	return &actor, nil
}

func collectActors(rows *sql.Rows) ([]*models.Actor, error) {
	defer rows.Close()
	out := make([]*models.Actor, 0)
	for rows.Next() {
		actor, err := scanActor(rows)
		if err != nil {
			return nil, fmt.Errorf("scan actor: %w", err)
		}
		out = append(out, actor)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate actors: %w", err)
	}
	return out, nil
}

func nullableDepartment(d *id.DepartmentID) uuid.NullUUID {
	if d == nil || d.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*d), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
