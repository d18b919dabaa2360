package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	actormodels "filegov/internal/actor/models"
	"filegov/internal/notification/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
)

// PostgresStore persists notifications. dispatched_at doubles as the outbox
// marker read by the dispatch worker.
type PostgresStore struct {
	db *sql.DB
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

const entryColumns = `id, recipient_id, audience_roles, department_id, title, message, category,
	request_id, is_read, read_at, created_at, dispatched_at`

func (s *PostgresStore) CreateBatch(ctx context.Context, entries []*models.Entry) error {
	if len(entries) == 0 {
		return nil
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create notifications: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit

	for _, e := range entries {
		if e == nil {
			return fmt.Errorf("notification entry is required")
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO notifications (`+entryColumns+`)
			VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12)
		`,
			uuid.UUID(e.ID),
			uuid.UUID(e.RecipientID),
			joinRoles(e.AudienceRoles),
			nullableDepartment(e.DepartmentID),
			e.Title,
			e.Message,
			string(e.Category),
			uuid.UUID(e.RequestID),
			e.IsRead,
			nullableTime(e.ReadAt),
			e.CreatedAt,
			nullableTime(e.DispatchedAt),
		)
		if err != nil {
			if isUniqueViolation(err) {
				return sentinel.ErrAlreadyUsed
			}
			return fmt.Errorf("insert notification: %w", err)
		}
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit notifications: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindByID(ctx context.Context, notificationID id.NotificationID) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+entryColumns+` FROM notifications WHERE id = $1`, uuid.UUID(notificationID))
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find notification: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) ListByRecipient(ctx context.Context, recipientID id.ActorID, filter models.ListFilter) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM notifications
		WHERE recipient_id = $1 AND (NOT $2 OR NOT is_read)
		ORDER BY created_at DESC, seq DESC
	`, uuid.UUID(recipientID), filter.UnreadOnly)
	if err != nil {
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return collectEntries(rows)
}

// MarkRead keeps the first read_at; COALESCE makes a repeat call a no-op.
func (s *PostgresStore) MarkRead(ctx context.Context, notificationID id.NotificationID, at time.Time) (*models.Entry, error) {
	row := s.db.QueryRowContext(ctx, `
		UPDATE notifications
		SET is_read = TRUE, read_at = COALESCE(read_at, $2)
		WHERE id = $1
		RETURNING `+entryColumns,
		uuid.UUID(notificationID), at)
	e, err := scanEntry(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("mark notification read: %w", err)
	}
	return e, nil
}

func (s *PostgresStore) CountUnread(ctx context.Context, recipientID id.ActorID) (int, error) {
	var n int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM notifications WHERE recipient_id = $1 AND NOT is_read
	`, uuid.UUID(recipientID)).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return n, nil
}

// FetchUndispatched returns the oldest undelivered entries without claiming
// them. An entry stays eligible until MarkDispatched, so replicas draining
// concurrently may both publish it: delivery is at-least-once and consumers
// dedupe on the notification id.
func (s *PostgresStore) FetchUndispatched(ctx context.Context, limit int) ([]*models.Entry, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT `+entryColumns+`
		FROM notifications
		WHERE dispatched_at IS NULL
		ORDER BY seq ASC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("fetch undispatched notifications: %w", err)
	}
	return collectEntries(rows)
}

func (s *PostgresStore) MarkDispatched(ctx context.Context, notificationID id.NotificationID, at time.Time) error {
	res, err := s.db.ExecContext(ctx, `
		UPDATE notifications SET dispatched_at = COALESCE(dispatched_at, $2) WHERE id = $1
	`, uuid.UUID(notificationID), at)
	if err != nil {
		return fmt.Errorf("mark notification dispatched: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("mark notification dispatched: %w", err)
	}
	if affected == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func (s *PostgresStore) CountUndispatched(ctx context.Context) (int64, error) {
	var n int64
	err := s.db.QueryRowContext(ctx, `SELECT COUNT(*) FROM notifications WHERE dispatched_at IS NULL`).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count undispatched notifications: %w", err)
	}
	return n, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanEntry(r row) (*models.Entry, error) {
	var (
		e            models.Entry
		entryID      uuid.UUID
		recipientID  uuid.UUID
		requestID    uuid.UUID
		roles        string
		department   uuid.NullUUID
		category     string
		readAt       sql.NullTime
		dispatchedAt sql.NullTime
	)
	if err := r.Scan(&entryID, &recipientID, &roles, &department, &e.Title, &e.Message, &category,
		&requestID, &e.IsRead, &readAt, &e.CreatedAt, &dispatchedAt); err != nil {
		return nil, err
	}
	e.ID = id.NotificationID(entryID)
	e.RecipientID = id.ActorID(recipientID)
	e.RequestID = id.RequestID(requestID)
	e.AudienceRoles = splitRoles(roles)
	e.Category = models.Category(category)
	if department.Valid {
		d := id.DepartmentID(department.UUID)
		e.DepartmentID = &d
	}
	if readAt.Valid {
		t := readAt.Time
		e.ReadAt = &t
	}
	if dispatchedAt.Valid {
		t := dispatchedAt.Time
		e.DispatchedAt = &t
	}
	return &e, nil
}

func collectEntries(rows *sql.Rows) ([]*models.Entry, error) {
	defer rows.Close()
	out := make([]*models.Entry, 0)
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan notification: %w", err)
		}
		out = append(out, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate notifications: %w", err)
	}
	return out, nil
}

func joinRoles(roles []actormodels.Role) string {
	parts := make([]string, len(roles))
	for i, r := range roles {
		parts[i] = string(r)
	}
	return strings.Join(parts, ",")
}

func splitRoles(s string) []actormodels.Role {
	if s == "" {
		return nil
	}
	parts := strings.Split(s, ",")
	roles := make([]actormodels.Role, len(parts))
	for i, p := range parts {
		roles[i] = actormodels.Role(p)
	}
	return roles
}

func nullableDepartment(d *id.DepartmentID) uuid.NullUUID {
	if d == nil {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*d), Valid: true}
}

func nullableTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	return errors.As(err, &pgErr) && pgErr.Code == "23505"
}
