package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	actormodels "filegov/internal/actor/models"
	"filegov/internal/governance/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
)

// PostgresStore persists requests in governance_requests with their files,
// in order, in governance_request_files.
type PostgresStore struct {
	db *sql.DB
	tx *sql.Tx
}

func NewPostgres(db *sql.DB) *PostgresStore {
	return &PostgresStore{db: db}
}

// NewPostgresTx binds the store to a transaction owned by the caller.
func NewPostgresTx(tx *sql.Tx) *PostgresStore {
	return &PostgresStore{tx: tx}
}

type dbExecutor interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func (s *PostgresStore) execer() dbExecutor {
	if s.tx != nil {
		return s.tx
	}
	return s.db
}

const requestColumns = `id, kind, sender_id, sender_handle, sender_role, sender_department_id,
	recipient_id, recipient_handle, recipient_display_name, reason, status,
	denial_comment, resolved_by, created_at, resolved_at`

// Create writes the request and its file list. Outside a transaction the two
// inserts run in one of their own.
func (s *PostgresStore) Create(ctx context.Context, req *models.Request) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	if s.tx != nil {
		return s.create(ctx, s.tx, req)
	}
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin create request: %w", err)
	}
	defer tx.Rollback() //nolint:errcheck // no-op after commit
	if err := s.create(ctx, tx, req); err != nil {
		return err
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit create request: %w", err)
	}
	return nil
}

func (s *PostgresStore) create(ctx context.Context, exec dbExecutor, req *models.Request) error {
	var recipientID uuid.NullUUID
	var recipientHandle, recipientName sql.NullString
	if req.Recipient != nil {
		recipientID = uuid.NullUUID{UUID: uuid.UUID(req.Recipient.ActorID), Valid: true}
		recipientHandle = sql.NullString{String: req.Recipient.Handle, Valid: true}
		recipientName = sql.NullString{String: req.Recipient.DisplayName, Valid: true}
	}
	_, err := exec.ExecContext(ctx, `
		INSERT INTO governance_requests (`+requestColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		uuid.UUID(req.ID),
		string(req.Kind),
		uuid.UUID(req.SenderID),
		req.SenderHandle,
		string(req.SenderRole),
		nullableDepartment(req.SenderDepartmentID),
		recipientID,
		recipientHandle,
		recipientName,
		req.Reason,
		string(req.Status),
		nullString(req.DenialComment),
		nullString(req.ResolvedBy),
		req.CreatedAt,
		nullableTime(req.ResolvedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return sentinel.ErrAlreadyUsed
		}
		return fmt.Errorf("create request: %w", err)
	}
	for i, fileID := range req.FileIDs {
		if _, err := exec.ExecContext(ctx, `
			INSERT INTO governance_request_files (request_id, position, file_id)
			VALUES ($1, $2, $3)
		`, uuid.UUID(req.ID), i, uuid.UUID(fileID)); err != nil {
			return fmt.Errorf("create request file: %w", err)
		}
	}
	return nil
}

// FindByID locks the request row when running inside a transaction, so a
// concurrent resolver waits and then sees the terminal status.
func (s *PostgresStore) FindByID(ctx context.Context, requestID id.RequestID) (*models.Request, error) {
	query := `SELECT ` + requestColumns + ` FROM governance_requests WHERE id = $1`
	if s.tx != nil {
		query += ` FOR UPDATE`
	}
	req, err := scanRequest(s.execer().QueryRowContext(ctx, query, uuid.UUID(requestID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find request: %w", err)
	}
	if err := s.attachFiles(ctx, []*models.Request{req}); err != nil {
		return nil, err
	}
	return req, nil
}

// Transition writes the terminal state only while the row is still PENDING.
func (s *PostgresStore) Transition(ctx context.Context, req *models.Request) error {
	if req == nil {
		return fmt.Errorf("request is required")
	}
	res, err := s.execer().ExecContext(ctx, `
		UPDATE governance_requests
		SET status = $2, denial_comment = $3, resolved_by = $4, resolved_at = $5
		WHERE id = $1 AND status = 'PENDING'
	`,
		uuid.UUID(req.ID),
		string(req.Status),
		nullString(req.DenialComment),
		nullString(req.ResolvedBy),
		nullableTime(req.ResolvedAt),
	)
	if err != nil {
		return fmt.Errorf("transition request: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("transition request rows: %w", err)
	}
	if rows == 1 {
		return nil
	}
	var exists bool
	if err := s.execer().QueryRowContext(ctx,
		`SELECT EXISTS(SELECT 1 FROM governance_requests WHERE id = $1)`, uuid.UUID(req.ID),
	).Scan(&exists); err != nil {
		return fmt.Errorf("check request: %w", err)
	}
	if !exists {
		return sentinel.ErrNotFound
	}
	return fmt.Errorf("request %s is no longer pending: %w", req.ID, sentinel.ErrConflict)
}

func (s *PostgresStore) ListBySender(ctx context.Context, senderHandle string) ([]*models.Request, error) {
	return s.list(ctx, `WHERE sender_handle = $1`, senderHandle)
}

func (s *PostgresStore) ListByStatus(ctx context.Context, statuses ...models.Status) ([]*models.Request, error) {
	values := make([]string, len(statuses))
	for i, st := range statuses {
		values[i] = string(st)
	}
	return s.list(ctx, `WHERE status = ANY($1)`, values)
}

func (s *PostgresStore) list(ctx context.Context, where string, arg any) ([]*models.Request, error) {
	rows, err := s.execer().QueryContext(ctx, `
		SELECT `+requestColumns+` FROM governance_requests `+where+`
		ORDER BY created_at DESC, id
	`, arg)
	if err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()
	out := make([]*models.Request, 0)
	for rows.Next() {
		req, err := scanRequest(rows)
		if err != nil {
			return nil, fmt.Errorf("scan request: %w", err)
		}
		out = append(out, req)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list requests: %w", err)
	}
	if err := s.attachFiles(ctx, out); err != nil {
		return nil, err
	}
	return out, nil
}

func (s *PostgresStore) attachFiles(ctx context.Context, reqs []*models.Request) error {
	if len(reqs) == 0 {
		return nil
	}
	byID := make(map[uuid.UUID]*models.Request, len(reqs))
	ids := make([]string, 0, len(reqs))
	for _, r := range reqs {
		byID[uuid.UUID(r.ID)] = r
		ids = append(ids, r.ID.String())
	}
	rows, err := s.execer().QueryContext(ctx, `
		SELECT request_id, file_id FROM governance_request_files
		WHERE request_id = ANY($1)
		ORDER BY request_id, position
	`, ids)
	if err != nil {
		return fmt.Errorf("load request files: %w", err)
	}
	defer rows.Close()
	for rows.Next() {
		var requestID, fileID uuid.UUID
		if err := rows.Scan(&requestID, &fileID); err != nil {
			return fmt.Errorf("scan request file: %w", err)
		}
		if r, ok := byID[requestID]; ok {
			r.FileIDs = append(r.FileIDs, id.FileID(fileID))
		}
	}
	return rows.Err()
}

type scanner interface {
	Scan(dest ...any) error
}

func scanRequest(row scanner) (*models.Request, error) {
	var (
		reqID, senderID              uuid.UUID
		kind, senderRole, status     string
		senderHandle, reason         string
		senderDept, recipientID      uuid.NullUUID
		recipientHandle, recipientNm sql.NullString
		denialComment, resolvedBy    sql.NullString
		createdAt                    time.Time
		resolvedAt                   sql.NullTime
	)
	if err := row.Scan(
		&reqID, &kind, &senderID, &senderHandle, &senderRole, &senderDept,
		&recipientID, &recipientHandle, &recipientNm, &reason, &status,
		&denialComment, &resolvedBy, &createdAt, &resolvedAt,
	); err != nil {
		return nil, err
	}
	req := &models.Request{
		ID:            id.RequestID(reqID),
		Kind:          models.Kind(kind),
		SenderID:      id.ActorID(senderID),
		SenderHandle:  senderHandle,
		SenderRole:    actormodels.Role(senderRole),
		Reason:        reason,
		Status:        models.Status(status),
		DenialComment: denialComment.String,
		ResolvedBy:    resolvedBy.String,
		CreatedAt:     createdAt,
		FileIDs:       make([]id.FileID, 0),
	}
	if senderDept.Valid {
		d := id.DepartmentID(senderDept.UUID)
		req.SenderDepartmentID = &d
	}
	if recipientID.Valid {
		req.Recipient = &models.Recipient{
			ActorID:     id.ActorID(recipientID.UUID),
			Handle:      recipientHandle.String,
			DisplayName: recipientNm.String,
		}
	}
	if resolvedAt.Valid {
		t := resolvedAt.Time
		req.ResolvedAt = &t
	}
	return req, nil
}

func nullableDepartment(d *id.DepartmentID) uuid.NullUUID {
	if d == nil || d.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*d), Valid: true}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
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
