package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgconn"

	"filegov/internal/files/models"
	id "filegov/pkg/domain"
	"filegov/pkg/platform/sentinel"
)

// PostgresStore persists live files, trash records and tombstones.
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

const fileColumns = `id, name, size_bytes, mime_type, department_id, owner_id, disabled, created_at, updated_at`

func (s *PostgresStore) CreateFile(ctx context.Context, file *models.ManagedFile) error {
	if file == nil {
		return fmt.Errorf("file is required")
	}
	_, err := s.execer().ExecContext(ctx, `
		INSERT INTO managed_files (`+fileColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9)
	`,
		uuid.UUID(file.ID),
		file.Name,
		file.Size,
		file.MimeType,
		nullableDepartment(file.DepartmentID),
		uuid.UUID(file.OwnerID),
		file.Disabled,
		file.CreatedAt,
		file.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("file %s already live: %w", file.ID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create file: %w", err)
	}
	return nil
}

// FindFile locks the row when running inside a transaction.
func (s *PostgresStore) FindFile(ctx context.Context, fileID id.FileID) (*models.ManagedFile, error) {
	query := `SELECT ` + fileColumns + ` FROM managed_files WHERE id = $1`
	if s.tx != nil {
		query += ` FOR UPDATE`
	}
	file, err := scanFile(s.execer().QueryRowContext(ctx, query, uuid.UUID(fileID)))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find file: %w", err)
	}
	return file, nil
}

func (s *PostgresStore) DeleteFile(ctx context.Context, fileID id.FileID) error {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM managed_files WHERE id = $1`, uuid.UUID(fileID))
	if err != nil {
		return fmt.Errorf("delete file: %w", err)
	}
	return requireRow(res, "delete file")
}

func (s *PostgresStore) UpdateOwner(ctx context.Context, fileIDs []id.FileID, ownerID id.ActorID, now time.Time) error {
	res, err := s.execer().ExecContext(ctx, `
		UPDATE managed_files SET owner_id = $2, updated_at = $3
		WHERE id = ANY($1)
	`, id.FileIDStrings(fileIDs), uuid.UUID(ownerID), now)
	if err != nil {
		return fmt.Errorf("update file owner: %w", err)
	}
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update file owner rows: %w", err)
	}
	if rows != int64(len(fileIDs)) {
		// The caller's transaction rolls back the partial update.
		return fmt.Errorf("update file owner: %d of %d files live: %w", rows, len(fileIDs), sentinel.ErrNotFound)
	}
	return nil
}

func (s *PostgresStore) ListFiles(ctx context.Context, filter models.FileFilter) ([]*models.ManagedFile, error) {
	rows, err := s.execer().QueryContext(ctx, `
		SELECT `+fileColumns+` FROM managed_files
		WHERE ($1::uuid IS NULL AND $2::uuid IS NULL)
		   OR department_id = $1
		   OR owner_id = $2
		ORDER BY created_at DESC, name
	`, nullableDepartment(filter.DepartmentID), nullableActor(filter.OwnerID))
	if err != nil {
		return nil, fmt.Errorf("list files: %w", err)
	}
	defer rows.Close()
	out := make([]*models.ManagedFile, 0)
	for rows.Next() {
		file, err := scanFile(rows)
		if err != nil {
			return nil, fmt.Errorf("scan file: %w", err)
		}
		out = append(out, file)
	}
	return out, rows.Err()
}

const trashColumns = `id, original_file_id, name, size_bytes, mime_type, file_department_id, owner_id, disabled,
	file_created_at, file_updated_at, deleted_by, approved_by, department_id, department_name, deleted_at`

func (s *PostgresStore) CreateTrashRecord(ctx context.Context, rec *models.TrashRecord) error {
	if rec == nil {
		return fmt.Errorf("trash record is required")
	}
	_, err := s.execer().ExecContext(ctx, `
		INSERT INTO trash_records (`+trashColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15)
	`,
		uuid.UUID(rec.ID),
		uuid.UUID(rec.OriginalFileID),
		rec.Name,
		rec.Size,
		rec.MimeType,
		nullableDepartment(rec.FileDepartment),
		uuid.UUID(rec.OwnerID),
		rec.Disabled,
		rec.FileCreatedAt,
		rec.FileUpdatedAt,
		rec.DeletedBy,
		rec.ApprovedBy,
		nullableDepartment(rec.DepartmentID),
		rec.DepartmentName,
		rec.DeletedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("file %s already trashed: %w", rec.OriginalFileID, sentinel.ErrAlreadyUsed)
		}
		return fmt.Errorf("create trash record: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindTrashRecord(ctx context.Context, trashID id.TrashID) (*models.TrashRecord, error) {
	query := `SELECT ` + trashColumns + ` FROM trash_records WHERE id = $1`
	if s.tx != nil {
		query += ` FOR UPDATE`
	}
	return s.findTrash(ctx, query, uuid.UUID(trashID))
}

func (s *PostgresStore) FindTrashByOriginalFileID(ctx context.Context, fileID id.FileID) (*models.TrashRecord, error) {
	return s.findTrash(ctx, `SELECT `+trashColumns+` FROM trash_records WHERE original_file_id = $1`, uuid.UUID(fileID))
}

func (s *PostgresStore) findTrash(ctx context.Context, query string, arg any) (*models.TrashRecord, error) {
	rec, err := scanTrash(s.execer().QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find trash record: %w", err)
	}
	return rec, nil
}

func (s *PostgresStore) DeleteTrashRecord(ctx context.Context, trashID id.TrashID) error {
	res, err := s.execer().ExecContext(ctx, `DELETE FROM trash_records WHERE id = $1`, uuid.UUID(trashID))
	if err != nil {
		return fmt.Errorf("delete trash record: %w", err)
	}
	return requireRow(res, "delete trash record")
}

func (s *PostgresStore) ListTrash(ctx context.Context, filter models.TrashFilter) ([]*models.TrashRecord, error) {
	rows, err := s.execer().QueryContext(ctx, `
		SELECT `+trashColumns+` FROM trash_records
		WHERE ($1::uuid IS NULL OR department_id = $1)
		ORDER BY deleted_at DESC, name
	`, nullableDepartment(filter.DepartmentID))
	if err != nil {
		return nil, fmt.Errorf("list trash: %w", err)
	}
	defer rows.Close()
	out := make([]*models.TrashRecord, 0)
	for rows.Next() {
		rec, err := scanTrash(rows)
		if err != nil {
			return nil, fmt.Errorf("scan trash record: %w", err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

func (s *PostgresStore) SaveTombstone(ctx context.Context, tomb *models.TrashTombstone) error {
	if tomb == nil {
		return fmt.Errorf("tombstone is required")
	}
	_, err := s.execer().ExecContext(ctx, `
		INSERT INTO trash_tombstones (trash_id, original_file_id, disposition, at)
		VALUES ($1, $2, $3, $4)
		ON CONFLICT (trash_id) DO UPDATE SET disposition = EXCLUDED.disposition, at = EXCLUDED.at
	`, uuid.UUID(tomb.TrashID), uuid.UUID(tomb.OriginalFileID), string(tomb.Disposition), tomb.At)
	if err != nil {
		return fmt.Errorf("save tombstone: %w", err)
	}
	return nil
}

func (s *PostgresStore) FindTombstone(ctx context.Context, trashID id.TrashID) (*models.TrashTombstone, error) {
	var (
		tomb        models.TrashTombstone
		trash, file uuid.UUID
		disposition string
	)
	err := s.execer().QueryRowContext(ctx, `
		SELECT trash_id, original_file_id, disposition, at FROM trash_tombstones WHERE trash_id = $1
	`, uuid.UUID(trashID)).Scan(&trash, &file, &disposition, &tomb.At)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, sentinel.ErrNotFound
		}
		return nil, fmt.Errorf("find tombstone: %w", err)
	}
	tomb.TrashID = id.TrashID(trash)
	tomb.OriginalFileID = id.FileID(file)
	tomb.Disposition = models.Disposition(disposition)
	return &tomb, nil
}

type row interface {
	Scan(dest ...any) error
}

func scanFile(r row) (*models.ManagedFile, error) {
	var (
		f           models.ManagedFile
		fileID, own uuid.UUID
		dept        uuid.NullUUID
		mime        sql.NullString
	)
	if err := r.Scan(&fileID, &f.Name, &f.Size, &mime, &dept, &own, &f.Disabled, &f.CreatedAt, &f.UpdatedAt); err != nil {
		return nil, err
	}
	f.ID = id.FileID(fileID)
	f.OwnerID = id.ActorID(own)
	f.MimeType = mime.String
	f.DepartmentID = departmentPtr(dept)
	return &f, nil
}

func scanTrash(r row) (*models.TrashRecord, error) {
	var (
		rec                  models.TrashRecord
		trashID, orig, owner uuid.UUID
		fileDept, dept       uuid.NullUUID
		mime, deptName       sql.NullString
	)
	if err := r.Scan(&trashID, &orig, &rec.Name, &rec.Size, &mime, &fileDept, &owner, &rec.Disabled,
		&rec.FileCreatedAt, &rec.FileUpdatedAt, &rec.DeletedBy, &rec.ApprovedBy, &dept, &deptName, &rec.DeletedAt); err != nil {
		return nil, err
	}
	rec.ID = id.TrashID(trashID)
	rec.OriginalFileID = id.FileID(orig)
	rec.OwnerID = id.ActorID(owner)
	rec.MimeType = mime.String
	rec.DepartmentName = deptName.String
	rec.FileDepartment = departmentPtr(fileDept)
	rec.DepartmentID = departmentPtr(dept)
	return &rec, nil
}

func requireRow(res sql.Result, action string) error {
	rows, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", action, err)
	}
	if rows == 0 {
		return sentinel.ErrNotFound
	}
	return nil
}

func departmentPtr(n uuid.NullUUID) *id.DepartmentID {
	if !n.Valid {
		return nil
	}
	d := id.DepartmentID(n.UUID)
	return &d
}

func nullableDepartment(d *id.DepartmentID) uuid.NullUUID {
	if d == nil || d.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*d), Valid: true}
}

func nullableActor(a *id.ActorID) uuid.NullUUID {
	if a == nil || a.IsNil() {
		return uuid.NullUUID{}
	}
	return uuid.NullUUID{UUID: uuid.UUID(*a), Valid: true}
}

func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return false
}
