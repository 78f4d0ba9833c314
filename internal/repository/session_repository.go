package repository

import (
	"context"
	"database/sql"
	"errors"

	"github.com/ifmsabrazil/agadmin/internal/model"
)

// ErrSessionNotFound is returned when a session cannot be found.
var ErrSessionNotFound = errors.New("session not found")

// SessionRepo encapsulates database operations for sessions. Roster
// seeding, archival side effects and the delete ordering contract live
// in the attendance engine; this layer runs single-table statements.
type SessionRepo struct {
	db *sql.DB
}

// NewSessionRepo constructs a SessionRepo with the provided DB handle.
func NewSessionRepo(db *sql.DB) *SessionRepo {
	return &SessionRepo{db: db}
}

const sessionCols = `id, assembly_id, name, kind, status, created_by,
	created_at, archived_at, archived_by`

func scanSession(row interface{ Scan(...any) error }) (*model.Session, error) {
	var s model.Session
	err := row.Scan(&s.ID, &s.AssemblyID, &s.Name, &s.Kind, &s.Status,
		&s.CreatedBy, &s.CreatedAt, &s.ArchivedAt, &s.ArchivedBy)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

// Create inserts a new session. On success the ID and CreatedAt are
// populated from the stored row.
func (r *SessionRepo) Create(ctx context.Context, s *model.Session) error {
	const q = `INSERT INTO sessions (assembly_id, name, kind, status, created_by)
		VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, s.AssemblyID, s.Name, s.Kind, s.Status, s.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	s.ID = uint64(id)
	stored, err := r.GetByID(ctx, s.ID)
	if err != nil {
		return err
	}
	*s = *stored
	return nil
}

// GetByID fetches a session by id, returning ErrSessionNotFound when no
// row exists.
func (r *SessionRepo) GetByID(ctx context.Context, id uint64) (*model.Session, error) {
	s, err := scanSession(r.db.QueryRowContext(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrSessionNotFound
	}
	return s, err
}

// ListByAssembly returns all sessions of an assembly, newest first.
func (r *SessionRepo) ListByAssembly(ctx context.Context, assemblyID uint64) ([]*model.Session, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+sessionCols+` FROM sessions WHERE assembly_id = ? ORDER BY created_at DESC`,
		assemblyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Session
	for rows.Next() {
		s, err := scanSession(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

// SetStatus flips a session between active and archived. Archive
// metadata is written when archiving and cleared when reopening; no
// attendance rows are touched either way.
func (r *SessionRepo) SetStatus(ctx context.Context, id uint64, status model.SessionStatus, by string) error {
	var q string
	args := []any{status}
	if status == model.SessionArchived {
		q = `UPDATE sessions SET status = ?, archived_at = NOW(), archived_by = ? WHERE id = ?`
		args = append(args, by, id)
	} else {
		q = `UPDATE sessions SET status = ?, archived_at = NULL, archived_by = NULL WHERE id = ?`
		args = append(args, id)
	}
	res, err := r.db.ExecContext(ctx, q, args...)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		// MySQL reports zero affected rows for no-op updates too, so
		// distinguish "already in this state" from "missing".
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Delete removes the session row only. The attendance engine deletes
// the session's attendance rows first so a crash between the two steps
// can only orphan the session, never the attendance rows.
func (r *SessionRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM sessions WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrSessionNotFound
	}
	return nil
}
