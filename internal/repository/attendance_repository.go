package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ifmsabrazil/agadmin/internal/model"
)

// ErrAttendanceNotFound is returned when an attendance record cannot be
// found.
var ErrAttendanceNotFound = errors.New("attendance record not found")

// AttendanceRepo encapsulates database operations for session
// attendance rows. The table carries a unique key on
// (session_id, participant_id, participant_type) so that the engine's
// find-or-create upsert cannot produce duplicate rows under concurrent
// marks.
type AttendanceRepo struct {
	db *sql.DB
}

// NewAttendanceRepo constructs an AttendanceRepo with the provided DB
// handle.
func NewAttendanceRepo(db *sql.DB) *AttendanceRepo {
	return &AttendanceRepo{db: db}
}

const attendanceCols = `id, session_id, assembly_id, participant_id,
	participant_type, name, role, comite_local, participant_status, status,
	marked_at, marked_by, last_updated, last_updated_by`

func scanAttendance(row interface{ Scan(...any) error }) (*model.AttendanceRecord, error) {
	var a model.AttendanceRecord
	err := row.Scan(&a.ID, &a.SessionID, &a.AssemblyID, &a.ParticipantID,
		&a.ParticipantType, &a.Name, &a.Role, &a.ComiteLocal,
		&a.ParticipantStatus, &a.Status, &a.MarkedAt, &a.MarkedBy,
		&a.LastUpdated, &a.LastUpdatedBy)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a single attendance record and populates its ID.
func (r *AttendanceRepo) Create(ctx context.Context, a *model.AttendanceRecord) error {
	const q = `INSERT INTO session_attendance
		(session_id, assembly_id, participant_id, participant_type, name, role,
		 comite_local, participant_status, status, marked_at, marked_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, a.SessionID, a.AssemblyID,
		a.ParticipantID, a.ParticipantType, a.Name, a.Role, a.ComiteLocal,
		a.ParticipantStatus, a.Status, a.MarkedAt, a.MarkedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	return nil
}

// CreateBulk inserts many attendance records in one statement, used by
// roster seeding. Record IDs are not populated.
func (r *AttendanceRepo) CreateBulk(ctx context.Context, records []*model.AttendanceRecord) error {
	if len(records) == 0 {
		return nil
	}
	q := `INSERT INTO session_attendance
		(session_id, assembly_id, participant_id, participant_type, name, role,
		 comite_local, participant_status, status, marked_at, marked_by) VALUES `
	args := make([]any, 0, len(records)*11)
	for i, a := range records {
		if i > 0 {
			q += ","
		}
		q += "(?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)"
		args = append(args, a.SessionID, a.AssemblyID, a.ParticipantID,
			a.ParticipantType, a.Name, a.Role, a.ComiteLocal,
			a.ParticipantStatus, a.Status, a.MarkedAt, a.MarkedBy)
	}
	_, err := r.db.ExecContext(ctx, q, args...)
	return err
}

// FindBySessionParticipantType looks up the record for one participant
// identity in a session, keyed by the full triple. Returns
// ErrAttendanceNotFound when absent.
func (r *AttendanceRepo) FindBySessionParticipantType(ctx context.Context, sessionID uint64, participantID, participantType string) (*model.AttendanceRecord, error) {
	a, err := scanAttendance(r.db.QueryRowContext(ctx,
		`SELECT `+attendanceCols+` FROM session_attendance
		  WHERE session_id = ? AND participant_id = ? AND participant_type = ?`,
		sessionID, participantID, participantType))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttendanceNotFound
	}
	return a, err
}

// FindBySessionParticipant looks up a record keyed by participant id
// alone, the looser match used by self check-in where a person has
// exactly one participant type.
func (r *AttendanceRepo) FindBySessionParticipant(ctx context.Context, sessionID uint64, participantID string) (*model.AttendanceRecord, error) {
	a, err := scanAttendance(r.db.QueryRowContext(ctx,
		`SELECT `+attendanceCols+` FROM session_attendance
		  WHERE session_id = ? AND participant_id = ? LIMIT 1`,
		sessionID, participantID))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAttendanceNotFound
	}
	return a, err
}

// UpdateStatus patches the attendance state and last-update audit
// fields of an existing record; the original marked_at/marked_by are
// left untouched.
func (r *AttendanceRepo) UpdateStatus(ctx context.Context, id uint64, status model.AttendanceStatus, updatedBy string, at time.Time) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE session_attendance
		    SET status = ?, last_updated = ?, last_updated_by = ?
		  WHERE id = ?`, status, at, updatedBy, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAttendanceNotFound
	}
	return nil
}

// ListBySession returns every attendance row of a session.
func (r *AttendanceRepo) ListBySession(ctx context.Context, sessionID uint64) ([]*model.AttendanceRecord, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+attendanceCols+` FROM session_attendance
		  WHERE session_id = ? ORDER BY name`, sessionID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAttendance(rows)
}

// ListByAssemblyAndParticipant returns a participant's attendance rows
// across all sessions of an assembly, optionally filtered by
// participant type (empty string matches any type).
func (r *AttendanceRepo) ListByAssemblyAndParticipant(ctx context.Context, assemblyID uint64, participantID, participantType string) ([]*model.AttendanceRecord, error) {
	q := `SELECT ` + attendanceCols + ` FROM session_attendance
	       WHERE assembly_id = ? AND participant_id = ?`
	args := []any{assemblyID, participantID}
	if participantType != "" {
		q += ` AND participant_type = ?`
		args = append(args, participantType)
	}
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectAttendance(rows)
}

// DeleteBySession removes all attendance rows of a session. Called by
// the engine before the session row itself is deleted.
func (r *AttendanceRepo) DeleteBySession(ctx context.Context, sessionID uint64) error {
	_, err := r.db.ExecContext(ctx,
		`DELETE FROM session_attendance WHERE session_id = ?`, sessionID)
	return err
}

func collectAttendance(rows *sql.Rows) ([]*model.AttendanceRecord, error) {
	var out []*model.AttendanceRecord
	for rows.Next() {
		a, err := scanAttendance(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}
