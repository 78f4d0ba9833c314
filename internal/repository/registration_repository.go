package repository

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/ifmsabrazil/agadmin/internal/model"
)

// ErrRegistrationNotFound is returned when a registration cannot be found.
var ErrRegistrationNotFound = errors.New("registration not found")

// RegistrationRepo encapsulates database operations for registrations.
// Status transition legality is intentionally not enforced here (or
// anywhere): admin correction workflows rely on being able to move a
// registration between arbitrary states.
type RegistrationRepo struct {
	db *sql.DB
}

// NewRegistrationRepo constructs a RegistrationRepo with the provided
// DB handle.
func NewRegistrationRepo(db *sql.DB) *RegistrationRepo {
	return &RegistrationRepo{db: db}
}

const registrationCols = `id, assembly_id, modality_id, participant_type,
	participant_id, name, role, comite_local, status, email, phone, city, uf,
	emergency_contact, dietary_notes, payment_ref, registered_by, registered_at,
	reviewed_by, reviewed_at, review_note, resubmitted_at, resubmission_note`

func scanRegistration(row interface{ Scan(...any) error }) (*model.Registration, error) {
	var g model.Registration
	err := row.Scan(&g.ID, &g.AssemblyID, &g.ModalityID, &g.ParticipantType,
		&g.ParticipantID, &g.Name, &g.Role, &g.ComiteLocal, &g.Status,
		&g.Email, &g.Phone, &g.City, &g.UF, &g.EmergencyContact,
		&g.DietaryNotes, &g.PaymentRef, &g.RegisteredBy, &g.RegisteredAt,
		&g.ReviewedBy, &g.ReviewedAt, &g.ReviewNote,
		&g.ResubmittedAt, &g.ResubmissionNote)
	if err != nil {
		return nil, err
	}
	return &g, nil
}

// Create inserts a new registration. On success the ID and timestamps
// are populated from the stored row.
func (r *RegistrationRepo) Create(ctx context.Context, g *model.Registration) error {
	const q = `INSERT INTO registrations
		(assembly_id, modality_id, participant_type, participant_id, name, role,
		 comite_local, status, email, phone, city, uf, emergency_contact,
		 dietary_notes, payment_ref, registered_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, g.AssemblyID, g.ModalityID,
		g.ParticipantType, g.ParticipantID, g.Name, g.Role, g.ComiteLocal,
		g.Status, g.Email, g.Phone, g.City, g.UF, g.EmergencyContact,
		g.DietaryNotes, g.PaymentRef, g.RegisteredBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	g.ID = uint64(id)
	stored, err := r.GetByID(ctx, g.ID)
	if err != nil {
		return err
	}
	*g = *stored
	return nil
}

// GetByID fetches a registration by id, returning
// ErrRegistrationNotFound when no row exists.
func (r *RegistrationRepo) GetByID(ctx context.Context, id uint64) (*model.Registration, error) {
	g, err := scanRegistration(r.db.QueryRowContext(ctx,
		`SELECT `+registrationCols+` FROM registrations WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrRegistrationNotFound
	}
	return g, err
}

// ListByAssembly returns an assembly's registrations, optionally
// filtered by status. Pass an empty status to list all.
func (r *RegistrationRepo) ListByAssembly(ctx context.Context, assemblyID uint64, status model.RegistrationStatus) ([]*model.Registration, error) {
	q := `SELECT ` + registrationCols + ` FROM registrations WHERE assembly_id = ?`
	args := []any{assemblyID}
	if status != "" {
		q += ` AND status = ?`
		args = append(args, status)
	}
	q += ` ORDER BY registered_at`
	rows, err := r.db.QueryContext(ctx, q, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Registration
	for rows.Next() {
		g, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// ListByParticipant returns all registrations a participant holds in an
// assembly, any status.
func (r *RegistrationRepo) ListByParticipant(ctx context.Context, assemblyID uint64, participantID string) ([]*model.Registration, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+registrationCols+` FROM registrations
		  WHERE assembly_id = ? AND participant_id = ? ORDER BY registered_at`,
		assemblyID, participantID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Registration
	for rows.Next() {
		g, err := scanRegistration(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, g)
	}
	return out, rows.Err()
}

// CountActiveByModality counts registrations that still occupy a spot in
// the modality, i.e. every status except rejected and cancelled.
func (r *RegistrationRepo) CountActiveByModality(ctx context.Context, modalityID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations
		  WHERE modality_id = ? AND status NOT IN (?, ?)`,
		modalityID, model.RegistrationRejected, model.RegistrationCancelled).Scan(&n)
	return n, err
}

// CountByModality counts all registrations referencing a modality,
// regardless of status. Used by the modality delete guard.
func (r *RegistrationRepo) CountByModality(ctx context.Context, modalityID uint64) (int, error) {
	var n int
	err := r.db.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM registrations WHERE modality_id = ?`, modalityID).Scan(&n)
	return n, err
}

// SetStatus writes a review decision: the new status, the reviewer and
// an optional note. Returns ErrRegistrationNotFound when the id does
// not resolve.
func (r *RegistrationRepo) SetStatus(ctx context.Context, id uint64, status model.RegistrationStatus, reviewedBy string, note *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrations
		    SET status = ?, reviewed_by = ?, reviewed_at = NOW(), review_note = ?
		  WHERE id = ?`,
		status, reviewedBy, note, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}

// Resubmit re-enters a registration into the pending state after a
// rejection and stamps the resubmission timestamp and note.
func (r *RegistrationRepo) Resubmit(ctx context.Context, id uint64, at time.Time, note *string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE registrations
		    SET status = ?, resubmitted_at = ?, resubmission_note = ?
		  WHERE id = ?`,
		model.RegistrationPending, at, note, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		if _, err := r.GetByID(ctx, id); err != nil {
			return err
		}
	}
	return nil
}
