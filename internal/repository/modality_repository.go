package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"

	"github.com/ifmsabrazil/agadmin/internal/model"
)

// ErrModalityNotFound is returned when a modality cannot be found.
var ErrModalityNotFound = errors.New("modality not found")

// ModalityRepo encapsulates database operations for registration
// modalities. Display order assignment and the registrations-exist
// delete guard live in the registration service; this layer only runs
// the queries it is asked to.
type ModalityRepo struct {
	db *sql.DB
}

// NewModalityRepo constructs a ModalityRepo with the provided DB handle.
func NewModalityRepo(db *sql.DB) *ModalityRepo {
	return &ModalityRepo{db: db}
}

const modalityCols = `id, assembly_id, name, description, price_cents,
	max_participants, is_active, display_order, created_at, updated_at`

func scanModality(row interface{ Scan(...any) error }) (*model.Modality, error) {
	var m model.Modality
	err := row.Scan(&m.ID, &m.AssemblyID, &m.Name, &m.Description, &m.PriceCents,
		&m.MaxParticipants, &m.IsActive, &m.DisplayOrder, &m.CreatedAt, &m.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &m, nil
}

// Create inserts a new modality with the display order already assigned
// by the caller. On success the ID and timestamps are populated.
func (r *ModalityRepo) Create(ctx context.Context, m *model.Modality) error {
	const q = `INSERT INTO registration_modalities
		(assembly_id, name, description, price_cents, max_participants, is_active, display_order)
		VALUES (?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, m.AssemblyID, m.Name, m.Description,
		m.PriceCents, m.MaxParticipants, m.IsActive, m.DisplayOrder)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	m.ID = uint64(id)
	stored, err := r.GetByID(ctx, m.ID)
	if err != nil {
		return err
	}
	*m = *stored
	return nil
}

// GetByID fetches a modality by id, returning ErrModalityNotFound when
// no row exists.
func (r *ModalityRepo) GetByID(ctx context.Context, id uint64) (*model.Modality, error) {
	m, err := scanModality(r.db.QueryRowContext(ctx,
		`SELECT `+modalityCols+` FROM registration_modalities WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrModalityNotFound
	}
	return m, err
}

// ListByAssembly returns the assembly's modalities in display order.
func (r *ModalityRepo) ListByAssembly(ctx context.Context, assemblyID uint64) ([]*model.Modality, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+modalityCols+` FROM registration_modalities
		  WHERE assembly_id = ? ORDER BY display_order`, assemblyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Modality
	for rows.Next() {
		m, err := scanModality(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

// MaxDisplayOrder returns the highest display_order currently assigned
// within an assembly, or 0 when the assembly has no modalities. Order
// values are never reused, so deletions leave gaps.
func (r *ModalityRepo) MaxDisplayOrder(ctx context.Context, assemblyID uint64) (int, error) {
	var max int
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(MAX(display_order), 0) FROM registration_modalities WHERE assembly_id = ?`,
		assemblyID).Scan(&max)
	return max, err
}

// ModalityUpdate carries the optional fields of a partial modality
// update. Nil pointers leave the stored value untouched; this is how
// explicit partial-update semantics (not null-overwrite) are expressed.
type ModalityUpdate struct {
	Name            *string
	Description     *string
	PriceCents      *int
	MaxParticipants *int
	IsActive        *bool
}

// Update applies the provided partial update. Only non-nil fields are
// written. Returns ErrModalityNotFound when the id does not resolve.
func (r *ModalityRepo) Update(ctx context.Context, id uint64, u ModalityUpdate) error {
	set := []string{}
	args := []any{}
	appendSet := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if u.Name != nil {
		appendSet("name", *u.Name)
	}
	if u.Description != nil {
		appendSet("description", *u.Description)
	}
	if u.PriceCents != nil {
		appendSet("price_cents", *u.PriceCents)
	}
	if u.MaxParticipants != nil {
		appendSet("max_participants", *u.MaxParticipants)
	}
	if u.IsActive != nil {
		appendSet("is_active", *u.IsActive)
	}
	if len(set) == 0 {
		return nil
	}
	args = append(args, id)
	res, err := r.db.ExecContext(ctx,
		"UPDATE registration_modalities SET "+strings.Join(set, ", ")+" WHERE id = ?", args...)
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

// Delete removes a modality row. The caller is responsible for the
// registrations-reference guard; this method deletes unconditionally.
func (r *ModalityRepo) Delete(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`DELETE FROM registration_modalities WHERE id = ?`, id)
	if err != nil {
		return err
	}
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrModalityNotFound
	}
	return nil
}
