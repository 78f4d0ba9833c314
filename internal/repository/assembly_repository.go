package repository

import (
	"context"
	"database/sql"
	"errors"
	"strings"
	"time"

	"github.com/ifmsabrazil/agadmin/internal/model"
)

// ErrAssemblyNotFound is returned when an assembly cannot be found.
var ErrAssemblyNotFound = errors.New("assembly not found")

// AssemblyRepo encapsulates all database queries related to assemblies.
// Assemblies are archived rather than deleted by the normal flow; the
// only hard delete is DeleteCascade, reserved for archived assemblies
// and confirmed explicitly by the admin.
type AssemblyRepo struct {
	db *sql.DB
}

// NewAssemblyRepo constructs an AssemblyRepo with the provided DB handle.
func NewAssemblyRepo(db *sql.DB) *AssemblyRepo {
	return &AssemblyRepo{db: db}
}

const assemblyCols = `id, name, kind, location, starts_at, ends_at, status,
	registration_open, registration_deadline, max_capacity, payment_required,
	created_by, created_at, updated_at, archived_at, archived_by`

func scanAssembly(row interface{ Scan(...any) error }) (*model.Assembly, error) {
	var a model.Assembly
	err := row.Scan(&a.ID, &a.Name, &a.Kind, &a.Location, &a.StartsAt, &a.EndsAt,
		&a.Status, &a.RegistrationOpen, &a.RegistrationDeadline, &a.MaxCapacity,
		&a.PaymentRequired, &a.CreatedBy, &a.CreatedAt, &a.UpdatedAt,
		&a.ArchivedAt, &a.ArchivedBy)
	if err != nil {
		return nil, err
	}
	return &a, nil
}

// Create inserts a new assembly. On success the ID, CreatedAt and
// UpdatedAt fields are populated from the stored row.
func (r *AssemblyRepo) Create(ctx context.Context, a *model.Assembly) error {
	const q = `INSERT INTO assemblies
		(name, kind, location, starts_at, ends_at, status, registration_open,
		 registration_deadline, max_capacity, payment_required, created_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, q, a.Name, a.Kind, a.Location,
		a.StartsAt, a.EndsAt, a.Status, a.RegistrationOpen,
		a.RegistrationDeadline, a.MaxCapacity, a.PaymentRequired, a.CreatedBy)
	if err != nil {
		return err
	}
	id, err := res.LastInsertId()
	if err != nil {
		return err
	}
	a.ID = uint64(id)
	stored, err := r.GetByID(ctx, a.ID)
	if err != nil {
		return err
	}
	*a = *stored
	return nil
}

// GetByID fetches an assembly by id. It returns ErrAssemblyNotFound when
// no row exists.
func (r *AssemblyRepo) GetByID(ctx context.Context, id uint64) (*model.Assembly, error) {
	a, err := scanAssembly(r.db.QueryRowContext(ctx,
		`SELECT `+assemblyCols+` FROM assemblies WHERE id = ?`, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, ErrAssemblyNotFound
	}
	return a, err
}

// ListByStatus returns all assemblies in the given lifecycle state,
// newest first.
func (r *AssemblyRepo) ListByStatus(ctx context.Context, status model.AssemblyStatus) ([]*model.Assembly, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+assemblyCols+` FROM assemblies WHERE status = ? ORDER BY starts_at DESC`,
		status)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*model.Assembly
	for rows.Next() {
		a, err := scanAssembly(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, a)
	}
	return out, rows.Err()
}

// AssemblyUpdate carries the optional fields of a partial assembly
// update. Nil pointers leave the stored value untouched.
type AssemblyUpdate struct {
	Name                 *string
	Location             *string
	StartsAt             *time.Time
	EndsAt               *time.Time
	RegistrationOpen     *bool
	RegistrationDeadline *time.Time
	MaxCapacity          *int
	PaymentRequired      *bool
}

// Update applies the provided partial update to an assembly. Only
// non-nil fields are written; absent fields keep their current value.
// Returns ErrAssemblyNotFound when the id does not resolve.
func (r *AssemblyRepo) Update(ctx context.Context, id uint64, u AssemblyUpdate) error {
	set := []string{}
	args := []any{}
	appendSet := func(col string, v any) {
		set = append(set, col+" = ?")
		args = append(args, v)
	}
	if u.Name != nil {
		appendSet("name", *u.Name)
	}
	if u.Location != nil {
		appendSet("location", *u.Location)
	}
	if u.StartsAt != nil {
		appendSet("starts_at", *u.StartsAt)
	}
	if u.EndsAt != nil {
		appendSet("ends_at", *u.EndsAt)
	}
	if u.RegistrationOpen != nil {
		appendSet("registration_open", *u.RegistrationOpen)
	}
	if u.RegistrationDeadline != nil {
		appendSet("registration_deadline", *u.RegistrationDeadline)
	}
	if u.MaxCapacity != nil {
		appendSet("max_capacity", *u.MaxCapacity)
	}
	if u.PaymentRequired != nil {
		appendSet("payment_required", *u.PaymentRequired)
	}
	if len(set) == 0 {
		return nil
	}
	q := "UPDATE assemblies SET " + strings.Join(set, ", ") + " WHERE id = ?"
	args = append(args, id)
	res, err := r.db.ExecContext(ctx, q, args...)
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

// Archive flips an assembly to archived and records who archived it.
// Related modalities, registrations and sessions stay in place and
// remain queryable; they are logically inactive while the assembly is
// archived.
func (r *AssemblyRepo) Archive(ctx context.Context, id uint64, archivedBy string) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assemblies SET status = ?, archived_at = NOW(), archived_by = ? WHERE id = ?`,
		model.AssemblyArchived, archivedBy, id)
	if err != nil {
		return err
	}
	return r.affectedOrExists(ctx, res, id)
}

// Reopen restores an archived assembly to active and clears the archive
// metadata.
func (r *AssemblyRepo) Reopen(ctx context.Context, id uint64) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assemblies SET status = ?, archived_at = NULL, archived_by = NULL WHERE id = ?`,
		model.AssemblyActive, id)
	if err != nil {
		return err
	}
	return r.affectedOrExists(ctx, res, id)
}

// SetRegistrationOpen toggles whether the assembly accepts new
// registrations.
func (r *AssemblyRepo) SetRegistrationOpen(ctx context.Context, id uint64, open bool) error {
	res, err := r.db.ExecContext(ctx,
		`UPDATE assemblies SET registration_open = ? WHERE id = ?`, open, id)
	if err != nil {
		return err
	}
	return r.affectedOrExists(ctx, res, id)
}

// DeleteCascade permanently removes an archived assembly and everything
// under it: attendance rows, sessions, registrations, modalities and the
// imported roster. All deletes run in a single transaction. Callers must
// verify the typed-confirmation name match before calling this.
func (r *AssemblyRepo) DeleteCascade(ctx context.Context, id uint64) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	steps := []string{
		`DELETE sa FROM session_attendance sa
		   JOIN sessions s ON s.id = sa.session_id
		  WHERE s.assembly_id = ?`,
		`DELETE FROM sessions WHERE assembly_id = ?`,
		`DELETE FROM registrations WHERE assembly_id = ?`,
		`DELETE FROM registration_modalities WHERE assembly_id = ?`,
		`DELETE FROM assembly_participants WHERE assembly_id = ?`,
	}
	for _, q := range steps {
		if _, err := tx.ExecContext(ctx, q, id); err != nil {
			return err
		}
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM assemblies WHERE id = ?`, id)
	if err != nil {
		return err
	}
	if err := requireAffected(res); err != nil {
		return err
	}
	return tx.Commit()
}

// requireAffected converts a zero-row DELETE into ErrAssemblyNotFound
// so callers see a NotFound rather than silence.
func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrAssemblyNotFound
	}
	return nil
}

// affectedOrExists treats a zero-row UPDATE as success when the row
// exists (MySQL reports no-op updates as zero affected rows) and as
// ErrAssemblyNotFound when it does not.
func (r *AssemblyRepo) affectedOrExists(ctx context.Context, res sql.Result, id uint64) error {
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
