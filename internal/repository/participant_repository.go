package repository

import (
	"context"
	"database/sql"
	"strings"

	"github.com/ifmsabrazil/agadmin/internal/model"
)

// ParticipantRepo encapsulates database operations for the imported
// assembly roster. The roster is replaced wholesale on each import;
// partial edits go through a fresh CSV upload.
type ParticipantRepo struct {
	db *sql.DB
}

// NewParticipantRepo constructs a ParticipantRepo with the provided DB
// handle.
func NewParticipantRepo(db *sql.DB) *ParticipantRepo {
	return &ParticipantRepo{db: db}
}

const participantCols = `id, assembly_id, participant_id, name, type, role,
	comite_local, status, imported_at, imported_by`

func scanParticipant(row interface{ Scan(...any) error }) (*model.Participant, error) {
	var p model.Participant
	err := row.Scan(&p.ID, &p.AssemblyID, &p.ParticipantID, &p.Name, &p.Type,
		&p.Role, &p.ComiteLocal, &p.Status, &p.ImportedAt, &p.ImportedBy)
	if err != nil {
		return nil, err
	}
	return &p, nil
}

// ReplaceForAssembly deletes the assembly's current roster and inserts
// the new entries in one transaction, so a failed import never leaves a
// half-replaced roster behind.
func (r *ParticipantRepo) ReplaceForAssembly(ctx context.Context, assemblyID uint64, entries []*model.Participant) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM assembly_participants WHERE assembly_id = ?`, assemblyID); err != nil {
		return err
	}
	if len(entries) > 0 {
		q := `INSERT INTO assembly_participants
			(assembly_id, participant_id, name, type, role, comite_local, status, imported_by) VALUES `
		args := make([]any, 0, len(entries)*8)
		for i, p := range entries {
			if i > 0 {
				q += ","
			}
			q += "(?, ?, ?, ?, ?, ?, ?, ?)"
			args = append(args, assemblyID, p.ParticipantID, p.Name, p.Type,
				p.Role, p.ComiteLocal, p.Status, p.ImportedBy)
		}
		if _, err := tx.ExecContext(ctx, q, args...); err != nil {
			return err
		}
	}
	return tx.Commit()
}

// ListByAssembly returns the full roster of an assembly ordered by name.
func (r *ParticipantRepo) ListByAssembly(ctx context.Context, assemblyID uint64) ([]*model.Participant, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+participantCols+` FROM assembly_participants
		  WHERE assembly_id = ? ORDER BY name`, assemblyID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectParticipants(rows)
}

// ListByAssemblyAndTypes returns roster entries of the given types, used
// when seeding plenária attendance rosters.
func (r *ParticipantRepo) ListByAssemblyAndTypes(ctx context.Context, assemblyID uint64, types []model.ParticipantType) ([]*model.Participant, error) {
	if len(types) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(types)), ",")
	args := []any{assemblyID}
	for _, t := range types {
		args = append(args, t)
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT `+participantCols+` FROM assembly_participants
		  WHERE assembly_id = ? AND type IN (`+placeholders+`) ORDER BY name`, args...)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	return collectParticipants(rows)
}

func collectParticipants(rows *sql.Rows) ([]*model.Participant, error) {
	var out []*model.Participant
	for rows.Next() {
		p, err := scanParticipant(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
