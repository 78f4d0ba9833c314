package repository

import (
	"context"
	"strings"
)

// RegistrationSearchQuery defines filters & pagination for the admin
// registration search screen.
type RegistrationSearchQuery struct {
	AssemblyID  uint64
	Name        string
	ComiteLocal string
	Status      string
	Page        int
	PageSize    int
}

// RegistrationRow is the flattened shape returned by SearchRegistrations,
// joining in the modality name for display.
type RegistrationRow struct {
	ID           uint64  `json:"id"`
	Name         string  `json:"name"`
	ComiteLocal  *string `json:"comite_local,omitempty"`
	Status       string  `json:"status"`
	ModalityID   *uint64 `json:"modality_id,omitempty"`
	ModalityName *string `json:"modality_name,omitempty"`
	Email        *string `json:"email,omitempty"`
	RegisteredAt string  `json:"registered_at"`
}

// SearchRegistrations runs a filtered, paginated scan over an assembly's
// registrations. Name and comitê filters are case-insensitive substring
// matches; the status filter is exact. It returns the page of rows plus
// the total match count for pagination.
func (r *RegistrationRepo) SearchRegistrations(ctx context.Context, q RegistrationSearchQuery) ([]RegistrationRow, int64, error) {
	where := []string{"g.assembly_id = ?"}
	args := []any{q.AssemblyID}

	if q.Name != "" {
		where = append(where, "LOWER(g.name) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.Name)+"%")
	}
	if q.ComiteLocal != "" {
		where = append(where, "LOWER(g.comite_local) LIKE ?")
		args = append(args, "%"+strings.ToLower(q.ComiteLocal)+"%")
	}
	if q.Status != "" {
		where = append(where, "g.status = ?")
		args = append(args, q.Status)
	}
	cond := strings.Join(where, " AND ")

	var total int64
	countSQL := `SELECT COUNT(*) FROM registrations g WHERE ` + cond
	if err := r.db.QueryRowContext(ctx, countSQL, args...).Scan(&total); err != nil {
		return nil, 0, err
	}

	if q.PageSize <= 0 {
		q.PageSize = 50
	}
	if q.Page <= 0 {
		q.Page = 1
	}
	limit := q.PageSize
	offset := (q.Page - 1) * q.PageSize

	dataSQL := `SELECT
			g.id,
			g.name,
			g.comite_local,
			g.status,
			g.modality_id,
			m.name AS modality_name,
			g.email,
			DATE_FORMAT(g.registered_at, '%Y-%m-%d %T') AS registered_at
		FROM registrations g
		LEFT JOIN registration_modalities m ON m.id = g.modality_id
		WHERE ` + cond + `
		ORDER BY g.registered_at ASC
		LIMIT ? OFFSET ?`

	argsData := append(append([]any{}, args...), limit, offset)

	rows, err := r.db.QueryContext(ctx, dataSQL, argsData...)
	if err != nil {
		return nil, 0, err
	}
	defer rows.Close()

	out := make([]RegistrationRow, 0, limit)
	for rows.Next() {
		var d RegistrationRow
		if err := rows.Scan(
			&d.ID,
			&d.Name,
			&d.ComiteLocal,
			&d.Status,
			&d.ModalityID,
			&d.ModalityName,
			&d.Email,
			&d.RegisteredAt,
		); err != nil {
			return nil, 0, err
		}
		out = append(out, d)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, err
	}
	return out, total, nil
}
