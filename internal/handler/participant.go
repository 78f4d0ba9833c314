package handler

import (
	"encoding/csv"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/labstack/echo/v4"

	"github.com/ifmsabrazil/agadmin/internal/model"
	"github.com/ifmsabrazil/agadmin/internal/repository"
)

// ParticipantHandler exposes the assembly roster endpoints. The roster
// is imported wholesale from a CSV before the assembly and replaces any
// previous import atomically.
type ParticipantHandler struct {
	Participants *repository.ParticipantRepo
	Assemblies   *repository.AssemblyRepo
}

// NewParticipantHandler constructs a ParticipantHandler.
func NewParticipantHandler(participants *repository.ParticipantRepo, assemblies *repository.AssemblyRepo) *ParticipantHandler {
	return &ParticipantHandler{Participants: participants, Assemblies: assemblies}
}

// rosterColumns is the required CSV header, in order.
var rosterColumns = []string{"participant_id", "name", "type", "role", "comite_local", "status"}

// Import handles POST /v1/assemblies/:id/participants/import. The
// multipart "file" field carries a CSV with the rosterColumns header.
// The whole file is parsed and validated before any write: one bad row
// rejects the entire import, and a valid import replaces the previous
// roster in a single transaction.
func (h *ParticipantHandler) Import(c echo.Context) error {
	assemblyID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	ctx := c.Request().Context()
	if _, err := h.Assemblies.GetByID(ctx, assemblyID); err != nil {
		return fail(c, err)
	}

	fh, err := c.FormFile("file")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "missing roster file"})
	}
	f, err := fh.Open()
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "cannot read roster file"})
	}
	defer f.Close()

	userID, _ := identity(c)
	entries, err := parseRoster(f, assemblyID, userID)
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Participants.ReplaceForAssembly(ctx, assemblyID, entries); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"imported": len(entries)})
}

// parseRoster reads and validates the full roster CSV. Committee rows
// must carry a Pleno / Não-pleno standing; officer rows must not.
func parseRoster(r io.Reader, assemblyID uint64, importedBy string) ([]*model.Participant, error) {
	cr := csv.NewReader(r)
	cr.TrimLeadingSpace = true

	header, err := cr.Read()
	if err != nil {
		return nil, fmt.Errorf("empty roster file")
	}
	if len(header) != len(rosterColumns) {
		return nil, fmt.Errorf("expected %d columns, got %d", len(rosterColumns), len(header))
	}
	for i, col := range rosterColumns {
		if strings.TrimSpace(strings.ToLower(header[i])) != col {
			return nil, fmt.Errorf("column %d must be %q", i+1, col)
		}
	}

	var (
		entries []*model.Participant
		seen    = map[string]bool{}
		line    = 1
	)
	for {
		rec, err := cr.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("line %d: %v", line+1, err)
		}
		line++

		pid := strings.TrimSpace(rec[0])
		name := strings.TrimSpace(rec[1])
		typ := model.ParticipantType(strings.TrimSpace(strings.ToLower(rec[2])))
		if pid == "" || name == "" {
			return nil, fmt.Errorf("line %d: participant_id and name are required", line)
		}
		if seen[pid] {
			return nil, fmt.Errorf("line %d: duplicate participant_id %q", line, pid)
		}
		seen[pid] = true
		if typ != model.ParticipantEB && typ != model.ParticipantCR && typ != model.ParticipantComite {
			return nil, fmt.Errorf("line %d: unknown type %q", line, rec[2])
		}

		p := &model.Participant{
			AssemblyID:    assemblyID,
			ParticipantID: pid,
			Name:          name,
			Type:          typ,
			ImportedBy:    importedBy,
		}
		if v := strings.TrimSpace(rec[3]); v != "" {
			p.Role = &v
		}
		if v := strings.TrimSpace(rec[4]); v != "" {
			p.ComiteLocal = &v
		}
		standing := strings.TrimSpace(rec[5])
		if typ == model.ParticipantComite {
			if standing != model.StandingPleno && standing != model.StandingNaoPleno {
				return nil, fmt.Errorf("line %d: committee standing must be %q or %q", line, model.StandingPleno, model.StandingNaoPleno)
			}
			p.Status = &standing
		} else if standing != "" {
			return nil, fmt.Errorf("line %d: standing only applies to committees", line)
		}
		entries = append(entries, p)
	}
	if len(entries) == 0 {
		return nil, fmt.Errorf("roster file has no data rows")
	}
	return entries, nil
}

// List handles GET /v1/assemblies/:id/participants.
func (h *ParticipantHandler) List(c echo.Context) error {
	assemblyID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	out, err := h.Participants.ListByAssembly(c.Request().Context(), assemblyID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
