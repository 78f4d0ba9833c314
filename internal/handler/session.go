package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ifmsabrazil/agadmin/internal/attendance"
	"github.com/ifmsabrazil/agadmin/internal/model"
	"github.com/ifmsabrazil/agadmin/internal/queue"
	"github.com/ifmsabrazil/agadmin/internal/repository"
	queue_publisher "github.com/ifmsabrazil/agadmin/internal/service"
)

// SessionHandler exposes the admin session and attendance endpoints.
type SessionHandler struct {
	Engine   *attendance.Engine
	Sessions *repository.SessionRepo
}

// NewSessionHandler constructs a SessionHandler.
func NewSessionHandler(engine *attendance.Engine, sessions *repository.SessionRepo) *SessionHandler {
	return &SessionHandler{Engine: engine, Sessions: sessions}
}

// createSessionRequest is the payload for POST /v1/sessions. AssemblyID
// is required for plenária and sessão sessions; avulsa sessions stand
// alone.
type createSessionRequest struct {
	AssemblyID *uint64 `json:"assembly_id"`
	Name       string  `json:"name" validate:"required"`
	Kind       string  `json:"kind" validate:"required,oneof=plenaria sessao avulsa"`
}

// Create handles POST /v1/sessions. Plenária sessions seed one roster
// row per EB/CR/committee; sessão sessions seed one row per approved
// registration; avulsa sessions start empty.
func (h *SessionHandler) Create(c echo.Context) error {
	var req createSessionRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	kind := model.SessionKind(req.Kind)
	if kind != model.SessionAvulsa && req.AssemblyID == nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "assembly_id is required for this session kind"})
	}
	userID, _ := identity(c)
	s, err := h.Engine.CreateSession(c.Request().Context(), attendance.CreateSessionInput{
		AssemblyID: req.AssemblyID,
		Name:       req.Name,
		Kind:       kind,
		CreatedBy:  userID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, s)
}

// ListByAssembly handles GET /v1/assemblies/:id/sessions.
func (h *SessionHandler) ListByAssembly(c echo.Context) error {
	assemblyID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	out, err := h.Sessions.ListByAssembly(c.Request().Context(), assemblyID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/sessions/:id, returning the session with its
// attendance roster. Sessão rows carry their originating registration
// joined in when it still resolves.
func (h *SessionHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	out, err := h.Engine.GetSessionWithEnrichedData(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Stats handles GET /v1/sessions/:id/stats.
func (h *SessionHandler) Stats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	stats, err := h.Engine.GetSessionStats(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// markAttendanceRequest is the payload for
// POST /v1/sessions/:id/attendance.
type markAttendanceRequest struct {
	ParticipantID   string  `json:"participant_id" validate:"required"`
	ParticipantType string  `json:"participant_type" validate:"required,oneof=individual comite eb cr user"`
	Name            string  `json:"name" validate:"required"`
	Role            *string `json:"role"`
	ComiteLocal     *string `json:"comite_local"`
	Status          string  `json:"status" validate:"required,oneof=present absent excluded not-counting"`
}

// MarkAttendance handles POST /v1/sessions/:id/attendance, the operator
// mark. Marking someone not on the roster creates their row; marking an
// existing row overwrites its status, any state to any state.
func (h *SessionHandler) MarkAttendance(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req markAttendanceRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, _ := identity(c)
	recID, err := h.Engine.MarkAttendance(c.Request().Context(), attendance.MarkInput{
		SessionID:       id,
		ParticipantID:   req.ParticipantID,
		ParticipantType: req.ParticipantType,
		Name:            req.Name,
		Role:            req.Role,
		ComiteLocal:     req.ComiteLocal,
		Status:          model.AttendanceStatus(req.Status),
		MarkedBy:        userID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"attendance_id": recID})
}

// Archive handles POST /v1/sessions/:id/archive. Archival is reversible
// and leaves attendance rows untouched; the event goes to the audit
// queue on a best-effort basis.
func (h *SessionHandler) Archive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, _ := identity(c)
	ctx := c.Request().Context()
	if err := h.Engine.ArchiveSession(ctx, id, userID); err != nil {
		return fail(c, err)
	}
	if s, err := h.Sessions.GetByID(ctx, id); err == nil {
		_ = queue_publisher.PublishSessionArchived(ctx, queue.SessionArchivedEvent{
			SessionID:  s.ID,
			AssemblyID: s.AssemblyID,
			Name:       s.Name,
			Kind:       string(s.Kind),
			ArchivedBy: userID,
		})
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "session archived"})
}

// Reopen handles POST /v1/sessions/:id/reopen.
func (h *SessionHandler) Reopen(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, _ := identity(c)
	if err := h.Engine.ReopenSession(c.Request().Context(), id, userID); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "session reopened"})
}

// Delete handles DELETE /v1/sessions/:id, removing the session and all
// of its attendance rows.
func (h *SessionHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Engine.DeleteSession(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "session deleted"})
}
