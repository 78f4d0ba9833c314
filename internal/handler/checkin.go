package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ifmsabrazil/agadmin/internal/attendance"
	"github.com/ifmsabrazil/agadmin/internal/model"
)

// CheckinHandler exposes the participant-facing attendance endpoints:
// self check-in and personal attendance stats.
type CheckinHandler struct {
	Engine *attendance.Engine
}

// NewCheckinHandler constructs a CheckinHandler.
func NewCheckinHandler(engine *attendance.Engine) *CheckinHandler {
	return &CheckinHandler{Engine: engine}
}

// checkinRequest is the payload for POST /v1/sessions/:id/checkin.
type checkinRequest struct {
	ParticipantType string `json:"participant_type" validate:"omitempty,oneof=individual comite eb cr user"`
}

// Checkin handles POST /v1/sessions/:id/checkin. Failures a participant
// can cause (missing or archived session) come back as a 200 with a
// readable error message instead of an HTTP error, so kiosk clients can
// show it directly; only infrastructure failures return 5xx.
func (h *CheckinHandler) Checkin(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req checkinRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if req.ParticipantType == "" {
		req.ParticipantType = model.AttendeeUser
	}
	userID, userName := identity(c)
	res, err := h.Engine.MarkSelfAttendance(c.Request().Context(), id, userID, userName, req.ParticipantType)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, res)
}

// MyStats handles GET /v1/assemblies/:id/attendance/me, aggregating the
// caller's attendance across the assembly's sessions under both their
// registration and walk-in identities.
func (h *CheckinHandler) MyStats(c echo.Context) error {
	assemblyID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, _ := identity(c)
	stats, err := h.Engine.GetUserAttendanceStats(c.Request().Context(), assemblyID, userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}
