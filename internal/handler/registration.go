package handler

import (
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"

	"github.com/ifmsabrazil/agadmin/internal/model"
	"github.com/ifmsabrazil/agadmin/internal/queue"
	"github.com/ifmsabrazil/agadmin/internal/registration"
	"github.com/ifmsabrazil/agadmin/internal/repository"
	queue_publisher "github.com/ifmsabrazil/agadmin/internal/service"
)

// RegistrationHandler exposes the registration endpoints: delegates
// create, cancel and resubmit their own registrations; admins list,
// search and review them.
type RegistrationHandler struct {
	Service       *registration.Service
	Registrations *repository.RegistrationRepo
}

// NewRegistrationHandler constructs a RegistrationHandler.
func NewRegistrationHandler(svc *registration.Service, registrations *repository.RegistrationRepo) *RegistrationHandler {
	return &RegistrationHandler{Service: svc, Registrations: registrations}
}

// createRegistrationRequest is the payload for
// POST /v1/assemblies/:id/registrations.
type createRegistrationRequest struct {
	ModalityID       *uint64 `json:"modality_id"`
	ParticipantType  string  `json:"participant_type" validate:"required,oneof=individual comite eb cr"`
	Name             string  `json:"name" validate:"required"`
	Role             *string `json:"role"`
	ComiteLocal      *string `json:"comite_local"`
	Email            *string `json:"email" validate:"omitempty,email"`
	Phone            *string `json:"phone"`
	City             *string `json:"city"`
	UF               *string `json:"uf" validate:"omitempty,len=2"`
	EmergencyContact *string `json:"emergency_contact"`
	DietaryNotes     *string `json:"dietary_notes"`
}

// Create handles POST /v1/assemblies/:id/registrations. The registrant
// is the authenticated caller; registrations always start pending.
func (h *RegistrationHandler) Create(c echo.Context) error {
	assemblyID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req createRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, _ := identity(c)
	g, err := h.Service.CreateRegistration(c.Request().Context(), registration.CreateRegistrationInput{
		AssemblyID:       assemblyID,
		ModalityID:       req.ModalityID,
		ParticipantType:  req.ParticipantType,
		ParticipantID:    userID,
		Name:             req.Name,
		Role:             req.Role,
		ComiteLocal:      req.ComiteLocal,
		Email:            req.Email,
		Phone:            req.Phone,
		City:             req.City,
		UF:               req.UF,
		EmergencyContact: req.EmergencyContact,
		DietaryNotes:     req.DietaryNotes,
		RegisteredBy:     userID,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, g)
}

// List handles GET /v1/assemblies/:id/registrations?status=. Without a
// status filter all registrations of the assembly are returned.
func (h *RegistrationHandler) List(c echo.Context) error {
	assemblyID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	status := model.RegistrationStatus(c.QueryParam("status"))
	out, err := h.Registrations.ListByAssembly(c.Request().Context(), assemblyID, status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Search handles GET /v1/assemblies/:id/registrations/search with name,
// comitê and status filters plus pagination.
func (h *RegistrationHandler) Search(c echo.Context) error {
	assemblyID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	page, _ := strconv.Atoi(c.QueryParam("page"))
	pageSize, _ := strconv.Atoi(c.QueryParam("page_size"))

	rows, total, err := h.Registrations.SearchRegistrations(c.Request().Context(), repository.RegistrationSearchQuery{
		AssemblyID:  assemblyID,
		Name:        c.QueryParam("name"),
		ComiteLocal: c.QueryParam("comite_local"),
		Status:      c.QueryParam("status"),
		Page:        page,
		PageSize:    pageSize,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{
		"items": rows,
		"total": total,
	})
}

// reviewRequest is the payload for POST /v1/registrations/:id/review.
type reviewRequest struct {
	Status string  `json:"status" validate:"required,oneof=pending approved rejected cancelled pending_review"`
	Note   *string `json:"note"`
}

// Review handles POST /v1/registrations/:id/review. Any target status
// is accepted; there is no transition graph. The decision is published
// to the audit queue on a best-effort basis.
func (h *RegistrationHandler) Review(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req reviewRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, _ := identity(c)
	g, err := h.Service.Review(c.Request().Context(), id, model.RegistrationStatus(req.Status), userID, req.Note)
	if err != nil {
		return fail(c, err)
	}

	// Audit trail only; a broker outage must not fail the review.
	_ = queue_publisher.PublishRegistrationReviewed(c.Request().Context(), queue.RegistrationReviewedEvent{
		RegistrationID:  g.ID,
		AssemblyID:      g.AssemblyID,
		ModalityID:      g.ModalityID,
		ParticipantName: g.Name,
		Status:          string(g.Status),
		ReviewedBy:      userID,
	})
	return c.JSON(http.StatusOK, g)
}

// Cancel handles POST /v1/registrations/:id/cancel. Participants may
// only cancel their own registrations; admins may cancel any via
// Review.
func (h *RegistrationHandler) Cancel(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, _ := identity(c)
	ctx := c.Request().Context()
	g, err := h.Registrations.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if g.ParticipantID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your registration"})
	}
	g, err = h.Service.Cancel(ctx, id, userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

// resubmitRequest is the payload for POST /v1/registrations/:id/resubmit.
type resubmitRequest struct {
	Note *string `json:"note"`
}

// Resubmit handles POST /v1/registrations/:id/resubmit, re-entering a
// rejected registration into the pending queue.
func (h *RegistrationHandler) Resubmit(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req resubmitRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	userID, _ := identity(c)
	ctx := c.Request().Context()
	g, err := h.Registrations.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if g.ParticipantID != userID {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "not your registration"})
	}
	g, err = h.Service.Resubmit(ctx, id, req.Note)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, g)
}

// Mine handles GET /v1/assemblies/:id/registrations/mine, returning the
// caller's registrations in the assembly.
func (h *RegistrationHandler) Mine(c echo.Context) error {
	assemblyID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, _ := identity(c)
	out, err := h.Registrations.ListByParticipant(c.Request().Context(), assemblyID, userID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}
