package handler

import (
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"github.com/ifmsabrazil/agadmin/internal/model"
	"github.com/ifmsabrazil/agadmin/internal/repository"
)

// AssemblyHandler exposes the admin assembly lifecycle endpoints.
type AssemblyHandler struct {
	Assemblies *repository.AssemblyRepo
}

// NewAssemblyHandler constructs an AssemblyHandler.
func NewAssemblyHandler(assemblies *repository.AssemblyRepo) *AssemblyHandler {
	return &AssemblyHandler{Assemblies: assemblies}
}

// createAssemblyRequest is the payload for POST /v1/assemblies.
type createAssemblyRequest struct {
	Name                 string     `json:"name" validate:"required"`
	Kind                 string     `json:"kind" validate:"required,oneof=AG AGE"`
	Location             string     `json:"location"`
	StartsAt             time.Time  `json:"starts_at" validate:"required"`
	EndsAt               time.Time  `json:"ends_at" validate:"required,gtfield=StartsAt"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxCapacity          *int       `json:"max_capacity" validate:"omitempty,gt=0"`
	PaymentRequired      bool       `json:"payment_required"`
}

// Create handles POST /v1/assemblies. New assemblies start active with
// registrations closed; opening registration is a separate explicit
// action.
func (h *AssemblyHandler) Create(c echo.Context) error {
	var req createAssemblyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, _ := identity(c)
	a := &model.Assembly{
		Name:                 req.Name,
		Kind:                 model.AssemblyKind(req.Kind),
		Location:             req.Location,
		StartsAt:             req.StartsAt,
		EndsAt:               req.EndsAt,
		Status:               model.AssemblyActive,
		RegistrationDeadline: req.RegistrationDeadline,
		MaxCapacity:          req.MaxCapacity,
		PaymentRequired:      req.PaymentRequired,
		CreatedBy:            userID,
	}
	if err := h.Assemblies.Create(c.Request().Context(), a); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, a)
}

// List handles GET /v1/assemblies?status=active|archived. The status
// filter defaults to active.
func (h *AssemblyHandler) List(c echo.Context) error {
	status := model.AssemblyStatus(c.QueryParam("status"))
	if status == "" {
		status = model.AssemblyActive
	}
	if status != model.AssemblyActive && status != model.AssemblyArchived {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid status filter"})
	}
	out, err := h.Assemblies.ListByStatus(c.Request().Context(), status)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// Get handles GET /v1/assemblies/:id.
func (h *AssemblyHandler) Get(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	a, err := h.Assemblies.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// updateAssemblyRequest is the payload for PATCH /v1/assemblies/:id.
// Absent fields keep their stored value.
type updateAssemblyRequest struct {
	Name                 *string    `json:"name"`
	Location             *string    `json:"location"`
	StartsAt             *time.Time `json:"starts_at"`
	EndsAt               *time.Time `json:"ends_at"`
	RegistrationOpen     *bool      `json:"registration_open"`
	RegistrationDeadline *time.Time `json:"registration_deadline"`
	MaxCapacity          *int       `json:"max_capacity" validate:"omitempty,gt=0"`
	PaymentRequired      *bool      `json:"payment_required"`
}

// Update handles PATCH /v1/assemblies/:id.
func (h *AssemblyHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req updateAssemblyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	u := repository.AssemblyUpdate{
		Name:                 req.Name,
		Location:             req.Location,
		StartsAt:             req.StartsAt,
		EndsAt:               req.EndsAt,
		RegistrationOpen:     req.RegistrationOpen,
		RegistrationDeadline: req.RegistrationDeadline,
		MaxCapacity:          req.MaxCapacity,
		PaymentRequired:      req.PaymentRequired,
	}
	if err := h.Assemblies.Update(c.Request().Context(), id, u); err != nil {
		return fail(c, err)
	}
	a, err := h.Assemblies.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, a)
}

// Archive handles POST /v1/assemblies/:id/archive. Archival is a soft
// state flip; modalities, registrations and sessions stay queryable.
func (h *AssemblyHandler) Archive(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	userID, _ := identity(c)
	if err := h.Assemblies.Archive(c.Request().Context(), id, userID); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "assembly archived"})
}

// Reopen handles POST /v1/assemblies/:id/reopen, restoring an archived
// assembly to active.
func (h *AssemblyHandler) Reopen(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Assemblies.Reopen(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "assembly reopened"})
}

// toggleRegistrationRequest is the payload for
// POST /v1/assemblies/:id/registration.
type toggleRegistrationRequest struct {
	Open *bool `json:"open" validate:"required"`
}

// ToggleRegistration handles POST /v1/assemblies/:id/registration,
// opening or closing the registration window.
func (h *AssemblyHandler) ToggleRegistration(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req toggleRegistrationRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Assemblies.SetRegistrationOpen(c.Request().Context(), id, *req.Open); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"registration_open": *req.Open})
}

// deleteAssemblyRequest is the payload for DELETE /v1/assemblies/:id.
// The caller must type the assembly name back to confirm the cascade.
type deleteAssemblyRequest struct {
	ConfirmName string `json:"confirm_name" validate:"required"`
}

// Delete handles DELETE /v1/assemblies/:id. Only archived assemblies
// can be deleted, and the request must repeat the exact assembly name:
// the cascade removes modalities, registrations, participants, sessions
// and attendance in one transaction and cannot be undone.
func (h *AssemblyHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req deleteAssemblyRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}

	ctx := c.Request().Context()
	a, err := h.Assemblies.GetByID(ctx, id)
	if err != nil {
		return fail(c, err)
	}
	if a.Status != model.AssemblyArchived {
		return c.JSON(http.StatusForbidden, echo.Map{"error": "only archived assemblies can be deleted"})
	}
	if req.ConfirmName != a.Name {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "confirmation name does not match"})
	}
	if err := h.Assemblies.DeleteCascade(ctx, id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "assembly deleted"})
}
