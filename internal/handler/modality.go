package handler

import (
	"net/http"

	"github.com/labstack/echo/v4"

	"github.com/ifmsabrazil/agadmin/internal/registration"
	"github.com/ifmsabrazil/agadmin/internal/repository"
)

// ModalityHandler exposes the admin modality endpoints. Business rules
// (display order, delete guard, capacity math) live in the registration
// service; listing goes straight to the repository.
type ModalityHandler struct {
	Service    *registration.Service
	Modalities *repository.ModalityRepo
}

// NewModalityHandler constructs a ModalityHandler.
func NewModalityHandler(svc *registration.Service, modalities *repository.ModalityRepo) *ModalityHandler {
	return &ModalityHandler{Service: svc, Modalities: modalities}
}

// createModalityRequest is the payload for
// POST /v1/assemblies/:id/modalities.
type createModalityRequest struct {
	Name            string  `json:"name" validate:"required"`
	Description     *string `json:"description"`
	PriceCents      int     `json:"price_cents" validate:"gte=0"`
	MaxParticipants *int    `json:"max_participants" validate:"omitempty,gt=0"`
}

// Create handles POST /v1/assemblies/:id/modalities.
func (h *ModalityHandler) Create(c echo.Context) error {
	assemblyID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req createModalityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	m, err := h.Service.CreateModality(c.Request().Context(), registration.CreateModalityInput{
		AssemblyID:      assemblyID,
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		MaxParticipants: req.MaxParticipants,
	})
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusCreated, m)
}

// List handles GET /v1/assemblies/:id/modalities, ordered by display
// order.
func (h *ModalityHandler) List(c echo.Context) error {
	assemblyID, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	out, err := h.Modalities.ListByAssembly(c.Request().Context(), assemblyID)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, out)
}

// updateModalityRequest is the payload for PATCH /v1/modalities/:id.
type updateModalityRequest struct {
	Name            *string `json:"name"`
	Description     *string `json:"description"`
	PriceCents      *int    `json:"price_cents" validate:"omitempty,gte=0"`
	MaxParticipants *int    `json:"max_participants" validate:"omitempty,gt=0"`
	IsActive        *bool   `json:"is_active"`
}

// Update handles PATCH /v1/modalities/:id.
func (h *ModalityHandler) Update(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	var req updateModalityRequest
	if err := c.Bind(&req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": "invalid request body"})
	}
	if err := validate.Struct(req); err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	u := repository.ModalityUpdate{
		Name:            req.Name,
		Description:     req.Description,
		PriceCents:      req.PriceCents,
		MaxParticipants: req.MaxParticipants,
		IsActive:        req.IsActive,
	}
	if err := h.Service.UpdateModality(c.Request().Context(), id, u); err != nil {
		return fail(c, err)
	}
	m, err := h.Modalities.GetByID(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, m)
}

// Delete handles DELETE /v1/modalities/:id. Deletion is refused with
// 409 while any registration, in any status, references the modality.
func (h *ModalityHandler) Delete(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	if err := h.Service.DeleteModality(c.Request().Context(), id); err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, echo.Map{"message": "modality deleted"})
}

// Stats handles GET /v1/modalities/:id/stats.
func (h *ModalityHandler) Stats(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	stats, err := h.Service.GetModalityStats(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, stats)
}

// CanAccept handles GET /v1/modalities/:id/can-accept. The decision is
// advisory: it reflects a live count, not a reservation.
func (h *ModalityHandler) CanAccept(c echo.Context) error {
	id, err := pathID(c, "id")
	if err != nil {
		return c.JSON(http.StatusBadRequest, echo.Map{"error": err.Error()})
	}
	d, err := h.Service.CanAcceptRegistration(c.Request().Context(), id)
	if err != nil {
		return fail(c, err)
	}
	return c.JSON(http.StatusOK, d)
}
