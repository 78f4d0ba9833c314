// Package handler defines the HTTP handlers of the assembly
// administration API. Handlers translate repository sentinel errors
// into HTTP status codes and keep all business rules in the service and
// engine layers. JWT authentication and role checks happen in
// middleware before any handler runs.
package handler

import (
	"errors"
	"net/http"
	"strconv"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"

	"github.com/ifmsabrazil/agadmin/internal/repository"
)

// validate is the shared request validator. Handlers bind JSON into
// tagged DTOs and run them through this instance.
var validate = validator.New()

// identity returns the authenticated caller's id and display name from
// the context. The data layer trusts these strings as-is; permission
// enforcement happened upstream in middleware.
func identity(c echo.Context) (id, name string) {
	if v, ok := c.Get("user_id").(string); ok {
		id = v
	}
	if v, ok := c.Get("user_name").(string); ok && v != "" {
		name = v
	} else {
		name = id
	}
	return id, name
}

// pathID parses the named path parameter as an unsigned id.
func pathID(c echo.Context, name string) (uint64, error) {
	id, err := strconv.ParseUint(c.Param(name), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// fail maps repository sentinel errors onto HTTP responses. Unknown
// errors become a generic 500 so internals never leak to clients.
func fail(c echo.Context, err error) error {
	switch {
	case errors.Is(err, repository.ErrAssemblyNotFound),
		errors.Is(err, repository.ErrModalityNotFound),
		errors.Is(err, repository.ErrRegistrationNotFound),
		errors.Is(err, repository.ErrSessionNotFound),
		errors.Is(err, repository.ErrAttendanceNotFound):
		return c.JSON(http.StatusNotFound, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrConflict):
		return c.JSON(http.StatusConflict, echo.Map{"error": err.Error()})
	case errors.Is(err, repository.ErrForbidden):
		return c.JSON(http.StatusForbidden, echo.Map{"error": err.Error()})
	default:
		return c.JSON(http.StatusInternalServerError, echo.Map{"error": "internal error"})
	}
}
