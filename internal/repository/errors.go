// Package repository contains data access logic separated from HTTP
// handlers. Each entity of the assembly administration domain gets its
// own repository struct over *sql.DB. This file defines error values
// reused across multiple repositories so that higher layers can
// distinguish failure scenarios, e.g. a modality delete blocked by
// existing registrations versus a plain missing row.
package repository

import "errors"

// ErrConflict is returned when a delete or update cannot proceed due to
// dependent records, such as deleting a modality that still has
// registrations referencing it. Handlers should translate this into an
// HTTP 409 response.
var ErrConflict = errors.New("conflict")

// ErrForbidden is returned when the caller attempts an operation the
// current state does not allow, such as permanently deleting an
// assembly that has not been archived first. Handlers should translate
// this into an HTTP 403 response.
var ErrForbidden = errors.New("forbidden")
