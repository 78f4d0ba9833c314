// Package router wires handlers, authentication and cross-cutting
// middleware onto the Echo instance. Route groups encode the permission
// model: everything under /v1 requires a valid token, admin routes
// additionally require the ADMIN role, and participant routes accept
// both roles.
package router

import (
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"

	"github.com/ifmsabrazil/agadmin/internal/config"
	"github.com/ifmsabrazil/agadmin/internal/handler"
	"github.com/ifmsabrazil/agadmin/internal/middleware"
)

// Handlers bundles every handler the router mounts.
type Handlers struct {
	Assembly     *handler.AssemblyHandler
	Modality     *handler.ModalityHandler
	Registration *handler.RegistrationHandler
	Participant  *handler.ParticipantHandler
	Session      *handler.SessionHandler
	Checkin      *handler.CheckinHandler
	Report       *handler.ReportHandler
}

// Register mounts all routes. rdb powers the read cache and the
// check-in rate limiter; a nil client disables both.
func Register(e *echo.Echo, cfg config.Config, rdb *redis.Client, h Handlers) {
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	e.GET("/healthz", handler.Health)

	v1 := e.Group("/v1", middleware.JWTAuth(cfg.JWTSecret))

	var cached echo.MiddlewareFunc
	if rdb != nil {
		cached = middleware.NewRedisCache(config.LoadCacheConfig(), rdb)
	} else {
		cached = passthrough
	}

	// Admin surface.
	admin := v1.Group("", middleware.RequireRole(middleware.RoleAdmin))
	admin.POST("/assemblies", h.Assembly.Create)
	admin.GET("/assemblies", h.Assembly.List, cached)
	admin.GET("/assemblies/:id", h.Assembly.Get, cached)
	admin.PATCH("/assemblies/:id", h.Assembly.Update)
	admin.DELETE("/assemblies/:id", h.Assembly.Delete)
	admin.POST("/assemblies/:id/archive", h.Assembly.Archive)
	admin.POST("/assemblies/:id/reopen", h.Assembly.Reopen)
	admin.POST("/assemblies/:id/registration", h.Assembly.ToggleRegistration)

	admin.POST("/assemblies/:id/modalities", h.Modality.Create)
	admin.PATCH("/modalities/:id", h.Modality.Update)
	admin.DELETE("/modalities/:id", h.Modality.Delete)

	admin.GET("/assemblies/:id/registrations", h.Registration.List)
	admin.GET("/assemblies/:id/registrations/search", h.Registration.Search)
	admin.POST("/registrations/:id/review", h.Registration.Review)

	admin.POST("/assemblies/:id/participants/import", h.Participant.Import)
	admin.GET("/assemblies/:id/participants", h.Participant.List, cached)

	admin.POST("/sessions", h.Session.Create)
	admin.GET("/assemblies/:id/sessions", h.Session.ListByAssembly, cached)
	admin.GET("/sessions/:id", h.Session.Get)
	admin.GET("/sessions/:id/stats", h.Session.Stats)
	admin.POST("/sessions/:id/attendance", h.Session.MarkAttendance)
	admin.POST("/sessions/:id/archive", h.Session.Archive)
	admin.POST("/sessions/:id/reopen", h.Session.Reopen)
	admin.DELETE("/sessions/:id", h.Session.Delete)

	admin.GET("/sessions/:id/report", h.Report.Export)
	admin.GET("/sessions/:id/report/summary", h.Report.Summary)

	// Participant surface, shared with admins.
	member := v1.Group("", middleware.RequireRole(middleware.RoleAdmin, middleware.RoleDelegate))
	member.GET("/assemblies/:id/modalities", h.Modality.List, cached)
	member.GET("/modalities/:id/stats", h.Modality.Stats)
	member.GET("/modalities/:id/can-accept", h.Modality.CanAccept)

	member.POST("/assemblies/:id/registrations", h.Registration.Create)
	member.GET("/assemblies/:id/registrations/mine", h.Registration.Mine)
	member.POST("/registrations/:id/cancel", h.Registration.Cancel)
	member.POST("/registrations/:id/resubmit", h.Registration.Resubmit)

	member.GET("/assemblies/:id/attendance/me", h.Checkin.MyStats)

	// Self check-in gets a per-user rate limit: it is the one endpoint
	// hammered from hundreds of phones at the start of every session.
	if rdb != nil {
		limited := middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb)
		member.POST("/sessions/:id/checkin", h.Checkin.Checkin, limited)
	} else {
		member.POST("/sessions/:id/checkin", h.Checkin.Checkin)
	}
}

// passthrough is a no-op middleware used when Redis is unavailable.
func passthrough(next echo.HandlerFunc) echo.HandlerFunc {
	return next
}
