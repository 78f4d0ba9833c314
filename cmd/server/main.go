package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/ifmsabrazil/agadmin/internal/attendance"
	"github.com/ifmsabrazil/agadmin/internal/config"
	"github.com/ifmsabrazil/agadmin/internal/database"
	"github.com/ifmsabrazil/agadmin/internal/handler"
	"github.com/ifmsabrazil/agadmin/internal/queue"
	"github.com/ifmsabrazil/agadmin/internal/registration"
	"github.com/ifmsabrazil/agadmin/internal/repository"
	"github.com/ifmsabrazil/agadmin/internal/router"
)

func main() {
	// .env is optional; real deployments inject env vars directly.
	_ = godotenv.Load()
	cfg := config.Load()

	db, err := database.Open(cfg)
	if err != nil {
		log.Fatalf("database: %v", err)
	}
	defer db.Close()

	rdb := config.NewRedisClient()

	assemblies := repository.NewAssemblyRepo(db)
	modalities := repository.NewModalityRepo(db)
	registrations := repository.NewRegistrationRepo(db)
	participants := repository.NewParticipantRepo(db)
	sessions := repository.NewSessionRepo(db)
	att := repository.NewAttendanceRepo(db)

	var statsCache registration.StatsCache
	if rdb != nil {
		statsCache = repository.NewStatsCache(rdb, cfg.StatsCacheTTL)
	}

	svc := registration.NewService(assemblies, modalities, registrations, statsCache)
	engine := attendance.NewEngine(sessions, att, registrations, participants)

	// Audit trail consumer runs for the life of the process and
	// reconnects on its own.
	go func() {
		if err := queue.StartAuditConsumer(); err != nil {
			log.Printf("audit consumer stopped: %v", err)
		}
	}()

	e := echo.New()
	router.Register(e, cfg, rdb, router.Handlers{
		Assembly:     handler.NewAssemblyHandler(assemblies),
		Modality:     handler.NewModalityHandler(svc, modalities),
		Registration: handler.NewRegistrationHandler(svc, registrations),
		Participant:  handler.NewParticipantHandler(participants, assemblies),
		Session:      handler.NewSessionHandler(engine, sessions),
		Checkin:      handler.NewCheckinHandler(engine),
		Report:       handler.NewReportHandler(sessions, att, participants),
	})

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
