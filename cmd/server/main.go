package main // Entry point package

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/threatpulse/securesoc/internal/config"
	"github.com/threatpulse/securesoc/internal/database"
	"github.com/threatpulse/securesoc/internal/handler"
	"github.com/threatpulse/securesoc/internal/queue"
	"github.com/threatpulse/securesoc/internal/repository"
	"github.com/threatpulse/securesoc/internal/router"
)

func main() {
	// Load .env if present; real deployments set variables directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database: %v", err)
	}

	accounts := repository.NewAccountRepo(db)
	sessions := repository.NewSessionRepo(db)
	mfaRepo := repository.NewMFARepo(db)
	audits := repository.NewAuditRepo(db)

	publisher := queue.NewPublisher(cfg.AMQPURL)
	if cfg.AMQPURL != "" {
		// The consumer persists audit events; it reconnects on broker outages
		// and only this goroutine writes to the audit table.
		go func() {
			if err := queue.StartAuditConsumer(cfg.AMQPURL, audits); err != nil {
				log.Printf("audit consumer disabled: %v", err)
			}
		}()
	} else {
		log.Printf("RABBITMQ_URL not set; audit events will not be recorded")
	}

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; auth rate limiting disabled")
	}

	h := router.Handlers{
		Auth:    handler.NewAuthHandler(cfg, accounts, sessions, mfaRepo, publisher),
		MFA:     handler.NewMFAHandler(cfg, accounts, mfaRepo, publisher),
		Profile: handler.NewProfileHandler(accounts, publisher),
		Users:   handler.NewUsersHandler(accounts, sessions, publisher),
		Audit:   handler.NewAuditHandler(audits, accounts, publisher),
	}

	e := echo.New()
	router.Register(e, cfg, h, sessions, accounts, rdb)

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)
	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
