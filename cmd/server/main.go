package main

import (
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"

	"github.com/pulseboard/pulseboard/internal/access"
	"github.com/pulseboard/pulseboard/internal/api"
	"github.com/pulseboard/pulseboard/internal/config"
	"github.com/pulseboard/pulseboard/internal/database"
	"github.com/pulseboard/pulseboard/internal/mailer"
	"github.com/pulseboard/pulseboard/internal/notify"
	"github.com/pulseboard/pulseboard/internal/report"
	"github.com/pulseboard/pulseboard/internal/schedule"
	"github.com/pulseboard/pulseboard/internal/share"
)

func main() {
	log := logrus.New()
	log.SetFormatter(&logrus.TextFormatter{FullTimestamp: true})

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	db, err := database.Open(cfg.Database.Path)
	if err != nil {
		log.Fatalf("Failed to initialize database: %v", err)
	}
	defer database.Close(db)

	if err := database.SeedAdmin(db, cfg.Auth.AdminEmail, cfg.Auth.AdminPassword); err != nil {
		log.Fatalf("Failed to seed admin user: %v", err)
	}

	transport := mailer.New(cfg.SMTP.Host, cfg.SMTP.Port, cfg.SMTP.From, cfg.SMTP.Username, cfg.SMTP.Password)

	var notifier report.Notifier
	if cfg.Slack.Token != "" {
		notifier = notify.NewSlackNotifier(cfg.Slack.Token, cfg.Slack.Channel)
	}

	renderer := report.NewRenderer(db)
	dispatcher := report.NewDispatcher(db, renderer, transport, notifier, log)

	registry := schedule.NewRegistry(db, dispatcher, log)
	if err := registry.Start(); err != nil {
		log.Fatalf("Failed to start schedule registry: %v", err)
	}
	defer registry.Stop()

	shareStore := share.NewStore(db)
	shareService := share.NewService(db, shareStore, log)
	guard := access.NewGuard(db, shareStore)
	scheduleService := schedule.NewService(db, registry, dispatcher, log)

	server := api.NewServer(db, guard, shareService, scheduleService, []byte(cfg.Auth.JWTSecret), log)

	go func() {
		sig := make(chan os.Signal, 1)
		signal.Notify(sig, syscall.SIGINT, syscall.SIGTERM)
		<-sig
		log.Info("shutting down")
		registry.Stop()
		database.Close(db)
		os.Exit(0)
	}()

	if err := server.Start(cfg.Server.Port); err != nil {
		log.Fatalf("Failed to start server: %v", err)
	}
}
