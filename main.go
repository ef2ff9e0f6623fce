package main

import (
	"context"
	"log"
	"os/signal"
	"syscall"

	"github.com/aircanary/aircanary/alerting"
	"github.com/aircanary/aircanary/auth"
	"github.com/aircanary/aircanary/classify"
	"github.com/aircanary/aircanary/config"
	"github.com/aircanary/aircanary/db"
	httpserver "github.com/aircanary/aircanary/http"
	"github.com/aircanary/aircanary/logger"
	"github.com/aircanary/aircanary/notify"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger.Init(cfg.LogLevel)

	ctx, cancel := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer cancel()

	store, err := db.New(ctx, cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connection error: %v", err)
	}
	defer store.Close()

	if err := store.EnsureSchema(ctx); err != nil {
		log.Fatalf("schema error: %v", err)
	}

	var notifier notify.Notifier = notify.LogNotifier{}
	if cfg.MailEnabled() {
		notifier = notify.NewMailer(cfg.SMTPHost, cfg.SMTPPort, cfg.SMTPUser, cfg.SMTPPass, cfg.MailFrom)
	}

	dispatcher := notify.NewDispatcher(notify.Config{
		Notifier:  notifier,
		Workers:   cfg.NotifyWorkers,
		QueueSize: cfg.NotifyQueueSize,
	})
	dispatcher.Start()
	defer dispatcher.Stop()

	evaluator := alerting.NewEvaluator(store, store, alerting.Config{
		Cooldown:        cfg.AlertCooldown,
		MatchExactValue: cfg.MatchExactValue,
	})

	authMgr := auth.NewManager(cfg.JWTSecret, cfg.TokenTTL)
	classifier := classify.NewBreakpointClassifier()

	srv := httpserver.New(cfg, store, evaluator, dispatcher, classifier, authMgr)
	logger.Logger.Info().Str("addr", cfg.ListenAddr()).Msg("REST API listening")

	if err := srv.Run(ctx); err != nil {
		log.Fatalf("server error: %v", err)
	}
}
