package main

import (
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/openstatus-dev/openstatus/db"
	"github.com/openstatus-dev/openstatus/internal/notify"
	"github.com/openstatus-dev/openstatus/internal/notify/discord"
	"github.com/openstatus-dev/openstatus/internal/notify/email"
	"github.com/openstatus-dev/openstatus/internal/notify/slack"
	"github.com/openstatus-dev/openstatus/internal/notify/sms"
	"github.com/openstatus-dev/openstatus/internal/notify/telegram"
	"github.com/openstatus-dev/openstatus/internal/notify/webhook"
	"github.com/openstatus-dev/openstatus/internal/pagination"
	"github.com/openstatus-dev/openstatus/internal/router"
	"github.com/openstatus-dev/openstatus/internal/scheduler"
)

func main() {
	if err := godotenv.Load(); err != nil {
		slog.Warn("no .env file loaded", slog.Any("error", err))
	}

	log := slog.New(slog.NewJSONHandler(os.Stdout, nil))
	slog.SetDefault(log)

	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		log.Error("DATABASE_URL environment variable is not set")
		os.Exit(1)
	}

	if err := db.ConnectDatabase(dsn); err != nil {
		log.Error("failed to connect to database", slog.Any("error", err))
		os.Exit(1)
	}

	if err := db.MigrateDatabase(); err != nil {
		log.Error("failed to migrate database", slog.Any("error", err))
		os.Exit(1)
	}

	if err := pagination.InitTokenSecret(); err != nil {
		log.Error("failed to initialize page tokens", slog.Any("error", err))
		os.Exit(1)
	}

	telegramAdapter, err := telegram.New(os.Getenv("TELEGRAM_BOT_TOKEN"))
	if err != nil {
		log.Error("failed to initialize telegram adapter", slog.Any("error", err))
		os.Exit(1)
	}

	var smsGateway sms.Gateway
	if gatewayURL := os.Getenv("SMS_GATEWAY_URL"); gatewayURL != "" {
		smsGateway = sms.NewHTTPGateway(gatewayURL)
	}

	sendTimeout := 30 * time.Second
	if raw := os.Getenv("NOTIFY_TIMEOUT"); raw != "" {
		if parsed, err := time.ParseDuration(raw); err == nil {
			sendTimeout = parsed
		}
	}

	notify.Initialize(notify.NewDispatcher(sendTimeout, log,
		slack.New(),
		discord.New(),
		webhook.New(),
		telegramAdapter,
		email.New(os.Getenv("RESEND_API_KEY"), os.Getenv("EMAIL_FROM")),
		sms.New(smsGateway),
	))

	dashboardURL := os.Getenv("DASHBOARD_URL")
	if dashboardURL == "" {
		dashboardURL = "http://localhost:3000"
	}

	if err := scheduler.Initialize(dashboardURL, log); err != nil {
		log.Error("failed to start scheduler", slog.Any("error", err))
		os.Exit(1)
	}

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		<-quit
		scheduler.Shutdown()
		os.Exit(0)
	}()

	r := router.NewRouter()

	port := os.Getenv("PORT")
	if port == "" {
		port = "3000"
		log.Info("PORT not set, defaulting to 3000")
	}

	if err := r.Run(":" + port); err != nil {
		log.Error("failed to start server", slog.Any("error", err))
		os.Exit(1)
	}
}
