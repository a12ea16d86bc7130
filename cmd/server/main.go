package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"vaxline/internal/config"
	"vaxline/internal/handlers"
	"vaxline/internal/notify"
	"vaxline/internal/services"
	"vaxline/internal/sheets"
)

func main() {
	log := zerolog.New(os.Stdout).With().Timestamp().Logger()

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("configuration error")
	}

	ctx := context.Background()

	store, err := sheets.New(ctx, cfg, log.With().Str("component", "sheets").Logger())
	if err != nil {
		log.Fatal().Err(err).Msg("failed to initialize spreadsheet store")
	}

	push := notify.NewPushClient(cfg.PushGatewayURL, cfg.ChannelToken,
		log.With().Str("component", "push").Logger())
	var email *notify.EmailService
	if cfg.SendGridAPIKey != "" && cfg.SendGridNotifyEmail != "" {
		email = notify.NewEmailService(cfg.SendGridAPIKey, cfg.SendGridFromEmail,
			cfg.SendGridFromName, cfg.SendGridNotifyEmail)
	}
	notifier := notify.New(push, email, log.With().Str("component", "notify").Logger())

	reminders := services.NewReminderScheduler(store, notifier,
		cfg.ReminderDelay, cfg.ReminderStageGap,
		log.With().Str("component", "reminders").Logger())
	defer reminders.Shutdown()

	sweeper := services.NewSweeper(store, notifier, cfg.SweepLookahead, cfg.Location,
		log.With().Str("component", "sweep").Logger())
	if err := sweeper.Start(cfg.SweepSpec); err != nil {
		log.Fatal().Err(err).Msg("failed to start catch-up sweep")
	}
	defer sweeper.Stop()

	router := gin.Default()
	router.SetTrustedProxies([]string{"127.0.0.1"})
	router.Use(cors.New(cors.Config{
		AllowOrigins: []string{"*"},
		AllowMethods: []string{"GET", "POST"},
		AllowHeaders: []string{"Content-Type"},
		MaxAge:       12 * time.Hour,
	}))

	h := handlers.New(store, notifier, reminders, cfg.Location, "static",
		log.With().Str("component", "http").Logger())
	h.Register(router)

	srv := &http.Server{
		Addr:    ":" + cfg.Port,
		Handler: router,
	}

	go func() {
		log.Info().Str("port", cfg.Port).Msg("server starting")
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server failed")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("graceful shutdown failed")
	}
}
