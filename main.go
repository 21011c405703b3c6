package main

import (
	"context"
	"flag"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/postfixrelay/psfxmail/internal/api"
	"github.com/postfixrelay/psfxmail/internal/backend"
	"github.com/postfixrelay/psfxmail/internal/config"
	"github.com/postfixrelay/psfxmail/internal/crypto"
	"github.com/postfixrelay/psfxmail/internal/database"
	"github.com/postfixrelay/psfxmail/internal/session"
	"github.com/postfixrelay/psfxmail/internal/webmail"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

func main() {
	// CLI flags
	migrateOnly := flag.Bool("migrate", false, "Run database migrations and exit")
	flag.Parse()

	// Initialize logger
	zerolog.TimeFieldFormat = zerolog.TimeFormatUnix
	if os.Getenv("LOG_FORMAT") != "json" {
		log.Logger = log.Output(zerolog.ConsoleWriter{Out: os.Stderr})
	}

	switch os.Getenv("LOG_LEVEL") {
	case "debug":
		zerolog.SetGlobalLevel(zerolog.DebugLevel)
	case "warn":
		zerolog.SetGlobalLevel(zerolog.WarnLevel)
	case "error":
		zerolog.SetGlobalLevel(zerolog.ErrorLevel)
	default:
		zerolog.SetGlobalLevel(zerolog.InfoLevel)
	}

	log.Info().Msg("Starting PSFXMail gateway")

	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to load configuration")
	}

	db, err := database.New(cfg.DBPath)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	if err := db.Migrate(); err != nil {
		log.Fatal().Err(err).Msg("Failed to run database migrations")
	}

	if *migrateOnly {
		log.Info().Msg("Migrations applied")
		return
	}

	enc, err := crypto.NewEncryptor(cfg.DBEncryptionKey)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to initialize credential encryption")
	}

	client := backend.NewClient(cfg.BackendURL, cfg.BackendTimeout)
	sessions := session.NewManager(db, enc, client, cfg.SessionTTL())
	svc := webmail.NewService(client, webmail.NewDraftLedger(db), webmail.Options{
		ListPageSize:      cfg.ListPageSize,
		CountsPageSize:    cfg.CountsPageSize,
		PreviewWords:      cfg.PreviewWords,
		AdminPreviewWords: cfg.AdminPreviewWords,
	})

	ctx, stop := context.WithCancel(context.Background())
	defer stop()

	go sessions.Run(ctx, 5*time.Minute)
	go purgeAuditLog(ctx, db, time.Duration(cfg.AuditRetentionDays)*24*time.Hour)

	server := api.NewServer(cfg, db, sessions, svc)

	httpServer := &http.Server{
		Addr:         cfg.ListenAddr,
		Handler:      server.Router(),
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 90 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	go func() {
		log.Info().Str("addr", cfg.ListenAddr).Msg("Server listening")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("Server failed")
		}
	}()

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	stop()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()

	if err := httpServer.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	log.Info().Msg("Server stopped")
}

func purgeAuditLog(ctx context.Context, db *database.DB, retention time.Duration) {
	if retention <= 0 {
		return
	}
	ticker := time.NewTicker(24 * time.Hour)
	defer ticker.Stop()
	for {
		n, err := db.PurgeAuditLog(ctx, retention)
		if err != nil {
			log.Error().Err(err).Msg("Audit log purge failed")
		} else if n > 0 {
			log.Info().Int64("count", n).Msg("Purged old audit entries")
		}
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
		}
	}
}
