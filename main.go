package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"go.uber.org/zap"

	"kycportal/internal/config"
	"kycportal/internal/notifier"
	"kycportal/internal/repository"
	"kycportal/internal/server"
	"kycportal/internal/service"
	"kycportal/internal/storage"
)

func main() {
	logger, err := zap.NewDevelopment()
	if err != nil {
		panic(err) // Should not happen in development
	}
	defer func() {
		_ = logger.Sync() // Flushes buffer, if any
	}()

	log := logrus.New()

	// Load configuration
	cfgPath := "configs/config.yml"
	if p := os.Getenv("KYC_CONFIG"); p != "" {
		cfgPath = p
	}
	cfg, err := config.LoadConfig(cfgPath)
	if err != nil {
		logger.Fatal("Failed to load config", zap.Error(err))
	}

	// Database connection
	db, err := repository.NewPostgresDB(cfg.Database.URL, logger)
	if err != nil {
		logger.Fatal("Failed to connect to database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	repository.MigrateDB(db, logger)

	// Document storage with at-rest encryption
	docKey, err := cfg.DocumentKey()
	if err != nil {
		logger.Fatal("Failed to load document encryption key", zap.Error(err))
	}
	docs, err := storage.NewDocumentStore(cfg.Upload.Dir, docKey, logger)
	if err != nil {
		logger.Fatal("Failed to initialize document store", zap.Error(err))
	}

	// Bootstrap the administrator account if configured
	if cfg.Admin.Enabled {
		authService := service.NewAuthService(repository.NewAuthRepository(db, log), cfg, logger)
		if err := authService.EnsureAdmin(cfg.Admin.Email, cfg.Admin.Password); err != nil {
			logger.Fatal("Failed to bootstrap admin user", zap.Error(err))
		}
	}

	// Optional reviewer notifications
	bot, err := notifier.New(cfg, logger)
	if err != nil {
		logger.Warn("Failed to initialize review notifier, continuing without it", zap.Error(err))
		bot = nil
	}

	// Context for graceful shutdown
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// Initialize and run the server
	srv := server.NewServer(db, cfg, docs, bot, logger, log)
	go srv.Run(cfg.Server.Port)

	<-ctx.Done()
	logger.Info("Application stopped.")
}
