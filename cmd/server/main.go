package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"

	"go.uber.org/zap"

	"github.com/waiyanhtun/booksync/internal/config"
	"github.com/waiyanhtun/booksync/internal/importer"
	"github.com/waiyanhtun/booksync/internal/quickbooks"
	"github.com/waiyanhtun/booksync/internal/repository"
	"github.com/waiyanhtun/booksync/internal/server"
	"github.com/waiyanhtun/booksync/internal/sync"
	"github.com/waiyanhtun/booksync/pkg/database"
	"github.com/waiyanhtun/booksync/pkg/utils"
)

func main() {
	// Load configuration
	cfg, err := config.Load("configs/config.yaml")
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	// Initialize logger
	logger, err := utils.NewLogger(utils.LoggerConfig{
		Level:      cfg.Logger.Level,
		OutputPath: cfg.Logger.OutputPath,
		Format:     cfg.Logger.Format,
	})
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("Starting QuickBooks Sync Service",
		zap.String("version", "1.0.0"),
		zap.Int("port", cfg.Server.Port))

	// Ensure the database directory exists
	if dir := filepath.Dir(cfg.Database.Path); dir != "." {
		if err := os.MkdirAll(dir, 0755); err != nil {
			logger.Fatal("Failed to create data directory", zap.Error(err))
		}
	}

	// Initialize database
	db, err := database.New(database.Config{
		Path:            cfg.Database.Path,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
	}, logger)
	if err != nil {
		logger.Fatal("Failed to initialize database", zap.Error(err))
	}
	defer db.Close()

	// Run migrations
	migrator := database.NewMigrator(db, logger)
	if err := migrator.RunMigrations(cfg.Database.MigrationsDir); err != nil {
		logger.Fatal("Failed to run database migrations", zap.Error(err))
	}

	// Initialize repositories
	invoiceRepo := repository.NewInvoiceRepository(db.DB, logger)
	billRepo := repository.NewBillRepository(db.DB, logger)
	tokenRepo := repository.NewTokenRepository(db.DB, logger)

	// Initialize QuickBooks client and OAuth flow
	qbClient := quickbooks.NewClient(quickbooks.Config{
		BaseURL: cfg.QuickBooks.BaseURL,
		Timeout: cfg.QuickBooks.APITimeout,
	}, logger)

	oauthFlow := quickbooks.NewOAuthFlow(quickbooks.OAuthConfig{
		ClientID:     cfg.QuickBooks.ClientID,
		ClientSecret: cfg.QuickBooks.ClientSecret,
		RedirectURI:  cfg.QuickBooks.RedirectURI,
	}, logger)

	// Initialize the sync engine and importer
	uploader := sync.NewUploader(qbClient, invoiceRepo, billRepo, logger)
	workbookImporter := importer.New(invoiceRepo, billRepo, logger)

	// Initialize HTTP server
	handlers := server.NewHandlers(
		invoiceRepo,
		billRepo,
		tokenRepo,
		uploader,
		oauthFlow,
		workbookImporter,
		logger,
	)

	srv := server.New(server.Config{
		Host:         cfg.Server.Host,
		Port:         cfg.Server.Port,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}, handlers, logger)

	// Run until interrupted
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := srv.Start(ctx); err != nil {
		logger.Fatal("HTTP server failed", zap.Error(err))
	}

	logger.Info("Server exited successfully")
}
