package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/skillbadge/assessment-service/internal/auth"
	"github.com/skillbadge/assessment-service/internal/cache"
	"github.com/skillbadge/assessment-service/internal/handlers"
	"github.com/skillbadge/assessment-service/internal/payment"
	"github.com/skillbadge/assessment-service/internal/repositories/postgres"
	"github.com/skillbadge/assessment-service/internal/services"
	"github.com/skillbadge/assessment-service/internal/utils"
	"github.com/skillbadge/assessment-service/internal/validator"
	"github.com/skillbadge/assessment-service/pkg"
	"github.com/spf13/cobra"
)

const shutdownTimeout = 15 * time.Second

func serveCmd() *cobra.Command {
	var autoMigrate bool

	cmd := &cobra.Command{
		Use:   "serve",
		Short: "Start the HTTP API",
		RunE: func(cmd *cobra.Command, args []string) error {
			return runServe(cmd.Context(), autoMigrate)
		},
	}
	cmd.Flags().BoolVar(&autoMigrate, "migrate", false, "run database migrations before serving")
	return cmd
}

func runServe(ctx context.Context, autoMigrate bool) error {
	cfg, logger, err := bootstrap()
	if err != nil {
		return err
	}
	if err := cfg.Validate(); err != nil {
		return err
	}
	slogger := utils.ToSlogLogger(logger)

	db, err := pkg.InitDatabase(cfg)
	if err != nil {
		return err
	}
	if autoMigrate {
		if err := postgres.Migrate(db); err != nil {
			return err
		}
	}
	repo := postgres.NewRepository(db)
	defer repo.Close()

	// Redis only backs the role cache and verification locks, so the service can run without it
	cacheService := cache.NewNoopCache()
	if client, err := pkg.NewRedisClient(cfg); err != nil {
		logger.Warn("Redis unavailable, running without cache", "error", err)
	} else {
		defer client.Close()
		cacheService = cache.NewRedisCache(client, slogger)
	}

	publisher, err := cfg.Events.CreateEventPublisher(slogger)
	if err != nil {
		return fmt.Errorf("failed to create event publisher: %w", err)
	}
	defer func() {
		if err := publisher.Close(); err != nil {
			logger.Error("Failed to close event publisher", "error", err)
		}
	}()

	verifier, err := auth.NewVerifier(cfg)
	if err != nil {
		return err
	}

	serviceManager := services.NewServiceManager(services.Dependencies{
		Repo:           repo,
		Gateway:        payment.NewClient(cfg.Payment, slogger),
		Cache:          cacheService,
		Verifier:       verifier,
		EventPublisher: publisher,
		Config:         cfg,
		Logger:         slogger,
		Validator:      validator.New(),
	})

	if cfg.IsProduction() {
		gin.SetMode(gin.ReleaseMode)
	}
	router := gin.New()
	router.Use(utils.RequestID(), utils.LoggerMiddleware(logger), utils.ContextLogger(logger), gin.Recovery())
	handlers.NewHandlerManager(serviceManager, verifier, repo, logger).SetupRoutes(router)

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	errCh := make(chan error, 1)
	go func() {
		logger.Info("Starting server", "port", cfg.Port, "environment", cfg.Environment)
		if err := server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("Shutting down server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	return server.Shutdown(shutdownCtx)
}
