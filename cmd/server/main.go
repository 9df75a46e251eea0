package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/pricelens/backend/config"
	"github.com/pricelens/backend/internal/app"
	httpDelivery "github.com/pricelens/backend/internal/delivery/http"
	"github.com/pricelens/backend/internal/domain"
	"github.com/pricelens/backend/internal/infrastructure/knowledgebase"
	"github.com/pricelens/backend/internal/infrastructure/logging"
)

func main() {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load configuration: %v", err)
	}

	logger, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		log.Fatalf("Failed to build logger: %v", err)
	}
	defer logger.Sync()

	if err := run(cfg, logger); err != nil {
		logger.Fatal("server stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, logger *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info("starting PriceLens backend",
		zap.String("version", "1.0.0"),
		zap.String("environment", cfg.Server.Environment),
		zap.String("port", cfg.Server.Port),
		zap.String("cache", cfg.Cache.Type))

	roles := domain.DefaultRoles()
	if err := domain.ValidateRoles(roles); err != nil {
		return err
	}

	services, err := app.Build(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer services.Close()

	if _, err := services.Store.Load(ctx); err != nil {
		// A broken file must not keep the API down; KB lookups fail per request instead.
		logger.Error("knowledge base unreadable at startup", zap.String("path", cfg.KnowledgeBase.Path), zap.Error(err))
	}
	if cfg.KnowledgeBase.Watch {
		watcher, err := knowledgebase.NewWatcher(services.Store, logger)
		if err != nil {
			logger.Warn("knowledge base watcher unavailable", zap.Error(err))
		} else {
			defer watcher.Stop()
			if _, err := watcher.Start(ctx); err != nil {
				logger.Warn("knowledge base watcher failed to start", zap.Error(err))
			}
		}
	}

	handler := httpDelivery.NewHandler(services.Reconciler, services.KnowledgeBase, httpDelivery.HandlerConfig{
		DefaultMargin:    cfg.Pricing.DefaultMargin,
		DefaultPlatforms: services.Platforms,
		Roles:            roles,
	}, logger)

	router := httpDelivery.SetupRouter(cfg, handler, logger)

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%s", cfg.Server.Port),
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		logger.Info("server listening", zap.String("addr", srv.Addr))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	logger.Info("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	return srv.Shutdown(shutdownCtx)
}
