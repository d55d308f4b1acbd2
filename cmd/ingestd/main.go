// Package main wires together the article ingest service binary.
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/tetuya0525/article-ingest-service/internal/api"
	"github.com/tetuya0525/article-ingest-service/internal/app"
	"github.com/tetuya0525/article-ingest-service/internal/clock/system"
	"github.com/tetuya0525/article-ingest-service/internal/config"
	"github.com/tetuya0525/article-ingest-service/internal/hash/sha256"
	"github.com/tetuya0525/article-ingest-service/internal/id/uuid"
	"github.com/tetuya0525/article-ingest-service/internal/ingest"
	"github.com/tetuya0525/article-ingest-service/internal/logging"
)

func main() {
	cfgPath := flag.String("config", "", "Path to config file")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "load config failed: %v\n", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Logging.Development)
	if err != nil {
		fmt.Fprintf(os.Stderr, "logger init failed: %v\n", err)
		os.Exit(1)
	}
	defer func() {
		if syncErr := logger.Sync(); syncErr != nil {
			fmt.Fprintf(os.Stderr, "logger sync failed: %v\n", syncErr)
		}
	}()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	services, err := app.New(ctx, cfg, logger.Named("app"))
	if err != nil {
		logger.Error("service initialization failed", zap.Error(err))
		os.Exit(1)
	}
	defer services.Close()

	svc := ingest.NewService(
		services.Store(),
		services.Archiver(),
		services.Publisher(),
		sha256.New(),
		system.New(),
		uuid.New(),
		ingest.Config{
			Topic:              cfg.Publisher.TopicID,
			ArchivePrefix:      cfg.Archive.Prefix,
			ArchiveContentType: cfg.Archive.ContentType,
			ArchiveMinBytes:    cfg.Archive.MinBytes,
		},
		logger.Named("ingest"),
	)

	apiServer := api.NewServer(svc, cfg, logger.Named("api"))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:           apiServer.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	go func() {
		logger.Info("http server started", zap.Int("port", cfg.Server.Port))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.Error("http server error", zap.Error(err))
			stop()
		}
	}()

	<-ctx.Done()
	logger.Info("shutdown initiated")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("server shutdown error", zap.Error(err))
	}
	logger.Info("shutdown complete")
}
