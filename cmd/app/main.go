package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/taxpilot/dashboard-notifications/internal/config"
	"github.com/taxpilot/dashboard-notifications/internal/handler"
	"github.com/taxpilot/dashboard-notifications/internal/mailer"
	"github.com/taxpilot/dashboard-notifications/internal/rabbitmq"
	"github.com/taxpilot/dashboard-notifications/internal/repository"
	"github.com/taxpilot/dashboard-notifications/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const SHUTDOWN_TIMEOUT = 10 * time.Second

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGTERM, syscall.SIGINT)
	defer stop()

	if err := config.LoadEnv(".env"); err != nil {
		log.Fatalf("failed to load environment variables: %s", err.Error())
	}

	if err := config.Init("."); err != nil {
		log.Fatalf("failed to initialize config: %s", err.Error())
	}

	cfg, err := config.Get()
	if err != nil {
		log.Fatalf("invalid config: %s", err.Error())
	}

	logger, err := newLogger(cfg.LogPath)
	if err != nil {
		log.Fatalf("failed to create zap logger: %s", err.Error())
	}
	defer logger.Sync()

	store, err := repository.New(ctx, logger, cfg.Store)
	if err != nil {
		logger.Sugar().Fatalf("failed to open %s store: %s", cfg.Store.Driver, err.Error())
	}
	defer store.Close()
	logger.Sugar().Infof("Successfully opened %s store", cfg.Store.Driver)

	var mq *rabbitmq.MQConn
	if cfg.IngestEnabled {
		mq, err = rabbitmq.New(cfg.RabbitMQURL)
		if err != nil {
			logger.Sugar().Fatalf("failed to connect to rabbitmq: %s", err.Error())
		}
		defer mq.Close()
	}

	services, err := service.New(logger, store, service.Options{
		Path:           cfg.Store.Path,
		RabbitMQ:       mq,
		Mailer:         mailer.New(logger, cfg.Mail),
		DigestInterval: cfg.DigestInterval,
	})
	if err != nil {
		logger.Sugar().Fatalf("failed to create services: %s", err.Error())
	}

	// A feed that fails to connect is reported to dashboards as "unable to
	// load notifications"; the server still starts.
	if err := services.Feed.Start(ctx); err != nil {
		logger.Sugar().Errorf("notification feed failed to start: %s", err.Error())
	}
	defer services.Feed.Stop()

	if err := services.Jobs.StartJobs(); err != nil {
		logger.Sugar().Fatalf("failed to start jobs: %s", err.Error())
	}
	defer services.Jobs.Shutdown()

	if services.Ingest != nil {
		if err := services.Ingest.StartConsuming(ctx); err != nil {
			logger.Sugar().Fatalf("failed to start consuming notification queues: %s", err.Error())
		}
	}

	handlers := handler.New(logger, services, handler.NewJWTAuthenticator(cfg.AccessSecret))
	srv := &http.Server{
		Addr:    cfg.Port,
		Handler: handlers.SetupRoutes(),
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		logger.Info("Notification service shutting down")

		shutdownCtx, cancel := context.WithTimeout(context.Background(), SHUTDOWN_TIMEOUT)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	})

	logger.Sugar().Infof("Notification service started on %s", cfg.Port)

	if err := g.Wait(); err != nil {
		logger.Sugar().Errorf("notification service stopped: %s", err.Error())
	}
}

func newLogger(logPath string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.OutputPaths = []string{
		logPath,
		"stderr",
	}
	return cfg.Build()
}
