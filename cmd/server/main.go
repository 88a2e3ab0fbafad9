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

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"golang.org/x/sync/errgroup"

	"github.com/kafkaviz/kafkaviz-server-go/internal/bus"
	"github.com/kafkaviz/kafkaviz-server-go/internal/config"
	"github.com/kafkaviz/kafkaviz-server-go/internal/lesson"
	"github.com/kafkaviz/kafkaviz-server-go/internal/server"
)

var (
	configPath = flag.String("config", "config/config.yaml", "path to configuration file")
	version    = "dev" // set via ldflags during build
)

func main() {
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to load configuration: %v\n", err)
		os.Exit(1)
	}

	logger, err := initLogger(cfg.Logging)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	logger.Info("starting kafkaviz server",
		zap.String("version", version),
		zap.String("config", *configPath),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	catalog := lesson.NewCatalog(cfg.Lessons.Dir, logger)
	if err := catalog.Load(); err != nil {
		logger.Fatal("failed to load lesson catalog", zap.Error(err))
	}
	logger.Info("lesson catalog loaded", zap.Int("lessons", len(catalog.List())))

	eventBus := bus.New(logger)
	director := server.NewDirector(eventBus, catalog, cfg.Animation.MaxSpeed, logger)
	defer director.Close()

	if err := director.SelectLesson(ctx, cfg.Lessons.Default); err != nil {
		logger.Fatal("failed to select default lesson",
			zap.String("slug", cfg.Lessons.Default),
			zap.Error(err),
		)
	}
	director.SetSpeed(cfg.Animation.DefaultSpeed)
	director.Play()

	hub := server.NewHub(director, logger)
	api := server.NewAPI(director, hub, logger)

	httpServer := &http.Server{
		Addr:         cfg.Server.Address,
		Handler:      api.Router(ctx, cfg.Server.AllowedOrigins, cfg.Metrics.Enabled, cfg.Metrics.Path),
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		hub.Run(gctx, cfg.Animation.FrameInterval)
		return nil
	})

	if cfg.Lessons.Watch && cfg.Lessons.Dir != "" {
		g.Go(func() error {
			return catalog.Watch(gctx)
		})
	}

	g.Go(func() error {
		logger.Info("http server listening", zap.String("address", cfg.Server.Address))
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutting down gracefully...")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		logger.Error("server exited with error", zap.Error(err))
		os.Exit(1)
	}
	logger.Info("kafkaviz server stopped")
}

// initLogger initializes the zap logger based on configuration.
func initLogger(cfg config.LoggingConfig) (*zap.Logger, error) {
	var level zapcore.Level
	switch cfg.Level {
	case "debug":
		level = zapcore.DebugLevel
	case "info":
		level = zapcore.InfoLevel
	case "warn":
		level = zapcore.WarnLevel
	case "error":
		level = zapcore.ErrorLevel
	default:
		level = zapcore.InfoLevel
	}

	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
		zapCfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	}

	zapCfg.Level = zap.NewAtomicLevelAt(level)

	return zapCfg.Build()
}
