package main

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"tablepos/internal/config"
	"tablepos/internal/infra"
	"tablepos/internal/printing"
	"tablepos/internal/router"
	"tablepos/internal/worker"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatal().Err(err).Msg("failed to load config")
	}
	setupLogger(cfg)

	db, err := infra.NewDatabase(cfg.DatabaseURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to postgres")
	}

	rdb, err := infra.NewRedis(cfg.RedisURL)
	if err != nil {
		log.Fatal().Err(err).Msg("failed to connect to redis")
	}

	profiles, err := printing.LoadProfiles(cfg.PrinterProfilesFile)
	if err != nil {
		log.Fatal().Err(err).Str("file", cfg.PrinterProfilesFile).Msg("failed to load printer profiles")
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	platform := router.Platform{
		DB:         db,
		Redis:      rdb,
		Dispatcher: newDispatcher(cfg, rdb),
		Profiles:   profiles,
		Jobs:       worker.NewDispatcher(rdb),
	}

	if cfg.KitchenAMQPURL != "" {
		kitchen, err := infra.NewKitchenPublisher(cfg.KitchenAMQPURL, cfg.KitchenExchange)
		if err != nil {
			// Kitchen screens are optional; printing works without them.
			log.Error().Err(err).Msg("kitchen feed disabled")
		} else {
			defer kitchen.Close()
			platform.Kitchen = kitchen
		}
	}

	svc := router.NewServices(cfg, platform)

	// Worker handlers are wired here (composition root) so that the pool
	// has full access to all infrastructure dependencies.
	mailer := infra.NewMailer(cfg)
	workerHandlers := &worker.WorkerHandlers{
		BillArchive: worker.NewBillArchiveWorker(svc.Bills, infra.GenerateReceiptPDF, platform.Jobs, cfg.PDFStoragePath),
		Email:       worker.NewEmailWorker(mailer),
	}
	worker.StartWorkerPool(ctx, rdb, workerHandlers, cfg.WorkerPoolSize)

	r := router.New(cfg, platform, svc)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      r,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown on SIGINT / SIGTERM
	go func() {
		log.Info().Msgf("tablepos listening on :%d", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatal().Err(err).Msg("server error")
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("shutting down server…")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer shutdownCancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Fatal().Err(err).Msg("forced shutdown")
	}
	log.Info().Msg("server exited")
}

// setupLogger configures the global zerolog logger. Dev: pretty console,
// prod: JSON. LOG_FILE adds a rotated JSON copy.
func setupLogger(cfg *config.Config) {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)

	var out io.Writer = os.Stderr
	if !cfg.IsProduction() {
		out = zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.RFC3339}
	}
	if cfg.LogFile != "" {
		out = zerolog.MultiLevelWriter(out, &lumberjack.Logger{
			Filename:   cfg.LogFile,
			MaxSize:    32, // megabytes
			MaxBackups: 3,
			MaxAge:     28, // days
			Compress:   true,
		})
	}
	log.Logger = zerolog.New(out).With().Timestamp().Logger()
}

// newDispatcher builds the print dispatcher from the configured targets.
func newDispatcher(cfg *config.Config, rdb *redis.Client) *printing.Dispatcher {
	dc := printing.DispatcherConfig{PrinterTextMode: cfg.PrinterTextMode}

	switch cfg.BridgeMode {
	case "http":
		if cfg.BridgeURL == "" {
			log.Warn().Msg("BRIDGE_MODE=http without BRIDGE_URL, bridge disabled")
			break
		}
		dc.Bridge = infra.NewHTTPBridge(cfg.BridgeURL, nil)
	case "redis":
		dc.Bridge = infra.NewRedisBridge(rdb, cfg.BridgeChannelPrefix)
	case "off", "":
	default:
		log.Warn().Str("mode", cfg.BridgeMode).Msg("unknown BRIDGE_MODE, bridge disabled")
	}

	if cfg.NetworkPrinterAddr != "" {
		dc.Printer = printing.NewNetworkPrinter(cfg.NetworkPrinterAddr, 0)
	}

	log.Info().
		Bool("bridge", dc.Bridge != nil).
		Bool("network_printer", dc.Printer != nil).
		Bool("text_mode", dc.PrinterTextMode).
		Msg("print targets configured")
	return printing.NewDispatcher(dc)
}
