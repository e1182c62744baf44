package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/rickgao/voyagerbot/internal/command"
	"github.com/rickgao/voyagerbot/internal/config"
	"github.com/rickgao/voyagerbot/internal/connection"
	"github.com/rickgao/voyagerbot/internal/database"
	"github.com/rickgao/voyagerbot/internal/eventlog"
	"github.com/rickgao/voyagerbot/internal/handler"
	"github.com/rickgao/voyagerbot/internal/metrics"
	"github.com/rickgao/voyagerbot/internal/notify"
	"github.com/rickgao/voyagerbot/internal/router"
	"github.com/rickgao/voyagerbot/internal/stats"
	"github.com/rickgao/voyagerbot/internal/version"
)

func main() {
	configPath := flag.String("config", "configs/voyagerbot.yaml", "path to config file")
	logFormat := flag.String("log-format", "", "log format: text or json (overrides config)")
	showVersion := flag.Bool("version", false, "print version and exit")
	flag.Parse()

	if *showVersion {
		fmt.Println(version.String())
		return
	}

	// Load configuration
	cfg, err := config.LoadAndValidate(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}
	if *logFormat != "" {
		cfg.Log.Format = *logFormat
	}

	logger := newLogger(cfg.Log)
	slog.SetDefault(logger)

	logger.Info("starting voyagerbot",
		"version", version.Version,
		"commit", version.Commit,
		"config", *configPath,
	)

	if err := run(cfg, logger); err != nil {
		logger.Error("voyagerbot stopped with error", "error", err)
		os.Exit(1)
	}
	logger.Info("voyagerbot stopped")
}

func run(cfg *config.Config, logger *slog.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	metrics.Register()

	// Notifications
	var notifier notify.Notifier
	if cfg.Telegram.BotToken != "" {
		notifier = notify.NewTelegram(
			cfg.Telegram.APIURL,
			cfg.Telegram.BotToken,
			cfg.Telegram.ChatID,
			notify.WithLogger(logger),
			notify.WithTimeout(cfg.Telegram.Timeout),
			notify.WithRetries(cfg.Telegram.MaxRetries, time.Second),
		)
	} else {
		logger.Warn("no telegram bot token configured, notifications go to the log")
		notifier = notify.NewLog(logger)
	}
	outbox := notify.NewQueue(notifier, 0, logger)

	// Session, dispatcher and router
	sessCfg := sessionConfig(cfg.Voyager)
	sess := connection.NewSession(sessCfg, logger)
	disp := command.NewDispatcher(sess, logger)

	rcfg := router.Config{
		IgnoredEvents: cfg.Events.IgnoredEvents,
		CoalesceEvery: cfg.Events.CoalesceEvery,
	}
	if cfg.Database.Enabled() {
		rcfg.ArchiveBufferSize = cfg.Archive.BufferSize
		rcfg.ArchiveBufferMax = cfg.Archive.MaxBufferSize
	}
	rtr := router.NewRouter(rcfg, disp, logger)
	defer rtr.Close()

	rtr.Register(handler.New(handler.Config{
		ServerURL:       sessCfg.URL(),
		ExposureLimit:   cfg.Events.ExposureLimit,
		SendImages:      cfg.Events.SendImages,
		PinPreview:      cfg.Events.PinPreview,
		NotifyLogLevels: cfg.Events.NotifyLogLevels,
	}, outbox, stats.NewTracker(), logger))

	g, ctx := errgroup.WithContext(ctx)

	// Frame archive
	var db database.Pinger
	if cfg.Database.Enabled() {
		logger.Info("connecting to database",
			"host", cfg.Database.Host,
			"port", cfg.Database.Port,
			"database", cfg.Database.Name,
		)
		pool, err := database.Connect(ctx, cfg.Database)
		if err != nil {
			return fmt.Errorf("connect database: %w", err)
		}
		defer pool.Close()

		if err := database.EnsureSchema(ctx, pool); err != nil {
			return err
		}
		db = pool

		writer := eventlog.NewWriter(eventlog.Config{
			BatchSize:     cfg.Archive.BatchSize,
			FlushInterval: cfg.Archive.FlushInterval,
		}, rtr.Archive(), pool, logger)
		g.Go(func() error {
			return writer.Run(ctx)
		})
	}

	g.Go(func() error {
		return outbox.Run(ctx)
	})

	// Health and metrics
	healthServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.Metrics.Port),
		Handler:           newHealthHandler(cfg.Metrics.Path, sess, rtr, outbox, db),
		ReadHeaderTimeout: 5 * time.Second,
	}
	g.Go(func() error {
		logger.Info("starting health server", "port", cfg.Metrics.Port)
		if err := healthServer.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("health server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		return healthServer.Shutdown(shutdownCtx)
	})

	g.Go(func() error {
		logger.Info("connecting to voyager", "url", sessCfg.URL())
		return sess.Run(ctx, disp, rtr)
	})

	err := g.Wait()

	logger.Info("shutting down",
		"router", rtr.Stats(),
		"dispatcher", disp.Stats(),
		"session", sess.Stats(),
	)
	return err
}

func sessionConfig(v config.VoyagerConfig) connection.SessionConfig {
	cfg := connection.DefaultSessionConfig()
	cfg.Host = v.Host
	cfg.Port = v.Port
	cfg.Username = v.Username
	cfg.Password = v.Password
	cfg.AutoReconnect = v.Reconnect()
	cfg.ReconnectBaseDelay = v.ReconnectBaseDelay
	cfg.ReconnectMaxDelay = v.ReconnectMaxDelay
	cfg.KeepAliveInterval = v.KeepAliveInterval
	cfg.Client.HandshakeTimeout = v.HandshakeTimeout
	cfg.Client.ReadTimeout = v.ReadTimeout
	cfg.Client.WriteTimeout = v.WriteTimeout
	cfg.Client.BufferSize = v.BufferSize
	return cfg
}

func newLogger(cfg config.LogConfig) *slog.Logger {
	var level slog.Level
	if err := level.UnmarshalText([]byte(cfg.Level)); err != nil {
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}

	if cfg.Format == "json" {
		return slog.New(slog.NewJSONHandler(os.Stdout, opts))
	}
	return slog.New(slog.NewTextHandler(os.Stdout, opts))
}
