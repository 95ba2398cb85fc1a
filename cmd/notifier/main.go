package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/notify"
	pkgcfg "github.com/Skotchmaster/storefront/pkg/config"
	"github.com/Skotchmaster/storefront/pkg/logging"
)

// notifier drains notification intents from Kafka and mails them.
func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}
	pkgcfg.MustNonEmpty(strings.Join(cfg.KafkaBrokers, ","), "KAFKA_BROKERS")

	logger := logging.New(cfg.LogLevel).With("service", "notifier")
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	mp, shutdownMetrics, err := metrics.InitProvider(ctx, metrics.OTLPConfig{
		ServiceName: "storefront-notifier",
		Endpoint:    cfg.OTLPEndpoint,
		Insecure:    cfg.OTLPInsecure,
	})
	if err != nil {
		log.Fatalf("metrics init error: %v", err)
	}
	business, err := metrics.NewBusiness(mp)
	if err != nil {
		log.Fatalf("metrics init error: %v", err)
	}

	reader := mykafka.NewReader(cfg.KafkaBrokers, cfg.NotifyTopic, cfg.NotifyGroupID)
	source := notify.NewKafkaSource(reader)

	var mailer notify.Mailer = notify.LogMailer{}
	if cfg.SMTPHost != "" {
		mailer = notify.NewSMTPMailer(notify.SMTPConfig{
			Host:     cfg.SMTPHost,
			Port:     cfg.SMTPPort,
			Username: cfg.SMTPUser,
			Password: cfg.SMTPPassword,
			From:     cfg.SMTPFrom,
		})
	}

	worker := &notify.Worker{Source: source, Mailer: mailer, Metrics: business}
	done := make(chan struct{})
	go func() {
		defer close(done)
		if err := worker.Run(ctx); err != nil {
			logger.Error("notify_worker_failed", "error", err)
		}
	}()

	srvMetrics := metrics.NewServerMetrics("notifier")
	e := echo.New()
	e.HideBanner = true
	e.Use(middleware.Recover())
	e.GET("/health/live", func(c echo.Context) error {
		return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
	})
	e.GET("/metrics", echo.WrapHandler(srvMetrics.Handler()))

	go func() {
		logger.Info("notifier_starting", "port", cfg.Port, "topic", cfg.NotifyTopic, "group", cfg.NotifyGroupID)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("notifier_shutting_down")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}
	select {
	case <-done:
	case <-shutdownCtx.Done():
		logger.Warn("notify_worker_shutdown_timeout")
	}
	if err := source.Close(); err != nil {
		logger.Error("kafka_close_failed", "error", err)
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		logger.Error("metrics_shutdown_failed", "error", err)
	}
	logger.Info("notifier_stopped")
}
