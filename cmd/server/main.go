package main

import (
	"context"
	"errors"
	"log"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Skotchmaster/storefront/internal/config"
	"github.com/Skotchmaster/storefront/internal/httpserver"
	"github.com/Skotchmaster/storefront/internal/metrics"
	"github.com/Skotchmaster/storefront/internal/mykafka"
	"github.com/Skotchmaster/storefront/internal/notify"
	"github.com/Skotchmaster/storefront/internal/oauth"
	"github.com/Skotchmaster/storefront/internal/repo"
	"github.com/Skotchmaster/storefront/internal/search"
	"github.com/Skotchmaster/storefront/internal/service"
	"github.com/Skotchmaster/storefront/internal/storage"
	"github.com/Skotchmaster/storefront/pkg/db"
	"github.com/Skotchmaster/storefront/pkg/logging"
	authmw "github.com/Skotchmaster/storefront/pkg/middleware/auth"
	"github.com/Skotchmaster/storefront/pkg/middleware/csrf"
	"github.com/Skotchmaster/storefront/pkg/tokens"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("config error: %v", err)
	}

	logger := logging.New(cfg.LogLevel)
	slog.SetDefault(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	ctx = logging.IntoContext(ctx, logger)

	mp, shutdownMetrics, err := metrics.InitProvider(ctx, metrics.OTLPConfig{
		ServiceName: "storefront",
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

	initCtx, cancel := context.WithTimeout(ctx, 10*time.Second)
	gdb, err := db.Open(initCtx, cfg.DatabaseURL)
	cancel()
	if err != nil {
		log.Fatalf("db init error: %v", err)
	}
	if err := repo.AutoMigrate(gdb); err != nil {
		log.Fatalf("db migrate error: %v", err)
	}
	store := repo.New(gdb)

	// Intents go to Kafka for cmd/notifier when brokers are configured,
	// otherwise to an in-process queue drained by a local worker.
	var (
		queue       notify.Queue
		producer    *mykafka.Producer
		memQueue    *notify.MemoryQueue
		workerDone  = make(chan struct{})
		chatPublish service.Publisher
	)
	if cfg.KafkaEnabled() {
		producer = mykafka.NewProducer(cfg.KafkaBrokers)
		queue = notify.NewKafkaQueue(producer, cfg.NotifyTopic)
		chatPublish = producer
		close(workerDone)
	} else {
		memQueue = notify.NewMemoryQueue(cfg.NotifyBufferSize)
		queue = memQueue
		worker := &notify.Worker{Source: memQueue, Mailer: newMailer(cfg), Metrics: business}
		go func() {
			defer close(workerDone)
			_ = worker.Run(context.WithoutCancel(ctx))
		}()
	}
	notifier := notify.NewNotifier(queue)

	var index service.Indexer
	if cfg.ESURL != "" {
		esCtx, esCancel := context.WithTimeout(ctx, 10*time.Second)
		es, err := search.NewClient(esCtx, search.Config{URL: cfg.ESURL, User: cfg.ESUser, Password: cfg.ESPassword})
		if err == nil {
			pi := search.NewProductIndex(es, cfg.ESIndex)
			if err = pi.EnsureIndex(esCtx); err == nil {
				index = pi
			}
		}
		esCancel()
		if err != nil {
			logger.Warn("search_disabled", "reason", "elasticsearch unavailable", "error", err)
		}
	}

	issuer := &tokens.Issuer{
		AccessSecret:  cfg.JWTSecret,
		RefreshSecret: cfg.RefreshSecret,
		AccessTTL:     cfg.AccessTTL,
		RefreshTTL:    cfg.RefreshTTL,
	}
	authSvc := &service.AuthService{
		Repo:     store,
		Issuer:   issuer,
		Notifier: notifier,
		ResetURL: cfg.PublicURL + "/reset-password?token=",
	}
	userSvc := &service.UserService{
		Repo:       store,
		Notifier:   notifier,
		Metrics:    business,
		Documents:  storage.NewLocal(cfg.UploadDir),
		Inactivity: cfg.Inactivity,
	}
	cartSvc := &service.CartService{Repo: store, Metrics: business}
	catalogSvc := &service.CatalogService{Repo: store, Index: index, Notifier: notifier}
	chatSvc := &service.ChatService{Repo: store, Publisher: chatPublish, Topic: cfg.ChatTopic}

	var gh *oauth.GitHub
	if cfg.GitHubEnabled() {
		gh = oauth.NewGitHub(cfg.GitHubClientID, cfg.GitHubClientSecret, cfg.GitHubCallbackURL)
	}

	deps := &httpserver.Deps{
		Logger:   logger,
		Sessions: &httpserver.SessionHTTP{Auth: authSvc, Users: userSvc, GitHub: gh, SecureCookies: cfg.SecureCookies},
		Products: &httpserver.ProductHTTP{Svc: catalogSvc},
		Carts:    &httpserver.CartHTTP{Svc: cartSvc},
		Users:    &httpserver.UserHTTP{Svc: userSvc},
		Chat:     &httpserver.ChatHTTP{Svc: chatSvc},

		JWTSecret: cfg.JWTSecret,
		Refresher: authmw.RefresherFunc(func(ctx context.Context, rt string) (*tokens.Pair, error) {
			res, err := authSvc.Refresh(ctx, rt)
			if err != nil {
				return nil, err
			}
			return res.Pair, nil
		}),
		SecureCookies: cfg.SecureCookies,
		LoginPath:     cfg.LoginPath,
		Metrics:       metrics.NewServerMetrics("api"),
		Ready: func(ctx context.Context) error {
			sqlDB, err := gdb.DB()
			if err != nil {
				return err
			}
			return sqlDB.PingContext(ctx)
		},
	}
	if cfg.CSRFEnabled {
		c := csrf.DefaultConfig()
		c.Secure = cfg.SecureCookies
		c.SkipPrefixes = []string{"/api/sessions/", "/api/auth/"}
		deps.CSRF = &c
	}
	e := httpserver.New(deps)

	if cfg.PurgeInterval > 0 {
		go runPurge(ctx, userSvc, cfg.PurgeInterval)
	}

	go func() {
		logger.Info("server_starting", "port", cfg.Port)
		if err := e.Start(":" + cfg.Port); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("echo start: %v", err)
		}
	}()

	<-ctx.Done()
	logger.Info("server_shutting_down")

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := e.Shutdown(shutdownCtx); err != nil {
		logger.Error("echo_shutdown_failed", "error", err)
	}
	if memQueue != nil {
		memQueue.Close()
	}
	select {
	case <-workerDone:
	case <-shutdownCtx.Done():
		logger.Warn("notify_worker_shutdown_timeout")
	}
	if producer != nil {
		if err := producer.Close(); err != nil {
			logger.Error("kafka_close_failed", "error", err)
		}
	}
	if err := shutdownMetrics(shutdownCtx); err != nil {
		logger.Error("metrics_shutdown_failed", "error", err)
	}
	if err := db.Close(gdb); err != nil {
		logger.Error("db_close_failed", "error", err)
	}
	logger.Info("server_stopped")
}

func newMailer(cfg *config.Config) notify.Mailer {
	if cfg.SMTPHost == "" {
		return notify.LogMailer{}
	}
	return notify.NewSMTPMailer(notify.SMTPConfig{
		Host:     cfg.SMTPHost,
		Port:     cfg.SMTPPort,
		Username: cfg.SMTPUser,
		Password: cfg.SMTPPassword,
		From:     cfg.SMTPFrom,
	})
}

func runPurge(ctx context.Context, users *service.UserService, every time.Duration) {
	l := logging.FromContext(ctx).With("job", "purge_inactive")
	ticker := time.NewTicker(every)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			deleted, err := users.PurgeInactive(ctx)
			if err != nil {
				l.Error("purge_failed", "error", err)
				continue
			}
			l.Info("purge_completed", "count", len(deleted))
		}
	}
}
