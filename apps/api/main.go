package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/caarlos0/env/v11"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	apartmentshandler "github.com/zenGate-Global/rentboard/domains/apartments/be/handler"
	apartmentsrepo "github.com/zenGate-Global/rentboard/domains/apartments/be/repo"
	apartmentsservice "github.com/zenGate-Global/rentboard/domains/apartments/be/service"
	credentialshandler "github.com/zenGate-Global/rentboard/domains/credentials/be/handler"
	credentialsrepo "github.com/zenGate-Global/rentboard/domains/credentials/be/repo"
	credentialsservice "github.com/zenGate-Global/rentboard/domains/credentials/be/service"
	feedshandler "github.com/zenGate-Global/rentboard/domains/feeds/be/handler"
	feedsservice "github.com/zenGate-Global/rentboard/domains/feeds/be/service"
	listingshandler "github.com/zenGate-Global/rentboard/domains/listings/be/handler"
	"github.com/zenGate-Global/rentboard/domains/listings/be/partner/olx"
	"github.com/zenGate-Global/rentboard/domains/listings/be/partner/otodom"
	listingsservice "github.com/zenGate-Global/rentboard/domains/listings/be/service"
	webhookshandler "github.com/zenGate-Global/rentboard/domains/webhooks/be/handler"
	"github.com/zenGate-Global/rentboard/domains/webhooks/be/queue"
	webhooksrepo "github.com/zenGate-Global/rentboard/domains/webhooks/be/repo"
	webhooksservice "github.com/zenGate-Global/rentboard/domains/webhooks/be/service"
	platformlogging "github.com/zenGate-Global/rentboard/platform/go/logging"
	"github.com/zenGate-Global/rentboard/platform/go/partnerhttp"
	"github.com/zenGate-Global/rentboard/platform/go/persistence"
	"github.com/zenGate-Global/rentboard/platform/go/setups"
)

type config struct {
	Port            string        `env:"PORT" envDefault:"3000"`
	ShutdownTimeout time.Duration `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	RequestTimeout  time.Duration `env:"REQUEST_TIMEOUT" envDefault:"15s"`
	LogLevel        string        `env:"LOG_LEVEL" envDefault:"info"`
	DatabaseURL     string        `env:"DATABASE_URL,required"`
	DBMaxConns      int32         `env:"DB_MAX_CONNS" envDefault:"10"`
	DBConnectTries  int           `env:"DB_CONNECT_ATTEMPTS" envDefault:"5"`
	BootstrapSchema bool          `env:"BOOTSTRAP_SCHEMA" envDefault:"true"`
	AuthProvider    string        `env:"AUTH_PROVIDER" envDefault:"firebase"` // firebase | dev
	CORSOrigins     []string      `env:"CORS_ALLOWED_ORIGINS" envSeparator:","`
	PublicBaseURL   string        `env:"PUBLIC_BASE_URL,required"`

	WebhookSecret           string        `env:"WEBHOOK_SECRET"`
	WebhookRequireSignature bool          `env:"WEBHOOK_REQUIRE_SIGNATURE" envDefault:"false"`
	WebhookQueue            string        `env:"WEBHOOK_QUEUE" envDefault:"memory"` // memory | amqp
	WebhookWorkers          int           `env:"WEBHOOK_WORKERS" envDefault:"4"`
	WebhookTaskTimeout      time.Duration `env:"WEBHOOK_TASK_TIMEOUT" envDefault:"30s"`
	AMQPURL                 string        `env:"AMQP_URL"`
	AMQPQueue               string        `env:"AMQP_QUEUE" envDefault:"rentboard.webhooks"`

	PartnerTimeout       time.Duration `env:"PARTNER_TIMEOUT" envDefault:"15s"`
	PartnerRatePerSecond float64       `env:"PARTNER_RATE_PER_SECOND" envDefault:"5"`
	PartnerBurst         int           `env:"PARTNER_BURST" envDefault:"5"`

	OLXAPIBaseURL    string `env:"OLX_API_BASE_URL"`
	OLXAuthURL       string `env:"OLX_AUTH_URL"`
	OLXTokenURL      string `env:"OLX_TOKEN_URL"`
	OtodomAPIBaseURL string `env:"OTODOM_API_BASE_URL"`
	OtodomAuthURL    string `env:"OTODOM_AUTH_URL"`
	OtodomTokenURL   string `env:"OTODOM_TOKEN_URL"`

	FluentHost string `env:"FLUENT_HOST"`
	FluentPort int    `env:"FLUENT_PORT" envDefault:"24224"`
	FluentTag  string `env:"FLUENT_TAG" envDefault:"rentboard.api"`
}

func main() {
	if err := setups.LoadDotEnv(); err != nil {
		log.Fatalf("load .env: %v", err)
	}

	var cfg config
	if err := env.Parse(&cfg); err != nil {
		log.Fatalf("load config: %v", err)
	}

	logger, closeLogs, err := platformlogging.NewLogger(platformlogging.Config{
		Component:  "api-server",
		Level:      cfg.LogLevel,
		FluentHost: cfg.FluentHost,
		FluentPort: cfg.FluentPort,
		FluentTag:  cfg.FluentTag,
	})
	if err != nil {
		log.Fatalf("init zap logger: %v", err)
	}
	defer func() {
		_ = logger.Sync()
		_ = closeLogs()
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("api server stopped", zap.Error(err))
	}
}

func run(ctx context.Context, cfg config, logger *zap.Logger) error {
	pool, err := persistence.NewPool(ctx, persistence.PoolConfig{
		ConnString:      cfg.DatabaseURL,
		ApplicationName: "rentboard-api",
		MaxConns:        cfg.DBMaxConns,
		ConnectAttempts: cfg.DBConnectTries,
	})
	if err != nil {
		return err
	}
	defer persistence.ClosePool(pool)

	if cfg.BootstrapSchema {
		if err := persistence.BootstrapSchema(ctx, pool); err != nil {
			return err
		}
	}

	apartmentStore, err := persistence.NewApartmentStore(pool)
	if err != nil {
		return err
	}
	credentialStore, err := persistence.NewCredentialStore(pool)
	if err != nil {
		return err
	}
	failureStore, err := persistence.NewWebhookFailureStore(pool)
	if err != nil {
		return err
	}

	partnerClient := partnerhttp.New(partnerhttp.Config{
		Timeout:       cfg.PartnerTimeout,
		RatePerSecond: cfg.PartnerRatePerSecond,
		Burst:         cfg.PartnerBurst,
	})

	apartments := apartmentsrepo.NewPostgresRepository(apartmentStore)
	failures := webhooksrepo.NewPostgresFailureLog(failureStore)

	credentials := credentialsservice.New(credentialsrepo.NewPostgresRepository(credentialStore), credentialsservice.Config{
		PublicBaseURL: cfg.PublicBaseURL,
		OLX:           credentialsservice.Endpoints{AuthURL: cfg.OLXAuthURL, TokenURL: cfg.OLXTokenURL},
		Otodom:        credentialsservice.Endpoints{AuthURL: cfg.OtodomAuthURL, TokenURL: cfg.OtodomTokenURL},
		HTTPClient:    partnerClient,
		Logger:        logger.Named("credentials"),
	})

	listings := listingsservice.New(apartments, logger.Named("listings"),
		olx.New(credentials, olx.Config{BaseURL: cfg.OLXAPIBaseURL, PublicBaseURL: cfg.PublicBaseURL, HTTPClient: partnerClient}),
		otodom.New(credentials, otodom.Config{BaseURL: cfg.OtodomAPIBaseURL, PublicBaseURL: cfg.PublicBaseURL, HTTPClient: partnerClient}),
	)

	webhookQueue, closeQueue, err := buildQueue(cfg, logger)
	if err != nil {
		return err
	}
	defer closeQueue()

	processor := webhooksservice.NewProcessor(listingsservice.NewReconciler(apartments, logger.Named("reconciler")), failures, logger.Named("webhooks"))
	intake := webhooksservice.New(webhookQueue, failures, webhooksservice.Config{
		Secret:           cfg.WebhookSecret,
		RequireSignature: cfg.WebhookRequireSignature,
	}, logger.Named("webhooks"))
	if cfg.WebhookSecret == "" {
		logger.Warn("WEBHOOK_SECRET is not set; webhook notifications are processed unverified")
	}

	authMiddleware, err := buildAuthMiddleware(ctx, cfg, logger)
	if err != nil {
		return err
	}

	router, err := newRouter(ctx, routerConfig{
		RequestTimeout: cfg.RequestTimeout,
		CORSOrigins:    cfg.CORSOrigins,
		Auth:           authMiddleware,
		Ready: func(ctx context.Context) error {
			return persistence.Ready(ctx, pool)
		},
	}, routeHandlers{
		Apartments:  apartmentshandler.New(apartmentsservice.New(apartments), logger),
		Credentials: credentialshandler.New(credentials, logger),
		Listings:    listingshandler.New(listings, logger),
		Webhooks:    webhookshandler.New(intake, logger),
		Feeds:       feedshandler.New(feedsservice.New(apartments, feedsservice.Config{BaseURL: cfg.PublicBaseURL}, logger.Named("feeds")), logger),
	}, logger)
	if err != nil {
		return err
	}

	server := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  2 * time.Minute,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		logger.Info("starting api server", zap.String("port", cfg.Port))
		if err := server.ListenAndServe(); !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		return webhookQueue.Run(gctx, processor.Handle)
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			logger.Error("graceful shutdown failed", zap.Error(err))
		}
		return nil
	})

	return g.Wait()
}

func buildQueue(cfg config, logger *zap.Logger) (queue.Queue, func(), error) {
	switch cfg.WebhookQueue {
	case "memory", "":
		return queue.NewMemoryQueue(queue.MemoryConfig{
			Workers:     cfg.WebhookWorkers,
			TaskTimeout: cfg.WebhookTaskTimeout,
			Logger:      logger,
		}), func() {}, nil
	case "amqp":
		if cfg.AMQPURL == "" {
			return nil, nil, errors.New("AMQP_URL is required when WEBHOOK_QUEUE=amqp")
		}
		q, err := queue.DialAMQP(queue.AMQPConfig{
			URL:         cfg.AMQPURL,
			Queue:       cfg.AMQPQueue,
			Prefetch:    cfg.WebhookWorkers,
			TaskTimeout: cfg.WebhookTaskTimeout,
			Logger:      logger,
		})
		if err != nil {
			return nil, nil, err
		}
		return q, func() {
			if err := q.Close(); err != nil {
				logger.Warn("close amqp queue", zap.Error(err))
			}
		}, nil
	default:
		return nil, nil, errors.New("invalid WEBHOOK_QUEUE (use memory or amqp)")
	}
}
