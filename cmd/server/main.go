// server runs the device transfer HTTP API, the expired-code sweeper and the
// notification fan-out. Without DATABASE_URL it runs on in-memory stores for local development.
package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"festival-companion/backend/internal/audit"
	auditrepo "festival-companion/backend/internal/audit/repository"
	"festival-companion/backend/internal/config"
	"festival-companion/backend/internal/db"
	healthhandler "festival-companion/backend/internal/health/handler"
	identityrepo "festival-companion/backend/internal/identity/repository"
	"festival-companion/backend/internal/metrics"
	"festival-companion/backend/internal/notify"
	"festival-companion/backend/internal/notify/broadcast"
	"festival-companion/backend/internal/platform/logging"
	"festival-companion/backend/internal/platform/ratelimiter"
	"festival-companion/backend/internal/policy/engine"
	"festival-companion/backend/internal/security"
	"festival-companion/backend/internal/server"
	"festival-companion/backend/internal/server/middleware"
	"festival-companion/backend/internal/subscription"
	subhandler "festival-companion/backend/internal/subscription/handler"
	subrepo "festival-companion/backend/internal/subscription/repository"
	"festival-companion/backend/internal/telemetry"
	otelsetup "festival-companion/backend/internal/telemetry/otel"
	"festival-companion/backend/internal/telemetry/producer"
	transferhandler "festival-companion/backend/internal/transfer/handler"
	transferrepo "festival-companion/backend/internal/transfer/repository"
	"festival-companion/backend/internal/transfer/service"
	"festival-companion/backend/internal/transfer/sweeper"
)

const (
	metricsNamespace = "festival_transfer"
	memoryHubBuffer  = 64
	pushHTTPTimeout  = 10 * time.Second
	redeemIdleTTL    = 10 * time.Minute
	stopTimeout      = 15 * time.Second
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	logger, err := logging.New(cfg.Env, cfg.LogLevel)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer func() { _ = logger.Sync() }()
	zap.ReplaceGlobals(logger)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, cfg, logger); err != nil {
		logger.Fatal("server exited", zap.Error(err))
	}
	logger.Info("server stopped")
}

type stores struct {
	conn       *sql.DB
	codes      transferrepo.Repository
	identities identityrepo.Repository
	subs       subrepo.Repository
	audit      auditrepo.Repository
}

func openStores(cfg *config.Config, logger *zap.Logger) (*stores, error) {
	if cfg.DatabaseURL == "" {
		logger.Warn("DATABASE_URL not set; using in-memory stores")
		return &stores{
			codes:      transferrepo.NewMemoryRepository(),
			identities: identityrepo.NewMemoryRepository(),
			subs:       subrepo.NewMemoryRepository(),
			audit:      auditrepo.NewMemoryRepository(),
		}, nil
	}
	conn, err := db.Open(cfg.DatabaseURL)
	if err != nil {
		return nil, fmt.Errorf("database: %w", err)
	}
	return &stores{
		conn:       conn,
		codes:      transferrepo.NewPostgresRepository(conn),
		identities: identityrepo.NewPostgresRepository(conn),
		subs:       subrepo.NewPostgresRepository(conn),
		audit:      auditrepo.NewPostgresRepository(conn),
	}, nil
}

// openBus returns the broadcast bus and a close function. Redis is used when configured so
// every replica sees every message.
func openBus(ctx context.Context, cfg *config.Config, logger *zap.Logger) (broadcast.Bus, func(), error) {
	if cfg.RedisAddr == "" {
		logger.Warn("REDIS_ADDR not set; broadcasts stay within this process")
		return broadcast.NewMemoryHub(memoryHubBuffer), func() {}, nil
	}
	client := redis.NewClient(&redis.Options{
		Addr:     cfg.RedisAddr,
		Password: cfg.RedisPassword,
		DB:       cfg.RedisDB,
	})
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("redis: %w", err)
	}
	return broadcast.NewRedisBroadcaster(client, cfg.BroadcastChannel, logger), func() { _ = client.Close() }, nil
}

func adminTokens(cfg *config.Config, logger *zap.Logger) (*security.TokenProvider, error) {
	if cfg.JWTPrivateKey == "" {
		logger.Warn("JWT_PRIVATE_KEY not set; admin tokens are signed with an ephemeral key")
		signer, err := security.GenerateEphemeralKey()
		if err != nil {
			return nil, err
		}
		return security.NewTokenProvider(signer, signer.Public(), cfg.JWTIssuer, cfg.JWTAudience, cfg.AdminTTL())
	}
	signer, pub, err := security.LoadKeyPair(cfg.JWTPrivateKey, cfg.JWTPublicKey)
	if err != nil {
		return nil, err
	}
	return security.NewTokenProvider(signer, pub, cfg.JWTIssuer, cfg.JWTAudience, cfg.AdminTTL())
}

func run(ctx context.Context, cfg *config.Config, logger *zap.Logger) error {
	providers, err := otelsetup.NewProviders(ctx, otelsetup.Config{
		Endpoint:    cfg.OTelEndpoint,
		ServiceName: cfg.ServiceName,
		Environment: cfg.Env,
		Insecure:    cfg.OTelInsecure,
	})
	if err != nil {
		return fmt.Errorf("otel: %w", err)
	}
	providers.SetGlobal()
	defer func() {
		shutdownCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
		defer cancel()
		if err := providers.Shutdown(shutdownCtx); err != nil {
			logger.Warn("otel shutdown", zap.Error(err))
		}
	}()

	st, err := openStores(cfg, logger)
	if err != nil {
		return err
	}
	if st.conn != nil {
		defer st.conn.Close()
	}

	bus, closeBus, err := openBus(ctx, cfg, logger)
	if err != nil {
		return err
	}
	defer closeBus()

	authz, err := engine.NewOPAEvaluatorFromFile(ctx, cfg.AdminPolicyFile)
	if err != nil {
		return fmt.Errorf("policy: %w", err)
	}
	tokens, err := adminTokens(cfg, logger)
	if err != nil {
		return fmt.Errorf("admin tokens: %w", err)
	}

	kafkaProducer, err := producer.NewKafkaProducer(cfg.TelemetryKafkaBrokersList(), cfg.TelemetryKafkaTopic)
	if err != nil {
		return fmt.Errorf("kafka producer: %w", err)
	}
	if kafkaProducer != nil {
		defer func() { _ = kafkaProducer.Close() }()
	}
	events := telemetry.Multi(otelsetup.NewEventEmitter(providers.LoggerProvider), kafkaProducer)

	m := metrics.New(metricsNamespace)
	auditLogger := audit.NewLogger(st.audit, middleware.ClientIP, logger)

	vapid := subscription.VAPIDConfig{
		PublicKey:  cfg.VAPIDPublicKey,
		PrivateKey: cfg.VAPIDPrivateKey,
		Subscriber: cfg.VAPIDSubscriber,
		TTL:        cfg.PushTTLSeconds,
	}
	var pusher subscription.Pusher
	if vapid.Enabled() {
		pusher = subscription.NewWebPusher(vapid, &http.Client{Timeout: pushHTTPTimeout})
	} else {
		logger.Warn("VAPID keys not set; web push disabled")
	}
	registry := subscription.NewRegistry(st.subs, pusher, logger)

	svc := service.New(service.Deps{
		Codes:         st.codes,
		Identities:    st.identities,
		Subscriptions: registry,
		Notifier:      notify.NewDispatcher(bus, registry, logger, m),
		Authorizer:    authz,
		Audit:         auditLogger,
		Events:        events,
		Metrics:       m,
		Logger:        logger,
	}, service.Options{
		CodeTTL:            cfg.CodeTTL(),
		GenerationAttempts: cfg.TransferGenerationAttempts,
		NotifyTimeout:      cfg.NotifyTimeout(),
	})

	sw, err := sweeper.New(svc, cfg.SweepInterval(), logger)
	if err != nil {
		return fmt.Errorf("sweeper: %w", err)
	}
	sw.Start()

	var pinger healthhandler.Pinger
	if st.conn != nil {
		pinger = st.conn
	}

	router := server.NewRouter(server.Deps{
		ServiceName:   cfg.ServiceName,
		Transfer:      transferhandler.NewHandler(svc, bus, logger),
		Subscriptions: subhandler.NewHandler(registry, cfg.VAPIDPublicKey, logger),
		Health:        healthhandler.NewServer(pinger, authz),
		Tokens:        tokens,
		Audit:         auditLogger,
		RedeemLimiter: ratelimiter.New(cfg.RedeemRateLimitRPS, cfg.RedeemRateLimitBurst, redeemIdleTTL),
		Metrics:       m,
		Logger:        logger,
	})

	logger.Info("http server listening", zap.String("addr", cfg.HTTPAddr), zap.String("env", cfg.Env))
	runErr := server.NewHTTPServer(router).Run(ctx, cfg.HTTPAddr)

	stopCtx, cancel := context.WithTimeout(context.Background(), stopTimeout)
	defer cancel()
	if err := sw.Stop(stopCtx); err != nil {
		logger.Warn("sweeper stop", zap.Error(err))
	}
	if err := svc.Wait(stopCtx); err != nil {
		logger.Warn("pending notifications abandoned", zap.Error(err))
	}
	if err := telemetry.Drain(stopCtx); err != nil {
		logger.Warn("pending telemetry abandoned", zap.Error(err))
	}
	return runErr
}
