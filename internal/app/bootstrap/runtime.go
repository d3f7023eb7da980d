package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/adapters/cache"
	eventadapter "github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/adapters/events"
	httpadapter "github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/adapters/http"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/adapters/ledger"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/adapters/memory"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/adapters/postgres"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/adapters/storage"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/application"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/health"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
)

type Runtime struct {
	cfg        Config
	logger     *slog.Logger
	service    *application.Service
	httpServer *http.Server
	grpcServer *grpc.Server
	grpcLis    net.Listener
	health     *health.Server
	relay      *eventadapter.EventRelay
	consumer   *eventadapter.ConsumerWorker
	cleanupFn  func(context.Context)
}

type repositories struct {
	Escrows       ports.EscrowRepository
	Verifications ports.VerificationRepository
	Settlements   ports.SettlementRepository
	Idempotency   ports.IdempotencyRepository
	EventDedup    ports.EventDedupRepository
	Outbox        ports.OutboxRepository
	UnitOfWork    ports.UnitOfWork
}

func NewRuntime(ctx context.Context, configPath string) (*Runtime, error) {
	cfg, err := LoadConfig(configPath)
	if err != nil {
		return nil, err
	}
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelInfo})).With("service", cfg.ServiceID)
	slog.SetDefault(logger)

	var closers []io.Closer
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			_ = closers[i].Close()
		}
	}

	repos, err := openRepositories(ctx, cfg, logger, &closers)
	if err != nil {
		cleanup()
		return nil, err
	}

	locker := ports.EscrowLocker(memory.NewKeyedLocker())
	if cfg.RedisURL != "" {
		redisClient, redisErr := cache.Connect(ctx, cfg.RedisURL)
		if redisErr != nil {
			cleanup()
			return nil, redisErr
		}
		closers = append(closers, redisClient)
		locker = cache.NewRedisEscrowLocker(redisClient, cfg.LockTTL)
	} else {
		logger.WarnContext(ctx, "REDIS_URL not set, escrow locks are process-local")
	}

	submissions, err := storage.NewFilesystemStorage(cfg.StorageDir)
	if err != nil {
		cleanup()
		return nil, err
	}

	settlementLedger := ports.Ledger(ledger.NewMemoryLedger())
	if len(cfg.KafkaBrokers) > 0 && cfg.LedgerTopic != "" {
		kafkaLedger, ledgerErr := ledger.NewKafkaLedger(cfg.KafkaBrokers, cfg.LedgerTopic)
		if ledgerErr != nil {
			cleanup()
			return nil, ledgerErr
		}
		settlementLedger = kafkaLedger
		closers = append(closers, kafkaLedger)
	} else {
		logger.WarnContext(ctx, "ledger topic not configured, settlements are recorded in memory only")
	}

	service := application.NewService(application.Dependencies{
		Config: application.Config{
			ServiceName:           cfg.ServiceID,
			DefaultCurrency:       cfg.DefaultCurrency,
			ClientFeeRate:         cfg.ClientFeeRate,
			FreelancerFeeRate:     cfg.FreelancerFeeRate,
			MinScore:              cfg.MinScore,
			MaxIssues:             cfg.MaxIssues,
			MaxFileBytes:          cfg.MaxFileBytes,
			MaxTextBytes:          cfg.MaxTextBytes,
			AcceptedCategories:    cfg.AcceptedCategories,
			VerificationTimeout:   cfg.VerificationTimeout,
			SettlementTimeout:     cfg.SettlementTimeout,
			AutoRefundOnRejection: cfg.AutoRefundOnRejection,
			IdempotencyTTL:        cfg.IdempotencyTTL,
			EventDedupTTL:         cfg.EventDedupTTL,
		},
		Escrows:       repos.Escrows,
		Verifications: repos.Verifications,
		Settlements:   repos.Settlements,
		Idempotency:   repos.Idempotency,
		EventDedup:    repos.EventDedup,
		UnitOfWork:    repos.UnitOfWork,
		Ledger:        settlementLedger,
		Storage:       submissions,
		Locker:        locker,
		Logger:        logger,
	})

	handler := httpadapter.NewHandler(service, submissions)
	router := httpadapter.NewRouter(handler)
	httpServer := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           router,
		ReadHeaderTimeout: 5 * time.Second,
	}

	grpcServer := grpc.NewServer()
	healthSrv := health.NewServer()
	healthpb.RegisterHealthServer(grpcServer, healthSrv)
	healthSrv.SetServingStatus("", healthpb.HealthCheckResponse_SERVING)
	lis, err := net.Listen("tcp", fmt.Sprintf(":%d", cfg.GRPCPort))
	if err != nil {
		cleanup()
		return nil, err
	}

	publisher := ports.EventPublisher(eventadapter.NewLoggingPublisher(logger))
	consumerAdapter := eventadapter.Consumer(eventadapter.NewNoopConsumer())
	if len(cfg.KafkaBrokers) > 0 {
		kafkaPublisher, pubErr := eventadapter.NewKafkaPublisher(cfg.KafkaBrokers, outboundTopics(cfg.KafkaTopicEscrowEvents))
		if pubErr != nil {
			logger.WarnContext(ctx, "kafka publisher disabled, using logging publisher", "error", pubErr)
		} else {
			publisher = kafkaPublisher
			closers = append(closers, kafkaPublisher)
		}

		kafkaConsumer, conErr := eventadapter.NewKafkaConsumer(
			cfg.KafkaBrokers,
			cfg.KafkaConsumerGroup,
			[]string{cfg.KafkaTopicVerificationRequested},
		)
		if conErr != nil {
			logger.WarnContext(ctx, "kafka consumer disabled, using noop consumer", "error", conErr)
		} else {
			consumerAdapter = kafkaConsumer
			closers = append(closers, kafkaConsumer)
		}
	}
	relay := eventadapter.NewEventRelay(logger, repos.Outbox, publisher, cfg.OutboxPollInterval, cfg.OutboxBatchSize)
	consumer := eventadapter.NewConsumerWorker(logger, consumerAdapter, service, cfg.ConsumerPollInterval)

	return &Runtime{
		cfg:        cfg,
		logger:     logger,
		service:    service,
		httpServer: httpServer,
		grpcServer: grpcServer,
		grpcLis:    lis,
		health:     healthSrv,
		relay:      relay,
		consumer:   consumer,
		cleanupFn: func(context.Context) {
			_ = lis.Close()
			cleanup()
		},
	}, nil
}

// openRepositories uses Postgres when a database URL is configured and falls back to the
// in-memory store otherwise.
func openRepositories(ctx context.Context, cfg Config, logger *slog.Logger, closers *[]io.Closer) (repositories, error) {
	if cfg.DatabaseURL == "" {
		logger.WarnContext(ctx, "DB_URL not set, using in-memory repositories")
		mem := memory.NewRepositories()
		return repositories{
			Escrows:       mem.Escrows,
			Verifications: mem.Verifications,
			Settlements:   mem.Settlements,
			Idempotency:   mem.Idempotency,
			EventDedup:    mem.EventDedup,
			Outbox:        mem.Outbox,
			UnitOfWork:    memory.NewUnitOfWork(mem),
		}, nil
	}
	db, err := postgres.Connect(ctx, cfg.DatabaseURL, cfg.MaxDBConns)
	if err != nil {
		return repositories{}, err
	}
	sqlDB, err := db.DB()
	if err != nil {
		return repositories{}, err
	}
	*closers = append(*closers, sqlDB)
	if err := postgres.RunMigrations(ctx, db); err != nil {
		return repositories{}, err
	}
	pg := postgres.NewRepositories(db)
	return repositories{
		Escrows:       pg.Escrows,
		Verifications: pg.Verifications,
		Settlements:   pg.Settlements,
		Idempotency:   pg.Idempotency,
		EventDedup:    pg.EventDedup,
		Outbox:        pg.Outbox,
		UnitOfWork:    pg.UnitOfWork,
	}, nil
}

// outboundTopics routes every published escrow event to topic when one is configured;
// otherwise each event goes to a topic named after its type.
func outboundTopics(topic string) map[string]string {
	if topic == "" {
		return nil
	}
	out := make(map[string]string)
	for _, eventType := range []string{
		domain.EventEscrowCreated,
		domain.EventEscrowFunded,
		domain.EventEscrowVerificationRecorded,
		domain.EventEscrowReleased,
		domain.EventEscrowRefunded,
		domain.EventSettlementCompleted,
		domain.EventSettlementFailed,
	} {
		out[eventType] = topic
	}
	return out
}

func Build(ctx context.Context, configPath string) (*Runtime, error) {
	return NewRuntime(ctx, configPath)
}

func (r *Runtime) RunAPI(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	r.logger.InfoContext(ctx, "starting api", "http_port", r.cfg.HTTPPort, "grpc_port", r.cfg.GRPCPort)
	go func() {
		if err := r.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.grpcServer.Serve(r.grpcLis); err != nil {
			errCh <- err
		}
	}()

	var runErr error
	select {
	case <-ctx.Done():
	case runErr = <-errCh:
		r.logger.ErrorContext(ctx, "runtime failure", "error", runErr)
	}
	r.health.Shutdown()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	_ = r.httpServer.Shutdown(shutdownCtx)
	r.grpcServer.GracefulStop()
	r.cleanupFn(shutdownCtx)
	return runErr
}

func (r *Runtime) RunWorker(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()
	errCh := make(chan error, 2)

	r.logger.InfoContext(ctx, "starting worker")
	go func() {
		if err := r.relay.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()
	go func() {
		if err := r.consumer.Run(ctx); err != nil && !errors.Is(err, context.Canceled) {
			errCh <- err
		}
	}()

	select {
	case <-ctx.Done():
		r.cleanupFn(context.Background())
		return nil
	case err := <-errCh:
		r.cleanupFn(context.Background())
		return err
	}
}
