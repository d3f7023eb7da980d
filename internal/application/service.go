package application

import (
	"log/slog"
	"time"

	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/ports"
)

type Service struct {
	cfg           Config
	escrows       ports.EscrowRepository
	verifications ports.VerificationRepository
	settlements   ports.SettlementRepository
	idempotency   ports.IdempotencyRepository
	eventDedup    ports.EventDedupRepository
	uow           ports.UnitOfWork
	ledger        ports.Ledger
	storage       ports.SubmissionStorage
	locker        ports.EscrowLocker

	rules    domain.RuleTable
	policy   domain.VerdictPolicy
	accepted map[domain.Category]struct{}
	logger   *slog.Logger
	nowFn    func() time.Time
}

type Dependencies struct {
	Config        Config
	Escrows       ports.EscrowRepository
	Verifications ports.VerificationRepository
	Settlements   ports.SettlementRepository
	Idempotency   ports.IdempotencyRepository
	EventDedup    ports.EventDedupRepository
	UnitOfWork    ports.UnitOfWork
	Ledger        ports.Ledger
	Storage       ports.SubmissionStorage
	Locker        ports.EscrowLocker
	Logger        *slog.Logger
}

// NewService takes fee rates and verdict thresholds as configured, so zero is a real value
// for them. Limits and timeouts that cannot be zero fall back to DefaultConfig.
func NewService(deps Dependencies) *Service {
	cfg := deps.Config
	defaults := DefaultConfig()
	if cfg.ServiceName == "" {
		cfg.ServiceName = defaults.ServiceName
	}
	if cfg.DefaultCurrency == "" {
		cfg.DefaultCurrency = defaults.DefaultCurrency
	}
	if cfg.MaxFileBytes <= 0 {
		cfg.MaxFileBytes = defaults.MaxFileBytes
	}
	if cfg.MaxTextBytes <= 0 {
		cfg.MaxTextBytes = defaults.MaxTextBytes
	}
	if cfg.AcceptedCategories == nil {
		cfg.AcceptedCategories = defaults.AcceptedCategories
	}
	if cfg.VerificationTimeout <= 0 {
		cfg.VerificationTimeout = defaults.VerificationTimeout
	}
	if cfg.SettlementTimeout <= 0 {
		cfg.SettlementTimeout = defaults.SettlementTimeout
	}
	if cfg.IdempotencyTTL <= 0 {
		cfg.IdempotencyTTL = defaults.IdempotencyTTL
	}
	if cfg.EventDedupTTL <= 0 {
		cfg.EventDedupTTL = defaults.EventDedupTTL
	}
	accepted := make(map[domain.Category]struct{}, len(cfg.AcceptedCategories))
	for _, category := range cfg.AcceptedCategories {
		accepted[category] = struct{}{}
	}
	logger := deps.Logger
	if logger == nil {
		logger = slog.Default()
	}

	return &Service{
		cfg:           cfg,
		escrows:       deps.Escrows,
		verifications: deps.Verifications,
		settlements:   deps.Settlements,
		idempotency:   deps.Idempotency,
		eventDedup:    deps.EventDedup,
		uow:           deps.UnitOfWork,
		ledger:        deps.Ledger,
		storage:       deps.Storage,
		locker:        deps.Locker,
		rules:         domain.DefaultRules(),
		policy:        domain.VerdictPolicy{MinScore: cfg.MinScore, MaxIssues: cfg.MaxIssues},
		accepted:      accepted,
		logger:        logger,
		nowFn:         func() time.Time { return time.Now().UTC() },
	}
}

func (s *Service) Config() Config {
	return s.cfg
}
