package bootstrap

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"github.com/viralforge/mesh/services/financial-rails/M15-verified-escrow-service/internal/domain"
	"gopkg.in/yaml.v3"
)

type Config struct {
	ServiceID string

	HTTPPort int
	GRPCPort int

	DatabaseURL  string
	RedisURL     string
	KafkaBrokers []string

	MaxDBConns                      int32
	KafkaConsumerGroup              string
	KafkaTopicVerificationRequested string
	KafkaTopicEscrowEvents          string
	LedgerTopic                     string

	OutboxPollInterval   time.Duration
	OutboxBatchSize      int
	ConsumerPollInterval time.Duration

	IdempotencyTTL time.Duration
	EventDedupTTL  time.Duration

	DefaultCurrency       string
	ClientFeeRate         decimal.Decimal
	FreelancerFeeRate     decimal.Decimal
	AutoRefundOnRejection bool
	SettlementTimeout     time.Duration
	LockTTL               time.Duration

	MinScore            float64
	MaxIssues           int
	MaxFileBytes        int64
	MaxTextBytes        int64
	AcceptedCategories  []domain.Category
	VerificationTimeout time.Duration
	StorageDir          string
}

type configFile struct {
	Service struct {
		ID       string `yaml:"id"`
		HTTPPort int    `yaml:"http_port"`
		GRPCPort int    `yaml:"grpc_port"`
	} `yaml:"service"`
	Dependencies struct {
		PostgresURL                     string   `yaml:"postgres_url"`
		RedisURL                        string   `yaml:"redis_url"`
		KafkaBrokers                    []string `yaml:"kafka_brokers"`
		KafkaConsumerGroup              string   `yaml:"kafka_consumer_group"`
		KafkaTopicVerificationRequested string   `yaml:"kafka_topic_verification_requested"`
		KafkaTopicEscrowEvents          string   `yaml:"kafka_topic_escrow_events"`
		LedgerTopic                     string   `yaml:"ledger_topic"`
	} `yaml:"dependencies"`
	Escrow struct {
		DefaultCurrency          string `yaml:"default_currency"`
		ClientFeeRate            string `yaml:"client_fee_rate"`
		FreelancerFeeRate        string `yaml:"freelancer_fee_rate"`
		AutoRefundOnRejection    *bool  `yaml:"auto_refund_on_rejection"`
		SettlementTimeoutSeconds int    `yaml:"settlement_timeout_seconds"`
		LockTTLSeconds           int    `yaml:"lock_ttl_seconds"`
	} `yaml:"escrow"`
	Verification struct {
		MinScore           *float64 `yaml:"min_score"`
		MaxIssues          *int     `yaml:"max_issues"`
		MaxFileBytes       int64    `yaml:"max_file_bytes"`
		MaxTextBytes       int64    `yaml:"max_text_bytes"`
		AcceptedCategories []string `yaml:"accepted_categories"`
		TimeoutSeconds     int      `yaml:"timeout_seconds"`
		StorageDir         string   `yaml:"storage_dir"`
	} `yaml:"verification"`
}

func LoadConfig(path string) (Config, error) {
	cfg := Config{
		ServiceID:                       "M15-Verified-Escrow-Service",
		HTTPPort:                        8080,
		GRPCPort:                        9090,
		MaxDBConns:                      20,
		KafkaConsumerGroup:              "m15-verified-escrow-service",
		KafkaTopicVerificationRequested: domain.EventVerificationRequested,
		OutboxPollInterval:              2 * time.Second,
		OutboxBatchSize:                 100,
		ConsumerPollInterval:            2 * time.Second,
		IdempotencyTTL:                  7 * 24 * time.Hour,
		EventDedupTTL:                   7 * 24 * time.Hour,
		DefaultCurrency:                 domain.DefaultCurrency,
		ClientFeeRate:                   domain.DefaultFeeRate,
		FreelancerFeeRate:               domain.DefaultFeeRate,
		SettlementTimeout:               15 * time.Second,
		LockTTL:                         time.Minute,
		MinScore:                        domain.DefaultMinScore,
		MaxIssues:                       domain.DefaultMaxIssues,
		MaxFileBytes:                    50 << 20,
		MaxTextBytes:                    5 << 20,
		AcceptedCategories:              domain.AllCategories,
		VerificationTimeout:             30 * time.Second,
	}

	raw, err := os.ReadFile(path)
	if err == nil {
		var f configFile
		if unmarshalErr := yaml.Unmarshal(raw, &f); unmarshalErr != nil {
			return Config{}, fmt.Errorf("parse config file: %w", unmarshalErr)
		}
		if applyErr := applyFile(&cfg, f); applyErr != nil {
			return Config{}, applyErr
		}
	}

	cfg.ServiceID = envOrDefault("SERVICE_ID", cfg.ServiceID)
	cfg.DatabaseURL = envOrDefault("DB_URL", envOrDefault("POSTGRES_URL", cfg.DatabaseURL))
	cfg.RedisURL = envOrDefault("REDIS_URL", cfg.RedisURL)
	cfg.KafkaBrokers = envCSV("KAFKA_BROKERS", cfg.KafkaBrokers)
	cfg.KafkaConsumerGroup = envOrDefault("KAFKA_CONSUMER_GROUP", cfg.KafkaConsumerGroup)
	cfg.KafkaTopicVerificationRequested = envOrDefault("KAFKA_TOPIC_VERIFICATION_REQUESTED", cfg.KafkaTopicVerificationRequested)
	cfg.KafkaTopicEscrowEvents = envOrDefault("KAFKA_TOPIC_ESCROW_EVENTS", cfg.KafkaTopicEscrowEvents)
	cfg.LedgerTopic = envOrDefault("LEDGER_TOPIC", cfg.LedgerTopic)
	cfg.HTTPPort = envInt("HTTP_PORT", cfg.HTTPPort)
	cfg.GRPCPort = envInt("GRPC_PORT", cfg.GRPCPort)
	cfg.MaxDBConns = int32(envInt("DB_MAX_CONNS", int(cfg.MaxDBConns)))
	cfg.OutboxPollInterval = time.Duration(envInt("OUTBOX_POLL_SECONDS", int(cfg.OutboxPollInterval.Seconds()))) * time.Second
	cfg.OutboxBatchSize = envInt("OUTBOX_BATCH_SIZE", cfg.OutboxBatchSize)
	cfg.ConsumerPollInterval = time.Duration(envInt("CONSUMER_POLL_SECONDS", int(cfg.ConsumerPollInterval.Seconds()))) * time.Second
	cfg.IdempotencyTTL = time.Duration(envInt("IDEMPOTENCY_TTL_HOURS", int(cfg.IdempotencyTTL.Hours()))) * time.Hour
	cfg.EventDedupTTL = time.Duration(envInt("EVENT_DEDUP_TTL_HOURS", int(cfg.EventDedupTTL.Hours()))) * time.Hour
	cfg.DefaultCurrency = strings.ToUpper(envOrDefault("DEFAULT_CURRENCY", cfg.DefaultCurrency))
	cfg.AutoRefundOnRejection = envBool("AUTO_REFUND_ON_REJECTION", cfg.AutoRefundOnRejection)
	cfg.SettlementTimeout = time.Duration(envInt("SETTLEMENT_TIMEOUT_SECONDS", int(cfg.SettlementTimeout.Seconds()))) * time.Second
	cfg.LockTTL = time.Duration(envInt("ESCROW_LOCK_TTL_SECONDS", int(cfg.LockTTL.Seconds()))) * time.Second
	cfg.MinScore = envFloat("VERIFICATION_MIN_SCORE", cfg.MinScore)
	cfg.MaxIssues = envInt("VERIFICATION_MAX_ISSUES", cfg.MaxIssues)
	cfg.MaxFileBytes = int64(envInt("MAX_FILE_BYTES", int(cfg.MaxFileBytes)))
	cfg.MaxTextBytes = int64(envInt("MAX_TEXT_BYTES", int(cfg.MaxTextBytes)))
	cfg.VerificationTimeout = time.Duration(envInt("VERIFICATION_TIMEOUT_SECONDS", int(cfg.VerificationTimeout.Seconds()))) * time.Second
	cfg.StorageDir = envOrDefault("SUBMISSION_STORAGE_DIR", cfg.StorageDir)

	if rate := os.Getenv("CLIENT_FEE_RATE"); rate != "" {
		if cfg.ClientFeeRate, err = parseRate("CLIENT_FEE_RATE", rate); err != nil {
			return Config{}, err
		}
	}
	if rate := os.Getenv("FREELANCER_FEE_RATE"); rate != "" {
		if cfg.FreelancerFeeRate, err = parseRate("FREELANCER_FEE_RATE", rate); err != nil {
			return Config{}, err
		}
	}
	if raw := envCSV("ACCEPTED_CATEGORIES", nil); len(raw) > 0 {
		if cfg.AcceptedCategories, err = parseCategories(raw); err != nil {
			return Config{}, err
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func applyFile(cfg *Config, f configFile) error {
	if f.Service.ID != "" {
		cfg.ServiceID = f.Service.ID
	}
	if f.Service.HTTPPort > 0 {
		cfg.HTTPPort = f.Service.HTTPPort
	}
	if f.Service.GRPCPort > 0 {
		cfg.GRPCPort = f.Service.GRPCPort
	}
	if f.Dependencies.PostgresURL != "" {
		cfg.DatabaseURL = f.Dependencies.PostgresURL
	}
	if f.Dependencies.RedisURL != "" {
		cfg.RedisURL = f.Dependencies.RedisURL
	}
	if len(f.Dependencies.KafkaBrokers) > 0 {
		cfg.KafkaBrokers = trimNonEmpty(f.Dependencies.KafkaBrokers)
	}
	if f.Dependencies.KafkaConsumerGroup != "" {
		cfg.KafkaConsumerGroup = f.Dependencies.KafkaConsumerGroup
	}
	if f.Dependencies.KafkaTopicVerificationRequested != "" {
		cfg.KafkaTopicVerificationRequested = f.Dependencies.KafkaTopicVerificationRequested
	}
	cfg.KafkaTopicEscrowEvents = f.Dependencies.KafkaTopicEscrowEvents
	cfg.LedgerTopic = f.Dependencies.LedgerTopic

	if f.Escrow.DefaultCurrency != "" {
		cfg.DefaultCurrency = strings.ToUpper(f.Escrow.DefaultCurrency)
	}
	if f.Escrow.ClientFeeRate != "" {
		rate, err := parseRate("escrow.client_fee_rate", f.Escrow.ClientFeeRate)
		if err != nil {
			return err
		}
		cfg.ClientFeeRate = rate
	}
	if f.Escrow.FreelancerFeeRate != "" {
		rate, err := parseRate("escrow.freelancer_fee_rate", f.Escrow.FreelancerFeeRate)
		if err != nil {
			return err
		}
		cfg.FreelancerFeeRate = rate
	}
	if f.Escrow.AutoRefundOnRejection != nil {
		cfg.AutoRefundOnRejection = *f.Escrow.AutoRefundOnRejection
	}
	if f.Escrow.SettlementTimeoutSeconds > 0 {
		cfg.SettlementTimeout = time.Duration(f.Escrow.SettlementTimeoutSeconds) * time.Second
	}
	if f.Escrow.LockTTLSeconds > 0 {
		cfg.LockTTL = time.Duration(f.Escrow.LockTTLSeconds) * time.Second
	}

	if f.Verification.MinScore != nil {
		cfg.MinScore = *f.Verification.MinScore
	}
	if f.Verification.MaxIssues != nil {
		cfg.MaxIssues = *f.Verification.MaxIssues
	}
	if f.Verification.MaxFileBytes > 0 {
		cfg.MaxFileBytes = f.Verification.MaxFileBytes
	}
	if f.Verification.MaxTextBytes > 0 {
		cfg.MaxTextBytes = f.Verification.MaxTextBytes
	}
	if len(f.Verification.AcceptedCategories) > 0 {
		categories, err := parseCategories(f.Verification.AcceptedCategories)
		if err != nil {
			return err
		}
		cfg.AcceptedCategories = categories
	}
	if f.Verification.TimeoutSeconds > 0 {
		cfg.VerificationTimeout = time.Duration(f.Verification.TimeoutSeconds) * time.Second
	}
	if f.Verification.StorageDir != "" {
		cfg.StorageDir = f.Verification.StorageDir
	}
	return nil
}

func (c Config) validate() error {
	if c.MinScore < 0 || c.MinScore > 1 {
		return fmt.Errorf("verification min score must be within [0,1], got %v", c.MinScore)
	}
	if c.MaxIssues < 0 {
		return fmt.Errorf("verification max issues must not be negative, got %d", c.MaxIssues)
	}
	if c.MaxFileBytes <= 0 {
		return fmt.Errorf("max file bytes must be positive, got %d", c.MaxFileBytes)
	}
	if c.VerificationTimeout <= 0 || c.SettlementTimeout <= 0 {
		return fmt.Errorf("verification and settlement timeouts must be positive")
	}
	// The lock is held across scoring and settlement; it must not lapse mid-sequence.
	if c.LockTTL <= c.VerificationTimeout+c.SettlementTimeout {
		return fmt.Errorf("escrow lock ttl %s must exceed verification timeout %s plus settlement timeout %s",
			c.LockTTL, c.VerificationTimeout, c.SettlementTimeout)
	}
	return nil
}

func parseRate(name, raw string) (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(strings.TrimSpace(raw))
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("parse %s: %w", name, err)
	}
	if rate.IsNegative() || rate.GreaterThanOrEqual(decimal.NewFromInt(1)) {
		return decimal.Decimal{}, fmt.Errorf("%s must be within [0,1), got %s", name, rate)
	}
	return rate, nil
}

func parseCategories(values []string) ([]domain.Category, error) {
	out := make([]domain.Category, 0, len(values))
	for _, value := range trimNonEmpty(values) {
		category, ok := domain.ParseCategory(value)
		if !ok {
			return nil, fmt.Errorf("unknown submission category %q", value)
		}
		out = append(out, category)
	}
	return out, nil
}

func envOrDefault(name, fallback string) string {
	if value := os.Getenv(name); value != "" {
		return value
	}
	return fallback
}

func envInt(name string, fallback int) int {
	raw := os.Getenv(name)
	if raw == "" {
		return fallback
	}
	v, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return v
}

func envFloat(name string, fallback float64) float64 {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return fallback
	}
	return v
}

func envBool(name string, fallback bool) bool {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	switch strings.ToLower(raw) {
	case "1", "true", "yes":
		return true
	case "0", "false", "no":
		return false
	default:
		return fallback
	}
}

func envCSV(name string, fallback []string) []string {
	raw := strings.TrimSpace(os.Getenv(name))
	if raw == "" {
		return fallback
	}
	items := strings.Split(raw, ",")
	return trimNonEmpty(items)
}

func trimNonEmpty(values []string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		trimmed := strings.TrimSpace(v)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
