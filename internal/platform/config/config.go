package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Store backends selectable via environment.
const (
	StoreMemory   = "memory"
	StorePostgres = "postgres"

	PendingStoreMemory = "memory"
	PendingStoreFile   = "file"
	PendingStoreRedis  = "redis"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr string

	// StoreBackend selects the ledger/household/merchant/history stores:
	// "memory" or "postgres".
	StoreBackend string
	PostgresDSN  string

	// TranchePath points at the YAML tranche configuration; validated at startup.
	TranchePath string

	// AuditDir is where hour-bucketed settlement CSVs are written.
	AuditDir string

	// KafkaBrokers, when set, enables the Kafka operator notifier for audit
	// append failures. Empty means log-only.
	KafkaBrokers []string
	KafkaTopic   string

	// PendingBackend selects the pending-redemption store: "file", "redis"
	// or "memory". PendingTTL bounds how long a staged redemption stays
	// resolvable.
	PendingBackend string
	PendingLogPath string
	PendingTTL     time.Duration

	Redis RedisConfig
}

// RedisConfig carries go-redis client tuning.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// FromEnv builds a Server config from environment variables with development
// defaults.
func FromEnv() Server {
	cfg := Server{
		Addr:           envOr("VOUCHER_ADDR", ":8080"),
		StoreBackend:   envOr("VOUCHER_STORE", StoreMemory),
		PostgresDSN:    os.Getenv("VOUCHER_POSTGRES_DSN"),
		TranchePath:    envOr("VOUCHER_TRANCHE_CONFIG", "configs/tranches.yaml"),
		AuditDir:       envOr("VOUCHER_AUDIT_DIR", "redemption"),
		KafkaTopic:     envOr("VOUCHER_AUDIT_OPS_TOPIC", "voucher.audit.ops"),
		PendingBackend: envOr("VOUCHER_PENDING_STORE", PendingStoreFile),
		PendingLogPath: envOr("VOUCHER_PENDING_LOG", "data/pending.log"),
		PendingTTL:     envDurationOr("VOUCHER_PENDING_TTL", time.Hour),
		Redis: RedisConfig{
			URL:          os.Getenv("VOUCHER_REDIS_URL"),
			PoolSize:     envIntOr("VOUCHER_REDIS_POOL_SIZE", 10),
			MinIdleConns: envIntOr("VOUCHER_REDIS_MIN_IDLE", 2),
			DialTimeout:  envDurationOr("VOUCHER_REDIS_DIAL_TIMEOUT", 5*time.Second),
			ReadTimeout:  envDurationOr("VOUCHER_REDIS_READ_TIMEOUT", 3*time.Second),
			WriteTimeout: envDurationOr("VOUCHER_REDIS_WRITE_TIMEOUT", 3*time.Second),
		},
	}

	if brokers := os.Getenv("VOUCHER_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envIntOr(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envDurationOr(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
