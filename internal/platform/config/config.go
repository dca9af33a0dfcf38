package config

import (
	"os"
	"strconv"
	"time"
)

// Server captures process-level configuration so main stays lean.
type Server struct {
	Addr string

	// AdminSigningKey signs and verifies the HS256 bearer tokens accepted on
	// /admin routes.
	AdminSigningKey string

	// LedgerAccount is the principal the escrow ledger presents to the
	// compliance engine when recording usage.
	LedgerAccount string

	// AdminAccount is the principal allowed to call capability-gated admin
	// operations on the ledger and compliance services.
	AdminAccount string

	FeeCollector   string
	FeeBasisPoints uint32
	AutoRelease    bool

	DefaultDailyLimit uint64
	MinimumAmount     uint64

	// RedisURL selects the redis-backed usage store when set.
	RedisURL string
	// PostgresDSN selects the postgres-backed resolver store when set.
	PostgresDSN string
	// KafkaBrokers selects the kafka audit sink when set (comma separated).
	KafkaBrokers string
	KafkaTopic   string
}

// RedisConfig tunes the shared redis client.
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
	return Server{
		Addr:              envOr("REMITPOOL_ADDR", ":8080"),
		AdminSigningKey:   envOr("ADMIN_SIGNING_KEY", "dev-secret-key-change-in-production"),
		LedgerAccount:     envOr("LEDGER_ACCOUNT", "escrow-ledger"),
		AdminAccount:      envOr("ADMIN_ACCOUNT", "platform-admin"),
		FeeCollector:      envOr("FEE_COLLECTOR", "fee-collector"),
		FeeBasisPoints:    uint32(envUint("PLATFORM_FEE_BPS", 50)),
		AutoRelease:       os.Getenv("AUTO_RELEASE_DISABLED") != "true",
		DefaultDailyLimit: envUint("DEFAULT_DAILY_LIMIT", 1_000_000),
		MinimumAmount:     envUint("MINIMUM_AMOUNT", 1),
		RedisURL:          os.Getenv("REDIS_URL"),
		PostgresDSN:       os.Getenv("POSTGRES_DSN"),
		KafkaBrokers:      os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:        envOr("KAFKA_TOPIC", "remitpool.events"),
	}
}

// Redis builds the redis client config for the configured URL.
func (s Server) Redis() RedisConfig {
	return RedisConfig{
		URL:          s.RedisURL,
		PoolSize:     10,
		MinIdleConns: 2,
		DialTimeout:  5 * time.Second,
		ReadTimeout:  3 * time.Second,
		WriteTimeout: 3 * time.Second,
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envUint(key string, fallback uint64) uint64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseUint(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}
