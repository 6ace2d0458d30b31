package config

import (
	"os"
	"strconv"
	"time"
)

// Config captures everything the server needs from the environment so main
// stays lean. Ledger parameters live here rather than in the services so a
// deployment can tune them without a rebuild.
type Config struct {
	Addr          string
	JWTSigningKey string

	// AdminSecretHash is the bcrypt hash of the administrative secret gating
	// verification decisions and quorum changes.
	AdminSecretHash string

	PostgresURL  string
	RedisURL     string
	KafkaBrokers string
	KafkaTopic   string

	// MinCampaignTarget is the smallest accepted campaign target, in minor
	// units.
	MinCampaignTarget int64

	// DefaultQuorum is the initial minimum total vote weight for proposal
	// execution. Never zero.
	DefaultQuorum int64

	// PointsPerTier divides the reputation score into tiers 0-4.
	PointsPerTier int64

	// BatchEvaluateLimit caps the number of campaign IDs accepted by a single
	// batch status evaluation.
	BatchEvaluateLimit int

	AnalyticsCacheTTL time.Duration
}

// FromEnv builds a Config from environment variables with development
// defaults.
func FromEnv() Config {
	cfg := Config{
		Addr:               envOr("PLEDGER_ADDR", ":8080"),
		JWTSigningKey:      envOr("JWT_SIGNING_KEY", "dev-secret-key-change-in-production"),
		AdminSecretHash:    os.Getenv("ADMIN_SECRET_HASH"),
		PostgresURL:        os.Getenv("POSTGRES_URL"),
		RedisURL:           os.Getenv("REDIS_URL"),
		KafkaBrokers:       os.Getenv("KAFKA_BROKERS"),
		KafkaTopic:         envOr("KAFKA_TOPIC", "pledger.actions"),
		MinCampaignTarget:  envInt64("MIN_CAMPAIGN_TARGET", 1),
		DefaultQuorum:      envInt64("DEFAULT_QUORUM", 5),
		PointsPerTier:      envInt64("POINTS_PER_TIER", 50),
		BatchEvaluateLimit: int(envInt64("BATCH_EVALUATE_LIMIT", 100)),
		AnalyticsCacheTTL:  envDuration("ANALYTICS_CACHE_TTL", 30*time.Second),
	}
	return cfg
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return fallback
	}
	return n
}

func envDuration(key string, fallback time.Duration) time.Duration {
	v := os.Getenv(key)
	if v == "" {
		return fallback
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fallback
	}
	return d
}
