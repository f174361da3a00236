package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration. FromEnv keeps main lean.
type Server struct {
	Addr          string
	DatabaseURL   string
	RedisURL      string
	KafkaBrokers  []string
	AuditTopic    string
	JWTSigningKey string

	// EnrollmentCacheTTL bounds how stale a cached course snapshot may be.
	EnrollmentCacheTTL time.Duration

	// NotifyBuffer sizes the fire-and-forget notification queue.
	NotifyBuffer int
}

// FromEnv builds a Server config from environment variables.
func FromEnv() Server {
	cfg := Server{
		Addr:               getenv("MEDLEAVE_ADDR", ":8080"),
		DatabaseURL:        os.Getenv("MEDLEAVE_DATABASE_URL"),
		RedisURL:           os.Getenv("MEDLEAVE_REDIS_URL"),
		AuditTopic:         getenv("MEDLEAVE_AUDIT_TOPIC", "medleave.audit"),
		EnrollmentCacheTTL: 5 * time.Minute,
		NotifyBuffer:       256,
	}

	if brokers := os.Getenv("MEDLEAVE_KAFKA_BROKERS"); brokers != "" {
		cfg.KafkaBrokers = strings.Split(brokers, ",")
	}

	cfg.JWTSigningKey = os.Getenv("MEDLEAVE_JWT_SIGNING_KEY")
	if cfg.JWTSigningKey == "" {
		// Development default; must be overridden in production.
		cfg.JWTSigningKey = "dev-secret-key-change-in-production"
	}

	if ttl := os.Getenv("MEDLEAVE_ENROLLMENT_CACHE_TTL"); ttl != "" {
		if parsed, err := time.ParseDuration(ttl); err == nil {
			cfg.EnrollmentCacheTTL = parsed
		}
	}

	return cfg
}

func getenv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
