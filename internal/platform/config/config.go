package config

import (
	"os"
	"strings"
	"time"
)

// Server captures process-level configuration.
type Server struct {
	Addr          string
	JWTSigningKey string
	AdminToken    string
	BaseURI       string
	// Deployer is granted every role at startup so a fresh deployment can
	// mint and delegate before any admin API call.
	Deployer    string
	PostgresURL string
	Redis       RedisConfig
	Kafka       KafkaConfig
}

// RedisConfig configures the shared pause-flag store. Empty URL means the
// in-memory flag is used instead.
type RedisConfig struct {
	URL          string
	PoolSize     int
	MinIdleConns int
	DialTimeout  time.Duration
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
}

// KafkaConfig configures the audit event sink. Empty brokers means audit
// events stay in the in-memory store only.
type KafkaConfig struct {
	Brokers []string
	Topic   string
}

// OpTimeout bounds every mutating registry operation.
var OpTimeout = 5 * time.Second

// FromEnv builds a Server config from environment variables so main stays lean.
func FromEnv() Server {
	addr := os.Getenv("EFFIGY_ADDR")
	if addr == "" {
		addr = ":8080"
	}

	jwtSigningKey := os.Getenv("JWT_SIGNING_KEY")
	if jwtSigningKey == "" {
		// Use a default for development - should be overridden in production
		jwtSigningKey = "dev-secret-key-change-in-production"
	}

	baseURI := os.Getenv("EFFIGY_BASE_URI")
	if baseURI == "" {
		baseURI = "https://effigy.local/records/"
	}

	topic := os.Getenv("KAFKA_AUDIT_TOPIC")
	if topic == "" {
		topic = "effigy.audit"
	}
	var brokers []string
	if raw := os.Getenv("KAFKA_BROKERS"); raw != "" {
		brokers = strings.Split(raw, ",")
	}

	return Server{
		Addr:          addr,
		JWTSigningKey: jwtSigningKey,
		AdminToken:    os.Getenv("EFFIGY_ADMIN_TOKEN"),
		BaseURI:       baseURI,
		Deployer:      os.Getenv("EFFIGY_DEPLOYER"),
		PostgresURL:   os.Getenv("POSTGRES_URL"),
		Redis: RedisConfig{
			URL:          os.Getenv("REDIS_URL"),
			PoolSize:     10,
			MinIdleConns: 2,
			DialTimeout:  5 * time.Second,
			ReadTimeout:  3 * time.Second,
			WriteTimeout: 3 * time.Second,
		},
		Kafka: KafkaConfig{Brokers: brokers, Topic: topic},
	}
}
