package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

const envPrefix = "RESERVATION"

// DatabaseConfig holds the reservation cache connection settings.
type DatabaseConfig struct {
	DSN         string
	AutoMigrate bool
}

// RedisConfig holds the session store connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// KafkaConfig holds broker and topic settings.
type KafkaConfig struct {
	Brokers     []string
	GroupPrefix string
	EventsTopic string
	StatusTopic string
}

// UpstreamConfig points at the commerce platform REST API.
type UpstreamConfig struct {
	BaseURL string
	Timeout time.Duration
}

// JWTConfig holds the shared secret used to verify platform access tokens.
type JWTConfig struct {
	Secret string
}

// SessionConfig controls how long booking sessions live.
type SessionConfig struct {
	TTL time.Duration
}

// ServiceConfig holds all configuration for the reservation service.
type ServiceConfig struct {
	Port           string
	AppEnv         string
	AllowedOrigins []string
	DBConfig       DatabaseConfig
	RedisConfig    RedisConfig
	KafkaConfig    KafkaConfig
	UpstreamConfig UpstreamConfig
	JWTConfig      JWTConfig
	SessionConfig  SessionConfig
}

// Load reads configuration from a .env file (if present) and RESERVATION_* environment variables.
func Load() (*ServiceConfig, error) {
	_ = godotenv.Load()

	v := viper.New()
	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	cfg := &ServiceConfig{
		Port:           normalizePort(v.GetString("service_port")),
		AppEnv:         strings.ToLower(v.GetString("app_env")),
		AllowedOrigins: splitList(v.GetString("allowed_origins")),
		DBConfig: DatabaseConfig{
			DSN:         v.GetString("db_dsn"),
			AutoMigrate: v.GetBool("db_auto_migrate"),
		},
		RedisConfig: RedisConfig{
			Addr:     v.GetString("redis_addr"),
			Password: v.GetString("redis_password"),
			DB:       v.GetInt("redis_db"),
		},
		KafkaConfig: KafkaConfig{
			Brokers:     splitList(v.GetString("kafka_brokers")),
			GroupPrefix: v.GetString("kafka_group_prefix"),
			EventsTopic: v.GetString("kafka_events_topic"),
			StatusTopic: v.GetString("kafka_status_topic"),
		},
		UpstreamConfig: UpstreamConfig{
			BaseURL: strings.TrimRight(v.GetString("upstream_base_url"), "/"),
			Timeout: v.GetDuration("upstream_timeout"),
		},
		JWTConfig: JWTConfig{
			Secret: v.GetString("jwt_secret"),
		},
		SessionConfig: SessionConfig{
			TTL: v.GetDuration("session_ttl"),
		},
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("service_port", "8084")
	v.SetDefault("app_env", "development")
	v.SetDefault("allowed_origins", "http://localhost:3000")
	v.SetDefault("db_dsn", "file:reservation.db?_pragma=foreign_keys(1)")
	v.SetDefault("db_auto_migrate", true)
	v.SetDefault("redis_addr", "localhost:6379")
	v.SetDefault("redis_db", 0)
	v.SetDefault("kafka_brokers", "localhost:9092")
	v.SetDefault("kafka_group_prefix", "")
	v.SetDefault("kafka_events_topic", "reservation.events")
	v.SetDefault("kafka_status_topic", "reservation.status")
	v.SetDefault("upstream_timeout", "10s")
	v.SetDefault("session_ttl", "30m")
}

func (c *ServiceConfig) validate() error {
	if c.UpstreamConfig.BaseURL == "" {
		return fmt.Errorf("%s_UPSTREAM_BASE_URL is required", envPrefix)
	}
	if c.JWTConfig.Secret == "" {
		return fmt.Errorf("%s_JWT_SECRET is required", envPrefix)
	}
	if c.UpstreamConfig.Timeout <= 0 {
		return fmt.Errorf("%s_UPSTREAM_TIMEOUT must be > 0", envPrefix)
	}
	if c.SessionConfig.TTL <= 0 {
		return fmt.Errorf("%s_SESSION_TTL must be > 0", envPrefix)
	}
	if len(c.AllowedOrigins) == 0 {
		return fmt.Errorf("%s_ALLOWED_ORIGINS must list at least one origin", envPrefix)
	}
	if len(c.KafkaConfig.Brokers) == 0 {
		return fmt.Errorf("%s_KAFKA_BROKERS must list at least one broker", envPrefix)
	}
	return nil
}

func normalizePort(port string) string {
	if strings.HasPrefix(port, ":") {
		return port
	}
	return ":" + port
}

func splitList(raw string) []string {
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if p := strings.TrimSpace(part); p != "" {
			out = append(out, p)
		}
	}
	return out
}
