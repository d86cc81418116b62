package config

import (
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server    ServerConfig
	Redis     RedisConfig
	Cache     CacheConfig
	Breaker   BreakerConfig
	Extractor ExtractorConfig
	RabbitMQ  RabbitMQConfig
	RateLimit RateLimitConfig
	Enrich    EnrichConfig
	Worker    WorkerConfig
	MusicAPI  MusicAPIConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	WriteTimeout    time.Duration `envconfig:"API_WRITE_TIMEOUT" default:"60s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type CacheConfig struct {
	Enabled bool `envconfig:"CACHE_ENABLED" default:"true"`
	// MetadataTTL is long because titles and artists do not change.
	MetadataTTL time.Duration `envconfig:"CACHE_METADATA_TTL" default:"24h"`
	// StreamURLTTL is short because upstream signs stream URLs with an expiry.
	StreamURLTTL time.Duration `envconfig:"CACHE_STREAM_URL_TTL" default:"2h"`
}

type BreakerConfig struct {
	FailureThreshold int           `envconfig:"BREAKER_FAILURE_THRESHOLD" default:"2"`
	OpenTimeout      time.Duration `envconfig:"BREAKER_OPEN_TIMEOUT" default:"10m"`
	HalfOpenTimeout  time.Duration `envconfig:"BREAKER_HALF_OPEN_TIMEOUT" default:"1m"`
}

type ExtractorConfig struct {
	BinPath       string        `envconfig:"EXTRACTOR_BIN_PATH" default:"yt-dlp"`
	SocketTimeout time.Duration `envconfig:"EXTRACTOR_SOCKET_TIMEOUT" default:"30s"`
	Retries       int           `envconfig:"EXTRACTOR_RETRIES" default:"3"`
	PlayerClient  string        `envconfig:"EXTRACTOR_PLAYER_CLIENT" default:"android"`
}

type RabbitMQConfig struct {
	Host     string `envconfig:"RABBITMQ_HOST" default:"localhost"`
	Port     int    `envconfig:"RABBITMQ_PORT" default:"5672"`
	User     string `envconfig:"RABBITMQ_USER" default:"musicgate"`
	Password string `envconfig:"RABBITMQ_PASSWORD" default:"musicgate"`
	VHost    string `envconfig:"RABBITMQ_VHOST" default:"/"`
}

func (c RabbitMQConfig) URL() string {
	return fmt.Sprintf(
		"amqp://%s:%s@%s:%d%s",
		c.User, c.Password, c.Host, c.Port, c.VHost,
	)
}

type RateLimitConfig struct {
	Enabled   bool `envconfig:"RATE_LIMIT_ENABLED" default:"true"`
	PerMinute int  `envconfig:"RATE_LIMIT_PER_MINUTE" default:"60"`
}

type EnrichConfig struct {
	// MaxConcurrency bounds the enrichment fan-out so large batches
	// cannot overwhelm the extractor.
	MaxConcurrency int `envconfig:"ENRICH_MAX_CONCURRENCY" default:"10"`
}

type WorkerConfig struct {
	MaxRetries      int           `envconfig:"WORKER_MAX_RETRIES" default:"3"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type MusicAPIConfig struct {
	BaseURL string        `envconfig:"MUSIC_API_BASE_URL" default:"http://localhost:8000"`
	Timeout time.Duration `envconfig:"MUSIC_API_TIMEOUT" default:"30s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	return &cfg, nil
}
