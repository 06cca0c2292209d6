package config

import (
	"encoding/base64"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Storage  StorageConfig
	Upload   UploadConfig
	FFmpeg   FFmpegConfig
	JWT      JWTConfig
	SSE      SSEConfig
	Worker   WorkerConfig
	CORS     CORSConfig
	App      AppConfig
}

type ServerConfig struct {
	Port            int           `envconfig:"API_PORT" default:"8080"`
	ReadTimeout     time.Duration `envconfig:"API_READ_TIMEOUT" default:"10s"`
	IdleTimeout     time.Duration `envconfig:"API_IDLE_TIMEOUT" default:"120s"`
	ShutdownTimeout time.Duration `envconfig:"API_SHUTDOWN_TIMEOUT" default:"10s"`
}

type DatabaseConfig struct {
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
	User     string `envconfig:"POSTGRES_USER" default:"clipforge"`
	Password string `envconfig:"POSTGRES_PASSWORD" default:"clipforge"`
	DBName   string `envconfig:"POSTGRES_DB" default:"clipforge"`
	SSLMode  string `envconfig:"POSTGRES_SSLMODE" default:"disable"`
}

func (c DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%d/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

type RedisConfig struct {
	Host     string `envconfig:"REDIS_HOST" default:"localhost"`
	Port     int    `envconfig:"REDIS_PORT" default:"6379"`
	Password string `envconfig:"REDIS_PASSWORD" default:""`
	DB       int    `envconfig:"REDIS_DB" default:"0"`
}

func (c RedisConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

type StorageConfig struct {
	// Roots for the three blob stores. Created on startup if absent.
	OriginalsPath string `envconfig:"VIDEO_STORAGE_PATH" default:"/var/lib/clipforge/originals"`
	ProcessedPath string `envconfig:"VIDEO_STORAGE_PROCESSED_PATH" default:"/var/lib/clipforge/processed"`
	TempPath      string `envconfig:"VIDEO_STORAGE_TEMP_PATH" default:"/var/lib/clipforge/temp"`
}

type UploadConfig struct {
	MaxSizeMB int64 `envconfig:"VIDEO_UPLOAD_MAX_SIZE_MB" default:"40"`
}

// MaxSizeBytes returns the upload limit in bytes.
func (c UploadConfig) MaxSizeBytes() int64 {
	return c.MaxSizeMB << 20
}

type FFmpegConfig struct {
	Path           string `envconfig:"FFMPEG_PATH" default:"ffmpeg"`
	ProbePath      string `envconfig:"FFPROBE_PATH" default:"ffprobe"`
	TimeoutSeconds int    `envconfig:"FFMPEG_TIMEOUT_SECONDS" default:"120"`
}

func (c FFmpegConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSeconds) * time.Second
}

type JWTConfig struct {
	SecretKeyBase64 string `envconfig:"JWT_SECRET_KEY_BASE64" required:"true"`
	ExpirationMS    int64  `envconfig:"JWT_EXPIRATION_MS" default:"3600000"`
	Issuer          string `envconfig:"JWT_ISSUER" default:"clipforge"`
}

// SecretKey decodes and validates the signing key.
// HMAC-SHA256 requires at least a 256-bit key.
func (c JWTConfig) SecretKey() ([]byte, error) {
	key, err := base64.StdEncoding.DecodeString(c.SecretKeyBase64)
	if err != nil {
		return nil, fmt.Errorf("decode JWT secret key: %w", err)
	}
	if len(key) < 32 {
		return nil, fmt.Errorf("JWT secret key must be at least 32 bytes, got %d", len(key))
	}
	return key, nil
}

func (c JWTConfig) Expiration() time.Duration {
	return time.Duration(c.ExpirationMS) * time.Millisecond
}

type SSEConfig struct {
	EmitterTimeoutMS    int64 `envconfig:"SSE_EMITTER_TIMEOUT_MS" default:"300000"`
	HeartbeatIntervalMS int64 `envconfig:"SSE_HEARTBEAT_INTERVAL_MS" default:"15000"`
}

func (c SSEConfig) EmitterTimeout() time.Duration {
	return time.Duration(c.EmitterTimeoutMS) * time.Millisecond
}

func (c SSEConfig) HeartbeatInterval() time.Duration {
	return time.Duration(c.HeartbeatIntervalMS) * time.Millisecond
}

type WorkerConfig struct {
	PoolSize        int           `envconfig:"WORKER_POOL_SIZE" default:"4"`
	QueueSize       int           `envconfig:"WORKER_QUEUE_SIZE" default:"64"`
	ShutdownTimeout time.Duration `envconfig:"WORKER_SHUTDOWN_TIMEOUT" default:"30s"`
}

type CORSConfig struct {
	AllowedOrigins []string `envconfig:"CORS_ALLOWED_ORIGINS" default:"http://localhost:5173"`
}

type AppConfig struct {
	FrontendBaseURL string `envconfig:"APP_FRONTEND_BASE_URL" default:"http://localhost:5173"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if _, err := cfg.JWT.SecretKey(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
