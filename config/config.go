package config

import (
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"
)

type Config struct {
	HTTPAddr     string
	HTTPMaxConns int
	AppBaseURL   string
	JWTSecret    string

	DBHost string
	DBPort string
	DBUser string
	DBPass string
	DBName string

	RedisHost     string
	RedisPort     string
	RedisPassword string
	RedisDB       int
	RedisEnabled  bool
	ShareCacheTTL time.Duration

	MinioEnabled  bool
	MinioHost     string
	MinioPort     string
	MinioUsername string
	MinioPassword string
	MinioUseSSL   bool
	BucketName    string

	RabbitMQURL      string
	RabbitMQHost     string
	RabbitMQPort     string
	RabbitMQUser     string
	RabbitMQPass     string
	RabbitMQVhost    string
	RabbitMQPrefetch int

	IngestQueue     string // memory / rabbitmq
	IngestQueueSize int
	IngestEmbedded  bool // run the ingest worker inside the HTTP process

	DataRoot     string // local root that share resource paths are relative to
	StagingDir   string // tus filestore directory
	StoreTimeout time.Duration
	EditMaxBytes int64

	ShareRate  float64
	ShareBurst int

	StagingSweepCron string
	StagingMaxAge    time.Duration

	SMTPHost     string
	SMTPPort     string
	SMTPUser     string
	SMTPPass     string
	SMTPFrom     string
	SMTPTLS      bool
	SMTPStartTLS bool
}

var AppConfig Config

// getEnv returns the environment value or a default.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvFloat(key string, defaultValue float64) float64 {
	value := strings.TrimSpace(os.Getenv(key))
	if value == "" {
		return defaultValue
	}
	parsed, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return defaultValue
	}
	return parsed
}

func getEnvBool(key string, defaultValue bool) bool {
	value := strings.TrimSpace(strings.ToLower(os.Getenv(key)))
	if value == "" {
		return defaultValue
	}
	switch value {
	case "1", "true", "yes", "y", "on":
		return true
	case "0", "false", "no", "n", "off":
		return false
	default:
		return defaultValue
	}
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return defaultValue
	}
	parsed, err := time.ParseDuration(raw)
	if err != nil {
		return defaultValue
	}
	return parsed
}

// Load reads configuration from the environment.
func Load() Config {
	rabbitHost := getEnv("RABBITMQ_HOST", "localhost")
	rabbitPort := getEnv("RABBITMQ_PORT", "5672")
	rabbitUser := getEnv("RABBITMQ_USER", "guest")
	rabbitPass := getEnv("RABBITMQ_PASSWORD", "guest")
	rabbitVhost := getEnv("RABBITMQ_VHOST", "/")
	rabbitURL := getEnv("RABBITMQ_URL", "")
	if rabbitURL == "" {
		rabbitURL = fmt.Sprintf(
			"amqp://%s:%s@%s:%s/%s",
			url.PathEscape(rabbitUser),
			url.PathEscape(rabbitPass),
			rabbitHost,
			rabbitPort,
			url.PathEscape(rabbitVhost),
		)
	}
	smtpPort := getEnv("SMTP_PORT", "")
	return Config{
		HTTPAddr:     getEnv("HTTP_ADDR", ":8000"),
		HTTPMaxConns: getEnvInt("HTTP_MAX_CONNS", 0),
		AppBaseURL:   strings.TrimRight(getEnv("APP_BASE_URL", ""), "/"),
		JWTSecret:    getEnv("JWT_SECRET", "l=ax+b"),

		DBHost: getEnv("DB_HOST", "localhost"),
		DBPort: getEnv("DB_PORT", "3306"),
		DBUser: getEnv("DB_USER", "root"),
		DBPass: getEnv("DB_PASS", "root"),
		DBName: getEnv("DB_NAME", "Go_Share"),

		RedisHost:     getEnv("REDIS_HOST", "localhost"),
		RedisPort:     getEnv("REDIS_PORT", "6379"),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisDB:       getEnvInt("REDIS_DB", 0),
		RedisEnabled:  getEnvBool("REDIS_ENABLED", true),
		ShareCacheTTL: getEnvDuration("SHARE_CACHE_TTL", 30*time.Second),

		MinioEnabled:  getEnvBool("MINIO_ENABLED", false),
		MinioHost:     getEnv("MINIO_HOST", "localhost"),
		MinioPort:     getEnv("MINIO_PORT", "9000"),
		MinioUsername: getEnv("MINIO_USERNAME", "minioadmin"),
		MinioPassword: getEnv("MINIO_PASSWORD", "minioadmin"),
		MinioUseSSL:   getEnvBool("MINIO_USE_SSL", false),
		BucketName:    getEnv("BUCKET_NAME", "shares"),

		RabbitMQURL:      rabbitURL,
		RabbitMQHost:     rabbitHost,
		RabbitMQPort:     rabbitPort,
		RabbitMQUser:     rabbitUser,
		RabbitMQPass:     rabbitPass,
		RabbitMQVhost:    rabbitVhost,
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),

		IngestQueue:     strings.ToLower(getEnv("INGEST_QUEUE", "memory")),
		IngestQueueSize: getEnvInt("INGEST_QUEUE_SIZE", 1024),
		IngestEmbedded:  getEnvBool("INGEST_EMBEDDED", true),

		DataRoot:     getEnv("DATA_ROOT", "./data"),
		StagingDir:   getEnv("STAGING_DIR", "./staging"),
		StoreTimeout: getEnvDuration("STORE_TIMEOUT", 5*time.Second),
		EditMaxBytes: int64(getEnvInt("EDIT_MAX_BYTES", 32<<20)),

		ShareRate:  getEnvFloat("SHARE_RATE", 10),
		ShareBurst: getEnvInt("SHARE_BURST", 20),

		StagingSweepCron: getEnv("STAGING_SWEEP_CRON", "@hourly"),
		StagingMaxAge:    getEnvDuration("STAGING_MAX_AGE", 168*time.Hour),

		SMTPHost:     getEnv("SMTP_HOST", ""),
		SMTPPort:     smtpPort,
		SMTPUser:     getEnv("SMTP_USER", ""),
		SMTPPass:     getEnv("SMTP_PASS", ""),
		SMTPFrom:     getEnv("SMTP_FROM", ""),
		SMTPTLS:      getEnvBool("SMTP_TLS", smtpPort == "465"),
		SMTPStartTLS: getEnvBool("SMTP_STARTTLS", false),
	}
}

// InitConfig loads configuration into AppConfig.
func InitConfig() {
	AppConfig = Load()
}
