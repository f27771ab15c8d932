package config

import (
	"log"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration values.
type Config struct {
	AppPort           string `mapstructure:"APP_PORT"`
	DatabaseURL       string `mapstructure:"DATABASE_URL"`
	DatabaseName      string `mapstructure:"DATABASE_NAME"`
	Env               string `mapstructure:"ENV"`
	JWTSecret         string `mapstructure:"JWT_SECRET"`
	LogLevel          string `mapstructure:"LOG_LEVEL"`
	MaxRequestsPerMin int    `mapstructure:"MAX_REQUESTS_PER_MIN"`

	// Redis configuration.
	RedisAddr     string `mapstructure:"REDIS_ADDR"`
	RedisPassword string `mapstructure:"REDIS_PASSWORD"`
	RedisAuthDB   int    `mapstructure:"REDIS_AUTH_DB"`
	RedisQueueDB  int    `mapstructure:"REDIS_QUEUE_DB"`

	// Background tasks.
	WorkerConcurrency  int           `mapstructure:"WORKER_CONCURRENCY"`
	TaskMaxRetry       int           `mapstructure:"TASK_MAX_RETRY"`
	TaskBackoffBase    time.Duration `mapstructure:"TASK_BACKOFF_BASE"`
	TaskBackoffMax     time.Duration `mapstructure:"TASK_BACKOFF_MAX"`
	InvoiceTaskTimeout time.Duration `mapstructure:"INVOICE_TASK_TIMEOUT"`
	EmailTaskTimeout   time.Duration `mapstructure:"EMAIL_TASK_TIMEOUT"`
	ChainSweepInterval time.Duration `mapstructure:"CHAIN_SWEEP_INTERVAL"`
	ChainStallAfter    time.Duration `mapstructure:"CHAIN_STALL_AFTER"`

	// Invoice storage: "local", "gcs" or "cloudinary".
	StorageBackend      string `mapstructure:"STORAGE_BACKEND"`
	StorageLocalDir     string `mapstructure:"STORAGE_LOCAL_DIR"`
	GCSBucket           string `mapstructure:"GCS_BUCKET"`
	GCSCredentialsFile  string `mapstructure:"GCS_CREDENTIALS_FILE"`
	CloudinaryCloudName string `mapstructure:"CLOUDINARY_CLOUD_NAME"`
	CloudinaryAPIKey    string `mapstructure:"CLOUDINARY_API_KEY"`
	CloudinaryAPISecret string `mapstructure:"CLOUDINARY_API_SECRET"`

	// Mail transport.
	EmailHost         string `mapstructure:"EMAIL_HOST"`
	EmailPort         int    `mapstructure:"EMAIL_PORT"`
	EmailHostUser     string `mapstructure:"EMAIL_HOST_USER"`
	EmailHostPassword string `mapstructure:"EMAIL_HOST_PASSWORD"`
	EmailUseTLS       bool   `mapstructure:"EMAIL_USE_TLS"`
	FromEmail         string `mapstructure:"FROM_EMAIL"`
}

var AppConfig Config

func setDefaults(v *viper.Viper) {
	v.SetDefault("APP_PORT", "8080")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("MAX_REQUESTS_PER_MIN", 200)
	v.SetDefault("DATABASE_URL", "mongodb://localhost:27017/?replicaSet=rs0")
	v.SetDefault("DATABASE_NAME", "marketplace")
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("REDIS_ADDR", "localhost:6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_AUTH_DB", 1)
	v.SetDefault("REDIS_QUEUE_DB", 0)
	v.SetDefault("WORKER_CONCURRENCY", 10)
	v.SetDefault("TASK_MAX_RETRY", 3)
	v.SetDefault("TASK_BACKOFF_BASE", "10s")
	v.SetDefault("TASK_BACKOFF_MAX", "10m")
	v.SetDefault("INVOICE_TASK_TIMEOUT", "60s")
	v.SetDefault("EMAIL_TASK_TIMEOUT", "30s")
	v.SetDefault("CHAIN_SWEEP_INTERVAL", "5m")
	v.SetDefault("CHAIN_STALL_AFTER", "15m")
	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("STORAGE_LOCAL_DIR", "./media/invoices")
	v.SetDefault("GCS_BUCKET", "")
	v.SetDefault("GCS_CREDENTIALS_FILE", "")
	v.SetDefault("CLOUDINARY_CLOUD_NAME", "")
	v.SetDefault("CLOUDINARY_API_KEY", "")
	v.SetDefault("CLOUDINARY_API_SECRET", "")
	// Empty selects the log-only mailer.
	v.SetDefault("EMAIL_HOST", "")
	v.SetDefault("EMAIL_PORT", 2525)
	v.SetDefault("EMAIL_HOST_USER", "")
	v.SetDefault("EMAIL_HOST_PASSWORD", "")
	v.SetDefault("EMAIL_USE_TLS", false)
	v.SetDefault("FROM_EMAIL", "no-reply@order-system.com")
}

// Load reads configuration from an optional config.yaml (in "." or
// "./config") and the environment.
func Load(v *viper.Viper) (Config, error) {
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")
	// Automatically use environment variables where available.
	v.AutomaticEnv()
	setDefaults(v)

	if err := v.ReadInConfig(); err != nil {
		log.Println("No config file found, using environment variables only")
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func LoadConfig() {
	cfg, err := Load(viper.GetViper())
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	AppConfig = cfg
}

func GetEnv() string {
	return AppConfig.Env
}

func IsProduction() bool {
	return GetEnv() == "production"
}
