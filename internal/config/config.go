// internal/config/config.go
package config

import (
	"log"
	"os"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server    ServerConfig
	Database  DatabaseConfig
	Cache     CacheConfig
	Scheduler SchedulerConfig
	Storage   StorageConfig
	Commerce  CommerceConfig
	Notify    NotifyConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
	LogLevel       string
	LogFormat      string
}

type DatabaseConfig struct {
	Host           string
	Port           string
	User           string
	Password       string
	DBName         string
	SSLMode        string
	MaxConcurrency int64
}

type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

type SchedulerConfig struct {
	TickInterval  time.Duration
	JobTimeout    time.Duration
	RegionWorkers int
	SKUWorkers    int
	StaleRunAfter time.Duration
}

type StorageConfig struct {
	Backend         string
	LocalDir        string
	MinioEndpoint   string
	MinioAccessKey  string
	MinioSecretKey  string
	MinioBucket     string
	MinioUseSSL     bool
	DriveFolderID   string
	DriveCredential string
	GCSBucket       string
	GCSCredential   string
}

type CommerceConfig struct {
	APIVersion string
	Timeout    time.Duration
	PageLimit  int
}

type NotifyConfig struct {
	Timeout  time.Duration
	MaxItems int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		setDefaults()

		// Read from environment variables
		viper.AutomaticEnv()

		instance = fromViper()

		if instance.Storage.Backend == "local" {
			ensureDir(instance.Storage.LocalDir)
		}
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("SERVER_READ_TIMEOUT", 15)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("LOG_LEVEL", "")
	viper.SetDefault("LOG_FORMAT", "console")

	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "replenish")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_MAX_CONCURRENCY", 10)

	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_REPORT_TTL_SECONDS", 60)

	viper.SetDefault("SCHEDULER_TICK_INTERVAL", "10m")
	viper.SetDefault("SCHEDULER_JOB_TIMEOUT", "10m")
	viper.SetDefault("SCHEDULER_REGION_WORKERS", 1)
	viper.SetDefault("SCHEDULER_SKU_WORKERS", 8)
	viper.SetDefault("SCHEDULER_STALE_RUN_AFTER", "2h")

	viper.SetDefault("STORAGE_BACKEND", "local")
	viper.SetDefault("STORAGE_LOCAL_DIR", "./data/documents")
	viper.SetDefault("MINIO_ENDPOINT", "")
	viper.SetDefault("MINIO_ACCESS_KEY", "")
	viper.SetDefault("MINIO_SECRET_KEY", "")
	viper.SetDefault("MINIO_BUCKET", "replenish-documents")
	viper.SetDefault("MINIO_USE_SSL", true)
	viper.SetDefault("DRIVE_FOLDER_ID", "")
	viper.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	viper.SetDefault("GCS_BUCKET", "")
	viper.SetDefault("GCS_CREDENTIALS_JSON", "")

	viper.SetDefault("COMMERCE_API_VERSION", "2024-01")
	viper.SetDefault("COMMERCE_TIMEOUT", "30s")
	viper.SetDefault("COMMERCE_PAGE_LIMIT", 250)

	viper.SetDefault("NOTIFY_TIMEOUT", "10s")
	viper.SetDefault("NOTIFY_MAX_ITEMS", 10)
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			LogFormat:      viper.GetString("LOG_FORMAT"),
		},
		Database: DatabaseConfig{
			Host:           viper.GetString("DB_HOST"),
			Port:           viper.GetString("DB_PORT"),
			User:           viper.GetString("DB_USER"),
			Password:       viper.GetString("DB_PASSWORD"),
			DBName:         viper.GetString("DB_NAME"),
			SSLMode:        viper.GetString("DB_SSLMODE"),
			MaxConcurrency: viper.GetInt64("DB_MAX_CONCURRENCY"),
		},
		Cache: CacheConfig{
			Enabled:          viper.GetBool("CACHE_ENABLED"),
			RedisURL:         viper.GetString("REDIS_URL"),
			RedisHost:        viper.GetString("REDIS_HOST"),
			RedisPort:        viper.GetString("REDIS_PORT"),
			RedisPassword:    viper.GetString("REDIS_PASSWORD"),
			RedisDB:          viper.GetInt("REDIS_DB"),
			ReportTTLSeconds: viper.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Scheduler: SchedulerConfig{
			TickInterval:  viper.GetDuration("SCHEDULER_TICK_INTERVAL"),
			JobTimeout:    viper.GetDuration("SCHEDULER_JOB_TIMEOUT"),
			RegionWorkers: viper.GetInt("SCHEDULER_REGION_WORKERS"),
			SKUWorkers:    viper.GetInt("SCHEDULER_SKU_WORKERS"),
			StaleRunAfter: viper.GetDuration("SCHEDULER_STALE_RUN_AFTER"),
		},
		Storage: StorageConfig{
			Backend:         viper.GetString("STORAGE_BACKEND"),
			LocalDir:        viper.GetString("STORAGE_LOCAL_DIR"),
			MinioEndpoint:   viper.GetString("MINIO_ENDPOINT"),
			MinioAccessKey:  viper.GetString("MINIO_ACCESS_KEY"),
			MinioSecretKey:  viper.GetString("MINIO_SECRET_KEY"),
			MinioBucket:     viper.GetString("MINIO_BUCKET"),
			MinioUseSSL:     viper.GetBool("MINIO_USE_SSL"),
			DriveFolderID:   viper.GetString("DRIVE_FOLDER_ID"),
			DriveCredential: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			GCSBucket:       viper.GetString("GCS_BUCKET"),
			GCSCredential:   viper.GetString("GCS_CREDENTIALS_JSON"),
		},
		Commerce: CommerceConfig{
			APIVersion: viper.GetString("COMMERCE_API_VERSION"),
			Timeout:    viper.GetDuration("COMMERCE_TIMEOUT"),
			PageLimit:  viper.GetInt("COMMERCE_PAGE_LIMIT"),
		},
		Notify: NotifyConfig{
			Timeout:  viper.GetDuration("NOTIFY_TIMEOUT"),
			MaxItems: viper.GetInt("NOTIFY_MAX_ITEMS"),
		},
	}
}

// DSN builds a lib/pq style connection string.
func (d DatabaseConfig) DSN() string {
	return "host=" + d.Host + " port=" + d.Port + " user=" + d.User + " password=" + d.Password +
		" dbname=" + d.DBName + " sslmode=" + d.SSLMode
}

func ensureDir(dir string) {
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
