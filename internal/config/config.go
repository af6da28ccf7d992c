// internal/config/config.go
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"sync"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	App           AppConfig
	Pipeline      PipelineConfig
	Cache         CacheConfig
	ObjectStorage ObjectStorageConfig
	Drive         DriveConfig
}

type ServerConfig struct {
	Port           string
	APIPort        string
	Mode           string
	LogLevel       string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	Path     string
}

type AppConfig struct {
	UploadDir   string
	ArtifactDir string
	RawExport   string
}

// PipelineConfig holds the tunables of the cleaning and analytics stages.
type PipelineConfig struct {
	ForecastHorizon      int
	ForecastModel        string
	AnomalyContamination float64
	AnomalyDetector      string
	AnomalySeed          int64
	RunoutThreshold      float64
	Workers              int
	DefaultItem          string
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	SummaryTTLSeconds int
}

type ObjectStorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	Prefix    string
	UseSSL    bool
}

type DriveConfig struct {
	CredentialsJSON string
	FolderID        string
	DownloadDir     string
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

		ensureDir(viper.GetString("APP_UPLOAD_DIR"))
		ensureDir(viper.GetString("APP_ARTIFACT_DIR"))
		if viper.GetString("DB_DRIVER") == "sqlite3" {
			ensureDir(filepath.Dir(viper.GetString("DB_PATH")))
		}

		instance = fromViper()
	})

	return instance
}

func setDefaults() {
	viper.SetDefault("SERVER_PORT", "8080")
	viper.SetDefault("API_PORT", "8081")
	viper.SetDefault("SERVER_MODE", "debug")
	viper.SetDefault("LOG_LEVEL", "info")
	viper.SetDefault("SERVER_READ_TIMEOUT", 30)
	viper.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	viper.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})
	viper.SetDefault("DB_DRIVER", "sqlite3")
	viper.SetDefault("DATABASE_URL", "")
	viper.SetDefault("DB_HOST", "localhost")
	viper.SetDefault("DB_PORT", "5432")
	viper.SetDefault("DB_USER", "postgres")
	viper.SetDefault("DB_PASSWORD", "postgres")
	viper.SetDefault("DB_NAME", "grocery_stock")
	viper.SetDefault("DB_SSLMODE", "disable")
	viper.SetDefault("DB_PATH", "./database/grocery_stock.db")
	viper.SetDefault("APP_UPLOAD_DIR", "./data/uploads")
	viper.SetDefault("APP_ARTIFACT_DIR", "./data/artifacts")
	viper.SetDefault("APP_RAW_EXPORT", "./data/raw/grocery_stock_log.csv")
	viper.SetDefault("FORECAST_HORIZON", 7)
	viper.SetDefault("FORECAST_MODEL", "holt_winters")
	viper.SetDefault("ANOMALY_CONTAMINATION", 0.2)
	viper.SetDefault("ANOMALY_DETECTOR", "isolation_forest")
	viper.SetDefault("ANOMALY_SEED", 42)
	viper.SetDefault("RUNOUT_THRESHOLD", 1.0)
	viper.SetDefault("PIPELINE_WORKERS", 1)
	viper.SetDefault("PIPELINE_DEFAULT_ITEM", "wheat")
	viper.SetDefault("CACHE_ENABLED", false)
	viper.SetDefault("REDIS_URL", "")
	viper.SetDefault("REDIS_HOST", "127.0.0.1")
	viper.SetDefault("REDIS_PORT", "6379")
	viper.SetDefault("REDIS_PASSWORD", "")
	viper.SetDefault("REDIS_DB", 0)
	viper.SetDefault("CACHE_SUMMARY_TTL_SECONDS", 60)
	viper.SetDefault("OBJECT_STORAGE_ENABLED", false)
	viper.SetDefault("OBJECT_STORAGE_REGION", "us-east-1")
	viper.SetDefault("OBJECT_STORAGE_PREFIX", "grocerystock")
	viper.SetDefault("OBJECT_STORAGE_USE_SSL", true)
	viper.SetDefault("DRIVE_DOWNLOAD_DIR", "./data/uploads/drive")
}

func fromViper() *Config {
	return &Config{
		Server: ServerConfig{
			Port:           viper.GetString("SERVER_PORT"),
			APIPort:        viper.GetString("API_PORT"),
			Mode:           viper.GetString("SERVER_MODE"),
			LogLevel:       viper.GetString("LOG_LEVEL"),
			ReadTimeout:    viper.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   viper.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: viper.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:   viper.GetString("DB_DRIVER"),
			URL:      viper.GetString("DATABASE_URL"),
			Host:     viper.GetString("DB_HOST"),
			Port:     viper.GetString("DB_PORT"),
			User:     viper.GetString("DB_USER"),
			Password: viper.GetString("DB_PASSWORD"),
			DBName:   viper.GetString("DB_NAME"),
			SSLMode:  viper.GetString("DB_SSLMODE"),
			Path:     viper.GetString("DB_PATH"),
		},
		App: AppConfig{
			UploadDir:   viper.GetString("APP_UPLOAD_DIR"),
			ArtifactDir: viper.GetString("APP_ARTIFACT_DIR"),
			RawExport:   viper.GetString("APP_RAW_EXPORT"),
		},
		Pipeline: PipelineConfig{
			ForecastHorizon:      viper.GetInt("FORECAST_HORIZON"),
			ForecastModel:        viper.GetString("FORECAST_MODEL"),
			AnomalyContamination: viper.GetFloat64("ANOMALY_CONTAMINATION"),
			AnomalyDetector:      viper.GetString("ANOMALY_DETECTOR"),
			AnomalySeed:          viper.GetInt64("ANOMALY_SEED"),
			RunoutThreshold:      viper.GetFloat64("RUNOUT_THRESHOLD"),
			Workers:              viper.GetInt("PIPELINE_WORKERS"),
			DefaultItem:          viper.GetString("PIPELINE_DEFAULT_ITEM"),
		},
		Cache: CacheConfig{
			Enabled:           viper.GetBool("CACHE_ENABLED"),
			RedisURL:          viper.GetString("REDIS_URL"),
			RedisHost:         viper.GetString("REDIS_HOST"),
			RedisPort:         viper.GetString("REDIS_PORT"),
			RedisPassword:     viper.GetString("REDIS_PASSWORD"),
			RedisDB:           viper.GetInt("REDIS_DB"),
			SummaryTTLSeconds: viper.GetInt("CACHE_SUMMARY_TTL_SECONDS"),
		},
		ObjectStorage: ObjectStorageConfig{
			Enabled:   viper.GetBool("OBJECT_STORAGE_ENABLED"),
			Endpoint:  viper.GetString("OBJECT_STORAGE_ENDPOINT"),
			AccessKey: viper.GetString("OBJECT_STORAGE_ACCESS_KEY"),
			SecretKey: viper.GetString("OBJECT_STORAGE_SECRET_KEY"),
			Bucket:    viper.GetString("OBJECT_STORAGE_BUCKET"),
			Region:    viper.GetString("OBJECT_STORAGE_REGION"),
			Prefix:    viper.GetString("OBJECT_STORAGE_PREFIX"),
			UseSSL:    viper.GetBool("OBJECT_STORAGE_USE_SSL"),
		},
		Drive: DriveConfig{
			CredentialsJSON: viper.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        viper.GetString("DRIVE_FOLDER_ID"),
			DownloadDir:     viper.GetString("DRIVE_DOWNLOAD_DIR"),
		},
	}
}

// DSN returns the driver-specific connection string. DATABASE_URL wins when set.
func (c DatabaseConfig) DSN() (string, error) {
	if c.URL != "" {
		return c.URL, nil
	}

	switch c.Driver {
	case "postgres", "pgx":
		return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
			c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode), nil
	case "mysql":
		return fmt.Sprintf("%s:%s@tcp(%s:%s)/%s", c.User, c.Password, c.Host, c.Port, c.DBName), nil
	case "sqlite3":
		if c.Path == "" {
			return "", fmt.Errorf("sqlite database path must be provided")
		}
		return c.Path + "?_foreign_keys=on&_busy_timeout=5000", nil
	default:
		return "", fmt.Errorf("unsupported database driver %q", c.Driver)
	}
}

func ensureDir(dir string) {
	if dir == "" {
		return
	}
	if _, err := os.Stat(dir); os.IsNotExist(err) {
		if err := os.MkdirAll(dir, 0755); err != nil {
			log.Fatalf("Failed to create directory %s: %v", dir, err)
		}
	}
}
