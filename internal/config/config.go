// internal/config/config.go
package config

import (
	"fmt"
	"sync"

	"github.com/andresuchdata/restock-advisor/internal/domain"
	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Forecast ForecastConfig
	Alert    AlertConfig
	Schedule ScheduleConfig
	Drive    DriveConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	// Driver selects the store implementation: "postgres" or "memory".
	Driver   string
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

type CacheConfig struct {
	Enabled            bool
	RedisURL           string
	RedisHost          string
	RedisPort          string
	RedisPassword      string
	RedisDB            int
	ForecastTTLSeconds int
}

// StorageConfig points the model artifact store at a local directory or an
// S3-compatible bucket.
type StorageConfig struct {
	Backend   string
	LocalDir  string
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
}

// ForecastConfig holds the recognised forecasting and decision options.
type ForecastConfig struct {
	HorizonDays           int
	MaxHorizonDays        int
	SafetyStockMultiplier float64
	// ReviewPeriodDays of 0 means "same as HorizonDays".
	ReviewPeriodDays    int
	OverstockMultiplier float64
	OverstockHighRatio  float64
	MinTrainingPoints   int
	LookbackDays        int
	FallbackNaive       bool
	OrderCost           float64
	HoldingCost         float64
	WorkerCount         int
}

type AlertConfig struct {
	MinSeverity string
}

type ScheduleConfig struct {
	Enabled bool
	Spec    string
	// Retrain refits product and global models before each scheduled run.
	Retrain bool
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

// Load reads configuration from the environment (and a .env file if present)
// once per process.
func Load() *Config {
	once.Do(func() {
		_ = godotenv.Load()

		SetDefaults(viper.GetViper())
		viper.AutomaticEnv()

		instance = FromViper(viper.GetViper())
	})

	return instance
}

// SetDefaults registers default values on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 60)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DB_DRIVER", "postgres")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "restock")
	v.SetDefault("DB_SSLMODE", "disable")

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_FORECAST_TTL_SECONDS", 300)

	v.SetDefault("STORAGE_BACKEND", "local")
	v.SetDefault("STORAGE_LOCAL_DIR", "./data/models")
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)

	v.SetDefault("FORECAST_HORIZON_DAYS", 7)
	v.SetDefault("FORECAST_MAX_HORIZON_DAYS", 90)
	v.SetDefault("SAFETY_STOCK_MULTIPLIER", 1.65)
	v.SetDefault("REVIEW_PERIOD_DAYS", 0)
	v.SetDefault("OVERSTOCK_MULTIPLIER", 2.0)
	v.SetDefault("OVERSTOCK_HIGH_RATIO", 3.0)
	v.SetDefault("MIN_TRAINING_POINTS", 14)
	v.SetDefault("FORECAST_LOOKBACK_DAYS", 90)
	v.SetDefault("FORECAST_FALLBACK_NAIVE", false)
	v.SetDefault("EOQ_ORDER_COST", 50.0)
	v.SetDefault("EOQ_HOLDING_COST", 2.0)
	v.SetDefault("PIPELINE_WORKER_COUNT", 4)

	v.SetDefault("ALERT_MIN_SEVERITY", "low")

	v.SetDefault("SCHEDULE_ENABLED", false)
	v.SetDefault("SCHEDULE_SPEC", "0 0 2 * * *")
	v.SetDefault("SCHEDULE_RETRAIN", true)

	v.SetDefault("GOOGLE_DRIVE_CREDENTIALS_JSON", "")
	v.SetDefault("GOOGLE_DRIVE_FOLDER_ID", "")
	v.SetDefault("DRIVE_DOWNLOAD_DIR", "./data/imports")
}

// FromViper builds a Config from an already populated viper instance.
func FromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:   v.GetString("DB_DRIVER"),
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
		},
		Cache: CacheConfig{
			Enabled:            v.GetBool("CACHE_ENABLED"),
			RedisURL:           v.GetString("REDIS_URL"),
			RedisHost:          v.GetString("REDIS_HOST"),
			RedisPort:          v.GetString("REDIS_PORT"),
			RedisPassword:      v.GetString("REDIS_PASSWORD"),
			RedisDB:            v.GetInt("REDIS_DB"),
			ForecastTTLSeconds: v.GetInt("CACHE_FORECAST_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Backend:   v.GetString("STORAGE_BACKEND"),
			LocalDir:  v.GetString("STORAGE_LOCAL_DIR"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
		},
		Forecast: ForecastConfig{
			HorizonDays:           v.GetInt("FORECAST_HORIZON_DAYS"),
			MaxHorizonDays:        v.GetInt("FORECAST_MAX_HORIZON_DAYS"),
			SafetyStockMultiplier: v.GetFloat64("SAFETY_STOCK_MULTIPLIER"),
			ReviewPeriodDays:      v.GetInt("REVIEW_PERIOD_DAYS"),
			OverstockMultiplier:   v.GetFloat64("OVERSTOCK_MULTIPLIER"),
			OverstockHighRatio:    v.GetFloat64("OVERSTOCK_HIGH_RATIO"),
			MinTrainingPoints:     v.GetInt("MIN_TRAINING_POINTS"),
			LookbackDays:          v.GetInt("FORECAST_LOOKBACK_DAYS"),
			FallbackNaive:         v.GetBool("FORECAST_FALLBACK_NAIVE"),
			OrderCost:             v.GetFloat64("EOQ_ORDER_COST"),
			HoldingCost:           v.GetFloat64("EOQ_HOLDING_COST"),
			WorkerCount:           v.GetInt("PIPELINE_WORKER_COUNT"),
		},
		Alert: AlertConfig{
			MinSeverity: v.GetString("ALERT_MIN_SEVERITY"),
		},
		Schedule: ScheduleConfig{
			Enabled: v.GetBool("SCHEDULE_ENABLED"),
			Spec:    v.GetString("SCHEDULE_SPEC"),
			Retrain: v.GetBool("SCHEDULE_RETRAIN"),
		},
		Drive: DriveConfig{
			CredentialsJSON: v.GetString("GOOGLE_DRIVE_CREDENTIALS_JSON"),
			FolderID:        v.GetString("GOOGLE_DRIVE_FOLDER_ID"),
			DownloadDir:     v.GetString("DRIVE_DOWNLOAD_DIR"),
		},
	}
}

// DefaultForecastConfig returns the forecast section with its default values.
func DefaultForecastConfig() ForecastConfig {
	v := viper.New()
	SetDefaults(v)
	return FromViper(v).Forecast
}

// ReviewPeriod resolves the review period, falling back to the forecast horizon.
func (c ForecastConfig) ReviewPeriod() int {
	if c.ReviewPeriodDays > 0 {
		return c.ReviewPeriodDays
	}
	return c.HorizonDays
}

// Validate rejects option values the pipeline cannot run with.
func (c ForecastConfig) Validate() error {
	switch {
	case c.HorizonDays < 1:
		return fmt.Errorf("%w: forecast horizon must be at least 1 day, got %d", domain.ErrInvalidConfiguration, c.HorizonDays)
	case c.HorizonDays > c.MaxHorizonDays:
		return fmt.Errorf("%w: forecast horizon %d exceeds the %d day maximum", domain.ErrInvalidConfiguration, c.HorizonDays, c.MaxHorizonDays)
	case c.SafetyStockMultiplier < 0:
		return fmt.Errorf("%w: safety stock multiplier must not be negative, got %g", domain.ErrInvalidConfiguration, c.SafetyStockMultiplier)
	case c.ReviewPeriodDays < 0:
		return fmt.Errorf("%w: review period must not be negative, got %d", domain.ErrInvalidConfiguration, c.ReviewPeriodDays)
	case c.OverstockMultiplier <= 0:
		return fmt.Errorf("%w: overstock multiplier must be positive, got %g", domain.ErrInvalidConfiguration, c.OverstockMultiplier)
	case c.MinTrainingPoints < 2:
		return fmt.Errorf("%w: min training points must be at least 2, got %d", domain.ErrInvalidConfiguration, c.MinTrainingPoints)
	case c.OrderCost < 0 || c.HoldingCost < 0:
		return fmt.Errorf("%w: order and holding costs must not be negative", domain.ErrInvalidConfiguration)
	}
	return nil
}

// PostgresDSN renders the lib/pq keyword connection string.
func (c DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}
