// internal/config/config.go
package config

import (
	"strings"
	"sync"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"

	"github.com/andresuchdata/invhealth/internal/audit"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Cache    CacheConfig
	Lock     LockConfig
	Storage  StorageConfig
	Broker   BrokerConfig
	Metrics  MetricsConfig
	Log      LogConfig
	Audit    AuditSettings
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	URL      string
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string

	MaxOpenConns    int
	MaxIdleConns    int
	MaxConcurrentTx int64
}

// CacheConfig also carries the redis connection shared with the run lock.
type CacheConfig struct {
	Enabled          bool
	RedisURL         string
	RedisHost        string
	RedisPort        string
	RedisPassword    string
	RedisDB          int
	ReportTTLSeconds int
}

type LockConfig struct {
	Enabled    bool
	TTLSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	Region    string
	UseSSL    bool
	Prefix    string
}

type BrokerConfig struct {
	Enabled      bool
	Brokers      []string
	RetrainTopic string
}

type MetricsConfig struct {
	Enabled bool
	Path    string
}

type LogConfig struct {
	Level  string
	Format string
}

// AuditSettings mirrors audit.Config in environment form.
type AuditSettings struct {
	TargetServiceLevel       float64
	DefaultLeadTimeDays      int
	MinNewInvoicesForRetrain int
	MaxPriceDeviation        float64
	DemandLookbackDays       int
	PriceLookbackDays        int
	ForecastHorizonDays      int
	Persist                  bool
	RunTimeoutSeconds        int
}

var (
	once     sync.Once
	instance *Config
)

func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		v := viper.New()
		setDefaults(v)

		// Read from environment variables
		v.AutomaticEnv()

		instance = fromViper(v)
	})

	return instance
}

func setDefaults(v *viper.Viper) {
	defaults := audit.DefaultConfig()

	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 30)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 120)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "inventory")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_OPEN_CONNS", 25)
	v.SetDefault("DB_MAX_IDLE_CONNS", 5)
	v.SetDefault("DB_MAX_CONCURRENT_TX", 10)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_REPORT_TTL_SECONDS", 3600)

	v.SetDefault("LOCK_ENABLED", false)
	v.SetDefault("LOCK_TTL_SECONDS", 900)

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_ENDPOINT", "")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "inventory-audits")
	v.SetDefault("STORAGE_REGION", "us-east-1")
	v.SetDefault("STORAGE_USE_SSL", true)
	v.SetDefault("STORAGE_PREFIX", "audits")

	v.SetDefault("KAFKA_ENABLED", false)
	v.SetDefault("KAFKA_BROKERS", "localhost:9092")
	v.SetDefault("KAFKA_RETRAIN_TOPIC", "inventory.retrain-requested")

	v.SetDefault("METRICS_ENABLED", true)
	v.SetDefault("METRICS_PATH", "/metrics")

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")

	v.SetDefault("AUDIT_TARGET_SERVICE_LEVEL", defaults.TargetServiceLevel)
	v.SetDefault("AUDIT_DEFAULT_LEAD_TIME_DAYS", defaults.DefaultLeadTimeDays)
	v.SetDefault("AUDIT_MIN_NEW_INVOICES_RETRAIN", defaults.MinNewInvoicesForRetrain)
	v.SetDefault("AUDIT_MAX_PRICE_DEVIATION", defaults.MaxPriceDeviation)
	v.SetDefault("AUDIT_DEMAND_LOOKBACK_DAYS", defaults.DemandLookbackDays)
	v.SetDefault("AUDIT_PRICE_LOOKBACK_DAYS", defaults.PriceLookbackDays)
	v.SetDefault("AUDIT_FORECAST_HORIZON_DAYS", defaults.ForecastHorizonDays)
	v.SetDefault("AUDIT_PERSIST", defaults.Persist)
	v.SetDefault("AUDIT_RUN_TIMEOUT_SECONDS", 600)
}

func fromViper(v *viper.Viper) *Config {
	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			URL:             v.GetString("DATABASE_URL"),
			Host:            v.GetString("DB_HOST"),
			Port:            v.GetString("DB_PORT"),
			User:            v.GetString("DB_USER"),
			Password:        v.GetString("DB_PASSWORD"),
			DBName:          v.GetString("DB_NAME"),
			SSLMode:         v.GetString("DB_SSLMODE"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxConcurrentTx: v.GetInt64("DB_MAX_CONCURRENT_TX"),
		},
		Cache: CacheConfig{
			Enabled:          v.GetBool("CACHE_ENABLED"),
			RedisURL:         v.GetString("REDIS_URL"),
			RedisHost:        v.GetString("REDIS_HOST"),
			RedisPort:        v.GetString("REDIS_PORT"),
			RedisPassword:    v.GetString("REDIS_PASSWORD"),
			RedisDB:          v.GetInt("REDIS_DB"),
			ReportTTLSeconds: v.GetInt("CACHE_REPORT_TTL_SECONDS"),
		},
		Lock: LockConfig{
			Enabled:    v.GetBool("LOCK_ENABLED"),
			TTLSeconds: v.GetInt("LOCK_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			Region:    v.GetString("STORAGE_REGION"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Prefix:    strings.Trim(v.GetString("STORAGE_PREFIX"), "/"),
		},
		Broker: BrokerConfig{
			Enabled:      v.GetBool("KAFKA_ENABLED"),
			Brokers:      splitList(v.GetString("KAFKA_BROKERS")),
			RetrainTopic: v.GetString("KAFKA_RETRAIN_TOPIC"),
		},
		Metrics: MetricsConfig{
			Enabled: v.GetBool("METRICS_ENABLED"),
			Path:    v.GetString("METRICS_PATH"),
		},
		Log: LogConfig{
			Level:  v.GetString("LOG_LEVEL"),
			Format: v.GetString("LOG_FORMAT"),
		},
		Audit: AuditSettings{
			TargetServiceLevel:       v.GetFloat64("AUDIT_TARGET_SERVICE_LEVEL"),
			DefaultLeadTimeDays:      v.GetInt("AUDIT_DEFAULT_LEAD_TIME_DAYS"),
			MinNewInvoicesForRetrain: v.GetInt("AUDIT_MIN_NEW_INVOICES_RETRAIN"),
			MaxPriceDeviation:        v.GetFloat64("AUDIT_MAX_PRICE_DEVIATION"),
			DemandLookbackDays:       v.GetInt("AUDIT_DEMAND_LOOKBACK_DAYS"),
			PriceLookbackDays:        v.GetInt("AUDIT_PRICE_LOOKBACK_DAYS"),
			ForecastHorizonDays:      v.GetInt("AUDIT_FORECAST_HORIZON_DAYS"),
			Persist:                  v.GetBool("AUDIT_PERSIST"),
			RunTimeoutSeconds:        v.GetInt("AUDIT_RUN_TIMEOUT_SECONDS"),
		},
	}
}

// ToAuditConfig builds the engine config; the audit date is left to the caller.
func (s AuditSettings) ToAuditConfig() audit.Config {
	return audit.Config{
		TargetServiceLevel:       s.TargetServiceLevel,
		DefaultLeadTimeDays:      s.DefaultLeadTimeDays,
		MinNewInvoicesForRetrain: s.MinNewInvoicesForRetrain,
		MaxPriceDeviation:        s.MaxPriceDeviation,
		DemandLookbackDays:       s.DemandLookbackDays,
		PriceLookbackDays:        s.PriceLookbackDays,
		ForecastHorizonDays:      s.ForecastHorizonDays,
		Persist:                  s.Persist,
	}
}

// RunTimeout bounds one audit run, zero meaning no limit.
func (s AuditSettings) RunTimeout() time.Duration {
	if s.RunTimeoutSeconds <= 0 {
		return 0
	}
	return time.Duration(s.RunTimeoutSeconds) * time.Second
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
