// backend-go/internal/config/config.go
package config

import (
	"fmt"
	"strings"
	"sync"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"github.com/spf13/viper"
)

type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	App      AppConfig
	Cache    CacheConfig
	Storage  StorageConfig
	Items    ItemDefaultsConfig
	Policy   PolicyDefaultsConfig
}

type ServerConfig struct {
	Port           string
	Mode           string
	ReadTimeout    int
	WriteTimeout   int
	AllowedOrigins []string
}

type DatabaseConfig struct {
	Driver   string // memory or postgres
	URL      string // pgx DSN used by the CLI
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
	MaxConns int
}

type AppConfig struct {
	LogLevel      string
	LogFormat     string
	IngestWorkers int
}

type CacheConfig struct {
	Enabled           bool
	RedisURL          string
	RedisHost         string
	RedisPort         string
	RedisPassword     string
	RedisDB           int
	CatalogTTLSeconds int
}

type StorageConfig struct {
	Enabled   bool
	Endpoint  string
	AccessKey string
	SecretKey string
	Bucket    string
	UseSSL    bool
	Region    string
}

// ItemDefaultsConfig holds the purchasing values given to items created by import.
type ItemDefaultsConfig struct {
	LeadTimeDays  int
	MinOrderQty   int
	OrderMultiple int
}

// PolicyDefaultsConfig is the policy seeded when the store is empty.
type PolicyDefaultsConfig struct {
	Name                       string
	RunRateMethod              string
	AvgWindowDays              int
	RecentWeightDays           int
	RecentWeightFactor         float64
	LeadTimeDefaultDays        int
	SafetyStockDays            int
	SlowMoverQtyThreshold      int
	SlowMoverDaysSinceLastSale int
	MinRevenueThreshold        decimal.Decimal
	RoundingStrategy           string
}

var (
	once     sync.Once
	instance *Config
)

// Load reads .env and the process environment once and returns the shared config.
func Load() *Config {
	once.Do(func() {
		// Load .env file if it exists
		_ = godotenv.Load()

		instance = FromViper(viper.GetViper())
	})

	return instance
}

// SetDefaults registers every default on v.
func SetDefaults(v *viper.Viper) {
	v.SetDefault("SERVER_PORT", "8080")
	v.SetDefault("SERVER_MODE", "debug")
	v.SetDefault("SERVER_READ_TIMEOUT", 15)
	v.SetDefault("SERVER_WRITE_TIMEOUT", 30)
	v.SetDefault("SERVER_ALLOWED_ORIGINS", []string{"*"})

	v.SetDefault("DB_DRIVER", "memory")
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("DB_HOST", "localhost")
	v.SetDefault("DB_PORT", "5432")
	v.SetDefault("DB_USER", "postgres")
	v.SetDefault("DB_PASSWORD", "postgres")
	v.SetDefault("DB_NAME", "replenish")
	v.SetDefault("DB_SSLMODE", "disable")
	v.SetDefault("DB_MAX_CONNS", 10)

	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("LOG_FORMAT", "console")
	v.SetDefault("INGEST_WORKERS", 8)

	v.SetDefault("CACHE_ENABLED", false)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("REDIS_HOST", "127.0.0.1")
	v.SetDefault("REDIS_PORT", "6379")
	v.SetDefault("REDIS_PASSWORD", "")
	v.SetDefault("REDIS_DB", 0)
	v.SetDefault("CACHE_CATALOG_TTL_SECONDS", 300)

	v.SetDefault("STORAGE_ENABLED", false)
	v.SetDefault("STORAGE_ENDPOINT", "localhost:9000")
	v.SetDefault("STORAGE_ACCESS_KEY", "")
	v.SetDefault("STORAGE_SECRET_KEY", "")
	v.SetDefault("STORAGE_BUCKET", "replenish-exports")
	v.SetDefault("STORAGE_USE_SSL", false)
	v.SetDefault("STORAGE_REGION", "")

	v.SetDefault("ITEM_DEFAULT_LEAD_TIME_DAYS", 2)
	v.SetDefault("ITEM_DEFAULT_MIN_ORDER_QTY", 1)
	v.SetDefault("ITEM_DEFAULT_ORDER_MULTIPLE", 1)

	v.SetDefault("POLICY_DEFAULT_NAME", "Default 2025Q3")
	v.SetDefault("POLICY_DEFAULT_RUN_RATE_METHOD", "weighted_avg")
	v.SetDefault("POLICY_DEFAULT_AVG_WINDOW_DAYS", 365)
	v.SetDefault("POLICY_DEFAULT_RECENT_WEIGHT_DAYS", 90)
	v.SetDefault("POLICY_DEFAULT_RECENT_WEIGHT_FACTOR", 1.5)
	v.SetDefault("POLICY_DEFAULT_LEAD_TIME_DAYS", 2)
	v.SetDefault("POLICY_DEFAULT_SAFETY_STOCK_DAYS", 7)
	v.SetDefault("POLICY_DEFAULT_SLOW_MOVER_QTY", 3)
	v.SetDefault("POLICY_DEFAULT_SLOW_MOVER_DAYS", 120)
	v.SetDefault("POLICY_DEFAULT_MIN_REVENUE", "50")
	v.SetDefault("POLICY_DEFAULT_ROUNDING", "to_multiple")
}

// FromViper builds a Config from v after registering defaults and env binding.
func FromViper(v *viper.Viper) *Config {
	SetDefaults(v)

	// Read from environment variables
	v.AutomaticEnv()

	minRevenue, err := decimal.NewFromString(strings.TrimSpace(v.GetString("POLICY_DEFAULT_MIN_REVENUE")))
	if err != nil {
		minRevenue = decimal.NewFromInt(50)
	}

	return &Config{
		Server: ServerConfig{
			Port:           v.GetString("SERVER_PORT"),
			Mode:           v.GetString("SERVER_MODE"),
			ReadTimeout:    v.GetInt("SERVER_READ_TIMEOUT"),
			WriteTimeout:   v.GetInt("SERVER_WRITE_TIMEOUT"),
			AllowedOrigins: v.GetStringSlice("SERVER_ALLOWED_ORIGINS"),
		},
		Database: DatabaseConfig{
			Driver:   strings.ToLower(v.GetString("DB_DRIVER")),
			URL:      v.GetString("DATABASE_URL"),
			Host:     v.GetString("DB_HOST"),
			Port:     v.GetString("DB_PORT"),
			User:     v.GetString("DB_USER"),
			Password: v.GetString("DB_PASSWORD"),
			DBName:   v.GetString("DB_NAME"),
			SSLMode:  v.GetString("DB_SSLMODE"),
			MaxConns: v.GetInt("DB_MAX_CONNS"),
		},
		App: AppConfig{
			LogLevel:      v.GetString("LOG_LEVEL"),
			LogFormat:     v.GetString("LOG_FORMAT"),
			IngestWorkers: v.GetInt("INGEST_WORKERS"),
		},
		Cache: CacheConfig{
			Enabled:           v.GetBool("CACHE_ENABLED"),
			RedisURL:          v.GetString("REDIS_URL"),
			RedisHost:         v.GetString("REDIS_HOST"),
			RedisPort:         v.GetString("REDIS_PORT"),
			RedisPassword:     v.GetString("REDIS_PASSWORD"),
			RedisDB:           v.GetInt("REDIS_DB"),
			CatalogTTLSeconds: v.GetInt("CACHE_CATALOG_TTL_SECONDS"),
		},
		Storage: StorageConfig{
			Enabled:   v.GetBool("STORAGE_ENABLED"),
			Endpoint:  v.GetString("STORAGE_ENDPOINT"),
			AccessKey: v.GetString("STORAGE_ACCESS_KEY"),
			SecretKey: v.GetString("STORAGE_SECRET_KEY"),
			Bucket:    v.GetString("STORAGE_BUCKET"),
			UseSSL:    v.GetBool("STORAGE_USE_SSL"),
			Region:    v.GetString("STORAGE_REGION"),
		},
		Items: ItemDefaultsConfig{
			LeadTimeDays:  v.GetInt("ITEM_DEFAULT_LEAD_TIME_DAYS"),
			MinOrderQty:   v.GetInt("ITEM_DEFAULT_MIN_ORDER_QTY"),
			OrderMultiple: v.GetInt("ITEM_DEFAULT_ORDER_MULTIPLE"),
		},
		Policy: PolicyDefaultsConfig{
			Name:                       v.GetString("POLICY_DEFAULT_NAME"),
			RunRateMethod:              v.GetString("POLICY_DEFAULT_RUN_RATE_METHOD"),
			AvgWindowDays:              v.GetInt("POLICY_DEFAULT_AVG_WINDOW_DAYS"),
			RecentWeightDays:           v.GetInt("POLICY_DEFAULT_RECENT_WEIGHT_DAYS"),
			RecentWeightFactor:         v.GetFloat64("POLICY_DEFAULT_RECENT_WEIGHT_FACTOR"),
			LeadTimeDefaultDays:        v.GetInt("POLICY_DEFAULT_LEAD_TIME_DAYS"),
			SafetyStockDays:            v.GetInt("POLICY_DEFAULT_SAFETY_STOCK_DAYS"),
			SlowMoverQtyThreshold:      v.GetInt("POLICY_DEFAULT_SLOW_MOVER_QTY"),
			SlowMoverDaysSinceLastSale: v.GetInt("POLICY_DEFAULT_SLOW_MOVER_DAYS"),
			MinRevenueThreshold:        minRevenue,
			RoundingStrategy:           v.GetString("POLICY_DEFAULT_ROUNDING"),
		},
	}
}

// PostgresDSN renders the lib/pq connection string.
func (d DatabaseConfig) PostgresDSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		d.Host, d.Port, d.User, d.Password, d.DBName, d.SSLMode)
}

// PgxURL returns DATABASE_URL or a URL built from the DB_* settings.
func (d DatabaseConfig) PgxURL() string {
	if d.URL != "" {
		return d.URL
	}
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		d.User, d.Password, d.Host, d.Port, d.DBName, d.SSLMode)
}
