package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

// Store drivers.
const (
	DriverMongo    = "mongo"
	DriverPostgres = "postgres"
	DriverMemory   = "memory"
)

type Config struct {
	Port              string        `mapstructure:"PORT"`
	Env               string        `mapstructure:"ENV"`
	StoreDriver       string        `mapstructure:"STORE_DRIVER"`
	MongoURI          string        `mapstructure:"MONGODB_URI"`
	MongoDatabase     string        `mapstructure:"MONGODB_DATABASE"`
	DatabaseURL       string        `mapstructure:"DATABASE_URL"`
	DBMaxConns        int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns        int32         `mapstructure:"DB_MIN_CONNS"`
	RedisURL          string        `mapstructure:"REDIS_URL"`
	DashboardCacheTTL time.Duration `mapstructure:"DASHBOARD_CACHE_TTL"`
	ClinicAPIURL      string        `mapstructure:"CLINIC_API_URL"`
	ClinicAPIToken    string        `mapstructure:"CLINIC_API_TOKEN"`
	ClinicAPITimeout  time.Duration `mapstructure:"CLINIC_API_TIMEOUT"`
	KafkaBrokers      []string      `mapstructure:"KAFKA_BROKERS"`
	KafkaIntakeTopic  string        `mapstructure:"KAFKA_INTAKE_TOPIC"`
	ExportS3Bucket    string        `mapstructure:"EXPORT_S3_BUCKET"`
	ExportS3Prefix    string        `mapstructure:"EXPORT_S3_PREFIX"`
	AnalyticsTimezone string        `mapstructure:"ANALYTICS_TIMEZONE"`
	MinimumWage       float64       `mapstructure:"MINIMUM_WAGE"`
	CORSOrigins       []string      `mapstructure:"CORS_ORIGINS"`
	RateLimitRPS      float64       `mapstructure:"RATE_LIMIT_RPS"`
	RateLimitBurst    int           `mapstructure:"RATE_LIMIT_BURST"`
}

var keys = []string{
	"PORT", "ENV", "STORE_DRIVER",
	"MONGODB_URI", "MONGODB_DATABASE",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS",
	"REDIS_URL", "DASHBOARD_CACHE_TTL",
	"CLINIC_API_URL", "CLINIC_API_TOKEN", "CLINIC_API_TIMEOUT",
	"KAFKA_BROKERS", "KAFKA_INTAKE_TOPIC",
	"EXPORT_S3_BUCKET", "EXPORT_S3_PREFIX",
	"ANALYTICS_TIMEZONE", "MINIMUM_WAGE",
	"CORS_ORIGINS", "RATE_LIMIT_RPS", "RATE_LIMIT_BURST",
}

// Load reads .env (when present) and the environment. It does not validate;
// call Validate before using the result to start a server.
func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("STORE_DRIVER", DriverMongo)
	v.SetDefault("MONGODB_DATABASE", "frontdesk")
	v.SetDefault("DB_MAX_CONNS", 10)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DASHBOARD_CACHE_TTL", "0s")
	v.SetDefault("CLINIC_API_TIMEOUT", "30s")
	v.SetDefault("KAFKA_INTAKE_TOPIC", "frontdesk.intake")
	v.SetDefault("EXPORT_S3_PREFIX", "exports/")
	v.SetDefault("ANALYTICS_TIMEZONE", "UTC")
	v.SetDefault("MINIMUM_WAGE", 1518)
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("RATE_LIMIT_RPS", 50)
	v.SetDefault("RATE_LIMIT_BURST", 100)

	// Bind env vars explicitly so Unmarshal picks them up
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// Try reading .env file, but don't fail if missing
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}
	cfg.CORSOrigins = splitList(cfg.CORSOrigins, v.GetString("CORS_ORIGINS"))
	cfg.KafkaBrokers = splitList(cfg.KafkaBrokers, v.GetString("KAFKA_BROKERS"))
	return cfg, nil
}

// splitList accepts both a decoded list and a single comma-separated value.
func splitList(decoded []string, raw string) []string {
	if len(decoded) == 1 && strings.Contains(decoded[0], ",") {
		raw, decoded = decoded[0], nil
	}
	if len(decoded) == 0 && raw != "" {
		decoded = strings.Split(raw, ",")
	}
	var out []string
	for _, s := range decoded {
		if s = strings.TrimSpace(s); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// Location returns the time zone dashboards bucket days in. The zone name is
// passed on to the database, so "Local" is refused.
func (c *Config) Location() (*time.Location, error) {
	if c.AnalyticsTimezone == "Local" {
		return nil, fmt.Errorf("ANALYTICS_TIMEZONE must be an IANA zone name, got %q", c.AnalyticsTimezone)
	}
	loc, err := time.LoadLocation(c.AnalyticsTimezone)
	if err != nil {
		return nil, fmt.Errorf("ANALYTICS_TIMEZONE %q: %w", c.AnalyticsTimezone, err)
	}
	return loc, nil
}

// CacheEnabled reports whether dashboard snapshots are cached in Redis.
func (c *Config) CacheEnabled() bool {
	return c.RedisURL != "" && c.DashboardCacheTTL > 0
}

// Validate checks that the configuration is complete for the selected store
// driver and that the analytics settings are usable.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMongo:
		if c.MongoURI == "" {
			return fmt.Errorf("MONGODB_URI is required when STORE_DRIVER is %q", DriverMongo)
		}
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", DriverPostgres)
		}
	case DriverMemory:
		if c.IsProduction() {
			return fmt.Errorf("STORE_DRIVER %q is not allowed in production", DriverMemory)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q, %q or %q, got %q", DriverMongo, DriverPostgres, DriverMemory, c.StoreDriver)
	}
	if _, err := c.Location(); err != nil {
		return err
	}
	if c.MinimumWage <= 0 {
		return fmt.Errorf("MINIMUM_WAGE must be positive, got %v", c.MinimumWage)
	}
	if c.DBMinConns > c.DBMaxConns {
		return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
	}
	if c.DashboardCacheTTL < 0 {
		return fmt.Errorf("DASHBOARD_CACHE_TTL must not be negative")
	}
	if c.ExportS3Prefix != "" && strings.HasPrefix(c.ExportS3Prefix, "/") {
		return fmt.Errorf("EXPORT_S3_PREFIX must be relative, got %q", c.ExportS3Prefix)
	}
	return nil
}
