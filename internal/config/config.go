package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
	"surebet/internal/model"
)

// Config stores all configuration for the application.
// The values are read by viper from a config file or environment variables.
type Config struct {
	Arbitrage ArbitrageConfig
	Scan      ScanConfig
	Collector CollectorConfig
	Database  DatabaseConfig
	Redis     RedisConfig
	Archive   ArchiveConfig
	Notify    NotifyConfig
	Metrics   MetricsConfig
	Logging   LoggingConfig
	Sources   []model.Source
}

// ArbitrageConfig defines the surebet acceptance and stake sizing settings.
type ArbitrageConfig struct {
	AcceptanceThreshold float64 `mapstructure:"acceptance_threshold"`
	TotalStake          float64 `mapstructure:"total_stake"`
	MaxResults          int     `mapstructure:"max_results"`
}

// ScanConfig controls how sources are grouped to respect external rate limits.
type ScanConfig struct {
	BatchSize  int           `mapstructure:"batch_size"`
	BatchDelay time.Duration `mapstructure:"batch_delay"`
	SummaryTop int           `mapstructure:"summary_top"`
}

// CollectorConfig defines per-source fetch settings.
type CollectorConfig struct {
	Timeout     time.Duration `mapstructure:"timeout"`
	UserAgent   string        `mapstructure:"user_agent"`
	MaxElements int           `mapstructure:"max_elements"`
}

// DatabaseConfig selects the persistence sink and its connection settings.
type DatabaseConfig struct {
	Driver   string
	REST     RESTConfig     `mapstructure:"rest"`
	Postgres PostgresConfig `mapstructure:"postgres"`
}

// RESTConfig points at a PostgREST endpoint such as Supabase.
type RESTConfig struct {
	URL     string
	Key     string
	Timeout time.Duration
}

// PostgresConfig defines the direct database connection settings.
type PostgresConfig struct {
	DSN      string
	Host     string
	Port     int
	User     string
	Password string
	DBName   string
	SSLMode  string `mapstructure:"sslmode"`
	MaxConns int    `mapstructure:"max_conns"`
}

// RedisConfig enables publishing opportunities to a Redis stream when Addr is set.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
	Stream   string
	MaxLen   int64 `mapstructure:"max_len"`
}

// ArchiveConfig enables S3 snapshot uploads when Bucket is set.
type ArchiveConfig struct {
	Bucket         string
	Region         string
	Endpoint       string
	AccessKey      string `mapstructure:"access_key"`
	SecretKey      string `mapstructure:"secret_key"`
	ForcePathStyle bool   `mapstructure:"force_path_style"`
	Prefix         string
}

// NotifyConfig enables the signed webhook when WebhookURL is set.
type NotifyConfig struct {
	WebhookURL string `mapstructure:"webhook_url"`
	Secret     string
	Top        int
}

// MetricsConfig enables pushing the run's metrics to a Prometheus Pushgateway.
type MetricsConfig struct {
	PushgatewayURL string `mapstructure:"pushgateway_url"`
	Job            string
}

// LoggingConfig selects the slog handler.
type LoggingConfig struct {
	Level  string
	Format string
}

// Driver names for DatabaseConfig.Driver.
const (
	DriverREST     = "rest"
	DriverPostgres = "postgres"
)

// envAliases binds the plain variable names used by deployments.
var envAliases = map[string][]string{
	"database.rest.url":     {"DATABASE_REST_URL", "SUPABASE_URL"},
	"database.rest.key":     {"DATABASE_REST_KEY", "SUPABASE_KEY"},
	"database.postgres.dsn": {"DATABASE_POSTGRES_DSN", "DATABASE_URL"},
	"notify.secret":         {"NOTIFY_SECRET", "WEBHOOK_SECRET"},
	"notify.webhook_url":    {"NOTIFY_WEBHOOK_URL", "WEBHOOK_URL"},
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("arbitrage.acceptance_threshold", 0.98)
	v.SetDefault("arbitrage.total_stake", 500.0)
	v.SetDefault("arbitrage.max_results", 20)

	v.SetDefault("scan.batch_size", 3)
	v.SetDefault("scan.batch_delay", 2*time.Second)
	v.SetDefault("scan.summary_top", 5)

	v.SetDefault("collector.timeout", 30*time.Second)
	v.SetDefault("collector.user_agent", "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36")
	v.SetDefault("collector.max_elements", 10)

	v.SetDefault("database.driver", DriverREST)
	v.SetDefault("database.rest.url", "")
	v.SetDefault("database.rest.key", "")
	v.SetDefault("database.rest.timeout", 15*time.Second)
	v.SetDefault("database.postgres.dsn", "")
	v.SetDefault("database.postgres.host", "localhost")
	v.SetDefault("database.postgres.port", 5432)
	v.SetDefault("database.postgres.user", "")
	v.SetDefault("database.postgres.password", "")
	v.SetDefault("database.postgres.dbname", "")
	v.SetDefault("database.postgres.sslmode", "disable")
	v.SetDefault("database.postgres.max_conns", 4)

	v.SetDefault("redis.addr", "")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.stream", "surebets.detected")
	v.SetDefault("redis.max_len", 10000)

	v.SetDefault("archive.bucket", "")
	v.SetDefault("archive.region", "us-east-1")
	v.SetDefault("archive.endpoint", "")
	v.SetDefault("archive.access_key", "")
	v.SetDefault("archive.secret_key", "")
	v.SetDefault("archive.force_path_style", false)
	v.SetDefault("archive.prefix", "scans")

	v.SetDefault("notify.webhook_url", "")
	v.SetDefault("notify.secret", "")
	v.SetDefault("notify.top", 5)

	v.SetDefault("metrics.pushgateway_url", "")
	v.SetDefault("metrics.job", "surebet")

	v.SetDefault("logging.level", "info")
	v.SetDefault("logging.format", "text")
}

// LoadConfig reads configuration from file or environment variables.
// A missing config file is not an error; defaults and the environment apply.
func LoadConfig(path string) (config Config, err error) {
	// .env is optional
	_ = godotenv.Load()

	v := viper.New()
	v.AddConfigPath(path)
	v.SetConfigName("config")
	v.SetConfigType("yaml")

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	for key, names := range envAliases {
		if err = v.BindEnv(append([]string{key}, names...)...); err != nil {
			return
		}
	}

	if err = v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return
		}
		err = nil
	}

	if err = v.Unmarshal(&config); err != nil {
		return
	}

	if len(config.Sources) == 0 {
		config.Sources = DefaultSources()
	}
	for i := range config.Sources {
		if config.Sources[i].Kind == "" {
			config.Sources[i].Kind = model.SourceKindPage
		}
	}

	return
}

// Validate checks the settings the scan cannot run without.
func (c Config) Validate() error {
	var errs []error
	if t := c.Arbitrage.AcceptanceThreshold; t <= 0 || t >= 1 {
		errs = append(errs, fmt.Errorf("arbitrage.acceptance_threshold must be in (0,1), got %v", t))
	}
	if c.Arbitrage.TotalStake <= 0 {
		errs = append(errs, fmt.Errorf("arbitrage.total_stake must be positive, got %v", c.Arbitrage.TotalStake))
	}
	if c.Arbitrage.MaxResults <= 0 {
		errs = append(errs, fmt.Errorf("arbitrage.max_results must be positive, got %d", c.Arbitrage.MaxResults))
	}
	if c.Scan.BatchSize <= 0 {
		errs = append(errs, fmt.Errorf("scan.batch_size must be positive, got %d", c.Scan.BatchSize))
	}
	if c.Scan.BatchDelay < 0 {
		errs = append(errs, fmt.Errorf("scan.batch_delay must not be negative, got %s", c.Scan.BatchDelay))
	}
	switch c.Database.Driver {
	case DriverREST, DriverPostgres:
	default:
		errs = append(errs, fmt.Errorf("database.driver: unknown driver %q", c.Database.Driver))
	}

	seen := make(map[string]bool, len(c.Sources))
	for i, src := range c.Sources {
		switch {
		case src.Name == "":
			errs = append(errs, fmt.Errorf("sources[%d]: name is required", i))
		case seen[src.Name]:
			errs = append(errs, fmt.Errorf("sources[%d]: duplicate name %q", i, src.Name))
		}
		seen[src.Name] = true
		if src.URL == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: url is required", i))
		}
		if src.Selector == "" {
			errs = append(errs, fmt.Errorf("sources[%d]: selector is required", i))
		}
		if src.Kind != model.SourceKindPage && src.Kind != model.SourceKindStream {
			errs = append(errs, fmt.Errorf("sources[%d]: unknown kind %q", i, src.Kind))
		}
	}
	return errors.Join(errs...)
}
