package config

import (
	"strings"
	"time"

	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// DefaultNotFoundMarker is printed by ABN Lookup when the search text is
// not a registered identifier.
const DefaultNotFoundMarker = "Search text is not a valid ABN or ACN"

// Config holds the full application configuration.
type Config struct {
	Lookup LookupConfig `yaml:"lookup" mapstructure:"lookup"`
	Cache  CacheConfig  `yaml:"cache" mapstructure:"cache"`
	Server ServerConfig `yaml:"server" mapstructure:"server"`
	Log    LogConfig    `yaml:"log" mapstructure:"log"`
}

// LookupConfig configures how registry pages are fetched and cached.
type LookupConfig struct {
	BaseURL           string      `yaml:"base_url" mapstructure:"base_url"`
	Referer           string      `yaml:"referer" mapstructure:"referer"`
	UserAgent         string      `yaml:"user_agent" mapstructure:"user_agent"`
	Accept            string      `yaml:"accept" mapstructure:"accept"`
	AcceptLanguage    string      `yaml:"accept_language" mapstructure:"accept_language"`
	TimeoutSecs       int         `yaml:"timeout_secs" mapstructure:"timeout_secs"`
	VerifyTLS         bool        `yaml:"verify_tls" mapstructure:"verify_tls"`
	CacheDurationSecs int         `yaml:"cache_duration_secs" mapstructure:"cache_duration_secs"`
	Concurrency       int         `yaml:"concurrency" mapstructure:"concurrency"`
	NotFoundMarkers   []string    `yaml:"not_found_markers" mapstructure:"not_found_markers"`
	Proxy             ProxyConfig `yaml:"proxy" mapstructure:"proxy"`
}

// Timeout is the total request timeout for one page fetch.
func (c LookupConfig) Timeout() time.Duration {
	return time.Duration(c.TimeoutSecs) * time.Second
}

// CacheDuration is how long a cached record stays fresh.
func (c LookupConfig) CacheDuration() time.Duration {
	return time.Duration(c.CacheDurationSecs) * time.Second
}

// ProxyConfig routes upstream fetches through an HTTP or SOCKS proxy.
type ProxyConfig struct {
	Address  string `yaml:"address" mapstructure:"address"`
	Scheme   string `yaml:"scheme" mapstructure:"scheme"`
	Username string `yaml:"username" mapstructure:"username"`
	Password string `yaml:"password" mapstructure:"password"`
}

// Enabled reports whether a proxy address is configured.
func (p ProxyConfig) Enabled() bool {
	return p.Address != ""
}

// CacheConfig selects the record cache backend. MaxConns and MinConns size
// the postgres connection pool.
type CacheConfig struct {
	Driver      string `yaml:"driver" mapstructure:"driver"`
	Dir         string `yaml:"dir" mapstructure:"dir"`
	DatabaseURL string `yaml:"database_url" mapstructure:"database_url"`
	RedisURL    string `yaml:"redis_url" mapstructure:"redis_url"`
	MaxConns    int32  `yaml:"max_conns" mapstructure:"max_conns"`
	MinConns    int32  `yaml:"min_conns" mapstructure:"min_conns"`
}

// ServerConfig configures the HTTP API.
type ServerConfig struct {
	Port int `yaml:"port" mapstructure:"port"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`
	Format string `yaml:"format" mapstructure:"format"`
}

// Cache drivers.
const (
	DriverFile     = "file"
	DriverSQLite   = "sqlite"
	DriverPostgres = "postgres"
	DriverRedis    = "redis"
	DriverNone     = "none"
)

// Load reads configuration from file and environment.
func Load() (*Config, error) {
	v := viper.New()

	// Config file
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")

	// Environment
	v.SetEnvPrefix("ABN")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	// Read config file (optional)
	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, eris.Wrap(err, "config: read file")
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, eris.Wrap(err, "config: unmarshal")
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	return &cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("lookup.base_url", "https://abr.business.gov.au/ABN/View")
	v.SetDefault("lookup.referer", "https://abr.business.gov.au/")
	v.SetDefault("lookup.user_agent", "Mozilla/5.0 (compatible; abn-checker/1.0)")
	v.SetDefault("lookup.accept", "text/html,application/xhtml+xml,application/xml;q=0.9,*/*;q=0.8")
	v.SetDefault("lookup.accept_language", "en-AU,en;q=0.9")
	v.SetDefault("lookup.timeout_secs", 30)
	v.SetDefault("lookup.verify_tls", true)
	v.SetDefault("lookup.cache_duration_secs", 86400)
	v.SetDefault("lookup.concurrency", 4)
	v.SetDefault("lookup.not_found_markers", []string{DefaultNotFoundMarker})
	v.SetDefault("lookup.proxy.address", "")
	v.SetDefault("lookup.proxy.scheme", "http")
	v.SetDefault("lookup.proxy.username", "")
	v.SetDefault("lookup.proxy.password", "")
	v.SetDefault("cache.driver", DriverFile)
	v.SetDefault("cache.dir", "./cache")
	v.SetDefault("cache.database_url", "")
	v.SetDefault("cache.redis_url", "")
	v.SetDefault("cache.max_conns", 4)
	v.SetDefault("cache.min_conns", 0)
	v.SetDefault("server.port", 8080)
	v.SetDefault("log.level", "info")
	v.SetDefault("log.format", "json")
}

// Validate checks option combinations that would only fail later at use.
func (c *Config) Validate() error {
	if c.Lookup.BaseURL == "" {
		return eris.New("config: lookup.base_url is required")
	}
	if c.Lookup.TimeoutSecs <= 0 {
		return eris.Errorf("config: lookup.timeout_secs must be positive, got %d", c.Lookup.TimeoutSecs)
	}
	if c.Lookup.CacheDurationSecs < 0 {
		return eris.Errorf("config: lookup.cache_duration_secs must not be negative, got %d", c.Lookup.CacheDurationSecs)
	}
	switch c.Lookup.Proxy.Scheme {
	case "", "http", "https", "socks5":
	default:
		return eris.Errorf("config: unsupported proxy scheme %q", c.Lookup.Proxy.Scheme)
	}

	if c.Cache.MaxConns < 0 || c.Cache.MinConns < 0 {
		return eris.New("config: cache.max_conns and cache.min_conns must not be negative")
	}
	if c.Cache.MaxConns > 0 && c.Cache.MinConns > c.Cache.MaxConns {
		return eris.Errorf("config: cache.min_conns (%d) exceeds cache.max_conns (%d)", c.Cache.MinConns, c.Cache.MaxConns)
	}

	switch c.Cache.Driver {
	case DriverFile:
		if c.Cache.Dir == "" {
			return eris.New("config: cache.dir is required for the file driver")
		}
	case DriverSQLite, DriverPostgres:
		if c.Cache.DatabaseURL == "" {
			return eris.Errorf("config: cache.database_url is required for the %s driver", c.Cache.Driver)
		}
	case DriverRedis:
		if c.Cache.RedisURL == "" {
			return eris.New("config: cache.redis_url is required for the redis driver")
		}
	case DriverNone:
	default:
		return eris.Errorf("config: unknown cache driver %q", c.Cache.Driver)
	}
	return nil
}

// InitLogger initializes the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "console" {
		zapCfg = zap.NewDevelopmentConfig()
	} else {
		zapCfg = zap.NewProductionConfig()
	}

	level, err := zapcore.ParseLevel(cfg.Level)
	if err != nil {
		return eris.Wrap(err, "config: parse log level")
	}
	zapCfg.Level.SetLevel(level)

	logger, err := zapCfg.Build()
	if err != nil {
		return eris.Wrap(err, "config: build logger")
	}
	zap.ReplaceGlobals(logger)

	return nil
}
