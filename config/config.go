package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/aukilabs/go-tooling/pkg/errors"
	"github.com/spf13/viper"
)

const (
	StorageMemory   = "memory"
	StoragePostgres = "postgres"

	envPrefix = "QUADNAV"
)

type Config struct {
	Server     ServerConfig     `mapstructure:"server"`
	Log        LogConfig        `mapstructure:"log"`
	Storage    StorageConfig    `mapstructure:"storage"`
	DB         DBConfig         `mapstructure:"db"`
	Migrations MigrationsConfig `mapstructure:"migrations"`
	Redis      RedisConfig      `mapstructure:"redis"`
	Tree       TreeConfig       `mapstructure:"tree"`
	Search     SearchConfig     `mapstructure:"search"`
}

type ServerConfig struct {
	Addr            string        `mapstructure:"addr"`
	ShutdownTimeout time.Duration `mapstructure:"shutdown_timeout"`

	// RateLimit caps search requests per second across all clients. Zero
	// disables the limit.
	RateLimit float64 `mapstructure:"rate_limit"`
	RateBurst int     `mapstructure:"rate_burst"`
}

type LogConfig struct {
	Level  string `mapstructure:"level"`
	Indent bool   `mapstructure:"indent"`
}

type StorageConfig struct {
	Driver string `mapstructure:"driver"`
}

type DBConfig struct {
	User     string `mapstructure:"user"`
	Password string `mapstructure:"password"`
	DBName   string `mapstructure:"dbname"`
	SSLMode  string `mapstructure:"sslmode"`
	Host     string `mapstructure:"host"`
	Port     string `mapstructure:"port"`
}

// DSN returns the key/value connection string used by lib/pq.
func (c DBConfig) DSN() string {
	return fmt.Sprintf("host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.DBName, c.SSLMode)
}

// URL returns the connection URL used by golang-migrate.
func (c DBConfig) URL() string {
	return fmt.Sprintf("postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode)
}

type MigrationsConfig struct {
	Enabled    bool          `mapstructure:"enabled"`
	Path       string        `mapstructure:"path"`
	Retries    int           `mapstructure:"retries"`
	RetryDelay time.Duration `mapstructure:"retry_delay"`
}

type RedisConfig struct {
	Enabled  bool          `mapstructure:"enabled"`
	Addr     string        `mapstructure:"addr"`
	Password string        `mapstructure:"password"`
	DB       int           `mapstructure:"db"`
	TTL      time.Duration `mapstructure:"ttl"`
}

// TreeConfig holds the defaults applied to maps created without explicit
// dimensions.
type TreeConfig struct {
	Size        float64 `mapstructure:"size"`
	MinCellSize float64 `mapstructure:"min_cell_size"`
	Capacity    int     `mapstructure:"capacity"`
}

type SearchConfig struct {
	Timeout          time.Duration `mapstructure:"timeout"`
	HeuristicWeight  float64       `mapstructure:"heuristic_weight"`
	MaxExpansions    int           `mapstructure:"max_expansions"`
	SnapRetries      int           `mapstructure:"snap_retries"`
	GeohashPrecision uint          `mapstructure:"geohash_precision"`
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.shutdown_timeout", 10*time.Second)
	v.SetDefault("server.rate_limit", 0.0)
	v.SetDefault("server.rate_burst", 50)

	v.SetDefault("log.level", "info")
	v.SetDefault("log.indent", false)

	v.SetDefault("storage.driver", StorageMemory)

	v.SetDefault("db.user", "postgres")
	v.SetDefault("db.password", "postgres")
	v.SetDefault("db.dbname", "quadnav")
	v.SetDefault("db.sslmode", "disable")
	v.SetDefault("db.host", "localhost")
	v.SetDefault("db.port", "5432")

	v.SetDefault("migrations.enabled", true)
	v.SetDefault("migrations.path", "file://database/migrations")
	v.SetDefault("migrations.retries", 10)
	v.SetDefault("migrations.retry_delay", 3*time.Second)

	v.SetDefault("redis.enabled", false)
	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)
	v.SetDefault("redis.ttl", 10*time.Minute)

	v.SetDefault("tree.size", 16.0)
	v.SetDefault("tree.min_cell_size", 1.0)
	v.SetDefault("tree.capacity", 1)

	v.SetDefault("search.timeout", 100*time.Millisecond)
	v.SetDefault("search.heuristic_weight", 10.0)
	v.SetDefault("search.max_expansions", 0)
	v.SetDefault("search.snap_retries", 4)
	v.SetDefault("search.geohash_precision", 12)
}

// Load reads the configuration. When path is empty, a config.yaml file is
// looked up in the working directory and in /etc/quadnav, and a missing
// file is not an error. Environment variables prefixed with QUADNAV_
// override file values, e.g. QUADNAV_REDIS_ADDR for redis.addr.
func Load(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvPrefix(envPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("/etc/quadnav")
	}

	if err := v.ReadInConfig(); err != nil {
		if _, notFound := err.(viper.ConfigFileNotFoundError); path != "" || !notFound {
			return nil, errors.New("reading config file failed").
				WithTag("path", path).
				Wrap(err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, errors.New("decoding config failed").Wrap(err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks the values that can not be fixed by defaults.
func (c *Config) Validate() error {
	switch c.Storage.Driver {
	case StorageMemory, StoragePostgres:
	default:
		return errors.New("unknown storage driver").
			WithTag("driver", c.Storage.Driver)
	}

	if c.Search.Timeout < 0 {
		return errors.New("search timeout can not be negative").
			WithTag("timeout", c.Search.Timeout)
	}
	if c.Search.HeuristicWeight < 0 {
		return errors.New("heuristic weight can not be negative").
			WithTag("heuristic_weight", c.Search.HeuristicWeight)
	}
	return nil
}
