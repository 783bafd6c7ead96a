// Package config loads engine settings from YAML, .env and NORTHSCRAPE_*
// environment variables.
package config

import (
	"errors"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/rotisserie/eris"
	"github.com/spf13/viper"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"northscrape-engine/internal/fetch"
	"northscrape-engine/internal/resolve"
	"northscrape-engine/internal/scrape/duckduckgo"
	"northscrape-engine/internal/scrape/yellowpages"
)

const EnvPrefix = "NORTHSCRAPE"

type Config struct {
	App       AppConfig       `yaml:"app" mapstructure:"app" json:"app"`
	Log       LogConfig       `yaml:"log" mapstructure:"log" json:"log"`
	Pipeline  PipelineConfig  `yaml:"pipeline" mapstructure:"pipeline" json:"pipeline"`
	Fetch     FetchConfig     `yaml:"fetch" mapstructure:"fetch" json:"fetch"`
	Directory DirectoryConfig `yaml:"directory" mapstructure:"directory" json:"directory"`
	Search    SearchConfig    `yaml:"search" mapstructure:"search" json:"search"`
	Resolver  ResolverConfig  `yaml:"resolver" mapstructure:"resolver" json:"resolver"`
	Store     StoreConfig     `yaml:"store" mapstructure:"store" json:"store"`
	History   HistoryConfig   `yaml:"history" mapstructure:"history" json:"history"`
	Catalog   CatalogConfig   `yaml:"catalog" mapstructure:"catalog" json:"catalog"`
}

type AppConfig struct {
	Addr    string `yaml:"addr" mapstructure:"addr" json:"addr"`
	DataDir string `yaml:"data_dir" mapstructure:"data_dir" json:"data_dir"`
}

type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level" json:"level"`
	Format string `yaml:"format" mapstructure:"format" json:"format"` // console | json
}

type PipelineConfig struct {
	Workers        int           `yaml:"workers" mapstructure:"workers" json:"workers"`
	RetryAttempts  int           `yaml:"retry_attempts" mapstructure:"retry_attempts" json:"retry_attempts"`
	BackoffInitial time.Duration `yaml:"backoff_initial" mapstructure:"backoff_initial" json:"backoff_initial"`
	BackoffMax     time.Duration `yaml:"backoff_max" mapstructure:"backoff_max" json:"backoff_max"`
	EventBuffer    int           `yaml:"event_buffer" mapstructure:"event_buffer" json:"event_buffer"`
}

type FetchConfig struct {
	Timeout           time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
	RequestsPerSecond float64       `yaml:"requests_per_second" mapstructure:"requests_per_second" json:"requests_per_second"`
	Burst             int           `yaml:"burst" mapstructure:"burst" json:"burst"`
	UserAgents        []string      `yaml:"user_agents" mapstructure:"user_agents" json:"user_agents"`
}

type DirectoryConfig struct {
	BaseURL  string `yaml:"base_url" mapstructure:"base_url" json:"base_url"`
	MaxPages int    `yaml:"max_pages" mapstructure:"max_pages" json:"max_pages"`
}

type SearchConfig struct {
	BaseURL string `yaml:"base_url" mapstructure:"base_url" json:"base_url"`
}

type ResolverConfig struct {
	MaxHops   int           `yaml:"max_hops" mapstructure:"max_hops" json:"max_hops"`
	Timeout   time.Duration `yaml:"timeout" mapstructure:"timeout" json:"timeout"`
	Blocklist []string      `yaml:"blocklist" mapstructure:"blocklist" json:"blocklist"`
}

type StoreConfig struct {
	Driver string `yaml:"driver" mapstructure:"driver" json:"driver"` // sqlite | postgres
	// DSN is a file path for sqlite; empty means <data_dir>/northscrape.db.
	DSN string `yaml:"dsn" mapstructure:"dsn" json:"dsn"`
}

type HistoryConfig struct {
	Limit int `yaml:"limit" mapstructure:"limit" json:"limit"`
}

type CatalogConfig struct {
	Categories []string `yaml:"categories" mapstructure:"categories" json:"categories"`
	Locations  []string `yaml:"locations" mapstructure:"locations" json:"locations"`
}

func Default() Config {
	return Config{
		App: AppConfig{Addr: "127.0.0.1:38471", DataDir: "./data"},
		Log: LogConfig{Level: "info", Format: "console"},
		Pipeline: PipelineConfig{
			Workers:        20,
			RetryAttempts:  3,
			BackoffInitial: 500 * time.Millisecond,
			BackoffMax:     8 * time.Second,
			EventBuffer:    1024,
		},
		Fetch: FetchConfig{
			Timeout:           15 * time.Second,
			RequestsPerSecond: 2,
			Burst:             2,
			UserAgents:        append([]string(nil), fetch.DefaultUserAgents...),
		},
		Directory: DirectoryConfig{BaseURL: yellowpages.DefaultBaseURL, MaxPages: 5},
		Search:    SearchConfig{BaseURL: duckduckgo.DefaultBaseURL},
		Resolver: ResolverConfig{
			MaxHops:   5,
			Timeout:   8 * time.Second,
			Blocklist: append([]string(nil), resolve.DefaultBlocklist...),
		},
		Store:   StoreConfig{Driver: "sqlite"},
		History: HistoryConfig{Limit: 5},
		Catalog: CatalogConfig{
			Categories: append([]string(nil), DefaultCategories...),
			Locations:  append([]string(nil), DefaultLocations...),
		},
	}
}

func setDefaults(v *viper.Viper) {
	d := Default()
	v.SetDefault("app.addr", d.App.Addr)
	v.SetDefault("app.data_dir", d.App.DataDir)
	v.SetDefault("log.level", d.Log.Level)
	v.SetDefault("log.format", d.Log.Format)
	v.SetDefault("pipeline.workers", d.Pipeline.Workers)
	v.SetDefault("pipeline.retry_attempts", d.Pipeline.RetryAttempts)
	v.SetDefault("pipeline.backoff_initial", d.Pipeline.BackoffInitial)
	v.SetDefault("pipeline.backoff_max", d.Pipeline.BackoffMax)
	v.SetDefault("pipeline.event_buffer", d.Pipeline.EventBuffer)
	v.SetDefault("fetch.timeout", d.Fetch.Timeout)
	v.SetDefault("fetch.requests_per_second", d.Fetch.RequestsPerSecond)
	v.SetDefault("fetch.burst", d.Fetch.Burst)
	v.SetDefault("fetch.user_agents", d.Fetch.UserAgents)
	v.SetDefault("directory.base_url", d.Directory.BaseURL)
	v.SetDefault("directory.max_pages", d.Directory.MaxPages)
	v.SetDefault("search.base_url", d.Search.BaseURL)
	v.SetDefault("resolver.max_hops", d.Resolver.MaxHops)
	v.SetDefault("resolver.timeout", d.Resolver.Timeout)
	v.SetDefault("resolver.blocklist", d.Resolver.Blocklist)
	v.SetDefault("store.driver", d.Store.Driver)
	v.SetDefault("store.dsn", d.Store.DSN)
	v.SetDefault("history.limit", d.History.Limit)
	v.SetDefault("catalog.categories", d.Catalog.Categories)
	v.SetDefault("catalog.locations", d.Catalog.Locations)
}

// Load reads path (optional), a .env file in the working directory
// (optional) and NORTHSCRAPE_* variables, in increasing precedence.
func Load(path string) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, eris.Wrap(err, "config: read .env")
	}

	v := viper.New()
	v.SetConfigType("yaml")
	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	setDefaults(v)

	if path != "" {
		if _, err := os.Stat(path); err == nil {
			v.SetConfigFile(path)
			if err := v.ReadInConfig(); err != nil {
				return Config{}, eris.Wrapf(err, "config: read %s", path)
			}
		} else if !errors.Is(err, fs.ErrNotExist) {
			return Config{}, eris.Wrapf(err, "config: stat %s", path)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, eris.Wrap(err, "config: unmarshal")
	}
	return cfg, nil
}

// InitLogger installs the global zap logger.
func InitLogger(cfg LogConfig) error {
	var zapCfg zap.Config
	if cfg.Format == "json" {
		zapCfg = zap.NewProductionConfig()
	} else {
		zapCfg = zap.NewDevelopmentConfig()
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
