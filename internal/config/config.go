// Package config loads and validates sitecorpus configuration via Viper.
package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

// Store and blob drivers.
const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
	DriverLocal    = "local"
	DriverGCS      = "gcs"
)

// Config captures all configuration knobs loaded via Viper.
type Config struct {
	Crawler   CrawlerConfig   `mapstructure:"crawler"`
	Headless  HeadlessConfig  `mapstructure:"headless"`
	Feed      FeedConfig      `mapstructure:"feed"`
	Store     StoreConfig     `mapstructure:"store"`
	Blob      BlobConfig      `mapstructure:"blob"`
	PubSub    PubSubConfig    `mapstructure:"pubsub"`
	Server    ServerConfig    `mapstructure:"server"`
	Logging   LoggingConfig   `mapstructure:"logging"`
	Telemetry TelemetryConfig `mapstructure:"telemetry"`
}

// CrawlerConfig governs the worker pool and the site pipeline.
type CrawlerConfig struct {
	Concurrency    int    `mapstructure:"concurrency"`
	Mode           string `mapstructure:"mode"`
	UserAgent      string `mapstructure:"user_agent"`
	TimeoutSeconds int    `mapstructure:"timeout_seconds"`
	JoinChar       string `mapstructure:"join_char"`
	BlogSearch     bool   `mapstructure:"blog_search"`
	AboutSearch    bool   `mapstructure:"about_search"`
	MaxBlogFollow  int    `mapstructure:"max_blog_follow"`
	ProbeBlogLimit int    `mapstructure:"probe_blog_limit"`
}

// HeadlessConfig configures the browser fetcher and the promotion heuristic.
type HeadlessConfig struct {
	Enabled             bool   `mapstructure:"enabled"`
	MaxParallel         int    `mapstructure:"max_parallel"`
	NavTimeoutSeconds   int    `mapstructure:"nav_timeout_seconds"`
	SettleMs            int    `mapstructure:"settle_ms"`
	ScrollPauseMs       int    `mapstructure:"scroll_pause_ms"`
	ScrollBudgetSeconds int    `mapstructure:"scroll_budget_seconds"`
	ExecPath            string `mapstructure:"exec_path"`
	PromotionThreshold  int    `mapstructure:"promotion_threshold"`
	MinTextWords        int    `mapstructure:"min_text_words"`
}

// FeedConfig tunes feed probing and reading.
type FeedConfig struct {
	Suffixes       []string `mapstructure:"suffixes"`
	Concurrency    int      `mapstructure:"concurrency"`
	TimeoutSeconds int      `mapstructure:"timeout_seconds"`
	RecentDays     int      `mapstructure:"recent_days"`
	MaxPerDay      float64  `mapstructure:"max_per_day"`
}

// StoreConfig selects the tabular persistence adapter.
type StoreConfig struct {
	Driver         string `mapstructure:"driver"`
	DSN            string `mapstructure:"dsn"`
	SQLitePath     string `mapstructure:"sqlite_path"`
	URLColumn      string `mapstructure:"url_column"`
	MaxConns       int32  `mapstructure:"max_conns"`
	PagesTable     string `mapstructure:"pages_table"`
	BacklinksTable string `mapstructure:"backlinks_table"`
	EntriesTable   string `mapstructure:"entries_table"`
}

// BlobConfig selects where corpus snapshots and page records go.
type BlobConfig struct {
	Driver  string `mapstructure:"driver"`
	BaseDir string `mapstructure:"base_dir"`
	Bucket  string `mapstructure:"bucket"`
	Prefix  string `mapstructure:"prefix"`
}

// PubSubConfig holds metadata for page event notifications.
type PubSubConfig struct {
	Enabled   bool   `mapstructure:"enabled"`
	ProjectID string `mapstructure:"project_id"`
	Topic     string `mapstructure:"topic"`
}

// ServerConfig controls the HTTP API.
type ServerConfig struct {
	Port                  int `mapstructure:"port"`
	RequestTimeoutSeconds int `mapstructure:"request_timeout_seconds"`
	MaxURLs               int `mapstructure:"max_urls"`
}

// LoggingConfig toggles zap development features.
type LoggingConfig struct {
	Development bool   `mapstructure:"development"`
	Level       string `mapstructure:"level"`
}

// TelemetryConfig controls OpenTelemetry tracing.
type TelemetryConfig struct {
	Enabled     bool    `mapstructure:"enabled"`
	ServiceName string  `mapstructure:"service_name"`
	SampleRatio float64 `mapstructure:"sample_ratio"`
}

// Load builds a Config from defaults, an optional file and SITECORPUS_* env vars.
func Load(path string) (Config, error) {
	v := viper.New()
	v.SetEnvPrefix("SITECORPUS")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	setDefaults(v)

	if path != "" {
		v.SetConfigFile(path)
		if err := v.ReadInConfig(); err != nil {
			return Config{}, fmt.Errorf("read config: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("unmarshal config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}

	return cfg, nil
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("crawler.concurrency", 10)
	v.SetDefault("crawler.mode", string(crawler.ModeHTTP))
	v.SetDefault("crawler.user_agent", "")
	v.SetDefault("crawler.timeout_seconds", 15)
	v.SetDefault("crawler.join_char", " ")
	v.SetDefault("crawler.blog_search", true)
	v.SetDefault("crawler.about_search", false)
	v.SetDefault("crawler.max_blog_follow", 5)
	v.SetDefault("crawler.probe_blog_limit", 5)
	v.SetDefault("headless.enabled", false)
	v.SetDefault("headless.max_parallel", 2)
	v.SetDefault("headless.nav_timeout_seconds", 45)
	v.SetDefault("headless.settle_ms", 1000)
	v.SetDefault("headless.scroll_pause_ms", 1000)
	v.SetDefault("headless.scroll_budget_seconds", 15)
	v.SetDefault("headless.exec_path", "")
	v.SetDefault("headless.promotion_threshold", 2048)
	v.SetDefault("headless.min_text_words", 50)
	v.SetDefault("feed.suffixes", []string{"index.xml", "feed/", "feed.xml", "rss/"})
	v.SetDefault("feed.concurrency", 8)
	v.SetDefault("feed.timeout_seconds", 10)
	v.SetDefault("feed.recent_days", 14)
	v.SetDefault("feed.max_per_day", 6.0)
	v.SetDefault("store.driver", DriverMemory)
	v.SetDefault("store.dsn", "")
	v.SetDefault("store.sqlite_path", "sitecorpus.db")
	v.SetDefault("store.url_column", "url")
	v.SetDefault("store.max_conns", 4)
	v.SetDefault("store.pages_table", "pages")
	v.SetDefault("store.backlinks_table", "backlinks")
	v.SetDefault("store.entries_table", "feed_entries")
	v.SetDefault("blob.driver", DriverMemory)
	v.SetDefault("blob.base_dir", "data")
	v.SetDefault("blob.bucket", "")
	v.SetDefault("blob.prefix", "corpus")
	v.SetDefault("pubsub.enabled", false)
	v.SetDefault("pubsub.project_id", "")
	v.SetDefault("pubsub.topic", "page-crawled")
	v.SetDefault("server.port", 8080)
	v.SetDefault("server.request_timeout_seconds", 300)
	v.SetDefault("server.max_urls", 500)
	v.SetDefault("logging.development", true)
	v.SetDefault("logging.level", "info")
	v.SetDefault("telemetry.enabled", true)
	v.SetDefault("telemetry.service_name", "sitecorpus")
	v.SetDefault("telemetry.sample_ratio", 1.0)
}

// Validate enforces required values and reasonable limits.
func (c Config) Validate() error {
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("crawler.concurrency must be > 0")
	}
	if _, err := crawler.ParseMode(c.Crawler.Mode); err != nil {
		return fmt.Errorf("crawler.mode: %w", err)
	}
	if c.Crawler.TimeoutSeconds <= 0 {
		return fmt.Errorf("crawler.timeout_seconds must be > 0")
	}
	if c.Headless.Enabled && c.Headless.MaxParallel <= 0 {
		return fmt.Errorf("headless.max_parallel must be > 0 when headless is enabled")
	}
	if c.Feed.RecentDays <= 0 {
		return fmt.Errorf("feed.recent_days must be > 0")
	}
	switch c.Store.Driver {
	case DriverMemory:
	case DriverPostgres:
		if c.Store.DSN == "" {
			return fmt.Errorf("store.dsn is required for the postgres driver")
		}
	case DriverSQLite:
		if c.Store.SQLitePath == "" {
			return fmt.Errorf("store.sqlite_path is required for the sqlite driver")
		}
	default:
		return fmt.Errorf("unknown store.driver %q", c.Store.Driver)
	}
	switch c.Blob.Driver {
	case DriverMemory, DriverLocal:
	case DriverGCS:
		if c.Blob.Bucket == "" {
			return fmt.Errorf("blob.bucket is required for the gcs driver")
		}
	default:
		return fmt.Errorf("unknown blob.driver %q", c.Blob.Driver)
	}
	if c.PubSub.Enabled && (c.PubSub.ProjectID == "" || c.PubSub.Topic == "") {
		return fmt.Errorf("pubsub.project_id and pubsub.topic must be set when pubsub is enabled")
	}
	if c.Server.Port <= 0 {
		return fmt.Errorf("server.port must be > 0")
	}
	if c.Telemetry.SampleRatio < 0 || c.Telemetry.SampleRatio > 1 {
		return fmt.Errorf("telemetry.sample_ratio must be within [0, 1]")
	}
	return nil
}

// FetchTimeout is the per-page HTTP budget.
func (c Config) FetchTimeout() time.Duration {
	return time.Duration(c.Crawler.TimeoutSeconds) * time.Second
}

// FetchMode returns the validated crawler mode.
func (c Config) FetchMode() crawler.Mode {
	mode, err := crawler.ParseMode(c.Crawler.Mode)
	if err != nil {
		return crawler.ModeHTTP
	}
	return mode
}
