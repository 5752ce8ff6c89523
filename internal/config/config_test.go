package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/JakeFAU/sitecorpus/internal/crawler"
)

func TestLoadWithFileOverrides(t *testing.T) {
	t.Parallel()

	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	configYAML := `
crawler:
  concurrency: 6
  mode: auto
  user_agent: real-agent
  timeout_seconds: 30
  about_search: true
headless:
  enabled: true
  max_parallel: 3
feed:
  suffixes: ["atom.xml"]
  recent_days: 7
  max_per_day: 2.5
store:
  driver: sqlite
  sqlite_path: /tmp/corpus.db
  pages_table: site_pages
blob:
  driver: local
  base_dir: /tmp/blobs
server:
  port: 9090
logging:
  development: false
  level: debug
`
	if err := os.WriteFile(path, []byte(configYAML), 0o600); err != nil {
		t.Fatalf("failed to write config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Server.Port != 9090 {
		t.Fatalf("expected port 9090, got %d", cfg.Server.Port)
	}
	if cfg.Crawler.Concurrency != 6 || !cfg.Crawler.AboutSearch || !cfg.Crawler.BlogSearch {
		t.Fatalf("expected crawler overrides to apply: %+v", cfg.Crawler)
	}
	if cfg.FetchMode() != crawler.ModeAuto {
		t.Fatalf("expected auto mode, got %q", cfg.FetchMode())
	}
	if got := cfg.FetchTimeout(); got != 30*time.Second {
		t.Fatalf("expected fetch timeout 30s, got %v", got)
	}
	if len(cfg.Feed.Suffixes) != 1 || cfg.Feed.Suffixes[0] != "atom.xml" {
		t.Fatalf("expected suffix override, got %v", cfg.Feed.Suffixes)
	}
	if cfg.Feed.MaxPerDay != 2.5 || cfg.Feed.RecentDays != 7 {
		t.Fatalf("expected feed overrides, got %+v", cfg.Feed)
	}
	if cfg.Store.Driver != DriverSQLite || cfg.Store.PagesTable != "site_pages" {
		t.Fatalf("expected store overrides, got %+v", cfg.Store)
	}
	if cfg.Store.BacklinksTable != "backlinks" {
		t.Fatalf("expected default backlinks table, got %q", cfg.Store.BacklinksTable)
	}
	if cfg.Blob.Driver != DriverLocal || cfg.Blob.BaseDir != "/tmp/blobs" {
		t.Fatalf("expected blob overrides, got %+v", cfg.Blob)
	}
	if cfg.Logging.Development || cfg.Logging.Level != "debug" {
		t.Fatalf("expected logging overrides, got %+v", cfg.Logging)
	}
}

func TestLoadDefaults(t *testing.T) {
	t.Parallel()

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Crawler.Concurrency != 10 || cfg.FetchMode() != crawler.ModeHTTP {
		t.Fatalf("unexpected crawler defaults: %+v", cfg.Crawler)
	}
	if cfg.Crawler.JoinChar != " " || cfg.Crawler.MaxBlogFollow != 5 {
		t.Fatalf("unexpected pipeline defaults: %+v", cfg.Crawler)
	}
	if got := strings.Join(cfg.Feed.Suffixes, ","); got != "index.xml,feed/,feed.xml,rss/" {
		t.Fatalf("unexpected default suffixes %q", got)
	}
	if cfg.Store.Driver != DriverMemory || cfg.Blob.Driver != DriverMemory {
		t.Fatalf("expected in-memory drivers by default")
	}
	if cfg.Store.URLColumn != "url" {
		t.Fatalf("expected url column default, got %q", cfg.Store.URLColumn)
	}
	if !cfg.Telemetry.Enabled || cfg.Telemetry.ServiceName != "sitecorpus" || cfg.Telemetry.SampleRatio != 1 {
		t.Fatalf("unexpected telemetry defaults: %+v", cfg.Telemetry)
	}
}

func TestLoadMissingFile(t *testing.T) {
	t.Parallel()

	_, err := Load(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil || !strings.Contains(err.Error(), "read config") {
		t.Fatalf("expected read error, got %v", err)
	}
}

func TestConfigValidateErrors(t *testing.T) {
	t.Parallel()

	base := Config{
		Server:  ServerConfig{Port: 8080},
		Crawler: CrawlerConfig{Concurrency: 1, Mode: "http", TimeoutSeconds: 10},
		Feed:    FeedConfig{RecentDays: 14},
		Store:   StoreConfig{Driver: DriverMemory},
		Blob:    BlobConfig{Driver: DriverMemory},
	}
	if err := base.Validate(); err != nil {
		t.Fatalf("base config should validate: %v", err)
	}

	tests := []struct {
		name   string
		mutate func(*Config)
		want   string
	}{
		{name: "invalid port", mutate: func(c *Config) { c.Server.Port = 0 }, want: "server.port"},
		{name: "invalid concurrency", mutate: func(c *Config) { c.Crawler.Concurrency = 0 }, want: "crawler.concurrency"},
		{name: "unknown mode", mutate: func(c *Config) { c.Crawler.Mode = "selenium" }, want: "crawler.mode"},
		{name: "invalid timeout", mutate: func(c *Config) { c.Crawler.TimeoutSeconds = 0 }, want: "crawler.timeout_seconds"},
		{
			name: "headless missing max parallel",
			mutate: func(c *Config) {
				c.Headless.Enabled = true
				c.Headless.MaxParallel = 0
			},
			want: "headless.max_parallel",
		},
		{name: "recent days", mutate: func(c *Config) { c.Feed.RecentDays = 0 }, want: "feed.recent_days"},
		{name: "postgres without dsn", mutate: func(c *Config) { c.Store.Driver = DriverPostgres }, want: "store.dsn"},
		{name: "unknown store", mutate: func(c *Config) { c.Store.Driver = "mongo" }, want: "store.driver"},
		{name: "gcs without bucket", mutate: func(c *Config) { c.Blob.Driver = DriverGCS }, want: "blob.bucket"},
		{name: "unknown blob", mutate: func(c *Config) { c.Blob.Driver = "s3" }, want: "blob.driver"},
		{
			name:   "pubsub without project",
			mutate: func(c *Config) { c.PubSub = PubSubConfig{Enabled: true, Topic: "t"} },
			want:   "pubsub.project_id",
		},
		{name: "sample ratio", mutate: func(c *Config) { c.Telemetry.SampleRatio = 1.5 }, want: "telemetry.sample_ratio"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			cfg := base
			tt.mutate(&cfg)
			err := cfg.Validate()
			if err == nil || !strings.Contains(err.Error(), tt.want) {
				t.Fatalf("expected error containing %q, got %v", tt.want, err)
			}
		})
	}
}
