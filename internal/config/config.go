// Package config resolves runtime settings from an optional YAML file, a
// .env file and the process environment, in increasing precedence.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/cast"
	"gopkg.in/yaml.v3"
)

type Config struct {
	Backend string   `yaml:"backend"`
	DSN     string   `yaml:"dsn"`
	DB      DBConfig `yaml:"db"`
	DataDir string   `yaml:"dataDir"`

	HistoryLimit    int           `yaml:"historyLimit"`
	RevisionsKeep   int           `yaml:"revisionsKeep"`
	CompactSchedule string        `yaml:"compactSchedule"`
	CacheTTL        time.Duration `yaml:"cacheTTL"`
	CacheSize       int           `yaml:"cacheSize"`
	Watch           bool          `yaml:"watch"`
}

// DBConfig describes a server database when no DSN is given.
type DBConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	Name     string `yaml:"name"`
	SSLMode  string `yaml:"sslMode"`
}

func Default() Config {
	homeDir, _ := os.UserHomeDir()
	return Config{
		Backend:         "sqlite",
		DataDir:         filepath.Join(homeDir, ".local", "share", "pagebuilder"),
		HistoryLimit:    40,
		RevisionsKeep:   40,
		CompactSchedule: "@hourly",
		CacheTTL:        2 * time.Minute,
		CacheSize:       256,
	}
}

// Load builds a Config. path may be empty; a missing file at path is not an
// error, a malformed one is.
func Load(path string) (Config, error) {
	cfg := Default()

	if path != "" {
		raw, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return cfg, fmt.Errorf("read config %s: %w", path, err)
		default:
			if err := yaml.Unmarshal(raw, &cfg); err != nil {
				return cfg, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	_ = godotenv.Load()

	if err := applyEnv(&cfg); err != nil {
		return cfg, err
	}
	cfg.Backend = strings.ToLower(strings.TrimSpace(cfg.Backend))
	return cfg, nil
}

func applyEnv(cfg *Config) error {
	cfg.Backend = firstNonEmpty(env("PAGE_BACKEND"), cfg.Backend)
	cfg.DSN = firstNonEmpty(env("PAGE_DSN"), cfg.DSN)
	cfg.DataDir = firstNonEmpty(env("PAGE_DATA_DIR"), cfg.DataDir)
	cfg.CompactSchedule = firstNonEmpty(env("PAGE_COMPACT_SCHEDULE"), cfg.CompactSchedule)

	cfg.DB.Host = firstNonEmpty(env("PAGE_DB_HOST"), cfg.DB.Host)
	cfg.DB.User = firstNonEmpty(env("PAGE_DB_USER"), cfg.DB.User)
	cfg.DB.Password = firstNonEmpty(env("PAGE_DB_PASSWORD"), cfg.DB.Password)
	cfg.DB.Name = firstNonEmpty(env("PAGE_DB_NAME"), cfg.DB.Name)
	cfg.DB.SSLMode = firstNonEmpty(env("PAGE_DB_SSLMODE"), cfg.DB.SSLMode)

	ints := []struct {
		key string
		dst *int
	}{
		{"PAGE_HISTORY_LIMIT", &cfg.HistoryLimit},
		{"PAGE_REVISIONS_KEEP", &cfg.RevisionsKeep},
		{"PAGE_CACHE_SIZE", &cfg.CacheSize},
		{"PAGE_DB_PORT", &cfg.DB.Port},
	}
	for _, it := range ints {
		raw := env(it.key)
		if raw == "" {
			continue
		}
		n, err := cast.ToIntE(raw)
		if err != nil {
			return fmt.Errorf("%s: %w", it.key, err)
		}
		*it.dst = n
	}

	if raw := env("PAGE_CACHE_TTL"); raw != "" {
		d, err := cast.ToDurationE(raw)
		if err != nil {
			return fmt.Errorf("PAGE_CACHE_TTL: %w", err)
		}
		cfg.CacheTTL = d
	}
	if raw := env("PAGE_WATCH"); raw != "" {
		b, err := cast.ToBoolE(raw)
		if err != nil {
			return fmt.Errorf("PAGE_WATCH: %w", err)
		}
		cfg.Watch = b
	}
	return nil
}

// SQLitePath is where the sqlite backend keeps its file when no DSN is set.
func (c Config) SQLitePath() string {
	return filepath.Join(c.DataDir, "pages.db")
}

// PagesDir is the root of the json backend.
func (c Config) PagesDir() string {
	return filepath.Join(c.DataDir, "pages")
}

func env(key string) string {
	return strings.TrimSpace(os.Getenv(key))
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if strings.TrimSpace(v) != "" {
			return v
		}
	}
	return ""
}
