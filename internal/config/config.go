package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// ErrInvalid indicates a configuration that cannot be used.
var ErrInvalid = errors.New("invalid configuration")

// Config defines application configuration.
type Config struct {
	Catalog    CatalogConfig    `yaml:"catalog"`
	Classifier ClassifierConfig `yaml:"classifier"`
	Resolver   ResolverConfig   `yaml:"resolver"`
	Cache      CacheConfig      `yaml:"cache"`
	Server     ServerConfig     `yaml:"server"`
	Transport  TransportConfig  `yaml:"transport"`
	DB         DBConfig         `yaml:"db"`
	Log        LogConfig        `yaml:"log"`
}

type CatalogConfig struct {
	URL     string        `yaml:"url"`
	Tenant  string        `yaml:"tenant"`
	Token   string        `yaml:"token"`
	Timeout time.Duration `yaml:"timeout"`
	// RetryAttempts is how many times a rate-limited call is retried.
	RetryAttempts  int           `yaml:"retry_attempts"`
	RetryBaseDelay time.Duration `yaml:"retry_base_delay"`
}

type ClassifierConfig struct {
	BarcodePatterns []string `yaml:"barcode_patterns"`
	AccessionPrefix string   `yaml:"accession_prefix"`
}

type ResolverConfig struct {
	PageSize   int `yaml:"page_size"`
	MaxRecords int `yaml:"max_records"`
}

// CacheConfig bounds the caches. Zero values keep entries for the life of
// the process.
type CacheConfig struct {
	ClassificationSize int           `yaml:"classification_size"`
	ClassificationTTL  time.Duration `yaml:"classification_ttl"`
	TypeTTL            time.Duration `yaml:"type_ttl"`
}

type ServerConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
	// Token, when set, is required as a bearer token on HTTP surfaces.
	Token string `yaml:"token"`
}

type TransportConfig struct {
	Mode string `yaml:"mode"`
}

type DBConfig struct {
	Path string `yaml:"path"`
}

type LogConfig struct {
	Level string `yaml:"level"`
	Path  string `yaml:"path"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Catalog: CatalogConfig{
			Timeout:        30 * time.Second,
			RetryAttempts:  3,
			RetryBaseDelay: 2 * time.Second,
		},
		Resolver: ResolverConfig{
			PageSize:   1000,
			MaxRecords: 10000,
		},
		Server: ServerConfig{
			Host: "127.0.0.1",
			Port: 8080,
		},
		Transport: TransportConfig{
			Mode: "http",
		},
		DB: DBConfig{
			Path: "catalogbulk.db",
		},
		Log: LogConfig{
			Level: "info",
		},
	}
}

// Load reads configuration from defaults, an optional YAML file, an
// optional .env file and environment variables, in that order. Variables
// already set in the environment win over the .env file.
func Load() (Config, error) {
	cfg := Default()

	if path := os.Getenv("CATALOGBULK_CONFIG_PATH"); path != "" {
		if err := loadFromFile(path, &cfg); err != nil {
			return Config{}, err
		}
	}

	envFile := os.Getenv("CATALOGBULK_ENV_FILE")
	if envFile == "" {
		envFile = ".env"
	}
	if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	if err := applyEnv(&cfg); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func loadFromFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return fmt.Errorf("parse config file: %w", err)
	}
	return nil
}

func applyEnv(cfg *Config) error {
	setString("CATALOGBULK_CATALOG_URL", &cfg.Catalog.URL)
	setString("CATALOGBULK_CATALOG_TENANT", &cfg.Catalog.Tenant)
	setString("CATALOGBULK_CATALOG_TOKEN", &cfg.Catalog.Token)
	setString("CATALOGBULK_ACCESSION_PREFIX", &cfg.Classifier.AccessionPrefix)
	setString("CATALOGBULK_SERVER_HOST", &cfg.Server.Host)
	setString("CATALOGBULK_SERVER_TOKEN", &cfg.Server.Token)
	setString("CATALOGBULK_TRANSPORT", &cfg.Transport.Mode)
	setString("CATALOGBULK_DB_PATH", &cfg.DB.Path)
	setString("CATALOGBULK_LOG_LEVEL", &cfg.Log.Level)
	setString("CATALOGBULK_LOG_PATH", &cfg.Log.Path)

	if v := os.Getenv("CATALOGBULK_BARCODE_PATTERNS"); v != "" {
		cfg.Classifier.BarcodePatterns = splitList(v)
	}

	ints := []struct {
		name string
		dst  *int
	}{
		{"CATALOGBULK_SERVER_PORT", &cfg.Server.Port},
		{"CATALOGBULK_RETRY_ATTEMPTS", &cfg.Catalog.RetryAttempts},
		{"CATALOGBULK_PAGE_SIZE", &cfg.Resolver.PageSize},
		{"CATALOGBULK_MAX_RECORDS", &cfg.Resolver.MaxRecords},
		{"CATALOGBULK_CACHE_SIZE", &cfg.Cache.ClassificationSize},
	}
	for _, e := range ints {
		if err := setInt(e.name, e.dst); err != nil {
			return err
		}
	}

	durations := []struct {
		name string
		dst  *time.Duration
	}{
		{"CATALOGBULK_CATALOG_TIMEOUT", &cfg.Catalog.Timeout},
		{"CATALOGBULK_RETRY_BASE_DELAY", &cfg.Catalog.RetryBaseDelay},
		{"CATALOGBULK_CACHE_TTL", &cfg.Cache.ClassificationTTL},
		{"CATALOGBULK_TYPE_CACHE_TTL", &cfg.Cache.TypeTTL},
	}
	for _, e := range durations {
		if err := setDuration(e.name, e.dst); err != nil {
			return err
		}
	}
	return nil
}

func setString(name string, dst *string) {
	if v := os.Getenv(name); v != "" {
		*dst = v
	}
}

func setInt(name string, dst *int) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = n
	return nil
}

func setDuration(name string, dst *time.Duration) error {
	v := os.Getenv(name)
	if v == "" {
		return nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return fmt.Errorf("invalid %s: %w", name, err)
	}
	*dst = d
	return nil
}

func splitList(v string) []string {
	parts := strings.Split(v, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// Validate checks the settings needed to reach the catalog service and
// serve requests.
func (c Config) Validate() error {
	var problems []string
	if c.Catalog.URL == "" {
		problems = append(problems, "catalog.url is required")
	} else if u, err := url.Parse(c.Catalog.URL); err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		problems = append(problems, fmt.Sprintf("catalog.url %q is not an http(s) URL", c.Catalog.URL))
	}
	if c.Catalog.Tenant == "" {
		problems = append(problems, "catalog.tenant is required")
	}
	if c.Catalog.RetryAttempts < 0 {
		problems = append(problems, "catalog.retry_attempts must not be negative")
	}
	if c.Resolver.PageSize < 0 || c.Resolver.MaxRecords < 0 {
		problems = append(problems, "resolver limits must not be negative")
	}
	if c.Cache.ClassificationSize < 0 {
		problems = append(problems, "cache.classification_size must not be negative")
	}
	switch c.Transport.Mode {
	case "http", "stdio":
	default:
		problems = append(problems, fmt.Sprintf("transport.mode %q must be http or stdio", c.Transport.Mode))
	}
	switch c.Log.Level {
	case "debug", "info", "warn", "error":
	default:
		problems = append(problems, fmt.Sprintf("log.level %q must be debug, info, warn or error", c.Log.Level))
	}
	if len(problems) > 0 {
		return fmt.Errorf("%w: %s", ErrInvalid, strings.Join(problems, "; "))
	}
	return nil
}

// Addr is the HTTP listen address.
func (c Config) Addr() string {
	return fmt.Sprintf("%s:%d", c.Server.Host, c.Server.Port)
}
