// Package config reads process configuration from the environment, after
// loading a .env file when one is present.
package config

import (
	"errors"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/jessedrg/cbd-boutique/internal/catalog"
	"github.com/jessedrg/cbd-boutique/internal/publish"
	"github.com/jessedrg/cbd-boutique/internal/seoindex"
)

// DefaultSiteURL is the production origin.
const DefaultSiteURL = "https://cbdboutique.io"

// Config is the resolved process configuration.
type Config struct {
	Port              string
	SiteURL           string
	CatalogFile       string
	CacheTTL          time.Duration
	PageCacheSize     int
	MinCityPopulation int
	DB                DBConfig
	SQLitePath        string
	S3                publish.S3Config
}

// DBConfig holds the Postgres connection settings.
type DBConfig struct {
	URL             string
	Host            string
	Port            string
	User            string
	Password        string
	Name            string
	SSLMode         string
	MaxOpenConns    int
	MaxIdleConns    int
	ConnMaxIdle     time.Duration
	ConnMaxLifetime time.Duration
}

// Load reads .env (if any) and then the environment.
func Load() *Config {
	_ = godotenv.Load()
	return FromEnv()
}

// FromEnv reads the environment only.
func FromEnv() *Config {
	return &Config{
		Port:              Env("PORT", "8080"),
		SiteURL:           strings.TrimRight(Env("SITE_URL", Env("NEXT_PUBLIC_SITE_URL", DefaultSiteURL)), "/"),
		CatalogFile:       Env("CATALOG_FILE", ""),
		CacheTTL:          DurationEnv("CACHE_TTL", 45*time.Second),
		PageCacheSize:     IntEnv("PAGE_CACHE_SIZE", 4096),
		MinCityPopulation: IntEnv("MIN_CITY_POPULATION", seoindex.MinCityPopulationForIndex),
		DB: DBConfig{
			URL:             Env("DATABASE_URL", ""),
			Host:            Env("DB_HOST", ""),
			Port:            Env("DB_PORT", "5432"),
			User:            Env("DB_USER", "postgres"),
			Password:        Env("DB_PASSWORD", "postgres"),
			Name:            Env("DB_NAME", "cbd_seo"),
			SSLMode:         Env("DB_SSLMODE", "disable"),
			MaxOpenConns:    IntEnv("DB_MAX_OPEN_CONNS", 20),
			MaxIdleConns:    IntEnv("DB_MAX_IDLE_CONNS", 5),
			ConnMaxIdle:     DurationEnv("DB_CONN_MAX_IDLE", 5*time.Minute),
			ConnMaxLifetime: DurationEnv("DB_CONN_MAX_LIFETIME", 30*time.Minute),
		},
		SQLitePath: Env("SEOCTL_DB", "seoctl.db"),
		S3: publish.S3Config{
			Endpoint:  Env("SITEMAP_S3_ENDPOINT", ""),
			Region:    Env("SITEMAP_S3_REGION", "us-east-1"),
			AccessKey: Env("SITEMAP_S3_ACCESS_KEY", ""),
			SecretKey: Env("SITEMAP_S3_SECRET_KEY", ""),
			Bucket:    Env("SITEMAP_S3_BUCKET", "cbd-sitemaps"),
			Prefix:    Env("SITEMAP_S3_PREFIX", ""),
			UseSSL:    BoolEnv("SITEMAP_S3_USE_SSL", true),
		},
	}
}

// DSN returns the Postgres connection string, or an error when neither
// DATABASE_URL nor DB_HOST is set.
func (d DBConfig) DSN() (string, error) {
	if d.URL != "" {
		return d.URL, nil
	}
	if d.Host == "" {
		return "", errors.New("missing DATABASE_URL or DB_HOST")
	}
	u := url.URL{
		Scheme:   "postgres",
		User:     url.UserPassword(d.User, d.Password),
		Host:     net.JoinHostPort(d.Host, d.Port),
		Path:     "/" + d.Name,
		RawQuery: url.Values{"sslmode": {d.SSLMode}}.Encode(),
	}
	return u.String(), nil
}

// Policy is the default policy with configured overrides applied.
func (c *Config) Policy() seoindex.Policy {
	p := seoindex.DefaultPolicy()
	if c.MinCityPopulation > 0 {
		p.MinCityPopulation = c.MinCityPopulation
	}
	return p
}

// Catalog loads CatalogFile, or the embedded catalog when it is unset.
func (c *Config) Catalog() (*catalog.Catalog, error) {
	return catalog.Load(c.CatalogFile)
}

// Env returns the trimmed value of key or def when unset.
func Env(key, def string) string {
	v := strings.TrimSpace(os.Getenv(key))
	if v == "" {
		return def
	}
	return v
}

// IntEnv parses key as an int, returning def when unset or invalid.
func IntEnv(key string, def int) int {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return def
	}
	return n
}

// DurationEnv parses key as a time.Duration, returning def when unset or
// invalid.
func DurationEnv(key string, def time.Duration) time.Duration {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	d, err := time.ParseDuration(raw)
	if err != nil {
		return def
	}
	return d
}

// BoolEnv parses key with strconv.ParseBool, returning def when unset or
// invalid.
func BoolEnv(key string, def bool) bool {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return def
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return def
	}
	return b
}
