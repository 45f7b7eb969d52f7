package config

import (
	"net/url"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFromEnvDefaults(t *testing.T) {
	for _, k := range []string{"PORT", "SITE_URL", "NEXT_PUBLIC_SITE_URL", "CACHE_TTL", "DATABASE_URL", "DB_HOST", "MIN_CITY_POPULATION", "SITEMAP_S3_ENDPOINT"} {
		t.Setenv(k, "")
	}
	c := FromEnv()
	assert.Equal(t, "8080", c.Port)
	assert.Equal(t, DefaultSiteURL, c.SiteURL)
	assert.Equal(t, 45*time.Second, c.CacheTTL)
	assert.Equal(t, 100_000, c.Policy().MinCityPopulation)
	assert.Empty(t, c.S3.Endpoint)

	_, err := c.DB.DSN()
	assert.Error(t, err)

	cat, err := c.Catalog()
	require.NoError(t, err)
	assert.Equal(t, "en", cat.DefaultLocale)
}

func TestFromEnvOverrides(t *testing.T) {
	t.Setenv("SITE_URL", "https://staging.cbdboutique.io/")
	t.Setenv("CACHE_TTL", "2m")
	t.Setenv("PAGE_CACHE_SIZE", "12")
	t.Setenv("MIN_CITY_POPULATION", "250000")
	t.Setenv("DATABASE_URL", "")
	t.Setenv("DB_HOST", "db")
	t.Setenv("DB_NAME", "seo")
	t.Setenv("SITEMAP_S3_USE_SSL", "false")

	c := FromEnv()
	assert.Equal(t, "https://staging.cbdboutique.io", c.SiteURL)
	assert.Equal(t, 2*time.Minute, c.CacheTTL)
	assert.Equal(t, 12, c.PageCacheSize)
	assert.Equal(t, 250000, c.Policy().MinCityPopulation)
	assert.False(t, c.S3.UseSSL)

	dsn, err := c.DB.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://postgres:postgres@db:5432/seo?sslmode=disable", dsn)

	t.Setenv("DATABASE_URL", "postgres://u:p@h/x")
	dsn, err = FromEnv().DB.DSN()
	require.NoError(t, err)
	assert.Equal(t, "postgres://u:p@h/x", dsn)
}

func TestDSNEscapesCredentials(t *testing.T) {
	d := DBConfig{Host: "db", Port: "5432", User: "seo", Password: "p@ss:w/rd", Name: "seo", SSLMode: "require"}
	dsn, err := d.DSN()
	require.NoError(t, err)

	u, err := url.Parse(dsn)
	require.NoError(t, err)
	assert.Equal(t, "db:5432", u.Host)
	assert.Equal(t, "seo", u.User.Username())
	pass, _ := u.User.Password()
	assert.Equal(t, "p@ss:w/rd", pass)
	assert.Equal(t, "/seo", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
}

func TestEnvHelpersFallBack(t *testing.T) {
	t.Setenv("X_INT", "nope")
	t.Setenv("X_DUR", "soon")
	t.Setenv("X_BOOL", "maybe")
	assert.Equal(t, 7, IntEnv("X_INT", 7))
	assert.Equal(t, time.Second, DurationEnv("X_DUR", time.Second))
	assert.True(t, BoolEnv("X_BOOL", true))
	assert.Equal(t, "d", Env("X_UNSET_FOR_TEST", "d"))
}

func TestDotEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), ".env")
	require.NoError(t, os.WriteFile(path, []byte("SEOCTL_DB=/tmp/runs.db\n"), 0o600))
	t.Setenv("SEOCTL_DB", "")
	require.NoError(t, os.Unsetenv("SEOCTL_DB"))

	require.NoError(t, godotenv.Load(path))
	assert.Equal(t, "/tmp/runs.db", FromEnv().SQLitePath)
}
