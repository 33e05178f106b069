package config

import (
	"net/url"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func clearEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"ENV", "PG_HOST", "PG_PORT", "PG_USERNAME", "PG_PASSWORD", "PG_DATABASE", "PG_SSLMODE",
		"OPENAI_API_KEY", "OPENAI_MODEL", "OPENAI_BASE_URL", "MARKETING_LANGUAGE",
		"PRODUCT_CSV_PATH", "FEED_DIR", "CSV_URL", "EMAIL", "PASSWORD",
		"REDIS_URL", "LOCK_TTL", "METRICS_PORT",
	} {
		t.Setenv(k, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.Env)
	assert.Equal(t, "localhost", cfg.DB.Host)
	assert.Equal(t, "5432", cfg.DB.Port)
	assert.Equal(t, "disable", cfg.DB.SSLMode)
	assert.Equal(t, "gpt-4o-mini", cfg.OpenAI.Model)
	assert.Equal(t, "Romanian", cfg.OpenAI.MarketingLanguage)
	assert.Equal(t, ".", cfg.Feed.Dir)
	assert.Equal(t, 10*time.Minute, cfg.LockTTL)
}

func TestLoadInvalidLockTTL(t *testing.T) {
	clearEnv(t)
	t.Setenv("LOCK_TTL", "soon")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "LOCK_TTL")
}

func TestRequireDatabaseNamesMissingVariables(t *testing.T) {
	clearEnv(t)
	t.Setenv("PG_USERNAME", "shop")

	cfg, err := Load()
	require.NoError(t, err)

	err = cfg.RequireDatabase()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "PG_DATABASE, PG_PASSWORD")
	assert.NotContains(t, err.Error(), "PG_USERNAME")
}

func TestRequireOpenAI(t *testing.T) {
	clearEnv(t)
	cfg, err := Load()
	require.NoError(t, err)
	require.Error(t, cfg.RequireOpenAI())

	t.Setenv("OPENAI_API_KEY", "sk-test")
	cfg, err = Load()
	require.NoError(t, err)
	require.NoError(t, cfg.RequireOpenAI())
}

func TestDatabaseURLEscapesCredentials(t *testing.T) {
	d := DatabaseConfig{Host: "db", Port: "5433", User: "shop", Password: "p@ss:word", Name: "catalog", SSLMode: "require"}

	u, err := url.Parse(d.URL())
	require.NoError(t, err)

	pw, _ := u.User.Password()
	assert.Equal(t, "p@ss:word", pw)
	assert.Equal(t, "db:5433", u.Host)
	assert.Equal(t, "/catalog", u.Path)
	assert.Equal(t, "require", u.Query().Get("sslmode"))
	assert.NotContains(t, d.Redacted(), "p@ss")
}
