package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func validConfig() *Config {
	return &Config{
		App:      AppConfig{Environment: "development"},
		Logger:   LoggerConfig{Level: "info"},
		Metadata: MetadataConfig{BasePath: "/data"},
		Catalog:  CatalogConfig{BaseURL: "https://www.googleapis.com/books/v1", RequestsPerSecond: 2},
	}
}

func TestValidate_ValidConfig(t *testing.T) {
	assert.NoError(t, validConfig().Validate())
}

func TestValidate_Rejects(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
	}{
		{"unknown environment", func(c *Config) { c.App.Environment = "test" }},
		{"empty environment", func(c *Config) { c.App.Environment = "" }},
		{"bad log level", func(c *Config) { c.Logger.Level = "verbose" }},
		{"empty metadata path", func(c *Config) { c.Metadata.BasePath = "" }},
		{"plain http catalog", func(c *Config) { c.Catalog.BaseURL = "http://example.com" }},
		{"zero catalog rate", func(c *Config) { c.Catalog.RequestsPerSecond = 0 }},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := validConfig()
			tt.mutate(cfg)
			assert.Error(t, cfg.Validate())
		})
	}
}

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := Load([]string{"-metadata-path", dir, "-env-file", filepath.Join(dir, "missing.env")})
	require.NoError(t, err)

	assert.Equal(t, "development", cfg.App.Environment)
	assert.Equal(t, "8080", cfg.Server.Port)
	assert.Equal(t, 15*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, time.Hour, cfg.Cache.TTL)
	assert.Equal(t, []string{"*"}, cfg.Server.CORSOrigins)
	assert.Empty(t, cfg.Cache.RedisAddr)
	assert.Equal(t, filepath.Join(dir, "bookberry.db"), cfg.DatabasePath())
}

func TestLoad_FlagBeatsEnvBeatsFile(t *testing.T) {
	dir := t.TempDir()
	envFile := filepath.Join(dir, "test.env")
	require.NoError(t, os.WriteFile(envFile, []byte("SERVER_PORT=7000\nCACHE_TTL=5m\nCATALOG_RPS=4\n"), 0o600))
	t.Setenv("SERVER_PORT", "9000")
	t.Cleanup(func() {
		os.Unsetenv("CACHE_TTL")
		os.Unsetenv("CATALOG_RPS")
	})

	cfg, err := Load([]string{"-metadata-path", dir, "-env-file", envFile, "-cors-origins", "https://a.example, https://b.example"})
	require.NoError(t, err)

	assert.Equal(t, "9000", cfg.Server.Port)
	assert.Equal(t, 5*time.Minute, cfg.Cache.TTL)
	assert.Equal(t, 4.0, cfg.Catalog.RequestsPerSecond)
	assert.Equal(t, []string{"https://a.example", "https://b.example"}, cfg.Server.CORSOrigins)

	cfg, err = Load([]string{"-metadata-path", dir, "-env-file", envFile, "-port", "8181"})
	require.NoError(t, err)
	assert.Equal(t, "8181", cfg.Server.Port)
}

func TestLoad_InvalidDuration(t *testing.T) {
	dir := t.TempDir()
	t.Setenv("SERVER_READ_TIMEOUT", "soon")

	_, err := Load([]string{"-metadata-path", dir, "-env-file", filepath.Join(dir, "none")})
	assert.ErrorContains(t, err, "SERVER_READ_TIMEOUT")
}

func TestExpandPath(t *testing.T) {
	got, err := ExpandPath("", "/default")
	require.NoError(t, err)
	assert.Equal(t, "/default", got)

	home, err := os.UserHomeDir()
	require.NoError(t, err)
	got, err = ExpandPath("~/books", "")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(home, "books"), got)
}
