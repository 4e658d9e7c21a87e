package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0644))
	return path
}

func TestLoadFileDefaults(t *testing.T) {
	cfg, err := LoadFile(writeConfig(t, "log:\n  level: debug\n"))
	require.NoError(t, err)

	assert.Equal(t, "https://www.cantonfair.org.cn/en-US/", cfg.Portal.BaseURL)
	assert.Equal(t, 60, cfg.Portal.PageSize)
	assert.True(t, cfg.Scrape.Exhibitors)
	assert.Empty(t, cfg.Scrape.Categories)
	assert.Equal(t, "./data", cfg.Storage.DataDir)
	assert.Equal(t, 3*time.Second, cfg.Browser.Settle())
	assert.Equal(t, 3*time.Second, cfg.Browser.URLChangeTimeout())
	assert.Equal(t, 100*time.Second, cfg.Browser.NewTabTimeout())
	assert.Equal(t, 10, cfg.Retry.MaxAttempts)
	assert.Equal(t, "debug", cfg.Log.Level)
}

func TestLoadFileOverrides(t *testing.T) {
	path := writeConfig(t, `
portal:
  base_url: https://example.org/en-US
scrape:
  categories:
    - "461147245295706112"
    - "461147369757478912"
  exhibitors: false
retry:
  max_attempts: 0
`)

	cfg, err := LoadFile(path)
	require.NoError(t, err)

	assert.Equal(t, "https://example.org/en-US/", cfg.Portal.BaseURL, "base URL gets a trailing slash")
	assert.Equal(t, []string{"461147245295706112", "461147369757478912"}, cfg.Scrape.Categories)
	assert.False(t, cfg.Scrape.Exhibitors)
	assert.Equal(t, 0, cfg.Retry.MaxAttempts)
}

func TestLoadFileEnvOverride(t *testing.T) {
	t.Setenv("AUTH_EMAIL", "buyer@example.org")
	t.Setenv("STORAGE_DATA_DIR", "/tmp/fair")

	cfg, err := LoadFile(writeConfig(t, "auth:\n  usertype: Overseas Buyer\n"))
	require.NoError(t, err)

	assert.Equal(t, "buyer@example.org", cfg.Auth.Email)
	assert.Equal(t, "Overseas Buyer", cfg.Auth.UserType)
	assert.Equal(t, "/tmp/fair", cfg.Storage.DataDir)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		content string
	}{
		{name: "page size", content: "portal:\n  page_size: 0\n"},
		{name: "negative retry", content: "retry:\n  max_attempts: -1\n"},
		{name: "navigation rate", content: "browser:\n  max_navigations_per_second: 0\n"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := LoadFile(writeConfig(t, tt.content))
			assert.Error(t, err)
		})
	}
}

func TestLoadFileMissing(t *testing.T) {
	_, err := LoadFile(filepath.Join(t.TempDir(), "absent.yaml"))
	assert.Error(t, err)
}
