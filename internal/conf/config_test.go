package conf

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestLoadConfig_Defaults(t *testing.T) {
	path := writeConfig(t, "server:\n  port: \":9090\"\n")

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, ":9090", c.Server.Port)
	assert.True(t, c.Services.UseMock)
	assert.Equal(t, 50, c.Ingest.Limit)
	assert.Equal(t, "technology", c.Ingest.DefaultCategory)
	assert.Equal(t, 3, c.Worker.MaxAttempts)
	assert.Equal(t, 60*time.Second, c.Worker.Timeout)
	assert.Equal(t, "gpt-3.5-turbo", c.Summary.Model)
	assert.Equal(t, 150, c.Summary.MaxTokens)
	assert.InDelta(t, 0.7, c.Summary.Temperature, 1e-9)
}

func TestLoadConfig_ExpandsEnv(t *testing.T) {
	t.Setenv("TEST_NEWS_KEY", "news-secret")
	t.Setenv("TEST_AI_KEY", "ai-secret")
	path := writeConfig(t, `
services:
  use_mock: false
news:
  api_key: ${TEST_NEWS_KEY}
summary:
  api_key: ${TEST_AI_KEY}
jobs:
  - name: nightly-requeue
    handler: news:requeue
    cron: "0 0 3 * * *"
    enable: true
    params:
      statuses: failed
`)

	c, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "news-secret", c.News.APIKey)
	assert.Equal(t, "ai-secret", c.Summary.APIKey)
	require.Len(t, c.Jobs, 1)
	assert.Equal(t, "news:requeue", c.Jobs[0].TaskName())
	assert.Equal(t, "failed", c.Jobs[0].Params["statuses"])
}

func TestValidate(t *testing.T) {
	path := writeConfig(t, "services:\n  use_mock: false\n")
	_, err := LoadConfig(path)
	assert.ErrorContains(t, err, "news.api_key")

	path = writeConfig(t, "ingest:\n  limit: -1\n")
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "ingest.limit")

	path = writeConfig(t, `
services:
  use_mock: false
news:
  provider: rss
summary:
  api_key: k
`)
	_, err = LoadConfig(path)
	assert.ErrorContains(t, err, "news.feeds")
}
