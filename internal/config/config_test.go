package config

import (
	"testing"

	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "8000", cfg.Server.Port)
	require.Equal(t, "https://api.search1api.com/search", cfg.Search.BaseURL)
	require.Equal(t, 5, cfg.Search.MaxResults)
	require.Equal(t, "https://api.siliconflow.com/v1", cfg.Completion.BaseURL)
	require.Equal(t, "Pro/deepseek-ai/DeepSeek-R1", cfg.Completion.DefaultModel)
	require.Equal(t, "always_create", cfg.Chat.SessionPolicy)
	require.Equal(t, "most_recent", cfg.Chat.CompatSessionPolicy)
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("SILICONFLOW_API_KEY", "sk-test")
	t.Setenv("SEARCH1API_KEY", "search-test")
	t.Setenv("DATABASE_DSN", "user:pass@tcp(localhost:3306)/chat")
	t.Setenv("DEFAULT_MODEL", "deepseek-chat")
	t.Setenv("SEARCH_MAX_RESULTS", "3")
	t.Setenv("CHAT_SESSION_POLICY", "most_recent")

	cfg, err := Load("")
	require.NoError(t, err)

	require.Equal(t, "sk-test", cfg.Completion.APIKey)
	require.Equal(t, "search-test", cfg.Search.APIKey)
	require.Equal(t, "user:pass@tcp(localhost:3306)/chat", cfg.Database.DSN)
	require.Equal(t, "deepseek-chat", cfg.Completion.DefaultModel)
	require.Equal(t, 3, cfg.Search.MaxResults)
	require.Equal(t, "most_recent", cfg.Chat.SessionPolicy)
}

func TestLoadMissingFileFails(t *testing.T) {
	_, err := Load("does-not-exist.yaml")
	require.Error(t, err)
}
