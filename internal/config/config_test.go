package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/ma3u/mcp-server-dust/internal/errs"
)

func clearPlatformEnv(t *testing.T) {
	t.Helper()
	for _, k := range []string{
		"MCP_NAME", "MCP_HOST", "MCP_PORT", "MCP_TIMEOUT", "MCP_TRANSPORT",
		"DUST_API_KEY", "DUST_WORKSPACE_ID", "DUST_WORKSPACE_NAME",
		"DUST_AGENT_ID", "DUST_AGENT_NAME", "DUST_DOMAIN", "DUST_TIMEZONE",
		"DUST_USERNAME", "DUST_FULLNAME",
		"DUST_MAX_POLL_ATTEMPTS", "DUST_POLL_INTERVAL", "LOG_LEVEL",
	} {
		t.Setenv(k, "")
		require.NoError(t, os.Unsetenv(k))
	}
}

func TestEnsureAtCreatesSettingsFile(t *testing.T) {
	clearPlatformEnv(t)
	sp := filepath.Join(t.TempDir(), "dust.yml")

	cfg, err := EnsureAt(sp)
	require.NoError(t, err)
	require.FileExists(t, sp)
	require.Equal(t, sp, cfg.SettingsPath)

	// Defaults applied.
	require.Equal(t, "Dust MCP Server", cfg.Name)
	require.Equal(t, "127.0.0.1", cfg.Host)
	require.Equal(t, 5001, cfg.Port)
	require.Equal(t, TransportStdio, cfg.Transport)
	require.Equal(t, "https://dust.tt", cfg.Domain)
	require.Equal(t, 30, cfg.MaxPollAttempts)
	require.Equal(t, time.Second, cfg.PollInterval)

	// The template ships a placeholder key that Validate rejects.
	require.Error(t, cfg.Validate())
}

func TestEnsureAtEnvOverrides(t *testing.T) {
	clearPlatformEnv(t)
	t.Setenv("DUST_API_KEY", "sk-live")
	t.Setenv("DUST_WORKSPACE_ID", "w1")
	t.Setenv("DUST_AGENT_ID", "agent_1")
	t.Setenv("MCP_PORT", "6001")
	t.Setenv("MCP_TRANSPORT", "http")
	t.Setenv("DUST_POLL_INTERVAL", "250ms")

	cfg, err := EnsureAt(filepath.Join(t.TempDir(), "dust.yml"))
	require.NoError(t, err)
	require.Equal(t, "sk-live", cfg.APIKey)
	require.Equal(t, "w1", cfg.WorkspaceID)
	require.Equal(t, "agent_1", cfg.AgentID)
	require.Equal(t, 6001, cfg.Port)
	require.Equal(t, TransportHTTP, cfg.Transport)
	require.Equal(t, 250*time.Millisecond, cfg.PollInterval)
	require.NoError(t, cfg.Validate())
}

func TestEnsureAtReadsSettingsFile(t *testing.T) {
	clearPlatformEnv(t)
	sp := filepath.Join(t.TempDir(), "dust.yml")
	require.NoError(t, os.WriteFile(sp, []byte("api-key: from-file\nworkspace-id: w9\nagent-id: a9\nport: 7001\n"), 0o600))

	cfg, err := EnsureAt(sp)
	require.NoError(t, err)
	require.Equal(t, "from-file", cfg.APIKey)
	require.Equal(t, "w9", cfg.WorkspaceID)
	require.Equal(t, 7001, cfg.Port)
	require.NoError(t, cfg.Validate())
}

func TestValidate(t *testing.T) {
	valid := Default()
	valid.APIKey = "sk-test"
	valid.WorkspaceID = "w1"
	valid.AgentID = "agent_1"

	t.Run("valid", func(t *testing.T) {
		cfg := valid
		require.NoError(t, cfg.Validate())
	})

	t.Run("placeholder api key", func(t *testing.T) {
		cfg := valid
		cfg.APIKey = apiKeyPlaceholder
		err := cfg.Validate()
		require.Error(t, err)
		var merr errs.Error
		require.ErrorAs(t, err, &merr)
		require.Contains(t, merr.ReasonText(), "DUST_API_KEY")
	})

	t.Run("missing workspace", func(t *testing.T) {
		cfg := valid
		cfg.WorkspaceID = ""
		require.ErrorContains(t, cfg.Validate(), "DUST_WORKSPACE_ID")
	})

	t.Run("missing agent", func(t *testing.T) {
		cfg := valid
		cfg.AgentID = ""
		require.ErrorContains(t, cfg.Validate(), "DUST_AGENT_ID")
	})

	t.Run("unknown transport", func(t *testing.T) {
		cfg := valid
		cfg.Transport = "carrier-pigeon"
		require.ErrorContains(t, cfg.Validate(), "MCP_TRANSPORT")
	})
}

func TestHeaders(t *testing.T) {
	cfg := Default()
	cfg.APIKey = "sk-test"

	h := cfg.Headers(true)
	require.Equal(t, "Bearer sk-test", h["Authorization"])
	require.Equal(t, "application/json", h["Accept"])
	require.Equal(t, "application/json", h["Content-Type"])

	h = cfg.Headers(false)
	require.NotContains(t, h, "Content-Type")
}
