package config

import (
	"encoding/json"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefault(t *testing.T) {
	cfg := Default()
	require.NoError(t, cfg.Validate())
	assert.Equal(t, "alice", cfg.Voice.Name)
	assert.Equal(t, "en-US", cfg.Voice.Language)
	assert.Equal(t, "/api", cfg.Server.BasePath)
	assert.Equal(t, []string{"account_sid", "auth_token", "from_number"}, cfg.Credentials().Missing())
}

func TestFromYAMLKeepsDefaults(t *testing.T) {
	cfg, err := FromYAML([]byte(`
provider:
  account_sid: AC1
  from_number: "+15550001111"
webhooks:
  - url: http://hooks.local/calls
    events: [call.accepted]
`))
	require.NoError(t, err)
	assert.Equal(t, "AC1", cfg.Provider.AccountSID)
	assert.Equal(t, "alice", cfg.Voice.Name)
	assert.Equal(t, []string{"auth_token"}, cfg.Credentials().Missing())
	require.Len(t, cfg.Webhooks, 1)
}

func TestFromYAMLRejectsBadConfig(t *testing.T) {
	_, err := FromYAML([]byte("server:\n  base_path: api\n"))
	assert.Error(t, err)
	_, err = FromYAML([]byte("webhooks:\n  - url: http://x\n    events: [task.done]\n"))
	assert.Error(t, err)
	_, err = FromYAML([]byte("provider: [nope"))
	assert.Error(t, err)
}

func TestOverlay(t *testing.T) {
	cfg := Default()
	env := map[string]string{
		"provider.account_sid": " AC9 ",
		"provider.auth_token":  "tok",
		"voice.name":           "",
	}
	cfg.Overlay(func(k string) string { return env[k] })
	assert.Equal(t, "AC9", cfg.Provider.AccountSID)
	assert.Equal(t, "tok", cfg.Provider.AuthToken)
	assert.Equal(t, "alice", cfg.Voice.Name)
}

func TestLoadOptional(t *testing.T) {
	cfg, err := LoadOptional(filepath.Join(t.TempDir(), "missing.yml"))
	require.NoError(t, err)
	assert.Equal(t, "alice", cfg.Voice.Name)

	path := filepath.Join(t.TempDir(), "ringline.yml")
	require.NoError(t, os.WriteFile(path, []byte("voice:\n  name: Polly.Amy\n"), 0o644))
	cfg, err = LoadOptional(path)
	require.NoError(t, err)
	assert.Equal(t, "Polly.Amy", cfg.Voice.Name)
	assert.Equal(t, "en-US", cfg.Voice.Language)
}

func TestRedactedMasksSecrets(t *testing.T) {
	cfg, err := FromYAML([]byte(`
provider:
  account_sid: AC1
  auth_token: live-token
server:
  jwt_secret: signing-key
webhooks:
  - url: http://hooks.local/calls
    secret: hook-secret
  - url: http://hooks.local/other
`))
	require.NoError(t, err)

	out := cfg.Redacted()
	assert.Equal(t, "AC1", out.Provider.AccountSID)
	assert.Equal(t, redacted, out.Provider.AuthToken)
	assert.Equal(t, redacted, out.Server.JWTSecret)
	assert.Equal(t, redacted, out.Webhooks[0].Secret)
	assert.Empty(t, out.Webhooks[1].Secret)
	assert.Equal(t, "hook-secret", cfg.Webhooks[0].Secret, "original untouched")

	data, err := json.Marshal(out)
	require.NoError(t, err)
	for _, secret := range []string{"live-token", "signing-key", "hook-secret"} {
		assert.NotContains(t, string(data), secret)
	}
	assert.Contains(t, string(data), `"account_sid":"AC1"`)
	assert.NotContains(t, string(data), "AccountSID")
}

func TestOverlayDevLogin(t *testing.T) {
	cfg := Default()
	assert.False(t, cfg.Server.DevLogin)
	cfg.Overlay(func(k string) string {
		if k == "server.dev_login" {
			return "true"
		}
		return ""
	})
	assert.True(t, cfg.Server.DevLogin)
	cfg.Overlay(func(string) string { return "" })
	assert.True(t, cfg.Server.DevLogin)
}
