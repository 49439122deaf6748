package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadWithEnvironment(dir, map[string]string{})
	require.NoError(t, err)

	assert.Equal(t, DefaultCallbackPort, cfg.Callback.BasePort)
	assert.Equal(t, DefaultBindAttempts, cfg.Callback.BindAttempts)
	assert.Equal(t, DefaultCallbackTimeout, cfg.Callback.Timeout)
	assert.Equal(t, DefaultScopes, cfg.OAuth.Scopes)
	assert.Equal(t, StoreKindFile, cfg.TokenStore.Kind)
	assert.Equal(t, filepath.Join(dir, "token.enc"), cfg.TokenStore.Path)
	assert.True(t, cfg.LoginLinkEnabled())
	assert.True(t, cfg.CallbackEnabled())
	assert.Empty(t, cfg.AppID)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	dir := t.TempDir()

	cfg, err := LoadWithEnvironment(dir, map[string]string{
		"META_APP_ID":                      "123",
		"META_APP_SECRET":                  "shh",
		"META_ACCESS_TOKEN":                "EAAB-direct",
		"META_ADS_DISABLE_LOGIN_LINK":      "1",
		"META_ADS_DISABLE_CALLBACK_SERVER": "yes",
		"META_ADS_CALLBACK_PORT":           "9100",
		"META_ADS_CALLBACK_BIND_ATTEMPTS":  "3",
		"META_ADS_CALLBACK_TIMEOUT":        "90s",
		"META_ADS_SCOPES":                  "ads_read,ads_management",
		"META_ADS_TOKEN_STORE":             "memory",
	})
	require.NoError(t, err)

	assert.Equal(t, "123", cfg.AppID)
	assert.Equal(t, "shh", cfg.AppSecret)
	assert.Equal(t, "EAAB-direct", cfg.AccessToken)
	assert.False(t, cfg.LoginLinkEnabled())
	assert.False(t, cfg.CallbackEnabled())
	assert.Equal(t, 9100, cfg.Callback.BasePort)
	assert.Equal(t, 3, cfg.Callback.BindAttempts)
	assert.Equal(t, 90*time.Second, cfg.Callback.Timeout)
	assert.Equal(t, []string{"ads_read", "ads_management"}, cfg.OAuth.Scopes)
	assert.Equal(t, StoreKindMemory, cfg.TokenStore.Kind)
	assert.Empty(t, cfg.TokenStore.Path)
}

func TestLoad_YAMLThenEnv(t *testing.T) {
	dir := t.TempDir()
	yamlData := `
appId: "from-yaml"
callback:
  basePort: 9200
  timeout: 2m
tokenStore:
  kind: bolt
  path: /tmp/tokens.db
`
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte(yamlData), 0600))

	cfg, err := LoadWithEnvironment(dir, map[string]string{
		"META_ADS_CALLBACK_PORT": "9300",
	})
	require.NoError(t, err)

	assert.Equal(t, "from-yaml", cfg.AppID)
	assert.Equal(t, 9300, cfg.Callback.BasePort, "env must win over yaml")
	assert.Equal(t, 2*time.Minute, cfg.Callback.Timeout)
	assert.Equal(t, StoreKindBolt, cfg.TokenStore.Kind)
	assert.Equal(t, "/tmp/tokens.db", cfg.TokenStore.Path)
}

func TestLoad_MalformedYAML(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "config.yaml"), []byte("callback: [unclosed"), 0600))

	_, err := LoadWithEnvironment(dir, map[string]string{})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "error loading config")
}

func TestLoad_InvalidValues(t *testing.T) {
	dir := t.TempDir()

	_, err := LoadWithEnvironment(dir, map[string]string{
		"META_ADS_CALLBACK_BIND_ATTEMPTS": "0",
		"META_ADS_TOKEN_STORE":            "redis",
	})
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	assert.Len(t, verrs, 2)
}

func TestFlag_UnmarshalText(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"", false},
		{"0", false},
		{"false", false},
		{"OFF", false},
		{"1", true},
		{"true", true},
		{"anything", true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			var f Flag
			require.NoError(t, f.UnmarshalText([]byte(tt.in)))
			assert.Equal(t, tt.want, bool(f))
		})
	}
}

func TestStoreKey_Fallbacks(t *testing.T) {
	cfg := Config{AppID: "id"}
	assert.Equal(t, "id", cfg.StoreKey())

	cfg.AppSecret = "secret"
	assert.Equal(t, "secret", cfg.StoreKey())

	cfg.TokenStore.Key = "explicit"
	assert.Equal(t, "explicit", cfg.StoreKey())
}

func TestOAuthConfig_Endpoints(t *testing.T) {
	o := OAuthConfig{GraphAPIVersion: "v22.0"}
	assert.Equal(t, "https://www.facebook.com/v22.0/dialog/oauth", o.AuthorizationEndpoint())
	assert.Equal(t, "https://graph.facebook.com/v22.0/oauth/access_token", o.TokenEndpoint())

	o.AuthURL = "http://127.0.0.1/auth"
	o.TokenURL = "http://127.0.0.1/token"
	assert.Equal(t, "http://127.0.0.1/auth", o.AuthorizationEndpoint())
	assert.Equal(t, "http://127.0.0.1/token", o.TokenEndpoint())
}

func TestCallbackConfig_LoopbackHost(t *testing.T) {
	tests := []struct {
		host     string
		loopback bool
		bind     string
	}{
		{"localhost", true, "127.0.0.1"},
		{"LOCALHOST", true, "127.0.0.1"},
		{"127.0.0.1", true, "127.0.0.1"},
		{"127.0.0.2", true, "127.0.0.2"},
		{"::1", true, "::1"},
		{"[::1]", true, "::1"},
		{"example.com", false, "127.0.0.1"},
		{"0.0.0.0", false, "0.0.0.0"},
		{"192.168.1.10", false, "192.168.1.10"},
	}
	for _, tt := range tests {
		t.Run(tt.host, func(t *testing.T) {
			assert.Equal(t, tt.loopback, IsLoopbackHost(tt.host))
			assert.Equal(t, tt.bind, CallbackConfig{Host: tt.host}.BindHost())
		})
	}
}

func TestLoad_RejectsNonLoopbackCallbackHost(t *testing.T) {
	_, err := LoadWithEnvironment(t.TempDir(), map[string]string{
		"META_ADS_CALLBACK_HOST": "auth.example.com",
	})
	require.Error(t, err)

	var verrs ValidationErrors
	require.ErrorAs(t, err, &verrs)
	require.Len(t, verrs, 1)
	assert.Equal(t, "callback.host", verrs[0].Field)
}
