package config

import (
	"fmt"
	"net"
	"strings"
	"time"
)

// Config is the process-wide configuration. It is built once by Load and
// must be treated as read-only afterwards.
type Config struct {
	// AppID is the Meta application identifier used as the OAuth client_id.
	AppID string `yaml:"appId" env:"META_APP_ID"`

	// AppSecret is the Meta application secret. Optional; enables the
	// long-lived token upgrade and confidential-client code exchange.
	AppSecret string `yaml:"appSecret" env:"META_APP_SECRET"`

	// AccessToken is a directly supplied token that seeds the cache.
	AccessToken string `yaml:"-" env:"META_ACCESS_TOKEN"`

	// DisableLoginLink turns the login capability off entirely.
	DisableLoginLink Flag `yaml:"disableLoginLink" env:"META_ADS_DISABLE_LOGIN_LINK"`

	// DisableCallbackServer prevents the local redirect listener from starting.
	DisableCallbackServer Flag `yaml:"disableCallbackServer" env:"META_ADS_DISABLE_CALLBACK_SERVER"`

	Callback   CallbackConfig   `yaml:"callback"`
	OAuth      OAuthConfig      `yaml:"oauth"`
	TokenStore TokenStoreConfig `yaml:"tokenStore"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `yaml:"logLevel" env:"META_ADS_LOG_LEVEL"`
}

// CallbackConfig configures the local OAuth redirect listener.
type CallbackConfig struct {
	// Host is the loopback host name placed in the redirect URI.
	Host string `yaml:"host" env:"META_ADS_CALLBACK_HOST"`

	// BasePort is the first port tried when binding.
	BasePort int `yaml:"basePort" env:"META_ADS_CALLBACK_PORT"`

	// BindAttempts bounds how many sequential ports are tried.
	BindAttempts int `yaml:"bindAttempts" env:"META_ADS_CALLBACK_BIND_ATTEMPTS"`

	// Timeout is how long an authorization session waits for the redirect.
	Timeout time.Duration `yaml:"timeout" env:"META_ADS_CALLBACK_TIMEOUT"`

	// Path is the single route served by the listener.
	Path string `yaml:"path" env:"META_ADS_CALLBACK_PATH"`
}

// OAuthConfig configures the Meta OAuth endpoints.
type OAuthConfig struct {
	// GraphAPIVersion selects the versioned dialog and Graph API endpoints.
	GraphAPIVersion string `yaml:"graphApiVersion" env:"META_ADS_GRAPH_API_VERSION"`

	// Scopes are the permissions requested in the authorization URL.
	Scopes []string `yaml:"scopes" env:"META_ADS_SCOPES" envSeparator:","`

	// AuthURL overrides the authorization dialog endpoint.
	AuthURL string `yaml:"authUrl" env:"META_ADS_AUTH_URL"`

	// TokenURL overrides the code exchange endpoint.
	TokenURL string `yaml:"tokenUrl" env:"META_ADS_TOKEN_URL"`
}

// AuthorizationEndpoint returns the configured or versioned dialog URL.
func (o OAuthConfig) AuthorizationEndpoint() string {
	if o.AuthURL != "" {
		return o.AuthURL
	}
	return fmt.Sprintf("https://www.facebook.com/%s/dialog/oauth", o.GraphAPIVersion)
}

// TokenEndpoint returns the configured or versioned token URL.
func (o OAuthConfig) TokenEndpoint() string {
	if o.TokenURL != "" {
		return o.TokenURL
	}
	return fmt.Sprintf("https://graph.facebook.com/%s/oauth/access_token", o.GraphAPIVersion)
}

// StoreKind selects the token persistence backend.
type StoreKind string

const (
	StoreKindMemory StoreKind = "memory"
	StoreKindFile   StoreKind = "file"
	StoreKindBolt   StoreKind = "bolt"
)

// TokenStoreConfig configures optional on-disk token persistence.
type TokenStoreConfig struct {
	Kind StoreKind `yaml:"kind" env:"META_ADS_TOKEN_STORE"`

	// Path is the file (or bolt database) holding the encrypted token.
	Path string `yaml:"path" env:"META_ADS_TOKEN_STORE_PATH"`

	// Key is the passphrase protecting the store. Falls back to the app
	// secret, then the app id.
	Key string `yaml:"-" env:"META_ADS_TOKEN_STORE_KEY"`

	// Watch enables picking up tokens written by other processes.
	Watch bool `yaml:"watch" env:"META_ADS_TOKEN_STORE_WATCH"`
}

// Flag is an opt-out switch. Any non-empty value enables it except the
// usual negative spellings (0, false, no, off).
type Flag bool

// UnmarshalText implements encoding.TextUnmarshaler.
func (f *Flag) UnmarshalText(text []byte) error {
	switch strings.ToLower(strings.TrimSpace(string(text))) {
	case "", "0", "false", "no", "off":
		*f = false
	default:
		*f = true
	}
	return nil
}

// LoginLinkEnabled reports whether the login capability is available.
func (c Config) LoginLinkEnabled() bool {
	return !bool(c.DisableLoginLink)
}

// CallbackEnabled reports whether the local redirect listener may start.
func (c Config) CallbackEnabled() bool {
	return !bool(c.DisableCallbackServer)
}

// StoreKey returns the passphrase used to encrypt the persistent store.
func (c Config) StoreKey() string {
	switch {
	case c.TokenStore.Key != "":
		return c.TokenStore.Key
	case c.AppSecret != "":
		return c.AppSecret
	default:
		return c.AppID
	}
}

// IsLoopbackHost reports whether host names the local machine: "localhost"
// or a loopback IP literal.
func IsLoopbackHost(host string) bool {
	if strings.EqualFold(host, "localhost") {
		return true
	}
	ip := net.ParseIP(strings.Trim(host, "[]"))
	return ip != nil && ip.IsLoopback()
}

// BindHost returns the address the listener binds for Host. An IP literal
// is bound as given; "localhost" binds the IPv4 loopback.
func (c CallbackConfig) BindHost() string {
	if ip := net.ParseIP(strings.Trim(c.Host, "[]")); ip != nil {
		return ip.String()
	}
	return "127.0.0.1"
}
