package config

import "time"

const (
	// DefaultCallbackPort is the first port the redirect listener tries.
	DefaultCallbackPort = 8080

	// DefaultBindAttempts is how many sequential ports are tried before
	// giving up with a bind failure.
	DefaultBindAttempts = 10

	// DefaultCallbackTimeout is how long an authorization session waits for
	// the browser redirect.
	DefaultCallbackTimeout = 10 * time.Minute

	// DefaultCallbackPath is the route served by the redirect listener.
	DefaultCallbackPath = "/callback"

	// DefaultGraphAPIVersion is the Graph API version used for endpoints.
	DefaultGraphAPIVersion = "v22.0"
)

// DefaultScopes are the permissions needed to manage ads.
var DefaultScopes = []string{"business_management", "public_profile", "ads_management", "ads_read"}

// GetDefaultConfig returns the built-in configuration.
func GetDefaultConfig() Config {
	return Config{
		Callback: CallbackConfig{
			Host:         "localhost",
			BasePort:     DefaultCallbackPort,
			BindAttempts: DefaultBindAttempts,
			Timeout:      DefaultCallbackTimeout,
			Path:         DefaultCallbackPath,
		},
		OAuth: OAuthConfig{
			GraphAPIVersion: DefaultGraphAPIVersion,
			Scopes:          append([]string(nil), DefaultScopes...),
		},
		TokenStore: TokenStoreConfig{
			Kind:  StoreKindFile,
			Watch: true,
		},
		LogLevel: "info",
	}
}
