// Package config loads the process-wide configuration for meta-ads-mcp.
//
// Values are layered: built-in defaults, then an optional
// ~/.config/meta-ads-mcp/config.yaml, then environment variables. The
// resulting Config is passed by value to the components that need it and is
// never reloaded.
//
// Environment variables:
//
//	META_APP_ID                       application id (OAuth client_id)
//	META_APP_SECRET                   application secret (optional)
//	META_ACCESS_TOKEN                 direct token override
//	META_ADS_DISABLE_LOGIN_LINK       disables the login capability
//	META_ADS_DISABLE_CALLBACK_SERVER  disables the local redirect listener
//	META_ADS_CALLBACK_PORT            first port tried by the listener (8080)
//	META_ADS_CALLBACK_BIND_ATTEMPTS   sequential ports tried (10)
//	META_ADS_CALLBACK_TIMEOUT         redirect wait window (10m)
//	META_ADS_SCOPES                   comma separated scopes
//	META_ADS_GRAPH_API_VERSION        Graph API version (v22.0)
//	META_ADS_TOKEN_STORE              memory, file or bolt
//	META_ADS_TOKEN_STORE_PATH         location of the encrypted token
//	META_ADS_TOKEN_STORE_KEY          passphrase for the token store
//	META_ADS_LOG_LEVEL                debug, info, warn, error
package config
