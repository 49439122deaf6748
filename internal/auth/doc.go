// Package auth obtains and caches Meta access tokens.
//
// # Architecture
//
// The Manager owns three collaborators:
//   - TokenCache: one token, expiry checked on every read, optional
//     encrypted persistence through tokenstore (failures degrade to memory)
//   - Exchanger: builds the authorization URL and trades codes for tokens
//     using golang.org/x/oauth2, upgrading to a long-lived token when the app
//     secret is configured
//   - CallbackListener: a loopback HTTP server bound to the first free port
//     at or above the configured base port, serving a single GET route
//
// # Authorization sessions
//
// Each call to AuthURL that needs a new flow creates an AuthSession with a
// fresh state nonce. A session moves exactly once from pending to one of
// succeeded, failed or timed-out, and every terminal transition shuts the
// listener down. While a listening session is pending, AuthURL returns the
// same URL rather than binding another port.
//
// # Errors
//
// Failures are *AuthError values classified by ErrorKind; use errors.Is
// with the Err* sentinels or KindOf to inspect them.
//
// # Usage
//
//	m := auth.NewManager(cfg, auth.WithPersister(store))
//	defer m.Close()
//
//	if tok := m.GetAccessToken(); tok != nil {
//	    // use tok.AccessToken
//	}
//
//	req, err := m.AuthURL(ctx)
//	if err != nil {
//	    // errors.Is(err, auth.ErrConfigurationMissing)
//	}
//	fmt.Println("Open:", req.URL)
//	state, err := req.Session.Wait(ctx)
package auth
