package auth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"golang.org/x/oauth2"

	"github.com/giantswarm/meta-ads-mcp/internal/config"
	"github.com/giantswarm/meta-ads-mcp/pkg/logging"
)

// DefaultHTTPTimeout is the default timeout for requests to Meta.
const DefaultHTTPTimeout = 30 * time.Second

const (
	// shortLivedFallback is assumed when the provider omits expires_in.
	shortLivedFallback = time.Hour

	// longLivedFallback is assumed for upgraded tokens without expires_in.
	longLivedFallback = 60 * 24 * time.Hour
)

// Exchanger turns an authorization code into a token.
type Exchanger interface {
	// AuthCodeURL builds the authorization URL for a session.
	AuthCodeURL(redirectURI, state string) string

	// Exchange performs the code-for-token request.
	Exchange(ctx context.Context, code, redirectURI string) (*Token, error)
}

// MetaExchanger implements Exchanger against the Meta OAuth dialog and
// Graph API token endpoint.
type MetaExchanger struct {
	cfg        config.Config
	httpClient *http.Client
	now        func() time.Time
}

var _ Exchanger = (*MetaExchanger)(nil)

// NewMetaExchanger creates an exchanger. httpClient may be nil.
func NewMetaExchanger(cfg config.Config, httpClient *http.Client) *MetaExchanger {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultHTTPTimeout}
	}
	return &MetaExchanger{
		cfg:        cfg,
		httpClient: httpClient,
		now:        time.Now,
	}
}

func (e *MetaExchanger) oauth2Config(redirectURI string) *oauth2.Config {
	return &oauth2.Config{
		ClientID:     e.cfg.AppID,
		ClientSecret: e.cfg.AppSecret,
		RedirectURL:  redirectURI,
		Scopes:       e.cfg.OAuth.Scopes,
		Endpoint: oauth2.Endpoint{
			AuthURL:   e.cfg.OAuth.AuthorizationEndpoint(),
			TokenURL:  e.cfg.OAuth.TokenEndpoint(),
			AuthStyle: oauth2.AuthStyleInParams,
		},
	}
}

// AuthCodeURL builds the Meta login dialog URL.
func (e *MetaExchanger) AuthCodeURL(redirectURI, state string) string {
	return e.oauth2Config(redirectURI).AuthCodeURL(state, oauth2.SetAuthURLParam("response_type", "code"))
}

// Exchange trades code for a token. When an app secret is configured the
// short-lived token is upgraded to a long-lived one; a failed upgrade keeps
// the short-lived token.
func (e *MetaExchanger) Exchange(ctx context.Context, code, redirectURI string) (*Token, error) {
	ctx = context.WithValue(ctx, oauth2.HTTPClient, e.httpClient)

	tok, err := e.oauth2Config(redirectURI).Exchange(ctx, code)
	if err != nil {
		return nil, err
	}

	now := e.now()
	token := &Token{
		AccessToken: tok.AccessToken,
		TokenType:   tok.TokenType,
		IssuedAt:    now,
		ExpiresAt:   tok.Expiry,
		Method:      MethodOAuth,
	}
	if token.ExpiresAt.IsZero() {
		token.ExpiresAt = now.Add(shortLivedFallback)
	}

	if e.cfg.AppSecret == "" {
		return token, nil
	}

	longLived, err := e.upgrade(ctx, token.AccessToken)
	if err != nil {
		logging.Warn("Exchanger", "Long-lived token upgrade failed, keeping short-lived token: %v", err)
		return token, nil
	}
	return longLived, nil
}

// upgrade exchanges a short-lived token for a long-lived one.
func (e *MetaExchanger) upgrade(ctx context.Context, shortLived string) (*Token, error) {
	params := url.Values{
		"grant_type":        {"fb_exchange_token"},
		"client_id":         {e.cfg.AppID},
		"client_secret":     {e.cfg.AppSecret},
		"fb_exchange_token": {shortLived},
	}

	endpoint := e.cfg.OAuth.TokenEndpoint() + "?" + params.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, err
	}

	resp, err := e.httpClient.Do(req)
	if err != nil {
		return nil, stripRequestURL(err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 1<<20))
	if err != nil {
		return nil, err
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("upgrade failed with status %d: %s", resp.StatusCode, string(body))
	}

	var tokenResp struct {
		AccessToken string `json:"access_token"`
		TokenType   string `json:"token_type"`
		ExpiresIn   int64  `json:"expires_in"`
	}
	if err := json.Unmarshal(body, &tokenResp); err != nil {
		return nil, err
	}
	if tokenResp.AccessToken == "" {
		return nil, fmt.Errorf("upgrade response did not contain an access token")
	}

	now := e.now()
	token := &Token{
		AccessToken: tokenResp.AccessToken,
		TokenType:   tokenResp.TokenType,
		IssuedAt:    now,
		ExpiresAt:   now.Add(longLivedFallback),
		Method:      MethodOAuth,
	}
	if tokenResp.ExpiresIn > 0 {
		token.ExpiresAt = now.Add(time.Duration(tokenResp.ExpiresIn) * time.Second)
	}
	return token, nil
}

// stripRequestURL drops the request URL from transport errors. The upgrade
// URL carries the app secret and the short-lived token in its query.
func stripRequestURL(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s token endpoint: %w", urlErr.Op, urlErr.Err)
	}
	return err
}
