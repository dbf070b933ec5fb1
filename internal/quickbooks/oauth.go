package quickbooks

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

// Intuit OAuth2 endpoints.
const (
	authorizeURL = "https://appcenter.intuit.com/connect/oauth2"
	tokenURL     = "https://oauth.platform.intuit.com/oauth2/v1/tokens/bearer"

	scopeAccounting = "com.intuit.quickbooks.accounting"
)

// OAuthConfig holds the app credentials registered with Intuit.
type OAuthConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURI  string
}

// OAuthFlow performs the QuickBooks authorization-code exchange and token
// refresh. It stands apart from the bulk upload path, which only consumes
// an already-obtained bearer token.
type OAuthFlow struct {
	config *oauth2.Config
	logger *zap.Logger
}

// NewOAuthFlow creates an OAuth flow for the given app credentials.
func NewOAuthFlow(cfg OAuthConfig, logger *zap.Logger) *OAuthFlow {
	return &OAuthFlow{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       []string{scopeAccounting},
			Endpoint: oauth2.Endpoint{
				AuthURL:   authorizeURL,
				TokenURL:  tokenURL,
				AuthStyle: oauth2.AuthStyleInHeader,
			},
		},
		logger: logger,
	}
}

// AuthCodeURL returns the Intuit consent page URL for the given state.
func (f *OAuthFlow) AuthCodeURL(state string) string {
	return f.config.AuthCodeURL(state)
}

// Exchange trades an authorization code for tokens. The company (realm) id
// is not part of the token response; Intuit delivers it as the realmId
// query parameter of the callback, so the caller pairs it up separately.
func (f *OAuthFlow) Exchange(ctx context.Context, code string) (*oauth2.Token, error) {
	token, err := f.config.Exchange(ctx, code)
	if err != nil {
		f.logger.Error("oauth code exchange failed", zap.Error(err))
		return nil, fmt.Errorf("token exchange failed: %w", err)
	}

	f.logger.Info("obtained quickbooks access token",
		zap.Time("expires_at", token.Expiry))
	return token, nil
}

// Refresh obtains a fresh access token from a refresh token. Intuit may
// rotate the refresh token; callers must persist the returned one.
func (f *OAuthFlow) Refresh(ctx context.Context, refreshToken string) (*oauth2.Token, error) {
	src := f.config.TokenSource(ctx, &oauth2.Token{RefreshToken: refreshToken})

	token, err := src.Token()
	if err != nil {
		f.logger.Error("oauth token refresh failed", zap.Error(err))
		return nil, fmt.Errorf("token refresh failed: %w", err)
	}

	f.logger.Info("refreshed quickbooks access token",
		zap.Time("expires_at", token.Expiry))
	return token, nil
}

// ValidateToken checks whether a credential still works by fetching the
// company record.
func (f *OAuthFlow) ValidateToken(ctx context.Context, client *Client, auth Auth) bool {
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	if _, err := client.GetCompanyInfo(ctx, auth); err != nil {
		f.logger.Warn("token validation failed", zap.Error(err))
		return false
	}
	return true
}
