package models

import "time"

// OAuthToken stores the QuickBooks OAuth2 credentials for the connected
// company. The application keeps a single row; reconnecting overwrites it.
type OAuthToken struct {
	ID           int64      `json:"id"`
	AccessToken  string     `json:"-"`
	RefreshToken string     `json:"-"`
	RealmID      string     `json:"realm_id"`
	ExpiresAt    *time.Time `json:"expires_at"`
	Scope        string     `json:"scope"`
	CreatedAt    time.Time  `json:"created_at"`
	UpdatedAt    time.Time  `json:"updated_at"`
}

// IsExpired reports whether the access token has passed its expiry time.
// Tokens without a recorded expiry are treated as still valid.
func (t *OAuthToken) IsExpired() bool {
	if t.ExpiresAt == nil {
		return false
	}
	return time.Now().After(*t.ExpiresAt)
}
