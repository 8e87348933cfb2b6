package domain

import "time"

// TokenPair is what the auth endpoints return: the short-lived access token
// (JWT) and the opaque refresh token.
type TokenPair struct {
	AccessToken  string `json:"access_token"`
	RefreshToken string `json:"refresh_token"`
	TokenType    string `json:"token_type,omitempty"` // typically "Bearer"
	ExpiresIn    int64  `json:"expires_in"`           // seconds until access expiry
}

// RefreshToken models the stored refresh token record in the DB. The raw
// token value is never persisted; TokenHash is its SHA-256 fingerprint.
type RefreshToken struct {
	ID         string
	UserID     string
	TokenHash  string // deterministic fingerprint (base64url SHA-256)
	ExpiresAt  time.Time
	Revoked    bool
	ReplacedBy string // successor row id set on rotation, for auditing
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Live reports whether the token can still be rotated at the given instant.
func (t *RefreshToken) Live(now time.Time) bool {
	return !t.Revoked && t.ExpiresAt.After(now)
}
