package jwtx

import (
	"crypto/rand"
	"encoding/base64"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Default token TTLs. Short access tokens, longer refresh windows; both can
// be overridden per-service through configuration.
const (
	DefaultAccessTokenTTL  = 15 * time.Minute
	DefaultRefreshTokenTTL = 30 * 24 * time.Hour
)

// Claims is the fixed access-token payload. The claim set is decoded once at
// verification time; optional claims that are absent simply stay zero rather
// than failing the parse.
type Claims struct {
	jwt.RegisteredClaims

	// Email of the authenticated user.
	Email string `json:"email,omitempty"`

	// FullName is the display name for the user.
	FullName string `json:"full_name,omitempty"`

	// Roles is the comma-joined role list (e.g. "USER,MANAGER"). Role names
	// travel unprefixed; canonicalisation happens at the trust boundary.
	Roles string `json:"roles,omitempty"`
}

// NewAccessClaims builds minimally-correct claims for an access token.
func NewAccessClaims(
	subject, email, fullName string,
	roles []string,
	ttl time.Duration,
	issuer string,
	now time.Time,
) Claims {
	return Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    issuer,
			Subject:   subject,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(ttl)),
			ID:        NewJTI(),
		},
		Email:    email,
		FullName: fullName,
		Roles:    strings.Join(roles, ","),
	}
}

// RoleList splits the comma-joined roles claim into individual names,
// dropping empty segments.
func (c *Claims) RoleList() []string {
	if c.Roles == "" {
		return nil
	}
	parts := strings.Split(c.Roles, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}

// NewJTI returns a URL-safe random identifier for the "jti" claim.
func NewJTI() string {
	var b [20]byte
	_, _ = rand.Read(b[:])
	return base64.RawURLEncoding.EncodeToString(b[:])
}
