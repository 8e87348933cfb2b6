package jwtx

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

var (
	ErrMalformed        = errors.New("jwtx: malformed token")
	ErrInvalidSignature = errors.New("jwtx: invalid signature")
	ErrExpired          = errors.New("jwtx: token expired")
	ErrNotYetValid      = errors.New("jwtx: token not yet valid")
	ErrIssuer           = errors.New("jwtx: issuer mismatch")

	// ErrWeakSecret rejects signing secrets below 256 bits.
	ErrWeakSecret = errors.New("jwtx: signing secret shorter than 32 bytes")
)

// Codec signs and verifies access tokens with a single shared HMAC secret
// (HS256). It holds no mutable state and is safe for concurrent use.
type Codec struct {
	secret []byte
	issuer string
	leeway time.Duration
}

// NewCodec builds a codec from the shared secret. The secret must carry at
// least 256 bits; shorter secrets make HS256 brute-forceable offline.
func NewCodec(secret []byte, issuer string) (*Codec, error) {
	if len(secret) < 32 {
		return nil, ErrWeakSecret
	}
	return &Codec{secret: secret, issuer: issuer, leeway: 30 * time.Second}, nil
}

// Issue serialises and signs the claims. The only failure mode is a signing
// or serialisation error, which indicates a configuration bug.
func (c *Codec) Issue(claims Claims) (string, error) {
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	return t.SignedString(c.secret)
}

// Verify checks signature and time bounds and returns the decoded claims.
// Failures map to the typed sentinels so callers can distinguish malformed
// input, a bad signature, and natural expiry; access control treats all of
// them as unauthenticated.
func (c *Codec) Verify(tokenStr string) (Claims, error) {
	parser := jwt.NewParser(
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(c.leeway),
	)

	var claims Claims
	token, err := parser.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return c.secret, nil
	})
	if err != nil {
		return Claims{}, mapParseError(err)
	}
	if !token.Valid {
		return Claims{}, ErrMalformed
	}

	if c.issuer != "" && claims.Issuer != c.issuer {
		return Claims{}, ErrIssuer
	}
	return claims, nil
}

func mapParseError(err error) error {
	switch {
	case errors.Is(err, jwt.ErrTokenExpired):
		return ErrExpired
	case errors.Is(err, jwt.ErrTokenNotValidYet):
		return ErrNotYetValid
	case errors.Is(err, jwt.ErrTokenSignatureInvalid):
		return ErrInvalidSignature
	case errors.Is(err, jwt.ErrTokenUnverifiable):
		// Unexpected alg header lands here; treat like a forged signature.
		return ErrInvalidSignature
	default:
		return ErrMalformed
	}
}
