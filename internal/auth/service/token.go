package service

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/quickbite/platform/internal/auth/cache"
	"github.com/quickbite/platform/internal/auth/domain"
	"github.com/quickbite/platform/internal/auth/store"
	"github.com/quickbite/platform/internal/metrics"
	"github.com/quickbite/platform/pkg/cryptox"
	"github.com/quickbite/platform/pkg/idx"
	"github.com/quickbite/platform/pkg/jwtx"
	"github.com/quickbite/platform/pkg/slogx"
)

// MinPasswordLength is the registration password policy.
const MinPasswordLength = 6

var (
	ErrInvalidCredentials = errors.New("invalid_credentials")
	ErrEmailTaken         = errors.New("email_taken")
	ErrWeakPassword       = errors.New("weak_password")
	ErrTokenExpired       = errors.New("refresh_token_expired")
	ErrTokenRevoked       = errors.New("refresh_token_revoked")
	ErrTokenUnknown       = errors.New("refresh_token_unknown")
	ErrTokenBlacklisted   = errors.New("access_token_blacklisted")
)

// TokenService issues and rotates token pairs. The durable store is the
// authority on refresh tokens; Cache, when set, is a read-latency layer that
// is purged on every revoke and rotation.
type TokenService struct {
	Codec     *jwtx.Codec
	Store     store.Store
	Cache     cache.TokenCache // optional
	Blacklist *BlacklistService
	Metrics   *metrics.Metrics // nil-safe

	Issuer     string
	AccessTTL  time.Duration
	RefreshTTL time.Duration
}

type RegisterRequest struct {
	Email    string
	Password string
	FullName string
	Phone    string
}

// Register creates the user and issues a first token pair. The account is
// created with exactly the USER role; nothing in the request can change that.
func (s *TokenService) Register(ctx context.Context, req RegisterRequest) (*domain.TokenPair, error) {
	email := normalizeEmail(req.Email)
	if email == "" || len(req.Password) < MinPasswordLength {
		return nil, ErrWeakPassword
	}

	hash, err := cryptox.HashPassword(req.Password)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	user := domain.User{
		ID:           idx.New().String(),
		Email:        email,
		FullName:     strings.TrimSpace(req.FullName),
		Phone:        strings.TrimSpace(req.Phone),
		PasswordHash: hash,
		Roles:        []string{domain.RoleUser},
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().CreateUser(ctx, user); err != nil {
			if errors.Is(err, store.ErrAlreadyExists) {
				return ErrEmailTaken
			}
			return err
		}
		pair, err = s.issuePair(ctx, tx, user, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.TokenIssued("register")
	slogx.FromContext(ctx).Info("user registered", "user_id", user.ID)
	return pair, nil
}

// Login verifies credentials and issues a pair from the user's current role
// set. Unknown email and wrong password fail identically.
func (s *TokenService) Login(ctx context.Context, email, password string) (*domain.TokenPair, error) {
	user, err := s.Store.Users().GetUserByEmail(ctx, normalizeEmail(email))
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, ErrInvalidCredentials
		}
		return nil, err
	}

	if err := cryptox.VerifyPassword(password, user.PasswordHash); err != nil {
		return nil, ErrInvalidCredentials
	}

	now := time.Now().UTC()
	var pair *domain.TokenPair
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		pair, err = s.issuePair(ctx, tx, user, now)
		return err
	})
	if err != nil {
		return nil, err
	}

	s.Metrics.TokenIssued("login")
	return pair, nil
}

// Refresh rotates the presented refresh token. Exactly one concurrent caller
// wins the row; everyone else learns why they lost (expired, revoked, or
// unknown). The access token is minted from the user's current roles, not
// whatever the old access token carried.
func (s *TokenService) Refresh(ctx context.Context, refreshOpaque string) (*domain.TokenPair, error) {
	fp := cryptox.FingerprintToken(refreshOpaque)
	now := time.Now().UTC()

	var pair *domain.TokenPair
	err := s.Store.WithTx(ctx, func(tx store.Tx) error {
		row, err := tx.RefreshTokens().GetByHash(ctx, fp)
		if err != nil {
			if errors.Is(err, store.ErrNotFound) {
				return ErrTokenUnknown
			}
			return err
		}

		successorID := idx.New().String()
		won, err := tx.RefreshTokens().Consume(ctx, fp, successorID, now)
		if err != nil {
			return err
		}
		if !won {
			// The conditional update said no; the row tells us why.
			if row.Revoked {
				return ErrTokenRevoked
			}
			if !row.ExpiresAt.After(now) {
				return ErrTokenExpired
			}
			return ErrTokenRevoked
		}

		user, err := tx.Users().GetUserByID(ctx, row.UserID)
		if err != nil {
			return err
		}

		pair, err = s.issuePairWithID(ctx, tx, user, successorID, now)
		return err
	})
	if err != nil {
		s.Metrics.Rotation(rotationOutcome(err))
		if s.Cache != nil && !isStoreError(err) {
			_ = s.Cache.Delete(ctx, fp)
		}
		return nil, err
	}

	if s.Cache != nil {
		_ = s.Cache.Delete(ctx, fp)
	}
	s.Metrics.Rotation("ok")
	s.Metrics.TokenIssued("refresh")
	return pair, nil
}

// Owner resolves the user a refresh token belongs to. The cache answers
// first; a miss falls back to the ledger and repopulates the cache with the
// row's remaining lifetime. Dead tokens resolve to the usual rotation errors.
func (s *TokenService) Owner(ctx context.Context, refreshOpaque string) (string, error) {
	fp := cryptox.FingerprintToken(refreshOpaque)
	if s.Cache != nil {
		if userID, ok, err := s.Cache.Get(ctx, fp); err == nil && ok {
			return userID, nil
		}
	}

	row, err := s.Store.RefreshTokens().GetByHash(ctx, fp)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return "", ErrTokenUnknown
		}
		return "", err
	}

	now := time.Now().UTC()
	if !row.Live(now) {
		if row.Revoked {
			return "", ErrTokenRevoked
		}
		return "", ErrTokenExpired
	}

	if s.Cache != nil {
		_ = s.Cache.Set(ctx, fp, row.UserID, row.ExpiresAt.Sub(now))
	}
	return row.UserID, nil
}

// Logout revokes the refresh token and blacklists the access token so the
// pair dies immediately rather than at natural expiry.
func (s *TokenService) Logout(ctx context.Context, refreshOpaque, accessToken string) error {
	// Resolved before the revoke purely for the audit log; revocation does
	// not depend on it.
	userID, _ := s.Owner(ctx, refreshOpaque)

	fp := cryptox.FingerprintToken(refreshOpaque)
	if err := s.Store.RefreshTokens().Revoke(ctx, fp); err != nil {
		return err
	}
	if s.Cache != nil {
		_ = s.Cache.Delete(ctx, fp)
	}

	if accessToken != "" && s.Blacklist != nil {
		if err := s.Blacklist.Blacklist(ctx, accessToken); err != nil {
			return err
		}
	}

	slogx.FromContext(ctx).Info("refresh token revoked", "user_id", userID)
	return nil
}

// LogoutAll revokes every refresh token for the user. Already-issued access
// tokens are left to expire naturally.
func (s *TokenService) LogoutAll(ctx context.Context, userID string) error {
	hashes, err := s.Store.RefreshTokens().RevokeAllForUser(ctx, userID)
	if err != nil {
		return err
	}
	if s.Cache != nil && len(hashes) > 0 {
		_ = s.Cache.Delete(ctx, hashes...)
	}
	slogx.FromContext(ctx).Info("revoked all refresh tokens", "user_id", userID, "count", len(hashes))
	return nil
}

// issuePair mints an access token from the user's current roles and writes a
// fresh refresh token row inside the caller's transaction.
func (s *TokenService) issuePair(ctx context.Context, tx store.Tx, u domain.User, now time.Time) (*domain.TokenPair, error) {
	return s.issuePairWithID(ctx, tx, u, idx.New().String(), now)
}

func (s *TokenService) issuePairWithID(ctx context.Context, tx store.Tx, u domain.User, refreshID string, now time.Time) (*domain.TokenPair, error) {
	access, err := s.signAccess(u, now)
	if err != nil {
		return nil, err
	}

	opaque, err := cryptox.GenerateToken(cryptox.TokenSize256)
	if err != nil {
		return nil, err
	}
	fp := cryptox.FingerprintToken(opaque)

	rt := domain.RefreshToken{
		ID:        refreshID,
		UserID:    u.ID,
		TokenHash: fp,
		ExpiresAt: now.Add(s.RefreshTTL),
		CreatedAt: now,
		UpdatedAt: now,
	}
	if err := tx.RefreshTokens().Create(ctx, rt); err != nil {
		return nil, err
	}

	if s.Cache != nil {
		_ = s.Cache.Set(ctx, fp, u.ID, s.RefreshTTL)
	}

	return &domain.TokenPair{
		AccessToken:  access,
		RefreshToken: opaque,
		TokenType:    "Bearer",
		ExpiresIn:    int64(s.AccessTTL.Seconds()),
	}, nil
}

func (s *TokenService) signAccess(u domain.User, now time.Time) (string, error) {
	claims := jwtx.NewAccessClaims(u.ID, u.Email, u.FullName, u.Roles, s.AccessTTL, s.Issuer, now)
	return s.Codec.Issue(claims)
}

func normalizeEmail(email string) string {
	return strings.ToLower(strings.TrimSpace(email))
}

func rotationOutcome(err error) string {
	switch {
	case errors.Is(err, ErrTokenExpired):
		return "expired"
	case errors.Is(err, ErrTokenRevoked):
		return "revoked"
	case errors.Is(err, ErrTokenUnknown):
		return "unknown"
	default:
		return "error"
	}
}

func isStoreError(err error) bool {
	return !errors.Is(err, ErrTokenExpired) &&
		!errors.Is(err, ErrTokenRevoked) &&
		!errors.Is(err, ErrTokenUnknown)
}
