package service

import (
	"context"
	"strings"

	"github.com/quickbite/platform/internal/auth/cache"
	"github.com/quickbite/platform/internal/auth/domain"
	"github.com/quickbite/platform/internal/auth/store"
	"github.com/quickbite/platform/pkg/cryptox"
	"github.com/quickbite/platform/pkg/slogx"
)

type UserService struct {
	Store store.Store
	Cache cache.TokenCache // optional, purged when sessions are revoked
}

// GetUserByID fetches a user by id.
func (s *UserService) GetUserByID(ctx context.Context, userID string) (domain.User, error) {
	return s.Store.Users().GetUserByID(ctx, userID)
}

// UpdateProfile changes the mutable profile fields.
func (s *UserService) UpdateProfile(ctx context.Context, userID, fullName, phone string) (domain.User, error) {
	if _, err := s.Store.Users().GetUserByID(ctx, userID); err != nil {
		return domain.User{}, err
	}
	err := s.Store.Users().UpdateProfile(ctx, userID,
		strings.TrimSpace(fullName), strings.TrimSpace(phone))
	if err != nil {
		return domain.User{}, err
	}
	return s.Store.Users().GetUserByID(ctx, userID)
}

// ChangePassword verifies the current password, swaps the hash, and revokes
// every refresh token so existing sessions must log in again.
func (s *UserService) ChangePassword(ctx context.Context, userID, currentPassword, newPassword string) error {
	if len(newPassword) < MinPasswordLength {
		return ErrWeakPassword
	}

	user, err := s.Store.Users().GetUserByID(ctx, userID)
	if err != nil {
		return err
	}
	if err := cryptox.VerifyPassword(currentPassword, user.PasswordHash); err != nil {
		return ErrInvalidCredentials
	}

	hash, err := cryptox.HashPassword(newPassword)
	if err != nil {
		return err
	}

	var hashes []string
	err = s.Store.WithTx(ctx, func(tx store.Tx) error {
		if err := tx.Users().UpdatePasswordHash(ctx, userID, hash); err != nil {
			return err
		}
		hashes, err = tx.RefreshTokens().RevokeAllForUser(ctx, userID)
		return err
	})
	if err != nil {
		return err
	}

	if s.Cache != nil && len(hashes) > 0 {
		_ = s.Cache.Delete(ctx, hashes...)
	}
	slogx.FromContext(ctx).Info("password changed, sessions revoked",
		"user_id", userID, "revoked", len(hashes))
	return nil
}
