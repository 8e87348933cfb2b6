package service_test

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/quickbite/platform/internal/auth/cache"
	"github.com/quickbite/platform/internal/auth/domain"
	"github.com/quickbite/platform/internal/auth/service"
	"github.com/quickbite/platform/internal/auth/store"
	"github.com/quickbite/platform/internal/auth/store/drivers/sqlite"
	"github.com/quickbite/platform/pkg/cryptox"
	"github.com/quickbite/platform/pkg/jwtx"
	"github.com/stretchr/testify/require"
)

func TestMain(m *testing.M) {
	pepperPath := filepath.Join(os.TempDir(), "quickbite-service-test-pepper")
	cryptox.SetPepperPath(pepperPath)
	os.Remove(pepperPath)
	defer os.Remove(pepperPath)

	os.Exit(m.Run())
}

type testEnv struct {
	store     store.Store
	tokens    *service.TokenService
	blacklist *service.BlacklistService
	validator *service.Validator
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	st, err := sqlite.NewStore(":memory:")
	require.NoError(t, err)
	require.NoError(t, st.ApplyMigrations())
	t.Cleanup(func() { _ = st.Close() })

	codec, err := jwtx.NewCodec([]byte("0123456789abcdef0123456789abcdef"), "auth-test")
	require.NoError(t, err)

	blacklist := service.NewBlacklistService(cache.NewMemory())
	tokens := &service.TokenService{
		Codec:      codec,
		Store:      st,
		Cache:      cache.NewMemory(),
		Blacklist:  blacklist,
		Issuer:     "auth-test",
		AccessTTL:  time.Minute,
		RefreshTTL: time.Hour,
	}
	return &testEnv{
		store:     st,
		tokens:    tokens,
		blacklist: blacklist,
		validator: &service.Validator{Codec: codec, Blacklist: blacklist},
	}
}

func register(t *testing.T, env *testEnv, email string) *domain.TokenPair {
	t.Helper()
	pair, err := env.tokens.Register(context.Background(), service.RegisterRequest{
		Email:    email,
		Password: "hunter22",
		FullName: "Test User",
	})
	require.NoError(t, err)
	return pair
}

func TestRegisterIssuesUserOnlyPair(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	pair := register(t, env, "alice@example.com")
	require.NotEmpty(t, pair.AccessToken)
	require.NotEmpty(t, pair.RefreshToken)
	require.Equal(t, "Bearer", pair.TokenType)

	claims, err := env.validator.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Equal(t, "alice@example.com", claims.Email)
	require.Equal(t, []string{domain.RoleUser}, claims.RoleList())

	// The stored account holds exactly USER too.
	u, err := env.store.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.Equal(t, []string{domain.RoleUser}, u.Roles)
}

func TestRegisterDuplicateEmail(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice@example.com")

	_, err := env.tokens.Register(context.Background(), service.RegisterRequest{
		Email:    "Alice@Example.com", // same address, different case
		Password: "hunter22",
	})
	require.ErrorIs(t, err, service.ErrEmailTaken)
}

func TestRegisterShortPassword(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.tokens.Register(context.Background(), service.RegisterRequest{
		Email:    "bob@example.com",
		Password: "tiny",
	})
	require.ErrorIs(t, err, service.ErrWeakPassword)
}

func TestLoginFailuresAreUniform(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice@example.com")
	ctx := context.Background()

	_, err := env.tokens.Login(ctx, "alice@example.com", "wrong-password")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = env.tokens.Login(ctx, "nobody@example.com", "hunter22")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)
}

func TestLoginIssuesFromCurrentRoles(t *testing.T) {
	env := newTestEnv(t)
	register(t, env, "alice@example.com")
	ctx := context.Background()

	u, err := env.store.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, env.store.Users().AddRole(ctx, u.ID, domain.RoleManager))

	pair, err := env.tokens.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	claims, err := env.validator.Verify(ctx, pair.AccessToken)
	require.NoError(t, err)
	require.Contains(t, claims.RoleList(), domain.RoleManager)
}

func TestRefreshRotatesAndRetiresOld(t *testing.T) {
	env := newTestEnv(t)
	pair := register(t, env, "alice@example.com")
	ctx := context.Background()

	next, err := env.tokens.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)
	require.NotEqual(t, pair.RefreshToken, next.RefreshToken)

	// The retired token is rejected as revoked.
	_, err = env.tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	// The successor still works.
	_, err = env.tokens.Refresh(ctx, next.RefreshToken)
	require.NoError(t, err)
}

func TestRefreshRecordsSuccessor(t *testing.T) {
	env := newTestEnv(t)
	pair := register(t, env, "alice@example.com")
	ctx := context.Background()

	next, err := env.tokens.Refresh(ctx, pair.RefreshToken)
	require.NoError(t, err)

	oldRow, err := env.store.RefreshTokens().GetByHash(ctx, cryptox.FingerprintToken(pair.RefreshToken))
	require.NoError(t, err)
	require.True(t, oldRow.Revoked)

	newRow, err := env.store.RefreshTokens().GetByHash(ctx, cryptox.FingerprintToken(next.RefreshToken))
	require.NoError(t, err)
	require.Equal(t, newRow.ID, oldRow.ReplacedBy)
}

func TestRefreshExpired(t *testing.T) {
	env := newTestEnv(t)
	env.tokens.RefreshTTL = -time.Second
	pair := register(t, env, "alice@example.com")

	_, err := env.tokens.Refresh(context.Background(), pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrTokenExpired)
}

func TestRefreshUnknown(t *testing.T) {
	env := newTestEnv(t)
	_, err := env.tokens.Refresh(context.Background(), "never-issued-token")
	require.ErrorIs(t, err, service.ErrTokenUnknown)
}

func TestRefreshExactlyOnceUnderConcurrency(t *testing.T) {
	env := newTestEnv(t)
	pair := register(t, env, "alice@example.com")
	ctx := context.Background()

	const workers = 8
	var wg sync.WaitGroup
	errs := make([]error, workers)

	for i := range workers {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, errs[i] = env.tokens.Refresh(ctx, pair.RefreshToken)
		}()
	}
	wg.Wait()

	wins := 0
	for _, err := range errs {
		if err == nil {
			wins++
			continue
		}
		require.ErrorIs(t, err, service.ErrTokenRevoked)
	}
	require.Equal(t, 1, wins, "exactly one rotation must win")
}

func TestLogoutKillsThePair(t *testing.T) {
	env := newTestEnv(t)
	pair := register(t, env, "alice@example.com")
	ctx := context.Background()

	require.NoError(t, env.tokens.Logout(ctx, pair.RefreshToken, pair.AccessToken))

	_, err := env.tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	_, err = env.validator.Verify(ctx, pair.AccessToken)
	require.ErrorIs(t, err, service.ErrTokenBlacklisted)
}

func TestLogoutAllRevokesEverySession(t *testing.T) {
	env := newTestEnv(t)
	first := register(t, env, "alice@example.com")
	ctx := context.Background()

	second, err := env.tokens.Login(ctx, "alice@example.com", "hunter22")
	require.NoError(t, err)

	u, err := env.store.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)
	require.NoError(t, env.tokens.LogoutAll(ctx, u.ID))

	_, err = env.tokens.Refresh(ctx, first.RefreshToken)
	require.ErrorIs(t, err, service.ErrTokenRevoked)
	_, err = env.tokens.Refresh(ctx, second.RefreshToken)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	// Access tokens are not retroactively blacklisted; they die at expiry.
	_, err = env.validator.Verify(ctx, first.AccessToken)
	require.NoError(t, err)
}

func TestRevokeAllBeatsRacingRotate(t *testing.T) {
	env := newTestEnv(t)
	pair := register(t, env, "alice@example.com")
	ctx := context.Background()

	u, err := env.store.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	var wg sync.WaitGroup
	var rotateErr, logoutErr error
	var rotated *domain.TokenPair

	wg.Add(2)
	go func() {
		defer wg.Done()
		rotated, rotateErr = env.tokens.Refresh(ctx, pair.RefreshToken)
	}()
	go func() {
		defer wg.Done()
		logoutErr = env.tokens.LogoutAll(ctx, u.ID)
	}()
	wg.Wait()
	require.NoError(t, logoutErr)

	// Whichever interleaving happened, the presented token is dead now.
	_, err = env.tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	if rotateErr != nil {
		// Revoke-all won the row; the rotate observed the revocation.
		require.ErrorIs(t, rotateErr, service.ErrTokenRevoked)
	} else {
		require.NotNil(t, rotated)
	}
}

func TestBlacklistUnparseableTokenGetsFallbackTTL(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	require.NoError(t, env.blacklist.Blacklist(ctx, "not-a-jwt"))

	denied, err := env.blacklist.IsBlacklisted(ctx, "not-a-jwt")
	require.NoError(t, err)
	require.True(t, denied)
}

func TestBlacklistExpiredTokenIsNoop(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	// Issue a token that is already past expiry.
	codec := env.tokens.Codec
	claims := jwtx.NewAccessClaims("user-1", "a@b.c", "A", []string{"USER"},
		time.Minute, "auth-test", time.Now().UTC().Add(-time.Hour))
	token, err := codec.Issue(claims)
	require.NoError(t, err)

	require.NoError(t, env.blacklist.Blacklist(ctx, token))

	denied, err := env.blacklist.IsBlacklisted(ctx, token)
	require.NoError(t, err)
	require.False(t, denied, "expired tokens need no denylist entry")
}

func TestOwnerRepopulatesCacheOnMiss(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()
	pair := register(t, env, "owner@example.com")
	fp := cryptox.FingerprintToken(pair.RefreshToken)

	user, err := env.store.Users().GetUserByEmail(ctx, "owner@example.com")
	require.NoError(t, err)

	t.Run("cache hit", func(t *testing.T) {
		got, err := env.tokens.Owner(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, got)
	})

	t.Run("store fallback repopulates", func(t *testing.T) {
		require.NoError(t, env.tokens.Cache.Delete(ctx, fp))

		got, err := env.tokens.Owner(ctx, pair.RefreshToken)
		require.NoError(t, err)
		require.Equal(t, user.ID, got)

		// The miss wrote the row back.
		cached, ok, err := env.tokens.Cache.Get(ctx, fp)
		require.NoError(t, err)
		require.True(t, ok)
		require.Equal(t, user.ID, cached)
	})

	t.Run("revoked token does not resolve", func(t *testing.T) {
		require.NoError(t, env.tokens.Logout(ctx, pair.RefreshToken, ""))

		_, err := env.tokens.Owner(ctx, pair.RefreshToken)
		require.ErrorIs(t, err, service.ErrTokenRevoked)
	})

	t.Run("unknown token does not resolve", func(t *testing.T) {
		_, err := env.tokens.Owner(ctx, "never-issued")
		require.ErrorIs(t, err, service.ErrTokenUnknown)
	})
}

func TestHousekeepingDeletesExpiredRows(t *testing.T) {
	env := newTestEnv(t)
	env.tokens.RefreshTTL = -time.Second
	pair := register(t, env, "alice@example.com")
	ctx := context.Background()

	fp := cryptox.FingerprintToken(pair.RefreshToken)
	_, err := env.store.RefreshTokens().GetByHash(ctx, fp)
	require.NoError(t, err)

	deleted, err := env.store.RefreshTokens().DeleteExpired(ctx, time.Now().UTC())
	require.NoError(t, err)
	require.EqualValues(t, 1, deleted)

	_, err = env.store.RefreshTokens().GetByHash(ctx, fp)
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestChangePasswordRevokesSessions(t *testing.T) {
	env := newTestEnv(t)
	pair := register(t, env, "alice@example.com")
	ctx := context.Background()

	u, err := env.store.Users().GetUserByEmail(ctx, "alice@example.com")
	require.NoError(t, err)

	users := &service.UserService{Store: env.store, Cache: env.tokens.Cache}

	err = users.ChangePassword(ctx, u.ID, "wrong-current", "new-password")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	require.NoError(t, users.ChangePassword(ctx, u.ID, "hunter22", "new-password"))

	// Old sessions are gone; the new password works.
	_, err = env.tokens.Refresh(ctx, pair.RefreshToken)
	require.ErrorIs(t, err, service.ErrTokenRevoked)

	_, err = env.tokens.Login(ctx, "alice@example.com", "hunter22")
	require.ErrorIs(t, err, service.ErrInvalidCredentials)

	_, err = env.tokens.Login(ctx, "alice@example.com", "new-password")
	require.NoError(t, err)
}

func TestValidatorMapsCodecErrors(t *testing.T) {
	env := newTestEnv(t)
	ctx := context.Background()

	_, err := env.validator.Verify(ctx, "garbage")
	require.True(t, errors.Is(err, jwtx.ErrMalformed))
}
