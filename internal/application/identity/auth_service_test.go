package identity_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"

	appidentity "github.com/storefront/backend/internal/application/identity"
	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
	"github.com/storefront/backend/internal/infrastructure/config"
	"github.com/storefront/backend/internal/infrastructure/persistence"
)

func setupAuthService(t *testing.T) *appidentity.AuthService {
	t.Helper()

	db, err := gorm.Open(sqlite.Open(":memory:"), &gorm.Config{
		Logger: gormlogger.Default.LogMode(gormlogger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&identity.User{}))

	jwtService := auth.NewJWTService(config.JWTConfig{
		Secret:                 "test-secret-key-0123456789abcdef",
		Issuer:                 "storefront-test",
		AccessTokenExpiration:  15 * time.Minute,
		RefreshTokenExpiration: 24 * time.Hour,
	})

	return appidentity.NewAuthService(
		persistence.NewGormUserRepository(db),
		jwtService,
		auth.NewInMemoryTokenBlacklist(),
		zap.NewNop(),
	)
}

func registerAccount(t *testing.T, svc *appidentity.AuthService, email string) *appidentity.AuthResponse {
	t.Helper()
	resp, err := svc.Register(context.Background(), appidentity.RegisterRequest{
		Email:       email,
		Password:    "s3cret-pass",
		DisplayName: "Asha Rao",
	})
	require.NoError(t, err)
	return resp
}

func TestAuthService_Register(t *testing.T) {
	ctx := context.Background()

	t.Run("creates the account and signs it in", func(t *testing.T) {
		svc := setupAuthService(t)
		resp := registerAccount(t, svc, "Asha@Example.com")

		assert.Equal(t, "asha@example.com", resp.User.Email)
		assert.False(t, resp.User.IsAdmin)
		assert.NotEmpty(t, resp.AccessToken)
		assert.NotEmpty(t, resp.RefreshToken)
		assert.Equal(t, "Bearer", resp.TokenType)
	})

	t.Run("duplicate email is rejected", func(t *testing.T) {
		svc := setupAuthService(t)
		registerAccount(t, svc, "asha@example.com")

		_, err := svc.Register(ctx, appidentity.RegisterRequest{
			Email:    "ASHA@example.com",
			Password: "another-pass",
		})
		var domainErr *shared.DomainError
		require.ErrorAs(t, err, &domainErr)
		assert.Equal(t, "VALIDATION_ERROR", domainErr.Code)
	})

	t.Run("short password is rejected", func(t *testing.T) {
		svc := setupAuthService(t)
		_, err := svc.Register(ctx, appidentity.RegisterRequest{
			Email:    "short@example.com",
			Password: "tiny",
		})
		require.Error(t, err)
	})
}

func TestAuthService_Login(t *testing.T) {
	ctx := context.Background()

	t.Run("valid credentials return a token pair", func(t *testing.T) {
		svc := setupAuthService(t)
		registerAccount(t, svc, "asha@example.com")

		resp, err := svc.Login(ctx, appidentity.LoginRequest{
			Email:    "asha@example.com",
			Password: "s3cret-pass",
		})
		require.NoError(t, err)
		assert.NotEmpty(t, resp.AccessToken)
		require.NotNil(t, resp.User.LastLoginAt)
	})

	t.Run("wrong password and unknown email fail identically", func(t *testing.T) {
		svc := setupAuthService(t)
		registerAccount(t, svc, "asha@example.com")

		_, errWrongPass := svc.Login(ctx, appidentity.LoginRequest{
			Email:    "asha@example.com",
			Password: "not-the-password",
		})
		_, errNoUser := svc.Login(ctx, appidentity.LoginRequest{
			Email:    "ghost@example.com",
			Password: "s3cret-pass",
		})

		assert.ErrorIs(t, errWrongPass, shared.ErrAuthFailure)
		assert.ErrorIs(t, errNoUser, shared.ErrAuthFailure)
	})
}

func TestAuthService_Refresh(t *testing.T) {
	ctx := context.Background()

	t.Run("rotates the refresh token", func(t *testing.T) {
		svc := setupAuthService(t)
		first := registerAccount(t, svc, "asha@example.com")

		second, err := svc.Refresh(ctx, appidentity.RefreshRequest{RefreshToken: first.RefreshToken})
		require.NoError(t, err)
		assert.NotEmpty(t, second.AccessToken)

		// The old refresh token was revoked on rotation.
		_, err = svc.Refresh(ctx, appidentity.RefreshRequest{RefreshToken: first.RefreshToken})
		assert.ErrorIs(t, err, shared.ErrAuthFailure)
	})

	t.Run("garbage token is rejected", func(t *testing.T) {
		svc := setupAuthService(t)
		_, err := svc.Refresh(ctx, appidentity.RefreshRequest{RefreshToken: "not.a.jwt"})
		assert.ErrorIs(t, err, shared.ErrAuthFailure)
	})

	t.Run("access token cannot be used as refresh token", func(t *testing.T) {
		svc := setupAuthService(t)
		resp := registerAccount(t, svc, "asha@example.com")

		_, err := svc.Refresh(ctx, appidentity.RefreshRequest{RefreshToken: resp.AccessToken})
		assert.ErrorIs(t, err, shared.ErrAuthFailure)
	})
}

func TestAuthService_Logout(t *testing.T) {
	ctx := context.Background()
	svc := setupAuthService(t)
	resp := registerAccount(t, svc, "asha@example.com")

	require.NoError(t, svc.Logout(ctx, resp.AccessToken))

	// Logging out an already-invalid token is a no-op.
	require.NoError(t, svc.Logout(ctx, "not.a.jwt"))
}

func TestAuthService_GetProfile(t *testing.T) {
	ctx := context.Background()
	svc := setupAuthService(t)
	resp := registerAccount(t, svc, "asha@example.com")

	profile, err := svc.GetProfile(ctx, resp.User.ID)
	require.NoError(t, err)
	assert.Equal(t, "asha@example.com", profile.Email)
	assert.Equal(t, "Asha Rao", profile.DisplayName)
}
