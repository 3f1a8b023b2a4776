package identity

import (
	"context"
	"errors"
	"strings"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/storefront/backend/internal/domain/identity"
	"github.com/storefront/backend/internal/domain/shared"
	"github.com/storefront/backend/internal/infrastructure/auth"
)

// AuthService handles account registration and token issuance
type AuthService struct {
	users      identity.Repository
	jwtService *auth.JWTService
	blacklist  auth.TokenBlacklist
	logger     *zap.Logger
}

// NewAuthService creates a new authentication service
func NewAuthService(users identity.Repository, jwtService *auth.JWTService, blacklist auth.TokenBlacklist, logger *zap.Logger) *AuthService {
	return &AuthService{
		users:      users,
		jwtService: jwtService,
		blacklist:  blacklist,
		logger:     logger,
	}
}

// Register creates a customer account and signs it in
func (s *AuthService) Register(ctx context.Context, req RegisterRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	if _, err := s.users.FindByEmail(ctx, email); err == nil {
		return nil, shared.NewDomainError("VALIDATION_ERROR", "An account with this email already exists")
	} else if !errors.Is(err, shared.ErrNotFound) {
		return nil, err
	}

	user, err := identity.NewUser(req.Email, req.Password, req.DisplayName)
	if err != nil {
		return nil, err
	}
	user.Phone = strings.TrimSpace(req.Phone)
	user.RecordLogin()

	if err := s.users.Save(ctx, user); err != nil {
		return nil, err
	}

	s.logger.Info("account registered", zap.String("user_id", user.ID.String()))
	return s.issueTokens(user)
}

// Login authenticates a user and returns a fresh token pair.
// Unknown email and wrong password produce the same answer.
func (s *AuthService) Login(ctx context.Context, req LoginRequest) (*AuthResponse, error) {
	email := strings.ToLower(strings.TrimSpace(req.Email))
	user, err := s.users.FindByEmail(ctx, email)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrAuthFailure
		}
		return nil, err
	}
	if !user.CheckPassword(req.Password) {
		s.logger.Warn("login rejected", zap.String("user_id", user.ID.String()))
		return nil, shared.ErrAuthFailure
	}

	user.RecordLogin()
	if err := s.users.Save(ctx, user); err != nil {
		s.logger.Warn("failed to record login time",
			zap.String("user_id", user.ID.String()),
			zap.Error(err))
	}

	return s.issueTokens(user)
}

// Refresh rotates a refresh token into a new token pair. The presented
// refresh token is revoked so it cannot be replayed.
func (s *AuthService) Refresh(ctx context.Context, req RefreshRequest) (*AuthResponse, error) {
	claims, err := s.jwtService.ValidateRefreshToken(req.RefreshToken)
	if err != nil {
		return nil, shared.ErrAuthFailure
	}

	if s.blacklist != nil {
		revoked, err := s.blacklist.IsBlacklisted(ctx, claims.ID)
		if err != nil {
			return nil, err
		}
		if revoked {
			return nil, shared.ErrAuthFailure
		}
	}

	userID, err := claims.GetUserUUID()
	if err != nil {
		return nil, shared.ErrAuthFailure
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, shared.ErrNotFound) {
			return nil, shared.ErrAuthFailure
		}
		return nil, err
	}

	if s.blacklist != nil {
		if err := s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL()); err != nil {
			s.logger.Warn("failed to revoke rotated refresh token",
				zap.String("user_id", user.ID.String()),
				zap.Error(err))
		}
	}

	return s.issueTokens(user)
}

// Logout revokes the presented access token for its remaining lifetime
func (s *AuthService) Logout(ctx context.Context, accessToken string) error {
	claims, err := s.jwtService.ValidateAccessToken(accessToken)
	if err != nil {
		// An unusable token needs no revocation.
		return nil
	}
	if s.blacklist == nil {
		return nil
	}
	return s.blacklist.AddToBlacklist(ctx, claims.ID, claims.GetRemainingTTL())
}

// GetProfile returns the account behind an authenticated request
func (s *AuthService) GetProfile(ctx context.Context, userID uuid.UUID) (*UserResponse, error) {
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		return nil, err
	}
	resp := ToUserResponse(user)
	return &resp, nil
}

func (s *AuthService) issueTokens(user *identity.User) (*AuthResponse, error) {
	pair, err := s.jwtService.GenerateTokenPair(auth.GenerateTokenInput{
		UserID:  user.ID,
		Email:   user.Email,
		IsAdmin: user.IsAdmin,
	})
	if err != nil {
		return nil, err
	}

	return &AuthResponse{
		User:                 ToUserResponse(user),
		AccessToken:          pair.AccessToken,
		RefreshToken:         pair.RefreshToken,
		AccessTokenExpiresAt: pair.AccessTokenExpiresAt,
		TokenType:            pair.TokenType,
	}, nil
}
