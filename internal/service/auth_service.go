package service

import (
	"context"
	"errors"

	"github.com/go-demo/matchmaker/internal/model"
	apperrors "github.com/go-demo/matchmaker/internal/pkg/errors"
	"github.com/go-demo/matchmaker/internal/pkg/utils"
	"github.com/go-demo/matchmaker/internal/repository"
	"go.uber.org/zap"
)

// AccountStore finds and registers players by name
type AccountStore interface {
	GetByUsername(ctx context.Context, username string) (*model.User, error)
	Create(ctx context.Context, user *model.User) error
}

// AuthService issues and refreshes match session tokens. Verifying who a
// player is happens before this service is asked for a session.
type AuthService struct {
	userRepo   AccountStore
	jwtManager *utils.JWTManager
	logger     *zap.Logger
}

func NewAuthService(userRepo AccountStore, jwtManager *utils.JWTManager, logger *zap.Logger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtManager: jwtManager,
		logger:     logger,
	}
}

// SessionResult represents an issued session
type SessionResult struct {
	User      *model.User
	TokenPair *utils.TokenPair
}

// IssueSession returns tokens for the player, registering them on first use
func (s *AuthService) IssueSession(ctx context.Context, username string, game model.Game, platform model.Platform) (*SessionResult, error) {
	if username == "" || !game.IsValid() || !platform.IsValid() {
		return nil, apperrors.ErrValidation
	}

	user, err := s.userRepo.GetByUsername(ctx, username)
	if errors.Is(err, repository.ErrUserNotFound) {
		user = &model.User{Username: username}
		err = s.userRepo.Create(ctx, user)
		if errors.Is(err, repository.ErrUserAlreadyExists) {
			user, err = s.userRepo.GetByUsername(ctx, username)
		}
	}
	if err != nil {
		s.logger.Error("Failed to resolve user for session", zap.String("username", username), zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	tokenPair, err := s.jwtManager.GenerateTokenPair(utils.Session{
		UserID:   user.ID,
		Username: user.Username,
		Game:     game,
		Platform: platform,
	})
	if err != nil {
		s.logger.Error("Failed to generate tokens", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	s.logger.Info("Session issued",
		zap.String("user_id", user.ID),
		zap.Stringer("game", game),
		zap.Stringer("platform", platform),
	)

	return &SessionResult{User: user, TokenPair: tokenPair}, nil
}

// RefreshToken trades a refresh token for a new token pair for the same session
func (s *AuthService) RefreshToken(ctx context.Context, refreshToken string) (*utils.TokenPair, error) {
	claims, err := s.jwtManager.ValidateRefreshToken(refreshToken)
	if err != nil {
		if errors.Is(err, utils.ErrExpiredToken) {
			return nil, apperrors.ErrTokenExpired
		}
		return nil, apperrors.ErrInvalidToken
	}

	tokenPair, err := s.jwtManager.GenerateTokenPair(claims.Session)
	if err != nil {
		s.logger.Error("Failed to generate tokens", zap.Error(err))
		return nil, apperrors.ErrInternal
	}

	return tokenPair, nil
}
