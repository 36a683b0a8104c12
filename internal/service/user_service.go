package service

import (
	"context"
	"errors"

	"github.com/go-demo/matchmaker/internal/model"
	apperrors "github.com/go-demo/matchmaker/internal/pkg/errors"
	"github.com/go-demo/matchmaker/internal/repository"
	"go.uber.org/zap"
)

// UserStore is the persistent user directory
type UserStore interface {
	UserDirectory
	SetForceMatch(ctx context.Context, userID, targetID string) error
}

type UserService struct {
	userRepo UserStore
	logger   *zap.Logger
}

func NewUserService(userRepo UserStore, logger *zap.Logger) *UserService {
	return &UserService{
		userRepo: userRepo,
		logger:   logger,
	}
}

// GetByID retrieves a user by ID
func (s *UserService) GetByID(ctx context.Context, id string) (*model.User, error) {
	user, err := s.userRepo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return nil, apperrors.ErrUserNotFound
		}
		s.logger.Error("Failed to get user", zap.Error(err))
		return nil, apperrors.ErrInternal
	}
	return user, nil
}

// SetForceMatch makes the user's next successful search land in a room
// containing the target
func (s *UserService) SetForceMatch(ctx context.Context, userID, targetID string) error {
	if userID == targetID {
		return apperrors.ErrValidation.WithDetails("a user cannot be force matched with themselves")
	}
	if _, err := s.GetByID(ctx, targetID); err != nil {
		return err
	}

	if err := s.userRepo.SetForceMatch(ctx, userID, targetID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		s.logger.Error("Failed to set force match", zap.Error(err))
		return apperrors.ErrInternal
	}

	s.logger.Info("Force match set",
		zap.String("user_id", userID),
		zap.String("target_id", targetID),
	)
	return nil
}

// ClearForceMatch drops a pending forced match
func (s *UserService) ClearForceMatch(ctx context.Context, userID string) error {
	if err := s.userRepo.ClearForceMatch(ctx, userID); err != nil {
		if errors.Is(err, repository.ErrUserNotFound) {
			return apperrors.ErrUserNotFound
		}
		s.logger.Error("Failed to clear force match", zap.Error(err))
		return apperrors.ErrInternal
	}

	s.logger.Info("Force match cleared", zap.String("user_id", userID))
	return nil
}
