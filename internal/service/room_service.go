package service

import (
	"context"
	"errors"
	"slices"
	"strings"

	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/model"
	apperrors "github.com/go-demo/matchmaker/internal/pkg/errors"
	"github.com/go-demo/matchmaker/internal/repository"
	"go.uber.org/zap"
)

// RoomService serves the read-only room views and the logout path
type RoomService struct {
	rooms  *repository.RoomDirectory
	users  UserDirectory
	logger *zap.Logger
}

func NewRoomService(rooms *repository.RoomDirectory, users UserDirectory, logger *zap.Logger) *RoomService {
	return &RoomService{
		rooms:  rooms,
		users:  users,
		logger: logger,
	}
}

// ListRooms returns one page of rooms for the game and platform, oldest first
func (s *RoomService) ListRooms(ctx context.Context, game model.Game, platform model.Platform, page, limit int) ([]*response.RoomResponse, int, error) {
	page = max(page, 1)
	if limit <= 0 {
		limit = 20
	}

	rooms := s.rooms.GetRoomsByGameAndPlatform(game, platform)
	slices.SortFunc(rooms, func(a, b *model.Room) int {
		if c := a.CreatedAt.Compare(b.CreatedAt); c != 0 {
			return c
		}
		return strings.Compare(a.ID, b.ID)
	})

	total := len(rooms)
	start := min((page-1)*limit, total)
	end := min(start+limit, total)
	rooms = rooms[start:end]

	var ids []string
	for _, room := range rooms {
		ids = append(ids, room.PlayerIDs...)
	}
	usernames, err := s.users.GetUsernames(ctx, ids)
	if err != nil {
		s.logger.Error("Failed to get usernames", zap.Error(err))
		return nil, 0, apperrors.ErrInternal
	}

	out := make([]*response.RoomResponse, len(rooms))
	for i, room := range rooms {
		out[i] = response.NewRoomResponse(room, usernames)
	}
	return out, total, nil
}

// Stats returns room and player counts for every active game and platform
func (s *RoomService) Stats() []*response.RoomStatsResponse {
	stats := s.rooms.Stats()
	slices.SortFunc(stats, func(a, b repository.RoomStats) int {
		if a.Game != b.Game {
			return int(a.Game) - int(b.Game)
		}
		return int(a.Platform) - int(b.Platform)
	})
	return response.NewRoomStatsResponse(stats)
}

// Leave removes the player from their room for the game and platform
func (s *RoomService) Leave(userID string, game model.Game, platform model.Platform) error {
	if err := s.rooms.RemovePlayer(userID, platform, game); err != nil {
		if errors.Is(err, repository.ErrRoomNotFound) {
			return apperrors.ErrRoomNotFound
		}
		s.logger.Error("Failed to remove player", zap.Error(err))
		return apperrors.ErrInternal
	}

	s.logger.Info("Player left matchmaking",
		zap.String("user_id", userID),
		zap.Stringer("game", game),
		zap.Stringer("platform", platform),
	)
	return nil
}
