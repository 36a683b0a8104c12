package service

import (
	"context"
	"encoding/json"
	"errors"
	"slices"

	"github.com/go-demo/matchmaker/internal/dto/request"
	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/model"
	apperrors "github.com/go-demo/matchmaker/internal/pkg/errors"
	"github.com/go-demo/matchmaker/internal/repository"
	"go.uber.org/zap"
)

// createRoomMethod handles "CreateRoom". A non-host caller breaks away into a
// room of their own.
type createRoomMethod struct {
	rooms  *repository.RoomDirectory
	users  UserDirectory
	logger *zap.Logger
}

func (m *createRoomMethod) Names() []string {
	return []string{"CreateRoom"}
}

func (m *createRoomMethod) Execute(ctx context.Context, mc *MethodContext, body json.RawMessage) (response.MatchResponse, error) {
	room, _ := m.rooms.GetOrCreateRoomByPlayer(mc.User.ID, mc.Platform, mc.Game)
	if !room.IsHost(mc.User.ID) {
		previous := room.ID
		room = m.rooms.SplitUserIntoNewRoom(mc.User.ID, mc.Platform, mc.Game)
		m.logger.Debug("Player left room to host their own",
			zap.String("user_id", mc.User.ID),
			zap.String("previous_room_id", previous),
			zap.String("room_id", room.ID),
		)
	}

	var req request.RoomDataRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	if !req.HasValidSlots() {
		return nil, apperrors.ErrMalformedSlots
	}

	err := storeRoomData(ctx, m.rooms, m.users, m.logger, room, &req, func(r *model.Room) {
		r.NatType = req.FirstNatType()
		r.PassedNoJoinPoint = req.PassedNoJoinPoint != nil && bool(*req.PassedNoJoinPoint)
	})
	if err != nil {
		return nil, err
	}
	return response.NewOKResponse(nil), nil
}

// updateRoomMethod handles "UpdateMyPlayerData". Only the host may change a
// room, and only the fields present in the request change.
type updateRoomMethod struct {
	rooms  *repository.RoomDirectory
	users  UserDirectory
	logger *zap.Logger
}

func (m *updateRoomMethod) Names() []string {
	return []string{"UpdateMyPlayerData"}
}

func (m *updateRoomMethod) Execute(ctx context.Context, mc *MethodContext, body json.RawMessage) (response.MatchResponse, error) {
	room, _ := m.rooms.GetOrCreateRoomByPlayer(mc.User.ID, mc.Platform, mc.Game)
	if !room.IsHost(mc.User.ID) {
		m.logger.Debug("Rejected room update from non-host",
			zap.String("user_id", mc.User.ID),
			zap.String("room_id", room.ID),
			zap.String("host_id", room.HostID),
		)
		return nil, apperrors.ErrNotRoomHost
	}

	var req request.RoomDataRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}
	if !req.HasValidSlots() {
		return nil, apperrors.ErrMalformedSlots
	}

	err := storeRoomData(ctx, m.rooms, m.users, m.logger, room, &req, func(r *model.Room) {
		if len(req.NatType) > 0 {
			r.NatType = req.NatType[0]
		}
		if req.PassedNoJoinPoint != nil {
			r.PassedNoJoinPoint = bool(*req.PassedNoJoinPoint)
		}
	})
	if err != nil {
		return nil, err
	}
	return response.NewOKResponse(nil), nil
}

// storeRoomData writes the request onto the room as currently stored. When
// the request lists Players, the named users become the room's guests.
func storeRoomData(
	ctx context.Context,
	rooms *repository.RoomDirectory,
	users UserDirectory,
	logger *zap.Logger,
	room *model.Room,
	req *request.RoomDataRequest,
	extra func(r *model.Room),
) error {
	_, err := rooms.UpdateRoomData(room.ID, room.HostID, func(r *model.Room) {
		applyRoomData(r, req)
		extra(r)
	})
	if err != nil {
		return roomWriteError(err)
	}
	if req.Players == nil {
		return nil
	}

	guests, err := resolveGuests(ctx, users, logger, room.HostID, req.Players)
	if err != nil {
		return err
	}
	if _, err := rooms.SetRoomPlayers(room.ID, room.HostID, guests); err != nil {
		return roomWriteError(err)
	}
	return nil
}

// resolveGuests maps the reported usernames to user ids in the order given.
// Unknown names and the host are skipped and the list is cut to what fits
// next to the host.
func resolveGuests(ctx context.Context, users UserDirectory, logger *zap.Logger, hostID string, names []string) ([]string, error) {
	if len(names) == 0 {
		return nil, nil
	}

	ids, err := users.GetIDsByUsernames(ctx, names)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to resolve room players")
	}

	guests := make([]string, 0, len(names))
	for _, name := range names {
		id, ok := ids[name]
		if !ok {
			logger.Debug("Ignoring unknown room player", zap.String("username", name))
			continue
		}
		if id == hostID || slices.Contains(guests, id) {
			continue
		}
		guests = append(guests, id)
	}
	if len(guests) > model.MaxRoomPlayers-1 {
		guests = guests[:model.MaxRoomPlayers-1]
	}
	return guests, nil
}

func roomWriteError(err error) error {
	switch {
	case errors.Is(err, repository.ErrNotHost):
		return apperrors.ErrNotRoomHost
	case errors.Is(err, repository.ErrRoomNotFound):
		return apperrors.ErrNoRoom
	default:
		return apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to store room")
	}
}

// applyRoomData copies the optional fields both room methods share
func applyRoomData(room *model.Room, req *request.RoomDataRequest) {
	if req.RoomState != nil {
		room.RoomState = *req.RoomState
	}
	if slotType, levelID, ok := req.Slot(); ok {
		room.LevelType = slotType
		room.LevelID = levelID
	}
	if mood := req.RoomMood(); mood != nil {
		room.RoomMood = *mood
	}
	if req.Location != nil {
		room.Locations = req.Location
	}
	if req.BuildVersion != nil {
		room.BuildVersion = *req.BuildVersion
	}
	if req.Language != nil {
		room.Language = *req.Language
	}
}
