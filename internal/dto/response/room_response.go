package response

import (
	"time"

	"github.com/go-demo/matchmaker/internal/model"
	"github.com/go-demo/matchmaker/internal/repository"
)

// RoomResponse is the public view of a live room
type RoomResponse struct {
	ID                string   `json:"id"`
	Host              string   `json:"host"`
	Players           []string `json:"players"`
	Game              string   `json:"game"`
	Platform          string   `json:"platform"`
	NatType           int      `json:"nat_type"`
	RoomMood          int      `json:"room_mood"`
	RoomState         int      `json:"room_state"`
	LevelType         int      `json:"level_type"`
	LevelID           int      `json:"level_id"`
	PassedNoJoinPoint bool     `json:"passed_no_join_point"`
	CreatedAt         string   `json:"created_at"`
	LastContact       string   `json:"last_contact"`
}

// NewRoomResponse creates a room response, showing usernames where known
func NewRoomResponse(room *model.Room, usernames map[string]string) *RoomResponse {
	name := func(id string) string {
		if n, ok := usernames[id]; ok {
			return n
		}
		return id
	}

	players := make([]string, len(room.PlayerIDs))
	for i, id := range room.PlayerIDs {
		players[i] = name(id)
	}

	return &RoomResponse{
		ID:                room.ID,
		Host:              name(room.HostID),
		Players:           players,
		Game:              room.Game.String(),
		Platform:          room.Platform.String(),
		NatType:           int(room.NatType),
		RoomMood:          int(room.RoomMood),
		RoomState:         int(room.RoomState),
		LevelType:         int(room.LevelType),
		LevelID:           room.LevelID,
		PassedNoJoinPoint: room.PassedNoJoinPoint,
		CreatedAt:         room.CreatedAt.Format(time.RFC3339),
		LastContact:       room.LastContact.Format(time.RFC3339),
	}
}

// RoomStatsResponse counts rooms and players for one game and platform
type RoomStatsResponse struct {
	Game     string `json:"game"`
	Platform string `json:"platform"`
	Rooms    int    `json:"rooms"`
	Players  int    `json:"players"`
}

// NewRoomStatsResponse converts directory stats
func NewRoomStatsResponse(stats []repository.RoomStats) []*RoomStatsResponse {
	out := make([]*RoomStatsResponse, len(stats))
	for i, s := range stats {
		out[i] = &RoomStatsResponse{
			Game:     s.Game.String(),
			Platform: s.Platform.String(),
			Rooms:    s.Rooms,
			Players:  s.Players,
		}
	}
	return out
}
