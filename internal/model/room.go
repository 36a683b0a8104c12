package model

import (
	"slices"
	"time"
)

// MaxRoomPlayers is the most players a single room can hold, host included
const MaxRoomPlayers = 4

type NatType int

const (
	NatTypeOpen     NatType = 1
	NatTypeModerate NatType = 2
	NatTypeStrict   NatType = 3
)

// RoomMood is ordered: a higher mood is more open to new joiners
type RoomMood int

const (
	RoomMoodRejectingAll           RoomMood = 0
	RoomMoodRejectingAllButFriends RoomMood = 1
	RoomMoodRejectingOnlyFriends   RoomMood = 2
	RoomMoodAllowingAll            RoomMood = 3
)

// RoomState is reported by the game and not interpreted by the server
type RoomState int

const (
	RoomStateIdle RoomState = 0
)

// SlotType identifies what kind of level a slot id refers to
type SlotType int

const (
	SlotTypeStory  SlotType = 1
	SlotTypeOnline SlotType = 2
)

type Room struct {
	ID                string    `json:"id"`
	HostID            string    `json:"host_id"`
	PlayerIDs         []string  `json:"player_ids"`
	Game              Game      `json:"game"`
	Platform          Platform  `json:"platform"`
	NatType           NatType   `json:"nat_type"`
	RoomState         RoomState `json:"room_state"`
	RoomMood          RoomMood  `json:"room_mood"`
	LevelType         SlotType  `json:"level_type"`
	LevelID           int       `json:"level_id"`
	PassedNoJoinPoint bool      `json:"passed_no_join_point"`
	Locations         []string  `json:"locations,omitempty"`
	BuildVersion      int       `json:"build_version,omitempty"`
	Language          int       `json:"language,omitempty"`
	CreatedAt         time.Time `json:"created_at"`
	LastContact       time.Time `json:"last_contact"`
}

// NewRoom creates a room with the given player as sole member and host
func NewRoom(id, hostID string, game Game, platform Platform, now time.Time) *Room {
	return &Room{
		ID:          id,
		HostID:      hostID,
		PlayerIDs:   []string{hostID},
		Game:        game,
		Platform:    platform,
		NatType:     NatTypeOpen,
		RoomState:   RoomStateIdle,
		RoomMood:    RoomMoodAllowingAll,
		CreatedAt:   now,
		LastContact: now,
	}
}

// Clone returns a deep copy so callers never share slices with the directory
func (r *Room) Clone() *Room {
	c := *r
	c.PlayerIDs = slices.Clone(r.PlayerIDs)
	c.Locations = slices.Clone(r.Locations)
	return &c
}

// IsHost checks if the player hosts this room
func (r *Room) IsHost(playerID string) bool {
	return r.HostID == playerID
}

// HasPlayer checks if the player is a member of this room
func (r *Room) HasPlayer(playerID string) bool {
	return slices.Contains(r.PlayerIDs, playerID)
}

// PlayerCount returns the number of members including the host
func (r *Room) PlayerCount() int {
	return len(r.PlayerIDs)
}

// RemovePlayer drops a member, promoting the next member if the host left
func (r *Room) RemovePlayer(playerID string) bool {
	idx := slices.Index(r.PlayerIDs, playerID)
	if idx < 0 {
		return false
	}
	r.PlayerIDs = slices.Delete(r.PlayerIDs, idx, idx+1)
	if r.HostID == playerID {
		r.HostID = ""
		if len(r.PlayerIDs) > 0 {
			r.HostID = r.PlayerIDs[0]
		}
	}
	return true
}

// IsEmpty reports whether the room has no members left
func (r *Room) IsEmpty() bool {
	return len(r.PlayerIDs) == 0
}
