package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"
	"sync"
	"time"

	"github.com/go-demo/matchmaker/internal/model"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

var (
	ErrRoomNotFound = errors.New("room not found")
	ErrInvalidRoom  = errors.New("invalid room")
	ErrNotHost      = errors.New("player does not host the room")
)

type RoomEventType string

const (
	RoomEventCreated RoomEventType = "room_created"
	RoomEventUpdated RoomEventType = "room_updated"
	RoomEventRemoved RoomEventType = "room_removed"
)

// RoomEvent carries a copy of the room as it was after the change
type RoomEvent struct {
	Type RoomEventType
	Room *model.Room
}

// RoomObserver is notified of every directory mutation in the order the
// mutations happened. It is called with the directory lock held, so it must
// not block or call back into the directory.
type RoomObserver interface {
	OnRoomEvent(event RoomEvent)
}

type playerKey struct {
	playerID string
	game     model.Game
	platform model.Platform
}

type gamePlatformKey struct {
	game     model.Game
	platform model.Platform
}

// RoomDirectory owns every live room. All reads return copies. Writes happen
// under one lock so the player and game/platform indices always match the
// primary table.
type RoomDirectory struct {
	rooms          map[string]*model.Room
	byPlayer       map[playerKey]string
	byGamePlatform map[gamePlatformKey]map[string]struct{}
	mu             sync.RWMutex

	observers []RoomObserver
	now       func() time.Time
	newID     func() string
	logger    *zap.Logger
}

func NewRoomDirectory(logger *zap.Logger, observers ...RoomObserver) *RoomDirectory {
	return &RoomDirectory{
		rooms:          make(map[string]*model.Room),
		byPlayer:       make(map[playerKey]string),
		byGamePlatform: make(map[gamePlatformKey]map[string]struct{}),
		observers:      observers,
		now:            time.Now,
		newID:          func() string { return uuid.New().String() },
		logger:         logger,
	}
}

// GetOrCreateRoomByPlayer returns the player's room for the game and platform,
// creating one with the player as host if none exists. Concurrent calls for
// the same player create at most one room.
func (d *RoomDirectory) GetOrCreateRoomByPlayer(playerID string, platform model.Platform, game model.Game) (*model.Room, bool) {
	key := playerKey{playerID: playerID, game: game, platform: platform}

	d.mu.RLock()
	if roomID, ok := d.byPlayer[key]; ok {
		room := d.rooms[roomID].Clone()
		d.mu.RUnlock()
		return room, false
	}
	d.mu.RUnlock()

	d.mu.Lock()
	// Another request may have created it between the locks
	if roomID, ok := d.byPlayer[key]; ok {
		room := d.rooms[roomID].Clone()
		d.mu.Unlock()
		return room, false
	}
	room := d.insertLocked(playerID, platform, game).Clone()
	d.notifyLocked(RoomEvent{Type: RoomEventCreated, Room: room.Clone()})
	d.mu.Unlock()

	d.logger.Debug("Room created",
		zap.String("room_id", room.ID),
		zap.String("host_id", playerID),
		zap.Stringer("game", game),
		zap.Stringer("platform", platform),
	)

	return room, true
}

// SplitUserIntoNewRoom removes the player from their current room and makes
// them the sole host of a brand-new one.
func (d *RoomDirectory) SplitUserIntoNewRoom(playerID string, platform model.Platform, game model.Game) *model.Room {
	key := playerKey{playerID: playerID, game: game, platform: platform}

	d.mu.Lock()
	var events []RoomEvent
	if roomID, ok := d.byPlayer[key]; ok {
		events = append(events, d.removePlayerLocked(d.rooms[roomID], playerID))
	}
	room := d.insertLocked(playerID, platform, game)
	events = append(events, RoomEvent{Type: RoomEventCreated, Room: room.Clone()})
	d.notifyLocked(events...)
	split := room.Clone()
	d.mu.Unlock()

	d.logger.Debug("Player split into new room",
		zap.String("room_id", split.ID),
		zap.String("player_id", playerID),
	)

	return split
}

// GetRoomByUser returns the room the player is in for the game and platform
func (d *RoomDirectory) GetRoomByUser(playerID string, platform model.Platform, game model.Game) (*model.Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	roomID, ok := d.byPlayer[playerKey{playerID: playerID, game: game, platform: platform}]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return d.rooms[roomID].Clone(), nil
}

// GetRoomByID returns a room by its id
func (d *RoomDirectory) GetRoomByID(roomID string) (*model.Room, error) {
	d.mu.RLock()
	defer d.mu.RUnlock()

	room, ok := d.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	return room.Clone(), nil
}

// GetRoomsByGameAndPlatform returns a snapshot of every room for the pair
func (d *RoomDirectory) GetRoomsByGameAndPlatform(game model.Game, platform model.Platform) []*model.Room {
	d.mu.RLock()
	defer d.mu.RUnlock()

	ids := d.byGamePlatform[gamePlatformKey{game: game, platform: platform}]
	rooms := make([]*model.Room, 0, len(ids))
	for id := range ids {
		rooms = append(rooms, d.rooms[id].Clone())
	}
	return rooms
}

// UpdateRoomData applies a metadata change to the room as currently stored.
// Membership, host, game and platform are kept; the change is refused when
// hostID no longer hosts the room.
func (d *RoomDirectory) UpdateRoomData(roomID, hostID string, apply func(room *model.Room)) (*model.Room, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	existing, err := d.hostedLocked(roomID, hostID)
	if err != nil {
		return nil, err
	}

	stored := existing.Clone()
	apply(stored)
	stored.ID = existing.ID
	stored.HostID = existing.HostID
	stored.PlayerIDs = existing.PlayerIDs
	stored.Game = existing.Game
	stored.Platform = existing.Platform
	stored.CreatedAt = existing.CreatedAt
	stored.LastContact = d.now()

	d.rooms[stored.ID] = stored
	d.notifyLocked(RoomEvent{Type: RoomEventUpdated, Room: stored.Clone()})
	return stored.Clone(), nil
}

// SetRoomPlayers makes the host followed by playerIDs the room's members.
// Joining players are moved out of any other room they were in for the same
// game and platform; members no longer listed are released.
func (d *RoomDirectory) SetRoomPlayers(roomID, hostID string, playerIDs []string) (*model.Room, error) {
	members := []string{hostID}
	for _, id := range playerIDs {
		if id != "" && !slices.Contains(members, id) {
			members = append(members, id)
		}
	}
	if len(members) > model.MaxRoomPlayers {
		return nil, fmt.Errorf("%w: %d players", ErrInvalidRoom, len(members))
	}

	d.mu.Lock()
	defer d.mu.Unlock()

	existing, err := d.hostedLocked(roomID, hostID)
	if err != nil {
		return nil, err
	}

	stored := existing.Clone()
	stored.PlayerIDs = members
	stored.LastContact = d.now()

	var events []RoomEvent
	for _, playerID := range existing.PlayerIDs {
		if !stored.HasPlayer(playerID) {
			delete(d.byPlayer, playerKey{playerID: playerID, game: stored.Game, platform: stored.Platform})
		}
	}
	for _, playerID := range stored.PlayerIDs {
		key := playerKey{playerID: playerID, game: stored.Game, platform: stored.Platform}
		if otherID, ok := d.byPlayer[key]; ok && otherID != stored.ID {
			events = append(events, d.removePlayerLocked(d.rooms[otherID], playerID))
		}
		d.byPlayer[key] = stored.ID
	}
	d.rooms[stored.ID] = stored
	events = append(events, RoomEvent{Type: RoomEventUpdated, Room: stored.Clone()})

	d.notifyLocked(events...)
	return stored.Clone(), nil
}

// RemoveRoom deletes a room and releases all of its players
func (d *RoomDirectory) RemoveRoom(roomID string) error {
	d.mu.Lock()
	room, ok := d.rooms[roomID]
	if !ok {
		d.mu.Unlock()
		return ErrRoomNotFound
	}
	d.deleteLocked(room)
	d.notifyLocked(RoomEvent{Type: RoomEventRemoved, Room: room.Clone()})
	d.mu.Unlock()

	return nil
}

// RemovePlayer takes the player out of their room. Empty rooms are deleted,
// otherwise the next player becomes host.
func (d *RoomDirectory) RemovePlayer(playerID string, platform model.Platform, game model.Game) error {
	d.mu.Lock()
	roomID, ok := d.byPlayer[playerKey{playerID: playerID, game: game, platform: platform}]
	if !ok {
		d.mu.Unlock()
		return ErrRoomNotFound
	}
	d.notifyLocked(d.removePlayerLocked(d.rooms[roomID], playerID))
	d.mu.Unlock()

	return nil
}

// SweepStale removes rooms that have not been touched since the cutoff
func (d *RoomDirectory) SweepStale(cutoff time.Time) int {
	d.mu.Lock()
	var events []RoomEvent
	for _, room := range d.rooms {
		if room.LastContact.Before(cutoff) {
			d.deleteLocked(room)
			events = append(events, RoomEvent{Type: RoomEventRemoved, Room: room.Clone()})
		}
	}
	d.notifyLocked(events...)
	d.mu.Unlock()

	return len(events)
}

// Run sweeps stale rooms every interval until the context is cancelled
func (d *RoomDirectory) Run(ctx context.Context, interval, ttl time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			if removed := d.SweepStale(d.now().Add(-ttl)); removed > 0 {
				d.logger.Info("Removed stale rooms", zap.Int("count", removed))
			}
		}
	}
}

// RoomStats counts rooms and players for one game and platform
type RoomStats struct {
	Game     model.Game     `json:"game"`
	Platform model.Platform `json:"platform"`
	Rooms    int            `json:"rooms"`
	Players  int            `json:"players"`
}

// Stats returns room and player counts per game and platform
func (d *RoomDirectory) Stats() []RoomStats {
	d.mu.RLock()
	defer d.mu.RUnlock()

	stats := make([]RoomStats, 0, len(d.byGamePlatform))
	for key, ids := range d.byGamePlatform {
		s := RoomStats{Game: key.game, Platform: key.platform, Rooms: len(ids)}
		for id := range ids {
			s.Players += d.rooms[id].PlayerCount()
		}
		stats = append(stats, s)
	}
	return stats
}

// Count returns the number of live rooms
func (d *RoomDirectory) Count() int {
	d.mu.RLock()
	defer d.mu.RUnlock()
	return len(d.rooms)
}

func (d *RoomDirectory) insertLocked(playerID string, platform model.Platform, game model.Game) *model.Room {
	room := model.NewRoom(d.newID(), playerID, game, platform, d.now())

	d.rooms[room.ID] = room
	d.byPlayer[playerKey{playerID: playerID, game: game, platform: platform}] = room.ID

	gpKey := gamePlatformKey{game: game, platform: platform}
	if d.byGamePlatform[gpKey] == nil {
		d.byGamePlatform[gpKey] = make(map[string]struct{})
	}
	d.byGamePlatform[gpKey][room.ID] = struct{}{}

	return room
}

func (d *RoomDirectory) removePlayerLocked(room *model.Room, playerID string) RoomEvent {
	room.RemovePlayer(playerID)
	delete(d.byPlayer, playerKey{playerID: playerID, game: room.Game, platform: room.Platform})

	if room.IsEmpty() {
		d.deleteLocked(room)
		return RoomEvent{Type: RoomEventRemoved, Room: room.Clone()}
	}
	return RoomEvent{Type: RoomEventUpdated, Room: room.Clone()}
}

func (d *RoomDirectory) deleteLocked(room *model.Room) {
	delete(d.rooms, room.ID)
	for _, playerID := range room.PlayerIDs {
		key := playerKey{playerID: playerID, game: room.Game, platform: room.Platform}
		if d.byPlayer[key] == room.ID {
			delete(d.byPlayer, key)
		}
	}

	gpKey := gamePlatformKey{game: room.Game, platform: room.Platform}
	delete(d.byGamePlatform[gpKey], room.ID)
	if len(d.byGamePlatform[gpKey]) == 0 {
		delete(d.byGamePlatform, gpKey)
	}
}

func (d *RoomDirectory) hostedLocked(roomID, hostID string) (*model.Room, error) {
	room, ok := d.rooms[roomID]
	if !ok {
		return nil, ErrRoomNotFound
	}
	if room.HostID != hostID {
		return nil, ErrNotHost
	}
	return room, nil
}

func (d *RoomDirectory) notifyLocked(events ...RoomEvent) {
	for _, event := range events {
		for _, o := range d.observers {
			o.OnRoomEvent(event)
		}
	}
}
