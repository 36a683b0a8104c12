package request

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/go-demo/matchmaker/internal/model"
)

// Flag accepts the game's booleans, which are sent as either true/false or 0/1
type Flag bool

func (f *Flag) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	switch string(data) {
	case "true", "1":
		*f = true
		return nil
	case "false", "0", "null":
		*f = false
		return nil
	}

	var n float64
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("invalid flag %s", data)
	}
	*f = n != 0
	return nil
}

// RoomDataRequest is the argument object of CreateRoom and UpdateMyPlayerData
type RoomDataRequest struct {
	NatType           []model.NatType  `json:"NatType,omitempty"`
	PassedNoJoinPoint *Flag            `json:"PassedNoJoinPoint,omitempty"`
	RoomState         *model.RoomState `json:"RoomState,omitempty"`
	Slots             [][]int          `json:"Slots,omitempty"`
	HostMood          *model.RoomMood  `json:"HostMood,omitempty"`
	Mood              *model.RoomMood  `json:"Mood,omitempty"`
	Location          []string         `json:"Location,omitempty"`
	BuildVersion      *int             `json:"BuildVersion,omitempty"`
	Language          *int             `json:"Language,omitempty"`
	Players           []string         `json:"Players,omitempty"`
}

// HasValidSlots reports whether Slots holds at most one [type, id] pair
func (r *RoomDataRequest) HasValidSlots() bool {
	if len(r.Slots) > 1 {
		return false
	}
	for _, slot := range r.Slots {
		if len(slot) != 2 {
			return false
		}
	}
	return true
}

// Slot returns the single reported slot, if any
func (r *RoomDataRequest) Slot() (model.SlotType, int, bool) {
	if len(r.Slots) == 0 || len(r.Slots[0]) != 2 {
		return 0, 0, false
	}
	return model.SlotType(r.Slots[0][0]), r.Slots[0][1], true
}

// RoomMood returns HostMood, falling back to Mood
func (r *RoomDataRequest) RoomMood() *model.RoomMood {
	if r.HostMood != nil {
		return r.HostMood
	}
	return r.Mood
}

// FirstNatType returns the first reported NAT type, Open if none
func (r *RoomDataRequest) FirstNatType() model.NatType {
	if len(r.NatType) == 0 {
		return model.NatTypeOpen
	}
	return r.NatType[0]
}

// FindBestRoomRequest is the argument object of FindBestRoom
type FindBestRoomRequest struct {
	Slots    [][]int         `json:"Slots,omitempty"`
	NatType  []model.NatType `json:"NatType,omitempty"`
	Location []string        `json:"Location,omitempty"`
}

// SlotIDs splits the requested slots into online and story level ids.
// Id 0 means "unspecified" and is skipped, as are malformed pairs.
func (r *FindBestRoomRequest) SlotIDs() (online, story []int) {
	for _, slot := range r.Slots {
		if len(slot) != 2 || slot[1] == 0 {
			continue
		}
		switch model.SlotType(slot[0]) {
		case model.SlotTypeOnline:
			online = append(online, slot[1])
		case model.SlotTypeStory:
			story = append(story, slot[1])
		}
	}
	return online, story
}

// ForceMatchRequest queues a forced match for moderation
type ForceMatchRequest struct {
	TargetUserID string `json:"target_user_id" binding:"required,uuid"`
}
