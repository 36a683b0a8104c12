package response

import (
	"net/http"

	"github.com/go-demo/matchmaker/internal/model"
)

// Player tags in a FindBestRoom result
const (
	MatchingResFoundRoom = 0
	MatchingResSearcher  = 1
)

// StatusResponse is always element 0 of a match response
type StatusResponse struct {
	StatusCode int `json:"StatusCode"`
}

// MatchResponse is the JSON array returned by every match method
type MatchResponse []interface{}

// NewStatusResponse builds a response holding only a status object
func NewStatusResponse(code int) MatchResponse {
	return MatchResponse{StatusResponse{StatusCode: code}}
}

// NewOKResponse builds a 200 response, appending payload when present
func NewOKResponse(payload interface{}) MatchResponse {
	resp := NewStatusResponse(http.StatusOK)
	if payload != nil {
		resp = append(resp, payload)
	}
	return resp
}

// StatusCode returns the status carried in element 0
func (r MatchResponse) StatusCode() int {
	if len(r) == 0 {
		return 0
	}
	if s, ok := r[0].(StatusResponse); ok {
		return s.StatusCode
	}
	return 0
}

type MatchPlayer struct {
	PlayerID    string `json:"PlayerId"`
	MatchingRes int    `json:"matching_res"`
}

// FoundRoomResponse describes the room FindBestRoom picked
type FoundRoomResponse struct {
	Players                 []MatchPlayer   `json:"Players"`
	Slots                   [][]int         `json:"Slots"`
	RoomState               model.RoomState `json:"RoomState"`
	HostMood                model.RoomMood  `json:"HostMood"`
	LevelCompletionEstimate int             `json:"LevelCompletionEstimate"`
	PassedNoJoinPoint       int             `json:"PassedNoJoinPoint"`
	MoveConnected           bool            `json:"MoveConnected"`
	Location                []string        `json:"Location"`
	BuildVersion            int             `json:"BuildVersion"`
	Language                int             `json:"Language"`
	FirstSeenTimestamp      int64           `json:"FirstSeenTimestamp"`
	LastSeenTimestamp       int64           `json:"LastSeenTimestamp"`
	GameID                  int             `json:"GameId"`
	NatType                 model.NatType   `json:"NatType"`
	Friends                 []string        `json:"Friends"`
	Blocked                 []string        `json:"Blocked"`
	RecentlyLeft            []string        `json:"RecentlyLeft"`
	FailedJoin              []string        `json:"FailedJoin"`
}

// NewFoundRoomResponse describes room to the searcher. players must already be
// tagged.
func NewFoundRoomResponse(room *model.Room, players []MatchPlayer) *FoundRoomResponse {
	passed := 0
	if room.PassedNoJoinPoint {
		passed = 1
	}

	location := room.Locations
	if location == nil {
		location = []string{}
	}

	return &FoundRoomResponse{
		Players:            players,
		Slots:              [][]int{{int(room.LevelType), room.LevelID}},
		RoomState:          room.RoomState,
		HostMood:           room.RoomMood,
		PassedNoJoinPoint:  passed,
		Location:           location,
		BuildVersion:       room.BuildVersion,
		Language:           room.Language,
		FirstSeenTimestamp: room.CreatedAt.UnixMilli(),
		LastSeenTimestamp:  room.LastContact.UnixMilli(),
		GameID:             int(room.Game),
		NatType:            room.NatType,
		Friends:            []string{},
		Blocked:            []string{},
		RecentlyLeft:       []string{},
		FailedJoin:         []string{},
	}
}
