package service

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/go-demo/matchmaker/internal/config"
	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/model"
	apperrors "github.com/go-demo/matchmaker/internal/pkg/errors"
	"github.com/go-demo/matchmaker/internal/repository"
	"github.com/go-demo/matchmaker/internal/wire"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const (
	testGame     = model.GameLittleBigPlanet2
	testPlatform = model.PlatformPS3
)

type matchFixture struct {
	svc   *MatchService
	rooms *repository.RoomDirectory
	users *fakeUserStore
}

func newMatchFixture(t *testing.T, cfg config.MatchingConfig) *matchFixture {
	t.Helper()

	logger := zap.NewNop()
	rooms := repository.NewRoomDirectory(logger)
	users := newFakeUserStore()
	svc := NewMatchService(rooms, users, NewSeededRandomSource(42), cfg, logger)
	return &matchFixture{svc: svc, rooms: rooms, users: users}
}

func defaultMatchingConfig() config.MatchingConfig {
	return config.MatchingConfig{DiveInEnabled: true}
}

func (f *matchFixture) addUser(id string) *model.User {
	u := &model.User{ID: id, Username: "name-" + id}
	f.users.mu.Lock()
	f.users.users[id] = u
	f.users.mu.Unlock()
	c := *u
	return &c
}

// addRoom stores a room hosted by the first player with the others as members
func (f *matchFixture) addRoom(t *testing.T, players []string, mutate func(r *model.Room)) *model.Room {
	t.Helper()

	room, _ := f.rooms.GetOrCreateRoomByPlayer(players[0], testPlatform, testGame)
	_, err := f.rooms.SetRoomPlayers(room.ID, players[0], players[1:])
	require.NoError(t, err)
	if mutate != nil {
		_, err = f.rooms.UpdateRoomData(room.ID, players[0], mutate)
		require.NoError(t, err)
	}

	stored, err := f.rooms.GetRoomByID(room.ID)
	require.NoError(t, err)
	return stored
}

func (f *matchFixture) call(t *testing.T, user *model.User, method, body string) response.MatchResponse {
	t.Helper()
	return f.callOn(t, user, testPlatform, method, body)
}

func (f *matchFixture) callOn(t *testing.T, user *model.User, platform model.Platform, method, body string) response.MatchResponse {
	t.Helper()

	resp, err := f.svc.Dispatch(context.Background(), user, testGame, platform, &wire.Envelope{
		Method: method,
		Body:   json.RawMessage(body),
	})
	require.NoError(t, err)
	require.NotEmpty(t, resp)
	return resp
}

func foundRoom(t *testing.T, resp response.MatchResponse) *response.FoundRoomResponse {
	t.Helper()
	require.Equal(t, http.StatusOK, resp.StatusCode())
	require.Len(t, resp, 2)
	found, ok := resp[1].(*response.FoundRoomResponse)
	require.True(t, ok)
	return found
}

func TestMatchService_MethodNames(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	assert.Equal(t, []string{"CreateRoom", "FindBestRoom", "UpdateMyPlayerData"}, f.svc.MethodNames())
}

func TestMatchService_UnknownMethod(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	user := f.addUser("alice")

	_, err := f.svc.Dispatch(context.Background(), user, testGame, testPlatform, &wire.Envelope{Method: "PresenceUpdate"})
	assert.ErrorIs(t, err, apperrors.ErrUnknownMethod)
}

func TestMatchService_InvalidArgumentsAreBadRequest(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	user := f.addUser("alice")

	resp := f.call(t, user, "CreateRoom", `{"Slots":"nope"}`)
	assert.Equal(t, response.NewStatusResponse(http.StatusBadRequest), resp)
}

func TestCreateRoom_NewPlayerHostsOwnRoom(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	user := f.addUser("alice")

	resp := f.call(t, user, "CreateRoom", `{}`)
	assert.Equal(t, response.NewStatusResponse(http.StatusOK), resp)

	assert.Equal(t, 1, f.rooms.Count())
	room, err := f.rooms.GetRoomByUser(user.ID, testPlatform, testGame)
	require.NoError(t, err)
	assert.Equal(t, user.ID, room.HostID)
	assert.Equal(t, []string{user.ID}, room.PlayerIDs)
	assert.Equal(t, model.NatTypeOpen, room.NatType)
	assert.False(t, room.PassedNoJoinPoint)
}

func TestCreateRoom_AppliesRoomData(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	user := f.addUser("alice")

	body := `{"NatType":[2],"PassedNoJoinPoint":1,"RoomState":3,"Slots":[[2,1234]],"HostMood":1,"Mood":0,` +
		`"Location":["127.0.0.1"],"BuildVersion":289,"Language":1}`
	resp := f.call(t, user, "CreateRoom", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	room, err := f.rooms.GetRoomByUser(user.ID, testPlatform, testGame)
	require.NoError(t, err)
	assert.Equal(t, model.NatTypeModerate, room.NatType)
	assert.True(t, room.PassedNoJoinPoint)
	assert.Equal(t, model.RoomState(3), room.RoomState)
	assert.Equal(t, model.SlotTypeOnline, room.LevelType)
	assert.Equal(t, 1234, room.LevelID)
	assert.Equal(t, model.RoomMoodRejectingAllButFriends, room.RoomMood)
	assert.Equal(t, []string{"127.0.0.1"}, room.Locations)
	assert.Equal(t, 289, room.BuildVersion)
	assert.Equal(t, 1, room.Language)
}

func TestCreateRoom_NonHostSplitsIntoOwnRoom(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	f.addUser("host")
	member := f.addUser("member")
	original := f.addRoom(t, []string{"host", "member"}, nil)

	resp := f.call(t, member, "CreateRoom", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	own, err := f.rooms.GetRoomByUser(member.ID, testPlatform, testGame)
	require.NoError(t, err)
	assert.NotEqual(t, original.ID, own.ID)
	assert.Equal(t, member.ID, own.HostID)
	assert.Equal(t, []string{member.ID}, own.PlayerIDs)

	left, err := f.rooms.GetRoomByID(original.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"host"}, left.PlayerIDs)
}

func TestUpdateMyPlayerData_PlayersJoinHostRoom(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	host := f.addUser("host")
	guest := f.addUser("guest")

	f.call(t, host, "CreateRoom", `{}`)
	f.call(t, guest, "CreateRoom", `{}`)
	guestRoom, err := f.rooms.GetRoomByUser(guest.ID, testPlatform, testGame)
	require.NoError(t, err)

	resp := f.call(t, host, "UpdateMyPlayerData", `{"HostMood":3,"Players":["name-host","name-guest"]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	room, err := f.rooms.GetRoomByUser(guest.ID, testPlatform, testGame)
	require.NoError(t, err)
	assert.Equal(t, host.ID, room.HostID)
	assert.Equal(t, []string{host.ID, guest.ID}, room.PlayerIDs)
	assert.Equal(t, model.RoomMoodAllowingAll, room.RoomMood)

	_, err = f.rooms.GetRoomByID(guestRoom.ID)
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)

	// An empty list releases everyone but the host
	f.call(t, host, "UpdateMyPlayerData", `{"Players":[]}`)
	room, _ = f.rooms.GetRoomByUser(host.ID, testPlatform, testGame)
	assert.Equal(t, []string{host.ID}, room.PlayerIDs)
	_, err = f.rooms.GetRoomByUser(guest.ID, testPlatform, testGame)
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestCreateRoom_PlayersSkipUnknownAndCap(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	host := f.addUser("host")
	for _, id := range []string{"g1", "g2", "g3", "g4"} {
		f.addUser(id)
	}

	body := `{"Players":["name-host","ghost","name-g1","name-g1","name-g2","name-g3","name-g4"]}`
	resp := f.call(t, host, "CreateRoom", body)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	room, err := f.rooms.GetRoomByUser(host.ID, testPlatform, testGame)
	require.NoError(t, err)
	assert.Equal(t, []string{"host", "g1", "g2", "g3"}, room.PlayerIDs)

	_, err = f.rooms.GetRoomByUser("g4", testPlatform, testGame)
	assert.ErrorIs(t, err, repository.ErrRoomNotFound)
}

func TestCreateRoom_RejectsMalformedSlots(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"two slots", `{"Slots":[[2,1],[1,2]]}`},
		{"short slot", `{"Slots":[[2]]}`},
		{"long slot", `{"Slots":[[2,1,5]]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newMatchFixture(t, defaultMatchingConfig())
			user := f.addUser("alice")

			resp := f.call(t, user, "CreateRoom", tt.body)
			assert.Equal(t, response.NewStatusResponse(http.StatusBadRequest), resp)

			// The room resolved before validation is kept
			room, err := f.rooms.GetRoomByUser(user.ID, testPlatform, testGame)
			require.NoError(t, err)
			assert.Equal(t, 0, room.LevelID)
		})
	}
}

func TestUpdateMyPlayerData_NonHostRejected(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	f.addUser("host")
	member := f.addUser("member")
	original := f.addRoom(t, []string{"host", "member"}, func(r *model.Room) {
		r.RoomMood = model.RoomMoodAllowingAll
		r.LevelType = model.SlotTypeStory
		r.LevelID = 7
	})

	resp := f.call(t, member, "UpdateMyPlayerData", `{"HostMood":0,"Slots":[[2,99]]}`)
	assert.Equal(t, response.NewStatusResponse(http.StatusUnauthorized), resp)

	after, err := f.rooms.GetRoomByID(original.ID)
	require.NoError(t, err)
	assert.Equal(t, original, after)
	assert.Equal(t, 1, f.rooms.Count())
}

func TestUpdateMyPlayerData_PassedNoJoinPointIsTriState(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	user := f.addUser("alice")

	f.call(t, user, "CreateRoom", `{"PassedNoJoinPoint":true}`)

	resp := f.call(t, user, "UpdateMyPlayerData", `{"Mood":2}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	room, _ := f.rooms.GetRoomByUser(user.ID, testPlatform, testGame)
	assert.True(t, room.PassedNoJoinPoint)
	assert.Equal(t, model.RoomMoodRejectingOnlyFriends, room.RoomMood)

	f.call(t, user, "UpdateMyPlayerData", `{"PassedNoJoinPoint":false}`)
	room, _ = f.rooms.GetRoomByUser(user.ID, testPlatform, testGame)
	assert.False(t, room.PassedNoJoinPoint)
	assert.Equal(t, model.RoomMoodRejectingOnlyFriends, room.RoomMood)
}

func TestUpdateMyPlayerData_CreatesRoomForNewPlayer(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	user := f.addUser("alice")

	resp := f.call(t, user, "UpdateMyPlayerData", `{"Slots":[[1,5]]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	room, err := f.rooms.GetRoomByUser(user.ID, testPlatform, testGame)
	require.NoError(t, err)
	assert.Equal(t, model.SlotTypeStory, room.LevelType)
	assert.Equal(t, 5, room.LevelID)
}

func TestFindBestRoom_DiveInDisabled(t *testing.T) {
	f := newMatchFixture(t, config.MatchingConfig{DiveInEnabled: false})
	user := f.addUser("alice")
	f.call(t, user, "CreateRoom", `{}`)

	resp := f.call(t, user, "FindBestRoom", `{}`)
	assert.Equal(t, response.NewStatusResponse(http.StatusUnauthorized), resp)
}

func TestFindBestRoom_CallerWithoutRoom(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	user := f.addUser("alice")

	resp := f.call(t, user, "FindBestRoom", `{}`)
	assert.Equal(t, response.NewStatusResponse(http.StatusBadRequest), resp)
	assert.Equal(t, 0, f.rooms.Count())
}

func TestFindBestRoom_EmptyPool(t *testing.T) {
	for _, verbose := range []bool{false, true} {
		t.Run(fmt.Sprintf("verbose=%v", verbose), func(t *testing.T) {
			f := newMatchFixture(t, config.MatchingConfig{DiveInEnabled: true, VerboseNoMatchLogging: verbose})
			user := f.addUser("alice")
			f.call(t, user, "CreateRoom", `{}`)

			resp := f.call(t, user, "FindBestRoom", `{}`)
			assert.Equal(t, response.MatchResponse{response.StatusResponse{StatusCode: http.StatusNotFound}}, resp)
		})
	}
}

func TestFindBestRoom_OtherGameAndPlatformIgnored(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	user := f.addUser("alice")
	f.addUser("bob")
	f.call(t, user, "CreateRoom", `{}`)

	room, _ := f.rooms.GetOrCreateRoomByPlayer("bob", model.PlatformVita, testGame)
	require.NotNil(t, room)

	resp := f.call(t, user, "FindBestRoom", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestFindBestRoom_ReturnsTaggedPlayers(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	searcher := f.addUser("searcher")
	f.addUser("host")
	f.addUser("guest")
	f.call(t, searcher, "CreateRoom", `{}`)
	target := f.addRoom(t, []string{"host", "guest"}, func(r *model.Room) {
		r.RoomMood = model.RoomMoodRejectingOnlyFriends
		r.LevelType = model.SlotTypeStory
		r.LevelID = 12
		r.Locations = []string{"10.0.0.1"}
	})

	found := foundRoom(t, f.call(t, searcher, "FindBestRoom", `{}`))
	assert.Equal(t, []response.MatchPlayer{
		{PlayerID: "name-host", MatchingRes: response.MatchingResFoundRoom},
		{PlayerID: "name-guest", MatchingRes: response.MatchingResFoundRoom},
		{PlayerID: "name-searcher", MatchingRes: response.MatchingResSearcher},
	}, found.Players)
	assert.Equal(t, [][]int{{int(model.SlotTypeStory), 12}}, found.Slots)
	assert.Equal(t, model.RoomMoodRejectingOnlyFriends, found.HostMood)
	assert.Equal(t, []string{"10.0.0.1"}, found.Location)
	assert.Equal(t, int(testGame), found.GameID)
	assert.NotNil(t, found.Friends)

	// Searching never moves anyone
	after, err := f.rooms.GetRoomByID(target.ID)
	require.NoError(t, err)
	assert.Equal(t, target, after)
	own, err := f.rooms.GetRoomByUser(searcher.ID, testPlatform, testGame)
	require.NoError(t, err)
	assert.Equal(t, []string{searcher.ID}, own.PlayerIDs)
}

func TestFindBestRoom_StrictNatOnlyMatchesOpen(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	searcher := f.addUser("searcher")
	f.call(t, searcher, "CreateRoom", `{"NatType":[3]}`)

	natTypes := []model.NatType{model.NatTypeOpen, model.NatTypeModerate, model.NatTypeStrict}
	for i := 0; i < 9; i++ {
		nat := natTypes[i%len(natTypes)]
		f.addRoom(t, []string{fmt.Sprintf("host-%d", i)}, func(r *model.Room) { r.NatType = nat })
	}

	for i := 0; i < 200; i++ {
		found := foundRoom(t, f.call(t, searcher, "FindBestRoom", `{}`))
		assert.Equal(t, model.NatTypeOpen, found.NatType)
	}
}

func TestFindBestRoom_StrictNatWithoutOpenRooms(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	searcher := f.addUser("searcher")
	f.call(t, searcher, "CreateRoom", `{}`)
	f.addRoom(t, []string{"host"}, func(r *model.Room) { r.NatType = model.NatTypeModerate })

	// NatType in the search request overrides the room's
	resp := f.call(t, searcher, "FindBestRoom", `{"NatType":[3]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	resp = f.call(t, searcher, "FindBestRoom", `{}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode())
}

func TestFindBestRoom_NeverExceedsRoomCapacity(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	searcher := f.addUser("searcher")
	f.addRoom(t, []string{"searcher", "friend"}, nil)

	f.addRoom(t, []string{"a1", "a2", "a3"}, nil)
	f.addRoom(t, []string{"b1", "b2"}, nil)

	for i := 0; i < 100; i++ {
		found := foundRoom(t, f.call(t, searcher, "FindBestRoom", `{}`))
		assert.Len(t, found.Players, 4)
		assert.Equal(t, "b1", found.Players[0].PlayerID)
	}
}

func TestFindBestRoom_SlotFilters(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	searcher := f.addUser("searcher")
	f.call(t, searcher, "CreateRoom", `{}`)

	f.addRoom(t, []string{"online"}, func(r *model.Room) {
		r.LevelType = model.SlotTypeOnline
		r.LevelID = 100
	})
	f.addRoom(t, []string{"story"}, func(r *model.Room) {
		r.LevelType = model.SlotTypeStory
		r.LevelID = 100
	})
	f.addRoom(t, []string{"other"}, func(r *model.Room) {
		r.LevelType = model.SlotTypeOnline
		r.LevelID = 200
	})

	tests := []struct {
		name     string
		body     string
		expected string
	}{
		{"online id", `{"Slots":[[2,100]]}`, "online"},
		{"story id", `{"Slots":[[1,100]]}`, "story"},
		{"second online id", `{"Slots":[[2,200],[2,0]]}`, "other"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			for i := 0; i < 20; i++ {
				found := foundRoom(t, f.call(t, searcher, "FindBestRoom", tt.body))
				assert.Equal(t, tt.expected, found.Players[0].PlayerID)
			}
		})
	}

	resp := f.call(t, searcher, "FindBestRoom", `{"Slots":[[2,300]]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestFindBestRoom_OverReportedOnlineSlotsIgnored(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	searcher := f.addUser("searcher")
	f.callOn(t, searcher, model.PlatformRPCS3, "CreateRoom", `{}`)

	room, _ := f.rooms.GetOrCreateRoomByPlayer("host", model.PlatformRPCS3, testGame)
	_, err := f.rooms.UpdateRoomData(room.ID, "host", func(r *model.Room) {
		r.LevelType = model.SlotTypeStory
		r.LevelID = 5
	})
	require.NoError(t, err)

	// Two online ids are dropped on this platform, so the story room matches
	resp := f.callOn(t, searcher, model.PlatformRPCS3, "FindBestRoom", `{"Slots":[[2,100],[2,101]]}`)
	assert.Equal(t, http.StatusOK, resp.StatusCode())

	// A single online id still filters
	resp = f.callOn(t, searcher, model.PlatformRPCS3, "FindBestRoom", `{"Slots":[[2,100]]}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())
}

func TestFindBestRoom_ForcedMatchIsOneShot(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	searcher := f.addUser("searcher")
	f.call(t, searcher, "CreateRoom", `{}`)

	for i := 0; i < 5; i++ {
		f.addRoom(t, []string{fmt.Sprintf("host-%d", i)}, nil)
	}
	f.addUser("target")
	f.addRoom(t, []string{"target"}, func(r *model.Room) {
		r.RoomMood = model.RoomMoodRejectingAll
		r.PassedNoJoinPoint = true
	})

	require.NoError(t, f.users.SetForceMatch(context.Background(), searcher.ID, "target"))
	forced, err := f.users.GetByID(context.Background(), searcher.ID)
	require.NoError(t, err)

	found := foundRoom(t, f.call(t, forced, "FindBestRoom", `{}`))
	assert.Equal(t, "name-target", found.Players[0].PlayerID)

	after, err := f.users.GetByID(context.Background(), searcher.ID)
	require.NoError(t, err)
	assert.False(t, after.HasForceMatch())
}

func TestFindBestRoom_ForcedTargetNotInPool(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	searcher := f.addUser("searcher")
	f.call(t, searcher, "CreateRoom", `{}`)
	f.addRoom(t, []string{"host"}, nil)

	searcher.ForceMatchUserID = sql.NullString{String: "absent", Valid: true}
	require.NoError(t, f.users.SetForceMatch(context.Background(), searcher.ID, "absent"))

	resp := f.call(t, searcher, "FindBestRoom", `{}`)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode())

	// Not consumed when nothing matched
	after, _ := f.users.GetByID(context.Background(), searcher.ID)
	assert.True(t, after.HasForceMatch())
}

func TestFindBestRoom_FavoursBetterRankedRooms(t *testing.T) {
	f := newMatchFixture(t, defaultMatchingConfig())
	searcher := f.addUser("searcher")
	f.call(t, searcher, "CreateRoom", `{}`)

	moods := []model.RoomMood{
		model.RoomMoodAllowingAll,
		model.RoomMoodRejectingOnlyFriends,
		model.RoomMoodRejectingAllButFriends,
		model.RoomMoodRejectingAll,
	}
	for i, mood := range moods {
		f.addRoom(t, []string{fmt.Sprintf("host-%d", i)}, func(r *model.Room) { r.RoomMood = mood })
	}

	counts := make(map[model.RoomMood]int)
	const trials = 4000
	for i := 0; i < trials; i++ {
		found := foundRoom(t, f.call(t, searcher, "FindBestRoom", `{}`))
		counts[found.HostMood]++
	}

	for i := 1; i < len(moods); i++ {
		assert.GreaterOrEqual(t, counts[moods[i-1]], counts[moods[i]],
			"rank %d picked less often than rank %d: %v", i-1, i, counts)
	}
	assert.Greater(t, counts[model.RoomMoodAllowingAll], trials/2)
}
