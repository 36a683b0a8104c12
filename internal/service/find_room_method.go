package service

import (
	"context"
	"encoding/json"
	"math"
	"math/rand/v2"
	"slices"

	"github.com/go-demo/matchmaker/internal/dto/request"
	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/model"
	apperrors "github.com/go-demo/matchmaker/internal/pkg/errors"
	"github.com/go-demo/matchmaker/internal/repository"
	"github.com/samber/lo"
	"go.uber.org/zap"
)

// Emulated clients report every online slot they have seen instead of the one
// they want, so more than one online id from this platform is ignored.
const overReportingPlatform = model.PlatformRPCS3

// findRoomMethod handles "FindBestRoom"
type findRoomMethod struct {
	rooms  *repository.RoomDirectory
	users  UserDirectory
	random RandomSource
	logger *zap.Logger
}

func (m *findRoomMethod) Names() []string {
	return []string{"FindBestRoom"}
}

func (m *findRoomMethod) Execute(ctx context.Context, mc *MethodContext, body json.RawMessage) (response.MatchResponse, error) {
	if !mc.Config.DiveInEnabled {
		return nil, apperrors.ErrDiveInDisabled
	}

	own, err := m.rooms.GetRoomByUser(mc.User.ID, mc.Platform, mc.Game)
	if err != nil {
		return nil, apperrors.ErrNoRoom
	}

	var req request.FindBestRoomRequest
	if err := decodeBody(body, &req); err != nil {
		return nil, err
	}

	onlineIDs, storyIDs := req.SlotIDs()
	if mc.Platform == overReportingPlatform && len(onlineIDs) > 1 {
		onlineIDs = nil
	}

	pool := lo.Filter(m.rooms.GetRoomsByGameAndPlatform(mc.Game, mc.Platform), func(r *model.Room, _ int) bool {
		return r.ID != own.ID
	})

	candidates := lo.Filter(pool, func(r *model.Room, _ int) bool {
		if len(onlineIDs) > 0 && (r.LevelType != model.SlotTypeOnline || !lo.Contains(onlineIDs, r.LevelID)) {
			return false
		}
		if len(storyIDs) > 0 && (r.LevelType != model.SlotTypeStory || !lo.Contains(storyIDs, r.LevelID)) {
			return false
		}
		return own.PlayerCount()+r.PlayerCount() <= model.MaxRoomPlayers
	})

	rng := m.random.New()
	rankCandidates(rng, candidates)

	natType := own.NatType
	if len(req.NatType) > 0 {
		natType = req.NatType[0]
	}
	if natType == model.NatTypeStrict {
		candidates = lo.Filter(candidates, func(r *model.Room, _ int) bool {
			return r.NatType == model.NatTypeOpen
		})
	}

	forcedTarget := mc.User.GetForceMatchUserID()
	if forcedTarget != "" {
		candidates = lo.Filter(candidates, func(r *model.Room, _ int) bool {
			return r.HasPlayer(forcedTarget)
		})
	}

	if len(candidates) == 0 {
		m.logNoMatch(mc, own, len(pool), onlineIDs, storyIDs, natType, forcedTarget)
		return response.NewStatusResponse(apperrors.ErrNoRoomFound.Code), nil
	}

	if forcedTarget != "" {
		if err := m.users.ClearForceMatch(ctx, mc.User.ID); err != nil {
			m.logger.Warn("Failed to clear forced match",
				zap.String("user_id", mc.User.ID),
				zap.Error(err),
			)
		}
	}

	selected := candidates[weightedIndex(rng.Float64(), len(candidates))]

	players, err := m.taggedPlayers(ctx, selected, own)
	if err != nil {
		return nil, apperrors.Wrap(err, apperrors.ErrInternal.Code, "failed to resolve player names")
	}

	m.logger.Debug("Found room",
		zap.String("user_id", mc.User.ID),
		zap.String("room_id", selected.ID),
		zap.Int("candidates", len(candidates)),
	)

	return response.NewOKResponse(response.NewFoundRoomResponse(selected, players)), nil
}

// rankCandidates shuffles the rooms, then orders them by mood and by whether
// they can still be joined. Both sorts are stable so ties stay shuffled.
func rankCandidates(rng *rand.Rand, rooms []*model.Room) {
	rng.Shuffle(len(rooms), func(i, j int) {
		rooms[i], rooms[j] = rooms[j], rooms[i]
	})
	slices.SortStableFunc(rooms, func(a, b *model.Room) int {
		return int(b.RoomMood) - int(a.RoomMood)
	})
	slices.SortStableFunc(rooms, func(a, b *model.Room) int {
		return boolRank(a.PassedNoJoinPoint) - boolRank(b.PassedNoJoinPoint)
	})
}

func boolRank(b bool) int {
	if b {
		return 1
	}
	return 0
}

// weightedIndex maps u in [0,1) onto [0,n), favouring low indices
func weightedIndex(u float64, n int) int {
	w := 1 - math.Cbrt(1-u)
	return min(int(math.Floor(w*float64(n))), n-1)
}

func (m *findRoomMethod) taggedPlayers(ctx context.Context, selected, own *model.Room) ([]response.MatchPlayer, error) {
	ids := lo.Uniq(append(slices.Clone(selected.PlayerIDs), own.PlayerIDs...))
	names, err := m.users.GetUsernames(ctx, ids)
	if err != nil {
		return nil, err
	}

	name := func(id string) string {
		if n, ok := names[id]; ok {
			return n
		}
		return id
	}

	players := make([]response.MatchPlayer, 0, len(selected.PlayerIDs)+len(own.PlayerIDs))
	for _, id := range selected.PlayerIDs {
		players = append(players, response.MatchPlayer{PlayerID: name(id), MatchingRes: response.MatchingResFoundRoom})
	}
	for _, id := range own.PlayerIDs {
		players = append(players, response.MatchPlayer{PlayerID: name(id), MatchingRes: response.MatchingResSearcher})
	}
	return players, nil
}

func (m *findRoomMethod) logNoMatch(
	mc *MethodContext,
	own *model.Room,
	poolSize int,
	onlineIDs, storyIDs []int,
	natType model.NatType,
	forcedTarget string,
) {
	if poolSize == 0 {
		m.logger.Info("No rooms to match against",
			zap.String("user_id", mc.User.ID),
			zap.Stringer("game", mc.Game),
			zap.Stringer("platform", mc.Platform),
		)
		return
	}

	if !mc.Config.VerboseNoMatchLogging {
		m.logger.Debug("No suitable room found",
			zap.String("user_id", mc.User.ID),
			zap.Int("pool", poolSize),
		)
		return
	}

	m.logger.Warn("No suitable room found",
		zap.String("user_id", mc.User.ID),
		zap.String("room_id", own.ID),
		zap.Int("room_players", own.PlayerCount()),
		zap.Stringer("game", mc.Game),
		zap.Stringer("platform", mc.Platform),
		zap.Int("pool", poolSize),
		zap.Ints("online_ids", onlineIDs),
		zap.Ints("story_ids", storyIDs),
		zap.Int("nat_type", int(natType)),
		zap.String("force_match_user_id", forcedTarget),
	)
}
