package service

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"slices"

	"github.com/go-demo/matchmaker/internal/config"
	"github.com/go-demo/matchmaker/internal/dto/response"
	"github.com/go-demo/matchmaker/internal/model"
	apperrors "github.com/go-demo/matchmaker/internal/pkg/errors"
	"github.com/go-demo/matchmaker/internal/repository"
	"github.com/go-demo/matchmaker/internal/wire"
	"go.uber.org/zap"
)

// UserDirectory resolves the users a match method needs beyond the caller
type UserDirectory interface {
	GetByID(ctx context.Context, id string) (*model.User, error)
	GetUsernames(ctx context.Context, ids []string) (map[string]string, error)
	GetIDsByUsernames(ctx context.Context, usernames []string) (map[string]string, error)
	ClearForceMatch(ctx context.Context, userID string) error
}

// MethodContext is everything a method knows about the request besides its body
type MethodContext struct {
	User     *model.User
	Game     model.Game
	Platform model.Platform
	Config   config.MatchingConfig
}

// Method is one named operation of the match protocol
type Method interface {
	Names() []string
	Execute(ctx context.Context, mc *MethodContext, body json.RawMessage) (response.MatchResponse, error)
}

type MatchService struct {
	methods map[string]Method
	config  config.MatchingConfig
	logger  *zap.Logger
}

func NewMatchService(
	rooms *repository.RoomDirectory,
	users UserDirectory,
	random RandomSource,
	cfg config.MatchingConfig,
	logger *zap.Logger,
) *MatchService {
	s := &MatchService{
		methods: make(map[string]Method),
		config:  cfg,
		logger:  logger,
	}

	s.register(
		&createRoomMethod{rooms: rooms, users: users, logger: logger},
		&updateRoomMethod{rooms: rooms, users: users, logger: logger},
		&findRoomMethod{rooms: rooms, users: users, random: random, logger: logger},
	)
	return s
}

func (s *MatchService) register(methods ...Method) {
	for _, m := range methods {
		for _, name := range m.Names() {
			if _, exists := s.methods[name]; exists {
				panic(fmt.Sprintf("match method %q registered twice", name))
			}
			s.methods[name] = m
		}
	}
}

// MethodNames lists every accepted method name
func (s *MatchService) MethodNames() []string {
	names := make([]string, 0, len(s.methods))
	for name := range s.methods {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// Dispatch runs the envelope's method for the caller. Method failures are
// folded into the returned response; only an unknown method name is returned
// as an error.
func (s *MatchService) Dispatch(
	ctx context.Context,
	user *model.User,
	game model.Game,
	platform model.Platform,
	envelope *wire.Envelope,
) (response.MatchResponse, error) {
	method, ok := s.methods[envelope.Method]
	if !ok {
		return nil, apperrors.ErrUnknownMethod.WithDetails(envelope.Method)
	}

	mc := &MethodContext{User: user, Game: game, Platform: platform, Config: s.config}
	resp, err := method.Execute(ctx, mc, envelope.Body)
	if err != nil {
		code := apperrors.GetHTTPStatus(err)
		if code >= http.StatusInternalServerError {
			s.logger.Error("Match method failed",
				zap.String("method", envelope.Method),
				zap.String("user_id", user.ID),
				zap.Error(err),
			)
		}
		return response.NewStatusResponse(code), nil
	}
	return resp, nil
}

func decodeBody(body json.RawMessage, v interface{}) error {
	if len(body) == 0 {
		return nil
	}
	if err := json.Unmarshal(body, v); err != nil {
		return apperrors.Wrap(err, http.StatusBadRequest, "invalid method arguments")
	}
	return nil
}
