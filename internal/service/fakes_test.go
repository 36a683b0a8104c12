package service

import (
	"context"
	"database/sql"
	"slices"
	"sync"

	"github.com/go-demo/matchmaker/internal/model"
	"github.com/go-demo/matchmaker/internal/repository"
	"github.com/google/uuid"
)

// fakeUserStore is an in-memory stand-in for the user repository
type fakeUserStore struct {
	mu    sync.Mutex
	users map[string]*model.User
}

func newFakeUserStore(users ...*model.User) *fakeUserStore {
	s := &fakeUserStore{users: make(map[string]*model.User)}
	for _, u := range users {
		s.users[u.ID] = u
	}
	return s
}

func (s *fakeUserStore) GetByID(ctx context.Context, id string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[id]
	if !ok {
		return nil, repository.ErrUserNotFound
	}
	c := *u
	return &c, nil
}

func (s *fakeUserStore) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == username {
			c := *u
			return &c, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (s *fakeUserStore) Create(ctx context.Context, user *model.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, u := range s.users {
		if u.Username == user.Username {
			return repository.ErrUserAlreadyExists
		}
	}
	user.ID = uuid.New().String()
	c := *user
	s.users[user.ID] = &c
	return nil
}

func (s *fakeUserStore) GetUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	names := make(map[string]string, len(ids))
	for _, id := range ids {
		if u, ok := s.users[id]; ok {
			names[id] = u.Username
		}
	}
	return names, nil
}

func (s *fakeUserStore) GetIDsByUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	ids := make(map[string]string, len(usernames))
	for _, u := range s.users {
		if slices.Contains(usernames, u.Username) {
			ids[u.Username] = u.ID
		}
	}
	return ids, nil
}

func (s *fakeUserStore) SetForceMatch(ctx context.Context, userID, targetID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.ForceMatchUserID = sql.NullString{String: targetID, Valid: true}
	return nil
}

func (s *fakeUserStore) ClearForceMatch(ctx context.Context, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	u, ok := s.users[userID]
	if !ok {
		return repository.ErrUserNotFound
	}
	u.ForceMatchUserID = sql.NullString{}
	return nil
}
