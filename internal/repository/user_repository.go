package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/go-demo/matchmaker/internal/model"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
)

var (
	ErrUserNotFound      = errors.New("user not found")
	ErrUserAlreadyExists = errors.New("user already exists")
)

type UserRepository struct {
	db *sqlx.DB
}

func NewUserRepository(db *sqlx.DB) *UserRepository {
	return &UserRepository{db: db}
}

// Create creates a new user
func (r *UserRepository) Create(ctx context.Context, user *model.User) error {
	query := `
		INSERT INTO users (username)
		VALUES ($1)
		RETURNING id, created_at, updated_at`

	err := r.db.QueryRowxContext(ctx, query, user.Username).
		Scan(&user.ID, &user.CreatedAt, &user.UpdatedAt)
	if err != nil {
		var pqErr *pq.Error
		if errors.As(err, &pqErr) && pqErr.Code == "23505" {
			return ErrUserAlreadyExists
		}
		return fmt.Errorf("failed to create user: %w", err)
	}
	return nil
}

// GetByID retrieves a user by ID
func (r *UserRepository) GetByID(ctx context.Context, id string) (*model.User, error) {
	var user model.User
	query := `SELECT id, username, force_match_user_id, created_at, updated_at FROM users WHERE id = $1`

	if err := r.db.GetContext(ctx, &user, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by id: %w", err)
	}

	return &user, nil
}

// GetByUsername retrieves a user by username
func (r *UserRepository) GetByUsername(ctx context.Context, username string) (*model.User, error) {
	var user model.User
	query := `SELECT id, username, force_match_user_id, created_at, updated_at FROM users WHERE username = $1`

	if err := r.db.GetContext(ctx, &user, query, username); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrUserNotFound
		}
		return nil, fmt.Errorf("failed to get user by username: %w", err)
	}

	return &user, nil
}

// GetUsernames maps user ids to usernames. Unknown ids are omitted.
func (r *UserRepository) GetUsernames(ctx context.Context, ids []string) (map[string]string, error) {
	usernames := make(map[string]string, len(ids))
	if len(ids) == 0 {
		return usernames, nil
	}

	var rows []struct {
		ID       string `db:"id"`
		Username string `db:"username"`
	}
	query := `SELECT id, username FROM users WHERE id = ANY($1)`

	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(ids)); err != nil {
		return nil, fmt.Errorf("failed to get usernames: %w", err)
	}

	for _, row := range rows {
		usernames[row.ID] = row.Username
	}
	return usernames, nil
}

// GetIDsByUsernames maps usernames to user ids. Unknown names are omitted.
func (r *UserRepository) GetIDsByUsernames(ctx context.Context, usernames []string) (map[string]string, error) {
	ids := make(map[string]string, len(usernames))
	if len(usernames) == 0 {
		return ids, nil
	}

	var rows []struct {
		ID       string `db:"id"`
		Username string `db:"username"`
	}
	query := `SELECT id, username FROM users WHERE username = ANY($1)`

	if err := r.db.SelectContext(ctx, &rows, query, pq.Array(usernames)); err != nil {
		return nil, fmt.Errorf("failed to get user ids: %w", err)
	}

	for _, row := range rows {
		ids[row.Username] = row.ID
	}
	return ids, nil
}

// SetForceMatch queues a one-shot forced match from userID to targetID
func (r *UserRepository) SetForceMatch(ctx context.Context, userID, targetID string) error {
	query := `UPDATE users SET force_match_user_id = $2, updated_at = NOW() WHERE id = $1`
	return r.execAffectingUser(ctx, query, userID, targetID)
}

// ClearForceMatch removes a pending forced match
func (r *UserRepository) ClearForceMatch(ctx context.Context, userID string) error {
	query := `UPDATE users SET force_match_user_id = NULL, updated_at = NOW() WHERE id = $1`
	return r.execAffectingUser(ctx, query, userID)
}

func (r *UserRepository) execAffectingUser(ctx context.Context, query string, args ...interface{}) error {
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("failed to update user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}
