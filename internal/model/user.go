package model

import (
	"database/sql"
	"time"
)

type User struct {
	ID               string         `db:"id" json:"id"`
	Username         string         `db:"username" json:"username"`
	ForceMatchUserID sql.NullString `db:"force_match_user_id" json:"force_match_user_id,omitempty"`
	CreatedAt        time.Time      `db:"created_at" json:"created_at"`
	UpdatedAt        time.Time      `db:"updated_at" json:"updated_at"`
}

// HasForceMatch checks if a moderator queued a forced match for this user
func (u *User) HasForceMatch() bool {
	return u.ForceMatchUserID.Valid && u.ForceMatchUserID.String != ""
}

// GetForceMatchUserID returns the forced match target or empty string
func (u *User) GetForceMatchUserID() string {
	if u.ForceMatchUserID.Valid {
		return u.ForceMatchUserID.String
	}
	return ""
}
