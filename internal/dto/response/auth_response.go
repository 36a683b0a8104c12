package response

import (
	"time"

	"github.com/go-demo/matchmaker/internal/pkg/utils"
)

// TokenResponse represents issued session tokens
type TokenResponse struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token"`
	ExpiresAt    time.Time `json:"expires_at"`
	TokenType    string    `json:"token_type"`
}

// NewTokenResponse creates a token response from a token pair
func NewTokenResponse(pair *utils.TokenPair) *TokenResponse {
	return &TokenResponse{
		AccessToken:  pair.AccessToken,
		RefreshToken: pair.RefreshToken,
		ExpiresAt:    pair.ExpiresAt,
		TokenType:    "Bearer",
	}
}
