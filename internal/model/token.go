package model

import "time"

// TokenData is the session data stored with an operator token.
type TokenData struct {
	Operator  string    `json:"operator"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `json:"expires_at"`
}
