package models

import (
	"github.com/golang-jwt/jwt/v5"
)

// JWTClaims represents the payload of access tokens minted by the identity provider.
type JWTClaims struct {
	UserID   string   `json:"user_id"`
	Role     UserRole `json:"role"`
	Email    string   `json:"email,omitempty"`
	FullName string   `json:"full_name"`
	jwt.RegisteredClaims
}

// Session projects the claims onto the request session.
func (c *JWTClaims) Session() *Session {
	if c == nil {
		return nil
	}
	return &Session{ID: c.UserID, FullName: c.FullName, Role: c.Role}
}
