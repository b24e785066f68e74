package models

import "github.com/golang-jwt/jwt/v5"

type UserClaims struct {
	jwt.RegisteredClaims
	UserID uint   `json:"user_id"`
	Email  string `json:"email"`
	Role   string `json:"role"`
}

// Actor converts the claims into the identity passed to the services.
func (c *UserClaims) Actor() Actor {
	return Actor{ID: c.UserID, Role: c.Role}
}
