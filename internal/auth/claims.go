package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims are the only supported JWT claims shape for this service.
//
// Subject carries the user id. IssuedAtMs duplicates iat at millisecond
// precision because the staleness check compares it to the account's
// LastModifiedAt, and second-granular iat would blur changes made within
// the same second as a login.
type Claims struct {
	jwt.RegisteredClaims

	Email      string `json:"email"`
	Role       string `json:"role"`
	IssuedAtMs int64  `json:"iat_ms"`
}

func (c Claims) IssuedAtTime() time.Time {
	return time.UnixMilli(c.IssuedAtMs).UTC()
}
