package utils // package utils provides helper functions for token creation and hashing

import (
	"time"

	"github.com/golang-jwt/jwt/v5" // JWT library for creating signed tokens
)

// AccessToken represents a signed JWT access token along with its expiry.
// The Token field contains the serialized JWT string; Exp stores the UTC
// expiration time. Tokens are presented in the Authorization header when
// calling protected endpoints.
type AccessToken struct {
	Token string
	Exp   time.Time
}

// NewAccessToken builds and signs an HS256 JWT for a user. The claims carry
// everything the auth middleware needs to gate requests without a database
// round-trip: subject (sub, the user ID), email, the unlimited-use flag
// (is_pro), expiration (exp) and issued at (iat).
func NewAccessToken(secret string, userID uint64, email string, isPro bool, ttl time.Duration) (AccessToken, error) {
	now := time.Now().UTC()
	exp := now.Add(ttl)
	claims := jwt.MapClaims{
		"sub":    userID,
		"email":  email,
		"is_pro": isPro,
		"exp":    exp.Unix(),
		"iat":    now.Unix(),
	}
	t := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := t.SignedString([]byte(secret))
	if err != nil {
		return AccessToken{}, err
	}
	return AccessToken{Token: signed, Exp: exp}, nil
}
