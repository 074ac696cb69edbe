package api

import (
	"errors"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// SignToken mints an HS256 token accepted by an Auth configured with the same
// shared secret. Audience and issuer are left out when empty.
func SignToken(secret, userID, audience, issuer string, ttl time.Duration) (string, error) {
	if secret == "" {
		return "", errors.New("shared secret must be set")
	}
	if userID == "" {
		return "", errors.New("user id must be set")
	}
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iat": now.Unix(),
		"exp": now.Add(ttl).Unix(),
	}
	if audience != "" {
		claims["aud"] = audience
	}
	if issuer != "" {
		claims["iss"] = issuer
	}
	return jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
}
