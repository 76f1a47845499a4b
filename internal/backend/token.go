package backend

import (
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/rafaelmendoncavaz/duofisio-sub000/internal/schedule"
)

// SessionExpired reports whether the backend-issued JWT is already
// past its exp claim. The token is parsed without signature
// verification: the backend performs the real check, this peek only
// saves a dashboard session from issuing requests doomed to 401.
// Tokens that cannot be parsed, or carry no exp, are treated as live
// and left for the backend to judge.
func SessionExpired(token string, clock schedule.Clock) bool {
	if token == "" {
		return false
	}
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(token, claims); err != nil {
		return false
	}
	exp, err := claims.GetExpirationTime()
	if err != nil || exp == nil {
		return false
	}
	if clock == nil {
		clock = time.Now
	}
	return exp.Time.Before(clock())
}
