// Package auth issues and verifies the bearer tokens that identify API
// callers, and exposes the register/login endpoints backing them.
package auth

import (
	"strconv"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwa"
	"github.com/lestrrat-go/jwx/v2/jwt"
	"github.com/m-mizutani/goerr/v2"
	"github.com/xcono/parkrest/apperr"
	"github.com/xcono/parkrest/service"
)

// TokenIssuer signs and verifies HS256 tokens carrying the caller's
// identity and role.
type TokenIssuer struct {
	secret []byte
	ttl    time.Duration
}

func NewTokenIssuer(secret string, ttl time.Duration) *TokenIssuer {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &TokenIssuer{secret: []byte(secret), ttl: ttl}
}

// Issue builds a signed token for the given user.
func (t *TokenIssuer) Issue(id int64, role string) (string, error) {
	now := time.Now()
	token, err := jwt.NewBuilder().
		Subject(strconv.FormatInt(id, 10)).
		Claim("role", role).
		IssuedAt(now).
		Expiration(now.Add(t.ttl)).
		Build()
	if err != nil {
		return "", goerr.Wrap(err, "failed to build token")
	}

	signed, err := jwt.Sign(token, jwt.WithKey(jwa.HS256, t.secret))
	if err != nil {
		return "", goerr.Wrap(err, "failed to sign token")
	}
	return string(signed), nil
}

// Verify parses and validates a token, returning the principal it
// carries. Expired, malformed or tampered tokens fail as unauthorized.
func (t *TokenIssuer) Verify(raw string) (service.Principal, error) {
	token, err := jwt.Parse([]byte(raw), jwt.WithKey(jwa.HS256, t.secret), jwt.WithValidate(true))
	if err != nil {
		return service.Principal{}, apperr.Unauthorized("invalid token", goerr.V("cause", err.Error()))
	}

	id, err := strconv.ParseInt(token.Subject(), 10, 64)
	if err != nil {
		return service.Principal{}, apperr.Unauthorized("invalid token subject")
	}

	role, _ := token.Get("role")
	roleStr, ok := role.(string)
	if !ok {
		return service.Principal{}, apperr.Unauthorized("token carries no role")
	}

	return service.Principal{ID: id, Role: roleStr}, nil
}
