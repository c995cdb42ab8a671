// Package auth implements the credential guard: a pure, constant-time check
// of the caller's bearer token against the configured shared secret.
package auth

import (
	"crypto/subtle"

	"agent-gateway/internal/shared"
)

type Guard struct {
	token string
}

func NewGuard(token string) *Guard {
	return &Guard{token: token}
}

// Authorize compares the presented token against the configured one.
// Fails closed: an empty configured token rejects everything, including an
// empty presented token. The comparison is constant time for equal-length
// inputs; length is not secret here since the expected token is fixed.
func (g *Guard) Authorize(presented string) error {
	if g.token == "" || presented == "" {
		return shared.ErrUnauthorized
	}
	if subtle.ConstantTimeCompare([]byte(presented), []byte(g.token)) != 1 {
		return shared.ErrUnauthorized
	}
	return nil
}
