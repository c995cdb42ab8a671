// Package shared
package shared

import (
	"strings"

	"github.com/labstack/echo/v4"
)

func ExtractBearerToken(c echo.Context) (string, error) {
	// Check Authorization header
	auth := c.Request().Header.Get("Authorization")
	if auth == "" {
		return "", ErrMissingAuth
	}

	// Validate bearer format
	parts := strings.Split(auth, " ")
	if len(parts) != 2 || strings.ToLower(parts[0]) != "bearer" {
		return "", ErrInvalidFormat
	}

	token := parts[1]
	if token == "" {
		return "", ErrMissingAuth
	}

	return token, nil
}
