package auth

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims holds the registered claims of a token, read without verifying
// its signature. They are for diagnostics only.
type Claims struct {
	Issuer    string
	Subject   string
	Audience  []string
	ExpiresAt time.Time
	IssuedAt  time.Time
}

// InspectClaims decodes token as a JWT without verification. ok is false
// when token is not a JWT, which is not an error: placeholder and opaque
// tokens are valid credentials as far as the runner is concerned.
func InspectClaims(token string) (Claims, bool) {
	var registered jwt.RegisteredClaims
	if _, _, err := jwt.NewParser().ParseUnverified(token, &registered); err != nil {
		return Claims{}, false
	}

	c := Claims{
		Issuer:   registered.Issuer,
		Subject:  registered.Subject,
		Audience: registered.Audience,
	}
	if registered.ExpiresAt != nil {
		c.ExpiresAt = registered.ExpiresAt.Time
	}
	if registered.IssuedAt != nil {
		c.IssuedAt = registered.IssuedAt.Time
	}
	return c, true
}
