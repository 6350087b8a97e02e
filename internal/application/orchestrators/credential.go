package orchestrators

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v4"
)

// ErrCredentialExpired is returned when a stored bearer credential is past its expiry.
var ErrCredentialExpired = errors.New("session expired, please log in again")

// Credential is what the dashboard can read from the API's bearer token.
// The signature is not verified here; the API remains the authority on every call.
type Credential struct {
	Subject   string
	Role      string
	ExpiresAt time.Time // zero when the token carries no exp claim
}

// Expired reports whether the credential has an expiry before now.
func (c Credential) Expired(now time.Time) bool {
	return !c.ExpiresAt.IsZero() && !now.Before(c.ExpiresAt)
}

// DecodeCredential reads the claims of a JWT bearer token without verifying it.
// POST: opaque (non-JWT) tokens return an error and a zero Credential
func DecodeCredential(token string) (Credential, error) {
	claims := jwt.MapClaims{}
	if _, _, err := jwt.NewParser().ParseUnverified(strings.TrimSpace(token), claims); err != nil {
		return Credential{}, fmt.Errorf("decode credential: %w", err)
	}
	c := Credential{
		Subject: stringClaim(claims, "sub"),
		Role:    stringClaim(claims, "role"),
	}
	if c.Subject == "" {
		c.Subject = stringClaim(claims, "id")
	}
	switch exp := claims["exp"].(type) {
	case float64:
		c.ExpiresAt = time.Unix(int64(exp), 0).UTC()
	case int64:
		c.ExpiresAt = time.Unix(exp, 0).UTC()
	}
	return c, nil
}

func stringClaim(m jwt.MapClaims, key string) string {
	switch v := m[key].(type) {
	case string:
		return v
	case float64:
		return fmt.Sprintf("%.0f", v)
	}
	return ""
}
