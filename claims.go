package session

import (
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// Claims is the decoded payload of an access token. The token is parsed,
// never verified: a forged token fools nobody but the local screen. Claims
// exist for display and optimistic gating only.
type Claims struct {
	jwt.RegisteredClaims
	Email       string `json:"email,omitempty"`
	UserRole    string `json:"role,omitempty"`
	DisplayName string `json:"name,omitempty"`
}

// SubjectID returns the subject claim (the user identifier).
func (c *Claims) SubjectID() string {
	return c.RegisteredClaims.Subject
}

// Role returns the session's role, normalized to viewer when the token
// carries an unknown or empty role.
func (c *Claims) Role() Role {
	if role, ok := ParseRole(c.UserRole); ok {
		return role
	}
	return RoleViewer
}

// Expires returns the expiration time, zero when the claim is absent.
func (c *Claims) Expires() time.Time {
	if c.ExpiresAt == nil {
		return time.Time{}
	}
	return c.ExpiresAt.Time
}

// Issued returns the issued-at time, zero when the claim is absent.
func (c *Claims) Issued() time.Time {
	if c.RegisteredClaims.IssuedAt == nil {
		return time.Time{}
	}
	return c.RegisteredClaims.IssuedAt.Time
}

// DecodeToken decodes the payload segment of a compact JWT without
// verifying its signature. Tokens that are not three dot-separated
// segments, carry an undecodable payload, or miss the subject or expiry
// claims are rejected with ErrTokenMalformed.
func DecodeToken(tokenString string) (*Claims, error) {
	parser := jwt.NewParser()

	token, _, err := parser.ParseUnverified(tokenString, &Claims{})
	if err != nil {
		return nil, ErrTokenMalformed
	}

	claims, ok := token.Claims.(*Claims)
	if !ok {
		return nil, ErrTokenMalformed
	}

	if claims.SubjectID() == "" || claims.ExpiresAt == nil {
		return nil, ErrTokenMalformed
	}

	return claims, nil
}
