// Package auth verifies identity-provider access tokens.
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

var (
	ErrMissingToken = errors.New("missing bearer token")
	ErrInvalidToken = errors.New("invalid token")
)

// Identity verified subject of an access token
type Identity struct {
	Subject  string
	Email    string
	Nickname string
	GoogleID string
}

// Verifier turns a raw bearer token into an identity
type Verifier interface {
	Verify(ctx context.Context, token string) (Identity, error)
}

// Claims access token issued by the identity provider
type Claims struct {
	Email        string         `json:"email"`
	UserMetadata map[string]any `json:"user_metadata,omitempty"`
	AppMetadata  map[string]any `json:"app_metadata,omitempty"`
	Identities   []ProviderLink `json:"identities,omitempty"`
	jwt.RegisteredClaims
}

// ProviderLink external account linked to the subject
type ProviderLink struct {
	ID       string `json:"id"`
	Provider string `json:"provider"`
}

// JWTVerifier checks HS256 tokens signed with the provider's shared secret
type JWTVerifier struct {
	secret   []byte
	issuer   string
	audience string
}

func NewJWTVerifier(secret, issuer, audience string) *JWTVerifier {
	return &JWTVerifier{secret: []byte(secret), issuer: issuer, audience: audience}
}

func (v *JWTVerifier) Verify(_ context.Context, raw string) (Identity, error) {
	if raw == "" {
		return Identity{}, ErrMissingToken
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithExpirationRequired(),
	}
	if v.issuer != "" {
		opts = append(opts, jwt.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}

	var claims Claims
	_, err := jwt.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.secret, nil
	}, opts...)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	sub, err := uuid.Parse(claims.Subject)
	if err != nil {
		return Identity{}, fmt.Errorf("%w: subject is not a uuid", ErrInvalidToken)
	}

	return Identity{
		Subject:  sub.String(),
		Email:    claims.Email,
		Nickname: claims.nickname(),
		GoogleID: claims.googleID(),
	}, nil
}

func (c *Claims) nickname() string {
	for _, key := range []string{"nickname", "name"} {
		if s, ok := c.UserMetadata[key].(string); ok && s != "" {
			return s
		}
	}
	return ""
}

func (c *Claims) googleID() string {
	for _, link := range c.Identities {
		if link.Provider == "google" && link.ID != "" {
			return link.ID
		}
	}
	if s, ok := c.AppMetadata["google_id"].(string); ok {
		return s
	}
	return ""
}

// BearerToken token of an "Authorization: Bearer" header, empty when absent
func BearerToken(r *http.Request) string {
	h := strings.TrimSpace(r.Header.Get("Authorization"))
	const prefix = "bearer "
	if len(h) <= len(prefix) || !strings.EqualFold(h[:len(prefix)], prefix) {
		return ""
	}
	return strings.TrimSpace(h[len(prefix):])
}
