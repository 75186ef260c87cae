package auth

import (
	"context"
	"errors"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/google/uuid"
)

const testSecret = "test-secret"

func mint(t *testing.T, secret string, method jwt.SigningMethod, claims Claims) string {
	t.Helper()
	tok, err := jwt.NewWithClaims(method, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}
	return tok
}

func validClaims(sub string) Claims {
	return Claims{
		Email:        "ada@example.com",
		UserMetadata: map[string]any{"name": "Ada"},
		Identities:   []ProviderLink{{ID: "g-42", Provider: "google"}},
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   sub,
			Audience:  jwt.ClaimStrings{"authenticated"},
			ExpiresAt: jwt.NewNumericDate(time.Now().Add(time.Hour)),
		},
	}
}

func TestVerifyValidToken(t *testing.T) {
	sub := uuid.NewString()
	v := NewJWTVerifier(testSecret, "", "authenticated")

	id, err := v.Verify(context.Background(), mint(t, testSecret, jwt.SigningMethodHS256, validClaims(sub)))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	want := Identity{Subject: sub, Email: "ada@example.com", Nickname: "Ada", GoogleID: "g-42"}
	if id != want {
		t.Errorf("identity = %+v, want %+v", id, want)
	}
}

func TestVerifyNicknamePrecedence(t *testing.T) {
	claims := validClaims(uuid.NewString())
	claims.UserMetadata = map[string]any{"nickname": "Nick", "name": "Full Name"}
	claims.Identities = nil
	claims.AppMetadata = map[string]any{"google_id": "g-app"}

	id, err := NewJWTVerifier(testSecret, "", "").Verify(context.Background(), mint(t, testSecret, jwt.SigningMethodHS256, claims))
	if err != nil {
		t.Fatalf("verify: %v", err)
	}
	if id.Nickname != "Nick" || id.GoogleID != "g-app" {
		t.Errorf("identity = %+v", id)
	}
}

func TestVerifyRejects(t *testing.T) {
	v := NewJWTVerifier(testSecret, "https://issuer.example", "authenticated")
	good := validClaims(uuid.NewString())
	good.Issuer = "https://issuer.example"

	expired := good
	expired.ExpiresAt = jwt.NewNumericDate(time.Now().Add(-time.Minute))

	noExpiry := good
	noExpiry.ExpiresAt = nil

	badSub := good
	badSub.Subject = "not-a-uuid"

	wrongAud := good
	wrongAud.Audience = jwt.ClaimStrings{"anon"}

	wrongIss := good
	wrongIss.Issuer = "https://other.example"

	cases := map[string]string{
		"wrong secret": mint(t, "other-secret", jwt.SigningMethodHS256, good),
		"wrong method": mint(t, testSecret, jwt.SigningMethodHS512, good),
		"expired":      mint(t, testSecret, jwt.SigningMethodHS256, expired),
		"no expiry":    mint(t, testSecret, jwt.SigningMethodHS256, noExpiry),
		"bad subject":  mint(t, testSecret, jwt.SigningMethodHS256, badSub),
		"wrong aud":    mint(t, testSecret, jwt.SigningMethodHS256, wrongAud),
		"wrong issuer": mint(t, testSecret, jwt.SigningMethodHS256, wrongIss),
		"garbage":      "not.a.jwt",
	}
	for name, tok := range cases {
		if _, err := v.Verify(context.Background(), tok); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("%s: err = %v, want invalid token", name, err)
		}
	}

	if _, err := v.Verify(context.Background(), mint(t, testSecret, jwt.SigningMethodHS256, good)); err != nil {
		t.Errorf("good token rejected: %v", err)
	}
	if _, err := v.Verify(context.Background(), ""); !errors.Is(err, ErrMissingToken) {
		t.Errorf("empty token err = %v", err)
	}
}

func TestBearerToken(t *testing.T) {
	cases := map[string]string{
		"":             "",
		"Bearer abc":   "abc",
		"bearer  abc ": "abc",
		"BEARER abc":   "abc",
		"Basic abc":    "",
		"Bearer":       "",
		"Bearerabc":    "",
	}
	for header, want := range cases {
		r := httptest.NewRequest("GET", "/", nil)
		if header != "" {
			r.Header.Set("Authorization", header)
		}
		if got := BearerToken(r); got != want {
			t.Errorf("BearerToken(%q) = %q, want %q", header, got, want)
		}
	}
}
