package auth

import (
	"errors"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

func TestGenerateAndValidateAccessToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateAccessToken("contrib-1", "alice")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Subject != "contrib-1" {
		t.Errorf("Subject = %s", claims.Subject)
	}
	if claims.Handle != "alice" {
		t.Errorf("Handle = %s", claims.Handle)
	}
	if claims.Type != TokenTypeAccess {
		t.Errorf("Type = %s", claims.Type)
	}
}

func TestGenerateAndValidateRefreshToken(t *testing.T) {
	svc := NewJWTService("test-secret")

	token, err := svc.GenerateRefreshToken("contrib-1")
	if err != nil {
		t.Fatalf("GenerateRefreshToken: %v", err)
	}

	claims, err := svc.ValidateToken(token)
	if err != nil {
		t.Fatalf("ValidateToken: %v", err)
	}
	if claims.Type != TokenTypeRefresh {
		t.Errorf("Type = %s", claims.Type)
	}
	if claims.Handle != "" {
		t.Errorf("refresh token carries handle %q", claims.Handle)
	}
}

func TestGenerateToken_EmptyContributor(t *testing.T) {
	svc := NewJWTService("test-secret")

	if _, err := svc.GenerateAccessToken("", "alice"); !errors.Is(err, ErrEmptyContributorID) {
		t.Errorf("access err = %v", err)
	}
	if _, err := svc.GenerateRefreshToken(""); !errors.Is(err, ErrEmptyContributorID) {
		t.Errorf("refresh err = %v", err)
	}
}

func TestValidateToken_WrongSecret(t *testing.T) {
	signer := NewJWTService("secret-a")
	verifier := NewJWTService("secret-b")

	token, err := signer.GenerateAccessToken("contrib-1", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	if _, err := verifier.ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateToken_Rotation(t *testing.T) {
	oldSvc := NewJWTService("old-secret")
	token, err := oldSvc.GenerateAccessToken("contrib-1", "")
	if err != nil {
		t.Fatalf("GenerateAccessToken: %v", err)
	}

	rotated := NewJWTServiceWithRotation("new-secret", "old-secret")
	claims, err := rotated.ValidateToken(token)
	if err != nil {
		t.Fatalf("token signed with previous secret rejected: %v", err)
	}
	if claims.Subject != "contrib-1" {
		t.Errorf("Subject = %s", claims.Subject)
	}

	// Without the previous secret configured the old token must fail.
	if _, err := NewJWTService("new-secret").ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateToken_Expired(t *testing.T) {
	secret := "test-secret"
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "contrib-1",
			IssuedAt:  jwt.NewNumericDate(now.Add(-time.Hour)),
			ExpiresAt: jwt.NewNumericDate(now.Add(-2 * time.Minute)),
		},
		Type: TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewJWTService(secret).ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken", err)
	}
}

func TestValidateToken_Leeway(t *testing.T) {
	secret := "test-secret"
	now := time.Now()
	claims := Claims{
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   "contrib-1",
			ExpiresAt: jwt.NewNumericDate(now.Add(-10 * time.Second)),
		},
		Type: TokenTypeAccess,
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	// 10 seconds past expiry is inside the default 30-second leeway.
	if _, err := NewJWTService(secret).ValidateToken(token); err != nil {
		t.Errorf("token within leeway rejected: %v", err)
	}

	if _, err := NewJWTService(secret).WithLeeway(time.Second).ValidateToken(token); !errors.Is(err, ErrExpiredToken) {
		t.Errorf("err = %v, want ErrExpiredToken with tight leeway", err)
	}
}

func TestValidateToken_WrongAlgorithm(t *testing.T) {
	// An unsigned token must never validate.
	token, err := jwt.NewWithClaims(jwt.SigningMethodNone, Claims{
		RegisteredClaims: jwt.RegisteredClaims{Subject: "contrib-1"},
		Type:             TokenTypeAccess,
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	if err != nil {
		t.Fatalf("sign: %v", err)
	}

	if _, err := NewJWTService("test-secret").ValidateToken(token); !errors.Is(err, ErrInvalidToken) {
		t.Errorf("err = %v, want ErrInvalidToken", err)
	}
}

func TestValidateToken_Garbage(t *testing.T) {
	svc := NewJWTService("test-secret")
	for _, input := range []string{"", "not-a-token", "a.b.c"} {
		if _, err := svc.ValidateToken(input); !errors.Is(err, ErrInvalidToken) {
			t.Errorf("ValidateToken(%q) = %v, want ErrInvalidToken", input, err)
		}
	}
}
