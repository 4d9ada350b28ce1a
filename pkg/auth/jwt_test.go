package auth

import (
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/akashbera009/kichu-kotha/pkg/model"
	"github.com/akashbera009/kichu-kotha/pkg/storage"
	"github.com/akashbera009/kichu-kotha/pkg/storage/memory"
)

func newVerifierFixture(t *testing.T) (*JWTVerifier, storage.Interface) {
	t.Helper()

	store := memory.NewStore()
	if err := store.Users().Create(&model.User{ID: "alice", Username: "alice"}); err != nil {
		t.Fatalf("failed to create user: %v", err)
	}

	return NewJWTVerifier("test-secret", store), store
}

func TestIssueAndVerify(t *testing.T) {
	v, _ := newVerifierFixture(t)

	token, err := v.Issue("alice")
	if err != nil {
		t.Fatalf("expected issue to succeed, got %v", err)
	}

	identity, err := v.Verify(token)
	if err != nil {
		t.Fatalf("expected verify to succeed, got %v", err)
	}
	if identity.UserID != "alice" || identity.Username != "alice" {
		t.Fatalf("unexpected identity %+v", identity)
	}
}

func TestVerifyRejectsEmptyCredential(t *testing.T) {
	v, _ := newVerifierFixture(t)

	_, err := v.Verify("")
	if !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestVerifyRejectsWrongSecret(t *testing.T) {
	v, store := newVerifierFixture(t)

	other := NewJWTVerifier("other-secret", store)
	token, err := other.Issue("alice")
	if err != nil {
		t.Fatalf("expected issue to succeed, got %v", err)
	}

	if _, err := v.Verify(token); !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestVerifyRejectsExpiredToken(t *testing.T) {
	v, _ := newVerifierFixture(t)

	claims := jwt.RegisteredClaims{
		Subject:   "alice",
		IssuedAt:  jwt.NewNumericDate(time.Now().Add(-2 * time.Hour)),
		ExpiresAt: jwt.NewNumericDate(time.Now().Add(-time.Hour)),
	}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := v.Verify(token); !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestVerifyRejectsTokenWithoutExpiry(t *testing.T) {
	v, _ := newVerifierFixture(t)

	claims := jwt.RegisteredClaims{Subject: "alice"}
	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	if err != nil {
		t.Fatalf("failed to sign token: %v", err)
	}

	if _, err := v.Verify(token); !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}

func TestVerifyRejectsUnknownSubject(t *testing.T) {
	v, _ := newVerifierFixture(t)

	token, err := v.Issue("ghost")
	if err != nil {
		t.Fatalf("expected issue to succeed, got %v", err)
	}

	if _, err := v.Verify(token); !IsAuthError(err) {
		t.Fatalf("expected auth error, got %v", err)
	}
}
