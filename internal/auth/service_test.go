package auth

import (
	"context"
	"errors"
	"testing"
	"time"

	"checkin-app/internal/config"
	"checkin-app/internal/models"

	"github.com/golang-jwt/jwt/v5"
)

type stubUserRepo struct {
	users map[int]*models.User
}

func (r *stubUserRepo) GetUserByID(_ context.Context, id int) (*models.User, error) {
	if u, ok := r.users[id]; ok {
		return u, nil
	}
	return nil, errors.New("user not found")
}

func (r *stubUserRepo) GetOrCreateUserByUsername(_ context.Context, username string) (*models.User, error) {
	for _, u := range r.users {
		if u.Username == username {
			return u, nil
		}
	}
	u := &models.User{ID: len(r.users) + 100, Username: username, CreatedAt: time.Now()}
	r.users[u.ID] = u
	return u, nil
}

func testService(secret string) (*Service, *stubUserRepo) {
	repo := &stubUserRepo{users: map[int]*models.User{
		42: {ID: 42, Username: "alice", CreatedAt: time.Now()},
	}}
	cfg := &config.Config{}
	cfg.JWT.Secret = []byte(secret)
	return NewService(repo, cfg), repo
}

func signToken(t *testing.T, secret string, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, claims)
	signed, err := token.SignedString([]byte(secret))
	if err != nil {
		t.Fatalf("signing token: %v", err)
	}
	return signed
}

func TestValidateToken(t *testing.T) {
	svc, _ := testService("test-secret")

	claims, err := svc.ValidateToken(signToken(t, "test-secret", jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(time.Hour).Unix(),
	}))
	if err != nil {
		t.Fatalf("ValidateToken() error: %v", err)
	}
	if id, _ := (*claims)["user_id"].(float64); int(id) != 42 {
		t.Errorf("claims user_id = %v, want 42", (*claims)["user_id"])
	}
}

func TestValidateTokenRejectsWrongSecret(t *testing.T) {
	svc, _ := testService("test-secret")

	if _, err := svc.ValidateToken(signToken(t, "other-secret", jwt.MapClaims{"user_id": 42})); err == nil {
		t.Error("ValidateToken() accepted a token signed with the wrong secret")
	}
}

func TestValidateTokenRejectsExpired(t *testing.T) {
	svc, _ := testService("test-secret")

	if _, err := svc.ValidateToken(signToken(t, "test-secret", jwt.MapClaims{
		"user_id": 42,
		"exp":     time.Now().Add(-time.Hour).Unix(),
	})); err == nil {
		t.Error("ValidateToken() accepted an expired token")
	}
}

func TestValidateTokenWithoutSecretConfigured(t *testing.T) {
	svc, _ := testService("")

	if _, err := svc.ValidateToken(signToken(t, "whatever", jwt.MapClaims{"user_id": 42})); err == nil {
		t.Error("ValidateToken() accepted a token with no secret configured")
	}
}

func TestGetUserFromTokenByID(t *testing.T) {
	svc, _ := testService("test-secret")

	user, err := svc.GetUserFromToken(context.Background(), signToken(t, "test-secret", jwt.MapClaims{"user_id": 42}))
	if err != nil {
		t.Fatalf("GetUserFromToken() error: %v", err)
	}
	if user.ID != 42 || user.Username != "alice" {
		t.Errorf("GetUserFromToken() = %+v, want alice (42)", user)
	}
}

func TestGetUserFromTokenByUsername(t *testing.T) {
	svc, repo := testService("test-secret")

	user, err := svc.GetUserFromToken(context.Background(), signToken(t, "test-secret", jwt.MapClaims{"username": "bob"}))
	if err != nil {
		t.Fatalf("GetUserFromToken() error: %v", err)
	}
	if user.Username != "bob" {
		t.Errorf("GetUserFromToken() username = %q, want bob", user.Username)
	}
	if _, err := repo.GetUserByID(context.Background(), user.ID); err != nil {
		t.Errorf("resolved user %d was not persisted: %v", user.ID, err)
	}
}

func TestGetUserFromTokenWithoutIdentity(t *testing.T) {
	svc, _ := testService("test-secret")

	if _, err := svc.GetUserFromToken(context.Background(), signToken(t, "test-secret", jwt.MapClaims{"scope": "read"})); err == nil {
		t.Error("GetUserFromToken() accepted a token with no identity claims")
	}
}
