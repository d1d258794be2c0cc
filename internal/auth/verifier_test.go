package auth

import (
	"context"
	"errors"
	"testing"

	"golang.org/x/crypto/bcrypt"

	"mentor-ai/internal/model"
)

var table = map[string]string{"admin": "homebrew", "beta": "treino2025"}

func mustHash(t *testing.T, secret string) string {
	t.Helper()
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		t.Fatal(err)
	}
	return string(h)
}

// rejectedPairs are credential pairs that are not in the table.
var rejectedPairs = [][2]string{
	{"admin", "treino2025"},
	{"beta", "homebrew"},
	{"ADMIN", "homebrew"},
	{"ghost", "homebrew"},
	{"", ""},
	{"admin", ""},
	{"admin", "homebrew "},
}

func TestStaticVerifier(t *testing.T) {
	v := NewStaticVerifier(table)
	ctx := context.Background()

	for id, secret := range table {
		if ok, err := v.Verify(ctx, id, secret); err != nil || !ok {
			t.Errorf("Verify(%q) = %v, %v; want true", id, ok, err)
		}
	}
	for _, pair := range rejectedPairs {
		if ok, _ := v.Verify(ctx, pair[0], pair[1]); ok {
			t.Errorf("Verify(%q, %q) accepted a pair outside the table", pair[0], pair[1])
		}
	}
}

func TestStaticVerifier_CopiesTable(t *testing.T) {
	users := map[string]string{"admin": "homebrew"}
	v := NewStaticVerifier(users)
	users["admin"] = "changed"
	if ok, _ := v.Verify(context.Background(), "admin", "homebrew"); !ok {
		t.Error("verifier should not observe later table mutations")
	}
}

func TestBcryptVerifier(t *testing.T) {
	v, err := NewBcryptVerifier(map[string]string{
		"admin": mustHash(t, "homebrew"),
		"beta":  mustHash(t, "treino2025"),
	})
	if err != nil {
		t.Fatalf("NewBcryptVerifier: %v", err)
	}
	ctx := context.Background()
	if ok, err := v.Verify(ctx, "beta", "treino2025"); err != nil || !ok {
		t.Errorf("valid pair rejected: %v, %v", ok, err)
	}
	for _, pair := range rejectedPairs {
		if ok, _ := v.Verify(ctx, pair[0], pair[1]); ok {
			t.Errorf("Verify(%q, %q) accepted", pair[0], pair[1])
		}
	}
}

func TestBcryptVerifier_RejectsPlainTable(t *testing.T) {
	if _, err := NewBcryptVerifier(map[string]string{"admin": "homebrew"}); err == nil {
		t.Fatal("expected an error for a non-bcrypt entry")
	}
}

type fakeUsers struct {
	users map[string]*model.User
	err   error
}

func (f fakeUsers) GetByUsername(username string) (*model.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	return f.users[username], nil
}

func TestUserRepositoryVerifier(t *testing.T) {
	v := NewUserRepositoryVerifier(fakeUsers{users: map[string]*model.User{
		"admin": {Username: "admin", PasswordHash: mustHash(t, "homebrew")},
	}})
	ctx := context.Background()

	if ok, err := v.Verify(ctx, "admin", "homebrew"); err != nil || !ok {
		t.Errorf("valid pair rejected: %v, %v", ok, err)
	}
	if ok, _ := v.Verify(ctx, "admin", "nope"); ok {
		t.Error("wrong secret accepted")
	}
	if ok, _ := v.Verify(ctx, "ghost", "homebrew"); ok {
		t.Error("unknown user accepted")
	}

	broken := NewUserRepositoryVerifier(fakeUsers{err: errors.New("db down")})
	if ok, err := broken.Verify(ctx, "admin", "homebrew"); ok || err == nil {
		t.Errorf("backend failure should surface as error, got %v, %v", ok, err)
	}
}
