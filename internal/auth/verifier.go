// Package auth holds the pluggable credential backends behind the login gate.
package auth

import (
	"context"
	"crypto/subtle"
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"

	"mentor-ai/internal/model"
)

// CredentialVerifier checks an identifier/secret pair. A mismatch is
// (false, nil); errors are reserved for backend failures.
type CredentialVerifier interface {
	Verify(ctx context.Context, id, secret string) (bool, error)
}

// dummyHash keeps the bcrypt cost paid for unknown identifiers so response
// time does not reveal which field was wrong.
var dummyHash, _ = bcrypt.GenerateFromPassword([]byte("mentor-ai-dummy-secret"), bcrypt.MinCost)

// StaticVerifier compares against a plain-text table from configuration.
type StaticVerifier struct {
	users map[string]string
}

func NewStaticVerifier(users map[string]string) *StaticVerifier {
	copied := make(map[string]string, len(users))
	for k, v := range users {
		copied[k] = v
	}
	return &StaticVerifier{users: copied}
}

func (v *StaticVerifier) Verify(ctx context.Context, id, secret string) (bool, error) {
	expected, ok := v.users[id]
	if !ok {
		subtle.ConstantTimeCompare([]byte(secret), []byte(secret))
		return false, nil
	}
	return subtle.ConstantTimeCompare([]byte(expected), []byte(secret)) == 1, nil
}

// BcryptVerifier compares against a table of bcrypt hashes from configuration.
type BcryptVerifier struct {
	hashes map[string][]byte
}

func NewBcryptVerifier(hashes map[string]string) (*BcryptVerifier, error) {
	out := make(map[string][]byte, len(hashes))
	for id, h := range hashes {
		if _, err := bcrypt.Cost([]byte(h)); err != nil {
			return nil, fmt.Errorf("invalid bcrypt hash for %q: %w", id, err)
		}
		out[id] = []byte(h)
	}
	return &BcryptVerifier{hashes: out}, nil
}

func (v *BcryptVerifier) Verify(ctx context.Context, id, secret string) (bool, error) {
	hash, ok := v.hashes[id]
	if !ok {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return false, nil
	}
	return compareHash(hash, secret)
}

type UserLookup interface {
	GetByUsername(username string) (*model.User, error)
}

// UserRepositoryVerifier checks bcrypt hashes stored in the users table.
type UserRepositoryVerifier struct {
	users UserLookup
}

func NewUserRepositoryVerifier(users UserLookup) *UserRepositoryVerifier {
	return &UserRepositoryVerifier{users: users}
}

func (v *UserRepositoryVerifier) Verify(ctx context.Context, id, secret string) (bool, error) {
	user, err := v.users.GetByUsername(id)
	if err != nil {
		return false, err
	}
	if user == nil {
		_ = bcrypt.CompareHashAndPassword(dummyHash, []byte(secret))
		return false, nil
	}
	return compareHash([]byte(user.PasswordHash), secret)
}

func compareHash(hash []byte, secret string) (bool, error) {
	err := bcrypt.CompareHashAndPassword(hash, []byte(secret))
	if errors.Is(err, bcrypt.ErrMismatchedHashAndPassword) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("compare password hash failed: %w", err)
	}
	return true, nil
}
