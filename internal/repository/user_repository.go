package repository

import (
	"errors"
	"fmt"

	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"mentor-ai/internal/model"
)

type UserRepository struct {
	db *gorm.DB
}

func NewUserRepository(db *gorm.DB) *UserRepository {
	return &UserRepository{db: db}
}

func (r *UserRepository) Create(user *model.User) error {
	if err := r.db.Create(user).Error; err != nil {
		return fmt.Errorf("create user failed: %w", err)
	}
	return nil
}

func (r *UserRepository) GetByUsername(username string) (*model.User, error) {
	var user model.User
	if err := r.db.Where("username = ?", username).First(&user).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("query user by username failed: %w", err)
	}
	return &user, nil
}

// SeedUsers inserts the configured accounts that are not in the table yet.
// Values may be plain secrets or bcrypt hashes.
func (r *UserRepository) SeedUsers(users map[string]string) (int, error) {
	created := 0
	for username, secret := range users {
		existing, err := r.GetByUsername(username)
		if err != nil {
			return created, err
		}
		if existing != nil {
			continue
		}
		hash := secret
		if _, costErr := bcrypt.Cost([]byte(secret)); costErr != nil {
			generated, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.DefaultCost)
			if err != nil {
				return created, fmt.Errorf("hash password failed: %w", err)
			}
			hash = string(generated)
		}
		if err := r.Create(&model.User{Username: username, PasswordHash: hash}); err != nil {
			return created, err
		}
		created++
	}
	return created, nil
}
