package database

import (
	"context"
	"errors"
	"fmt"

	"pharmacy-pos/internal/models"

	"gorm.io/gorm"
)

var ErrUserExists = errors.New("username already taken")

func (s *Store) FindUserByUsername(ctx context.Context, username string) (*models.User, error) {
	var u models.User
	err := s.db.WithContext(ctx).Where("username = ?", username).First(&u).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find user: %w", err)
	}
	return &u, nil
}

func (s *Store) CreateUser(ctx context.Context, u *models.User) error {
	db := s.db.WithContext(ctx)

	var n int64
	if err := db.Model(&models.User{}).Where("username = ?", u.Username).Count(&n).Error; err != nil {
		return fmt.Errorf("check username: %w", err)
	}
	if n > 0 {
		return ErrUserExists
	}
	if err := db.Create(u).Error; err != nil {
		return fmt.Errorf("create user: %w", err)
	}
	return nil
}
