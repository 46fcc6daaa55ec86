package database

import (
	"context"

	"checkin-app/internal/models"
)

type UserRepository interface {
	GetOrCreateUserByUsername(ctx context.Context, username string) (*models.User, error)
	GetUserByID(ctx context.Context, id int) (*models.User, error)
}

type Database interface {
	UserRepository
	Close() error
}
