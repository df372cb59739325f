package repository

import (
	"context"
	"errors"

	"github.com/oksasatya/finboard/internal/domain/entity"
)

// ErrNotFound is returned when no user matches the lookup.
var ErrNotFound = errors.New("user not found")

// UserRepository defines the interface for user-related database operations.
// Default reads leave PasswordHash empty; only FindByEmailWithSecret selects it.
type UserRepository interface {
	FindByEmail(ctx context.Context, email string) (*entity.User, error)
	FindByEmailWithSecret(ctx context.Context, email string) (*entity.User, error)
	FindByID(ctx context.Context, id string) (*entity.User, error)
	UpsertByEmail(ctx context.Context, u *entity.User) error
}
