package auth

import (
	"context"
	"errors"
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// ErrDuplicate is returned when trying to create a user with a username that already exists
var ErrDuplicate = errors.New("user with this username already exists")

// ErrUserNotFound is returned when a user lookup matches nothing
var ErrUserNotFound = errors.New("user not found")

// UsersRepo defines the interface for user repository operations
type UsersRepo interface {
	Create(ctx context.Context, user *User) error
	FindByUsername(ctx context.Context, username string) (*User, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*User, error)
}

// RefreshTokensRepo defines the interface for refresh token persistence
type RefreshTokensRepo interface {
	Create(ctx context.Context, userID bson.ObjectID, rawToken string, expiresAt time.Time) error
	FindActive(ctx context.Context, rawToken string) (*RefreshToken, error)
	Revoke(ctx context.Context, id bson.ObjectID) error
	RevokeAllForUser(ctx context.Context, userID bson.ObjectID) error
}
