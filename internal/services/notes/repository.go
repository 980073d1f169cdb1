package notes

import (
	"context"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Repository defines the interface for notes repository operations
type Repository interface {
	Create(ctx context.Context, n *Note) error
	GetByID(ctx context.Context, noteID bson.ObjectID) (*Note, error)
	GetOwned(ctx context.Context, ownerID, noteID bson.ObjectID) (*Note, error)
	ListOwned(ctx context.Context, ownerID bson.ObjectID, filter ListFilter) ([]*Note, int64, error)
	Update(ctx context.Context, ownerID, noteID bson.ObjectID, patch UpdateNote) (*Note, error)
	Delete(ctx context.Context, ownerID, noteID bson.ObjectID) error
	ListTags(ctx context.Context, ownerID bson.ObjectID) ([]string, error)
}

// ShareStore is the slice of the share registry the notes service needs:
// cascade cleanup on note deletion and share counts for owner views.
type ShareStore interface {
	DeleteByNote(ctx context.Context, noteID bson.ObjectID) (int64, error)
	CountByNote(ctx context.Context, noteID bson.ObjectID) (int64, error)
}
