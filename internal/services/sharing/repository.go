package sharing

import (
	"context"

	"notemesh/internal/services/auth"
	"notemesh/internal/services/notes"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Repository defines the interface for share repository operations.
// Upsert enforces the (note, recipient) uniqueness: re-sharing the same pair
// updates permission and message instead of inserting a duplicate.
type Repository interface {
	Upsert(ctx context.Context, share *Share) (*Share, error)
	GetByID(ctx context.Context, shareID bson.ObjectID) (*Share, error)
	GetReceived(ctx context.Context, noteID, recipientID bson.ObjectID) (*Share, error)
	Delete(ctx context.Context, shareID bson.ObjectID) error
	ListGiven(ctx context.Context, ownerID bson.ObjectID, page, perPage int) ([]*AnnotatedShare, int64, error)
	ListReceived(ctx context.Context, recipientID bson.ObjectID, f notes.ListFilter) ([]*AnnotatedShare, int64, error)
	CountByNote(ctx context.Context, noteID bson.ObjectID) (int64, error)
	CountsByNotes(ctx context.Context, noteIDs []bson.ObjectID) (map[bson.ObjectID]int64, error)
	DeleteByNote(ctx context.Context, noteID bson.ObjectID) (int64, error)
	Stats(ctx context.Context, userID bson.ObjectID) (*Stats, error)
}

// UsersDirectory resolves recipients by username and owners by id.
type UsersDirectory interface {
	FindByUsername(ctx context.Context, username string) (*auth.User, error)
	FindByID(ctx context.Context, id bson.ObjectID) (*auth.User, error)
}

// NotesDirectory is the slice of the note store the sharing service needs.
type NotesDirectory interface {
	GetByID(ctx context.Context, noteID bson.ObjectID) (*notes.Note, error)
	GetOwned(ctx context.Context, ownerID, noteID bson.ObjectID) (*notes.Note, error)
}
