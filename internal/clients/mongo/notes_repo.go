package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"notemesh/internal/logger"
	"notemesh/internal/services/notes"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// NotesRepo implements the notes.Repository interface for MongoDB
type NotesRepo struct {
	collection *mongo.Collection
}

// translateNotFound maps the driver ErrNoDocuments to the domain-level ErrNoteNotFound.
func translateNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return notes.ErrNoteNotFound
	}
	return err
}

// NewNotesRepo creates a new notes repository
func NewNotesRepo(parentCtx context.Context, db *mongo.Database) (*NotesRepo, error) {
	collection := db.Collection("notes")

	indexes := []mongo.IndexModel{
		// Default listing order per owner
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "created_at", Value: -1},
				{Key: "_id", Value: -1},
			},
		},
		// Tag filter queries
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "tags", Value: 1},
			},
		},
		// Text search over title and content
		{
			Keys: bson.D{
				{Key: "title", Value: "text"},
				{Key: "content", Value: "text"},
			},
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	for _, indexModel := range indexes {
		_, err := collection.Indexes().CreateOne(ctx, indexModel)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				logger.L().Debug("index already exists, continuing", "collection", "notes")
			} else {
				logger.L().Error("failed to create index", "collection", "notes", "error", err)
				return nil, fmt.Errorf("failed to create notes collection index: %w", err)
			}
		}
	}

	return &NotesRepo{
		collection: collection,
	}, nil
}

// Create creates a new note in the database
func (r *NotesRepo) Create(ctx context.Context, note *notes.Note) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	now := time.Now()
	note.CreatedAt = now
	note.UpdatedAt = now

	res, err := r.collection.InsertOne(ctx, note)
	if err != nil {
		return err
	}
	if id, ok := res.InsertedID.(bson.ObjectID); ok {
		note.ID = id
	}
	return nil
}

// GetByID fetches a note regardless of owner. Callers gate access themselves.
func (r *NotesRepo) GetByID(ctx context.Context, noteID bson.ObjectID) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var note notes.Note
	err := r.collection.FindOne(ctx, bson.M{"_id": noteID}).Decode(&note)
	if err != nil {
		return nil, translateNotFound(err)
	}

	return &note, nil
}

// GetOwned fetches a note only when the given user owns it
func (r *NotesRepo) GetOwned(ctx context.Context, ownerID, noteID bson.ObjectID) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":      noteID,
		"owner_id": ownerID,
	}

	var note notes.Note
	err := r.collection.FindOne(ctx, filter).Decode(&note)
	if err != nil {
		return nil, translateNotFound(err)
	}

	return &note, nil
}

// ListOwned retrieves one page of a user's own notes, newest first,
// with optional text search and tag filtering.
func (r *NotesRepo) ListOwned(ctx context.Context, ownerID bson.ObjectID, f notes.ListFilter) ([]*notes.Note, int64, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{"owner_id": ownerID}
	addSearchFilter(filter, f.Q)
	addTagsFilter(filter, f.Tags)

	total, err := r.collection.CountDocuments(ctx, filter)
	if err != nil {
		return nil, 0, err
	}

	opts := options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}).
		SetSkip(int64(f.Offset())).
		SetLimit(int64(f.PerPage))

	cursor, err := r.collection.Find(ctx, filter, opts)
	if err != nil {
		return nil, total, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	var notesList []*notes.Note
	if err := cursor.All(ctx, &notesList); err != nil {
		return nil, total, err
	}

	return notesList, total, nil
}

// addSearchFilter adds search conditions to the filter
func addSearchFilter(filter bson.M, query string) {
	if query == "" {
		return
	}

	if len(query) >= 3 {
		// Use MongoDB text search for better performance
		filter["$text"] = bson.M{"$search": query}
	} else {
		// Fall back to regex for short queries
		pattern := regexp.QuoteMeta(query)
		regex := bson.M{"$regex": pattern, "$options": "i"}
		filter["$or"] = bson.A{
			bson.M{"title": regex},
			bson.M{"content": regex},
		}
	}
}

// addTagsFilter requires every listed tag to be present on the note
func addTagsFilter(filter bson.M, tags []string) {
	if len(tags) == 0 {
		return
	}
	filter["tags"] = bson.M{"$all": tags}
}

// Update updates a note belonging to the specified user
func (r *NotesRepo) Update(ctx context.Context, ownerID, noteID bson.ObjectID, patch notes.UpdateNote) (*notes.Note, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":      noteID,
		"owner_id": ownerID,
	}

	set := bson.M{
		"updated_at": time.Now().UTC(),
	}
	if patch.Title != nil {
		set["title"] = *patch.Title
	}
	if patch.Content != nil {
		set["content"] = *patch.Content
	}
	if patch.Tags != nil {
		set["tags"] = patch.Tags
	}
	if patch.Pinned != nil {
		set["pinned"] = *patch.Pinned
	}

	// Skip the write when only updated_at would change
	if len(set) == 1 {
		var existingNote notes.Note
		err := r.collection.FindOne(ctx, filter).Decode(&existingNote)
		if err != nil {
			return nil, translateNotFound(err)
		}
		return &existingNote, nil
	}

	opts := options.FindOneAndUpdate().SetReturnDocument(options.After)

	var updatedNote notes.Note
	err := r.collection.FindOneAndUpdate(ctx, filter, bson.M{"$set": set}, opts).Decode(&updatedNote)
	if err != nil {
		return nil, translateNotFound(err)
	}

	return &updatedNote, nil
}

// Delete deletes a note belonging to the specified user
func (r *NotesRepo) Delete(ctx context.Context, ownerID, noteID bson.ObjectID) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"_id":      noteID,
		"owner_id": ownerID,
	}

	result, err := r.collection.DeleteOne(ctx, filter)
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return notes.ErrNoteNotFound
	}

	return nil
}

// ListTags returns the distinct tags across a user's own notes
func (r *NotesRepo) ListTags(ctx context.Context, ownerID bson.ObjectID) ([]string, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	res := r.collection.Distinct(ctx, "tags", bson.M{"owner_id": ownerID})
	if err := res.Err(); err != nil {
		return nil, err
	}

	var tags []string
	if err := res.Decode(&tags); err != nil {
		return nil, err
	}

	return tags, nil
}
