package mongo

import (
	"context"
	"errors"
	"fmt"
	"regexp"
	"time"

	"notemesh/internal/logger"
	"notemesh/internal/services/notes"
	"notemesh/internal/services/sharing"

	"go.mongodb.org/mongo-driver/v2/bson"
	"go.mongodb.org/mongo-driver/v2/mongo"
	"go.mongodb.org/mongo-driver/v2/mongo/options"
)

// SharesRepo implements the sharing.Repository interface for MongoDB
type SharesRepo struct {
	collection *mongo.Collection
}

func translateShareNotFound(err error) error {
	if errors.Is(err, mongo.ErrNoDocuments) {
		return sharing.ErrShareNotFound
	}
	return err
}

// NewSharesRepo creates a new shares repository
func NewSharesRepo(parentCtx context.Context, db *mongo.Database) (*SharesRepo, error) {
	collection := db.Collection("shares")

	indexes := []mongo.IndexModel{
		// One share per (note, recipient) pair; Upsert relies on this.
		{
			Keys: bson.D{
				{Key: "note_id", Value: 1},
				{Key: "recipient_id", Value: 1},
			},
			Options: options.Index().SetUnique(true),
		},
		// Given-shares listing
		{
			Keys: bson.D{
				{Key: "owner_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
		// Received-shares listing
		{
			Keys: bson.D{
				{Key: "recipient_id", Value: 1},
				{Key: "created_at", Value: -1},
			},
		},
	}

	ctx, cancel := context.WithTimeout(parentCtx, OpTimeout)
	defer cancel()

	for _, indexModel := range indexes {
		_, err := collection.Indexes().CreateOne(ctx, indexModel)
		if err != nil {
			if mongo.IsDuplicateKeyError(err) {
				logger.L().Debug("index already exists, continuing", "collection", "shares")
			} else {
				logger.L().Error("failed to create index", "collection", "shares", "error", err)
				return nil, fmt.Errorf("failed to create shares collection index: %w", err)
			}
		}
	}

	return &SharesRepo{
		collection: collection,
	}, nil
}

// Upsert inserts a share or, when the (note, recipient) pair already exists,
// refreshes its permission and message. The stored document after the write
// is returned either way.
func (r *SharesRepo) Upsert(ctx context.Context, share *sharing.Share) (*sharing.Share, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"note_id":      share.NoteID,
		"recipient_id": share.RecipientID,
	}

	now := time.Now().UTC()
	update := bson.M{
		"$set": bson.M{
			"permission": share.Permission,
			"message":    share.Message,
			"updated_at": now,
		},
		"$setOnInsert": bson.M{
			"note_id":            share.NoteID,
			"owner_id":           share.OwnerID,
			"recipient_id":       share.RecipientID,
			"recipient_username": share.RecipientUsername,
			"created_at":         now,
		},
	}

	opts := options.FindOneAndUpdate().
		SetUpsert(true).
		SetReturnDocument(options.After)

	var stored sharing.Share
	if err := r.collection.FindOneAndUpdate(ctx, filter, update, opts).Decode(&stored); err != nil {
		return nil, err
	}

	return &stored, nil
}

// GetByID fetches a share by id
func (r *SharesRepo) GetByID(ctx context.Context, shareID bson.ObjectID) (*sharing.Share, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	var share sharing.Share
	err := r.collection.FindOne(ctx, bson.M{"_id": shareID}).Decode(&share)
	if err != nil {
		return nil, translateShareNotFound(err)
	}

	return &share, nil
}

// GetReceived fetches the share granting a recipient access to a note
func (r *SharesRepo) GetReceived(ctx context.Context, noteID, recipientID bson.ObjectID) (*sharing.Share, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	filter := bson.M{
		"note_id":      noteID,
		"recipient_id": recipientID,
	}

	var share sharing.Share
	err := r.collection.FindOne(ctx, filter).Decode(&share)
	if err != nil {
		return nil, translateShareNotFound(err)
	}

	return &share, nil
}

// Delete removes a share by id
func (r *SharesRepo) Delete(ctx context.Context, shareID bson.ObjectID) error {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	result, err := r.collection.DeleteOne(ctx, bson.M{"_id": shareID})
	if err != nil {
		return err
	}

	if result.DeletedCount == 0 {
		return sharing.ErrShareNotFound
	}

	return nil
}

// ListGiven retrieves one page of the shares a user granted, newest first,
// each joined with the current note snapshot and the owner's username.
func (r *SharesRepo) ListGiven(ctx context.Context, ownerID bson.ObjectID, page, perPage int) ([]*sharing.AnnotatedShare, int64, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	match := bson.M{"owner_id": ownerID}

	total, err := r.collection.CountDocuments(ctx, match)
	if err != nil {
		return nil, 0, err
	}

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: match}},
		{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
		{{Key: "$skip", Value: int64(pageOffset(page, perPage))}},
		{{Key: "$limit", Value: int64(perPage)}},
	}
	pipeline = append(pipeline, annotateStages()...)

	shares, err := r.aggregateAnnotated(ctx, pipeline)
	if err != nil {
		return nil, total, err
	}

	return shares, total, nil
}

// ListReceived retrieves one page of the shares granted to a user, newest
// first, each joined with the current note snapshot and the owner's
// username. The filter's search and tags apply to the joined note, so the
// result can feed the unified listing directly.
func (r *SharesRepo) ListReceived(ctx context.Context, recipientID bson.ObjectID, f notes.ListFilter) ([]*sharing.AnnotatedShare, int64, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	base := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"recipient_id": recipientID}}},
	}
	base = append(base, annotateStages()...)
	if noteMatch := receivedNoteMatch(f); noteMatch != nil {
		base = append(base, bson.D{{Key: "$match", Value: noteMatch}})
	}

	total, err := r.countPipeline(ctx, base)
	if err != nil {
		return nil, 0, err
	}

	pipeline := append(mongo.Pipeline{}, base...)
	pipeline = append(pipeline,
		bson.D{{Key: "$sort", Value: bson.D{{Key: "created_at", Value: -1}, {Key: "_id", Value: -1}}}},
	)
	if f.PerPage > 0 {
		pipeline = append(pipeline,
			bson.D{{Key: "$skip", Value: int64(f.Offset())}},
			bson.D{{Key: "$limit", Value: int64(f.PerPage)}},
		)
	}

	shares, err := r.aggregateAnnotated(ctx, pipeline)
	if err != nil {
		return nil, total, err
	}

	return shares, total, nil
}

// annotateStages joins the current note and resolves the owner's username.
// Shares whose note has been deleted keep a nil note rather than vanishing
// mid-pipeline; callers decide what to do with them.
func annotateStages() []bson.D {
	return []bson.D{
		{{Key: "$lookup", Value: bson.M{
			"from":         "notes",
			"localField":   "note_id",
			"foreignField": "_id",
			"as":           "note",
		}}},
		{{Key: "$unwind", Value: bson.M{
			"path":                       "$note",
			"preserveNullAndEmptyArrays": true,
		}}},
		{{Key: "$lookup", Value: bson.M{
			"from":         "users",
			"localField":   "owner_id",
			"foreignField": "_id",
			"as":           "owner",
		}}},
		{{Key: "$addFields", Value: bson.M{
			"owner_username": bson.M{"$arrayElemAt": bson.A{"$owner.username", 0}},
		}}},
		{{Key: "$project", Value: bson.M{"owner": 0}}},
	}
}

// receivedNoteMatch builds the post-join filter on the note's content
func receivedNoteMatch(f notes.ListFilter) bson.M {
	match := bson.M{}
	if len(f.Tags) > 0 {
		match["note.tags"] = bson.M{"$all": f.Tags}
	}
	if f.Q != "" {
		// $text is unavailable after a $lookup, so search falls back to
		// a case-insensitive regex on the joined note.
		pattern := regexp.QuoteMeta(f.Q)
		regex := bson.M{"$regex": pattern, "$options": "i"}
		match["$or"] = bson.A{
			bson.M{"note.title": regex},
			bson.M{"note.content": regex},
		}
	}
	if len(match) == 0 {
		return nil
	}
	return match
}

func (r *SharesRepo) countPipeline(ctx context.Context, base mongo.Pipeline) (int64, error) {
	pipeline := append(mongo.Pipeline{}, base...)
	pipeline = append(pipeline, bson.D{{Key: "$count", Value: "total"}})

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return 0, err
	}
	defer cursor.Close(ctx)

	var results []struct {
		Total int64 `bson:"total"`
	}
	if err := cursor.All(ctx, &results); err != nil {
		return 0, err
	}
	if len(results) == 0 {
		return 0, nil
	}
	return results[0].Total, nil
}

func (r *SharesRepo) aggregateAnnotated(ctx context.Context, pipeline mongo.Pipeline) ([]*sharing.AnnotatedShare, error) {
	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer func(ctxToClose context.Context) {
		if cerr := cursor.Close(ctxToClose); cerr != nil {
			logger.L().Error("failed to close cursor", "error", cerr)
		}
	}(ctx)

	var shares []*sharing.AnnotatedShare
	if err := cursor.All(ctx, &shares); err != nil {
		return nil, err
	}

	return shares, nil
}

// CountByNote counts how many active shares a note has
func (r *SharesRepo) CountByNote(ctx context.Context, noteID bson.ObjectID) (int64, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	return r.collection.CountDocuments(ctx, bson.M{"note_id": noteID})
}

// CountsByNotes counts active shares for a batch of notes in one query.
// Notes with no shares are simply absent from the result map.
func (r *SharesRepo) CountsByNotes(ctx context.Context, noteIDs []bson.ObjectID) (map[bson.ObjectID]int64, error) {
	if len(noteIDs) == 0 {
		return map[bson.ObjectID]int64{}, nil
	}

	ctx, cancel := repoCtx(ctx)
	defer cancel()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"note_id": bson.M{"$in": noteIDs}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   "$note_id",
			"count": bson.M{"$sum": 1},
		}}},
	}

	cursor, err := r.collection.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, err
	}
	defer cursor.Close(ctx)

	var rows []struct {
		NoteID bson.ObjectID `bson:"_id"`
		Count  int64         `bson:"count"`
	}
	if err := cursor.All(ctx, &rows); err != nil {
		return nil, err
	}

	counts := make(map[bson.ObjectID]int64, len(rows))
	for _, row := range rows {
		counts[row.NoteID] = row.Count
	}

	return counts, nil
}

// DeleteByNote removes every share of a note and reports how many went away
func (r *SharesRepo) DeleteByNote(ctx context.Context, noteID bson.ObjectID) (int64, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	result, err := r.collection.DeleteMany(ctx, bson.M{"note_id": noteID})
	if err != nil {
		return 0, err
	}

	return result.DeletedCount, nil
}

// Stats summarizes a user's sharing activity
func (r *SharesRepo) Stats(ctx context.Context, userID bson.ObjectID) (*sharing.Stats, error) {
	ctx, cancel := repoCtx(ctx)
	defer cancel()

	given, err := r.collection.CountDocuments(ctx, bson.M{"owner_id": userID})
	if err != nil {
		return nil, err
	}

	received, err := r.collection.CountDocuments(ctx, bson.M{"recipient_id": userID})
	if err != nil {
		return nil, err
	}

	res := r.collection.Distinct(ctx, "note_id", bson.M{"owner_id": userID})
	if err := res.Err(); err != nil {
		return nil, err
	}
	var uniqueNotes []bson.ObjectID
	if err := res.Decode(&uniqueNotes); err != nil {
		return nil, err
	}

	return &sharing.Stats{
		SharesGiven:       given,
		SharesReceived:    received,
		UniqueNotesShared: int64(len(uniqueNotes)),
	}, nil
}

func pageOffset(page, perPage int) int {
	if page < 1 {
		return 0
	}
	return (page - 1) * perPage
}
