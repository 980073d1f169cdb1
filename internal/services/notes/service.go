package notes

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"notemesh/internal/utils/sanitize"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service handles notes business logic
type Service struct {
	repo   Repository
	shares ShareStore
	log    *slog.Logger
}

// NewService creates a new notes service
func NewService(repo Repository, shares ShareStore, log *slog.Logger) *Service {
	return &Service{
		repo:   repo,
		shares: shares,
		log:    log,
	}
}

// CreateNoteRequest represents a note creation request
type CreateNoteRequest struct {
	Title   string   `json:"title" validate:"required,min=1,max=200" example:"Groceries"`
	Content string   `json:"content" validate:"required" example:"milk, eggs"`
	Tags    []string `json:"tags" validate:"omitempty,max=20" example:"shopping"`
}

// UpdateNoteRequest represents a note update request
type UpdateNoteRequest struct {
	Title   *string  `json:"title,omitempty" validate:"omitempty,min=1,max=200"`
	Content *string  `json:"content,omitempty" validate:"omitempty,min=1"`
	Tags    []string `json:"tags,omitempty" validate:"omitempty,max=20"`
	Pinned  *bool    `json:"pinned,omitempty"`
}

// NoteResponse represents a single note response
type NoteResponse struct {
	Note       *Note `json:"note"`
	ShareCount int64 `json:"share_count"`
}

// TagsResponse lists the distinct tags across a user's notes
type TagsResponse struct {
	Tags []string `json:"tags"`
}

// Create creates a new note owned by the user
func (s *Service) Create(ctx context.Context, userID bson.ObjectID, req CreateNoteRequest) (*NoteResponse, error) {
	content := sanitize.Clean(req.Content)
	tags, err := NormalizeTags(req.Tags, content)
	if err != nil {
		return nil, err
	}

	now := time.Now()
	note := &Note{
		ID:        bson.NewObjectID(),
		OwnerID:   userID,
		Title:     sanitize.Clean(req.Title),
		Content:   content,
		Tags:      tags,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := s.repo.Create(ctx, note); err != nil {
		s.log.Error(ErrCreateNote.Error(), "error", err, "user_id", userID.Hex())
		return nil, ErrCreateNote
	}

	return &NoteResponse{Note: note}, nil
}

// Get returns a note the user owns. Shared access goes through the sharing
// service's fallback path instead, so a miss here is always not-found.
func (s *Service) Get(ctx context.Context, userID, noteID bson.ObjectID) (*NoteResponse, error) {
	note, err := s.repo.GetOwned(ctx, userID, noteID)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			return nil, ErrNoteNotFound
		}
		s.log.Error("failed to load note", "error", err, "user_id", userID.Hex(), "note_id", noteID.Hex())
		return nil, err
	}

	shareCount, err := s.shares.CountByNote(ctx, noteID)
	if err != nil {
		s.log.Warn("failed to count shares for note", "error", err, "note_id", noteID.Hex())
		shareCount = 0
	}

	return &NoteResponse{Note: note, ShareCount: shareCount}, nil
}

// Update updates a note belonging to the user
func (s *Service) Update(ctx context.Context, userID, noteID bson.ObjectID, req UpdateNoteRequest) (*NoteResponse, error) {
	patch := UpdateNote{Pinned: req.Pinned}

	if req.Title != nil {
		cleaned := sanitize.Clean(*req.Title)
		patch.Title = &cleaned
	}
	if req.Content != nil {
		cleaned := sanitize.Clean(*req.Content)
		patch.Content = &cleaned
	}

	// Tag updates consider both the explicit list and hashtags in whichever
	// content version will end up stored.
	if req.Tags != nil || req.Content != nil {
		content := ""
		if patch.Content != nil {
			content = *patch.Content
		} else {
			existing, err := s.repo.GetOwned(ctx, userID, noteID)
			if err != nil {
				return nil, translateUpdateErr(err)
			}
			content = existing.Content
		}

		explicit := req.Tags
		if explicit == nil {
			existing, err := s.repo.GetOwned(ctx, userID, noteID)
			if err != nil {
				return nil, translateUpdateErr(err)
			}
			explicit = existing.Tags
		}

		tags, err := NormalizeTags(explicit, content)
		if err != nil {
			return nil, err
		}
		patch.Tags = tags
	}

	updatedNote, err := s.repo.Update(ctx, userID, noteID, patch)
	if err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			s.log.Info("note not found for update", "user_id", userID.Hex(), "note_id", noteID.Hex())
			return nil, ErrNoteNotFound
		}
		s.log.Error(ErrUpdateNote.Error(), "error", err, "user_id", userID.Hex(), "note_id", noteID.Hex())
		return nil, ErrUpdateNote
	}

	shareCount, err := s.shares.CountByNote(ctx, noteID)
	if err != nil {
		s.log.Warn("failed to count shares for note", "error", err, "note_id", noteID.Hex())
		shareCount = 0
	}

	return &NoteResponse{Note: updatedNote, ShareCount: shareCount}, nil
}

// Delete deletes a note belonging to the user and revokes all of its shares.
func (s *Service) Delete(ctx context.Context, userID, noteID bson.ObjectID) error {
	if err := s.repo.Delete(ctx, userID, noteID); err != nil {
		if errors.Is(err, ErrNoteNotFound) {
			s.log.Info("note not found for delete", "user_id", userID.Hex(), "note_id", noteID.Hex())
			return ErrNoteNotFound
		}
		s.log.Error(ErrDeleteNote.Error(), "error", err, "user_id", userID.Hex(), "note_id", noteID.Hex())
		return ErrDeleteNote
	}

	// Cascade: a deleted note must not keep granting access.
	removed, err := s.shares.DeleteByNote(ctx, noteID)
	if err != nil {
		s.log.Error("failed to delete shares for note", "error", err, "note_id", noteID.Hex())
		return ErrDeleteNote
	}
	if removed > 0 {
		s.log.Info("revoked shares for deleted note", "note_id", noteID.Hex(), "count", removed)
	}

	return nil
}

// Tags lists the distinct tags across the user's notes
func (s *Service) Tags(ctx context.Context, userID bson.ObjectID) (*TagsResponse, error) {
	tags, err := s.repo.ListTags(ctx, userID)
	if err != nil {
		s.log.Error(ErrListTags.Error(), "error", err, "user_id", userID.Hex())
		return nil, ErrListTags
	}
	if tags == nil {
		tags = []string{}
	}
	return &TagsResponse{Tags: tags}, nil
}

func translateUpdateErr(err error) error {
	if errors.Is(err, ErrNoteNotFound) {
		return ErrNoteNotFound
	}
	return ErrUpdateNote
}
