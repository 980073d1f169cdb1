package sharing

import (
	"context"
	"errors"
	"log/slog"
	"strings"
	"time"

	"notemesh/internal/services/auth"
	"notemesh/internal/services/notes"
	"notemesh/internal/utils/crypto"
	"notemesh/internal/utils/sanitize"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/sync/errgroup"
)

// Service handles the share registry business logic
type Service struct {
	repo     Repository
	users    UsersDirectory
	notesDir NotesDirectory
	log      *slog.Logger
}

// NewService creates a new sharing service
func NewService(repo Repository, users UsersDirectory, notesDir NotesDirectory, log *slog.Logger) *Service {
	return &Service{
		repo:     repo,
		users:    users,
		notesDir: notesDir,
		log:      log,
	}
}

// CreateSharesRequest shares one note with one or more recipients.
// Permission is accepted for wire compatibility but shares are always
// created at read level; see CreateShares.
type CreateSharesRequest struct {
	NoteID     string   `json:"note_id" validate:"required" example:"683cdb8aa96ad71e8e075bd1"`
	Usernames  []string `json:"shared_with_usernames" validate:"required,min=1,max=20,dive,username" example:"bob"`
	Permission string   `json:"permission_level" validate:"omitempty,oneof=read write" example:"read"`
	Message    string   `json:"message" validate:"omitempty,max=500"`
}

// ShareFailure names a recipient that could not be shared with and why.
type ShareFailure struct {
	Username string `json:"username" example:"charlie"`
	Reason   string `json:"reason" example:"recipient not found"`
}

// CreateSharesResponse is the combined result of a batch share request.
// Some recipients may fail while others succeed; the two sets are reported
// distinctly and one failure never rolls back another recipient's share.
type CreateSharesResponse struct {
	Shares       []*Share       `json:"shares"`
	Failed       []ShareFailure `json:"failed"`
	SuccessCount int            `json:"success_count"`
}

// ListSharesRequest selects a page of given or received shares
type ListSharesRequest struct {
	Type    string `query:"type" validate:"omitempty,oneof=given received" example:"given"`
	Page    int    `query:"page" validate:"omitempty,min=1" example:"1"`
	PerPage int    `query:"per_page" validate:"omitempty,min=1,max=100" example:"20"`
}

// ListSharesResponse is one page of shares plus pagination totals
type ListSharesResponse struct {
	Shares     []*AnnotatedShare `json:"shares"`
	TotalCount int64             `json:"total_count"`
	Page       int               `json:"page"`
	PerPage    int               `json:"per_page"`
	TotalPages int64             `json:"total_pages"`
	Type       string            `json:"type"`
}

// SharedNoteResponse is the recipient-side view of a shared note, normalized
// into the canonical note shape plus the effective permission.
type SharedNoteResponse struct {
	Note          *notes.Note `json:"note"`
	OwnerUsername string      `json:"owner_username"`
	Permission    Permission  `json:"permission"`
	CanEdit       bool        `json:"can_edit"`
	CanShare      bool        `json:"can_share"`
}

// CreateShares shares a note with each named recipient. Recipients are
// processed concurrently and the call waits for every one to settle, so the
// response always accounts for the full batch.
//
// Shares are created at read permission regardless of the requested level;
// granting write through this flow is a deliberate product restriction.
// Re-sharing an existing (note, recipient) pair updates the stored share
// rather than duplicating it.
func (s *Service) CreateShares(ctx context.Context, ownerID bson.ObjectID, req CreateSharesRequest) (*CreateSharesResponse, error) {
	noteID, err := bson.ObjectIDFromHex(req.NoteID)
	if err != nil {
		return nil, notes.ErrNoteNotFound
	}

	// Only the owner may share, and only an existing note.
	note, err := s.notesDir.GetOwned(ctx, ownerID, noteID)
	if err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			return nil, notes.ErrNoteNotFound
		}
		s.log.Error(ErrCreateShare.Error(), "error", err, "note_id", noteID.Hex())
		return nil, ErrCreateShare
	}

	if req.Permission != "" && Permission(req.Permission) != PermissionRead {
		s.log.Info("downgrading requested share permission to read",
			"requested", req.Permission, "note_id", noteID.Hex(), "owner_id", ownerID.Hex())
	}

	usernames := dedupeUsernames(req.Usernames)
	message := sanitize.Clean(req.Message)

	type outcome struct {
		share   *Share
		failure *ShareFailure
	}
	outcomes := make([]outcome, len(usernames))

	g, gctx := errgroup.WithContext(ctx)
	for i, username := range usernames {
		g.Go(func() error {
			share, reason := s.shareWithRecipient(gctx, ownerID, note, username, message)
			if reason != "" {
				outcomes[i] = outcome{failure: &ShareFailure{Username: username, Reason: reason}}
				return nil
			}
			outcomes[i] = outcome{share: share}
			return nil
		})
	}
	// Goroutines report per-recipient failures through outcomes, never as
	// errors, so Wait cannot fail and no recipient aborts the batch.
	_ = g.Wait()

	resp := &CreateSharesResponse{
		Shares: make([]*Share, 0, len(usernames)),
		Failed: make([]ShareFailure, 0),
	}
	for _, o := range outcomes {
		switch {
		case o.share != nil:
			resp.Shares = append(resp.Shares, o.share)
		case o.failure != nil:
			resp.Failed = append(resp.Failed, *o.failure)
		}
	}
	resp.SuccessCount = len(resp.Shares)

	if len(resp.Failed) > 0 {
		s.log.Warn("batch share completed with failures",
			"note_id", noteID.Hex(), "succeeded", resp.SuccessCount, "failed", len(resp.Failed))
	}

	return resp, nil
}

// shareWithRecipient resolves one recipient and upserts the share.
// A non-empty reason means the recipient failed.
func (s *Service) shareWithRecipient(ctx context.Context, ownerID bson.ObjectID, note *notes.Note, username, message string) (*Share, string) {
	if !crypto.IsValidUsername(username) {
		return nil, ErrInvalidUsername.Error()
	}

	recipient, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		if errors.Is(err, auth.ErrUserNotFound) {
			return nil, ErrRecipientNotFound.Error()
		}
		s.log.Error("recipient lookup failed", "error", err, "username", username)
		return nil, ErrCreateShare.Error()
	}

	if recipient.ID == ownerID {
		return nil, ErrSelfShare.Error()
	}

	now := time.Now()
	share := &Share{
		NoteID:            note.ID,
		OwnerID:           ownerID,
		RecipientID:       recipient.ID,
		RecipientUsername: recipient.Username,
		Permission:        PermissionRead,
		Message:           message,
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	stored, err := s.repo.Upsert(ctx, share)
	if err != nil {
		s.log.Error(ErrCreateShare.Error(), "error", err, "note_id", note.ID.Hex(), "recipient", username)
		return nil, ErrCreateShare.Error()
	}

	return stored, ""
}

// Revoke deletes a share. Only the note owner may revoke; revoking an
// unknown or already-revoked share id reports not-found rather than failing
// destructively, so revocation is safe to retry.
func (s *Service) Revoke(ctx context.Context, userID, shareID bson.ObjectID) error {
	share, err := s.repo.GetByID(ctx, shareID)
	if err != nil {
		if errors.Is(err, ErrShareNotFound) {
			return ErrShareNotFound
		}
		s.log.Error("failed to load share for revoke", "error", err, "share_id", shareID.Hex())
		return err
	}

	if share.OwnerID != userID {
		s.log.Info("revoke denied for non-owner", "share_id", shareID.Hex(), "user_id", userID.Hex())
		return ErrShareForbidden
	}

	if err := s.repo.Delete(ctx, shareID); err != nil {
		if errors.Is(err, ErrShareNotFound) {
			return ErrShareNotFound
		}
		s.log.Error("failed to delete share", "error", err, "share_id", shareID.Hex())
		return err
	}

	return nil
}

// List returns one page of the user's given or received shares
func (s *Service) List(ctx context.Context, userID bson.ObjectID, req ListSharesRequest) (*ListSharesResponse, error) {
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 || req.PerPage > 100 {
		req.PerPage = 20
	}
	if req.Type == "" {
		req.Type = "given"
	}

	var (
		shares []*AnnotatedShare
		total  int64
		err    error
	)
	switch req.Type {
	case "received":
		shares, total, err = s.repo.ListReceived(ctx, userID, notes.ListFilter{Page: req.Page, PerPage: req.PerPage})
	default:
		shares, total, err = s.repo.ListGiven(ctx, userID, req.Page, req.PerPage)
	}
	if err != nil {
		s.log.Error(ErrListShares.Error(), "error", err, "user_id", userID.Hex(), "type", req.Type)
		return nil, ErrListShares
	}
	if shares == nil {
		shares = []*AnnotatedShare{}
	}

	return &ListSharesResponse{
		Shares:     shares,
		TotalCount: total,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: pageCount(total, req.PerPage),
		Type:       req.Type,
	}, nil
}

// GetSharedNote is the fallback read path for share recipients: it returns
// the current note snapshot with the effective permission, mapping the
// share's write grant onto can_edit. Owners are served too so the endpoint
// can back a generic note view.
func (s *Service) GetSharedNote(ctx context.Context, userID, noteID bson.ObjectID) (*SharedNoteResponse, error) {
	access, share, err := s.noteAccess(ctx, userID, noteID)
	if err != nil {
		return nil, err
	}
	if !access.CanRead {
		// Not-found, not forbidden: existence must not leak to strangers.
		return nil, notes.ErrNoteNotFound
	}

	note, err := s.notesDir.GetByID(ctx, noteID)
	if err != nil {
		if errors.Is(err, notes.ErrNoteNotFound) {
			return nil, notes.ErrNoteNotFound
		}
		s.log.Error("failed to load shared note", "error", err, "note_id", noteID.Hex())
		return nil, err
	}

	ownerUsername := ""
	if owner, err := s.users.FindByID(ctx, note.OwnerID); err == nil {
		ownerUsername = owner.Username
	}

	permission := PermissionRead
	if access.CanWrite {
		permission = PermissionWrite
	}
	if share != nil {
		permission = share.Permission
	}

	return &SharedNoteResponse{
		Note:          note,
		OwnerUsername: ownerUsername,
		Permission:    permission,
		CanEdit:       access.CanWrite,
		CanShare:      access.CanShare,
	}, nil
}

// CheckNoteAccess reports the user's effective permissions on a note.
// No access is a valid answer, not an error.
func (s *Service) CheckNoteAccess(ctx context.Context, userID, noteID bson.ObjectID) (*NoteAccess, error) {
	access, _, err := s.noteAccess(ctx, userID, noteID)
	return access, err
}

// GetStats summarizes the user's sharing activity
func (s *Service) GetStats(ctx context.Context, userID bson.ObjectID) (*Stats, error) {
	stats, err := s.repo.Stats(ctx, userID)
	if err != nil {
		s.log.Error(ErrShareStats.Error(), "error", err, "user_id", userID.Hex())
		return nil, ErrShareStats
	}
	return stats, nil
}

func (s *Service) noteAccess(ctx context.Context, userID, noteID bson.ObjectID) (*NoteAccess, *Share, error) {
	if _, err := s.notesDir.GetOwned(ctx, userID, noteID); err == nil {
		return &NoteAccess{CanRead: true, CanWrite: true, CanShare: true, IsOwner: true}, nil, nil
	} else if !errors.Is(err, notes.ErrNoteNotFound) {
		s.log.Error("owner check failed", "error", err, "note_id", noteID.Hex())
		return nil, nil, err
	}

	share, err := s.repo.GetReceived(ctx, noteID, userID)
	if err != nil {
		if errors.Is(err, ErrShareNotFound) {
			return &NoteAccess{}, nil, nil
		}
		s.log.Error("share lookup failed", "error", err, "note_id", noteID.Hex())
		return nil, nil, err
	}

	return &NoteAccess{
		CanRead:  true,
		CanWrite: share.Permission == PermissionWrite,
	}, share, nil
}

func dedupeUsernames(usernames []string) []string {
	seen := make(map[string]struct{}, len(usernames))
	out := make([]string, 0, len(usernames))
	for _, u := range usernames {
		u = strings.ToLower(strings.TrimSpace(u))
		if u == "" {
			continue
		}
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		out = append(out, u)
	}
	return out
}

func pageCount(total int64, perPage int) int64 {
	if perPage < 1 {
		return 0
	}
	return (total + int64(perPage) - 1) / int64(perPage)
}
