package visibility

import (
	"context"
	"errors"
	"log/slog"
	"strings"

	"notemesh/internal/config"
	"notemesh/internal/services/notes"
	"notemesh/internal/services/sharing"

	"go.mongodb.org/mongo-driver/v2/bson"
	"golang.org/x/sync/errgroup"
)

// ErrListNotes masks storage failures of the unified listing
var ErrListNotes = errors.New("failed to list notes")

// NoteSource is the owned-notes side of the unified listing
type NoteSource interface {
	ListOwned(ctx context.Context, ownerID bson.ObjectID, f notes.ListFilter) ([]*notes.Note, int64, error)
}

// ShareSource is the share-backed side of the unified listing
type ShareSource interface {
	ListReceived(ctx context.Context, recipientID bson.ObjectID, f notes.ListFilter) ([]*sharing.AnnotatedShare, int64, error)
	ListGiven(ctx context.Context, ownerID bson.ObjectID, page, perPage int) ([]*sharing.AnnotatedShare, int64, error)
	CountsByNotes(ctx context.Context, noteIDs []bson.ObjectID) (map[bson.ObjectID]int64, error)
}

// Service assembles the unified note listing from its sources
type Service struct {
	notes  NoteSource
	shares ShareSource
	cfg    config.Config
	log    *slog.Logger
}

// NewService creates a new visibility service
func NewService(noteSource NoteSource, shareSource ShareSource, cfg config.Config, log *slog.Logger) *Service {
	return &Service{
		notes:  noteSource,
		shares: shareSource,
		cfg:    cfg,
		log:    log,
	}
}

// List returns one page of the notes visible to the user. With FilterAll the
// owned and shared-with-me sources are queried concurrently and merged,
// owned entries first, each source ordered newest-first.
//
// The two sources fail differently on purpose: the owned source is the
// user's primary data and its failure fails the request, while a failing
// shared source degrades to a partial listing so the user still sees their
// own notes. Duplicates across sources collapse to a single entry with the
// owned relation winning, so an item is never double counted or shown with
// weaker capabilities than the user actually has.
func (s *Service) List(ctx context.Context, userID bson.ObjectID, username string, req ListRequest) (*ListResponse, error) {
	if req.OwnerFilter == "" {
		req.OwnerFilter = FilterAll
	}
	if !req.OwnerFilter.Valid() {
		req.OwnerFilter = FilterAll
	}
	if req.Page < 1 {
		req.Page = 1
	}
	if req.PerPage < 1 {
		req.PerPage = s.cfg.DefaultPageSize
	}
	if req.PerPage > s.cfg.MaxPageSize {
		req.PerPage = s.cfg.MaxPageSize
	}

	filter := notes.ListFilter{
		Q:       strings.TrimSpace(req.Q),
		Tags:    normalizeFilterTags(req.Tags),
		Page:    req.Page,
		PerPage: req.PerPage,
	}

	var (
		owned       []*notes.Note
		ownedTotal  int64
		shared      []*sharing.AnnotatedShare
		sharedTotal int64
		given       []*sharing.AnnotatedShare
		givenTotal  int64
		partial     bool
	)

	g, gctx := errgroup.WithContext(ctx)

	if req.OwnerFilter == FilterAll || req.OwnerFilter == FilterOwned {
		g.Go(func() error {
			var err error
			owned, ownedTotal, err = s.notes.ListOwned(gctx, userID, filter)
			if err != nil {
				s.log.Error("owned notes query failed", "error", err, "user_id", userID.Hex())
				return ErrListNotes
			}
			return nil
		})
	}

	if req.OwnerFilter == FilterAll || req.OwnerFilter == FilterShared {
		g.Go(func() error {
			var err error
			shared, sharedTotal, err = s.shares.ListReceived(gctx, userID, filter)
			if err != nil {
				s.log.Warn("shared notes omitted from listing", "error", err, "user_id", userID.Hex())
				shared, sharedTotal = nil, 0
				partial = true
			}
			return nil
		})
	}

	if req.OwnerFilter == FilterSharedByMe {
		g.Go(func() error {
			var err error
			given, givenTotal, err = s.shares.ListGiven(gctx, userID, req.Page, req.PerPage)
			if err != nil {
				s.log.Warn("given shares omitted from listing", "error", err, "user_id", userID.Hex())
				given, givenTotal = nil, 0
				partial = true
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	items := make([]*VisibleNoteItem, 0, len(owned)+len(shared)+len(given))
	seen := make(map[bson.ObjectID]struct{}, len(owned)+len(shared))

	counts := s.shareCounts(ctx, noteIDsOf(owned))
	for _, n := range owned {
		if _, ok := seen[n.ID]; ok {
			continue
		}
		seen[n.ID] = struct{}{}
		items = append(items, ownedItem(n, username, counts[n.ID]))
	}
	for _, sh := range shared {
		if sh.Note == nil {
			// Share outlived its note; nothing to show.
			sharedTotal--
			continue
		}
		if _, ok := seen[sh.Note.ID]; ok {
			sharedTotal--
			continue
		}
		seen[sh.Note.ID] = struct{}{}
		items = append(items, sharedItem(sh))
	}
	if sharedTotal < 0 {
		sharedTotal = 0
	}

	// A note shared to several recipients appears once per share here, so
	// the given source skips the dedup map.
	givenCounts := s.shareCounts(ctx, shareNoteIDs(given))
	for _, sh := range given {
		if sh.Note == nil {
			givenTotal--
			continue
		}
		items = append(items, givenItem(sh, username, givenCounts[sh.Note.ID]))
	}
	if givenTotal < 0 {
		givenTotal = 0
	}

	total := ownedTotal + sharedTotal + givenTotal
	return &ListResponse{
		Notes:      items,
		TotalCount: total,
		Page:       req.Page,
		PerPage:    req.PerPage,
		TotalPages: pageCount(total, req.PerPage),
		Partial:    partial,
	}, nil
}

// shareCounts resolves how many recipients each note currently has.
// Counts are decoration, not access data, so a failure degrades to zeros.
func (s *Service) shareCounts(ctx context.Context, ids []bson.ObjectID) map[bson.ObjectID]int64 {
	if len(ids) == 0 {
		return nil
	}
	counts, err := s.shares.CountsByNotes(ctx, ids)
	if err != nil {
		s.log.Warn("share counts unavailable", "error", err)
		return nil
	}
	return counts
}

func noteIDsOf(owned []*notes.Note) []bson.ObjectID {
	ids := make([]bson.ObjectID, len(owned))
	for i, n := range owned {
		ids[i] = n.ID
	}
	return ids
}

func shareNoteIDs(shares []*sharing.AnnotatedShare) []bson.ObjectID {
	ids := make([]bson.ObjectID, 0, len(shares))
	for _, sh := range shares {
		if sh.Note != nil {
			ids = append(ids, sh.Note.ID)
		}
	}
	return ids
}

func ownedItem(n *notes.Note, username string, shareCount int64) *VisibleNoteItem {
	caps := CapabilitiesFor(true, nil)
	return &VisibleNoteItem{
		ID:            n.ID,
		Title:         n.Title,
		Content:       n.Content,
		Tags:          n.Tags,
		Pinned:        n.Pinned,
		CreatedAt:     n.CreatedAt,
		UpdatedAt:     n.UpdatedAt,
		Relation:      RelationOwned,
		OwnerUsername: username,
		Permission:    sharing.PermissionWrite,
		CanEdit:       caps.CanEdit,
		CanShare:      caps.CanShare,
		CanDelete:     caps.CanDelete,
		ShareCount:    shareCount,
	}
}

func sharedItem(sh *sharing.AnnotatedShare) *VisibleNoteItem {
	caps := CapabilitiesFor(false, &sh.Share)
	sharedAt := sh.Share.CreatedAt
	return &VisibleNoteItem{
		ID:            sh.Note.ID,
		Title:         sh.Note.Title,
		Content:       sh.Note.Content,
		Tags:          sh.Note.Tags,
		Pinned:        sh.Note.Pinned,
		CreatedAt:     sh.Note.CreatedAt,
		UpdatedAt:     sh.Note.UpdatedAt,
		Relation:      RelationShared,
		OwnerUsername: sh.OwnerUsername,
		Permission:    sh.Share.Permission,
		CanEdit:       caps.CanEdit,
		CanShare:      caps.CanShare,
		CanDelete:     caps.CanDelete,
		SharedAt:      &sharedAt,
		ShareMessage:  sh.Share.Message,
	}
}

// givenItem maps a share the user granted. The viewer owns the note, so
// capabilities stay full regardless of what the recipient was granted.
func givenItem(sh *sharing.AnnotatedShare, username string, shareCount int64) *VisibleNoteItem {
	caps := CapabilitiesFor(true, nil)
	sharedAt := sh.Share.CreatedAt
	return &VisibleNoteItem{
		ID:            sh.Note.ID,
		Title:         sh.Note.Title,
		Content:       sh.Note.Content,
		Tags:          sh.Note.Tags,
		Pinned:        sh.Note.Pinned,
		CreatedAt:     sh.Note.CreatedAt,
		UpdatedAt:     sh.Note.UpdatedAt,
		Relation:      RelationSharedByMe,
		OwnerUsername: username,
		Permission:    sharing.PermissionWrite,
		CanEdit:       caps.CanEdit,
		CanShare:      caps.CanShare,
		CanDelete:     caps.CanDelete,
		ShareCount:    shareCount,
		SharedAt:      &sharedAt,
		SharedWith:    sh.Share.RecipientUsername,
		ShareMessage:  sh.Share.Message,
	}
}

func normalizeFilterTags(tags []string) []string {
	out := make([]string, 0, len(tags))
	for _, t := range tags {
		t = strings.ToLower(strings.TrimSpace(t))
		if t != "" {
			out = append(out, t)
		}
	}
	return out
}

func pageCount(total int64, perPage int) int64 {
	if perPage < 1 {
		return 0
	}
	return (total + int64(perPage) - 1) / int64(perPage)
}
