// Package visibility merges the notes a user owns with the notes shared to
// them into one deduplicated, labeled listing. It is the single place that
// decides which notes a user can see and what they may do with each.
package visibility

import (
	"time"

	"notemesh/internal/services/sharing"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Relation labels where a visible note comes from
type Relation string

const (
	RelationOwned      Relation = "owned"
	RelationShared     Relation = "shared_with_me"
	RelationSharedByMe Relation = "shared_by_me"
)

// OwnerFilter narrows the unified listing to one source
type OwnerFilter string

const (
	// FilterAll merges owned and shared-with-me. Notes the user shared out
	// are not a third source: the user owns them, so the owned source
	// already covers them.
	FilterAll        OwnerFilter = "all"
	FilterOwned      OwnerFilter = "owned"
	FilterShared     OwnerFilter = "shared_with_me"
	FilterSharedByMe OwnerFilter = "shared_by_me"
)

// Valid reports whether f is a known filter value
func (f OwnerFilter) Valid() bool {
	switch f {
	case FilterAll, FilterOwned, FilterShared, FilterSharedByMe:
		return true
	}
	return false
}

// VisibleNoteItem is one entry of the unified listing: the note's current
// content plus the viewer's relation to it and what they may do with it.
// Every source maps into this one shape so the client never branches on
// where a note came from.
type VisibleNoteItem struct {
	ID            bson.ObjectID      `json:"id"`
	Title         string             `json:"title"`
	Content       string             `json:"content"`
	Tags          []string           `json:"tags"`
	Pinned        bool               `json:"pinned"`
	CreatedAt     time.Time          `json:"created_at"`
	UpdatedAt     time.Time          `json:"updated_at"`
	Relation      Relation           `json:"relation"`
	OwnerUsername string             `json:"owner_username"`
	Permission    sharing.Permission `json:"permission"`
	CanEdit       bool               `json:"can_edit"`
	CanShare      bool               `json:"can_share"`
	CanDelete     bool               `json:"can_delete"`
	ShareCount    int64              `json:"share_count"`
	SharedAt      *time.Time         `json:"shared_at,omitempty"`
	SharedWith    string             `json:"shared_with,omitempty"`
	ShareMessage  string             `json:"share_message,omitempty"`
}

// ListRequest selects and pages the unified listing
type ListRequest struct {
	OwnerFilter OwnerFilter `query:"owner_filter" validate:"omitempty,oneof=all owned shared_with_me shared_by_me" example:"all"`
	Q           string      `query:"q" validate:"omitempty,max=100" example:"groceries"`
	Tags        []string    `query:"tags" validate:"omitempty,dive,max=30" example:"work"`
	Page        int         `query:"page" validate:"omitempty,min=1" example:"1"`
	PerPage     int         `query:"per_page" validate:"omitempty,min=1,max=100" example:"20"`
}

// ListResponse is one page of the unified listing. Partial reports whether a
// secondary source failed and was left out; the owned notes in such a
// response are still complete.
type ListResponse struct {
	Notes      []*VisibleNoteItem `json:"notes"`
	TotalCount int64              `json:"total_count"`
	Page       int                `json:"page"`
	PerPage    int                `json:"per_page"`
	TotalPages int64              `json:"total_pages"`
	Partial    bool               `json:"partial,omitempty"`
}
