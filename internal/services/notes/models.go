package notes

import (
	"time"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Note represents a text note owned by a single user
type Note struct {
	ID        bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty" example:"683cdb8aa96ad71e8e075bd1"`
	OwnerID   bson.ObjectID `bson:"owner_id" json:"owner_id" example:"683cdb8aa96ad71e8e075bd0"`
	Title     string        `bson:"title" json:"title" validate:"required" example:"Groceries"`
	Content   string        `bson:"content" json:"content" example:"milk, eggs"`
	Tags      []string      `bson:"tags" json:"tags" example:"shopping,home"`
	Pinned    bool          `bson:"pinned" json:"pinned"`
	CreatedAt time.Time     `bson:"created_at" json:"created_at" example:"2025-06-01T23:00:26.005703677Z"`
	UpdatedAt time.Time     `bson:"updated_at" json:"updated_at" example:"2025-06-01T23:00:26.005703677Z"`
}

// UpdateNote represents the fields that can be updated in a note.
// A nil field means "keep the stored value".
type UpdateNote struct {
	Title   *string  `json:"title,omitempty"`
	Content *string  `json:"content,omitempty"`
	Tags    []string `json:"tags,omitempty"`
	Pinned  *bool    `json:"pinned,omitempty"`
}

// ListFilter narrows an owned-notes listing. Page is 1-indexed.
type ListFilter struct {
	Q       string
	Tags    []string
	Page    int
	PerPage int
}

// Offset returns the number of documents to skip for the filter's page.
func (f ListFilter) Offset() int {
	if f.Page < 1 {
		return 0
	}
	return (f.Page - 1) * f.PerPage
}
