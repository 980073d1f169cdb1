package sharing

import (
	"time"

	"notemesh/internal/services/notes"

	"go.mongodb.org/mongo-driver/v2/bson"
)

// Permission is the access level a share grants. Write implies read.
type Permission string

const (
	PermissionRead  Permission = "read"
	PermissionWrite Permission = "write"
)

// Share grants a recipient access to a note. The owner reference is
// denormalized from the note at creation so share listings never need the
// note to resolve who granted access.
type Share struct {
	ID                bson.ObjectID `bson:"_id,omitempty" json:"id,omitempty" example:"683cdb8aa96ad71e8e075bd3"`
	NoteID            bson.ObjectID `bson:"note_id" json:"note_id"`
	OwnerID           bson.ObjectID `bson:"owner_id" json:"owner_id"`
	RecipientID       bson.ObjectID `bson:"recipient_id" json:"recipient_id"`
	RecipientUsername string        `bson:"recipient_username" json:"recipient_username" example:"bob"`
	Permission        Permission    `bson:"permission" json:"permission" example:"read"`
	Message           string        `bson:"message,omitempty" json:"message,omitempty"`
	CreatedAt         time.Time     `bson:"created_at" json:"created_at"`
	UpdatedAt         time.Time     `bson:"updated_at" json:"updated_at"`
}

// AnnotatedShare is a share joined with the current note snapshot and the
// owner's username at query time, so edits and deletions of the source note
// are reflected when the share is listed, not frozen at share time.
type AnnotatedShare struct {
	Share         `bson:",inline"`
	Note          *notes.Note `bson:"note,omitempty" json:"note,omitempty"`
	OwnerUsername string      `bson:"owner_username,omitempty" json:"owner_username,omitempty"`
}

// NoteAccess reports what a user may do with a note.
type NoteAccess struct {
	CanRead  bool `json:"can_read"`
	CanWrite bool `json:"can_write"`
	CanShare bool `json:"can_share"`
	IsOwner  bool `json:"is_owner"`
}

// Stats summarizes a user's sharing activity.
type Stats struct {
	SharesGiven       int64 `json:"shares_given"`
	SharesReceived    int64 `json:"shares_received"`
	UniqueNotesShared int64 `json:"unique_notes_shared"`
}
