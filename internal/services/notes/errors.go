package notes

import "errors"

// ErrNoteNotFound - note not found in DB, or not visible to the requester
var ErrNoteNotFound = errors.New("note not found")

// ErrCreateNote is returned when note creation fails.
var ErrCreateNote = errors.New("failed to create note")

// ErrUpdateNote is returned when note update fails.
var ErrUpdateNote = errors.New("failed to update note")

// ErrDeleteNote is returned when note deletion fails.
var ErrDeleteNote = errors.New("failed to delete note")

// ErrListTags is returned when tag listing fails.
var ErrListTags = errors.New("failed to list tags")

// ErrInvalidTag is returned when a tag fails the identifier format.
var ErrInvalidTag = errors.New("tags must be 1-30 characters of letters, digits, hyphen, or underscore")

// ErrCreateNotesRepo is returned when notes repository creation fails.
var ErrCreateNotesRepo = errors.New("failed to create notes repository")
