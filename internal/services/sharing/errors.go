package sharing

import "errors"

// ErrShareNotFound - share not found, or already revoked
var ErrShareNotFound = errors.New("share not found")

// ErrShareForbidden is returned when a non-owner tries to revoke a share.
var ErrShareForbidden = errors.New("only the note owner may revoke a share")

// ErrSelfShare is returned when a user tries to share a note with themselves.
var ErrSelfShare = errors.New("cannot share a note with yourself")

// ErrRecipientNotFound is returned when a recipient username is unknown.
var ErrRecipientNotFound = errors.New("recipient not found")

// ErrInvalidUsername is returned when a recipient username fails the identifier format.
var ErrInvalidUsername = errors.New("usernames must be 3-20 characters of letters, digits, or underscore")

// ErrCreateShare is returned when share creation fails.
var ErrCreateShare = errors.New("failed to create share")

// ErrListShares is returned when share listing fails.
var ErrListShares = errors.New("failed to list shares")

// ErrShareStats is returned when stats computation fails.
var ErrShareStats = errors.New("failed to compute sharing stats")

// ErrCreateSharesRepo is returned when shares repository creation fails.
var ErrCreateSharesRepo = errors.New("failed to create shares repository")
