package sharing

import (
	"context"
	"errors"

	"notemesh/cmd/server/handlers/handlerutil"
	"notemesh/cmd/server/handlers/httperr"
	"notemesh/internal/services/notes"
	"notemesh/internal/services/sharing"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service defines the interface for the sharing service
type Service interface {
	CreateShares(ctx context.Context, ownerID bson.ObjectID, req sharing.CreateSharesRequest) (*sharing.CreateSharesResponse, error)
	Revoke(ctx context.Context, userID, shareID bson.ObjectID) error
	List(ctx context.Context, userID bson.ObjectID, req sharing.ListSharesRequest) (*sharing.ListSharesResponse, error)
	GetSharedNote(ctx context.Context, userID, noteID bson.ObjectID) (*sharing.SharedNoteResponse, error)
	CheckNoteAccess(ctx context.Context, userID, noteID bson.ObjectID) (*sharing.NoteAccess, error)
	GetStats(ctx context.Context, userID bson.ObjectID) (*sharing.Stats, error)
}

// Handlers contains the sharing HTTP handlers
type Handlers struct {
	service   Service
	validator *validator.Validate
}

// NewHandlers creates new sharing handlers
func NewHandlers(service Service, validator *validator.Validate) *Handlers {
	return &Handlers{
		service:   service,
		validator: validator,
	}
}

// Create shares a note with one or more recipients. The response reports
// per-recipient outcomes; 201 means at least the batch settled, not that
// every recipient succeeded.
func (h *Handlers) Create(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req sharing.CreateSharesRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "CreateShares"); err != nil {
		return err
	}

	resp, err := h.service.CreateShares(c.Context(), userID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "CreateShares", userID, nil, notes.ErrNoteNotFound)
	}

	return c.Status(201).JSON(resp)
}

// List returns the user's given or received shares
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req sharing.ListSharesRequest
	if err := handlerutil.ParseAndValidateQuery(c, &req, h.validator, "ListShares"); err != nil {
		return err
	}

	resp, err := h.service.List(c.Context(), userID, req)
	if err != nil {
		return handlerutil.HandleServiceError(err, "ListShares", userID, nil, sharing.ErrShareNotFound)
	}

	return c.JSON(resp)
}

// Revoke deletes a share the user granted
func (h *Handlers) Revoke(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	shareID, err := handlerutil.ExtractObjectID(c, "share_id", "Revoke", sharing.ErrShareNotFound)
	if err != nil {
		return err
	}

	if err := h.service.Revoke(c.Context(), userID, shareID); err != nil {
		if errors.Is(err, sharing.ErrShareForbidden) {
			return httperr.Forbidden(err)
		}
		return handlerutil.HandleServiceError(err, "Revoke", userID, &shareID, sharing.ErrShareNotFound)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// GetSharedNote returns a note the user can read through a share
func (h *Handlers) GetSharedNote(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractObjectID(c, "note_id", "GetSharedNote", notes.ErrNoteNotFound)
	if err != nil {
		return err
	}

	resp, err := h.service.GetSharedNote(c.Context(), userID, noteID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "GetSharedNote", userID, &noteID, notes.ErrNoteNotFound)
	}

	return c.JSON(resp)
}

// Access reports the user's effective permissions on a note
func (h *Handlers) Access(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractObjectID(c, "note_id", "Access", notes.ErrNoteNotFound)
	if err != nil {
		return err
	}

	resp, err := h.service.CheckNoteAccess(c.Context(), userID, noteID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Access", userID, &noteID, notes.ErrNoteNotFound)
	}

	return c.JSON(resp)
}

// Stats summarizes the user's sharing activity
func (h *Handlers) Stats(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	resp, err := h.service.GetStats(c.Context(), userID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Stats", userID, nil, sharing.ErrShareNotFound)
	}

	return c.JSON(resp)
}
