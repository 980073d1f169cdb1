package notes

import (
	"context"
	"errors"

	"notemesh/cmd/server/handlers/handlerutil"
	"notemesh/cmd/server/handlers/httperr"
	"notemesh/internal/logger"
	"notemesh/internal/services/notes"
	"notemesh/internal/services/sharing"
	"notemesh/internal/services/visibility"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service defines the interface for notes service
type Service interface {
	Create(ctx context.Context, userID bson.ObjectID, req notes.CreateNoteRequest) (*notes.NoteResponse, error)
	Get(ctx context.Context, userID, noteID bson.ObjectID) (*notes.NoteResponse, error)
	Update(ctx context.Context, userID, noteID bson.ObjectID, req notes.UpdateNoteRequest) (*notes.NoteResponse, error)
	Delete(ctx context.Context, userID, noteID bson.ObjectID) error
	Tags(ctx context.Context, userID bson.ObjectID) (*notes.TagsResponse, error)
}

// Lister assembles the unified listing across ownership sources
type Lister interface {
	List(ctx context.Context, userID bson.ObjectID, username string, req visibility.ListRequest) (*visibility.ListResponse, error)
}

// SharedReader resolves notes the user can read through a share
type SharedReader interface {
	GetSharedNote(ctx context.Context, userID, noteID bson.ObjectID) (*sharing.SharedNoteResponse, error)
}

// Handlers contains the notes HTTP handlers
type Handlers struct {
	service   Service
	lister    Lister
	shared    SharedReader
	validator *validator.Validate
}

// NewHandlers creates new notes handlers
func NewHandlers(service Service, lister Lister, shared SharedReader, validator *validator.Validate) *Handlers {
	return &Handlers{
		service:   service,
		lister:    lister,
		shared:    shared,
		validator: validator,
	}
}

// Create handles note creation
func (h *Handlers) Create(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req notes.CreateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Create"); err != nil {
		return err
	}

	resp, err := h.service.Create(c.Context(), userID, req)
	if err != nil {
		if errors.Is(err, notes.ErrInvalidTag) {
			return httperr.InvalidInput(err)
		}
		return handlerutil.HandleServiceError(err, "Create", userID, nil, notes.ErrNoteNotFound)
	}

	return c.Status(201).JSON(resp)
}

// List returns the unified listing of notes visible to the user: their own
// notes and the notes shared with them, merged and labeled.
func (h *Handlers) List(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}
	username, err := handlerutil.GetUsername(c)
	if err != nil {
		return err
	}

	var req visibility.ListRequest
	if err := handlerutil.ParseAndValidateQuery(c, &req, h.validator, "List"); err != nil {
		return err
	}

	resp, err := h.lister.List(c.Context(), userID, username, req)
	if err != nil {
		logger.L().Error("unified listing failed", "handler", "List", "userID", userID.Hex(), "error", err)
		return httperr.Fail(httperr.E{
			Status:  500,
			Message: err.Error(),
		})
	}

	return c.JSON(resp)
}

// Get returns a single note. Owned notes come back with their share count;
// when the user does not own the note the share registry is consulted, so
// recipients read through the same URL as owners.
func (h *Handlers) Get(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractObjectID(c, "id", "Get", notes.ErrNoteNotFound)
	if err != nil {
		return err
	}

	resp, err := h.service.Get(c.Context(), userID, noteID)
	if err == nil {
		return c.JSON(resp)
	}
	if !errors.Is(err, notes.ErrNoteNotFound) {
		return handlerutil.HandleServiceError(err, "Get", userID, &noteID, notes.ErrNoteNotFound)
	}

	sharedResp, sharedErr := h.shared.GetSharedNote(c.Context(), userID, noteID)
	if sharedErr != nil {
		return handlerutil.HandleServiceError(sharedErr, "Get", userID, &noteID, notes.ErrNoteNotFound)
	}

	return c.JSON(sharedResp)
}

// Update handles note updates
func (h *Handlers) Update(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractObjectID(c, "id", "Update", notes.ErrNoteNotFound)
	if err != nil {
		return err
	}

	var req notes.UpdateNoteRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "Update"); err != nil {
		return err
	}

	resp, err := h.service.Update(c.Context(), userID, noteID, req)
	if err != nil {
		if errors.Is(err, notes.ErrInvalidTag) {
			return httperr.InvalidInput(err)
		}
		return handlerutil.HandleServiceError(err, "Update", userID, &noteID, notes.ErrNoteNotFound)
	}

	return c.JSON(resp)
}

// Delete handles note deletion, revoking the note's shares with it
func (h *Handlers) Delete(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	noteID, err := handlerutil.ExtractObjectID(c, "id", "Delete", notes.ErrNoteNotFound)
	if err != nil {
		return err
	}

	if err := h.service.Delete(c.Context(), userID, noteID); err != nil {
		return handlerutil.HandleServiceError(err, "Delete", userID, &noteID, notes.ErrNoteNotFound)
	}

	return c.SendStatus(fiber.StatusNoContent)
}

// Tags returns the distinct tags across the user's own notes
func (h *Handlers) Tags(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	resp, err := h.service.Tags(c.Context(), userID)
	if err != nil {
		return handlerutil.HandleServiceError(err, "Tags", userID, nil, notes.ErrNoteNotFound)
	}

	return c.JSON(resp)
}
