package auth

import (
	"context"
	"errors"

	"notemesh/cmd/server/handlers/handlerutil"
	"notemesh/cmd/server/handlers/httperr"
	"notemesh/internal/logger"
	"notemesh/internal/services/auth"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// AuthService defines the interface for auth service
type AuthService interface {
	SignUp(ctx context.Context, req auth.SignUpRequest) (*auth.AuthResponse, error)
	SignIn(ctx context.Context, req auth.SignInRequest) (*auth.AuthResponse, error)
	Refresh(ctx context.Context, rawRefreshToken string) (*auth.AuthResponse, error)
	SignOut(ctx context.Context, userID bson.ObjectID, rawRefreshToken string) error
	SignOutAll(ctx context.Context, userID bson.ObjectID) error
}

// Handlers contains the auth HTTP handlers
type Handlers struct {
	authService AuthService
	validator   *validator.Validate
}

// NewHandlers creates new auth handlers
func NewHandlers(authService AuthService, validator *validator.Validate) *Handlers {
	return &Handlers{
		authService: authService,
		validator:   validator,
	}
}

// SignUp handles user registration
func (h *Handlers) SignUp(c *fiber.Ctx) error {
	var req auth.SignUpRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse signup request body", "handler", "SignUp", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(req); err != nil {
		logger.L().Warn("signup request validation failed", "handler", "SignUp", "error", err)
		return httperr.InvalidInput(err)
	}

	resp, err := h.authService.SignUp(c.Context(), req)
	if err != nil {
		logger.L().Error("signup service failed", "handler", "SignUp", "username", req.Username, "error", err)
		return httperr.Fail(httperr.E{
			Status:  400,
			Message: err.Error(),
		})
	}

	return c.Status(201).JSON(resp)
}

// SignIn handles user authentication
func (h *Handlers) SignIn(c *fiber.Ctx) error {
	var req auth.SignInRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse signin request body", "handler", "SignIn", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(req); err != nil {
		logger.L().Warn("signin request validation failed", "handler", "SignIn", "error", err)
		return httperr.InvalidInput(err)
	}

	resp, err := h.authService.SignIn(c.Context(), req)
	if err != nil {
		logger.L().Error("signin service failed", "handler", "SignIn", "username", req.Username, "error", err)
		return httperr.Fail(httperr.E{
			Status:  401,
			Message: err.Error(),
		})
	}

	return c.JSON(resp)
}

// Refresh handles token refresh requests
func (h *Handlers) Refresh(c *fiber.Ctx) error {
	var req auth.RefreshRequest
	if err := c.BodyParser(&req); err != nil {
		logger.L().Warn("failed to parse refresh request body", "handler", "Refresh", "error", err)
		return httperr.Fail(httperr.ErrBadRequest)
	}

	if err := h.validator.Struct(&req); err != nil {
		logger.L().Warn("refresh request validation failed", "handler", "Refresh", "error", err)
		return httperr.InvalidInput(err)
	}

	resp, err := h.authService.Refresh(c.Context(), req.RefreshToken)
	if err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			logger.L().Info("invalid refresh token reuse detected", "remote", c.IP(), "error", err)
			return httperr.Fail(httperr.ErrUnauthorized)
		}
		logger.L().Error("refresh service failed", "handler", "Refresh", "error", err)
		return httperr.Fail(httperr.E{
			Status:  401,
			Message: err.Error(),
		})
	}

	return c.JSON(resp)
}

// SignOut revokes the presented refresh token
func (h *Handlers) SignOut(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	var req auth.RefreshRequest
	if err := handlerutil.ParseAndValidateBody(c, &req, h.validator, "SignOut"); err != nil {
		return err
	}

	if err := h.authService.SignOut(c.Context(), userID, req.RefreshToken); err != nil {
		if errors.Is(err, auth.ErrInvalidRefreshToken) {
			return httperr.Fail(httperr.ErrUnauthorized)
		}
		logger.L().Error("signout service failed", "handler", "SignOut", "userID", userID.Hex(), "error", err)
		return httperr.Fail(httperr.ErrInternal)
	}

	return c.JSON(map[string]string{"message": "Successfully signed out"})
}

// SignOutAll revokes every active refresh token of the user
func (h *Handlers) SignOutAll(c *fiber.Ctx) error {
	userID, err := handlerutil.GetUserID(c)
	if err != nil {
		return err
	}

	if err := h.authService.SignOutAll(c.Context(), userID); err != nil {
		logger.L().Error("signout all service failed", "handler", "SignOutAll", "userID", userID.Hex(), "error", err)
		return httperr.Fail(httperr.InternalError(err.Error()))
	}

	return c.JSON(map[string]string{"message": "Signed out everywhere"})
}
