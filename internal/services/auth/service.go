package auth

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"log/slog"
	"strings"
	"time"

	"notemesh/internal/config"
	"notemesh/internal/utils/crypto"

	"github.com/golang-jwt/jwt/v5"
	"go.mongodb.org/mongo-driver/v2/bson"
)

// Service handles authentication business logic
type Service struct {
	users  UsersRepo
	tokens RefreshTokensRepo
	config config.Config
	log    *slog.Logger
}

// NewService creates a new auth service
func NewService(users UsersRepo, tokens RefreshTokensRepo, cfg config.Config, log *slog.Logger) *Service {
	return &Service{
		users:  users,
		tokens: tokens,
		config: cfg,
		log:    log,
	}
}

// SignUpRequest represents a user registration request
type SignUpRequest struct {
	Username string `json:"username" validate:"required,username" example:"alice"`
	Password string `json:"password" validate:"required,password" example:"Password123"`
}

// SignInRequest represents a user login request
type SignInRequest struct {
	Username string `json:"username" validate:"required,username" example:"alice"`
	Password string `json:"password" validate:"required" example:"Password123"`
}

// RefreshRequest carries a raw refresh token
type RefreshRequest struct {
	RefreshToken string `json:"refresh_token" validate:"required"`
}

// AuthResponse represents the response for successful authentication
type AuthResponse struct {
	User         *User  `json:"user"`
	Token        string `json:"token"`
	RefreshToken string `json:"refresh_token"`
}

// SignUp registers a new user
func (s *Service) SignUp(ctx context.Context, req SignUpRequest) (*AuthResponse, error) {
	username := normalizeUsername(req.Username)

	existing, err := s.users.FindByUsername(ctx, username)
	if err == nil && existing != nil {
		return nil, ErrRegistrationFailed
	}

	hashedPassword, err := crypto.HashPassword(req.Password, s.config.BcryptCost)
	if err != nil {
		return nil, errors.New("failed to process password")
	}

	now := time.Now()
	user := &User{
		ID:           bson.NewObjectID(),
		Username:     username,
		PasswordHash: hashedPassword,
		CreatedAt:    now,
		UpdatedAt:    now,
	}

	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, ErrDuplicate) {
			return nil, ErrRegistrationFailed
		}
		return nil, errors.New("failed to create user")
	}

	return s.issueTokens(ctx, user)
}

// SignIn authenticates a user
func (s *Service) SignIn(ctx context.Context, req SignInRequest) (*AuthResponse, error) {
	username := normalizeUsername(req.Username)

	user, err := s.users.FindByUsername(ctx, username)
	if err != nil {
		s.log.Info("sign-in for unknown username", "username", username)
		return nil, ErrInvalidCredentials
	}

	if err := crypto.CheckPassword(req.Password, user.PasswordHash); err != nil {
		s.log.Info("sign-in with wrong password", "username", username)
		return nil, ErrInvalidCredentials
	}

	return s.issueTokens(ctx, user)
}

// Refresh exchanges a valid refresh token for a new token pair.
// The used token is revoked (rotation), so a replay of the old token fails.
func (s *Service) Refresh(ctx context.Context, rawRefreshToken string) (*AuthResponse, error) {
	token, err := s.tokens.FindActive(ctx, rawRefreshToken)
	if err != nil {
		return nil, ErrInvalidRefreshToken
	}

	user, err := s.users.FindByID(ctx, token.UserID)
	if err != nil {
		s.log.Error("refresh token references missing user", "user_id", token.UserID.Hex())
		return nil, ErrInvalidRefreshToken
	}

	if err := s.tokens.Revoke(ctx, token.ID); err != nil {
		s.log.Error("failed to revoke refresh token", "error", err, "token_id", token.ID.Hex())
		return nil, ErrInvalidRefreshToken
	}

	return s.issueTokens(ctx, user)
}

// SignOut revokes the presented refresh token.
func (s *Service) SignOut(ctx context.Context, userID bson.ObjectID, rawRefreshToken string) error {
	token, err := s.tokens.FindActive(ctx, rawRefreshToken)
	if err != nil {
		return ErrInvalidRefreshToken
	}
	if token.UserID != userID {
		return ErrInvalidRefreshToken
	}
	return s.tokens.Revoke(ctx, token.ID)
}

// SignOutAll revokes every active refresh token for the user.
func (s *Service) SignOutAll(ctx context.Context, userID bson.ObjectID) error {
	return s.tokens.RevokeAllForUser(ctx, userID)
}

func (s *Service) issueTokens(ctx context.Context, user *User) (*AuthResponse, error) {
	accessToken, err := s.generateJWT(user)
	if err != nil {
		s.log.Error(ErrGenAccessToken.Error(), "error", err, "user_id", user.ID.Hex())
		return nil, ErrGenAccessToken
	}

	rawRefresh, err := generateRefreshToken()
	if err != nil {
		return nil, err
	}

	expiresAt := time.Now().Add(time.Duration(s.config.RefreshTokenDays) * 24 * time.Hour)
	if err := s.tokens.Create(ctx, user.ID, rawRefresh, expiresAt); err != nil {
		s.log.Error("failed to store refresh token", "error", err, "user_id", user.ID.Hex())
		return nil, errors.New("failed to store refresh token")
	}

	return &AuthResponse{
		User:         user,
		Token:        accessToken,
		RefreshToken: rawRefresh,
	}, nil
}

func (s *Service) generateJWT(user *User) (string, error) {
	claims := jwt.MapClaims{
		"user_id":  user.ID.Hex(),
		"username": user.Username,
		"exp":      time.Now().Add(time.Duration(s.config.AccessTokenMinutes) * time.Minute).Unix(),
		"iat":      time.Now().Unix(),
	}

	alg := strings.ToUpper(s.config.JWTAlgorithm)
	var method jwt.SigningMethod
	switch alg {
	case "HS256":
		method = jwt.SigningMethodHS256
	default:
		return "", ErrUnsupportedJWTAlg
	}

	token := jwt.NewWithClaims(method, claims)
	return token.SignedString([]byte(s.config.JWTSecret))
}

func generateRefreshToken() (string, error) {
	buf := make([]byte, 32)
	if _, err := rand.Read(buf); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(buf), nil
}

func normalizeUsername(username string) string {
	return strings.ToLower(strings.TrimSpace(username))
}
