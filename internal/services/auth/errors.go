package auth

import "errors"

// ErrInvalidCredentials is returned on any sign-in failure so callers cannot
// tell an unknown username from a bad password.
var ErrInvalidCredentials = errors.New("invalid credentials")

// ErrRegistrationFailed masks duplicate-username errors on sign-up.
var ErrRegistrationFailed = errors.New("registration failed")

// ErrGenAccessToken is returned when we cannot create a JWT.
var ErrGenAccessToken = errors.New("failed to generate access token")

// ErrInvalidRefreshToken is returned when a refresh token is unknown, expired, or revoked.
var ErrInvalidRefreshToken = errors.New("invalid refresh token")

// ErrUnsupportedJWTAlg is returned when the configured JWT algorithm is not supported.
var ErrUnsupportedJWTAlg = errors.New("unsupported JWT algorithm")

// ErrInvalidTokenMissingUserID is returned when a verified token lacks the user_id claim.
var ErrInvalidTokenMissingUserID = errors.New("invalid token: missing user_id claim")

// ErrInvalidTokenMissingUsername is returned when a verified token lacks the username claim.
var ErrInvalidTokenMissingUsername = errors.New("invalid token: missing username claim")
