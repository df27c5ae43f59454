package auth

import (
	"context"

	"github.com/mmynk/tripsplit/internal/models"
)

// Authenticator verifies who is calling before a session token is issued.
// The service layer only sees this interface; PasswordAuthenticator is the
// implementation wired in cmd/server.
type Authenticator interface {
	// Register creates an account for email. The email becomes the member
	// identifier in every group the user joins, so it must be unique.
	Register(ctx context.Context, email, displayName, credential string) (*models.User, error)

	// Authenticate returns the account for email if credential matches.
	// It returns ErrInvalidCredentials for both unknown emails and bad credentials.
	Authenticate(ctx context.Context, email, credential string) (*models.User, error)

	// ValidateCredential rejects credentials that are too weak to register with.
	ValidateCredential(credential string) error
}
