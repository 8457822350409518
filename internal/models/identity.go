package models

import (
	"time"

	"github.com/google/uuid"
)

const (
	ProviderGoogle  = "google"
	ProviderGitHub  = "github"
	ProviderAzureAD = "azure-ad"
	ProviderApple   = "apple"
)

// IdentityAssertion is the normalized output of a delegated identity provider
// after it has verified the user.
type IdentityAssertion struct {
	Provider      string
	Subject       string
	Email         string
	EmailVerified bool
	Name          string
}

// OAuthAccount links a provider subject to a local user.
type OAuthAccount struct {
	ID          uuid.UUID
	UserID      uuid.UUID
	Provider    string
	ProviderUID string
	Email       *string
	CreatedAt   time.Time
}
