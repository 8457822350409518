package identity

import (
	"context"
	"fmt"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"google.golang.org/api/idtoken"
)

// TokenValidator matches idtoken.Validate.
type TokenValidator func(ctx context.Context, idToken, audience string) (*idtoken.Payload, error)

// GoogleProvider verifies Google Sign-In id_tokens.
type GoogleProvider struct {
	clientID string
	validate TokenValidator
}

func NewGoogleProvider(clientID string) *GoogleProvider {
	return &GoogleProvider{clientID: clientID, validate: idtoken.Validate}
}

// NewGoogleProviderWithValidator replaces the network-backed validator.
func NewGoogleProviderWithValidator(clientID string, v TokenValidator) *GoogleProvider {
	return &GoogleProvider{clientID: clientID, validate: v}
}

func (g *GoogleProvider) Name() string { return models.ProviderGoogle }

func (g *GoogleProvider) Authenticate(ctx context.Context, cred Credential) (*models.IdentityAssertion, error) {
	if cred.IDToken == "" {
		return nil, ErrInvalidCredential
	}
	payload, err := g.validate(ctx, cred.IDToken, g.clientID)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if payload.Subject == "" {
		return nil, ErrInvalidCredential
	}
	email, _ := payload.Claims["email"].(string)
	name, _ := payload.Claims["name"].(string)
	return &models.IdentityAssertion{
		Provider:      models.ProviderGoogle,
		Subject:       payload.Subject,
		Email:         email,
		EmailVerified: claimBool(payload.Claims["email_verified"]),
		Name:          name,
	}, nil
}

func claimString(v any) string {
	s, _ := v.(string)
	return s
}

// claimBool accepts both JSON booleans and "true"/"false" strings; Apple
// sends the latter.
func claimBool(v any) bool {
	switch b := v.(type) {
	case bool:
		return b
	case string:
		return b == "true"
	}
	return false
}
