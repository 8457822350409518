package identity

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"github.com/lestrrat-go/jwx/v2/jwk"
	"github.com/lestrrat-go/jwx/v2/jws"
	"github.com/lestrrat-go/jwx/v2/jwt"
)

const (
	appleIssuer  = "https://appleid.apple.com"
	appleKeysURL = "https://appleid.apple.com/auth/keys"

	azureKeysURLFormat   = "https://login.microsoftonline.com/%s/discovery/v2.0/keys"
	azureIssuerURLFormat = "https://login.microsoftonline.com/%s/v2.0"

	keyRefreshInterval = 15 * time.Minute
)

// NewKeyCache returns a JWKS cache whose background refresh stops with ctx.
func NewKeyCache(ctx context.Context) *jwk.Cache {
	return jwk.NewCache(ctx)
}

// OIDCProvider verifies id_tokens against a provider's published JWKS.
type OIDCProvider struct {
	name     string
	keysURL  string
	issuer   string
	audience string

	keys        *jwk.Cache
	register    sync.Once
	registerErr error
}

// NewOIDCProvider verifies tokens with keys fetched from keysURL through keys.
func NewOIDCProvider(keys *jwk.Cache, name, keysURL, issuer, audience string) *OIDCProvider {
	return &OIDCProvider{
		name:     name,
		keysURL:  keysURL,
		issuer:   issuer,
		audience: audience,
		keys:     keys,
	}
}

// NewAppleProvider verifies Sign in with Apple tokens issued to serviceID.
func NewAppleProvider(keys *jwk.Cache, serviceID string) *OIDCProvider {
	return NewOIDCProvider(keys, models.ProviderApple, appleKeysURL, appleIssuer, serviceID)
}

// NewAzureADProvider verifies Microsoft identity platform v2 tokens. The
// multi-tenant endpoints ("common", "organizations", "consumers") issue tokens
// with per-tenant issuers, so the issuer is only pinned for a concrete tenant.
func NewAzureADProvider(keys *jwk.Cache, tenant, clientID string) *OIDCProvider {
	if tenant == "" {
		tenant = "common"
	}
	issuer := ""
	switch tenant {
	case "common", "organizations", "consumers":
	default:
		issuer = fmt.Sprintf(azureIssuerURLFormat, tenant)
	}
	return NewOIDCProvider(keys, models.ProviderAzureAD, fmt.Sprintf(azureKeysURLFormat, tenant), issuer, clientID)
}

func (p *OIDCProvider) Name() string { return p.name }

func (p *OIDCProvider) Authenticate(ctx context.Context, cred Credential) (*models.IdentityAssertion, error) {
	if cred.IDToken == "" {
		return nil, ErrInvalidCredential
	}
	p.register.Do(func() {
		p.registerErr = p.keys.Register(p.keysURL, jwk.WithMinRefreshInterval(keyRefreshInterval))
	})
	if p.registerErr != nil {
		return nil, fmt.Errorf("register jwks: %w", p.registerErr)
	}
	keyset, err := p.keys.Get(ctx, p.keysURL)
	if err != nil {
		return nil, fmt.Errorf("fetch jwks: %w", err)
	}

	opts := []jwt.ParseOption{
		jwt.WithKeySet(keyset, jws.WithInferAlgorithmFromKey(true)),
		jwt.WithValidate(true),
		jwt.WithAudience(p.audience),
	}
	if p.issuer != "" {
		opts = append(opts, jwt.WithIssuer(p.issuer))
	}
	tok, err := jwt.ParseString(cred.IDToken, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	if tok.Subject() == "" {
		return nil, ErrInvalidCredential
	}

	a := &models.IdentityAssertion{Provider: p.name, Subject: tok.Subject()}
	if v, ok := tok.Get("email"); ok {
		a.Email = claimString(v)
	}
	if v, ok := tok.Get("email_verified"); ok {
		a.EmailVerified = claimBool(v)
	}
	if v, ok := tok.Get("name"); ok {
		a.Name = claimString(v)
	}
	return a, nil
}
