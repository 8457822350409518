// Package identity verifies credentials issued by delegated identity
// providers and normalizes them into models.IdentityAssertion.
package identity

import (
	"context"
	"errors"
	"sort"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
)

var (
	ErrUnknownProvider   = errors.New("unknown identity provider")
	ErrInvalidCredential = errors.New("invalid provider credential")
	ErrInvalidState      = errors.New("invalid oauth state")
)

// Credential is what the client posts back after talking to the provider:
// either an id_token or an authorization code with its state.
type Credential struct {
	IDToken string
	Code    string
	State   string
}

type Provider interface {
	Name() string
	Authenticate(ctx context.Context, cred Credential) (*models.IdentityAssertion, error)
}

// Redirector is implemented by providers that use the authorization code flow.
type Redirector interface {
	AuthCodeURL(state string) string
}

// Registry holds the configured providers by name.
type Registry struct {
	providers map[string]Provider
	states    *StateSigner
}

func NewRegistry(states *StateSigner, providers ...Provider) *Registry {
	r := &Registry{providers: map[string]Provider{}, states: states}
	for _, p := range providers {
		if p != nil {
			r.providers[p.Name()] = p
		}
	}
	return r
}

// Names lists the configured providers in sorted order.
func (r *Registry) Names() []string {
	out := make([]string, 0, len(r.providers))
	for name := range r.providers {
		out = append(out, name)
	}
	sort.Strings(out)
	return out
}

// AuthorizeURL returns the provider login URL carrying a signed state.
func (r *Registry) AuthorizeURL(name string) (string, error) {
	p, ok := r.providers[name]
	if !ok {
		return "", ErrUnknownProvider
	}
	red, ok := p.(Redirector)
	if !ok {
		return "", ErrUnknownProvider
	}
	state, err := r.states.Issue(name)
	if err != nil {
		return "", err
	}
	return red.AuthCodeURL(state), nil
}

// Authenticate checks the state of code-flow credentials and then lets the
// provider verify the credential.
func (r *Registry) Authenticate(ctx context.Context, name string, cred Credential) (*models.IdentityAssertion, error) {
	p, ok := r.providers[name]
	if !ok {
		return nil, ErrUnknownProvider
	}
	if cred.Code != "" {
		if _, ok := p.(Redirector); ok {
			if err := r.states.Verify(cred.State, name); err != nil {
				return nil, err
			}
		}
	}
	return p.Authenticate(ctx, cred)
}
