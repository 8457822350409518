package identity

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/AnshRaj112/partsdesk-auth/internal/models"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const githubAPIBase = "https://api.github.com"

type githubUser struct {
	ID    int64  `json:"id"`
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type githubEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

// GitHubProvider runs the OAuth authorization code flow against GitHub.
type GitHubProvider struct {
	cfg     *oauth2.Config
	apiBase string
}

type GitHubOption func(*GitHubProvider)

// WithGitHubEndpoints points the provider at another OAuth and API host.
func WithGitHubEndpoints(ep oauth2.Endpoint, apiBase string) GitHubOption {
	return func(g *GitHubProvider) {
		g.cfg.Endpoint = ep
		g.apiBase = strings.TrimRight(apiBase, "/")
	}
}

func NewGitHubProvider(clientID, clientSecret, redirectURL string, opts ...GitHubOption) *GitHubProvider {
	g := &GitHubProvider{
		cfg: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  redirectURL,
			Endpoint:     github.Endpoint,
			Scopes:       []string{"read:user", "user:email"},
		},
		apiBase: githubAPIBase,
	}
	for _, opt := range opts {
		opt(g)
	}
	return g
}

func (g *GitHubProvider) Name() string { return models.ProviderGitHub }

func (g *GitHubProvider) AuthCodeURL(state string) string {
	return g.cfg.AuthCodeURL(state)
}

func (g *GitHubProvider) Authenticate(ctx context.Context, cred Credential) (*models.IdentityAssertion, error) {
	if cred.Code == "" {
		return nil, ErrInvalidCredential
	}
	tok, err := g.cfg.Exchange(ctx, cred.Code)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidCredential, err)
	}
	client := g.cfg.Client(ctx, tok)

	var user githubUser
	if err := g.getJSON(ctx, client, "/user", &user); err != nil {
		return nil, err
	}
	if user.ID == 0 {
		return nil, ErrInvalidCredential
	}

	a := &models.IdentityAssertion{
		Provider: models.ProviderGitHub,
		Subject:  strconv.FormatInt(user.ID, 10),
		Name:     user.Name,
	}
	if a.Name == "" {
		a.Name = user.Login
	}

	var emails []githubEmail
	if err := g.getJSON(ctx, client, "/user/emails", &emails); err == nil {
		for _, e := range emails {
			if e.Primary {
				a.Email = e.Email
				a.EmailVerified = e.Verified
				break
			}
		}
	}
	if a.Email == "" {
		// The public profile email is not marked verified by GitHub.
		a.Email = user.Email
	}
	return a, nil
}

func (g *GitHubProvider) getJSON(ctx context.Context, client *http.Client, path string, out any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.apiBase+path, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := client.Do(req)
	if err != nil {
		return fmt.Errorf("github %s: %w", path, err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github %s: status %d", path, resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}
