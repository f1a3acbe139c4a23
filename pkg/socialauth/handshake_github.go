package socialauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

// ProviderGithub is the provider identifier served by the GitHub adapter.
const ProviderGithub = "github"

// GithubConfig holds configuration for the GitHub handshake adapter.
type GithubConfig struct {
	ClientID     string   `env:"GITHUB_OAUTH_CLIENT_ID,required"`
	ClientSecret string   `env:"GITHUB_OAUTH_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"GITHUB_OAUTH_REDIRECT_URL,required"`
	Scopes       []string `env:"GITHUB_OAUTH_SCOPES" envSeparator:"," envDefault:"user:email"`
}

type githubAdapter struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewGithubAdapter creates a handshake adapter for GitHub.
func NewGithubAdapter(cfg GithubConfig) HandshakeAdapter {
	return &githubAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     github.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *githubAdapter) Provider() string {
	return ProviderGithub
}

// AuthURL builds the GitHub authorization URL carrying the state token.
func (a *githubAdapter) AuthURL(state string) (string, error) {
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// ResolveIdentity exchanges the authorization code and assembles a verified
// external identity. GitHub reports email verification only on the emails
// endpoint, so both endpoints are queried; the primary verified address wins,
// any verified address is the fallback.
func (a *githubAdapter) ResolveIdentity(ctx context.Context, code string) (ExternalIdentity, error) {
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("code exchange failed: %w", err)
	}

	u, err := a.fetchUser(ctx, tok.AccessToken)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("fetch github user: %w", err)
	}

	emails, err := a.fetchEmails(ctx, tok.AccessToken)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("fetch github emails: %w", err)
	}

	var email string
	var verified bool
	for _, e := range emails {
		if e.Primary && e.Verified {
			email = e.Email
			verified = true
			break
		}
	}
	if email == "" {
		for _, e := range emails {
			if e.Verified {
				email = e.Email
				verified = true
				break
			}
		}
	}

	return ExternalIdentity{
		Provider:      ProviderGithub,
		SubjectID:     strconv.FormatInt(u.ID, 10),
		Email:         email,
		EmailVerified: verified,
		DisplayToken:  tok.AccessToken,
		Name:          u.Name,
		AvatarURL:     u.AvatarURL,
	}, nil
}

func (a *githubAdapter) fetchUser(ctx context.Context, accessToken string) (*ghUser, error) {
	var user ghUser
	if err := a.getJSON(ctx, "https://api.github.com/user", accessToken, &user); err != nil {
		return nil, err
	}
	return &user, nil
}

func (a *githubAdapter) fetchEmails(ctx context.Context, accessToken string) ([]ghEmail, error) {
	var emails []ghEmail
	if err := a.getJSON(ctx, "https://api.github.com/user/emails", accessToken, &emails); err != nil {
		return nil, err
	}
	return emails, nil
}

func (a *githubAdapter) getJSON(ctx context.Context, url, accessToken string, v any) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)
	req.Header.Set("Accept", "application/vnd.github.v3+json")

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("github api returned status %d", resp.StatusCode)
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

type ghUser struct {
	ID        int64  `json:"id"`
	Name      string `json:"name"`
	AvatarURL string `json:"avatar_url"`
}

type ghEmail struct {
	Email    string `json:"email"`
	Primary  bool   `json:"primary"`
	Verified bool   `json:"verified"`
}

var _ HandshakeAdapter = (*githubAdapter)(nil)
