package socialauth

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ProviderGoogle is the provider identifier served by the Google adapter.
const ProviderGoogle = "google"

// GoogleConfig holds configuration for the Google handshake adapter.
type GoogleConfig struct {
	ClientID     string   `env:"GOOGLE_OAUTH_CLIENT_ID,required"`
	ClientSecret string   `env:"GOOGLE_OAUTH_CLIENT_SECRET,required"`
	RedirectURL  string   `env:"GOOGLE_OAUTH_REDIRECT_URL,required"`
	Scopes       []string `env:"GOOGLE_OAUTH_SCOPES" envSeparator:"," envDefault:"https://www.googleapis.com/auth/userinfo.email"`
}

type googleAdapter struct {
	conf       *oauth2.Config
	httpClient *http.Client
}

// NewGoogleAdapter creates a handshake adapter for Google.
func NewGoogleAdapter(cfg GoogleConfig) HandshakeAdapter {
	return &googleAdapter{
		conf: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		httpClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func (a *googleAdapter) Provider() string {
	return ProviderGoogle
}

// AuthURL builds the Google authorization URL carrying the state token.
func (a *googleAdapter) AuthURL(state string) (string, error) {
	return a.conf.AuthCodeURL(state, oauth2.AccessTypeOffline), nil
}

// ResolveIdentity exchanges the authorization code for the Google userinfo
// profile.
func (a *googleAdapter) ResolveIdentity(ctx context.Context, code string) (ExternalIdentity, error) {
	tok, err := a.conf.Exchange(ctx, code)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("code exchange failed: %w", err)
	}

	u, err := a.fetchUser(ctx, tok.AccessToken)
	if err != nil {
		return ExternalIdentity{}, fmt.Errorf("fetch google user: %w", err)
	}

	return ExternalIdentity{
		Provider:      ProviderGoogle,
		SubjectID:     u.ID,
		Email:         u.Email,
		EmailVerified: u.VerifiedEmail,
		DisplayToken:  tok.AccessToken,
		Name:          u.Name,
		AvatarURL:     u.Picture,
	}, nil
}

func (a *googleAdapter) fetchUser(ctx context.Context, accessToken string) (*gUser, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, "https://www.googleapis.com/oauth2/v2/userinfo", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+accessToken)

	resp, err := a.httpClient.Do(req)
	if err != nil {
		return nil, err
	}
	defer func() { _ = resp.Body.Close() }()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google api returned status %d", resp.StatusCode)
	}

	var user gUser
	if err := json.NewDecoder(resp.Body).Decode(&user); err != nil {
		return nil, err
	}
	return &user, nil
}

type gUser struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	VerifiedEmail bool   `json:"verified_email"`
	Name          string `json:"name"`
	Picture       string `json:"picture"`
}

var _ HandshakeAdapter = (*googleAdapter)(nil)
