// Package oauth signs users in through GitHub.
package oauth

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/github"
)

const (
	StateCookie   = "oauthState"
	defaultAPIURL = "https://api.github.com"
)

var ErrStateMismatch = errors.New("oauth state mismatch")

type Profile struct {
	Login string `json:"login"`
	Name  string `json:"name"`
	Email string `json:"email"`
}

type GitHub struct {
	Config *oauth2.Config
	APIURL string
	// HTTPClient is used for the token exchange and the profile fetch.
	HTTPClient *http.Client
}

func NewGitHub(clientID, clientSecret, callbackURL string) *GitHub {
	return &GitHub{
		Config: &oauth2.Config{
			ClientID:     clientID,
			ClientSecret: clientSecret,
			RedirectURL:  callbackURL,
			Scopes:       []string{"read:user", "user:email"},
			Endpoint:     github.Endpoint,
		},
		APIURL:     defaultAPIURL,
		HTTPClient: &http.Client{Timeout: 10 * time.Second},
	}
}

func NewState() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return hex.EncodeToString(b), nil
}

func (g *GitHub) AuthCodeURL(state string) string {
	return g.Config.AuthCodeURL(state)
}

// Exchange trades the callback code for a token and loads the profile.
func (g *GitHub) Exchange(ctx context.Context, code string) (*Profile, error) {
	if g.HTTPClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, g.HTTPClient)
	}
	tok, err := g.Config.Exchange(ctx, code)
	if err != nil {
		return nil, fmt.Errorf("exchange code: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.APIURL+"/user", nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/vnd.github+json")
	resp, err := g.Config.Client(ctx, tok).Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch profile: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch profile: status %d", resp.StatusCode)
	}

	var p Profile
	if err := json.NewDecoder(resp.Body).Decode(&p); err != nil {
		return nil, fmt.Errorf("decode profile: %w", err)
	}
	if p.Login == "" {
		return nil, errors.New("profile has no login")
	}
	return &p, nil
}

// DisplayName falls back to the login when the profile has no name.
func (p *Profile) DisplayName() string {
	if p.Name != "" {
		return p.Name
	}
	return p.Login
}
