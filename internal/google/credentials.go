package google

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"sync"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"github.com/teemow/sheetmail/internal/logging"
)

// DefaultCredentialsFile is the credential file name used when none is configured.
const DefaultCredentialsFile = "creds.json"

// Credential is the saved OAuth token set. The JSON layout is flat and
// shared with other tools that read creds.json.
type Credential struct {
	RefreshToken string `json:"refresh_token"`
	AccessToken  string `json:"token"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	TokenURI     string `json:"token_uri"`
}

// Usable reports whether the credential can mint new access tokens.
func (c Credential) Usable() bool {
	return c.RefreshToken != "" && c.ClientID != "" && c.ClientSecret != ""
}

// LoadResult is the outcome of Store.Load. When Found is false, Reason
// describes why the file was not usable.
type LoadResult struct {
	Credential Credential
	Found      bool
	Reason     string
}

// Store reads and writes a Credential at Path.
type Store struct {
	Path string

	mu sync.Mutex
}

// NewStore returns a Store for path, or for DefaultCredentialsFile if path is empty.
func NewStore(path string) *Store {
	if path == "" {
		path = DefaultCredentialsFile
	}
	return &Store{Path: path}
}

// Load reads the credential file. A missing, unreadable or incomplete file
// yields an absent result rather than an error.
func (s *Store) Load() LoadResult {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.Path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return LoadResult{Reason: "credentials file not found"}
		}
		return LoadResult{Reason: fmt.Sprintf("failed to read credentials file: %v", err)}
	}

	var cred Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		return LoadResult{Reason: fmt.Sprintf("failed to parse credentials file: %v", err)}
	}
	if !cred.Usable() {
		return LoadResult{Reason: "credentials file is missing refresh_token, client_id or client_secret"}
	}

	return LoadResult{Credential: cred, Found: true}
}

// Save overwrites the credential file with cred.
func (s *Store) Save(cred Credential) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.Marshal(cred)
	if err != nil {
		return fmt.Errorf("failed to encode credentials: %w", err)
	}

	if dir := filepath.Dir(s.Path); dir != "." {
		if err := os.MkdirAll(dir, 0700); err != nil {
			return fmt.Errorf("failed to create credentials directory: %w", err)
		}
	}

	tmp := s.Path + ".tmp"
	if err := os.WriteFile(tmp, data, 0600); err != nil {
		return fmt.Errorf("failed to write credentials: %w", err)
	}
	if err := os.Rename(tmp, s.Path); err != nil {
		return fmt.Errorf("failed to commit credentials: %w", err)
	}

	slog.Info("credentials saved", slog.String("path", s.Path))
	return nil
}

// TokenSource returns a token source minting access tokens from cred's
// refresh token. Refreshed tokens are written back to the store.
func (s *Store) TokenSource(ctx context.Context, cred Credential) oauth2.TokenSource {
	conf := cred.oauthConfig()
	// The saved access token carries no expiry, so it is not reused.
	base := conf.TokenSource(ctx, &oauth2.Token{RefreshToken: cred.RefreshToken})
	return &persistingTokenSource{
		base:  oauth2.ReuseTokenSource(nil, base),
		store: s,
		cred:  cred,
	}
}

func (c Credential) oauthConfig() *oauth2.Config {
	endpoint := google.Endpoint
	if c.TokenURI != "" {
		endpoint.TokenURL = c.TokenURI
	}
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		Endpoint:     endpoint,
	}
}

// persistingTokenSource saves the credential whenever the access token changes.
type persistingTokenSource struct {
	base  oauth2.TokenSource
	store *Store

	mu   sync.Mutex
	cred Credential
}

func (p *persistingTokenSource) Token() (*oauth2.Token, error) {
	tok, err := p.base.Token()
	if err != nil {
		return nil, err
	}

	p.mu.Lock()
	defer p.mu.Unlock()

	if tok.AccessToken == p.cred.AccessToken {
		return tok, nil
	}
	p.cred.AccessToken = tok.AccessToken
	if tok.RefreshToken != "" {
		p.cred.RefreshToken = tok.RefreshToken
	}
	if err := p.store.Save(p.cred); err != nil {
		slog.Warn("failed to persist refreshed token",
			slog.String("token", logging.SanitizeToken(tok.AccessToken)),
			logging.Err(err))
	}
	return tok, nil
}
