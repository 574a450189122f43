package google

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// ErrNoCredential is returned when no saved, interactive or default
// credential could be found.
var ErrNoCredential = errors.New("no usable Google credentials")

// TokenProvider supplies OAuth tokens for Google API clients.
type TokenProvider interface {
	TokenSource(ctx context.Context) (oauth2.TokenSource, error)
}

// StoreTokenProvider resolves credentials in order: the saved credential
// file, the interactive consent flow, then application default credentials.
type StoreTokenProvider struct {
	Store       *Store
	SecretsFile string
	Scopes      []string

	// Interactive enables the browser consent flow when no saved credential exists.
	Interactive bool

	// Obtain runs the consent flow. Defaults to ObtainInteractive.
	Obtain func(ctx context.Context, secretsFile string, scopes []string) (Credential, error)

	// DefaultSource looks up application default credentials.
	// Defaults to google.DefaultTokenSource.
	DefaultSource func(ctx context.Context, scopes ...string) (oauth2.TokenSource, error)
}

// TokenSource implements TokenProvider.
func (p *StoreTokenProvider) TokenSource(ctx context.Context) (oauth2.TokenSource, error) {
	store := p.Store
	if store == nil {
		store = NewStore("")
	}

	res := store.Load()
	if res.Found {
		slog.Debug("using saved credentials", slog.String("path", store.Path))
		return store.TokenSource(ctx, res.Credential), nil
	}
	slog.Debug("saved credentials unavailable",
		slog.String("path", store.Path),
		slog.String("reason", res.Reason))

	if p.Interactive {
		obtain := p.Obtain
		if obtain == nil {
			obtain = ObtainInteractive
		}
		cred, err := obtain(ctx, p.SecretsFile, p.Scopes)
		var missing *SecretsMissingError
		switch {
		case err == nil:
			if err := store.Save(cred); err != nil {
				return nil, err
			}
			return store.TokenSource(ctx, cred), nil
		case errors.As(err, &missing):
			slog.Warn(missing.Error())
		default:
			return nil, err
		}
	}

	defaultSource := p.DefaultSource
	if defaultSource == nil {
		defaultSource = google.DefaultTokenSource
	}
	slog.Info("no credentials given, attempting application default credentials")
	ts, err := defaultSource(ctx, p.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrNoCredential, err)
	}
	return ts, nil
}
