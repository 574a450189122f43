package cmd

import (
	"context"
	"fmt"
	"os"
	"strconv"

	"golang.org/x/oauth2"

	"github.com/teemow/sheetmail/internal/google"
)

const (
	envCredentials  = "SHEETMAIL_CREDENTIALS"
	envClientSecret = "SHEETMAIL_CLIENT_SECRET"
	envMaxMB        = "SHEETMAIL_MAX_MB"
)

func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntOrDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if parsed, err := strconv.Atoi(value); err == nil {
			return parsed
		}
	}
	return defaultValue
}

// tokenProvider resolves credentials for scopes from the global flags. The
// consent flow only runs when interactive is set.
func tokenProvider(scopes []string, interactive bool) *google.StoreTokenProvider {
	return &google.StoreTokenProvider{
		Store:       google.NewStore(globals.credentials),
		SecretsFile: globals.clientSecret,
		Scopes:      scopes,
		Interactive: interactive,
	}
}

// tokenSource is tokenProvider(scopes, true).TokenSource with a friendlier error.
func tokenSource(ctx context.Context, scopes []string) (oauth2.TokenSource, error) {
	ts, err := tokenProvider(scopes, true).TokenSource(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load credentials (run 'sheetmail auth'): %w", err)
	}
	return ts, nil
}
