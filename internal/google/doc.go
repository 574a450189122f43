// Package google provides OAuth2 credentials and authorized HTTP clients for
// the Gmail and Sheets APIs.
//
// Credentials are resolved by StoreTokenProvider: first the flat creds.json
// file, then the installed-app consent flow driven by client_secret.json,
// then application default credentials. The HTTP transport adds rate
// limiting, retries of idempotent calls and an optional circuit breaker.
package google
