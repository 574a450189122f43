package google

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"net"
	"net/http"
	"os"
	"os/exec"
	"runtime"
	"time"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

// DefaultClientSecretFile is the OAuth client descriptor read by the consent flow.
const DefaultClientSecretFile = "client_secret.json"

// DefaultFlowTimeout bounds how long the consent flow waits for the browser.
const DefaultFlowTimeout = 3 * time.Minute

var (
	errAuthorization  = errors.New("authorization denied")
	errStateMismatch  = errors.New("state mismatch")
	errMissingCode    = errors.New("missing authorization code")
	errNoRefreshToken = errors.New("no refresh token received")
)

// SecretsMissingError is returned when the client secrets file does not exist.
type SecretsMissingError struct {
	Path  string
	Cause error
}

func (e *SecretsMissingError) Error() string {
	return fmt.Sprintf("unable to authorize: missing client secret file %s", e.Path)
}

func (e *SecretsMissingError) Unwrap() error {
	return e.Cause
}

// InteractiveFlow runs the installed-app consent flow against a loopback
// redirect listener.
type InteractiveFlow struct {
	SecretsFile string
	Scopes      []string
	Timeout     time.Duration

	// OpenBrowser is called with the consent URL. Defaults to the platform opener.
	OpenBrowser func(url string) error
}

// ObtainInteractive runs the consent flow with default settings.
func ObtainInteractive(ctx context.Context, secretsFile string, scopes []string) (Credential, error) {
	flow := &InteractiveFlow{SecretsFile: secretsFile, Scopes: scopes}
	return flow.Run(ctx)
}

// Run reads the client secrets, waits for the browser callback and
// exchanges the code for tokens.
func (f *InteractiveFlow) Run(ctx context.Context) (Credential, error) {
	conf, err := f.readConfig()
	if err != nil {
		return Credential{}, err
	}

	timeout := f.Timeout
	if timeout <= 0 {
		timeout = DefaultFlowTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	state, err := randomState()
	if err != nil {
		return Credential{}, err
	}

	ln, err := net.Listen("tcp", "127.0.0.1:0")
	if err != nil {
		return Credential{}, fmt.Errorf("failed to listen for callback: %w", err)
	}
	defer func() { _ = ln.Close() }()

	conf.RedirectURL = fmt.Sprintf("http://127.0.0.1:%d/", ln.Addr().(*net.TCPAddr).Port)

	codeCh := make(chan string, 1)
	errCh := make(chan error, 1)
	report := func(err error) {
		select {
		case errCh <- err:
		default:
		}
	}

	srv := &http.Server{
		ReadHeaderTimeout: 5 * time.Second,
		Handler: http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			q := r.URL.Query()
			switch {
			case q.Get("error") != "":
				report(fmt.Errorf("%w: %s", errAuthorization, q.Get("error")))
				http.Error(w, "Authorization cancelled. You can close this window.", http.StatusOK)
			case q.Get("state") != state:
				report(errStateMismatch)
				http.Error(w, "State mismatch. Please try again.", http.StatusBadRequest)
			case q.Get("code") == "":
				report(errMissingCode)
				http.Error(w, "Missing authorization code.", http.StatusBadRequest)
			default:
				select {
				case codeCh <- q.Get("code"):
				default:
				}
				_, _ = w.Write([]byte("The authentication flow has completed. You may close this window."))
			}
		}),
	}
	go func() {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			report(err)
		}
	}()
	defer func() { _ = srv.Close() }()

	authURL := conf.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.SetAuthURLParam("prompt", "consent"))
	fmt.Fprintln(os.Stderr, "Please visit this URL to authorize this application:")
	fmt.Fprintln(os.Stderr, authURL)

	open := f.OpenBrowser
	if open == nil {
		open = openBrowser
	}
	if err := open(authURL); err != nil {
		slog.Debug("failed to open browser", slog.String("error", err.Error()))
	}

	select {
	case code := <-codeCh:
		tok, err := conf.Exchange(ctx, code)
		if err != nil {
			return Credential{}, fmt.Errorf("failed to exchange auth code: %w", err)
		}
		if tok.RefreshToken == "" {
			return Credential{}, errNoRefreshToken
		}
		return Credential{
			RefreshToken: tok.RefreshToken,
			AccessToken:  tok.AccessToken,
			ClientID:     conf.ClientID,
			ClientSecret: conf.ClientSecret,
			TokenURI:     conf.Endpoint.TokenURL,
		}, nil
	case err := <-errCh:
		return Credential{}, err
	case <-ctx.Done():
		return Credential{}, fmt.Errorf("authorization canceled: %w", ctx.Err())
	}
}

func (f *InteractiveFlow) readConfig() (*oauth2.Config, error) {
	path := f.SecretsFile
	if path == "" {
		path = DefaultClientSecretFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return nil, &SecretsMissingError{Path: path, Cause: err}
		}
		return nil, fmt.Errorf("failed to read client secret file: %w", err)
	}

	conf, err := google.ConfigFromJSON(data, f.Scopes...)
	if err != nil {
		return nil, fmt.Errorf("failed to parse client secret file: %w", err)
	}
	return conf, nil
}

func randomState() (string, error) {
	b := make([]byte, 24)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("failed to generate state: %w", err)
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func openBrowser(url string) error {
	var cmd *exec.Cmd
	switch runtime.GOOS {
	case "darwin":
		cmd = exec.Command("open", url)
	case "windows":
		cmd = exec.Command("rundll32", "url.dll,FileProtocolHandler", url)
	default:
		cmd = exec.Command("xdg-open", url)
	}
	return cmd.Start()
}
