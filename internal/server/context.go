package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/teemow/sheetmail/internal/gmail"
	"github.com/teemow/sheetmail/internal/google"
	"github.com/teemow/sheetmail/internal/instrumentation"
	"github.com/teemow/sheetmail/internal/sheets"
)

// ErrShutdown is returned by client accessors after Shutdown.
var ErrShutdown = errors.New("server is shutting down")

// ServerContext holds the state shared by all MCP tool handlers. API
// clients are created on first use so the server can start before
// credentials are available.
type ServerContext struct {
	ctx    context.Context
	cancel context.CancelFunc

	tokens    google.TokenProvider
	transport google.TransportConfig
	maxMB     int

	metrics     *instrumentation.Metrics
	auditLogger *instrumentation.AuditLogger

	mu           sync.RWMutex
	httpClient   *http.Client
	gmailSender  gmail.Sender
	sheetsClient *sheets.Client
	shutdown     bool
}

// Option configures a ServerContext.
type Option func(*ServerContext)

// WithTransport sets the retry, rate limit and breaker settings of the
// API transport.
func WithTransport(cfg google.TransportConfig) Option {
	return func(sc *ServerContext) { sc.transport = cfg }
}

// WithInstrumentation sets the metrics recorder and audit logger.
func WithInstrumentation(m *instrumentation.Metrics, al *instrumentation.AuditLogger) Option {
	return func(sc *ServerContext) {
		sc.metrics = m
		sc.auditLogger = al
	}
}

// WithMaxMB sets the default message budget for gmail_send_message.
// Zero or less keeps gmail.DefaultMaxMB, as the packer would.
func WithMaxMB(maxMB int) Option {
	return func(sc *ServerContext) {
		if maxMB > 0 {
			sc.maxMB = maxMB
		}
	}
}

// NewServerContext creates a server context resolving tokens through tokens.
func NewServerContext(ctx context.Context, tokens google.TokenProvider, opts ...Option) *ServerContext {
	shutdownCtx, cancel := context.WithCancel(ctx)
	sc := &ServerContext{
		ctx:       shutdownCtx,
		cancel:    cancel,
		tokens:    tokens,
		transport: google.DefaultTransportConfig(),
		maxMB:     gmail.DefaultMaxMB,
	}
	for _, opt := range opts {
		opt(sc)
	}
	return sc
}

// Context returns the server context. It is cancelled by Shutdown.
func (sc *ServerContext) Context() context.Context {
	return sc.ctx
}

// Metrics returns the metrics recorder, possibly nil.
func (sc *ServerContext) Metrics() *instrumentation.Metrics {
	return sc.metrics
}

// AuditLogger returns the audit logger, possibly nil.
func (sc *ServerContext) AuditLogger() *instrumentation.AuditLogger {
	return sc.auditLogger
}

// MaxMB returns the default message budget.
func (sc *ServerContext) MaxMB() int {
	return sc.maxMB
}

// authorizedClient must be called with sc.mu held.
func (sc *ServerContext) authorizedClient() (*http.Client, error) {
	if sc.httpClient != nil {
		return sc.httpClient, nil
	}
	if sc.tokens == nil {
		return nil, google.ErrNoCredential
	}
	ts, err := sc.tokens.TokenSource(sc.ctx)
	if err != nil {
		return nil, err
	}
	sc.httpClient = google.NewHTTPClient(sc.ctx, ts, sc.transport)
	return sc.httpClient, nil
}

// GmailSender returns the Gmail API sender, creating it on first use.
func (sc *ServerContext) GmailSender() (gmail.Sender, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if sc.gmailSender != nil {
		return sc.gmailSender, nil
	}

	httpClient, err := sc.authorizedClient()
	if err != nil {
		return nil, fmt.Errorf("failed to authorize Gmail client: %w", err)
	}
	client, err := gmail.NewClient(sc.ctx, google.ClientOptions(httpClient)...)
	if err != nil {
		return nil, err
	}
	sc.gmailSender = client.WithMetrics(sc.metrics)
	return sc.gmailSender, nil
}

// SetGmailSender replaces the Gmail sender.
func (sc *ServerContext) SetGmailSender(s gmail.Sender) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.gmailSender = s
}

// SheetsClient returns the Sheets client, creating it on first use.
func (sc *ServerContext) SheetsClient() (*sheets.Client, error) {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if sc.shutdown {
		return nil, ErrShutdown
	}
	if sc.sheetsClient != nil {
		return sc.sheetsClient, nil
	}

	httpClient, err := sc.authorizedClient()
	if err != nil {
		return nil, fmt.Errorf("failed to authorize Sheets client: %w", err)
	}
	client, err := sheets.NewClient(sc.ctx, google.ClientOptions(httpClient)...)
	if err != nil {
		return nil, err
	}
	sc.sheetsClient = client.WithMetrics(sc.metrics)
	return sc.sheetsClient, nil
}

// SetSheetsClient replaces the Sheets client.
func (sc *ServerContext) SetSheetsClient(c *sheets.Client) {
	sc.mu.Lock()
	defer sc.mu.Unlock()
	sc.sheetsClient = c
}

// IsShutdown reports whether Shutdown has been called.
func (sc *ServerContext) IsShutdown() bool {
	sc.mu.RLock()
	defer sc.mu.RUnlock()
	return sc.shutdown
}

// Shutdown cancels the server context. It is safe to call more than once.
func (sc *ServerContext) Shutdown() error {
	sc.mu.Lock()
	defer sc.mu.Unlock()

	if !sc.shutdown {
		sc.shutdown = true
		sc.cancel()
	}
	return nil
}
