package gmail

import (
	"context"
	"crypto/tls"
	"fmt"
	"log/slog"
	"net"
	"net/mail"

	"github.com/emersion/go-sasl"
	"github.com/emersion/go-smtp"
	"golang.org/x/oauth2"
	gmail "google.golang.org/api/gmail/v1"

	"github.com/teemow/sheetmail/internal/logging"
)

const (
	gmailSMTPHost = "smtp.gmail.com"

	// DefaultSMTPAddr is Gmail's implicit TLS submission port.
	DefaultSMTPAddr = gmailSMTPHost + ":465"
)

// SMTPSender delivers messages over SMTP submission, authenticating with
// OAUTHBEARER using the same OAuth credential as the API client.
type SMTPSender struct {
	Addr string

	// Username is the authenticating account, also used as the envelope
	// sender when the message has no From header.
	Username string

	// TokenSource provides the bearer token. A nil source skips AUTH.
	TokenSource oauth2.TokenSource

	// Dial opens the connection. Defaults to implicit TLS to Addr.
	Dial func(ctx context.Context, addr string) (net.Conn, error)
}

// Send delivers msg to every To, Cc and Bcc recipient. The Bcc header is
// not transmitted. The returned message only carries SizeEstimate since
// SMTP assigns no Gmail id.
func (s *SMTPSender) Send(ctx context.Context, msg *Message) (*gmail.Message, error) {
	rcpts, err := msg.Headers.Recipients()
	if err != nil {
		return nil, err
	}
	from, err := s.envelopeFrom(msg.Headers)
	if err != nil {
		return nil, err
	}

	addr := s.Addr
	if addr == "" {
		addr = DefaultSMTPAddr
	}
	dial := s.Dial
	if dial == nil {
		dial = dialTLS
	}
	conn, err := dial(ctx, addr)
	if err != nil {
		return nil, fmt.Errorf("failed to dial SMTP server: %w", err)
	}

	c := smtp.NewClient(conn)
	defer c.Close()

	if s.TokenSource != nil {
		tok, err := s.TokenSource.Token()
		if err != nil {
			return nil, fmt.Errorf("failed to get access token: %w", err)
		}
		auth := sasl.NewOAuthBearerClient(&sasl.OAuthBearerOptions{
			Username: s.Username,
			Token:    tok.AccessToken,
		})
		if err := c.Auth(auth); err != nil {
			return nil, fmt.Errorf("SMTP auth failed: %w", err)
		}
	}

	if err := c.Mail(from, nil); err != nil {
		return nil, fmt.Errorf("SMTP MAIL FROM failed: %w", err)
	}
	for _, rcpt := range rcpts {
		if err := c.Rcpt(rcpt, nil); err != nil {
			return nil, fmt.Errorf("SMTP RCPT TO failed: %w", err)
		}
	}

	w, err := c.Data()
	if err != nil {
		return nil, fmt.Errorf("SMTP DATA failed: %w", err)
	}
	raw := msg.BytesWithoutBcc()
	if _, err := w.Write(raw); err != nil {
		_ = w.Close()
		return nil, fmt.Errorf("failed to write message: %w", err)
	}
	if err := w.Close(); err != nil {
		return nil, fmt.Errorf("SMTP server rejected message: %w", err)
	}
	if err := c.Quit(); err != nil {
		slog.Debug("SMTP quit failed", logging.Err(err))
	}

	slog.Info("message sent via SMTP",
		logging.Recipient(msg.Headers.To),
		slog.Int("recipients", len(rcpts)),
		logging.Bytes(len(raw)))
	return &gmail.Message{SizeEstimate: int64(len(raw))}, nil
}

func (s *SMTPSender) envelopeFrom(h Headers) (string, error) {
	if h.From == "" {
		if s.Username == "" {
			return "", fmt.Errorf("SMTP delivery needs a from address or username")
		}
		return s.Username, nil
	}
	addr, err := mail.ParseAddress(h.From)
	if err != nil {
		return "", fmt.Errorf("failed to parse from address: %w", err)
	}
	return addr.Address, nil
}

func dialTLS(ctx context.Context, addr string) (net.Conn, error) {
	host, _, err := net.SplitHostPort(addr)
	if err != nil {
		return nil, err
	}
	d := &tls.Dialer{Config: &tls.Config{ServerName: host}}
	return d.DialContext(ctx, "tcp", addr)
}
