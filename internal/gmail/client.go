package gmail

import (
	"bytes"
	"context"
	"fmt"
	"log/slog"

	gmail "google.golang.org/api/gmail/v1"
	"google.golang.org/api/option"

	"github.com/teemow/sheetmail/internal/instrumentation"
	"github.com/teemow/sheetmail/internal/logging"
)

// RFC822MediaType is the upload media type of a raw message.
const RFC822MediaType = "message/rfc822"

// Sender delivers a built message.
type Sender interface {
	Send(ctx context.Context, msg *Message) (*gmail.Message, error)
}

// Client sends messages through the Gmail API.
type Client struct {
	svc     *gmail.UsersService
	metrics *instrumentation.Metrics
}

// NewClient creates a Gmail client. Pass google.ClientOptions for an
// authorized HTTP client.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := gmail.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create gmail service: %w", err)
	}
	return &Client{svc: svc.Users}, nil
}

// WithMetrics records API call metrics on m.
func (c *Client) WithMetrics(m *instrumentation.Metrics) *Client {
	c.metrics = m
	return c
}

// Send uploads the raw message as message/rfc822 media over a resumable
// upload session, whatever its size. Errors are not retried.
func (c *Client) Send(ctx context.Context, msg *Message) (*gmail.Message, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceGmail, instrumentation.OperationSend)
	defer span.End()

	raw := msg.Bytes()
	done := c.metrics.StartGoogleAPICall(instrumentation.ServiceGmail, instrumentation.OperationSend)

	// Media only opens a session for payloads above one chunk.
	sent, err := c.svc.Messages.Send("me", &gmail.Message{}).
		ResumableMedia(ctx, bytes.NewReader(raw), int64(len(raw)), RFC822MediaType). //nolint:staticcheck
		Context(ctx).
		Do()
	done(ctx, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, fmt.Errorf("failed to send message: %w", err)
	}
	instrumentation.SetSpanSuccess(span)

	slog.Info("message sent",
		logging.Recipient(msg.Headers.To),
		slog.String("id", sent.Id),
		logging.Bytes(len(raw)))
	return sent, nil
}
