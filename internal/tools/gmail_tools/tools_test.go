package gmail_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gmail_v1 "google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"github.com/teemow/sheetmail/internal/gmail"
	"github.com/teemow/sheetmail/internal/google"
	"github.com/teemow/sheetmail/internal/server"
)

type recordingSender struct {
	sent []*gmail.Message
	err  error
}

func (r *recordingSender) Send(_ context.Context, msg *gmail.Message) (*gmail_v1.Message, error) {
	if r.err != nil {
		return nil, r.err
	}
	r.sent = append(r.sent, msg)
	return &gmail_v1.Message{Id: "msg-1", ThreadId: "thread-1"}, nil
}

func newContext(t *testing.T, sender gmail.Sender) *server.ServerContext {
	t.Helper()
	sc := server.NewServerContext(context.Background(), nil)
	if sender != nil {
		sc.SetGmailSender(sender)
	}
	t.Cleanup(func() { _ = sc.Shutdown() })
	return sc
}

func call(t *testing.T, sc *server.ServerContext, args map[string]interface{}) (*mcp.CallToolResult, string) {
	t.Helper()
	req := mcp.CallToolRequest{}
	req.Params.Arguments = args
	result, err := handleSendMessage(context.Background(), req, sc)
	require.NoError(t, err)
	require.NotEmpty(t, result.Content)
	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	return result, text.Text
}

func writeFile(t *testing.T, dir, name string, size int) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(strings.Repeat("x", size)), 0o600))
	return path
}

func TestSendMessage(t *testing.T) {
	dir := t.TempDir()
	small := writeFile(t, dir, "notes.txt", 100)
	big := writeFile(t, dir, "scan.png", 2_000_000)
	after := writeFile(t, dir, "late.csv", 10)

	sender := &recordingSender{}
	sc := newContext(t, sender)

	result, text := call(t, sc, map[string]interface{}{
		"to":          "jane@example.com",
		"subject":     "Report",
		"body":        "See attached.",
		"attachments": []interface{}{small, big, after},
		"max_mb":      float64(2),
	})
	require.False(t, result.IsError, text)

	var got sendResult
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.Equal(t, "msg-1", got.ID)
	assert.Equal(t, "thread-1", got.ThreadID)
	assert.Equal(t, []string{small}, got.Attachments.Attached)
	assert.Equal(t, []string{big, after}, got.Attachments.NotAttempted)

	require.Len(t, sender.sent, 1)
	assert.Equal(t, []string{"notes.txt"}, sender.sent[0].Attachments())
	assert.Equal(t, "Report", sender.sent[0].Headers.Subject)
}

func TestSendMessageDryRun(t *testing.T) {
	sender := &recordingSender{}
	sc := newContext(t, sender)

	result, text := call(t, sc, map[string]interface{}{
		"to":      "jane@example.com",
		"body":    "hello",
		"dry_run": true,
	})
	require.False(t, result.IsError, text)

	var got sendResult
	require.NoError(t, json.Unmarshal([]byte(text), &got))
	assert.True(t, got.DryRun)
	assert.Empty(t, got.ID)
	assert.Positive(t, got.MessageBytes)
	assert.Empty(t, sender.sent)
}

func TestSendMessageErrors(t *testing.T) {
	tests := []struct {
		name    string
		sender  gmail.Sender
		args    map[string]interface{}
		wantErr string
	}{
		{
			name:    "missing to",
			sender:  &recordingSender{},
			args:    map[string]interface{}{"body": "x"},
			wantErr: "missing required field: to",
		},
		{
			name:    "header injection",
			sender:  &recordingSender{},
			args:    map[string]interface{}{"to": "a@example.com", "subject": "hi\r\nBcc: evil@example.com"},
			wantErr: "line break",
		},
		{
			name:    "unreadable attachment",
			sender:  &recordingSender{},
			args:    map[string]interface{}{"to": "a@example.com", "attachments": "/does/not/exist.pdf"},
			wantErr: "Failed to attach files",
		},
		{
			name:    "no credentials",
			args:    map[string]interface{}{"to": "a@example.com", "body": "x"},
			wantErr: "sheetmail auth",
		},
		{
			name:    "send failure",
			sender:  &recordingSender{err: errors.New("quota exceeded")},
			args:    map[string]interface{}{"to": "a@example.com", "body": "x"},
			wantErr: "quota exceeded",
		},
		{
			name:    "rate limited",
			sender:  &recordingSender{err: fmt.Errorf("failed to send message: %w", &googleapi.Error{Code: 429})},
			args:    map[string]interface{}{"to": "a@example.com", "body": "x"},
			wantErr: "try again later",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := newContext(t, tt.sender)
			result, text := call(t, sc, tt.args)
			assert.True(t, result.IsError)
			assert.Contains(t, text, tt.wantErr)
		})
	}
}

func TestSendMessageBodyArgument(t *testing.T) {
	tests := []struct {
		name      string
		body      interface{}
		wantParts int
	}{
		{"text", "hello", 1},
		{"blank", "  \n ", 0},
		{"not a string", float64(3), 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sender := &recordingSender{}
			sc := newContext(t, sender)

			result, text := call(t, sc, map[string]interface{}{"to": "a@example.com", "body": tt.body})
			require.False(t, result.IsError, text)
			require.Len(t, sender.sent, 1)
			assert.Len(t, sender.sent[0].Parts(), tt.wantParts)
		})
	}
}

func TestRegisterGmailTools(t *testing.T) {
	sc := newContext(t, nil)

	for _, readOnly := range []bool{true, false} {
		s := mcpserver.NewMCPServer("test", "0.0.0", mcpserver.WithToolCapabilities(true))
		require.NoError(t, RegisterGmailTools(s, sc, readOnly))

		_, registered := s.ListTools()["gmail_send_message"]
		assert.Equal(t, !readOnly, registered)
	}
}

func TestNoCredentialSentinel(t *testing.T) {
	// The tool relies on the server context surfacing ErrNoCredential.
	sc := newContext(t, nil)
	_, err := sc.GmailSender()
	assert.ErrorIs(t, err, google.ErrNoCredential)
}
