package gmail

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
)

func newTestClient(t *testing.T, handler http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	c, err := NewClient(context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)
	return c
}

// resumableUpload fakes the two legs of a resumable upload: the session
// request on the send endpoint and the PUT of the bytes to its Location.
type resumableUpload struct {
	mu          sync.Mutex
	sessionPath string
	uploadTypes []string
	contentType string
	putRange    string
	body        string
}

func (u *resumableUpload) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	u.mu.Lock()
	defer u.mu.Unlock()

	if r.Method == http.MethodPut && r.URL.Path == "/upload/session/1" {
		b, _ := io.ReadAll(r.Body)
		u.body = string(b)
		u.putRange = r.Header.Get("Content-Range")
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"id":"msg-1","threadId":"thr-1","labelIds":["SENT"]}`))
		return
	}

	u.sessionPath = r.URL.Path
	u.uploadTypes = append(u.uploadTypes, r.URL.Query().Get("uploadType"))
	u.contentType = r.Header.Get("X-Upload-Content-Type")
	_, _ = io.Copy(io.Discard, r.Body)
	w.Header().Set("Location", "http://"+r.Host+"/upload/session/1")
	w.WriteHeader(http.StatusOK)
}

func TestClientSendUploadsRFC822(t *testing.T) {
	upload := &resumableUpload{}
	c := newTestClient(t, upload.ServeHTTP)

	msg, err := BuildMessage(Headers{To: "a@example.com", Subject: "Hi"}, "Hello there!", false)
	require.NoError(t, err)

	sent, err := c.Send(context.Background(), msg)
	require.NoError(t, err)

	assert.Equal(t, "msg-1", sent.Id)
	assert.Equal(t, "thr-1", sent.ThreadId)
	assert.Equal(t, []string{"SENT"}, sent.LabelIds)

	upload.mu.Lock()
	defer upload.mu.Unlock()
	assert.True(t, strings.HasSuffix(upload.sessionPath, "/users/me/messages/send"), upload.sessionPath)
	// Even a message far below one chunk goes through a session.
	assert.Equal(t, []string{"resumable"}, upload.uploadTypes)
	assert.Equal(t, RFC822MediaType, upload.contentType)
	assert.Equal(t, string(msg.Bytes()), upload.body)
	assert.Equal(t, fmt.Sprintf("bytes 0-%d/%d", msg.Size()-1, msg.Size()), upload.putRange)
}

func TestClientSendPropagatesAPIError(t *testing.T) {
	var calls int
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls++
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusForbidden)
		_, _ = w.Write([]byte(`{"error":{"code":403,"message":"Insufficient Permission"}}`))
	})

	msg, err := BuildMessage(Headers{To: "a@example.com"}, "", false)
	require.NoError(t, err)

	_, err = c.Send(context.Background(), msg)
	require.Error(t, err)

	var apiErr *googleapi.Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusForbidden, apiErr.Code)
	assert.Equal(t, 1, calls)
}
