package resources

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/option"

	"github.com/teemow/sheetmail/internal/gmail"
	"github.com/teemow/sheetmail/internal/google"
	"github.com/teemow/sheetmail/internal/server"
	"github.com/teemow/sheetmail/internal/sheets"
)

func TestSpreadsheetIDFromURI(t *testing.T) {
	tests := []struct {
		uri     string
		want    string
		wantErr bool
	}{
		{uri: "sheets://spreadsheets/abc123/filters", want: "abc123"},
		{uri: "sheets://spreadsheets//filters", wantErr: true},
		{uri: "sheets://spreadsheets/a/b/filters", wantErr: true},
		{uri: "sheets://spreadsheets/abc123", wantErr: true},
		{uri: "sheetmail://settings", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.uri, func(t *testing.T) {
			got, err := spreadsheetIDFromURI(tt.uri)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestCurrentSettings(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil, server.WithMaxMB(10))
	t.Cleanup(func() { _ = sc.Shutdown() })

	got := currentSettings(sc, true)
	assert.Equal(t, Settings{
		ReadOnly:     true,
		MaxMB:        10,
		BudgetBytes:  10 * 1024 * 1024,
		CushionBytes: gmail.Cushion,
	}, got)
}

func readRequest(uri string) mcp.ReadResourceRequest {
	var req mcp.ReadResourceRequest
	req.Params.URI = uri
	return req
}

func TestHandleFilters(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/v4/spreadsheets/ss1", r.URL.Path)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"sheets": [{"properties": {"sheetId": 5}, "basicFilter": {"range": {"sheetId": 5}}}]}`))
	}))
	t.Cleanup(srv.Close)

	client, err := sheets.NewClient(context.Background(),
		option.WithoutAuthentication(),
		option.WithHTTPClient(srv.Client()),
		option.WithEndpoint(srv.URL+"/"),
	)
	require.NoError(t, err)

	sc := server.NewServerContext(context.Background(), nil)
	sc.SetSheetsClient(client)
	t.Cleanup(func() { _ = sc.Shutdown() })

	uri := "sheets://spreadsheets/ss1/filters"
	contents, err := handleFilters(context.Background(), readRequest(uri), sc)
	require.NoError(t, err)
	require.Len(t, contents, 1)

	text, ok := contents[0].(*mcp.TextResourceContents)
	require.True(t, ok)
	assert.Equal(t, uri, text.URI)
	assert.Equal(t, jsonMIMEType, text.MIMEType)

	var filters sheets.Filters
	require.NoError(t, json.Unmarshal([]byte(text.Text), &filters))
	assert.Equal(t, []int64{5}, filters.SheetIDs())
}

func TestHandleFiltersWithoutCredentials(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil)
	t.Cleanup(func() { _ = sc.Shutdown() })

	_, err := handleFilters(context.Background(), readRequest("sheets://spreadsheets/ss1/filters"), sc)
	assert.ErrorIs(t, err, google.ErrNoCredential)
}

func TestCurrentSettingsZeroBudgetReportsDefault(t *testing.T) {
	sc := server.NewServerContext(context.Background(), nil, server.WithMaxMB(0))
	t.Cleanup(func() { _ = sc.Shutdown() })

	got := currentSettings(sc, false)
	assert.Equal(t, gmail.DefaultMaxMB, got.MaxMB)
	assert.Equal(t, gmail.DefaultMaxMB*1024*1024, got.BudgetBytes)
}
