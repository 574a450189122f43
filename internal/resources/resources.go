package resources

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sheetmail/internal/gmail"
	"github.com/teemow/sheetmail/internal/server"
)

const (
	// SettingsURI describes the running server.
	SettingsURI = "sheetmail://settings"

	// FiltersURITemplate reads the basic filters of one spreadsheet.
	FiltersURITemplate = "sheets://spreadsheets/{spreadsheet_id}/filters"

	filtersURIPrefix = "sheets://spreadsheets/"
	filtersURISuffix = "/filters"

	jsonMIMEType = "application/json"
)

// Settings is the content of SettingsURI.
type Settings struct {
	ReadOnly     bool `json:"read_only"`
	MaxMB        int  `json:"max_mb"`
	BudgetBytes  int  `json:"budget_bytes"`
	CushionBytes int  `json:"cushion_bytes"`
}

// RegisterResources registers the server settings resource and the
// spreadsheet filters template.
func RegisterResources(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	settings := mcp.NewResource(
		SettingsURI,
		"Server Settings",
		mcp.WithResourceDescription("Safety mode and attachment size budget of this server"),
		mcp.WithMIMEType(jsonMIMEType),
	)
	s.AddResource(settings, func(_ context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return jsonContents(request.Params.URI, currentSettings(sc, readOnly))
	})

	filters := mcp.NewResourceTemplate(
		FiltersURITemplate,
		"Spreadsheet Filters",
		mcp.WithTemplateDescription("Basic filter of each sheet, keyed by sheet id"),
		mcp.WithTemplateMIMEType(jsonMIMEType),
	)
	s.AddResourceTemplate(filters, func(ctx context.Context, request mcp.ReadResourceRequest) ([]mcp.ResourceContents, error) {
		return handleFilters(ctx, request, sc)
	})

	return nil
}

func currentSettings(sc *server.ServerContext, readOnly bool) Settings {
	return Settings{
		ReadOnly:     readOnly,
		MaxMB:        sc.MaxMB(),
		BudgetBytes:  sc.MaxMB() * 1024 * 1024,
		CushionBytes: gmail.Cushion,
	}
}

func handleFilters(ctx context.Context, request mcp.ReadResourceRequest, sc *server.ServerContext) ([]mcp.ResourceContents, error) {
	id, err := spreadsheetIDFromURI(request.Params.URI)
	if err != nil {
		return nil, err
	}

	client, err := sc.SheetsClient()
	if err != nil {
		return nil, err
	}
	filters, err := client.GetFilters(ctx, id)
	if err != nil {
		return nil, err
	}
	return jsonContents(request.Params.URI, filters)
}

// spreadsheetIDFromURI extracts the id from a FiltersURITemplate URI.
func spreadsheetIDFromURI(uri string) (string, error) {
	rest, ok := strings.CutPrefix(uri, filtersURIPrefix)
	if !ok {
		return "", fmt.Errorf("unexpected resource URI: %s", uri)
	}
	id, ok := strings.CutSuffix(rest, filtersURISuffix)
	if !ok || id == "" || strings.Contains(id, "/") {
		return "", fmt.Errorf("unexpected resource URI: %s", uri)
	}
	return id, nil
}

func jsonContents(uri string, v interface{}) ([]mcp.ResourceContents, error) {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("failed to marshal resource: %w", err)
	}
	return []mcp.ResourceContents{
		&mcp.TextResourceContents{
			URI:      uri,
			MIMEType: jsonMIMEType,
			Text:     string(data),
		},
	}, nil
}
