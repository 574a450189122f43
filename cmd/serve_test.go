package cmd

import (
	"testing"

	mcpserver "github.com/mark3labs/mcp-go/server"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/teemow/sheetmail/internal/server"
)

func TestServeOptionsValidate(t *testing.T) {
	tests := []struct {
		name    string
		opts    serveOptions
		wantErr bool
	}{
		{"stdio", serveOptions{transport: transportStdio}, false},
		{"streamable http", serveOptions{transport: transportStreamableHTTP, qps: 5}, false},
		{"sse is not supported", serveOptions{transport: "sse"}, true},
		{"negative qps", serveOptions{transport: transportStdio, qps: -1}, true},
		{"negative budget", serveOptions{transport: transportStdio, maxMB: -5}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.opts.validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestRegisterAllToolsReadOnly(t *testing.T) {
	tests := []struct {
		name     string
		readOnly bool
		expected []string
	}{
		{
			name:     "read-only",
			readOnly: true,
			expected: []string{"sheets_get_cells", "sheets_get_filters"},
		},
		{
			name:     "yolo",
			readOnly: false,
			expected: []string{
				"gmail_send_message",
				"sheets_apply_filters",
				"sheets_clear_filters",
				"sheets_get_cells",
				"sheets_get_filters",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sc := server.NewServerContext(t.Context(), nil)
			t.Cleanup(func() { _ = sc.Shutdown() })

			mcpSrv := mcpserver.NewMCPServer("sheetmail", "test", mcpserver.WithToolCapabilities(true))
			require.NoError(t, registerAllTools(mcpSrv, sc, tt.readOnly))

			var names []string
			for name := range mcpSrv.ListTools() {
				names = append(names, name)
			}
			assert.ElementsMatch(t, tt.expected, names)
		})
	}
}
