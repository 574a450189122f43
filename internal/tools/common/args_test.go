package common

import (
	"errors"
	"fmt"
	"testing"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/api/googleapi"
)

func TestListArg(t *testing.T) {
	tests := []struct {
		name string
		args map[string]interface{}
		want []string
	}{
		{"missing", map[string]interface{}{}, nil},
		{"comma string", map[string]interface{}{"k": "a.pdf, b.pdf,,"}, []string{"a.pdf", "b.pdf"}},
		{"array", map[string]interface{}{"k": []interface{}{"a.pdf", " ", 3, "c.png"}}, []string{"a.pdf", "c.png"}},
		{"wrong type", map[string]interface{}{"k": 12.0}, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, ListArg(tt.args, "k"))
		})
	}
}

func TestScalarArgs(t *testing.T) {
	args := map[string]interface{}{
		"s":   "  value ",
		"b":   true,
		"n":   float64(7),
		"bad": "7",
	}

	assert.Equal(t, "value", StringArg(args, "s"))
	assert.Equal(t, "", StringArg(args, "b"))
	assert.True(t, BoolArg(args, "b"))
	assert.False(t, BoolArg(args, "s"))
	assert.Equal(t, 7, IntArg(args, "n", 25))
	assert.Equal(t, 25, IntArg(args, "bad", 25))
	assert.Equal(t, 25, IntArg(args, "missing", 25))
}

func TestJSONResult(t *testing.T) {
	result, err := JSONResult(map[string]int{"a": 1})
	require.NoError(t, err)
	require.Len(t, result.Content, 1)

	text, ok := result.Content[0].(mcp.TextContent)
	require.True(t, ok)
	assert.JSONEq(t, `{"a":1}`, text.Text)
}

func TestAPIErrorResult(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		wantRetry bool
	}{
		{"rate limited", fmt.Errorf("failed to fetch cells of ss1: %w", &googleapi.Error{Code: 429}), true},
		{"unavailable", &googleapi.Error{Code: 503}, true},
		{"forbidden", &googleapi.Error{Code: 403}, false},
		{"not an API error", errors.New("boom"), false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := APIErrorResult("read cells", tt.err)
			require.True(t, result.IsError)
			text, ok := result.Content[0].(mcp.TextContent)
			require.True(t, ok)

			assert.Contains(t, text.Text, "Failed to read cells: ")
			if tt.wantRetry {
				assert.Contains(t, text.Text, retryHint)
			} else {
				assert.NotContains(t, text.Text, retryHint)
			}
		})
	}
}
