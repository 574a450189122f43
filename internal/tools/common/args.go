package common

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/mark3labs/mcp-go/mcp"

	"github.com/teemow/sheetmail/internal/google"
)

// retryHint is appended to errors the Google API reports as transient.
const retryHint = " (temporary Google API error, try again later)"

// StringArg returns args[key] when it is a string, or "".
func StringArg(args map[string]interface{}, key string) string {
	s, _ := args[key].(string)
	return strings.TrimSpace(s)
}

// BoolArg returns args[key] when it is a bool, or false.
func BoolArg(args map[string]interface{}, key string) bool {
	b, _ := args[key].(bool)
	return b
}

// IntArg returns args[key] as an int. JSON numbers arrive as float64.
func IntArg(args map[string]interface{}, key string, def int) int {
	switch v := args[key].(type) {
	case float64:
		return int(v)
	case int:
		return v
	}
	return def
}

// ListArg accepts either a JSON array of strings or a comma-separated string.
func ListArg(args map[string]interface{}, key string) []string {
	switch v := args[key].(type) {
	case string:
		return SplitList(v)
	case []interface{}:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if s, ok := item.(string); ok && strings.TrimSpace(s) != "" {
				out = append(out, strings.TrimSpace(s))
			}
		}
		return out
	}
	return nil
}

// SplitList splits a comma-separated list, dropping empty entries.
func SplitList(s string) []string {
	var out []string
	for _, part := range strings.Split(s, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}

// JSONResult renders v as an indented JSON text result.
func JSONResult(v interface{}) (*mcp.CallToolResult, error) {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to encode result: %v", err)), nil
	}
	return mcp.NewToolResultText(string(b)), nil
}

// APIErrorResult reports a failed Google API call as a tool error. Rate
// limit and server errors are marked as worth retrying.
func APIErrorResult(action string, err error) *mcp.CallToolResult {
	msg := fmt.Sprintf("Failed to %s: %v", action, err)
	if google.IsRetryable(err) {
		msg += retryHint
	}
	return mcp.NewToolResultError(msg)
}
