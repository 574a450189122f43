// Package gmail_tools exposes message sending as an MCP tool.
package gmail_tools
