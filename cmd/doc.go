// Package cmd implements the command-line interface for sheetmail.
//
// This package provides the following commands:
//   - auth: Run the browser consent flow and save credentials
//   - send: Send a message, packing attachments into the size budget
//   - cells: Print dense cell snapshots of a spreadsheet
//   - filters: Get, clear or re-apply basic filters
//   - serve: Start the MCP server to provide tools for AI assistants
//   - generate-docs: Generate markdown documentation for all MCP tools
package cmd
