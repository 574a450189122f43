// Package sheets_tools exposes cell snapshots and basic filter management
// as MCP tools. Clearing and applying filters modify the spreadsheet and
// are only registered outside read-only mode.
package sheets_tools
