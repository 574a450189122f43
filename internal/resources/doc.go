// Package resources provides MCP resources for sheetmail.
//
// sheetmail://settings reports the safety mode and the attachment budget
// used by gmail_send_message. The sheets://spreadsheets/{spreadsheet_id}/filters
// template returns the same JSON as the sheets_get_filters tool, so clients
// can read filters without a tool call.
package resources
