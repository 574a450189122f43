package google

import (
	"fmt"
	"strings"

	gmail "google.golang.org/api/gmail/v1"
	sheets "google.golang.org/api/sheets/v4"
)

// DriveMetadataScope lets the Sheets commands resolve spreadsheet metadata.
const DriveMetadataScope = "https://www.googleapis.com/auth/drive.metadata"

// GmailScopes are requested by the send command.
var GmailScopes = []string{
	gmail.GmailSendScope,
}

// SMTPScopes are needed for OAUTHBEARER on smtp.gmail.com, which accepts
// nothing narrower than full mail access.
var SMTPScopes = []string{
	gmail.MailGoogleComScope,
}

// SheetsScopes are requested by the cells and filters commands.
var SheetsScopes = []string{
	sheets.SpreadsheetsScope,
	DriveMetadataScope,
}

// AllScopes covers every command, and is what the MCP server asks for.
var AllScopes = append(append([]string{}, GmailScopes...), SheetsScopes...)

// ScopesFor maps a preset name to its scope list.
func ScopesFor(preset string) ([]string, error) {
	switch strings.ToLower(preset) {
	case "gmail":
		return GmailScopes, nil
	case "sheets":
		return SheetsScopes, nil
	case "smtp":
		return SMTPScopes, nil
	case "", "all":
		return AllScopes, nil
	default:
		return nil, fmt.Errorf("unknown scope preset %q (expected gmail, smtp, sheets or all)", preset)
	}
}
