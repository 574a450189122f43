package gmail_tools

import (
	"context"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sheetmail/internal/gmail"
	"github.com/teemow/sheetmail/internal/google"
	"github.com/teemow/sheetmail/internal/instrumentation"
	"github.com/teemow/sheetmail/internal/server"
	"github.com/teemow/sheetmail/internal/tools/common"
)

// RegisterGmailTools registers gmail_send_message. Sending is a write
// operation, so it is only registered when readOnly is false.
func RegisterGmailTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	if readOnly {
		return nil
	}

	sendTool := mcp.NewTool("gmail_send_message",
		mcp.WithDescription("Send an email through Gmail, attaching local files in order until the size budget is reached. "+
			"Packing stops at the first file that does not fit; later files are reported as not attempted."),
		mcp.WithString("to",
			mcp.Required(),
			mcp.Description("Recipient address(es), comma-separated"),
		),
		mcp.WithString("subject",
			mcp.Description("Message subject"),
		),
		mcp.WithString("from",
			mcp.Description("Sender address (default: the authorized account)"),
		),
		mcp.WithString("cc",
			mcp.Description("CC address(es), comma-separated"),
		),
		mcp.WithString("bcc",
			mcp.Description("BCC address(es), comma-separated"),
		),
		mcp.WithString("body",
			mcp.Description("Message body. Omit for an attachments-only message."),
		),
		mcp.WithBoolean("html",
			mcp.Description("Send the body as text/html instead of text/plain"),
		),
		mcp.WithArray("attachments",
			mcp.Description("Paths of files to attach, in priority order"),
			mcp.WithStringItems(),
		),
		mcp.WithNumber("max_mb",
			mcp.Description(fmt.Sprintf("Total message size budget in MB (default: %d)", sc.MaxMB())),
		),
		mcp.WithBoolean("dry_run",
			mcp.Description("Build and pack the message without sending it"),
		),
		mcp.WithDestructiveHintAnnotation(false),
		mcp.WithOpenWorldHintAnnotation(true),
	)

	s.AddTool(sendTool, common.InstrumentedToolHandlerWithService("gmail_send_message",
		instrumentation.ServiceGmail, instrumentation.OperationSend, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			return handleSendMessage(ctx, request, sc)
		}))

	return nil
}

// sendResult is the JSON body returned by gmail_send_message.
type sendResult struct {
	ID           string           `json:"id,omitempty"`
	ThreadID     string           `json:"thread_id,omitempty"`
	DryRun       bool             `json:"dry_run,omitempty"`
	Attachments  gmail.PackResult `json:"attachments"`
	MessageBytes int              `json:"message_bytes"`
}

func handleSendMessage(ctx context.Context, request mcp.CallToolRequest, sc *server.ServerContext) (*mcp.CallToolResult, error) {
	args := request.GetArguments()

	headers := gmail.Headers{
		To:      common.StringArg(args, "to"),
		From:    common.StringArg(args, "from"),
		Subject: common.StringArg(args, "subject"),
		Cc:      common.StringArg(args, "cc"),
		Bcc:     common.StringArg(args, "bcc"),
	}
	body := common.StringArg(args, "body")

	msg, err := gmail.BuildMessage(headers, body, common.BoolArg(args, "html"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid message: %v", err)), nil
	}

	packer := &gmail.Packer{MaxMB: common.IntArg(args, "max_mb", sc.MaxMB())}
	packed, err := packer.Pack(msg, common.ListArg(args, "attachments"))
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Failed to attach files: %v", err)), nil
	}
	sc.Metrics().RecordPack(ctx, len(packed.Attached), len(packed.NotAttempted), int64(packed.Size))

	result := sendResult{Attachments: packed, MessageBytes: msg.Size()}
	if common.BoolArg(args, "dry_run") {
		result.DryRun = true
		return common.JSONResult(result)
	}

	sender, err := sc.GmailSender()
	if err != nil {
		if errors.Is(err, google.ErrNoCredential) {
			return mcp.NewToolResultError("No Google credentials found. Run 'sheetmail auth' to authorize Gmail access."), nil
		}
		return mcp.NewToolResultError(fmt.Sprintf("Failed to create Gmail client: %v", err)), nil
	}

	sent, err := sender.Send(ctx, msg)
	if err != nil {
		return common.APIErrorResult("send message", err), nil
	}
	result.ID = sent.Id
	result.ThreadID = sent.ThreadId
	return common.JSONResult(result)
}
