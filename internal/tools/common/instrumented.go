package common

import (
	"context"
	"errors"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sheetmail/internal/instrumentation"
	"github.com/teemow/sheetmail/internal/logging"
	"github.com/teemow/sheetmail/internal/server"
)

var errToolResult = errors.New("tool returned an error result")

// InstrumentedToolHandlerWithService wraps handler with a tool span, tool
// metrics and an audit log entry. A result with IsError counts as a failure.
//
//	s.AddTool(tool, common.InstrumentedToolHandlerWithService("sheets_get_cells",
//		instrumentation.ServiceSheets, instrumentation.OperationGet, sc, handler))
func InstrumentedToolHandlerWithService(
	toolName string,
	serviceName string,
	operation string,
	sc *server.ServerContext,
	handler mcpserver.ToolHandlerFunc,
) mcpserver.ToolHandlerFunc {
	return func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
		ctx, span := instrumentation.StartToolSpan(ctx, toolName)
		defer span.End()

		start := time.Now()
		invocation := instrumentation.NewToolInvocation(toolName).
			WithSpanContext(ctx).
			WithService(serviceName, operation).
			WithTarget(auditTarget(request.GetArguments()))

		result, err := handler(ctx, request)

		failed := err != nil || (result != nil && result.IsError)
		status := instrumentation.StatusSuccess
		if failed {
			status = instrumentation.StatusError
			spanErr := err
			if spanErr == nil {
				spanErr = errToolResult
			}
			instrumentation.SetSpanError(span, spanErr)
		} else {
			instrumentation.SetSpanSuccess(span)
		}
		invocation.Complete(!failed, err)

		sc.Metrics().RecordToolInvocation(ctx, toolName, status, time.Since(start))
		sc.AuditLogger().LogToolInvocation(ctx, invocation)

		return result, err
	}
}

// auditTarget names what a call acts on without logging raw addresses.
func auditTarget(args map[string]interface{}) string {
	if id := StringArg(args, "spreadsheet_id"); id != "" {
		return id
	}
	if to := StringArg(args, "to"); to != "" {
		return logging.Recipient(to).Value.String()
	}
	return ""
}
