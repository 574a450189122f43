package sheets_tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
	mcpserver "github.com/mark3labs/mcp-go/server"

	"github.com/teemow/sheetmail/internal/google"
	"github.com/teemow/sheetmail/internal/instrumentation"
	"github.com/teemow/sheetmail/internal/server"
	"github.com/teemow/sheetmail/internal/sheets"
	"github.com/teemow/sheetmail/internal/tools/common"
)

type handlerFunc func(ctx context.Context, args map[string]interface{}, client *sheets.Client, id string) (*mcp.CallToolResult, error)

// RegisterSheetsTools registers the Sheets tools with the MCP server.
func RegisterSheetsTools(s *mcpserver.MCPServer, sc *server.ServerContext, readOnly bool) error {
	idParam := mcp.WithString("spreadsheet_id",
		mcp.Required(),
		mcp.Description("ID of the spreadsheet, as found in its URL"),
	)

	getCellsTool := mcp.NewTool("sheets_get_cells",
		mcp.WithDescription("Read formatted values and background colors of a spreadsheet as dense grids, one per sheet and range. "+
			"Grid indices match sheet coordinates: row 0 is the first row of the sheet."),
		idParam,
		mcp.WithString("range",
			mcp.Description("A1 range to read, e.g. 'Scoreboard!A1:H40' (default: every sheet)"),
		),
		mcp.WithBoolean("raw",
			mcp.Description("Return the projected API response instead of dense grids"),
		),
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(getCellsTool, wrap("sheets_get_cells", instrumentation.OperationGet, sc, handleGetCells))

	getFiltersTool := mcp.NewTool("sheets_get_filters",
		mcp.WithDescription("Get the basic filter of every sheet, keyed by sheet id"),
		idParam,
		mcp.WithReadOnlyHintAnnotation(true),
	)
	s.AddTool(getFiltersTool, wrap("sheets_get_filters", instrumentation.OperationGet, sc, handleGetFilters))

	if readOnly {
		return nil
	}

	clearFiltersTool := mcp.NewTool("sheets_clear_filters",
		mcp.WithDescription("Remove the basic filter from every sheet that has one"),
		idParam,
		mcp.WithDestructiveHintAnnotation(true),
	)
	s.AddTool(clearFiltersTool, wrap("sheets_clear_filters", instrumentation.OperationUpdate, sc, handleClearFilters))

	applyFiltersTool := mcp.NewTool("sheets_apply_filters",
		mcp.WithDescription("Clear and re-apply basic filters so that each covers its whole sheet. "+
			"Sort and criteria settings are kept."),
		idParam,
		mcp.WithString("filters",
			mcp.Description("Filters JSON as returned by sheets_get_filters (default: the spreadsheet's current filters)"),
		),
		mcp.WithDestructiveHintAnnotation(false),
	)
	s.AddTool(applyFiltersTool, wrap("sheets_apply_filters", instrumentation.OperationUpdate, sc, handleApplyFilters))

	return nil
}

// wrap resolves the spreadsheet id and client shared by every handler.
func wrap(toolName, operation string, sc *server.ServerContext, h handlerFunc) mcpserver.ToolHandlerFunc {
	return common.InstrumentedToolHandlerWithService(toolName, instrumentation.ServiceSheets, operation, sc,
		func(ctx context.Context, request mcp.CallToolRequest) (*mcp.CallToolResult, error) {
			args := request.GetArguments()
			id := common.StringArg(args, "spreadsheet_id")
			if id == "" {
				return mcp.NewToolResultError("'spreadsheet_id' is required"), nil
			}

			client, err := sc.SheetsClient()
			if err != nil {
				if errors.Is(err, google.ErrNoCredential) {
					return mcp.NewToolResultError("No Google credentials found. Run 'sheetmail auth' to authorize Sheets access."), nil
				}
				return mcp.NewToolResultError(fmt.Sprintf("Failed to create Sheets client: %v", err)), nil
			}
			return h(ctx, args, client, id)
		})
}

func handleGetCells(ctx context.Context, args map[string]interface{}, client *sheets.Client, id string) (*mcp.CallToolResult, error) {
	ss, err := client.FetchCells(ctx, id, common.StringArg(args, "range"))
	if err != nil {
		return common.APIErrorResult("read cells", err), nil
	}
	if common.BoolArg(args, "raw") {
		return common.JSONResult(ss)
	}
	return common.JSONResult(sheets.Densify(ss))
}

func handleGetFilters(ctx context.Context, _ map[string]interface{}, client *sheets.Client, id string) (*mcp.CallToolResult, error) {
	filters, err := client.GetFilters(ctx, id)
	if err != nil {
		return common.APIErrorResult("get filters", err), nil
	}
	return common.JSONResult(filters)
}

// filtersResult reports which sheets a write tool touched.
type filtersResult struct {
	SpreadsheetID string  `json:"spreadsheet_id"`
	SheetIDs      []int64 `json:"sheet_ids"`
}

func handleClearFilters(ctx context.Context, _ map[string]interface{}, client *sheets.Client, id string) (*mcp.CallToolResult, error) {
	filters, err := client.GetFilters(ctx, id)
	if err != nil {
		return common.APIErrorResult("get filters", err), nil
	}
	if err := client.ClearFilters(ctx, id, filters); err != nil {
		return common.APIErrorResult("clear filters", err), nil
	}
	return common.JSONResult(filtersResult{SpreadsheetID: id, SheetIDs: filters.SheetIDs()})
}

func handleApplyFilters(ctx context.Context, args map[string]interface{}, client *sheets.Client, id string) (*mcp.CallToolResult, error) {
	filters, err := parseFilters(args["filters"])
	if err != nil {
		return mcp.NewToolResultError(fmt.Sprintf("Invalid filters: %v", err)), nil
	}
	if filters == nil {
		if filters, err = client.GetFilters(ctx, id); err != nil {
			return common.APIErrorResult("get filters", err), nil
		}
	}
	if err := client.ApplyFilters(ctx, id, filters); err != nil {
		return common.APIErrorResult("apply filters", err), nil
	}
	return common.JSONResult(filtersResult{SpreadsheetID: id, SheetIDs: filters.SheetIDs()})
}

// parseFilters accepts a JSON string or an already decoded object. It
// returns nil filters when v is absent.
func parseFilters(v interface{}) (sheets.Filters, error) {
	var raw []byte
	switch f := v.(type) {
	case nil:
		return nil, nil
	case string:
		if f == "" {
			return nil, nil
		}
		raw = []byte(f)
	default:
		b, err := json.Marshal(f)
		if err != nil {
			return nil, err
		}
		raw = b
	}

	filters := sheets.Filters{}
	if err := json.Unmarshal(raw, &filters); err != nil {
		return nil, err
	}
	return filters, nil
}
