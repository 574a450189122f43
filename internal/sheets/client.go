package sheets

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/teemow/sheetmail/internal/instrumentation"
	"github.com/teemow/sheetmail/internal/logging"
)

// ErrNoSpreadsheetID is returned when a call is made without a spreadsheet id.
var ErrNoSpreadsheetID = errors.New("spreadsheet id is required")

// CellFields projects a spreadsheet down to cell values and background colors.
const CellFields googleapi.Field = "sheets(data(rowData(values(effectiveFormat/backgroundColor,formattedValue)),startColumn,startRow),properties(sheetId,title))"

// Client reads and updates spreadsheets through the Sheets API.
type Client struct {
	svc     *sheets.SpreadsheetsService
	metrics *instrumentation.Metrics
}

// NewClient creates a Sheets client. Pass google.ClientOptions for an
// authorized HTTP client.
func NewClient(ctx context.Context, opts ...option.ClientOption) (*Client, error) {
	svc, err := sheets.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create sheets service: %w", err)
	}
	return &Client{svc: svc.Spreadsheets}, nil
}

// WithMetrics records API call metrics on m.
func (c *Client) WithMetrics(m *instrumentation.Metrics) *Client {
	c.metrics = m
	return c
}

// FetchCells returns the background color and formatted value of every
// cell in rng, or in the whole spreadsheet when rng is empty.
func (c *Client) FetchCells(ctx context.Context, spreadsheetID, rng string) (*sheets.Spreadsheet, error) {
	if spreadsheetID == "" {
		return nil, ErrNoSpreadsheetID
	}

	call := c.svc.Get(spreadsheetID).Fields(CellFields)
	if rng != "" {
		call = call.Ranges(rng)
	}

	ss, err := c.get(ctx, call)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch cells of %s: %w", spreadsheetID, err)
	}
	logging.WithSpreadsheet(slog.Default(), spreadsheetID).Debug("cells fetched",
		slog.String("range", rng),
		slog.Int("sheets", len(ss.Sheets)))
	return ss, nil
}

func (c *Client) get(ctx context.Context, call *sheets.SpreadsheetsGetCall) (*sheets.Spreadsheet, error) {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceSheets, instrumentation.OperationGet)
	defer span.End()

	done := c.metrics.StartGoogleAPICall(instrumentation.ServiceSheets, instrumentation.OperationGet)
	ss, err := call.Context(ctx).Do()
	done(ctx, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return nil, err
	}
	instrumentation.SetSpanSuccess(span)
	return ss, nil
}

func (c *Client) batchUpdate(ctx context.Context, spreadsheetID string, reqs []*sheets.Request) error {
	ctx, span := instrumentation.StartGoogleAPISpan(ctx, instrumentation.ServiceSheets, instrumentation.OperationUpdate)
	defer span.End()

	done := c.metrics.StartGoogleAPICall(instrumentation.ServiceSheets, instrumentation.OperationUpdate)
	_, err := c.svc.BatchUpdate(spreadsheetID, &sheets.BatchUpdateSpreadsheetRequest{Requests: reqs}).
		Context(ctx).
		Do()
	done(ctx, err)
	if err != nil {
		instrumentation.SetSpanError(span, err)
		return err
	}
	instrumentation.SetSpanSuccess(span)
	return nil
}
