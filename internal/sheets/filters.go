package sheets

import (
	"context"
	"fmt"
	"log/slog"
	"sort"

	"google.golang.org/api/googleapi"
	sheets "google.golang.org/api/sheets/v4"

	"github.com/teemow/sheetmail/internal/logging"
)

// FilterFields projects a spreadsheet down to its basic filters.
const FilterFields googleapi.Field = "sheets(properties(sheetId,title),basicFilter)"

// Filters maps a sheet id to the basic filter set on that sheet.
type Filters map[int64]*sheets.BasicFilter

// SheetIDs returns the keys in ascending order.
func (f Filters) SheetIDs() []int64 {
	ids := make([]int64, 0, len(f))
	for id := range f {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	return ids
}

// GetFilters reads the basic filter of every sheet that has one.
func (c *Client) GetFilters(ctx context.Context, spreadsheetID string) (Filters, error) {
	if spreadsheetID == "" {
		return nil, ErrNoSpreadsheetID
	}

	ss, err := c.get(ctx, c.svc.Get(spreadsheetID).Fields(FilterFields))
	if err != nil {
		return nil, fmt.Errorf("failed to get filters of %s: %w", spreadsheetID, err)
	}

	filters := Filters{}
	for _, sheet := range ss.Sheets {
		if sheet == nil || sheet.BasicFilter == nil || sheet.Properties == nil {
			continue
		}
		filters[sheet.Properties.SheetId] = sheet.BasicFilter
	}
	return filters, nil
}

// ClearFilters removes the basic filter of every sheet in filters in a
// single batch. It is a no-op for an empty map.
func (c *Client) ClearFilters(ctx context.Context, spreadsheetID string, filters Filters) error {
	if spreadsheetID == "" {
		return ErrNoSpreadsheetID
	}
	if len(filters) == 0 {
		return nil
	}

	if err := c.batchUpdate(ctx, spreadsheetID, ClearRequests(filters)); err != nil {
		return fmt.Errorf("failed to clear filters of %s: %w", spreadsheetID, err)
	}
	logging.WithSpreadsheet(slog.Default(), spreadsheetID).Info("filters cleared",
		slog.Int("count", len(filters)))
	return nil
}

// ApplyFilters replaces the basic filter of every sheet in filters, each
// widened to cover the whole sheet. Existing filters are cleared in a
// first batch because a sheet holds at most one basic filter and a batch
// is validated as a whole before any request runs.
func (c *Client) ApplyFilters(ctx context.Context, spreadsheetID string, filters Filters) error {
	if err := c.ClearFilters(ctx, spreadsheetID, filters); err != nil {
		return err
	}
	if len(filters) == 0 {
		return nil
	}

	if err := c.batchUpdate(ctx, spreadsheetID, SetRequests(filters)); err != nil {
		return fmt.Errorf("failed to set filters of %s: %w", spreadsheetID, err)
	}
	logging.WithSpreadsheet(slog.Default(), spreadsheetID).Info("filters applied",
		slog.Int("count", len(filters)))
	return nil
}

// ClearRequests builds one clearBasicFilter request per sheet id.
func ClearRequests(filters Filters) []*sheets.Request {
	reqs := make([]*sheets.Request, 0, len(filters))
	for _, id := range filters.SheetIDs() {
		reqs = append(reqs, &sheets.Request{
			ClearBasicFilter: &sheets.ClearBasicFilterRequest{
				SheetId:         id,
				ForceSendFields: []string{"SheetId"},
			},
		})
	}
	return reqs
}

// SetRequests builds one setBasicFilter request per filter, with the range
// reduced to the sheet id so the filter spans the entire sheet.
func SetRequests(filters Filters) []*sheets.Request {
	reqs := make([]*sheets.Request, 0, len(filters))
	for _, id := range filters.SheetIDs() {
		reqs = append(reqs, &sheets.Request{
			SetBasicFilter: &sheets.SetBasicFilterRequest{
				Filter: WholeSheet(id, filters[id]),
			},
		})
	}
	return reqs
}

// WholeSheet returns a copy of f whose range covers all of sheet id.
func WholeSheet(id int64, f *sheets.BasicFilter) *sheets.BasicFilter {
	out := &sheets.BasicFilter{}
	if f != nil {
		*out = *f
	}
	out.Range = &sheets.GridRange{
		SheetId:         id,
		ForceSendFields: []string{"SheetId"},
	}
	return out
}
