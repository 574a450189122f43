package sheets

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sheets "google.golang.org/api/sheets/v4"
)

func cell(value string, bg *sheets.Color) *sheets.CellData {
	c := &sheets.CellData{FormattedValue: value}
	if bg != nil {
		c.EffectiveFormat = &sheets.CellFormat{BackgroundColor: bg}
	}
	return c
}

func spreadsheet(id int64, title string, data ...*sheets.GridData) *sheets.Spreadsheet {
	return &sheets.Spreadsheet{
		Sheets: []*sheets.Sheet{{
			Properties: &sheets.SheetProperties{SheetId: id, Title: title},
			Data:       data,
		}},
	}
}

func TestDensifyOffsets(t *testing.T) {
	red := &sheets.Color{Red: 1}
	ss := spreadsheet(7, "Scoreboard", &sheets.GridData{
		StartRow:    3,
		StartColumn: 1,
		RowData: []*sheets.RowData{{
			Values: []*sheets.CellData{cell("a", red), cell("b", nil)},
		}},
	})

	got := Densify(ss)
	require.Len(t, got, 1)
	snap := got[0]

	assert.Equal(t, int64(7), snap.SheetID)
	assert.Equal(t, "Scoreboard", snap.SheetName)
	require.Len(t, snap.Values, 4)
	require.Len(t, snap.Backgrounds, 4)

	for r := 0; r < 3; r++ {
		assert.Equal(t, []string{"", "", ""}, snap.Values[r], "row %d", r)
		assert.Equal(t, []Color{White, White, White}, snap.Backgrounds[r], "row %d", r)
	}
	assert.Equal(t, []string{"", "a", "b"}, snap.Values[3])
	assert.Equal(t, []Color{White, {Red: 1}, White}, snap.Backgrounds[3])
}

func TestDensifyRaggedRows(t *testing.T) {
	ss := spreadsheet(0, "Sheet1", &sheets.GridData{
		RowData: []*sheets.RowData{
			{Values: []*sheets.CellData{cell("1", nil)}},
			{Values: []*sheets.CellData{cell("2", nil), cell("3", nil), cell("", nil)}},
			{},
		},
	})

	snap := Densify(ss)[0]
	assert.Equal(t, [][]string{
		{"1", "", ""},
		{"2", "3", ""},
		{"", "", ""},
	}, snap.Values)
	for _, row := range snap.Backgrounds {
		assert.Len(t, row, 3)
	}
}

func TestDensifyIdempotentOnDenseData(t *testing.T) {
	grey := &sheets.Color{Red: 0.5, Green: 0.5, Blue: 0.5}
	ss := spreadsheet(1, "Dense", &sheets.GridData{
		RowData: []*sheets.RowData{
			{Values: []*sheets.CellData{cell("a", grey), cell("b", grey)}},
			{Values: []*sheets.CellData{cell("c", grey), cell("d", grey)}},
		},
	})

	first := Densify(ss)
	again := Densify(ss)
	assert.Equal(t, first, again)
	assert.Equal(t, [][]string{{"a", "b"}, {"c", "d"}}, first[0].Values)
	assert.Equal(t, Color{Red: 0.5, Green: 0.5, Blue: 0.5}, first[0].Backgrounds[1][1])
}

func TestDensifyBlackBackgroundIsKept(t *testing.T) {
	// The API omits zero components, so black arrives as an empty color.
	ss := spreadsheet(1, "S", &sheets.GridData{
		RowData: []*sheets.RowData{{Values: []*sheets.CellData{cell("x", &sheets.Color{})}}},
	})
	assert.Equal(t, Color{}, Densify(ss)[0].Backgrounds[0][0])
}

func TestDensifySkipsEmptyRanges(t *testing.T) {
	ss := &sheets.Spreadsheet{
		Sheets: []*sheets.Sheet{
			{
				Properties: &sheets.SheetProperties{SheetId: 1, Title: "Empty"},
				Data:       []*sheets.GridData{{StartRow: 5}},
			},
			{
				Properties: &sheets.SheetProperties{SheetId: 2, Title: "Two ranges"},
				Data: []*sheets.GridData{
					{RowData: []*sheets.RowData{{Values: []*sheets.CellData{cell("a", nil)}}}},
					{StartRow: 10, RowData: []*sheets.RowData{{Values: []*sheets.CellData{cell("z", nil)}}}},
				},
			},
		},
	}

	got := Densify(ss)
	require.Len(t, got, 2)
	assert.Equal(t, "Two ranges", got[0].SheetName)
	assert.Equal(t, "Two ranges", got[1].SheetName)
	assert.Len(t, got[1].Values, 11)
	assert.Equal(t, "z", got[1].Values[10][0])
}

func TestDensifyNil(t *testing.T) {
	assert.Nil(t, Densify(nil))
	assert.Empty(t, Densify(&sheets.Spreadsheet{}))
}
