package sheets

import (
	sheets "google.golang.org/api/sheets/v4"
)

// Color is an RGB background color with components in [0, 1].
type Color struct {
	Red   float64 `json:"red"`
	Green float64 `json:"green"`
	Blue  float64 `json:"blue"`
}

// White is the background of a cell the API reports nothing for.
var White = Color{Red: 1, Green: 1, Blue: 1}

// Snapshot is one data range of one sheet as dense, 0-indexed grids.
// Backgrounds[r][c] and Values[r][c] describe sheet cell (r, c).
type Snapshot struct {
	SheetID     int64      `json:"sheetId"`
	SheetName   string     `json:"sheetName"`
	Backgrounds [][]Color  `json:"backgrounds"`
	Values      [][]string `json:"values"`
}

// Densify converts a field-projected spreadsheet into one snapshot per
// sheet and data range. Rows and columns before the range's start offset
// are padded with white, empty cells so indices match sheet coordinates.
// Every row is padded to the same width. Ranges without row data are skipped.
func Densify(ss *sheets.Spreadsheet) []Snapshot {
	if ss == nil {
		return nil
	}

	var out []Snapshot
	for _, sheet := range ss.Sheets {
		if sheet == nil {
			continue
		}
		var id int64
		var title string
		if sheet.Properties != nil {
			id = sheet.Properties.SheetId
			title = sheet.Properties.Title
		}

		for _, data := range sheet.Data {
			if data == nil || len(data.RowData) == 0 {
				continue
			}
			bgs, vals := densifyRange(data)
			out = append(out, Snapshot{
				SheetID:     id,
				SheetName:   title,
				Backgrounds: bgs,
				Values:      vals,
			})
		}
	}
	return out
}

func densifyRange(data *sheets.GridData) ([][]Color, [][]string) {
	startRow := int(data.StartRow)
	startCol := int(data.StartColumn)

	widest := 0
	for _, row := range data.RowData {
		if row != nil && len(row.Values) > widest {
			widest = len(row.Values)
		}
	}
	width := startCol + widest

	height := startRow + len(data.RowData)
	bgs := make([][]Color, 0, height)
	vals := make([][]string, 0, height)

	for i := 0; i < startRow; i++ {
		bg, v := blankRow(width)
		bgs = append(bgs, bg)
		vals = append(vals, v)
	}

	for _, row := range data.RowData {
		bg, v := blankRow(width)
		if row != nil {
			for c, cell := range row.Values {
				bg[startCol+c] = cellBackground(cell)
				v[startCol+c] = cellValue(cell)
			}
		}
		bgs = append(bgs, bg)
		vals = append(vals, v)
	}
	return bgs, vals
}

func blankRow(width int) ([]Color, []string) {
	bg := make([]Color, width)
	for i := range bg {
		bg[i] = White
	}
	return bg, make([]string, width)
}

func cellBackground(cell *sheets.CellData) Color {
	if cell == nil || cell.EffectiveFormat == nil || cell.EffectiveFormat.BackgroundColor == nil {
		return White
	}
	c := cell.EffectiveFormat.BackgroundColor
	return Color{Red: c.Red, Green: c.Green, Blue: c.Blue}
}

func cellValue(cell *sheets.CellData) string {
	if cell == nil {
		return ""
	}
	return cell.FormattedValue
}
