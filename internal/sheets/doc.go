// Package sheets reads cell data and manages basic filters through the
// Google Sheets API.
//
// FetchCells requests only background colors and formatted values, and
// Densify reshapes the sparse, offset-indexed response into grids that are
// indexed by sheet coordinates. GetFilters, ClearFilters and ApplyFilters
// read, remove and re-apply the basic filter of each sheet.
package sheets
