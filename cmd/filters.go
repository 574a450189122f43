package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/sheetmail/internal/sheets"
)

func newFiltersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "filters",
		Short: "Get, clear or re-apply basic filters",
		Long: `Manage the basic filter of each sheet in a spreadsheet.

Filters are exchanged as a JSON object mapping sheet id to the API's
BasicFilter. 'get' output can be fed back to 'apply --file'.`,
	}

	cmd.AddCommand(newFiltersGetCmd())
	cmd.AddCommand(newFiltersClearCmd())
	cmd.AddCommand(newFiltersApplyCmd())

	return cmd
}

func newFiltersGetCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "get <spreadsheet-id>",
		Short: "Print the basic filter of every sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newSheetsClient(ctx)
			if err != nil {
				return err
			}
			filters, err := client.GetFilters(ctx, args[0])
			if err != nil {
				return err
			}
			return writeJSON(cmd.OutOrStdout(), filters)
		},
	}
}

func newFiltersClearCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "clear <spreadsheet-id>",
		Short: "Remove the basic filter of every sheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()
			client, err := newSheetsClient(ctx)
			if err != nil {
				return err
			}
			filters, err := client.GetFilters(ctx, args[0])
			if err != nil {
				return err
			}
			if err := client.ClearFilters(ctx, args[0], filters); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Cleared %d filter(s)\n", len(filters))
			return nil
		},
	}
}

func newFiltersApplyCmd() *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "apply <spreadsheet-id>",
		Short: "Re-apply basic filters so each covers its whole sheet",
		Long: `Clear and re-set basic filters, widening each filter's range to the whole
sheet. Sort and filter criteria are kept.

Filters are read from --file when given, otherwise the spreadsheet's
current filters are used.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := cmd.Context()

			var filters sheets.Filters
			if file != "" {
				loaded, err := readFiltersFile(file)
				if err != nil {
					return err
				}
				filters = loaded
			}

			client, err := newSheetsClient(ctx)
			if err != nil {
				return err
			}
			if filters == nil {
				if filters, err = client.GetFilters(ctx, args[0]); err != nil {
					return err
				}
			}
			if err := client.ApplyFilters(ctx, args[0], filters); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Applied %d filter(s)\n", len(filters))
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "JSON file with filters as printed by 'filters get'")

	return cmd
}

func readFiltersFile(path string) (sheets.Filters, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read filters file: %w", err)
	}
	filters := sheets.Filters{}
	if err := json.Unmarshal(data, &filters); err != nil {
		return nil, fmt.Errorf("failed to parse filters file %s: %w", path, err)
	}
	return filters, nil
}
