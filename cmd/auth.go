package cmd

import (
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/teemow/sheetmail/internal/google"
)

func newAuthCmd() *cobra.Command {
	var preset string

	cmd := &cobra.Command{
		Use:   "auth",
		Short: "Authorize sheetmail with your Google account",
		Long: `Run the OAuth consent flow in the browser and save the resulting credential.

The client secrets file (--client-secret) is the "Desktop app" OAuth client
downloaded from the Google Cloud console. The credential is written to
--credentials and reused by all other commands.

Scope presets:
  - gmail: send mail through the Gmail API
  - smtp: full mail access, needed for send --via smtp
  - sheets: read and edit spreadsheets
  - all: gmail and sheets (default)`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			scopes, err := google.ScopesFor(preset)
			if err != nil {
				return err
			}

			cred, err := google.ObtainInteractive(cmd.Context(), globals.clientSecret, scopes)
			if err != nil {
				return fmt.Errorf("authorization failed: %w", err)
			}

			store := google.NewStore(globals.credentials)
			if err := store.Save(cred); err != nil {
				return err
			}

			slog.Info("credentials saved", slog.String("path", store.Path))
			fmt.Fprintf(cmd.OutOrStdout(), "Credentials saved to %s\n", store.Path)
			return nil
		},
	}

	cmd.Flags().StringVar(&preset, "scopes", "all", "Scope preset to request: gmail, smtp, sheets or all")

	return cmd
}
