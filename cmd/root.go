package cmd

import (
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/teemow/sheetmail/internal/gmail"
	"github.com/teemow/sheetmail/internal/google"
	"github.com/teemow/sheetmail/internal/logging"
)

// globalOptions are the persistent flags shared by every command.
type globalOptions struct {
	debug        bool
	credentials  string
	clientSecret string
}

var globals globalOptions

// rootCmd represents the base command for the sheetmail application
var rootCmd = &cobra.Command{
	Use:   "sheetmail",
	Short: "Send Gmail messages with packed attachments and manage Google Sheets filters",
	Long: `sheetmail sends email through Gmail, attaching as many local files as fit
into the message size budget, and reads cells and basic filters from Google
Sheets.

It can run as:
  - A command-line tool (send, cells, filters)
  - An MCP (Model Context Protocol) server for AI assistants (serve)

Credentials are read from a credentials file (see 'sheetmail auth').`,
	SilenceUsage: true,
	PersistentPreRun: func(cmd *cobra.Command, _ []string) {
		slog.SetDefault(logging.NewLogger(cmd.ErrOrStderr(), globals.debug))
	},
}

// version will be set by main
var version = "dev"

// SetVersion sets the version for the root command
func SetVersion(v string) {
	version = v
	rootCmd.Version = v
}

// Execute is the main entry point for the CLI application
func Execute() {
	rootCmd.SetVersionTemplate(`{{printf "sheetmail version %s\n" .Version}}`)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func init() {
	flags := rootCmd.PersistentFlags()
	flags.BoolVar(&globals.debug, "debug", false, "Enable debug logging")
	flags.StringVar(&globals.credentials, "credentials",
		getEnvOrDefault(envCredentials, google.DefaultCredentialsFile),
		"Path of the saved credentials file. Can also use "+envCredentials+" env var.")
	flags.StringVar(&globals.clientSecret, "client-secret",
		getEnvOrDefault(envClientSecret, google.DefaultClientSecretFile),
		"Path of the OAuth client secrets file used by 'auth'. Can also use "+envClientSecret+" env var.")

	rootCmd.AddCommand(newAuthCmd())
	rootCmd.AddCommand(newSendCmd())
	rootCmd.AddCommand(newCellsCmd())
	rootCmd.AddCommand(newFiltersCmd())
	rootCmd.AddCommand(newServeCmd())
	rootCmd.AddCommand(newGenerateDocsCmd())
}

// defaultMaxMB is the message budget used when --max-mb is not given.
func defaultMaxMB() int {
	return getEnvIntOrDefault(envMaxMB, gmail.DefaultMaxMB)
}
