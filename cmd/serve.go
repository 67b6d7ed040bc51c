// =============================================================================
// Ledger Cleaner - Serve Command
// =============================================================================
//
// COMMAND USAGE:
//   cleaner serve [--addr :8080]
//
// Starts the upload server. SIGINT or SIGTERM shuts it down gracefully.
//
// =============================================================================

package cmd

import (
	"github.com/spf13/cobra"

	"github.com/ginjaninja78/ledger-cleaner/internal/server"
)

// addr overrides server.addr.
var addr string

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Serve the cleaning endpoint over HTTP",
	Long: `Serve accepts ledger exports uploaded to POST / (multipart field "file")
and answers with the cleaned workbook as processed.xlsx. An optional
"profile" query or form field selects a source profile.`,

	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := loadApp()
		if err != nil {
			return err
		}
		defer a.Close()

		if addr != "" {
			a.cfg.Server.Addr = addr
		}

		srv, err := server.New(a.cfg.Server, a.profiles, a.logger)
		if err != nil {
			return err
		}
		return srv.Run(cmd.Context())
	},
}

func init() {
	rootCmd.AddCommand(serveCmd)

	serveCmd.Flags().StringVar(&addr, "addr", "", "Listen address (default: server.addr from the config)")
}
