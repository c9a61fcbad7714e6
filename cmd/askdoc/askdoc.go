// Package askdoccmder
package askdoccmder

import (
	reconcilecmder "github.com/askdocco/askdoc/cmd/askdoc/reconcile"
	servecmder "github.com/askdocco/askdoc/cmd/askdoc/serve"
	"github.com/spf13/cobra"
)

const askdocLongDesc string = `Askdoc answers questions over your own documents.

Upload files, ask questions, and get grounded answers with sources:
  askdoc serve        Run the HTTP API server
  askdoc reconcile    Repair metadata left behind by interrupted deletions`

const askdocShortDesc string = "Askdoc - Document Question Answering"

func NewAskdocCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "askdoc",
		Short: askdocShortDesc,
		Long:  askdocLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().StringP("config", "c", "", "Directory containing config.yaml")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(reconcilecmder.NewReconcileCmd())

	return cmd
}
