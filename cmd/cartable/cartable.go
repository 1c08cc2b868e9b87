// Package cartablecmder
package cartablecmder

import (
	"github.com/spf13/cobra"

	askcmder "github.com/cartableai/cartable/cmd/cartable/ask"
	configcmder "github.com/cartableai/cartable/cmd/cartable/config"
	ingestcmder "github.com/cartableai/cartable/cmd/cartable/ingest"
	servecmder "github.com/cartableai/cartable/cmd/cartable/serve"
	versioncmder "github.com/cartableai/cartable/cmd/version"
)

const cartableLongDesc string = `Cartable is a retrieval-augmented chat backend for course documents.

Ingest PDF, Word, and PowerPoint files, then ask questions answered from
their content:
  cartable serve             Run the HTTP API server
  cartable ingest <files>    Index documents into the vector store
  cartable ask <question>    Ask a one-shot question from the terminal`

const cartableShortDesc string = "Cartable - Document Q&A"

func NewCartableCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "cartable",
		Short: cartableShortDesc,
		Long:  cartableLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Override the .cartable/ config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(ingestcmder.NewIngestCmd())
	cmd.AddCommand(askcmder.NewAskCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
