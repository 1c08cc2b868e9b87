// Package configcmder provides the config command for managing persistent
// cartable configuration stored in the .cartable/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent cartable configuration.

Configuration is stored as config.toml in the .cartable/ directory and
provides default values for command flags. CLI flags always take precedence
over config file values.

Keys use dotted notation matching the TOML section structure:
  api.listen,
  chat.base_url, chat.api_key, chat.model, chat.site_url, chat.site_name,
  embedding.provider, embedding.target, embedding.model, embedding.dimensions,
  vector_store.provider, vector_store.target, vector_store.collection, vector_store.path,
  retrieval.threshold, retrieval.top_k,
  chunking.size, chunking.overlap,
  events.provider, events.topic

Use subcommands to get, set, or list configuration values:
  cartable config set <key> <value>    Set a configuration value
  cartable config get <key>            Get a configuration value
  cartable config list                 List all configuration values

Examples:
  cartable config set chat.api_key sk-or-...
  cartable config set vector_store.provider qdrant
  cartable config get retrieval.threshold
  cartable config list`

const configShortDesc string = "Manage persistent cartable configuration"

func NewConfigCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "config",
		Short: configShortDesc,
		Long:  configLongDesc,
	}

	cmd.AddCommand(newSetCmd())
	cmd.AddCommand(newGetCmd())
	cmd.AddCommand(newListCmd())

	return cmd
}
