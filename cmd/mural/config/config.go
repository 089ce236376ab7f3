// Package configcmder provides the config command for managing persistent
// mural configuration stored in the .mural/ directory.
package configcmder

import (
	"github.com/spf13/cobra"
)

const configLongDesc string = `Manage persistent mural configuration.

Configuration is stored as config.toml in the .mural/ directory and provides
default values for command flags. CLI flags always take precedence over
config file values.

Keys use dotted notation matching the TOML section structure:
  server.listen, storage.backend, storage.sqlite_path, storage.postgres_url,
  traversal.working_set_size, traversal.cluster_size, traversal.cluster_duration_ms,
  pool.poll_interval_ms, pool.queue_max_size, pool.normal_slots,
  similarity.temporal_weight, similarity.length_weight, similarity.semantic_weight,
  vector_store.provider, vector_store.host, vector_store.port,
  embedding.provider, embedding.target, embedding.model,
  events.provider, events.topic

Use subcommands to get, set, or list configuration values:
  mural config set <key> <value>    Set a configuration value
  mural config get <key>            Get a configuration value
  mural config list                 List all configuration values

Examples:
  mural config set traversal.working_set_size 200
  mural config set embedding.model nomic-embed-text
  mural config get storage.backend
  mural config list`

const configShortDesc string = "Manage persistent mural configuration"

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
