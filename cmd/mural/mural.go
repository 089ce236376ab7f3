// Package muralcmder
package muralcmder

import (
	"github.com/spf13/cobra"

	configcmder "github.com/papercomputeco/mural/cmd/mural/config"
	seedcmder "github.com/papercomputeco/mural/cmd/mural/seed"
	servecmder "github.com/papercomputeco/mural/cmd/mural/serve"
	statscmder "github.com/papercomputeco/mural/cmd/mural/stats"
	versioncmder "github.com/papercomputeco/mural/cmd/version"
)

const muralLongDesc string = `Mural is a shared message wall that never stops moving.

Messages are walked endlessly: each display cycle picks a focus, gathers
the most similar messages around it, and hands off to the next focus so
the wall reads as one continuous thread.

Run the server using:
  mural serve          Run the wall server
  mural seed           Seed demo messages
  mural stats          Show traversal statistics`

const muralShortDesc string = "Mural - endless message wall"

func NewMuralCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mural",
		Short: muralShortDesc,
		Long:  muralLongDesc,
	}

	// Global flags
	cmd.PersistentFlags().BoolP("debug", "d", false, "Enable debug logging")
	cmd.PersistentFlags().String("config-dir", "", "Directory containing the .mural config directory")

	// Add subcommands
	cmd.AddCommand(servecmder.NewServeCmd())
	cmd.AddCommand(seedcmder.NewSeedCmd())
	cmd.AddCommand(statscmder.NewStatsCmd())
	cmd.AddCommand(configcmder.NewConfigCmd())
	cmd.AddCommand(versioncmder.NewVersionCmd())

	return cmd
}
