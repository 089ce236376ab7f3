// Package seedcmder provides the seed command for loading demo messages.
package seedcmder

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/papercomputeco/mural/pkg/message"
	"github.com/papercomputeco/mural/pkg/store/sqlite"
)

const seedLongDesc string = `Seed demo messages into a SQLite database.

Examples:
  mural seed
  mural seed --sqlite ./mural.db
  mural seed --count 500`

const seedShortDesc string = "Seed demo messages"

type seedCommander struct {
	sqlitePath string
	count      int
}

func NewSeedCmd() *cobra.Command {
	cmder := &seedCommander{}

	cmd := &cobra.Command{
		Use:   "seed",
		Short: seedShortDesc,
		Long:  seedLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.sqlitePath, "sqlite", "s", "mural.db", "Path to SQLite database")
	cmd.Flags().IntVarP(&cmder.count, "count", "n", 200, "Number of demo messages to seed")

	return cmd
}

var demoTemplates = []string{
	"Welcome to the wall! Leave a note for the next visitor.",
	"Saw the sunrise from the roof this morning. Worth the alarm.",
	"Does anyone else think the coffee machine on floor 3 is haunted?",
	"Shoutout to whoever watered the lobby plants. They look alive again.",
	"Reading corner idea: swap shelf by the east stairwell?",
	"The mural by the entrance gets better every time I look at it.",
	"Lost a blue scarf near the courtyard. Reward: eternal gratitude.",
	"Tip: the quiet room is actually quiet before 9am.",
	"Happy Friday. Be kind to each other out there.",
	"If you found a sketchbook in the cafe, I miss it dearly.",
}

func (c *seedCommander) run(ctx context.Context) error {
	driver, err := sqlite.NewDriver(c.sqlitePath)
	if err != nil {
		return fmt.Errorf("opening database: %w", err)
	}
	defer driver.Close()

	now := time.Now().UTC()
	for i := 0; i < c.count; i++ {
		msg := &message.Message{
			Content:   fmt.Sprintf("%s (#%d)", demoTemplates[i%len(demoTemplates)], i+1),
			CreatedAt: now.Add(-time.Duration(c.count-i) * time.Minute),
			Approved:  true,
		}
		if _, err := driver.Insert(ctx, msg); err != nil {
			return fmt.Errorf("seeding message %d: %w", i+1, err)
		}
	}

	fmt.Printf("Seeded %d messages into %s\n", c.count, c.sqlitePath)
	return nil
}
