// Package statscmder provides the stats command for inspecting a running
// wall server.
package statscmder

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"

	"github.com/spf13/cobra"
)

const statsLongDesc string = `Show traversal statistics from a running wall server.

Examples:
  mural stats
  mural stats --target http://localhost:8090`

const statsShortDesc string = "Show traversal statistics"

type statsCommander struct {
	target string
}

func NewStatsCmd() *cobra.Command {
	cmder := &statsCommander{}

	cmd := &cobra.Command{
		Use:   "stats",
		Short: statsShortDesc,
		Long:  statsLongDesc,
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return cmder.run(cmd.Context())
		},
	}

	cmd.Flags().StringVarP(&cmder.target, "target", "t", "http://localhost:8090", "Wall server base URL")

	return cmd
}

func (c *statsCommander) run(ctx context.Context) error {
	statsURL, err := url.JoinPath(c.target, "stats")
	if err != nil {
		return fmt.Errorf("invalid target: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, statsURL, nil)
	if err != nil {
		return fmt.Errorf("building request: %w", err)
	}

	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting stats: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("server returned %s", resp.Status)
	}

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading response: %w", err)
	}

	var pretty map[string]any
	if err := json.Unmarshal(body, &pretty); err != nil {
		return fmt.Errorf("decoding response: %w", err)
	}

	out, err := json.MarshalIndent(pretty, "", "  ")
	if err != nil {
		return err
	}
	fmt.Println(string(out))
	return nil
}
