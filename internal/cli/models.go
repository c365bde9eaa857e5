package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/EdenYYT/RapidGMPE/internal/gmpe"
)

func newModelsCommand(opts *rootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "models",
		Short: "List the built-in ground-motion models",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return printModels(cmd.OutOrStdout(), gmpe.Default().Models(), opts.jsonOutput)
		},
	}
}

func printModels(w io.Writer, models []gmpe.Model, asJSON bool) error {
	if asJSON {
		type entry struct {
			Name        string `json:"name"`
			Description string   `json:"description"`
			Aliases     []string `json:"aliases,omitempty"`
		}
		out := make([]entry, len(models))
		for i, m := range models {
			out[i] = entry{Name: m.Name, Description: m.Description, Aliases: m.Aliases}
		}
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(out)
	}

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tDESCRIPTION")
	for _, m := range models {
		fmt.Fprintf(tw, "%s\t%s\n", m.Name, m.Description)
	}
	return tw.Flush()
}
