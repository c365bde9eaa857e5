// Package cli implements the rgm command line: one-off estimates and model
// listing against a local site raster.
package cli

import (
	"io"
	"log/slog"
	"os"

	"github.com/spf13/cobra"

	"github.com/EdenYYT/RapidGMPE/internal/adapter/artifacts"
	"github.com/EdenYYT/RapidGMPE/internal/grid"
	"github.com/EdenYYT/RapidGMPE/internal/observability"
)

// Deps are the I/O boundaries the commands run against.
type Deps struct {
	Opener grid.SiteOpener
	Writer artifacts.RasterWriter
	// Stderr receives logs; nil means os.Stderr.
	Stderr io.Writer
}

type rootOptions struct {
	logLevel   string
	logFormat  string
	jsonOutput bool
}

// NewRootCommand builds the rgm command tree.
func NewRootCommand(deps Deps) *cobra.Command {
	opts := &rootOptions{}
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}

	root := &cobra.Command{
		Use:   "rgm",
		Short: "Rapid ensemble ground-motion estimates",
		Long: `rgm estimates peak ground acceleration around an epicentre by weighting
several ground-motion prediction equations and combining them.

Environment Variables:
  SITE_RASTER_PATH  Default VS30 GeoTIFF for --site
  OUTPUT_DIR        Default output directory for --out`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&opts.logLevel, "log-level", "warn", "Log level: debug, info, warn, error")
	root.PersistentFlags().StringVar(&opts.logFormat, "log-format", "text", "Log format: text or json")
	root.PersistentFlags().BoolVar(&opts.jsonOutput, "json", false, "Output JSON instead of human-readable text")

	logger := func() *slog.Logger {
		return observability.NewLogger(opts.logLevel, opts.logFormat, deps.Stderr)
	}

	root.AddCommand(newEstimateCommand(deps, opts, logger))
	root.AddCommand(newModelsCommand(opts))
	return root
}

func envOr(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}
