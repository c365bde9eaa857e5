package cli

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"text/tabwriter"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"github.com/EdenYYT/RapidGMPE/internal/adapter/artifacts"
	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/engine"
	"github.com/EdenYYT/RapidGMPE/internal/gmpe"
	"github.com/EdenYYT/RapidGMPE/internal/grid"
	"github.com/EdenYYT/RapidGMPE/internal/observability"
	"github.com/EdenYYT/RapidGMPE/internal/pipeline"
)

type estimateOptions struct {
	name       string
	date       string
	lon, lat   float64
	depthKm    float64
	radiusKm   float64
	ms, mw     float64
	sitePath   string
	outDir     string
	resolution float64
	models     []string
	perModel   bool
	intensity  bool
}

func newEstimateCommand(deps Deps, root *rootOptions, logger func() *slog.Logger) *cobra.Command {
	opts := &estimateOptions{}
	cmd := &cobra.Command{
		Use:   "estimate",
		Short: "Estimate the PGA field of one earthquake",
		Long: `Estimate builds a grid around the epicentre, evaluates every selected model,
weights them by how well a log-normal distribution fits their predictions
inside the radius, and writes the combined PGA raster plus a weights file.

Give at least one of --ms and --mw. When only one is given, --date (DDMMYYYY)
selects the conversion period for the other.`,
		Example: `  rgm estimate --name Lushan --lon 102.95 --lat 30.3 --depth 13 --radius 100 --ms 7.0 --date 20042013
  rgm estimate --lon 103.4 --lat 31.0 --depth 14 --radius 150 --ms 8.0 --mw 7.9 --models GB2015,Wang_2023 --intensity`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ctx, cancel := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
			defer cancel()
			return runEstimate(ctx, cmd.OutOrStdout(), deps, root, opts, logger())
		},
	}

	f := cmd.Flags()
	f.StringVar(&opts.name, "name", "", "Event name used as the output file prefix (generated when empty)")
	f.StringVar(&opts.date, "date", "", "Event date DDMMYYYY, needed to convert a single magnitude")
	f.Float64Var(&opts.lon, "lon", 0, "Epicentre longitude in degrees")
	f.Float64Var(&opts.lat, "lat", 0, "Epicentre latitude in degrees")
	f.Float64Var(&opts.depthKm, "depth", 10, "Focal depth in km")
	f.Float64Var(&opts.radiusKm, "radius", 100, "Analysis radius in km")
	f.Float64Var(&opts.ms, "ms", 0, "Surface-wave magnitude")
	f.Float64Var(&opts.mw, "mw", 0, "Moment magnitude")
	f.StringVar(&opts.sitePath, "site", envOr("SITE_RASTER_PATH", ""), "VS30 raster path")
	f.StringVar(&opts.outDir, "out", envOr("OUTPUT_DIR", "./output"), "Output directory")
	f.Float64Var(&opts.resolution, "resolution", grid.DefaultResolutionKm, "Grid resolution in km")
	f.StringSliceVar(&opts.models, "models", nil, "Models to combine (default all)")
	f.BoolVar(&opts.perModel, "per-model", false, "Also write each model's masked PGA raster")
	f.BoolVar(&opts.intensity, "intensity", false, "Also write intensity and intensity-level rasters")
	_ = cmd.MarkFlagRequired("lon")
	_ = cmd.MarkFlagRequired("lat")

	return cmd
}

func runEstimate(ctx context.Context, w io.Writer, deps Deps, root *rootOptions, opts *estimateOptions, logger *slog.Logger) error {
	if opts.sitePath == "" {
		return errors.New("a site raster is required: pass --site or set SITE_RASTER_PATH")
	}

	report, err := domain.NormalizeReport(domain.EarthquakeReport{
		Name: opts.name,
		Date: opts.date,
		Epicenter: domain.Epicenter{
			Lon:      opts.lon,
			Lat:      opts.lat,
			DepthKm:  opts.depthKm,
			RadiusKm: opts.radiusKm,
		},
		Ms:           opts.ms,
		Mw:           opts.mw,
		Models:       opts.models,
		ResolutionKm: opts.resolution,
		ReceivedAt:   domain.Now(),
	})
	if err != nil {
		return err
	}

	builder, err := grid.NewBuilder(deps.Opener, logger)
	if err != nil {
		return err
	}
	eng := engine.New(builder, gmpe.Default(), logger)
	store := artifacts.NewStore(opts.outDir, deps.Writer, artifacts.Options{
		SavePerModel:       opts.perModel,
		ConvertToIntensity: opts.intensity,
	}, logger)
	metrics := observability.NewMetricsWith(prometheus.NewRegistry())

	tfm := pipeline.NewEstimateTransformer(eng, store, nil, pipeline.Defaults{
		SitePath:     opts.sitePath,
		ResolutionKm: opts.resolution,
	}, metrics, logger)

	summary, err := tfm.EstimateReport(ctx, report)
	if err != nil {
		return err
	}

	if root.jsonOutput {
		enc := json.NewEncoder(w)
		enc.SetIndent("", "  ")
		return enc.Encode(summary)
	}
	return printSummary(w, summary)
}

func printSummary(w io.Writer, s domain.EstimateSummary) error {
	fmt.Fprintf(w, "Event:      %s (%s)\n", s.Name, s.ID)
	fmt.Fprintf(w, "Epicentre:  %.4f, %.4f  depth %.1f km  radius %.1f km\n",
		s.Epicenter.Lon, s.Epicenter.Lat, s.Epicenter.DepthKm, s.Epicenter.RadiusKm)
	fmt.Fprintf(w, "Magnitude:  Ms %.2f  Mw %.2f\n", s.Magnitudes.Ms, s.Magnitudes.Mw)
	fmt.Fprintf(w, "Grid:       %dx%d\n", s.GridWidth, s.GridHeight)
	fmt.Fprintf(w, "Weighting:  %s\n", s.Status)
	if len(s.UnknownModels) > 0 {
		fmt.Fprintf(w, "Ignored:    %v\n", s.UnknownModels)
	}
	fmt.Fprintln(w)

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "MODEL\tWEIGHT")
	for _, mw := range s.Weights {
		if mw.Weight < 0 {
			fmt.Fprintf(tw, "%s\texcluded\n", mw.Model)
			continue
		}
		fmt.Fprintf(tw, "%s\t%.6f\n", mw.Model, mw.Weight)
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	fmt.Fprintln(w)
	fmt.Fprintf(w, "PGA (m/s²): max %.4f  mean %.4f  median %.4f  p95 %.4f over %d cells\n",
		s.PGA.Max, s.PGA.Mean, s.PGA.Median, s.PGA.P95, s.PGA.Cells)
	fmt.Fprintf(w, "Max intensity level: %.0f\n", s.MaxIntensity)
	for _, f := range s.Artifacts {
		fmt.Fprintf(w, "Wrote %s\n", f)
	}
	return nil
}

// exitCode maps an estimate error to a process exit status: 2 for bad
// input or an empty model selection, 1 for everything else.
func exitCode(err error) int {
	switch {
	case err == nil:
		return 0
	case errors.Is(err, domain.ErrInvalidReport), errors.Is(err, gmpe.ErrNoActiveModels), engine.FailedStage(err) == engine.StageInput:
		return 2
	default:
		return 1
	}
}

// Execute runs the command tree and returns the process exit status.
func Execute(ctx context.Context, deps Deps) int {
	if deps.Stderr == nil {
		deps.Stderr = os.Stderr
	}
	err := NewRootCommand(deps).ExecuteContext(ctx)
	if err != nil {
		fmt.Fprintln(deps.Stderr, "Error:", err)
	}
	return exitCode(err)
}
