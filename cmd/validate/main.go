// Command validate checks the artifacts an estimate run left in an output
// directory: every weights file is well formed, non-excluded weights sum to
// one, and the rasters next to it open, agree on size and hold plausible
// values.
//
// Usage:
//
//	go run ./cmd/validate -dir output
//	go run ./cmd/validate -dir output -name Lushan
package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math"
	"os"
	"path/filepath"
	"slices"
	"strings"

	"github.com/EdenYYT/RapidGMPE/internal/adapter/artifacts"
	"github.com/EdenYYT/RapidGMPE/internal/adapter/geotiff"
	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/gmpe"
	"github.com/EdenYYT/RapidGMPE/internal/grid"
)

const (
	weightsSuffix = "_GMPE_weights.txt"
	weightSumTol  = 1e-4
	maxLevel      = 7
)

// phase tracks pass/fail for a validation phase.
type phase struct {
	name   string
	errors []string
}

func (p *phase) errorf(format string, args ...any) {
	p.errors = append(p.errors, fmt.Sprintf(format, args...))
}

func (p *phase) passed() bool { return len(p.errors) == 0 }

func main() {
	dir := flag.String("dir", "", "output directory to validate")
	name := flag.String("name", "", "only validate this event (default: every event in -dir)")
	flag.Parse()

	if *dir == "" {
		flag.Usage()
		os.Exit(1)
	}

	if code := run(*dir, *name); code != 0 {
		os.Exit(code)
	}
}

func run(dir, name string) int {
	fmt.Println("=== Ground-Motion Artifact Validation ===")
	fmt.Println()

	events, err := findEvents(dir, name)
	if err != nil {
		fmt.Fprintf(os.Stderr, "FATAL: %v\n", err)
		return 1
	}
	if len(events) == 0 {
		fmt.Fprintf(os.Stderr, "FATAL: no %s files in %s\n", weightsSuffix, dir)
		return 1
	}

	opener := geotiff.NewOpener(slog.New(slog.NewTextHandler(io.Discard, nil)))
	known := gmpe.Default().Names()

	var phases []*phase
	for _, ev := range events {
		weights, wp := validateWeights(dir, ev, known)
		phases = append(phases, wp, validateRasters(opener, dir, ev, weights))
	}

	fmt.Println()
	allPassed := true
	for _, p := range phases {
		status := "\033[32mPASS\033[0m"
		if !p.passed() {
			status = fmt.Sprintf("\033[31mFAIL (%d errors)\033[0m", len(p.errors))
			allPassed = false
		}
		fmt.Printf("  %-42s %s\n", p.name, status)
	}

	fmt.Println()
	fmt.Printf("Events: %d\n", len(events))

	for _, p := range phases {
		if p.passed() {
			continue
		}
		fmt.Printf("\n--- %s ---\n", p.name)
		for i, e := range p.errors {
			fmt.Printf("  [%d] %s\n", i+1, e)
		}
	}

	if allPassed {
		fmt.Println("\nAll validations passed.")
		return 0
	}
	fmt.Println("\nValidation FAILED.")
	return 1
}

// ── Discovery ──

func findEvents(dir, name string) ([]string, error) {
	if name != "" {
		return []string{domain.SanitizeName(name)}, nil
	}
	matches, err := filepath.Glob(filepath.Join(dir, "*"+weightsSuffix))
	if err != nil {
		return nil, err
	}
	events := make([]string, 0, len(matches))
	for _, m := range matches {
		events = append(events, strings.TrimSuffix(filepath.Base(m), weightsSuffix))
	}
	slices.Sort(events)
	return events, nil
}

// ── Weights ──

func validateWeights(dir, event string, known []string) ([]domain.ModelWeight, *phase) {
	p := &phase{name: event + ": weights"}
	path := filepath.Join(dir, event+weightsSuffix)

	f, err := os.Open(path)
	if err != nil {
		p.errorf("open: %v", err)
		return nil, p
	}
	defer f.Close()

	head := make([]byte, len("# GMPE Weights"))
	if _, err := io.ReadFull(f, head); err != nil || string(head) != "# GMPE Weights" {
		p.errorf("missing header line")
	}
	if _, err := f.Seek(0, io.SeekStart); err != nil {
		p.errorf("seek: %v", err)
		return nil, p
	}

	weights, err := artifacts.ReadWeights(f)
	if err != nil {
		p.errorf("parse: %v", err)
		return nil, p
	}
	if len(weights) == 0 {
		p.errorf("no model lines")
		return nil, p
	}
	checkWeights(p, weights, known)
	return weights, p
}

func checkWeights(p *phase, weights []domain.ModelWeight, known []string) {
	seen := make(map[string]bool, len(weights))
	sum, active := 0.0, 0
	for _, w := range weights {
		if seen[w.Model] {
			p.errorf("model %s listed twice", w.Model)
		}
		seen[w.Model] = true
		if !slices.Contains(known, w.Model) {
			p.errorf("unknown model %s", w.Model)
		}
		switch {
		case w.Weight == -1:
		case w.Weight < 0 || w.Weight > 1 || math.IsNaN(w.Weight):
			p.errorf("model %s: weight %v outside [0, 1]", w.Model, w.Weight)
		default:
			sum += w.Weight
			active++
		}
	}
	if active > 0 && math.Abs(sum-1) > weightSumTol {
		p.errorf("active weights sum to %.6f, want 1", sum)
	}
}

// ── Rasters ──

type rasterInfo struct {
	width, height int
	data          []float64
}

func validateRasters(opener grid.SiteOpener, dir, event string, weights []domain.ModelWeight) *phase {
	p := &phase{name: event + ": rasters"}

	pga, err := readRaster(opener, filepath.Join(dir, event+"_PGA.tif"))
	if err != nil {
		p.errorf("ensemble PGA: %v", err)
		return p
	}
	allExcluded := len(weights) > 0 && !slices.ContainsFunc(weights, func(w domain.ModelWeight) bool { return w.Weight >= 0 })
	checkPGA(p, "ensemble PGA", pga, !allExcluded)

	for _, w := range weights {
		path := filepath.Join(dir, fmt.Sprintf("%s_PGA_%s.tif", event, w.Model))
		if _, err := os.Stat(path); err != nil {
			continue // per-model output is optional
		}
		r, err := readRaster(opener, path)
		if err != nil {
			p.errorf("%s PGA: %v", w.Model, err)
			continue
		}
		checkSameShape(p, w.Model+" PGA", pga, r)
		checkPGA(p, w.Model+" PGA", r, false)
	}

	levelPath := filepath.Join(dir, event+"_IntensityLevel.tif")
	if _, err := os.Stat(levelPath); err == nil {
		r, err := readRaster(opener, levelPath)
		if err != nil {
			p.errorf("intensity level: %v", err)
			return p
		}
		checkSameShape(p, "intensity level", pga, r)
		for i, v := range r.data {
			if math.IsNaN(v) {
				continue
			}
			if v < 0 || v > maxLevel || v != math.Trunc(v) {
				p.errorf("intensity level cell %d: %v is not a level 0-%d", i, v, maxLevel)
				break
			}
		}
	}
	return p
}

func readRaster(opener grid.SiteOpener, path string) (rasterInfo, error) {
	src, err := opener.Open(context.Background(), path)
	if err != nil {
		return rasterInfo{}, err
	}
	defer src.Close()

	w, h := src.Size()
	data, err := src.ReadWindow(0, 0, w, h)
	if err != nil {
		return rasterInfo{}, err
	}
	return rasterInfo{width: w, height: h, data: data}, nil
}

func checkSameShape(p *phase, label string, want, got rasterInfo) {
	if want.width != got.width || want.height != got.height {
		p.errorf("%s: %dx%d, ensemble is %dx%d", label, got.width, got.height, want.width, want.height)
	}
}

// checkPGA requires non-negative finite values or NaN, and when requireData
// is set at least one finite cell.
func checkPGA(p *phase, label string, r rasterInfo, requireData bool) {
	if r.width == 0 || r.height == 0 {
		p.errorf("%s: empty raster", label)
		return
	}
	finite := 0
	for i, v := range r.data {
		switch {
		case math.IsNaN(v):
		case math.IsInf(v, 0) || v < 0:
			p.errorf("%s cell %d: invalid PGA %v", label, i, v)
			return
		default:
			finite++
		}
	}
	if requireData && finite == 0 {
		p.errorf("%s: no finite cells inside the radius", label)
	}
}
