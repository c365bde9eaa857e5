package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/engine"
	"github.com/EdenYYT/RapidGMPE/internal/grid"
)

const sitePath = "vs30.tif"

type recordingWriter struct {
	mu    sync.Mutex
	paths []string
}

func (w *recordingWriter) WriteRaster(path string, _ *grid.MemoryRaster) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.paths = append(w.paths, path)
	return nil
}

func testDeps(t *testing.T) (Deps, *recordingWriter) {
	t.Helper()
	const n = 400
	data := make([]float64, n*n)
	for i := range data {
		data[i] = 300 + float64(i%n)
	}
	opener := grid.NewMemoryOpener()
	opener.Add(sitePath, &grid.MemoryRaster{
		Width:     n,
		Height:    n,
		Transform: grid.FromOrigin(-2, 2, 0.01, 0.01),
		CRS:       grid.GeographicCRS,
		Data:      data,
	})
	w := &recordingWriter{}
	return Deps{Opener: opener, Writer: w, Stderr: &bytes.Buffer{}}, w
}

func run(t *testing.T, deps Deps, args ...string) (string, error) {
	t.Helper()
	var out bytes.Buffer
	cmd := NewRootCommand(deps)
	cmd.SetOut(&out)
	cmd.SetErr(&out)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestModels_Human(t *testing.T) {
	deps, _ := testDeps(t)
	out, err := run(t, deps, "models")
	require.NoError(t, err)

	assert.Contains(t, out, "MODEL")
	for _, name := range []string{"HH1992", "Si1999", "GB2015", "Zhou_2019", "Wang_2023"} {
		assert.Contains(t, out, name)
	}
}

func TestModels_JSON(t *testing.T) {
	deps, _ := testDeps(t)
	out, err := run(t, deps, "models", "--json")
	require.NoError(t, err)

	var got []struct {
		Name        string `json:"name"`
		Description string   `json:"description"`
		Aliases     []string `json:"aliases"`
	}
	require.NoError(t, json.Unmarshal([]byte(out), &got))
	assert.Len(t, got, 5)
	for _, m := range got {
		assert.NotEmpty(t, m.Description, m.Name)
	}
	assert.Equal(t, []string{"HH_1992"}, got[0].Aliases)
	assert.Empty(t, got[4].Aliases)
}

func TestEstimate_JSONSummary(t *testing.T) {
	deps, w := testDeps(t)
	dir := t.TempDir()

	out, err := run(t, deps, "estimate",
		"--name", "Test Quake",
		"--lon", "0", "--lat", "0",
		"--depth", "10", "--radius", "50",
		"--ms", "6.5", "--mw", "6.4",
		"--site", sitePath,
		"--out", dir,
		"--resolution", "5",
		"--json",
	)
	require.NoError(t, err)

	var s domain.EstimateSummary
	require.NoError(t, json.Unmarshal([]byte(out), &s))
	assert.Equal(t, "Test_Quake", s.Name)
	assert.Len(t, s.Weights, 5)
	assert.Greater(t, s.PGA.Max, 0.0)
	assert.NotEmpty(t, s.Artifacts)
	assert.NotEmpty(t, w.paths)
}

func TestEstimate_HumanSummary(t *testing.T) {
	deps, _ := testDeps(t)

	out, err := run(t, deps, "estimate",
		"--lon", "0.5", "--lat", "-0.5",
		"--radius", "40",
		"--ms", "6.0", "--mw", "6.0",
		"--site", sitePath,
		"--out", t.TempDir(),
		"--resolution", "5",
		"--models", "GB2015,Wang_2023",
	)
	require.NoError(t, err)

	assert.Contains(t, out, "Weighting:")
	assert.Contains(t, out, "GB2015")
	assert.Contains(t, out, "Wang_2023")
	assert.NotContains(t, out, "HH1992")
	assert.Contains(t, out, "PGA (m/s²)")
}

func TestEstimate_RequiresSite(t *testing.T) {
	t.Setenv("SITE_RASTER_PATH", "")
	deps, _ := testDeps(t)

	_, err := run(t, deps, "estimate", "--lon", "0", "--lat", "0", "--ms", "6", "--mw", "6")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "site raster")
}

func TestEstimate_RequiresCoordinates(t *testing.T) {
	deps, _ := testDeps(t)
	_, err := run(t, deps, "estimate", "--ms", "6", "--site", sitePath)
	require.Error(t, err)
}

func TestEstimate_InvalidReport(t *testing.T) {
	deps, _ := testDeps(t)

	_, err := run(t, deps, "estimate",
		"--lon", "0", "--lat", "0",
		"--ms", "6.0",
		"--site", sitePath,
		"--out", t.TempDir(),
	)
	require.Error(t, err)
	assert.True(t, errors.Is(err, domain.ErrInvalidReport), "single magnitude without date: %v", err)
	assert.Equal(t, 2, exitCode(err))
}

func TestExitCode(t *testing.T) {
	assert.Equal(t, 0, exitCode(nil))
	assert.Equal(t, 2, exitCode(domain.ErrInvalidReport))
	assert.Equal(t, 2, exitCode(&engine.StageError{Stage: engine.StageInput, Err: errors.New("bad")}))
	assert.Equal(t, 1, exitCode(&engine.StageError{Stage: engine.StageGrid, Err: errors.New("io")}))
	assert.Equal(t, 1, exitCode(errors.New("boom")))
}
