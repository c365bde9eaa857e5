package pipeline_test

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdenYYT/RapidGMPE/internal/domain"
	"github.com/EdenYYT/RapidGMPE/internal/engine"
	"github.com/EdenYYT/RapidGMPE/internal/observability"
	"github.com/EdenYYT/RapidGMPE/internal/pipeline"
)

// --- mocks ---

type mockExtractor struct {
	batches [][]domain.RawEvent
	index   atomic.Int64
	err     error
}

func (m *mockExtractor) ExtractBatch(ctx context.Context, _ int) ([]domain.RawEvent, error) {
	if m.err != nil {
		return nil, m.err
	}
	i := int(m.index.Add(1) - 1)
	if i >= len(m.batches) {
		// block until context cancelled to simulate waiting for messages
		<-ctx.Done()
		return nil, ctx.Err()
	}
	return m.batches[i], nil
}

type mockTransformer struct {
	failKeys map[string]bool
	errs     map[string]error
}

func (m *mockTransformer) Transform(_ context.Context, raw domain.RawEvent) (domain.EstimateSummary, error) {
	if err := m.errs[string(raw.Key)]; err != nil {
		return domain.EstimateSummary{}, err
	}
	if m.failKeys[string(raw.Key)] {
		return domain.EstimateSummary{}, errors.New("bad report")
	}
	return domain.EstimateSummary{ID: string(raw.Key), Status: "selected"}, nil
}

type mockLoader struct {
	mu     sync.Mutex
	loaded []domain.EstimateSummary
	err    error
}

func (m *mockLoader) LoadBatch(_ context.Context, summaries []domain.EstimateSummary) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.loaded = append(m.loaded, summaries...)
	return nil
}

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

func rawEvent(key string, commits *atomic.Int64) domain.RawEvent {
	raw := domain.RawEvent{Key: []byte(key), Topic: "earthquake-reports"}
	if commits != nil {
		raw.Commit = func(context.Context) error {
			commits.Add(1)
			return nil
		}
	}
	return raw
}

func runFor(t *testing.T, p *pipeline.Pipeline, d time.Duration) {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), d)
	defer cancel()
	require.NoError(t, p.Run(ctx))
}

// --- tests ---

func TestPipeline_Run_HappyPath(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawEvent{{
		rawEvent("eq-1", &commits),
		rawEvent("eq-2", &commits),
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), metrics, 10)
	assert.Error(t, p.CheckReadiness(context.Background()))

	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 2)
	assert.Equal(t, "eq-1", ldr.loaded[0].ID)
	assert.Equal(t, int64(2), commits.Load())
	assert.True(t, p.Ready())
	assert.NoError(t, p.CheckReadiness(context.Background()))
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesConsumed), 0)
	assert.InDelta(t, 2, testutil.ToFloat64(metrics.MessagesProduced), 0)
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.PipelineRunning), 0)
}

func TestPipeline_Run_ContextCancellation(t *testing.T) {
	ldr := &mockLoader{}
	p := pipeline.New(&mockExtractor{}, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	require.NoError(t, p.Run(ctx))
	assert.Empty(t, ldr.loaded)
}

func TestPipeline_Run_TransformErrorSkipsAndCommits(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawEvent{{
		rawEvent("bad", &commits),
		rawEvent("good", &commits),
	}}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()
	tfm := &mockTransformer{failKeys: map[string]bool{"bad": true}}

	p := pipeline.New(ext, tfm, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, "good", ldr.loaded[0].ID)
	assert.Equal(t, int64(2), commits.Load(), "poison reports are committed so they are not redelivered")
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsSkipped.WithLabelValues(pipeline.ReasonOther)), 0)
}

func TestPipeline_Run_AllFailedNotReady(t *testing.T) {
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawEvent("bad", nil)}}}
	tfm := &mockTransformer{failKeys: map[string]bool{"bad": true}}
	ldr := &mockLoader{}

	p := pipeline.New(ext, tfm, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Empty(t, ldr.loaded)
	assert.False(t, p.Ready())
}

func TestPipeline_Run_LoadErrorDoesNotCommit(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawEvent("eq-1", &commits)}}}
	ldr := &mockLoader{err: errors.New("broker down")}

	p := pipeline.New(ext, &mockTransformer{}, ldr, discardLogger(), observability.NewMetricsForTesting(), 10)
	runFor(t, p, 300*time.Millisecond)

	assert.Zero(t, commits.Load())
	assert.False(t, p.Ready())
}

func TestPipeline_Run_ExtractErrorBacksOff(t *testing.T) {
	ext := &mockExtractor{err: errors.New("no brokers")}
	p := pipeline.New(ext, &mockTransformer{}, &mockLoader{}, discardLogger(), observability.NewMetricsForTesting(), 10)

	start := time.Now()
	runFor(t, p, 300*time.Millisecond)
	assert.GreaterOrEqual(t, time.Since(start), 250*time.Millisecond)
}

func TestPipeline_Run_SkipReasons(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawEvent{{
		rawEvent("invalid", &commits),
		rawEvent("grid", &commits),
		rawEvent("disk", &commits),
		rawEvent("eq-ok", &commits),
	}}}
	tfm := &mockTransformer{errs: map[string]error{
		"invalid": fmt.Errorf("%w: decode: unexpected EOF", domain.ErrInvalidReport),
		"grid":    fmt.Errorf("estimate eq-2: %w", &engine.StageError{Stage: engine.StageGrid, Err: errors.New("open vs30.tif")}),
		"disk":    fmt.Errorf("%w for eq-3: %w", pipeline.ErrArtifacts, errors.New("no space left on device")),
	}}
	ldr := &mockLoader{}
	metrics := observability.NewMetricsForTesting()

	p := pipeline.New(ext, tfm, ldr, discardLogger(), metrics, 10)
	runFor(t, p, 300*time.Millisecond)

	require.Len(t, ldr.loaded, 1)
	assert.Equal(t, int64(4), commits.Load())
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsSkipped.WithLabelValues(pipeline.ReasonInvalidReport)), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsSkipped.WithLabelValues("grid_construction")), 0)
	assert.InDelta(t, 1, testutil.ToFloat64(metrics.ReportsSkipped.WithLabelValues(pipeline.ReasonArtifacts)), 0)
}

type cancellingTransformer struct {
	cancel context.CancelFunc
}

func (c *cancellingTransformer) Transform(ctx context.Context, _ domain.RawEvent) (domain.EstimateSummary, error) {
	c.cancel()
	return domain.EstimateSummary{}, &engine.StageError{Stage: engine.StageModels, Err: ctx.Err()}
}

func TestPipeline_Run_ShutdownMidEstimateLeavesOffset(t *testing.T) {
	var commits atomic.Int64
	ext := &mockExtractor{batches: [][]domain.RawEvent{{rawEvent("eq-1", &commits)}}}
	metrics := observability.NewMetricsForTesting()

	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()
	p := pipeline.New(ext, &cancellingTransformer{cancel: cancel}, &mockLoader{}, discardLogger(), metrics, 10)

	require.NoError(t, p.Run(ctx))
	assert.Zero(t, commits.Load(), "an interrupted report is redelivered")
	assert.InDelta(t, 0, testutil.ToFloat64(metrics.ReportsSkipped.WithLabelValues("model_evaluation")), 0)
}

func TestFailureReason(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want string
	}{
		{name: "invalid report", err: domain.ErrInvalidReport, want: pipeline.ReasonInvalidReport},
		{name: "wrapped stage", err: fmt.Errorf("estimate x: %w", &engine.StageError{Stage: engine.StageWeights, Err: errors.New("no ensemble")}), want: "weighting"},
		{name: "input stage", err: &engine.StageError{Stage: engine.StageInput, Err: errors.New("depth")}, want: "input_validation"},
		{name: "artifacts", err: fmt.Errorf("%w for x: %w", pipeline.ErrArtifacts, errors.New("disk")), want: pipeline.ReasonArtifacts},
		{name: "other", err: errors.New("boom"), want: pipeline.ReasonOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, pipeline.FailureReason(tt.err))
		})
	}
}
