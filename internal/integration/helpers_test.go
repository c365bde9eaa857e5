//go:build integration

package integration_test

import (
	"context"
	"io"
	"log/slog"
	"net"
	"strconv"
	"testing"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go"
	tckafka "github.com/testcontainers/testcontainers-go/modules/kafka"

	"github.com/EdenYYT/RapidGMPE/internal/engine"
	"github.com/EdenYYT/RapidGMPE/internal/gmpe"
	"github.com/EdenYYT/RapidGMPE/internal/grid"
)

const sitePath = "vs30.tif"

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// startKafka runs a single-node KRaft broker and returns its address.
func startKafka(ctx context.Context, t *testing.T) string {
	t.Helper()
	container, err := tckafka.Run(ctx,
		"confluentinc/confluent-local:7.5.0",
		tckafka.WithClusterID("rapid-gmpe-test"),
	)
	require.NoError(t, err, "start kafka container")
	t.Cleanup(func() {
		if err := testcontainers.TerminateContainer(container); err != nil {
			t.Logf("terminate kafka container: %v", err)
		}
	})

	brokers, err := container.Brokers(ctx)
	require.NoError(t, err)
	require.NotEmpty(t, brokers)
	return brokers[0]
}

// createTopic creates a single-partition topic through the cluster controller.
func createTopic(t *testing.T, broker, topic string) {
	t.Helper()
	conn, err := kafkago.Dial("tcp", broker)
	require.NoError(t, err)
	defer conn.Close()

	controller, err := conn.Controller()
	require.NoError(t, err)
	ctrl, err := kafkago.Dial("tcp", net.JoinHostPort(controller.Host, strconv.Itoa(controller.Port)))
	require.NoError(t, err)
	defer ctrl.Close()

	require.NoError(t, ctrl.CreateTopics(kafkago.TopicConfig{
		Topic:             topic,
		NumPartitions:     1,
		ReplicationFactor: 1,
	}))
}

// newEngine builds an engine over an in-memory VS30 raster covering
// 100°E–106°E, 28°N–34°N with a west-to-east stiffness gradient.
func newEngine(t *testing.T) *engine.Engine {
	t.Helper()
	const n = 600
	data := make([]float64, n*n)
	for i := range data {
		data[i] = 200 + float64(i%n)
	}
	opener := grid.NewMemoryOpener()
	opener.Add(sitePath, &grid.MemoryRaster{
		Width:     n,
		Height:    n,
		Transform: grid.FromOrigin(100, 34, 0.01, 0.01),
		CRS:       grid.GeographicCRS,
		Data:      data,
	})
	b, err := grid.NewBuilder(opener, discardLogger())
	require.NoError(t, err)
	return engine.New(grid.NewCachedBuilder(b, 4), gmpe.Default(), discardLogger())
}
