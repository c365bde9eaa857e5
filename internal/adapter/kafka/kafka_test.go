package kafka

import (
	"encoding/json"
	"testing"
	"time"

	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/EdenYYT/RapidGMPE/internal/domain"
)

func TestMapMessageToRawEvent(t *testing.T) {
	now := time.Now()
	msg := kafkago.Message{
		Key:       []byte("key-1"),
		Value:     []byte(`{"lon":103.4,"lat":31.0}`),
		Topic:     "earthquake-reports",
		Partition: 2,
		Offset:    42,
		Time:      now,
		Headers: []kafkago.Header{
			{Key: "source", Value: []byte("cenc")},
		},
	}

	raw := mapMessageToRawEvent(msg)

	assert.Equal(t, []byte("key-1"), raw.Key)
	assert.JSONEq(t, `{"lon":103.4,"lat":31.0}`, string(raw.Value))
	assert.Equal(t, "earthquake-reports", raw.Topic)
	assert.Equal(t, 2, raw.Partition)
	assert.Equal(t, int64(42), raw.Offset)
	assert.Equal(t, now, raw.Timestamp)
	assert.Equal(t, "cenc", raw.Headers["source"])
	assert.Nil(t, raw.Commit)
}

func TestSerializeToMessage(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 0, time.UTC)
	summary := domain.EstimateSummary{
		ID:          "eq-1",
		RunID:       "run-1",
		Name:        "Wenchuan",
		Epicenter:   domain.Epicenter{Lon: 103.4, Lat: 31.0, DepthKm: 14, RadiusKm: 150},
		Magnitudes:  domain.Magnitudes{Ms: 8.0, Mw: 7.9},
		Status:      "selected",
		Weights:     []domain.ModelWeight{{Model: "GB2015", Weight: 0.6}, {Model: "HH1992", Weight: -1}},
		PGA:         domain.PGAStats{Cells: 100, Max: 3.2},
		ProcessedAt: now,
	}

	msg, err := serializeToMessage(summary)
	require.NoError(t, err)

	assert.Equal(t, []byte("eq-1"), msg.Key)
	require.Len(t, msg.Headers, 2)
	assert.Equal(t, "weight_status", msg.Headers[0].Key)
	assert.Equal(t, []byte("selected"), msg.Headers[0].Value)
	assert.Equal(t, "processed_at", msg.Headers[1].Key)
	assert.Equal(t, []byte(now.Format(time.RFC3339)), msg.Headers[1].Value)

	var got domain.EstimateSummary
	require.NoError(t, json.Unmarshal(msg.Value, &got))
	assert.Equal(t, summary, got)
	assert.Contains(t, string(msg.Value), `"weight_status":"selected"`)
}
