package observability

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger_JSONDefault(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("info", "", &buf)

	logger.Info("estimate complete", "models", 5)

	var rec map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &rec))
	assert.Equal(t, "estimate complete", rec["msg"])
	assert.Equal(t, "INFO", rec["level"])
	assert.InDelta(t, 5, rec["models"], 0)
}

func TestNewLogger_Text(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger("debug", "text", &buf)

	logger.Debug("grid ready", "width", 20)

	assert.Contains(t, buf.String(), "level=DEBUG")
	assert.Contains(t, buf.String(), "width=20")
}

func TestNewLogger_Levels(t *testing.T) {
	tests := []struct {
		level     string
		debugSeen bool
		infoSeen  bool
		warnSeen  bool
	}{
		{"debug", true, true, true},
		{"info", false, true, true},
		{"WARN", false, false, true},
		{"error", false, false, false},
		{"bogus", false, true, true},
	}

	for _, tt := range tests {
		t.Run(tt.level, func(t *testing.T) {
			var buf bytes.Buffer
			logger := NewLogger(tt.level, "text", &buf)

			logger.Debug("d")
			assert.Equal(t, tt.debugSeen, bytes.Contains(buf.Bytes(), []byte("msg=d")))
			logger.Info("i")
			assert.Equal(t, tt.infoSeen, bytes.Contains(buf.Bytes(), []byte("msg=i")))
			logger.Warn("w")
			assert.Equal(t, tt.warnSeen, bytes.Contains(buf.Bytes(), []byte("msg=w")))
		})
	}
}
