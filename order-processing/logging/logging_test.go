package logging

import (
	"bytes"
	"encoding/json"
	"errors"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decode(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestNewParsesLevel(t *testing.T) {
	assert.Equal(t, logrus.DebugLevel, NewWithOutput("debug", &bytes.Buffer{}).GetLevel())
	assert.Equal(t, logrus.InfoLevel, NewWithOutput("chatty", &bytes.Buffer{}).GetLevel())
}

func TestTemporalLoggerFields(t *testing.T) {
	var buf bytes.Buffer
	logger := NewTemporalLogger(NewWithOutput("info", &buf))

	logger.With("WorkflowID", "order-1").Info("Stock reserved", "ProductID", "PRD-001", "Quantity", 15)
	line := decode(t, &buf)
	assert.Equal(t, "Stock reserved", line["msg"])
	assert.Equal(t, "info", line["level"])
	assert.Equal(t, "order-1", line["WorkflowID"])
	assert.Equal(t, "PRD-001", line["ProductID"])
	assert.Equal(t, float64(15), line["Quantity"])

	buf.Reset()
	logger.Debug("hidden")
	assert.Zero(t, buf.Len())

	logger.Warn("odd", "dangling")
	assert.Equal(t, "dangling", decode(t, &buf)["extra"])
}

func TestLogError(t *testing.T) {
	var buf bytes.Buffer
	LogError(NewWithOutput("error", &buf), "activities", "ReserveInventory", "reserve", map[string]int{"qty": 3}, errors.New("boom"))
	line := decode(t, &buf)
	assert.Equal(t, "boom", line["msg"])
	assert.Equal(t, "ReserveInventory", line["funcName"])
	assert.NotNil(t, line["data"])
}
