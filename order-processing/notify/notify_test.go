package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"

	"github.com/sirupsen/logrus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogNotifier(t *testing.T) {
	var buf bytes.Buffer
	logger := logrus.New()
	logger.SetFormatter(&logrus.JSONFormatter{})
	logger.SetOutput(&buf)

	msg := New(AudienceStaff, "STF-001", "ORD-0001", "New assignment", "3 tasks, 2.46h")
	require.NotEmpty(t, msg.ID)
	require.NoError(t, NewLogNotifier(logger).Notify(context.Background(), msg))

	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	assert.Equal(t, "3 tasks, 2.46h", line["msg"])
	assert.Equal(t, "STF-001", line["recipient"])
	assert.Equal(t, msg.ID, line["notificationId"])
}

func TestRecorder(t *testing.T) {
	r := &Recorder{}
	a := New(AudienceCustomer, "cust-1", "ORD-0001", "Confirmed", "on its way")
	require.NoError(t, r.Notify(context.Background(), a))
	assert.Equal(t, []Notification{a}, r.Sent())

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	assert.Error(t, r.Notify(ctx, a))
	assert.Len(t, r.Sent(), 1)
}
