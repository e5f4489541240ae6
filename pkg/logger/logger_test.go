package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newBufferLogger(buf *bytes.Buffer) *Logger {
	return NewWithHandler(slog.NewJSONHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug}))
}

func TestGetLogLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, getLogLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, getLogLevel("warning"))
	assert.Equal(t, slog.LevelError, getLogLevel("error"))
	assert.Equal(t, slog.LevelInfo, getLogLevel("nonsense"))
}

func TestLogSignatureRejectedIsSecurityEvent(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.LogSignatureRejected(context.Background(), "req-1", "order_123", "ipn")

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "WARN", entry["level"])
	assert.Equal(t, "invalid_signature", entry["security_event"])
	assert.Equal(t, "req-1", entry["request_id"])
}

func TestErrorWithContextCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := newBufferLogger(&buf)

	l.ErrorWithContext(context.Background(), "sweep failed", errors.New("db down"), map[string]interface{}{"job": "order_expiry"})

	var entry map[string]interface{}
	require.NoError(t, json.Unmarshal(buf.Bytes(), &entry))
	assert.Equal(t, "db down", entry["error"])
	assert.Equal(t, "order_expiry", entry["job"])
}
