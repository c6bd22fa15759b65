package logging

import (
	"bytes"
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func decodeLine(t *testing.T, buf *bytes.Buffer) map[string]any {
	t.Helper()
	var line map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &line))
	return line
}

func TestNewLogger_AddsServiceAndContext(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{
		Level:       "debug",
		Format:      "json",
		Output:      &buf,
		ServiceName: "sap-helpdesk",
		Environment: "test",
	})

	ctx := WithRequestID(context.Background(), "req-1")
	ctx = WithUserID(ctx, "alice@pwc.com")
	ctx = WithJob(ctx, "email_fetch")
	logger.InfoContext(ctx, "hello")

	line := decodeLine(t, &buf)
	assert.Equal(t, "hello", line["msg"])
	assert.Equal(t, "sap-helpdesk", line["service"])
	assert.Equal(t, "test", line["environment"])
	assert.Equal(t, "req-1", line["request_id"])
	assert.Equal(t, "alice@pwc.com", line["user_id"])
	assert.Equal(t, "email_fetch", line["job"])
}

func TestNewLogger_Level(t *testing.T) {
	var buf bytes.Buffer
	logger := NewLogger(Config{Level: "warn", Output: &buf})

	logger.Info("dropped")
	assert.Zero(t, buf.Len())

	logger.Warn("kept")
	assert.Equal(t, "kept", decodeLine(t, &buf)["msg"])
}

func TestLoggerFromContext(t *testing.T) {
	var buf bytes.Buffer
	base := NewLogger(Config{Output: &buf, Format: "json"})

	ctx := WithRequestID(context.Background(), "req-9")
	LoggerFromContext(ctx, base).Info("scoped")

	assert.Equal(t, "req-9", decodeLine(t, &buf)["request_id"])
	assert.Equal(t, "req-9", GetRequestID(ctx))
	assert.Empty(t, GetRequestID(context.Background()))
}

func TestHTTPRequestLogger_LevelByStatus(t *testing.T) {
	cases := []struct {
		status int
		level  string
	}{
		{200, "INFO"},
		{404, "WARN"},
		{502, "ERROR"},
	}

	for _, tc := range cases {
		var buf bytes.Buffer
		l := &HTTPRequestLogger{Logger: NewLogger(Config{Output: &buf})}
		l.LogRequest(context.Background(), RequestInfo{
			Method:     "GET",
			Path:       "/api/v1/tickets",
			Query:      "status=Open",
			StatusCode: tc.status,
			Duration:   12 * time.Millisecond,
		})

		line := decodeLine(t, &buf)
		assert.Equal(t, tc.level, line["level"])
		assert.Equal(t, float64(tc.status), line["status_code"])
		assert.Equal(t, "status=Open", line["query"])
	}
}

func TestLogPanic(t *testing.T) {
	var buf bytes.Buffer
	LogPanic(NewLogger(Config{Output: &buf}), "boom")

	line := decodeLine(t, &buf)
	assert.Equal(t, "panic recovered", line["msg"])
	assert.Equal(t, "boom", line["panic"])
	assert.Contains(t, line["stack_trace"], "goroutine")
}

func TestParseLevel(t *testing.T) {
	for in, want := range map[string]string{"debug": "DEBUG", "": "INFO", "WARNING": "WARN", "error": "ERROR"} {
		level, ok := ParseLevel(in)
		assert.True(t, ok, in)
		assert.Equal(t, want, level.String(), in)
	}
	_, ok := ParseLevel("loud")
	assert.False(t, ok)
}

func TestRedactQuery(t *testing.T) {
	assert.Equal(t, "status=Open&limit=10", RedactQuery("status=Open&limit=10"))
	assert.Equal(t, "token=REDACTED", RedactQuery("token=eyJhbGciOi"))
	assert.Equal(t, "limit=5&token=REDACTED", RedactQuery("token=abc&limit=5"))
	assert.Equal(t, "[unparseable]", RedactQuery("a=%zz"))
}

func TestHTTPRequestLogger_RedactsToken(t *testing.T) {
	var buf bytes.Buffer
	l := &HTTPRequestLogger{Logger: NewLogger(Config{Output: &buf})}
	l.LogRequest(context.Background(), RequestInfo{Method: "GET", Path: "/api/v1/ws", Query: "token=secret", StatusCode: 101})

	assert.NotContains(t, buf.String(), "secret")
	assert.Equal(t, "token=REDACTED", decodeLine(t, &buf)["query"])
}
