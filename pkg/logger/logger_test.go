package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_MasksSensitiveAttributes(t *testing.T) {
	var buf bytes.Buffer
	log, closer := New(Options{Format: "json", Output: &buf})
	defer closer.Close()

	log.With(slog.String("bot_token", "123:abc")).Info("starting",
		slog.String("token", "secret-value"),
		slog.Group("sentry", slog.String("dsn", "https://key@sentry"), slog.String("env", "dev")),
		slog.Int64("user_id", 42),
	)

	var record map[string]any
	require.NoError(t, json.Unmarshal(buf.Bytes(), &record))

	assert.Equal(t, "***", record["bot_token"])
	assert.Equal(t, "***", record["token"])
	assert.Equal(t, float64(42), record["user_id"])

	group, ok := record["sentry"].(map[string]any)
	require.True(t, ok)
	assert.Equal(t, "***", group["dsn"])
	assert.Equal(t, "dev", group["env"])
}

func TestNew_RespectsLevelVar(t *testing.T) {
	var buf bytes.Buffer
	level := new(slog.LevelVar)
	level.Set(slog.LevelWarn)

	log, _ := New(Options{Level: level, Format: "text", Output: &buf})
	log.Info("hidden")
	assert.Empty(t, buf.String())

	level.Set(slog.LevelDebug)
	log.Debug("visible")
	assert.Contains(t, buf.String(), "visible")
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("debug"))
	assert.Equal(t, slog.LevelError, ParseLevel("ERROR"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}

func TestFanoutHandler(t *testing.T) {
	var all, errorsOnly bytes.Buffer
	h := newFanoutHandler(
		slog.NewTextHandler(&all, &slog.HandlerOptions{Level: slog.LevelDebug}),
		slog.NewTextHandler(&errorsOnly, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	log := slog.New(h)

	log.Info("info line")
	log.Error("error line")

	assert.Contains(t, all.String(), "info line")
	assert.Contains(t, all.String(), "error line")
	assert.NotContains(t, errorsOnly.String(), "info line")
	assert.Contains(t, errorsOnly.String(), "error line")
}

func TestCorrelationID(t *testing.T) {
	assert.Empty(t, CorrelationIDFromContext(context.Background()))

	ctx := WithCorrelationID(context.Background(), "abc")
	assert.Equal(t, "abc", CorrelationIDFromContext(ctx))

	generated := WithCorrelationID(context.Background(), "")
	assert.Len(t, CorrelationIDFromContext(generated), 36)

	var seen string
	handler := Middleware(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		seen = CorrelationIDFromContext(r.Context())
	}))

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	req.Header.Set("X-Correlation-ID", "from-header")
	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, req)

	assert.Equal(t, "from-header", seen)
	assert.Equal(t, "from-header", rec.Header().Get("X-Correlation-ID"))
}
