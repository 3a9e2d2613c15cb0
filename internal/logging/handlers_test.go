package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
)

type failingHandler struct {
	slog.Handler
	calls int
}

func (h *failingHandler) Enabled(context.Context, slog.Level) bool { return true }

func (h *failingHandler) Handle(context.Context, slog.Record) error {
	h.calls++
	return errors.New("write failed")
}

var time0 = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func textHandler(buf *bytes.Buffer) slog.Handler {
	return slog.NewTextHandler(buf, &slog.HandlerOptions{Level: slog.LevelDebug})
}

func TestLevelFilter(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLevelFilter(textHandler(&buf), slog.LevelWarn))

	logger.Info("skip me")
	logger.Warn("keep warn")
	logger.Error("keep error")

	assert.NotContains(t, buf.String(), "skip me")
	assert.Contains(t, buf.String(), "keep warn")
	assert.Contains(t, buf.String(), "keep error")

	ctx := context.Background()
	h := NewLevelFilter(textHandler(&buf), slog.LevelWarn)
	assert.False(t, h.Enabled(ctx, slog.LevelInfo))
	assert.True(t, h.Enabled(ctx, slog.LevelWarn))
	assert.NoError(t, h.Handle(ctx, slog.NewRecord(time0, slog.LevelDebug, "dropped", 0)))
	assert.NotContains(t, buf.String(), "dropped")
}

func TestLevelFilter_AttrsAndGroups(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewLevelFilter(textHandler(&buf), slog.LevelWarn)).
		With("alias", "default").
		WithGroup("db")

	logger.Info("hidden", "name", "app")
	logger.Warn("visible", "name", "app")

	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), "alias=default")
	assert.Contains(t, buf.String(), "db.name=app")
}

func TestMultiHandler_FanOut(t *testing.T) {
	var debugBuf, errorBuf bytes.Buffer
	h := NewMultiHandler(
		textHandler(&debugBuf),
		slog.NewTextHandler(&errorBuf, &slog.HandlerOptions{Level: slog.LevelError}),
	)
	logger := slog.New(h).With("alias", "reports").WithGroup("op")

	logger.Info("ping", "ok", true)
	logger.Error("drop failed", "ok", false)

	assert.Contains(t, debugBuf.String(), "msg=ping")
	assert.Contains(t, debugBuf.String(), "msg=\"drop failed\"")
	assert.Contains(t, debugBuf.String(), "alias=reports")
	assert.Contains(t, debugBuf.String(), "op.ok=true")
	assert.NotContains(t, errorBuf.String(), "msg=ping")
	assert.Contains(t, errorBuf.String(), "msg=\"drop failed\"")

	ctx := context.Background()
	assert.True(t, h.Enabled(ctx, slog.LevelDebug))
	assert.False(t, NewMultiHandler().Enabled(ctx, slog.LevelError))
	assert.NoError(t, NewMultiHandler().Handle(ctx, slog.NewRecord(time0, slog.LevelError, "x", 0)))
}

func TestMultiHandler_StopsAtFirstError(t *testing.T) {
	var buf bytes.Buffer
	failing := &failingHandler{}
	h := NewMultiHandler(failing, textHandler(&buf))

	err := h.Handle(context.Background(), slog.NewRecord(time0, slog.LevelInfo, "msg", 0))
	assert.EqualError(t, err, "write failed")
	assert.Equal(t, 1, failing.calls)
	assert.Empty(t, buf.String())
}
