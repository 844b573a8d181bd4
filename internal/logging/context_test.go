package logging

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestContextKeys(t *testing.T) {
	ctx := context.Background()

	assert.Equal(t, "", RunID(ctx))
	assert.Equal(t, "", TenantID(ctx))
	assert.Equal(t, "", BehaviorID(ctx))

	ctx = WithIDs(ctx, "run-1", "tenant-a")
	ctx = WithBehaviorID(ctx, "capacity")

	assert.Equal(t, "run-1", RunID(ctx))
	assert.Equal(t, "tenant-a", TenantID(ctx))
	assert.Equal(t, "capacity", BehaviorID(ctx))
}

func TestLogWith(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, &slog.HandlerOptions{Level: slog.LevelDebug}))

	ctx := WithIDs(context.Background(), "run-abc", "tenant-x")
	ctx = WithBehaviorID(ctx, "ticket")

	LogWith(ctx, logger).Info("behavior finished")

	out := buf.String()
	assert.Contains(t, out, "run_id=run-abc")
	assert.Contains(t, out, "tenant_id=tenant-x")
	assert.Contains(t, out, "behavior_id=ticket")
}

func TestLogWithMissingKeys(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(slog.NewTextHandler(&buf, nil))

	LogWith(WithRunID(context.Background(), "run-only"), logger).Info("partial")

	out := buf.String()
	assert.Contains(t, out, "run_id=run-only")
	assert.NotContains(t, out, "tenant_id")
	assert.NotContains(t, out, "behavior_id")
}

func TestCorrelationHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewCorrelationHandler(slog.NewTextHandler(&buf, nil)))

	ctx := WithIDs(context.Background(), "run-9", "tenant-9")
	logger.With("k", "v").InfoContext(ctx, "hello")

	out := buf.String()
	assert.Contains(t, out, "run_id=run-9")
	assert.Contains(t, out, "tenant_id=tenant-9")
	assert.Contains(t, out, "k=v")
}

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	logger := New("warn", "json", &buf)

	logger.Info("dropped")
	logger.Warn("kept")

	out := buf.String()
	assert.NotContains(t, out, "dropped")
	assert.Contains(t, out, `"msg":"kept"`)
}

func TestParseLevel(t *testing.T) {
	assert.Equal(t, slog.LevelDebug, ParseLevel("DEBUG"))
	assert.Equal(t, slog.LevelWarn, ParseLevel("warning"))
	assert.Equal(t, slog.LevelError, ParseLevel("error"))
	assert.Equal(t, slog.LevelInfo, ParseLevel("nonsense"))
}
