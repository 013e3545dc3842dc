package logger_test

import (
	"bytes"
	"context"
	"log/slog"
	"testing"

	"github.com/profound-academy/backend/logger"
	"github.com/stretchr/testify/assert"
)

func TestContextLogger(t *testing.T) {
	assert.Equal(t, slog.Default(), logger.FromContext(context.Background()))

	var buf bytes.Buffer
	base := slog.New(slog.NewTextHandler(&buf, nil))
	ctx := logger.WithLogger(context.Background(), base)
	ctx = logger.WithRequestID(ctx, "req-1")
	ctx = logger.With(ctx, "user_id", "u1")

	logger.FromContext(ctx).Info("hello")
	assert.Contains(t, buf.String(), "request_id=req-1")
	assert.Contains(t, buf.String(), "user_id=u1")
}

func TestFromContextOr(t *testing.T) {
	var buf bytes.Buffer
	fallback := slog.New(slog.NewTextHandler(&buf, nil))
	assert.Equal(t, fallback, logger.FromContextOr(context.Background(), fallback))

	ctx := logger.WithLogger(context.Background(), slog.Default())
	assert.Equal(t, slog.Default(), logger.FromContextOr(ctx, fallback))
}
