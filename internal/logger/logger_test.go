package logger

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

func TestNewRespectsLevel(t *testing.T) {
	previous := zap.L()
	t.Cleanup(func() { zap.ReplaceGlobals(previous) })

	log, err := New(LogConfig{Level: "warn", Environment: "production", ServiceName: "test"})
	require.NoError(t, err)
	assert.False(t, log.Core().Enabled(zapcore.InfoLevel))
	assert.True(t, log.Core().Enabled(zapcore.WarnLevel))
	assert.Same(t, log, zap.L())
}

func TestFromContextFallsBackToGlobal(t *testing.T) {
	assert.Same(t, zap.L(), FromContext(context.Background()))

	scoped := zap.NewNop()
	ctx := WithContext(context.Background(), scoped)
	assert.Same(t, scoped, FromContext(ctx))
}
