package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestConfigure(t *testing.T) {
	t.Cleanup(func() { _ = Configure(Options{}) })

	require.NoError(t, Configure(Options{Production: true, Level: "warn", Service: "reconciler"}))
	assert.False(t, GetLogger().log.Desugar().Core().Enabled(zapcore.InfoLevel))
	assert.True(t, GetLogger().log.Desugar().Core().Enabled(zapcore.WarnLevel))

	require.NoError(t, Configure(Options{Level: "not-a-level"}))
	assert.True(t, GetLogger().log.Desugar().Core().Enabled(zapcore.DebugLevel))
}

func TestWithKeepsParentLevel(t *testing.T) {
	t.Cleanup(func() { _ = Configure(Options{}) })
	require.NoError(t, Configure(Options{Level: "error"}))

	child := With("worker", 3)
	assert.False(t, child.log.Desugar().Core().Enabled(zapcore.WarnLevel))
	assert.NotSame(t, GetLogger(), child)
}
