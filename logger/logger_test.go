package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNopDefault(t *testing.T) {
	// The package-level logger must be usable before Initialize
	require.NotNil(t, Logger)
	Logger.Infow("safe before init", "key", "value")
}

func TestInitializeJSON(t *testing.T) {
	err := Initialize(true)
	require.NoError(t, err)
	assert.True(t, JSONOutput)
	assert.NotNil(t, Logger)
}

func TestInitializeConsole(t *testing.T) {
	err := Initialize(false)
	require.NoError(t, err)
	assert.False(t, JSONOutput)
	Logger.Debugw("suppressed at info level")
}

func TestVerbosityToLevel(t *testing.T) {
	tests := []struct {
		verbosity int
		want      zapcore.Level
	}{
		{0, zapcore.WarnLevel},
		{1, zapcore.InfoLevel},
		{2, zapcore.DebugLevel},
		{3, zapcore.DebugLevel},
		{7, zapcore.DebugLevel},
	}

	for _, tt := range tests {
		assert.Equal(t, tt.want, VerbosityToLevel(tt.verbosity), "verbosity %d", tt.verbosity)
	}
}

func TestNamed(t *testing.T) {
	require.NoError(t, Initialize(false))
	scoped := Named("builder")
	assert.NotNil(t, scoped)
}
