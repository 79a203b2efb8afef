package logger

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNew_Modes(t *testing.T) {
	for _, mode := range []string{"dev", "prod", "production", ""} {
		t.Run(mode, func(t *testing.T) {
			l, err := New(mode, "debug")
			require.NoError(t, err)
			require.NotNil(t, l.SugaredLogger)
			assert.True(t, l.SugaredLogger.Desugar().Core().Enabled(zapcore.DebugLevel))
		})
	}
}

func TestNew_UnknownLevelFallsBackToInfo(t *testing.T) {
	l, err := New("prod", "chatty")
	require.NoError(t, err)
	core := l.SugaredLogger.Desugar().Core()
	assert.False(t, core.Enabled(zapcore.DebugLevel))
	assert.True(t, core.Enabled(zapcore.InfoLevel))
}

func TestNop_With(t *testing.T) {
	l := NewNop().With("user_id", "u1")
	// Must not panic
	l.Debug("debug")
	l.Info("info", "k", "v")
	l.Warn("warn")
	l.Error("error")
	l.Sync()
}
