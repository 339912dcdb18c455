package chatlog

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewRejectsUnknownLevel(t *testing.T) {
	_, err := New("verbose", "")
	require.Error(t, err)
}

func TestNewDefaultsToInfo(t *testing.T) {
	logger, err := New("", "")
	require.NoError(t, err)
	require.NotNil(t, logger)
	require.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	require.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewWithRotatingFile(t *testing.T) {
	dir := t.TempDir()
	logger, err := New("debug", dir+"/chat262.log")
	require.NoError(t, err)
	require.NotNil(t, logger)
	logger.Info("hello")
	require.NoError(t, logger.Sync())
}
