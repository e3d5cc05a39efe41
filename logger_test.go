package notifier

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestNewLogger(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notifier.log")

	logger, err := NewLogger(LoggingConfig{Level: "debug", Format: "json", Output: path})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.DebugLevel))

	logger.Info("relay does not support STARTTLS, continuing unencrypted")
	require.NoError(t, logger.Sync())

	content, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(content), `"msg":"relay does not support STARTTLS, continuing unencrypted"`)
	assert.Contains(t, string(content), `"logger":"notifier"`)
}

func TestNewLogger_Defaults(t *testing.T) {
	logger, err := NewLogger(LoggingConfig{})
	require.NoError(t, err)
	assert.True(t, logger.Core().Enabled(zapcore.InfoLevel))
	assert.False(t, logger.Core().Enabled(zapcore.DebugLevel))
}

func TestNewLogger_InvalidLevel(t *testing.T) {
	_, err := NewLogger(LoggingConfig{Level: "chatty"})
	require.Error(t, err)
}
