package logging

import (
	"log/slog"
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		input    string
		expected slog.Level
	}{
		{"trace", slog.LevelDebug},
		{"debug", slog.LevelDebug},
		{"info", slog.LevelInfo},
		{"", slog.LevelInfo},
		{"warn", slog.LevelWarn},
		{"warning", slog.LevelWarn},
		{"error", slog.LevelError},
		{"invalid", slog.LevelInfo},
	}

	for _, test := range tests {
		require.Equal(t, test.expected, parseLevel(test.input))
	}
}

func TestLevelFromEnv(t *testing.T) {
	_ = os.Unsetenv("WHOSTHERE_LOG")
	require.Equal(t, slog.LevelInfo, levelFromEnv(slog.LevelInfo))

	t.Setenv("WHOSTHERE_LOG", "debug")
	require.Equal(t, slog.LevelDebug, levelFromEnv(slog.LevelInfo))

	t.Setenv("WHOSTHERE_LOG", "error")
	require.Equal(t, slog.LevelError, levelFromEnv(slog.LevelInfo))
}

func TestResolveLogPath(t *testing.T) {
	path, err := resolveLogPath()
	require.NoError(t, err)
	require.NotEmpty(t, path)
}

func TestNew_ReturnsUsableLogger(t *testing.T) {
	logger, err := New(false)
	require.NoError(t, err)
	require.NotNil(t, logger)
}
