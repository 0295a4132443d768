package sys

import (
	"context"
	"log/slog"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestInitLoggerDebugLevel(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bot.log")
	t.Cleanup(func() {
		CloseLogger()
		InitLogger(false, false, "")
	})

	InitLogger(true, false, path)
	assert.False(t, Logger.Enabled(context.Background(), slog.LevelDebug))
	LogDebug("hidden %d", 1)

	InitLogger(true, true, path)
	assert.True(t, Logger.Enabled(context.Background(), slog.LevelDebug))
	LogDebug("shown %d", 2)
	CloseLogger()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.NotContains(t, string(data), "hidden 1")
	assert.Contains(t, string(data), "shown 2")
	assert.NotContains(t, string(data), "\x1b[")
}
