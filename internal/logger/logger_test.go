package logger

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestInit(t *testing.T) {
	t.Cleanup(func() { Lg = zap.NewNop() })

	t.Run("default level", func(t *testing.T) {
		require.NoError(t, Init(LogConfig{}))
		assert.True(t, Lg.Core().Enabled(zap.InfoLevel))
		assert.False(t, Lg.Core().Enabled(zap.DebugLevel))
	})

	t.Run("debug level", func(t *testing.T) {
		require.NoError(t, Init(LogConfig{Level: "DEBUG"}))
		assert.True(t, Lg.Core().Enabled(zap.DebugLevel))
	})

	t.Run("invalid level", func(t *testing.T) {
		assert.Error(t, Init(LogConfig{Level: "chatty"}))
	})

	t.Run("file sink", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "wrappertest.log")
		require.NoError(t, Init(LogConfig{Filename: path}))

		Info("hello", zap.String("case", "file sink"))
		Sync()

		data, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(data), "hello")
	})
}

func TestInitReplacesBootstrapLogger(t *testing.T) {
	t.Cleanup(func() { Lg = zap.NewNop() })

	require.NoError(t, Init(LogConfig{}))
	bootstrap := Lg

	path := filepath.Join(t.TempDir(), "configured.log")
	require.NoError(t, Init(LogConfig{Level: "debug", Filename: path}))
	assert.NotSame(t, bootstrap, Lg)
	assert.Same(t, Lg, zap.L())

	Debug("configured logger active")
	Sync()

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.Contains(t, string(data), "configured logger active")
}
