package logger

import (
	"bytes"
	"testing"

	"github.com/beka-birhanu/navstudy/config"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLogger(t *testing.T) {
	t.Run("levels and prefix", func(t *testing.T) {
		var buf bytes.Buffer
		lg, err := New("STUDY", config.ColorCyan, &buf)
		require.NoError(t, err)

		lg.Info("session prepared")
		lg.Warning("invalid key")
		lg.Error("pool failed")

		out := buf.String()
		assert.Contains(t, out, "[STUDY]")
		assert.Contains(t, out, "[INFO]"+config.LogColorReset+" session prepared")
		assert.Contains(t, out, "[WARNING]"+config.LogColorReset+" invalid key")
		assert.Contains(t, out, "[ERROR]"+config.LogColorReset+" pool failed")
	})

	t.Run("debug is gated", func(t *testing.T) {
		var buf bytes.Buffer
		lg, err := New("STUDY", config.ColorCyan, &buf)
		require.NoError(t, err)

		lg.Debug("hidden")
		assert.Empty(t, buf.String())

		lg.SetDebug(true)
		lg.Debug("shown")
		assert.Contains(t, buf.String(), "shown")
	})

	t.Run("nil writer", func(t *testing.T) {
		_, err := New("STUDY", config.ColorCyan, nil)
		assert.ErrorIs(t, err, ErrNilWriter)
	})
}
