package logger

import (
	"bytes"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewLogger(t *testing.T) {
	t.Run("Should write text output with key values", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf, TimeFormat: "15:04:05"})
		log.Info("prepared dataset", "train", 8, "test", 2)

		out := buf.String()
		assert.Contains(t, out, "prepared dataset")
		assert.Contains(t, out, "train")
	})

	t.Run("Should write JSON when enabled", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf, JSON: true, TimeFormat: "15:04:05"})
		log.Info("ready")

		out := buf.String()
		assert.True(t, strings.Contains(out, "{") && strings.Contains(out, "}"))
		assert.Contains(t, out, "ready")
	})

	t.Run("Should carry fields added with With", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: InfoLevel, Output: &buf, TimeFormat: "15:04:05"}).With("component", "server")
		log.Info("listening")
		assert.Contains(t, buf.String(), "component")
		assert.Contains(t, buf.String(), "server")
	})
}

func TestLevels(t *testing.T) {
	t.Run("Should filter below the configured level", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: WarnLevel, Output: &buf, TimeFormat: "15:04:05"})
		log.Debug("debug message")
		log.Info("info message")
		log.Warn("warn message")
		log.Error("error message")

		out := buf.String()
		assert.NotContains(t, out, "debug message")
		assert.NotContains(t, out, "info message")
		assert.Contains(t, out, "warn message")
		assert.Contains(t, out, "error message")
	})

	t.Run("Should drop everything when disabled", func(t *testing.T) {
		var buf bytes.Buffer
		log := NewLogger(&Config{Level: DisabledLevel, Output: &buf})
		log.Error("error message")
		assert.Empty(t, buf.String())
	})

	t.Run("Should parse level names", func(t *testing.T) {
		assert.Equal(t, DebugLevel, ParseLevel(" DEBUG "))
		assert.Equal(t, InfoLevel, ParseLevel("verbose"))
		assert.Equal(t, DisabledLevel, ParseLevel("disabled"))
	})

	t.Run("Should substitute a no-op logger for nil", func(t *testing.T) {
		require.NotNil(t, OrNop(nil))
		assert.NotPanics(t, func() { OrNop(nil).Info("dropped") })
	})
}
