package obs

import (
	"testing"

	"github.com/stretchr/testify/require"
	"go.uber.org/zap/zapcore"
)

func TestLogConfig_Level(t *testing.T) {
	require.Equal(t, zapcore.DebugLevel, LogConfig{Level: "debug"}.level())
	require.Equal(t, zapcore.WarnLevel, LogConfig{Level: "WARN"}.level())
	require.Equal(t, zapcore.InfoLevel, LogConfig{Level: "loud"}.level())
	require.Equal(t, zapcore.InfoLevel, LogConfig{}.level())
}

func TestLogConfig_ZapConfig(t *testing.T) {
	prod := LogConfig{Level: "info", App: "stockpulse/api", Env: "test", Ver: "1.0.0"}.zapConfig()
	require.Equal(t, "json", prod.Encoding)
	require.Nil(t, prod.Sampling)
	require.True(t, prod.DisableStacktrace)
	require.Equal(t, "stockpulse/api", prod.InitialFields["service"])
	require.Equal(t, "ts", prod.EncoderConfig.TimeKey)

	dev := LogConfig{Pretty: true}.zapConfig()
	require.Equal(t, "console", dev.Encoding)
	require.False(t, dev.DisableStacktrace)
}

func TestNewLogger_HonoursLevel(t *testing.T) {
	l, err := NewLogger(LogConfig{Level: "warn", App: "stockpulse/api"})
	require.NoError(t, err)
	require.False(t, l.Core().Enabled(zapcore.InfoLevel))
	require.True(t, l.Core().Enabled(zapcore.WarnLevel))
}
