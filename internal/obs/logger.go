package obs

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type LogConfig struct {
	Level  string
	Pretty bool
	App    string
	Env    string
	Ver    string
}

// level parses c.Level, falling back to info for empty or unknown values.
func (c LogConfig) level() zapcore.Level {
	var l zapcore.Level
	if err := l.Set(c.Level); err != nil {
		return zapcore.InfoLevel
	}
	return l
}

func (c LogConfig) zapConfig() zap.Config {
	cfg := zap.NewProductionConfig()
	if c.Pretty {
		cfg = zap.NewDevelopmentConfig()
	} else {
		cfg.DisableStacktrace = true
	}
	// Audit events go through the logger and must all be kept.
	cfg.Sampling = nil
	cfg.Level = zap.NewAtomicLevelAt(c.level())
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	cfg.InitialFields = map[string]any{
		"service": c.App,
		"env":     c.Env,
		"version": c.Ver,
	}
	return cfg
}

func NewLogger(c LogConfig) (*zap.Logger, error) {
	return c.zapConfig().Build()
}
