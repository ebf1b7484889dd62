package logger

import (
	"os"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New returns a named sugared logger. LOG_LEVEL selects the minimum level
// (debug, info, warn, error) and defaults to info.
func New(service string) (*zap.SugaredLogger, error) {
	cfg := zap.NewProductionConfig()
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if lvl := os.Getenv("LOG_LEVEL"); lvl != "" {
		level, err := zapcore.ParseLevel(lvl)
		if err != nil {
			return zap.NewNop().Sugar(), err
		}
		cfg.Level = zap.NewAtomicLevelAt(level)
	}

	log, err := cfg.Build()
	if err != nil {
		return zap.NewNop().Sugar(), err
	}

	return log.Named(service).Sugar(), nil
}
