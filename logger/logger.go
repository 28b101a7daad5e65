// Package logger builds the structured logger used by the etl command.
package logger

import (
	"github.com/pilosa/musiclake"
	"github.com/pkg/errors"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a JSON zap.Logger at the given level (debug, info, warn,
// error). An empty level means info.
func New(level string) (*zap.Logger, error) {
	cfg := zap.NewProductionConfig()
	cfg.Encoding = "json"
	cfg.EncoderConfig.TimeKey = "ts"
	cfg.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder

	if level == "" {
		level = "info"
	}
	if err := cfg.Level.UnmarshalText([]byte(level)); err != nil {
		return nil, errors.Wrapf(err, "invalid log level %q", level)
	}

	logger, err := cfg.Build()
	if err != nil {
		return nil, errors.Wrap(err, "building logger")
	}
	return logger, nil
}

// Logger adapts a zap logger to musiclake.Logger. Printf logs at info level
// and Debugf at debug level.
type Logger struct {
	s *zap.SugaredLogger
}

var _ musiclake.Logger = Logger{}

// Wrap returns l as a musiclake.Logger.
func Wrap(l *zap.Logger) Logger {
	return Logger{s: l.WithOptions(zap.AddCallerSkip(1)).Sugar()}
}

// Printf implements musiclake.Logger.
func (l Logger) Printf(format string, v ...interface{}) {
	l.s.Infof(format, v...)
}

// Debugf implements musiclake.Logger.
func (l Logger) Debugf(format string, v ...interface{}) {
	l.s.Debugf(format, v...)
}
