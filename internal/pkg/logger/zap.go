package logger

import (
	"io"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

type zapLogger struct {
	zl *zap.Logger
}

// New creates a JSON logger that writes every entry at or above level to each writer.
func New(level Level, writers ...io.Writer) Logger {
	encoderConfig := zap.NewProductionEncoderConfig()
	encoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderConfig)
	atomic := zap.NewAtomicLevelAt(toZapLevel(level))

	cores := make([]zapcore.Core, 0, len(writers))
	for _, w := range writers {
		cores = append(cores, zapcore.NewCore(encoder, zapcore.AddSync(w), atomic))
	}

	return &zapLogger{
		zl: zap.New(zapcore.NewTee(cores...), zap.AddCaller(), zap.AddCallerSkip(1)),
	}
}

// Nop returns a logger that discards everything.
func Nop() Logger {
	return &zapLogger{zl: zap.NewNop()}
}

func (l *zapLogger) Debug(msg string, fields ...Field) {
	l.zl.Debug(msg, convertFields(fields)...)
}

func (l *zapLogger) Info(msg string, fields ...Field) {
	l.zl.Info(msg, convertFields(fields)...)
}

func (l *zapLogger) Warn(msg string, fields ...Field) {
	l.zl.Warn(msg, convertFields(fields)...)
}

func (l *zapLogger) Error(msg string, fields ...Field) {
	l.zl.Error(msg, convertFields(fields)...)
}

// Fatal logs at FatalLevel and then calls os.Exit(1).
func (l *zapLogger) Fatal(msg string, fields ...Field) {
	l.zl.Fatal(msg, convertFields(fields)...)
}

func (l *zapLogger) With(fields ...Field) Logger {
	return &zapLogger{zl: l.zl.With(convertFields(fields)...)}
}

func (l *zapLogger) Sync() error {
	return l.zl.Sync()
}

func convertFields(fields []Field) []zap.Field {
	zapFields := make([]zap.Field, len(fields))
	for i, f := range fields {
		zapFields[i] = zap.Any(f.Key, f.Value)
	}
	return zapFields
}

func toZapLevel(level Level) zapcore.Level {
	switch level {
	case DebugLevel:
		return zap.DebugLevel
	case WarnLevel:
		return zap.WarnLevel
	case ErrorLevel:
		return zap.ErrorLevel
	case FatalLevel:
		return zap.FatalLevel
	default:
		return zap.InfoLevel
	}
}
