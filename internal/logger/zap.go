package logger

import (
	"log"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// ZapLogger is the production Logger, backed by zap's SugaredLogger.
type ZapLogger struct {
	logger *zap.SugaredLogger
}

var _ Logger = (*ZapLogger)(nil)

// Config mirrors the teacher's pkg/config Logger struct.
type Config struct {
	Level string
}

// NewZapLogger builds a ZapLogger at the configured level.
func NewZapLogger(cfg Config) *ZapLogger {
	development := zap.NewDevelopmentConfig()
	development.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
	development.EncoderConfig.EncodeCaller = zapcore.ShortCallerEncoder
	development.EncoderConfig.CallerKey = "caller"
	development.DisableCaller = false
	development.Level = zap.NewAtomicLevelAt(toZapLevel(cfg.Level))

	built, err := development.Build(zap.AddCaller(), zap.AddCallerSkip(1))
	if err != nil {
		log.Fatal("error occurred while building zap logger: ", err)
	}

	return &ZapLogger{logger: built.Sugar()}
}

func toZapLevel(levelStr string) zapcore.Level {
	var level zapcore.Level
	if err := level.UnmarshalText([]byte(levelStr)); err != nil {
		return zapcore.InfoLevel
	}
	return level
}

func (l *ZapLogger) Debug(msg string, keysAndValues ...any) { l.logger.Debugw(msg, keysAndValues...) }
func (l *ZapLogger) Info(msg string, keysAndValues ...any)  { l.logger.Infow(msg, keysAndValues...) }
func (l *ZapLogger) Warn(msg string, keysAndValues ...any)  { l.logger.Warnw(msg, keysAndValues...) }
func (l *ZapLogger) Error(msg string, keysAndValues ...any) { l.logger.Errorw(msg, keysAndValues...) }
func (l *ZapLogger) Fatal(msg string, keysAndValues ...any) { l.logger.Fatalw(msg, keysAndValues...) }

// Sync flushes any buffered log entries.
func (l *ZapLogger) Sync() error { return l.logger.Sync() }
