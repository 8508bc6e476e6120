package logger

import (
	"log"
	"os"

	"github.com/Daskott/rightguard/shared"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

func NewLogger() *zap.SugaredLogger {
	config := zap.NewDevelopmentConfig()
	config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	logger, err := config.Build()
	if err != nil {
		log.Panic(err)
	}

	// flushes buffer, if any
	defer logger.Sync()

	return logger.Sugar()
}

// New builds the console logger and, when cfg.File is set, tees every entry
// into a size rotated json log file.
func New(cfg shared.LoggingConfig) *zap.SugaredLogger {
	if cfg.File == "" {
		return NewLogger()
	}

	consoleConfig := zap.NewDevelopmentEncoderConfig()
	consoleConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder

	fileWriter := zapcore.AddSync(&lumberjack.Logger{
		Filename:   cfg.File,
		MaxSize:    valueOrDefault(cfg.MaxSizeMB, 10),
		MaxBackups: valueOrDefault(cfg.MaxBackups, 5),
		MaxAge:     valueOrDefault(cfg.MaxAgeDays, 28),
		Compress:   true,
	})

	core := zapcore.NewTee(
		zapcore.NewCore(zapcore.NewConsoleEncoder(consoleConfig), zapcore.Lock(os.Stderr), zap.DebugLevel),
		zapcore.NewCore(zapcore.NewJSONEncoder(zap.NewProductionEncoderConfig()), fileWriter, zap.InfoLevel),
	)

	return zap.New(core, zap.AddCaller()).Sugar()
}

// OrDefault returns logg, or a new development logger when logg is nil
func OrDefault(logg *zap.SugaredLogger) *zap.SugaredLogger {
	if logg == nil {
		return NewLogger()
	}
	return logg
}

func valueOrDefault(value, fallback int) int {
	if value <= 0 {
		return fallback
	}
	return value
}
