package logger

import (
	"context"
	"os"

	"insure-crm/internal/config"
	"insure-crm/internal/database"

	"go.uber.org/fx"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"gopkg.in/natefinch/lumberjack.v2"
)

// NewLogger builds the application logger: console output, an optional rotating
// log file and an async sink that stores warnings and errors in MongoDB.
func NewLogger(lc fx.Lifecycle, cfg *config.Config, mongodb *database.MongodbDB) (*zap.Logger, error) {
	var zapConfig zap.Config
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	} else {
		zapConfig = zap.NewDevelopmentConfig()
	}

	// Important: Enable Caller to get Function Name
	zapConfig.EncoderConfig.FunctionKey = "func"

	baseLogger, err := zapConfig.Build()
	if err != nil {
		return nil, err
	}

	core := baseLogger.Core()
	if cfg.LogFile != "" {
		core = zapcore.NewTee(core, newFileCore(cfg.LogFile, zapConfig.EncoderConfig, zapConfig.Level))
	}

	dbWriter := NewDBLogWriter(mongodb, cfg)
	lc.Append(fx.Hook{
		OnStop: func(ctx context.Context) error {
			dbWriter.Close()
			return nil
		},
	})

	finalCore := NewDBCore(core, dbWriter, zapcore.WarnLevel)

	return zap.New(finalCore, zap.AddCaller(), zap.Fields(zap.String("app", cfg.AppId))), nil
}

func newFileCore(path string, encCfg zapcore.EncoderConfig, level zap.AtomicLevel) zapcore.Core {
	rotator := &lumberjack.Logger{
		Filename:   path,
		MaxSize:    50, // megabytes
		MaxBackups: 7,
		MaxAge:     28, // days
		Compress:   true,
	}
	encCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	return zapcore.NewCore(zapcore.NewJSONEncoder(encCfg), zapcore.AddSync(rotator), level)
}

// NewConsoleLogger is used by CLI tools that run before (or without) the Mongo sink.
func NewConsoleLogger(cfg *config.Config) *zap.Logger {
	zapConfig := zap.NewDevelopmentConfig()
	if cfg.Environment == "production" {
		zapConfig = zap.NewProductionConfig()
	}
	l, err := zapConfig.Build(zap.AddCaller())
	if err != nil {
		return zap.New(zapcore.NewCore(zapcore.NewConsoleEncoder(zap.NewDevelopmentEncoderConfig()), zapcore.AddSync(os.Stderr), zapcore.InfoLevel))
	}
	return l
}
