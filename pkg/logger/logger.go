package logger

import (
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds the JSON production logger for "release" mode and a colored
// console logger for anything else.
func New(mode string) (*zap.Logger, error) {
	if mode != "release" {
		config := zap.NewDevelopmentConfig()
		config.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		return config.Build()
	}

	config := zap.NewProductionConfig()
	config.EncoderConfig.EncodeTime = zapcore.ISO8601TimeEncoder
	config.EncoderConfig.TimeKey = "timestamp"
	config.EncoderConfig.MessageKey = "message"
	config.EncoderConfig.LevelKey = "level"

	return config.Build()
}

func NewSugared(mode string) (*zap.SugaredLogger, error) {
	logger, err := New(mode)
	if err != nil {
		return nil, err
	}
	return logger.Sugar(), nil
}
