package logger

import (
	"context"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"

	"titan/pkg/config"
	"titan/pkg/trace"
)

// NewLogger 根据配置创建 logger
// development=true 时使用控制台格式，便于 CLI 阅读
func NewLogger(cfg config.LogConfig) (*zap.Logger, error) {
	var zc zap.Config
	if cfg.Development {
		zc = zap.NewDevelopmentConfig()
	} else {
		zc = zap.NewProductionConfig()
	}

	if cfg.Level != "" {
		level, err := zapcore.ParseLevel(cfg.Level)
		if err != nil {
			return nil, err
		}
		zc.Level = zap.NewAtomicLevelAt(level)
	}

	return zc.Build()
}

// WithTrace 从 context 中提取 op_id 并添加到 logger
func WithTrace(ctx context.Context, logger *zap.Logger) *zap.Logger {
	opID := trace.FromContext(ctx)
	if opID != "" {
		return logger.With(zap.String("op_id", opID))
	}
	return logger
}
