// Package obs carries the pipeline's ambient observability stack:
// structured logging and Prometheus metrics.
package obs

import (
	"log/slog"

	"go.uber.org/zap"
	"go.uber.org/zap/exp/zapslog"
	"go.uber.org/zap/zapcore"
)

// NewLogger builds a slog.Logger backed by zap. prod selects zap's
// production encoder (JSON, sampled) over its colorized development one.
func NewLogger(prod bool) (*slog.Logger, func() error) {
	var zapLogger *zap.Logger
	if prod {
		zapLogger = zap.Must(zap.NewProduction())
	} else {
		cfg := zap.NewDevelopmentConfig()
		cfg.EncoderConfig.EncodeLevel = zapcore.CapitalColorLevelEncoder
		zapLogger = zap.Must(cfg.Build())
	}
	return slog.New(zapslog.NewHandler(zapLogger.Core())), zapLogger.Sync
}
