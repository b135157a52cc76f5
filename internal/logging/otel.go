package logging

import (
	"go.opentelemetry.io/contrib/bridges/otelzap"
	"go.opentelemetry.io/otel/log/global"
	"go.uber.org/zap/zapcore"
)

// newCore tees the output core with an OTEL bridge core when enabled.
// The bridge emits to the global LoggerProvider, which telemetry installs
// when export is enabled. Until then entries are dropped.
func newCore(cfg *Config, output zapcore.Core) zapcore.Core {
	core := output
	if cfg.OTEL {
		var bridge zapcore.Core = otelzap.NewCore("ragd",
			otelzap.WithLoggerProvider(global.GetLoggerProvider()),
		)
		if leveled, err := zapcore.NewIncreaseLevelCore(bridge, cfg.Level); err == nil {
			bridge = leveled
		}
		core = zapcore.NewTee(output, bridge)
	}
	return newSampledCore(core, cfg.Sampling)
}
