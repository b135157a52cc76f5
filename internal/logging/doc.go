// Package logging provides structured logging for ragd.
//
// The package wraps Zap with:
//   - a Trace level (-2, below Debug)
//   - request and trace correlation pulled from context.Context
//   - key and pattern based secret redaction in the encoder
//   - level-aware sampling (errors are never sampled)
//
// Create a logger from config:
//
//	logger, err := logging.NewLogger(logging.NewDefaultConfig())
//	if err != nil {
//	    return err
//	}
//	defer logger.Sync()
//
// Log with context:
//
//	ctx = logging.WithRequestID(ctx, c.Response().Header().Get(echo.HeaderXRequestID))
//	logger.Info(ctx, "query answered", zap.Int("sources", n))
//
// Components that only need a plain *zap.Logger receive logger.Underlying().
//
// Tests use NewTestLogger, which records every entry in memory:
//
//	tl := logging.NewTestLogger()
//	svc := NewService(tl.Underlying())
//	tl.AssertLogged(t, zapcore.InfoLevel, "document processed")
//	tl.AssertNoSecrets(t)
package logging
