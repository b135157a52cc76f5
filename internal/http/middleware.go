package http

import (
	"crypto/subtle"
	"time"

	"github.com/google/uuid"
	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"go.uber.org/zap"

	"github.com/fyrsmithlabs/ragd/internal/logging"
	v1 "github.com/fyrsmithlabs/ragd/pkg/api/v1"
)

// HeaderAPIKey carries the static API key on /api requests.
const HeaderAPIKey = "x-api-key"

func newRequestID() string {
	return uuid.NewString()
}

// requestLogger puts the request id, client address and logger on the
// request context and logs every completed request.
func (s *Server) requestLogger() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			start := time.Now()
			req := c.Request()

			ctx := logging.WithRequestID(req.Context(), c.Response().Header().Get(echo.HeaderXRequestID))
			ctx = logging.WithClientIP(ctx, c.RealIP())
			ctx = logging.WithLogger(ctx, s.logger)
			c.SetRequest(req.WithContext(ctx))

			err := next(c)
			if err != nil {
				// Resolve the status before logging it.
				c.Error(err)
			}

			fields := []zap.Field{
				zap.String("method", req.Method),
				zap.String("uri", req.RequestURI),
				zap.Int("status", c.Response().Status),
				zap.Duration("duration", time.Since(start)),
			}
			if err != nil && c.Response().Status >= 500 {
				s.logger.Error(ctx, "http request", append(fields, zap.Error(err))...)
			} else {
				s.logger.Info(ctx, "http request", fields...)
			}
			return nil
		}
	}
}

// requireAPIKey rejects requests without the configured x-api-key.
func (s *Server) requireAPIKey() echo.MiddlewareFunc {
	want := []byte(s.config.APIKey)
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			got := c.Request().Header.Get(HeaderAPIKey)
			if got == "" {
				return v1.ErrMissingAPIKey
			}
			if subtle.ConstantTimeCompare([]byte(got), want) != 1 {
				return v1.ErrInvalidAPIKey
			}
			return next(c)
		}
	}
}

// rateLimiter applies the fixed-window limit per client address.
func (s *Server) rateLimiter() echo.MiddlewareFunc {
	return middleware.RateLimiterWithConfig(middleware.RateLimiterConfig{
		Store: s.limiter,
		IdentifierExtractor: func(c echo.Context) (string, error) {
			return c.RealIP(), nil
		},
		DenyHandler: func(c echo.Context, identifier string, err error) error {
			return v1.ErrRateLimited
		},
		ErrorHandler: func(c echo.Context, err error) error {
			return v1.ErrRateLimited
		},
	})
}
