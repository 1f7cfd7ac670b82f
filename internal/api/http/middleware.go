package http

import (
	"context"
	"runtime/debug"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"

	"github.com/spec-kit/escalation-engine/internal/observability"
	apperrors "github.com/spec-kit/escalation-engine/pkg/util/errorutil"
)

// RegisterMiddlewares installs, outermost first, the request logger, the
// per-request deadline and the error mapper.
func RegisterMiddlewares(app *fiber.App, logger *zap.Logger, metrics *observability.Metrics, timeout time.Duration) {
	app.Use(observability.RequestLogger(logger, metrics))
	if timeout > 0 {
		app.Use(requestTimeoutMiddleware(timeout))
	}
	app.Use(errorHandlingMiddleware(logger, metrics))
}

// requestTimeoutMiddleware bounds the store calls a handler makes through
// c.UserContext(). A manual scan finishes tickets already started.
func requestTimeoutMiddleware(timeout time.Duration) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), timeout)
		defer cancel()
		c.SetUserContext(ctx)
		return c.Next()
	}
}

// errorHandlingMiddleware renders DomainErrors as {"error": {...}} and logs
// them. Server-side failures log at error, rejected scan and rule requests
// at warn, other client errors at debug.
func errorHandlingMiddleware(logger *zap.Logger, metrics *observability.Metrics) fiber.Handler {
	return func(c *fiber.Ctx) (err error) {
		defer func() {
			if r := recover(); r != nil {
				logger.Error("panic recovered",
					zap.String("method", c.Method()),
					zap.String("path", c.Path()),
					zap.Any("panic", r),
					zap.ByteString("stack", debug.Stack()))
				err = apperrors.NewInternalError(nil)
			}
			if err == nil {
				return
			}

			domainErr := apperrors.ToDomainError(err)
			route := routePath(c)
			metrics.RecordError(route, c.Method(), domainErr.Code)
			logRequestError(logger, c, route, domainErr)

			body := fiber.Map{
				"code":    domainErr.Code,
				"message": domainErr.Message,
			}
			if len(domainErr.Details) > 0 {
				body["details"] = domainErr.Details
			}
			c.Status(domainErr.HTTPStatus)
			_ = c.JSON(fiber.Map{"error": body})
			err = nil
		}()
		return c.Next()
	}
}

func logRequestError(logger *zap.Logger, c *fiber.Ctx, route string, domainErr *apperrors.DomainError) {
	fields := []zap.Field{
		zap.String("code", domainErr.Code),
		zap.Int("status", domainErr.HTTPStatus),
		zap.String("method", c.Method()),
		zap.String("route", route),
	}
	if id := c.Params("id"); id != "" {
		fields = append(fields, zap.String(resourceKey(route), id))
	}
	if len(domainErr.Details) > 0 {
		fields = append(fields, zap.Any("details", domainErr.Details))
	}
	if domainErr.Err != nil {
		fields = append(fields, zap.Error(domainErr.Err))
	}

	switch {
	case domainErr.HTTPStatus >= fiber.StatusInternalServerError:
		logger.Error("request failed", fields...)
	case isEscalationRoute(route):
		logger.Warn("escalation request rejected", fields...)
	default:
		logger.Debug("request rejected", fields...)
	}
}

func routePath(c *fiber.Ctx) string {
	if r := c.Route(); r != nil && r.Path != "" && r.Path != "/" {
		return r.Path
	}
	return c.Path()
}

func isEscalationRoute(route string) bool {
	return strings.HasPrefix(route, "/scan") || strings.HasPrefix(route, "/escalation-rules")
}

// resourceKey names the :id parameter in log fields.
func resourceKey(route string) string {
	switch {
	case strings.HasPrefix(route, "/escalation-rules"):
		return "rule_id"
	case strings.HasPrefix(route, "/notifications"):
		return "notification_id"
	case strings.HasPrefix(route, "/tickets"):
		return "ticket_id"
	}
	return "id"
}
